package listing

import (
	"github.com/gcbaptista/forum-query-engine/internal/query"
	"github.com/gcbaptista/forum-query-engine/model"
	"github.com/gcbaptista/forum-query-engine/services"
	"github.com/gcbaptista/forum-query-engine/store"
)

// Admits reports whether entity id of the clause's kind passes every scope
// filter of c. Filters are conjunctive. Scopes that do not apply to a kind
// are ignored. The search executor uses the same predicate.
func Admits(cs *store.ContentStore, c *query.Clause, id uint32) bool {
	if c.Hidden {
		return false
	}
	switch c.Kind {
	case model.KindPage:
		return admitsPage(cs, c, cs.Page(id))
	case model.KindParticipant:
		return admitsParticipant(c, cs.Participant(id))
	case model.KindCategory:
		return cs.Category(id) != nil && c.InCategories.Admits(id)
	case model.KindBadge:
		return cs.Badge(id) != nil && c.WithBadges.Admits(id)
	case model.KindInvite:
		inv := cs.Invite(id)
		return inv != nil && c.WrittenBy.Admits(inv.InvitedByID)
	case model.KindEmailSent:
		return cs.EmailSent(id) != nil
	}
	return false
}

func admitsPage(cs *store.ContentStore, c *query.Clause, p *model.Page) bool {
	if p == nil || p.Deleted {
		return false
	}
	if !c.InCategories.Admits(p.CategoryID) || !c.WithTags.AdmitsAny(p.TagIDs) {
		return false
	}
	if len(c.PageTypes) > 0 && !c.PageTypes[p.PageType] {
		return false
	}
	if c.WrittenBy == nil && c.InGroups == nil && c.WithBadges == nil {
		return true
	}
	author := cs.Participant(p.AuthorID)
	if author == nil {
		return false
	}
	return writtenBy(c.WrittenBy, author) &&
		c.InGroups.AdmitsAny(author.GroupIDs) &&
		c.WithBadges.AdmitsAny(author.BadgeIDs)
}

// writtenBy admits the author itself or any group the author belongs to.
func writtenBy(set query.IDSet, author *model.Participant) bool {
	return set.Admits(author.ID) || (set != nil && set.AdmitsAny(author.GroupIDs))
}

func admitsParticipant(c *query.Clause, p *model.Participant) bool {
	if p == nil {
		return false
	}
	if c.FindWhat == services.FindMembers && !p.IsMember() {
		return false
	}
	return c.InGroups.AdmitsAny(p.GroupIDs) &&
		c.WithBadges.AdmitsAny(p.BadgeIDs) &&
		c.WrittenBy.Admits(p.ID)
}
