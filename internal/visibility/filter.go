package visibility

import (
	"github.com/gcbaptista/forum-query-engine/internal/query"
	"github.com/gcbaptista/forum-query-engine/model"
	"github.com/gcbaptista/forum-query-engine/store"
)

// staffOnly collections are hidden from everyone but staff.
var staffOnly = map[model.EntityKind]bool{
	model.KindInvite:    true,
	model.KindEmailSent: true,
}

// Apply narrows every clause of n in place to what v may see.
// Scopes are intersected with the visible sets, never widened.
func Apply(n *query.Normalized, v *Viewer, cs *store.ContentStore) {
	for i := range n.Clauses {
		narrowClause(&n.Clauses[i], v, cs)
	}
}

func narrowClause(c *query.Clause, v *Viewer, cs *store.ContentStore) {
	if staffOnly[c.Kind] && !v.Staff {
		c.Hidden = true
		return
	}

	switch c.Kind {
	case model.KindPage, model.KindCategory:
		c.InCategories = c.InCategories.Intersect(v.categories)
	}

	c.InGroups = dropHiddenGroups(c.InGroups, v, cs, true)
	c.WrittenBy = dropHiddenGroups(c.WrittenBy, v, cs, false)

	if !v.Staff && c.Kind == model.KindParticipant && c.Looks(query.LookEmailAddresses) {
		lookup := make(map[query.LookupField]bool, len(c.Lookup))
		for lf, on := range c.Lookup {
			if lf != query.LookEmailAddresses {
				lookup[lf] = on
			}
		}
		c.Lookup = lookup
	}
}

// dropHiddenGroups removes groups whose member list v may not see.
// With groupsOnly, every remaining ID must be a group.
func dropHiddenGroups(set query.IDSet, v *Viewer, cs *store.ContentStore, groupsOnly bool) query.IDSet {
	if set == nil {
		return nil
	}
	kept := make(query.IDSet, len(set))
	for id := range set {
		p := cs.Participant(id)
		if p == nil {
			continue
		}
		if p.IsGroup && !v.CanSeeMembersOf(p) {
			continue
		}
		if groupsOnly && !p.IsGroup {
			continue
		}
		kept[id] = struct{}{}
	}
	return kept
}
