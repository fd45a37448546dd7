// Package assembler maps executor hits to the public ThingFound variants.
// It keeps the executor's order and embeds referenced authors and
// categories inline in every result.
package assembler

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/gcbaptista/forum-query-engine/config"
	"github.com/gcbaptista/forum-query-engine/index"
	"github.com/gcbaptista/forum-query-engine/internal/query"
	"github.com/gcbaptista/forum-query-engine/internal/search"
	"github.com/gcbaptista/forum-query-engine/model"
	"github.com/gcbaptista/forum-query-engine/services"
)

// Assembler builds response items from one snapshot.
type Assembler struct {
	snapshot    *index.Snapshot
	highlighter *search.Highlighter
}

// New creates an Assembler reading snap.
func New(snap *index.Snapshot, settings *config.EngineSettings) *Assembler {
	return &Assembler{
		snapshot:    snap,
		highlighter: search.NewHighlighter(settings.HighlightContextChars, settings.MaxFragmentsPerPost),
	}
}

// Assemble converts hits into ThingFound values of the variant findWhat selects.
// Hits whose entity vanished are skipped.
func (a *Assembler) Assemble(ctx context.Context, findWhat services.FindWhat, hits []query.Hit) ([]services.ThingFound, error) {
	things := make([]services.ThingFound, 0, len(hits))
	for i := range hits {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		thing, err := a.assembleOne(findWhat, &hits[i])
		if err != nil {
			return nil, err
		}
		if thing != nil {
			things = append(things, thing)
		}
	}
	return things, nil
}

func (a *Assembler) assembleOne(findWhat services.FindWhat, hit *query.Hit) (services.ThingFound, error) {
	cs := a.snapshot.Store
	switch findWhat {
	case services.FindPages:
		if p := cs.Page(hit.ID); p != nil {
			return a.page(p, hit), nil
		}
	case services.FindMembers, services.FindParticipants:
		if p := a.participant(hit.ID); p != nil {
			return *p, nil
		}
	case services.FindCategories:
		if c := a.category(hit.ID); c != nil {
			return *c, nil
		}
	case services.FindBadges:
		if b := cs.Badge(hit.ID); b != nil {
			return services.BadgeFound{ID: strconv.FormatUint(uint64(b.ID), 10), Title: b.Title, AboutText: b.About}, nil
		}
	case services.FindInvites:
		if inv := cs.Invite(hit.ID); inv != nil {
			return services.InviteFound{
				EmailAddress: inv.EmailAddress,
				InvitedBy:    a.participant(inv.InvitedByID),
				CreatedAt:    inv.CreatedAt,
				AcceptedAt:   inv.AcceptedAt,
			}, nil
		}
	case services.FindEmailsSent:
		if e := cs.EmailSent(hit.ID); e != nil {
			return services.EmailSentFound{
				ToAddress:     e.ToAddress,
				Subject:       e.Subject,
				SentAt:        e.SentAt,
				HTMLWithMarks: a.marks(hit),
			}, nil
		}
	default:
		return nil, fmt.Errorf("no result variant for findWhat '%s'", findWhat)
	}
	return nil, nil
}

func (a *Assembler) page(p *model.Page, hit *query.Hit) services.PageFound {
	found := services.PageFound{
		PageTitle:     p.Title,
		URLPath:       p.URLPath(),
		Author:        a.participant(p.AuthorID),
		CategoryFound: a.category(p.CategoryID),
	}
	if len(hit.Units) > 0 {
		found.PostsFound = a.postsFound(hit)
	}
	return found
}

// postsFound returns one PostFound per matching post: title, then body, then
// replies in post number order.
func (a *Assembler) postsFound(hit *query.Hit) []services.PostFound {
	units := make([]*index.TextUnit, 0, len(hit.Units))
	for _, id := range hit.Units {
		if u := a.snapshot.Index.Unit(id); u != nil && u.PostID != 0 {
			units = append(units, u)
		}
	}
	sort.SliceStable(units, func(i, j int) bool { return units[i].PostNr < units[j].PostNr })

	posts := make([]services.PostFound, 0, len(units))
	for _, u := range units {
		marks := a.highlighter.Fragments(u.Text, hit.Tokens)
		if len(marks) == 0 {
			continue
		}
		post := services.PostFound{
			IsPageTitle:   u.PostNr == model.TitleNr,
			IsPageBody:    u.PostNr == model.BodyNr,
			HTMLWithMarks: marks,
		}
		if p := a.snapshot.Store.Post(u.PostID); p != nil {
			post.Author = a.participant(p.AuthorID)
		}
		posts = append(posts, post)
	}
	return posts
}

// marks highlights every matched unit of a hit, in unit order.
func (a *Assembler) marks(hit *query.Hit) []string {
	var marks []string
	for _, id := range hit.Units {
		if u := a.snapshot.Index.Unit(id); u != nil {
			marks = append(marks, a.highlighter.Fragments(u.Text, hit.Tokens)...)
		}
	}
	return marks
}

func (a *Assembler) participant(id uint32) *services.ParticipantFound {
	p := a.snapshot.Store.Participant(id)
	if p == nil {
		return nil
	}
	found := &services.ParticipantFound{
		ID:       strconv.FormatUint(uint64(p.ID), 10),
		FullName: p.FullName,
	}
	if p.IsMember() {
		found.Username = p.Username
		found.IsGroup = p.IsGroup
	}
	return found
}

func (a *Assembler) category(id uint32) *services.CategoryFound {
	c := a.snapshot.Store.Category(id)
	if c == nil {
		return nil
	}
	return &services.CategoryFound{Name: c.Name, URLPath: c.URLPath()}
}
