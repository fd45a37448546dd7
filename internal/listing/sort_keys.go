package listing

import (
	"time"

	"github.com/gcbaptista/forum-query-engine/internal/cursor"
	"github.com/gcbaptista/forum-query-engine/model"
	"github.com/gcbaptista/forum-query-engine/services"
	"github.com/gcbaptista/forum-query-engine/store"
)

// sortSignals are the values a sort order can rank an entity by.
type sortSignals struct {
	popularity int
	activeAt   time.Time
	createdAt  time.Time
}

// SortKey returns the position of entity id under order. Positions compare
// descending, and ties fall through to creation time and then ID.
//   - newest_first: creation time
//   - active_first: last activity, then creation time
//   - popular_first: popularity, then creation time
func SortKey(cs *store.ContentStore, kind model.EntityKind, id uint32, order services.SortOrder) cursor.Position {
	sig := signals(cs, kind, id)
	pos := cursor.Position{Secondary: sig.createdAt.UnixNano(), ID: id}
	switch order {
	case services.SortPopularFirst:
		pos.Primary = float64(sig.popularity)
	case services.SortActiveFirst:
		pos.Primary = float64(sig.activeAt.UnixMilli())
	}
	return pos
}

func signals(cs *store.ContentStore, kind model.EntityKind, id uint32) sortSignals {
	switch kind {
	case model.KindPage:
		if p := cs.Page(id); p != nil {
			return sortSignals{popularity: cs.Popularity(id), activeAt: p.BumpedAt, createdAt: p.CreatedAt}
		}
	case model.KindParticipant:
		if p := cs.Participant(id); p != nil {
			return sortSignals{popularity: cs.LikesReceived[id], activeAt: p.LastActiveAt, createdAt: p.CreatedAt}
		}
	case model.KindCategory:
		if c := cs.Category(id); c != nil {
			active := cs.CategoryBumpedAt[id]
			if active.IsZero() {
				active = c.CreatedAt
			}
			return sortSignals{popularity: cs.CategoryPages[id], activeAt: active, createdAt: c.CreatedAt}
		}
	case model.KindBadge:
		if b := cs.Badge(id); b != nil {
			return sortSignals{popularity: cs.BadgeHolders[id], activeAt: b.CreatedAt, createdAt: b.CreatedAt}
		}
	case model.KindInvite:
		if inv := cs.Invite(id); inv != nil {
			active := inv.CreatedAt
			if inv.AcceptedAt != nil {
				active = *inv.AcceptedAt
			}
			return sortSignals{activeAt: active, createdAt: inv.CreatedAt}
		}
	case model.KindEmailSent:
		if e := cs.EmailSent(id); e != nil {
			return sortSignals{activeAt: e.SentAt, createdAt: e.SentAt}
		}
	}
	return sortSignals{}
}
