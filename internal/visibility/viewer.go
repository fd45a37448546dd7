// Package visibility narrows normalized queries to what a requester may see.
// It runs before any executor, so hidden entities never enter result
// counts or pagination.
package visibility

import (
	"github.com/gcbaptista/forum-query-engine/internal/query"
	"github.com/gcbaptista/forum-query-engine/model"
	"github.com/gcbaptista/forum-query-engine/services"
	"github.com/gcbaptista/forum-query-engine/store"
)

// Viewer is a requester resolved against one snapshot.
type Viewer struct {
	ID     uint32
	Staff  bool
	Groups map[uint32]bool

	categories query.IDSet
}

// NewViewer resolves requester. Unknown participants, guests and groups
// view the forum anonymously.
func NewViewer(requester services.Requester, cs *store.ContentStore) *Viewer {
	v := &Viewer{Groups: make(map[uint32]bool)}
	if !requester.Anonymous() {
		if p := cs.Participant(requester.ParticipantID); p != nil && p.IsMember() && !p.IsGroup {
			v.ID = p.ID
			v.Staff = p.IsStaff
			for _, g := range p.GroupIDs {
				v.Groups[g] = true
			}
		}
	}
	v.categories = visibleCategories(cs, v)
	return v
}

// Anonymous reports whether the viewer is not a known member.
func (v *Viewer) Anonymous() bool {
	return v.ID == 0
}

// CanSeeCategory reports whether the category and all its ancestors are visible.
func (v *Viewer) CanSeeCategory(id uint32) bool {
	_, ok := v.categories[id]
	return ok
}

// CanSeeMembersOf reports whether the member list of a group is visible.
func (v *Viewer) CanSeeMembersOf(group *model.Participant) bool {
	if group == nil || !group.IsGroup {
		return false
	}
	return !group.PrivateMembership || v.Staff || v.Groups[group.ID]
}

func (v *Viewer) mayRead(c *model.Category) bool {
	if c.IsPublic {
		return true
	}
	for _, g := range c.SeeGroupIDs {
		if v.Groups[g] {
			return true
		}
	}
	return false
}

// visibleCategories walks each category's ancestor chain. A category is
// visible only if it and every ancestor are readable. Cycles are invisible.
func visibleCategories(cs *store.ContentStore, v *Viewer) query.IDSet {
	cs.Mu.RLock()
	defer cs.Mu.RUnlock()

	memo := make(map[uint32]bool, len(cs.Categories))
	var visit func(id uint32, depth int) bool
	visit = func(id uint32, depth int) bool {
		if seen, ok := memo[id]; ok {
			return seen
		}
		c := cs.Categories[id]
		if c == nil || depth > len(cs.Categories) {
			return false
		}
		ok := v.mayRead(c)
		if ok && c.ParentID != 0 {
			ok = visit(c.ParentID, depth+1)
		}
		memo[id] = ok
		return ok
	}

	out := make(query.IDSet)
	for id := range cs.Categories {
		if visit(id, 0) {
			out[id] = struct{}{}
		}
	}
	return out
}
