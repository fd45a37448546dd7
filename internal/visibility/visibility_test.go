package visibility

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcbaptista/forum-query-engine/index"
	"github.com/gcbaptista/forum-query-engine/internal/indexing"
	"github.com/gcbaptista/forum-query-engine/internal/query"
	fixtures "github.com/gcbaptista/forum-query-engine/internal/testing"
	"github.com/gcbaptista/forum-query-engine/model"
	"github.com/gcbaptista/forum-query-engine/services"
)

func buildSnapshot(t *testing.T, f *fixtures.StandardForum) *index.Snapshot {
	t.Helper()
	snap, err := indexing.BuildSnapshot(context.Background(), f.Batch(), 1, "test", nil)
	require.NoError(t, err)
	return snap
}

func TestNewViewer(t *testing.T) {
	f := fixtures.NewStandardForum(t)
	sub := f.AddCategory("staff-sub", "Staff Sub", true)
	batch := f.Batch()
	for i := range batch.Categories {
		if batch.Categories[i].ID == sub {
			batch.Categories[i].ParentID = f.StaffOnly
		}
	}
	snap, err := indexing.BuildSnapshot(context.Background(), batch, 1, "test", nil)
	require.NoError(t, err)

	tests := []struct {
		name      string
		requester services.Requester
		anonymous bool
		staff     bool
		sees      []uint32
		hidden    []uint32
	}{
		{"anonymous", services.Requester{}, true, false, []uint32{f.General, f.Questions}, []uint32{f.StaffOnly, sub}},
		{"unknown participant", services.Requester{ParticipantID: 99999}, true, false, []uint32{f.General}, []uint32{f.StaffOnly}},
		{"guest", services.Requester{ParticipantID: f.Gus}, true, false, []uint32{f.General}, []uint32{f.StaffOnly}},
		{"group identity", services.Requester{ParticipantID: f.StaffGroup}, true, false, nil, []uint32{f.StaffOnly}},
		{"member", services.Requester{ParticipantID: f.Maria}, false, false, []uint32{f.General, f.Questions}, []uint32{f.StaffOnly, sub}},
		{"staff group member", services.Requester{ParticipantID: f.Owen}, false, true, []uint32{f.General, f.StaffOnly, sub}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewViewer(tt.requester, snap.Store)
			assert.Equal(t, tt.anonymous, v.Anonymous())
			assert.Equal(t, tt.staff, v.Staff)
			for _, id := range tt.sees {
				assert.True(t, v.CanSeeCategory(id), "category %d should be visible", id)
			}
			for _, id := range tt.hidden {
				assert.False(t, v.CanSeeCategory(id), "category %d should be hidden", id)
			}
		})
	}
}

func TestViewer_CanSeeMembersOf(t *testing.T) {
	f := fixtures.NewStandardForum(t)
	snap := buildSnapshot(t, f)
	mods := snap.Store.Participant(f.Mods)
	staffGroup := snap.Store.Participant(f.StaffGroup)

	assert.True(t, NewViewer(services.Requester{}, snap.Store).CanSeeMembersOf(staffGroup))
	assert.False(t, NewViewer(services.Requester{}, snap.Store).CanSeeMembersOf(mods))
	assert.False(t, NewViewer(services.Requester{ParticipantID: f.Maria}, snap.Store).CanSeeMembersOf(mods))
	assert.True(t, NewViewer(services.Requester{ParticipantID: f.Michael}, snap.Store).CanSeeMembersOf(mods))
	assert.True(t, NewViewer(services.Requester{ParticipantID: f.Owen}, snap.Store).CanSeeMembersOf(mods))
	assert.False(t, NewViewer(services.Requester{}, snap.Store).CanSeeMembersOf(snap.Store.Participant(f.Maria)))
}

func TestApply(t *testing.T) {
	f := fixtures.NewStandardForum(t)
	snap := buildSnapshot(t, f)
	anon := NewViewer(services.Requester{}, snap.Store)
	owen := NewViewer(services.Requester{ParticipantID: f.Owen}, snap.Store)

	t.Run("unscoped pages are limited to visible categories", func(t *testing.T) {
		n := &query.Normalized{Clauses: []query.Clause{{Kind: model.KindPage}}}
		Apply(n, anon, snap.Store)
		assert.ElementsMatch(t, []uint32{f.General, f.Questions}, n.Clauses[0].InCategories.Sorted())
	})

	t.Run("a hidden category scope becomes empty", func(t *testing.T) {
		n := &query.Normalized{Clauses: []query.Clause{{Kind: model.KindPage, InCategories: query.NewIDSet(f.StaffOnly)}}}
		Apply(n, anon, snap.Store)
		require.NotNil(t, n.Clauses[0].InCategories)
		assert.Empty(t, n.Clauses[0].InCategories)
	})

	t.Run("staff keep their category scope", func(t *testing.T) {
		n := &query.Normalized{Clauses: []query.Clause{{Kind: model.KindPage, InCategories: query.NewIDSet(f.StaffOnly)}}}
		Apply(n, owen, snap.Store)
		assert.Equal(t, []uint32{f.StaffOnly}, n.Clauses[0].InCategories.Sorted())
	})

	t.Run("private groups are dropped from group scopes", func(t *testing.T) {
		n := &query.Normalized{Clauses: []query.Clause{{
			Kind:      model.KindParticipant,
			InGroups:  query.NewIDSet(f.Mods, f.StaffGroup),
			WrittenBy: query.NewIDSet(f.Mods, f.Maria),
		}}}
		Apply(n, anon, snap.Store)
		assert.Equal(t, []uint32{f.StaffGroup}, n.Clauses[0].InGroups.Sorted())
		assert.Equal(t, []uint32{f.Maria}, n.Clauses[0].WrittenBy.Sorted())
		assert.Nil(t, n.Clauses[0].InCategories, "participants are not category scoped")
	})

	t.Run("email lookups are for staff only", func(t *testing.T) {
		lookup := map[query.LookupField]bool{query.LookEmailAddresses: true, query.LookUsernames: true}
		n := &query.Normalized{Clauses: []query.Clause{{Kind: model.KindParticipant, Lookup: lookup}}}
		Apply(n, anon, snap.Store)
		assert.Equal(t, map[query.LookupField]bool{query.LookUsernames: true}, n.Clauses[0].Lookup)
		assert.True(t, lookup[query.LookEmailAddresses], "the caller's map is not mutated")

		n = &query.Normalized{Clauses: []query.Clause{{Kind: model.KindParticipant, Lookup: lookup}}}
		Apply(n, owen, snap.Store)
		assert.True(t, n.Clauses[0].Looks(query.LookEmailAddresses))
	})

	t.Run("staff-only collections are hidden", func(t *testing.T) {
		for _, kind := range []model.EntityKind{model.KindInvite, model.KindEmailSent} {
			n := &query.Normalized{Clauses: []query.Clause{{Kind: kind}}}
			Apply(n, NewViewer(services.Requester{ParticipantID: f.Maria}, snap.Store), snap.Store)
			assert.True(t, n.Clauses[0].Hidden, kind)

			n = &query.Normalized{Clauses: []query.Clause{{Kind: kind}}}
			Apply(n, owen, snap.Store)
			assert.False(t, n.Clauses[0].Hidden, kind)
		}
	})
}
