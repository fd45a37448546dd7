package listing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcbaptista/forum-query-engine/config"
	"github.com/gcbaptista/forum-query-engine/index"
	"github.com/gcbaptista/forum-query-engine/internal/indexing"
	"github.com/gcbaptista/forum-query-engine/internal/query"
	fixtures "github.com/gcbaptista/forum-query-engine/internal/testing"
	"github.com/gcbaptista/forum-query-engine/internal/visibility"
	"github.com/gcbaptista/forum-query-engine/model"
	"github.com/gcbaptista/forum-query-engine/services"
)

func snapshotOf(t *testing.T, b *fixtures.ForumBuilder) *index.Snapshot {
	t.Helper()
	snap, err := indexing.BuildSnapshot(context.Background(), b.Batch(), 1, "test", nil)
	require.NoError(t, err)
	return snap
}

// list normalizes, scopes and executes req, returning hit IDs in order.
func list(t *testing.T, snap *index.Snapshot, requester services.Requester, req services.ListQueryApiRequest) ([]uint32, bool) {
	t.Helper()
	n, err := query.NewNormalizer(config.DefaultEngineSettings()).NormalizeList(&req, snap.Store)
	require.NoError(t, err)
	visibility.Apply(n, visibility.NewViewer(requester, snap.Store), snap.Store)

	exec, err := NewExecutor(snap)
	require.NoError(t, err)
	result, err := exec.Execute(context.Background(), n)
	require.NoError(t, err)

	ids := make([]uint32, 0, len(result.Hits))
	for _, h := range result.Hits {
		ids = append(ids, h.ID)
	}
	return ids, result.Truncated
}

func pagesIn(categoryRef string) services.ListQueryApiRequest {
	return services.ListQueryApiRequest{ListQuery: &services.ListQuery{
		FindWhat:  services.FindPages,
		LookWhere: &services.LookWhere{InCategories: services.RefList{categoryRef}},
	}}
}

func TestExecute_DefaultOrderIsNewestWithoutLikes(t *testing.T) {
	f := fixtures.NewStandardForum(t)
	snap := snapshotOf(t, f.ForumBuilder)

	ids, truncated := list(t, snap, services.Requester{}, pagesIn("extid:general"))
	assert.Equal(t, []uint32{f.PageThree, f.PageTwo, f.PageOne}, ids)
	assert.False(t, truncated)
}

func TestExecute_OneLikeReorders(t *testing.T) {
	f := fixtures.NewStandardForum(t)
	f.LikePage(f.PageTwo)
	snap := snapshotOf(t, f.ForumBuilder)

	ids, _ := list(t, snap, services.Requester{}, pagesIn("extid:general"))
	assert.Equal(t, []uint32{f.PageTwo, f.PageThree, f.PageOne}, ids)

	req := pagesIn("extid:general")
	req.SortOrder = services.SortNewestFirst
	ids, _ = list(t, snap, services.Requester{}, req)
	assert.Equal(t, []uint32{f.PageThree, f.PageTwo, f.PageOne}, ids)
}

func TestExecute_ActiveFirst(t *testing.T) {
	f := fixtures.NewStandardForum(t)
	f.AddReply(f.PageOne, f.Michael, "Bumping the first page")
	snap := snapshotOf(t, f.ForumBuilder)

	req := pagesIn("extid:general")
	req.SortOrder = services.SortActiveFirst
	ids, _ := list(t, snap, services.Requester{}, req)
	assert.Equal(t, []uint32{f.PageOne, f.PageThree, f.PageTwo}, ids)
}

func TestExecute_PrivateCategory(t *testing.T) {
	f := fixtures.NewStandardForum(t)
	snap := snapshotOf(t, f.ForumBuilder)

	tests := []struct {
		name      string
		requester services.Requester
		want      []uint32
	}{
		{"anonymous", services.Requester{}, []uint32{}},
		{"member outside the staff group", services.Requester{ParticipantID: f.Maria}, []uint32{}},
		{"staff group member", services.Requester{ParticipantID: f.Owen}, []uint32{f.StaffPage}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids, _ := list(t, snap, tt.requester, pagesIn("extid:staff-only"))
			assert.Equal(t, tt.want, ids)
		})
	}

	t.Run("unscoped listing never includes private pages", func(t *testing.T) {
		req := services.ListQueryApiRequest{ListQuery: &services.ListQuery{FindWhat: services.FindPages, LookWhere: &services.LookWhere{}}}
		ids, _ := list(t, snap, services.Requester{}, req)
		assert.NotContains(t, ids, f.StaffPage)
		assert.Len(t, ids, 4)
	})

	t.Run("unknown category yields nothing", func(t *testing.T) {
		ids, _ := list(t, snap, services.Requester{ParticipantID: f.Owen}, pagesIn("extid:no-such-category"))
		assert.Empty(t, ids)
	})
}

func TestExecute_ScopeFilters(t *testing.T) {
	f := fixtures.NewStandardForum(t)
	snap := snapshotOf(t, f.ForumBuilder)

	tests := []struct {
		name string
		lw   services.LookWhere
		want []uint32
	}{
		{"with tag", services.LookWhere{WithTags: services.RefList{"extid:ideas"}}, []uint32{f.PageTwo}},
		{"page type", services.LookWhere{PageTypes: []model.PageType{model.PageTypeQuestion}}, []uint32{f.CuriosityPage}},
		{"written by username", services.LookWhere{WrittenBy: services.RefList{"username:maria"}}, []uint32{f.PageThree, f.PageOne}},
		{"written by group", services.LookWhere{WrittenBy: services.RefList{"username:mods"}}, []uint32{}},
		{"author badge", services.LookWhere{WithBadges: services.RefList{"extid:expert"}}, []uint32{f.PageThree, f.PageOne}},
		{"conjunction", services.LookWhere{
			InCategories: services.RefList{"extid:general"},
			WrittenBy:    services.RefList{"username:michael"},
		}, []uint32{f.PageTwo}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lw := tt.lw
			req := services.ListQueryApiRequest{
				ListQuery: &services.ListQuery{FindWhat: services.FindPages, LookWhere: &lw},
				SortOrder: services.SortNewestFirst,
			}
			ids, _ := list(t, snap, services.Requester{}, req)
			assert.Equal(t, tt.want, ids)
		})
	}

	t.Run("group members see pages written by their private group", func(t *testing.T) {
		req := services.ListQueryApiRequest{ListQuery: &services.ListQuery{
			FindWhat:  services.FindPages,
			LookWhere: &services.LookWhere{WrittenBy: services.RefList{"username:mods"}},
		}}
		ids, _ := list(t, snap, services.Requester{ParticipantID: f.Michael}, req)
		assert.Equal(t, []uint32{f.PageTwo}, ids)
	})
}

func TestExecute_Members(t *testing.T) {
	f := fixtures.NewStandardForum(t)
	snap := snapshotOf(t, f.ForumBuilder)

	members := func(lw services.LookWhere, prefix string) services.ListQueryApiRequest {
		return services.ListQueryApiRequest{
			ListQuery: &services.ListQuery{FindWhat: services.FindMembers, ExactPrefix: prefix, LookWhere: &lw},
			SortOrder: services.SortNewestFirst,
		}
	}

	t.Run("exact prefix on usernames", func(t *testing.T) {
		ids, _ := list(t, snap, services.Requester{}, members(services.LookWhere{Usernames: true}, "m"))
		assert.Equal(t, []uint32{f.Michael, f.Maria, f.Mods}, ids)
	})

	t.Run("exact prefix is case-sensitive", func(t *testing.T) {
		ids, _ := list(t, snap, services.Requester{}, members(services.LookWhere{Usernames: true}, "M"))
		assert.Empty(t, ids)
	})

	t.Run("members in a public group", func(t *testing.T) {
		ids, _ := list(t, snap, services.Requester{}, members(services.LookWhere{InGroups: services.RefList{"username:staff"}}, ""))
		assert.Equal(t, []uint32{f.Owen}, ids)
	})

	t.Run("members of a private group are hidden from outsiders", func(t *testing.T) {
		ids, _ := list(t, snap, services.Requester{ParticipantID: f.Maria}, members(services.LookWhere{InGroups: services.RefList{"username:mods"}}, ""))
		assert.Empty(t, ids)

		ids, _ = list(t, snap, services.Requester{ParticipantID: f.Michael}, members(services.LookWhere{InGroups: services.RefList{"username:mods"}}, ""))
		assert.Equal(t, []uint32{f.Michael}, ids)
	})

	t.Run("guests are participants but not members", func(t *testing.T) {
		ids, _ := list(t, snap, services.Requester{}, members(services.LookWhere{}, ""))
		assert.NotContains(t, ids, f.Gus)

		req := members(services.LookWhere{}, "")
		req.ListQuery.FindWhat = services.FindParticipants
		ids, _ = list(t, snap, services.Requester{}, req)
		assert.Contains(t, ids, f.Gus)
	})
}

func TestExecute_OtherCollections(t *testing.T) {
	f := fixtures.NewStandardForum(t)
	snap := snapshotOf(t, f.ForumBuilder)

	req := func(findWhat services.FindWhat) services.ListQueryApiRequest {
		return services.ListQueryApiRequest{ListQuery: &services.ListQuery{FindWhat: findWhat, LookWhere: &services.LookWhere{}}}
	}

	ids, _ := list(t, snap, services.Requester{}, req(services.FindCategories))
	assert.ElementsMatch(t, []uint32{f.General, f.Questions}, ids)
	ids, _ = list(t, snap, services.Requester{ParticipantID: f.Owen}, req(services.FindCategories))
	assert.ElementsMatch(t, []uint32{f.General, f.Questions, f.StaffOnly}, ids)

	ids, _ = list(t, snap, services.Requester{}, req(services.FindBadges))
	assert.Equal(t, []uint32{f.Expert}, ids)

	ids, _ = list(t, snap, services.Requester{ParticipantID: f.Maria}, req(services.FindInvites))
	assert.Empty(t, ids)
	ids, _ = list(t, snap, services.Requester{ParticipantID: f.Owen}, req(services.FindInvites))
	assert.Len(t, ids, 1)
	ids, _ = list(t, snap, services.Requester{ParticipantID: f.Owen}, req(services.FindEmailsSent))
	assert.Len(t, ids, 1)
}

func TestExecute_LimitAndCursorPosition(t *testing.T) {
	b := fixtures.GenerateForum(t, 30, 0)
	snap := snapshotOf(t, b)

	limit := 7
	req := services.ListQueryApiRequest{
		ListQuery: &services.ListQuery{FindWhat: services.FindPages, LookWhere: &services.LookWhere{}},
		SortOrder: services.SortPopularFirst,
		Limit:     &limit,
	}
	n, err := query.NewNormalizer(config.DefaultEngineSettings()).NormalizeList(&req, snap.Store)
	require.NoError(t, err)
	exec, err := NewExecutor(snap)
	require.NoError(t, err)

	var all []uint32
	for page := 0; page < 10; page++ {
		result, err := exec.Execute(context.Background(), n)
		require.NoError(t, err)
		require.LessOrEqual(t, len(result.Hits), limit)
		for i := 1; i < len(result.Hits); i++ {
			assert.True(t, result.Hits[i-1].Key.Before(result.Hits[i].Key), "hits must be strictly ordered")
		}
		for _, h := range result.Hits {
			all = append(all, h.ID)
		}
		if !result.Truncated {
			break
		}
		last := result.Last()
		n.After = &last
	}
	assert.Len(t, all, 30)

	seen := make(map[uint32]bool)
	for _, id := range all {
		assert.False(t, seen[id], "page %d returned twice", id)
		seen[id] = true
	}
}

func TestExecute_Cancelled(t *testing.T) {
	f := fixtures.NewStandardForum(t)
	snap := snapshotOf(t, f.ForumBuilder)
	n, err := query.NewNormalizer(config.DefaultEngineSettings()).NormalizeList(&services.ListQueryApiRequest{
		ListQuery: &services.ListQuery{FindWhat: services.FindPages, LookWhere: &services.LookWhere{}},
	}, snap.Store)
	require.NoError(t, err)

	exec, err := NewExecutor(snap)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = exec.Execute(ctx, n)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = NewExecutor(nil)
	assert.Error(t, err)
}
