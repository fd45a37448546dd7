package engine

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcbaptista/forum-query-engine/config"
	"github.com/gcbaptista/forum-query-engine/internal/cache"
	qerrors "github.com/gcbaptista/forum-query-engine/internal/errors"
	"github.com/gcbaptista/forum-query-engine/internal/indexing"
	"github.com/gcbaptista/forum-query-engine/internal/source"
	fixtures "github.com/gcbaptista/forum-query-engine/internal/testing"
	"github.com/gcbaptista/forum-query-engine/model"
	"github.com/gcbaptista/forum-query-engine/services"
)

func newEngine(t *testing.T, opts Options) *Engine {
	t.Helper()
	if opts.Settings == nil {
		opts.Settings = config.DefaultEngineSettings()
	}
	e, err := New(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close(context.Background()) })
	return e
}

// servingForum returns an engine already serving the standard forum.
func servingForum(t *testing.T, b *fixtures.ForumBuilder, opts Options) *Engine {
	t.Helper()
	e := newEngine(t, opts)
	snap, err := indexing.BuildSnapshot(context.Background(), b.Batch(), e.NextGeneration(), "test", nil)
	require.NoError(t, err)
	require.NoError(t, e.SwapSnapshot(snap))
	return e
}

func pagesIn(ref string) services.ListQueryApiRequest {
	return services.ListQueryApiRequest{ListQuery: &services.ListQuery{
		FindWhat:  services.FindPages,
		LookWhere: &services.LookWhere{InCategories: services.RefList{ref}},
	}}
}

func titles(t *testing.T, results *services.QueryResults) []string {
	t.Helper()
	out := make([]string, 0, len(results.ThingsFound))
	for _, thing := range results.ThingsFound {
		page, ok := thing.(services.PageFound)
		require.True(t, ok, "expected PageFound, got %T", thing)
		out = append(out, page.PageTitle)
	}
	return out
}

func intPtr(i int) *int { return &i }

func TestList_NewestFirstWithoutLikes(t *testing.T) {
	f := fixtures.NewStandardForum(t)
	e := servingForum(t, f.ForumBuilder, Options{})

	results, err := e.List(context.Background(), services.Requester{}, pagesIn("extid:general"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Page Three", "Page Two", "Page One"}, titles(t, results))
	assert.Empty(t, results.ScrollCursor)

	page := results.ThingsFound[0].(services.PageFound)
	assert.Equal(t, &services.CategoryFound{Name: "General", URLPath: "/latest/general"}, page.CategoryFound)
	assert.Nil(t, page.PostsFound)
}

func TestList_OneLikeMovesPageUp(t *testing.T) {
	f := fixtures.NewStandardForum(t)
	f.LikePage(f.PageTwo)
	e := servingForum(t, f.ForumBuilder, Options{})

	results, err := e.List(context.Background(), services.Requester{}, pagesIn("extid:general"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Page Two", "Page Three", "Page One"}, titles(t, results))
}

func TestSearch_HighlightsEveryOccurrence(t *testing.T) {
	f := fixtures.NewStandardForum(t)
	e := servingForum(t, f.ForumBuilder, Options{})

	results, err := e.Search(context.Background(), services.Requester{}, services.SearchQueryApiRequest{
		SearchQuery: services.SearchQuery{{Freetext: "curiosity"}},
	})
	require.NoError(t, err)
	require.Len(t, results.ThingsFound, 1, "the staff-only page must not be found")

	page := results.ThingsFound[0].(services.PageFound)
	assert.Equal(t, fixtures.CuriosityTitle, page.PageTitle)
	require.Len(t, page.PostsFound, 3)
	assert.Equal(t, []string{"What does <mark>curiosity</mark> have?"}, page.PostsFound[0].HTMLWithMarks)
	assert.Equal(t, []string{"<mark>Curiosity</mark> has its own reason for existing"}, page.PostsFound[1].HTMLWithMarks)
	assert.Len(t, page.PostsFound[2].HTMLWithMarks, 2)
	assert.Equal(t, "maria", page.PostsFound[2].Author.Username)
}

func TestPrivateCategory(t *testing.T) {
	f := fixtures.NewStandardForum(t)
	e := servingForum(t, f.ForumBuilder, Options{})
	ctx := context.Background()

	t.Run("anonymous list is empty, not an error", func(t *testing.T) {
		results, err := e.List(ctx, services.Requester{}, pagesIn("extid:staff-only"))
		require.NoError(t, err)
		assert.Empty(t, results.ThingsFound)
	})

	t.Run("anonymous search misses staff pages", func(t *testing.T) {
		results, err := e.Search(ctx, services.Requester{}, services.SearchQueryApiRequest{
			SearchQuery: services.SearchQuery{{Freetext: "staff notes"}},
		})
		require.NoError(t, err)
		assert.Empty(t, results.ThingsFound)
	})

	t.Run("staff see it", func(t *testing.T) {
		owen := services.Requester{ParticipantID: f.Owen}
		results, err := e.List(ctx, owen, pagesIn("extid:staff-only"))
		require.NoError(t, err)
		assert.Equal(t, []string{"Staff curiosity"}, titles(t, results))
	})
}

func TestRequestErrors(t *testing.T) {
	f := fixtures.NewStandardForum(t)
	e := servingForum(t, f.ForumBuilder, Options{})
	ctx := context.Background()

	tests := []struct {
		name string
		req  services.ListQueryApiRequest
		want error
	}{
		{"unknown ref prefix", pagesIn("bogus:foo"), qerrors.ErrInvalidReference},
		{"zero limit", func() services.ListQueryApiRequest {
			r := pagesIn("extid:general")
			r.Limit = intPtr(0)
			return r
		}(), qerrors.ErrInvalidLimit},
		{"query and cursor", func() services.ListQueryApiRequest {
			r := pagesIn("extid:general")
			r.ContinueAtScrollCursor = "abc"
			return r
		}(), qerrors.ErrConflictingQueryAndCursor},
		{"neither query nor cursor", services.ListQueryApiRequest{}, qerrors.ErrInvalidRequest},
		{"tags", services.ListQueryApiRequest{ListQuery: &services.ListQuery{
			FindWhat: services.FindTags, LookWhere: &services.LookWhere{},
		}}, qerrors.ErrUnimplemented},
		{"cursor while disabled", services.ListQueryApiRequest{ContinueAtScrollCursor: "abc"}, qerrors.ErrUnimplemented},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.List(ctx, services.Requester{}, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := e.Search(ctx, services.Requester{}, services.SearchQueryApiRequest{
		SearchQuery: services.SearchQuery{{Freetext: "cats", FindWhat: services.FindTags}},
	})
	assert.ErrorIs(t, err, qerrors.ErrUnimplemented)
}

func TestIndexUnavailable(t *testing.T) {
	e := newEngine(t, Options{})

	_, err := e.List(context.Background(), services.Requester{}, pagesIn("extid:general"))
	assert.ErrorIs(t, err, qerrors.ErrIndexUnavailable)
	_, err = e.Search(context.Background(), services.Requester{}, services.SearchQueryApiRequest{
		SearchQuery: services.SearchQuery{{Freetext: "x"}},
	})
	assert.ErrorIs(t, err, qerrors.ErrIndexUnavailable)
	assert.False(t, e.Status().Ready)
}

func TestTruncationAndCursors(t *testing.T) {
	forum := fixtures.GenerateForum(t, 12, 0)
	all := services.ListQueryApiRequest{ListQuery: &services.ListQuery{
		FindWhat: services.FindPages, LookWhere: &services.LookWhere{},
	}, SortOrder: services.SortNewestFirst}

	t.Run("cursor signals truncation even when continuation is disabled", func(t *testing.T) {
		e := servingForum(t, forum, Options{})
		req := all
		req.Limit = intPtr(5)
		results, err := e.List(context.Background(), services.Requester{}, req)
		require.NoError(t, err)
		assert.Len(t, results.ThingsFound, 5)
		assert.NotEmpty(t, results.ScrollCursor)

		_, err = e.List(context.Background(), services.Requester{}, services.ListQueryApiRequest{
			ContinueAtScrollCursor: results.ScrollCursor,
		})
		assert.ErrorIs(t, err, qerrors.ErrUnimplemented)
	})

	t.Run("continuation walks every page once", func(t *testing.T) {
		settings := config.DefaultEngineSettings()
		settings.EnableScrollCursors = true
		e := servingForum(t, forum, Options{Settings: settings})

		req := all
		req.Limit = intPtr(5)
		results, err := e.List(context.Background(), services.Requester{}, req)
		require.NoError(t, err)

		seen := titles(t, results)
		for results.ScrollCursor != "" {
			results, err = e.List(context.Background(), services.Requester{}, services.ListQueryApiRequest{
				ContinueAtScrollCursor: results.ScrollCursor,
				Limit:                  intPtr(5),
			})
			require.NoError(t, err)
			seen = append(seen, titles(t, results)...)
		}
		require.Len(t, seen, 12)
		assert.True(t, strings.HasPrefix(seen[0], "Page 11 "), seen[0])
		assert.True(t, strings.HasPrefix(seen[11], "Page 0 "), seen[11])

		_, err = e.List(context.Background(), services.Requester{}, services.ListQueryApiRequest{
			ContinueAtScrollCursor: "not a cursor!",
		})
		assert.ErrorIs(t, err, qerrors.ErrInvalidRequest)
	})

	t.Run("limit is clamped", func(t *testing.T) {
		settings := config.DefaultEngineSettings()
		settings.MaxLimit = 3
		settings.DefaultLimit = 3
		e := servingForum(t, forum, Options{Settings: settings})

		req := all
		req.Limit = intPtr(1000)
		results, err := e.List(context.Background(), services.Requester{}, req)
		require.NoError(t, err)
		assert.Len(t, results.ThingsFound, 3)
		assert.NotEmpty(t, results.ScrollCursor)
	})
}

func TestDeterministic(t *testing.T) {
	forum := fixtures.GenerateForum(t, 40, 2)
	e := servingForum(t, forum, Options{})
	req := services.SearchQueryApiRequest{SearchQuery: services.SearchQuery{{Freetext: "curiosity cats"}}}

	first, err := e.Search(context.Background(), services.Requester{}, req)
	require.NoError(t, err)
	second, err := e.Search(context.Background(), services.Requester{}, req)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[string]*services.QueryResults
	kinds   map[string]services.FindWhat
	gets    int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string]*services.QueryResults{}, kinds: map[string]services.FindWhat{}}
}

func (c *memoryCache) Get(_ context.Context, key string) (*services.QueryResults, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if r, ok := c.entries[key]; ok {
		return r, nil
	}
	return nil, cache.ErrCacheMiss
}

func (c *memoryCache) Set(_ context.Context, key string, findWhat services.FindWhat, results *services.QueryResults, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = results
	c.kinds[key] = findWhat
	return nil
}

func (c *memoryCache) Close() error { return nil }

func (c *memoryCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func TestResponseCache(t *testing.T) {
	f := fixtures.NewStandardForum(t)
	mc := newMemoryCache()
	e := servingForum(t, f.ForumBuilder, Options{Cache: mc, CachePrefix: "test"})
	ctx := context.Background()

	first, err := e.List(ctx, services.Requester{}, pagesIn("extid:general"))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return mc.size() == 1 }, time.Second, 5*time.Millisecond)

	for key, kind := range mc.kinds {
		assert.True(t, strings.HasPrefix(key, "test:list:1:0:"), key)
		assert.Equal(t, services.FindPages, kind)
	}

	pretty := pagesIn("extid:general")
	pretty.Pretty = true
	second, err := e.List(ctx, services.Requester{}, pretty)
	require.NoError(t, err)
	assert.Same(t, first, second, "pretty does not change the cache key")
	assert.Equal(t, 1, mc.size())

	_, err = e.List(ctx, services.Requester{ParticipantID: f.Owen}, pagesIn("extid:general"))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return mc.size() == 2 }, time.Second, 5*time.Millisecond, "requesters are cached apart")
}

func TestAnalytics_TracksAnsweredQueries(t *testing.T) {
	f := fixtures.NewStandardForum(t)
	mc := newMemoryCache()
	e := servingForum(t, f.ForumBuilder, Options{Cache: mc})
	ctx := context.Background()

	_, err := e.List(ctx, services.Requester{}, pagesIn("extid:general"))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return mc.size() == 1 }, time.Second, 5*time.Millisecond)
	_, err = e.List(ctx, services.Requester{}, pagesIn("extid:general"))
	require.NoError(t, err)

	_, err = e.Search(ctx, services.Requester{}, services.SearchQueryApiRequest{
		SearchQuery: services.SearchQuery{{Freetext: " curiosity "}, {Freetext: "cats", FindWhat: services.FindPages}},
	})
	require.NoError(t, err)

	_, err = e.List(ctx, services.Requester{}, pagesIn("bogus:x"))
	require.Error(t, err)

	dashboard := e.Analytics()
	assert.Equal(t, 3, dashboard.TotalQueries)
	assert.Equal(t, model.QueryTypeStats{List: 2, Search: 1, Compound: 1, CacheHits: 1}, dashboard.QueryTypes)
	require.Len(t, dashboard.PopularSearches, 1)
	assert.Equal(t, "curiosity cats", dashboard.PopularSearches[0].Query)
}

func TestShareRun_CallerCancellationDoesNotFailOthers(t *testing.T) {
	e := newEngine(t, Options{})
	want := &services.QueryResults{ThingsFound: []services.ThingFound{}}

	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	run := func(ctx context.Context) (*services.QueryResults, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		<-release
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return want, nil
	}

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, _, err := e.shareRun(firstCtx, "k", run)
		firstErr <- err
	}()
	<-started

	cancelFirst()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	// The run the first caller started is still in flight; join it.
	time.AfterFunc(50*time.Millisecond, func() { close(release) })
	got, shared, err := e.shareRun(context.Background(), "k", run)
	require.NoError(t, err)
	assert.Same(t, want, got)
	assert.True(t, shared)
	assert.Equal(t, int32(1), calls.Load())
}

func TestReindex(t *testing.T) {
	f := fixtures.NewStandardForum(t)
	src := source.NewMemorySource(f.Batch())
	dataDir := t.TempDir()
	e := newEngine(t, Options{Source: src, DataDir: dataDir})

	waitForJob := func(jobID string) *model.Job {
		var job *model.Job
		require.Eventually(t, func() bool {
			var err error
			job, err = e.GetJob(jobID)
			require.NoError(t, err)
			return job.IsFinished()
		}, 5*time.Second, 10*time.Millisecond)
		return job
	}

	jobID, err := e.Reindex(context.Background(), "test")
	require.NoError(t, err)
	job := waitForJob(jobID)
	require.Equal(t, model.JobStatusCompleted, job.Status, job.Error)
	assert.Equal(t, uint64(1), job.Generation)
	assert.Equal(t, "memory", job.Source)
	assert.Equal(t, "test", job.Trigger)
	assert.Equal(t, "done", job.Progress.Message)

	status := e.Status()
	assert.True(t, status.Ready)
	assert.Equal(t, uint64(1), status.Generation)
	assert.Equal(t, 3, status.EntityCounts[string(model.KindCategory)])

	f.LikePage(f.PageOne)
	f.LikePage(f.PageOne)
	src.Set(f.Batch())
	jobID, err = e.Reindex(context.Background(), "test")
	require.NoError(t, err)
	require.Equal(t, model.JobStatusCompleted, waitForJob(jobID).Status)
	assert.Equal(t, uint64(2), e.Status().Generation)

	results, err := e.List(context.Background(), services.Requester{}, pagesIn("extid:general"))
	require.NoError(t, err)
	assert.Equal(t, "Page One", titles(t, results)[0], "new snapshot is served")

	assert.Len(t, e.ListJobs(nil), 2)
	metrics := e.JobMetrics()
	assert.Equal(t, uint64(2), metrics["snapshot_generation"])

	t.Run("restart restores the persisted snapshot", func(t *testing.T) {
		restarted := newEngine(t, Options{DataDir: dataDir})
		assert.Equal(t, uint64(2), restarted.Status().Generation)

		results, err := restarted.List(context.Background(), services.Requester{}, pagesIn("extid:general"))
		require.NoError(t, err)
		assert.Equal(t, []string{"Page One", "Page Three", "Page Two"}, titles(t, results))
		assert.Equal(t, uint64(3), restarted.NextGeneration())
	})
}

type blockingSource struct {
	release chan struct{}
	batch   *model.Batch
}

func (s *blockingSource) Name() string { return "blocking" }

func (s *blockingSource) Load(ctx context.Context) (*model.Batch, error) {
	select {
	case <-s.release:
		return s.batch, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *blockingSource) Close() error { return nil }

func TestReindex_OneAtATime(t *testing.T) {
	f := fixtures.NewStandardForum(t)
	src := &blockingSource{release: make(chan struct{}), batch: f.Batch()}
	e := newEngine(t, Options{Source: src})

	jobID, err := e.Reindex(context.Background(), "first")
	require.NoError(t, err)

	_, err = e.Reindex(context.Background(), "second")
	assert.ErrorIs(t, err, qerrors.ErrReindexInProgress)

	close(src.release)
	require.Eventually(t, func() bool {
		job, err := e.GetJob(jobID)
		return err == nil && job.Status == model.JobStatusCompleted
	}, 5*time.Second, 10*time.Millisecond)

	_, err = e.Reindex(context.Background(), "third")
	assert.NoError(t, err)
}

func TestReindex_NoSource(t *testing.T) {
	e := newEngine(t, Options{})
	_, err := e.Reindex(context.Background(), "manual")
	assert.Error(t, err)
}

func TestSwapSnapshot(t *testing.T) {
	f := fixtures.NewStandardForum(t)
	e := servingForum(t, f.ForumBuilder, Options{})

	stale, err := indexing.BuildSnapshot(context.Background(), f.Batch(), 1, "test", nil)
	require.NoError(t, err)
	assert.Error(t, e.SwapSnapshot(stale), "generations only move forward")
	assert.Error(t, e.SwapSnapshot(nil))
}

func TestIsStaff(t *testing.T) {
	f := fixtures.NewStandardForum(t)
	e := servingForum(t, f.ForumBuilder, Options{})

	assert.True(t, e.IsStaff(services.Requester{ParticipantID: f.Owen}))
	assert.False(t, e.IsStaff(services.Requester{ParticipantID: f.Maria}))
	assert.False(t, e.IsStaff(services.Requester{}))
	assert.False(t, e.IsStaff(services.Requester{ParticipantID: 99999}))
}

func TestNew_InvalidSettings(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)

	settings := config.DefaultEngineSettings()
	settings.BM25B = 2
	_, err = New(Options{Settings: settings})
	assert.ErrorContains(t, err, "bm25_b")
}
