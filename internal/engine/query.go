package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gcbaptista/forum-query-engine/index"
	"github.com/gcbaptista/forum-query-engine/internal/assembler"
	"github.com/gcbaptista/forum-query-engine/internal/cache"
	"github.com/gcbaptista/forum-query-engine/internal/cursor"
	"github.com/gcbaptista/forum-query-engine/internal/listing"
	"github.com/gcbaptista/forum-query-engine/internal/logging"
	"github.com/gcbaptista/forum-query-engine/internal/query"
	"github.com/gcbaptista/forum-query-engine/internal/search"
	"github.com/gcbaptista/forum-query-engine/internal/visibility"
	"github.com/gcbaptista/forum-query-engine/model"
	"github.com/gcbaptista/forum-query-engine/services"
)

const (
	endpointList   = "list"
	endpointSearch = "search"

	sharedRunTimeout = 30 * time.Second
)

// executor is satisfied by the list and search executors.
type executor interface {
	Execute(ctx context.Context, n *query.Normalized) (*query.Result, error)
}

// List answers a structured lookup.
func (e *Engine) List(ctx context.Context, requester services.Requester, req services.ListQueryApiRequest) (*services.QueryResults, error) {
	start := time.Now()
	snap, err := e.current()
	if err != nil {
		return nil, err
	}
	req.Pretty = false // presentation only
	results, cacheHit, err := e.cached(ctx, snap, endpointList, requester, req, func() (*query.Normalized, error) {
		return e.normalizer.NormalizeList(&req, snap.Store)
	})
	if err != nil {
		return nil, err
	}

	event := model.QueryEvent{
		Endpoint:  endpointList,
		Continued: req.ContinueAtScrollCursor != "",
		CacheHit:  cacheHit,
	}
	if req.ListQuery != nil {
		event.FindWhat = string(req.ListQuery.FindWhat)
		event.Clauses = 1
	}
	e.track(event, start, results)
	return results, nil
}

// Search answers a free-text query.
func (e *Engine) Search(ctx context.Context, requester services.Requester, req services.SearchQueryApiRequest) (*services.QueryResults, error) {
	start := time.Now()
	snap, err := e.current()
	if err != nil {
		return nil, err
	}
	req.Pretty = false
	results, cacheHit, err := e.cached(ctx, snap, endpointSearch, requester, req, func() (*query.Normalized, error) {
		return e.normalizer.NormalizeSearch(&req, snap.Store)
	})
	if err != nil {
		return nil, err
	}

	event := model.QueryEvent{
		Endpoint:  endpointSearch,
		Clauses:   len(req.SearchQuery),
		Continued: req.ContinueAtScrollCursor != "",
		CacheHit:  cacheHit,
	}
	if len(req.SearchQuery) > 0 {
		event.FindWhat = string(services.FindPages)
		if fw := req.SearchQuery[0].FindWhat; fw != "" {
			event.FindWhat = string(fw)
		}
		texts := make([]string, 0, len(req.SearchQuery))
		for _, clause := range req.SearchQuery {
			if t := strings.TrimSpace(clause.Freetext); t != "" {
				texts = append(texts, t)
			}
		}
		event.Freetext = strings.Join(texts, " ")
	}
	e.track(event, start, results)
	return results, nil
}

// track records an answered query for the analytics dashboard.
func (e *Engine) track(event model.QueryEvent, start time.Time, results *services.QueryResults) {
	event.ResponseTime = time.Since(start)
	event.ResultCount = len(results.ThingsFound)
	e.analytics.TrackQueryEvent(event)
}

// Analytics summarizes recent queries.
func (e *Engine) Analytics() model.AnalyticsDashboard {
	return e.analytics.GetDashboardData()
}

// cached consults the response cache, then collapses identical concurrent
// requests into one pipeline run. Cache failures never fail a query.
func (e *Engine) cached(ctx context.Context, snap *index.Snapshot, endpoint string, requester services.Requester,
	canonical interface{}, normalize func() (*query.Normalized, error)) (*services.QueryResults, bool, error) {
	logger := logging.Ctx(ctx)

	body, err := json.Marshal(canonical)
	if err != nil {
		return nil, false, fmt.Errorf("failed to encode request: %w", err)
	}
	key := cache.BuildKey(e.cachePrefix, endpoint, snap.Generation, requester.ParticipantID, body)

	if e.cacheEnabled {
		results, err := e.cache.Get(ctx, key)
		if err == nil {
			logger.Debug().Str(logging.FieldEndpoint, endpoint).Bool(logging.FieldCacheHit, true).Msg("query served from cache")
			return results, true, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			logger.Warn().Err(err).Msg("cache get failed")
		}
	}

	results, shared, err := e.shareRun(ctx, key, func(runCtx context.Context) (*services.QueryResults, error) {
		n, err := normalize()
		if err != nil {
			return nil, err
		}
		results, err := e.run(runCtx, snap, requester, n)
		if err != nil {
			return nil, err
		}
		if e.cacheEnabled {
			e.asyncCacheSet(key, n.FindWhat(), results)
		}
		return results, nil
	})
	if err != nil {
		return nil, false, err
	}
	if shared {
		logger.Debug().Str(logging.FieldEndpoint, endpoint).Msg("query shared with a concurrent identical request")
	}
	return results, false, nil
}

// shareRun runs fn once for all concurrent callers of key. fn gets a context
// detached from any single caller, so one caller going away does not fail the
// others; each caller still stops waiting when its own ctx is done.
func (e *Engine) shareRun(ctx context.Context, key string,
	fn func(ctx context.Context) (*services.QueryResults, error)) (*services.QueryResults, bool, error) {
	ch := e.flight.DoChan(key, func() (interface{}, error) {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedRunTimeout)
		defer cancel()
		return fn(runCtx)
	})

	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Shared, r.Err
		}
		return r.Val.(*services.QueryResults), r.Shared, nil
	}
}

// run narrows, executes and assembles one normalized query.
func (e *Engine) run(ctx context.Context, snap *index.Snapshot, requester services.Requester, n *query.Normalized) (*services.QueryResults, error) {
	start := time.Now()

	viewer := visibility.NewViewer(requester, snap.Store)
	visibility.Apply(n, viewer, snap.Store)

	var exec executor
	var err error
	switch n.Mode {
	case cursor.ModeList:
		exec, err = listing.NewExecutor(snap)
	case cursor.ModeSearch:
		exec, err = search.NewExecutor(snap, e.settings)
	default:
		err = fmt.Errorf("unknown query mode '%s'", n.Mode)
	}
	if err != nil {
		return nil, err
	}

	result, err := exec.Execute(ctx, n)
	if err != nil {
		return nil, err
	}

	things, err := assembler.New(snap, e.settings).Assemble(ctx, n.FindWhat(), result.Hits)
	if err != nil {
		return nil, err
	}

	out := &services.QueryResults{ThingsFound: things}
	if result.Truncated {
		token, err := cursor.Encode(cursor.Cursor{
			Mode:       n.Mode,
			Generation: snap.Generation,
			SortOrder:  string(n.SortOrder),
			Query:      n.Query,
			After:      result.Last(),
		})
		if err != nil {
			return nil, err
		}
		out.ScrollCursor = token
	}

	logging.Ctx(ctx).Debug().
		Str(logging.FieldEndpoint, string(n.Mode)).
		Str(logging.FieldFindWhat, string(n.FindWhat())).
		Int("clauses", len(n.Clauses)).
		Uint64(logging.FieldGeneration, snap.Generation).
		Int(logging.FieldResults, len(things)).
		Bool("truncated", result.Truncated).
		Int64("took_ms", time.Since(start).Milliseconds()).
		Msg("query executed")
	return out, nil
}

// asyncCacheSet stores a response without delaying the caller.
func (e *Engine) asyncCacheSet(key string, findWhat services.FindWhat, results *services.QueryResults) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := e.cache.Set(ctx, key, findWhat, results, e.cacheTTL); err != nil {
			logging.L().Warn().Err(err).Msg("cache set failed")
		}
	}()
}
