// Package engine answers List and Search requests against the current
// snapshot and keeps that snapshot fresh.
package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/gcbaptista/forum-query-engine/config"
	"github.com/gcbaptista/forum-query-engine/index"
	"github.com/gcbaptista/forum-query-engine/internal/analytics"
	"github.com/gcbaptista/forum-query-engine/internal/cache"
	"github.com/gcbaptista/forum-query-engine/internal/jobs"
	"github.com/gcbaptista/forum-query-engine/internal/logging"
	"github.com/gcbaptista/forum-query-engine/internal/query"
	"github.com/gcbaptista/forum-query-engine/internal/source"
)

const (
	defaultJobWorkers = 2
	analyticsFile     = "analytics.gob"
)

// Options configures an Engine. Only Settings is required.
type Options struct {
	Settings    *config.EngineSettings
	Source      source.Source
	Cache       cache.ResponseCache
	CachePrefix string
	DataDir     string // Empty disables snapshot persistence
	JobWorkers  int
}

// Engine serves queries from an immutable snapshot swapped atomically by
// reindex jobs. It implements services.QueryEngine.
type Engine struct {
	settings   *config.EngineSettings
	normalizer *query.Normalizer
	source     source.Source
	dataDir    string

	snapshot       atomic.Pointer[index.Snapshot]
	lastGeneration atomic.Uint64

	cache        cache.ResponseCache
	cacheEnabled bool
	cachePrefix  string
	cacheTTL     time.Duration
	flight       singleflight.Group

	jobManager *jobs.Manager
	reindexMu  sync.Mutex

	analytics *analytics.Service
}

// New creates an engine. If a persisted snapshot exists in DataDir it is
// served immediately; otherwise queries fail with IndexUnavailable until the
// first reindex completes.
func New(opts Options) (*Engine, error) {
	if opts.Settings == nil {
		return nil, fmt.Errorf("engine settings cannot be nil")
	}
	if problems := opts.Settings.Validate(); len(problems) > 0 {
		return nil, fmt.Errorf("invalid engine settings: %v", problems)
	}

	responseCache := opts.Cache
	if responseCache == nil {
		responseCache = cache.NoopCache{}
	}
	_, noop := responseCache.(cache.NoopCache)

	workers := opts.JobWorkers
	if workers <= 0 {
		workers = defaultJobWorkers
	}

	e := &Engine{
		settings:     opts.Settings,
		normalizer:   query.NewNormalizer(opts.Settings),
		source:       opts.Source,
		dataDir:      opts.DataDir,
		cache:        responseCache,
		cacheEnabled: !noop,
		cachePrefix:  opts.CachePrefix,
		cacheTTL:     time.Duration(opts.Settings.CacheTTLSeconds) * time.Second,
		jobManager:   jobs.NewManager(workers),
	}
	e.jobManager.Start()

	analyticsPath := ""
	if e.dataDir != "" {
		analyticsPath = filepath.Join(e.dataDir, analyticsFile)
	}
	e.analytics = analytics.NewService(e, analyticsPath)

	if e.dataDir != "" {
		if err := e.loadSnapshotFromDisk(); err != nil {
			logging.L().Warn().Err(err).Str("data_dir", e.dataDir).Msg("persisted snapshot not loaded")
		}
	}
	return e, nil
}

// Close stops background jobs, saves analytics and releases the cache and source.
func (e *Engine) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		e.jobManager.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := e.analytics.Save(); err != nil {
		logging.L().Warn().Err(err).Msg("analytics not saved")
	}
	if err := e.cache.Close(); err != nil {
		return fmt.Errorf("failed to close cache: %w", err)
	}
	if e.source != nil {
		if err := e.source.Close(); err != nil {
			return fmt.Errorf("failed to close source: %w", err)
		}
	}
	return nil
}

// Settings returns the engine settings.
func (e *Engine) Settings() config.EngineSettings {
	return *e.settings
}
