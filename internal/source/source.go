// Package source loads complete forum content batches for indexing.
package source

import (
	"context"
	"fmt"
	"sync"

	"github.com/gcbaptista/forum-query-engine/config"
	"github.com/gcbaptista/forum-query-engine/model"
)

// Source produces a full dump of the forum. Each Load returns a fresh batch.
type Source interface {
	Name() string
	Load(ctx context.Context) (*model.Batch, error)
	Close() error
}

// New opens the source selected by cfg.Kind.
func New(ctx context.Context, cfg config.SourceConfig) (Source, error) {
	switch cfg.Kind {
	case "file":
		return NewFileSource(cfg.FilePath), nil
	case "postgres":
		return NewPostgresSource(ctx, cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("unknown source kind '%s'", cfg.Kind)
	}
}

// MemorySource serves a batch held in memory. Set replaces it.
type MemorySource struct {
	mu    sync.RWMutex
	batch *model.Batch
}

func NewMemorySource(batch *model.Batch) *MemorySource {
	return &MemorySource{batch: batch}
}

func (s *MemorySource) Name() string { return "memory" }

// Set replaces the batch returned by later loads.
func (s *MemorySource) Set(batch *model.Batch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batch = batch
}

func (s *MemorySource) Load(ctx context.Context) (*model.Batch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.batch == nil {
		return nil, fmt.Errorf("memory source holds no batch")
	}
	out := *s.batch
	return &out, nil
}

func (s *MemorySource) Close() error { return nil }
