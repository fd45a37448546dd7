// Package cache stores assembled query responses keyed by snapshot
// generation, requester and canonical request.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/gcbaptista/forum-query-engine/services"
)

// ErrCacheMiss is returned by Get when no entry exists.
var ErrCacheMiss = errors.New("cache miss")

// ResponseCache defines the interface for caching query responses.
type ResponseCache interface {
	Get(ctx context.Context, key string) (*services.QueryResults, error)
	Set(ctx context.Context, key string, findWhat services.FindWhat, results *services.QueryResults, ttl time.Duration) error
	Close() error
}

// NoopCache never stores anything; every Get misses.
type NoopCache struct{}

func (NoopCache) Get(context.Context, string) (*services.QueryResults, error) {
	return nil, ErrCacheMiss
}

func (NoopCache) Set(context.Context, string, services.FindWhat, *services.QueryResults, time.Duration) error {
	return nil
}

func (NoopCache) Close() error { return nil }
