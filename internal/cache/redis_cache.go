package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gcbaptista/forum-query-engine/config"
	"github.com/gcbaptista/forum-query-engine/services"
)

// entry is what is stored in Redis. The findWhat picks the element variant
// when the results are decoded again.
type entry struct {
	FindWhat services.FindWhat `json:"findWhat"`
	Results  json.RawMessage   `json:"results"`
}

// RedisCache is a Redis-backed ResponseCache.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache connects to Redis and checks the connection.
func NewRedisCache(cfg config.RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisCache{
		client: client,
		prefix: cfg.Prefix,
	}, nil
}

// BuildKey derives a cache key. The request body is hashed so keys stay short.
func BuildKey(prefix, endpoint string, generation uint64, participantID uint32, canonicalRequest []byte) string {
	sum := sha256.Sum256(canonicalRequest)
	return prefix + ":" + endpoint + ":" + strconv.FormatUint(generation, 10) + ":" +
		strconv.FormatUint(uint64(participantID), 10) + ":" + hex.EncodeToString(sum[:])
}

// Prefix returns the key prefix this cache was configured with.
func (c *RedisCache) Prefix() string {
	return c.prefix
}

func (c *RedisCache) Get(ctx context.Context, key string) (*services.QueryResults, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}
	return decodeEntry(data)
}

func (c *RedisCache) Set(ctx context.Context, key string, findWhat services.FindWhat, results *services.QueryResults, ttl time.Duration) error {
	data, err := encodeEntry(findWhat, results)
	if err != nil {
		return err
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set in redis: %w", err)
	}

	return nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func encodeEntry(findWhat services.FindWhat, results *services.QueryResults) ([]byte, error) {
	raw, err := json.Marshal(results)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cache data: %w", err)
	}
	data, err := json.Marshal(entry{FindWhat: findWhat, Results: raw})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cache data: %w", err)
	}
	return data, nil
}

func decodeEntry(data []byte) (*services.QueryResults, error) {
	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache data: %w", err)
	}
	results, err := services.DecodeQueryResults(e.FindWhat, e.Results)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache data: %w", err)
	}
	return results, nil
}
