// In file: internal/cache/cache.go

// Package cache wraps Redis for the lookups the assistant memoizes: NWS
// point metadata, embeddings and finished recommendations. A nil *Cache is
// valid and behaves as a cache that always misses, so Redis stays optional.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Cache is a thin, failure-tolerant layer over a Redis client. Redis errors
// are logged and reported as misses; they never fail the caller.
type Cache struct {
	rdb    redis.UniversalClient
	prefix string
}

// New wraps an existing client. All keys are namespaced with prefix.
func New(rdb redis.UniversalClient, prefix string) *Cache {
	if rdb == nil {
		return nil
	}
	return &Cache{rdb: rdb, prefix: prefix}
}

// Connect dials addr and pings it. An empty addr returns a nil cache.
func Connect(ctx context.Context, addr, prefix string) (*Cache, error) {
	if addr == "" {
		return nil, nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("could not connect to Redis: %w", err)
	}
	return New(rdb, prefix), nil
}

// Client exposes the underlying client for packages that need hashes.
func (c *Cache) Client() redis.UniversalClient {
	if c == nil {
		return nil
	}
	return c.rdb
}

func (c *Cache) key(k string) string { return c.prefix + k }

// Get returns the raw value for key and whether it was present.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	val, err := c.rdb.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		zap.S().Warnf("Redis GET error for %s: %v", key, err)
		return nil, false
	}
	return val, true
}

// Set stores value under key with the given TTL.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if c == nil {
		return
	}
	if err := c.rdb.Set(ctx, c.key(key), value, ttl).Err(); err != nil {
		zap.S().Warnf("Redis SET error for %s: %v", key, err)
	}
}

// GetJSON decodes the cached value for key into dst. It reports false on a
// miss or when the cached bytes do not decode.
func (c *Cache) GetJSON(ctx context.Context, key string, dst any) bool {
	raw, ok := c.Get(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		zap.S().Warnf("Error unmarshalling cached value for %s: %v", key, err)
		return false
	}
	return true
}

// SetJSON encodes value as JSON and stores it.
func (c *Cache) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		zap.S().Warnf("Error marshalling value for cache key %s: %v", key, err)
		return
	}
	c.Set(ctx, key, raw, ttl)
}

// Close releases the Redis connection.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.rdb.Close()
}
