// Package cache provides a time-bounded read cache for queue listings and
// KPI counts, backed by Redis. Staleness is bounded by the TTL; every write
// to the review workflow invalidates the whole namespace so the acting
// caller never sees the record it just actioned as still pending.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultTTL bounds how stale a cached read may be.
	DefaultTTL = 30 * time.Second

	// keyPrefix namespaces review-cache keys in Redis.
	keyPrefix = "review:cache:"
)

// ErrMiss is returned when a key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Cache is a TTL-bounded JSON cache. A nil *Cache is valid and caches
// nothing, so callers don't need to special-case a disabled cache.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// New creates a cache backed by Redis. A non-positive TTL falls back to
// DefaultTTL.
func New(rdb *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{rdb: rdb, ttl: ttl}
}

// GetJSON loads the value stored under key into dest. ErrMiss is returned
// for absent keys; Redis failures degrade to a miss as well, since the
// caller can always fall through to the store.
func (c *Cache) GetJSON(ctx context.Context, key string, dest any) error {
	if c == nil || c.rdb == nil {
		return ErrMiss
	}
	raw, err := c.rdb.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		return ErrMiss
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return ErrMiss
	}
	return nil
}

// SetJSON stores value under key with the configured TTL.
func (c *Cache) SetJSON(ctx context.Context, key string, value any) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}
	if err := c.rdb.Set(ctx, keyPrefix+key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache SET: %w", err)
	}
	return nil
}

// Invalidate drops every key in the review-cache namespace. Called after
// any successful write so subsequent reads are fresh.
func (c *Cache) Invalidate(ctx context.Context) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	iter := c.rdb.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()
	keys := []string{}
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache SCAN: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache DEL: %w", err)
	}
	return nil
}
