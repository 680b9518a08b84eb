// Package cache provides a Redis backed get-or-compute cache.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"dataset-notifier/internal/common/logger"
)

// entry wraps every cached value so that a computed nil or empty result is
// stored and read back as a hit, never confused with a miss.
type entry[T any] struct {
	Value T `json:"v"`
}

// Cache is a typed get-or-compute cache. Redis failures are logged and
// degrade to computing the value.
type Cache[T any] struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
	logger logger.Logger
}

func New[T any](client redis.Cmdable, prefix string, ttl time.Duration, log logger.Logger) *Cache[T] {
	return &Cache[T]{client: client, prefix: prefix, ttl: ttl, logger: log}
}

func (c *Cache[T]) key(k string) string {
	return c.prefix + k
}

// Get returns the cached value and whether it was present.
func (c *Cache[T]) Get(ctx context.Context, k string) (T, bool, error) {
	var zero T
	data, err := c.client.Get(ctx, c.key(k)).Bytes()
	if errors.Is(err, redis.Nil) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, err
	}
	var e entry[T]
	if err := json.Unmarshal(data, &e); err != nil {
		return zero, false, err
	}
	return e.Value, true, nil
}

// Put stores v under k.
func (c *Cache[T]) Put(ctx context.Context, k string, v T) error {
	data, err := json.Marshal(entry[T]{Value: v})
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(k), data, c.ttl).Err()
}

// GetOrCompute returns the cached value for k, calling compute and caching
// its result on a miss. Errors from compute are returned and not cached.
func (c *Cache[T]) GetOrCompute(ctx context.Context, k string, compute func(context.Context) (T, error)) (T, error) {
	v, ok, err := c.Get(ctx, k)
	if err != nil {
		c.logger.Warn("cache read failed", map[string]interface{}{"key": c.key(k), "error": err})
	}
	if ok {
		return v, nil
	}

	v, err = compute(ctx)
	if err != nil {
		return v, err
	}
	if err := c.Put(ctx, k, v); err != nil {
		c.logger.Warn("cache write failed", map[string]interface{}{"key": c.key(k), "error": err})
	}
	return v, nil
}

// Invalidate removes keys from the cache.
func (c *Cache[T]) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.key(k)
	}
	return c.client.Del(ctx, full...).Err()
}
