package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"amlcore/internal/aml/screening/metrics"
	"amlcore/internal/aml/screening/models"
	"amlcore/pkg/platform/sentinel"
)

// keyPrefix namespaces screening entries in a shared Redis.
const keyPrefix = "aml:screening:"

// RedisCache stores screening results as JSON with a Redis-side TTL.
type RedisCache struct {
	client  *redis.Client
	metrics *metrics.Metrics
}

// NewRedisCache creates a Redis-backed cache.
func NewRedisCache(client *redis.Client, m *metrics.Metrics) *RedisCache {
	return &RedisCache{client: client, metrics: m}
}

// Get returns sentinel.ErrNotFound on a miss. Connection failures are wrapped
// with sentinel.ErrUnavailable so callers can fall back to a live screen.
func (c *RedisCache) Get(ctx context.Context, key string) (*models.ScreeningResult, error) {
	start := time.Now()
	data, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	c.metrics.ObserveCacheLatency("get", time.Since(start))
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w: %w", key, sentinel.ErrUnavailable, err)
	}

	var result models.ScreeningResult
	if err := json.Unmarshal(data, &result); err != nil {
		// A corrupt entry is treated as a miss and removed.
		_ = c.client.Del(ctx, keyPrefix+key).Err()
		return nil, sentinel.ErrNotFound
	}
	return &result, nil
}

// Set writes result with the given TTL.
func (c *RedisCache) Set(ctx context.Context, key string, result *models.ScreeningResult, ttl time.Duration) error {
	if result == nil {
		return nil
	}
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal screening result: %w", err)
	}
	start := time.Now()
	err = c.client.Set(ctx, keyPrefix+key, data, ttl).Err()
	c.metrics.ObserveCacheLatency("set", time.Since(start))
	if err != nil {
		return fmt.Errorf("redis set %s: %w: %w", key, sentinel.ErrUnavailable, err)
	}
	return nil
}

// Delete removes keys.
func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = keyPrefix + k
	}
	if err := c.client.Del(ctx, prefixed...).Err(); err != nil {
		return fmt.Errorf("redis del: %w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}
