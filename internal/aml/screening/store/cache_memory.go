package store

import (
	"context"
	"sync"
	"time"

	"amlcore/internal/aml/screening/models"
	"amlcore/pkg/platform/sentinel"
)

type cachedResult struct {
	result    *models.ScreeningResult
	expiresAt time.Time
}

// InMemoryCache is a process-local screening result cache with TTL expiry.
type InMemoryCache struct {
	mu      sync.RWMutex
	entries map[string]cachedResult
	now     func() time.Time
}

// NewInMemoryCache creates an empty cache.
func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{entries: make(map[string]cachedResult), now: time.Now}
}

// WithClock overrides the expiry clock, for tests.
func (c *InMemoryCache) WithClock(now func() time.Time) *InMemoryCache {
	c.now = now
	return c
}

// Get returns a copy of the cached result. Returns sentinel.ErrNotFound on a
// miss or when the entry has outlived its TTL.
func (c *InMemoryCache) Get(_ context.Context, key string) (*models.ScreeningResult, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	if !ok || !c.now().Before(entry.expiresAt) {
		return nil, sentinel.ErrNotFound
	}
	return entry.result.Clone(), nil
}

// Set stores a copy of result for ttl. A nil result is a no-op.
func (c *InMemoryCache) Set(_ context.Context, key string, result *models.ScreeningResult, ttl time.Duration) error {
	if result == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cachedResult{result: result.Clone(), expiresAt: c.now().Add(ttl)}
	return nil
}

// Delete removes keys; missing keys are ignored.
func (c *InMemoryCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
	}
	return nil
}
