//go:build integration

// Package containers starts the backing services integration suites run
// against. Each container is started once per test binary and shared;
// Ryuk removes them when the process exits.
package containers

import (
	"context"
	"sync"
	"testing"
	"time"
)

const startTimeout = 3 * time.Minute

// Manager lazily starts and caches shared containers.
type Manager struct {
	mu       sync.Mutex
	postgres *PostgresContainer
	redis    *RedisContainer
	redpanda *RedpandaContainer
}

var (
	managerOnce sync.Once
	manager     *Manager
)

// GetManager returns the process-wide manager.
func GetManager() *Manager {
	managerOnce.Do(func() {
		manager = &Manager{}
	})
	return manager
}

// Postgres returns the shared, migrated Postgres container.
func (m *Manager) Postgres(t *testing.T) *PostgresContainer {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.postgres == nil {
		ctx, cancel := context.WithTimeout(context.Background(), startTimeout)
		defer cancel()
		c, err := startPostgres(ctx)
		if err != nil {
			t.Fatalf("failed to start postgres container: %v", err)
		}
		m.postgres = c
	}
	return m.postgres
}

// Redis returns the shared Redis container.
func (m *Manager) Redis(t *testing.T) *RedisContainer {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.redis == nil {
		ctx, cancel := context.WithTimeout(context.Background(), startTimeout)
		defer cancel()
		c, err := startRedis(ctx)
		if err != nil {
			t.Fatalf("failed to start redis container: %v", err)
		}
		m.redis = c
	}
	return m.redis
}

// Redpanda returns the shared Redpanda container.
func (m *Manager) Redpanda(t *testing.T) *RedpandaContainer {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.redpanda == nil {
		ctx, cancel := context.WithTimeout(context.Background(), startTimeout)
		defer cancel()
		c, err := startRedpanda(ctx)
		if err != nil {
			t.Fatalf("failed to start redpanda container: %v", err)
		}
		m.redpanda = c
	}
	return m.redpanda
}
