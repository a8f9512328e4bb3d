package tx

import (
	"context"
	"sync"
	"time"

	dErrors "amlcore/pkg/domain-errors"
)

// numShards spreads keys across independent mutexes so unrelated identities
// and reports rarely contend.
const numShards = 128

// defaultLockTimeout bounds a critical section when the caller set no deadline.
const defaultLockTimeout = 5 * time.Second

// ShardedLocker serializes work per key. Two calls with the same key never
// overlap; calls with different keys only wait on each other on a hash
// collision.
type ShardedLocker struct {
	shards  [numShards]sync.Mutex
	timeout time.Duration
}

// NewShardedLocker creates a locker. A zero timeout uses the default.
func NewShardedLocker(timeout time.Duration) *ShardedLocker {
	if timeout <= 0 {
		timeout = defaultLockTimeout
	}
	return &ShardedLocker{timeout: timeout}
}

// WithLock runs fn while holding the shard for key.
func (l *ShardedLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "operation aborted: context cancelled")
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	shard := &l.shards[ShardFor(key)]
	shard.Lock()
	defer shard.Unlock()

	// Check again after acquiring lock
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "operation aborted: context cancelled")
	}
	return fn(ctx)
}

// ShardFor returns the shard index for key.
func ShardFor(key string) int {
	return int(fnv1a(key) % numShards)
}

// fnv1a gives better distribution than simple multiply-add.
func fnv1a(s string) uint32 {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	h := uint32(fnvOffset)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime
	}
	return h
}
