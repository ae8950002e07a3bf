// Package lock provides per-key mutual exclusion used to serialize mutating
// operations on a single aggregate (one material, one visit). The caller
// acquires the key, runs its transaction, and releases. Two implementations
// exist: a process-local one for single-instance deployments and tests, and a
// Redis-backed one for multi-instance deployments.
package lock

import (
	"context"
	"sync"
)

// KeyedLocker serializes critical sections per key.
type KeyedLocker interface {
	// Acquire blocks until the key's lock is held or ctx is done.
	// The returned release function must be called exactly once.
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// Local is an in-process KeyedLocker backed by a map of mutexes.
// Mutex entries are never evicted; the key space (aggregate IDs touched by
// this process) is bounded in practice.
type Local struct {
	mus sync.Map // map[string]*sync.Mutex
}

// NewLocal creates a process-local keyed locker.
func NewLocal() *Local {
	return &Local{}
}

// Acquire locks the mutex for key. The context is checked before blocking;
// local mutex waits are expected to be short-lived.
func (l *Local) Acquire(ctx context.Context, key string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	actual, _ := l.mus.LoadOrStore(key, &sync.Mutex{})
	mu := actual.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock, nil
}

// Compile-time check that Local implements KeyedLocker.
var _ KeyedLocker = (*Local)(nil)
