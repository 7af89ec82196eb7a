// Copyright (c) 2025 Lodestar Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package queue

import (
	"sync"

	"github.com/lodestar-io/lodestar/concurrent"
)

// partitionLock serializes processing within a single partition while
// preserving strict receive order.
//
// A plain mutex is not enough here: Go mutex wakeups are not FIFO, so two
// queued tasks could swap places. Instead every task reserves a slot by
// chaining onto the previous task's done channel. Slots are reserved on
// the single Receive caller goroutine, so the chain order is exactly the
// receive order.
type partitionLock struct {
	mu   sync.Mutex
	tail chan struct{}
}

// reserve claims the next processing slot for this partition. The caller
// must wait for prev to close (nil means the slot is immediately free) and
// must close done once its work is finished.
func (l *partitionLock) reserve() (prev <-chan struct{}, done chan struct{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	done = make(chan struct{})
	if l.tail != nil {
		prev = l.tail
	}
	l.tail = done
	return prev, done
}

// lockRegistry maps partitions to their serialization primitive. Locks are
// created lazily on the first record for a partition and live for the
// lifetime of the engine.
type lockRegistry struct {
	locks *concurrent.Cache[int32, *partitionLock]
}

func newLockRegistry() *lockRegistry {
	return &lockRegistry{
		locks: concurrent.NewCache[int32, *partitionLock](),
	}
}

func (r *lockRegistry) get(partition int32) *partitionLock {
	// The initializer cannot fail so the error is always nil.
	l, _ := r.locks.GetOr(partition, func() (*partitionLock, error) {
		return &partitionLock{}, nil
	})
	return l
}
