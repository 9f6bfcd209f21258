// Package feed polls backend resources on a fixed schedule and keeps the latest result.
//
// Overlapping fetches of one resource are allowed. Whichever completes last is stored, with
// no ordering token: a slow response can replace a newer one until the next tick. Every
// poller is owned by a Handle; once Handle.Stop returns no further fetch starts and nothing
// more is stored.
package feed

import (
	"sync"
	"time"
)

// Feed holds the latest snapshot of one resource.
type Feed[T any] struct {
	mu       sync.RWMutex
	value    T
	has      bool
	updated  time.Time
	version  uint64
	closed   bool
	watchers map[chan struct{}]struct{}
}

// New constructs an empty feed.
func New[T any]() *Feed[T] {
	return &Feed[T]{watchers: make(map[chan struct{}]struct{})}
}

// Store replaces the snapshot. It reports false once the feed is closed.
func (f *Feed[T]) Store(value T) bool {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return false
	}
	f.value = value
	f.has = true
	f.updated = time.Now()
	f.version++
	f.notifyLocked()
	f.mu.Unlock()
	return true
}

// Reset forgets the snapshot.
func (f *Feed[T]) Reset() {
	f.mu.Lock()
	var zero T
	f.value = zero
	f.has = false
	f.version++
	f.notifyLocked()
	f.mu.Unlock()
}

// Load returns the snapshot and whether one was stored.
func (f *Feed[T]) Load() (T, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.value, f.has
}

// Version increases on every Store and Reset.
func (f *Feed[T]) Version() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.version
}

// UpdatedAt is the time of the last Store.
func (f *Feed[T]) UpdatedAt() time.Time {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.updated
}

// Watch returns a channel signalled after changes. Signals coalesce.
func (f *Feed[T]) Watch() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	f.mu.Lock()
	f.watchers[ch] = struct{}{}
	f.mu.Unlock()
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.watchers, ch)
			f.mu.Unlock()
		})
	}
}

// Close rejects further stores.
func (f *Feed[T]) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

func (f *Feed[T]) notifyLocked() {
	for ch := range f.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
