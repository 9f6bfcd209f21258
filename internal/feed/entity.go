package feed

import (
	"context"
	"sync"
	"time"
)

// EntityFetchFunc reads one snapshot of the entity with id.
type EntityFetchFunc[T any] func(ctx context.Context, id string) (T, error)

// EntityPoll polls a sub-resource of one entity at a time. Changing the entity stops the
// previous poller before the next one starts; clearing it leaves nothing running.
type EntityPoll[T any] struct {
	parent   context.Context
	resource string
	interval time.Duration
	fetch    EntityFetchFunc[T]
	dst      *Feed[T]
	opts     []Option

	mu      sync.Mutex
	current string
	handle  *Handle
	stopped bool
}

// NewEntityPoll constructs an idle entity poll bound to parent.
func NewEntityPoll[T any](parent context.Context, resource string, interval time.Duration, fetch EntityFetchFunc[T], dst *Feed[T], opts ...Option) *EntityPoll[T] {
	return &EntityPoll[T]{
		parent:   parent,
		resource: resource,
		interval: interval,
		fetch:    fetch,
		dst:      dst,
		opts:     opts,
	}
}

// Set switches polling to id. An empty id stops polling. Setting the current id again
// keeps the running poller.
func (p *EntityPoll[T]) Set(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	if id == p.current && (id == "" || p.handle != nil) {
		return
	}
	p.handle.Stop()
	p.handle = nil
	p.current = id
	p.dst.Reset()
	if id == "" {
		return
	}
	fetch := p.fetch
	p.handle = Start(p.parent, p.resource, p.interval, func(ctx context.Context) (T, error) {
		return fetch(ctx, id)
	}, p.dst, p.opts...)
}

// Current returns the polled entity id, or "".
func (p *EntityPoll[T]) Current() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Running reports whether a poller is active.
func (p *EntityPoll[T]) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.handle != nil
}

// Stop ends polling for good.
func (p *EntityPoll[T]) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped = true
	p.handle.Stop()
	p.handle = nil
	p.current = ""
}
