package feed

import (
	"context"
	"log"
	"sync"
	"time"

	"digital-delta/internal/observability/metrics"
)

// FetchFunc reads one snapshot.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Handle owns a running poller.
type Handle struct {
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
	done   chan struct{}
}

// Stop cancels the poller and waits for its loop and every in-flight fetch. Safe to call
// more than once and on a nil handle.
func (h *Handle) Stop() {
	if h == nil {
		return
	}
	h.once.Do(func() {
		h.cancel()
		h.wg.Wait()
		close(h.done)
	})
}

// Done is closed once Stop has returned.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

type options struct {
	logger    *log.Logger
	newTicker TickerFactory
	timeout   time.Duration
}

// Option customizes a poller.
type Option func(*options)

// WithLogger sets the logger used for failed ticks.
func WithLogger(logger *log.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithTicker replaces the wall-clock schedule.
func WithTicker(factory TickerFactory) Option {
	return func(o *options) {
		if factory != nil {
			o.newTicker = factory
		}
	}
}

// WithFetchTimeout bounds each fetch.
func WithFetchTimeout(timeout time.Duration) Option {
	return func(o *options) {
		if timeout > 0 {
			o.timeout = timeout
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: log.Default(), newTicker: SystemTicker}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Start fetches immediately and then on every tick of interval, storing each successful
// result in dst. interval <= 0 fetches once. A failed tick is logged and keeps the previous
// snapshot. The poller stops when ctx ends or the handle is stopped.
func Start[T any](ctx context.Context, resource string, interval time.Duration, fetch FetchFunc[T], dst *Feed[T], opts ...Option) *Handle {
	o := buildOptions(opts)
	pollCtx, cancel := context.WithCancel(ctx)
	h := &Handle{cancel: cancel, done: make(chan struct{})}

	tick := func() {
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			runFetch(pollCtx, resource, fetch, dst, o)
		}()
	}

	if interval <= 0 {
		tick()
		return h
	}
	ticker := o.newTicker(interval)
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer ticker.Stop()
		tick()
		for {
			select {
			case <-pollCtx.Done():
				return
			case <-ticker.C():
				if pollCtx.Err() != nil {
					return
				}
				tick()
			}
		}
	}()
	return h
}

func runFetch[T any](ctx context.Context, resource string, fetch FetchFunc[T], dst *Feed[T], o options) {
	fetchCtx := ctx
	if o.timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}
	started := time.Now()
	value, err := fetch(fetchCtx)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		metrics.ObservePoll(resource, metrics.ResultError, time.Since(started))
		o.logger.Printf("poll %s error: %v", resource, err)
		return
	}
	metrics.ObservePoll(resource, metrics.ResultSuccess, time.Since(started))
	dst.Store(value)
}
