package feed

import (
	"sync"
	"time"
)

// Ticker is the schedule driving a poller.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory builds a ticker for an interval.
type TickerFactory func(interval time.Duration) Ticker

type systemTicker struct {
	t *time.Ticker
}

func (s systemTicker) C() <-chan time.Time { return s.t.C }
func (s systemTicker) Stop()               { s.t.Stop() }

// SystemTicker is the wall-clock ticker. Slow receivers drop ticks rather than queue them.
func SystemTicker(interval time.Duration) Ticker {
	return systemTicker{t: time.NewTicker(interval)}
}

// ManualTicker fires only when Tick is called. Used by tests.
type ManualTicker struct {
	ch chan time.Time

	mu      sync.Mutex
	stopped bool
	built   int
}

// NewManualTicker constructs a manual ticker.
func NewManualTicker() *ManualTicker {
	return &ManualTicker{ch: make(chan time.Time, 16)}
}

// Factory returns a TickerFactory handing out this ticker.
func (m *ManualTicker) Factory() TickerFactory {
	return func(time.Duration) Ticker {
		m.mu.Lock()
		m.built++
		m.stopped = false
		m.mu.Unlock()
		return m
	}
}

// Tick fires once unless the ticker was stopped.
func (m *ManualTicker) Tick() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return
	}
	select {
	case m.ch <- time.Now():
	default:
	}
}

// Stopped reports whether the owning poller stopped the ticker.
func (m *ManualTicker) Stopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped
}

// C implements Ticker.
func (m *ManualTicker) C() <-chan time.Time { return m.ch }

// Stop implements Ticker.
func (m *ManualTicker) Stop() {
	m.mu.Lock()
	m.stopped = true
	m.mu.Unlock()
}
