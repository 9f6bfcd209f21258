// Package console owns the mounted dashboard views. A mount starts the pollers its view
// needs and stops all of them when it is unmounted.
package console

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"digital-delta/internal/access"
	alertapp "digital-delta/internal/alerts/application"
	assetapp "digital-delta/internal/assets/application"
	"digital-delta/internal/audit"
	"digital-delta/internal/auth"
	"digital-delta/internal/deltaapi"
	"digital-delta/internal/feed"
	"digital-delta/internal/notice"
	"digital-delta/internal/observability/metrics"
)

var (
	// ErrUnknownMount is returned for ids that are not (or no longer) mounted.
	ErrUnknownMount = errors.New("console: unknown mount")
	// ErrUnsupported is returned for actions the mounted view does not offer.
	ErrUnsupported = errors.New("console: action not available in this view")
	// ErrClosed is returned by Mount after Close.
	ErrClosed = errors.New("console: closed")
)

// Backend is the REST surface the views read and write.
type Backend interface {
	feed.AssetSource
	assetapp.Backend
	alertapp.Backend
	LiveSensors(ctx context.Context, assetID string) (deltaapi.LiveSensors, error)
	AnalyticsOverview(ctx context.Context) (deltaapi.Overview, error)
	MaintenanceForecast(ctx context.Context) (deltaapi.Forecast, error)
	ListUsers(ctx context.Context) ([]deltaapi.User, error)
	UpdateUserRole(ctx context.Context, userID, role string) error
}

// Intervals are the poll periods per view. Zero fetches once per mount.
type Intervals struct {
	Overview   time.Duration
	Monitoring time.Duration
	Sensors    time.Duration
	Assets     time.Duration
	Alerts     time.Duration
	Reports    time.Duration
	Users      time.Duration
}

// DefaultIntervals returns the dashboard refresh rates.
func DefaultIntervals() Intervals {
	return Intervals{
		Overview:   30 * time.Second,
		Monitoring: 30 * time.Second,
		Sensors:    3 * time.Second,
		Assets:     30 * time.Second,
		Alerts:     30 * time.Second,
	}
}

// Option configures a Console.
type Option func(*Console)

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) Option {
	return func(c *Console) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRecorder sets the audit recorder.
func WithRecorder(recorder *audit.Recorder) Option {
	return func(c *Console) {
		c.recorder = recorder
	}
}

// WithNotices sets the notice center.
func WithNotices(center *notice.Center) Option {
	return func(c *Console) {
		if center != nil {
			c.notices = center
		}
	}
}

// WithIntervals overrides the poll periods.
func WithIntervals(intervals Intervals) Option {
	return func(c *Console) {
		c.intervals = intervals
	}
}

// WithPollOptions passes options to every poller.
func WithPollOptions(opts ...feed.Option) Option {
	return func(c *Console) {
		c.pollOpts = append(c.pollOpts, opts...)
	}
}

// WithPolicy replaces the default role table.
func WithPolicy(policy auth.Policy) Option {
	return func(c *Console) {
		c.policy = policy
	}
}

// Console is the registry of mounted views.
type Console struct {
	backend   Backend
	policy    auth.Policy
	assets    *assetapp.Service
	alerts    *alertapp.Service
	notices   *notice.Center
	recorder  *audit.Recorder
	logger    *log.Logger
	intervals Intervals
	pollOpts  []feed.Option
	now       func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	mounts map[string]*Mount
	closed bool
}

// New constructs a console over backend.
func New(backend Backend, opts ...Option) (*Console, error) {
	if backend == nil {
		return nil, errors.New("console: nil backend")
	}
	c := &Console{
		backend:   backend,
		policy:    auth.NewDefaultPolicy(),
		notices:   notice.NewCenter(0),
		logger:    log.Default(),
		intervals: DefaultIntervals(),
		now:       time.Now,
		mounts:    make(map[string]*Mount),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	var err error
	c.assets, err = assetapp.NewService(backend, c.policy, assetapp.WithRecorder(c.recorder), assetapp.WithLogger(c.logger))
	if err != nil {
		return nil, err
	}
	c.alerts, err = alertapp.NewService(backend, c.policy, alertapp.WithRecorder(c.recorder), alertapp.WithLogger(c.logger))
	if err != nil {
		return nil, err
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	return c, nil
}

// Notices returns the notice center.
func (c *Console) Notices() *notice.Center {
	return c.notices
}

// Policy returns the role table.
func (c *Console) Policy() auth.Policy {
	return c.policy
}

// Mount starts view and registers it under a fresh id.
func (c *Console) Mount(view access.View) (*Mount, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	m := newMount(c, uuid.NewString(), view)
	c.mounts[m.ID] = m
	metrics.AddActiveMounts(string(view), 1)
	m.start()
	return m, nil
}

// Get returns the mount with id.
func (c *Console) Get(id string) (*Mount, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.mounts[id]
	if !ok {
		return nil, ErrUnknownMount
	}
	return m, nil
}

// Unmount stops the mount with id. It reports false when id was not mounted.
func (c *Console) Unmount(id string) bool {
	c.mu.Lock()
	m, ok := c.mounts[id]
	delete(c.mounts, id)
	c.mu.Unlock()
	if !ok {
		return false
	}
	m.stop()
	metrics.AddActiveMounts(string(m.View), -1)
	return true
}

// Count returns the number of live mounts.
func (c *Console) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.mounts)
}

// Close unmounts everything and refuses new mounts.
func (c *Console) Close() {
	c.mu.Lock()
	c.closed = true
	ids := make([]string, 0, len(c.mounts))
	for id := range c.mounts {
		ids = append(ids, id)
	}
	c.mu.Unlock()
	for _, id := range ids {
		c.Unmount(id)
	}
	c.cancel()
}
