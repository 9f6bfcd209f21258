package console

import (
	"context"
	"sync"
	"time"

	"digital-delta/internal/access"
	alerts "digital-delta/internal/alerts/domain"
	assets "digital-delta/internal/assets/domain"
	"digital-delta/internal/deltaapi"
	"digital-delta/internal/feed"
	"digital-delta/internal/mapsurface"
	"digital-delta/internal/selection"
	sensors "digital-delta/internal/sensors/domain"
)

type resource uint8

const (
	resOverview resource = 1 << iota
	resAlerts
	resAssets
	resSensors
	resForecast
	resUsers
)

// resourcesFor lists what a view polls.
func resourcesFor(view access.View) resource {
	switch view {
	case access.ViewOverview:
		return resOverview | resAlerts | resAssets
	case access.ViewMonitoring:
		return resAssets | resSensors
	case access.ViewAssets:
		return resAssets
	case access.ViewAlerts:
		return resAlerts
	case access.ViewReports:
		return resAssets | resForecast
	case access.ViewUsers:
		return resUsers
	case access.ViewSettings, access.ViewLanding, access.ViewLogin:
		return 0
	default:
		return 0
	}
}

// Mount is one live view. It is safe for concurrent use.
type Mount struct {
	ID        string
	View      access.View
	MountedAt time.Time

	console   *Console
	resources resource
	ctx       context.Context
	cancel    context.CancelFunc

	overview *feed.Feed[deltaapi.Overview]
	alerts   *feed.Feed[[]alerts.Alert]
	assets   *feed.Feed[[]assets.Asset]
	sensors  *feed.Feed[sensors.Snapshot]
	forecast *feed.Feed[deltaapi.Forecast]
	users    *feed.Feed[[]deltaapi.User]

	seed      *feed.SeedOnce
	entity    *feed.EntityPoll[sensors.Snapshot]
	selection *selection.Coordinator
	surface   *mapsurface.Surface

	handles  []*feed.Handle
	watchers sync.WaitGroup
	changes  chan struct{}
	stopOnce sync.Once
}

func newMount(c *Console, id string, view access.View) *Mount {
	ctx, cancel := context.WithCancel(c.ctx)
	m := &Mount{
		ID:        id,
		View:      view,
		MountedAt: c.now().UTC(),
		console:   c,
		resources: resourcesFor(view),
		ctx:       ctx,
		cancel:    cancel,
		overview:  feed.New[deltaapi.Overview](),
		alerts:    feed.New[[]alerts.Alert](),
		assets:    feed.New[[]assets.Asset](),
		sensors:   feed.New[sensors.Snapshot](),
		forecast:  feed.New[deltaapi.Forecast](),
		users:     feed.New[[]deltaapi.User](),
		changes:   make(chan struct{}, 1),
	}
	return m
}

func (m *Mount) has(r resource) bool {
	return m.resources&r != 0
}

func (m *Mount) interval() time.Duration {
	in := m.console.intervals
	switch m.View {
	case access.ViewOverview:
		return in.Overview
	case access.ViewMonitoring:
		return in.Monitoring
	case access.ViewAssets:
		return in.Assets
	case access.ViewAlerts:
		return in.Alerts
	case access.ViewReports:
		return in.Reports
	case access.ViewUsers:
		return in.Users
	default:
		return 0
	}
}

func (m *Mount) pollOptions() []feed.Option {
	opts := []feed.Option{feed.WithLogger(m.console.logger)}
	return append(opts, m.console.pollOpts...)
}

func (m *Mount) start() {
	c := m.console
	every := m.interval()
	opts := m.pollOptions()

	if m.has(resOverview) {
		m.watch(m.overview.Watch())
		m.handles = append(m.handles, feed.Start(m.ctx, "overview", every, c.backend.AnalyticsOverview, m.overview, opts...))
	}
	if m.has(resAlerts) {
		m.watch(m.alerts.Watch())
		m.handles = append(m.handles, feed.Start(m.ctx, "alerts", every, c.alerts.List, m.alerts, opts...))
	}
	if m.has(resSensors) {
		m.entity = feed.NewEntityPoll(m.ctx, "sensors", c.intervals.Sensors, m.fetchSensors, m.sensors, opts...)
		m.selection = selection.New(m.lookupAsset, m.entity)
		m.surface = mapsurface.NewSurface(m.selection, mapsurface.WithLogger(c.logger))
		m.watch(m.sensors.Watch())
	}
	if m.has(resAssets) {
		m.seed = feed.NewSeedOnce(c.backend, c.logger)
		ch, stop := m.assets.Watch()
		m.watchers.Add(1)
		go func() {
			defer m.watchers.Done()
			defer stop()
			for {
				select {
				case <-m.ctx.Done():
					return
				case <-ch:
					if m.surface != nil {
						list, _ := m.assets.Load()
						m.surface.SetEntities(list)
					}
					m.signal()
				}
			}
		}()
		m.handles = append(m.handles, feed.Start(m.ctx, "assets", every, m.fetchAssets, m.assets, opts...))
	}
	if m.has(resForecast) {
		m.watch(m.forecast.Watch())
		m.handles = append(m.handles, feed.Start(m.ctx, "forecast", every, c.backend.MaintenanceForecast, m.forecast, opts...))
	}
	if m.has(resUsers) {
		m.watch(m.users.Watch())
		m.handles = append(m.handles, feed.Start(m.ctx, "users", every, c.backend.ListUsers, m.users, opts...))
	}
}

func (m *Mount) fetchAssets(ctx context.Context) ([]assets.Asset, error) {
	list, err := m.seed.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	return assets.FromWireList(list, m.console.logger), nil
}

func (m *Mount) fetchSensors(ctx context.Context, id string) (sensors.Snapshot, error) {
	live, err := m.console.backend.LiveSensors(ctx, id)
	if err != nil {
		return sensors.Snapshot{}, err
	}
	// The live payload need not echo the asset id; the poll's own id is authoritative.
	snap := sensors.Decode(live, m.console.logger)
	snap.AssetID = id
	return snap, nil
}

func (m *Mount) lookupAsset(id string) (assets.Asset, bool) {
	list, _ := m.assets.Load()
	return assets.Find(list, id)
}

func (m *Mount) watch(ch <-chan struct{}, stop func()) {
	m.watchers.Add(1)
	go func() {
		defer m.watchers.Done()
		defer stop()
		for {
			select {
			case <-m.ctx.Done():
				return
			case <-ch:
				m.signal()
			}
		}
	}()
}

func (m *Mount) signal() {
	select {
	case m.changes <- struct{}{}:
	default:
	}
}

// Changes is signalled whenever any data of the mount changes. Signals coalesce.
func (m *Mount) Changes() <-chan struct{} {
	return m.changes
}

// Done is closed once the mount is stopped.
func (m *Mount) Done() <-chan struct{} {
	return m.ctx.Done()
}

// Surface returns the map adapter of a monitoring mount, or nil.
func (m *Mount) Surface() *mapsurface.Surface {
	return m.surface
}

// SensorPolling reports the asset whose sensors are being polled, or "".
func (m *Mount) SensorPolling() string {
	if m.entity == nil || !m.entity.Running() {
		return ""
	}
	return m.entity.Current()
}

// SeedClaimed reports whether the empty-collection bootstrap already ran for this mount.
func (m *Mount) SeedClaimed() bool {
	return m.seed != nil && m.seed.Seeded()
}

func (m *Mount) stop() {
	m.stopOnce.Do(func() {
		m.cancel()
		if m.entity != nil {
			m.entity.Stop()
		}
		for _, h := range m.handles {
			h.Stop()
		}
		m.watchers.Wait()
		m.overview.Close()
		m.alerts.Close()
		m.assets.Close()
		m.sensors.Close()
		m.forecast.Close()
		m.users.Close()
		if m.surface != nil {
			m.surface.Close()
		}
	})
}
