package console

import (
	"time"

	"digital-delta/internal/access"
	alerts "digital-delta/internal/alerts/domain"
	assets "digital-delta/internal/assets/domain"
	"digital-delta/internal/auth"
	"digital-delta/internal/deltaapi"
	"digital-delta/internal/mapsurface"
	"digital-delta/internal/reports"
	"digital-delta/internal/selection"
	sensors "digital-delta/internal/sensors/domain"
	"digital-delta/internal/session"
)

// overviewLimit is how many alerts and assets the overview lists.
const overviewLimit = 5

// Query holds the local filters of a snapshot. Empty or "all" means no filter.
type Query struct {
	Status   string
	Severity string
	Type     string
	Search   string
}

// Snapshot is the rendered state of a mount. Exactly one view section is set.
type Snapshot struct {
	MountID    string           `json:"mount_id"`
	View       access.View      `json:"view"`
	Overview   *OverviewView    `json:"overview,omitempty"`
	Monitoring *MonitoringView  `json:"monitoring,omitempty"`
	Assets     *AssetsView      `json:"assets,omitempty"`
	Alerts     *AlertsView      `json:"alerts,omitempty"`
	Reports    *reports.Summary `json:"reports,omitempty"`
	Users      *UsersView       `json:"users,omitempty"`
	Settings   *SettingsView    `json:"settings,omitempty"`
}

// OverviewView is the dashboard landing page.
type OverviewView struct {
	Loading      bool               `json:"loading"`
	Stats        *deltaapi.Overview `json:"stats,omitempty"`
	ActiveAlerts []alerts.Alert     `json:"active_alerts"`
	Assets       []assets.Asset     `json:"assets"`
}

// MonitoringView is the globe page with the detail panel.
type MonitoringView struct {
	Loading   bool                `json:"loading"`
	Assets    []assets.Asset      `json:"assets"`
	Markers   []mapsurface.Marker `json:"markers"`
	Selection selection.State     `json:"selection"`
	Sensors   []sensors.Reading   `json:"sensors,omitempty"`
	SensorsAt *time.Time          `json:"sensors_at,omitempty"`
}

// AssetsView is the CRUD table.
type AssetsView struct {
	Loading  bool           `json:"loading"`
	Assets   []assets.Asset `json:"assets"`
	Total    int            `json:"total"`
	CanWrite bool           `json:"can_write"`
}

// AlertsView is the alert list with counters.
type AlertsView struct {
	Loading    bool           `json:"loading"`
	Alerts     []alerts.Alert `json:"alerts"`
	Counts     alerts.Counts  `json:"counts"`
	CanResolve bool           `json:"can_resolve"`
}

// UsersView is the admin user table.
type UsersView struct {
	Loading bool              `json:"loading"`
	Users   []deltaapi.User   `json:"users"`
	Total   int               `json:"total"`
	Roles   map[auth.Role]int `json:"roles"`
}

// SettingsView shows the signed-in identity.
type SettingsView struct {
	User      *deltaapi.User `json:"user"`
	RoleLabel string         `json:"role_label"`
}

// Snapshot renders the mount for the session in state, applying query locally.
func (m *Mount) Snapshot(query Query, state session.State) Snapshot {
	out := Snapshot{MountID: m.ID, View: m.View}
	policy := m.console.policy
	switch m.View {
	case access.ViewOverview:
		stats, hasStats := m.overview.Load()
		alertList, hasAlerts := m.alerts.Load()
		assetList, hasAssets := m.assets.Load()
		view := &OverviewView{
			Loading:      !hasStats || !hasAlerts || !hasAssets,
			ActiveAlerts: alerts.Active(alertList, overviewLimit),
			Assets:       firstAssets(assetList, overviewLimit),
		}
		if hasStats {
			view.Stats = &stats
		}
		out.Overview = view
	case access.ViewMonitoring:
		assetList, ok := m.assets.Load()
		view := &MonitoringView{
			Loading:   !ok,
			Assets:    nonNilAssets(assetList),
			Markers:   mapsurface.Markers(assetList),
			Selection: m.selection.Snapshot(),
		}
		if snap, ok := m.sensors.Load(); ok && view.Selection.Selected != nil && snap.AssetID == view.Selection.Selected.ID {
			view.Sensors = snap.Ordered()
			at := m.sensors.UpdatedAt()
			view.SensorsAt = &at
		}
		out.Monitoring = view
	case access.ViewAssets:
		assetList, ok := m.assets.Load()
		filtered := assets.Filter{Query: query.Search, Type: query.Type, Status: query.Status}.Apply(assetList)
		out.Assets = &AssetsView{
			Loading:  !ok,
			Assets:   filtered,
			Total:    len(assetList),
			CanWrite: policy.Allows(state.Role(), auth.ActionAssetWrite),
		}
	case access.ViewAlerts:
		alertList, ok := m.alerts.Load()
		out.Alerts = &AlertsView{
			Loading:    !ok,
			Alerts:     alerts.Filter{Status: query.Status, Severity: query.Severity}.Apply(alertList),
			Counts:     alerts.Count(alertList),
			CanResolve: policy.Allows(state.Role(), auth.ActionAlertResolve),
		}
	case access.ViewReports:
		assetList, _ := m.assets.Load()
		forecast, _ := m.forecast.Load()
		summary := reports.Summarize(assetList, forecast, m.console.now())
		out.Reports = &summary
	case access.ViewUsers:
		userList, ok := m.users.Load()
		out.Users = &UsersView{
			Loading: !ok,
			Users:   FilterUsers(userList, query.Search),
			Total:   len(userList),
			Roles:   CountRoles(userList),
		}
	case access.ViewSettings:
		out.Settings = &SettingsView{User: state.User, RoleLabel: state.Role().Label()}
	case access.ViewLanding, access.ViewLogin:
	}
	return out
}

// SelectionState returns the selection of a monitoring mount.
func (m *Mount) SelectionState() (selection.State, error) {
	if m.selection == nil {
		return selection.State{}, ErrUnsupported
	}
	return m.selection.Snapshot(), nil
}

func firstAssets(list []assets.Asset, limit int) []assets.Asset {
	if len(list) > limit {
		list = list[:limit]
	}
	return nonNilAssets(list)
}

func nonNilAssets(list []assets.Asset) []assets.Asset {
	out := make([]assets.Asset, len(list))
	copy(out, list)
	return out
}
