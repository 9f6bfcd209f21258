package access

import "digital-delta/internal/auth"

// NavEntry is one dashboard sidebar item.
type NavEntry struct {
	Label string `json:"label"`
	Path  string `json:"path"`
	View  View   `json:"view"`
}

var navigation = []struct {
	entry NavEntry
	roles []auth.Role
}{
	{entry: NavEntry{Label: "Overzicht", Path: PathDashboard, View: ViewOverview}},
	{entry: NavEntry{Label: "Monitoring", Path: "/dashboard/monitoring", View: ViewMonitoring}},
	{entry: NavEntry{Label: "Assets", Path: "/dashboard/assets", View: ViewAssets}},
	{entry: NavEntry{Label: "Meldingen", Path: "/dashboard/alerts", View: ViewAlerts}},
	{entry: NavEntry{Label: "Rapportages", Path: "/dashboard/reports", View: ViewReports}},
	{entry: NavEntry{Label: "Gebruikers", Path: "/dashboard/users", View: ViewUsers}, roles: []auth.Role{auth.RoleAdmin}},
	{entry: NavEntry{Label: "Instellingen", Path: "/dashboard/settings", View: ViewSettings}},
}

// Navigation lists the sidebar entries visible to role.
func Navigation(role auth.Role) []NavEntry {
	out := make([]NavEntry, 0, len(navigation))
	for _, item := range navigation {
		if len(item.roles) > 0 && !auth.RoleIn(role, item.roles) {
			continue
		}
		out = append(out, item.entry)
	}
	return out
}
