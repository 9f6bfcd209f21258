// Package access maps console paths to views and gates them on the session.
package access

import (
	"log"
	"strings"

	"digital-delta/internal/auth"
	"digital-delta/internal/observability/metrics"
	"digital-delta/internal/session"
)

// View names a mountable screen.
type View string

const (
	ViewLanding    View = "landing"
	ViewLogin      View = "login"
	ViewOverview   View = "overview"
	ViewMonitoring View = "monitoring"
	ViewAssets     View = "assets"
	ViewAlerts     View = "alerts"
	ViewReports    View = "reports"
	ViewUsers      View = "users"
	ViewSettings   View = "settings"
)

// Landing paths.
const (
	PathRoot      = "/"
	PathLogin     = "/login"
	PathDashboard = "/dashboard"
)

// DeniedMessage is shown when a role may not open a view.
const DeniedMessage = "Onvoldoende rechten voor deze pagina"

// Route binds a path to a view. Roles is only consulted for protected routes; empty
// admits every authenticated user.
type Route struct {
	Path      string
	View      View
	Protected bool
	Roles     []auth.Role
}

// DefaultRoutes returns the console route table.
func DefaultRoutes() []Route {
	return []Route{
		{Path: PathRoot, View: ViewLanding},
		{Path: PathLogin, View: ViewLogin},
		{Path: PathDashboard, View: ViewOverview, Protected: true},
		{Path: "/dashboard/monitoring", View: ViewMonitoring, Protected: true},
		{Path: "/dashboard/assets", View: ViewAssets, Protected: true},
		{Path: "/dashboard/alerts", View: ViewAlerts, Protected: true},
		{Path: "/dashboard/reports", View: ViewReports, Protected: true},
		{Path: "/dashboard/users", View: ViewUsers, Protected: true, Roles: []auth.Role{auth.RoleAdmin}},
		{Path: "/dashboard/settings", View: ViewSettings, Protected: true},
	}
}

// Outcome is the result class of an access decision.
type Outcome string

const (
	// OutcomeRender mounts the view.
	OutcomeRender Outcome = "render"
	// OutcomeWait shows a neutral indicator; the session is still loading.
	OutcomeWait Outcome = "wait"
	// OutcomeRedirectLogin sends an anonymous user to the login view.
	OutcomeRedirectLogin Outcome = "redirect_login"
	// OutcomeDeny sends an authenticated user without the role to the dashboard root.
	OutcomeDeny Outcome = "deny"
	// OutcomeNotFound sends unknown paths to the landing page.
	OutcomeNotFound Outcome = "not_found"
)

// Decision tells the caller what to do with a navigation attempt.
type Decision struct {
	Outcome  Outcome `json:"outcome"`
	View     View    `json:"view,omitempty"`
	Redirect string  `json:"redirect,omitempty"`
	// From is the originally requested path, kept for a post-login return.
	From   string `json:"from,omitempty"`
	Notice string `json:"notice,omitempty"`
}

// Router decides access for navigation attempts.
type Router struct {
	routes map[string]Route
	logger *log.Logger
}

// NewRouter builds a router over routes. A nil logger falls back to the default logger.
func NewRouter(routes []Route, logger *log.Logger) *Router {
	if logger == nil {
		logger = log.Default()
	}
	table := make(map[string]Route, len(routes))
	for _, route := range routes {
		table[cleanPath(route.Path)] = route
	}
	return &Router{routes: table, logger: logger}
}

// Lookup returns the route registered for path.
func (r *Router) Lookup(path string) (Route, bool) {
	route, ok := r.routes[cleanPath(path)]
	return route, ok
}

// PathFor returns the registered path of view.
func (r *Router) PathFor(view View) (string, bool) {
	for path, route := range r.routes {
		if route.View == view {
			return path, true
		}
	}
	return "", false
}

// Decide gates path on state.
func (r *Router) Decide(path string, state session.State) Decision {
	decision := r.decide(path, state)
	metrics.IncAccessDecision(string(decision.Outcome))
	return decision
}

func (r *Router) decide(path string, state session.State) Decision {
	route, ok := r.Lookup(path)
	if !ok {
		return Decision{Outcome: OutcomeNotFound, Redirect: PathRoot}
	}
	if !route.Protected {
		return Decision{Outcome: OutcomeRender, View: route.View}
	}
	if state.IsLoading {
		return Decision{Outcome: OutcomeWait, View: route.View}
	}
	if !state.Authenticated() {
		from := cleanPath(path)
		r.logger.Printf("access redirect to login from=%s", from)
		return Decision{Outcome: OutcomeRedirectLogin, Redirect: PathLogin, From: from}
	}
	if len(route.Roles) > 0 && !auth.RoleIn(state.Role(), route.Roles) {
		return Decision{Outcome: OutcomeDeny, Redirect: PathDashboard, Notice: DeniedMessage}
	}
	return Decision{Outcome: OutcomeRender, View: route.View}
}

// Allowed reports whether a user in state may mount view right now.
func (r *Router) Allowed(view View, state session.State) bool {
	path, ok := r.PathFor(view)
	if !ok {
		return false
	}
	return r.decide(path, state).Outcome == OutcomeRender
}

func cleanPath(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return PathRoot
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	if path == "" {
		return PathRoot
	}
	return path
}
