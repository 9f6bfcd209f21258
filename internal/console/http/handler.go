package http

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"digital-delta/internal/access"
	"digital-delta/internal/audit"
	"digital-delta/internal/auth"
	"digital-delta/internal/console"
	"digital-delta/internal/deltaapi"
	"digital-delta/internal/reports"
	"digital-delta/internal/session"
)

// ContactBackend forwards the public contact form.
type ContactBackend interface {
	SubmitContact(ctx context.Context, req deltaapi.ContactRequest) (deltaapi.ContactResponse, error)
}

// Config wires the handler.
type Config struct {
	Store    *session.Store
	Router   *access.Router
	Console  *console.Console
	Contact  ContactBackend
	Reports  reports.Source
	Recorder *audit.Recorder
	Logger   *log.Logger
	Limiter  *RateLimiter
	// MapToken is handed to the client-side globe. Empty disables the endpoint.
	MapToken string
	// KeepAlive is the SSE comment interval. Zero uses 15s.
	KeepAlive time.Duration
	// RequestTimeout bounds non-streaming requests. Zero uses 15s.
	RequestTimeout time.Duration
}

// Handler serves the console API.
type Handler struct {
	store     *session.Store
	router    *access.Router
	console   *console.Console
	contact   ContactBackend
	reports   reports.Source
	recorder  *audit.Recorder
	logger    *log.Logger
	limiter   *RateLimiter
	keepAlive time.Duration
	timeout   time.Duration
	mapToken  string
	now       func() time.Time
}

// NewHandler constructs a handler.
func NewHandler(cfg Config) (*Handler, error) {
	if cfg.Store == nil {
		return nil, errors.New("console handler: nil session store")
	}
	if cfg.Console == nil {
		return nil, errors.New("console handler: nil console")
	}
	if cfg.Router == nil {
		cfg.Router = access.NewRouter(access.DefaultRoutes(), cfg.Logger)
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.Limiter == nil {
		cfg.Limiter = NewRateLimiter(10, time.Minute)
	}
	if cfg.KeepAlive <= 0 {
		cfg.KeepAlive = 15 * time.Second
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 15 * time.Second
	}
	return &Handler{
		store:     cfg.Store,
		router:    cfg.Router,
		console:   cfg.Console,
		contact:   cfg.Contact,
		reports:   cfg.Reports,
		recorder:  cfg.Recorder,
		logger:    cfg.Logger,
		limiter:   cfg.Limiter,
		keepAlive: cfg.KeepAlive,
		timeout:   cfg.RequestTimeout,
		mapToken:  cfg.MapToken,
		now:       time.Now,
	}, nil
}

// Routes builds the chi router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(h.withIdentity)

	r.Get("/healthz", h.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	// Streams stay open for the lifetime of a mount and are exempt from the request timeout.
	r.Get("/dashboard/stream", h.handleStream)
	r.Get("/dashboard/{view}/stream", h.handleStream)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(h.timeout))

		r.Route("/api", func(r chi.Router) {
			r.Get("/session", h.handleSession)
			r.With(h.limiter.Middleware()).Post("/login", h.handleLogin)
			r.With(h.limiter.Middleware()).Post("/register", h.handleRegister)
			r.Post("/logout", h.handleLogout)
			r.Get("/login/external", h.handleExternalLogin)
			r.Post("/auth/callback", h.handleCallback)
			r.With(h.limiter.Middleware()).Post("/contact", h.handleContact)
			r.Get("/notices", h.handleNotices)
			r.Get("/map/token", h.handleMapToken)
			r.With(h.requireUser).Get("/navigation", h.handleNavigation)
		})

		r.Get("/dashboard", h.handleDashboard)
		r.Get("/dashboard/{view}", h.handleDashboard)

		r.Route("/mounts/{mountID}", func(r chi.Router) {
			r.Use(h.requireUser)
			r.Get("/", h.handleMountSnapshot)
			r.Delete("/", h.handleUnmount)
			r.Post("/select", h.handleSelect)
			r.Post("/map", h.handleMapEvent)
			r.Post("/close", h.handleCloseSelection)
			r.Post("/alerts/{alertID}/{action}", h.handleAlertAction)
			r.Post("/assets", h.handleCreateAsset)
			r.Put("/assets/{assetID}", h.handleUpdateAsset)
			r.Delete("/assets/{assetID}", h.handleDeleteAsset)
			r.Put("/users/{userID}/role", h.handleChangeRole)
		})

		r.With(h.requireUser).Get("/reports/export.{format}", h.handleExport)
	})
	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleMapToken(w http.ResponseWriter, _ *http.Request) {
	if h.mapToken == "" {
		writeDetail(w, http.StatusInternalServerError, "map token not configured")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": h.mapToken})
}

// withIdentity copies the session user into the request context for role checks.
func (h *Handler) withIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		state := h.store.Snapshot()
		if state.User != nil {
			r = r.WithContext(auth.WithIdentity(r.Context(), state.Role(), state.User.Email))
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		state := h.store.Snapshot()
		if state.IsLoading {
			writeDetail(w, http.StatusServiceUnavailable, "Sessie wordt geladen")
			return
		}
		if !state.Authenticated() {
			writeDetail(w, http.StatusUnauthorized, "Niet ingelogd")
			return
		}
		next.ServeHTTP(w, r)
	})
}
