// Package session is the console's single source of truth for who is logged in.
//
// A Store starts Unresolved (loading, no user) and resolves exactly once, either by the
// identity probe or by an explicit login, into Authenticated or Anonymous. Authenticated
// only returns to Anonymous through Logout.
package session

import (
	"context"
	"errors"
	"log"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"digital-delta/internal/audit"
	"digital-delta/internal/auth"
	"digital-delta/internal/deltaapi"
	"digital-delta/internal/observability/metrics"
)

// DefaultProviderURL is the external identity provider.
const DefaultProviderURL = "https://auth.emergentagent.com/"

const defaultProbeTimeout = 10 * time.Second

// The token is sent exactly as it appears in the fragment, without unescaping.
var sessionIDPattern = regexp.MustCompile(`session_id=([^&]+)`)

var (
	// ErrNoSessionID means the callback URL fragment carried no session_id.
	ErrNoSessionID = errors.New("session: no session_id in callback fragment")
	// ErrNilBackend is returned by NewStore without a backend.
	ErrNilBackend = errors.New("session: nil backend")
)

// Backend is the part of the REST client the store talks to.
type Backend interface {
	Me(ctx context.Context) (deltaapi.User, error)
	Login(ctx context.Context, email, password string) (deltaapi.LoginResponse, error)
	ExchangeSession(ctx context.Context, sessionID string) (deltaapi.LoginResponse, error)
	Logout(ctx context.Context) error
	Register(ctx context.Context, req deltaapi.RegisterRequest) (map[string]any, error)
}

// State is a point-in-time view of the session.
type State struct {
	User      *deltaapi.User `json:"user"`
	IsLoading bool           `json:"is_loading"`
}

// Authenticated reports whether a user is present.
func (s State) Authenticated() bool {
	return s.User != nil
}

// Role returns the normalized role of the user, or "" when anonymous or unknown.
func (s State) Role() auth.Role {
	if s.User == nil {
		return ""
	}
	role, ok := auth.NormalizeRole(s.User.Role)
	if !ok {
		return ""
	}
	return role
}

// Store owns the session. It is safe for concurrent use.
type Store struct {
	backend      Backend
	logger       *log.Logger
	recorder     *audit.Recorder
	providerURL  string
	dashboardURL string
	probeTimeout time.Duration

	initOnce    sync.Once
	resolveOnce sync.Once
	resolved    chan struct{}

	mu         sync.RWMutex
	user       *deltaapi.User
	loading    bool
	generation uint64
	consumed   map[string]struct{}
	watchers   map[chan State]struct{}
}

// Option customizes the store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRecorder sets the audit recorder.
func WithRecorder(recorder *audit.Recorder) Option {
	return func(s *Store) {
		s.recorder = recorder
	}
}

// WithProviderURL overrides the identity provider origin.
func WithProviderURL(providerURL string) Option {
	return func(s *Store) {
		if providerURL != "" {
			s.providerURL = providerURL
		}
	}
}

// WithProbeTimeout bounds the identity probe.
func WithProbeTimeout(timeout time.Duration) Option {
	return func(s *Store) {
		if timeout > 0 {
			s.probeTimeout = timeout
		}
	}
}

// NewStore constructs an unresolved store. publicURL is the console origin; the external
// provider sends the browser back to publicURL + "/dashboard".
func NewStore(backend Backend, publicURL string, opts ...Option) (*Store, error) {
	if backend == nil {
		return nil, ErrNilBackend
	}
	if _, err := url.Parse(publicURL); err != nil || publicURL == "" {
		return nil, errors.New("session: invalid public url")
	}
	s := &Store{
		backend:      backend,
		logger:       log.Default(),
		providerURL:  DefaultProviderURL,
		dashboardURL: strings.TrimRight(publicURL, "/") + "/dashboard",
		probeTimeout: defaultProbeTimeout,
		resolved:     make(chan struct{}),
		loading:      true,
		consumed:     make(map[string]struct{}),
		watchers:     make(map[chan State]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Initialize starts the identity probe. Only the first call has any effect. ctx should live
// as long as the process; cancelling it resolves the store as anonymous.
func (s *Store) Initialize(ctx context.Context) {
	s.initOnce.Do(func() {
		s.mu.RLock()
		gen := s.generation
		s.mu.RUnlock()
		go s.probe(ctx, gen)
	})
}

func (s *Store) probe(ctx context.Context, gen uint64) {
	probeCtx, cancel := context.WithTimeout(ctx, s.probeTimeout)
	defer cancel()
	user, err := s.backend.Me(probeCtx)
	if err != nil {
		s.logger.Printf("session probe error: %v", err)
		metrics.IncAuthEvent("probe_anonymous")
	} else {
		metrics.IncAuthEvent("probe_authenticated")
	}

	s.mu.Lock()
	if s.generation != gen {
		// a login or logout finished first and owns the state
		s.mu.Unlock()
		return
	}
	if err != nil {
		s.user = nil
	} else {
		s.user = &user
	}
	s.loading = false
	state := s.stateLocked()
	s.mu.Unlock()
	s.markResolved()
	s.publish(state)
}

// Snapshot returns the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stateLocked()
}

// Resolved is closed once the store has left the loading state.
func (s *Store) Resolved() <-chan struct{} {
	return s.resolved
}

// Wait blocks until resolution or ctx cancellation and returns the state.
func (s *Store) Wait(ctx context.Context) (State, error) {
	select {
	case <-s.resolved:
		return s.Snapshot(), nil
	case <-ctx.Done():
		return s.Snapshot(), ctx.Err()
	}
}

// Changes returns a channel receiving every state change until the returned stop func runs.
func (s *Store) Changes() (<-chan State, func()) {
	ch := make(chan State, 4)
	s.mu.Lock()
	s.watchers[ch] = struct{}{}
	s.mu.Unlock()
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.watchers, ch)
			close(ch)
			s.mu.Unlock()
		})
	}
}

// Login performs a password login. The backend error is returned untouched.
func (s *Store) Login(ctx context.Context, email, password string) (deltaapi.LoginResponse, error) {
	resp, err := s.backend.Login(ctx, email, password)
	if err != nil {
		metrics.IncAuthEvent("login_failed")
		return deltaapi.LoginResponse{}, err
	}
	metrics.IncAuthEvent("login")
	s.setUser(&resp.User)
	s.record(ctx, resp.User, audit.ActionLogin)
	return resp, nil
}

// Register creates an account. The session is not changed.
func (s *Store) Register(ctx context.Context, req deltaapi.RegisterRequest) (map[string]any, error) {
	return s.backend.Register(ctx, req)
}

// ExternalLoginURL is the provider URL carrying this console's dashboard URL as its only
// query parameter.
func (s *Store) ExternalLoginURL() string {
	u, err := url.Parse(s.providerURL)
	if err != nil {
		u = &url.URL{Scheme: "https", Host: "auth.emergentagent.com", Path: "/"}
	}
	u.RawQuery = url.Values{"redirect": []string{s.dashboardURL}}.Encode()
	u.Fragment = ""
	return u.String()
}

// DashboardURL is the external provider's return address.
func (s *Store) DashboardURL() string {
	return s.dashboardURL
}

// CallbackResult tells the caller where to navigate after an external callback.
type CallbackResult struct {
	Navigate  string         `json:"navigate,omitempty"`
	Replace   bool           `json:"replace"`
	Duplicate bool           `json:"duplicate,omitempty"`
	User      *deltaapi.User `json:"user,omitempty"`
}

// CompleteExternalCallback exchanges the session_id carried in the fragment of rawURL.
// Each token is exchanged at most once; later calls with the same token return a
// Duplicate result and touch nothing.
func (s *Store) CompleteExternalCallback(ctx context.Context, rawURL string) (CallbackResult, error) {
	token, ok := SessionIDFromFragment(rawURL)
	if !ok {
		return CallbackResult{Navigate: "/login"}, ErrNoSessionID
	}

	s.mu.Lock()
	if _, seen := s.consumed[token]; seen {
		s.mu.Unlock()
		metrics.IncAuthEvent("callback_duplicate")
		return CallbackResult{Duplicate: true}, nil
	}
	s.consumed[token] = struct{}{}
	s.mu.Unlock()

	resp, err := s.backend.ExchangeSession(ctx, token)
	if err != nil {
		s.logger.Printf("session callback error: %v", err)
		metrics.IncAuthEvent("callback_failed")
		return CallbackResult{Navigate: "/login"}, err
	}
	metrics.IncAuthEvent("callback")
	user := resp.User
	s.setUser(&user)
	s.record(ctx, user, audit.ActionExternalLogin)
	return CallbackResult{Navigate: "/dashboard", Replace: true, User: &user}, nil
}

// Logout notifies the backend best effort and always clears the local user.
func (s *Store) Logout(ctx context.Context) {
	prev := s.Snapshot().User
	if err := s.backend.Logout(ctx); err != nil {
		s.logger.Printf("session logout error: %v", err)
	}
	metrics.IncAuthEvent("logout")
	s.setUser(nil)
	if prev != nil {
		s.record(ctx, *prev, audit.ActionLogout)
	}
}

func (s *Store) setUser(user *deltaapi.User) {
	s.mu.Lock()
	s.generation++
	s.user = user
	s.loading = false
	state := s.stateLocked()
	s.mu.Unlock()
	s.markResolved()
	s.publish(state)
}

func (s *Store) stateLocked() State {
	state := State{IsLoading: s.loading}
	if s.user != nil {
		copied := *s.user
		state.User = &copied
	}
	return state
}

func (s *Store) markResolved() {
	s.resolveOnce.Do(func() { close(s.resolved) })
}

func (s *Store) publish(state State) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for ch := range s.watchers {
		select {
		case ch <- state:
		default:
		}
	}
}

func (s *Store) record(ctx context.Context, user deltaapi.User, action string) {
	s.recorder.Record(ctx, audit.Entry{
		Actor:        user.Email,
		Role:         user.Role,
		Action:       action,
		ResourceType: "session",
		ResourceID:   user.UserID,
		Result:       metrics.ResultSuccess,
	})
}

// SessionIDFromFragment extracts session_id from the fragment of rawURL. The query string
// is never consulted.
func SessionIDFromFragment(rawURL string) (string, bool) {
	_, fragment, found := strings.Cut(rawURL, "#")
	if !found || fragment == "" {
		return "", false
	}
	match := sessionIDPattern.FindStringSubmatch(fragment)
	if match == nil {
		return "", false
	}
	return match[1], true
}
