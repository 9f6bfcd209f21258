// Package fakeserver is an in-memory implementation of the Digital Delta backend
// contract. It backs the package tests and the local fake_delta_server tool.
package fakeserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"digital-delta/internal/deltaapi"
)

const sessionCookie = "session_token"

// Server holds backend state. All methods are safe for concurrent use.
type Server struct {
	secret     []byte
	bcryptCost int
	sessionTTL time.Duration
	now        func() time.Time

	mu        sync.Mutex
	users     map[string]*account
	external  map[string]string
	assets    []deltaapi.Asset
	alerts    []deltaapi.Alert
	sensors   map[string]map[string]any
	contacts  []deltaapi.ContactResponse
	calls     map[string]int
	failures  map[string]int
	latencies map[string]time.Duration
}

type account struct {
	user deltaapi.User
	hash []byte
}

// Option customizes the server.
type Option func(*Server)

// WithSecret sets the session signing secret.
func WithSecret(secret []byte) Option {
	return func(s *Server) {
		if len(secret) > 0 {
			s.secret = secret
		}
	}
}

// WithBcryptCost sets the password hash cost.
func WithBcryptCost(cost int) Option {
	return func(s *Server) {
		s.bcryptCost = cost
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs an empty server.
func New(opts ...Option) *Server {
	s := &Server{
		secret:     []byte("fake-delta-secret"),
		bcryptCost: bcrypt.MinCost,
		sessionTTL: 7 * 24 * time.Hour,
		now:        func() time.Time { return time.Now().UTC() },
		users:      make(map[string]*account),
		external:   make(map[string]string),
		sensors:    make(map[string]map[string]any),
		calls:      make(map[string]int),
		failures:   make(map[string]int),
		latencies:  make(map[string]time.Duration),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddUser registers an account and returns its identity.
func (s *Server) AddUser(email, password, name, role string) (deltaapi.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return deltaapi.User{}, err
	}
	user := deltaapi.User{
		UserID:    "user_" + uuid.NewString()[:12],
		Email:     strings.ToLower(email),
		Name:      name,
		Role:      role,
		CreatedAt: s.now(),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[user.Email]; exists {
		return deltaapi.User{}, errors.New("fakeserver: email already registered")
	}
	s.users[user.Email] = &account{user: user, hash: hash}
	return user, nil
}

// AddExternalSession makes sessionID redeemable once for the account behind email.
func (s *Server) AddExternalSession(sessionID, email string) {
	s.mu.Lock()
	s.external[sessionID] = strings.ToLower(email)
	s.mu.Unlock()
}

// PutAsset inserts or replaces an asset.
func (s *Server) PutAsset(asset deltaapi.Asset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.assets {
		if s.assets[i].AssetID == asset.AssetID {
			s.assets[i] = asset
			return
		}
	}
	s.assets = append(s.assets, asset)
}

// PutAlert inserts or replaces an alert.
func (s *Server) PutAlert(alert deltaapi.Alert) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.alerts {
		if s.alerts[i].AlertID == alert.AlertID {
			s.alerts[i] = alert
			return
		}
	}
	s.alerts = append(s.alerts, alert)
}

// ClearAssets empties the asset collection.
func (s *Server) ClearAssets() {
	s.mu.Lock()
	s.assets = nil
	s.mu.Unlock()
}

// SetSensors overrides the live sensor payload of an asset. Keys are passed through
// untouched so unknown sensor kinds can be served.
func (s *Server) SetSensors(assetID string, sensors map[string]any) {
	s.mu.Lock()
	s.sensors[assetID] = sensors
	s.mu.Unlock()
}

// FailPath makes every request whose route key is key answer status. Zero clears it.
func (s *Server) FailPath(key string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.failures, key)
		return
	}
	s.failures[key] = status
}

// DelayPath makes every request whose route key is key sleep before answering.
func (s *Server) DelayPath(key string, delay time.Duration) {
	s.mu.Lock()
	s.latencies[key] = delay
	s.mu.Unlock()
}

// Calls returns how many requests hit a route key such as "GET /assets".
func (s *Server) Calls(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[key]
}

// Alert returns the stored alert by id.
func (s *Server) Alert(id string) (deltaapi.Alert, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, alert := range s.alerts {
		if alert.AlertID == id {
			return alert, true
		}
	}
	return deltaapi.Alert{}, false
}

// ServeHTTP routes /api requests.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api")
	key := routeKey(r.Method, path)

	s.mu.Lock()
	s.calls[key]++
	status := s.failures[key]
	delay := s.latencies[key]
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}
	if status != 0 {
		writeDetail(w, status, "injected failure")
		return
	}

	switch {
	case key == "GET /health":
		writeJSON(w, http.StatusOK, map[string]any{"status": "healthy", "timestamp": s.now().Format(time.RFC3339)})
	case key == "POST /auth/login":
		s.handleLogin(w, r)
	case key == "POST /auth/register":
		s.handleRegister(w, r)
	case key == "POST /auth/session":
		s.handleSession(w, r)
	case key == "POST /auth/logout":
		http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1})
		writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
	case key == "POST /contact":
		s.handleContact(w, r)
	default:
		user, ok := s.authenticate(r)
		if !ok {
			writeDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		s.serveAuthenticated(w, r, key, path, user)
	}
}

func (s *Server) serveAuthenticated(w http.ResponseWriter, r *http.Request, key, path string, user deltaapi.User) {
	switch {
	case key == "GET /auth/me":
		writeJSON(w, http.StatusOK, user)
	case key == "GET /assets":
		s.handleListAssets(w)
	case key == "POST /assets":
		s.handleCreateAsset(w, r, user)
	case key == "PUT /assets/{id}":
		s.handleUpdateAsset(w, r, user, lastSegment(path))
	case key == "DELETE /assets/{id}":
		s.handleDeleteAsset(w, user, lastSegment(path))
	case key == "POST /seed":
		s.handleSeed(w)
	case key == "GET /alerts":
		s.handleListAlerts(w, r)
	case key == "PUT /alerts/{id}/acknowledge":
		s.handleAlertTransition(w, user, segment(path, 1), "acknowledge")
	case key == "PUT /alerts/{id}/resolve":
		s.handleAlertTransition(w, user, segment(path, 1), "resolve")
	case key == "GET /sensors/live/{id}":
		s.handleSensors(w, lastSegment(path))
	case key == "GET /analytics/overview":
		s.handleOverview(w)
	case key == "GET /analytics/maintenance-forecast":
		s.handleForecast(w)
	case key == "GET /users":
		s.handleListUsers(w, user)
	case key == "PUT /users/{id}/role":
		s.handleUpdateRole(w, r, user, segment(path, 1))
	default:
		writeDetail(w, http.StatusNotFound, "Not Found")
	}
}

func (s *Server) issueToken(user deltaapi.User) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   user.UserID,
		IssuedAt:  jwt.NewNumericDate(s.now()),
		ExpiresAt: jwt.NewNumericDate(s.now().Add(s.sessionTTL)),
		ID:        uuid.NewString(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *Server) authenticate(r *http.Request) (deltaapi.User, bool) {
	raw := ""
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		raw = cookie.Value
	}
	if raw == "" {
		header := r.Header.Get("Authorization")
		if parts := strings.Fields(header); len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			raw = parts[1]
		}
	}
	if raw == "" {
		return deltaapi.User{}, false
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	claims := &jwt.RegisteredClaims{}
	token, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return deltaapi.User{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, acc := range s.users {
		if acc.user.UserID == claims.Subject {
			return acc.user, true
		}
	}
	return deltaapi.User{}, false
}

func (s *Server) startSession(w http.ResponseWriter, user deltaapi.User, extra map[string]any) {
	token, err := s.issueToken(user)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "token error")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		MaxAge:   int(s.sessionTTL.Seconds()),
	})
	body := map[string]any{"user": user, "session_token": token}
	for key, value := range extra {
		body[key] = value
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req deltaapi.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid json")
		return
	}
	s.mu.Lock()
	acc, ok := s.users[strings.ToLower(req.Email)]
	s.mu.Unlock()
	if !ok || bcrypt.CompareHashAndPassword(acc.hash, []byte(req.Password)) != nil {
		writeDetail(w, http.StatusUnauthorized, "Ongeldige inloggegevens")
		return
	}
	s.startSession(w, acc.user, nil)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req deltaapi.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid json")
		return
	}
	if req.Email == "" || len(req.Password) < 6 || req.Name == "" {
		writeDetail(w, http.StatusBadRequest, "email, name and a password of at least 6 characters are required")
		return
	}
	role := req.Role
	if role == "" {
		role = "field_worker"
	}
	user, err := s.AddUser(req.Email, req.Password, req.Name, role)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "E-mailadres is al geregistreerd")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	var req deltaapi.SessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == "" {
		writeDetail(w, http.StatusBadRequest, "session_id required")
		return
	}
	s.mu.Lock()
	email, ok := s.external[req.SessionID]
	delete(s.external, req.SessionID)
	var acc *account
	if ok {
		acc = s.users[email]
	}
	s.mu.Unlock()
	if acc == nil {
		writeDetail(w, http.StatusUnauthorized, "Invalid session")
		return
	}
	s.startSession(w, acc.user, nil)
}

func routeKey(method, path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	switch {
	case len(parts) == 2 && (parts[0] == "assets" || parts[0] == "users"):
		parts[1] = "{id}"
	case len(parts) == 3 && (parts[0] == "alerts" || parts[0] == "users"):
		parts[1] = "{id}"
	case len(parts) == 3 && parts[0] == "sensors" && parts[1] == "live":
		parts[2] = "{id}"
	}
	return method + " /" + strings.Join(parts, "/")
}

func segment(path string, index int) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if index < 0 || index >= len(parts) {
		return ""
	}
	return parts[index]
}

func lastSegment(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	return parts[len(parts)-1]
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
