package deltaapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"
)

const defaultTimeout = 10 * time.Second

// Client is a REST client for the Digital Delta backend. Every call carries the
// session cookie kept in the jar and, when known, the session token as a bearer.
type Client struct {
	baseURL string
	client  *http.Client

	mu    sync.RWMutex
	token string
}

// Option customizes the client.
type Option func(*Client)

// WithTimeout overrides the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.client.Timeout = timeout
		}
	}
}

// WithHTTPClient replaces the underlying http client. The jar is kept when the
// replacement has none.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc == nil {
			return
		}
		if hc.Jar == nil {
			hc.Jar = c.client.Jar
		}
		c.client = hc
	}
}

// NewClient constructs a client. baseURL is the backend origin; the /api prefix is added here.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("deltaapi: empty base url")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, err
	}
	jar, err := newSessionJar()
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/") + "/api",
		client:  &http.Client{Timeout: defaultTimeout, Jar: jar},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SetSessionToken stores the bearer fallback token.
func (c *Client) SetSessionToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// ClearSession drops the bearer token and every cookie the backend set.
func (c *Client) ClearSession() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
	if jar, ok := c.client.Jar.(*sessionJar); ok {
		jar.reset()
	}
}

// Me returns the identity of the current session.
func (c *Client) Me(ctx context.Context) (User, error) {
	var user User
	if err := c.doJSON(ctx, http.MethodGet, "/auth/me", nil, &user); err != nil {
		return User{}, err
	}
	return user, nil
}

// Login performs a password login and returns the full payload.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResponse, error) {
	var resp LoginResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login", LoginRequest{Email: email, Password: password}, &resp); err != nil {
		return LoginResponse{}, err
	}
	if resp.SessionToken != "" {
		c.SetSessionToken(resp.SessionToken)
	}
	return resp, nil
}

// ExchangeSession trades a one-time external provider token for a session.
func (c *Client) ExchangeSession(ctx context.Context, sessionID string) (LoginResponse, error) {
	if sessionID == "" {
		return LoginResponse{}, errors.New("deltaapi: empty session id")
	}
	var resp LoginResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/session", SessionRequest{SessionID: sessionID}, &resp); err != nil {
		return LoginResponse{}, err
	}
	if resp.SessionToken != "" {
		c.SetSessionToken(resp.SessionToken)
	}
	return resp, nil
}

// Logout notifies the backend. The local session is cleared regardless of the answer.
func (c *Client) Logout(ctx context.Context) error {
	err := c.doJSON(ctx, http.MethodPost, "/auth/logout", struct{}{}, nil)
	c.ClearSession()
	return err
}

// Register creates an account and returns the raw payload.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (map[string]any, error) {
	var resp map[string]any
	if err := c.doJSON(ctx, http.MethodPost, "/auth/register", req, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// ListAssets returns every asset.
func (c *Client) ListAssets(ctx context.Context) ([]Asset, error) {
	var list []Asset
	if err := c.doJSON(ctx, http.MethodGet, "/assets", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// Seed asks the backend to populate an empty dataset. The body is ignored.
func (c *Client) Seed(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/seed", struct{}{}, nil)
}

// CreateAsset creates an asset.
func (c *Client) CreateAsset(ctx context.Context, in AssetInput) (Asset, error) {
	var asset Asset
	if err := c.doJSON(ctx, http.MethodPost, "/assets", in, &asset); err != nil {
		return Asset{}, err
	}
	return asset, nil
}

// UpdateAsset replaces an asset.
func (c *Client) UpdateAsset(ctx context.Context, id string, in AssetInput) (Asset, error) {
	if id == "" {
		return Asset{}, errors.New("deltaapi: empty asset id")
	}
	var asset Asset
	if err := c.doJSON(ctx, http.MethodPut, "/assets/"+url.PathEscape(id), in, &asset); err != nil {
		return Asset{}, err
	}
	return asset, nil
}

// DeleteAsset deletes an asset.
func (c *Client) DeleteAsset(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("deltaapi: empty asset id")
	}
	return c.doJSON(ctx, http.MethodDelete, "/assets/"+url.PathEscape(id), nil, nil)
}

// ListAlerts returns alerts, optionally filtered by status on the backend.
func (c *Client) ListAlerts(ctx context.Context, status string) ([]Alert, error) {
	path := "/alerts"
	if status != "" {
		path += "?status=" + url.QueryEscape(status)
	}
	var list []Alert
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// AcknowledgeAlert moves an alert to acknowledged.
func (c *Client) AcknowledgeAlert(ctx context.Context, id string) error {
	return c.alertAction(ctx, id, "acknowledge")
}

// ResolveAlert moves an alert to resolved.
func (c *Client) ResolveAlert(ctx context.Context, id string) error {
	return c.alertAction(ctx, id, "resolve")
}

func (c *Client) alertAction(ctx context.Context, id, action string) error {
	if id == "" {
		return errors.New("deltaapi: empty alert id")
	}
	return c.doJSON(ctx, http.MethodPut, "/alerts/"+url.PathEscape(id)+"/"+action, struct{}{}, nil)
}

// LiveSensors returns the current readings of one asset.
func (c *Client) LiveSensors(ctx context.Context, assetID string) (LiveSensors, error) {
	if assetID == "" {
		return LiveSensors{}, errors.New("deltaapi: empty asset id")
	}
	var resp LiveSensors
	if err := c.doJSON(ctx, http.MethodGet, "/sensors/live/"+url.PathEscape(assetID), nil, &resp); err != nil {
		return LiveSensors{}, err
	}
	return resp, nil
}

// AnalyticsOverview returns totals, averages and the status histogram.
func (c *Client) AnalyticsOverview(ctx context.Context) (Overview, error) {
	var resp Overview
	if err := c.doJSON(ctx, http.MethodGet, "/analytics/overview", nil, &resp); err != nil {
		return Overview{}, err
	}
	return resp, nil
}

// MaintenanceForecast returns scheduled maintenance items.
func (c *Client) MaintenanceForecast(ctx context.Context) (Forecast, error) {
	var resp Forecast
	if err := c.doJSON(ctx, http.MethodGet, "/analytics/maintenance-forecast", nil, &resp); err != nil {
		return Forecast{}, err
	}
	return resp, nil
}

// ListUsers returns every user. Admin only on the backend.
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	var list []User
	if err := c.doJSON(ctx, http.MethodGet, "/users", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// UpdateUserRole changes the role of a user.
func (c *Client) UpdateUserRole(ctx context.Context, userID, role string) error {
	if userID == "" || role == "" {
		return errors.New("deltaapi: invalid role update")
	}
	path := "/users/" + url.PathEscape(userID) + "/role?role=" + url.QueryEscape(role)
	return c.doJSON(ctx, http.MethodPut, path, struct{}{}, nil)
}

// SubmitContact posts the public contact form.
func (c *Client) SubmitContact(ctx context.Context, req ContactRequest) (ContactResponse, error) {
	var resp ContactResponse
	if err := c.doJSON(ctx, http.MethodPost, "/contact", req, &resp); err != nil {
		return ContactResponse{}, err
	}
	return resp, nil
}

// sessionJar is a cookie jar that can be emptied while requests are in flight.
type sessionJar struct {
	mu    sync.Mutex
	inner *cookiejar.Jar
}

func newSessionJar() (*sessionJar, error) {
	inner, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &sessionJar{inner: inner}, nil
}

func (j *sessionJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	inner := j.inner
	j.mu.Unlock()
	inner.SetCookies(u, cookies)
}

func (j *sessionJar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	inner := j.inner
	j.mu.Unlock()
	return inner.Cookies(u)
}

func (j *sessionJar) reset() {
	inner, err := cookiejar.New(nil)
	if err != nil {
		return
	}
	j.mu.Lock()
	j.inner = inner
	j.mu.Unlock()
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	var reqBody *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(payload)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return &APIError{Status: resp.StatusCode, Detail: parseDetail(data)}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
