package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"digital-delta/internal/access"
	"digital-delta/internal/auth"
	"digital-delta/internal/console"
	"digital-delta/internal/deltaapi"
	"digital-delta/internal/deltaapi/fakeserver"
	"digital-delta/internal/notice"
	"digital-delta/internal/session"
)

type env struct {
	backend *fakeserver.Server
	store   *session.Store
	console *console.Console
	server  *httptest.Server
	client  *http.Client
}

func newEnv(t *testing.T, tweak func(*Config)) *env {
	t.Helper()
	quiet := log.New(io.Discard, "", 0)
	backend := fakeserver.New()
	api := httptest.NewServer(backend)
	t.Cleanup(api.Close)
	client, err := deltaapi.NewClient(api.URL)
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	store, err := session.NewStore(client, "https://console.delta.nl", session.WithLogger(quiet))
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	c, err := console.New(client, console.WithLogger(quiet), console.WithIntervals(console.Intervals{Sensors: time.Hour}))
	if err != nil {
		t.Fatalf("console: %v", err)
	}
	t.Cleanup(c.Close)
	cfg := Config{Store: store, Console: c, Contact: client, Reports: client, Logger: quiet}
	if tweak != nil {
		tweak(&cfg)
	}
	h, err := NewHandler(cfg)
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	server := httptest.NewServer(h.Routes())
	t.Cleanup(server.Close)
	return &env{
		backend: backend,
		store:   store,
		console: c,
		server:  server,
		client: &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}},
	}
}

func (e *env) resolve(t *testing.T) {
	t.Helper()
	e.store.Initialize(context.Background())
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := e.store.Wait(ctx); err != nil {
		t.Fatalf("session did not resolve: %v", err)
	}
}

func (e *env) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := e.client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (e *env) login(t *testing.T, role auth.Role) deltaapi.User {
	t.Helper()
	email := string(role) + "@delta.nl"
	user, err := e.backend.AddUser(email, "geheim123", "Tester", string(role))
	if err != nil {
		t.Fatalf("add user: %v", err)
	}
	resp := e.do(t, http.MethodPost, "/api/login", map[string]string{"email": email, "password": "geheim123"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status %d", resp.StatusCode)
	}
	return user
}

func decode(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

type sseEvent struct {
	name string
	data string
}

type stream struct {
	events chan sseEvent
	cancel context.CancelFunc
}

func (e *env) openStream(t *testing.T, path string) *stream {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, e.server.URL+path, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		cancel()
		t.Fatalf("stream: %v", err)
	}
	s := &stream{events: make(chan sseEvent, 256), cancel: cancel}
	go func() {
		defer resp.Body.Close()
		defer close(s.events)
		reader := bufio.NewReader(resp.Body)
		var ev sseEvent
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				return
			}
			line = strings.TrimRight(line, "\n")
			switch {
			case line == "":
				if ev.name != "" {
					select {
					case s.events <- ev:
					case <-ctx.Done():
						return
					}
				}
				ev = sseEvent{}
			case strings.HasPrefix(line, "event: "):
				ev.name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				ev.data += strings.TrimPrefix(line, "data: ")
			}
		}
	}()
	t.Cleanup(cancel)
	return s
}

func (s *stream) next(t *testing.T, name string) sseEvent {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case ev, ok := <-s.events:
			if !ok {
				t.Fatalf("stream closed while waiting for %s", name)
			}
			if ev.name == name {
				return ev
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s event", name)
		}
	}
}

func (s *stream) mountID(t *testing.T) string {
	t.Helper()
	var payload struct {
		MountID string `json:"mount_id"`
	}
	if err := json.Unmarshal([]byte(s.next(t, "mounted").data), &payload); err != nil || payload.MountID == "" {
		t.Fatalf("bad mounted event: %v", err)
	}
	return payload.MountID
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestDashboardWaitsWhileSessionLoads(t *testing.T) {
	e := newEnv(t, nil)
	resp := e.do(t, http.MethodGet, "/dashboard", nil)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202 while loading, got %d", resp.StatusCode)
	}
}

func TestAnonymousRedirectKeepsOrigin(t *testing.T) {
	e := newEnv(t, nil)
	e.resolve(t)
	resp := e.do(t, http.MethodGet, "/dashboard/assets", nil)
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("expected redirect, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Location"); got != "/login?from=%2Fdashboard%2Fassets" {
		t.Fatalf("unexpected location %q", got)
	}
}

func TestLoginScenario(t *testing.T) {
	e := newEnv(t, nil)
	e.resolve(t)
	e.login(t, auth.RoleManager)

	var state session.State
	decode(t, e.do(t, http.MethodGet, "/api/session", nil), &state)
	if state.User == nil || state.User.Role != "manager" || state.IsLoading {
		t.Fatalf("unexpected session %+v", state)
	}

	resp := e.do(t, http.MethodGet, "/dashboard/users", nil)
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != access.PathDashboard {
		t.Fatalf("manager reached users view: %d %s", resp.StatusCode, resp.Header.Get("Location"))
	}
	var notices []notice.Notice
	decode(t, e.do(t, http.MethodGet, "/api/notices", nil), &notices)
	if len(notices) != 1 || notices[0].Message != access.DeniedMessage {
		t.Fatalf("expected denial notice, got %+v", notices)
	}

	resp = e.do(t, http.MethodGet, "/dashboard/alerts", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("alerts view status %d", resp.StatusCode)
	}
	var nav []access.NavEntry
	decode(t, e.do(t, http.MethodGet, "/api/navigation", nil), &nav)
	for _, entry := range nav {
		if entry.View == access.ViewUsers {
			t.Fatalf("users entry shown to manager")
		}
	}
}

func TestLoginFailureCarriesDetail(t *testing.T) {
	e := newEnv(t, nil)
	e.resolve(t)
	resp := e.do(t, http.MethodPost, "/api/login", map[string]string{"email": "nobody@delta.nl", "password": "wrong"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	if e.store.Snapshot().Authenticated() {
		t.Fatalf("failed login changed the session")
	}
}

func TestLoginRateLimited(t *testing.T) {
	e := newEnv(t, func(cfg *Config) { cfg.Limiter = NewRateLimiter(2, time.Hour) })
	e.resolve(t)
	body := map[string]string{"email": "x@delta.nl", "password": "nope"}
	e.do(t, http.MethodPost, "/api/login", body)
	e.do(t, http.MethodPost, "/api/login", body)
	if resp := e.do(t, http.MethodPost, "/api/login", body); resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", resp.StatusCode)
	}
}

func TestExternalLoginRedirect(t *testing.T) {
	e := newEnv(t, nil)
	resp := e.do(t, http.MethodGet, "/api/login/external", nil)
	want := "https://auth.emergentagent.com/?redirect=https%3A%2F%2Fconsole.delta.nl%2Fdashboard"
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != want {
		t.Fatalf("unexpected redirect %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}
}

func TestCallbackExchangesOnce(t *testing.T) {
	e := newEnv(t, nil)
	e.resolve(t)
	if _, err := e.backend.AddUser("ext@delta.nl", "geheim123", "Extern", "manager"); err != nil {
		t.Fatalf("add user: %v", err)
	}
	e.backend.AddExternalSession("tok-123", "ext@delta.nl")
	body := map[string]string{"url": "https://console.delta.nl/dashboard#session_id=tok-123"}

	var wg sync.WaitGroup
	results := make([]session.CallbackResult, 2)
	codes := make([]int, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			data, _ := json.Marshal(body)
			resp, err := http.Post(e.server.URL+"/api/auth/callback", "application/json", bytes.NewReader(data))
			if err != nil {
				t.Errorf("callback: %v", err)
				return
			}
			defer resp.Body.Close()
			codes[i] = resp.StatusCode
			_ = json.NewDecoder(resp.Body).Decode(&results[i])
		}(i)
	}
	wg.Wait()

	if got := e.backend.Calls("POST /auth/session"); got != 1 {
		t.Fatalf("token exchanged %d times", got)
	}
	navigated := 0
	for i, result := range results {
		if codes[i] != http.StatusOK {
			t.Fatalf("unexpected status %d", codes[i])
		}
		if result.Navigate == access.PathDashboard && result.Replace {
			navigated++
		}
	}
	if navigated != 1 {
		t.Fatalf("expected exactly one navigation, got %+v", results)
	}
	if !e.store.Snapshot().Authenticated() {
		t.Fatalf("session not established")
	}
}

func TestCallbackWithoutFragment(t *testing.T) {
	e := newEnv(t, nil)
	resp := e.do(t, http.MethodPost, "/api/auth/callback", map[string]string{"url": "https://console.delta.nl/dashboard?session_id=abc"})
	var result session.CallbackResult
	decode(t, resp, &result)
	if resp.StatusCode != http.StatusBadRequest || result.Navigate != access.PathLogin {
		t.Fatalf("query string must not be accepted: %d %+v", resp.StatusCode, result)
	}
}

func TestStreamCloseUnmounts(t *testing.T) {
	e := newEnv(t, nil)
	e.resolve(t)
	e.login(t, auth.RoleFieldWorker)
	s := e.openStream(t, "/dashboard/alerts/stream")
	s.mountID(t)
	s.next(t, "snapshot")
	if e.console.Count() != 1 {
		t.Fatalf("expected one mount")
	}
	s.cancel()
	waitFor(t, "unmount", func() bool { return e.console.Count() == 0 })
	calls := e.backend.Calls("GET /alerts")
	time.Sleep(50 * time.Millisecond)
	if e.backend.Calls("GET /alerts") != calls {
		t.Fatalf("polling continued after the stream closed")
	}
}

func TestStreamRedirectsAnonymous(t *testing.T) {
	e := newEnv(t, nil)
	e.resolve(t)
	s := e.openStream(t, "/dashboard/reports/stream")
	ev := s.next(t, "redirect")
	if !strings.Contains(ev.data, "/login") {
		t.Fatalf("unexpected redirect %s", ev.data)
	}
	if e.console.Count() != 0 {
		t.Fatalf("anonymous stream mounted a view")
	}
}

func TestAlertFlowOverHTTP(t *testing.T) {
	e := newEnv(t, nil)
	e.resolve(t)
	e.backend.PutAlert(deltaapi.Alert{AlertID: "al-9", AssetID: "asset_a7", Title: "Scheur", Severity: "high", Type: "warning", Status: "active", CreatedAt: time.Now()})

	e.login(t, auth.RoleFieldWorker)
	s := e.openStream(t, "/dashboard/alerts/stream")
	id := s.mountID(t)
	waitFor(t, "alerts loaded", func() bool {
		var snap console.Snapshot
		decode(t, e.do(t, http.MethodGet, "/mounts/"+id, nil), &snap)
		return snap.Alerts != nil && len(snap.Alerts.Alerts) == 1
	})

	resp := e.do(t, http.MethodPost, "/mounts/"+id+"/alerts/al-9/acknowledge", nil)
	var snap console.Snapshot
	decode(t, resp, &snap)
	if resp.StatusCode != http.StatusOK || snap.Alerts == nil || snap.Alerts.Alerts[0].Status != "acknowledged" {
		t.Fatalf("acknowledge: %d %+v", resp.StatusCode, snap.Alerts)
	}
	if resp := e.do(t, http.MethodPost, "/mounts/"+id+"/alerts/al-9/resolve", nil); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("field worker resolve: %d", resp.StatusCode)
	}
	s.cancel()

	e.do(t, http.MethodPost, "/api/logout", nil)
	e.login(t, auth.RoleManager)
	s = e.openStream(t, "/dashboard/alerts/stream")
	id = s.mountID(t)
	waitFor(t, "alerts loaded", func() bool {
		var snap console.Snapshot
		decode(t, e.do(t, http.MethodGet, "/mounts/"+id, nil), &snap)
		return snap.Alerts != nil && len(snap.Alerts.Alerts) == 1
	})
	resp = e.do(t, http.MethodPost, "/mounts/"+id+"/alerts/al-9/resolve", nil)
	snap = console.Snapshot{}
	decode(t, resp, &snap)
	if resp.StatusCode != http.StatusOK || snap.Alerts == nil || snap.Alerts.Alerts[0].Status != "resolved" {
		t.Fatalf("manager resolve: %d %+v", resp.StatusCode, snap.Alerts)
	}
	if resp := e.do(t, http.MethodPost, "/mounts/"+id+"/alerts/al-9/resolve", nil); resp.StatusCode != http.StatusConflict {
		t.Fatalf("resolving a resolved alert: %d", resp.StatusCode)
	}
}

func TestMonitoringSelectOverHTTP(t *testing.T) {
	e := newEnv(t, nil)
	e.resolve(t)
	e.login(t, auth.RoleFieldWorker)
	s := e.openStream(t, "/dashboard/monitoring/stream")
	id := s.mountID(t)
	waitFor(t, "seeded assets", func() bool {
		var snap console.Snapshot
		decode(t, e.do(t, http.MethodGet, "/mounts/"+id, nil), &snap)
		return snap.Monitoring != nil && len(snap.Monitoring.Assets) == 5
	})

	var out selectResponse
	resp := e.do(t, http.MethodPost, "/mounts/"+id+"/select", map[string]string{"asset_id": "asset_afsluitdijk", "source": "list"})
	decode(t, resp, &out)
	if !out.Applied || out.Selection.Camera == nil || out.Selection.Camera.Latitude != 52.93 || out.Selection.Camera.Longitude != 5.25 {
		t.Fatalf("unexpected selection %+v", out)
	}
	frame := s.next(t, "map")
	if !strings.Contains(frame.data, "fly_to") && !strings.Contains(frame.data, "entities") {
		t.Fatalf("unexpected map frame %s", frame.data)
	}

	resp = e.do(t, http.MethodPost, "/mounts/"+id+"/map", map[string]string{"kind": "click", "asset_id": "gone"})
	out = selectResponse{}
	decode(t, resp, &out)
	if out.Applied || out.Selection.Selected == nil || out.Selection.Selected.ID != "asset_afsluitdijk" {
		t.Fatalf("stale marker changed selection: %+v", out)
	}
	if resp := e.do(t, http.MethodPost, "/mounts/"+id+"/select", map[string]string{"asset_id": "asset_a7", "source": "telepathy"}); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown source accepted: %d", resp.StatusCode)
	}
}

func TestContactValidation(t *testing.T) {
	e := newEnv(t, nil)
	bad := deltaapi.ContactRequest{Name: "Jan", Email: "geen-email", Message: "Hallo daar, graag contact"}
	if resp := e.do(t, http.MethodPost, "/api/contact", bad); resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("invalid email accepted: %d", resp.StatusCode)
	}
	short := deltaapi.ContactRequest{Name: "Jan", Email: "jan@delta.nl", Message: "kort"}
	if resp := e.do(t, http.MethodPost, "/api/contact", short); resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("short message accepted: %d", resp.StatusCode)
	}
	good := deltaapi.ContactRequest{Name: "Jan", Email: "jan@delta.nl", Organization: "Waterschap", Message: "Graag een demo van het dashboard"}
	if resp := e.do(t, http.MethodPost, "/api/contact", good); resp.StatusCode != http.StatusOK {
		t.Fatalf("valid contact rejected: %d", resp.StatusCode)
	}
	if e.backend.Calls("POST /contact") != 1 {
		t.Fatalf("contact not forwarded exactly once")
	}
}

func TestExportRequiresLoginAndRendersPDF(t *testing.T) {
	e := newEnv(t, nil)
	e.resolve(t)
	if resp := e.do(t, http.MethodGet, "/reports/export.pdf", nil); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anonymous export: %d", resp.StatusCode)
	}
	e.login(t, auth.RoleManager)
	resp := e.do(t, http.MethodGet, "/reports/export.pdf", nil)
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "application/pdf" {
		t.Fatalf("export: %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	if resp := e.do(t, http.MethodGet, "/reports/export.csv", nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown format: %d", resp.StatusCode)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	e := newEnv(t, nil)
	if resp := e.do(t, http.MethodGet, "/healthz", nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz: %d", resp.StatusCode)
	}
	if resp := e.do(t, http.MethodGet, "/metrics", nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics: %d", resp.StatusCode)
	}
}

func TestValidateContactLimits(t *testing.T) {
	long := strings.Repeat("a", 101)
	cases := []struct {
		name string
		req  deltaapi.ContactRequest
		ok   bool
	}{
		{"valid", deltaapi.ContactRequest{Name: "Jan", Email: "jan@delta.nl", Message: "tien tekens"}, true},
		{"empty name", deltaapi.ContactRequest{Name: " ", Email: "jan@delta.nl", Message: "tien tekens"}, false},
		{"long name", deltaapi.ContactRequest{Name: long, Email: "jan@delta.nl", Message: "tien tekens"}, false},
		{"display name email", deltaapi.ContactRequest{Name: "Jan", Email: "Jan <jan@delta.nl>", Message: "tien tekens"}, false},
		{"long organization", deltaapi.ContactRequest{Name: "Jan", Email: "jan@delta.nl", Organization: strings.Repeat("o", 201), Message: "tien tekens"}, false},
		{"long message", deltaapi.ContactRequest{Name: "Jan", Email: "jan@delta.nl", Message: strings.Repeat("m", 2001)}, false},
	}
	for _, tc := range cases {
		if got := validateContact(tc.req) == ""; got != tc.ok {
			t.Fatalf("%s: expected ok=%v", tc.name, tc.ok)
		}
	}
}

func TestMapToken(t *testing.T) {
	e := newEnv(t, nil)
	if resp := e.do(t, http.MethodGet, "/api/map/token", nil); resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("unconfigured token: %d", resp.StatusCode)
	}

	e = newEnv(t, func(cfg *Config) { cfg.MapToken = "ion-abc" })
	var body map[string]string
	resp := e.do(t, http.MethodGet, "/api/map/token", nil)
	decode(t, resp, &body)
	if resp.StatusCode != http.StatusOK || body["token"] != "ion-abc" {
		t.Fatalf("token: %d %v", resp.StatusCode, body)
	}
}
