package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"digital-delta/internal/deltaapi"
)

type stubBackend struct {
	meCalls       atomic.Int32
	exchangeCalls atomic.Int32
	meGate        chan struct{}
	me            deltaapi.User
	meErr         error
	loginErr      error
	exchangeDelay time.Duration
	exchangeErr   error
	logoutErr     error
}

func (b *stubBackend) Me(ctx context.Context) (deltaapi.User, error) {
	b.meCalls.Add(1)
	if b.meGate != nil {
		select {
		case <-b.meGate:
		case <-ctx.Done():
			return deltaapi.User{}, ctx.Err()
		}
	}
	return b.me, b.meErr
}

func (b *stubBackend) Login(_ context.Context, email, _ string) (deltaapi.LoginResponse, error) {
	if b.loginErr != nil {
		return deltaapi.LoginResponse{}, b.loginErr
	}
	return deltaapi.LoginResponse{User: deltaapi.User{UserID: "u-login", Email: email, Role: "manager"}}, nil
}

func (b *stubBackend) ExchangeSession(_ context.Context, sessionID string) (deltaapi.LoginResponse, error) {
	b.exchangeCalls.Add(1)
	time.Sleep(b.exchangeDelay)
	if b.exchangeErr != nil {
		return deltaapi.LoginResponse{}, b.exchangeErr
	}
	return deltaapi.LoginResponse{User: deltaapi.User{UserID: "u-" + sessionID, Role: "field_worker"}}, nil
}

func (b *stubBackend) Logout(context.Context) error {
	return b.logoutErr
}

func (b *stubBackend) Register(_ context.Context, req deltaapi.RegisterRequest) (map[string]any, error) {
	return map[string]any{"email": req.Email}, nil
}

func newStore(t *testing.T, backend *stubBackend) *Store {
	t.Helper()
	store, err := NewStore(backend, "http://console.local:8090/")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store
}

func waitResolved(t *testing.T, store *Store) State {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	state, err := store.Wait(ctx)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	return state
}

func TestStore_StartsLoading(t *testing.T) {
	store := newStore(t, &stubBackend{})
	state := store.Snapshot()
	if !state.IsLoading || state.User != nil {
		t.Fatalf("expected unresolved state, got %+v", state)
	}
}

func TestStore_InitializeProbesOnce(t *testing.T) {
	backend := &stubBackend{me: deltaapi.User{UserID: "u1", Role: "admin"}}
	store := newStore(t, backend)
	store.Initialize(context.Background())
	store.Initialize(context.Background())
	state := waitResolved(t, store)
	if state.IsLoading || state.User == nil || state.User.UserID != "u1" {
		t.Fatalf("unexpected state %+v", state)
	}
	store.Initialize(context.Background())
	if got := backend.meCalls.Load(); got != 1 {
		t.Fatalf("expected one probe, got %d", got)
	}
}

func TestStore_ProbeFailureResolvesAnonymous(t *testing.T) {
	store := newStore(t, &stubBackend{meErr: &deltaapi.APIError{Status: 401}})
	store.Initialize(context.Background())
	state := waitResolved(t, store)
	if state.IsLoading || state.Authenticated() {
		t.Fatalf("expected anonymous, got %+v", state)
	}
}

func TestStore_LateProbeDoesNotOverwriteLogin(t *testing.T) {
	backend := &stubBackend{meGate: make(chan struct{}), meErr: errors.New("unauthorized")}
	store := newStore(t, backend)
	changes, stop := store.Changes()
	defer stop()
	store.Initialize(context.Background())

	if _, err := store.Login(context.Background(), "jan@delta.nl", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}
	<-changes
	close(backend.meGate)
	deadline := time.Now().Add(time.Second)
	for backend.meCalls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)
	state := store.Snapshot()
	if state.User == nil || state.User.Email != "jan@delta.nl" {
		t.Fatalf("probe overwrote login: %+v", state)
	}
}

func TestStore_LoginErrorPropagatesUntouched(t *testing.T) {
	want := &deltaapi.APIError{Status: 401, Detail: "Ongeldige inloggegevens"}
	store := newStore(t, &stubBackend{loginErr: want})
	_, err := store.Login(context.Background(), "x@delta.nl", "bad")
	var got *deltaapi.APIError
	if !errors.As(err, &got) || got != want {
		t.Fatalf("expected original error, got %v", err)
	}
	if store.Snapshot().Authenticated() {
		t.Fatalf("failed login must not authenticate")
	}
}

func TestStore_RegisterDoesNotLogIn(t *testing.T) {
	store := newStore(t, &stubBackend{})
	payload, err := store.Register(context.Background(), deltaapi.RegisterRequest{Email: "nieuw@delta.nl", Password: "geheim1", Name: "Nieuw"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if payload["email"] != "nieuw@delta.nl" {
		t.Fatalf("payload not passed through: %v", payload)
	}
	if store.Snapshot().Authenticated() {
		t.Fatalf("register must not authenticate")
	}
}

func TestStore_ExternalLoginURL(t *testing.T) {
	store := newStore(t, &stubBackend{})
	want := "https://auth.emergentagent.com/?redirect=http%3A%2F%2Fconsole.local%3A8090%2Fdashboard"
	if got := store.ExternalLoginURL(); got != want {
		t.Fatalf("unexpected url %q", got)
	}
}

func TestSessionIDFromFragment(t *testing.T) {
	cases := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"http://console.local/dashboard#session_id=abc123", "abc123", true},
		{"http://console.local/dashboard#foo=1&session_id=tok", "tok", true},
		{"http://console.local/dashboard?session_id=abc123", "", false},
		{"http://console.local/dashboard?session_id=q#other=1", "", false},
		{"#session_id=frag", "frag", true},
		{"http://console.local/dashboard#session_id=abc+def", "abc+def", true},
		{"http://console.local/dashboard#session_id=a%2Fb", "a%2Fb", true},
		{"http://console.local/#/callback?session_id=tok1", "tok1", true},
		{"http://console.local/dashboard#session_id=tok2;x", "tok2;x", true},
		{"http://console.local/dashboard#session_id=", "", false},
		{"http://console.local/dashboard#", "", false},
	}
	for _, tc := range cases {
		got, ok := SessionIDFromFragment(tc.raw)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("%s: got %q ok=%v", tc.raw, got, ok)
		}
	}
}

func TestStore_CallbackExchangesOncePerToken(t *testing.T) {
	backend := &stubBackend{exchangeDelay: 20 * time.Millisecond}
	store := newStore(t, backend)

	var wg sync.WaitGroup
	results := make([]CallbackResult, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := store.CompleteExternalCallback(context.Background(), "http://console.local/dashboard#session_id=tok-1")
			if err != nil {
				t.Errorf("callback %d: %v", i, err)
			}
			results[i] = res
		}(i)
	}
	wg.Wait()

	if got := backend.exchangeCalls.Load(); got != 1 {
		t.Fatalf("expected one exchange, got %d", got)
	}
	navigated := 0
	for _, res := range results {
		if res.Navigate == "/dashboard" && res.Replace {
			navigated++
		}
	}
	if navigated != 1 {
		t.Fatalf("expected exactly one navigation, got %+v", results)
	}
	if state := store.Snapshot(); state.User == nil || state.User.UserID != "u-tok-1" {
		t.Fatalf("unexpected state %+v", state)
	}
}

func TestStore_CallbackFailureRoutesToLogin(t *testing.T) {
	store := newStore(t, &stubBackend{exchangeErr: errors.New("invalid session")})
	res, err := store.CompleteExternalCallback(context.Background(), "http://console.local/#session_id=bad")
	if err == nil || res.Navigate != "/login" {
		t.Fatalf("expected login navigation, got %+v err=%v", res, err)
	}
	res, err = store.CompleteExternalCallback(context.Background(), "http://console.local/dashboard")
	if !errors.Is(err, ErrNoSessionID) || res.Navigate != "/login" {
		t.Fatalf("expected missing fragment error, got %+v err=%v", res, err)
	}
}

func TestStore_LogoutClearsEvenOnFailure(t *testing.T) {
	store := newStore(t, &stubBackend{logoutErr: errors.New("network down")})
	if _, err := store.Login(context.Background(), "jan@delta.nl", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}
	store.Logout(context.Background())
	state := store.Snapshot()
	if state.Authenticated() || state.IsLoading {
		t.Fatalf("expected anonymous after logout, got %+v", state)
	}
}
