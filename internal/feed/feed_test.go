package feed

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"digital-delta/internal/deltaapi"
	"digital-delta/internal/deltaapi/fakeserver"
)

var quiet = log.New(io.Discard, "", 0)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestStart_FetchesImmediatelyAndOnTicks(t *testing.T) {
	var calls atomic.Int32
	ticker := NewManualTicker()
	dst := New[int32]()
	h := Start(context.Background(), "counter", time.Second, func(context.Context) (int32, error) {
		return calls.Add(1), nil
	}, dst, WithTicker(ticker.Factory()), WithLogger(quiet))
	defer h.Stop()

	waitFor(t, "initial fetch", func() bool { return calls.Load() == 1 })
	ticker.Tick()
	waitFor(t, "second fetch", func() bool { return calls.Load() == 2 })
	waitFor(t, "stored value", func() bool {
		v, ok := dst.Load()
		return ok && v == 2
	})
}

func TestStop_NoFurtherCalls(t *testing.T) {
	var calls atomic.Int32
	ticker := NewManualTicker()
	h := Start(context.Background(), "counter", time.Second, func(context.Context) (int, error) {
		calls.Add(1)
		return 0, nil
	}, New[int](), WithTicker(ticker.Factory()), WithLogger(quiet))
	waitFor(t, "initial fetch", func() bool { return calls.Load() == 1 })

	h.Stop()
	before := calls.Load()
	ticker.Tick()
	ticker.Tick()
	time.Sleep(20 * time.Millisecond)
	if got := calls.Load(); got != before {
		t.Fatalf("fetches after stop: before=%d after=%d", before, got)
	}
	if !ticker.Stopped() {
		t.Fatalf("ticker not stopped")
	}
	h.Stop()
}

func TestStop_WallClockTimerLeavesNoCalls(t *testing.T) {
	var calls atomic.Int32
	h := Start(context.Background(), "wall", 5*time.Millisecond, func(context.Context) (int, error) {
		calls.Add(1)
		return 0, nil
	}, New[int](), WithLogger(quiet))
	waitFor(t, "a few ticks", func() bool { return calls.Load() >= 3 })
	h.Stop()
	after := calls.Load()
	time.Sleep(30 * time.Millisecond)
	if got := calls.Load(); got != after {
		t.Fatalf("timer leaked: %d calls after stop", got-after)
	}
}

func TestStop_InFlightResultDiscarded(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	dst := New[string]()
	h := Start(context.Background(), "slow", 0, func(ctx context.Context) (string, error) {
		close(started)
		select {
		case <-release:
		case <-ctx.Done():
		}
		return "late", nil
	}, dst, WithLogger(quiet))
	<-started
	h.Stop()
	close(release)
	if _, ok := dst.Load(); ok {
		t.Fatalf("result stored after stop")
	}
}

func TestFailedTickKeepsSnapshot(t *testing.T) {
	ticker := NewManualTicker()
	dst := New[string]()
	var calls atomic.Int32
	h := Start(context.Background(), "flaky", time.Second, func(context.Context) (string, error) {
		if calls.Add(1) == 1 {
			return "good", nil
		}
		return "", errors.New("network down")
	}, dst, WithTicker(ticker.Factory()), WithLogger(quiet))
	defer h.Stop()
	waitFor(t, "first value", func() bool { _, ok := dst.Load(); return ok })
	ticker.Tick()
	waitFor(t, "failed tick", func() bool { return calls.Load() == 2 })
	ticker.Tick()
	waitFor(t, "schedule continues", func() bool { return calls.Load() == 3 })
	if v, _ := dst.Load(); v != "good" {
		t.Fatalf("snapshot replaced by failure: %q", v)
	}
}

func TestLastCompletedWins(t *testing.T) {
	ticker := NewManualTicker()
	dst := New[string]()
	slow := make(chan struct{})
	var calls atomic.Int32
	h := Start(context.Background(), "overlap", time.Second, func(ctx context.Context) (string, error) {
		if calls.Add(1) == 1 {
			<-slow
			return "first-issued", nil
		}
		return "second-issued", nil
	}, dst, WithTicker(ticker.Factory()), WithLogger(quiet))
	defer h.Stop()
	waitFor(t, "first fetch started", func() bool { return calls.Load() == 1 })
	ticker.Tick()
	waitFor(t, "second stored", func() bool { v, _ := dst.Load(); return v == "second-issued" })
	close(slow)
	waitFor(t, "first stored last", func() bool { v, _ := dst.Load(); return v == "first-issued" })
}

func newFake(t *testing.T) (*deltaapi.Client, *fakeserver.Server) {
	t.Helper()
	backend := fakeserver.New()
	server := httptest.NewServer(backend)
	t.Cleanup(server.Close)
	client, err := deltaapi.NewClient(server.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := backend.AddUser("m@delta.nl", "geheim123", "M", "manager"); err != nil {
		t.Fatalf("add user: %v", err)
	}
	if _, err := client.Login(context.Background(), "m@delta.nl", "geheim123"); err != nil {
		t.Fatalf("login: %v", err)
	}
	return client, backend
}

func TestSeedOnce_EmptyBootstrapFiresOncePerMount(t *testing.T) {
	client, backend := newFake(t)
	ticker := NewManualTicker()
	seed := NewSeedOnce(client, quiet)
	dst := New[[]deltaapi.Asset]()
	h := Start(context.Background(), "assets", time.Second, seed.Fetch, dst, WithTicker(ticker.Factory()), WithLogger(quiet))
	defer h.Stop()

	waitFor(t, "seeded collection", func() bool { v, _ := dst.Load(); return len(v) > 0 })
	if backend.Calls("POST /seed") != 1 || backend.Calls("GET /assets") != 2 {
		t.Fatalf("expected list, seed, list; got seed=%d list=%d", backend.Calls("POST /seed"), backend.Calls("GET /assets"))
	}

	backend.ClearAssets()
	ticker.Tick()
	waitFor(t, "empty poll", func() bool { return backend.Calls("GET /assets") == 3 })
	waitFor(t, "empty stored", func() bool { v, _ := dst.Load(); return len(v) == 0 })
	if got := backend.Calls("POST /seed"); got != 1 {
		t.Fatalf("seed fired again on later empty poll: %d", got)
	}

	// a new mount gets its own bootstrap
	if _, err := NewSeedOnce(client, quiet).Fetch(context.Background()); err != nil {
		t.Fatalf("second mount fetch: %v", err)
	}
	if got := backend.Calls("POST /seed"); got != 2 {
		t.Fatalf("expected a seed for the new mount, got %d", got)
	}
}

func TestSeedOnce_NonEmptyNeverSeeds(t *testing.T) {
	client, backend := newFake(t)
	backend.PutAsset(deltaapi.Asset{AssetID: "A1", Name: "x", Type: "road", Status: "operational", HealthScore: 80})
	seed := NewSeedOnce(client, quiet)
	list, err := seed.Fetch(context.Background())
	if err != nil || len(list) != 1 {
		t.Fatalf("fetch: %v %+v", err, list)
	}
	if backend.Calls("POST /seed") != 0 || seed.Seeded() {
		t.Fatalf("non-empty collection must not seed")
	}
}

func TestEntityPoll_RestartsOnChangeAndStopsOnClear(t *testing.T) {
	ticker := NewManualTicker()
	dst := New[string]()
	var callsA, callsB atomic.Int32
	p := NewEntityPoll(context.Background(), "sensors", time.Second, func(_ context.Context, id string) (string, error) {
		switch id {
		case "A":
			callsA.Add(1)
		case "B":
			callsB.Add(1)
		}
		return id, nil
	}, dst, WithTicker(ticker.Factory()), WithLogger(quiet))
	defer p.Stop()

	if p.Running() {
		t.Fatalf("no selection must mean no poller")
	}
	p.Set("A")
	waitFor(t, "A fetched", func() bool { v, _ := dst.Load(); return v == "A" })
	p.Set("A")
	if callsA.Load() != 1 {
		t.Fatalf("re-setting the same id restarted the poll")
	}

	p.Set("B")
	waitFor(t, "B fetched", func() bool { v, _ := dst.Load(); return v == "B" })
	aBefore := callsA.Load()
	ticker.Tick()
	waitFor(t, "B ticked", func() bool { return callsB.Load() == 2 })
	if callsA.Load() != aBefore {
		t.Fatalf("old entity still polled")
	}

	p.Set("")
	if p.Running() || p.Current() != "" {
		t.Fatalf("clearing selection must stop polling")
	}
	if _, ok := dst.Load(); ok {
		t.Fatalf("readings of the previous entity kept after clear")
	}
	bBefore := callsB.Load()
	ticker.Tick()
	time.Sleep(20 * time.Millisecond)
	if callsB.Load() != bBefore {
		t.Fatalf("poll continued without selection")
	}
}
