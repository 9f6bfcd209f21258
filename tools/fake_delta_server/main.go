package main

import (
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"digital-delta/internal/deltaapi/fakeserver"
)

// demoUsers are created at startup, one per role. Password for all of them: FAKE_DELTA_PASSWORD.
var demoUsers = []struct {
	email, name, role string
}{
	{"admin@digitaldelta.nl", "Demo Beheerder", "admin"},
	{"manager@digitaldelta.nl", "Demo Manager", "manager"},
	{"veld@digitaldelta.nl", "Demo Veldwerker", "field_worker"},
}

func main() {
	addr := getenvDefault("FAKE_DELTA_ADDR", ":18081")
	secret := getenvDefault("FAKE_DELTA_SECRET", "")
	password := getenvDefault("FAKE_DELTA_PASSWORD", "delta123")
	latency := getenvDuration("FAKE_DELTA_LATENCY", 0)
	external := getenvDefault("FAKE_DELTA_EXTERNAL_SESSIONS", "")

	logger := log.New(os.Stdout, "", log.LstdFlags)

	var opts []fakeserver.Option
	if secret != "" {
		opts = append(opts, fakeserver.WithSecret([]byte(secret)))
	}
	srv := fakeserver.New(opts...)
	for _, u := range demoUsers {
		if _, err := srv.AddUser(u.email, password, u.name, u.role); err != nil {
			logger.Fatalf("add user %s error: %v", u.email, err)
		}
	}
	// FAKE_DELTA_EXTERNAL_SESSIONS=tok1=admin@digitaldelta.nl,tok2=...
	for _, pair := range strings.Split(external, ",") {
		token, email, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || token == "" || email == "" {
			continue
		}
		srv.AddExternalSession(token, email)
	}
	if latency > 0 {
		for _, key := range []string{"GET /assets", "GET /alerts", "GET /analytics/overview", "GET /sensors/live/{id}"} {
			srv.DelayPath(key, latency)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/", srv)

	logger.Printf("fake delta backend listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Fatalf("fake delta backend error: %v", err)
	}
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}
