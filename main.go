package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"digital-delta/internal/access"
	"digital-delta/internal/audit"
	"digital-delta/internal/console"
	consolehttp "digital-delta/internal/console/http"
	"digital-delta/internal/deltaapi"
	"digital-delta/internal/observability/metrics"
	"digital-delta/internal/reports"
	"digital-delta/internal/session"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("dotenv load error: %v", err)
	}
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var db *sql.DB
	var sink audit.Logger = audit.NewLogWriter(logger)
	if cfg.DatabaseURL != "" {
		var err error
		db, err = audit.Open(cfg.DatabaseURL)
		if err != nil {
			logger.Fatalf("db open error: %v", err)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			logger.Fatalf("db ping error: %v", err)
		}
		repo := audit.NewRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			logger.Fatalf("audit schema error: %v", err)
		}
		sink = repo
	}
	metrics.Init(db, logger)
	recorder := audit.NewRecorder(sink, logger)

	client, err := deltaapi.NewClient(cfg.APIBaseURL, deltaapi.WithTimeout(cfg.APITimeout))
	if err != nil {
		logger.Fatalf("delta api client error: %v", err)
	}

	store, err := session.NewStore(client, cfg.PublicURL,
		session.WithLogger(logger),
		session.WithRecorder(recorder),
		session.WithProviderURL(cfg.ProviderURL),
	)
	if err != nil {
		logger.Fatalf("session store error: %v", err)
	}
	store.Initialize(ctx)

	dashboard, err := console.New(client,
		console.WithLogger(logger),
		console.WithRecorder(recorder),
		console.WithIntervals(cfg.Intervals),
	)
	if err != nil {
		logger.Fatalf("console error: %v", err)
	}
	defer dashboard.Close()

	limiter := consolehttp.NewRateLimiter(cfg.LoginRateLimit, cfg.LoginRateWindow)
	handler, err := consolehttp.NewHandler(consolehttp.Config{
		Store:     store,
		Router:    access.NewRouter(access.DefaultRoutes(), logger),
		Console:   dashboard,
		Contact:   client,
		Reports:   client,
		Recorder:  recorder,
		Logger:    logger,
		Limiter:   limiter,
		KeepAlive: cfg.KeepAlive,
		MapToken:  cfg.MapToken,
	})
	if err != nil {
		logger.Fatalf("console handler error: %v", err)
	}

	if cfg.Reports.Schedule != "" {
		scheduler, err := reports.NewScheduler(cfg.Reports.Schedule, cfg.Reports.ExportDir, client, logger)
		if err != nil {
			logger.Fatalf("report scheduler error: %v", err)
		}
		scheduler.Start()
		defer scheduler.Stop()
		logger.Printf("report export scheduled %q into %s", cfg.Reports.Schedule, cfg.Reports.ExportDir)
	}

	go sweepLimiter(ctx, limiter, cfg.LoginRateWindow, logger)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           loggingMiddleware(handler.Routes(), logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Printf("http shutdown error: %v", err)
		}
	}()

	logger.Printf("console listening on %s (backend %s)", cfg.HTTPAddr, cfg.APIBaseURL)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("http server error: %v", err)
	}
}

func sweepLimiter(ctx context.Context, limiter *consolehttp.RateLimiter, every time.Duration, logger *log.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := limiter.Sweep(); removed > 0 {
				logger.Printf("rate limiter swept %d idle clients", removed)
			}
		}
	}
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Flush keeps event streams working behind the access log.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
