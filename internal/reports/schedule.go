package reports

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"

	"digital-delta/internal/observability/metrics"
)

// Scheduler writes PDF and XLSX reports to a directory on a cron schedule.
type Scheduler struct {
	source  Source
	dir     string
	logger  *log.Logger
	timeout time.Duration
	now     func() time.Time
	cron    *cron.Cron
}

// NewScheduler validates the schedule and prepares the job. Call Start to run it.
func NewScheduler(schedule, dir string, source Source, logger *log.Logger) (*Scheduler, error) {
	if source == nil {
		return nil, fmt.Errorf("reports: source required")
	}
	if dir == "" {
		return nil, fmt.Errorf("reports: export dir required")
	}
	if logger == nil {
		logger = log.Default()
	}
	s := &Scheduler{
		source:  source,
		dir:     dir,
		logger:  logger,
		timeout: 30 * time.Second,
		now:     time.Now,
		cron:    cron.New(),
	}
	if _, err := s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if _, err := s.RunOnce(ctx); err != nil {
			s.logger.Printf("report export error: %v", err)
		}
	}); err != nil {
		return nil, fmt.Errorf("reports: schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start begins the cron loop.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the loop and waits for a running export.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// RunOnce builds the report and writes both formats. It returns the written paths.
func (s *Scheduler) RunOnce(ctx context.Context) ([]string, error) {
	now := s.now()
	summary, list, err := Build(ctx, s.source, s.logger, now)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, err
	}
	stamp := now.UTC().Format("20060102-150405")
	paths := make([]string, 0, 2)
	for _, format := range []Format{FormatPDF, FormatXLSX} {
		start := time.Now()
		data, err := Render(format, summary, list)
		if err != nil {
			metrics.ObserveReportExport(string(format), metrics.ResultError, time.Since(start))
			return paths, err
		}
		path := filepath.Join(s.dir, fmt.Sprintf("delta-report-%s.%s", stamp, format))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			metrics.ObserveReportExport(string(format), metrics.ResultError, time.Since(start))
			return paths, err
		}
		metrics.ObserveReportExport(string(format), metrics.ResultSuccess, time.Since(start))
		paths = append(paths, path)
	}
	s.logger.Printf("report export wrote %d files to %s", len(paths), s.dir)
	return paths, nil
}
