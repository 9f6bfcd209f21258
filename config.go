package main

import (
	"errors"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"digital-delta/internal/console"
	"digital-delta/internal/session"
)

// IntervalsConfig overrides the per-view poll periods. Unset fields keep the defaults.
type IntervalsConfig struct {
	Overview   time.Duration `yaml:"overview"`
	Monitoring time.Duration `yaml:"monitoring"`
	Sensors    time.Duration `yaml:"sensors"`
	Assets     time.Duration `yaml:"assets"`
	Alerts     time.Duration `yaml:"alerts"`
	Reports    time.Duration `yaml:"reports"`
	Users      time.Duration `yaml:"users"`
}

// ReportsConfig controls the scheduled export.
type ReportsConfig struct {
	Schedule  string `yaml:"schedule"`
	ExportDir string `yaml:"export_dir"`
}

// FileConfig is the optional CONSOLE_CONFIG yaml file.
type FileConfig struct {
	Intervals IntervalsConfig `yaml:"intervals"`
	Reports   ReportsConfig   `yaml:"reports"`
}

type config struct {
	HTTPAddr        string
	APIBaseURL      string
	APITimeout      time.Duration
	PublicURL       string
	ProviderURL     string
	DatabaseURL     string
	LoginRateLimit  int
	LoginRateWindow time.Duration
	KeepAlive       time.Duration
	MapToken        string
	Intervals       console.Intervals
	Reports         ReportsConfig
}

func loadConfig() config {
	cfg := config{
		HTTPAddr:        getenvDefault("CONSOLE_ADDR", ":8090"),
		APIBaseURL:      getenvDefault("DELTA_API_BASE_URL", ""),
		APITimeout:      getenvDuration("DELTA_API_TIMEOUT", 10*time.Second),
		PublicURL:       getenvDefault("CONSOLE_PUBLIC_URL", "http://localhost:8090"),
		ProviderURL:     getenvDefault("AUTH_PROVIDER_URL", session.DefaultProviderURL),
		DatabaseURL:     getenvDefault("DATABASE_URL", ""),
		LoginRateLimit:  getenvIntDefault("LOGIN_RATE_LIMIT", 10),
		LoginRateWindow: getenvDuration("LOGIN_RATE_WINDOW", time.Minute),
		KeepAlive:       getenvDuration("SSE_KEEPALIVE", 15*time.Second),
		MapToken:        getenvDefault("MAP_TOKEN", getenvDefault("CESIUM_ION_TOKEN", "")),
		Intervals:       console.DefaultIntervals(),
		Reports: ReportsConfig{
			Schedule:  getenvDefault("REPORT_SCHEDULE", ""),
			ExportDir: getenvDefault("REPORT_EXPORT_DIR", filepath.FromSlash("var/reports")),
		},
	}
	if cfg.APIBaseURL == "" {
		log.Fatal("DELTA_API_BASE_URL is required")
	}
	if path := os.Getenv("CONSOLE_CONFIG"); path != "" {
		file, err := readFileConfig(path)
		if err != nil {
			log.Fatalf("console config error: %v", err)
		}
		cfg.apply(file)
	}
	return cfg
}

func readFileConfig(path string) (FileConfig, error) {
	var file FileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return file, err
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return file, err
	}
	if file.Intervals.Sensors < 0 {
		return file, errors.New("console config: negative sensor interval")
	}
	return file, nil
}

func (c *config) apply(file FileConfig) {
	in := file.Intervals
	override := func(dst *time.Duration, value time.Duration) {
		if value > 0 {
			*dst = value
		}
	}
	override(&c.Intervals.Overview, in.Overview)
	override(&c.Intervals.Monitoring, in.Monitoring)
	override(&c.Intervals.Sensors, in.Sensors)
	override(&c.Intervals.Assets, in.Assets)
	override(&c.Intervals.Alerts, in.Alerts)
	override(&c.Intervals.Reports, in.Reports)
	override(&c.Intervals.Users, in.Users)
	if file.Reports.Schedule != "" {
		c.Reports.Schedule = file.Reports.Schedule
	}
	if file.Reports.ExportDir != "" {
		c.Reports.ExportDir = file.Reports.ExportDir
	}
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
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
