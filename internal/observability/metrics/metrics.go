package metrics

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "delta_"

	resultSuccess = "success"
	resultError   = "error"
	resultDenied  = "denied"
)

var (
	registerOnce sync.Once

	pollTicks   *prometheus.CounterVec
	pollLatency *prometheus.HistogramVec

	seedTotal *prometheus.CounterVec

	authEvents      *prometheus.CounterVec
	accessDecisions *prometheus.CounterVec

	alertTransitions *prometheus.CounterVec
	assetMutations   *prometheus.CounterVec

	reportExportTotal   *prometheus.CounterVec
	reportExportLatency *prometheus.HistogramVec

	activeMounts *prometheus.GaugeVec
)

// Init registers console metrics. db, when set, backs the audit gauge.
func Init(db *sql.DB, logger *log.Logger) {
	registerOnce.Do(func() {
		pollTicks = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "poll_ticks_total",
				Help: "Total poll ticks by resource and result",
			},
			[]string{"resource", "result"},
		)
		pollLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "poll_latency_seconds",
				Help:    "Poll fetch latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"resource"},
		)

		seedTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "seed_total",
				Help: "Total seed bootstrap calls by result",
			},
			[]string{"result"},
		)

		authEvents = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "auth_events_total",
				Help: "Total session lifecycle events by type",
			},
			[]string{"event"},
		)
		accessDecisions = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "access_decisions_total",
				Help: "Total route access decisions by outcome",
			},
			[]string{"outcome"},
		)

		alertTransitions = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "alert_transitions_total",
				Help: "Total alert transitions by action and result",
			},
			[]string{"action", "result"},
		)
		assetMutations = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "asset_mutations_total",
				Help: "Total asset mutations by action and result",
			},
			[]string{"action", "result"},
		)

		reportExportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "report_export_total",
				Help: "Total report exports by format and result",
			},
			[]string{"format", "result"},
		)
		reportExportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "report_export_latency_seconds",
				Help:    "Report export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format"},
		)

		activeMounts = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "active_mounts",
				Help: "Currently mounted dashboard views",
			},
			[]string{"view"},
		)

		prometheus.MustRegister(
			pollTicks,
			pollLatency,
			seedTotal,
			authEvents,
			accessDecisions,
			alertTransitions,
			assetMutations,
			reportExportTotal,
			reportExportLatency,
			activeMounts,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// ObservePoll records one poll tick.
func ObservePoll(resource, result string, duration time.Duration) {
	if resource == "" {
		resource = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if pollTicks != nil {
		pollTicks.WithLabelValues(resource, result).Inc()
	}
	if pollLatency != nil {
		pollLatency.WithLabelValues(resource).Observe(duration.Seconds())
	}
}

// IncSeed counts a seed bootstrap call.
func IncSeed(result string) {
	if result == "" {
		result = resultSuccess
	}
	if seedTotal != nil {
		seedTotal.WithLabelValues(result).Inc()
	}
}

// IncAuthEvent counts a session lifecycle event such as login or probe_failed.
func IncAuthEvent(event string) {
	if event == "" {
		event = "unknown"
	}
	if authEvents != nil {
		authEvents.WithLabelValues(event).Inc()
	}
}

// IncAccessDecision counts a route access outcome.
func IncAccessDecision(outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	if accessDecisions != nil {
		accessDecisions.WithLabelValues(outcome).Inc()
	}
}

// IncAlertTransition counts an acknowledge or resolve attempt.
func IncAlertTransition(action, result string) {
	if action == "" {
		action = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if alertTransitions != nil {
		alertTransitions.WithLabelValues(action, result).Inc()
	}
}

// IncAssetMutation counts a create, update or delete attempt.
func IncAssetMutation(action, result string) {
	if action == "" {
		action = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if assetMutations != nil {
		assetMutations.WithLabelValues(action, result).Inc()
	}
}

// ObserveReportExport records export latency and result.
func ObserveReportExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if reportExportTotal != nil {
		reportExportTotal.WithLabelValues(format, result).Inc()
	}
	if reportExportLatency != nil {
		reportExportLatency.WithLabelValues(format).Observe(duration.Seconds())
	}
}

// AddActiveMounts moves the mounted view gauge by delta.
func AddActiveMounts(view string, delta int) {
	if view == "" {
		view = "unknown"
	}
	if activeMounts != nil {
		activeMounts.WithLabelValues(view).Add(float64(delta))
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
	ResultDenied  = resultDenied
)
