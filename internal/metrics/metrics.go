package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP request metrics for API server
var (
	// HTTPRequestDuration tracks the duration of HTTP requests
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests by method, path, and status",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestsTotal counts the total number of HTTP requests
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests by method, path, and status",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestsThrottled counts requests rejected by the rate limiter
	HTTPRequestsThrottled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "http_requests_throttled_total",
			Help: "Total number of HTTP requests rejected by the rate limiter",
		},
	)
)

// Aggregation pass metrics
var (
	// SnapshotLoads counts snapshot loads by result ("success" or "error")
	SnapshotLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voicemon_snapshot_loads_total",
			Help: "Total number of snapshot loads by result",
		},
		[]string{"result"},
	)

	// SnapshotLoadDuration tracks how long both store reads and the join take
	SnapshotLoadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "voicemon_snapshot_load_duration_seconds",
			Help:    "Duration of snapshot loads including both store reads and the join",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
		},
	)

	// SnapshotConversations reports the size of the last loaded snapshot
	SnapshotConversations = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "voicemon_snapshot_conversations",
			Help: "Number of joined conversations in the most recent snapshot",
		},
	)

	// OrphanScores counts QA scores dropped because their usage event was missing
	OrphanScores = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "voicemon_orphan_qa_scores_total",
			Help: "Total number of QA scores excluded from joins for lack of an owning usage event",
		},
	)

	// StoreErrors counts failed store reads by store name
	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voicemon_store_errors_total",
			Help: "Total number of failed store reads by store",
		},
		[]string{"store"},
	)

	// AlertsGenerated counts derived alerts by severity and kind
	AlertsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voicemon_alerts_generated_total",
			Help: "Total number of alerts derived by severity and kind",
		},
		[]string{"severity", "kind"},
	)

	// ProjectedMonthlyCost reports the last computed projection
	ProjectedMonthlyCost = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "voicemon_projected_monthly_cost",
			Help: "Most recent 7-day-average x 30 monthly cost projection",
		},
	)

	// ActiveAlerts reports the alerts present at the last monitor evaluation
	ActiveAlerts = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "voicemon_active_alerts",
			Help: "Alerts present at the last monitor evaluation by severity",
		},
		[]string{"severity"},
	)

	// MonitorEvaluations counts background evaluation passes by result
	MonitorEvaluations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voicemon_monitor_evaluations_total",
			Help: "Total number of background evaluation passes by result",
		},
		[]string{"result"},
	)
)

// Helper functions for common metric operations

// RecordHTTPRequest records the duration and increments the counter for an HTTP request
func RecordHTTPRequest(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordThrottled increments the throttled request counter
func RecordThrottled() {
	HTTPRequestsThrottled.Inc()
}

// RecordSnapshotLoad records the outcome of one snapshot load
func RecordSnapshotLoad(conversations, orphans int, duration time.Duration) {
	SnapshotLoads.WithLabelValues("success").Inc()
	SnapshotLoadDuration.Observe(duration.Seconds())
	SnapshotConversations.Set(float64(conversations))
	if orphans > 0 {
		OrphanScores.Add(float64(orphans))
	}
}

// RecordSnapshotFailure records a load that produced no snapshot
func RecordSnapshotFailure(store string) {
	SnapshotLoads.WithLabelValues("error").Inc()
	StoreErrors.WithLabelValues(store).Inc()
}

// RecordAlert increments the alert counter
func RecordAlert(severity, kind string) {
	AlertsGenerated.WithLabelValues(severity, kind).Inc()
}

// RecordProjection sets the projected monthly cost gauge
func RecordProjection(amount float64) {
	ProjectedMonthlyCost.Set(amount)
}

// RecordEvaluation records one monitor pass and its alert counts by severity
func RecordEvaluation(counts map[string]int) {
	MonitorEvaluations.WithLabelValues("success").Inc()
	for _, severity := range []string{"info", "warning", "error"} {
		ActiveAlerts.WithLabelValues(severity).Set(float64(counts[severity]))
	}
}

// RecordEvaluationFailure records a monitor pass that produced no dashboard
func RecordEvaluationFailure() {
	MonitorEvaluations.WithLabelValues("error").Inc()
}
