// Package metrics provides centralized Prometheus metrics for the watcher daemon.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Check metrics track the per-target fetch/extract/diff/filter pipeline.
var (
	// ChecksTotal counts completed check runs by target and outcome.
	ChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checks_total",
			Help: "Total number of target checks run",
		},
		[]string{"target_id", "outcome"}, // outcome: changed, unchanged, error
	)

	// CheckDuration measures the wall time of one full check run.
	CheckDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "check_duration_seconds",
			Help:    "Time taken to run one target check end to end",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
		[]string{"target_id"},
	)

	// CheckErrorsTotal counts check failures by the stage that failed.
	CheckErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "check_errors_total",
			Help: "Total number of check failures by stage",
		},
		[]string{"target_id", "stage"}, // stage: fetch, extract, store
	)

	// ChangesDetectedTotal counts changes that passed the filter chain.
	ChangesDetectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "changes_detected_total",
			Help: "Total number of changes that passed filtering",
		},
		[]string{"target_id"},
	)

	// ChangesFilteredTotal counts changes suppressed by the filter chain.
	ChangesFilteredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "changes_filtered_total",
			Help: "Total number of detected changes suppressed by filters",
		},
		[]string{"target_id"},
	)

	// DiffSize records the size of each detected diff.
	DiffSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "diff_size_lines",
			Help:    "Number of changed lines in each detected diff",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
		[]string{"target_id"},
	)
)

// Agent metrics track invocations of the reasoning-agent subprocess.
var (
	// AgentInvocationsTotal counts agent subprocess invocations by outcome.
	AgentInvocationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agent_invocations_total",
			Help: "Total number of reasoning-agent invocations",
		},
		[]string{"target_id", "outcome"}, // outcome: success, failed, timeout
	)

	// AgentDuration measures the wall time of one agent subprocess call.
	AgentDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "agent_duration_seconds",
			Help:    "Time taken to invoke the reasoning-agent subprocess",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
	)
)

// Notification metrics track outbound delivery by channel.
var (
	// NotificationsTotal counts notification delivery attempts by channel and outcome.
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Total number of notification delivery attempts",
		},
		[]string{"channel", "outcome"}, // outcome: sent, suppressed, failed
	)

	// NotificationDuration measures time to deliver a notification to a channel.
	NotificationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notification_duration_seconds",
			Help:    "Time taken to deliver a notification",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"channel"},
	)
)

// Rate limiter and store metrics.
var (
	// RateLimiterSleepDuration records how long a fetch waited on the
	// per-domain limiter before being allowed to proceed.
	RateLimiterSleepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rate_limiter_sleep_seconds",
			Help:    "Time a fetch spent waiting on the per-domain rate limiter",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
		[]string{"domain"},
	)

	// TargetsTotal tracks the number of configured targets by enabled state.
	TargetsTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "targets_total",
			Help: "Number of configured monitoring targets",
		},
		[]string{"enabled"},
	)

	// SnapshotsStoredTotal tracks the number of retained snapshots per target.
	SnapshotsStoredTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "snapshots_stored",
			Help: "Number of snapshots currently retained for a target",
		},
		[]string{"target_id"},
	)

	// StoreOperationDuration measures store call latency by operation.
	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_operation_duration_seconds",
			Help:    "Embedded store operation duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 10),
		},
		[]string{"operation"},
	)
)

// RecordCheck records the outcome and duration of one target check.
func RecordCheck(targetID, outcome string, duration time.Duration) {
	ChecksTotal.WithLabelValues(targetID, outcome).Inc()
	CheckDuration.WithLabelValues(targetID).Observe(duration.Seconds())
}

// RecordNotification records a notification delivery attempt.
func RecordNotification(channel, outcome string, duration time.Duration) {
	NotificationsTotal.WithLabelValues(channel, outcome).Inc()
	NotificationDuration.WithLabelValues(channel).Observe(duration.Seconds())
}

// RecordStoreOperation records the duration of a named store operation.
func RecordStoreOperation(operation string, duration time.Duration) {
	StoreOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
