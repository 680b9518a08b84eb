// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	DueCases = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dataset_notification_due_cases_total",
			Help: "Submission cases found due during evaluation",
		},
		[]string{"strategy"},
	)

	NotificationsBuilt = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dataset_notifications_built_total",
			Help: "Messages placed in a batch",
		},
		[]string{"strategy", "recipient_kind"},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dataset_notifications_sent_total",
			Help: "Messages accepted by a transport",
		},
		[]string{"transport"},
	)

	NotificationsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dataset_notifications_failed_total",
			Help: "Messages or endpoints a transport rejected",
		},
		[]string{"transport"},
	)

	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dataset_notification_sweep_duration_seconds",
			Help:    "Duration of a daily sweep",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)
)

// Transport label values.
const (
	TransportInternal = "internal"
	TransportExternal = "external"
)
