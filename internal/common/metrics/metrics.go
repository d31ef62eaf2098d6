package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JourneyClassifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "journey_classifications_total",
			Help: "Journey classifications by resulting stage and source",
		},
		[]string{"stage", "source"},
	)

	JourneyScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "journey_score",
			Help:    "Distribution of journey scores",
			Buckets: []float64{10, 20, 35, 50, 70, 80, 100},
		},
	)

	JourneyAnalysisFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "journey_analysis_failures_total",
			Help: "Journey analyses that ended in an error, by error code",
		},
		[]string{"error_code"},
	)

	CRMRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_requests_total",
			Help: "CRM API requests by operation and HTTP status",
		},
		[]string{"operation", "status"},
	)

	CRMRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crm_request_duration_seconds",
			Help:    "CRM API request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	RecordCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "record_cache_lookups_total",
			Help: "CRM record cache lookups by object type and result",
		},
		[]string{"object_type", "result"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests served by route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "http_request_duration_seconds",
			Help: "HTTP request latency by route",
		},
		[]string{"method", "route"},
	)

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

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)
)

// StageLabel keeps the stage label bounded; unclassified journeys are reported as "unset".
func StageLabel(stage string) string {
	if stage == "" {
		return "unset"
	}
	return stage
}
