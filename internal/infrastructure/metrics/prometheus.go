// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "hlsladder"

var (
	// PipelineRunsTotal tracks terminal outcomes of pipeline invocations.
	// Labels:
	//   - outcome: success, failure
	//   - stage: the failing stage, or "none" on success
	PipelineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_total",
			Help:      "Total number of pipeline invocations by outcome",
		},
		[]string{"outcome", "stage"},
	)

	// StageDuration tracks wall time spent in each pipeline stage.
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Time spent in each pipeline stage",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 16),
		},
		[]string{"stage"},
	)

	// EncodeDuration tracks encoder wall time per rendition profile.
	EncodeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "encode_duration_seconds",
			Help:      "Time spent encoding a single rendition",
			Buckets:   prometheus.LinearBuckets(10, 30, 20),
		},
		[]string{"profile"},
	)

	// UploadedObjectsTotal counts objects written under output prefixes.
	UploadedObjectsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploaded_objects_total",
			Help:      "Total number of HLS objects uploaded",
		},
	)

	// CleanupFailuresTotal counts working sets that could not be fully removed.
	CleanupFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cleanup_failures_total",
			Help:      "Total number of local working sets that failed to clean up",
		},
	)

	// NotificationsTotal tracks published notification messages.
	// Labels:
	//   - backend: pubsub, amqp
	//   - status: success, error
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Total number of notification publish attempts",
		},
		[]string{"backend", "status"},
	)

	// EventsTotal tracks handling of trigger deliveries.
	// Labels:
	//   - result: ack, redeliver, drop, malformed
	EventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Total number of trigger deliveries by handling result",
		},
		[]string{"result"},
	)

	// CacheOperationsTotal tracks cache operations (get, set, delete).
	// Labels:
	//   - operation: get, set, delete
	//   - status: hit, miss, success, error
	//   - cache_type: redis
	CacheOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_operations_total",
			Help:      "Total number of cache operations",
		},
		[]string{"operation", "status", "cache_type"},
	)

	// DBQueriesTotal tracks database queries.
	// Labels:
	//   - query_type: select, insert, update
	//   - table: transcode_jobs
	DBQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "db_queries_total",
			Help:      "Total number of database queries",
		},
		[]string{"query_type", "table"},
	)

	// SingleflightRequestsTotal tracks singleflight behavior.
	// Labels:
	//   - result: initiated (new execution), shared (reused result)
	SingleflightRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "singleflight_requests_total",
			Help:      "Total number of singleflight requests",
		},
		[]string{"result"},
	)

	// HTTPRequestsTotal tracks requests served by the status API and ops endpoints.
	// Labels:
	//   - method: HTTP method
	//   - route: chi route pattern, e.g. /v1/jobs/{id}
	//   - status: response status code
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
)

// Pipeline outcome constants.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	StageNone      = "none"
)

// Notification status constants.
const (
	NotifyStatusSuccess = "success"
	NotifyStatusError   = "error"
)

// Event handling result constants.
const (
	EventAck       = "ack"
	EventRedeliver = "redeliver"
	EventDrop      = "drop"
	EventMalformed = "malformed"
)

// Cache operation status constants.
const (
	CacheStatusHit     = "hit"
	CacheStatusMiss    = "miss"
	CacheStatusSuccess = "success"
	CacheStatusError   = "error"
)

// Cache operation type constants.
const (
	CacheOpGet    = "get"
	CacheOpSet    = "set"
	CacheOpDelete = "delete"
)

// Cache type constants.
const (
	CacheTypeRedis = "redis"
)

// DB query type constants.
const (
	DBQuerySelect = "select"
	DBQueryInsert = "insert"
	DBQueryUpdate = "update"
)

// Table name constants.
const (
	TableJobs = "transcode_jobs"
)

// Singleflight result constants.
const (
	SingleflightInitiated = "initiated"
	SingleflightShared    = "shared"
)
