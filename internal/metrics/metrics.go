// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Document store
	StoreOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docstore_operation_duration_seconds",
			Help:    "Duration of document store operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	StoreOpErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docstore_operation_errors_total",
			Help: "Total number of failed document store operations",
		},
		[]string{"operation"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// Assignment
	LearnersTransferred = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assignment_learners_transferred_total",
			Help: "Learners moved from the pool to a donation",
		},
		[]string{"country"},
	)

	TransferFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assignment_transfer_failures_total",
			Help: "Learner transfers that did not complete",
		},
		[]string{"reason"}, // "conflict", "error"
	)

	LearnerShortfall = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assignment_shortfall_learners_total",
			Help: "Entitled learners that could not be assigned",
		},
		[]string{"country"},
	)

	ReconciledLearners = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reconcile_pool_learners_removed_total",
			Help: "Pool learners removed because they were already assigned",
		},
	)

	// Views
	GeoRecordsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geodata_records_skipped_total",
			Help: "Learners left out of map data",
		},
		[]string{"reason"},
	)

	// Response cache
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "response_cache_hits_total",
			Help: "Total number of response cache hits",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "response_cache_misses_total",
			Help: "Total number of response cache misses",
		},
	)

	CacheInvalidations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "response_cache_invalidations_total",
			Help: "Total number of prefix invalidations",
		},
	)

	// HTTP
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "status"},
	)

	RateLimitHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "http_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
	)
)
