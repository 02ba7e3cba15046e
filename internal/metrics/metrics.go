// Package metrics defines the Prometheus collectors exported at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline outcomes.
const (
	OutcomeSuccess   = "success"
	OutcomeDegraded  = "degraded"
	OutcomeDiscarded = "discarded"
	OutcomeRejected  = "rejected"
	OutcomeFailure   = "failure"
)

var (
	// PipelineRuns counts detect cycles by outcome.
	PipelineRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moodtube_pipeline_runs_total",
			Help: "Detect cycles by outcome (success, degraded, discarded, rejected)",
		},
		[]string{"outcome"},
	)

	// PipelineDuration observes the time from detect trigger to a published result.
	PipelineDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "moodtube_pipeline_duration_seconds",
			Help:    "Duration of detect cycles in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// MoodsDetected counts classified moods, including no_face.
	MoodsDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moodtube_moods_detected_total",
			Help: "Classified moods",
		},
		[]string{"mood"},
	)

	// ProviderRequests counts outbound search requests.
	ProviderRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moodtube_provider_requests_total",
			Help: "Search provider requests by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	// CacheHits counts search cache hits by layer (memory, database).
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moodtube_search_cache_hits_total",
			Help: "Search cache hits by layer",
		},
		[]string{"layer"},
	)

	// CircuitBreakerState is 0 closed, 1 half-open, 2 open.
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "moodtube_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// ActiveSessions tracks live browser sessions.
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "moodtube_active_sessions",
			Help: "Browser sessions currently held in memory",
		},
	)
)
