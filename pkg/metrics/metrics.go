// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boardroom_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "boardroom_http_request_duration_seconds",
			Help: "HTTP request duration in seconds",
		},
		[]string{"method", "endpoint"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "boardroom_stage_duration_seconds",
			Help:    "Pipeline stage duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
		},
		[]string{"stage"},
	)

	CacheOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boardroom_cache_operations_total",
			Help: "Cache lookups and writes by category and outcome",
		},
		[]string{"category", "outcome"},
	)

	WorkerInvocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boardroom_worker_invocations_total",
			Help: "Worker runs by worker and outcome",
		},
		[]string{"worker", "outcome"},
	)

	ProviderCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boardroom_provider_calls_total",
			Help: "Provider calls by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	ProviderTokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boardroom_provider_tokens_total",
			Help: "Tokens reported by providers",
		},
		[]string{"provider", "kind"},
	)

	RoutingDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boardroom_routing_decisions_total",
			Help: "Routing decisions by strategy and worker",
		},
		[]string{"strategy", "worker"},
	)

	Orchestrations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boardroom_orchestrations_total",
			Help: "Top-level orchestration calls by outcome",
		},
		[]string{"outcome"},
	)
)

// Outcome label values.
const (
	OutcomeHit      = "hit"
	OutcomeMiss     = "miss"
	OutcomeSave     = "save"
	OutcomeError    = "error"
	OutcomeOK       = "ok"
	OutcomeCached   = "cached"
	OutcomeFallback = "fallback"
)
