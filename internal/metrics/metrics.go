// Package metrics holds the Prometheus collectors shared across the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts handled HTTP requests.
	// Labels: method, route (chi route pattern), status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "beatstream_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration measures HTTP handler latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "beatstream_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "route"},
	)

	// RateLimitDecisions counts limiter outcomes.
	// Labels:
	//   - class: route class name
	//   - outcome: "allowed", "rejected", "skipped", "degraded"
	RateLimitDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "beatstream_ratelimit_decisions_total",
			Help: "Total number of rate limit decisions",
		},
		[]string{"class", "outcome"},
	)

	// CacheOperations counts cache reads and writes.
	// Labels:
	//   - op: "get", "set", "del", "del_pattern"
	//   - result: "hit", "miss", "ok", "error"
	CacheOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "beatstream_cache_operations_total",
			Help: "Total number of cache operations",
		},
		[]string{"op", "result"},
	)

	// StoreFallbacks counts store calls that failed and fell back to a default.
	StoreFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "beatstream_store_fallbacks_total",
			Help: "Total number of key-value store calls answered by a fallback value",
		},
		[]string{"op"},
	)

	// TokensRevoked counts blacklist writes by token type.
	TokensRevoked = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "beatstream_tokens_revoked_total",
			Help: "Total number of tokens written to the blacklist",
		},
		[]string{"type"},
	)

	// SweepDeletedKeys counts keys without TTL removed by the cleanup sweep.
	SweepDeletedKeys = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "beatstream_cache_sweep_deleted_keys_total",
			Help: "Total number of keys without expiry removed by the cleanup sweep",
		},
	)

	// CircuitBreakerState is the breaker state (0=closed, 1=half-open, 2=open).
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "beatstream_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// CircuitBreakerTransitions counts breaker state changes.
	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "beatstream_circuit_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// CircuitBreakerRequests counts calls through a breaker.
	// Labels: name, result ("success", "failure", "rejected").
	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "beatstream_circuit_breaker_requests_total",
			Help: "Total number of requests through the circuit breaker",
		},
		[]string{"name", "result"},
	)
)
