// Package metrics holds the Prometheus collectors shared by every service.
// Collectors register with the default registry; /metrics exposes them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kauppa_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kauppa_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "kauppa_http_requests_in_flight",
			Help: "Current number of HTTP requests being processed",
		},
	)

	RateLimitRejects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kauppa_rate_limit_rejects_total",
			Help: "Total number of requests rejected due to rate limiting",
		},
	)

	PanicRecoveries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kauppa_panic_recoveries_total",
			Help: "Total number of panics recovered in HTTP handlers",
		},
	)

	// CacheLookups counts repository cache reads by entity and result (hit, miss).
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kauppa_repository_cache_lookups_total",
			Help: "Repository cache lookups by result",
		},
		[]string{"entity", "result"},
	)

	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kauppa_repository_cache_evictions_total",
			Help: "Entries evicted from repository caches at capacity",
		},
		[]string{"entity"},
	)

	// ClientCalls counts outbound service calls by target service, route and outcome.
	ClientCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kauppa_client_calls_total",
			Help: "Outbound service calls by outcome",
		},
		[]string{"service", "route", "outcome"},
	)

	ClientCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kauppa_client_call_duration_seconds",
			Help:    "Outbound service call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "route"},
	)
)
