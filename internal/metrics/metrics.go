package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts UI requests by route pattern, method and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_http_requests_total",
			Help: "Total number of http requests handled by the portal UI.",
		},
		[]string{"path", "method", "code"},
	)

	// BackendRequestsTotal counts calls made to the jobs backend.
	BackendRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_backend_requests_total",
			Help: "Total number of requests sent to the jobs backend.",
		},
		[]string{"op", "outcome"}, // outcome: ok, not_found, status, transport
	)

	BackendRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portal_backend_request_duration_seconds",
			Help:    "Latency of requests sent to the jobs backend.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	// JobsLoaded is the size of the job collection after the last applied fetch.
	JobsLoaded = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "portal_jobs_loaded",
		Help: "Number of jobs held by the portal after the last successful refresh.",
	})

	// StaleFetchesTotal counts fetch results dropped because a newer result
	// was already applied or the store was closed.
	StaleFetchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "portal_stale_fetches_total",
		Help: "Fetch results discarded because they arrived after a newer result or after shutdown.",
	})
)
