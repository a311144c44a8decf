// Package metrics instruments the engine's hot paths.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Discovery gateway metrics
	discoveryCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cloudforge_discovery_cache_lookups_total",
			Help: "Discovery response cache lookups by resulting state",
		},
		[]string{"kind", "state"}, // kind: images or versions
	)

	discoveryRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cloudforge_discovery_refresh_total",
			Help: "Discovery refresh attempts by source and outcome",
		},
		[]string{"source", "status"}, // status: success, timeout, error
	)

	// Resolution pipeline metrics
	resolveDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cloudforge_resolve_duration_seconds",
			Help:    "End-to-end duration of one resolution request",
			Buckets: []float64{0.01, 0.05, 0.25, 1, 5, 15, 60},
		},
	)

	resolveTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cloudforge_resolve_total",
			Help: "Resolution requests by outcome",
		},
		[]string{"status"}, // success or error
	)
)

// DiscoveryCacheLookup records one cache lookup outcome
func DiscoveryCacheLookup(kind, state string) {
	discoveryCacheLookups.WithLabelValues(kind, state).Inc()
}

// DiscoveryRefresh records one refresh attempt outcome
func DiscoveryRefresh(source, status string) {
	discoveryRefreshTotal.WithLabelValues(source, status).Inc()
}

// ObserveResolve records one completed resolution request
func ObserveResolve(seconds float64, status string) {
	resolveDuration.Observe(seconds)
	resolveTotal.WithLabelValues(status).Inc()
}
