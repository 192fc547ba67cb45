// Package metrics holds the Prometheus instruments for the tenant session
// cache and the HTTP edge.  All collectors are registered with the global registry, so
// mounting promhttp.Handler() in main.go is enough to expose them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Eviction reasons used as the "reason" label.
const (
	ReasonIdle     = "idle"
	ReasonLRU      = "lru"
	ReasonShutdown = "shutdown"
)

var (
	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tenant_sessions_active",
			Help: "Number of tenant sessions currently held by the cache.",
		})

	SessionOpenTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tenant_session_open_total",
			Help: "Cumulative number of tenant sessions successfully opened.",
		})

	SessionOpenErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tenant_session_open_errors_total",
			Help: "Cumulative number of failed tenant session creations.",
		})

	SessionEvictTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenant_session_evict_total",
			Help: "Cumulative number of tenant sessions evicted, by reason.",
		}, []string{"reason"})

	SessionDisposeErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tenant_session_dispose_errors_total",
			Help: "Cumulative number of tenant sessions whose Close failed.",
		})

	CacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tenant_session_cache_hits_total",
			Help: "Lookups served from an already open session.",
		})

	CacheMissesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tenant_session_cache_misses_total",
			Help: "Lookups that had to wait for a session to be opened.",
		})

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Latency of HTTP requests by route pattern and status code.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"})
)

func init() {
	prometheus.MustRegister(
		ActiveSessions,
		SessionOpenTotal,
		SessionOpenErrorsTotal,
		SessionEvictTotal,
		SessionDisposeErrorsTotal,
		CacheHitsTotal,
		CacheMissesTotal,
		HTTPRequestDuration,
	)
}
