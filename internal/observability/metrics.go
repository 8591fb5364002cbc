package observability

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// HTTP request rate. Watch for: sudden drops (service down) or spikes (refresh storms).
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency per request. Dominated by upstream latency on cache misses.
	HTTPRequestDuration *prometheus.HistogramVec

	// Concurrent requests in flight.
	HTTPRequestsInFlight prometheus.Gauge

	// Upstream API calls by source and status. Watch for: rate_limited on coingecko.
	UpstreamCallsTotal *prometheus.CounterVec

	// Upstream latency. Requests are bounded by the per-source timeout (10s default).
	UpstreamDuration *prometheus.HistogramVec

	// Upstream failures by source and error category.
	UpstreamErrorsTotal *prometheus.CounterVec

	// Cache hits per source. Hit rate = hits/(hits+misses).
	CacheHitsTotal *prometheus.CounterVec

	// Cache misses per source (includes expired entries).
	CacheMissesTotal *prometheus.CounterVec

	// Explicit invalidations (auto-refresh ticks).
	CacheInvalidationsTotal *prometheus.CounterVec

	// Cache backend errors by operation and category.
	CacheErrorsTotal *prometheus.CounterVec

	// Cache backend latency by operation and result.
	CacheOperationDurationSeconds *prometheus.HistogramVec

	// Concurrent misses on one key; collapsed to a single fetch.
	CacheStampedeDetectedTotal *prometheus.CounterVec

	// Cycles that rendered sample data because the fetch failed.
	FallbackServedTotal *prometheus.CounterVec

	// History pushes by result (appended, duplicate, out_of_order).
	HistoryPushesTotal *prometheus.CounterVec

	// Refresh cycles by page and trigger (load, tick, watch).
	RefreshCyclesTotal *prometheus.CounterVec

	// Rate limit denials on page routes.
	RateLimitDeniedTotal prometheus.Counter

	sessionGaugeOnce sync.Once
)

func init() {
	registry = prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpRequestsTotal",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "HTTP request latency in seconds (per request)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpRequestsInFlight",
			Help: "Number of HTTP requests currently being served",
		},
	)
	UpstreamCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstreamCallsTotal",
			Help: "Total number of upstream API calls",
		},
		[]string{"source", "status"},
	)
	UpstreamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstreamDurationSeconds",
			Help:    "Upstream API latency in seconds (per request)",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"source", "status"},
	)
	UpstreamErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstreamErrorsTotal",
			Help: "Upstream fetch failures by error category",
		},
		[]string{"source", "category"},
	)
	CacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheHitsTotal",
			Help: "Total number of cache hits",
		},
		[]string{"source"},
	)
	CacheMissesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheMissesTotal",
			Help: "Total number of cache misses, including expired entries",
		},
		[]string{"source"},
	)
	CacheInvalidationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheInvalidationsTotal",
			Help: "Total number of explicit cache invalidations",
		},
		[]string{"source"},
	)
	CacheErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheErrorsTotal",
			Help: "Cache backend errors by operation and category",
		},
		[]string{"operation", "category"},
	)
	CacheOperationDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cacheOperationDurationSeconds",
			Help:    "Cache backend operation latency in seconds",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5},
		},
		[]string{"operation", "result"},
	)
	CacheStampedeDetectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheStampedeDetectedTotal",
			Help: "Concurrent cache misses for the same key",
		},
		[]string{"source"},
	)
	FallbackServedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fallbackServedTotal",
			Help: "Cycles that rendered sample data after a failed fetch",
		},
		[]string{"source"},
	)
	HistoryPushesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "historyPushesTotal",
			Help: "History pushes by result",
		},
		[]string{"result"},
	)
	RefreshCyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "refreshCyclesTotal",
			Help: "Refresh cycles by page and trigger",
		},
		[]string{"page", "trigger"},
	)
	RateLimitDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rateLimitDeniedTotal",
			Help: "Total number of requests denied by rate limiter (429)",
		},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight,
		UpstreamCallsTotal, UpstreamDuration, UpstreamErrorsTotal,
		CacheHitsTotal, CacheMissesTotal, CacheInvalidationsTotal,
		CacheErrorsTotal, CacheOperationDurationSeconds, CacheStampedeDetectedTotal,
		FallbackServedTotal, HistoryPushesTotal, RefreshCyclesTotal,
		RateLimitDeniedTotal,
	)
}

// RegisterSessionGauge exposes the number of live sessions. Call once from main with the store's Len.
func RegisterSessionGauge(count func() int) {
	sessionGaugeOnce.Do(func() {
		registry.MustRegister(
			prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Name: "activeSessions",
					Help: "Sessions currently held in memory",
				},
				func() float64 { return float64(count()) },
			),
		)
	})
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
