package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shorturl_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// Redirects counts redirect attempts by outcome: found, not_found, error.
	Redirects = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shorturl_redirects_total",
			Help: "Total number of short code resolutions",
		},
		[]string{"result"},
	)

	ClicksRecorded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "shorturl_clicks_recorded_total",
			Help: "Total number of click rows persisted",
		},
	)

	ClickRecordFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "shorturl_click_record_failures_total",
			Help: "Total number of clicks that could not be persisted",
		},
	)

	EnrichmentDegraded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shorturl_enrichment_degraded_total",
			Help: "Lookups that fell back to Unknown",
		},
		[]string{"lookup", "reason"},
	)

	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "shorturl_cache_hits_total",
			Help: "Redirect cache hits",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "shorturl_cache_misses_total",
			Help: "Redirect cache misses",
		},
	)

	CodeCollisions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "shorturl_code_collisions_total",
			Help: "Generated short codes that were already taken",
		},
	)

	RateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shorturl_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"scope"},
	)
)

func RecordHTTPRequest(method, route string, status int, d time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}
