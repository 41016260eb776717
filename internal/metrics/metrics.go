package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPResponseSize      *prometheus.HistogramVec
	HTTPActiveConnections prometheus.Gauge

	// Cache metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// Rate limiting metrics
	RateLimitExceededTotal *prometheus.CounterVec

	// Realtime metrics
	RealtimeSubscribers  prometheus.Gauge
	RealtimeEventsTotal  *prometheus.CounterVec
	RealtimeDroppedTotal *prometheus.CounterVec

	// Social engagement
	PostsCreated     prometheus.Counter
	CommentsTotal    *prometheus.CounterVec
	ReactionsTotal   *prometheus.CounterVec
	FollowsTotal     *prometheus.CounterVec
	ComplaintsFiled  *prometheus.CounterVec
	DonationsPledged *prometheus.CounterVec

	// Search
	SearchRequests *prometheus.CounterVec
	SearchDuration *prometheus.HistogramVec

	// Background work
	MailJobsTotal         *prometheus.CounterVec
	RetentionDeletedTotal *prometheus.CounterVec

	// Error metrics
	ErrorsTotal *prometheus.CounterVec
}

var (
	instance *Metrics
	once     sync.Once
)

// Initialize creates and registers all Prometheus metrics
func Initialize() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			HTTPRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "http_requests_total",
					Help: "Total number of HTTP requests",
				},
				[]string{"method", "path", "status"},
			),
			HTTPRequestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_request_duration_seconds",
					Help:    "HTTP request latency in seconds",
					Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
				},
				[]string{"method", "path", "status"},
			),
			HTTPResponseSize: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_response_size_bytes",
					Help:    "HTTP response size in bytes",
					Buckets: prometheus.ExponentialBuckets(100, 10, 7),
				},
				[]string{"method", "path"},
			),
			HTTPActiveConnections: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "http_active_connections",
					Help: "Number of in-flight HTTP requests",
				},
			),

			CacheHitsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "cache_hits_total",
					Help: "Total number of cache hits",
				},
				[]string{"cache_name"},
			),
			CacheMissesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "cache_misses_total",
					Help: "Total number of cache misses",
				},
				[]string{"cache_name"},
			),

			RateLimitExceededTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "rate_limit_exceeded_total",
					Help: "Total number of rate limit violations",
				},
				[]string{"endpoint", "method"},
			),

			RealtimeSubscribers: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "realtime_subscribers",
					Help: "Number of active realtime subscriptions",
				},
			),
			RealtimeEventsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "realtime_events_total",
					Help: "Change events published, by table and type",
				},
				[]string{"table", "type"},
			),
			RealtimeDroppedTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "realtime_dropped_total",
					Help: "Change events dropped because a subscriber was slow",
				},
				[]string{"table"},
			),

			PostsCreated: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "posts_created_total",
					Help: "Total number of posts created",
				},
			),
			CommentsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "comments_total",
					Help: "Comment mutations by operation",
				},
				[]string{"operation"},
			),
			ReactionsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "reactions_total",
					Help: "Reactions set, by target type and kind",
				},
				[]string{"target_type", "kind"},
			),
			FollowsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "follows_total",
					Help: "Follow graph changes",
				},
				[]string{"operation"},
			),
			ComplaintsFiled: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "complaints_total",
					Help: "Complaints filed, by reason",
				},
				[]string{"reason"},
			),
			DonationsPledged: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "donation_pledged_cents_total",
					Help: "Pledged donation amounts in cents, by currency",
				},
				[]string{"currency"},
			),

			SearchRequests: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "search_requests_total",
					Help: "Total search requests",
				},
				[]string{"backend", "type"},
			),
			SearchDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "search_duration_seconds",
					Help:    "Search latency in seconds",
					Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
				},
				[]string{"backend", "type"},
			),

			MailJobsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "mail_jobs_total",
					Help: "Outgoing email jobs by final status",
				},
				[]string{"status"},
			),
			RetentionDeletedTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "retention_deleted_total",
					Help: "Rows and objects removed by the retention sweep",
				},
				[]string{"kind"},
			),

			ErrorsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "errors_total",
					Help: "API errors by code",
				},
				[]string{"code"},
			),
		}
	})
	return instance
}

// Get returns the metrics instance, initializing it on first use.
func Get() *Metrics {
	return Initialize()
}
