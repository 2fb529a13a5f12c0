package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal     prometheus.CounterVec
	HTTPRequestDuration   prometheus.HistogramVec
	HTTPActiveConnections prometheus.GaugeVec

	// Upstream provider metrics
	UpstreamRequestsTotal   prometheus.CounterVec
	UpstreamRequestDuration prometheus.HistogramVec

	// Feed aggregation metrics
	FeedSourceFailures prometheus.CounterVec
	FeedBuildDuration  prometheus.HistogramVec

	// Rate limiting metrics
	RateLimitExceededTotal prometheus.CounterVec

	// Error metrics
	ErrorsTotal prometheus.CounterVec
}

var (
	instance *Metrics
	once     sync.Once
)

// Initialize creates and registers all Prometheus metrics
func Initialize() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			HTTPRequestsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "http_requests_total",
					Help: "Total number of HTTP requests",
				},
				[]string{"method", "path", "status"},
			),
			HTTPRequestDuration: *promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_request_duration_seconds",
					Help:    "HTTP request latency in seconds",
					Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
				},
				[]string{"method", "path", "status"},
			),
			HTTPActiveConnections: *promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "http_active_connections",
					Help: "Number of in-flight HTTP requests",
				},
				[]string{"method", "path"},
			),
			UpstreamRequestsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "upstream_requests_total",
					Help: "Total number of provider API requests",
				},
				[]string{"provider", "status"},
			),
			UpstreamRequestDuration: *promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "upstream_request_duration_seconds",
					Help:    "Provider API request latency in seconds",
					Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
				},
				[]string{"provider"},
			),
			FeedSourceFailures: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "feed_source_failures_total",
					Help: "Calendar feed sources that failed and were skipped",
				},
				[]string{"source"},
			),
			FeedBuildDuration: *promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "feed_build_duration_seconds",
					Help:    "Time to assemble the unified calendar feed",
					Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5},
				},
				[]string{},
			),
			RateLimitExceededTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "rate_limit_exceeded_total",
					Help: "Requests rejected by the rate limiter",
				},
				[]string{"endpoint", "method"},
			),
			ErrorsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "errors_total",
					Help: "Total number of API errors by code",
				},
				[]string{"code", "endpoint"},
			),
		}
	})
	return instance
}

// Get returns the metrics instance, initializing it if needed
func Get() *Metrics {
	return Initialize()
}

// RecordUpstream records one provider API round trip. Status 0 means
// the provider never answered.
func RecordUpstream(provider string, status int, duration time.Duration) {
	m := Get()
	m.UpstreamRequestsTotal.WithLabelValues(provider, strconv.Itoa(status)).Inc()
	m.UpstreamRequestDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordError counts an API error by code and endpoint
func RecordError(code, endpoint string) {
	Get().ErrorsTotal.WithLabelValues(code, endpoint).Inc()
}
