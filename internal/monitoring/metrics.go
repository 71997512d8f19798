package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Social platform upstream metrics
	PlatformRequests *prometheus.CounterVec
	PlatformLatency  *prometheus.HistogramVec
	PlatformErrors   *prometheus.CounterVec

	// Cache metrics
	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec

	// Business metrics
	CampaignsCreated   prometheus.Counter
	CampaignsFunded    prometheus.Counter
	SubmissionsTotal   *prometheus.CounterVec
	PaymentsTotal      *prometheus.CounterVec
	PayoutMethodsTotal *prometheus.CounterVec
	MetricsSyncRuns    *prometheus.CounterVec

	// Circuit breaker metrics
	CircuitBreakerState *prometheus.GaugeVec
}

var metrics *Metrics

// Init initializes all Prometheus metrics
func Init() *Metrics {
	if metrics != nil {
		return metrics
	}

	metrics = &Metrics{
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
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
		),

		PlatformRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "platform_requests_total",
				Help: "Total number of requests to social platform APIs",
			},
			[]string{"platform", "operation", "status"},
		),
		PlatformLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "platform_request_latency_seconds",
				Help:    "Social platform API response latency in seconds",
				Buckets: []float64{.1, .25, .5, 1, 2, 5, 10, 20},
			},
			[]string{"platform", "operation"},
		),
		PlatformErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "platform_errors_total",
				Help: "Total number of social platform API errors",
			},
			[]string{"platform", "operation"},
		),

		CacheHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of cache hits",
			},
			[]string{"cache"},
		),
		CacheMisses: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of cache misses",
			},
			[]string{"cache"},
		),

		CampaignsCreated: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "campaigns_created_total",
				Help: "Total number of campaigns created",
			},
		),
		CampaignsFunded: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "campaigns_funded_total",
				Help: "Total number of campaign funding confirmations",
			},
		),
		SubmissionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "submissions_total",
				Help: "Total number of submission transitions by resulting status",
			},
			[]string{"status"},
		),
		PaymentsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payments_total",
				Help: "Total number of payments by status",
			},
			[]string{"status"},
		),
		PayoutMethodsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payout_methods_total",
				Help: "Total number of payout method operations",
			},
			[]string{"method_type", "operation"},
		),
		MetricsSyncRuns: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "metrics_sync_runs_total",
				Help: "Total number of social metrics sync runs",
			},
			[]string{"platform", "status"},
		),

		CircuitBreakerState: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
			},
			[]string{"platform"},
		),
	}

	return metrics
}

// Get returns the initialized metrics, initializing on first use
func Get() *Metrics {
	if metrics == nil {
		return Init()
	}
	return metrics
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// MetricsMiddleware records HTTP metrics for each request
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		m := Get()

		m.HTTPRequestsInFlight.Inc()
		start := time.Now()

		c.Next()

		m.HTTPRequestsInFlight.Dec()
		duration := time.Since(start)

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		m.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			path,
			strconv.Itoa(c.Writer.Status()),
		).Inc()
		m.HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(duration.Seconds())
	}
}
