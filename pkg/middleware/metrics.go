package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/vango-dev/verdant/pkg/web"
)

// MetricsConfig configures the Prometheus metrics middleware.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "verdant").
	Namespace string

	// Subsystem is the metrics subsystem (default: "http").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for request duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics middleware.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "verdant",
		Subsystem: "http",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

type metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestErrors   *prometheus.CounterVec
}

// Metrics are created once per registry; a second Prometheus() call against
// the same registry reuses them instead of panicking on re-registration.
var (
	metricsByRegistry   = make(map[prometheus.Registerer]*metrics)
	metricsByRegistryMu sync.Mutex
)

func initMetrics(config MetricsConfig) *metrics {
	factory := promauto.With(config.Registry)

	return &metrics{
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "requests_total",
			Help:        "Total number of requests by method and status class",
			ConstLabels: config.ConstLabels,
		}, []string{"method", "status"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "request_duration_seconds",
			Help:        "Request processing duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"method"}),

		requestErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "request_errors_total",
			Help:        "Total number of requests that ended in an error value",
			ConstLabels: config.ConstLabels,
		}, []string{"method", "error_type"}),
	}
}

func metricsFor(config MetricsConfig) *metrics {
	metricsByRegistryMu.Lock()
	defer metricsByRegistryMu.Unlock()
	m, ok := metricsByRegistry[config.Registry]
	if !ok {
		m = initMetrics(config)
		metricsByRegistry[config.Registry] = m
	}
	return m
}

// Prometheus creates a handler that records request count, duration and
// errors.
//
// Metrics collected:
//   - verdant_http_requests_total: Counter by method and status class (2xx, 4xx, ...)
//   - verdant_http_request_duration_seconds: Histogram by method
//   - verdant_http_request_errors_total: Counter of error returns by category
//
// Example:
//
//	rule := middleware.Rule{
//	    Name:    "metrics",
//	    Exclude: []string{"/metrics"},
//	    Handler: middleware.Prometheus(middleware.WithNamespace("shop")),
//	}
func Prometheus(opts ...MetricsOption) Handler {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	m := metricsFor(config)

	return func(r *http.Request, next Next) (*web.Response, error) {
		start := time.Now()
		resp, err := next(r)
		m.requestDuration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())

		status := http.StatusOK
		switch {
		case err != nil:
			errResp, _ := web.ResponseFor(err)
			status = errResp.Status
			m.requestErrors.WithLabelValues(r.Method, categorizeStatus(status)).Inc()
		case resp != nil && resp.Status != 0:
			status = resp.Status
		}
		m.requestsTotal.WithLabelValues(r.Method, statusClass(status)).Inc()

		return resp, err
	}
}

// statusClass keeps the status label low-cardinality.
func statusClass(status int) string {
	return strconv.Itoa(status/100) + "xx"
}

func categorizeStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "validation"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusTooManyRequests:
		return "rate_limit"
	case http.StatusGatewayTimeout:
		return "timeout"
	default:
		return "internal"
	}
}
