package isr

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// CollectorConfig configures the Prometheus collector.
type CollectorConfig struct {
	// Namespace is the metrics namespace (default: "verdant").
	Namespace string

	// Buckets are the histogram buckets for regeneration duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Collector records cache activity as Prometheus metrics:
//
//   - verdant_isr_requests_total{status}: Gets by HIT, STALE or MISS
//   - verdant_isr_regenerations_total{result}: ok, error, timeout, not_found
//   - verdant_isr_regeneration_seconds: generation duration
//   - verdant_isr_entries: cached keys
type Collector struct {
	requests      *prometheus.CounterVec
	regenerations *prometheus.CounterVec
	duration      prometheus.Histogram
}

// NewCollector registers the cache metrics and attaches the collector to
// cache as an observer.
func NewCollector(cache *Cache, config CollectorConfig) *Collector {
	if config.Namespace == "" {
		config.Namespace = "verdant"
	}
	if config.Buckets == nil {
		config.Buckets = prometheus.DefBuckets
	}
	if config.Registry == nil {
		config.Registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(config.Registry)

	c := &Collector{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Subsystem: "isr",
			Name:      "requests_total",
			Help:      "Cache lookups by served status",
		}, []string{"status"}),

		regenerations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Subsystem: "isr",
			Name:      "regenerations_total",
			Help:      "Completed generations by result",
		}, []string{"result"}),

		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Subsystem: "isr",
			Name:      "regeneration_seconds",
			Help:      "Generation duration in seconds",
			Buckets:   config.Buckets,
		}),
	}

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: config.Namespace,
		Subsystem: "isr",
		Name:      "entries",
		Help:      "Number of cached keys",
	}, func() float64 { return float64(cache.Len()) })

	cache.AddObserver(c)
	return c
}

// Served implements Observer.
func (c *Collector) Served(_ string, status Status) {
	c.requests.WithLabelValues(string(status)).Inc()
}

// Regenerated implements Observer.
func (c *Collector) Regenerated(_ string, took time.Duration, err error) {
	c.duration.Observe(took.Seconds())
	c.regenerations.WithLabelValues(resultLabel(err)).Inc()
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
