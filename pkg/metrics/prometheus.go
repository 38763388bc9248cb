// Package metrics exposes request metrics for capi engines through Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config defines the configuration for a Collector.
type Config struct {
	Namespace string               // Namespace for metric names
	Subsystem string               // Subsystem for metric names
	Registry  *prometheus.Registry // Registry to register with; a fresh one when nil
	Buckets   []float64            // Latency histogram buckets; prometheus.DefBuckets when nil
}

// Collector records per-route request metrics.
type Collector struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	bytes    *prometheus.CounterVec
	inFlight prometheus.Gauge
}

// NewCollector creates the request metrics and registers them.
func NewCollector(cfg Config) (*Collector, error) {
	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	buckets := cfg.Buckets
	if buckets == nil {
		buckets = prometheus.DefBuckets
	}

	labels := []string{"method", "route", "status"}
	c := &Collector{
		registry: registry,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "http_requests_total",
			Help:      "Number of HTTP requests handled, by method, route and status.",
		}, labels),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "http_request_duration_seconds",
			Help:      "Time spent in the middleware chain and handler.",
			Buckets:   buckets,
		}, labels),
		bytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "http_response_bytes_total",
			Help:      "Response body bytes written.",
		}, labels),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "http_requests_in_flight",
			Help:      "Requests currently inside the middleware chain.",
		}),
	}

	for _, col := range []prometheus.Collector{c.requests, c.latency, c.bytes, c.inFlight} {
		if err := registry.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Begin marks a request as in flight. The returned func must be called when it finishes.
func (c *Collector) Begin() func() {
	c.inFlight.Inc()
	return c.inFlight.Dec
}

// Observe records a finished request.
func (c *Collector) Observe(method, route string, status int, duration time.Duration, bytes int64) {
	code := strconv.Itoa(status)
	c.requests.WithLabelValues(method, route, code).Inc()
	c.latency.WithLabelValues(method, route, code).Observe(duration.Seconds())
	c.bytes.WithLabelValues(method, route, code).Add(float64(bytes))
}

// Registry returns the underlying Prometheus registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler returns an http.Handler that serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
