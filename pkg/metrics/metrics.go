// Package metrics provides Prometheus request metrics for the trailmux
// engine: a per-request middleware layer and an exposition handler.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trailmux/trailmux/pkg/router"
)

// Registry owns the Prometheus collectors for one engine.
type Registry struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	responseBytes   *prometheus.CounterVec
}

// NewRegistry creates a Registry with request count, latency, and response
// size collectors registered under the given namespace.
func NewRegistry(namespace string) *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests dispatched.",
		}, []string{"method", "path", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency from dispatch entry to exchange end.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		responseBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_response_size_bytes_total",
			Help:      "Total bytes written in HTTP response bodies.",
		}, []string{"method", "path", "status"}),
	}

	reg.MustRegister(r.requestsTotal, r.requestDuration, r.responseBytes)
	return r
}

// Prometheus exposes the underlying registry, for registering additional
// application collectors alongside the request metrics.
func (r *Registry) Prometheus() *prometheus.Registry {
	return r.registry
}

// Handler returns the exposition endpoint for this registry, suitable for
// registration as an ordinary route.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Middleware records request count, latency, and response size for every
// request passing through it. It observes the response after downstream
// dispatch completes, so it should sit early in the layer sequence.
func (r *Registry) Middleware() router.Handler {
	return func(c *router.Context) error {
		start := time.Now()

		err := c.Next()

		status := strconv.Itoa(c.StatusCode())
		labels := []string{c.Method(), c.FullPath(), status}
		r.requestsTotal.WithLabelValues(labels...).Inc()
		r.requestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
		r.responseBytes.WithLabelValues(labels...).Add(float64(c.BytesWritten()))

		return err
	}
}
