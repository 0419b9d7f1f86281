package middlewares

import (
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrymomot/conveyor/internal"
)

// MetricsConfig configures the metrics middleware.
type MetricsConfig struct {
	Registerer prometheus.Registerer
	Namespace  string
	Buckets    []float64
}

// MetricsOption configures MetricsConfig.
type MetricsOption func(*MetricsConfig)

// WithMetricsRegisterer sets where collectors are registered.
// Defaults to prometheus.DefaultRegisterer.
func WithMetricsRegisterer(r prometheus.Registerer) MetricsOption {
	return func(cfg *MetricsConfig) {
		if r != nil {
			cfg.Registerer = r
		}
	}
}

// WithMetricsNamespace sets the metric name prefix. Defaults to "conveyor".
func WithMetricsNamespace(ns string) MetricsOption {
	return func(cfg *MetricsConfig) {
		cfg.Namespace = ns
	}
}

// WithMetricsBuckets sets the latency histogram buckets in seconds.
func WithMetricsBuckets(buckets ...float64) MetricsOption {
	return func(cfg *MetricsConfig) {
		if len(buckets) > 0 {
			cfg.Buckets = buckets
		}
	}
}

// Metrics returns middleware that records a request counter and a latency
// histogram labeled by method, status and route pattern. Unmatched requests
// are labeled with an empty route so path cardinality stays bounded.
// Faults passing through are counted with status "fault".
//
// It panics if the collectors cannot be registered, e.g. when Metrics is
// created twice against the same registerer with the same namespace.
func Metrics(opts ...MetricsOption) internal.Middleware {
	cfg := &MetricsConfig{
		Registerer: prometheus.DefaultRegisterer,
		Namespace:  "conveyor",
		Buckets:    prometheus.DefBuckets,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	labels := []string{"method", "status", "route"}
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Number of dispatched requests.",
	}, labels)
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: cfg.Namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Time spent in the pipeline below this middleware.",
		Buckets:   cfg.Buckets,
	}, labels)
	cfg.Registerer.MustRegister(requests, duration)

	return internal.MiddlewareFunc(func(req *internal.Request, next internal.Handler) (*internal.Response, error) {
		start := time.Now()
		var route atomic.Pointer[string]
		resp, err := next.Handle(internal.OnRoute(req, func(pattern string) { route.Store(&pattern) }))

		status := "fault"
		if err == nil {
			status = strconv.Itoa(resp.StatusCode())
		}
		values := []string{req.Method(), status, ""}
		if p := route.Load(); p != nil {
			values[2] = *p
		}

		requests.WithLabelValues(values...).Inc()
		duration.WithLabelValues(values...).Observe(time.Since(start).Seconds())

		return resp, err
	})
}
