package internal

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultMetricsPath = "/metrics"

// metricsRoute exposes a Prometheus gatherer as an ordinary route.
type metricsRoute struct {
	gatherer prometheus.Gatherer
	path     string
}

func (m *metricsRoute) Routes(r Router) {
	h := promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
	r.GET(m.path, Instance(FromHTTPHandler(h)))
}

// WithMetricsRoute serves Prometheus metrics from g at path.
// Empty path means "/metrics"; nil g means prometheus.DefaultGatherer.
// Pair it with middlewares.Metrics to record request metrics.
func WithMetricsRoute(path string, g prometheus.Gatherer) Option {
	return func(a *App) {
		if path == "" {
			path = defaultMetricsPath
		}
		if g == nil {
			g = prometheus.DefaultGatherer
		}
		a.metrics = &metricsRoute{path: path, gatherer: g}
	}
}
