package internal

import (
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/conveyor/pkg/health"
)

// Default health check paths.
const (
	defaultLivenessPath  = "/health/live"
	defaultReadinessPath = "/health/ready"
)

// healthConfig holds health check endpoint configuration.
type healthConfig struct {
	checks        health.Checks
	livenessPath  string
	readinessPath string
	options       []health.Option
}

// HealthOption configures health check endpoints.
type HealthOption func(*healthConfig)

// WithLivenessPath sets a custom liveness endpoint path.
// Defaults to "/health/live".
func WithLivenessPath(path string) HealthOption {
	return func(c *healthConfig) {
		if path != "" {
			c.livenessPath = path
		}
	}
}

// WithReadinessPath sets a custom readiness endpoint path.
// Defaults to "/health/ready".
func WithReadinessPath(path string) HealthOption {
	return func(c *healthConfig) {
		if path != "" {
			c.readinessPath = path
		}
	}
}

// WithReadinessCheck adds a named readiness check.
// Checks run in parallel during the readiness probe.
//
// Example:
//
//	conveyor.WithReadinessCheck("redis", redis.Healthcheck(client))
func WithReadinessCheck(name string, fn health.CheckFunc) HealthOption {
	return func(c *healthConfig) {
		if c.checks == nil {
			c.checks = make(health.Checks)
		}
		c.checks[name] = fn
	}
}

// WithHealthOptions passes options to health.Run, e.g. a timeout.
func WithHealthOptions(opts ...health.Option) HealthOption {
	return func(c *healthConfig) {
		c.options = append(c.options, opts...)
	}
}

// Routes declares the probe routes. They are ordinary routes and traverse
// the full pipeline.
func (c *healthConfig) Routes(r Router) {
	r.GET(c.livenessPath, Instance(HandlerFunc(livenessHandler)))
	r.GET(c.readinessPath, Instance(readinessHandler{checks: c.checks, options: c.options}))
}

func livenessHandler(req *Request) (*Response, error) {
	return healthResponse(req, http.StatusOK, &health.Report{Status: health.StatusHealthy})
}

// readinessHandler runs the configured checks on every probe.
type readinessHandler struct {
	checks  health.Checks
	options []health.Option
}

func (h readinessHandler) Handle(req *Request) (*Response, error) {
	report := health.Run(req.Context(), h.checks, h.options...)

	status := http.StatusOK
	if !report.Healthy() {
		status = http.StatusServiceUnavailable
	}
	return healthResponse(req, status, report)
}

// healthResponse answers with JSON when asked for it (Accept or ?format=json)
// and plain text otherwise, which is what most probes expect.
func healthResponse(req *Request, status int, report *health.Report) (*Response, error) {
	if req.WantsJSON() || req.Query("format") == "json" {
		return JSON(status, report)
	}
	return Text(status, http.StatusText(status)), nil
}

// newHealthConfig applies opts over the defaults.
func newHealthConfig(logger *slog.Logger, opts ...HealthOption) *healthConfig {
	cfg := &healthConfig{
		livenessPath:  defaultLivenessPath,
		readinessPath: defaultReadinessPath,
		options:       []health.Option{health.WithLogger(logger)},
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
