package health

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/dmitrymomot/conveyor/pkg/logger"
)

const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"

	defaultTimeout = 5 * time.Second
)

// CheckFunc reports whether a dependency is usable. It should honour ctx.
type CheckFunc func(ctx context.Context) error

// Checks maps a check name to its function.
type Checks map[string]CheckFunc

// Report is the outcome of Run.
type Report struct {
	Checks map[string]Check `json:"checks,omitempty"`
	Status string           `json:"status"`
}

// Check is the outcome of one check.
type Check struct {
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
	Duration string `json:"duration"`
}

// Healthy reports whether every check passed.
func (r *Report) Healthy() bool {
	return r.Status == StatusHealthy
}

// Err lists the failing checks in name order under ErrCheckFailed.
// It returns nil for a healthy report.
func (r *Report) Err() error {
	if r.Healthy() {
		return nil
	}
	errs := []error{ErrCheckFailed}
	for _, name := range slices.Sorted(maps.Keys(r.Checks)) {
		if c := r.Checks[name]; c.Status != StatusHealthy {
			errs = append(errs, fmt.Errorf("%s: %s", name, c.Error))
		}
	}
	return errors.Join(errs...)
}

// Option configures Run.
type Option func(*runner)

// WithTimeout bounds the whole run. Default: 5s.
func WithTimeout(d time.Duration) Option {
	return func(r *runner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithLogger logs each failing check at warn level.
func WithLogger(l *slog.Logger) Option {
	return func(r *runner) {
		if l != nil {
			r.logger = l
		}
	}
}

type runner struct {
	logger  *slog.Logger
	timeout time.Duration
}

type outcome struct {
	name  string
	err   error
	spent time.Duration
}

// Run executes checks concurrently under one deadline. Failures do not
// cancel the remaining checks. A check still running at the deadline is
// recorded as ErrCheckTimeout and left to finish in the background.
func Run(ctx context.Context, checks Checks, opts ...Option) *Report {
	report := &Report{Status: StatusHealthy}
	if len(checks) == 0 {
		return report
	}

	r := runner{logger: logger.NewNope(), timeout: defaultTimeout}
	for _, opt := range opts {
		opt(&r)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	outcomes := make(chan outcome, len(checks))
	for name, fn := range checks {
		go func() {
			start := time.Now()
			outcomes <- outcome{name: name, err: r.one(ctx, fn), spent: time.Since(start)}
		}()
	}

	report.Checks = make(map[string]Check, len(checks))
	for range checks {
		o := <-outcomes
		c := Check{Status: StatusHealthy, Duration: o.spent.Round(time.Microsecond).String()}
		if o.err != nil {
			c.Status, c.Error = StatusUnhealthy, o.err.Error()
			report.Status = StatusUnhealthy
			r.logger.WarnContext(ctx, "health check failed",
				slog.String("check", o.name),
				slog.Duration("duration", o.spent),
				slog.Any("error", o.err),
			)
		}
		report.Checks[o.name] = c
	}
	return report
}

// one runs fn and stops waiting for it when ctx is done.
func (r runner) one(ctx context.Context, fn CheckFunc) error {
	if fn == nil {
		return ErrNilCheck
	}
	done := make(chan error, 1)
	go func() { done <- fn(ctx) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ErrCheckTimeout
	}
}
