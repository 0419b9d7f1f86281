package middlewares

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/dmitrymomot/conveyor/internal"
	"github.com/dmitrymomot/conveyor/pkg/logger"
)

// DefaultTimeout is the default request timeout.
const DefaultTimeout = 30 * time.Second

// TimeoutConfig configures the timeout middleware.
type TimeoutConfig struct {
	Logger  *slog.Logger
	Timeout time.Duration
}

// TimeoutOption configures TimeoutConfig.
type TimeoutOption func(*TimeoutConfig)

// WithTimeoutLogger sets the logger for timed out requests.
func WithTimeoutLogger(l *slog.Logger) TimeoutOption {
	return func(cfg *TimeoutConfig) {
		if l != nil {
			cfg.Logger = l
		}
	}
}

// Timeout returns middleware that puts a deadline on the request context.
// If the rest of the chain does not finish in time, it fails with a 504
// *HTTPError wrapping a *TimeoutError for the error boundary to answer.
//
// The chain keeps running in its goroutine after the deadline. Handlers doing
// long work should watch req.Context().Done() and stop early.
func Timeout(timeout time.Duration, opts ...TimeoutOption) internal.Middleware {
	cfg := &TimeoutConfig{
		Logger:  logger.NewNope(),
		Timeout: timeout,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return internal.MiddlewareFunc(func(req *internal.Request, next internal.Handler) (*internal.Response, error) {
		ctx, cancel := context.WithTimeout(req.Context(), cfg.Timeout)
		defer cancel()

		type result struct {
			resp *internal.Response
			err  error
		}

		// Panics in the goroutine are carried back so the caller's
		// boundary still sees them.
		done := make(chan result, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- result{err: internal.NewPanicError(r, DefaultStackSize)}
				}
			}()
			resp, err := next.Handle(req.WithContext(ctx))
			done <- result{resp: resp, err: err}
		}()

		select {
		case res := <-done:
			return res.resp, res.err
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				cfg.Logger.WarnContext(req.Context(), "request timeout",
					slog.String("path", req.Path()),
					slog.String("timeout", cfg.Timeout.String()),
				)
				return nil, internal.NewHTTPError(http.StatusGatewayTimeout, "request timeout",
					internal.WithError(&TimeoutError{Duration: cfg.Timeout}),
				)
			}
			return nil, ctx.Err()
		}
	})
}
