package middlewares

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dmitrymomot/conveyor/internal"
)

// LoggerConfig configures the access log middleware.
type LoggerConfig struct {
	// Skip reports requests that should not be logged, e.g. health probes.
	Skip func(req *internal.Request) bool
}

// LoggerOption configures LoggerConfig.
type LoggerOption func(*LoggerConfig)

// WithLoggerSkip sets a predicate for requests that should not be logged.
func WithLoggerSkip(fn func(req *internal.Request) bool) LoggerOption {
	return func(cfg *LoggerConfig) {
		cfg.Skip = fn
	}
}

// WithLoggerSkipPaths skips requests for the given exact paths.
func WithLoggerSkipPaths(paths ...string) LoggerOption {
	skip := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		skip[p] = struct{}{}
	}
	return WithLoggerSkip(func(req *internal.Request) bool {
		_, ok := skip[req.Path()]
		return ok
	})
}

// Logger returns middleware that writes one access log line per request.
// Place it after RequestID so the line carries the request ID through
// RequestIDExtractor, and before the error boundary of interest to log
// the final status. Faults that pass through are logged at error level and
// returned unchanged.
func Logger(log *slog.Logger, opts ...LoggerOption) internal.Middleware {
	cfg := &LoggerConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	return internal.MiddlewareFunc(func(req *internal.Request, next internal.Handler) (*internal.Response, error) {
		if cfg.Skip != nil && cfg.Skip(req) {
			return next.Handle(req)
		}

		start := time.Now()
		resp, err := next.Handle(req)

		attrs := []slog.Attr{
			slog.String("method", req.Method()),
			slog.String("path", req.Path()),
			slog.String("ip", req.IP()),
			slog.Duration("duration", time.Since(start)),
		}

		if err != nil {
			attrs = append(attrs, slog.Any("error", err))
			log.LogAttrs(req.Context(), slog.LevelError, "request failed", attrs...)
			return nil, err
		}

		status := resp.StatusCode()
		attrs = append(attrs, slog.Int("status", status))

		level := slog.LevelInfo
		switch {
		case status >= http.StatusInternalServerError:
			level = slog.LevelError
		case status >= http.StatusBadRequest:
			level = slog.LevelWarn
		}
		log.LogAttrs(req.Context(), level, "request", attrs...)

		return resp, nil
	})
}
