package middlewares

import (
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/conveyor/internal"
	"github.com/dmitrymomot/conveyor/pkg/logger"
)

// DefaultStackSize is the default maximum stack trace size in bytes.
const DefaultStackSize = internal.DefaultStackSize

// RecoverConfig configures the recover middleware.
type RecoverConfig struct {
	Logger            *slog.Logger // Logger for recovered panics (default: noop)
	StackSize         int          // Max stack trace size (default: 4096)
	DisablePrintStack bool         // Disable stack trace in logs
}

// RecoverOption configures RecoverConfig.
type RecoverOption func(*RecoverConfig)

// WithRecoverStackSize sets the maximum stack trace size.
func WithRecoverStackSize(size int) RecoverOption {
	return func(cfg *RecoverConfig) {
		cfg.StackSize = size
	}
}

// WithRecoverDisablePrintStack disables including stack trace in logs.
func WithRecoverDisablePrintStack() RecoverOption {
	return func(cfg *RecoverConfig) {
		cfg.DisablePrintStack = true
	}
}

// WithRecoverLogger sets the logger for recovered panics.
func WithRecoverLogger(l *slog.Logger) RecoverOption {
	return func(cfg *RecoverConfig) {
		if l != nil {
			cfg.Logger = l
		}
	}
}

// Recover returns middleware that turns panics below it into *PanicError
// faults, so an outer error boundary or middleware sees a plain error.
// http.ErrAbortHandler is re-raised untouched.
// Request ID is automatically included via RequestIDExtractor() if configured.
func Recover(opts ...RecoverOption) internal.Middleware {
	cfg := &RecoverConfig{
		Logger:    logger.NewNope(),
		StackSize: DefaultStackSize,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	return internal.MiddlewareFunc(func(req *internal.Request, next internal.Handler) (resp *internal.Response, err error) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			if r == http.ErrAbortHandler {
				panic(r)
			}

			pe := internal.NewPanicError(r, cfg.StackSize)
			attrs := []any{slog.Any("panic", r), slog.String("path", req.Path())}
			if !cfg.DisablePrintStack && len(pe.Stack) > 0 {
				attrs = append(attrs, slog.String("stack", string(pe.Stack)))
			}
			cfg.Logger.ErrorContext(req.Context(), "panic recovered", attrs...)

			resp, err = nil, pe
		}()

		return next.Handle(req)
	})
}
