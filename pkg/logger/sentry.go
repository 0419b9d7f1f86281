package logger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
	sentryslog "github.com/getsentry/sentry-go/slog"
)

// ErrSentryFlushTimeout is returned by FlushSentry when buffered events
// were not delivered in time.
var ErrSentryFlushTimeout = errors.New("logger: sentry flush timed out")

// SentryConfig configures error reporting to Sentry.
type SentryConfig struct {
	DSN         string
	Environment string
	Release     string

	// MinLevel is the lowest level forwarded to Sentry as a log entry.
	// Records at error level and above also create Sentry issues.
	// Default: slog.LevelWarn.
	MinLevel slog.Level

	// Local controls the stdout side.
	Local Options
}

// NewWithSentry creates a logger writing locally and to Sentry.
// With an empty DSN, or when the SDK fails to initialize, only the local
// output is used.
//
//	log := logger.NewWithSentry(logger.SentryConfig{
//		DSN:         cfg.Sentry.DSN,
//		Environment: cfg.App.Env,
//	}, middlewares.RequestIDExtractor())
//	defer logger.FlushSentry(2 * time.Second)(context.Background())
func NewWithSentry(cfg SentryConfig, extractors ...ContextExtractor) *slog.Logger {
	local := cfg.Local.handler()
	if cfg.DSN == "" {
		return slog.New(WithExtractors(local, extractors...))
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		Release:     cfg.Release,
		EnableLogs:  true,
	})
	if err != nil {
		slog.New(local).Error("sentry init failed", slog.Any("error", err))
		return slog.New(WithExtractors(local, extractors...))
	}

	remote := sentryslog.Option{
		EventLevel: levelsFrom(max(cfg.MinLevel, slog.LevelError)),
		LogLevel:   levelsFrom(max(cfg.MinLevel, slog.LevelWarn)),
	}.NewSentryHandler(context.Background())

	return slog.New(WithExtractors(fanout{local, remote}, extractors...))
}

// levelsFrom lists the standard levels at or above floor.
func levelsFrom(floor slog.Level) []slog.Level {
	var out []slog.Level
	for _, l := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError} {
		if l >= floor {
			out = append(out, l)
		}
	}
	return out
}

// FlushSentry returns a shutdown hook that waits up to timeout for
// buffered Sentry events to be sent. It is a no-op when Sentry was never
// initialized.
func FlushSentry(timeout time.Duration) func(context.Context) error {
	return func(ctx context.Context) error {
		if sentry.CurrentHub().Client() == nil {
			return nil
		}
		if deadline, ok := ctx.Deadline(); ok {
			timeout = min(timeout, time.Until(deadline))
		}
		if !sentry.Flush(timeout) {
			return ErrSentryFlushTimeout
		}
		return nil
	}
}
