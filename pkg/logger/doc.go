// Package logger builds log/slog loggers for the application.
//
// Loggers enrich each record with request-scoped attributes pulled from
// the context by ContextExtractor functions, so handlers can log with
// InfoContext and get the request ID for free:
//
//	log := logger.New(middlewares.RequestIDExtractor())
//	log.InfoContext(req.Context(), "user loaded", slog.String("id", id))
//
// NewWithSentry additionally forwards warnings and errors to Sentry. Errors
// become Sentry issues; warnings are stored as searchable logs. Without a
// DSN the logger behaves exactly like New.
package logger
