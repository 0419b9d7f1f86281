package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Options controls the local log output.
type Options struct {
	Output    io.Writer    // default os.Stdout
	Level     slog.Leveler // default slog.LevelInfo
	Format    string       // "json" (default) or "text"
	AddSource bool
}

func (o Options) handler() slog.Handler {
	out := o.Output
	if out == nil {
		out = os.Stdout
	}
	level := o.Level
	if level == nil {
		level = slog.LevelInfo
	}
	ho := &slog.HandlerOptions{Level: level, AddSource: o.AddSource}
	if strings.EqualFold(o.Format, "text") {
		return slog.NewTextHandler(out, ho)
	}
	return slog.NewJSONHandler(out, ho)
}

// New creates a JSON logger on stdout at info level.
func New(extractors ...ContextExtractor) *slog.Logger {
	return NewWithOptions(Options{}, extractors...)
}

// NewWithOptions creates a logger writing according to o.
//
//	level, _ := logger.ParseLevel(cfg.Log.Level)
//	log := logger.NewWithOptions(logger.Options{Level: level, Format: cfg.Log.Format})
func NewWithOptions(o Options, extractors ...ContextExtractor) *slog.Logger {
	return slog.New(WithExtractors(o.handler(), extractors...))
}

// NewNope creates a logger that discards everything.
func NewNope() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// ParseLevel accepts the slog level names (debug, info, warn, error),
// case-insensitively, with optional offsets such as "warn+2".
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("logger: %w", err)
	}
	return level, nil
}
