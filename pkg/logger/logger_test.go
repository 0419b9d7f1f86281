package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/conveyor/pkg/logger"
)

type tenantKey struct{}

func tenantExtractor(ctx context.Context) (slog.Attr, bool) {
	v, ok := ctx.Value(tenantKey{}).(string)
	if !ok || v == "" {
		return slog.Attr{}, false
	}
	return slog.String("tenant", v), true
}

func decode(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		out = append(out, m)
	}
	return out
}

func TestNewWithOptions(t *testing.T) {
	t.Parallel()

	t.Run("json with extractors", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		log := logger.NewWithOptions(logger.Options{Output: &buf}, tenantExtractor, nil)

		ctx := context.WithValue(context.Background(), tenantKey{}, "acme")
		log.With(slog.String("component", "api")).WithGroup("req").InfoContext(ctx, "hello", slog.Int("n", 1))
		log.InfoContext(context.Background(), "no tenant")
		log.Debug("hidden")

		lines := decode(t, &buf)
		require.Len(t, lines, 2)
		assert.Equal(t, "hello", lines[0]["msg"])
		assert.Equal(t, "api", lines[0]["component"])
		assert.Equal(t, map[string]any{"n": float64(1), "tenant": "acme"}, lines[0]["req"])
		assert.NotContains(t, lines[1], "tenant")
	})

	t.Run("text at debug", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		log := logger.NewWithOptions(logger.Options{Output: &buf, Format: "text", Level: slog.LevelDebug})

		log.Debug("visible")
		assert.Contains(t, buf.String(), "level=DEBUG")
		assert.Contains(t, buf.String(), "msg=visible")
	})
}

func TestNewNope(t *testing.T) {
	t.Parallel()
	log := logger.NewNope()
	assert.False(t, log.Enabled(context.Background(), slog.LevelError))
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := map[string]slog.Level{
		"debug":  slog.LevelDebug,
		"INFO":   slog.LevelInfo,
		"warn":   slog.LevelWarn,
		"error":  slog.LevelError,
		"warn+2": slog.LevelWarn + 2,
	}
	for in, want := range tests {
		got, err := logger.ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	level, err := logger.ParseLevel("loud")
	require.Error(t, err)
	assert.Equal(t, slog.LevelInfo, level)
}

func TestNewWithSentry_NoDSN(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := logger.NewWithSentry(logger.SentryConfig{Local: logger.Options{Output: &buf}}, tenantExtractor)

	ctx := context.WithValue(context.Background(), tenantKey{}, "acme")
	log.ErrorContext(ctx, "failed")

	lines := decode(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "acme", lines[0]["tenant"])

	require.NoError(t, logger.FlushSentry(time.Second)(context.Background()))
}
