package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/conveyor/pkg/health"
)

func TestRun(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("no checks is healthy", func(t *testing.T) {
		t.Parallel()
		report := health.Run(ctx, nil)
		assert.True(t, report.Healthy())
		assert.NoError(t, report.Err())
	})

	t.Run("all passing", func(t *testing.T) {
		t.Parallel()
		report := health.Run(ctx, health.Checks{
			"redis": func(context.Context) error { return nil },
			"cache": func(context.Context) error { return nil },
		})
		assert.True(t, report.Healthy())
		require.Len(t, report.Checks, 2)
		assert.Equal(t, health.StatusHealthy, report.Checks["redis"].Status)
		assert.NotEmpty(t, report.Checks["redis"].Duration)
	})

	t.Run("failures are listed in name order", func(t *testing.T) {
		t.Parallel()
		report := health.Run(ctx, health.Checks{
			"redis": func(context.Context) error { return errors.New("connection refused") },
			"disk":  nil,
			"cache": func(context.Context) error { return nil },
		})
		require.False(t, report.Healthy())
		assert.Equal(t, health.StatusHealthy, report.Checks["cache"].Status)
		assert.Equal(t, "connection refused", report.Checks["redis"].Error)

		err := report.Err()
		require.ErrorIs(t, err, health.ErrCheckFailed)
		assert.Equal(t, "health: check failed\ndisk: health: nil check\nredis: connection refused", err.Error())
	})

	t.Run("slow check times out without blocking others", func(t *testing.T) {
		t.Parallel()
		release := make(chan struct{})
		t.Cleanup(func() { close(release) })

		start := time.Now()
		report := health.Run(ctx, health.Checks{
			"slow": func(context.Context) error { <-release; return nil },
			"fast": func(context.Context) error { return nil },
		}, health.WithTimeout(30*time.Millisecond))

		assert.Less(t, time.Since(start), time.Second)
		assert.Equal(t, health.ErrCheckTimeout.Error(), report.Checks["slow"].Error)
		assert.Equal(t, health.StatusHealthy, report.Checks["fast"].Status)
	})
}

func TestReport_JSON(t *testing.T) {
	t.Parallel()

	report := health.Run(context.Background(), health.Checks{
		"redis": func(context.Context) error { return errors.New("down") },
	})
	data, err := json.Marshal(report)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "unhealthy", decoded["status"])
	redis := decoded["checks"].(map[string]any)["redis"].(map[string]any)
	assert.Equal(t, "unhealthy", redis["status"])
	assert.Equal(t, "down", redis["error"])
}
