package internal_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/conveyor/internal"
)

func TestIsHTTPError(t *testing.T) {
	t.Parallel()

	t.Run("direct HTTPError", func(t *testing.T) {
		t.Parallel()
		err := internal.NewHTTPError(http.StatusNotFound, "not found")
		require.True(t, internal.IsHTTPError(err))
	})

	t.Run("wrapped HTTPError", func(t *testing.T) {
		t.Parallel()
		httpErr := internal.NewHTTPError(http.StatusBadRequest, "bad request")
		err := fmt.Errorf("handler failed: %w", httpErr)
		require.True(t, internal.IsHTTPError(err))
	})

	t.Run("double-wrapped HTTPError", func(t *testing.T) {
		t.Parallel()
		httpErr := internal.NewHTTPError(http.StatusConflict, "conflict")
		err := fmt.Errorf("outer: %w", fmt.Errorf("inner: %w", httpErr))
		require.True(t, internal.IsHTTPError(err))
	})

	t.Run("unrelated error", func(t *testing.T) {
		t.Parallel()
		err := errors.New("something went wrong")
		require.False(t, internal.IsHTTPError(err))
	})

	t.Run("nil error", func(t *testing.T) {
		t.Parallel()
		require.False(t, internal.IsHTTPError(nil))
	})
}

func TestAsHTTPError(t *testing.T) {
	t.Parallel()

	t.Run("direct HTTPError", func(t *testing.T) {
		t.Parallel()
		httpErr := internal.NewHTTPError(http.StatusNotFound, "not found")
		got := internal.AsHTTPError(httpErr)
		require.NotNil(t, got)
		require.Equal(t, http.StatusNotFound, got.Code)
		require.Equal(t, "not found", got.Message)
	})

	t.Run("wrapped HTTPError preserves fields", func(t *testing.T) {
		t.Parallel()
		httpErr := internal.NewHTTPError(http.StatusForbidden, "forbidden")
		httpErr.Detail = "Access Denied"
		httpErr.ErrorCode = "AUTH_001"
		err := fmt.Errorf("middleware: %w", httpErr)

		got := internal.AsHTTPError(err)
		require.NotNil(t, got)
		require.Equal(t, http.StatusForbidden, got.Code)
		require.Equal(t, "forbidden", got.Message)
		require.Equal(t, "Access Denied", got.Detail)
		require.Equal(t, "AUTH_001", got.ErrorCode)
	})

	t.Run("unrelated error returns nil", func(t *testing.T) {
		t.Parallel()
		err := errors.New("plain error")
		require.Nil(t, internal.AsHTTPError(err))
	})

	t.Run("nil returns nil", func(t *testing.T) {
		t.Parallel()
		require.Nil(t, internal.AsHTTPError(nil))
	})
}

func TestHTTPErrorOptions(t *testing.T) {
	t.Parallel()

	cause := errors.New("db down")
	err := internal.ErrInternal("try later",
		internal.WithDetail("maintenance"),
		internal.WithErrorCode("MAINT"),
		internal.WithError(cause),
	)

	require.Equal(t, http.StatusInternalServerError, err.StatusCode())
	require.Equal(t, "Internal Server Error", err.StatusText())
	require.Equal(t, "try later", err.Error())
	require.Equal(t, "maintenance", err.Detail)
	require.Equal(t, "MAINT", err.ErrorCode)
	require.ErrorIs(t, err, cause)
}

func TestResolutionError(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("dispatch: %w", &internal.ResolutionError{
		ID:  internal.Named("auth"),
		Err: internal.ErrNotRegistered,
	})

	require.True(t, internal.IsResolutionError(err))
	require.ErrorIs(t, err, internal.ErrNotRegistered)
	require.Contains(t, err.Error(), "named(auth)")
	require.False(t, internal.IsResolutionError(errors.New("plain")))
}

func TestPanicError(t *testing.T) {
	t.Parallel()

	t.Run("error value is unwrapped", func(t *testing.T) {
		t.Parallel()
		cause := errors.New("boom")
		pe := internal.NewPanicError(cause, 0)

		require.Nil(t, pe.Stack)
		require.ErrorIs(t, pe, cause)
		require.Equal(t, "panic: boom", pe.Error())
	})

	t.Run("non-error value", func(t *testing.T) {
		t.Parallel()
		pe := internal.NewPanicError("oops", 1024)

		require.NotEmpty(t, pe.Stack)
		require.LessOrEqual(t, len(pe.Stack), 1024)
		require.NoError(t, pe.Unwrap())
	})

	t.Run("as helper", func(t *testing.T) {
		t.Parallel()
		err := fmt.Errorf("wrapped: %w", internal.NewPanicError(42, 0))

		pe, ok := internal.AsPanicError(err)
		require.True(t, ok)
		require.Equal(t, 42, pe.Value)
		require.True(t, internal.IsPanicError(err))

		_, ok = internal.AsPanicError(errors.New("plain"))
		require.False(t, ok)
	})
}

func TestFaultResponderError(t *testing.T) {
	t.Parallel()

	fault := errors.New("handler failed")
	cause := errors.New("template missing")
	err := &internal.FaultResponderError{Fault: fault, Err: cause}

	require.True(t, internal.IsFaultResponderError(err))
	require.ErrorIs(t, err, fault)
	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "template missing")
	require.Contains(t, err.Error(), "handler failed")
}
