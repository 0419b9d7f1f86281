package internal_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/conveyor/internal"
)

type closeTracker struct {
	io.Reader
	closed bool
}

func (c *closeTracker) Close() error {
	c.closed = true
	return nil
}

func TestEmit(t *testing.T) {
	t.Parallel()

	t.Run("writes status headers and body", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		n, err := internal.Emit(rec, internal.Text(http.StatusAccepted, "done").WithAddedHeader("X-Multi", "a").WithAddedHeader("X-Multi", "b"))
		require.NoError(t, err)
		assert.Equal(t, int64(4), n)
		assert.Equal(t, http.StatusAccepted, rec.Code)
		assert.Equal(t, "done", rec.Body.String())
		assert.Equal(t, []string{"a", "b"}, rec.Header().Values("X-Multi"))
	})

	t.Run("zero status becomes 200", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		_, err := internal.Emit(rec, internal.NewResponse(0))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("out of range status becomes 500", func(t *testing.T) {
		t.Parallel()
		for _, status := range []int{42, -1, 1000} {
			rec := httptest.NewRecorder()
			resp := internal.NewResponse(status).
				WithHeader("X-Trace", "abc").
				WithBytes([]byte("secret"))
			n, err := internal.Emit(rec, resp)
			require.ErrorIs(t, err, internal.ErrInvalidStatus)
			assert.Zero(t, n)
			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			assert.Empty(t, rec.Header().Get("X-Trace"))
			assert.NotContains(t, rec.Body.String(), "secret")
		}
	})

	t.Run("no body for 204", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		n, err := internal.Emit(rec, internal.NewResponse(http.StatusNoContent).WithBytes([]byte("ignored")))
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.Empty(t, rec.Body.String())
	})

	t.Run("streams are flushed and closed", func(t *testing.T) {
		t.Parallel()
		body := &closeTracker{Reader: strings.NewReader("chunked")}
		rec := httptest.NewRecorder()
		_, err := internal.Emit(rec, internal.NewResponse(http.StatusOK).WithBody(body))
		require.NoError(t, err)
		assert.Equal(t, "chunked", rec.Body.String())
		assert.True(t, rec.Flushed)
		assert.True(t, body.closed)
	})
}

func TestFromHTTPHandler(t *testing.T) {
	t.Parallel()

	h := internal.FromHTTPHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Path", r.URL.Path)
		w.WriteHeader(http.StatusTeapot)
		_, _ = io.WriteString(w, "legacy "+r.Header.Get("X-In"))
	}))

	resp, err := h.Handle(internal.NewRequest(http.MethodGet, "/legacy").WithHeader("X-In", "ok"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusTeapot, resp.StatusCode())
	assert.Equal(t, "/legacy", resp.Header("X-Path"))
	assert.Equal(t, "legacy ok", string(resp.Bytes()))
}
