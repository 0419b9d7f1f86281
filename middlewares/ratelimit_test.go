package middlewares_test

import (
	"net/http"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/conveyor/internal"
	"github.com/dmitrymomot/conveyor/middlewares"
)

func fromIP(ip string) *internal.Request {
	return internal.NewRequest(http.MethodGet, "/").WithRemoteAddr(ip + ":40000")
}

func TestRateLimit(t *testing.T) {
	t.Parallel()

	t.Run("burst is admitted then rejected with 429", func(t *testing.T) {
		t.Parallel()

		next := &countingHandler{h: okHandler}
		mw := middlewares.RateLimit(0.5, 2)

		for range 2 {
			resp, err := mw.Process(fromIP("10.0.0.1"), next)
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, resp.StatusCode())
		}

		resp, err := mw.Process(fromIP("10.0.0.1"), next)
		require.NoError(t, err)
		assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode())
		assert.Equal(t, 2, next.calls())

		retry, convErr := strconv.Atoi(resp.Header("Retry-After"))
		require.NoError(t, convErr)
		assert.GreaterOrEqual(t, retry, 1)
		assert.LessOrEqual(t, retry, 2)
	})

	t.Run("keys are limited independently", func(t *testing.T) {
		t.Parallel()

		mw := middlewares.RateLimit(0.1, 1)

		resp, err := mw.Process(fromIP("10.0.0.1"), okHandler)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode())

		resp, err = mw.Process(fromIP("10.0.0.2"), okHandler)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode())

		resp, err = mw.Process(fromIP("10.0.0.1"), okHandler)
		require.NoError(t, err)
		assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode())
	})

	t.Run("forwarded headers do not change the default key", func(t *testing.T) {
		t.Parallel()

		mw := middlewares.RateLimit(0.1, 1)

		resp, err := mw.Process(fromIP("10.0.0.1").WithHeader("X-Forwarded-For", "1.1.1.1"), okHandler)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode())

		for _, spoofed := range []string{"2.2.2.2", "3.3.3.3"} {
			req := fromIP("10.0.0.1").
				WithHeader("X-Forwarded-For", spoofed).
				WithHeader("CF-Connecting-IP", spoofed)
			resp, err = mw.Process(req, okHandler)
			require.NoError(t, err)
			assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode())
		}
	})

	t.Run("trusted proxy headers pick the key", func(t *testing.T) {
		t.Parallel()

		mw := middlewares.RateLimit(0.1, 1, middlewares.WithRateLimitTrustProxyHeaders())
		proxied := func(client string) *internal.Request {
			return fromIP("192.168.0.10").WithHeader("X-Forwarded-For", client+", 192.168.0.10")
		}

		resp, err := mw.Process(proxied("10.0.0.1"), okHandler)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode())

		resp, err = mw.Process(proxied("10.0.0.2"), okHandler)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode())

		resp, err = mw.Process(proxied("10.0.0.1"), okHandler)
		require.NoError(t, err)
		assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode())
	})

	t.Run("requests without a key are not limited", func(t *testing.T) {
		t.Parallel()

		mw := middlewares.RateLimit(0.1, 1,
			middlewares.WithRateLimitKey(internal.NewExtractor(internal.FromHeader("X-API-Key"))),
		)
		for range 3 {
			resp, err := mw.Process(internal.NewRequest(http.MethodGet, "/"), okHandler)
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, resp.StatusCode())
		}
	})

	t.Run("custom handler can turn rejection into a fault", func(t *testing.T) {
		t.Parallel()

		mw := middlewares.RateLimit(0.1, 1,
			middlewares.WithRateLimitHandler(func(_ *internal.Request, err *middlewares.RateLimitError) (*internal.Response, error) {
				return nil, err
			}),
		)

		_, err := mw.Process(fromIP("10.9.9.9"), okHandler)
		require.NoError(t, err)

		_, err = mw.Process(fromIP("10.9.9.9"), okHandler)
		re, ok := middlewares.AsRateLimitError(err)
		require.True(t, ok)
		assert.Equal(t, "10.9.9.9", re.Key)
		assert.Positive(t, re.RetryAfter)
	})

	t.Run("concurrent callers never exceed the burst", func(t *testing.T) {
		t.Parallel()

		next := &countingHandler{h: okHandler}
		mw := middlewares.RateLimit(0.01, 5)

		var wg sync.WaitGroup
		for range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = mw.Process(fromIP("10.0.0.7"), next)
			}()
		}
		wg.Wait()

		assert.Equal(t, 5, next.calls())
	})
}
