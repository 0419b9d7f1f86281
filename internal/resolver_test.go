package internal_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/conveyor/internal"
	"github.com/dmitrymomot/conveyor/pkg/cache"
)

type stampMiddleware struct{ value string }

func (m *stampMiddleware) Process(req *internal.Request, next internal.Handler) (*internal.Response, error) {
	resp, err := next.Handle(req)
	if err != nil {
		return nil, err
	}
	return resp.WithHeader("X-Stamp", m.value), nil
}

func runMiddleware(t *testing.T, mw internal.Middleware) *internal.Response {
	t.Helper()
	resp, err := mw.Process(internal.NewRequest(http.MethodGet, "/"), okHandler("next"))
	require.NoError(t, err)
	return resp
}

func TestResolver_Resolve(t *testing.T) {
	t.Parallel()

	reg := internal.NewRegistry()
	reg.Singleton("stamp", &stampMiddleware{value: "named"})
	reg.Singleton("handler", okHandler("terminal"))
	reg.Singleton("number", 42)
	reg.Register("broken", func(context.Context) (any, error) {
		return nil, errors.New("factory failed")
	})
	reg.Register("nothing", func(context.Context) (any, error) {
		return nil, nil
	})

	r := internal.NewResolver(reg)
	ctx := context.Background()

	t.Run("instance middleware", func(t *testing.T) {
		t.Parallel()
		mw, err := r.Resolve(ctx, internal.Instance(&stampMiddleware{value: "inst"}))
		require.NoError(t, err)
		assert.Equal(t, "inst", runMiddleware(t, mw).Header("X-Stamp"))
	})

	t.Run("named middleware", func(t *testing.T) {
		t.Parallel()
		mw, err := r.Resolve(ctx, internal.Named("stamp"))
		require.NoError(t, err)
		assert.Equal(t, "named", runMiddleware(t, mw).Header("X-Stamp"))
	})

	t.Run("function middleware", func(t *testing.T) {
		t.Parallel()
		mw, err := r.Resolve(ctx, internal.Func(func(req *internal.Request, next internal.Handler) (*internal.Response, error) {
			return internal.Text(http.StatusAccepted, "fn"), nil
		}))
		require.NoError(t, err)
		assert.Equal(t, http.StatusAccepted, runMiddleware(t, mw).StatusCode())
	})

	t.Run("handler in middleware position never calls next", func(t *testing.T) {
		t.Parallel()
		mw, err := r.Resolve(ctx, internal.Named("handler"))
		require.NoError(t, err)
		assert.Equal(t, "terminal", string(runMiddleware(t, mw).Bytes()))

		mw, err = r.Resolve(ctx, internal.Func(func(*internal.Request) (*internal.Response, error) {
			return internal.Text(http.StatusOK, "plain func"), nil
		}))
		require.NoError(t, err)
		assert.Equal(t, "plain func", string(runMiddleware(t, mw).Bytes()))
	})

	t.Run("resolution is idempotent", func(t *testing.T) {
		t.Parallel()
		id := internal.Named("stamp")
		first, err := r.Resolve(ctx, id)
		require.NoError(t, err)
		second, err := r.Resolve(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, runMiddleware(t, first).Header("X-Stamp"), runMiddleware(t, second).Header("X-Stamp"))
	})

	t.Run("failures", func(t *testing.T) {
		t.Parallel()
		var nilMiddleware *stampMiddleware

		tests := []struct {
			name string
			id   internal.Identifier
			want error
		}{
			{"unknown name", internal.Named("ghost"), internal.ErrNotRegistered},
			{"not invocable", internal.Named("number"), internal.ErrNotInvocable},
			{"factory returns nil", internal.Named("nothing"), internal.ErrNotInvocable},
			{"nil instance", internal.Instance(nil), internal.ErrNilIdentifier},
			{"typed nil instance", internal.Instance(nilMiddleware), internal.ErrNilIdentifier},
			{"nil func", internal.Func(nil), internal.ErrNilIdentifier},
			{"nil identifier", nil, internal.ErrNilIdentifier},
			{"wrong func shape", internal.Func(func() {}), internal.ErrNotInvocable},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()
				mw, err := r.Resolve(ctx, tt.id)
				require.Nil(t, mw)
				require.ErrorIs(t, err, tt.want)
				require.True(t, internal.IsResolutionError(err))
			})
		}

		_, err := r.Resolve(ctx, internal.Named("broken"))
		require.ErrorContains(t, err, "factory failed")
	})
}

func TestResolver_ResolveHandler(t *testing.T) {
	t.Parallel()

	reg := internal.NewRegistry()
	reg.Singleton("show", okHandler("show"))
	reg.Singleton("stamp", &stampMiddleware{})
	r := internal.NewResolver(reg)
	ctx := context.Background()

	h, err := r.ResolveHandler(ctx, internal.Named("show"))
	require.NoError(t, err)
	resp, err := h.Handle(internal.NewRequest(http.MethodGet, "/"))
	require.NoError(t, err)
	assert.Equal(t, "show", string(resp.Bytes()))

	h, err = r.ResolveHandler(ctx, internal.Func(func(*internal.Request) (*internal.Response, error) {
		return internal.NoContent(http.StatusNoContent), nil
	}))
	require.NoError(t, err)
	resp, err = h.Handle(internal.NewRequest(http.MethodGet, "/"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode())

	_, err = r.ResolveHandler(ctx, internal.Named("stamp"))
	require.ErrorIs(t, err, internal.ErrNotInvocable)
}

func TestResolver_Cache(t *testing.T) {
	t.Parallel()

	lookup := newCountingLookup()
	lookup.reg.Register("resolver-cache-test.stamp", func(context.Context) (any, error) {
		return &stampMiddleware{value: "cached"}, nil
	})

	c := cache.NewMemory[any]()
	t.Cleanup(func() { _ = c.Close() })

	r := internal.NewResolver(lookup, internal.WithResolverCache(c))
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			mw, err := r.Resolve(ctx, internal.Named("resolver-cache-test.stamp"))
			if assert.NoError(t, err) {
				assert.IsType(t, &stampMiddleware{}, mw)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, lookup.count("resolver-cache-test.stamp"))

	ok, err := c.Has(ctx, "conveyor.resolver:resolver-cache-test.stamp")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestResolver_CacheDoesNotStoreFailures(t *testing.T) {
	t.Parallel()

	lookup := newCountingLookup()
	c := cache.NewMemory[any]()
	t.Cleanup(func() { _ = c.Close() })

	r := internal.NewResolver(lookup, internal.WithResolverCache(c))
	ctx := context.Background()

	_, err := r.Resolve(ctx, internal.Named("resolver-cache-test.late"))
	require.ErrorIs(t, err, internal.ErrNotRegistered)

	lookup.reg.Singleton("resolver-cache-test.late", &stampMiddleware{value: "late"})
	mw, err := r.Resolve(ctx, internal.Named("resolver-cache-test.late"))
	require.NoError(t, err)
	assert.Equal(t, "late", runMiddleware(t, mw).Header("X-Stamp"))
}

func TestResolver_CachedResolutionIgnoresCallerCancellation(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	release := make(chan struct{})
	lookup := newCountingLookup()
	lookup.reg.Register("resolver-cache-test.slow", func(ctx context.Context) (any, error) {
		close(started)
		<-release
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return &stampMiddleware{value: "slow"}, nil
	})

	c := cache.NewMemory[any]()
	t.Cleanup(func() { _ = c.Close() })
	r := internal.NewResolver(lookup, internal.WithResolverCache(c))

	disconnected, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := r.Resolve(disconnected, internal.Named("resolver-cache-test.slow"))
		firstErr <- err
	}()
	<-started

	second := make(chan internal.Middleware, 1)
	go func() {
		mw, err := r.Resolve(context.Background(), internal.Named("resolver-cache-test.slow"))
		assert.NoError(t, err)
		second <- mw
	}()

	cancel()
	require.ErrorIs(t, <-firstErr, context.Canceled)

	time.Sleep(20 * time.Millisecond)
	close(release)

	mw := <-second
	require.NotNil(t, mw)
	assert.Equal(t, "slow", runMiddleware(t, mw).Header("X-Stamp"))
	assert.Equal(t, 1, lookup.count("resolver-cache-test.slow"))
}

func TestIdentifier_String(t *testing.T) {
	t.Parallel()

	assert.Contains(t, internal.Named("auth").String(), "auth")
	assert.NotEmpty(t, internal.Instance(&stampMiddleware{}).String())
	assert.NotEmpty(t, internal.Func(okHandler("x")).String())
}
