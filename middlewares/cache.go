package middlewares

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrymomot/conveyor/internal"
	"github.com/dmitrymomot/conveyor/pkg/cache"
	"github.com/dmitrymomot/conveyor/pkg/logger"
)

// DefaultCacheTTL is how long cached responses live by default.
const DefaultCacheTTL = time.Minute

// CacheHeader reports whether a response came from the cache.
const CacheHeader = "X-Cache"

// CachedResponse is the stored form of a response.
type CachedResponse struct {
	Header http.Header `json:"header"`
	Body   []byte      `json:"body"`
	Status int         `json:"status"`
}

// CacheConfig configures the response cache middleware.
type CacheConfig struct {
	// Key builds the cache key. Defaults to method, host and full URL.
	Key func(req *internal.Request) string

	// Logger receives cache backend failures, which never fail the request.
	Logger *slog.Logger

	TTL time.Duration
}

// CacheOption configures CacheConfig.
type CacheOption func(*CacheConfig)

// WithCacheTTL sets how long responses are kept.
func WithCacheTTL(d time.Duration) CacheOption {
	return func(cfg *CacheConfig) {
		cfg.TTL = d
	}
}

// WithCacheKey sets the cache key function.
func WithCacheKey(fn func(req *internal.Request) string) CacheOption {
	return func(cfg *CacheConfig) {
		if fn != nil {
			cfg.Key = fn
		}
	}
}

// WithCacheLogger sets the logger for cache backend failures.
func WithCacheLogger(l *slog.Logger) CacheOption {
	return func(cfg *CacheConfig) {
		if l != nil {
			cfg.Logger = l
		}
	}
}

// Cache returns middleware that stores successful GET responses in store
// and answers repeated requests from it. A hit short-circuits the rest of
// the chain. Responses are marked with X-Cache: HIT or MISS.
//
// Only 200 responses are stored, and only when they carry no Set-Cookie and
// no no-store, no-cache or private Cache-Control directive. Requests carrying Authorization are never cached. Streamed bodies
// are buffered before storing.
//
// Example:
//
//	store := cache.NewRedis[middlewares.CachedResponse](client, nil, cache.WithPrefix("http"))
//	conveyor.WithMiddleware(conveyor.Instance(middlewares.Cache(store)))
func Cache(store cache.Cache[CachedResponse], opts ...CacheOption) internal.Middleware {
	cfg := &CacheConfig{
		Key:    defaultCacheKey,
		Logger: logger.NewNope(),
		TTL:    DefaultCacheTTL,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return internal.MiddlewareFunc(func(req *internal.Request, next internal.Handler) (*internal.Response, error) {
		if req.Method() != http.MethodGet || req.Header("Authorization") != "" {
			return next.Handle(req)
		}

		ctx := req.Context()
		key := cfg.Key(req)

		hit, err := store.Get(ctx, key)
		switch {
		case err == nil:
			return fromCached(hit).WithHeader(CacheHeader, "HIT"), nil
		case !errors.Is(err, cache.ErrNotFound):
			cfg.Logger.WarnContext(ctx, "response cache read failed", slog.String("key", key), slog.Any("error", err))
		}

		resp, err := next.Handle(req)
		if err != nil {
			return nil, err
		}
		if !cacheable(resp) {
			return resp, nil
		}

		resp, err = resp.Buffered()
		if err != nil {
			return nil, err
		}
		if err := store.Set(ctx, key, toCached(resp), cfg.TTL); err != nil {
			cfg.Logger.WarnContext(ctx, "response cache write failed", slog.String("key", key), slog.Any("error", err))
		}
		return resp.WithHeader(CacheHeader, "MISS"), nil
	})
}

func defaultCacheKey(req *internal.Request) string {
	return req.Method() + " " + req.Host() + req.URL().RequestURI()
}

func cacheable(resp *internal.Response) bool {
	if resp.StatusCode() != http.StatusOK || resp.Header("Set-Cookie") != "" {
		return false
	}
	for _, v := range resp.HeaderValues("Cache-Control") {
		for _, directive := range strings.Split(v, ",") {
			name, _, _ := strings.Cut(strings.TrimSpace(directive), "=")
			switch strings.ToLower(strings.TrimSpace(name)) {
			case "no-store", "no-cache", "private":
				return false
			}
		}
	}
	return true
}

func toCached(resp *internal.Response) CachedResponse {
	header := resp.Headers()
	header.Del(CacheHeader)
	return CachedResponse{
		Status: resp.StatusCode(),
		Header: header,
		Body:   resp.Bytes(),
	}
}

func fromCached(c CachedResponse) *internal.Response {
	resp := internal.NewResponse(c.Status)
	for name, values := range c.Header {
		for _, v := range values {
			resp = resp.WithAddedHeader(name, v)
		}
	}
	return resp.WithBytes(c.Body)
}
