package middlewares

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/dmitrymomot/conveyor/internal"
)

// Default rate limit settings.
const (
	DefaultRateLimitRPS   = 10
	DefaultRateLimitBurst = 20
	DefaultRateLimitIdle  = 10 * time.Minute
)

// RateLimitConfig configures the rate limit middleware.
type RateLimitConfig struct {
	// Extractor picks the limiter key. Requests without a key are not limited.
	Extractor internal.Extractor

	// OnLimit builds the response for rejected requests.
	OnLimit func(req *internal.Request, err *RateLimitError) (*internal.Response, error)

	// RPS is the sustained request rate per key.
	RPS float64

	// Burst is the bucket size per key.
	Burst int

	// IdleTTL drops limiters that have not been used for this long.
	IdleTTL time.Duration
}

// RateLimitOption configures RateLimitConfig.
type RateLimitOption func(*RateLimitConfig)

// WithRateLimitKey sets the extractor that picks the limiter key.
// Defaults to the peer IP.
func WithRateLimitKey(ext internal.Extractor) RateLimitOption {
	return func(cfg *RateLimitConfig) {
		cfg.Extractor = ext
	}
}

// WithRateLimitTrustProxyHeaders keys limiters by the client IP taken from
// CF-Connecting-IP or X-Forwarded-For. Use it only behind a proxy that
// overwrites those headers; otherwise any client can pick its own key.
func WithRateLimitTrustProxyHeaders() RateLimitOption {
	return func(cfg *RateLimitConfig) {
		cfg.Extractor = internal.NewExtractor(internal.FromIP())
	}
}

// WithRateLimitHandler sets the response for rejected requests.
// Returning the error makes the rejection a fault for the error boundary.
func WithRateLimitHandler(fn func(req *internal.Request, err *RateLimitError) (*internal.Response, error)) RateLimitOption {
	return func(cfg *RateLimitConfig) {
		if fn != nil {
			cfg.OnLimit = fn
		}
	}
}

// WithRateLimitIdleTTL sets how long an unused per-key limiter is kept.
func WithRateLimitIdleTTL(d time.Duration) RateLimitOption {
	return func(cfg *RateLimitConfig) {
		if d > 0 {
			cfg.IdleTTL = d
		}
	}
}

// RateLimit returns middleware that applies a token bucket per key.
// Rejected requests never reach the rest of the chain; by default they get
// 429 with a Retry-After header.
//
// Limiters are keyed by the peer address of the connection. Forwarded
// headers are ignored unless WithRateLimitTrustProxyHeaders is given.
func RateLimit(rps float64, burst int, opts ...RateLimitOption) internal.Middleware {
	cfg := &RateLimitConfig{
		Extractor: internal.NewExtractor(internal.FromRemoteIP()),
		OnLimit:   defaultRateLimitResponse,
		RPS:       rps,
		Burst:     burst,
		IdleTTL:   DefaultRateLimitIdle,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.RPS <= 0 {
		cfg.RPS = DefaultRateLimitRPS
	}
	if cfg.Burst <= 0 {
		cfg.Burst = DefaultRateLimitBurst
	}

	limiters := newLimiterSet(rate.Limit(cfg.RPS), cfg.Burst, cfg.IdleTTL)

	return internal.MiddlewareFunc(func(req *internal.Request, next internal.Handler) (*internal.Response, error) {
		key, ok := cfg.Extractor.Extract(req)
		if !ok {
			return next.Handle(req)
		}

		r := limiters.get(key, time.Now()).Reserve()
		if delay := r.Delay(); delay > 0 {
			r.Cancel()
			return cfg.OnLimit(req, &RateLimitError{Key: key, RetryAfter: delay})
		}

		return next.Handle(req)
	})
}

func defaultRateLimitResponse(_ *internal.Request, err *RateLimitError) (*internal.Response, error) {
	seconds := int(math.Ceil(err.RetryAfter.Seconds()))
	return internal.Text(http.StatusTooManyRequests, http.StatusText(http.StatusTooManyRequests)).
		WithHeader("Retry-After", strconv.Itoa(max(seconds, 1))), nil
}

// limiterSet holds one limiter per key and forgets idle keys.
type limiterSet struct {
	entries   map[string]*limiterEntry
	lastSweep time.Time
	limit     rate.Limit
	burst     int
	idle      time.Duration
	mu        sync.Mutex
}

type limiterEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func newLimiterSet(limit rate.Limit, burst int, idle time.Duration) *limiterSet {
	return &limiterSet{
		entries:   make(map[string]*limiterEntry),
		lastSweep: time.Now(),
		limit:     limit,
		burst:     burst,
		idle:      idle,
	}
}

func (s *limiterSet) get(key string, now time.Time) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Sub(s.lastSweep) > s.idle {
		for k, e := range s.entries {
			if now.Sub(e.lastSeen) > s.idle {
				delete(s.entries, k)
			}
		}
		s.lastSweep = now
	}

	e, ok := s.entries[key]
	if !ok {
		e = &limiterEntry{lim: rate.NewLimiter(s.limit, s.burst)}
		s.entries[key] = e
	}
	e.lastSeen = now
	return e.lim
}
