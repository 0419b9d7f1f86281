package redis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/conveyor/pkg/health"
	"github.com/dmitrymomot/conveyor/pkg/logger"
)

var (
	ErrEmptyURL      = errors.New("redis: empty connection URL")
	ErrInvalidURL    = errors.New("redis: invalid connection URL")
	ErrUnreachable   = errors.New("redis: server unreachable")
	ErrNotConfigured = errors.New("redis: client not configured")
)

// Option configures Open.
type Option func(*settings)

type settings struct {
	logger       *slog.Logger
	poolSize     int
	minIdle      int
	dialTimeout  time.Duration
	readTimeout  time.Duration
	writeTimeout time.Duration
	attempts     int
	backoff      time.Duration
}

func defaults() settings {
	return settings{
		logger:       logger.NewNope(),
		poolSize:     10,
		minIdle:      2,
		dialTimeout:  5 * time.Second,
		readTimeout:  3 * time.Second,
		writeTimeout: 3 * time.Second,
		attempts:     3,
		backoff:      2 * time.Second,
	}
}

// WithPool sets the pool size and the number of idle connections kept open.
// Defaults: 10 and 2.
func WithPool(size, minIdle int) Option {
	return func(s *settings) {
		if size > 0 {
			s.poolSize = size
		}
		if minIdle >= 0 {
			s.minIdle = minIdle
		}
	}
}

// WithTimeouts sets dial, read and write timeouts. Zero keeps the default.
func WithTimeouts(dial, read, write time.Duration) Option {
	return func(s *settings) {
		if dial > 0 {
			s.dialTimeout = dial
		}
		if read > 0 {
			s.readTimeout = read
		}
		if write > 0 {
			s.writeTimeout = write
		}
	}
}

// WithRetryAttempts sets how many times Open pings before giving up.
// Default: 3.
func WithRetryAttempts(n int) Option {
	return func(s *settings) {
		s.attempts = max(n, 1)
	}
}

// WithRetryBackoff sets the base delay between attempts. The n-th retry
// waits n times this value. Default: 2s.
func WithRetryBackoff(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.backoff = d
		}
	}
}

// WithLogger logs failed connection attempts.
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// Open parses url, connects and pings until the server answers or the
// attempts run out. Both redis:// and rediss:// (TLS) are accepted.
//
//	client, err := redis.Open(ctx, cfg.Redis.URL, redis.WithPool(20, 5))
//	if err != nil {
//		return err
//	}
//	defer client.Close()
func Open(ctx context.Context, url string, opts ...Option) (redis.UniversalClient, error) {
	s := defaults()
	for _, opt := range opts {
		opt(&s)
	}

	ro, err := clientOptions(url, s)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		client := redis.NewClient(ro)
		if lastErr = client.Ping(ctx).Err(); lastErr == nil {
			return client, nil
		}
		_ = client.Close()

		s.logger.WarnContext(ctx, "redis ping failed",
			slog.String("addr", ro.Addr),
			slog.Int("attempt", attempt),
			slog.Any("error", lastErr),
		)
		if attempt == s.attempts {
			break
		}

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrUnreachable, ctx.Err())
		case <-time.After(time.Duration(attempt) * s.backoff):
		}
	}
	return nil, errors.Join(ErrUnreachable, lastErr)
}

// clientOptions builds go-redis options from url and s.
func clientOptions(url string, s settings) (*redis.Options, error) {
	if url == "" {
		return nil, ErrEmptyURL
	}
	if !strings.HasPrefix(url, "redis://") && !strings.HasPrefix(url, "rediss://") {
		return nil, fmt.Errorf("%w: unsupported scheme", ErrInvalidURL)
	}
	ro, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Join(ErrInvalidURL, err)
	}

	ro.PoolSize = s.poolSize
	ro.MinIdleConns = s.minIdle
	ro.DialTimeout = s.dialTimeout
	ro.ReadTimeout = s.readTimeout
	ro.WriteTimeout = s.writeTimeout
	return ro, nil
}

// Healthcheck reports whether the server answers PING.
//
//	conveyor.WithReadinessCheck("redis", redis.Healthcheck(client))
func Healthcheck(client redis.UniversalClient) health.CheckFunc {
	return func(ctx context.Context) error {
		if client == nil {
			return ErrNotConfigured
		}
		if err := client.Ping(ctx).Err(); err != nil {
			return errors.Join(ErrUnreachable, err)
		}
		return nil
	}
}

// Shutdown returns a shutdown hook closing client.
//
//	conveyor.ShutdownHook(redis.Shutdown(client))
func Shutdown(client io.Closer) func(context.Context) error {
	return func(context.Context) error {
		if client == nil {
			return nil
		}
		return client.Close()
	}
}
