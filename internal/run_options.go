package internal

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/dmitrymomot/conveyor/pkg/config"
)

// RunOption configures the server runtime.
type RunOption func(*runConfig)

type hook func(context.Context) error

type runConfig struct {
	baseCtx         context.Context
	listener        net.Listener
	logger          *slog.Logger
	fallback        *App
	domains         map[string]*App
	address         string
	startupHooks    []hook
	shutdownHooks   []hook
	shutdownTimeout time.Duration
}

func buildRunConfig(opts ...RunOption) *runConfig {
	cfg := &runConfig{
		baseCtx:         context.Background(),
		domains:         make(map[string]*App),
		address:         ":8080",
		shutdownTimeout: defaultShutdownTimeout,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Address sets the listen address. Default: ":8080".
func Address(addr string) RunOption {
	return func(c *runConfig) {
		if addr != "" {
			c.address = addr
		}
	}
}

// Listener serves on ln instead of opening Address. Run closes it on
// shutdown.
func Listener(ln net.Listener) RunOption {
	return func(c *runConfig) {
		c.listener = ln
	}
}

// Logger sets the logger for server lifecycle events.
func Logger(l *slog.Logger) RunOption {
	return func(c *runConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// ShutdownTimeout bounds graceful shutdown, hooks included. Default: 30s.
func ShutdownTimeout(d time.Duration) RunOption {
	return func(c *runConfig) {
		if d > 0 {
			c.shutdownTimeout = d
		}
	}
}

// ServerConfig applies the address and shutdown timeout from a config file.
//
//	app.Run(cfg.Server.Addr, conveyor.ServerConfig(cfg.Server))
func ServerConfig(sc config.ServerConfig) RunOption {
	return func(c *runConfig) {
		Address(sc.Addr)(c)
		ShutdownTimeout(sc.ShutdownTimeout)(c)
	}
}

// StartupHook runs fn before the server accepts connections. Startup hooks
// run concurrently and the first failure aborts Run.
//
//	conveyor.StartupHook(func(ctx context.Context) error {
//	    return warmCache(ctx)
//	})
func StartupHook(fn func(context.Context) error) RunOption {
	return func(c *runConfig) {
		if fn != nil {
			c.startupHooks = append(c.startupHooks, fn)
		}
	}
}

// ShutdownHook runs fn after the server stopped accepting requests.
// Hooks run one at a time in reverse registration order, so resources
// opened first are released last. A failing hook does not stop the rest.
//
//	conveyor.ShutdownHook(redis.Shutdown(client))
func ShutdownHook(fn func(context.Context) error) RunOption {
	return func(c *runConfig) {
		if fn != nil {
			c.shutdownHooks = append(c.shutdownHooks, fn)
		}
	}
}

// Domain routes requests whose host matches pattern to app.
// Patterns are exact ("api.example.com") or wildcard ("*.example.com").
//
//	conveyor.Run(
//	    conveyor.Domain("api.acme.com", apiApp),
//	    conveyor.Domain("*.acme.com", tenantApp),
//	)
func Domain(pattern string, app *App) RunOption {
	return func(c *runConfig) {
		if pattern != "" && app != nil {
			c.domains[pattern] = app
		}
	}
}

// Fallback serves requests matching no Domain. Without domains it serves
// everything.
func Fallback(app *App) RunOption {
	return func(c *runConfig) {
		if app != nil {
			c.fallback = app
		}
	}
}

// WithContext sets the parent of the signal context. Cancelling ctx shuts
// the server down like SIGTERM does.
func WithContext(ctx context.Context) RunOption {
	return func(c *runConfig) {
		if ctx != nil {
			c.baseCtx = ctx
		}
	}
}
