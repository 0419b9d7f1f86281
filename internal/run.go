package internal

import (
	"errors"
	"net/http"

	"github.com/dmitrymomot/conveyor/pkg/hostrouter"
)

// Run starts a multi-app HTTP server and blocks until shutdown.
// Use this to serve several Apps under different host patterns. Each App
// keeps its own pipeline; the host decides which pipeline a request enters.
//
// Example:
//
//	api := conveyor.New(conveyor.WithControllers(&APIController{}))
//	site := conveyor.New(conveyor.WithControllers(&PagesController{}))
//
//	err := conveyor.Run(
//	    conveyor.Domain("api.acme.com", api),
//	    conveyor.Domain("*.acme.com", site),
//	    conveyor.Address(":8080"),
//	    conveyor.Logger(log),
//	)
func Run(opts ...RunOption) error {
	cfg := buildRunConfig(opts...)

	handler, err := hostHandler(cfg)
	if err != nil {
		return err
	}

	return serve(handler, cfg)
}

// hostHandler builds the top-level handler from the domain mappings.
func hostHandler(cfg *runConfig) (http.Handler, error) {
	if len(cfg.domains) == 0 {
		if cfg.fallback == nil {
			return nil, errors.New("conveyor.Run: no domains or fallback configured")
		}
		return cfg.fallback, nil
	}

	var fallback http.Handler = http.NotFoundHandler()
	if cfg.fallback != nil {
		fallback = cfg.fallback
	}

	routes := make(map[string]http.Handler, len(cfg.domains))
	for pattern, app := range cfg.domains {
		routes[pattern] = app
	}
	table := hostrouter.New(routes, fallback)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		table.Lookup(r.Host).ServeHTTP(w, r)
	}), nil
}
