// Package conveyor provides a request dispatch pipeline for Go HTTP services.
//
// A request enters an ordered list of middleware, each of which can act
// before and after the rest of the chain (the onion model) or answer early.
// Middleware and route handlers are named by identifiers and resolved only
// when a request actually reaches them, so an early answer never constructs
// what lies behind it.
//
// # Quick Start
//
//	app := conveyor.New(
//	    conveyor.WithLogger("api", middlewares.RequestIDExtractor()),
//	    conveyor.WithMiddleware(
//	        conveyor.Instance(middlewares.RequestID()),
//	        conveyor.Named("auth"),
//	    ),
//	    conveyor.WithFactory("auth", func(ctx context.Context) (any, error) {
//	        return middlewares.BearerAuth(tokens.Verify), nil
//	    }),
//	    conveyor.WithControllers(&UsersController{}),
//	)
//
//	if err := app.Run(":8080"); err != nil {
//	    log.Fatal(err)
//	}
//
// # Identifiers
//
// Three kinds of [Identifier] exist:
//
//   - [Instance] wraps a constructed Middleware or Handler
//   - [Named] refers to a factory in the [Registry] (or any [Lookup])
//   - [Func] wraps a plain function with a middleware or handler signature
//
// A Handler placed where middleware is expected acts as a terminal
// middleware that never calls next.
//
// # Controllers
//
// Controllers declare routes on a [Router]:
//
//	type UsersController struct{}
//
//	func (UsersController) Routes(r conveyor.Router) {
//	    r.GET("/users/{id}", conveyor.Named("users.show"))
//	    r.Route("/admin", func(r conveyor.Router) {
//	        r.Use(conveyor.Named("admin.only"))
//	        r.DELETE("/users/{id}", conveyor.Named("users.delete"))
//	    })
//	}
//
// Unknown paths get 404. Known paths with the wrong method get 405 with an
// Allow header. Neither is an error.
//
// # Middleware
//
//	conveyor.Func(func(req *conveyor.Request, next conveyor.Handler) (*conveyor.Response, error) {
//	    start := time.Now()
//	    resp, err := next.Handle(req)
//	    if err != nil {
//	        return nil, err
//	    }
//	    return resp.WithHeader("Server-Timing", fmt.Sprintf("app;dur=%d", time.Since(start).Milliseconds())), nil
//	})
//
// # Errors
//
// The App places an [ErrorBoundary] at the front of the pipeline. Returned
// errors and panics below it become responses: JSON for clients that want
// JSON, an HTML page otherwise. Return an [HTTPError] to pick the status:
//
//	return nil, conveyor.ErrNotFound("user not found", conveyor.WithErrorCode("user_not_found"))
//
// # Shutdown
//
// Run handles SIGINT/SIGTERM for graceful shutdown. Register cleanup with
// [ShutdownHook]:
//
//	app.Run(":8080",
//	    conveyor.ShutdownHook(app.Shutdown()),
//	    conveyor.ShutdownHook(func(ctx context.Context) error { return client.Close() }),
//	)
package conveyor
