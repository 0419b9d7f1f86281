// Package internal provides the core types and implementation for conveyor.
//
// This package is internal and should not be used directly. Import
// "github.com/dmitrymomot/conveyor" instead, which re-exports the public API.
//
// # Core Types
//
//   - Request, Response: immutable HTTP message values; With* methods return copies
//   - Handler, Middleware: the two capabilities of the onion chain
//   - Identifier: Instance, Named or Func reference to a middleware or handler
//   - Registry, Lookup: name to factory mapping behind Named identifiers
//   - Resolver: turns identifiers into invocables when the chain reaches them
//   - Dispatcher: the ordered middleware list and the per-request chain
//   - RouterMiddleware, Routes: route matching as the last middleware
//   - ErrorBoundary, FaultResponder: faults to responses
//   - App: wires all of the above and serves it over net/http
//
// # Dispatch
//
// Each Dispatch builds a fresh chain of links, last-registered first, around a
// terminal handler that answers 500. A link resolves its identifier only when
// it is invoked, so a middleware that returns without calling next prevents
// everything after it from being constructed:
//
//	d := internal.NewDispatcher(internal.NewResolver(registry))
//	_ = d.Add(internal.Instance(boundary), internal.Named("auth"), internal.Instance(router))
//	resp, err := d.Dispatch(req)
//
// Middleware see the request in registration order and the response in
// reverse order. Calling next twice fails with ErrNextCalledTwice; returning
// neither a response nor an error fails with ErrNoResponse.
//
// # Faults
//
// A fault is a non-nil error or a panic. It propagates outward until an
// ErrorBoundary converts it with the FaultResponder chosen by the request's
// AcceptancePreference. If the responder itself fails, the boundary returns a
// *FaultResponderError, which every outer boundary passes through and which
// Dispatch returns to the host.
//
// # Routing
//
// Routes are declared through the Router interface and matched by chi. The
// router adapter stores path parameters on the request, resolves the route
// handler lazily and runs route-level middleware around it. Unknown paths
// yield 404; known paths with another method yield 405 with Allow.
//
//	type UsersController struct{}
//
//	func (UsersController) Routes(r internal.Router) {
//	    r.Route("/users", func(r internal.Router) {
//	        r.Use(internal.Named("auth"))
//	        r.GET("/{id}", internal.Named("users.show"))
//	    })
//	}
//
// # Lifecycle
//
// App.Run serves one App with graceful shutdown; Run serves several Apps
// selected by host. Startup hooks run concurrently before the listener
// opens, shutdown hooks run in order after the server stops.
package internal
