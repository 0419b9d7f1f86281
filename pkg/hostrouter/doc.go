// Package hostrouter maps request hosts to values.
//
// A [Table] is generic over the value it routes to: the conveyor runtime
// uses a Table[http.Handler] to serve several applications from one server.
//
// # Host Patterns
//
// Two pattern types are supported:
//
//   - Exact: "api.example.com" matches only that host
//   - Wildcard: "*.example.com" matches any single-label subdomain
//
// Exact matches take priority over wildcard matches. Host matching is case-insensitive,
// and ports are stripped before matching.
//
// # Usage
//
//	table := hostrouter.New(map[string]http.Handler{
//	    "api.example.com": apiApp,
//	    "*.example.com":   tenantApp,
//	}, landingApp)
//
//	h := table.Lookup(r.Host)
//
// # IPv6 Support
//
// IPv6 literals keep their brackets: "[::1]:8080" normalizes to "[::1]".
package hostrouter
