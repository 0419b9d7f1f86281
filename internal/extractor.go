package internal

import (
	"fmt"
	"net/http"
	"strings"
)

// ExtractorSource extracts a value from the request.
// Returns the value and true if found, or ("", false) if not present.
type ExtractorSource = func(*Request) (string, bool)

// Extractor tries multiple sources in order and returns the first match.
type Extractor struct {
	sources []ExtractorSource
}

// NewExtractor creates an Extractor that tries the given sources in order.
func NewExtractor(sources ...ExtractorSource) Extractor {
	return Extractor{sources: sources}
}

// Extract iterates sources in order and returns the first non-empty value.
// Returns ("", false) if all sources miss.
func (e Extractor) Extract(req *Request) (string, bool) {
	for _, src := range e.sources {
		if v, ok := src(req); ok && v != "" {
			return v, true
		}
	}
	return "", false
}

// nonEmpty turns a plain string read into a source result.
func nonEmpty(v string) (string, bool) {
	return v, v != ""
}

// FromHeader returns a source that reads from a request header.
func FromHeader(name string) ExtractorSource {
	return func(req *Request) (string, bool) {
		return nonEmpty(req.Header(name))
	}
}

// FromQuery returns a source that reads from a query parameter.
func FromQuery(name string) ExtractorSource {
	return func(req *Request) (string, bool) {
		return nonEmpty(req.Query(name))
	}
}

// FromCookie returns a source that reads from a plain cookie.
func FromCookie(name string) ExtractorSource {
	return func(req *Request) (string, bool) {
		for _, c := range (&http.Request{Header: req.header}).Cookies() {
			if c.Name == name {
				return nonEmpty(c.Value)
			}
		}
		return "", false
	}
}

// FromParam returns a source that reads from a path parameter.
// Only route-level middleware and handlers see path parameters.
func FromParam(name string) ExtractorSource {
	return func(req *Request) (string, bool) {
		return nonEmpty(req.Param(name))
	}
}

// FromAttribute returns a source that reads a request attribute.
// Non-string values are formatted with fmt.Sprint.
func FromAttribute(key any) ExtractorSource {
	return func(req *Request) (string, bool) {
		switch v := req.Attribute(key).(type) {
		case nil:
			return "", false
		case string:
			return nonEmpty(v)
		default:
			return nonEmpty(fmt.Sprint(v))
		}
	}
}

// FromRemoteIP returns a source that reads the peer IP, ignoring proxy headers.
func FromRemoteIP() ExtractorSource {
	return func(req *Request) (string, bool) {
		return nonEmpty(req.RemoteIP())
	}
}

// FromIP returns a source that reads the client IP, trusting proxy headers.
func FromIP() ExtractorSource {
	return func(req *Request) (string, bool) {
		return nonEmpty(req.IP())
	}
}

// FromBearerToken returns a source that reads a Bearer token from the Authorization header.
// Uses case-insensitive comparison on the "Bearer " prefix.
func FromBearerToken() ExtractorSource {
	return func(req *Request) (string, bool) {
		auth := req.Header("Authorization")
		if len(auth) < 7 || !strings.EqualFold(auth[:7], "bearer ") {
			return "", false
		}
		return nonEmpty(auth[7:])
	}
}
