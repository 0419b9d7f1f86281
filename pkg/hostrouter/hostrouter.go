package hostrouter

import "strings"

// Table maps host patterns to values of type H.
// Exact: "api.example.com"
// Wildcard: "*.example.com"
//
// A Table is read-only after New and safe for concurrent use.
type Table[H any] struct {
	exact    map[string]H // "api.example.com" -> value
	wildcard map[string]H // "example.com" -> value (for *.example.com)
	fallback H
}

// New creates a host table from routes.
// fallback is returned by Lookup for hosts that match no pattern.
func New[H any](routes map[string]H, fallback H) *Table[H] {
	t := &Table[H]{
		exact:    make(map[string]H),
		wildcard: make(map[string]H),
		fallback: fallback,
	}

	for pattern, v := range routes {
		pattern = strings.ToLower(strings.TrimSpace(pattern))
		if pattern == "" {
			continue
		}
		if domain, ok := strings.CutPrefix(pattern, "*."); ok {
			t.wildcard[domain] = v
		} else {
			t.exact[pattern] = v
		}
	}

	return t
}

// Match returns the value for host. Exact patterns win over wildcards.
// A wildcard matches exactly one label: "*.example.com" matches
// "foo.example.com" but neither "example.com" nor "a.b.example.com".
func (t *Table[H]) Match(host string) (H, bool) {
	host = Normalize(host)

	if v, ok := t.exact[host]; ok {
		return v, true
	}
	if _, domain, ok := strings.Cut(host, "."); ok {
		if v, ok := t.wildcard[domain]; ok {
			return v, true
		}
	}

	var zero H
	return zero, false
}

// Lookup returns the value for host, or the fallback.
func (t *Table[H]) Lookup(host string) H {
	if v, ok := t.Match(host); ok {
		return v
	}
	return t.fallback
}

// Len returns the number of patterns.
func (t *Table[H]) Len() int {
	return len(t.exact) + len(t.wildcard)
}
