package hostrouter

import "strings"

// Normalize strips the port and lowercases host.
// IPv6 literals keep their brackets.
//
// Examples:
//
//	"example.com:8080" -> "example.com"
//	"[::1]:8080" -> "[::1]"
//	"Example.COM" -> "example.com"
func Normalize(host string) string {
	if idx := strings.LastIndex(host, ":"); idx != -1 {
		// Not a port if the colon is inside an IPv6 literal
		if !strings.Contains(host[idx:], "]") {
			host = host[:idx]
		}
	}
	return strings.ToLower(host)
}

// Subdomain extracts the subdomain of host relative to baseDomain.
// Returns empty string if host doesn't match the base domain or has no subdomain.
//
// Examples:
//
//	Subdomain("foo.example.com", "example.com")     // "foo"
//	Subdomain("bar.foo.example.com", "example.com") // "bar.foo"
//	Subdomain("example.com", "example.com")         // ""
//	Subdomain("other.com", "example.com")           // ""
func Subdomain(host, baseDomain string) string {
	host = Normalize(host)
	base := strings.ToLower(baseDomain)

	if host == base {
		return ""
	}
	sub, ok := strings.CutSuffix(host, "."+base)
	if !ok {
		return ""
	}
	return sub
}
