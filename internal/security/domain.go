// Package security implements the chat-widget trust decisions: domain
// allow-lists, rate limiting, replay protection and JWT validation.
package security

import "strings"

// NormalizeDomain strips scheme, trailing slash and port, and lowercases.
// Applied symmetrically to candidates, allow-list entries and JWT issuers.
func NormalizeDomain(domain string) string {
	d := strings.TrimSpace(domain)
	d = strings.TrimPrefix(d, "https://")
	d = strings.TrimPrefix(d, "http://")
	d = strings.TrimSuffix(d, "/")
	if i := strings.LastIndex(d, ":"); i >= 0 && isDigits(d[i+1:]) {
		d = d[:i]
	}
	return strings.ToLower(d)
}

// MatchesAllowedDomains reports whether domain is permitted by the
// allow-list. An empty list allows every domain (backward compatibility).
// Entries may be exact or "*.base" wildcards; a wildcard matches the base
// itself and any subdomain of it.
func MatchesAllowedDomains(domain string, allowedDomains []string) bool {
	if len(allowedDomains) == 0 {
		return true
	}
	candidate := NormalizeDomain(domain)
	for _, entry := range allowedDomains {
		allowed := NormalizeDomain(entry)
		if candidate == allowed {
			return true
		}
		if base, ok := strings.CutPrefix(allowed, "*."); ok {
			if candidate == base || strings.HasSuffix(candidate, "."+base) {
				return true
			}
		}
	}
	return false
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
