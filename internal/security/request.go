package security

import (
	"net/http"
	"net/url"
	"strings"
)

// RequestInfo carries the request metadata the security core inspects. The
// HTTP layer builds one per request; the core never touches the transport.
type RequestInfo struct {
	Origin       string
	Referer      string
	ForwardedFor string
	RealIP       string
	UserAgent    string
	RequestID    string
}

// InfoFromRequest extracts the relevant headers from an incoming request.
func InfoFromRequest(r *http.Request) RequestInfo {
	return RequestInfo{
		Origin:       r.Header.Get("Origin"),
		Referer:      r.Header.Get("Referer"),
		ForwardedFor: r.Header.Get("X-Forwarded-For"),
		RealIP:       r.Header.Get("X-Real-IP"),
		UserAgent:    r.Header.Get("User-Agent"),
		RequestID:    r.Header.Get("X-Request-Id"),
	}
}

// ClientIP prefers X-Forwarded-For (first hop), then X-Real-IP.
func (ri RequestInfo) ClientIP() string {
	if ri.ForwardedFor != "" {
		first := strings.Split(ri.ForwardedFor, ",")[0]
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ri.RealIP != "" {
		return ri.RealIP
	}
	return "unknown"
}

// Domain resolves the requesting hostname from Origin, falling back to
// Referer. Returns false when neither header yields a parseable hostname.
func (ri RequestInfo) Domain() (string, bool) {
	for _, raw := range []string{ri.Origin, ri.Referer} {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil {
			continue
		}
		if h := u.Hostname(); h != "" {
			return h, true
		}
	}
	return "", false
}
