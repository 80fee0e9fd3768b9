package security

import (
	"context"
	"sync"
	"time"
)

// Widget traffic policy: each limiter applies independently and either
// rejection short-circuits the composite check.
const (
	OrgMaxPerWindow = 100
	IPMaxPerWindow  = 20
	RateWindow      = time.Minute
)

// RateLimitResult is returned for every limiter decision.
type RateLimitResult struct {
	Allowed   bool
	Remaining int
	ResetTime time.Time
	Error     string
}

type rateWindow struct {
	count   int
	resetAt time.Time
}

// Limiter keeps fixed-window counters per key, process-local.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*rateWindow
	now     func() time.Time
}

func NewLimiter() *Limiter {
	return &Limiter{windows: map[string]*rateWindow{}, now: time.Now}
}

// Allow counts one request against key. The first request of a window
// creates it; once count reaches maxRequests further requests are rejected
// until the window resets.
func (l *Limiter) Allow(key string, maxRequests int, window time.Duration) RateLimitResult {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &rateWindow{count: 1, resetAt: now.Add(window)}
		l.windows[key] = w
		return RateLimitResult{Allowed: true, Remaining: maxRequests - 1, ResetTime: w.resetAt}
	}
	if w.count >= maxRequests {
		return RateLimitResult{Remaining: 0, ResetTime: w.resetAt, Error: "Rate limit exceeded"}
	}
	w.count++
	return RateLimitResult{Allowed: true, Remaining: maxRequests - w.count, ResetTime: w.resetAt}
}

// AllowWidgetRequest applies the two-stage policy: per-organization first,
// then per-source-IP.
func (l *Limiter) AllowWidgetRequest(orgID, ip string) RateLimitResult {
	if res := l.Allow(OrgKey(orgID), OrgMaxPerWindow, RateWindow); !res.Allowed {
		return res
	}
	return l.Allow(IPKey(ip), IPMaxPerWindow, RateWindow)
}

// RunJanitor drops expired windows on a fixed cadence. Expired windows are
// also reset lazily on access, so this only bounds memory.
func (l *Limiter) RunJanitor(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			l.sweep()
		}
	}
}

func (l *Limiter) sweep() {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, w := range l.windows {
		if !now.Before(w.resetAt) {
			delete(l.windows, key)
		}
	}
}

func OrgKey(orgID string) string { return "org:" + orgID }

func IPKey(ip string) string { return "ip:" + ip }
