package ratelimit

import (
	"sync"

	"golang.org/x/time/rate"
)

// RedirectLimiter throttles the public click redirect per client IP with an
// in-process token bucket. It exists to shed bursts cheaply; the redirect
// itself must never fail because of it, so callers treat a rejection as
// "skip tracking, still redirect".
//
// Per-IP buckets are capped; when the map is full, unknown IPs are allowed
// through rather than evicting, since the redirect path is best-effort.
type RedirectLimiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter

	perSecond rate.Limit
	burst     int
	maxKeys   int
}

func NewRedirectLimiter(perSecond int) *RedirectLimiter {
	if perSecond <= 0 {
		perSecond = 20
	}
	return &RedirectLimiter{
		buckets:   make(map[string]*rate.Limiter),
		perSecond: rate.Limit(perSecond),
		burst:     perSecond * 2,
		maxKeys:   100_000,
	}
}

// Allow reports whether this IP may have its click recorded right now.
func (l *RedirectLimiter) Allow(ip string) bool {
	if ip == "" {
		return true
	}
	l.mu.Lock()
	b, ok := l.buckets[ip]
	if !ok {
		if len(l.buckets) >= l.maxKeys {
			l.mu.Unlock()
			return true
		}
		b = rate.NewLimiter(l.perSecond, l.burst)
		l.buckets[ip] = b
	}
	l.mu.Unlock()
	return b.Allow()
}
