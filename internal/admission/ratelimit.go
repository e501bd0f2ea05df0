// Package admission implements the request-gating layer: per-client rate
// limiting, request size caps, and admin-token gating.
package admission

import (
	"net/http"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter hands out a per-client token bucket, creating one on first use.
type Limiter struct {
	mu       sync.Mutex
	buckets  map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

// NewLimiter builds a Limiter allowing perMinute requests per client, with a
// burst equal to perMinute (one minute's worth of headroom up front).
func NewLimiter(perMinute int) *Limiter {
	if perMinute <= 0 {
		perMinute = 1
	}
	return &Limiter{
		buckets: make(map[string]*rate.Limiter),
		rps:     rate.Limit(float64(perMinute) / 60.0),
		burst:   perMinute,
	}
}

// Allow reports whether a request from client key should proceed.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	b, ok := l.buckets[key]
	if !ok {
		b = rate.NewLimiter(l.rps, l.burst)
		l.buckets[key] = b
	}
	l.mu.Unlock()
	return b.Allow()
}

// ClientKeyFunc resolves the admission identity for a request. The default
// uses the remote address; AllowTestRateKey enables a test-only override via
// the X-Rate-Key header, matching the source system's test harness escape
// hatch.
type ClientKeyFunc func(r *http.Request) string

// DefaultClientKey returns r.RemoteAddr as the rate-limit identity.
func DefaultClientKey(r *http.Request) string {
	return r.RemoteAddr
}

// TestOverrideClientKey honors an X-Rate-Key header when present, falling
// back to the remote address otherwise. It exists only so integration tests
// running from a single process can simulate distinct clients.
func TestOverrideClientKey(r *http.Request) string {
	if key := r.Header.Get("X-Rate-Key"); key != "" {
		return key
	}
	return r.RemoteAddr
}
