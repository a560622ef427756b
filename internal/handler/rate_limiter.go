package handler

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"shorturl/internal/apperr"
	"shorturl/internal/logging"
	"shorturl/internal/metrics"
)

// idleTTL is how long a key may go unseen before its limiter is dropped.
const idleTTL = 3 * time.Minute

// RateLimiter keeps one token bucket per client address. Entries idle for
// longer than idleTTL are swept on access, so no background goroutine runs.
// Not shared across instances.
type RateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*limiterEntry
	r         rate.Limit
	burst     int
	lastSweep time.Time
	now       func() time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows rps requests per second per key with the given burst.
// A non-positive rps disables limiting.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limiters: make(map[string]*limiterEntry),
		r:        rate.Limit(rps),
		burst:    burst,
		now:      time.Now,
	}
}

func (l *RateLimiter) Allow(key string) bool {
	if l == nil || l.r <= 0 {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) > idleTTL {
		for k, e := range l.limiters {
			if now.Sub(e.lastSeen) > idleTTL {
				delete(l.limiters, k)
			}
		}
		l.lastSweep = now
	}

	e, ok := l.limiters[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.r, l.burst)}
		l.limiters[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

func (l *RateLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

// RateLimit rejects requests from a client that has exhausted its bucket.
// The client is the transport peer unless that peer is a trusted proxy.
func (h *Handler) RateLimit(l *RateLimiter, scope string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := h.clientKey(r)
		if !l.Allow(ip) {
			metrics.RateLimited.WithLabelValues(scope).Inc()
			logging.Ctx(r.Context()).Warn().
				Str("ip", ip).
				Str("path", r.URL.Path).
				Msg("rate limit exceeded")
			writeError(w, r, apperr.ErrRateLimited)
			return
		}
		next.ServeHTTP(w, r)
	}
}

// clientKey walks X-Forwarded-For from the right while each hop is a trusted
// proxy and returns the first untrusted address. Entries left of that hop are
// client controlled and never used.
func (h *Handler) clientKey(r *http.Request) string {
	key := peerHost(r.RemoteAddr)
	if !h.trusted(key) {
		return key
	}
	hops := strings.Split(strings.Join(r.Header.Values("X-Forwarded-For"), ","), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		ip := net.ParseIP(strings.TrimSpace(hops[i]))
		if ip == nil {
			break
		}
		key = ip.String()
		if !h.trusted(key) {
			break
		}
	}
	return key
}

func (h *Handler) trusted(host string) bool {
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	for _, n := range h.TrustedProxies {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

func peerHost(remoteAddr string) string {
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return remoteAddr
}
