package server

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// rateLimiter hands out one token bucket per client IP. Buckets refill
// at limit-per-window and burst to the full window allowance, which
// approximates a fixed-window counter without keeping request lists.
type rateLimiter struct {
	mu      sync.Mutex
	clients map[string]*rateClient
	limit   int
	window  time.Duration
}

type rateClient struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		clients: make(map[string]*rateClient),
		limit:   limit,
		window:  window,
	}
}

// get returns the bucket for an IP, creating it on first sight. Buckets
// idle for three windows are dropped once the map grows past 64 clients.
func (rl *rateLimiter) get(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	c, ok := rl.clients[ip]
	if !ok {
		c = &rateClient{
			limiter: rate.NewLimiter(rate.Every(rl.window/time.Duration(rl.limit)), rl.limit),
		}
		rl.clients[ip] = c
	}
	c.lastSeen = now

	if len(rl.clients) > 64 {
		for addr, stale := range rl.clients {
			if now.Sub(stale.lastSeen) > 3*rl.window {
				delete(rl.clients, addr)
			}
		}
	}

	return c.limiter
}

// rateLimit enforces the per-client budget and reports it in the
// X-RateLimit response headers.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter == nil {
			next.ServeHTTP(w, r)
			return
		}

		lim := s.limiter.get(clientIP(r))
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(s.limiter.limit))

		if !lim.Allow() {
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("Retry-After", strconv.Itoa(int(s.limiter.window.Seconds())))
			http.Error(w, `{"error":"rate limit exceeded"}`, http.StatusTooManyRequests)
			return
		}

		remaining := int(lim.Tokens())
		if remaining < 0 {
			remaining = 0
		}
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		next.ServeHTTP(w, r)
	})
}

// clientIP strips the port when RemoteAddr carries one. RealIP has
// already folded any forwarding headers in.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
