// Package middleware holds the HTTP middleware of the grouping API.
package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig holds configuration for the rate limiter middleware.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate limit (tokens added per second).
	RequestsPerSecond float64
	// Burst is the maximum number of requests allowed in a burst.
	Burst int
	// IdleTTL is how long an unused client limiter is kept (default 10m).
	IdleTTL time.Duration
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterStore hands out one token bucket per client address.
type limiterStore struct {
	mu      sync.Mutex
	cfg     RateLimitConfig
	clients map[string]*clientLimiter
}

func newLimiterStore(cfg RateLimitConfig) *limiterStore {
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 10 * time.Minute
	}
	return &limiterStore{cfg: cfg, clients: make(map[string]*clientLimiter)}
}

func (s *limiterStore) get(client string, now time.Time) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	cl, ok := s.clients[client]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(rate.Limit(s.cfg.RequestsPerSecond), s.cfg.Burst)}
		s.clients[client] = cl
	}
	cl.lastSeen = now
	return cl.limiter
}

// sweep drops limiters idle for longer than the TTL.
func (s *limiterStore) sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for client, cl := range s.clients {
		if now.Sub(cl.lastSeen) > s.cfg.IdleTTL {
			delete(s.clients, client)
		}
	}
}

func (s *limiterStore) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// RateLimiter returns an HTTP middleware that enforces a per-client token-bucket
// rate limit. Rejected requests get 429 with a Retry-After header. Idle client
// state is swept until ctx is done.
func RateLimiter(ctx context.Context, cfg RateLimitConfig) func(http.Handler) http.Handler {
	store := newLimiterStore(cfg)

	go func() {
		ticker := time.NewTicker(store.cfg.IdleTTL / 2)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				store.sweep(now)
			}
		}
	}()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			limiter := store.get(clientIP(r), time.Now())

			reservation := limiter.Reserve()
			if !reservation.OK() {
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			if delay := reservation.Delay(); delay > 0 {
				reservation.Cancel()
				w.Header().Set("Retry-After", strconv.Itoa(int(delay.Seconds())+1))
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Burst))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(int(limiter.Tokens())))
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP uses RemoteAddr only; forwarded headers are client-controlled.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
