package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter throttles requests per client address with a token bucket.
// Idle buckets are dropped by Sweep.
type RateLimiter struct {
	perMinute int
	limit     rate.Limit
	burst     int
	idle      time.Duration
	now       func() time.Time

	mu      sync.Mutex
	clients map[string]*clientBucket
}

type clientBucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// NewRateLimiter allows perMinute requests per client, all of which may
// arrive at once. perMinute must be positive.
func NewRateLimiter(perMinute int) *RateLimiter {
	return &RateLimiter{
		perMinute: perMinute,
		limit:     rate.Limit(float64(perMinute) / 60),
		burst:     perMinute,
		idle:      time.Minute,
		now:       time.Now,
		clients:   make(map[string]*clientBucket),
	}
}

// Allow consumes one token for key.
func (rl *RateLimiter) Allow(key string) bool {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	b, ok := rl.clients[key]
	if !ok {
		b = &clientBucket{lim: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[key] = b
	}
	b.seen = now
	return b.lim.AllowN(now, 1)
}

// Sweep forgets clients that have been quiet long enough for their bucket
// to refill, and reports how many went.
func (rl *RateLimiter) Sweep(now time.Time) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	n := 0
	for key, b := range rl.clients {
		if now.Sub(b.seen) >= rl.idle {
			delete(rl.clients, key)
			n++
		}
	}
	return n
}

// Limit rejects over-limit requests with 429 and a Retry-After header.
// limited renders the rejection; nil writes a plain-text body.
func (rl *RateLimiter) Limit(limited http.Handler) Middleware {
	retryAfter := strconv.Itoa(60/rl.perMinute + 1)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rl.Allow(clientAddr(r)) {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("Retry-After", retryAfter)
			if limited == nil {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			limited.ServeHTTP(w, r)
		})
	}
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
