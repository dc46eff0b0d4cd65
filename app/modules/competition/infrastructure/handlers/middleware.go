package competitionhandlers

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// sweepAbove is the number of tracked clients that triggers a sweep.
	sweepAbove = 500
	// idleAfter is how long a client may go unseen before its bucket is dropped.
	idleAfter = 10 * time.Minute
)

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ClientLimiter keeps one token bucket per client address.
type ClientLimiter struct {
	mu      sync.Mutex
	buckets map[string]*clientBucket
	limit   rate.Limit
	burst   int
	now     func() time.Time
}

func NewClientLimiter(limit rate.Limit, burst int) *ClientLimiter {
	return &ClientLimiter{
		buckets: make(map[string]*clientBucket),
		limit:   limit,
		burst:   burst,
		now:     time.Now,
	}
}

// Limiter returns the bucket for client, creating it on first use.
func (l *ClientLimiter) Limiter(client string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if len(l.buckets) > sweepAbove {
		l.sweep(now)
	}

	b, ok := l.buckets[client]
	if !ok {
		b = &clientBucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[client] = b
	}
	b.lastSeen = now
	return b.limiter
}

func (l *ClientLimiter) sweep(now time.Time) {
	cutoff := now.Add(-idleAfter)
	for client, b := range l.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(l.buckets, client)
		}
	}
}

// retryAfter is the whole number of seconds until one token is available.
func (l *ClientLimiter) retryAfter() int {
	if l.limit <= 0 {
		return 1
	}
	return max(1, int(math.Ceil(1/float64(l.limit))))
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimitMiddleware rejects requests beyond the client's bucket with 429.
func RateLimitMiddleware(l *ClientLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Limiter(clientAddr(r)).Allow() {
				w.Header().Set("Retry-After", strconv.Itoa(l.retryAfter()))
				writeJSON(w, http.StatusTooManyRequests, errorResponse{
					Error: http.StatusText(http.StatusTooManyRequests),
					Code:  "RATE_LIMITED",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CORSMiddleware allows the listed origins to call the API, including the
// If-Match/ETag revision headers. Preflight requests end here.
func CORSMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if origin := r.Header.Get("Origin"); allowed[origin] {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Methods", "GET, PUT, POST, DELETE, OPTIONS")
				h.Set("Access-Control-Allow-Headers", "Content-Type, If-Match")
				h.Set("Access-Control-Expose-Headers", "ETag")
				h.Add("Vary", "Origin")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
