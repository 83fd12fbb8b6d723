package httpapi

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const requestIDHeader = "X-Request-ID"

// requestIDMiddleware tags every request with a correlation id, reusing the
// caller's when present.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

const limiterTTL = 10 * time.Minute

type userLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// userRateLimiter applies a per-user token bucket to the conversation
// endpoint. Keys are the caller-supplied external ids; stale entries are
// pruned lazily on access.
type userRateLimiter struct {
	mu       sync.Mutex
	perMin   int
	burst    int
	limiters map[string]*userLimiter
	lastScan time.Time
}

func newUserRateLimiter(perMin, burst int) *userRateLimiter {
	if perMin <= 0 {
		perMin = 60
	}
	if burst <= 0 {
		burst = perMin
	}
	return &userRateLimiter{
		perMin:   perMin,
		burst:    burst,
		limiters: make(map[string]*userLimiter),
		lastScan: time.Now(),
	}
}

func (rl *userRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.FormValue("user_id")
		if key == "" {
			// Validation happens in the handler; unkeyed requests share
			// one bucket so they cannot bypass the limit.
			key = "anonymous"
		}

		if !rl.allow(key) {
			writeRateLimited(w, rl.perMin)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *userRateLimiter) allow(key string) bool {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.Sub(rl.lastScan) > limiterTTL {
		for k, ul := range rl.limiters {
			if now.Sub(ul.lastAccess) > limiterTTL {
				delete(rl.limiters, k)
			}
		}
		rl.lastScan = now
	}

	ul, ok := rl.limiters[key]
	if !ok {
		ul = &userLimiter{
			limiter: rate.NewLimiter(rate.Limit(float64(rl.perMin)/60.0), rl.burst),
		}
		rl.limiters[key] = ul
	}
	ul.lastAccess = now
	return ul.limiter.Allow()
}

func writeRateLimited(w http.ResponseWriter, perMin int) {
	retryAfterSec := int(math.Ceil(60.0 / float64(perMin)))
	if retryAfterSec < 1 {
		retryAfterSec = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSec))
	respondError(w, http.StatusTooManyRequests, "Too many requests")
}
