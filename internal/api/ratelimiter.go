package api

import (
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// renderRequestCost is the token cost of PNG and PDF requests, which do far
// more work than the JSON endpoints.
const renderRequestCost = 4

type rateLimiter interface {
	AllowN(n int) bool
}

type limiterAdapter struct {
	limiter *rate.Limiter
	burst   int
}

func newTokenBucketLimiter(ratePerSecond float64, burst int) rateLimiter {
	if ratePerSecond <= 0 {
		ratePerSecond = 1
	}
	if burst <= 0 {
		burst = 1
	}

	return &limiterAdapter{
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst),
		burst:   burst,
	}
}

func (l *limiterAdapter) AllowN(n int) bool {
	if l == nil || l.limiter == nil {
		return true
	}
	// A cost above the burst would never be admitted; clamp so render
	// endpoints stay reachable under small burst configurations.
	if n > l.burst {
		n = l.burst
	}
	return l.limiter.AllowN(time.Now(), n)
}

// requestCost weighs heavy render requests against plain JSON calls.
func requestCost(path string) int {
	if strings.HasSuffix(path, "/image.png") || strings.HasSuffix(path, "/layout.pdf") {
		return renderRequestCost
	}
	return 1
}

func rateLimitMiddleware(limiter rateLimiter, next http.Handler) http.Handler {
	if limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if limiter.AllowN(requestCost(r.URL.Path)) {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusTooManyRequests, "Too many requests", "rate limit exceeded, please retry shortly")
	})
}
