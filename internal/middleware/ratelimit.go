package middleware

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/propchain/registry_gateway/internal/errors"
	"github.com/propchain/registry_gateway/internal/httputil"
)

// maxTrackedClients bounds the limiter map. Crossing it drops all buckets,
// which briefly resets allowances rather than growing without bound.
const maxTrackedClients = 10000

// RateLimiter throttles requests per client, keyed by the authenticated
// username when the guard has already run, otherwise by client IP.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
	log      zerolog.Logger
}

// NewRateLimiter creates a limiter allowing requestsPerSecond sustained with
// the given burst per client.
func NewRateLimiter(requestsPerSecond float64, burst int, log zerolog.Logger) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
		log:      log,
	}
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, ok := rl.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[key] = limiter
	}
	return limiter
}

func clientKey(r *http.Request) string {
	if username := Username(r.Context()); username != "" {
		return username
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// Handler returns the rate limiting middleware handler.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r)

		if !rl.getLimiter(key).Allow() {
			rl.log.Warn().
				Str("client", key).
				Str("path", r.URL.Path).
				Str("method", r.Method).
				Msg("rate limit exceeded")

			serviceErr := errors.RateLimited("too many requests")
			httputil.WriteErrorResponse(w, serviceErr.HTTPStatus, string(serviceErr.Code), serviceErr.Message, nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// StartCleanup periodically drops the limiter map when it grows past the
// tracking bound. Returns when ctx is cancelled.
func (rl *RateLimiter) StartCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rl.mu.Lock()
				if len(rl.limiters) > maxTrackedClients {
					rl.limiters = make(map[string]*rate.Limiter)
				}
				rl.mu.Unlock()
			}
		}
	}()
}
