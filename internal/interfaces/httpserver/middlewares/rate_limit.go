package middlewares

import (
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/time/rate"

	"jan-server/services/chat-api/internal/interfaces/httpserver/responses"
)

const rateLimiterCacheSize = 10000

// RateLimiter keeps one token bucket per caller. Buckets live in an LRU so idle callers are
// forgotten.
type RateLimiter struct {
	mu       sync.Mutex
	limiters *lru.Cache
	limit    rate.Limit
	burst    int
}

// NewRateLimiter allows perMinute requests per caller with the given burst. A non-positive
// perMinute disables limiting.
func NewRateLimiter(perMinute, burst int) (*RateLimiter, error) {
	if perMinute <= 0 {
		return nil, nil
	}
	if burst <= 0 {
		burst = 1
	}
	cache, err := lru.New(rateLimiterCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create rate limiter cache: %w", err)
	}
	return &RateLimiter{
		limiters: cache,
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    burst,
	}, nil
}

// Allow reports whether key may proceed now.
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	limiter, ok := r.get(key)
	if !ok {
		limiter = rate.NewLimiter(r.limit, r.burst)
		r.limiters.Add(key, limiter)
	}
	r.mu.Unlock()
	return limiter.Allow()
}

func (r *RateLimiter) get(key string) (*rate.Limiter, bool) {
	val, ok := r.limiters.Get(key)
	if !ok {
		return nil, false
	}
	limiter, ok := val.(*rate.Limiter)
	return limiter, ok
}

// RateLimitMiddleware rejects callers that exceed their budget with 429. A nil limiter lets
// everything through.
func RateLimitMiddleware(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}
		if !limiter.Allow(rateKey(c)) {
			c.Header("Retry-After", "60")
			responses.HandleErrorWithStatus(c, http.StatusTooManyRequests, nil, "too many requests")
			return
		}
		c.Next()
	}
}

func rateKey(c *gin.Context) string {
	if principal, ok := PrincipalFromContext(c); ok && !principal.ID.IsZero() {
		return "uid:" + principal.ID.String()
	}
	if ip := clientIP(c.ClientIP()); ip != "" {
		return "ip:" + ip
	}
	return "anonymous"
}

// Normalize IPv6-mapped IPv4 etc.
func clientIP(raw string) string {
	if raw == "" {
		return ""
	}
	if ip := net.ParseIP(raw); ip != nil {
		return ip.String()
	}
	return raw
}
