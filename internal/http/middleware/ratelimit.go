package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/Nixie-Tech-LLC/mesophy/internal/metrics"
)

// IPRateLimiter hands out one token bucket per client IP.
type IPRateLimiter struct {
	mu          sync.Mutex
	limiters    map[string]*rate.Limiter
	limit       rate.Limit
	burst       int
	lastCleanup time.Time
}

func NewIPRateLimiter(perSecond float64, burst int) *IPRateLimiter {
	return &IPRateLimiter{
		limiters:    make(map[string]*rate.Limiter),
		limit:       rate.Limit(perSecond),
		burst:       burst,
		lastCleanup: time.Now(),
	}
}

func (l *IPRateLimiter) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	// drop idle buckets every hour
	if time.Since(l.lastCleanup) > time.Hour {
		l.limiters = make(map[string]*rate.Limiter)
		l.lastCleanup = time.Now()
	}

	limiter, exists := l.limiters[ip]
	if !exists {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[ip] = limiter
	}
	return limiter
}

func (l *IPRateLimiter) Allow(ip string) bool {
	return l.get(ip).Allow()
}

// RateLimit rejects requests beyond the client's bucket with 429.
func RateLimit(l *IPRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !l.Allow(ip) {
			metrics.RateLimited.Inc()
			log.Warn().Str("ip", ip).Str("path", c.FullPath()).Msg("rate limit exceeded")
			c.Header("Retry-After", "1")
			abort(c, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		c.Next()
	}
}
