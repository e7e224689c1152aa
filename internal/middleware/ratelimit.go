package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimiter is a fixed-window per-key counter, keyed by client IP.
type RateLimiter struct {
	mu     sync.Mutex
	counts map[string]*windowCount
	limit  int
	window time.Duration
}

type windowCount struct {
	start time.Time
	n     int
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		counts: make(map[string]*windowCount),
		limit:  limit,
		window: window,
	}
	go rl.cleanup()
	return rl
}

func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := time.Now()
	wc, ok := rl.counts[key]
	if !ok || now.Sub(wc.start) > rl.window {
		rl.counts[key] = &windowCount{start: now, n: 1}
		return true
	}
	if wc.n >= rl.limit {
		return false
	}
	wc.n++
	return true
}

func (rl *RateLimiter) cleanup() {
	tick := time.NewTicker(time.Minute)
	for range tick.C {
		rl.mu.Lock()
		cutoff := time.Now().Add(-rl.window)
		for k, wc := range rl.counts {
			if wc.start.Before(cutoff) {
				delete(rl.counts, k)
			}
		}
		rl.mu.Unlock()
	}
}

func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
