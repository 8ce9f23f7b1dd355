package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nexahealth/triagebot/internal/wallet"
	"golang.org/x/time/rate"
)

// Limiter tracks rate limits for a single identifier
type Limiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter manages rate limiting for multiple identifiers
type RateLimiter struct {
	limiters map[string]*Limiter
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
	idle     time.Duration
}

// NewRateLimiter creates a rate limiter allowing r events per second with burst b
func NewRateLimiter(r rate.Limit, b int) *RateLimiter {
	rl := &RateLimiter{
		limiters: make(map[string]*Limiter),
		rate:     r,
		burst:    b,
		idle:     5 * time.Minute,
	}

	go rl.cleanupStale()

	return rl
}

// Allow consumes one event for identifier
func (rl *RateLimiter) Allow(identifier string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	l, exists := rl.limiters[identifier]
	if !exists {
		l = &Limiter{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[identifier] = l
	}
	l.lastSeen = time.Now()

	return l.limiter.Allow()
}

func (rl *RateLimiter) cleanupStale() {
	ticker := time.NewTicker(rl.idle)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		for id, l := range rl.limiters {
			if time.Since(l.lastSeen) > rl.idle {
				delete(rl.limiters, id)
			}
		}
		rl.mu.Unlock()
	}
}

// PerMinute converts a per-minute budget into a limit and burst
func PerMinute(n float64) (rate.Limit, int) {
	burst := int(n / 6)
	if burst < 1 {
		burst = 1
	}
	return rate.Limit(n / 60), burst
}

// PerIP creates middleware that rate limits by client IP
func PerIP(r rate.Limit, burst int) gin.HandlerFunc {
	limiter := NewRateLimiter(r, burst)

	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "Rate limit exceeded. Please try again later.",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// PerWallet rate limits requests identified by "Authorization: Wallet <addr>".
// Anonymous requests are left to PerIP.
func PerWallet(r rate.Limit, burst int) gin.HandlerFunc {
	limiter := NewRateLimiter(r, burst)

	return func(c *gin.Context) {
		addr := wallet.FromAuthorization(c.GetHeader("Authorization"))
		if addr == "" {
			c.Next()
			return
		}

		if !limiter.Allow(addr) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "Rate limit exceeded. Please slow down.",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// WebSocketLimiter limits messages on a single WebSocket connection
type WebSocketLimiter struct {
	limiter *rate.Limiter
}

// NewWebSocketLimiter creates a limiter for WebSocket messages
func NewWebSocketLimiter(messagesPerMinute int) *WebSocketLimiter {
	return &WebSocketLimiter{
		limiter: rate.NewLimiter(rate.Limit(messagesPerMinute)/60.0, messagesPerMinute),
	}
}

// Allow checks if a message is allowed
func (wsl *WebSocketLimiter) Allow() bool {
	return wsl.limiter.Allow()
}
