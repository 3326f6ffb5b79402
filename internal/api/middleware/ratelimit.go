package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"carlink/market/internal/config"
)

// clientLimiter stores rate limiters for a specific client.
type clientLimiter struct {
	softLimiter *rate.Limiter
	hardLimiter *rate.Limiter
	lastSeen    time.Time
}

// RateLimiterMiddleware applies two token buckets per client. The hard bucket
// applies to every request; anonymous clients also draw from the smaller soft
// bucket.
type RateLimiterMiddleware struct {
	clients map[string]*clientLimiter
	mu      sync.Mutex
	cfg     *config.Config
	log     *zap.Logger
	now     func() time.Time
}

func NewRateLimiterMiddleware(cfg *config.Config, log *zap.Logger) *RateLimiterMiddleware {
	return &RateLimiterMiddleware{
		clients: make(map[string]*clientLimiter),
		cfg:     cfg,
		log:     log,
		now:     time.Now,
	}
}

// clientKey identifies the caller: the user when authenticated, else the IP.
func clientKey(c *gin.Context) (string, bool) {
	if id, ok := UserID(c); ok {
		return "u:" + id.String(), true
	}
	return "ip:" + c.ClientIP(), false
}

func (rm *RateLimiterMiddleware) getClientLimiter(key string) *clientLimiter {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	limiter, exists := rm.clients[key]
	if !exists {
		limiter = &clientLimiter{
			softLimiter: rate.NewLimiter(rate.Limit(rm.cfg.RateLimitSoftRefillRate), rm.cfg.RateLimitSoftBucketSize),
			hardLimiter: rate.NewLimiter(rate.Limit(rm.cfg.RateLimitHardRefillRate), rm.cfg.RateLimitHardBucketSize),
		}
		rm.clients[key] = limiter
	}
	limiter.lastSeen = rm.now()
	return limiter
}

// Cleanup drops clients not seen for maxIdle and returns how many were removed.
func (rm *RateLimiterMiddleware) Cleanup(maxIdle time.Duration) int {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	count := 0
	for id, client := range rm.clients {
		if rm.now().Sub(client.lastSeen) > maxIdle {
			delete(rm.clients, id)
			count++
		}
	}
	return count
}

// RunCleanup calls Cleanup every interval until stop is closed.
func (rm *RateLimiterMiddleware) RunCleanup(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := rm.Cleanup(3 * interval); n > 0 {
				rm.log.Debug("rate limiter cleanup", zap.Int("removed", n))
			}
		case <-stop:
			return
		}
	}
}

// Limit creates the Gin middleware handler.
func (rm *RateLimiterMiddleware) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		key, authenticated := clientKey(c)
		limiter := rm.getClientLimiter(key)

		if !limiter.hardLimiter.Allow() || (!authenticated && !limiter.softLimiter.Allow()) {
			rm.log.Info("rate limit exceeded", zap.String("client", key), zap.String("path", c.FullPath()))
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}
		c.Next()
	}
}
