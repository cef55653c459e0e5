package middleware

import (
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/robe-lope/bookbuddy-swapper/internal/config"
)

// clientLimiter stores rate limiters for a specific client.
type clientLimiter struct {
	softLimiter *rate.Limiter
	hardLimiter *rate.Limiter
	lastSeen    time.Time
}

// RateLimiterMiddleware keeps two token buckets per client. The hard bucket
// covers every request; the soft bucket only covers writes, so a client
// flooding accept/decline/send calls is slowed before its reads are.
type RateLimiterMiddleware struct {
	clients map[string]*clientLimiter
	mu      sync.Mutex
	cfg     *config.Config
	now     func() time.Time
}

// NewRateLimiterMiddleware creates a new RateLimiterMiddleware.
func NewRateLimiterMiddleware(cfg *config.Config) *RateLimiterMiddleware {
	return &RateLimiterMiddleware{
		clients: make(map[string]*clientLimiter),
		cfg:     cfg,
		now:     time.Now,
	}
}

// clientIdentifier is the authenticated user when known, else the client IP.
func clientIdentifier(c *gin.Context) string {
	if userID, ok := CurrentUserID(c); ok {
		return "user:" + userID.String()
	}
	return "ip:" + c.ClientIP()
}

func (rm *RateLimiterMiddleware) getClientLimiter(identifier string) *clientLimiter {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	limiter, exists := rm.clients[identifier]
	if !exists {
		limiter = &clientLimiter{
			softLimiter: rate.NewLimiter(rate.Limit(rm.cfg.RateLimitSoftRefillRate), rm.cfg.RateLimitSoftBucketSize),
			hardLimiter: rate.NewLimiter(rate.Limit(rm.cfg.RateLimitHardRefillRate), rm.cfg.RateLimitHardBucketSize),
		}
		rm.clients[identifier] = limiter
	}
	limiter.lastSeen = rm.now()
	return limiter
}

// Cleanup removes clients not seen for maxIdle and returns how many went.
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
		case <-stop:
			return
		case <-ticker.C:
			if n := rm.Cleanup(3 * interval); n > 0 {
				log.Printf("Rate limiter cleanup removed %d old client entries.", n)
			}
		}
	}
}

// Limit creates the Gin middleware handler.
func (rm *RateLimiterMiddleware) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientKey := clientIdentifier(c)
		limiter := rm.getClientLimiter(clientKey)

		if !limiter.hardLimiter.Allow() {
			log.Printf("Hard rate limit exceeded for client: %s on %s %s", clientKey, c.Request.Method, c.FullPath())
			rm.reject(c, rm.cfg.RateLimitHardRefillRate)
			return
		}

		if c.Request.Method == http.MethodPost && !limiter.softLimiter.Allow() {
			log.Printf("Write rate limit exceeded for client: %s on %s", clientKey, c.FullPath())
			rm.reject(c, rm.cfg.RateLimitSoftRefillRate)
			return
		}

		c.Next()
	}
}

func (rm *RateLimiterMiddleware) reject(c *gin.Context, refillRate int) {
	retryAfter := 1
	if refillRate <= 0 {
		retryAfter = 60
	}
	c.Header("Retry-After", strconv.Itoa(retryAfter))
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
}
