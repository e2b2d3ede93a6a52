package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"user-query-service/internal/adapter/metrics"
)

// tokenBucketScript refills the bucket for the elapsed time and tries to take one token.
// Data structure: {last_refill, tokens}
var tokenBucketScript = redis.NewScript(`
	local key = KEYS[1]
	local rate = tonumber(ARGV[1])         -- tokens per second
	local capacity = tonumber(ARGV[2])     -- max tokens in bucket
	local now = tonumber(ARGV[3])          -- current timestamp
	local requested = tonumber(ARGV[4])    -- tokens requested (always 1)

	local bucket = redis.call('HMGET', key, 'last_refill', 'tokens')
	local last_refill = tonumber(bucket[1]) or now
	local tokens = tonumber(bucket[2]) or capacity

	local elapsed = math.max(0, now - last_refill)
	tokens = math.min(capacity, tokens + elapsed * rate)

	local allowed = 0
	if tokens >= requested then
		tokens = tokens - requested
		allowed = 1
	end

	redis.call('HMSET', key, 'last_refill', now, 'tokens', tokens)
	redis.call('EXPIRE', key, 60)
	return allowed
`)

// TokenBucketConfig holds configuration for the HTTP rate limiter.
type TokenBucketConfig struct {
	RequestsPerSecond float64
	BurstCapacity     int
	Enabled           bool
	// TrustedProxies lists proxy IPs or CIDRs whose X-Forwarded-For and
	// X-Real-IP headers gin believes when resolving the client IP.
	TrustedProxies []string
}

// BucketKey returns the Redis key of the bucket for one client and route.
func BucketKey(method, path, clientIP string) string {
	return fmt.Sprintf("ratelimit:tb:%s:%s:%s", method, path, clientIP)
}

// RateLimiter returns a Gin middleware for rate limiting using Token Bucket algorithm.
// Redis failures let the request through.
func RateLimiter(redisClient *redis.Client, cfg TokenBucketConfig, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cfg.Enabled || redisClient == nil {
			c.Next()
			return
		}

		key := BucketKey(c.Request.Method, c.FullPath(), c.ClientIP())
		now := float64(time.Now().UnixNano()) / float64(time.Second)

		allowed, err := tokenBucketScript.Run(c.Request.Context(), redisClient, []string{key},
			cfg.RequestsPerSecond,
			cfg.BurstCapacity,
			now,
			1,
		).Int64()
		if err != nil {
			log.Warn("rate limiter redis error, allowing request",
				zap.String("key", key),
				zap.Error(err),
			)
			c.Next()
			return
		}

		if allowed == 0 {
			metrics.RateLimitedTotal.WithLabelValues("http").Inc()
			log.Warn("rate limit exceeded", zap.String("key", key))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate_limit_exceeded",
				"message": fmt.Sprintf("Rate limit exceeded: %.2f requests/second (burst capacity: %d)", cfg.RequestsPerSecond, cfg.BurstCapacity),
			})
			return
		}

		c.Next()
	}
}
