package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/snapfeed/snapfeed/internal/config"
	"github.com/snapfeed/snapfeed/pkg/cache"
	"github.com/snapfeed/snapfeed/pkg/logger"
)

// NewRateLimit enforces a fixed-window request budget per caller, keyed by
// user id when authenticated and client IP otherwise. Redis being down never
// blocks traffic: the limiter fails open.
func NewRateLimit(redis *cache.RedisClient, cfg config.RateLimitConfig, logger *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cfg.Enabled {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		key := clientKey(c)

		count, err := redis.Incr(ctx, key)
		if err != nil {
			logger.WithError(err).Warn("Rate limiter unavailable, allowing request")
			c.Next()
			return
		}
		if count == 1 {
			if err := redis.Expire(ctx, key, cfg.Window); err != nil {
				logger.WithError(err).Warn("Failed to set rate limit window")
			}
		}

		if count > int64(cfg.Requests) {
			retryAfter := cfg.Window
			if ttl, err := redis.TTL(ctx, key); err == nil && ttl > 0 {
				retryAfter = ttl
			}
			c.Header("Retry-After", fmt.Sprintf("%d", int(retryAfter.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}

		c.Next()
	}
}

func clientKey(c *gin.Context) string {
	if userID := GetUserID(c); userID != 0 {
		return fmt.Sprintf("ratelimit:user:%d", userID)
	}
	return fmt.Sprintf("ratelimit:ip:%s", c.ClientIP())
}
