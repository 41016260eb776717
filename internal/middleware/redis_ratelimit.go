package middleware

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/communehq/commune/internal/cache"
	"github.com/communehq/commune/internal/errors"
	"github.com/communehq/commune/internal/logger"
	"github.com/communehq/commune/internal/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RedisRateLimit is a fixed-window limiter shared by every server instance.
// Without a Redis client it falls back to the in-memory token bucket.
//
// A Redis failure rejects the request with 503: letting traffic through when
// the limiter is broken would leave the API open.
func RedisRateLimit(rc *cache.RedisClient, name string, config RateLimitConfig) gin.HandlerFunc {
	if rc == nil {
		return NewRateLimiter(config)
	}
	if config.Limit <= 0 {
		config.Limit = DefaultRateLimitConfig().Limit
	}
	if config.Window <= 0 {
		config.Window = DefaultRateLimitConfig().Window
	}
	keyFunc := config.KeyFunc
	if keyFunc == nil {
		keyFunc = ClientKey
	}
	limit := strconv.Itoa(config.Limit)

	return func(c *gin.Context) {
		clientKey := keyFunc(c)
		key := "ratelimit:" + name + ":" + clientKey

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		count, reset, err := rc.Hit(ctx, key, config.Window)
		if err != nil && count == 0 {
			logger.Log.Error("Rate limit check failed",
				zap.String("key", clientKey),
				zap.Error(err),
			)
			util.RespondWithAPIError(c, errors.ServiceUnavailable("rate limiter"))
			return
		}
		if err != nil {
			logger.Log.Warn("Failed to set rate limit expiration",
				zap.String("key", clientKey),
				zap.Error(err),
			)
		}

		c.Header("X-RateLimit-Limit", limit)
		if count <= int64(config.Limit) {
			c.Header("X-RateLimit-Remaining", strconv.FormatInt(int64(config.Limit)-count, 10))
			c.Next()
			return
		}

		retryAfter := int(math.Ceil(reset.Seconds()))
		if retryAfter < 1 {
			retryAfter = 1
		}
		rejectRateLimited(c, clientKey, retryAfter)
	}
}
