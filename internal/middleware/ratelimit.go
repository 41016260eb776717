package middleware

import (
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/communehq/commune/internal/errors"
	"github.com/communehq/commune/internal/logger"
	"github.com/communehq/commune/internal/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RateLimitConfig holds configuration for rate limiting
type RateLimitConfig struct {
	// Requests per window
	Limit int
	// Window duration
	Window time.Duration
	// KeyFunc picks the bucket for a request. Defaults to ClientKey.
	KeyFunc func(c *gin.Context) string
	// Now is the clock; tests replace it.
	Now func() time.Time
}

// DefaultRateLimitConfig returns sensible defaults
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{Limit: 100, Window: time.Minute}
}

// AuthRateLimitConfig returns stricter limits for auth endpoints
func AuthRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{Limit: 10, Window: time.Minute}
}

// UploadRateLimitConfig returns limits for upload endpoints
func UploadRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{Limit: 20, Window: time.Minute}
}

// ClientKey buckets authenticated callers by user and everyone else by IP.
func ClientKey(c *gin.Context) string {
	if userID := util.OptionalUserID(c); userID != "" {
		return "user:" + userID
	}
	return "ip:" + c.ClientIP()
}

// tokenBucket refills continuously at limit/window tokens per second.
type tokenBucket struct {
	tokens     float64
	lastRefill time.Time
}

// RateLimiter keeps one token bucket per key in memory.
type RateLimiter struct {
	mu         sync.Mutex
	buckets    map[string]*tokenBucket
	maxTokens  float64
	refillRate float64 // tokens per second
	idle       time.Duration
	lastSweep  time.Time
	now        func() time.Time
}

// NewTokenBucketLimiter builds an in-memory limiter from config.
func NewTokenBucketLimiter(config RateLimitConfig) *RateLimiter {
	if config.Limit <= 0 {
		config.Limit = DefaultRateLimitConfig().Limit
	}
	if config.Window <= 0 {
		config.Window = DefaultRateLimitConfig().Window
	}
	now := config.Now
	if now == nil {
		now = time.Now
	}
	return &RateLimiter{
		buckets:    make(map[string]*tokenBucket),
		maxTokens:  float64(config.Limit),
		refillRate: float64(config.Limit) / config.Window.Seconds(),
		idle:       2 * config.Window,
		lastSweep:  now(),
		now:        now,
	}
}

// Allow takes a token from key's bucket. When none is left it reports how
// many seconds until one will be.
func (rl *RateLimiter) Allow(key string) (bool, int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.sweep(now)

	bucket, ok := rl.buckets[key]
	if !ok {
		bucket = &tokenBucket{tokens: rl.maxTokens, lastRefill: now}
		rl.buckets[key] = bucket
	}

	elapsed := now.Sub(bucket.lastRefill).Seconds()
	bucket.tokens = math.Min(rl.maxTokens, bucket.tokens+elapsed*rl.refillRate)
	bucket.lastRefill = now

	if bucket.tokens >= 1 {
		bucket.tokens--
		return true, 0
	}
	wait := (1 - bucket.tokens) / rl.refillRate
	return false, int(math.Ceil(wait))
}

// sweep drops buckets that have been idle long enough to be full again.
func (rl *RateLimiter) sweep(now time.Time) {
	if now.Sub(rl.lastSweep) < rl.idle {
		return
	}
	for key, b := range rl.buckets {
		if now.Sub(b.lastRefill) >= rl.idle {
			delete(rl.buckets, key)
		}
	}
	rl.lastSweep = now
}

// Len reports how many buckets are tracked.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

// NewRateLimiter creates an in-memory token bucket middleware.
func NewRateLimiter(config RateLimitConfig) gin.HandlerFunc {
	rl := NewTokenBucketLimiter(config)
	keyFunc := config.KeyFunc
	if keyFunc == nil {
		keyFunc = ClientKey
	}
	limit := strconv.Itoa(int(rl.maxTokens))

	return func(c *gin.Context) {
		key := keyFunc(c)
		ok, retryAfter := rl.Allow(key)
		c.Header("X-RateLimit-Limit", limit)
		if ok {
			c.Next()
			return
		}
		rejectRateLimited(c, key, retryAfter)
	}
}

func rejectRateLimited(c *gin.Context, key string, retryAfter int) {
	if retryAfter < 1 {
		retryAfter = 1
	}
	logger.Log.Warn("Rate limit exceeded",
		zap.String("key", key),
		zap.String("path", c.FullPath()),
		zap.Int("retry_after", retryAfter),
	)
	RecordRateLimitExceeded(c)
	c.Header("Retry-After", strconv.Itoa(retryAfter))
	c.Header("X-RateLimit-Remaining", "0")
	util.RespondWithAPIError(c, errors.RateLimited(""))
}
