package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/communehq/commune/internal/cache"
	"github.com/communehq/commune/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func limitedRouter(handler gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger.InitNop()
	router := gin.New()
	router.Use(handler)
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return router
}

func get(router http.Handler, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	if remoteAddr != "" {
		req.RemoteAddr = remoteAddr
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	router := limitedRouter(NewRateLimiter(RateLimitConfig{
		Limit:  3,
		Window: time.Second,
		Now:    func() time.Time { return now },
	}))

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, get(router, "").Code, "request %d should succeed", i+1)
	}

	w := get(router, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.Contains(t, w.Body.String(), `"code":"RATE_LIMITED"`)

	// One token comes back after a third of the window.
	now = now.Add(400 * time.Millisecond)
	assert.Equal(t, http.StatusOK, get(router, "").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(router, "").Code)
}

func TestRateLimiterDifferentClients(t *testing.T) {
	router := limitedRouter(NewRateLimiter(RateLimitConfig{Limit: 2, Window: time.Minute}))

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, get(router, "10.0.0.1:1234").Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, get(router, "10.0.0.1:1234").Code)

	// A different client has its own bucket.
	assert.Equal(t, http.StatusOK, get(router, "10.0.0.2:1234").Code)
}

func TestRateLimiterSweepsIdleBuckets(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rl := NewTokenBucketLimiter(RateLimitConfig{
		Limit:  1,
		Window: time.Second,
		Now:    func() time.Time { return now },
	})

	ok, _ := rl.Allow("a")
	assert.True(t, ok)
	ok, retry := rl.Allow("a")
	assert.False(t, ok)
	assert.Equal(t, 1, retry)
	rl.Allow("b")
	assert.Equal(t, 2, rl.Len())

	now = now.Add(3 * time.Second)
	ok, _ = rl.Allow("c")
	assert.True(t, ok)
	assert.Equal(t, 1, rl.Len())
}

func TestClientKeyPrefersUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.RemoteAddr = "192.0.2.7:5555"

	assert.Equal(t, "ip:192.0.2.7", ClientKey(c))
	c.Set("user_id", "u-1")
	assert.Equal(t, "user:u-1", ClientKey(c))
}

func TestRedisRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := cache.Wrap(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	defer rc.Close()

	router := limitedRouter(RedisRateLimit(rc, "api", RateLimitConfig{Limit: 2, Window: time.Minute}))

	w := get(router, "10.0.0.1:1234")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, http.StatusOK, get(router, "10.0.0.1:1234").Code)

	w = get(router, "10.0.0.1:1234")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, get(router, "10.0.0.2:1234").Code)

	// The window expires with the key.
	mr.FastForward(time.Minute + time.Second)
	assert.Equal(t, http.StatusOK, get(router, "10.0.0.1:1234").Code)
}

func TestRedisRateLimitFailsClosed(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := cache.Wrap(redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1}))
	defer rc.Close()
	router := limitedRouter(RedisRateLimit(rc, "api", RateLimitConfig{Limit: 2, Window: time.Minute}))

	mr.Close()
	assert.Equal(t, http.StatusServiceUnavailable, get(router, "").Code)
}

func TestRedisRateLimitWithoutRedisUsesMemory(t *testing.T) {
	router := limitedRouter(RedisRateLimit(nil, "api", RateLimitConfig{Limit: 1, Window: time.Minute}))
	assert.Equal(t, http.StatusOK, get(router, "").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(router, "").Code)
}
