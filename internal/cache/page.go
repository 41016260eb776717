package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/communehq/commune/internal/logger"
	"github.com/communehq/commune/internal/metrics"
	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// PageCache stores rendered result pages under one namespace. Any mutation
// bumps the namespace version counter, which orphans every cached page at
// once; orphans age out by TTL.
//
// A nil *PageCache is valid and never hits.
type PageCache struct {
	rc   *RedisClient
	name string
	ttl  time.Duration
}

// NewPageCache creates a cache for namespace name with the given page TTL.
func NewPageCache(rc *RedisClient, name string, ttl time.Duration) *PageCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &PageCache{rc: rc, name: name, ttl: ttl}
}

// NewFeedCache creates the feed page cache.
func NewFeedCache(rc *RedisClient, ttl time.Duration) *PageCache {
	return NewPageCache(rc, "feed", ttl)
}

// Get decodes the cached page for key into dest.
func (c *PageCache) Get(ctx context.Context, key string, dest interface{}) bool {
	if c == nil || c.rc == nil {
		return false
	}

	raw, err := c.rc.Get(ctx, c.versioned(ctx, key))
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.WarnWithFields("page cache read failed", err)
		}
		metrics.Get().CacheMissesTotal.WithLabelValues(c.name).Inc()
		return false
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		logger.WarnWithFields("page cache entry corrupt", err)
		metrics.Get().CacheMissesTotal.WithLabelValues(c.name).Inc()
		return false
	}

	metrics.Get().CacheHitsTotal.WithLabelValues(c.name).Inc()
	return true
}

// Set caches page under key. Failures are logged, not returned.
func (c *PageCache) Set(ctx context.Context, key string, page interface{}) {
	if c == nil || c.rc == nil {
		return
	}

	raw, err := json.Marshal(page)
	if err != nil {
		logger.WarnWithFields("page cache encode failed", err)
		return
	}
	if err := c.rc.SetEx(ctx, c.versioned(ctx, key), raw, c.ttl); err != nil {
		logger.WarnWithFields("page cache write failed", err)
	}
}

// Invalidate drops every cached page in the namespace.
func (c *PageCache) Invalidate(ctx context.Context) {
	if c == nil || c.rc == nil {
		return
	}
	if _, err := c.rc.Incr(ctx, c.versionKey()); err != nil {
		logger.WarnWithFields("page cache invalidate failed", err)
	}
}

func (c *PageCache) versioned(ctx context.Context, key string) string {
	version, err := c.rc.GetInt(ctx, c.versionKey())
	if err != nil && !errors.Is(err, redis.Nil) {
		logger.WarnWithFields("page cache version read failed", err)
	}
	return c.name + ":v" + strconv.FormatInt(version, 10) + ":" + key
}

func (c *PageCache) versionKey() string {
	return c.name + ":version"
}
