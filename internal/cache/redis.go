// Package cache holds the Redis connection shared by the page caches, the
// distributed rate limiter and the realtime bridge.
package cache

import (
	"context"
	"time"

	"github.com/communehq/commune/internal/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const dialTimeout = 5 * time.Second

// RedisClient is a pooled connection with the few commands the server needs.
type RedisClient struct {
	client *redis.Client
}

// NewRedisClient connects to addr and pings it before returning.
func NewRedisClient(addr, password string) (*RedisClient, error) {
	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	return Dial(ctx, &redis.Options{Addr: addr, Password: password})
}

// Dial fills pool defaults into opts, connects and verifies the connection.
func Dial(ctx context.Context, opts *redis.Options) (*RedisClient, error) {
	if opts.Addr == "" {
		opts.Addr = "localhost:6379"
	}
	if opts.PoolSize == 0 {
		opts.PoolSize = 10
		opts.MinIdleConns = 2
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 3 * time.Second
		opts.WriteTimeout = 3 * time.Second
	}
	opts.DialTimeout = dialTimeout

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		logger.ErrorWithFields("Failed to connect to Redis", err)
		_ = client.Close()
		return nil, err
	}

	logger.Log.Info("Redis client connected", zap.String("address", opts.Addr), zap.Int("db", opts.DB))
	return &RedisClient{client: client}, nil
}

// Wrap adopts an existing client without pinging it.
func Wrap(client *redis.Client) *RedisClient {
	return &RedisClient{client: client}
}

// Client exposes the underlying client for pub/sub.
func (rc *RedisClient) Client() *redis.Client {
	return rc.client
}

// Close is safe on a nil client.
func (rc *RedisClient) Close() error {
	if rc == nil || rc.client == nil {
		return nil
	}
	return rc.client.Close()
}

func (rc *RedisClient) Ping(ctx context.Context) error {
	return rc.client.Ping(ctx).Err()
}

func (rc *RedisClient) Get(ctx context.Context, key string) (string, error) {
	return rc.client.Get(ctx, key).Result()
}

// SetEx stores value under key for ttl.
func (rc *RedisClient) SetEx(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return rc.client.Set(ctx, key, value, ttl).Err()
}

func (rc *RedisClient) Incr(ctx context.Context, key string) (int64, error) {
	return rc.client.Incr(ctx, key).Result()
}

// GetInt reads an integer counter; a missing key is redis.Nil.
func (rc *RedisClient) GetInt(ctx context.Context, key string) (int64, error) {
	return rc.client.Get(ctx, key).Int64()
}

// Hit counts one event in the fixed window stored at key and returns the
// count so far and the time until the window resets. The window starts on
// the first hit.
func (rc *RedisClient) Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	var (
		count *redis.IntCmd
		ttl   *redis.DurationCmd
	)
	_, err := rc.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		count = pipe.Incr(ctx, key)
		ttl = pipe.PTTL(ctx, key)
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	remaining := ttl.Val()
	if remaining < 0 {
		if err := rc.client.PExpire(ctx, key, window).Err(); err != nil {
			return count.Val(), window, err
		}
		remaining = window
	}
	return count.Val(), remaining, nil
}
