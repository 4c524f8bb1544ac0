// ratelimit_redis.go implements the Limiter interface on top of Redis so rate
// limits are shared across replicas. Uses the GCRA-based redis_rate limiter.
package middleware

import (
	"context"
	"log/slog"
	"time"

	redis_rate "github.com/go-redis/redis_rate/v10"
	goredis "github.com/redis/go-redis/v9"
)

// RedisRateLimiter enforces a per-key requests-per-minute limit backed by
// Redis. Unlike the in-memory RateLimiter it needs no cleanup goroutine:
// redis_rate keys expire on their own.
type RedisRateLimiter struct {
	limiter *redis_rate.Limiter
	limit   redis_rate.Limit
	rpm     int
}

// NewRedisRateLimiter creates a limiter over an established Redis client.
func NewRedisRateLimiter(client *goredis.Client, config RateLimitConfig) *RedisRateLimiter {
	return &RedisRateLimiter{
		limiter: redis_rate.NewLimiter(client),
		limit: redis_rate.Limit{
			Rate:   config.RequestsPerMinute,
			Burst:  config.BurstSize,
			Period: time.Minute,
		},
		rpm: config.RequestsPerMinute,
	}
}

// Allow reports whether a request from the given key should proceed. A Redis
// outage fails open: the in-memory limiter on each replica is the only
// protection left, which beats returning 429 to every client.
func (rl *RedisRateLimiter) Allow(key string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	res, err := rl.limiter.Allow(ctx, "ratelimit:"+key, rl.limit)
	if err != nil {
		slog.Warn("redis rate limiter unavailable, allowing request", "error", err)
		return true
	}
	return res.Allowed > 0
}

// RemainingTokens returns how many requests the key has left in the current window.
func (rl *RedisRateLimiter) RemainingTokens(key string) int {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	// AllowN with n=0 peeks at the bucket without consuming a token.
	res, err := rl.limiter.AllowN(ctx, "ratelimit:"+key, rl.limit, 0)
	if err != nil {
		return rl.limit.Burst
	}
	return res.Remaining
}

// Limit returns the configured requests-per-minute ceiling.
func (rl *RedisRateLimiter) Limit() int {
	return rl.rpm
}
