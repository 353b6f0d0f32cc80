package storage

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const rateLimitKeyPrefix = "ratelimit:"

//go:embed ratelimit.lua
var slidingWindowLua string

var slidingWindow = redis.NewScript(slidingWindowLua)

var _ RateLimiter = (*RedisRateLimiter)(nil)

// RedisRateLimiter is a sliding-window log limiter shared by every server
// instance. Each admitted request is a member of a per-key sorted set scored
// by its arrival time in milliseconds.
type RedisRateLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	now    Clock
}

func NewRedisRateLimiter(client *redis.Client, limit int, window time.Duration) *RedisRateLimiter {
	return &RedisRateLimiter{
		client: client,
		limit:  limit,
		window: window,
		now:    systemClock,
	}
}

func (r *RedisRateLimiter) Allow(ctx context.Context, key string) (RateLimitResult, error) {
	ttl := r.window + time.Second
	res, err := slidingWindow.Run(ctx, r.client,
		[]string{rateLimitKeyPrefix + key},
		r.window.Milliseconds(),
		r.limit,
		int(ttl.Seconds()),
		r.now().UnixMilli(),
		uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return RateLimitResult{}, fmt.Errorf("failed to run rate limit script: %w", err)
	}
	if len(res) != 2 {
		return RateLimitResult{}, fmt.Errorf("rate limit script returned %d values", len(res))
	}

	if res[0] == 1 {
		return RateLimitResult{Allowed: true}, nil
	}
	return RateLimitResult{RetryAfter: time.Duration(res[1]) * time.Millisecond}, nil
}
