// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements a Redis-backed fixed-window rate limiter for
// deployments running more than one API instance. Every instance increments
// the same per-key counter, so the limit holds across the fleet.
//
// Algorithm: INCR "<prefix><key>:<window>" and set an expiry on the first hit.
// A window admits rps*window requests plus burst. Redis failures fail open:
// the request proceeds and a warning is logged, since the limiter guards
// against abuse and is not an authorization mechanism.
package middleware

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// redisCounter is the subset of redis.Cmdable used by RedisRateLimiter.
// *redis.Client satisfies it.
type redisCounter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// RedisRateLimiter enforces a shared fixed-window limit per key.
type RedisRateLimiter struct {
	rdb    redisCounter
	keyFn  keyFunc
	window time.Duration
	limit  int64
	prefix string
	now    func() time.Time
}

// NewRedisRateLimiter builds a limiter admitting roughly rps requests per
// second per key, plus burst, over one-second windows.
func NewRedisRateLimiter(rdb redisCounter, rps float64, burst int, keyFn keyFunc) *RedisRateLimiter {
	if burst < 0 {
		burst = 0
	}
	limit := int64(math.Ceil(rps)) + int64(burst)
	if limit < 1 {
		limit = 1
	}
	return &RedisRateLimiter{
		rdb:    rdb,
		keyFn:  keyFn,
		window: time.Second,
		limit:  limit,
		prefix: "marketplace:rl:",
		now:    time.Now,
	}
}

// allow increments the counter for key in the current window.
func (rl *RedisRateLimiter) allow(ctx context.Context, key string) (bool, error) {
	win := rl.now().UnixNano() / int64(rl.window)
	k := rl.prefix + key + ":" + strconv.FormatInt(win, 10)

	n, err := rl.rdb.Incr(ctx, k).Result()
	if err != nil {
		return true, err
	}
	if n == 1 {
		// Two windows so a slow clock on one instance cannot resurrect a key.
		if err := rl.rdb.Expire(ctx, k, 2*rl.window).Err(); err != nil {
			return true, err
		}
	}
	return n <= rl.limit, nil
}

// Handler returns a Gin middleware enforcing the shared limit. Idempotent
// replays bypass it like they do the in-memory limiter.
func (rl *RedisRateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}

		allowed, err := rl.allow(c.Request.Context(), rl.keyFn(c))
		if err != nil {
			LoggerFrom(c).Warn().Err(err).Msg("redis rate limiter unavailable; allowing request")
		}
		if allowed {
			c.Next()
			return
		}
		rejectRateLimited(c, strconv.Itoa(int(rl.window/time.Second)))
	}
}
