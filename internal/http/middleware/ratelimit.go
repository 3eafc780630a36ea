// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements the process-local rate limiter: one token bucket per
// client IP (golang.org/x/time/rate), swept of idle buckets on a timer-free
// schedule driven by lookups. Deployments with more than one instance use
// RedisRateLimiter instead. Both limiters let idempotent replays through and
// answer 429 with the same envelope.
package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// keyFunc selects the identity used to key a rate-limit bucket.
type keyFunc func(*gin.Context) string

// KeyByClientIP returns a keyFunc keyed by the client IP address.
//
// Cart session ids are chosen by the client, so they are not used as the
// identity here; rotating them would reset the bucket.
func KeyByClientIP() keyFunc {
	return func(c *gin.Context) string {
		return "ip:" + c.ClientIP()
	}
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps a token bucket per key. It is safe for concurrent use.
type RateLimiter struct {
	limit rate.Limit
	burst int
	keyFn keyFunc

	mu        sync.Mutex
	buckets   map[string]*bucket
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewRateLimiter builds a limiter refilling rps tokens per second up to
// burst (coerced to at least 1).
func NewRateLimiter(rps float64, burst int, keyFn keyFunc) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limit:   rate.Limit(rps),
		burst:   burst,
		keyFn:   keyFn,
		buckets: make(map[string]*bucket),
		idleTTL: 10 * time.Minute,
		now:     time.Now,
	}
}

// bucketFor returns the limiter for key, creating it on first use. At most
// once per idleTTL it first drops buckets idle for idleTTL or longer; the
// sweep runs before the lookup so a stale bucket for key is replaced too.
func (rl *RateLimiter) bucketFor(key string) *rate.Limiter {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.Sub(rl.lastSweep) >= rl.idleTTL {
		for k, b := range rl.buckets {
			if now.Sub(b.lastSeen) >= rl.idleTTL {
				delete(rl.buckets, k)
			}
		}
		rl.lastSweep = now
	}

	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter
}

// IsRateBypass reports whether IdempotencyValidator marked this request as a
// replay that should not consume a token.
func IsRateBypass(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyRateBypass)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// Handler returns the Gin middleware. A denied request gets 429 with
// Retry-After set to the whole seconds until a token is available.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}

		lim := rl.bucketFor(rl.keyFn(c))
		now := rl.now()
		res := lim.ReserveN(now, 1)
		wait := res.DelayFrom(now)
		switch {
		case !res.OK() || wait == rate.InfDuration:
			// A zero rate never refills: the request can never pass.
			res.CancelAt(now)
			rejectRateLimited(c, "60")
		case wait > 0:
			res.CancelAt(now)
			rejectRateLimited(c, retryAfterSeconds(wait))
		default:
			c.Next()
		}
	}
}

func retryAfterSeconds(d time.Duration) string {
	s := int(math.Ceil(d.Seconds()))
	if s < 1 {
		s = 1
	}
	return strconv.Itoa(s)
}

// rejectRateLimited writes the 429 envelope shared by both limiters:
//
//	{"request_id": "...", "code": "rate_limited", "message": "rate limit exceeded"}
func rejectRateLimited(c *gin.Context, retryAfter string) {
	rateLimited.Inc()
	c.Header("Retry-After", retryAfter)
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"request_id": c.Writer.Header().Get("X-Request-ID"),
		"code":       "rate_limited",
		"message":    "rate limit exceeded",
	})
}
