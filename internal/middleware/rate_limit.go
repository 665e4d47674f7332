package middleware

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/damoang/image-organizer/internal/common"
	"github.com/damoang/image-organizer/pkg/i18n"
	pkglogger "github.com/damoang/image-organizer/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimitConfig configures the rate limiter
type RateLimitConfig struct {
	Requests  int
	Window    time.Duration
	KeyPrefix string
}

// DefaultUploadRateLimitConfig returns the upload submission limit
func DefaultUploadRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Requests:  5,
		Window:    10 * time.Minute,
		KeyPrefix: "gallery:ratelimit:upload:",
	}
}

// rateLimitScript is an atomic Lua script for sliding window rate limiting
var rateLimitScript = redis.NewScript(`
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local window_start = now - window

redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)
local count = redis.call('ZCARD', key)

if count < limit then
    redis.call('ZADD', key, now, now .. ':' .. math.random(1000000))
    redis.call('EXPIRE', key, math.ceil(window / 1000) + 1)
    return {1, limit - count - 1, 0}
else
    local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
    local reset_at = 0
    if #oldest >= 2 then
        reset_at = tonumber(oldest[2]) + window
    end
    return {0, 0, reset_at}
end
`)

// RateLimiter sliding-window limiter on redis with an in-memory fallback
type RateLimiter struct {
	redis    *redis.Client
	cfg      RateLimitConfig
	fallback *inMemoryLimiter
	now      func() time.Time
}

// NewRateLimiter creates a limiter; redisClient may be nil
func NewRateLimiter(redisClient *redis.Client, cfg RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		redis:    redisClient,
		cfg:      cfg,
		fallback: newInMemoryLimiter(),
		now:      time.Now,
	}
}

// Allow records one request for key and reports whether it is within the limit
func (rl *RateLimiter) Allow(ctx context.Context, key string) (allowed bool, remaining int, retryAfter time.Duration) {
	now := rl.now()
	if rl.redis != nil {
		windowMs := rl.cfg.Window.Milliseconds()
		result, err := rateLimitScript.Run(ctx, rl.redis, []string{rl.cfg.KeyPrefix + key},
			rl.cfg.Requests, windowMs, now.UnixMilli(),
		).Int64Slice()
		if err == nil && len(result) == 3 {
			allowed = result[0] == 1
			remaining = int(result[1])
			if !allowed {
				retryAfter = time.Duration(result[2]-now.UnixMilli()) * time.Millisecond
			}
			return allowed, remaining, retryAfter
		}
		// Redis 장애 시 인메모리로 계속 제한
		pkglogger.GetLogger().Warn().Err(err).Msg("rate limit script failed, using in-memory limiter")
	}
	return rl.fallback.check(key, rl.cfg, now)
}

// Middleware limits requests per client IP for which only(c) is true; 429 with the ajax envelope
func (rl *RateLimiter) Middleware(bundle *i18n.Bundle, only func(c *gin.Context) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if only != nil && !only(c) {
			c.Next()
			return
		}

		allowed, remaining, retryAfter := rl.Allow(c.Request.Context(), c.ClientIP())

		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.cfg.Requests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			seconds := int(math.Ceil(retryAfter.Seconds()))
			if seconds < 1 {
				seconds = 1
			}
			c.Header("Retry-After", fmt.Sprintf("%d", seconds))
			c.Set(outcomeKey, "rate_limited")
			common.AjaxError(c, http.StatusTooManyRequests, bundle.T(GetLocale(c), "error.too_many_requests", seconds))
			return
		}

		c.Next()
	}
}

// inMemoryLimiter fixed-window fallback used without redis
type inMemoryLimiter struct {
	buckets map[string]*bucket
	mu      sync.Mutex
}

type bucket struct {
	count   int
	resetAt time.Time
}

func newInMemoryLimiter() *inMemoryLimiter {
	return &inMemoryLimiter{
		buckets: make(map[string]*bucket),
	}
}

func (m *inMemoryLimiter) check(key string, cfg RateLimitConfig, now time.Time) (bool, int, time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, exists := m.buckets[key]
	if !exists || !now.Before(b.resetAt) {
		m.buckets[key] = &bucket{count: 1, resetAt: now.Add(cfg.Window)}
		return true, cfg.Requests - 1, 0
	}

	b.count++
	remaining := cfg.Requests - b.count
	if remaining < 0 {
		remaining = 0
	}
	if b.count > cfg.Requests {
		return false, 0, b.resetAt.Sub(now)
	}
	return true, remaining, 0
}
