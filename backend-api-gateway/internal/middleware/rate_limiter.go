package middleware

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/D-Tasker207/gazpacho-backend/pkg/logger"
	pkgredis "github.com/D-Tasker207/gazpacho-backend/pkg/redis"
	"github.com/D-Tasker207/gazpacho-backend/pkg/response"
	"github.com/D-Tasker207/gazpacho-backend/pkg/telemetry"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// ErrCodeTooManyRequests is returned when a client exhausts its bucket
const ErrCodeTooManyRequests = "TOO_MANY_REQUESTS"

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	// Sustained requests per second per client IP
	RequestsPerSecond int
	// Token bucket capacity
	BurstSize int
	// Redis makes the limit shared across gateway replicas. Nil uses only the local bucket.
	Redis *pkgredis.Client
	// Key prefix for Redis
	KeyPrefix string
	// Cleanup interval for local buckets
	CleanupInterval time.Duration
	// Idle local buckets older than this are dropped
	EntryTTL time.Duration
	// Upper bound on one Redis round trip
	RedisTimeout time.Duration
	// After a Redis failure, requests use only the local bucket for this long
	RedisCooldown time.Duration
}

// DefaultRateLimitConfig returns sensible defaults
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 100,
		BurstSize:         200,
		KeyPrefix:         "ratelimit:",
		CleanupInterval:   time.Minute,
		EntryTTL:          time.Minute,
		RedisTimeout:      50 * time.Millisecond,
		RedisCooldown:     5 * time.Second,
	}
}

func (c *RateLimitConfig) applyDefaults() {
	d := DefaultRateLimitConfig()
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = d.RequestsPerSecond
	}
	if c.BurstSize <= 0 {
		c.BurstSize = c.RequestsPerSecond
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = d.KeyPrefix
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = d.CleanupInterval
	}
	if c.EntryTTL <= 0 {
		c.EntryTTL = d.EntryTTL
	}
	if c.RedisTimeout <= 0 {
		c.RedisTimeout = d.RedisTimeout
	}
	if c.RedisCooldown <= 0 {
		c.RedisCooldown = d.RedisCooldown
	}
}

// bucket tracks rate limit state for one key
type bucket struct {
	tokens     float64
	lastUpdate time.Time
}

// LocalRateLimiter implements in-memory token bucket rate limiting
type LocalRateLimiter struct {
	config  RateLimitConfig
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

// NewLocalRateLimiter creates a local rate limiter and starts its cleanup loop
func NewLocalRateLimiter(config RateLimitConfig) *LocalRateLimiter {
	config.applyDefaults()
	rl := &LocalRateLimiter{
		config:  config,
		buckets: make(map[string]*bucket),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

// Allow takes one token for key and returns whether it was available and
// how many tokens remain
func (rl *LocalRateLimiter) Allow(key string) (bool, float64) {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(rl.config.BurstSize), lastUpdate: now}
		rl.buckets[key] = b
	}

	elapsed := now.Sub(b.lastUpdate).Seconds()
	b.tokens = math.Min(float64(rl.config.BurstSize), b.tokens+elapsed*float64(rl.config.RequestsPerSecond))
	b.lastUpdate = now

	if b.tokens >= 1 {
		b.tokens--
		return true, b.tokens
	}
	return false, b.tokens
}

func (rl *LocalRateLimiter) cleanup() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cutoff := rl.now().Add(-rl.config.EntryTTL)
			rl.mu.Lock()
			for key, b := range rl.buckets {
				if b.lastUpdate.Before(cutoff) {
					delete(rl.buckets, key)
				}
			}
			rl.mu.Unlock()
		case <-rl.stop:
			return
		}
	}
}

// Stop stops the cleanup goroutine
func (rl *LocalRateLimiter) Stop() {
	rl.once.Do(func() { close(rl.stop) })
}

// tokenBucketScript refills and takes one token atomically.
// Returns {allowed, remaining tokens}.
const tokenBucketScript = `
local key = KEYS[1]
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local data = redis.call("HMGET", key, "tokens", "last_update")
local tokens = tonumber(data[1]) or burst
local last_update = tonumber(data[2]) or now

local elapsed = math.max(0, now - last_update)
tokens = math.min(burst, tokens + elapsed * rate)

local allowed = 0
if tokens >= 1 then
    tokens = tokens - 1
    allowed = 1
end

redis.call("HSET", key, "tokens", tostring(tokens), "last_update", tostring(now))
redis.call("EXPIRE", key, math.ceil(burst / rate) + 1)
return {allowed, tostring(tokens)}
`

// RedisRateLimiter implements token bucket rate limiting shared through Redis
type RedisRateLimiter struct {
	config RateLimitConfig
}

// NewRedisRateLimiter creates a new Redis rate limiter
func NewRedisRateLimiter(config RateLimitConfig) *RedisRateLimiter {
	config.applyDefaults()
	return &RedisRateLimiter{config: config}
}

// Allow takes one token for key from the shared bucket
func (rl *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, float64, error) {
	now := float64(time.Now().UnixNano()) / 1e9

	values, err := rl.config.Redis.Eval(ctx, tokenBucketScript,
		[]string{rl.config.KeyPrefix + key},
		rl.config.RequestsPerSecond,
		rl.config.BurstSize,
		strconv.FormatFloat(now, 'f', 6, 64),
	).Slice()
	if err != nil {
		return false, 0, err
	}
	if len(values) != 2 {
		return false, 0, fmt.Errorf("unexpected rate limit result length: %d", len(values))
	}

	allowed, ok := values[0].(int64)
	if !ok {
		return false, 0, fmt.Errorf("unexpected rate limit flag %T", values[0])
	}
	var remaining float64
	if s, ok := values[1].(string); ok {
		remaining, _ = strconv.ParseFloat(s, 64)
	}
	return allowed == 1, remaining, nil
}

// RateLimiter limits requests per client IP. With Redis configured the
// bucket is shared; if Redis fails the request is charged to the local bucket
// and Redis is left alone until the cooldown passes.
type RateLimiter struct {
	config RateLimitConfig
	local  *LocalRateLimiter
	redis  *RedisRateLimiter
	now    func() time.Time

	// unix nanos before which Redis is skipped
	redisDownUntil atomic.Int64
}

// NewRateLimiter creates a rate limiter from config
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	config.applyDefaults()
	rl := &RateLimiter{
		config: config,
		local:  NewLocalRateLimiter(config),
		now:    time.Now,
	}
	if config.Redis != nil {
		rl.redis = NewRedisRateLimiter(config)
	}
	return rl
}

// Stop releases background resources
func (rl *RateLimiter) Stop() {
	rl.local.Stop()
}

func (rl *RateLimiter) allow(ctx context.Context, key string) (bool, float64) {
	if rl.redis != nil && rl.now().UnixNano() >= rl.redisDownUntil.Load() {
		redisCtx, cancel := context.WithTimeout(ctx, rl.config.RedisTimeout)
		allowed, remaining, err := rl.redis.Allow(redisCtx, key)
		cancel()
		if err == nil {
			return allowed, remaining
		}
		rl.redisDownUntil.Store(rl.now().Add(rl.config.RedisCooldown).UnixNano())
		logger.Get().Warn("Redis rate limiter failed, using local bucket",
			zap.Duration("cooldown", rl.config.RedisCooldown), zap.Error(err))
	}
	return rl.local.Allow(key)
}

// Middleware returns the gin handler
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := telemetry.StartSpan(c.Request.Context(), "middleware.rate_limiter")
		defer span.End()

		clientIP := c.ClientIP()
		span.SetAttributes(attribute.String("client_ip", clientIP))

		allowed, remaining := rl.allow(ctx, clientIP)
		span.SetAttributes(attribute.Bool("allowed", allowed))

		rate := float64(rl.config.RequestsPerSecond)
		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.config.RequestsPerSecond))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(int(math.Floor(remaining))))
		resetIn := math.Ceil((float64(rl.config.BurstSize) - remaining) / rate)
		c.Header("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(time.Duration(resetIn)*time.Second).Unix(), 10))

		if !allowed {
			span.SetStatus(codes.Error, "rate limit exceeded")
			retryAfter := int(math.Max(1, math.Ceil((1-remaining)/rate)))
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, response.Error(
				ErrCodeTooManyRequests,
				fmt.Sprintf("Rate limit exceeded. Please retry after %d second(s).", retryAfter),
			))
			return
		}

		c.Next()
	}
}
