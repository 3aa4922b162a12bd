package middleware

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	pkgredis "github.com/D-Tasker207/gazpacho-backend/pkg/redis"
	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*pkgredis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	return pkgredis.Wrap(goredis.NewClient(&goredis.Options{Addr: mr.Addr()})), mr
}

func setupRouter(cfg RateLimitConfig) (*gin.Engine, *RateLimiter) {
	gin.SetMode(gin.TestMode)
	limiter := NewRateLimiter(cfg)
	router := gin.New()
	router.Use(limiter.Middleware())
	router.GET("/recipes/1", func(c *gin.Context) { c.Status(http.StatusOK) })
	return router, limiter
}

func hit(router *gin.Engine, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/recipes/1", nil)
	req.RemoteAddr = ip + ":1234"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestLocalRateLimiter_Refill(t *testing.T) {
	rl := NewLocalRateLimiter(RateLimitConfig{RequestsPerSecond: 2, BurstSize: 2})
	defer rl.Stop()
	now := time.Unix(1000, 0)
	rl.now = func() time.Time { return now }

	allowed, remaining := rl.Allow("a")
	assert.True(t, allowed)
	assert.Equal(t, 1.0, remaining)
	allowed, _ = rl.Allow("a")
	assert.True(t, allowed)
	allowed, _ = rl.Allow("a")
	assert.False(t, allowed)

	// other keys have their own bucket
	allowed, _ = rl.Allow("b")
	assert.True(t, allowed)

	now = now.Add(500 * time.Millisecond)
	allowed, remaining = rl.Allow("a")
	assert.True(t, allowed)
	assert.Equal(t, 0.0, remaining)

	now = now.Add(time.Hour)
	_, remaining = rl.Allow("a")
	assert.Equal(t, 1.0, remaining, "refill is capped at burst")
}

func TestRateLimiter_Local(t *testing.T) {
	router, limiter := setupRouter(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 2})
	defer limiter.Stop()

	w := hit(router, "10.0.0.1")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))

	assert.Equal(t, http.StatusOK, hit(router, "10.0.0.1").Code)

	w = hit(router, "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), `"code":"TOO_MANY_REQUESTS"`)

	assert.Equal(t, http.StatusOK, hit(router, "10.0.0.2").Code)
}

func TestRedisRateLimiter_Allow(t *testing.T) {
	client, mr := newTestRedis(t)
	rl := NewRedisRateLimiter(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 2, Redis: client})
	ctx := context.Background()

	allowed, remaining, err := rl.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.InDelta(t, 1.0, remaining, 0.1)

	allowed, _, err = rl.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, _, err = rl.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, allowed)

	assert.True(t, mr.Exists("ratelimit:10.0.0.1"))
	assert.Greater(t, mr.TTL("ratelimit:10.0.0.1"), time.Duration(0))
}

func TestRateLimiter_RedisSharedAcrossInstances(t *testing.T) {
	client, _ := newTestRedis(t)
	cfg := RateLimitConfig{RequestsPerSecond: 1, BurstSize: 2, Redis: client}
	first, l1 := setupRouter(cfg)
	defer l1.Stop()
	second, l2 := setupRouter(cfg)
	defer l2.Stop()

	assert.Equal(t, http.StatusOK, hit(first, "10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, hit(second, "10.0.0.1").Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(first, "10.0.0.1").Code)
}

// newFailFastRedis gives up on the first dial error
func newFailFastRedis(t *testing.T) (*pkgredis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	return pkgredis.Wrap(goredis.NewClient(&goredis.Options{
		Addr:        mr.Addr(),
		MaxRetries:  -1,
		DialTimeout: 50 * time.Millisecond,
	})), mr
}

func TestRateLimiter_RedisDownFallsBackToLocal(t *testing.T) {
	client, mr := newFailFastRedis(t)
	router, limiter := setupRouter(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 1, Redis: client})
	defer limiter.Stop()
	mr.Close()

	start := time.Now()
	assert.Equal(t, http.StatusOK, hit(router, "10.0.0.1").Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(router, "10.0.0.1").Code)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestRateLimiter_RedisCallIsBounded(t *testing.T) {
	// accepts connections and never answers
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			defer conn.Close()
		}
	}()

	client := pkgredis.Wrap(goredis.NewClient(&goredis.Options{
		Addr:                  ln.Addr().String(),
		MaxRetries:            -1,
		ContextTimeoutEnabled: true,
	}))
	limiter := NewRateLimiter(RateLimitConfig{
		RequestsPerSecond: 10,
		Redis:             client,
		RedisTimeout:      20 * time.Millisecond,
	})
	defer limiter.Stop()

	start := time.Now()
	allowed, _ := limiter.allow(context.Background(), "10.0.0.1")

	assert.True(t, allowed)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestRateLimiter_RedisCooldown(t *testing.T) {
	client, mr := newFailFastRedis(t)
	limiter := NewRateLimiter(RateLimitConfig{
		RequestsPerSecond: 10,
		BurstSize:         10,
		Redis:             client,
		RedisCooldown:     time.Minute,
	})
	defer limiter.Stop()
	now := time.Unix(2000, 0)
	limiter.now = func() time.Time { return now }

	mr.Close()
	limiter.allow(context.Background(), "10.0.0.1")
	assert.Equal(t, now.Add(time.Minute).UnixNano(), limiter.redisDownUntil.Load())

	// Redis is back but skipped until the cooldown passes
	require.NoError(t, mr.Restart())
	limiter.allow(context.Background(), "10.0.0.1")
	assert.False(t, mr.Exists("ratelimit:10.0.0.1"))

	now = now.Add(time.Minute)
	limiter.allow(context.Background(), "10.0.0.1")
	assert.True(t, mr.Exists("ratelimit:10.0.0.1"))
}

func TestRateLimitConfig_Defaults(t *testing.T) {
	cfg := RateLimitConfig{RequestsPerSecond: 5}
	cfg.applyDefaults()

	assert.Equal(t, 5, cfg.BurstSize)
	assert.Equal(t, "ratelimit:", cfg.KeyPrefix)
	assert.Equal(t, time.Minute, cfg.CleanupInterval)
}
