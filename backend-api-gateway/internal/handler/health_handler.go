package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// UpstreamChecker reports the health of every backend service by name
type UpstreamChecker interface {
	HealthCheck(ctx context.Context) map[string]bool
}

// Pinger reports whether a backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles gateway health check requests
type HealthHandler struct {
	upstreams UpstreamChecker
	redis     Pinger
	timeout   time.Duration
}

// NewHealthHandler creates a new HealthHandler. redis may be nil.
func NewHealthHandler(upstreams UpstreamChecker, redis Pinger) *HealthHandler {
	return &HealthHandler{upstreams: upstreams, redis: redis, timeout: 3 * time.Second}
}

// Health returns basic health status
// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "api-gateway",
	})
}

// Ready is ready only when every upstream answers its /health.
// Redis is reported but only degrades rate limiting to local buckets.
// GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	services := h.upstreams.HealthCheck(ctx)
	ready := true
	for _, ok := range services {
		ready = ready && ok
	}

	body := gin.H{
		"service":  "api-gateway",
		"services": services,
	}
	if h.redis != nil {
		body["redis"] = "connected"
		if err := h.redis.Ping(ctx); err != nil {
			body["redis"] = "disconnected"
		}
	}

	if !ready {
		body["status"] = "not_ready"
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}
	body["status"] = "ready"
	c.JSON(http.StatusOK, body)
}
