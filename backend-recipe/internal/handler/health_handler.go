package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Pinger reports whether a backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check HTTP requests
type HealthHandler struct {
	db    Pinger
	cache Pinger
}

// NewHealthHandler creates a new HealthHandler. cache may be nil when Redis is disabled.
func NewHealthHandler(db Pinger, cache Pinger) *HealthHandler {
	return &HealthHandler{db: db, cache: cache}
}

// Health returns basic health status
// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "recipe-service",
	})
}

// Ready checks the database and, if configured, the cache.
// A cache outage degrades but does not fail readiness.
// GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx := c.Request.Context()
	body := gin.H{
		"service":  "recipe-service",
		"database": "connected",
	}

	if h.cache != nil {
		body["cache"] = "connected"
		if err := h.cache.Ping(ctx); err != nil {
			body["cache"] = "disconnected"
		}
	}

	if err := h.db.Ping(ctx); err != nil {
		body["status"] = "not_ready"
		body["database"] = "disconnected"
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}

	body["status"] = "ready"
	c.JSON(http.StatusOK, body)
}
