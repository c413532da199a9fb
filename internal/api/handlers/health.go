package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/stitts-dev/gridiron-sim/internal/websocket"
	"github.com/stitts-dev/gridiron-sim/pkg/cache"
	"github.com/stitts-dev/gridiron-sim/pkg/database"
)

// HealthStatus is the body of the health endpoints
type HealthStatus struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
	Metrics   map[string]int    `json:"metrics,omitempty"`
}

// HealthHandler handles health check endpoints
type HealthHandler struct {
	db     *database.DB
	cache  *cache.ResultCache
	wsHub  *websocket.ProgressHub
	logger *logrus.Logger
}

// NewHealthHandler creates a new health handler. cache and wsHub may be nil.
func NewHealthHandler(db *database.DB, cache *cache.ResultCache, wsHub *websocket.ProgressHub, logger *logrus.Logger) *HealthHandler {
	return &HealthHandler{
		db:     db,
		cache:  cache,
		wsHub:  wsHub,
		logger: logger,
	}
}

// GetHealth reports the database and result cache. A broken cache only
// degrades the service; runs still work without it.
func (h *HealthHandler) GetHealth(c *gin.Context) {
	response := HealthStatus{
		Status:    "ok",
		Service:   "gridiron-sim",
		Timestamp: time.Now(),
		Checks:    make(map[string]string),
	}

	if err := h.db.Ping(); err != nil {
		response.Status = "unhealthy"
		response.Checks["database"] = "failed: " + err.Error()
	} else {
		response.Checks["database"] = "ok"
	}

	switch {
	case h.cache == nil:
		response.Checks["cache"] = "disabled"
	case h.cache.State() == gobreaker.StateOpen:
		response.Checks["cache"] = "circuit open"
		if response.Status == "ok" {
			response.Status = "degraded"
		}
	default:
		if err := h.cache.Ping(c.Request.Context()); err != nil {
			response.Checks["cache"] = "failed: " + err.Error()
			if response.Status == "ok" {
				response.Status = "degraded"
			}
		} else {
			response.Checks["cache"] = "ok"
		}
	}

	if h.wsHub != nil {
		response.Metrics = map[string]int{"websocket_connections": h.wsHub.GetConnectionCount()}
	}

	statusCode := http.StatusOK
	if response.Status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
		h.logger.WithField("checks", response.Checks).Warn("Health check failed")
	}
	c.JSON(statusCode, response)
}

// GetReady reports whether runs can be stored
func (h *HealthHandler) GetReady(c *gin.Context) {
	response := HealthStatus{
		Status:    "ready",
		Service:   "gridiron-sim",
		Timestamp: time.Now(),
		Checks:    map[string]string{"database": "ok"},
	}
	if err := h.db.Ping(); err != nil {
		response.Status = "not_ready"
		response.Checks["database"] = "failed: " + err.Error()
		c.JSON(http.StatusServiceUnavailable, response)
		return
	}
	c.JSON(http.StatusOK, response)
}
