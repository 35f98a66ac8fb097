package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"fintrack/internal/logger"
)

const healthTimeout = 2 * time.Second

// Health statuses reported per dependency.
const (
	StatusConnected     = "connected"
	StatusDisconnected  = "disconnected"
	StatusNotConfigured = "not configured"
)

// Pinger is anything that can report its own reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports whether the API and its dependencies are reachable.
type HealthHandler struct {
	db    Pinger
	cache Pinger
	now   func() time.Time
}

// NewHealthHandler creates a HealthHandler. A nil cache is reported as not
// configured.
func NewHealthHandler(db, cache Pinger) *HealthHandler {
	return &HealthHandler{db: db, cache: cache, now: time.Now}
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services"`
}

// Health checks the database and cache
// @Summary     Health check
// @Description 503 when the database is unreachable. Cache state never fails the check.
// @Tags        system
// @Produce     json
// @Success     200 {object} HealthResponse
// @Failure     503 {object} HealthResponse
// @Router      /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	resp := HealthResponse{
		Status:    "ok",
		Timestamp: h.now().UTC(),
		Services: map[string]string{
			"database": StatusConnected,
			"cache":    StatusNotConfigured,
		},
	}
	status := http.StatusOK

	if err := h.db.Ping(ctx); err != nil {
		logger.Get().Errorw("health check: database unreachable", "error", err)
		resp.Status = "error"
		resp.Services["database"] = StatusDisconnected
		status = http.StatusServiceUnavailable
	}

	if h.cache != nil {
		if err := h.cache.Ping(ctx); err != nil {
			logger.Get().Warnw("health check: cache unreachable", "error", err)
			resp.Services["cache"] = StatusDisconnected
		} else {
			resp.Services["cache"] = StatusConnected
		}
	}

	c.JSON(status, resp)
}

// InfoResponse describes the API at its root path.
type InfoResponse struct {
	Name    string            `json:"name"`
	Version string            `json:"version"`
	Docs    string            `json:"docs"`
	Routes  map[string]string `json:"endpoints"`
}

// Info returns a static description of the API
// @Summary API info
// @Tags    system
// @Produce json
// @Success 200 {object} InfoResponse
// @Router  / [get]
func Info(version string) gin.HandlerFunc {
	info := InfoResponse{
		Name:    "Fintrack API",
		Version: version,
		Docs:    "/swagger/index.html",
		Routes: map[string]string{
			"auth":         "/api/auth",
			"transactions": "/api/transactions",
			"categories":   "/api/users/categories",
			"users":        "/api/users",
			"analytics":    "/api/analytics",
			"health":       "/health",
		},
	}
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, info)
	}
}
