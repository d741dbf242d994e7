package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/result"
)

// Pinger checks that the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler provides health check endpoints.
type HealthHandler struct {
	store Pinger
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(store Pinger) *HealthHandler {
	return &HealthHandler{store: store}
}

type healthStatus struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Live handles liveness probe (is the process alive?).
// GET /health/live
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, result.OK(healthStatus{Status: "ok"}))
}

// Ready handles readiness probe (is the store reachable?).
// GET /health/ready
func (h *HealthHandler) Ready(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		status := healthStatus{Status: "error", Checks: map[string]string{"store": "unhealthy: " + err.Error()}}
		c.JSON(http.StatusServiceUnavailable, result.Envelope[healthStatus]{
			Data:  status,
			Error: &result.Error{Kind: apperror.CodeStorageUnavailable, Message: "store is not reachable"},
		})
		return
	}

	c.JSON(http.StatusOK, result.OK(healthStatus{
		Status: "ok",
		Checks: map[string]string{"store": "healthy"},
	}))
}
