package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/leasegen/backend/internal/interfaces/http/dto"
)

// HealthHandler serves the liveness probe
type HealthHandler struct {
	now func() time.Time
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{now: time.Now}
}

// Check handles GET /health
func (h *HealthHandler) Check(c *gin.Context) {
	c.JSON(http.StatusOK, dto.HealthResponse{
		Status:    "ok",
		Timestamp: h.now().UTC().Format(time.RFC3339),
	})
}
