package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"weddingplanners/api/internal/services"
)

// RestStatusHandler serves the liveness and diagnostics endpoints.
type RestStatusHandler struct {
	diagnosticsService services.IDiagnosticsService
}

// NewRestStatusHandler creates a new RestStatusHandler.
func NewRestStatusHandler(diagnosticsService services.IDiagnosticsService) *RestStatusHandler {
	return &RestStatusHandler{diagnosticsService: diagnosticsService}
}

// Root handles GET /
func (h *RestStatusHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Wedding Planner API is running"})
}

// Diagnostics handles GET /test
func (h *RestStatusHandler) Diagnostics(c *gin.Context) {
	c.JSON(http.StatusOK, h.diagnosticsService.Check(c.Request.Context()))
}
