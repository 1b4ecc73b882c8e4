package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"weddingplanners/api/internal/api/middleware"
	"weddingplanners/api/internal/services"
)

// RestPlannerHandler handles REST requests for planner listings.
type RestPlannerHandler struct {
	plannerService services.IPlannerService
	defaultLimit   int
}

// NewRestPlannerHandler creates a new RestPlannerHandler.
func NewRestPlannerHandler(plannerService services.IPlannerService, defaultLimit int) *RestPlannerHandler {
	return &RestPlannerHandler{
		plannerService: plannerService,
		defaultLimit:   defaultLimit,
	}
}

// ListPlanners handles GET /api/planners
func (h *RestPlannerHandler) ListPlanners(c *gin.Context) {
	limit := h.defaultLimit
	if limitStr, ok := c.GetQuery("limit"); ok {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	listing, err := h.plannerService.ListPlanners(c.Request.Context(), limit)
	if err != nil {
		if errors.Is(err, services.ErrInvalidLimit) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load planners"})
		return
	}

	c.Header(middleware.HeaderPlannerSource, string(listing.Source))
	c.JSON(http.StatusOK, listing.Planners)
}
