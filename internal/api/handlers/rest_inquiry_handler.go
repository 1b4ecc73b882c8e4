package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"weddingplanners/api/internal/models"
	"weddingplanners/api/internal/services"
)

// RestInquiryHandler handles REST requests for inquiries.
type RestInquiryHandler struct {
	inquiryService services.IInquiryService
}

// NewRestInquiryHandler creates a new RestInquiryHandler.
func NewRestInquiryHandler(inquiryService services.IInquiryService) *RestInquiryHandler {
	return &RestInquiryHandler{inquiryService: inquiryService}
}

// SubmitInquiry handles POST /api/inquiries
func (h *RestInquiryHandler) SubmitInquiry(c *gin.Context) {
	var in models.InquiryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid value type", "field": typeErr.Field})
			return
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Invalid request body"})
		return
	}

	receipt, err := h.inquiryService.SubmitInquiry(c.Request.Context(), in)
	if err != nil {
		var validationErr *models.ValidationError
		switch {
		case errors.As(err, &validationErr):
			c.JSON(http.StatusUnprocessableEntity, validationErr)
		case errors.Is(err, services.ErrStoreUnavailable):
			_ = c.Error(err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Inquiry could not be stored"})
		default:
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to submit inquiry"})
		}
		return
	}

	c.JSON(http.StatusOK, receipt)
}
