package handlers

import (
	"errors"

	"ridepulse/internal/models"
	"ridepulse/internal/repositories/interfaces"
	"ridepulse/internal/utils"
	"ridepulse/pkg/logger"

	"github.com/gin-gonic/gin"
)

type CaptainHandler struct {
	captains interfaces.CaptainRepository
	logger   *logger.Logger
}

func NewCaptainHandler(captains interfaces.CaptainRepository, log *logger.Logger) *CaptainHandler {
	return &CaptainHandler{captains: captains, logger: log}
}

// GetProfile handles GET /captains/me
func (h *CaptainHandler) GetProfile(c *gin.Context) {
	captainID, ok := currentUserID(c)
	if !ok {
		return
	}

	captain, err := h.captains.GetByID(c.Request.Context(), captainID)
	if err != nil {
		if errors.Is(err, models.ErrCaptainNotFound) {
			utils.NotFoundResponse(c, "Captain")
			return
		}
		h.logger.WithError(err).Error("Failed to load captain")
		utils.InternalServerErrorResponse(c)
		return
	}

	utils.SuccessResponse(c, "Captain profile", captain)
}

// UpdateAvailability handles PUT /captains/availability
func (h *CaptainHandler) UpdateAvailability(c *gin.Context) {
	captainID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req struct {
		IsAvailable *bool `json:"is_available" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "is_available is required")
		return
	}

	if err := h.captains.SetAvailability(c.Request.Context(), captainID, *req.IsAvailable); err != nil {
		if errors.Is(err, models.ErrCaptainNotFound) {
			utils.NotFoundResponse(c, "Captain")
			return
		}
		h.logger.WithError(err).Error("Failed to update availability")
		utils.InternalServerErrorResponse(c)
		return
	}

	utils.SuccessResponse(c, "Availability updated", gin.H{"is_available": *req.IsAvailable})
}
