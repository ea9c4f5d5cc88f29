package handlers

import (
	"ridepulse/internal/services"
	"ridepulse/internal/utils"
	"ridepulse/pkg/logger"

	"github.com/gin-gonic/gin"
)

type StatsHandler struct {
	stats  *services.StatsService
	logger *logger.Logger
}

func NewStatsHandler(stats *services.StatsService, log *logger.Logger) *StatsHandler {
	return &StatsHandler{stats: stats, logger: log}
}

// GetTodayStats handles GET /captains/stats/today
func (h *StatsHandler) GetTodayStats(c *gin.Context) {
	captainID, ok := currentUserID(c)
	if !ok {
		return
	}

	stats, err := h.stats.GetToday(c.Request.Context(), captainID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load captain stats")
		utils.InternalServerErrorResponse(c)
		return
	}

	utils.SuccessResponse(c, "Daily stats", gin.H{
		"rides_offered":     stats.RidesOffered,
		"rides_completed":   stats.RidesCompleted,
		"earnings":          stats.Earnings,
		"ride_time_minutes": stats.RideTimeMinutes,
		"acceptance_rate":   stats.AcceptanceRate(),
	})
}

// ResetTodayStats handles POST /captains/stats/reset
func (h *StatsHandler) ResetTodayStats(c *gin.Context) {
	captainID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.stats.ResetToday(c.Request.Context(), captainID); err != nil {
		h.logger.WithError(err).Error("Failed to reset captain stats")
		utils.InternalServerErrorResponse(c)
		return
	}

	utils.SuccessResponse(c, "Daily stats reset", nil)
}
