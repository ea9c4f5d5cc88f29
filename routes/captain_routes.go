package routes

import (
	"ridepulse/internal/handlers"
	"ridepulse/internal/middleware"

	"github.com/gin-gonic/gin"
)

// SetupCaptainRoutes sets up captain profile and daily stats routes
func SetupCaptainRoutes(r *gin.RouterGroup, captainHandler *handlers.CaptainHandler, statsHandler *handlers.StatsHandler, jwtSecret string) {
	captains := r.Group("/captains")
	captains.Use(middleware.AuthRequired(jwtSecret), middleware.CaptainRequired())
	{
		captains.GET("/me", captainHandler.GetProfile)
		captains.PUT("/availability", captainHandler.UpdateAvailability)

		captains.GET("/stats/today", statsHandler.GetTodayStats)
		captains.POST("/stats/reset", statsHandler.ResetTodayStats)
	}
}
