package routes

import (
	"ridepulse/internal/handlers"
	"ridepulse/internal/middleware"

	"github.com/gin-gonic/gin"
)

// SetupRideRoutes sets up routes for the ride lifecycle and payments
func SetupRideRoutes(r *gin.RouterGroup, rideHandler *handlers.RideHandler, jwtSecret string) {
	rides := r.Group("/rides")
	rides.Use(middleware.AuthRequired(jwtSecret))
	{
		// Rider operations
		rides.POST("", middleware.RiderRequired(), rideHandler.CreateRide)
		rides.POST("/estimate", middleware.RiderRequired(), rideHandler.EstimateFare)
		rides.GET("/active", middleware.RiderRequired(), rideHandler.GetActiveRide)
		rides.POST("/:id/cancel", middleware.RiderRequired(), rideHandler.CancelRide)

		// Captain operations
		rides.POST("/:id/confirm", middleware.CaptainRequired(), rideHandler.ConfirmRide)
		rides.POST("/:id/start", middleware.CaptainRequired(), rideHandler.StartRide)
		rides.POST("/:id/end", middleware.CaptainRequired(), rideHandler.EndRide)

		// Ride history for either party
		rides.GET("", rideHandler.ListRides)
	}

	payments := r.Group("/payments")
	payments.Use(middleware.AuthRequired(jwtSecret), middleware.RiderRequired())
	{
		payments.POST("/order", rideHandler.CreatePaymentOrder)
		payments.POST("/verify", rideHandler.VerifyPayment)
	}
}
