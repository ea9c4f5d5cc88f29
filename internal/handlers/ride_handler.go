package handlers

import (
	"errors"
	"net/http"

	"ridepulse/internal/models"
	"ridepulse/internal/services"
	"ridepulse/internal/utils"
	"ridepulse/internal/validators"
	"ridepulse/pkg/logger"
	"ridepulse/pkg/payment"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RideHandler struct {
	rides  *services.RideService
	logger *logger.Logger
}

func NewRideHandler(rides *services.RideService, log *logger.Logger) *RideHandler {
	return &RideHandler{rides: rides, logger: log}
}

// CreateRide handles POST /rides
func (h *RideHandler) CreateRide(c *gin.Context) {
	riderID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req validators.CreateRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}
	if errs := validators.ValidateCreateRide(&req); len(errs) > 0 {
		utils.ValidationErrorResponse(c, validationDetails(errs))
		return
	}

	ride, err := h.rides.Create(c.Request.Context(), riderID, services.CreateRideInput{
		Pickup:      req.Pickup,
		Destination: req.Destination,
		VehicleType: req.VehicleType,
		ScheduledAt: req.ScheduledTime,
	})
	if err != nil {
		h.handleRideError(c, err)
		return
	}

	utils.CreatedResponse(c, "Ride created", ride)
}

// EstimateFare handles POST /rides/estimate
func (h *RideHandler) EstimateFare(c *gin.Context) {
	var req validators.EstimateFareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}
	if errs := validators.ValidateStruct(&req); len(errs) > 0 {
		utils.ValidationErrorResponse(c, validationDetails(errs))
		return
	}

	estimate, err := h.rides.EstimateFares(c.Request.Context(), req.Pickup, req.Destination)
	if err != nil {
		h.handleRideError(c, err)
		return
	}

	utils.SuccessResponse(c, "Fare estimated", estimate)
}

// ConfirmRide handles POST /rides/:id/confirm
func (h *RideHandler) ConfirmRide(c *gin.Context) {
	captainID, ok := currentUserID(c)
	if !ok {
		return
	}
	rideID, ok := rideIDParam(c)
	if !ok {
		return
	}

	ride, err := h.rides.Confirm(c.Request.Context(), rideID, captainID)
	if err != nil {
		h.handleRideError(c, err)
		return
	}

	utils.SuccessResponse(c, "Ride confirmed", ride)
}

// StartRide handles POST /rides/:id/start
func (h *RideHandler) StartRide(c *gin.Context) {
	captainID, ok := currentUserID(c)
	if !ok {
		return
	}
	rideID, ok := rideIDParam(c)
	if !ok {
		return
	}

	var req validators.StartRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}
	if errs := validators.ValidateStruct(&req); len(errs) > 0 {
		utils.ValidationErrorResponse(c, validationDetails(errs))
		return
	}

	ride, err := h.rides.Start(c.Request.Context(), rideID, captainID, req.OTP)
	if err != nil {
		h.handleRideError(c, err)
		return
	}

	utils.SuccessResponse(c, "Ride started", ride)
}

// EndRide handles POST /rides/:id/end
func (h *RideHandler) EndRide(c *gin.Context) {
	captainID, ok := currentUserID(c)
	if !ok {
		return
	}
	rideID, ok := rideIDParam(c)
	if !ok {
		return
	}

	ride, err := h.rides.End(c.Request.Context(), rideID, captainID)
	if err != nil {
		h.handleRideError(c, err)
		return
	}

	utils.SuccessResponse(c, "Ride completed", ride)
}

// CancelRide handles POST /rides/:id/cancel
func (h *RideHandler) CancelRide(c *gin.Context) {
	riderID, ok := currentUserID(c)
	if !ok {
		return
	}
	rideID, ok := rideIDParam(c)
	if !ok {
		return
	}

	var req validators.CancelRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}

	ride, err := h.rides.Cancel(c.Request.Context(), rideID, riderID, req.Reason)
	if err != nil {
		h.handleRideError(c, err)
		return
	}

	utils.SuccessResponse(c, "Ride cancelled", ride)
}

// GetActiveRide handles GET /rides/active
func (h *RideHandler) GetActiveRide(c *gin.Context) {
	riderID, ok := currentUserID(c)
	if !ok {
		return
	}

	ride, err := h.rides.GetActiveRide(c.Request.Context(), riderID)
	if err != nil {
		h.handleRideError(c, err)
		return
	}

	utils.SuccessResponse(c, "Active ride", ride)
}

// ListRides handles GET /rides and returns the caller's ride history.
func (h *RideHandler) ListRides(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	params := utils.GetPaginationParams(c)

	var (
		rides []*models.Ride
		total int64
		err   error
	)
	if c.GetString("user_type") == "captain" {
		rides, total, err = h.rides.ListForCaptain(c.Request.Context(), userID, params)
	} else {
		rides, total, err = h.rides.ListForRider(c.Request.Context(), userID, params)
	}
	if err != nil {
		h.handleRideError(c, err)
		return
	}

	utils.SuccessResponseWithMeta(c, "Rides retrieved", rides, &utils.Meta{
		Pagination: utils.CreatePaginationMeta(params, total),
	})
}

// CreatePaymentOrder handles POST /payments/order
func (h *RideHandler) CreatePaymentOrder(c *gin.Context) {
	riderID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req validators.CreatePaymentOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}
	if errs := validators.ValidateStruct(&req); len(errs) > 0 {
		utils.ValidationErrorResponse(c, validationDetails(errs))
		return
	}

	rideID, _ := primitive.ObjectIDFromHex(req.RideID)
	order, err := h.rides.CreatePaymentOrder(c.Request.Context(), rideID, riderID)
	if err != nil {
		h.handleRideError(c, err)
		return
	}

	utils.SuccessResponse(c, "Payment order created", order)
}

// VerifyPayment handles POST /payments/verify
func (h *RideHandler) VerifyPayment(c *gin.Context) {
	riderID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req validators.VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}
	if errs := validators.ValidateStruct(&req); len(errs) > 0 {
		utils.ValidationErrorResponse(c, validationDetails(errs))
		return
	}

	rideID, _ := primitive.ObjectIDFromHex(req.RideID)
	verified, err := h.rides.VerifyPayment(c.Request.Context(), rideID, riderID, &payment.Verification{
		OrderID:   req.OrderID,
		PaymentID: req.PaymentID,
		Signature: req.Signature,
	})
	if err != nil {
		h.handleRideError(c, err)
		return
	}
	if !verified {
		utils.BadRequestResponse(c, "Payment verification failed")
		return
	}

	utils.SuccessResponse(c, "Payment verified", gin.H{"verified": true})
}

func (h *RideHandler) handleRideError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrRideNotFound):
		utils.NotFoundResponse(c, "Ride")
	case errors.Is(err, models.ErrCaptainNotFound):
		utils.NotFoundResponse(c, "Captain")
	case errors.Is(err, models.ErrInvalidState):
		utils.ConflictResponse(c, "Ride is not in a valid state for this operation")
	case errors.Is(err, models.ErrInvalidOTP):
		utils.ErrorResponse(c, http.StatusBadRequest, "INVALID_OTP", "Incorrect OTP")
	case errors.Is(err, models.ErrForbidden):
		utils.ForbiddenResponse(c)
	case errors.Is(err, models.ErrAddressResolution):
		utils.BadRequestResponse(c, "Could not resolve address")
	case errors.Is(err, models.ErrNoRoute):
		utils.BadRequestResponse(c, "No route between pickup and destination")
	case errors.Is(err, models.ErrInvalidVehicle):
		utils.BadRequestResponse(c, "Unsupported vehicle type")
	default:
		h.logger.WithError(err).Error("Ride operation failed")
		utils.InternalServerErrorResponse(c)
	}
}

func currentUserID(c *gin.Context) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.GetString("user_id"))
	if err != nil {
		utils.UnauthorizedResponse(c)
		return primitive.NilObjectID, false
	}
	return id, true
}

func rideIDParam(c *gin.Context) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid ride ID")
		return primitive.NilObjectID, false
	}
	return id, true
}

func validationDetails(errs validators.ValidationErrors) map[string]string {
	details := make(map[string]string, len(errs))
	for _, e := range errs {
		details[e.Field] = e.Message
	}
	return details
}
