package validators

import (
	"time"

	"ridepulse/internal/models"
)

type CreateRideRequest struct {
	Pickup        string     `json:"pickup" validate:"required,min=3,max=255"`
	Destination   string     `json:"destination" validate:"required,min=3,max=255"`
	VehicleType   string     `json:"vehicle_type" validate:"required"`
	ScheduledTime *time.Time `json:"scheduled_time" validate:"omitempty"`
}

type EstimateFareRequest struct {
	Pickup      string `json:"pickup" validate:"required,min=3,max=255"`
	Destination string `json:"destination" validate:"required,min=3,max=255"`
}

type StartRideRequest struct {
	OTP string `json:"otp" validate:"required,len=6,numeric"`
}

type CancelRideRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=255"`
}

type CreatePaymentOrderRequest struct {
	RideID string `json:"ride_id" validate:"required,object_id"`
}

type VerifyPaymentRequest struct {
	RideID    string `json:"ride_id" validate:"required,object_id"`
	OrderID   string `json:"order_id" validate:"required"`
	PaymentID string `json:"payment_id" validate:"required"`
	Signature string `json:"signature" validate:"required"`
}

// ValidateCreateRide checks the request and normalizes the vehicle type in
// place so downstream code only sees canonical tokens.
func ValidateCreateRide(req *CreateRideRequest) ValidationErrors {
	errors := ValidateStruct(req)

	if !models.IsValidVehicleType(req.VehicleType) {
		errors = append(errors, ValidationError{
			Field:   "vehicle_type",
			Tag:     "oneof",
			Message: "Vehicle type must be one of: car, motorcycle, auto",
		})
	} else {
		req.VehicleType = string(models.NormalizeVehicleType(req.VehicleType))
	}

	if req.Pickup == req.Destination {
		errors = append(errors, ValidationError{
			Field:   "destination",
			Tag:     "nefield",
			Message: "Pickup and destination must be different",
		})
	}

	if req.ScheduledTime != nil && !req.ScheduledTime.After(time.Now()) {
		errors = append(errors, ValidationError{
			Field:   "scheduled_time",
			Tag:     "future",
			Message: "Scheduled time must be in the future",
		})
	}

	return errors
}
