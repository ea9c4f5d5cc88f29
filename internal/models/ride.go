package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RideStatus string
type PaymentStatus string
type PaymentMethod string

const (
	RideStatusPending   RideStatus = "pending"
	RideStatusAccepted  RideStatus = "accepted"
	RideStatusOngoing   RideStatus = "ongoing"
	RideStatusCompleted RideStatus = "completed"
	RideStatusCancelled RideStatus = "cancelled"

	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"

	PaymentMethodCash   PaymentMethod = "cash"
	PaymentMethodOnline PaymentMethod = "online"
)

type Ride struct {
	ID                 primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	RiderID            primitive.ObjectID   `json:"rider_id" bson:"rider_id" validate:"required"`
	CaptainID          *primitive.ObjectID  `json:"captain_id" bson:"captain_id"`
	VehicleType        VehicleType          `json:"vehicle_type" bson:"vehicle_type" validate:"required"`
	Status             RideStatus           `json:"status" bson:"status" default:"pending"`
	Pickup             GeoPoint             `json:"pickup" bson:"pickup" validate:"required"`
	Destination        GeoPoint             `json:"destination" bson:"destination" validate:"required"`
	PickupAddress      string               `json:"pickup_address" bson:"pickup_address"`
	DestinationAddress string               `json:"destination_address" bson:"destination_address"`
	Distance           float64              `json:"distance" bson:"distance"` // kilometers
	Duration           float64              `json:"duration" bson:"duration"` // minutes
	Fare               int                  `json:"fare" bson:"fare"`
	PaymentStatus      PaymentStatus        `json:"payment_status" bson:"payment_status" default:"pending"`
	PaymentMethod      PaymentMethod        `json:"payment_method" bson:"payment_method" default:"cash"`
	PaymentOrderID     string               `json:"payment_order_id,omitempty" bson:"payment_order_id,omitempty"`
	OTP                string               `json:"-" bson:"otp"`
	IgnoredBy          []primitive.ObjectID `json:"ignored_by" bson:"ignored_by"`
	RequestedAt        time.Time            `json:"requested_at" bson:"requested_at"`
	ScheduledAt        *time.Time           `json:"scheduled_at" bson:"scheduled_at"`
	StartedAt          *time.Time           `json:"started_at" bson:"started_at"`
	CompletedAt        *time.Time           `json:"completed_at" bson:"completed_at"`
	CancelledAt        *time.Time           `json:"cancelled_at" bson:"cancelled_at"`
	CancellationReason string               `json:"cancellation_reason,omitempty" bson:"cancellation_reason,omitempty"`
	CancelledBy        string               `json:"cancelled_by,omitempty" bson:"cancelled_by,omitempty"`
	CreatedAt          time.Time            `json:"created_at" bson:"created_at"`
	UpdatedAt          time.Time            `json:"updated_at" bson:"updated_at"`
}

// IsTerminal reports whether the ride can no longer change status.
func (r *Ride) IsTerminal() bool {
	return r.Status == RideStatusCompleted || r.Status == RideStatusCancelled
}

// IsActive reports whether the ride still occupies the rider.
func (r *Ride) IsActive() bool {
	return r.Status == RideStatusPending || r.Status == RideStatusAccepted || r.Status == RideStatusOngoing
}

func (r *Ride) HasCaptain() bool {
	return r.CaptainID != nil
}

// IsIgnoredBy reports whether the captain previously declined this ride.
func (r *Ride) IsIgnoredBy(captainID primitive.ObjectID) bool {
	for _, id := range r.IgnoredBy {
		if id == captainID {
			return true
		}
	}
	return false
}
