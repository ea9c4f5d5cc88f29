package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CaptainStatus string

const (
	CaptainStatusActive   CaptainStatus = "active"
	CaptainStatusInactive CaptainStatus = "inactive"
	CaptainStatusBusy     CaptainStatus = "busy"
)

// Captain is a driver directory entry consulted by the dispatch matcher.
type Captain struct {
	ID                 primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name               string             `json:"name" bson:"name"`
	Phone              string             `json:"phone" bson:"phone"`
	VehicleType        VehicleType        `json:"vehicle_type" bson:"vehicle_type" validate:"required"`
	VehiclePlate       string             `json:"vehicle_plate" bson:"vehicle_plate"`
	Status             CaptainStatus      `json:"status" bson:"status" default:"inactive"`
	IsAvailable        bool               `json:"is_available" bson:"is_available" default:"false"`
	CurrentLocation    *GeoPoint          `json:"current_location" bson:"current_location"`
	SocketID           string             `json:"socket_id,omitempty" bson:"socket_id,omitempty"`
	LastLocationUpdate *time.Time         `json:"last_location_update" bson:"last_location_update"`
	CreatedAt          time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at" bson:"updated_at"`
}

func (c *Captain) IsConnected() bool {
	return c.SocketID != ""
}
