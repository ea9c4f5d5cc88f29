package interfaces

import (
	"context"

	"ridepulse/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CaptainRepository interface {
	Create(ctx context.Context, captain *models.Captain) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Captain, error)
	GetBySocketID(ctx context.Context, socketID string) (*models.Captain, error)

	// FindNearby returns at most limit captains within radiusKM of the point,
	// exact vehicle-type match, optionally restricted to available ones.
	FindNearby(ctx context.Context, lat, lng, radiusKM float64, vehicleType models.VehicleType, availableOnly bool, limit int64) ([]*models.Captain, error)

	UpdateLocation(ctx context.Context, id primitive.ObjectID, location *models.GeoPoint) error
	SetConnectionState(ctx context.Context, id primitive.ObjectID, socketID string, status models.CaptainStatus) error
	SetConnectionStateBySocket(ctx context.Context, socketID string, status models.CaptainStatus) (*models.Captain, error)
	SetAvailability(ctx context.Context, id primitive.ObjectID, available bool) error
}
