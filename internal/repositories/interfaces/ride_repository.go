package interfaces

import (
	"context"
	"time"

	"ridepulse/internal/models"
	"ridepulse/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RideRepository interface {
	// Basic CRUD
	Create(ctx context.Context, ride *models.Ride) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Ride, error)
	Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error

	// Guarded transitions. Each is a conditional write: the document is
	// mutated only if it is still in the expected state, and the committed
	// ride is returned. A miss surfaces as models.ErrRideNotFound so the
	// caller can tell a lost race from a missing ride with a follow-up read.
	ConfirmRide(ctx context.Context, id, captainID primitive.ObjectID) (*models.Ride, error)
	StartRide(ctx context.Context, id primitive.ObjectID) (*models.Ride, error)
	CompleteRide(ctx context.Context, id primitive.ObjectID, durationMinutes float64) (*models.Ride, error)
	CancelRide(ctx context.Context, id primitive.ObjectID, from []models.RideStatus, reason, cancelledBy string) (*models.Ride, error)

	// Dispatch support
	AddIgnoredCaptain(ctx context.Context, id, captainID primitive.ObjectID) error
	GetPendingUnassigned(ctx context.Context) ([]*models.Ride, error)
	GetNearbyPending(ctx context.Context, lat, lng, radiusKM float64, vehicleType models.VehicleType) ([]*models.Ride, error)
	FindStalePending(ctx context.Context, cutoff time.Time) ([]*models.Ride, error)

	// Rider/captain views
	GetActiveByRider(ctx context.Context, riderID primitive.ObjectID) (*models.Ride, error)
	GetByRider(ctx context.Context, riderID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Ride, int64, error)
	GetByCaptain(ctx context.Context, captainID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Ride, int64, error)

	// Payments
	SetPaymentOrder(ctx context.Context, id primitive.ObjectID, orderID string) error
	SetPaymentStatus(ctx context.Context, id primitive.ObjectID, status models.PaymentStatus) error
}
