package mongodb

import (
	"context"
	"fmt"
	"time"

	"ridepulse/internal/models"
	"ridepulse/internal/repositories/interfaces"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type captainRepository struct {
	collection *mongo.Collection
}

func NewCaptainRepository(db *mongo.Database) interfaces.CaptainRepository {
	return &captainRepository{
		collection: db.Collection("captains"),
	}
}

func (r *captainRepository) Create(ctx context.Context, captain *models.Captain) error {
	now := time.Now()
	captain.ID = primitive.NewObjectID()
	captain.CreatedAt = now
	captain.UpdatedAt = now
	if captain.Status == "" {
		captain.Status = models.CaptainStatusInactive
	}

	_, err := r.collection.InsertOne(ctx, captain)
	if err != nil {
		return fmt.Errorf("failed to create captain: %w", err)
	}

	return nil
}

func (r *captainRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Captain, error) {
	var captain models.Captain
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&captain)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, models.ErrCaptainNotFound
		}
		return nil, fmt.Errorf("failed to get captain: %w", err)
	}

	return &captain, nil
}

func (r *captainRepository) GetBySocketID(ctx context.Context, socketID string) (*models.Captain, error) {
	var captain models.Captain
	err := r.collection.FindOne(ctx, bson.M{"socket_id": socketID}).Decode(&captain)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, models.ErrCaptainNotFound
		}
		return nil, fmt.Errorf("failed to get captain by socket: %w", err)
	}

	return &captain, nil
}

func (r *captainRepository) FindNearby(ctx context.Context, lat, lng, radiusKM float64, vehicleType models.VehicleType, availableOnly bool, limit int64) ([]*models.Captain, error) {
	radiusMeters := radiusKM * 1000

	filter := bson.M{
		"current_location": bson.M{
			"$near": bson.M{
				"$geometry": bson.M{
					"type":        "Point",
					"coordinates": []float64{lng, lat},
				},
				"$maxDistance": radiusMeters,
			},
		},
		"vehicle_type": vehicleType,
	}
	if availableOnly {
		filter["is_available"] = true
		filter["status"] = models.CaptainStatusActive
	}

	cursor, err := r.collection.Find(ctx, filter, options.Find().SetLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to find nearby captains: %w", err)
	}
	defer cursor.Close(ctx)

	var captains []*models.Captain
	for cursor.Next(ctx) {
		var captain models.Captain
		if err := cursor.Decode(&captain); err != nil {
			return nil, fmt.Errorf("failed to decode captain: %w", err)
		}
		captains = append(captains, &captain)
	}

	return captains, nil
}

func (r *captainRepository) UpdateLocation(ctx context.Context, id primitive.ObjectID, location *models.GeoPoint) error {
	now := time.Now()
	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"current_location":     location,
			"last_location_update": now,
			"updated_at":           now,
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to update captain location: %w", err)
	}

	return nil
}

func (r *captainRepository) SetConnectionState(ctx context.Context, id primitive.ObjectID, socketID string, status models.CaptainStatus) error {
	updates := bson.M{
		"socket_id":    socketID,
		"status":       status,
		"is_available": status == models.CaptainStatusActive,
		"updated_at":   time.Now(),
	}

	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": updates})
	if err != nil {
		return fmt.Errorf("failed to set captain connection state: %w", err)
	}

	return nil
}

// SetConnectionStateBySocket is the disconnect path: the transport only knows
// the connection id, so the match is by socket_id. With multiple connections
// per captain this degrades to last writer wins.
func (r *captainRepository) SetConnectionStateBySocket(ctx context.Context, socketID string, status models.CaptainStatus) (*models.Captain, error) {
	filter := bson.M{"socket_id": socketID}
	update := bson.M{"$set": bson.M{
		"socket_id":    "",
		"status":       status,
		"is_available": false,
		"updated_at":   time.Now(),
	}}

	var captain models.Captain
	err := r.collection.FindOneAndUpdate(ctx, filter, update).Decode(&captain)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, models.ErrCaptainNotFound
		}
		return nil, fmt.Errorf("failed to clear captain connection state: %w", err)
	}

	return &captain, nil
}

func (r *captainRepository) SetAvailability(ctx context.Context, id primitive.ObjectID, available bool) error {
	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"is_available": available,
			"updated_at":   time.Now(),
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to set captain availability: %w", err)
	}

	return nil
}
