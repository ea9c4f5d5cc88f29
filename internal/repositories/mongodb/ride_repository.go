package mongodb

import (
	"context"
	"fmt"
	"time"

	"ridepulse/internal/models"
	"ridepulse/internal/repositories/interfaces"
	"ridepulse/internal/utils"
	"ridepulse/pkg/cache"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type rideRepository struct {
	collection *mongo.Collection
	cache      cache.Store
}

func NewRideRepository(db *mongo.Database, cacheStore cache.Store) interfaces.RideRepository {
	return &rideRepository{
		collection: db.Collection("rides"),
		cache:      cacheStore,
	}
}

func (r *rideRepository) Create(ctx context.Context, ride *models.Ride) error {
	now := time.Now()
	ride.ID = primitive.NewObjectID()
	ride.RequestedAt = now
	ride.CreatedAt = now
	ride.UpdatedAt = now

	_, err := r.collection.InsertOne(ctx, ride)
	if err != nil {
		return fmt.Errorf("failed to create ride: %w", err)
	}

	// Cache active rides for quick access
	if ride.IsActive() {
		r.cacheRide(ctx, ride)
	}

	return nil
}

func (r *rideRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Ride, error) {
	if ride := r.getRideFromCache(ctx, id.Hex()); ride != nil {
		return ride, nil
	}

	var ride models.Ride
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&ride)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, models.ErrRideNotFound
		}
		return nil, fmt.Errorf("failed to get ride: %w", err)
	}

	if ride.IsActive() {
		r.cacheRide(ctx, &ride)
	}

	return &ride, nil
}

func (r *rideRepository) Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()

	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": updates},
	)
	if err != nil {
		return fmt.Errorf("failed to update ride: %w", err)
	}

	r.invalidateRideCache(ctx, id.Hex())

	return nil
}

// ConfirmRide assigns the captain with a compare-and-set on status=pending and
// no captain yet, so at most one of several racing confirms can win.
func (r *rideRepository) ConfirmRide(ctx context.Context, id, captainID primitive.ObjectID) (*models.Ride, error) {
	now := time.Now()
	filter := bson.M{
		"_id":        id,
		"status":     models.RideStatusPending,
		"captain_id": nil,
	}
	update := bson.M{"$set": bson.M{
		"status":     models.RideStatusAccepted,
		"captain_id": captainID,
		"updated_at": now,
	}}

	return r.findOneAndUpdate(ctx, filter, update)
}

func (r *rideRepository) StartRide(ctx context.Context, id primitive.ObjectID) (*models.Ride, error) {
	now := time.Now()
	filter := bson.M{
		"_id":    id,
		"status": models.RideStatusAccepted,
	}
	update := bson.M{"$set": bson.M{
		"status":     models.RideStatusOngoing,
		"started_at": now,
		"updated_at": now,
	}}

	return r.findOneAndUpdate(ctx, filter, update)
}

func (r *rideRepository) CompleteRide(ctx context.Context, id primitive.ObjectID, durationMinutes float64) (*models.Ride, error) {
	now := time.Now()
	filter := bson.M{
		"_id":    id,
		"status": models.RideStatusOngoing,
	}
	update := bson.M{"$set": bson.M{
		"status":       models.RideStatusCompleted,
		"completed_at": now,
		"duration":     durationMinutes,
		"updated_at":   now,
	}}

	return r.findOneAndUpdate(ctx, filter, update)
}

func (r *rideRepository) CancelRide(ctx context.Context, id primitive.ObjectID, from []models.RideStatus, reason, cancelledBy string) (*models.Ride, error) {
	now := time.Now()
	filter := bson.M{
		"_id":    id,
		"status": bson.M{"$in": from},
	}
	update := bson.M{"$set": bson.M{
		"status":              models.RideStatusCancelled,
		"cancelled_at":        now,
		"cancellation_reason": reason,
		"cancelled_by":        cancelledBy,
		"updated_at":          now,
	}}

	return r.findOneAndUpdate(ctx, filter, update)
}

// AddIgnoredCaptain records a captain's decline. $addToSet keeps the
// exclusion set duplicate-free under repeated calls.
func (r *rideRepository) AddIgnoredCaptain(ctx context.Context, id, captainID primitive.ObjectID) error {
	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{
			"$addToSet": bson.M{"ignored_by": captainID},
			"$set":      bson.M{"updated_at": time.Now()},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to add ignored captain: %w", err)
	}

	r.invalidateRideCache(ctx, id.Hex())

	return nil
}

func (r *rideRepository) GetPendingUnassigned(ctx context.Context) ([]*models.Ride, error) {
	filter := bson.M{
		"status":     models.RideStatusPending,
		"captain_id": nil,
	}

	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "requested_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to find pending rides: %w", err)
	}
	defer cursor.Close(ctx)

	return decodeRides(ctx, cursor)
}

func (r *rideRepository) GetNearbyPending(ctx context.Context, lat, lng, radiusKM float64, vehicleType models.VehicleType) ([]*models.Ride, error) {
	radiusMeters := radiusKM * 1000

	filter := bson.M{
		"pickup": bson.M{
			"$near": bson.M{
				"$geometry": bson.M{
					"type":        "Point",
					"coordinates": []float64{lng, lat},
				},
				"$maxDistance": radiusMeters,
			},
		},
		"status":       models.RideStatusPending,
		"captain_id":   nil,
		"vehicle_type": vehicleType,
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find nearby pending rides: %w", err)
	}
	defer cursor.Close(ctx)

	return decodeRides(ctx, cursor)
}

func (r *rideRepository) FindStalePending(ctx context.Context, cutoff time.Time) ([]*models.Ride, error) {
	filter := bson.M{
		"status":       models.RideStatusPending,
		"captain_id":   nil,
		"requested_at": bson.M{"$lt": cutoff},
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find stale pending rides: %w", err)
	}
	defer cursor.Close(ctx)

	return decodeRides(ctx, cursor)
}

func (r *rideRepository) GetActiveByRider(ctx context.Context, riderID primitive.ObjectID) (*models.Ride, error) {
	filter := bson.M{
		"rider_id": riderID,
		"status": bson.M{"$in": []models.RideStatus{
			models.RideStatusPending,
			models.RideStatusAccepted,
			models.RideStatusOngoing,
		}},
	}

	var ride models.Ride
	opts := options.FindOne().SetSort(bson.D{{Key: "requested_at", Value: -1}})
	err := r.collection.FindOne(ctx, filter, opts).Decode(&ride)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, models.ErrRideNotFound
		}
		return nil, fmt.Errorf("failed to get active ride: %w", err)
	}

	return &ride, nil
}

func (r *rideRepository) GetByRider(ctx context.Context, riderID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Ride, int64, error) {
	return r.findRidesWithFilter(ctx, bson.M{"rider_id": riderID}, params)
}

func (r *rideRepository) GetByCaptain(ctx context.Context, captainID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Ride, int64, error) {
	return r.findRidesWithFilter(ctx, bson.M{"captain_id": captainID}, params)
}

func (r *rideRepository) SetPaymentOrder(ctx context.Context, id primitive.ObjectID, orderID string) error {
	return r.Update(ctx, id, map[string]interface{}{
		"payment_order_id": orderID,
		"payment_method":   models.PaymentMethodOnline,
	})
}

func (r *rideRepository) SetPaymentStatus(ctx context.Context, id primitive.ObjectID, status models.PaymentStatus) error {
	return r.Update(ctx, id, map[string]interface{}{
		"payment_status": status,
	})
}

// Helper methods
func (r *rideRepository) findOneAndUpdate(ctx context.Context, filter, update bson.M) (*models.Ride, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var ride models.Ride
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&ride)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, models.ErrRideNotFound
		}
		return nil, fmt.Errorf("failed to transition ride: %w", err)
	}

	r.invalidateRideCache(ctx, ride.ID.Hex())

	return &ride, nil
}

func (r *rideRepository) findRidesWithFilter(ctx context.Context, filter bson.M, params *utils.PaginationParams) ([]*models.Ride, int64, error) {
	if params.Search != "" {
		searchFields := []string{"pickup_address", "destination_address"}
		searchFilter := params.GetSearchFilter(searchFields)
		if len(searchFilter) > 0 {
			filter = bson.M{
				"$and": []bson.M{filter, searchFilter},
			}
		}
	}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count rides: %w", err)
	}

	opts := params.GetSortOptions()
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to find rides: %w", err)
	}
	defer cursor.Close(ctx)

	rides, err := decodeRides(ctx, cursor)
	if err != nil {
		return nil, 0, err
	}

	return rides, total, nil
}

func decodeRides(ctx context.Context, cursor *mongo.Cursor) ([]*models.Ride, error) {
	var rides []*models.Ride
	for cursor.Next(ctx) {
		var ride models.Ride
		if err := cursor.Decode(&ride); err != nil {
			return nil, fmt.Errorf("failed to decode ride: %w", err)
		}
		rides = append(rides, &ride)
	}
	return rides, nil
}

// Cache operations

// rideCacheEntry is the redis representation of a ride. Ride.OTP is tagged
// `json:"-"` so it never leaks into API responses, but the cache codec is
// JSON too; storing the ride directly would blank the OTP on the round trip
// and break start verification against a cached ride. The entry carries the
// OTP in its own field instead.
type rideCacheEntry struct {
	Ride models.Ride `json:"ride"`
	OTP  string      `json:"otp"`
}

func newRideCacheEntry(ride *models.Ride) *rideCacheEntry {
	return &rideCacheEntry{Ride: *ride, OTP: ride.OTP}
}

func (e *rideCacheEntry) toRide() *models.Ride {
	ride := e.Ride
	ride.OTP = e.OTP
	return &ride
}

func (r *rideRepository) cacheRide(ctx context.Context, ride *models.Ride) {
	if r.cache != nil {
		cacheKey := fmt.Sprintf("ride:%s", ride.ID.Hex())
		r.cache.Set(ctx, cacheKey, newRideCacheEntry(ride), 15*time.Minute)
	}
}

func (r *rideRepository) getRideFromCache(ctx context.Context, rideID string) *models.Ride {
	if r.cache == nil {
		return nil
	}

	cacheKey := fmt.Sprintf("ride:%s", rideID)
	var entry rideCacheEntry
	if err := r.cache.Get(ctx, cacheKey, &entry); err != nil {
		return nil
	}

	return entry.toRide()
}

func (r *rideRepository) invalidateRideCache(ctx context.Context, rideID string) {
	if r.cache != nil {
		cacheKey := fmt.Sprintf("ride:%s", rideID)
		r.cache.Delete(ctx, cacheKey)
	}
}
