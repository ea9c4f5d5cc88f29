package services

import (
	"context"
	"fmt"

	"ridepulse/internal/models"
	"ridepulse/internal/repositories/interfaces"
	"ridepulse/internal/utils"
	"ridepulse/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DispatchService locates eligible captains for a pending ride and notifies
// them over the realtime channel. All sends are fire and forget.
type DispatchService struct {
	rides     interfaces.RideRepository
	captains  interfaces.CaptainRepository
	publisher RealtimePublisher
	logger    *logger.Logger
}

func NewDispatchService(rides interfaces.RideRepository, captains interfaces.CaptainRepository, publisher RealtimePublisher, log *logger.Logger) *DispatchService {
	return &DispatchService{
		rides:     rides,
		captains:  captains,
		publisher: publisher,
		logger:    log,
	}
}

// NotifyNearbyCaptains runs the creation-time directory scan: available
// captains of the requested class within the initial scan radius, capped to
// the nearest few, each offered the ride. With no eligible captain the rider
// gets an immediate notice instead.
func (s *DispatchService) NotifyNearbyCaptains(ctx context.Context, ride *models.Ride) error {
	vehicleType := models.NormalizeVehicleType(string(ride.VehicleType))

	candidates, err := s.captains.FindNearby(
		ctx,
		ride.Pickup.Latitude(),
		ride.Pickup.Longitude(),
		utils.InitialScanRadiusKM,
		vehicleType,
		true,
		utils.MaxDispatchCandidates,
	)
	if err != nil {
		return fmt.Errorf("failed to scan captain directory: %w", err)
	}

	notified := 0
	for _, captain := range candidates {
		if ride.IsIgnoredBy(captain.ID) || !captain.IsConnected() {
			continue
		}
		s.publisher.EmitToAccount(captain.ID, EventNewRide, NewRidePayload(ride))
		notified++
	}

	if notified == 0 {
		s.publisher.EmitToAccount(ride.RiderID, EventNoCaptainsAvailable, map[string]interface{}{
			"ride_id": ride.ID.Hex(),
		})
		s.logger.WithRideID(ride.ID).Info("No captains available for ride")
		return nil
	}

	s.logger.WithRideID(ride.ID).Infof("Notified %d captains", notified)
	return nil
}

// AvailableRidesFor builds the catch-up snapshot for a captain: pending
// unassigned rides of their class they have not declined. With a known
// location the live dispatch radius applies; without one the scan falls back
// to the whole pending queue.
func (s *DispatchService) AvailableRidesFor(ctx context.Context, captain *models.Captain) ([]map[string]interface{}, error) {
	var (
		rides []*models.Ride
		err   error
	)

	if captain.CurrentLocation != nil {
		rides, err = s.rides.GetNearbyPending(
			ctx,
			captain.CurrentLocation.Latitude(),
			captain.CurrentLocation.Longitude(),
			utils.LiveDispatchRadiusKM,
			captain.VehicleType,
		)
	} else {
		rides, err = s.rides.GetPendingUnassigned(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list pending rides: %w", err)
	}

	snapshot := make([]map[string]interface{}, 0, len(rides))
	for _, ride := range rides {
		if ride.VehicleType != captain.VehicleType || ride.IsIgnoredBy(captain.ID) {
			continue
		}
		payload := NewRidePayload(ride)
		if captain.CurrentLocation != nil {
			payload["pickup_distance_km"] = utils.CalculateDistance(
				captain.CurrentLocation.Latitude(),
				captain.CurrentLocation.Longitude(),
				ride.Pickup.Latitude(),
				ride.Pickup.Longitude(),
			)
		}
		snapshot = append(snapshot, payload)
	}

	return snapshot, nil
}

// Ignore records a captain's decline so the ride is not re-offered to them.
// Safe to call repeatedly.
func (s *DispatchService) Ignore(ctx context.Context, rideID, captainID primitive.ObjectID) error {
	return s.rides.AddIgnoredCaptain(ctx, rideID, captainID)
}

// NewRidePayload is the offer sent to captains for a pending ride. The OTP
// never rides along.
func NewRidePayload(ride *models.Ride) map[string]interface{} {
	return map[string]interface{}{
		"ride_id":             ride.ID.Hex(),
		"pickup":              ride.Pickup,
		"destination":         ride.Destination,
		"pickup_address":      ride.PickupAddress,
		"destination_address": ride.DestinationAddress,
		"vehicle_type":        ride.VehicleType,
		"fare":                ride.Fare,
		"distance":            ride.Distance,
	}
}
