package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ridepulse/internal/models"
	"ridepulse/internal/repositories/interfaces"
	"ridepulse/internal/utils"
	"ridepulse/pkg/logger"
	"ridepulse/pkg/maps"
	"ridepulse/pkg/payment"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RideService drives the ride state machine:
// pending -> accepted -> ongoing -> completed, with cancellation out of
// pending/accepted. Every mutating transition is a conditional store write;
// realtime notifications happen after commit through the event dispatcher and
// never affect the outcome.
type RideService struct {
	rides      interfaces.RideRepository
	captains   interfaces.CaptainRepository
	fares      *FareService
	maps       maps.Provider
	dispatch   *DispatchService
	dispatcher EventDispatcher
	presence   PresenceRegistry
	gateway    payment.Gateway
	currency   string
	logger     *logger.Logger
}

type RideServiceDeps struct {
	Rides      interfaces.RideRepository
	Captains   interfaces.CaptainRepository
	Fares      *FareService
	Maps       maps.Provider
	Dispatch   *DispatchService
	Dispatcher EventDispatcher
	Presence   PresenceRegistry
	Gateway    payment.Gateway
	Currency   string
	Logger     *logger.Logger
}

func NewRideService(deps RideServiceDeps) *RideService {
	if deps.Currency == "" {
		deps.Currency = "INR"
	}
	return &RideService{
		rides:      deps.Rides,
		captains:   deps.Captains,
		fares:      deps.Fares,
		maps:       deps.Maps,
		dispatch:   deps.Dispatch,
		dispatcher: deps.Dispatcher,
		presence:   deps.Presence,
		gateway:    deps.Gateway,
		currency:   deps.Currency,
		logger:     deps.Logger,
	}
}

type CreateRideInput struct {
	Pickup      string
	Destination string
	VehicleType string
	ScheduledAt *time.Time
}

type FareEstimate struct {
	DistanceKM      float64                    `json:"distance_km"`
	DurationMinutes float64                    `json:"duration_minutes"`
	Fares           map[models.VehicleType]int `json:"fares"`
}

// Create resolves both addresses, prices the requested class, persists the
// pending ride and kicks off dispatch. Dispatch failures are logged, never
// surfaced: the ride is already created and the sweeper covers the
// nobody-notified case.
func (s *RideService) Create(ctx context.Context, riderID primitive.ObjectID, input CreateRideInput) (*models.Ride, error) {
	if !models.IsValidVehicleType(input.VehicleType) {
		return nil, models.ErrInvalidVehicle
	}
	vehicleType := models.NormalizeVehicleType(input.VehicleType)

	pickupCoord, err := s.maps.ResolveAddress(ctx, input.Pickup)
	if err != nil {
		return nil, fmt.Errorf("%w: pickup %q: %v", models.ErrAddressResolution, input.Pickup, err)
	}
	destCoord, err := s.maps.ResolveAddress(ctx, input.Destination)
	if err != nil {
		return nil, fmt.Errorf("%w: destination %q: %v", models.ErrAddressResolution, input.Destination, err)
	}

	route, err := s.maps.Route(ctx, input.Pickup, input.Destination)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrNoRoute, err)
	}

	fare, err := s.fares.Estimate(vehicleType, route.DistanceMeters, route.DurationSeconds)
	if err != nil {
		return nil, err
	}

	distanceKM := route.DistanceMeters / 1000
	ride := &models.Ride{
		RiderID:            riderID,
		VehicleType:        vehicleType,
		Status:             models.RideStatusPending,
		Pickup:             models.NewGeoPoint(pickupCoord.Latitude, pickupCoord.Longitude),
		Destination:        models.NewGeoPoint(destCoord.Latitude, destCoord.Longitude),
		PickupAddress:      input.Pickup,
		DestinationAddress: input.Destination,
		Distance:           distanceKM,
		Duration:           RideDurationMinutes(distanceKM),
		Fare:               fare,
		PaymentStatus:      models.PaymentStatusPending,
		PaymentMethod:      models.PaymentMethodCash,
		OTP:                utils.GenerateRandomNumericString(utils.OTPLength),
		ScheduledAt:        input.ScheduledAt,
	}

	if err := s.rides.Create(ctx, ride); err != nil {
		return nil, err
	}

	go func() {
		notifyCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.dispatch.NotifyNearbyCaptains(notifyCtx, ride); err != nil {
			s.logger.WithRideID(ride.ID).WithError(err).Warn("Captain notification failed")
		}
	}()

	s.logger.LogRideEvent(ride.ID, "created", map[string]interface{}{
		"vehicle_type": vehicleType,
		"fare":         fare,
	})

	return ride, nil
}

// EstimateFares prices every vehicle class for a pickup/destination pair.
func (s *RideService) EstimateFares(ctx context.Context, pickup, destination string) (*FareEstimate, error) {
	route, err := s.maps.Route(ctx, pickup, destination)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrNoRoute, err)
	}

	distanceKM := route.DistanceMeters / 1000
	return &FareEstimate{
		DistanceKM:      distanceKM,
		DurationMinutes: RideDurationMinutes(distanceKM),
		Fares:           s.fares.EstimateAll(route.DistanceMeters, route.DurationSeconds),
	}, nil
}

// Confirm assigns a captain to a pending ride. The store-level
// compare-and-set guarantees at most one winner; every loser gets
// ErrInvalidState and nothing is rolled back.
func (s *RideService) Confirm(ctx context.Context, rideID, captainID primitive.ObjectID) (*models.Ride, error) {
	ride, err := s.rides.ConfirmRide(ctx, rideID, captainID)
	if err != nil {
		if errors.Is(err, models.ErrRideNotFound) {
			return nil, s.disambiguate(ctx, rideID)
		}
		return nil, err
	}

	payload := map[string]interface{}{
		"ride_id": ride.ID.Hex(),
		"status":  ride.Status,
		"otp":     ride.OTP,
		"fare":    ride.Fare,
	}
	if captain, err := s.captains.GetByID(ctx, captainID); err == nil {
		payload["captain"] = map[string]interface{}{
			"id":            captain.ID.Hex(),
			"name":          captain.Name,
			"vehicle_type":  captain.VehicleType,
			"vehicle_plate": captain.VehiclePlate,
			"location":      captain.CurrentLocation,
		}
	}

	s.dispatcher.Dispatch(ctx,
		InternalEvent(EventRideAccepted, RideAcceptedPayload{
			RideID:    ride.ID,
			CaptainID: captainID,
			At:        time.Now(),
		}),
		AccountEvent(ride.RiderID, EventRideConfirmed, payload),
		// Over-broadcast to every captain so no stale offer survives.
		GlobalEvent(EventRideNoLongerAvailable, map[string]interface{}{
			"ride_id": ride.ID.Hex(),
		}),
	)

	s.logger.LogRideEvent(ride.ID, "confirmed", map[string]interface{}{
		"captain_id": captainID.Hex(),
	})

	return ride, nil
}

// Start moves an accepted ride to ongoing once the rider's OTP checks out.
func (s *RideService) Start(ctx context.Context, rideID, captainID primitive.ObjectID, otp string) (*models.Ride, error) {
	ride, err := s.rides.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}

	if ride.Status != models.RideStatusAccepted {
		return nil, models.ErrInvalidState
	}
	if ride.CaptainID == nil || *ride.CaptainID != captainID {
		return nil, models.ErrForbidden
	}
	supplied := strings.TrimSpace(otp)
	if supplied == "" || supplied != ride.OTP {
		return nil, models.ErrInvalidOTP
	}

	started, err := s.rides.StartRide(ctx, rideID)
	if err != nil {
		if errors.Is(err, models.ErrRideNotFound) {
			return nil, s.disambiguate(ctx, rideID)
		}
		return nil, err
	}

	startedPayload := map[string]interface{}{
		"ride_id":    started.ID.Hex(),
		"status":     started.Status,
		"started_at": started.StartedAt,
	}
	s.dispatcher.Dispatch(ctx,
		AccountEvent(started.RiderID, EventRideStarted, startedPayload),
		RoomEvent(RideRoom(started.ID), EventRideStarted, startedPayload),
	)

	s.logger.LogRideEvent(started.ID, "started", nil)

	return started, nil
}

// End completes an ongoing ride. Duration is recomputed from the stored
// distance, not wall clock, so it stays consistent with the fare basis; the
// fare itself is untouched.
func (s *RideService) End(ctx context.Context, rideID, captainID primitive.ObjectID) (*models.Ride, error) {
	ride, err := s.rides.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}

	if ride.Status != models.RideStatusOngoing {
		return nil, models.ErrInvalidState
	}
	if ride.CaptainID == nil || *ride.CaptainID != captainID {
		return nil, models.ErrForbidden
	}

	duration := RideDurationMinutes(ride.Distance)
	completed, err := s.rides.CompleteRide(ctx, rideID, duration)
	if err != nil {
		if errors.Is(err, models.ErrRideNotFound) {
			return nil, s.disambiguate(ctx, rideID)
		}
		return nil, err
	}

	endedPayload := map[string]interface{}{
		"ride_id":  completed.ID.Hex(),
		"status":   completed.Status,
		"fare":     completed.Fare,
		"duration": completed.Duration,
	}
	s.dispatcher.Dispatch(ctx,
		AccountEvent(completed.RiderID, EventRideEnded, endedPayload),
		RoomEvent(RideRoom(completed.ID), EventRideEnded, endedPayload),
		InternalEvent(EventRideCompleted, RideCompletedPayload{
			RideID:          completed.ID,
			CaptainID:       captainID,
			Fare:            completed.Fare,
			DurationMinutes: completed.Duration,
			At:              time.Now(),
		}),
	)

	s.logger.LogRideEvent(completed.ID, "completed", map[string]interface{}{
		"fare":     completed.Fare,
		"duration": completed.Duration,
	})

	return completed, nil
}

// Cancel lets the owning rider abandon a ride that has not started yet.
func (s *RideService) Cancel(ctx context.Context, rideID, riderID primitive.ObjectID, reason string) (*models.Ride, error) {
	ride, err := s.rides.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if ride.RiderID != riderID {
		return nil, models.ErrForbidden
	}

	from := []models.RideStatus{models.RideStatusPending, models.RideStatusAccepted}
	cancelled, err := s.rides.CancelRide(ctx, rideID, from, reason, "rider")
	if err != nil {
		if errors.Is(err, models.ErrRideNotFound) {
			return nil, s.disambiguate(ctx, rideID)
		}
		return nil, err
	}

	events := []Event{
		GlobalEvent(EventRideNoLongerAvailable, map[string]interface{}{
			"ride_id": cancelled.ID.Hex(),
		}),
	}
	if cancelled.CaptainID != nil {
		events = append(events, AccountEvent(*cancelled.CaptainID, EventRideCancelled, map[string]interface{}{
			"ride_id": cancelled.ID.Hex(),
			"reason":  reason,
		}))
	}
	s.dispatcher.Dispatch(ctx, events...)

	s.logger.LogRideEvent(cancelled.ID, "cancelled", map[string]interface{}{
		"by": "rider",
	})

	return cancelled, nil
}

// GetActiveRide returns the rider's current non-terminal ride. The stale
// sweep runs opportunistically first so a poll never reports a ride already
// past its matching window.
func (s *RideService) GetActiveRide(ctx context.Context, riderID primitive.ObjectID) (*models.Ride, error) {
	if _, err := s.SweepStalePending(ctx); err != nil {
		s.logger.WithError(err).Warn("Opportunistic sweep failed")
	}

	return s.rides.GetActiveByRider(ctx, riderID)
}

// SweepStalePending cancels every pending ride unmatched past the timeout
// window. Idempotent and safe to run concurrently: each cancellation is a
// conditional write and already-cancelled rides are not selected.
func (s *RideService) SweepStalePending(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-utils.PendingRideTimeout)

	stale, err := s.rides.FindStalePending(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	swept := 0
	from := []models.RideStatus{models.RideStatusPending}
	for _, ride := range stale {
		cancelled, err := s.rides.CancelRide(ctx, ride.ID, from, utils.ReasonNoCaptainFound, "system")
		if err != nil {
			if errors.Is(err, models.ErrRideNotFound) {
				// Lost the race to a confirm or another sweep.
				continue
			}
			s.logger.WithRideID(ride.ID).WithError(err).Error("Failed to cancel stale ride")
			continue
		}
		swept++

		if s.presence == nil || s.presence.IsConnected(cancelled.RiderID) {
			s.dispatcher.Dispatch(ctx, AccountEvent(cancelled.RiderID, EventRideCancelled, map[string]interface{}{
				"ride_id": cancelled.ID.Hex(),
				"reason":  utils.ReasonNoCaptainFound,
			}))
		}
	}

	if swept > 0 {
		s.logger.Infof("Swept %d stale pending rides", swept)
	}

	return swept, nil
}

// ListForRider and ListForCaptain page through ride history.
func (s *RideService) ListForRider(ctx context.Context, riderID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Ride, int64, error) {
	return s.rides.GetByRider(ctx, riderID, params)
}

func (s *RideService) ListForCaptain(ctx context.Context, captainID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Ride, int64, error) {
	return s.rides.GetByCaptain(ctx, captainID, params)
}

// CreatePaymentOrder opens a gateway order for a completed ride's fare.
func (s *RideService) CreatePaymentOrder(ctx context.Context, rideID, riderID primitive.ObjectID) (*payment.Order, error) {
	ride, err := s.rides.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if ride.RiderID != riderID {
		return nil, models.ErrForbidden
	}
	if ride.Status != models.RideStatusCompleted || ride.PaymentStatus == models.PaymentStatusCompleted {
		return nil, models.ErrInvalidState
	}

	order, err := s.gateway.CreateOrder(ctx, &payment.OrderRequest{
		Amount:   ride.Fare,
		Currency: s.currency,
		Receipt:  ride.ID.Hex(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create payment order: %w", err)
	}

	if err := s.rides.SetPaymentOrder(ctx, rideID, order.ID); err != nil {
		return nil, err
	}

	return order, nil
}

// VerifyPayment settles the gateway callback and records the outcome.
func (s *RideService) VerifyPayment(ctx context.Context, rideID, riderID primitive.ObjectID, verification *payment.Verification) (bool, error) {
	ride, err := s.rides.GetByID(ctx, rideID)
	if err != nil {
		return false, err
	}
	if ride.RiderID != riderID {
		return false, models.ErrForbidden
	}

	ok, err := s.gateway.Verify(ctx, verification)
	if err != nil {
		return false, fmt.Errorf("payment verification failed: %w", err)
	}

	status := models.PaymentStatusCompleted
	if !ok {
		status = models.PaymentStatusFailed
	}
	if err := s.rides.SetPaymentStatus(ctx, rideID, status); err != nil {
		return ok, err
	}

	return ok, nil
}

// disambiguate turns a conditional-write miss into the right error: the ride
// either does not exist, or it exists in a state the transition rejects.
func (s *RideService) disambiguate(ctx context.Context, rideID primitive.ObjectID) error {
	if _, err := s.rides.GetByID(ctx, rideID); err != nil {
		return err
	}
	return models.ErrInvalidState
}
