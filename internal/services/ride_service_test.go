package services

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"ridepulse/internal/models"
	"ridepulse/internal/utils"
	"ridepulse/pkg/maps"
	"ridepulse/pkg/payment"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type rideServiceFixture struct {
	service   *RideService
	rides     *memRideRepo
	captains  *MockCaptainRepository
	maps      *MockMapsProvider
	gateway   *MockPaymentGateway
	publisher *recordPublisher
}

func newRideServiceFixture(t *testing.T) *rideServiceFixture {
	t.Helper()

	log := newTestLogger(t)
	rides := newMemRideRepo()
	captains := new(MockCaptainRepository)
	mapsProvider := new(MockMapsProvider)
	gateway := new(MockPaymentGateway)
	publisher := newRecordPublisher()

	dispatch := NewDispatchService(rides, captains, publisher, log)
	dispatcher := NewEventDispatcher(publisher, log)

	service := NewRideService(RideServiceDeps{
		Rides:      rides,
		Captains:   captains,
		Fares:      NewFareService(),
		Maps:       mapsProvider,
		Dispatch:   dispatch,
		Dispatcher: dispatcher,
		Presence:   publisher,
		Gateway:    gateway,
		Currency:   "INR",
		Logger:     log,
	})

	return &rideServiceFixture{
		service:   service,
		rides:     rides,
		captains:  captains,
		maps:      mapsProvider,
		gateway:   gateway,
		publisher: publisher,
	}
}

func (f *rideServiceFixture) seedRide(status models.RideStatus, mutate func(*models.Ride)) *models.Ride {
	ride := &models.Ride{
		RiderID:            primitive.NewObjectID(),
		VehicleType:        models.VehicleTypeCar,
		Status:             status,
		Pickup:             models.NewGeoPoint(12.9716, 77.5946),
		Destination:        models.NewGeoPoint(12.9352, 77.6245),
		PickupAddress:      "MG Road",
		DestinationAddress: "Koramangala",
		Distance:           5,
		Duration:           RideDurationMinutes(5),
		Fare:               130,
		PaymentStatus:      models.PaymentStatusPending,
		OTP:                "123456",
	}
	if mutate != nil {
		mutate(ride)
	}
	return f.rides.seed(ride)
}

func TestCreateRidePricesAndPersists(t *testing.T) {
	f := newRideServiceFixture(t)
	riderID := primitive.NewObjectID()

	f.maps.On("ResolveAddress", mock.Anything, "MG Road").Return(&maps.Coordinates{Latitude: 12.9716, Longitude: 77.5946}, nil)
	f.maps.On("ResolveAddress", mock.Anything, "Koramangala").Return(&maps.Coordinates{Latitude: 12.9352, Longitude: 77.6245}, nil)
	f.maps.On("Route", mock.Anything, "MG Road", "Koramangala").Return(&maps.RouteSummary{DistanceMeters: 5000, DurationSeconds: 600}, nil)
	f.captains.On("FindNearby", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]*models.Captain{}, nil)

	ride, err := f.service.Create(context.Background(), riderID, CreateRideInput{
		Pickup:      "MG Road",
		Destination: "Koramangala",
		VehicleType: "car",
	})

	require.NoError(t, err)
	assert.Equal(t, models.RideStatusPending, ride.Status)
	assert.Equal(t, 130, ride.Fare)
	assert.InDelta(t, 5.0, ride.Distance, 1e-9)
	assert.Regexp(t, regexp.MustCompile(`^\d{6}$`), ride.OTP)
	assert.Nil(t, ride.CaptainID)

	stored, err := f.rides.GetByID(context.Background(), ride.ID)
	require.NoError(t, err)
	assert.Equal(t, ride.Fare, stored.Fare)
}

func TestCreateRideNormalizesMotoAlias(t *testing.T) {
	f := newRideServiceFixture(t)

	f.maps.On("ResolveAddress", mock.Anything, mock.Anything).Return(&maps.Coordinates{Latitude: 12.9, Longitude: 77.6}, nil)
	f.maps.On("Route", mock.Anything, mock.Anything, mock.Anything).Return(&maps.RouteSummary{DistanceMeters: 5000, DurationSeconds: 600}, nil)
	f.captains.On("FindNearby", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]*models.Captain{}, nil)

	ride, err := f.service.Create(context.Background(), primitive.NewObjectID(), CreateRideInput{
		Pickup:      "A",
		Destination: "B",
		VehicleType: "moto",
	})

	require.NoError(t, err)
	assert.Equal(t, models.VehicleTypeMotorcycle, ride.VehicleType)
}

func TestCreateRideCarriesScheduledTime(t *testing.T) {
	f := newRideServiceFixture(t)

	f.maps.On("ResolveAddress", mock.Anything, mock.Anything).Return(&maps.Coordinates{Latitude: 12.9, Longitude: 77.6}, nil)
	f.maps.On("Route", mock.Anything, mock.Anything, mock.Anything).Return(&maps.RouteSummary{DistanceMeters: 5000, DurationSeconds: 600}, nil)
	f.captains.On("FindNearby", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]*models.Captain{}, nil)

	scheduled := time.Now().Add(3 * time.Hour).Truncate(time.Second)
	ride, err := f.service.Create(context.Background(), primitive.NewObjectID(), CreateRideInput{
		Pickup:      "A",
		Destination: "B",
		VehicleType: "car",
		ScheduledAt: &scheduled,
	})

	require.NoError(t, err)
	require.NotNil(t, ride.ScheduledAt)
	assert.True(t, ride.ScheduledAt.Equal(scheduled))

	stored, err := f.rides.GetByID(context.Background(), ride.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ScheduledAt)
	assert.True(t, stored.ScheduledAt.Equal(scheduled))
}

func TestCreateRideRejectsUnknownVehicle(t *testing.T) {
	f := newRideServiceFixture(t)

	_, err := f.service.Create(context.Background(), primitive.NewObjectID(), CreateRideInput{
		Pickup:      "A",
		Destination: "B",
		VehicleType: "rickshaw",
	})

	assert.ErrorIs(t, err, models.ErrInvalidVehicle)
}

func TestCreateRideAddressResolutionFailure(t *testing.T) {
	f := newRideServiceFixture(t)

	f.maps.On("ResolveAddress", mock.Anything, "Nowhere").Return(nil, assert.AnError)

	_, err := f.service.Create(context.Background(), primitive.NewObjectID(), CreateRideInput{
		Pickup:      "Nowhere",
		Destination: "B",
		VehicleType: "car",
	})

	assert.ErrorIs(t, err, models.ErrAddressResolution)
}

func TestConfirmRideSingleWinner(t *testing.T) {
	f := newRideServiceFixture(t)
	ride := f.seedRide(models.RideStatusPending, nil)

	f.captains.On("GetByID", mock.Anything, mock.Anything).Return(&models.Captain{
		ID:           primitive.NewObjectID(),
		Name:         "Asha",
		VehicleType:  models.VehicleTypeCar,
		VehiclePlate: "KA01AB1234",
	}, nil)

	const contenders = 8
	captainIDs := make([]primitive.ObjectID, contenders)
	for i := range captainIDs {
		captainIDs[i] = primitive.NewObjectID()
	}

	var wg sync.WaitGroup
	errs := make([]error, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.service.Confirm(context.Background(), ride.ID, captainIDs[i])
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.ErrorIs(t, err, models.ErrInvalidState)
		}
	}
	assert.Equal(t, 1, winners)

	stored, err := f.rides.GetByID(context.Background(), ride.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RideStatusAccepted, stored.Status)
	require.NotNil(t, stored.CaptainID)

	// Exactly one confirmation reached the rider, one retraction went out.
	assert.Len(t, f.publisher.eventsNamed(EventRideConfirmed), 1)
	assert.Len(t, f.publisher.eventsNamed(EventRideNoLongerAvailable), 1)
}

func TestConfirmRevealsOTPToRiderOnly(t *testing.T) {
	f := newRideServiceFixture(t)
	ride := f.seedRide(models.RideStatusPending, nil)
	captainID := primitive.NewObjectID()

	f.captains.On("GetByID", mock.Anything, captainID).Return(&models.Captain{ID: captainID, Name: "Ravi"}, nil)

	_, err := f.service.Confirm(context.Background(), ride.ID, captainID)
	require.NoError(t, err)

	confirmed := f.publisher.eventsNamed(EventRideConfirmed)
	require.Len(t, confirmed, 1)
	assert.Equal(t, ride.RiderID, confirmed[0].Account)

	payload := confirmed[0].Payload.(map[string]interface{})
	assert.Equal(t, "123456", payload["otp"])
}

func TestConfirmMissingRide(t *testing.T) {
	f := newRideServiceFixture(t)

	_, err := f.service.Confirm(context.Background(), primitive.NewObjectID(), primitive.NewObjectID())
	assert.ErrorIs(t, err, models.ErrRideNotFound)
}

func TestStartRideOTPGate(t *testing.T) {
	f := newRideServiceFixture(t)
	captainID := primitive.NewObjectID()
	ride := f.seedRide(models.RideStatusAccepted, func(r *models.Ride) {
		r.CaptainID = &captainID
	})

	_, err := f.service.Start(context.Background(), ride.ID, captainID, "000000")
	assert.ErrorIs(t, err, models.ErrInvalidOTP)

	stored, _ := f.rides.GetByID(context.Background(), ride.ID)
	assert.Equal(t, models.RideStatusAccepted, stored.Status)

	started, err := f.service.Start(context.Background(), ride.ID, captainID, " 123456 ")
	require.NoError(t, err)
	assert.Equal(t, models.RideStatusOngoing, started.Status)
	assert.NotNil(t, started.StartedAt)

	// One unicast to the rider, one broadcast into the tracking room.
	notices := f.publisher.eventsNamed(EventRideStarted)
	require.Len(t, notices, 2)
	assert.Equal(t, ride.RiderID, notices[0].Account)
	assert.Equal(t, RideRoom(ride.ID), notices[1].Room)
}

func TestStartRideRejectsBlankOTP(t *testing.T) {
	f := newRideServiceFixture(t)
	captainID := primitive.NewObjectID()
	// A ride whose stored OTP was lost (for example a stale cache line)
	// must still refuse a blank code rather than match empty against empty.
	ride := f.seedRide(models.RideStatusAccepted, func(r *models.Ride) {
		r.CaptainID = &captainID
		r.OTP = ""
	})

	for _, otp := range []string{"", "   ", "\t"} {
		_, err := f.service.Start(context.Background(), ride.ID, captainID, otp)
		assert.ErrorIs(t, err, models.ErrInvalidOTP)
	}

	stored, _ := f.rides.GetByID(context.Background(), ride.ID)
	assert.Equal(t, models.RideStatusAccepted, stored.Status)
}

func TestStartRideWrongCaptain(t *testing.T) {
	f := newRideServiceFixture(t)
	captainID := primitive.NewObjectID()
	ride := f.seedRide(models.RideStatusAccepted, func(r *models.Ride) {
		r.CaptainID = &captainID
	})

	_, err := f.service.Start(context.Background(), ride.ID, primitive.NewObjectID(), "123456")
	assert.ErrorIs(t, err, models.ErrForbidden)
}

func TestStartRideFromPending(t *testing.T) {
	f := newRideServiceFixture(t)
	ride := f.seedRide(models.RideStatusPending, nil)

	_, err := f.service.Start(context.Background(), ride.ID, primitive.NewObjectID(), "123456")
	assert.ErrorIs(t, err, models.ErrInvalidState)
}

func TestEndRideKeepsFareAndDerivesDuration(t *testing.T) {
	f := newRideServiceFixture(t)
	captainID := primitive.NewObjectID()
	ride := f.seedRide(models.RideStatusOngoing, func(r *models.Ride) {
		r.CaptainID = &captainID
		r.Distance = 6
		r.Fare = 999
	})

	completed, err := f.service.End(context.Background(), ride.ID, captainID)
	require.NoError(t, err)

	assert.Equal(t, models.RideStatusCompleted, completed.Status)
	assert.Equal(t, 999, completed.Fare)
	assert.InDelta(t, 5.0, completed.Duration, 1e-9) // 6 km at 50 s/km
	assert.NotNil(t, completed.CompletedAt)
	assert.Len(t, f.publisher.eventsNamed(EventRideEnded), 2)
}

func TestEndRideNotOngoing(t *testing.T) {
	f := newRideServiceFixture(t)
	captainID := primitive.NewObjectID()
	ride := f.seedRide(models.RideStatusAccepted, func(r *models.Ride) {
		r.CaptainID = &captainID
	})

	_, err := f.service.End(context.Background(), ride.ID, captainID)
	assert.ErrorIs(t, err, models.ErrInvalidState)
}

func TestCancelRideByOwner(t *testing.T) {
	f := newRideServiceFixture(t)
	captainID := primitive.NewObjectID()
	ride := f.seedRide(models.RideStatusAccepted, func(r *models.Ride) {
		r.CaptainID = &captainID
	})

	cancelled, err := f.service.Cancel(context.Background(), ride.ID, ride.RiderID, "changed my mind")
	require.NoError(t, err)

	assert.Equal(t, models.RideStatusCancelled, cancelled.Status)
	assert.Equal(t, "rider", cancelled.CancelledBy)

	// The assigned captain hears about it and every stale offer is retracted.
	notices := f.publisher.eventsNamed(EventRideCancelled)
	require.Len(t, notices, 1)
	assert.Equal(t, captainID, notices[0].Account)
	assert.Len(t, f.publisher.eventsNamed(EventRideNoLongerAvailable), 1)
}

func TestCancelRideNotOwner(t *testing.T) {
	f := newRideServiceFixture(t)
	ride := f.seedRide(models.RideStatusPending, nil)

	_, err := f.service.Cancel(context.Background(), ride.ID, primitive.NewObjectID(), "nope")
	assert.ErrorIs(t, err, models.ErrForbidden)
}

func TestCancelRideAlreadyOngoing(t *testing.T) {
	f := newRideServiceFixture(t)
	captainID := primitive.NewObjectID()
	ride := f.seedRide(models.RideStatusOngoing, func(r *models.Ride) {
		r.CaptainID = &captainID
	})

	_, err := f.service.Cancel(context.Background(), ride.ID, ride.RiderID, "too late")
	assert.ErrorIs(t, err, models.ErrInvalidState)
}

func TestSweepStalePendingBoundary(t *testing.T) {
	f := newRideServiceFixture(t)

	stale := f.seedRide(models.RideStatusPending, func(r *models.Ride) {
		r.RequestedAt = time.Now().Add(-utils.PendingRideTimeout - time.Second)
	})
	fresh := f.seedRide(models.RideStatusPending, func(r *models.Ride) {
		r.RequestedAt = time.Now().Add(-utils.PendingRideTimeout + time.Second)
	})

	swept, err := f.service.SweepStalePending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, swept)

	staleStored, _ := f.rides.GetByID(context.Background(), stale.ID)
	assert.Equal(t, models.RideStatusCancelled, staleStored.Status)
	assert.Equal(t, utils.ReasonNoCaptainFound, staleStored.CancellationReason)
	assert.Equal(t, "system", staleStored.CancelledBy)

	freshStored, _ := f.rides.GetByID(context.Background(), fresh.ID)
	assert.Equal(t, models.RideStatusPending, freshStored.Status)

	notices := f.publisher.eventsNamed(EventRideCancelled)
	require.Len(t, notices, 1)
	assert.Equal(t, stale.RiderID, notices[0].Account)

	// A second sweep finds nothing.
	swept, err = f.service.SweepStalePending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, swept)
}

func TestSweepSkipsDisconnectedRiderNotice(t *testing.T) {
	f := newRideServiceFixture(t)

	stale := f.seedRide(models.RideStatusPending, func(r *models.Ride) {
		r.RequestedAt = time.Now().Add(-2 * utils.PendingRideTimeout)
	})
	f.publisher.disconnected[stale.RiderID] = true

	swept, err := f.service.SweepStalePending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, swept)
	assert.Empty(t, f.publisher.eventsNamed(EventRideCancelled))
}

func TestGetActiveRideSweepsFirst(t *testing.T) {
	f := newRideServiceFixture(t)

	stale := f.seedRide(models.RideStatusPending, func(r *models.Ride) {
		r.RequestedAt = time.Now().Add(-2 * utils.PendingRideTimeout)
	})

	_, err := f.service.GetActiveRide(context.Background(), stale.RiderID)
	assert.ErrorIs(t, err, models.ErrRideNotFound)

	stored, _ := f.rides.GetByID(context.Background(), stale.ID)
	assert.Equal(t, models.RideStatusCancelled, stored.Status)
}

func TestCreatePaymentOrderRequiresCompletedRide(t *testing.T) {
	f := newRideServiceFixture(t)
	ride := f.seedRide(models.RideStatusOngoing, nil)

	_, err := f.service.CreatePaymentOrder(context.Background(), ride.ID, ride.RiderID)
	assert.ErrorIs(t, err, models.ErrInvalidState)
}

func TestCreatePaymentOrderAndVerify(t *testing.T) {
	f := newRideServiceFixture(t)
	ride := f.seedRide(models.RideStatusCompleted, func(r *models.Ride) {
		r.Fare = 130
	})

	f.gateway.On("CreateOrder", mock.Anything, &payment.OrderRequest{
		Amount:   130,
		Currency: "INR",
		Receipt:  ride.ID.Hex(),
	}).Return(&payment.Order{ID: "order_1", Amount: 130, Currency: "INR", Status: "created"}, nil)
	f.gateway.On("Verify", mock.Anything, mock.Anything).Return(true, nil)

	order, err := f.service.CreatePaymentOrder(context.Background(), ride.ID, ride.RiderID)
	require.NoError(t, err)
	assert.Equal(t, "order_1", order.ID)

	stored, _ := f.rides.GetByID(context.Background(), ride.ID)
	assert.Equal(t, "order_1", stored.PaymentOrderID)

	ok, err := f.service.VerifyPayment(context.Background(), ride.ID, ride.RiderID, &payment.Verification{
		OrderID:   "order_1",
		PaymentID: "pay_1",
		Signature: "sig",
	})
	require.NoError(t, err)
	assert.True(t, ok)

	stored, _ = f.rides.GetByID(context.Background(), ride.ID)
	assert.Equal(t, models.PaymentStatusCompleted, stored.PaymentStatus)
}
