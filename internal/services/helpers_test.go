package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"ridepulse/internal/models"
	"ridepulse/internal/utils"
	"ridepulse/pkg/logger"
	"ridepulse/pkg/maps"
	"ridepulse/pkg/payment"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Format: "text", Output: "stdout"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

// memRideRepo is an in-memory ride store with the same conditional-write
// semantics as the Mongo implementation: guarded transitions mutate only
// when the document is still in the expected state, and a miss is
// models.ErrRideNotFound.
type memRideRepo struct {
	mu    sync.Mutex
	rides map[primitive.ObjectID]*models.Ride
}

func newMemRideRepo() *memRideRepo {
	return &memRideRepo{rides: make(map[primitive.ObjectID]*models.Ride)}
}

func (r *memRideRepo) Create(_ context.Context, ride *models.Ride) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ride.ID.IsZero() {
		ride.ID = primitive.NewObjectID()
	}
	now := time.Now()
	if ride.RequestedAt.IsZero() {
		ride.RequestedAt = now
	}
	ride.CreatedAt = now
	ride.UpdatedAt = now

	clone := *ride
	r.rides[ride.ID] = &clone
	return nil
}

func (r *memRideRepo) seed(ride *models.Ride) *models.Ride {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ride.ID.IsZero() {
		ride.ID = primitive.NewObjectID()
	}
	if ride.RequestedAt.IsZero() {
		ride.RequestedAt = time.Now()
	}
	clone := *ride
	r.rides[ride.ID] = &clone
	return ride
}

func (r *memRideRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.Ride, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ride, ok := r.rides[id]
	if !ok {
		return nil, models.ErrRideNotFound
	}
	clone := *ride
	return &clone, nil
}

func (r *memRideRepo) Update(_ context.Context, id primitive.ObjectID, _ map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rides[id]; !ok {
		return models.ErrRideNotFound
	}
	return nil
}

func (r *memRideRepo) ConfirmRide(_ context.Context, id, captainID primitive.ObjectID) (*models.Ride, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ride, ok := r.rides[id]
	if !ok || ride.Status != models.RideStatusPending || ride.CaptainID != nil {
		return nil, models.ErrRideNotFound
	}

	cid := captainID
	ride.CaptainID = &cid
	ride.Status = models.RideStatusAccepted
	ride.UpdatedAt = time.Now()

	clone := *ride
	return &clone, nil
}

func (r *memRideRepo) StartRide(_ context.Context, id primitive.ObjectID) (*models.Ride, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ride, ok := r.rides[id]
	if !ok || ride.Status != models.RideStatusAccepted {
		return nil, models.ErrRideNotFound
	}

	now := time.Now()
	ride.Status = models.RideStatusOngoing
	ride.StartedAt = &now
	ride.UpdatedAt = now

	clone := *ride
	return &clone, nil
}

func (r *memRideRepo) CompleteRide(_ context.Context, id primitive.ObjectID, durationMinutes float64) (*models.Ride, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ride, ok := r.rides[id]
	if !ok || ride.Status != models.RideStatusOngoing {
		return nil, models.ErrRideNotFound
	}

	now := time.Now()
	ride.Status = models.RideStatusCompleted
	ride.Duration = durationMinutes
	ride.CompletedAt = &now
	ride.UpdatedAt = now

	clone := *ride
	return &clone, nil
}

func (r *memRideRepo) CancelRide(_ context.Context, id primitive.ObjectID, from []models.RideStatus, reason, cancelledBy string) (*models.Ride, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ride, ok := r.rides[id]
	if !ok {
		return nil, models.ErrRideNotFound
	}
	allowed := false
	for _, status := range from {
		if ride.Status == status {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, models.ErrRideNotFound
	}

	now := time.Now()
	ride.Status = models.RideStatusCancelled
	ride.CancellationReason = reason
	ride.CancelledBy = cancelledBy
	ride.CancelledAt = &now
	ride.UpdatedAt = now

	clone := *ride
	return &clone, nil
}

func (r *memRideRepo) AddIgnoredCaptain(_ context.Context, id, captainID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ride, ok := r.rides[id]
	if !ok {
		return models.ErrRideNotFound
	}
	for _, existing := range ride.IgnoredBy {
		if existing == captainID {
			return nil
		}
	}
	ride.IgnoredBy = append(ride.IgnoredBy, captainID)
	return nil
}

func (r *memRideRepo) GetPendingUnassigned(_ context.Context) ([]*models.Ride, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*models.Ride
	for _, ride := range r.rides {
		if ride.Status == models.RideStatusPending && ride.CaptainID == nil {
			clone := *ride
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *memRideRepo) GetNearbyPending(_ context.Context, lat, lng, radiusKM float64, vehicleType models.VehicleType) ([]*models.Ride, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*models.Ride
	for _, ride := range r.rides {
		if ride.Status != models.RideStatusPending || ride.CaptainID != nil || ride.VehicleType != vehicleType {
			continue
		}
		if !utils.IsWithinRadius(lat, lng, ride.Pickup.Latitude(), ride.Pickup.Longitude(), radiusKM) {
			continue
		}
		clone := *ride
		out = append(out, &clone)
	}
	return out, nil
}

func (r *memRideRepo) FindStalePending(_ context.Context, cutoff time.Time) ([]*models.Ride, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*models.Ride
	for _, ride := range r.rides {
		if ride.Status == models.RideStatusPending && ride.RequestedAt.Before(cutoff) {
			clone := *ride
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *memRideRepo) GetActiveByRider(_ context.Context, riderID primitive.ObjectID) (*models.Ride, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ride := range r.rides {
		if ride.RiderID == riderID && ride.IsActive() {
			clone := *ride
			return &clone, nil
		}
	}
	return nil, models.ErrRideNotFound
}

func (r *memRideRepo) GetByRider(_ context.Context, riderID primitive.ObjectID, _ *utils.PaginationParams) ([]*models.Ride, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*models.Ride
	for _, ride := range r.rides {
		if ride.RiderID == riderID {
			clone := *ride
			out = append(out, &clone)
		}
	}
	return out, int64(len(out)), nil
}

func (r *memRideRepo) GetByCaptain(_ context.Context, captainID primitive.ObjectID, _ *utils.PaginationParams) ([]*models.Ride, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*models.Ride
	for _, ride := range r.rides {
		if ride.CaptainID != nil && *ride.CaptainID == captainID {
			clone := *ride
			out = append(out, &clone)
		}
	}
	return out, int64(len(out)), nil
}

func (r *memRideRepo) SetPaymentOrder(_ context.Context, id primitive.ObjectID, orderID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ride, ok := r.rides[id]
	if !ok {
		return models.ErrRideNotFound
	}
	ride.PaymentOrderID = orderID
	return nil
}

func (r *memRideRepo) SetPaymentStatus(_ context.Context, id primitive.ObjectID, status models.PaymentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ride, ok := r.rides[id]
	if !ok {
		return models.ErrRideNotFound
	}
	ride.PaymentStatus = status
	return nil
}

// recordPublisher captures every emit and doubles as the presence registry.
type recordedEmit struct {
	Account primitive.ObjectID
	Room    string
	Event   string
	Payload interface{}
	Global  bool
}

type recordPublisher struct {
	mu           sync.Mutex
	emits        []recordedEmit
	disconnected map[primitive.ObjectID]bool
}

func newRecordPublisher() *recordPublisher {
	return &recordPublisher{disconnected: make(map[primitive.ObjectID]bool)}
}

func (p *recordPublisher) EmitToAccount(account primitive.ObjectID, event string, payload interface{}) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.emits = append(p.emits, recordedEmit{Account: account, Event: event, Payload: payload})
	return !p.disconnected[account]
}

func (p *recordPublisher) EmitToRoom(room, event string, payload interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.emits = append(p.emits, recordedEmit{Room: room, Event: event, Payload: payload})
}

func (p *recordPublisher) EmitGlobal(event string, payload interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.emits = append(p.emits, recordedEmit{Event: event, Payload: payload, Global: true})
}

func (p *recordPublisher) IsConnected(account primitive.ObjectID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.disconnected[account]
}

func (p *recordPublisher) eventsNamed(name string) []recordedEmit {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []recordedEmit
	for _, emit := range p.emits {
		if emit.Event == name {
			out = append(out, emit)
		}
	}
	return out
}

// MockCaptainRepository mocks interfaces.CaptainRepository
type MockCaptainRepository struct {
	mock.Mock
}

func (m *MockCaptainRepository) Create(ctx context.Context, captain *models.Captain) error {
	args := m.Called(ctx, captain)
	return args.Error(0)
}

func (m *MockCaptainRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Captain, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Captain), args.Error(1)
}

func (m *MockCaptainRepository) GetBySocketID(ctx context.Context, socketID string) (*models.Captain, error) {
	args := m.Called(ctx, socketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Captain), args.Error(1)
}

func (m *MockCaptainRepository) FindNearby(ctx context.Context, lat, lng, radiusKM float64, vehicleType models.VehicleType, availableOnly bool, limit int64) ([]*models.Captain, error) {
	args := m.Called(ctx, lat, lng, radiusKM, vehicleType, availableOnly, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Captain), args.Error(1)
}

func (m *MockCaptainRepository) UpdateLocation(ctx context.Context, id primitive.ObjectID, location *models.GeoPoint) error {
	args := m.Called(ctx, id, location)
	return args.Error(0)
}

func (m *MockCaptainRepository) SetConnectionState(ctx context.Context, id primitive.ObjectID, socketID string, status models.CaptainStatus) error {
	args := m.Called(ctx, id, socketID, status)
	return args.Error(0)
}

func (m *MockCaptainRepository) SetConnectionStateBySocket(ctx context.Context, socketID string, status models.CaptainStatus) (*models.Captain, error) {
	args := m.Called(ctx, socketID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Captain), args.Error(1)
}

func (m *MockCaptainRepository) SetAvailability(ctx context.Context, id primitive.ObjectID, available bool) error {
	args := m.Called(ctx, id, available)
	return args.Error(0)
}

// MockMapsProvider mocks maps.Provider
type MockMapsProvider struct {
	mock.Mock
}

func (m *MockMapsProvider) ResolveAddress(ctx context.Context, address string) (*maps.Coordinates, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*maps.Coordinates), args.Error(1)
}

func (m *MockMapsProvider) Route(ctx context.Context, origin, destination string) (*maps.RouteSummary, error) {
	args := m.Called(ctx, origin, destination)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*maps.RouteSummary), args.Error(1)
}

// MockPaymentGateway mocks payment.Gateway
type MockPaymentGateway struct {
	mock.Mock
}

func (m *MockPaymentGateway) CreateOrder(ctx context.Context, req *payment.OrderRequest) (*payment.Order, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Order), args.Error(1)
}

func (m *MockPaymentGateway) Verify(ctx context.Context, verification *payment.Verification) (bool, error) {
	args := m.Called(ctx, verification)
	return args.Bool(0), args.Error(1)
}

// MockStatsRepository mocks interfaces.StatsRepository
type MockStatsRepository struct {
	mock.Mock
}

func (m *MockStatsRepository) IncrementOffered(ctx context.Context, captainID primitive.ObjectID, day string) error {
	args := m.Called(ctx, captainID, day)
	return args.Error(0)
}

func (m *MockStatsRepository) RecordCompletion(ctx context.Context, captainID primitive.ObjectID, day string, fare int, rideTimeMinutes float64) error {
	args := m.Called(ctx, captainID, day, fare, rideTimeMinutes)
	return args.Error(0)
}

func (m *MockStatsRepository) GetByCaptainAndDay(ctx context.Context, captainID primitive.ObjectID, day string) (*models.CaptainDayStats, error) {
	args := m.Called(ctx, captainID, day)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CaptainDayStats), args.Error(1)
}

func (m *MockStatsRepository) ResetDay(ctx context.Context, captainID primitive.ObjectID, day string) error {
	args := m.Called(ctx, captainID, day)
	return args.Error(0)
}
