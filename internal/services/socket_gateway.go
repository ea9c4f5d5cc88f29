package services

import (
	"context"
	"errors"
	"fmt"

	"ridepulse/internal/models"
	"ridepulse/internal/repositories/interfaces"
	"ridepulse/internal/utils"
	"ridepulse/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SocketGateway is the realtime channel's backend: it translates socket
// session events into directory and dispatch operations.
type SocketGateway struct {
	captains interfaces.CaptainRepository
	dispatch *DispatchService
	logger   *logger.Logger
}

func NewSocketGateway(captains interfaces.CaptainRepository, dispatch *DispatchService, log *logger.Logger) *SocketGateway {
	return &SocketGateway{
		captains: captains,
		dispatch: dispatch,
		logger:   log,
	}
}

// CaptainJoined flips the directory entry to active under this connection
// and returns the catch-up snapshot of offers the captain missed while
// disconnected.
func (g *SocketGateway) CaptainJoined(ctx context.Context, captainID primitive.ObjectID, socketID string) (interface{}, error) {
	if err := g.captains.SetConnectionState(ctx, captainID, socketID, models.CaptainStatusActive); err != nil {
		return nil, err
	}

	captain, err := g.captains.GetByID(ctx, captainID)
	if err != nil {
		return nil, err
	}

	snapshot, err := g.dispatch.AvailableRidesFor(ctx, captain)
	if err != nil {
		g.logger.WithCaptainID(captainID).WithError(err).Warn("Catch-up snapshot failed")
		return nil, nil
	}

	return snapshot, nil
}

// CaptainLeft marks whichever captain held this connection inactive. A rider
// disconnect matches nothing, which is fine.
func (g *SocketGateway) CaptainLeft(ctx context.Context, socketID string) error {
	_, err := g.captains.SetConnectionStateBySocket(ctx, socketID, models.CaptainStatusInactive)
	if errors.Is(err, models.ErrCaptainNotFound) {
		return nil
	}
	return err
}

// CaptainLocation stores the captain's general availability location and
// returns a refreshed offer snapshot within the live dispatch radius.
func (g *SocketGateway) CaptainLocation(ctx context.Context, captainID primitive.ObjectID, lat, lng float64) (interface{}, error) {
	if !utils.IsValidCoordinates(lat, lng) {
		return nil, fmt.Errorf("invalid coordinates %.6f,%.6f", lat, lng)
	}

	location := models.NewGeoPoint(lat, lng)
	if err := g.captains.UpdateLocation(ctx, captainID, &location); err != nil {
		return nil, err
	}

	captain, err := g.captains.GetByID(ctx, captainID)
	if err != nil {
		return nil, err
	}

	snapshot, err := g.dispatch.AvailableRidesFor(ctx, captain)
	if err != nil {
		return nil, nil
	}

	return snapshot, nil
}

// RideIgnored records a declined offer against the ride's exclusion set.
func (g *SocketGateway) RideIgnored(ctx context.Context, rideID string, captainID primitive.ObjectID) error {
	id, err := primitive.ObjectIDFromHex(rideID)
	if err != nil {
		return fmt.Errorf("invalid ride id %q: %w", rideID, err)
	}

	return g.dispatch.Ignore(ctx, id, captainID)
}
