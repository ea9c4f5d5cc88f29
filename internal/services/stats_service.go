package services

import (
	"context"
	"time"

	"ridepulse/internal/models"
	"ridepulse/internal/repositories/interfaces"
	"ridepulse/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// StatsService maintains per-captain daily aggregates. It consumes the
// lifecycle's internal events instead of being called from the state machine.
type StatsService struct {
	stats  interfaces.StatsRepository
	logger *logger.Logger
}

func NewStatsService(stats interfaces.StatsRepository, log *logger.Logger) *StatsService {
	return &StatsService{
		stats:  stats,
		logger: log,
	}
}

func (s *StatsService) Consume(ctx context.Context, event Event) {
	switch event.Name {
	case EventRideAccepted:
		payload, ok := event.Payload.(RideAcceptedPayload)
		if !ok {
			return
		}
		if err := s.stats.IncrementOffered(ctx, payload.CaptainID, models.StatsDay(payload.At)); err != nil {
			s.logger.WithCaptainID(payload.CaptainID).WithError(err).Error("Failed to record ride offer")
		}

	case EventRideCompleted:
		payload, ok := event.Payload.(RideCompletedPayload)
		if !ok {
			return
		}
		err := s.stats.RecordCompletion(ctx, payload.CaptainID, models.StatsDay(payload.At), payload.Fare, payload.DurationMinutes)
		if err != nil {
			s.logger.WithCaptainID(payload.CaptainID).WithError(err).Error("Failed to record ride completion")
		}
	}
}

// GetToday returns the captain's aggregate for the current calendar day.
func (s *StatsService) GetToday(ctx context.Context, captainID primitive.ObjectID) (*models.CaptainDayStats, error) {
	return s.stats.GetByCaptainAndDay(ctx, captainID, models.StatsDay(time.Now()))
}

func (s *StatsService) ResetToday(ctx context.Context, captainID primitive.ObjectID) error {
	return s.stats.ResetDay(ctx, captainID, models.StatsDay(time.Now()))
}
