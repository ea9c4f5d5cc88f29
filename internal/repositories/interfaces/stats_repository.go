package interfaces

import (
	"context"

	"ridepulse/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type StatsRepository interface {
	// The per-day document is upserted on first write of the day.
	IncrementOffered(ctx context.Context, captainID primitive.ObjectID, day string) error
	RecordCompletion(ctx context.Context, captainID primitive.ObjectID, day string, fare int, rideTimeMinutes float64) error

	GetByCaptainAndDay(ctx context.Context, captainID primitive.ObjectID, day string) (*models.CaptainDayStats, error)
	ResetDay(ctx context.Context, captainID primitive.ObjectID, day string) error
}
