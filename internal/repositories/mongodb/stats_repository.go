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

type statsRepository struct {
	collection *mongo.Collection
}

func NewStatsRepository(db *mongo.Database) interfaces.StatsRepository {
	return &statsRepository{
		collection: db.Collection("captain_daily_stats"),
	}
}

func (r *statsRepository) IncrementOffered(ctx context.Context, captainID primitive.ObjectID, day string) error {
	return r.increment(ctx, captainID, day, bson.M{"rides_offered": 1})
}

func (r *statsRepository) RecordCompletion(ctx context.Context, captainID primitive.ObjectID, day string, fare int, rideTimeMinutes float64) error {
	return r.increment(ctx, captainID, day, bson.M{
		"rides_completed":   1,
		"earnings":          fare,
		"ride_time_minutes": rideTimeMinutes,
	})
}

func (r *statsRepository) GetByCaptainAndDay(ctx context.Context, captainID primitive.ObjectID, day string) (*models.CaptainDayStats, error) {
	var stats models.CaptainDayStats
	err := r.collection.FindOne(ctx, bson.M{"captain_id": captainID, "day": day}).Decode(&stats)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			// No writes yet today; an empty aggregate is the answer.
			return &models.CaptainDayStats{CaptainID: captainID, Day: day}, nil
		}
		return nil, fmt.Errorf("failed to get daily stats: %w", err)
	}

	return &stats, nil
}

func (r *statsRepository) ResetDay(ctx context.Context, captainID primitive.ObjectID, day string) error {
	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"captain_id": captainID, "day": day},
		bson.M{"$set": bson.M{
			"rides_offered":     0,
			"rides_completed":   0,
			"earnings":          0,
			"ride_time_minutes": 0,
			"updated_at":        time.Now(),
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to reset daily stats: %w", err)
	}

	return nil
}

// increment upserts the day document so the aggregate is created lazily on
// the first write of a day.
func (r *statsRepository) increment(ctx context.Context, captainID primitive.ObjectID, day string, fields bson.M) error {
	filter := bson.M{"captain_id": captainID, "day": day}
	update := bson.M{
		"$inc": fields,
		"$set": bson.M{"updated_at": time.Now()},
		"$setOnInsert": bson.M{
			"captain_id": captainID,
			"day":        day,
		},
	}

	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to increment daily stats: %w", err)
	}

	return nil
}
