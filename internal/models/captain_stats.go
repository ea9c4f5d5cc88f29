package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// StatsDayFormat is the calendar-day key for daily aggregates.
const StatsDayFormat = "2006-01-02"

// CaptainDayStats is a per-captain per-day aggregate, created lazily on the
// first write of a day.
type CaptainDayStats struct {
	ID              primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	CaptainID       primitive.ObjectID `json:"captain_id" bson:"captain_id" validate:"required"`
	Day             string             `json:"day" bson:"day" validate:"required"`
	RidesOffered    int64              `json:"rides_offered" bson:"rides_offered"`
	RidesCompleted  int64              `json:"rides_completed" bson:"rides_completed"`
	Earnings        float64            `json:"earnings" bson:"earnings"`
	RideTimeMinutes float64            `json:"ride_time_minutes" bson:"ride_time_minutes"`
	UpdatedAt       time.Time          `json:"updated_at" bson:"updated_at"`
}

// AcceptanceRate is completed/offered as a percentage.
func (s *CaptainDayStats) AcceptanceRate() float64 {
	if s.RidesOffered == 0 {
		return 0
	}
	return float64(s.RidesCompleted) / float64(s.RidesOffered) * 100
}

func StatsDay(t time.Time) string {
	return t.Format(StatsDayFormat)
}
