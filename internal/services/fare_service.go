package services

import (
	"math"

	"ridepulse/internal/models"
	"ridepulse/internal/utils"
)

// FareRate prices one vehicle class.
type FareRate struct {
	Base      float64 `json:"base"`
	PerKM     float64 `json:"per_km"`
	PerMinute float64 `json:"per_minute"`
}

// FareService computes fares from a distance/duration pair. Pure; no I/O.
type FareService struct {
	rates map[models.VehicleType]FareRate
}

func NewFareService() *FareService {
	return &FareService{
		rates: map[models.VehicleType]FareRate{
			models.VehicleTypeCar:        {Base: 50, PerKM: 12, PerMinute: 2.0},
			models.VehicleTypeAuto:       {Base: 30, PerKM: 10, PerMinute: 1.8},
			models.VehicleTypeMotorcycle: {Base: 20, PerKM: 8, PerMinute: 1.5},
		},
	}
}

// EstimateAll returns a rounded fare for every supported vehicle class.
func (s *FareService) EstimateAll(distanceMeters float64, durationSeconds int) map[models.VehicleType]int {
	distanceKM := distanceMeters / 1000
	durationMin := float64(durationSeconds) / 60

	fares := make(map[models.VehicleType]int, len(s.rates))
	for vehicleType, rate := range s.rates {
		fares[vehicleType] = int(math.Round(rate.Base + rate.PerKM*distanceKM + rate.PerMinute*durationMin))
	}
	return fares
}

// Estimate returns the rounded fare for a single vehicle class.
func (s *FareService) Estimate(vehicleType models.VehicleType, distanceMeters float64, durationSeconds int) (int, error) {
	rate, ok := s.rates[vehicleType]
	if !ok {
		return 0, models.ErrInvalidVehicle
	}

	distanceKM := distanceMeters / 1000
	durationMin := float64(durationSeconds) / 60

	return int(math.Round(rate.Base + rate.PerKM*distanceKM + rate.PerMinute*durationMin)), nil
}

// RideDurationMinutes derives ride duration from distance at a fixed pace.
// Both the creation-time estimate and the completion-time duration use this,
// so duration stays consistent with the fare basis. Swap this out if
// wall-clock measurement is ever wanted.
func RideDurationMinutes(distanceKM float64) float64 {
	return distanceKM * utils.RideSecondsPerKM / 60
}
