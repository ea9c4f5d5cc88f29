package services

import (
	"testing"

	"ridepulse/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimatePerClass(t *testing.T) {
	fares := NewFareService()

	// 5 km in 10 minutes.
	tests := []struct {
		vehicleType models.VehicleType
		want        int
	}{
		{models.VehicleTypeCar, 130},        // 50 + 12*5 + 2.0*10
		{models.VehicleTypeAuto, 98},        // 30 + 10*5 + 1.8*10
		{models.VehicleTypeMotorcycle, 75},  // 20 + 8*5 + 1.5*10
	}

	for _, tt := range tests {
		got, err := fares.Estimate(tt.vehicleType, 5000, 600)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "vehicle type %s", tt.vehicleType)
	}
}

func TestEstimateRoundsToNearestUnit(t *testing.T) {
	fares := NewFareService()

	// 1.3 km in 90 s: 20 + 8*1.3 + 1.5*1.5 = 32.65 -> 33
	got, err := fares.Estimate(models.VehicleTypeMotorcycle, 1300, 90)
	require.NoError(t, err)
	assert.Equal(t, 33, got)
}

func TestEstimateUnknownVehicle(t *testing.T) {
	fares := NewFareService()

	_, err := fares.Estimate(models.VehicleType("spaceship"), 5000, 600)
	assert.ErrorIs(t, err, models.ErrInvalidVehicle)
}

func TestEstimateAllMatchesPerClassEstimates(t *testing.T) {
	fares := NewFareService()

	all := fares.EstimateAll(5000, 600)
	require.Len(t, all, 3)
	for vehicleType, fare := range all {
		single, err := fares.Estimate(vehicleType, 5000, 600)
		require.NoError(t, err)
		assert.Equal(t, single, fare)
	}
}

func TestRideDurationMinutes(t *testing.T) {
	assert.InDelta(t, 5.0, RideDurationMinutes(6), 1e-9)
	assert.InDelta(t, 0.0, RideDurationMinutes(0), 1e-9)
	assert.InDelta(t, 4.166666, RideDurationMinutes(5), 1e-5)
}
