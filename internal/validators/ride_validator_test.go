package validators

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCreateRideNormalizesAlias(t *testing.T) {
	req := &CreateRideRequest{
		Pickup:      "MG Road",
		Destination: "Koramangala",
		VehicleType: "moto",
	}

	errs := ValidateCreateRide(req)
	require.Empty(t, errs)
	assert.Equal(t, "motorcycle", req.VehicleType)
}

func TestValidateCreateRideRejectsUnknownVehicle(t *testing.T) {
	req := &CreateRideRequest{
		Pickup:      "MG Road",
		Destination: "Koramangala",
		VehicleType: "truck",
	}

	errs := ValidateCreateRide(req)
	require.NotEmpty(t, errs)
	assert.Equal(t, "vehicle_type", errs[0].Field)
}

func TestValidateCreateRideRejectsSameEndpoints(t *testing.T) {
	req := &CreateRideRequest{
		Pickup:      "MG Road",
		Destination: "MG Road",
		VehicleType: "car",
	}

	errs := ValidateCreateRide(req)
	require.NotEmpty(t, errs)
	assert.Equal(t, "destination", errs[0].Field)
}

func TestValidateCreateRideScheduledTime(t *testing.T) {
	future := time.Now().Add(2 * time.Hour)
	req := &CreateRideRequest{
		Pickup:        "MG Road",
		Destination:   "Koramangala",
		VehicleType:   "car",
		ScheduledTime: &future,
	}
	assert.Empty(t, ValidateCreateRide(req))

	past := time.Now().Add(-time.Minute)
	req.ScheduledTime = &past
	errs := ValidateCreateRide(req)
	require.NotEmpty(t, errs)
	assert.Equal(t, "scheduled_time", errs[0].Field)

	// Omitting the field keeps the ride on demand.
	req.ScheduledTime = nil
	assert.Empty(t, ValidateCreateRide(req))
}

func TestValidateCreateRideRequiredFields(t *testing.T) {
	errs := ValidateCreateRide(&CreateRideRequest{})
	assert.NotEmpty(t, errs)
}

func TestValidateStartRideOTPShape(t *testing.T) {
	assert.Empty(t, ValidateStruct(&StartRideRequest{OTP: "123456"}))
	assert.NotEmpty(t, ValidateStruct(&StartRideRequest{OTP: "12345"}))
	assert.NotEmpty(t, ValidateStruct(&StartRideRequest{OTP: "abcdef"}))
	assert.NotEmpty(t, ValidateStruct(&StartRideRequest{}))
}

func TestValidateVerifyPaymentObjectID(t *testing.T) {
	errs := ValidateStruct(&VerifyPaymentRequest{
		RideID:    "not-hex",
		OrderID:   "order_1",
		PaymentID: "pay_1",
		Signature: "sig",
	})
	require.NotEmpty(t, errs)
	assert.Equal(t, "RideID", errs[0].Field)
}
