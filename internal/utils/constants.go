package utils

import "time"

// Application Constants
const (
	AppName    = "RidePulse"
	AppVersion = "1.0.0"

	// Pagination
	DefaultPageSize = 20
	MaxPageSize     = 100
	MinPageSize     = 1

	// Dispatch
	// The creation-time directory scan and the live-notify path intentionally
	// use different radii. Keep them separate.
	InitialScanRadiusKM   = 100.0
	LiveDispatchRadiusKM  = 5.0
	MaxDispatchCandidates = 5

	// Ride lifecycle
	PendingRideTimeout = 60 * time.Second
	OTPLength          = 6

	// Duration model: rides are priced and timed at a fixed pace per
	// kilometer rather than wall-clock elapsed time.
	RideSecondsPerKM = 50.0

	// Geo
	EarthRadiusKM    = 6371.0
	EarthRadiusMiles = 3959.0

	// Response statuses
	StatusSuccess = "success"
	StatusError   = "error"

	// Error messages
	ErrInternalServer   = "internal server error"
	ErrUnauthorized     = "unauthorized"
	ErrForbidden        = "forbidden"
	ErrValidationFailed = "validation failed"

	// Cancellation reasons
	ReasonNoCaptainFound = "No captain found within time limit"
)
