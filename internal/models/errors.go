package models

import "errors"

// Domain error taxonomy. Repositories and services return these sentinels
// (usually wrapped); handlers map them to HTTP status codes.
var (
	ErrRideNotFound      = errors.New("ride not found")
	ErrCaptainNotFound   = errors.New("captain not found")
	ErrInvalidState      = errors.New("invalid ride state for this transition")
	ErrInvalidOTP        = errors.New("invalid otp")
	ErrForbidden         = errors.New("forbidden")
	ErrAddressResolution = errors.New("address could not be resolved")
	ErrNoRoute           = errors.New("no route between addresses")
	ErrInvalidVehicle    = errors.New("unsupported vehicle type")
)
