package maps

import "context"

// Provider is the routing collaborator: address resolution for ride
// geometry and distance/duration pairs for fare estimation.
type Provider interface {
	ResolveAddress(ctx context.Context, address string) (*Coordinates, error)
	Route(ctx context.Context, origin, destination string) (*RouteSummary, error)
}

type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type RouteSummary struct {
	DistanceMeters  float64 `json:"distance_meters"`
	DurationSeconds int     `json:"duration_seconds"`
}
