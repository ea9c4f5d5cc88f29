package config

import (
	"time"
)

type DispatchConfig struct {
	InitialScanRadiusKM  float64       `yaml:"initial_scan_radius_km"`
	LiveDispatchRadiusKM float64       `yaml:"live_dispatch_radius_km"`
	MaxCandidates        int           `yaml:"max_candidates"`
	PendingRideTimeout   time.Duration `yaml:"pending_ride_timeout"`
	SweepInterval        time.Duration `yaml:"sweep_interval"`
}

func loadDispatchConfig() *DispatchConfig {
	return &DispatchConfig{
		InitialScanRadiusKM:  getEnvAsFloat64("DISPATCH_INITIAL_SCAN_RADIUS_KM", 100),
		LiveDispatchRadiusKM: getEnvAsFloat64("DISPATCH_LIVE_RADIUS_KM", 5),
		MaxCandidates:        getEnvAsInt("DISPATCH_MAX_CANDIDATES", 5),
		PendingRideTimeout:   getEnvAsDuration("DISPATCH_PENDING_RIDE_TIMEOUT", 60*time.Second),
		SweepInterval:        getEnvAsDuration("DISPATCH_SWEEP_INTERVAL", 15*time.Second),
	}
}
