// Package config holds the plain-struct configuration surface the engine
// consumes each tick: site electrical parameters, battery/inverter
// tunables, per-load defaults, and the smoothing/ramp knobs. It mirrors
// the engine/site types closely but stays import-free of them so a host
// can load this from JSON/YAML/env without pulling in engine internals.
package config

import "time"

// Site holds the site-wide configuration enumeration from the external
// interface: voltage, breaker rating, battery, inverter, distribution mode,
// and the excess-export threshold.
type Site struct {
	Voltage            float64
	MainBreakerRating  float64
	MaxGridImportPower float64
	ExcessExportThreshold float64

	BatterySOCMin            float64
	BatterySOCTarget         float64
	BatterySOCHysteresis     float64
	BatteryMaxChargePower    float64
	BatteryMaxDischargePower float64

	InverterMaxPower         float64
	InverterMaxPowerPerPhase float64
	InverterSupportsAsymmetric bool

	DistributionMode string // "Shared" | "Priority" | "Optimized" | "Strict"

	GridStaleAfter time.Duration
	TickInterval   time.Duration
}

// LoadDefaults holds the per-load configuration defaults applied when a
// discovered load (an EVSE or plug registered via its OCPP/MQTT identity)
// doesn't specify its own values.
type LoadDefaults struct {
	MinCurrent          float64
	MaxCurrent          float64
	Priority            int
	UpdateFrequency     time.Duration
	ChargePauseDuration time.Duration
	GraceHoldDuration   time.Duration
}

// Defaults returns the site configuration enumerated in the external
// interface: 230V/25A/13kW-threshold site electrics, a battery band of
// 20/80/3%, and 5kW charge/discharge limits. These mirror common
// single-phase-or-three-phase EU residential sites and are meant to be
// overridden per-deployment, not relied on as-is.
func Defaults() Site {
	return Site{
		Voltage:               230,
		MainBreakerRating:     25,
		ExcessExportThreshold: 13000,

		BatterySOCMin:            20,
		BatterySOCTarget:         80,
		BatterySOCHysteresis:     3,
		BatteryMaxChargePower:    5000,
		BatteryMaxDischargePower: 5000,

		DistributionMode: "Shared",

		GridStaleAfter: 60 * time.Second,
		TickInterval:   15 * time.Second,
	}
}

// DefaultLoadSettings returns the per-load defaults enumerated in the
// external interface: 6-16A, priority 1, a 15s update cadence, and a 180s
// minimum pause dwell.
func DefaultLoadSettings() LoadDefaults {
	return LoadDefaults{
		MinCurrent:          6,
		MaxCurrent:          16,
		Priority:            1,
		UpdateFrequency:     15 * time.Second,
		ChargePauseDuration: 180 * time.Second,
		GraceHoldDuration:   10 * time.Second,
	}
}

// Validate applies the §7 ConfigDomainError fallback rules in place and
// returns the diagnostics it emitted, rather than halting: a non-positive
// voltage falls back to 230V, and a non-positive breaker rating falls back
// to the 25A default. Callers should log the returned diagnostics; they
// are never fatal.
func (s *Site) Validate() []string {
	var diags []string

	if s.Voltage <= 0 {
		diags = append(diags, "config: voltage must be positive, falling back to 230V")
		s.Voltage = 230
	}
	if s.MainBreakerRating <= 0 {
		diags = append(diags, "config: main_breaker_rating must be positive, falling back to 25A")
		s.MainBreakerRating = 25
	}
	if s.BatterySOCMin > s.BatterySOCTarget {
		diags = append(diags, "config: battery_soc_min exceeds battery_soc_target, swapping to a safe ordering")
		s.BatterySOCMin, s.BatterySOCTarget = s.BatterySOCTarget, s.BatterySOCMin
	}
	switch s.DistributionMode {
	case "Shared", "Priority", "Optimized", "Strict":
	default:
		diags = append(diags, "config: unrecognized distribution_mode, falling back to Shared")
		s.DistributionMode = "Shared"
	}

	return diags
}

// Validate applies the per-load ConfigDomainError fallback: min > max
// current swaps to a safe ordering, and a non-positive max falls back to
// the 16A default.
func (l *LoadDefaults) Validate() []string {
	var diags []string

	if l.MaxCurrent <= 0 {
		diags = append(diags, "config: max_current must be positive, falling back to 16A")
		l.MaxCurrent = 16
	}
	if l.MinCurrent < 0 {
		diags = append(diags, "config: min_current must be non-negative, falling back to 0A")
		l.MinCurrent = 0
	}
	if l.MinCurrent > l.MaxCurrent {
		diags = append(diags, "config: min_current exceeds max_current, swapping to a safe ordering")
		l.MinCurrent, l.MaxCurrent = l.MaxCurrent, l.MinCurrent
	}
	if l.Priority <= 0 {
		l.Priority = 1
	}

	return diags
}
