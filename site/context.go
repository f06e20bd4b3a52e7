package site

import "loadjuggler/phase"

// DistributionMode selects the Step 5 distribution algorithm applied across
// all active loads this tick.
type DistributionMode int

const (
	DistributionShared DistributionMode = iota
	DistributionPriority
	DistributionOptimized
	DistributionStrict
)

func (m DistributionMode) String() string {
	switch m {
	case DistributionShared:
		return "Shared"
	case DistributionPriority:
		return "Priority"
	case DistributionOptimized:
		return "Optimized"
	case DistributionStrict:
		return "Strict"
	default:
		return "Unknown"
	}
}

// Battery is the optional home-battery subsystem attached to a site. A site
// with no battery passes the zero value; every engine step treats
// Present == false as "no battery, nothing to reserve".
type Battery struct {
	Present bool

	SOC              float64 // percent, 0..100
	SOCMin           float64 // percent; below this, battery cannot discharge
	SOCTarget        float64 // percent; battery has first claim on solar below this
	SOCHysteresis    float64 // percent band to prevent target-crossing flutter
	MaxChargePower   float64 // watts
	MaxDischargePower float64 // watts
	Power            float64 // watts; positive = discharging, negative = charging
}

// BelowMin reports whether the battery may not discharge at all.
func (b Battery) BelowMin() bool { return b.Present && b.SOC < b.SOCMin }

// BelowTarget reports whether the battery still has first claim on
// solar (SOC has not yet reached SOCTarget).
func (b Battery) BelowTarget() bool { return b.Present && b.SOC < b.SOCTarget }

// AboveTarget reports whether the battery has SOC clear of its target band
// (SOCTarget + SOCHysteresis), at which point it may discharge to loads.
func (b Battery) AboveTarget() bool {
	return b.Present && b.SOC > b.SOCTarget+b.SOCHysteresis
}

// NearlyFull reports whether the battery can no longer usefully absorb
// solar (the Step 3 excess-pool 98% rule).
func (b Battery) NearlyFull() bool { return b.Present && b.SOC >= 98 }

// Inverter describes a site's solar/battery inverter capability.
type Inverter struct {
	MaxPower         float64 // watts, total
	MaxPowerPerPhase float64 // watts, per phase
	Asymmetric       bool
}

// Context is the full per-tick input snapshot the engine reasons over.
type Context struct {
	Voltage            float64 // 0 means "use default 230V"
	MainBreakerRating  float64 // amps, per phase
	MaxGridImportPower float64 // watts, 0 means "no cap beyond breaker"

	// Consumption is this tick's grid import per phase, already corrected
	// for this engine's own prior commands (Step 0 output). Absent phases
	// mean the site does not have that phase at all.
	Consumption phase.Values
	// ExportCurrent is the per-phase export derived from negative grid
	// readings, kept for diagnostics.
	ExportCurrent phase.Values

	SolarProductionTotal float64 // watts
	SolarIsDerived       bool
	HouseholdConsumption float64 // watts, non-managed load

	Battery  Battery
	Inverter Inverter

	DistributionMode       DistributionMode
	ExcessExportThreshold  float64 // watts
	TotalExportPower       float64 // watts, positive = exporting

	GridStale bool

	Loads         []Load
	CircuitGroups []CircuitGroup
}

// VoltageOrDefault returns Voltage, falling back to 230V if unset or
// invalid (the ConfigDomainError fallback for a non-positive voltage).
func (c Context) VoltageOrDefault() float64 {
	if c.Voltage <= 0 {
		return 230.0
	}
	return c.Voltage
}

// ActivePhaseCount returns how many phases this site has, derived from
// which Consumption entries are present.
func (c Context) ActivePhaseCount() int {
	return c.Consumption.Count()
}

// CircuitGroup caps the combined current of a named subset of loads (e.g.
// loads sharing one sub-panel breaker), applied as a post-distribution cap
// in Step 6.
type CircuitGroup struct {
	ID                string
	MemberIDs         []string
	CurrentLimitPerPhase float64 // amps
}
