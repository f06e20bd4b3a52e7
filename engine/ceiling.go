package engine

import (
	"loadjuggler/phase"
	"loadjuggler/site"
)

// Pools bundles every constraint pool a ceiling evaluation might draw
// from, so a single load's evaluation can name which ones it used.
type Pools struct {
	SiteLimit    phase.Constraints
	GridOnly     phase.Constraints // grid limit alone, battery excluded
	SolarSurplus phase.Constraints
	ExcessPool   phase.Constraints
}

// PoolRef identifies which pool(s) in Pools a load's ceiling draws from;
// Distribute uses this to know which pools to deduct from together.
type PoolRef int

const (
	PoolNone PoolRef = iota
	PoolSiteLimit
	PoolSolarSurplus
	PoolExcessPool
	PoolGridOnly      // Standard mode, battery SOC below min: grid limit only, battery excluded
	PoolSolarPriority // SolarPriority, battery between min and target: min guaranteed from
	                  // site_limit (grid), remainder capped by solar_surplus only
)

func (p PoolRef) String() string {
	switch p {
	case PoolSiteLimit:
		return "site_limit"
	case PoolSolarSurplus:
		return "solar_surplus"
	case PoolExcessPool:
		return "excess_pool"
	case PoolGridOnly:
		return "grid_only"
	case PoolSolarPriority:
		return "solar_priority"
	default:
		return "none"
	}
}

// Ceiling is Step 4's per-load output: the maximum current the load may
// draw this tick (before distribution divides pool capacity among peers),
// which pool it draws from, and whether mode/battery conditions disallow
// it outright regardless of pool headroom.
type Ceiling struct {
	Max       float64
	Pool      PoolRef
	Disallowed bool // mode/battery condition forbids any allocation this tick
}

// EvaluateCeiling implements Step 4 via tagged-variant dispatch over
// site.Mode — no inheritance, one switch per battery-SOC band as tabulated
// in the per-load mode policy.
func EvaluateCeiling(l site.Load, ctx site.Context, pools Pools) Ceiling {
	if l.Kind == site.KindPlug {
		return evaluatePlugCeiling(l, ctx, pools)
	}

	b := ctx.Battery
	switch l.OperatingMode {
	case site.ModeStandard:
		return evaluateStandard(l, b, pools)
	case site.ModeSolarPriority:
		return evaluateSolarPriority(l, b, pools)
	case site.ModeSolarOnly:
		return evaluateSolarOnly(l, b, pools)
	case site.ModeExcess:
		return evaluateExcess(l, b, pools)
	default:
		return Ceiling{Disallowed: true}
	}
}

func evaluateStandard(l site.Load, b site.Battery, pools Pools) Ceiling {
	if b.Present && b.BelowMin() {
		return Ceiling{Max: l.MaxCurrent, Pool: PoolGridOnly}
	}
	return Ceiling{Max: l.MaxCurrent, Pool: PoolSiteLimit}
}

func evaluateSolarPriority(l site.Load, b site.Battery, pools Pools) Ceiling {
	if b.Present && b.BelowMin() {
		return Ceiling{Disallowed: true}
	}
	if !b.Present {
		// No battery to protect, but grid may still make up min_current the
		// same as the battery-present mid-band case: anything beyond
		// min_current still comes from solar surplus only.
		return Ceiling{Max: l.MaxCurrent, Pool: PoolSolarPriority}
	}
	if b.AboveTarget() {
		return Ceiling{Max: l.MaxCurrent, Pool: PoolSiteLimit}
	}
	// Battery present and between min and target: grid may make up the
	// minimum even when solar surplus alone cannot, but anything beyond
	// min_current still comes from solar surplus only, so the battery
	// keeps first claim on the rest.
	return Ceiling{Max: l.MaxCurrent, Pool: PoolSolarPriority}
}

func evaluateSolarOnly(l site.Load, b site.Battery, pools Pools) Ceiling {
	if b.Present && b.BelowMin() {
		return Ceiling{Disallowed: true}
	}
	if b.Present && b.BelowTarget() {
		return Ceiling{Disallowed: true}
	}
	return Ceiling{Max: l.MaxCurrent, Pool: PoolSolarSurplus}
}

func evaluateExcess(l site.Load, b site.Battery, pools Pools) Ceiling {
	if b.Present && b.BelowMin() {
		return Ceiling{Disallowed: true}
	}
	if b.NearlyFull() {
		return Ceiling{Max: l.MaxCurrent, Pool: PoolSolarSurplus}
	}
	return Ceiling{Max: l.MaxCurrent, Pool: PoolExcessPool}
}

func evaluatePlugCeiling(l site.Load, ctx site.Context, pools Pools) Ceiling {
	ratedCurrent := plugRatedCurrent(l, ctx)
	b := ctx.Battery

	switch l.OperatingMode {
	case site.ModeContinuous:
		return Ceiling{Max: ratedCurrent, Pool: PoolSiteLimit}

	case site.ModeSolarOnly:
		if b.Present && !b.AboveTarget() && !(b.SOC >= b.SOCTarget) {
			return Ceiling{Disallowed: true}
		}
		return Ceiling{Max: ratedCurrent, Pool: PoolSolarSurplus}

	case site.ModeExcess:
		if b.Present && b.BelowMin() {
			return Ceiling{Disallowed: true}
		}
		return Ceiling{Max: ratedCurrent, Pool: PoolExcessPool}

	default:
		return Ceiling{Disallowed: true}
	}
}

// plugRatedCurrent converts a plug's rated wattage into the single-phase
// equivalent current it draws when on, per §3.4: rated_power / (voltage *
// phases_in_mask).
func plugRatedCurrent(l site.Load, ctx site.Context) float64 {
	voltage := ctx.VoltageOrDefault()
	n := l.ActivePhasesMask.NumPhases()
	if n == 0 {
		n = 1
	}
	return l.RatedPower / (voltage * float64(n))
}
