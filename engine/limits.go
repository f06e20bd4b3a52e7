package engine

import (
	"loadjuggler/phase"
	"loadjuggler/site"
)

// DeriveGridLimit computes the per-phase grid import headroom: the
// breaker rating (and optional tighter max_grid_import_power cap),
// converted to amps, minus this tick's corrected consumption. Grid
// current is strictly per-phase — it is never pooled across phases,
// hence from_per_phase rather than from_pool.
func DeriveGridLimit(ctx site.Context) phase.Constraints {
	voltage := ctx.VoltageOrDefault()
	n := ctx.ActivePhaseCount()
	if n == 0 {
		n = 3
	}

	perPhaseCap := ctx.MainBreakerRating
	if ctx.MaxGridImportPower > 0 {
		capFromPower := (ctx.MaxGridImportPower / voltage) / float64(n)
		if capFromPower < perPhaseCap {
			perPhaseCap = capFromPower
		}
	}

	a := perPhaseCap - ctx.Consumption.Get(phase.A)
	b := perPhaseCap - ctx.Consumption.Get(phase.B)
	c := perPhaseCap - ctx.Consumption.Get(phase.C)

	return phase.FromPerPhase(a, b, c)
}

// batteryMayDischarge reports whether Step 1's inverter limit may include
// battery-sourced current: Standard mode only, and only once SOC has
// cleared SOCMin.
func batteryMayDischarge(b site.Battery) bool {
	if !b.Present {
		return true // no battery: nothing to gate on
	}
	return !b.BelowMin()
}

// DeriveInverterLimit computes the inverter's contribution to the Step 1
// site limit: solar and battery share one inverter capacity, asymmetric
// (shared pool) or symmetric (equal per-phase split), both capped by the
// per-phase rating; a zero per-phase rating means no per-phase cap. It
// only applies while battery discharge is permitted
// in Standard mode (battery SOC >= SOCMin, or no battery at all).
func DeriveInverterLimit(ctx site.Context) phase.Constraints {
	if !batteryMayDischarge(ctx.Battery) {
		return phase.Zero()
	}

	voltage := ctx.VoltageOrDefault()
	totalAmps := ctx.Inverter.MaxPower / voltage
	perPhaseAmps := ctx.Inverter.MaxPowerPerPhase / voltage

	if ctx.Inverter.Asymmetric {
		if perPhaseAmps <= 0 {
			perPhaseAmps = totalAmps // no per-phase rating: only the total caps the pool
		}
		return phase.FromPool(totalAmps, perPhaseAmps)
	}

	n := ctx.ActivePhaseCount()
	if n == 0 {
		n = 3
	}
	perPhaseShare := totalAmps / float64(n)
	if perPhaseAmps > 0 && perPhaseShare > perPhaseAmps {
		perPhaseShare = perPhaseAmps
	}
	return phase.FromPerPhase(perPhaseShare, perPhaseShare, perPhaseShare)
}

// DeriveSiteLimit implements Step 1 in full: site_limit = grid + inverter,
// element-wise, then normalized. This is the ceiling a Standard-mode load
// sees.
func DeriveSiteLimit(ctx site.Context) phase.Constraints {
	grid := DeriveGridLimit(ctx)
	inverter := DeriveInverterLimit(ctx)
	return grid.Add(inverter)
}
