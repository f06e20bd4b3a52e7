package engine

import (
	"loadjuggler/phase"
	"loadjuggler/site"
)

// effectiveExcessThreshold implements the §4.4 reservation rule: solar is
// reserved for the battery (on top of the user's configured export
// threshold) until the battery reaches target, unless the battery is
// nearly full (>=98% SOC) and can no longer usefully absorb more.
func effectiveExcessThreshold(ctx site.Context) float64 {
	threshold := ctx.ExcessExportThreshold
	b := ctx.Battery

	if b.Present && b.BelowTarget() && !b.NearlyFull() {
		threshold += b.MaxChargePower
	}
	return threshold
}

// DeriveExcessPool implements Step 3: the pool of export power above the
// effective threshold, available to Excess-mode loads. A battery at or
// above 98% SOC behaves like plain solar surplus (Step 2's pool), since it
// can no longer absorb more charge.
func DeriveExcessPool(ctx site.Context) phase.Constraints {
	if ctx.Battery.NearlyFull() {
		return DeriveSolarSurplus(ctx)
	}

	threshold := effectiveExcessThreshold(ctx)
	if ctx.TotalExportPower <= threshold {
		return phase.Zero()
	}

	voltage := ctx.VoltageOrDefault()
	excessAmps := (ctx.TotalExportPower - threshold) / voltage

	if ctx.Inverter.Asymmetric {
		perPhaseAmps := ctx.Inverter.MaxPowerPerPhase / voltage
		return phase.FromPool(excessAmps, perPhaseAmps)
	}

	n := ctx.ActivePhaseCount()
	if n == 0 {
		n = 3
	}
	share := excessAmps / float64(n)
	return phase.FromPerPhase(share, share, share)
}
