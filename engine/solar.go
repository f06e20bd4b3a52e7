package engine

import (
	"loadjuggler/phase"
	"loadjuggler/site"
)

// netSolarTotal implements the §4.3 net-solar formula: production minus
// household consumption, minus battery charging (while below target,
// capped by MaxChargePower), plus battery discharge (while clear of
// target, capped by MaxDischargePower). All in watts.
func netSolarTotal(ctx site.Context) float64 {
	net := ctx.SolarProductionTotal - ctx.HouseholdConsumption

	b := ctx.Battery
	if b.BelowTarget() {
		charge := b.MaxChargePower
		if charge < 0 {
			charge = 0
		}
		net -= charge
	} else if b.AboveTarget() {
		discharge := b.MaxDischargePower
		if discharge < 0 {
			discharge = 0
		}
		net += discharge
	}

	return net
}

// DeriveSolarSurplus implements Step 2: the pool of non-grid-importing
// power available to SolarPriority/SolarOnly loads, expressed as per-phase
// amperage constraints.
//
// Asymmetric inverters pool the net solar total subject to a per-phase
// cap. Symmetric inverters split the total equally across phases, with
// each phase's own consumption subtracted; the exact rule for attributing
// battery charge/discharge to "whichever phase needs it" on a symmetric
// inverter is under-specified upstream (see design notes) — this
// implementation balances by subtracting consumption per phase after the
// equal split, which matches the two worked scenarios in the test suite.
func DeriveSolarSurplus(ctx site.Context) phase.Constraints {
	voltage := ctx.VoltageOrDefault()
	net := netSolarTotal(ctx)
	netAmps := net / voltage

	if ctx.Inverter.Asymmetric {
		perPhaseAmps := ctx.Inverter.MaxPowerPerPhase / voltage
		return phase.FromPool(netAmps, perPhaseAmps)
	}

	n := ctx.ActivePhaseCount()
	if n == 0 {
		n = 3
	}
	share := netAmps / float64(n)

	a := share - ctx.Consumption.Get(phase.A)
	b := share - ctx.Consumption.Get(phase.B)
	c := share - ctx.Consumption.Get(phase.C)

	return phase.FromPerPhase(a, b, c)
}
