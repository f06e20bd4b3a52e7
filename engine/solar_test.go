package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"loadjuggler/phase"
	"loadjuggler/site"
)

func TestDeriveSolarSurplus_SymmetricSplitsAcrossActivePhases(t *testing.T) {
	ctx := site.Context{
		Voltage:              230,
		Consumption:          phase.Of(0, 0, 0),
		SolarProductionTotal: 6900,
	}

	c := DeriveSolarSurplus(ctx)

	assert.InDelta(t, 10.0, c.A, 0.01)
	assert.InDelta(t, 10.0, c.B, 0.01)
	assert.InDelta(t, 10.0, c.C, 0.01)
	assert.InDelta(t, 30.0, c.ABC, 0.01)
}

func TestDeriveSolarSurplus_AsymmetricPoolsWithPerPhaseCap(t *testing.T) {
	ctx := site.Context{
		Voltage:              230,
		SolarProductionTotal: 6900,
		Inverter:             site.Inverter{MaxPower: 6900, MaxPowerPerPhase: 3680, Asymmetric: true},
	}

	c := DeriveSolarSurplus(ctx)

	assert.InDelta(t, 16.0, c.A, 0.01) // min(30, 16) per-phase cap
	assert.InDelta(t, 30.0, c.ABC, 0.01)
}

func TestDeriveSolarSurplus_BatteryBelowTargetReservesCharge(t *testing.T) {
	ctx := site.Context{
		Voltage:              230,
		SolarProductionTotal: 6900,
		Battery: site.Battery{
			Present: true, SOC: 50, SOCMin: 20, SOCTarget: 80,
			MaxChargePower: 2000,
		},
	}

	c := DeriveSolarSurplus(ctx)

	// net = 6900 - 2000 = 4900W = 21.3A, split across 3 phases.
	assert.InDelta(t, 4900.0/230/3, c.A, 0.01)
}

func TestDeriveSolarSurplus_BatteryAboveTargetAddsDischarge(t *testing.T) {
	ctx := site.Context{
		Voltage:              230,
		SolarProductionTotal: 2000,
		Battery: site.Battery{
			Present: true, SOC: 90, SOCMin: 20, SOCTarget: 80, SOCHysteresis: 3,
			MaxDischargePower: 1000,
		},
	}

	c := DeriveSolarSurplus(ctx)

	assert.InDelta(t, 3000.0/230/3, c.A, 0.01)
}

// End-to-end scenario 1: solar-only, single load, sunny. 3-phase, 230V, no
// battery, solar_production=6900W, zero consumption, one EVSE min=6 max=16
// mask=ABC mode=SolarOnly. Expected target=10.0A.
func TestScenario1_SolarOnlySunnySingleLoad(t *testing.T) {
	ctx := site.Context{
		Voltage:              230,
		Consumption:          phase.Of(0, 0, 0),
		SolarProductionTotal: 6900,
		DistributionMode:     site.DistributionPriority,
		Loads: []site.Load{
			{
				ID: "evse-1", Kind: site.KindEVSE, ActivePhasesMask: phase.ABC,
				MinCurrent: 6, MaxCurrent: 16, OperatingMode: site.ModeSolarOnly,
				ConnectorStatus: site.StatusCharging,
			},
		},
	}

	res := Run(ctx, site.NewHubRuntimeState(), instantConfig(), time.Now())

	assert.Len(t, res.Loads, 1)
	assert.InDelta(t, 10.0, res.Loads[0].TargetCurrent, 0.05)
}
