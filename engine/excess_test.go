package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"loadjuggler/phase"
	"loadjuggler/site"
)

func TestDeriveExcessPool_ZeroBelowThreshold(t *testing.T) {
	ctx := site.Context{
		Voltage:               230,
		ExcessExportThreshold: 10000,
		TotalExportPower:      9000,
	}

	c := DeriveExcessPool(ctx)

	assert.Equal(t, phase.Zero(), c)
}

func TestDeriveExcessPool_NearlyFullBatteryFallsBackToSolarSurplus(t *testing.T) {
	ctx := site.Context{
		Voltage:               230,
		ExcessExportThreshold: 10000,
		TotalExportPower:      15000,
		SolarProductionTotal:  6900,
		Battery:               site.Battery{Present: true, SOC: 99, SOCMin: 20, SOCTarget: 80},
	}

	c := DeriveExcessPool(ctx)
	solar := DeriveSolarSurplus(ctx)

	assert.Equal(t, solar, c)
}

func TestEffectiveExcessThreshold_ReservesChargeForBatteryBelowTarget(t *testing.T) {
	ctx := site.Context{
		ExcessExportThreshold: 10000,
		Battery: site.Battery{
			Present: true, SOC: 50, SOCMin: 20, SOCTarget: 80,
			MaxChargePower: 2000,
		},
	}

	assert.Equal(t, 12000.0, effectiveExcessThreshold(ctx))
}

// End-to-end scenario 2: excess mode above threshold. Asymmetric inverter,
// no other load, export_power=11840W, threshold=10000W, one EVSE mask=A
// min=6 max=16 mode=Excess. Expected target=8.0A.
func TestScenario2_ExcessAboveThreshold(t *testing.T) {
	ctx := site.Context{
		Voltage:               230,
		ExcessExportThreshold: 10000,
		TotalExportPower:      11840,
		DistributionMode:      site.DistributionPriority,
		Inverter:              site.Inverter{MaxPower: 11840, MaxPowerPerPhase: 3680, Asymmetric: true},
		Loads: []site.Load{
			{
				ID: "evse-1", Kind: site.KindEVSE, ActivePhasesMask: phase.A,
				MinCurrent: 6, MaxCurrent: 16, OperatingMode: site.ModeExcess,
				ConnectorStatus: site.StatusCharging,
			},
		},
	}

	res := Run(ctx, site.NewHubRuntimeState(), instantConfig(), time.Now())

	assert.Len(t, res.Loads, 1)
	assert.InDelta(t, 8.0, res.Loads[0].TargetCurrent, 0.05)
}
