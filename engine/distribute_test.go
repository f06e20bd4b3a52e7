package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"loadjuggler/phase"
	"loadjuggler/site"
)

func pool(total, perPhaseCap float64) Pools {
	c := phase.FromPool(total, perPhaseCap)
	return Pools{SiteLimit: c, GridOnly: c, SolarSurplus: c, ExcessPool: c}
}

func TestDistribute_SharedSplitsRemainderEqually(t *testing.T) {
	loads := []site.Load{
		{ID: "a", ActivePhasesMask: phase.A, MinCurrent: 6, MaxCurrent: 16, Priority: 1},
		{ID: "b", ActivePhasesMask: phase.B, MinCurrent: 6, MaxCurrent: 16, Priority: 2},
	}
	ceilings := map[string]Ceiling{
		"a": {Max: 16, Pool: PoolSiteLimit},
		"b": {Max: 16, Pool: PoolSiteLimit},
	}

	out := Distribute(loads, ceilings, pool(20, 16), site.DistributionShared)

	assert.InDelta(t, out["a"], out["b"], 0.01)
	assert.InDelta(t, 20.0, out["a"]+out["b"], 0.1)
}

func TestDistribute_PriorityGivesFirstLoadHeadroomBeforeNext(t *testing.T) {
	loads := []site.Load{
		{ID: "a", ActivePhasesMask: phase.A, MinCurrent: 6, MaxCurrent: 16, Priority: 1},
		{ID: "b", ActivePhasesMask: phase.B, MinCurrent: 6, MaxCurrent: 16, Priority: 2},
	}
	ceilings := map[string]Ceiling{
		"a": {Max: 16, Pool: PoolSiteLimit},
		"b": {Max: 16, Pool: PoolSiteLimit},
	}

	out := Distribute(loads, ceilings, pool(20, 16), site.DistributionPriority)

	assert.InDelta(t, 14.0, out["a"], 0.01)
	assert.InDelta(t, 6.0, out["b"], 0.01)
}

func TestDistribute_StrictGatesNextLoadOnPreviousReachingMax(t *testing.T) {
	loads := []site.Load{
		{ID: "a", ActivePhasesMask: phase.A, MinCurrent: 6, MaxCurrent: 8, Priority: 1},
		{ID: "b", ActivePhasesMask: phase.B, MinCurrent: 6, MaxCurrent: 16, Priority: 2},
	}
	ceilings := map[string]Ceiling{
		"a": {Max: 8, Pool: PoolSiteLimit},
		"b": {Max: 16, Pool: PoolSiteLimit},
	}

	out := Distribute(loads, ceilings, pool(20, 16), site.DistributionStrict)

	assert.InDelta(t, 8.0, out["a"], 0.01) // reaches its own max
	assert.True(t, out["b"] > 0)           // so b proceeds too
}

func TestDistribute_StrictStopsAtFirstLoadBelowItsMax(t *testing.T) {
	loads := []site.Load{
		{ID: "a", ActivePhasesMask: phase.A, MinCurrent: 6, MaxCurrent: 16, Priority: 1},
		{ID: "b", ActivePhasesMask: phase.B, MinCurrent: 6, MaxCurrent: 16, Priority: 2},
	}
	ceilings := map[string]Ceiling{
		"a": {Max: 16, Pool: PoolSiteLimit},
		"b": {Max: 16, Pool: PoolSiteLimit},
	}

	// Pool only has 10A total, so load a never reaches its 16A max.
	out := Distribute(loads, ceilings, pool(10, 16), site.DistributionStrict)

	assert.True(t, out["a"] > 0)
	assert.Equal(t, 0.0, out["b"])
}

func TestDistribute_ModeUrgencyOrderedBeforePriority(t *testing.T) {
	loads := []site.Load{
		{ID: "excess", ActivePhasesMask: phase.A, MinCurrent: 6, MaxCurrent: 16, Priority: 1, OperatingMode: site.ModeExcess},
		{ID: "standard", ActivePhasesMask: phase.B, MinCurrent: 6, MaxCurrent: 16, Priority: 9, OperatingMode: site.ModeStandard},
	}
	ceilings := map[string]Ceiling{
		"excess":   {Max: 16, Pool: PoolSiteLimit},
		"standard": {Max: 16, Pool: PoolSiteLimit},
	}

	// Only 6A of headroom beyond both minimums; the higher-urgency
	// Standard load must win it even though its numeric priority is worse.
	out := Distribute(loads, ceilings, pool(18, 16), site.DistributionPriority)

	assert.InDelta(t, 6.0, out["excess"], 0.01)
	assert.InDelta(t, 12.0, out["standard"], 0.01)
}

func TestDistribute_MixedMaskRespectsABCDivisorEvenWithPhaseHeadroom(t *testing.T) {
	// Mirrors spec scenario 4: 30A asymmetric pool, one 3-phase load (C1,
	// priority 1) and one single-phase load on B (C2, priority 2), both
	// SolarPriority, with ceilings handed in directly on the solar surplus
	// pool for both minimum and remainder.
	loads := []site.Load{
		{ID: "c1", ActivePhasesMask: phase.ABC, MinCurrent: 6, MaxCurrent: 16, Priority: 1, OperatingMode: site.ModeSolarPriority},
		{ID: "c2", ActivePhasesMask: phase.B, MinCurrent: 6, MaxCurrent: 16, Priority: 2, OperatingMode: site.ModeSolarPriority},
	}
	ceilings := map[string]Ceiling{
		"c1": {Max: 16, Pool: PoolSolarSurplus},
		"c2": {Max: 16, Pool: PoolSolarSurplus},
	}

	out := Distribute(loads, ceilings, pool(30, 30), site.DistributionPriority)

	assert.InDelta(t, 8.0, out["c1"], 0.01)
	assert.InDelta(t, 6.0, out["c2"], 0.01)
}

func TestDistribute_DisallowedLoadNeverAllocated(t *testing.T) {
	loads := []site.Load{
		{ID: "a", ActivePhasesMask: phase.A, MinCurrent: 6, MaxCurrent: 16, Priority: 1},
	}
	ceilings := map[string]Ceiling{"a": {Disallowed: true}}

	out := Distribute(loads, ceilings, pool(20, 16), site.DistributionPriority)

	_, ok := out["a"]
	assert.False(t, ok)
}
