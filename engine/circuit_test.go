package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"loadjuggler/phase"
	"loadjuggler/site"
)

// Scenario 5: two EVSEs on a 20A per-phase group, unrestricted site,
// Priority distribution, both mask=A min=6 max=16 priority=1,2. Raw
// allocation 16/16 -> group cap reduces C2 to 4A -> below its own min ->
// C2=0, C1=16.
func TestScenario5_CircuitGroupCapZeroesBelowMinMember(t *testing.T) {
	loads := []site.Load{
		{ID: "c1", ActivePhasesMask: phase.A, MinCurrent: 6, MaxCurrent: 16, Priority: 1},
		{ID: "c2", ActivePhasesMask: phase.A, MinCurrent: 6, MaxCurrent: 16, Priority: 2},
	}
	raw := map[string]float64{"c1": 16, "c2": 16}
	groups := []site.CircuitGroup{
		{ID: "group-1", MemberIDs: []string{"c1", "c2"}, CurrentLimitPerPhase: 20},
	}

	out := ApplyCircuitGroups(loads, raw, groups)

	assert.Equal(t, 16.0, out["c1"])
	assert.Equal(t, 0.0, out["c2"])
}

func TestApplyCircuitGroups_NoReductionWhenAlreadyWithinLimit(t *testing.T) {
	loads := []site.Load{
		{ID: "c1", ActivePhasesMask: phase.A, MinCurrent: 6, MaxCurrent: 16, Priority: 1},
		{ID: "c2", ActivePhasesMask: phase.A, MinCurrent: 6, MaxCurrent: 16, Priority: 2},
	}
	raw := map[string]float64{"c1": 8, "c2": 8}
	groups := []site.CircuitGroup{
		{ID: "group-1", MemberIDs: []string{"c1", "c2"}, CurrentLimitPerPhase: 20},
	}

	out := ApplyCircuitGroups(loads, raw, groups)

	assert.Equal(t, 8.0, out["c1"])
	assert.Equal(t, 8.0, out["c2"])
}

func TestApplyCircuitGroups_PartialReductionBelowMinZeroes(t *testing.T) {
	loads := []site.Load{
		{ID: "c1", ActivePhasesMask: phase.A, MinCurrent: 6, MaxCurrent: 16, Priority: 1},
		{ID: "c2", ActivePhasesMask: phase.A, MinCurrent: 6, MaxCurrent: 16, Priority: 2},
	}
	raw := map[string]float64{"c1": 16, "c2": 10}
	groups := []site.CircuitGroup{
		{ID: "group-1", MemberIDs: []string{"c1", "c2"}, CurrentLimitPerPhase: 20},
	}

	out := ApplyCircuitGroups(loads, raw, groups)

	// excess = 26-20 = 6, taken from the lower-priority member (c2):
	// 10-6=4, below its min_current of 6, so it zeroes instead of landing
	// at 4.
	assert.Equal(t, 16.0, out["c1"])
	assert.Equal(t, 0.0, out["c2"])
}

func TestApplyCircuitGroups_HigherUrgencyMemberProtectedFromReduction(t *testing.T) {
	loads := []site.Load{
		{ID: "standard", ActivePhasesMask: phase.A, MinCurrent: 6, MaxCurrent: 16, Priority: 5, OperatingMode: site.ModeStandard},
		{ID: "excess", ActivePhasesMask: phase.A, MinCurrent: 6, MaxCurrent: 16, Priority: 1, OperatingMode: site.ModeExcess},
	}
	raw := map[string]float64{"standard": 16, "excess": 16}
	groups := []site.CircuitGroup{
		{ID: "group-1", MemberIDs: []string{"standard", "excess"}, CurrentLimitPerPhase: 20},
	}

	out := ApplyCircuitGroups(loads, raw, groups)

	// Even though excess has the better numeric priority, Standard's mode
	// urgency protects it: excess absorbs the reduction first.
	assert.Equal(t, 16.0, out["standard"])
	assert.Equal(t, 0.0, out["excess"])
}

func TestApplyCircuitGroups_UnknownMemberIDIgnored(t *testing.T) {
	loads := []site.Load{
		{ID: "c1", ActivePhasesMask: phase.A, MinCurrent: 6, MaxCurrent: 16},
	}
	raw := map[string]float64{"c1": 16}
	groups := []site.CircuitGroup{
		{ID: "group-1", MemberIDs: []string{"c1", "ghost"}, CurrentLimitPerPhase: 20},
	}

	assert.NotPanics(t, func() {
		out := ApplyCircuitGroups(loads, raw, groups)
		assert.Equal(t, 16.0, out["c1"])
	})
}
