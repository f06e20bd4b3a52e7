package engine

import (
	"sort"

	"loadjuggler/phase"
	"loadjuggler/site"
)

// ApplyCircuitGroups implements Step 6: a post-distribution cap, not a
// joint-distribution constraint. For each configured group, sum member
// contributions per phase; if a phase exceeds the group's limit, reduce
// members in reverse urgency+priority order (least urgent / lowest
// priority first) until within limit. A member reduced below its own
// min_current is set to 0 rather than left at a sub-minimum value.
//
// This is documented upstream as a simplification that may leave site
// headroom unused when a group's members don't all share the same phase
// mask — true joint optimization is out of scope.
func ApplyCircuitGroups(loads []site.Load, allocations map[string]float64, groups []site.CircuitGroup) map[string]float64 {
	out := make(map[string]float64, len(allocations))
	for k, v := range allocations {
		out[k] = v
	}

	byID := make(map[string]site.Load, len(loads))
	for _, l := range loads {
		byID[l.ID] = l
	}

	for _, g := range groups {
		applyGroup(g, byID, out)
	}
	return out
}

func applyGroup(g site.CircuitGroup, byID map[string]site.Load, out map[string]float64) {
	members := make([]site.Load, 0, len(g.MemberIDs))
	for _, id := range g.MemberIDs {
		if l, ok := byID[id]; ok {
			members = append(members, l)
		}
	}
	if len(members) == 0 {
		return
	}

	// Reverse urgency+priority order: least urgent first, and within a
	// band, highest priority number (lowest importance) first.
	sort.SliceStable(members, func(i, j int) bool {
		ui, uj := members[i].OperatingMode.Urgency(), members[j].OperatingMode.Urgency()
		if ui != uj {
			return ui > uj
		}
		return members[i].Priority > members[j].Priority
	})

	for _, p := range []phase.Key{phase.A, phase.B, phase.C} {
		reduceUntilWithinLimit(members, out, p, g.CurrentLimitPerPhase)
	}
}

// reduceUntilWithinLimit walks members touching phase p in reverse
// urgency+priority order, peeling current off each until the phase's
// combined total is within limit. A member that would drop below its own
// min_current is zeroed outright instead of left part-way reduced.
func reduceUntilWithinLimit(members []site.Load, out map[string]float64, p phase.Key, limit float64) {
	for {
		total := phaseTotal(members, out, p)
		excess := total - limit
		if excess <= 0 {
			return
		}

		reducedAny := false
		for _, m := range members {
			if !maskIncludesPhase(m.ActivePhasesMask, p) {
				continue
			}
			cur := out[m.ID]
			if cur <= 0 {
				continue
			}

			take := cur
			if take > excess {
				take = excess
			}
			next := cur - take
			if next < m.MinCurrent {
				next = 0
			}
			out[m.ID] = next
			reducedAny = true
			break
		}
		if !reducedAny {
			return // nothing left to reduce on this phase
		}
	}
}

// phaseTotal sums every member's allocated current that touches phase p,
// given the member's ActivePhasesMask.
func phaseTotal(members []site.Load, out map[string]float64, p phase.Key) float64 {
	var total float64
	for _, m := range members {
		if maskIncludesPhase(m.ActivePhasesMask, p) {
			total += out[m.ID]
		}
	}
	return total
}

func maskIncludesPhase(mask, p phase.Key) bool {
	switch mask {
	case phase.A:
		return p == phase.A
	case phase.B:
		return p == phase.B
	case phase.C:
		return p == phase.C
	case phase.AB:
		return p == phase.A || p == phase.B
	case phase.AC:
		return p == phase.A || p == phase.C
	case phase.BC:
		return p == phase.B || p == phase.C
	case phase.ABC:
		return true
	default:
		return false
	}
}
