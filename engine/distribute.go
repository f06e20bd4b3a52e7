package engine

import (
	"sort"

	"loadjuggler/phase"
	"loadjuggler/site"
)

// candidate is one active load entered into Step 5, carrying its Step 4
// ceiling plus the ordering key (mode urgency, then priority) Distribute
// walks in.
type candidate struct {
	load    site.Load
	ceiling Ceiling
	mask    phase.Key

	allocated float64
}

// poolsForMin and poolsForRemainder name which constraint pool a
// candidate's pass-1 minimum check and pass-2 remainder draw from;
// PoolSolarPriority is the only
// mode where these differ (grid may cover the minimum, only solar
// surplus covers anything beyond it).
func poolsForMin(pools *Pools, ref PoolRef) *phase.Constraints {
	switch ref {
	case PoolSiteLimit:
		return &pools.SiteLimit
	case PoolGridOnly:
		return &pools.GridOnly
	case PoolSolarSurplus:
		return &pools.SolarSurplus
	case PoolExcessPool:
		return &pools.ExcessPool
	case PoolSolarPriority:
		return &pools.SiteLimit
	default:
		return nil
	}
}

func poolsForRemainder(pools *Pools, ref PoolRef) *phase.Constraints {
	if ref == PoolSolarPriority {
		return &pools.SolarSurplus
	}
	return poolsForMin(pools, ref)
}

// orderCandidates sorts by mode urgency first, then by numeric priority
// (lower wins), stable so equal-ranked loads keep their input order.
func orderCandidates(cands []candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		ui, uj := cands[i].load.OperatingMode.Urgency(), cands[j].load.OperatingMode.Urgency()
		if ui != uj {
			return ui < uj
		}
		return cands[i].load.Priority < cands[j].load.Priority
	})
}

// Distribute implements Step 5: given Step 4 ceilings and the pools they
// draw from, allocate each active load's target_current subject to every
// relevant PhaseConstraints pool simultaneously, per the site's configured
// DistributionMode.
func Distribute(loads []site.Load, ceilings map[string]Ceiling, pools Pools, mode site.DistributionMode) map[string]float64 {
	cands := make([]candidate, 0, len(loads))
	for _, l := range loads {
		c := ceilings[l.ID]
		if c.Disallowed {
			continue
		}
		cands = append(cands, candidate{load: l, ceiling: c, mask: l.ActivePhasesMask})
	}
	orderCandidates(cands)

	switch mode {
	case site.DistributionShared:
		distributeTwoPass(cands, &pools, true)
	case site.DistributionPriority:
		distributeTwoPass(cands, &pools, false)
	case site.DistributionOptimized:
		distributeSequential(cands, &pools, false)
	case site.DistributionStrict:
		distributeSequential(cands, &pools, true)
	}

	out := make(map[string]float64, len(cands))
	for _, c := range cands {
		out[c.load.ID] = c.allocated
	}
	return out
}

// distributeTwoPass implements Shared and Priority: pass 1 grants
// min_current to every candidate that can support it, deducting from the
// pool(s) it used; pass 2 hands out the remainder either split equally
// (shared) or in strict priority order (priority).
func distributeTwoPass(cands []candidate, pools *Pools, shared bool) {
	for i := range cands {
		c := &cands[i]
		minPool := poolsForMin(pools, c.ceiling.Pool)
		if minPool == nil {
			continue
		}
		available := minPool.GetAvailable(c.mask)
		if available >= c.load.MinCurrent && c.load.MinCurrent > 0 {
			c.allocated = c.load.MinCurrent
			*minPool = minPool.Deduct(c.allocated, c.mask)
			// A granted minimum also uses up the same amount of the
			// remainder pool (solar surplus for PoolSolarPriority), so pass 2
			// only hands out what is left of it.
			if remPool := poolsForRemainder(pools, c.ceiling.Pool); remPool != minPool {
				*remPool = remPool.Deduct(c.allocated, c.mask)
			}
		} else if c.load.MinCurrent == 0 {
			// A zero minimum (e.g. misconfigured) never blocks pass 1;
			// leave allocation at 0 and let pass 2 decide.
			continue
		}
	}

	if shared {
		distributeSharedRemainder(cands, pools)
		return
	}
	distributePriorityRemainder(cands, pools)
}

// distributeSharedRemainder repeatedly splits each pool's remaining
// headroom equally among candidates still below their ceiling, until no
// candidate can accept more or every relevant pool is exhausted.
func distributeSharedRemainder(cands []candidate, pools *Pools) {
	for {
		progressed := false

		active := make([]*candidate, 0, len(cands))
		for i := range cands {
			c := &cands[i]
			if c.allocated == 0 && c.load.MinCurrent > 0 {
				continue // never reached its minimum, sits out the remainder
			}
			remPool := poolsForRemainder(pools, c.ceiling.Pool)
			if remPool == nil {
				continue
			}
			headroom := c.ceiling.Max - c.allocated
			if headroom <= 0 {
				continue
			}
			if remPool.GetAvailable(c.mask) <= 0 {
				continue
			}
			active = append(active, c)
		}
		if len(active) == 0 {
			break
		}

		// Shares are fixed from the headroom at the start of the round, so
		// earlier candidates' deductions do not shrink later candidates'
		// shares within the same round.
		shares := make([]float64, len(active))
		for i, c := range active {
			remPool := poolsForRemainder(pools, c.ceiling.Pool)
			shares[i] = remPool.GetAvailable(c.mask) / float64(len(active))
		}

		for i, c := range active {
			remPool := poolsForRemainder(pools, c.ceiling.Pool)
			share := shares[i]
			if available := remPool.GetAvailable(c.mask); share > available {
				share = available
			}
			headroom := c.ceiling.Max - c.allocated
			if share > headroom {
				share = headroom
			}
			if share <= 0 {
				continue
			}
			c.allocated += share
			*remPool = remPool.Deduct(share, c.mask)
			progressed = true
		}

		if !progressed {
			break
		}
	}
}

// distributePriorityRemainder walks candidates in priority order, giving
// each as much as its ceiling and pool allow before moving to the next.
func distributePriorityRemainder(cands []candidate, pools *Pools) {
	for i := range cands {
		c := &cands[i]
		remPool := poolsForRemainder(pools, c.ceiling.Pool)
		if remPool == nil {
			continue
		}
		headroom := c.ceiling.Max - c.allocated
		if headroom <= 0 {
			continue
		}
		available := remPool.GetAvailable(c.mask)
		take := available
		if take > headroom {
			take = headroom
		}
		if take <= 0 {
			continue
		}
		c.allocated += take
		*remPool = remPool.Deduct(take, c.mask)
	}

	belowMinToZero(cands)
}

// distributeSequential implements Optimized (every load gets whatever its
// pool allows, in priority order, regardless of neighbors) and Strict
// (load N only receives anything once load N-1 reached its own max).
func distributeSequential(cands []candidate, pools *Pools, strict bool) {
	prevReachedMax := true
	for i := range cands {
		c := &cands[i]
		if strict && !prevReachedMax {
			c.allocated = 0
			continue
		}

		remPool := poolsForRemainder(pools, c.ceiling.Pool)
		if remPool == nil {
			prevReachedMax = false
			continue
		}
		available := remPool.GetAvailable(c.mask)
		take := available
		if take > c.ceiling.Max {
			take = c.ceiling.Max
		}
		if take < 0 {
			take = 0
		}
		c.allocated = take
		*remPool = remPool.Deduct(take, c.mask)

		prevReachedMax = take >= c.ceiling.Max
	}

	belowMinToZero(cands)
}

// belowMinToZero enforces the universal invariant that target_current is
// either 0 or within [min_current, max_current]: any candidate that ended
// up allocated something but short of its own minimum is zeroed (its
// partial allocation returns to the pool conceptually, though since each
// pool snapshot is local to this Distribute call, no further deduction is
// needed).
func belowMinToZero(cands []candidate) {
	for i := range cands {
		c := &cands[i]
		if c.allocated > 0 && c.allocated < c.load.MinCurrent {
			c.allocated = 0
		}
	}
}
