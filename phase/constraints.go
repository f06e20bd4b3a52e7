package phase

import "math"

// Constraints is a fixed mapping from the seven phase-combination keys to
// the maximum current (amperes) a load occupying exactly that combination
// may draw. Unlike Values, every field is always "present" — a limit of
// zero phases simply isn't representable by a physical load, so there is
// no absence to track here, only magnitude.
//
// Invariants maintained by every constructor/operation in this file:
//   - AB <= A+B, AC <= A+C, BC <= B+C
//   - ABC <= A+B+C
//   - every field >= 0
type Constraints struct {
	A, B, C, AB, AC, BC, ABC float64
}

// FromPerPhase builds constraints from independent per-phase breaker
// ratings: combination keys are the pairwise/triple sums, matching a site
// where each phase has its own headroom and combining phases just adds
// them up (e.g. the raw grid limit before inverter sharing).
func FromPerPhase(a, b, c float64) Constraints {
	return Constraints{
		A: a, B: b, C: c,
		AB: a + b, AC: a + c, BC: b + c,
		ABC: a + b + c,
	}.Normalize()
}

// FromPool builds constraints from a single shared pool of current, such
// as an asymmetric inverter's total output capped per-phase. perPhaseCap
// is the max a single phase may draw from the pool; pass math.Inf(1) (or
// any value >= total) for no per-phase cap.
func FromPool(total, perPhaseCap float64) Constraints {
	if perPhaseCap < 0 {
		perPhaseCap = 0
	}
	single := math.Min(total, perPhaseCap)
	pair := math.Min(total, 2*perPhaseCap)
	return Constraints{
		A: single, B: single, C: single,
		AB: pair, AC: pair, BC: pair,
		ABC: total,
	}.Normalize()
}

// Zero returns a constraints value with every key at zero.
func Zero() Constraints { return Constraints{} }

// GetAvailable returns the maximum per-phase current a load wired to mask
// may draw from these constraints: the minimum of each individual phase in
// the mask, the mask's own combination key divided by its phase count, and
// ABC divided by the mask's phase count. The ABC-divisor term is what
// prevents a shared pool (asymmetric inverter, solar surplus) from being
// over-subscribed by several loads on different phase masks at once.
func (c Constraints) GetAvailable(mask Key) float64 {
	n := mask.NumPhases()
	if n == 0 {
		return 0
	}

	available := c.ABC / float64(n)

	clampPhase := func(limit float64) {
		if limit < available {
			available = limit
		}
	}

	switch mask {
	case A:
		clampPhase(c.A)
	case B:
		clampPhase(c.B)
	case C:
		clampPhase(c.C)
	case AB:
		clampPhase(c.A)
		clampPhase(c.B)
		clampPhase(c.AB / 2)
	case AC:
		clampPhase(c.A)
		clampPhase(c.C)
		clampPhase(c.AC / 2)
	case BC:
		clampPhase(c.B)
		clampPhase(c.C)
		clampPhase(c.BC / 2)
	case ABC:
		clampPhase(c.A)
		clampPhase(c.B)
		clampPhase(c.C)
		clampPhase(c.ABC / 3)
	}

	return math.Max(0, available)
}

// Deduct subtracts a load drawing current amps on mask from every
// constraint key the draw overlaps, then normalizes. A single-phase draw
// on A reduces A, every pair containing A, and ABC; a three-phase draw
// reduces every key.
func (c Constraints) Deduct(current float64, mask Key) Constraints {
	n := float64(mask.NumPhases())
	total := current * n

	affectsA := mask == A || mask == AB || mask == AC || mask == ABC
	affectsB := mask == B || mask == AB || mask == BC || mask == ABC
	affectsC := mask == C || mask == AC || mask == BC || mask == ABC

	out := c
	if affectsA {
		out.A -= current
	}
	if affectsB {
		out.B -= current
	}
	if affectsC {
		out.C -= current
	}

	if affectsA || affectsB {
		out.AB -= total
	}
	if affectsA || affectsC {
		out.AC -= total
	}
	if affectsB || affectsC {
		out.BC -= total
	}
	out.ABC -= total

	return out.Normalize()
}

// Add returns the element-wise sum of two constraint sets, then
// normalizes (the sum of two valid constraint sets is always itself
// valid, but Normalize is cheap and keeps this function defensive against
// future callers that build ad-hoc Constraints by hand).
func (c Constraints) Add(o Constraints) Constraints {
	return Constraints{
		A: c.A + o.A, B: c.B + o.B, C: c.C + o.C,
		AB: c.AB + o.AB, AC: c.AC + o.AC, BC: c.BC + o.BC,
		ABC: c.ABC + o.ABC,
	}.Normalize()
}

// Normalize cascade-reduces the combination keys so the type's invariants
// hold: every field clamped at 0, every pair capped at the sum of its two
// phases, and ABC capped at the sum of all three.
func (c Constraints) Normalize() Constraints {
	clamp := func(v float64) float64 {
		if v < 0 || math.IsNaN(v) {
			return 0
		}
		return v
	}

	c.A = clamp(c.A)
	c.B = clamp(c.B)
	c.C = clamp(c.C)
	c.AB = clamp(math.Min(c.AB, c.A+c.B))
	c.AC = clamp(math.Min(c.AC, c.A+c.C))
	c.BC = clamp(math.Min(c.BC, c.B+c.C))
	c.ABC = clamp(math.Min(c.ABC, c.A+c.B+c.C))

	return c
}
