// Package phase implements the per-phase scalar and constraint algebra that
// the allocation engine uses to reason about 1, 2, or 3-phase electrical
// sites: PhaseValues-style readings where an absent phase is distinct from
// a present-but-zero one, and PhaseConstraints-style per-mask capacity
// limits.
package phase

// Key identifies one of the seven fixed phase combinations a load can be
// wired to.
type Key int

const (
	A Key = iota
	B
	C
	AB
	AC
	BC
	ABC
)

// NumPhases returns how many of {A,B,C} are covered by this mask.
func (k Key) NumPhases() int {
	switch k {
	case A, B, C:
		return 1
	case AB, AC, BC:
		return 2
	case ABC:
		return 3
	default:
		return 0
	}
}

func (k Key) String() string {
	switch k {
	case A:
		return "A"
	case B:
		return "B"
	case C:
		return "C"
	case AB:
		return "AB"
	case AC:
		return "AC"
	case BC:
		return "BC"
	case ABC:
		return "ABC"
	default:
		return "?"
	}
}

// Values is a triple of optional non-negative reals for phases A, B, and C.
// A nil pointer means the phase does not exist at this site; a pointer to
// 0.0 means the phase exists and currently reads zero. Callers must not
// mutate the floats a Values points to — treat Values as a value type and
// use the constructors/combinators below to derive new instances.
type Values struct {
	A, B, C *float64
}

// Of builds a Values from plain float64s, all phases present.
func Of(a, b, c float64) Values {
	return Values{A: &a, B: &b, C: &c}
}

// OfSingle builds a Values with only one phase present.
func OfSingle(k Key, v float64) Values {
	switch k {
	case A:
		return Values{A: &v}
	case B:
		return Values{B: &v}
	case C:
		return Values{C: &v}
	default:
		return Values{}
	}
}

func ptr(v float64) *float64 { return &v }

// Total sums the present phases; absent phases contribute nothing.
func (v Values) Total() float64 {
	var total float64
	if v.A != nil {
		total += *v.A
	}
	if v.B != nil {
		total += *v.B
	}
	if v.C != nil {
		total += *v.C
	}
	return total
}

// ActivePhases returns the mask key describing which phases are present.
// Returns ok=false (with a zero Key that carries no meaning) if no phase is
// present, matching the "empty mask"
// ConfigDomainError case callers should guard against.
func (v Values) ActivePhases() (Key, bool) {
	a, b, c := v.A != nil, v.B != nil, v.C != nil
	switch {
	case a && b && c:
		return ABC, true
	case a && b:
		return AB, true
	case a && c:
		return AC, true
	case b && c:
		return BC, true
	case a:
		return A, true
	case b:
		return B, true
	case c:
		return C, true
	default:
		return 0, false
	}
}

// Count returns how many phases are present (0, 1, 2, or 3).
func (v Values) Count() int {
	n := 0
	if v.A != nil {
		n++
	}
	if v.B != nil {
		n++
	}
	if v.C != nil {
		n++
	}
	return n
}

// Get returns the value on a single phase, or 0 if absent.
func (v Values) Get(k Key) float64 {
	switch k {
	case A:
		if v.A != nil {
			return *v.A
		}
	case B:
		if v.B != nil {
			return *v.B
		}
	case C:
		if v.C != nil {
			return *v.C
		}
	}
	return 0
}

func combine(x, y *float64, f func(a, b float64) float64) *float64 {
	if x == nil || y == nil {
		return nil
	}
	return ptr(f(*x, *y))
}

// Add returns the element-wise sum, propagating absence: if either operand
// has a phase absent, the result has that phase absent too.
func (v Values) Add(o Values) Values {
	return Values{
		A: combine(v.A, o.A, func(a, b float64) float64 { return a + b }),
		B: combine(v.B, o.B, func(a, b float64) float64 { return a + b }),
		C: combine(v.C, o.C, func(a, b float64) float64 { return a + b }),
	}
}

// Sub returns the element-wise difference v - o, propagating absence.
func (v Values) Sub(o Values) Values {
	return Values{
		A: combine(v.A, o.A, func(a, b float64) float64 { return a - b }),
		B: combine(v.B, o.B, func(a, b float64) float64 { return a - b }),
		C: combine(v.C, o.C, func(a, b float64) float64 { return a - b }),
	}
}

// ClampNonNegative clamps every present phase at 0.
func (v Values) ClampNonNegative() Values {
	clamp := func(p *float64) *float64 {
		if p == nil {
			return nil
		}
		if *p < 0 {
			return ptr(0)
		}
		return p
	}
	return Values{A: clamp(v.A), B: clamp(v.B), C: clamp(v.C)}
}
