package engine

import (
	"loadjuggler/phase"
	"loadjuggler/site"
)

// CorrectFeedback implements Step 0: grid CT readings include current this
// engine itself previously commanded, so left uncorrected, raising
// allocation looks like raised background consumption and the engine
// chases its own tail. It subtracts every load's measured per-phase draw
// from ctx.Consumption before any limit is derived.
//
// Each load's subtracted amount is clamped to its MaxCurrent (defensive:
// some hardware reports a single phase's total across all three). A load's
// MeasuredDraw only reports the phases it is actually wired to, so
// subtraction is done per-phase against whatever ctx.Consumption already
// has present, rather than through Values.Sub, which would otherwise treat
// a load's unwired phases as "absent" and wipe out the site's consumption
// reading on phases that load never touches. If a subtraction would push a
// phase negative, it is clamped at 0 and a diagnostic is recorded — that
// condition means a sensor or wiring mismatch upstream.
func CorrectFeedback(ctx site.Context, diag *Diagnostics) site.Context {
	consumption := ctx.Consumption

	for _, l := range ctx.Loads {
		draw := clampDraw(l.MeasuredDraw, l.MaxCurrent)
		consumption, _ = subtractPhase(consumption, phase.A, draw.A, l.ID, diag)
		consumption, _ = subtractPhase(consumption, phase.B, draw.B, l.ID, diag)
		consumption, _ = subtractPhase(consumption, phase.C, draw.C, l.ID, diag)
	}

	ctx.Consumption = consumption
	return ctx
}

// subtractPhase subtracts draw (if present) from consumption's phase k,
// leaving the phase untouched if either side is absent, and clamping the
// result at 0 while recording a diagnostic if it would have gone negative.
func subtractPhase(consumption phase.Values, k phase.Key, draw *float64, loadID string, diag *Diagnostics) (phase.Values, bool) {
	if draw == nil {
		return consumption, false
	}
	var cur *float64
	switch k {
	case phase.A:
		cur = consumption.A
	case phase.B:
		cur = consumption.B
	case phase.C:
		cur = consumption.C
	}
	if cur == nil {
		return consumption, false
	}

	next := *cur - *draw
	if next < 0 {
		diag.add("feedback correction: load %s measured draw exceeds grid consumption on phase %s; sensor or wiring mismatch suspected", loadID, k)
		next = 0
	}

	switch k {
	case phase.A:
		consumption.A = &next
	case phase.B:
		consumption.B = &next
	case phase.C:
		consumption.C = &next
	}
	return consumption, true
}

func clampDraw(draw phase.Values, max float64) phase.Values {
	clamp := func(p *float64) *float64 {
		if p == nil {
			return p
		}
		v := *p
		if v > max {
			v = max
		}
		return &v
	}
	return phase.Values{A: clamp(draw.A), B: clamp(draw.B), C: clamp(draw.C)}
}
