// Package statemach implements the per-load state machine: Idle, Eligible,
// Active, GraceHold, Paused, Faulted. The engine calls Transition once per
// load per tick with the load's connector status and whether this tick's
// ceiling evaluation would allow it any current at all; the machine is the
// single place that decides how briefly-ineligible loads get a grace
// period before being fully paused, and how a paused load recovers.
package statemach

import (
	"time"

	"loadjuggler/site"
)

// Input is everything the state machine needs to decide a load's next
// state for one tick.
type Input struct {
	Now time.Time

	ConnectorStatus  site.ConnectorStatus
	CeilingAllowsAny bool // did mode/ceiling evaluation leave this load any headroom?
	Allocated        float64 // current actually allocated this tick, amps
	MinCurrent       float64

	GraceHoldDuration   time.Duration // how long GraceHold lasts before demoting to Paused
	ChargePauseDuration time.Duration // minimum dwell time in Paused before Active is allowed again
}

// Transition computes the next runtime state for a load given its previous
// state and this tick's Input. It never mutates prev; callers assign the
// returned value.
func Transition(prev site.LoadRuntimeState, in Input) site.LoadRuntimeState {
	next := prev

	if in.ConnectorStatus == site.StatusFaulted {
		return enter(next, site.StateFaulted, in.Now)
	}

	if !in.ConnectorStatus.IsEligible() {
		return enter(next, site.StateIdle, in.Now)
	}

	switch prev.State {
	case site.StateFaulted:
		// A load only leaves Faulted once its connector status itself
		// clears Faulted, which is handled by the check above; reaching
		// here with ConnectorStatus eligible means the fault cleared.
		return enter(next, site.StateEligible, in.Now)

	case site.StateIdle, site.StateEligible:
		if in.CeilingAllowsAny && in.Allocated >= in.MinCurrent {
			return enter(next, site.StateActive, in.Now)
		}
		return enter(next, site.StateEligible, in.Now)

	case site.StateActive:
		if in.CeilingAllowsAny && in.Allocated >= in.MinCurrent {
			return next // stays Active, StateSince untouched
		}
		return enter(next, site.StateGraceHold, in.Now)

	case site.StateGraceHold:
		if in.CeilingAllowsAny && in.Allocated >= in.MinCurrent {
			return enter(next, site.StateActive, in.Now)
		}
		if in.Now.Sub(prev.StateSince) >= in.GraceHoldDuration {
			return enter(next, site.StatePaused, in.Now)
		}
		return next // remain in GraceHold, counting down

	case site.StatePaused:
		dwelled := in.Now.Sub(prev.StateSince) >= in.ChargePauseDuration
		if dwelled && in.CeilingAllowsAny && in.Allocated >= in.MinCurrent {
			return enter(next, site.StateActive, in.Now)
		}
		return next // remain Paused until conditions improve and minimum dwell has elapsed

	default:
		return enter(next, site.StateEligible, in.Now)
	}
}

func enter(s site.LoadRuntimeState, state site.LoadState, now time.Time) site.LoadRuntimeState {
	if s.State == state {
		return s
	}
	s.State = state
	s.StateSince = now
	return s
}
