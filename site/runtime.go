package site

import "time"

// LoadState is the per-load state machine (§4.8): Idle/Eligible/Active/
// GraceHold/Paused/Faulted. Transitions are driven by the engine each tick
// from the load's ConnectorStatus and the ceiling/distribution result.
type LoadState int

const (
	StateIdle LoadState = iota
	StateEligible
	StateActive
	StateGraceHold
	StatePaused
	StateFaulted
)

func (s LoadState) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateEligible:
		return "Eligible"
	case StateActive:
		return "Active"
	case StateGraceHold:
		return "GraceHold"
	case StatePaused:
		return "Paused"
	case StateFaulted:
		return "Faulted"
	default:
		return "Unknown"
	}
}

// LoadRuntimeState is the mutable, persisted-across-ticks state the engine
// threads through for one load: smoothing memory, ramp memory, and the
// state machine's current state plus how long it has held it. The engine
// never mutates this in place — every step takes the previous state and
// returns the next one explicitly.
type LoadRuntimeState struct {
	State          LoadState
	StateSince     time.Time
	SmoothedTarget float64 // EMA output from the previous tick, amps
	LastTarget     float64 // ramp-limited output actually sent last tick, amps
}

// HubRuntimeState is the full persisted state for a site: every load's
// runtime state keyed by load ID, plus site-wide EMA memory for the raw
// sensor inputs, smoothed before feedback correction runs.
type HubRuntimeState struct {
	Loads               map[string]LoadRuntimeState
	SmoothedGridMeasured map[string]float64 // EMA memory keyed by signal: grid_a/b/c, solar, battery_power
}

// NewHubRuntimeState returns a zero-value runtime state ready for the first
// tick: every load starts Idle.
func NewHubRuntimeState() HubRuntimeState {
	return HubRuntimeState{
		Loads:               make(map[string]LoadRuntimeState),
		SmoothedGridMeasured: make(map[string]float64),
	}
}

// LoadState looks up a load's runtime state, returning the zero value
// (StateIdle) if this is the load's first tick.
func (h HubRuntimeState) LoadState(id string) LoadRuntimeState {
	if s, ok := h.Loads[id]; ok {
		return s
	}
	return LoadRuntimeState{State: StateIdle}
}

// WithLoadState returns a copy of h with load id's state replaced. The
// receiver's map is not mutated; callers must assign the result.
func (h HubRuntimeState) WithLoadState(id string, s LoadRuntimeState) HubRuntimeState {
	next := make(map[string]LoadRuntimeState, len(h.Loads)+1)
	for k, v := range h.Loads {
		next[k] = v
	}
	next[id] = s
	return HubRuntimeState{Loads: next, SmoothedGridMeasured: h.SmoothedGridMeasured}
}
