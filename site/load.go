package site

import (
	"time"

	"loadjuggler/phase"
)

// Kind distinguishes the two controllable load categories the engine
// understands.
type Kind int

const (
	KindEVSE Kind = iota
	KindPlug
)

// Mode is the tagged variant for a load's operating mode. EVSE and Plug
// loads share the Standard/Continuous-style "always allowed" entry and the
// SolarOnly/Excess entries; SolarPriority only applies to EVSE.
type Mode int

const (
	ModeStandard Mode = iota
	ModeContinuous
	ModeSolarPriority
	ModeSolarOnly
	ModeExcess
)

// Urgency returns the coarse mode-urgency band used to order distribution
// before numeric priority is consulted: Standard/Continuous > SolarPriority
// > SolarOnly > Excess. Lower returned value = higher urgency.
func (m Mode) Urgency() int {
	switch m {
	case ModeStandard, ModeContinuous:
		return 0
	case ModeSolarPriority:
		return 1
	case ModeSolarOnly:
		return 2
	case ModeExcess:
		return 3
	default:
		return 99
	}
}

// ConnectorStatus mirrors OCPP connector states for EVSE loads. Plugs use
// only Available ("idle") and Charging ("active").
type ConnectorStatus int

const (
	StatusAvailable ConnectorStatus = iota
	StatusPreparing
	StatusCharging
	StatusSuspendedEV
	StatusSuspendedEVSE
	StatusFinishing
	StatusFaulted
)

// IsEligible reports whether a load in this connector state should be
// considered for allocation at all this tick.
func (s ConnectorStatus) IsEligible() bool {
	switch s {
	case StatusPreparing, StatusCharging, StatusSuspendedEV:
		return true
	default:
		return false
	}
}

// Reason is the diagnostic the engine attaches to every load's result so
// the host can explain a target to a user without re-deriving the engine's
// internal decision.
type Reason int

const (
	ReasonAllocated Reason = iota
	ReasonBelowMin
	ReasonPausedGrace
	ReasonCircuitCapped
	ReasonModeDisallowed
	ReasonGridStale
	ReasonFaulted
)

func (r Reason) String() string {
	switch r {
	case ReasonAllocated:
		return "Allocated"
	case ReasonBelowMin:
		return "BelowMin"
	case ReasonPausedGrace:
		return "PausedGrace"
	case ReasonCircuitCapped:
		return "CircuitCapped"
	case ReasonModeDisallowed:
		return "ModeDisallowed"
	case ReasonGridStale:
		return "GridStale"
	case ReasonFaulted:
		return "Faulted"
	default:
		return "Unknown"
	}
}

// Load is the per-tick snapshot of one managed EVSE or plug, plus the
// engine's output fields once a tick has run.
type Load struct {
	ID   string
	Kind Kind

	Phases          int      // hardware capability: 1, 2, or 3
	ActivePhasesMask phase.Key // what the load is actually wired to

	MinCurrent float64
	MaxCurrent float64
	Priority   int // lower = higher priority, default 1

	OperatingMode    Mode
	ConnectorStatus  ConnectorStatus

	// MeasuredDraw is this load's own measured current per site phase,
	// used only for feedback correction (§4.1) and diagnostics.
	MeasuredDraw phase.Values

	RatedPower float64 // plug only: watts at "on"

	GraceHoldDuration   time.Duration // §4.8: Active -> GraceHold -> Paused
	ChargePauseDuration time.Duration // §4.8: minimum dwell time in Paused

	// Output, populated by the engine after a tick.
	TargetCurrent float64
	Reason        Reason
}

// IsActive reports whether this load should be considered by distribution
// this tick (eligible connector state, not faulted).
func (l Load) IsActive() bool {
	if l.ConnectorStatus == StatusFaulted {
		return false
	}
	if l.Kind == KindPlug {
		return l.ConnectorStatus == StatusAvailable || l.ConnectorStatus == StatusCharging
	}
	return l.ConnectorStatus.IsEligible()
}
