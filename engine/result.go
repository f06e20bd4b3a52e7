// Package engine implements the pure multi-load allocation pipeline:
// feedback correction, site/solar/excess limit derivation, per-load mode
// ceiling evaluation, constraint-respecting distribution, and the
// circuit-group post-cap, wrapped in smoothing, rate limiting, and the
// per-load state machine.
package engine

import (
	"fmt"

	"loadjuggler/site"
)

// LoadResult is one load's output for a tick: the current it may draw and
// why.
type LoadResult struct {
	ID            string
	TargetCurrent float64
	Reason        site.Reason
	State         site.LoadState
	Pool          PoolRef // which constraint pool Step 4 drew this load's ceiling from
}

// Diagnostics captures human-readable notes the pipeline emitted this
// tick — sensor/wiring mismatches, clamps, and other InvariantViolation or
// ConfigDomainError corrections that were silently handled rather than
// propagated. The engine never logs directly (it is a pure function); the
// host decides whether/how to surface these.
type Diagnostics []string

func (d *Diagnostics) add(format string, args ...any) {
	*d = append(*d, fmt.Sprintf(format, args...))
}

// HubDiagnostics is the site-level output alongside each LoadResult.
type HubDiagnostics struct {
	TotalSiteAvailable float64
	GridHeadroom       []float64 // per phase, A-B-C order
	SolarAvailable     float64
	ExcessAvailable    float64
	GridStale          bool
}

// Result is the full output of one engine tick.
type Result struct {
	Loads       []LoadResult
	Hub         HubDiagnostics
	Diagnostics Diagnostics
	Runtime     site.HubRuntimeState
}
