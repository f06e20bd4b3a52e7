package engine

import (
	"time"

	"loadjuggler/governor"
	"loadjuggler/site"
	"loadjuggler/statemach"
)

// SmoothingConfig holds the §4.7 smoothing/ramp tunables: EMAAlpha is a
// unitless factor, DeadBandWidth is in amps, the ramp rates are in amps per
// second, and GridStaleAfter and TickInterval are durations.
type SmoothingConfig struct {
	EMAAlpha        float64
	DeadBandWidth   float64
	RampUpPerSecond float64
	RampDownPerSecond float64
	GridStaleAfter  time.Duration
	TickInterval    time.Duration // dt used for ramp limiting between ticks
}

// DefaultSmoothingConfig returns the §4.7 suggested defaults: a short EMA
// time constant, a 0.3A dead-band, and an asymmetric 0.1/0.2 A/s ramp that
// favors prompt reductions for safety.
func DefaultSmoothingConfig() SmoothingConfig {
	return SmoothingConfig{
		EMAAlpha:          0.3,
		DeadBandWidth:     0.3,
		RampUpPerSecond:   0.1,
		RampDownPerSecond: 0.2,
		GridStaleAfter:    60 * time.Second,
		TickInterval:      15 * time.Second,
	}
}

// Run executes the full pipeline for one tick: feedback correction, Steps
// 1-6, the per-load state machine, and the smoothing/ramp wrapper around
// the raw distribution result. It is a pure function of (ctx, runtime,
// cfg, now); callers persist the returned HubRuntimeState for the next
// tick.
func Run(ctx site.Context, runtime site.HubRuntimeState, cfg SmoothingConfig, now time.Time) Result {
	var diag Diagnostics

	if ctx.GridStale {
		return runGridStaleSafety(ctx, runtime, now, &diag)
	}

	smoothedCtx, smoothedMeasured := smoothSensorInputs(ctx, runtime.SmoothedGridMeasured, cfg)
	runtime = site.HubRuntimeState{Loads: runtime.Loads, SmoothedGridMeasured: smoothedMeasured}

	corrected := CorrectFeedback(smoothedCtx, &diag)

	siteLimit := DeriveSiteLimit(corrected)
	solarSurplus := DeriveSolarSurplus(corrected)
	excessPool := DeriveExcessPool(corrected)
	gridOnly := DeriveGridLimit(corrected)

	pools := Pools{
		SiteLimit:    siteLimit,
		GridOnly:     gridOnly,
		SolarSurplus: solarSurplus,
		ExcessPool:   excessPool,
	}

	ceilings := make(map[string]Ceiling, len(corrected.Loads))
	for _, l := range corrected.Loads {
		if !l.IsActive() {
			continue
		}
		ceilings[l.ID] = EvaluateCeiling(l, corrected, pools)
	}

	raw := Distribute(activeLoads(corrected.Loads), ceilings, pools, corrected.DistributionMode)
	capped := ApplyCircuitGroups(corrected.Loads, raw, corrected.CircuitGroups)

	results := make([]LoadResult, 0, len(corrected.Loads))
	nextRuntime := runtime

	for _, l := range corrected.Loads {
		target, reason, rs := finalizeLoad(l, capped, ceilings, nextRuntime.LoadState(l.ID), cfg, now)
		nextRuntime = nextRuntime.WithLoadState(l.ID, rs)
		results = append(results, LoadResult{ID: l.ID, TargetCurrent: target, Reason: reason, State: rs.State, Pool: ceilings[l.ID].Pool})
	}

	return Result{
		Loads: results,
		Hub: HubDiagnostics{
			TotalSiteAvailable: siteLimit.ABC,
			GridHeadroom:       []float64{gridOnly.A, gridOnly.B, gridOnly.C},
			SolarAvailable:     solarSurplus.ABC,
			ExcessAvailable:    excessPool.ABC,
			GridStale:          false,
		},
		Diagnostics: diag,
		Runtime:     nextRuntime,
	}
}

// smoothSensorInputs implements the §4.7 sensor-level EMA stage: grid
// consumption (per present phase), total solar production, and battery
// power are each smoothed through their own EMA memory before anything
// downstream (feedback correction, limit/pool derivation) ever sees them.
// This is distinct from finalizeLoad's EMA/dead-band/ramp stage, which
// smooths the already-computed per-load target, not the raw readings that
// fed it.
func smoothSensorInputs(ctx site.Context, measured map[string]float64, cfg SmoothingConfig) (site.Context, map[string]float64) {
	next := make(map[string]float64, len(measured)+5)
	for k, v := range measured {
		next[k] = v
	}

	smoothPhase := func(key string, val *float64) *float64 {
		if val == nil {
			return nil
		}
		ema := emaFor(measured, key)
		s := ema.Update(*val, cfg.EMAAlpha)
		next[key] = s
		return &s
	}

	consumption := ctx.Consumption
	consumption.A = smoothPhase("grid_a", consumption.A)
	consumption.B = smoothPhase("grid_b", consumption.B)
	consumption.C = smoothPhase("grid_c", consumption.C)
	ctx.Consumption = consumption

	solarEMA := emaFor(measured, "solar")
	ctx.SolarProductionTotal = solarEMA.Update(ctx.SolarProductionTotal, cfg.EMAAlpha)
	next["solar"] = ctx.SolarProductionTotal

	if ctx.Battery.Present {
		batteryEMA := emaFor(measured, "battery_power")
		ctx.Battery.Power = batteryEMA.Update(ctx.Battery.Power, cfg.EMAAlpha)
		next["battery_power"] = ctx.Battery.Power
	}

	return ctx, next
}

// emaFor returns the EMA state persisted under key, or a cold-start state
// (seeds on its first Update) if this is the signal's first tick.
func emaFor(measured map[string]float64, key string) governor.EMAState {
	if v, ok := measured[key]; ok {
		return governor.SeededEMA(v)
	}
	return governor.EMAState{}
}

func activeLoads(loads []site.Load) []site.Load {
	out := make([]site.Load, 0, len(loads))
	for _, l := range loads {
		if l.IsActive() {
			out = append(out, l)
		}
	}
	return out
}

// finalizeLoad applies the state machine, smoothing, dead-band, and ramp
// limiting to one load's raw distribution result, and derives its output
// Reason.
func finalizeLoad(l site.Load, capped map[string]float64, ceilings map[string]Ceiling, prevRS site.LoadRuntimeState, cfg SmoothingConfig, now time.Time) (float64, site.Reason, site.LoadRuntimeState) {
	if l.ConnectorStatus == site.StatusFaulted {
		rs := prevRS
		rs.State = site.StateFaulted
		rs.StateSince = now
		return 0, site.ReasonFaulted, rs
	}

	rawTarget, hadCeiling := capped[l.ID]
	ceiling, evaluated := ceilings[l.ID]
	allowsAny := hadCeiling && evaluated && !ceiling.Disallowed && rawTarget >= l.MinCurrent

	rs := statemach.Transition(prevRS, statemach.Input{
		Now:                 now,
		ConnectorStatus:     l.ConnectorStatus,
		CeilingAllowsAny:    allowsAny,
		Allocated:           rawTarget,
		MinCurrent:          l.MinCurrent,
		GraceHoldDuration:   l.GraceHoldDuration,
		ChargePauseDuration: l.ChargePauseDuration,
	})

	var desired float64
	var reason site.Reason

	switch rs.State {
	case site.StateActive:
		desired, reason = rawTarget, site.ReasonAllocated
	case site.StateGraceHold:
		desired, reason = l.MinCurrent, site.ReasonPausedGrace
	case site.StatePaused, site.StateIdle, site.StateEligible:
		desired, reason = 0, zeroReason(evaluated, ceiling)
	default:
		desired, reason = 0, site.ReasonFaulted
	}

	ema := governor.SeededEMA(rs.SmoothedTarget)
	smoothed := ema.Update(desired, cfg.EMAAlpha)
	rs.SmoothedTarget = smoothed

	db := governor.DeadBand{Width: cfg.DeadBandWidth}
	dbTarget := db.Apply(rs.LastTarget, smoothed)

	ramp := governor.SeededRamp(rs.LastTarget)
	dt := cfg.TickInterval.Seconds()
	if dt <= 0 {
		dt = 1
	}
	final := ramp.Update(dbTarget, dt, governor.RampConfig{RateUp: cfg.RampUpPerSecond, RateDown: cfg.RampDownPerSecond})
	rs.LastTarget = final

	return final, reason, rs
}

func zeroReason(evaluated bool, c Ceiling) site.Reason {
	if evaluated && c.Disallowed {
		return site.ReasonModeDisallowed
	}
	return site.ReasonBelowMin
}

// runGridStaleSafety implements the §4.7 grid-stale fallback: every
// currently-active load is forced to min_current (never 0, to avoid
// session-destroying interruptions on fragile EVs) and the GridStale
// reason/flag is surfaced.
func runGridStaleSafety(ctx site.Context, runtime site.HubRuntimeState, now time.Time, diag *Diagnostics) Result {
	diag.add("grid sensors stale: forcing all active loads to min_current")

	results := make([]LoadResult, 0, len(ctx.Loads))
	nextRuntime := runtime

	for _, l := range ctx.Loads {
		prevRS := nextRuntime.LoadState(l.ID)
		if l.ConnectorStatus == site.StatusFaulted || !l.IsActive() {
			rs := prevRS
			if l.ConnectorStatus == site.StatusFaulted {
				rs.State = site.StateFaulted
			} else {
				rs.State = site.StateIdle
			}
			rs.StateSince = now
			nextRuntime = nextRuntime.WithLoadState(l.ID, rs)
			reason := site.ReasonFaulted
			if rs.State == site.StateIdle {
				reason = site.ReasonGridStale
			}
			results = append(results, LoadResult{ID: l.ID, TargetCurrent: 0, Reason: reason, State: rs.State})
			continue
		}

		rs := prevRS
		if rs.State != site.StateActive {
			rs.State = site.StateActive
			rs.StateSince = now
		}
		rs.LastTarget = l.MinCurrent
		rs.SmoothedTarget = l.MinCurrent
		nextRuntime = nextRuntime.WithLoadState(l.ID, rs)

		results = append(results, LoadResult{ID: l.ID, TargetCurrent: l.MinCurrent, Reason: site.ReasonGridStale, State: rs.State})
	}

	return Result{
		Loads:       results,
		Hub:         HubDiagnostics{GridStale: true},
		Diagnostics: *diag,
		Runtime:     nextRuntime,
	}
}
