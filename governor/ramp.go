package governor

// RampConfig holds the asymmetric up/down rate limits applied by
// RampLimiter, in signal-units per second (amps/s for current targets).
type RampConfig struct {
	RateUp   float64
	RateDown float64
}

// RampLimiter steps a value toward a target at no more than RateUp per
// second when rising and RateDown per second when falling. It is the
// simplified descendant of a pressure-gated accelerating ramp: this
// controller reacts immediately to any change rather than waiting for a
// sustained pressure buildup, since targets here are the engine's own
// pool-derived allocations, not noisy raw sensor input that benefits from
// inertia.
type RampLimiter struct {
	Current     float64
	initialized bool
}

// SeededRamp returns a RampLimiter already initialized at value, so the
// next Update ramps toward a target rather than jumping cold. Use this
// when restoring a load's ramp memory from persisted runtime state.
func SeededRamp(value float64) RampLimiter {
	return RampLimiter{Current: value, initialized: true}
}

// Update moves Current toward target by at most the rate implied by dt
// seconds elapsed and cfg, then returns the new Current. The first call
// seeds Current at target.
func (r *RampLimiter) Update(target float64, dt float64, cfg RampConfig) float64 {
	if !r.initialized {
		r.Current = target
		r.initialized = true
		return r.Current
	}
	if dt < 0 {
		dt = 0
	}

	diff := target - r.Current
	switch {
	case diff > 0:
		maxStep := cfg.RateUp * dt
		if diff > maxStep {
			diff = maxStep
		}
	case diff < 0:
		maxStep := cfg.RateDown * dt
		if -diff > maxStep {
			diff = -maxStep
		}
	}

	r.Current += diff
	return r.Current
}

// Reset forces Current to value and marks the limiter initialized, for use
// when a load transitions out of Paused/GraceHold and should not ramp from
// stale memory.
func (r *RampLimiter) Reset(value float64) {
	r.Current = value
	r.initialized = true
}
