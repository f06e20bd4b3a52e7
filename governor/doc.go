// Package governor provides the smoothing and rate-limiting primitives the
// allocation engine applies both to noisy raw sensor readings (grid
// consumption, solar production, battery power) before they enter the
// allocation pipeline, and to the computed per-tick targets before they are
// sent to hardware: exponential moving average, a Schmitt-trigger
// dead-band, and an asymmetric up/down ramp limiter. It also holds a
// rolling one-hour min/max tracker for trend logging.
package governor
