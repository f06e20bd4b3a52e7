package governor

import (
	"math"
	"time"
)

// minMaxBucket holds the min/max seen within a single minute.
type minMaxBucket struct {
	min, max float64
}

// RollingMinMax tracks the min/max of a scalar over a rolling 1-hour window
// using 60 1-minute buckets. It has no opinion about what the scalar is; the
// allocator uses it to track the trend of available headroom (site or solar)
// across ticks, so an operator can see whether a site is chronically
// headroom-starved or just spiking.
type RollingMinMax struct {
	buckets       [60]minMaxBucket
	currentMinute int // -1 = uninitialized
}

// NewRollingMinMax returns a RollingMinMax with all buckets at sentinel values.
func NewRollingMinMax() RollingMinMax {
	r := RollingMinMax{currentMinute: -1}
	for i := range r.buckets {
		r.buckets[i] = minMaxBucket{min: math.MaxFloat64, max: -math.MaxFloat64}
	}
	return r
}

// Update records value at the current wall-clock minute.
func (r *RollingMinMax) Update(value float64) {
	r.updateAt(value, time.Now().Minute())
}

// updateAt records value at the given minute; split out for deterministic testing.
func (r *RollingMinMax) updateAt(value float64, minute int) {
	if r.currentMinute >= 0 && minute != r.currentMinute {
		for i := (r.currentMinute + 1) % 60; i != minute; i = (i + 1) % 60 {
			r.buckets[i] = minMaxBucket{min: math.MaxFloat64, max: -math.MaxFloat64}
		}
	}

	if minute != r.currentMinute {
		r.buckets[minute] = minMaxBucket{min: value, max: value}
		r.currentMinute = minute
		return
	}

	b := &r.buckets[minute]
	b.min = min(b.min, value)
	b.max = max(b.max, value)
}

// Min returns the minimum value recorded across the window, or 0 if empty.
func (r *RollingMinMax) Min() float64 {
	result := math.MaxFloat64
	for _, b := range r.buckets {
		result = min(result, b.min)
	}
	if result == math.MaxFloat64 {
		return 0
	}
	return result
}

// Max returns the maximum value recorded across the window, or 0 if empty.
func (r *RollingMinMax) Max() float64 {
	result := -math.MaxFloat64
	for _, b := range r.buckets {
		result = max(result, b.max)
	}
	if result == -math.MaxFloat64 {
		return 0
	}
	return result
}
