package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"loadjuggler/site"
)

func TestDebugSnapshot_FormatsOneRowPerLoad(t *testing.T) {
	res := Result{
		Loads: []LoadResult{
			{ID: "evse-1", TargetCurrent: 8, Reason: site.ReasonAllocated, State: site.StateActive, Pool: PoolSolarSurplus},
			{ID: "evse-2", TargetCurrent: 0, Reason: site.ReasonBelowMin, State: site.StateIdle, Pool: PoolNone},
		},
	}

	out := DebugSnapshot(res)

	assert.Contains(t, out, "evse-1")
	assert.Contains(t, out, "Active")
	assert.Contains(t, out, "solar_surplus")
	assert.Contains(t, out, "8.00A")
	assert.Contains(t, out, "evse-2")
	assert.Contains(t, out, "BelowMin")
}
