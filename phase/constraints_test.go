package phase

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromPerPhase_Invariants(t *testing.T) {
	c := FromPerPhase(10, 16, 6)
	assert.Equal(t, 10.0, c.A)
	assert.Equal(t, 16.0, c.B)
	assert.Equal(t, 6.0, c.C)
	assert.Equal(t, 26.0, c.AB)
	assert.Equal(t, 16.0, c.AC)
	assert.Equal(t, 22.0, c.BC)
	assert.Equal(t, 32.0, c.ABC)
}

func TestFromPool_SharedCap(t *testing.T) {
	t.Run("asymmetric inverter with per-phase cap", func(t *testing.T) {
		c := FromPool(30, 16)
		assert.Equal(t, 16.0, c.A)
		assert.Equal(t, 16.0, c.B)
		assert.Equal(t, 16.0, c.C)
		assert.Equal(t, 30.0, c.AB) // min(30, 32)
		assert.Equal(t, 30.0, c.ABC)
	})

	t.Run("no per-phase cap", func(t *testing.T) {
		c := FromPool(30, math.Inf(1))
		assert.Equal(t, 30.0, c.A)
		assert.Equal(t, 30.0, c.ABC)
	})
}

func TestGetAvailable_ABCDivisorIsCritical(t *testing.T) {
	// 30A pooled total, 16A per-phase cap. A single load on phase B alone
	// sees up to 16A on B itself, but the shared ABC pool, divided by 1
	// phase, is the full 30A headroom on paper - however once other loads
	// are also drawing from the same pool the ABC/n term is what catches
	// the shared-total overcommit. This test locks the single-load-visible
	// number; the multi-load case is covered by the distribution tests.
	c := FromPool(30, 16)
	assert.Equal(t, 16.0, c.GetAvailable(B))
	assert.Equal(t, 10.0, c.GetAvailable(ABC)) // 30/3
}

func TestGetAvailable_PairMaskUsesHalvedCombinationKey(t *testing.T) {
	c := FromPerPhase(10, 10, 10)
	// AB key is 20, divided across 2 phases = 10, same as individual caps.
	assert.Equal(t, 10.0, c.GetAvailable(AB))
}

func TestDeduct_SinglePhaseReducesSharedPoolEntirely(t *testing.T) {
	c := FromPool(30, 16)
	after := c.Deduct(10, A)

	assert.Equal(t, 6.0, after.A)
	assert.InDelta(t, 20.0, after.ABC, 1e-9)
	// AB/AC must also drop by the same 10A since they overlap phase A
	assert.InDelta(t, 20.0, math.Min(after.AB, 30), 1e-9)
}

func TestDeduct_MixedMasksCollectivelyRespectABCTotal(t *testing.T) {
	// Mirrors spec scenario 4: 30A total pool, one 3-phase load takes 8A,
	// one single-phase load on B takes 6A. Even though B alone still has
	// headroom, the shared ABC total must reflect both draws.
	c := FromPool(30, 16)
	afterFirst := c.Deduct(8, ABC)
	afterSecond := afterFirst.Deduct(6, B)

	assert.InDelta(t, 30-8*3-6, afterSecond.ABC, 1e-9)
	assert.True(t, afterSecond.ABC >= 0)
}

func TestDeductThenAdd_RestoresOriginal(t *testing.T) {
	// Deduct(5, AB) removes 5 from A, 5 from B, 10 from AB/AC/BC/ABC.
	// Adding back a matching per-phase delta of (5,5,0) restores A and B;
	// the delta's AB=10 and ABC=10 match what Deduct removed, so AB and ABC
	// come back too. AC and BC do not: the delta adds only 5 to each.
	original := FromPool(30, 16)
	deducted := original.Deduct(5, AB)
	restored := deducted.Add(FromPerPhase(5, 5, 0))

	assert.InDelta(t, original.A, restored.A, 1e-9)
	assert.InDelta(t, original.B, restored.B, 1e-9)
	assert.InDelta(t, original.ABC, restored.ABC, 1e-9)
}

func TestNormalize_ClampsNegativesAndCascades(t *testing.T) {
	c := Constraints{A: -1, B: 5, C: 5, AB: 100, AC: 100, BC: 100, ABC: 100}
	n := c.Normalize()

	assert.Equal(t, 0.0, n.A)
	assert.Equal(t, 5.0, n.AB) // capped at A+B = 0+5
	assert.Equal(t, 5.0, n.AC)
	assert.Equal(t, 10.0, n.BC)
	assert.Equal(t, 10.0, n.ABC) // capped at A+B+C = 10
}
