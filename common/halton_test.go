package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaltonBase2(t *testing.T) {
	assert.Equal(t, float32(0), Halton(0, 2))
	assert.Equal(t, float32(0.5), Halton(1, 2))
	assert.Equal(t, float32(0.25), Halton(2, 2))
	assert.Equal(t, float32(0.75), Halton(3, 2))
	assert.Equal(t, float32(0.125), Halton(4, 2))
}

func TestHaltonBase3(t *testing.T) {
	assert.InDelta(t, 1.0/3.0, Halton(1, 3), 1e-6)
	assert.InDelta(t, 2.0/3.0, Halton(2, 3), 1e-6)
	assert.InDelta(t, 1.0/9.0, Halton(3, 3), 1e-6)
	assert.InDelta(t, 4.0/9.0, Halton(4, 3), 1e-6)
}

func TestHaltonStaysInUnitInterval(t *testing.T) {
	for i := uint32(1); i < 1000; i++ {
		for _, base := range []uint32{2, 3} {
			v := Halton(i, base)
			assert.GreaterOrEqual(t, v, float32(0))
			assert.Less(t, v, float32(1))
		}
	}
}

func TestHaltonJitterCentered(t *testing.T) {
	x, y := HaltonJitter(1)
	assert.Equal(t, float32(0), x)
	assert.InDelta(t, 1.0/3.0-0.5, y, 1e-6)

	for i := uint32(1); i < 100; i++ {
		jx, jy := HaltonJitter(i)
		assert.GreaterOrEqual(t, jx, float32(-0.5))
		assert.Less(t, jx, float32(0.5))
		assert.GreaterOrEqual(t, jy, float32(-0.5))
		assert.Less(t, jy, float32(0.5))
	}
}

func TestHaltonCycleWraps(t *testing.T) {
	// The jitter index advances mod HaltonCycle, so index arithmetic never
	// overflows and the pattern period is exactly HaltonCycle.
	idx := uint32(HaltonCycle - 1)
	next := (idx + 1) % HaltonCycle
	assert.Equal(t, uint32(0), next)
}
