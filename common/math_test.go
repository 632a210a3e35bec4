package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCeilDiv(t *testing.T) {
	// 1000 pixels at tile size 16 needs 63 groups, not 62: the last partial
	// tile still needs a workgroup.
	assert.Equal(t, uint32(63), CeilDiv(1000, 16))
	assert.Equal(t, uint32(64), CeilDiv(1024, 16))
	assert.Equal(t, uint32(1), CeilDiv(1, 16))
	assert.Equal(t, uint32(1), CeilDiv(16, 16))
	assert.Equal(t, uint32(2), CeilDiv(17, 16))
	assert.Equal(t, uint32(0), CeilDiv(0, 16))
}

func TestApproxEqual4(t *testing.T) {
	var a, b [16]float32
	Identity(a[:])
	Identity(b[:])
	assert.True(t, ApproxEqual4(a[:], b[:], 1e-4))

	b[5] += 5e-5
	assert.True(t, ApproxEqual4(a[:], b[:], 1e-4))

	b[5] += 1e-3
	assert.False(t, ApproxEqual4(a[:], b[:], 1e-4))
}

func TestMul4Identity(t *testing.T) {
	var id, m, out [16]float32
	Identity(id[:])
	Perspective(m[:], 60, 16.0/9.0, 0.1, 100)

	Mul4(out[:], id[:], m[:])
	assert.Equal(t, m, out)
}

func TestInvert4RoundTrip(t *testing.T) {
	var m, inv, out, id [16]float32
	Perspective(m[:], 60, 16.0/9.0, 0.1, 100)
	Identity(id[:])

	assert.True(t, Invert4(inv[:], m[:]))
	Mul4(out[:], m[:], inv[:])
	assert.True(t, ApproxEqual4(out[:], id[:], 1e-5))
}

func TestInvert4Singular(t *testing.T) {
	var zero, out [16]float32
	assert.False(t, Invert4(out[:], zero[:]))
}

func TestTranslate4OffsetsThirdColumn(t *testing.T) {
	var m, want [16]float32
	Perspective(m[:], 60, 16.0/9.0, 0.1, 100)
	want = m

	Translate4(m[:], 0.25, -0.5)

	want[8] += 0.25
	want[9] -= 0.5
	assert.Equal(t, want, m)
}
