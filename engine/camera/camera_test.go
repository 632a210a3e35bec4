package camera

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJitterOffsetsProjection(t *testing.T) {
	cam := NewCamera(WithController(NewOrbitController()))

	base := cam.ProjectionMatrix()
	req := cam.RequestProjectionJitter(0.001, -0.002)
	require.True(t, cam.JitterActive())

	jittered := cam.ProjectionMatrix()
	assert.InDelta(t, base[8]+0.001, jittered[8], 1e-7)
	assert.InDelta(t, base[9]-0.002, jittered[9], 1e-7)

	// Reprojection math must see the stable matrix.
	assert.Equal(t, base, cam.UnjitteredProjectionMatrix())

	req.Release()
	assert.False(t, cam.JitterActive())
	assert.Equal(t, base, cam.ProjectionMatrix())
}

func TestJitterReleaseIsIdempotent(t *testing.T) {
	cam := NewCamera()
	req := cam.RequestProjectionJitter(0.5, 0.5)
	req.Release()
	req.Release()

	assert.NotPanics(t, func() {
		cam.RequestProjectionJitter(0.1, 0.1).Release()
	})
}

func TestOverlappingJitterRequestsPanic(t *testing.T) {
	cam := NewCamera()
	req := cam.RequestProjectionJitter(0.1, 0.1)
	defer req.Release()

	assert.Panics(t, func() {
		cam.RequestProjectionJitter(0.2, 0.2)
	})
}

func TestSetAspectRecomputesProjection(t *testing.T) {
	cam := NewCamera(WithController(NewOrbitController()))

	before := cam.ProjectionMatrix()
	cam.SetAspect(21.0 / 9.0)
	after := cam.ProjectionMatrix()
	assert.NotEqual(t, before, after)
}

func TestGPUCameraUniformLayout(t *testing.T) {
	u := &GPUCameraUniform{}
	require.Equal(t, 224, u.Size())

	u.ViewProj[0] = 2.5
	u.View[15] = 1
	u.InvProj[5] = -3
	u.CameraPosition = [3]float32{1, 2, 3}
	u.NearFar = [2]float32{0.1, 500}

	buf := u.Marshal()
	require.Len(t, buf, 224)

	at := func(offset int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(buf[offset:]))
	}
	assert.Equal(t, float32(2.5), at(0))
	assert.Equal(t, float32(1), at(64+15*4))
	assert.Equal(t, float32(-3), at(128+5*4))
	assert.Equal(t, float32(2), at(196))
	assert.Equal(t, float32(0.1), at(208))
	assert.Equal(t, float32(500), at(212))
}

func TestUniformForReadsCameraState(t *testing.T) {
	ctrl := NewOrbitController()
	ctrl.SetPosition(3, 4, 5)
	cam := NewCamera(
		WithController(ctrl),
		WithNear(0.25),
		WithFar(250),
	)

	u := UniformFor(cam)
	assert.Equal(t, cam.ViewProjectionMatrix(), u.ViewProj)
	assert.Equal(t, cam.ViewMatrix(), u.View)
	assert.Equal(t, [2]float32{0.25, 250}, u.NearFar)

	px, py, pz := ctrl.Position()
	assert.Equal(t, [3]float32{px, py, pz}, u.CameraPosition)
}
