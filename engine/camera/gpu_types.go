package camera

import (
	"encoding/binary"
	"math"
	"unsafe"
)

// GPUCameraUniform is the GPU-aligned representation of the camera uniform
// buffer consumed by the forward shading and light culling programs.
// Size: 224 bytes (std430 / WGSL aligned).
type GPUCameraUniform struct {
	ViewProj       [16]float32 // offset   0: combined view-projection matrix (mat4x4<f32>)
	View           [16]float32 // offset  64: view matrix (mat4x4<f32>)
	InvProj        [16]float32 // offset 128: inverse projection matrix (mat4x4<f32>)
	CameraPosition [3]float32  // offset 192: world-space camera position (vec3<f32>)
	_pad0          float32     // offset 204: padding
	NearFar        [2]float32  // offset 208: near and far plane distances
	_pad1          [2]float32  // offset 216: padding to 224 bytes
}

// Size returns the size of the GPUCameraUniform struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (224)
func (g *GPUCameraUniform) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUCameraUniform struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPUCameraUniform) Marshal() []byte {
	buf := make([]byte, g.Size())
	put := func(offset int, v float32) {
		binary.LittleEndian.PutUint32(buf[offset:], math.Float32bits(v))
	}
	for i := range 16 {
		put(i*4, g.ViewProj[i])
		put(64+i*4, g.View[i])
		put(128+i*4, g.InvProj[i])
	}
	for i := range 3 {
		put(192+i*4, g.CameraPosition[i])
	}
	put(208, g.NearFar[0])
	put(212, g.NearFar[1])
	return buf
}

// UniformFor fills a GPUCameraUniform from a camera's current matrices.
//
// Parameters:
//   - cam: the source camera
//
// Returns:
//   - GPUCameraUniform: the populated uniform
func UniformFor(cam Camera) GPUCameraUniform {
	u := GPUCameraUniform{
		ViewProj: cam.ViewProjectionMatrix(),
		View:     cam.ViewMatrix(),
		InvProj:  cam.InverseProjectionMatrix(),
		NearFar:  [2]float32{cam.Near(), cam.Far()},
	}
	if ctrl := cam.Controller(); ctrl != nil {
		u.CameraPosition[0], u.CameraPosition[1], u.CameraPosition[2] = ctrl.Position()
	}
	return u
}
