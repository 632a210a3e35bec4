package camera

import (
	"math"
	"sync"

	"github.com/halcyon3d/halcyon-go/common"
)

type cameraImpl struct {
	mu *sync.Mutex

	up [3]float32

	fov    float32
	aspect float32
	near   float32
	far    float32

	viewMatrix                  [16]float32
	projectionMatrix            [16]float32
	viewProjectionMatrix        [16]float32
	inverseProjectionMatrix     [16]float32
	inverseViewProjectionMatrix [16]float32

	// Active projection jitter in NDC units, applied on top of the base
	// projection while a JitterRequest is held.
	jitterActive bool
	jitterX      float32
	jitterY      float32

	controller CameraController
}

// Camera holds perspective settings and computes view/projection matrices
// from an attached CameraController each frame via Update(). Temporal passes
// additionally apply a scoped sub-pixel projection jitter through
// RequestProjectionJitter; the unjittered matrices stay available for
// motion-vector math.
type Camera interface {
	// Up returns the camera's up vector.
	//
	// Returns:
	//   - x, y, z: up vector components
	Up() (x, y, z float32)

	// Fov returns the field of view in radians.
	//
	// Returns:
	//   - float32: field of view in radians
	Fov() float32

	// Aspect returns the aspect ratio (width / height).
	//
	// Returns:
	//   - float32: the aspect ratio
	Aspect() float32

	// Near returns the near clipping plane distance.
	//
	// Returns:
	//   - float32: near plane distance
	Near() float32

	// Far returns the far clipping plane distance.
	//
	// Returns:
	//   - float32: far plane distance
	Far() float32

	// ViewMatrix returns the current 4x4 view matrix as 16 floats (column-major).
	//
	// Returns:
	//   - [16]float32: the view matrix
	ViewMatrix() [16]float32

	// ProjectionMatrix returns the current projection matrix, including any
	// active jitter offset (column-major).
	//
	// Returns:
	//   - [16]float32: the (possibly jittered) projection matrix
	ProjectionMatrix() [16]float32

	// UnjitteredProjectionMatrix returns the projection matrix without any
	// active jitter offset (column-major). Motion-vector and reprojection math
	// must use this rather than the jittered matrix.
	//
	// Returns:
	//   - [16]float32: the unjittered projection matrix
	UnjitteredProjectionMatrix() [16]float32

	// ViewProjectionMatrix returns the combined view-projection matrix,
	// including any active jitter (column-major).
	//
	// Returns:
	//   - [16]float32: the combined view-projection matrix
	ViewProjectionMatrix() [16]float32

	// InverseProjectionMatrix returns the inverse of the unjittered projection
	// matrix (column-major). Used by the Forward+ light culling compute shader
	// to reconstruct per-tile view-space frustum planes from screen coordinates.
	//
	// Returns:
	//   - [16]float32: the inverse projection matrix
	InverseProjectionMatrix() [16]float32

	// InverseViewProjectionMatrix returns the inverse of the unjittered
	// view-projection matrix (column-major). Temporal reprojection transforms
	// screen positions back to world space with it.
	//
	// Returns:
	//   - [16]float32: the inverse view-projection matrix
	InverseViewProjectionMatrix() [16]float32

	// RequestProjectionJitter applies a sub-pixel jitter offset to the
	// projection matrix, scoped to the returned request. The offset is in NDC
	// units. Only one request may be active at a time; a second request before
	// the first is released panics, since overlapping jitter scopes mean two
	// temporal coordinators are fighting over one camera.
	//
	// Parameters:
	//   - x: NDC x offset
	//   - y: NDC y offset
	//
	// Returns:
	//   - JitterRequest: handle releasing the jitter when done
	RequestProjectionJitter(x, y float32) JitterRequest

	// JitterActive reports whether a projection jitter request is held.
	//
	// Returns:
	//   - bool: true while a JitterRequest is outstanding
	JitterActive() bool

	// Controller returns the attached CameraController.
	// Returns nil if no controller is attached.
	//
	// Returns:
	//   - CameraController: the attached controller or nil
	Controller() CameraController

	// Update reads position/target from controller and recomputes matrices.
	// Should be called once per frame (typically in the tick callback).
	// If no controller is attached, this method does nothing.
	Update()

	// SetUp sets the camera's up vector.
	//
	// Parameters:
	//   - x, y, z: up vector components
	SetUp(x, y, z float32)

	// SetFov sets the field of view in radians and recomputes matrices.
	//
	// Parameters:
	//   - fov: field of view in radians
	SetFov(fov float32)

	// SetAspect sets the aspect ratio (width / height) and recomputes matrices.
	//
	// Parameters:
	//   - aspect: the aspect ratio
	SetAspect(aspect float32)

	// SetNear sets the near clipping plane distance and recomputes matrices.
	//
	// Parameters:
	//   - near: near plane distance
	SetNear(near float32)

	// SetFar sets the far clipping plane distance and recomputes matrices.
	//
	// Parameters:
	//   - far: far plane distance
	SetFar(far float32)

	// SetController attaches a CameraController to the camera.
	//
	// Parameters:
	//   - ctrl: the controller to attach
	SetController(ctrl CameraController)
}

// JitterRequest is a scoped hold on a camera's projection jitter. Release
// restores the unjittered projection; releasing more than once is safe.
type JitterRequest interface {
	// Release removes the jitter offset from the camera's projection.
	Release()
}

type jitterRequestImpl struct {
	camera      *cameraImpl
	releaseOnce sync.Once
}

func (j *jitterRequestImpl) Release() {
	j.releaseOnce.Do(func() {
		j.camera.mu.Lock()
		defer j.camera.mu.Unlock()
		j.camera.jitterActive = false
		j.camera.jitterX = 0
		j.camera.jitterY = 0
	})
}

var _ Camera = &cameraImpl{}

// NewCamera creates a new Camera with default perspective settings.
// A controller must be attached via SetController or WithController option
// before position/target data is available.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:                          &sync.Mutex{},
		up:                          [3]float32{0, 1, 0},
		fov:                         45.0 * (math.Pi / 180.0), // radians
		aspect:                      1.0,
		near:                        0.1,
		far:                         100.0,
		viewMatrix:                  [16]float32{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1},
		projectionMatrix:            [16]float32{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1},
		viewProjectionMatrix:        [16]float32{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1},
		inverseProjectionMatrix:     [16]float32{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1},
		inverseViewProjectionMatrix: [16]float32{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1},
	}
	for _, option := range options {
		option(c)
	}
	if c.controller != nil {
		c.updateMatrices()
	}
	return c
}

func (c *cameraImpl) Up() (x, y, z float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.up[0], c.up[1], c.up[2]
}

func (c *cameraImpl) Fov() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fov
}

func (c *cameraImpl) Aspect() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aspect
}

func (c *cameraImpl) Near() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.near
}

func (c *cameraImpl) Far() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.far
}

func (c *cameraImpl) ViewMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewMatrix
}

func (c *cameraImpl) ProjectionMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.jitterActive {
		return c.projectionMatrix
	}
	jittered := c.projectionMatrix
	common.Translate4(jittered[:], c.jitterX, c.jitterY)
	return jittered
}

func (c *cameraImpl) UnjitteredProjectionMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projectionMatrix
}

func (c *cameraImpl) ViewProjectionMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.jitterActive {
		return c.viewProjectionMatrix
	}
	jittered := c.viewProjectionMatrix
	common.Translate4(jittered[:], c.jitterX, c.jitterY)
	return jittered
}

func (c *cameraImpl) InverseProjectionMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inverseProjectionMatrix
}

func (c *cameraImpl) InverseViewProjectionMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inverseViewProjectionMatrix
}

func (c *cameraImpl) RequestProjectionJitter(x, y float32) JitterRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.jitterActive {
		panic("camera: projection jitter requested while another request is active")
	}
	c.jitterActive = true
	c.jitterX = x
	c.jitterY = y
	return &jitterRequestImpl{camera: c}
}

func (c *cameraImpl) JitterActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.jitterActive
}

func (c *cameraImpl) SetUp(x, y, z float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.up = [3]float32{x, y, z}
	c.updateMatrices()
}

func (c *cameraImpl) SetFov(fov float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fov = fov
	c.updateMatrices()
}

func (c *cameraImpl) SetAspect(aspect float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aspect = aspect
	c.updateMatrices()
}

func (c *cameraImpl) SetNear(near float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.near = near
	c.updateMatrices()
}

func (c *cameraImpl) SetFar(far float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.far = far
	c.updateMatrices()
}

func (c *cameraImpl) Controller() CameraController {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.controller
}

func (c *cameraImpl) Update() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.controller == nil {
		return
	}
	c.updateMatrices()
}

func (c *cameraImpl) SetController(ctrl CameraController) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.controller = ctrl
}

// updateMatrices recalculates the view, projection, view-projection, and
// inverse matrices. It reads position and target from the attached controller.
// This is a no-op when the controller is nil. Caller must hold the mutex.
func (c *cameraImpl) updateMatrices() {
	if c.controller == nil {
		return
	}

	px, py, pz := c.controller.Position()
	tx, ty, tz := c.controller.Target()

	common.LookAt(c.viewMatrix[:],
		px, py, pz,
		tx, ty, tz,
		c.up[0], c.up[1], c.up[2],
	)

	common.Perspective(c.projectionMatrix[:],
		c.fov, c.aspect, c.near, c.far,
	)

	common.Mul4(c.viewProjectionMatrix[:], c.projectionMatrix[:], c.viewMatrix[:])
	common.Invert4(c.inverseProjectionMatrix[:], c.projectionMatrix[:])
	common.Invert4(c.inverseViewProjectionMatrix[:], c.viewProjectionMatrix[:])
}
