package temporal

import (
	"sync"
	"time"

	"github.com/halcyon3d/halcyon-go/common"
	"github.com/halcyon3d/halcyon-go/engine/camera"
	"github.com/halcyon3d/halcyon-go/engine/render/command"
	"github.com/halcyon3d/halcyon-go/engine/render/state"
)

// Registry names of the resources the accumulate phase owns and publishes.
const (
	// TextureTemporalInput receives a copy of scene color every frame, even
	// when temporal antialiasing is off, so velocity-style effects always have
	// a continuously updated input.
	TextureTemporalInput = "TemporalInput"

	// FramebufferTemporalInput is the framebuffer wrapping TextureTemporalInput.
	FramebufferTemporalInput = "TemporalInputFBO"

	// TextureHistoryCapture receives a copy of scene color every frame for
	// next-frame history sampling.
	TextureHistoryCapture = "HistoryCapture"

	// FramebufferHistoryCapture is the framebuffer wrapping TextureHistoryCapture.
	FramebufferHistoryCapture = "HistoryCaptureFBO"

	// TextureHistory0 and TextureHistory1 are the ping-pong accumulation
	// targets used by the TAA resolve.
	TextureHistory0 = "TemporalHistory0"
	TextureHistory1 = "TemporalHistory1"

	// FramebufferHistory0 and FramebufferHistory1 wrap the ping-pong targets.
	FramebufferHistory0 = "TemporalHistory0FBO"
	FramebufferHistory1 = "TemporalHistory1FBO"
)

// resolveProgramKey is the cached TAA resolve program.
const resolveProgramKey = "temporal/resolve"

// projectionEpsilon is the component-wise tolerance below which two
// consecutive unjittered projection matrices are treated as identical, so the
// previous frame's matrix is reused and motion vectors do not pick up
// micro-jitter drift.
const projectionEpsilon = 1e-4

// cameraState is the per-camera record shared by the Begin, Accumulate, and
// Commit phases. All three phases run on the render thread in chain order, so
// no locking is needed beyond the store's own.
type cameraState struct {
	haltonIndex uint32

	jitterX, jitterY         float32
	prevJitterX, prevJitterY float32

	viewProj     [16]float32 // jittered
	prevViewProj [16]float32

	unjitteredProj     [16]float32
	prevUnjitteredProj [16]float32

	unjitteredViewProj     [16]float32
	prevUnjitteredViewProj [16]float32

	invViewProj     [16]float32
	prevInvViewProj [16]float32

	historyReady        bool
	pendingHistoryReady bool
	stabilized          bool

	historyPing int

	jitterRequest camera.JitterRequest

	lastWidth, lastHeight int
}

// coordinatorImpl is the implementation of the Coordinator interface.
type coordinatorImpl struct {
	mu *sync.Mutex

	states *state.Store[camera.Camera, *cameraState]
	warner *command.WarnThrottle

	aaEnabled      func() bool
	sceneColorName string
}

// Coordinator owns the cross-frame temporal state machine. Each frame the
// pipeline schedules its three phases as separate commands, in order: Begin
// (jitter + matrix bookkeeping), Accumulate (history capture and optional TAA
// resolve), Commit (promote current state to previous, flag history ready).
// State is kept per camera, so one coordinator serves any number of viewports.
//
// Downstream consumers must treat HistoryReady == false as "do not sample
// history"; it is false until a full Begin, Accumulate, Commit cycle has
// captured a frame, and resets whenever the internal resolution changes.
type Coordinator interface {
	// BeginCommand returns the phase-one command for chain assembly.
	//
	// Returns:
	//   - command.Command: the Begin phase command
	BeginCommand() command.Command

	// AccumulateCommand returns the phase-two command for chain assembly.
	//
	// Returns:
	//   - command.Command: the Accumulate phase command
	AccumulateCommand() command.Command

	// CommitCommand returns the phase-three command for chain assembly.
	//
	// Returns:
	//   - command.Command: the Commit phase command
	CommitCommand() command.Command

	// HistoryReady reports whether the camera has a committed history frame.
	//
	// Parameters:
	//   - cam: the camera to query
	//
	// Returns:
	//   - bool: true once a full three-phase cycle has captured history
	HistoryReady(cam camera.Camera) bool

	// HaltonIndex returns the camera's current Halton sample index.
	//
	// Parameters:
	//   - cam: the camera to query
	//
	// Returns:
	//   - uint32: the sample index (1-based, 0 before the first Begin)
	HaltonIndex(cam camera.Camera) uint32

	// Jitter returns the camera's current sub-pixel jitter offset in units of
	// [-0.5, 0.5] texels.
	//
	// Parameters:
	//   - cam: the camera to query
	//
	// Returns:
	//   - x, y: the jitter offsets
	Jitter(cam camera.Camera) (x, y float32)

	// PreviousViewProjection returns the camera's previous committed jittered
	// view-projection matrix. Valid only while HistoryReady is true.
	//
	// Parameters:
	//   - cam: the camera to query
	//
	// Returns:
	//   - [16]float32: the previous view-projection matrix
	PreviousViewProjection(cam camera.Camera) [16]float32

	// Evict drops the camera's temporal state, releasing any held jitter
	// request. Called when a camera is removed from a viewport.
	//
	// Parameters:
	//   - cam: the camera to evict
	Evict(cam camera.Camera)
}

var _ Coordinator = &coordinatorImpl{}

// NewCoordinator creates a temporal coordinator.
//
// Parameters:
//   - options: variadic CoordinatorOption functions
//
// Returns:
//   - Coordinator: the new coordinator
func NewCoordinator(options ...CoordinatorOption) Coordinator {
	c := &coordinatorImpl{
		mu: &sync.Mutex{},
		states: state.NewStore(state.WithInit(func(camera.Camera) *cameraState {
			return &cameraState{}
		})),
		warner:         command.NewWarnThrottle(5 * time.Second),
		aaEnabled:      func() bool { return true },
		sceneColorName: "SceneColor",
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

func (c *coordinatorImpl) BeginCommand() command.Command {
	return &beginCommand{coordinator: c}
}

func (c *coordinatorImpl) AccumulateCommand() command.Command {
	return newAccumulateCommand(c)
}

func (c *coordinatorImpl) CommitCommand() command.Command {
	return &commitCommand{coordinator: c}
}

func (c *coordinatorImpl) HistoryReady(cam camera.Camera) bool {
	st, ok := c.states.Peek(cam)
	if !ok {
		return false
	}
	return st.historyReady
}

func (c *coordinatorImpl) HaltonIndex(cam camera.Camera) uint32 {
	st, ok := c.states.Peek(cam)
	if !ok {
		return 0
	}
	return st.haltonIndex
}

func (c *coordinatorImpl) Jitter(cam camera.Camera) (x, y float32) {
	st, ok := c.states.Peek(cam)
	if !ok {
		return 0, 0
	}
	return st.jitterX, st.jitterY
}

func (c *coordinatorImpl) PreviousViewProjection(cam camera.Camera) [16]float32 {
	st, ok := c.states.Peek(cam)
	if !ok {
		var identity [16]float32
		common.Identity(identity[:])
		return identity
	}
	return st.prevViewProj
}

func (c *coordinatorImpl) Evict(cam camera.Camera) {
	st, ok := c.states.Remove(cam)
	if !ok {
		return
	}
	if st.jitterRequest != nil {
		st.jitterRequest.Release()
	}
}
