// Package viewport drives a render command chain for one output surface. The
// viewport is the pipeline instance handed to every command: it owns the
// resource registry, the frame slot table, and the frame counter, and it maps
// surface lifecycle events onto the chain's allocate/release hooks.
package viewport

import (
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/halcyon3d/halcyon-go/engine/camera"
	"github.com/halcyon3d/halcyon-go/engine/render/command"
	"github.com/halcyon3d/halcyon-go/engine/render/device"
	"github.com/halcyon3d/halcyon-go/engine/render/graph"
	"github.com/halcyon3d/halcyon-go/engine/render/registry"
)

// Viewport is a pipeline instance bound to one output surface. One command
// chain may be shared by several viewports; all per-surface state lives here.
type Viewport interface {
	command.Instance

	// Name returns the viewport's name.
	//
	// Returns:
	//   - string: the name
	Name() string

	// Chain returns the root of the command chain.
	//
	// Returns:
	//   - command.Command: the chain root, or nil when none is set
	Chain() command.Command

	// SetChain replaces the command chain. When a surface is live the old
	// chain's resources are released and the new chain is allocated.
	//
	// Parameters:
	//   - root: the new chain root
	SetChain(root command.Command)

	// SetCamera replaces the active camera.
	//
	// Parameters:
	//   - cam: the new camera, may be nil
	SetCamera(cam camera.Camera)

	// SetRenderScale changes the internal resolution scale. Commands pick the
	// change up through InternalWidth/InternalHeight on their next Execute.
	//
	// Parameters:
	//   - scale: the new scale, clamped to (0, 2]
	SetRenderScale(scale float64)

	// SetStereo toggles stereo rendering.
	//
	// Parameters:
	//   - stereo: true for 2-layer array targets
	SetStereo(stereo bool)

	// SurfaceCreated signals that the output surface exists at the given size.
	// The chain's container resources are allocated.
	//
	// Parameters:
	//   - width: surface width in pixels
	//   - height: surface height in pixels
	SurfaceCreated(width, height int)

	// SurfaceResized updates the output dimensions. Commands detect the
	// dimension change themselves on their next Execute.
	//
	// Parameters:
	//   - width: new surface width in pixels
	//   - height: new surface height in pixels
	SurfaceResized(width, height int)

	// SurfaceReleased signals that the output surface is gone. The chain's
	// container resources are released.
	SurfaceReleased()

	// DescribeFrame runs the chain's describe phase and returns the declared
	// passes in chain order. Safe to call off the render thread; describe is
	// pure metadata.
	//
	// Returns:
	//   - []graph.Pass: the declared passes for the upcoming frame
	DescribeFrame() []graph.Pass

	// RenderFrame advances the frame counter, resets the frame slot table, and
	// executes the chain in order. Must be called from the render thread.
	RenderFrame()

	// Destroy releases the chain's resources and the registry. The viewport is
	// unusable afterwards.
	Destroy()
}

// viewportImpl is the implementation of the Viewport interface.
type viewportImpl struct {
	mu *sync.RWMutex

	name string
	dev  device.Device
	reg  registry.Registry
	cam  camera.Camera

	chain command.Command
	frame *command.FrameState

	frameIndex uint64

	renderWidth, renderHeight int
	renderScale               float64
	stereo                    bool
	shadowPass                bool

	surfaceLive bool

	// describePool runs the per-command describe phase in parallel. Workers
	// are reused across frames; a WaitGroup provides the per-frame barrier.
	describePool    worker.DynamicWorkerPool
	describeWorkers int
}

var _ Viewport = &viewportImpl{}

// NewViewport creates a viewport with its own registry and frame slot table.
//
// Parameters:
//   - name: the viewport's name
//   - dev: the GPU device (must not be nil)
//   - options: functional options to further configure the viewport
//
// Returns:
//   - Viewport: the newly created viewport
func NewViewport(name string, dev device.Device, options ...ViewportBuilderOption) Viewport {
	if dev == nil {
		panic("viewport: NewViewport requires a non-nil Device")
	}

	v := &viewportImpl{
		mu:              &sync.RWMutex{},
		name:            name,
		dev:             dev,
		reg:             registry.NewRegistry(),
		frame:           command.NewFrameState(),
		renderScale:     1.0,
		describeWorkers: max(runtime.NumCPU()-1, 1),
	}

	for _, option := range options {
		option(v)
	}

	// Queue size of 256 covers typical chain widths with headroom.
	v.describePool = worker.NewDynamicWorkerPool(v.describeWorkers, 256, 1*time.Second)

	return v
}

func (v *viewportImpl) Name() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.name
}

func (v *viewportImpl) Registry() registry.Registry {
	return v.reg
}

func (v *viewportImpl) Device() device.Device {
	return v.dev
}

func (v *viewportImpl) RenderWidth() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.renderWidth
}

func (v *viewportImpl) RenderHeight() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.renderHeight
}

func (v *viewportImpl) InternalWidth() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return scaled(v.renderWidth, v.renderScale)
}

func (v *viewportImpl) InternalHeight() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return scaled(v.renderHeight, v.renderScale)
}

// scaled applies the render scale, keeping a live surface at least one texel.
func scaled(dim int, scale float64) int {
	if dim < 1 {
		return dim
	}
	return max(int(float64(dim)*scale), 1)
}

func (v *viewportImpl) Stereo() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.stereo
}

func (v *viewportImpl) ShadowPass() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.shadowPass
}

func (v *viewportImpl) Camera() camera.Camera {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.cam
}

func (v *viewportImpl) FrameIndex() uint64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.frameIndex
}

func (v *viewportImpl) Frame() *command.FrameState {
	return v.frame
}

func (v *viewportImpl) Chain() command.Command {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.chain
}

func (v *viewportImpl) SetChain(root command.Command) {
	v.mu.Lock()
	old := v.chain
	v.chain = root
	live := v.surfaceLive
	v.mu.Unlock()

	if !live {
		return
	}
	if old != nil {
		old.ReleaseContainerResources(v)
	}
	if root != nil {
		root.AllocateContainerResources(v)
	}
}

func (v *viewportImpl) SetCamera(cam camera.Camera) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cam = cam
}

func (v *viewportImpl) SetRenderScale(scale float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if scale > 0 && scale <= 2 {
		v.renderScale = scale
	}
}

func (v *viewportImpl) SetStereo(stereo bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.stereo = stereo
}

func (v *viewportImpl) SurfaceCreated(width, height int) {
	v.mu.Lock()
	v.renderWidth = width
	v.renderHeight = height
	v.surfaceLive = true
	chain := v.chain
	v.mu.Unlock()

	if chain != nil {
		chain.AllocateContainerResources(v)
	}
}

func (v *viewportImpl) SurfaceResized(width, height int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.renderWidth = width
	v.renderHeight = height
}

func (v *viewportImpl) SurfaceReleased() {
	v.mu.Lock()
	chain := v.chain
	live := v.surfaceLive
	v.surfaceLive = false
	v.mu.Unlock()

	if live && chain != nil {
		chain.ReleaseContainerResources(v)
	}
}

func (v *viewportImpl) DescribeFrame() []graph.Pass {
	v.mu.RLock()
	chain := v.chain
	v.mu.RUnlock()
	if chain == nil {
		return nil
	}

	// A flat list fans out one describe task per child; anything else is
	// described as a single unit. Results are gathered positionally so the
	// output preserves declared chain order regardless of completion order.
	list, ok := chain.(*command.List)
	if !ok {
		return chain.DescribePass(v)
	}

	children := list.Commands()
	results := make([][]graph.Pass, len(children))

	var wg sync.WaitGroup
	for i, cmd := range children {
		wg.Add(1)
		idx := i
		cmdCap := cmd
		v.describePool.SubmitTask(worker.Task{
			ID: idx,
			Do: func() (any, error) {
				defer wg.Done()
				results[idx] = cmdCap.DescribePass(v)
				return nil, nil
			},
		})
	}
	wg.Wait()

	var passes []graph.Pass
	for _, r := range results {
		passes = append(passes, r...)
	}
	return passes
}

func (v *viewportImpl) RenderFrame() {
	v.mu.Lock()
	if !v.surfaceLive || v.chain == nil {
		v.mu.Unlock()
		return
	}
	v.frameIndex++
	frameIndex := v.frameIndex
	chain := v.chain
	v.mu.Unlock()

	v.frame.BeginFrame(frameIndex)
	chain.Execute(v)
}

func (v *viewportImpl) Destroy() {
	v.SurfaceReleased()

	v.mu.Lock()
	defer v.mu.Unlock()
	v.frame.Clear()
	v.reg.Destroy()
	v.chain = nil
	v.cam = nil
}
