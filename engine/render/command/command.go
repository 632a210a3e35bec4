package command

import (
	"github.com/halcyon3d/halcyon-go/engine/camera"
	"github.com/halcyon3d/halcyon-go/engine/render/device"
	"github.com/halcyon3d/halcyon-go/engine/render/graph"
	"github.com/halcyon3d/halcyon-go/engine/render/registry"
)

// Instance is the view a render command gets of the pipeline instance it is
// currently executing for. One command object may serve several instances at
// once (multi-window editor, stereo), so commands hold no mutable fields of
// their own: everything per-frame or per-surface flows through here, and
// command state is keyed by Instance (or camera) identity in a state.Store.
type Instance interface {
	// Registry returns the pipeline instance's resource registry.
	//
	// Returns:
	//   - registry.Registry: the shared resource registry
	Registry() registry.Registry

	// Device returns the GPU device commands allocate and dispatch through.
	//
	// Returns:
	//   - device.Device: the GPU device
	Device() device.Device

	// RenderWidth returns the output render-area width in pixels.
	//
	// Returns:
	//   - int: the render width
	RenderWidth() int

	// RenderHeight returns the output render-area height in pixels.
	//
	// Returns:
	//   - int: the render height
	RenderHeight() int

	// InternalWidth returns the internal render width (render scale applied).
	// Effect passes size their targets from the internal dimensions.
	//
	// Returns:
	//   - int: the internal render width
	InternalWidth() int

	// InternalHeight returns the internal render height (render scale applied).
	//
	// Returns:
	//   - int: the internal render height
	InternalHeight() int

	// Stereo reports whether stereo rendering is active. Stereo commands
	// allocate 2-layer array textures instead of plain 2D textures.
	//
	// Returns:
	//   - bool: true when rendering in stereo
	Stereo() bool

	// ShadowPass reports whether the current pass renders a shadow map.
	//
	// Returns:
	//   - bool: true during shadow passes
	ShadowPass() bool

	// Camera returns the active scene camera, or nil when none is set.
	//
	// Returns:
	//   - camera.Camera: the active camera
	Camera() camera.Camera

	// FrameIndex returns the monotonically increasing frame counter.
	//
	// Returns:
	//   - uint64: the current frame index
	FrameIndex() uint64

	// Frame returns the frame-scoped slot table for cross-pass handoff.
	//
	// Returns:
	//   - *FrameState: the current frame's slots
	Frame() *FrameState
}

// Command is one unit of pipeline work. Commands are stateless templates:
// all mutable state lives in identity-keyed stores so one command object can
// serve several pipeline instances simultaneously.
//
// The pipeline driver calls AllocateContainerResources when a surface is
// (re)created, Execute once per frame, ReleaseContainerResources when the
// surface is destroyed, and DescribePass each frame for the render-graph
// scheduler. DescribePass must mirror exactly what Execute will touch that
// frame; a mismatch produces incorrect barriers downstream.
type Command interface {
	// Name returns the command's unique name within its chain.
	//
	// Returns:
	//   - string: the command name
	Name() string

	// AllocateContainerResources marks the instance's state dirty so the next
	// Execute performs a full resource regeneration. Idempotent.
	//
	// Parameters:
	//   - instance: the pipeline instance whose surface was (re)created
	AllocateContainerResources(instance Instance)

	// Execute performs this command's per-frame work: resolve inputs from the
	// registry, regenerate owned resources when dirty or resized, dispatch GPU
	// work, and publish outputs. Missing inputs cause a logged skip for the
	// frame, never an error.
	//
	// Parameters:
	//   - instance: the pipeline instance to execute for
	Execute(instance Instance)

	// ReleaseContainerResources destroys every GPU resource this command owns
	// for the instance, resets the instance's state to defaults, and marks it
	// dirty so a future allocate starts clean.
	//
	// Parameters:
	//   - instance: the pipeline instance whose surface is being destroyed
	ReleaseContainerResources(instance Instance)

	// DescribePass emits the declarative resource-usage metadata for the work
	// Execute will perform this frame. Pure metadata: no GPU calls, no
	// registry mutation, safe to run off the render thread.
	//
	// Parameters:
	//   - instance: the pipeline instance being described
	//
	// Returns:
	//   - []graph.Pass: the declared passes, empty when the command will skip
	DescribePass(instance Instance) []graph.Pass
}

// Finder is implemented by container commands whose children can be searched.
type Finder interface {
	// Find returns the named command from this container's subtree, or nil.
	//
	// Parameters:
	//   - name: the command name to search for
	//
	// Returns:
	//   - Command: the found command, or nil
	Find(name string) Command
}

// Find searches cmd and, when it is a container, its whole subtree for a
// command with the given name. Debug commands use this to reach a sibling
// pass's internal buffers through arbitrarily nested containers.
//
// Parameters:
//   - cmd: the root command to search from
//   - name: the command name to search for
//
// Returns:
//   - Command: the found command, or nil
func Find(cmd Command, name string) Command {
	if cmd == nil {
		return nil
	}
	if cmd.Name() == name {
		return cmd
	}
	if finder, ok := cmd.(Finder); ok {
		return finder.Find(name)
	}
	return nil
}
