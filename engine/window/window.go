// Package window provides platform windowing and surface lifecycle events.
// The engine maps these events onto viewport surface callbacks: creation and
// resize drive render target regeneration, close drives resource release.
package window

import (
	"fmt"
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
)

// Window wraps a platform window behind a common interface. Surface lifecycle
// callbacks (resize, close) feed the render pipeline; input callbacks feed
// camera controllers.
type Window interface {
	// SetFrameCallback sets the function called each message loop iteration.
	// The engine drives per-frame work from here.
	//
	// Parameters:
	//   - callback: function to call (or nil to disable)
	SetFrameCallback(callback func())

	// SetSurfaceResizedCallback sets the function called when the framebuffer
	// size changes. Dimensions are in pixels, not screen units.
	//
	// Parameters:
	//   - callback: function receiving new width and height in pixels
	SetSurfaceResizedCallback(callback func(width, height int))

	// SetSurfaceClosedCallback sets the function called when the window is
	// about to close, before platform resources are destroyed. GPU resources
	// tied to the surface must be released inside this callback.
	//
	// Parameters:
	//   - callback: function to call on close
	SetSurfaceClosedCallback(callback func())

	// SetScrollCallback sets the callback for mouse scroll wheel events.
	//
	// Parameters:
	//   - callback: function receiving scroll delta (positive = up/zoom in)
	SetScrollCallback(callback func(delta float32))

	// SetKeyDownCallback sets the callback for key press events.
	//
	// Parameters:
	//   - callback: function receiving the virtual key code
	SetKeyDownCallback(callback func(keyCode uint32))

	// SetKeyUpCallback sets the callback for key release events.
	//
	// Parameters:
	//   - callback: function receiving the virtual key code
	SetKeyUpCallback(callback func(keyCode uint32))

	// SetMiddleMouseDownCallback sets the callback for middle mouse button press.
	//
	// Parameters:
	//   - callback: function receiving mouse x, y position
	SetMiddleMouseDownCallback(callback func(x, y int32))

	// SetMiddleMouseUpCallback sets the callback for middle mouse button release.
	//
	// Parameters:
	//   - callback: function receiving mouse x, y position
	SetMiddleMouseUpCallback(callback func(x, y int32))

	// SetMouseMoveCallback sets the callback for mouse movement.
	//
	// Parameters:
	//   - callback: function receiving mouse x, y position
	SetMouseMoveCallback(callback func(x, y int32))

	// SurfaceDescriptor returns a wgpu.SurfaceDescriptor suitable for creating
	// a WebGPU surface. The descriptor is platform-appropriate (Windows HWND,
	// X11 Xlib, Wayland, macOS Metal) and is created by the wgpuglfw bridge.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the descriptor, or nil if not initialized
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// IsRunning returns true if the window is still active.
	//
	// Returns:
	//   - bool: true if window is running, false if closed
	IsRunning() bool

	// Close closes the window and releases platform resources. The surface
	// closed callback fires first.
	//
	// Returns:
	//   - error: error if close operation fails
	Close() error

	// ProcessMessages runs the window message loop. Blocks until the window is
	// closed. Calls the frame callback each iteration.
	ProcessMessages()

	// Width returns the current framebuffer width in pixels.
	//
	// Returns:
	//   - int: width in pixels
	Width() int

	// Height returns the current framebuffer height in pixels.
	//
	// Returns:
	//   - int: height in pixels
	Height() int
}

// engineWindow is the implementation of the Window interface.
type engineWindow struct {
	// title is the window title displayed in the title bar.
	title string

	// width and height are the current framebuffer dimensions in pixels.
	width  int
	height int

	// internalWindow holds the platform-specific window data (glfwWindow).
	internalWindow any

	// onFrame is called each iteration of the message loop (if set).
	onFrame func()

	// onSurfaceResized is called when the framebuffer size changes.
	onSurfaceResized func(width, height int)

	// onSurfaceClosed is called once before the window is destroyed.
	onSurfaceClosed func()

	// surfaceClosedFired guards onSurfaceClosed against double delivery when
	// both the platform close path and an explicit Close run.
	surfaceClosedFired bool

	onScroll          func(delta float32)
	onKeyDown         func(keyCode uint32)
	onKeyUp           func(keyCode uint32)
	onMiddleMouseDown func(x, y int32)
	onMiddleMouseUp   func(x, y int32)
	onMouseMove       func(x, y int32)
}

var _ Window = &engineWindow{}

// NewWindow creates a new Window with the specified options.
// Applies default values first, then each option in order.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the configured window
func NewWindow(options ...WindowBuilderOption) Window {
	w := &engineWindow{
		title:  "Halcyon",
		width:  1280,
		height: 720,
	}
	for _, opt := range options {
		opt(w)
	}
	if err := newPlatformWindow(w); err != nil {
		panic(fmt.Sprintf("failed to create platform window: %v", err))
	}
	return w
}

func (w *engineWindow) SetFrameCallback(callback func()) {
	w.onFrame = callback
}

func (w *engineWindow) SetSurfaceResizedCallback(callback func(width, height int)) {
	w.onSurfaceResized = callback
}

func (w *engineWindow) SetSurfaceClosedCallback(callback func()) {
	w.onSurfaceClosed = callback
}

func (w *engineWindow) SetScrollCallback(callback func(delta float32)) {
	w.onScroll = callback
}

func (w *engineWindow) SetKeyDownCallback(callback func(keyCode uint32)) {
	w.onKeyDown = callback
}

func (w *engineWindow) SetKeyUpCallback(callback func(keyCode uint32)) {
	w.onKeyUp = callback
}

func (w *engineWindow) SetMiddleMouseDownCallback(callback func(x, y int32)) {
	w.onMiddleMouseDown = callback
}

func (w *engineWindow) SetMiddleMouseUpCallback(callback func(x, y int32)) {
	w.onMiddleMouseUp = callback
}

func (w *engineWindow) SetMouseMoveCallback(callback func(x, y int32)) {
	w.onMouseMove = callback
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return platformGetSurfaceDescriptor(w)
}

func (w *engineWindow) IsRunning() bool {
	return platformIsRunningCheck(w)
}

func (w *engineWindow) Close() error {
	w.fireSurfaceClosed()
	return platformCloseWindow(w)
}

func (w *engineWindow) ProcessMessages() {
	for w.IsRunning() {
		if succ := platformProcessMessages(w); !succ {
			break
		}

		if w.onFrame != nil {
			w.onFrame()
		}

		runtime.Gosched()
	}
	// The loop also exits when the user closes the window; surface consumers
	// still need the close event before GLFW tears down.
	w.fireSurfaceClosed()
}

func (w *engineWindow) fireSurfaceClosed() {
	if w.surfaceClosedFired {
		return
	}
	w.surfaceClosedFired = true
	if w.onSurfaceClosed != nil {
		w.onSurfaceClosed()
	}
}

func (w *engineWindow) Width() int {
	return w.width
}

func (w *engineWindow) Height() int {
	return w.height
}
