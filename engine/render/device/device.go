package device

import (
	"sync"
)

// DeviceBackendType identifies which backend implementation a Device uses.
type DeviceBackendType int

const (
	// BackendTypeWGPU is the WebGPU backend.
	BackendTypeWGPU DeviceBackendType = iota

	// BackendTypeNull is a headless backend that fabricates handles and
	// records operations without touching a GPU. Used by tests and tooling.
	BackendTypeNull
)

// deviceImpl is the implementation of the Device interface.
type deviceImpl struct {
	mu *sync.Mutex

	backendType DeviceBackendType
	backend     DeviceBackend

	// Pre-creation config collected from builder options.
	pendingBackend    DeviceBackend
	surfaceDescriptor any
	surfaceWidth      int
	surfaceHeight     int
}

// Device is the narrow GPU interface the render command system consumes: a
// resource factory (textures, framebuffers, structured buffers), a program
// cache, and a dispatch surface with explicit memory-barrier declarations.
// All GPU object ownership stays with the caller; the Device never retains
// created resources.
type Device interface {
	// CreateTexture creates a 2D texture, a 2D array texture (Layers > 1, used
	// for stereo targets), or a 3D texture (Depth > 1) per the descriptor.
	//
	// Parameters:
	//   - desc: the texture descriptor
	//
	// Returns:
	//   - Texture: the created texture
	//   - error: an error if creation fails
	CreateTexture(desc TextureDesc) (Texture, error)

	// CreateFramebuffer creates an immutable framebuffer from the given
	// attachments. Attaching a depth-format texture to a color point (or vice
	// versa) is a structural error and is reported, never silently accepted.
	//
	// Parameters:
	//   - label: debug name for the framebuffer
	//   - attachments: the attachment bindings
	//
	// Returns:
	//   - Framebuffer: the created framebuffer
	//   - error: an error if an attachment is invalid or creation fails
	CreateFramebuffer(label string, attachments ...Attachment) (Framebuffer, error)

	// CreateBuffer creates a structured GPU buffer sized ElementCount × Stride.
	//
	// Parameters:
	//   - desc: the buffer descriptor
	//
	// Returns:
	//   - Buffer: the created buffer
	//   - error: an error if creation fails
	CreateBuffer(desc BufferDesc) (Buffer, error)

	// WriteBuffer uploads data into a buffer at the given byte offset.
	//
	// Parameters:
	//   - buf: the destination buffer
	//   - offset: destination byte offset
	//   - data: the bytes to upload
	WriteBuffer(buf Buffer, offset uint64, data []byte)

	// RegisterComputeProgram compiles and caches a compute program under key.
	// Registering an already-cached key is a no-op.
	//
	// Parameters:
	//   - key: the unique program key
	//   - source: the compute shader source
	//
	// Returns:
	//   - error: an error if compilation fails
	RegisterComputeProgram(key, source string) error

	// RegisterRenderProgram compiles and caches a fullscreen render program.
	// Registering an already-cached key is a no-op.
	//
	// Parameters:
	//   - key: the unique program key
	//   - vertexSource: the vertex shader source
	//   - fragmentSource: the fragment shader source
	//
	// Returns:
	//   - error: an error if compilation fails
	RegisterRenderProgram(key, vertexSource, fragmentSource string) error

	// DispatchCompute dispatches a cached compute program and then applies the
	// given memory-barrier mask so downstream passes observe its writes.
	//
	// Parameters:
	//   - programKey: the cached compute program key
	//   - bindings: resource bindings for the dispatch
	//   - groups: workgroup counts in x, y, z
	//   - barrier: barrier mask applied after the dispatch
	//
	// Returns:
	//   - error: an error if the program is unknown or the dispatch fails
	DispatchCompute(programKey string, bindings []Binding, groups [3]uint32, barrier Barrier) error

	// DrawFullscreen draws a fullscreen triangle through a cached render
	// program into the target framebuffer.
	//
	// Parameters:
	//   - programKey: the cached render program key
	//   - target: the destination framebuffer
	//   - bindings: resource bindings for the draw
	//
	// Returns:
	//   - error: an error if the program is unknown or the draw fails
	DrawFullscreen(programKey string, target Framebuffer, bindings []Binding) error

	// Blit copies src into target's color attachment, scaling if needed.
	//
	// Parameters:
	//   - src: the source texture
	//   - target: the destination framebuffer
	//
	// Returns:
	//   - error: an error if the blit fails
	Blit(src Texture, target Framebuffer) error

	// Upscale runs the vendor upscaling path. Callers must treat an error as
	// recoverable and fall back to Blit.
	//
	// Parameters:
	//   - src: the source texture
	//   - target: the destination framebuffer
	//
	// Returns:
	//   - error: the vendor error if the path is unsupported or failed
	Upscale(src Texture, target Framebuffer) error

	// Supports reports whether an optional backend feature is available.
	//
	// Parameters:
	//   - feature: the feature to query
	//
	// Returns:
	//   - bool: true if the backend supports the feature
	Supports(feature Feature) bool
}

var _ Device = &deviceImpl{}

// NewDevice creates a new Device with the specified backend type.
// For BackendTypeWGPU a surface descriptor must be supplied via
// WithSurface. WithDeviceBackend injects a prebuilt backend (tests).
//
// Parameters:
//   - backendType: the backend implementation to use
//   - options: variadic DeviceBuilderOption functions
//
// Returns:
//   - Device: the configured device
func NewDevice(backendType DeviceBackendType, options ...DeviceBuilderOption) Device {
	d := &deviceImpl{
		mu:          &sync.Mutex{},
		backendType: backendType,
	}

	for _, opt := range options {
		opt(d)
	}

	if d.pendingBackend != nil {
		d.backend = d.pendingBackend
		return d
	}

	switch backendType {
	case BackendTypeNull:
		d.backend = NewNullDeviceBackend()
	case BackendTypeWGPU:
		fallthrough
	default:
		d.backend = newWGPUDeviceBackend(d.surfaceDescriptor, d.surfaceWidth, d.surfaceHeight)
	}
	return d
}

func (d *deviceImpl) CreateTexture(desc TextureDesc) (Texture, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if desc.MipCount < 1 {
		desc.MipCount = 1
	}
	if desc.Layers < 1 {
		desc.Layers = 1
	}
	if desc.Depth < 1 {
		desc.Depth = 1
	}
	return d.backend.CreateTexture(desc)
}

func (d *deviceImpl) CreateFramebuffer(label string, attachments ...Attachment) (Framebuffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.backend.CreateFramebuffer(label, attachments)
}

func (d *deviceImpl) CreateBuffer(desc BufferDesc) (Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.backend.CreateBuffer(desc)
}

func (d *deviceImpl) WriteBuffer(buf Buffer, offset uint64, data []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.backend.WriteBuffer(buf, offset, data)
}

func (d *deviceImpl) RegisterComputeProgram(key, source string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.backend.RegisterComputeProgram(key, source)
}

func (d *deviceImpl) RegisterRenderProgram(key, vertexSource, fragmentSource string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.backend.RegisterRenderProgram(key, vertexSource, fragmentSource)
}

func (d *deviceImpl) DispatchCompute(programKey string, bindings []Binding, groups [3]uint32, barrier Barrier) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.backend.DispatchCompute(programKey, bindings, groups, barrier)
}

func (d *deviceImpl) DrawFullscreen(programKey string, target Framebuffer, bindings []Binding) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.backend.DrawFullscreen(programKey, target, bindings)
}

func (d *deviceImpl) Blit(src Texture, target Framebuffer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.backend.Blit(src, target)
}

func (d *deviceImpl) Upscale(src Texture, target Framebuffer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.backend.Upscale(src, target)
}

func (d *deviceImpl) Supports(feature Feature) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.backend.Supports(feature)
}
