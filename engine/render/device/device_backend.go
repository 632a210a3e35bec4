package device

// TextureFormat identifies the internal pixel format of a GPU texture.
type TextureFormat int

const (
	// TextureFormatRGBA8 is 8-bit-per-channel color, the swapchain-compatible default.
	TextureFormatRGBA8 TextureFormat = iota

	// TextureFormatRGBA16F is half-float color, used for HDR intermediate targets.
	TextureFormatRGBA16F

	// TextureFormatRG16F is a two-channel half-float format, used for motion vectors.
	TextureFormatRG16F

	// TextureFormatR8 is single-channel 8-bit, used for occlusion masks.
	TextureFormatR8

	// TextureFormatR32F is single-channel full-float, used for linearized depth.
	TextureFormatR32F

	// TextureFormatDepth32F is the depth-attachment format.
	TextureFormatDepth32F
)

// IsDepth reports whether the format is only attachable as a depth target.
//
// Returns:
//   - bool: true for depth formats
func (f TextureFormat) IsDepth() bool {
	return f == TextureFormatDepth32F
}

// AttachmentPoint identifies where a texture is bound on a framebuffer.
type AttachmentPoint int

const (
	// AttachmentColor0 through AttachmentColor3 are the color attachment slots.
	AttachmentColor0 AttachmentPoint = iota
	AttachmentColor1
	AttachmentColor2
	AttachmentColor3

	// AttachmentDepth is the depth attachment slot.
	AttachmentDepth
)

// Barrier is a bitmask of GPU memory-barrier kinds applied after a compute
// dispatch. A consumer pass must not assume a producer's writes are visible
// without the matching barrier kind.
type Barrier uint32

const (
	// BarrierNone applies no barrier.
	BarrierNone Barrier = 0

	// BarrierShaderStorage makes storage buffer writes visible to subsequent
	// shader storage reads.
	BarrierShaderStorage Barrier = 1 << 0

	// BarrierTextureFetch makes image writes visible to subsequent sampled
	// texture fetches.
	BarrierTextureFetch Barrier = 1 << 1

	// BarrierImageAccess makes image writes visible to subsequent image
	// load/store access.
	BarrierImageAccess Barrier = 1 << 2
)

// Access describes how a storage image binding is accessed by a program.
type Access int

const (
	// AccessRead binds the image read-only.
	AccessRead Access = iota

	// AccessWrite binds the image write-only.
	AccessWrite

	// AccessReadWrite binds the image for load and store.
	AccessReadWrite
)

// BufferUsage is a bitmask of GPU buffer usage flags.
type BufferUsage uint32

const (
	// BufferUsageStorage marks a buffer bindable as a shader storage buffer.
	BufferUsageStorage BufferUsage = 1 << 0

	// BufferUsageUniform marks a buffer bindable as a uniform buffer.
	BufferUsageUniform BufferUsage = 1 << 1

	// BufferUsageIndirect marks a buffer usable as indirect dispatch/draw arguments.
	BufferUsageIndirect BufferUsage = 1 << 2
)

// Feature identifies an optional backend capability.
type Feature int

const (
	// FeatureVendorUpscale is a vendor-provided upscaling path (e.g. a native
	// scaler extension). Backends that lack it must report false so callers
	// fall back to a standard blit.
	FeatureVendorUpscale Feature = iota
)

// TextureDesc describes a texture to create. Layers > 1 creates a 2D array
// texture (layer count 2 for stereo targets); Depth > 1 creates a 3D texture.
type TextureDesc struct {
	// Label is a debug name attached to the GPU object.
	Label string
	// Width and Height are the texel dimensions of mip 0.
	Width, Height int
	// Layers is the array layer count; 0 or 1 means a plain 2D texture.
	Layers int
	// Depth is the 3D depth; 0 or 1 means the texture is not 3D.
	Depth int
	// MipCount is the number of mip levels; 0 means 1.
	MipCount int
	// Format is the internal pixel format.
	Format TextureFormat
}

// BufferDesc describes a structured GPU buffer to create.
type BufferDesc struct {
	// Label is a debug name attached to the GPU object.
	Label string
	// ElementCount is the number of structured elements.
	ElementCount int
	// Stride is the size of one element in bytes.
	Stride int
	// Usage is the buffer usage mask.
	Usage BufferUsage
}

// Texture is a GPU texture handle.
type Texture interface {
	// Label returns the debug name the texture was created with.
	Label() string

	// Width returns the mip-0 width in texels.
	Width() int

	// Height returns the mip-0 height in texels.
	Height() int

	// Layers returns the array layer count (1 for plain 2D textures).
	Layers() int

	// MipCount returns the number of mip levels.
	MipCount() int

	// Format returns the internal pixel format.
	Format() TextureFormat

	// Release destroys the underlying GPU object. Safe to call more than once.
	Release()
}

// Attachment binds one texture mip/layer to a framebuffer attachment point.
type Attachment struct {
	// Point is the attachment slot.
	Point AttachmentPoint
	// Texture is the attached texture.
	Texture Texture
	// MipLevel selects the attached mip (0 = base).
	MipLevel int
	// Layer selects the attached array layer for array textures.
	Layer int
}

// Framebuffer is a GPU render target composed of one or more attachments.
// Framebuffers are immutable: a change of attachments requires creating a new
// framebuffer and releasing the old one.
type Framebuffer interface {
	// Label returns the debug name the framebuffer was created with.
	Label() string

	// Width returns the render width in pixels, derived from the attachments.
	Width() int

	// Height returns the render height in pixels, derived from the attachments.
	Height() int

	// Attachments returns the attachment list the framebuffer was created with.
	Attachments() []Attachment

	// Release destroys the framebuffer. The attached textures are NOT released.
	Release()
}

// Buffer is a GPU structured buffer handle.
type Buffer interface {
	// Label returns the debug name the buffer was created with.
	Label() string

	// Size returns the buffer size in bytes.
	Size() uint64

	// Release destroys the underlying GPU object. Safe to call more than once.
	Release()
}

// SamplerKind selects one of the device's shared samplers for a binding.
type SamplerKind int

const (
	// SamplerNone marks a binding that carries no sampler.
	SamplerNone SamplerKind = iota

	// SamplerLinear is the shared clamp-to-edge linear-filtering sampler.
	SamplerLinear
)

// Binding attaches one resource to a program binding index for a dispatch or
// draw. Exactly one of Sampled, Image, Buffer, Uniform, or Sampler should be
// set.
type Binding struct {
	// Index is the binding index within the program's bind group.
	Index int

	// Sampled binds a texture for sampled (filtered) reads.
	Sampled Texture
	// SampledMip restricts sampling to a single mip level (-1 = full chain).
	SampledMip int
	// SampledLayer selects the bound layer of an array texture. Programs
	// declare texture_2d, so array textures always bind one layer; ignored for
	// plain 2D textures.
	SampledLayer int

	// Image binds a texture for storage image access.
	Image Texture
	// ImageMip selects the bound mip level.
	ImageMip int
	// ImageAccess declares how the program accesses the image.
	ImageAccess Access

	// Buffer binds a storage buffer.
	Buffer Buffer

	// Uniform uploads inline uniform data for this dispatch.
	Uniform []byte

	// Sampler binds one of the device's shared samplers at the index.
	Sampler SamplerKind
}

// DeviceBackend is the backend implementation contract for a Device.
// Implementations exist per graphics API (WGPU) plus a headless null backend
// used for tests and tooling.
type DeviceBackend interface {
	// CreateTexture creates a 2D, 2D-array, or 3D texture per the descriptor.
	CreateTexture(desc TextureDesc) (Texture, error)

	// CreateFramebuffer creates an immutable framebuffer from attachments.
	// Returns an error when an attachment's texture format is not attachable
	// at its attachment point (a structural mis-wiring, not a transient state).
	CreateFramebuffer(label string, attachments []Attachment) (Framebuffer, error)

	// CreateBuffer creates a structured GPU buffer.
	CreateBuffer(desc BufferDesc) (Buffer, error)

	// WriteBuffer uploads data into a buffer at the given byte offset.
	WriteBuffer(buf Buffer, offset uint64, data []byte)

	// RegisterComputeProgram compiles and caches a compute program under key.
	RegisterComputeProgram(key, source string) error

	// RegisterRenderProgram compiles and caches a fullscreen render program under key.
	RegisterRenderProgram(key, vertexSource, fragmentSource string) error

	// DispatchCompute dispatches the cached compute program with the given
	// bindings and workgroup counts, then applies the barrier mask.
	DispatchCompute(programKey string, bindings []Binding, groups [3]uint32, barrier Barrier) error

	// DrawFullscreen draws a fullscreen triangle through the cached render
	// program into the target framebuffer.
	DrawFullscreen(programKey string, target Framebuffer, bindings []Binding) error

	// Blit copies src into the target framebuffer's color attachment,
	// scaling if the dimensions differ.
	Blit(src Texture, target Framebuffer) error

	// Upscale runs the vendor upscaling path from src into target. Returns an
	// error (carrying the vendor code) when the path is unsupported or fails;
	// callers fall back to Blit.
	Upscale(src Texture, target Framebuffer) error

	// Supports reports whether an optional feature is available.
	Supports(feature Feature) bool
}
