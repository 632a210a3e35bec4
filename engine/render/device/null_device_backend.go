package device

import (
	"fmt"
	"sync"
)

// validateAttachments checks that every attachment's texture format is legal
// for its attachment point. A mismatch is a structural pipeline mis-wiring,
// reported as an error rather than silently accepted.
func validateAttachments(label string, attachments []Attachment) error {
	for _, att := range attachments {
		if att.Texture == nil {
			return fmt.Errorf("framebuffer %q: nil texture at attachment point %d", label, att.Point)
		}
		isDepth := att.Texture.Format().IsDepth()
		if att.Point == AttachmentDepth && !isDepth {
			return fmt.Errorf("framebuffer %q: texture %q is not a depth format but is attached as depth", label, att.Texture.Label())
		}
		if att.Point != AttachmentDepth && isDepth {
			return fmt.Errorf("framebuffer %q: depth texture %q attached as color", label, att.Texture.Label())
		}
		if att.MipLevel >= att.Texture.MipCount() {
			return fmt.Errorf("framebuffer %q: attachment mip %d out of range for texture %q (%d mips)", label, att.MipLevel, att.Texture.Label(), att.Texture.MipCount())
		}
	}
	return nil
}

// attachmentSize derives the framebuffer dimensions from the first attachment,
// accounting for the attached mip level.
func attachmentSize(attachments []Attachment) (width, height int) {
	if len(attachments) == 0 {
		return 0, 0
	}
	att := attachments[0]
	width = att.Texture.Width() >> att.MipLevel
	height = att.Texture.Height() >> att.MipLevel
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	return width, height
}

// NullStats holds operation counts recorded by the null backend.
type NullStats struct {
	TexturesCreated      int
	TexturesReleased     int
	FramebuffersCreated  int
	FramebuffersReleased int
	BuffersCreated       int
	BuffersReleased      int
	BufferWrites         int
	Blits                int
	Upscales             int
}

// DispatchRecord is one recorded compute dispatch on the null backend.
type DispatchRecord struct {
	ProgramKey string
	Bindings   []Binding
	Groups     [3]uint32
	Barrier    Barrier
}

// DrawRecord is one recorded fullscreen draw on the null backend.
type DrawRecord struct {
	ProgramKey string
	Target     string
	Bindings   []Binding
}

// NullDeviceBackend is a headless DeviceBackend that fabricates resource
// handles and records every operation instead of touching a GPU. It backs
// unit tests and offline tooling.
type NullDeviceBackend struct {
	mu sync.Mutex

	stats      NullStats
	dispatches []DispatchRecord
	draws      []DrawRecord

	upscaleSupported bool
	upscaleErr       error
}

var _ DeviceBackend = &NullDeviceBackend{}

// NewNullDeviceBackend creates a headless recording backend.
//
// Returns:
//   - *NullDeviceBackend: the new backend
func NewNullDeviceBackend() *NullDeviceBackend {
	return &NullDeviceBackend{}
}

// SetUpscaleSupported configures whether the backend reports the vendor
// upscale feature, and an optional error its Upscale call returns even when
// supported (to exercise the dispatch-failure fallback).
//
// Parameters:
//   - supported: whether FeatureVendorUpscale is reported
//   - err: error returned by Upscale when supported (nil for success)
func (n *NullDeviceBackend) SetUpscaleSupported(supported bool, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.upscaleSupported = supported
	n.upscaleErr = err
}

// Stats returns a copy of the recorded operation counts.
//
// Returns:
//   - NullStats: the counters at this moment
func (n *NullDeviceBackend) Stats() NullStats {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.stats
}

// Dispatches returns a copy of the recorded compute dispatches in order.
//
// Returns:
//   - []DispatchRecord: the recorded dispatches
func (n *NullDeviceBackend) Dispatches() []DispatchRecord {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]DispatchRecord, len(n.dispatches))
	copy(out, n.dispatches)
	return out
}

// Draws returns a copy of the recorded fullscreen draws in order.
//
// Returns:
//   - []DrawRecord: the recorded draws
func (n *NullDeviceBackend) Draws() []DrawRecord {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]DrawRecord, len(n.draws))
	copy(out, n.draws)
	return out
}

// Reset clears all recorded operations and counters.
func (n *NullDeviceBackend) Reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.stats = NullStats{}
	n.dispatches = nil
	n.draws = nil
}

type nullTexture struct {
	backend *NullDeviceBackend
	desc    TextureDesc

	releaseOnce sync.Once
}

func (t *nullTexture) Label() string         { return t.desc.Label }
func (t *nullTexture) Width() int            { return t.desc.Width }
func (t *nullTexture) Height() int           { return t.desc.Height }
func (t *nullTexture) Layers() int           { return t.desc.Layers }
func (t *nullTexture) MipCount() int         { return t.desc.MipCount }
func (t *nullTexture) Format() TextureFormat { return t.desc.Format }

func (t *nullTexture) Release() {
	t.releaseOnce.Do(func() {
		t.backend.mu.Lock()
		defer t.backend.mu.Unlock()
		t.backend.stats.TexturesReleased++
	})
}

type nullFramebuffer struct {
	backend       *NullDeviceBackend
	label         string
	width, height int
	attachments   []Attachment

	releaseOnce sync.Once
}

func (f *nullFramebuffer) Label() string             { return f.label }
func (f *nullFramebuffer) Width() int                { return f.width }
func (f *nullFramebuffer) Height() int               { return f.height }
func (f *nullFramebuffer) Attachments() []Attachment { return f.attachments }

func (f *nullFramebuffer) Release() {
	f.releaseOnce.Do(func() {
		f.backend.mu.Lock()
		defer f.backend.mu.Unlock()
		f.backend.stats.FramebuffersReleased++
	})
}

type nullBuffer struct {
	backend *NullDeviceBackend
	desc    BufferDesc

	releaseOnce sync.Once
}

func (b *nullBuffer) Label() string { return b.desc.Label }
func (b *nullBuffer) Size() uint64  { return uint64(b.desc.ElementCount) * uint64(b.desc.Stride) }

func (b *nullBuffer) Release() {
	b.releaseOnce.Do(func() {
		b.backend.mu.Lock()
		defer b.backend.mu.Unlock()
		b.backend.stats.BuffersReleased++
	})
}

func (n *NullDeviceBackend) CreateTexture(desc TextureDesc) (Texture, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.stats.TexturesCreated++
	return &nullTexture{backend: n, desc: desc}, nil
}

func (n *NullDeviceBackend) CreateFramebuffer(label string, attachments []Attachment) (Framebuffer, error) {
	if err := validateAttachments(label, attachments); err != nil {
		return nil, err
	}
	w, h := attachmentSize(attachments)

	n.mu.Lock()
	defer n.mu.Unlock()
	n.stats.FramebuffersCreated++
	atts := make([]Attachment, len(attachments))
	copy(atts, attachments)
	return &nullFramebuffer{backend: n, label: label, width: w, height: h, attachments: atts}, nil
}

func (n *NullDeviceBackend) CreateBuffer(desc BufferDesc) (Buffer, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.stats.BuffersCreated++
	return &nullBuffer{backend: n, desc: desc}, nil
}

func (n *NullDeviceBackend) WriteBuffer(buf Buffer, offset uint64, data []byte) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.stats.BufferWrites++
}

func (n *NullDeviceBackend) RegisterComputeProgram(key, source string) error {
	return nil
}

func (n *NullDeviceBackend) RegisterRenderProgram(key, vertexSource, fragmentSource string) error {
	return nil
}

func (n *NullDeviceBackend) DispatchCompute(programKey string, bindings []Binding, groups [3]uint32, barrier Barrier) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	binds := make([]Binding, len(bindings))
	copy(binds, bindings)
	n.dispatches = append(n.dispatches, DispatchRecord{
		ProgramKey: programKey,
		Bindings:   binds,
		Groups:     groups,
		Barrier:    barrier,
	})
	return nil
}

func (n *NullDeviceBackend) DrawFullscreen(programKey string, target Framebuffer, bindings []Binding) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	binds := make([]Binding, len(bindings))
	copy(binds, bindings)
	label := ""
	if target != nil {
		label = target.Label()
	}
	n.draws = append(n.draws, DrawRecord{ProgramKey: programKey, Target: label, Bindings: binds})
	return nil
}

func (n *NullDeviceBackend) Blit(src Texture, target Framebuffer) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.stats.Blits++
	return nil
}

func (n *NullDeviceBackend) Upscale(src Texture, target Framebuffer) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.upscaleSupported {
		return fmt.Errorf("vendor upscale unsupported on null backend")
	}
	if n.upscaleErr != nil {
		return n.upscaleErr
	}
	n.stats.Upscales++
	return nil
}

func (n *NullDeviceBackend) Supports(feature Feature) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if feature == FeatureVendorUpscale {
		return n.upscaleSupported
	}
	return false
}
