package device

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
)

// fullscreenBlitWGSL is the internal program used by Blit. It draws a single
// oversized triangle and samples the source with linear filtering, so it also
// covers the scaled-copy case where source and target dimensions differ.
const fullscreenBlitWGSL = `
struct VSOut {
    @builtin(position) pos: vec4<f32>,
    @location(0) uv: vec2<f32>,
};

@vertex
fn vs_main(@builtin(vertex_index) idx: u32) -> VSOut {
    var out: VSOut;
    let x = f32(i32(idx & 1u) * 4 - 1);
    let y = f32(i32(idx & 2u) * 2 - 1);
    out.pos = vec4<f32>(x, y, 0.0, 1.0);
    out.uv = vec2<f32>((x + 1.0) * 0.5, (1.0 - y) * 0.5);
    return out;
}

@group(0) @binding(0) var srcTexture: texture_2d<f32>;
@group(0) @binding(1) var srcSampler: sampler;

@fragment
fn fs_main(in: VSOut) -> @location(0) vec4<f32> {
    return textureSample(srcTexture, srcSampler, in.uv);
}
`

type wgpuDeviceBackendImpl struct {
	mu *sync.Mutex

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface
	device   *wgpu.Device
	queue    *wgpu.Queue

	computePipelines map[string]*wgpu.ComputePipeline

	// Render programs keep their sources and build one pipeline per target
	// format on first use, since wgpu bakes the color target format into the
	// pipeline object.
	renderSources   map[string][2]string
	renderPipelines map[string]map[wgpu.TextureFormat]*wgpu.RenderPipeline

	linearSampler *wgpu.Sampler
}

var _ DeviceBackend = &wgpuDeviceBackendImpl{}

// newWGPUDeviceBackend creates the WGPU backend against the given platform
// surface descriptor. A nil descriptor is allowed and yields a surfaceless
// device suitable for offscreen rendering.
func newWGPUDeviceBackend(surfaceDescriptor any, width, height int) DeviceBackend {
	runtime.LockOSThread()
	w := &wgpuDeviceBackendImpl{
		mu:               &sync.Mutex{},
		instance:         wgpu.CreateInstance(nil),
		computePipelines: make(map[string]*wgpu.ComputePipeline),
		renderSources:    make(map[string][2]string),
		renderPipelines:  make(map[string]map[wgpu.TextureFormat]*wgpu.RenderPipeline),
	}

	opts := &wgpu.RequestAdapterOptions{}
	if surfaceDescriptor != nil {
		sd, ok := surfaceDescriptor.(*wgpu.SurfaceDescriptor)
		if !ok {
			panic(fmt.Sprintf("unexpected surface descriptor type %T", surfaceDescriptor))
		}
		w.surface = w.instance.CreateSurface(sd)
		opts.CompatibleSurface = w.surface
	}

	a, err := w.instance.RequestAdapter(opts)
	if err != nil {
		panic(err)
	}
	w.adapter = a

	limits := wgpu.DefaultLimits()
	limits.MaxBindGroups = 8

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Render Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: limits,
		},
	})
	if err != nil {
		panic(err)
	}
	w.device = d
	w.queue = d.GetQueue()

	if w.surface != nil && width > 0 && height > 0 {
		capabilities := w.surface.GetCapabilities(w.adapter)
		w.surface.Configure(w.adapter, w.device, &wgpu.SurfaceConfiguration{
			Usage:       wgpu.TextureUsageRenderAttachment,
			Format:      capabilities.Formats[0],
			Width:       uint32(width),
			Height:      uint32(height),
			PresentMode: wgpu.PresentModeImmediate,
			AlphaMode:   capabilities.AlphaModes[0],
		})
	}

	return w
}

func wgpuFormat(f TextureFormat) wgpu.TextureFormat {
	switch f {
	case TextureFormatRGBA8:
		return wgpu.TextureFormatRGBA8Unorm
	case TextureFormatRGBA16F:
		return wgpu.TextureFormatRGBA16Float
	case TextureFormatRG16F:
		return wgpu.TextureFormatRG16Float
	case TextureFormatR8:
		return wgpu.TextureFormatR8Unorm
	case TextureFormatR32F:
		return wgpu.TextureFormatR32Float
	case TextureFormatDepth32F:
		return wgpu.TextureFormatDepth32Float
	default:
		panic(fmt.Sprintf("unknown texture format %d", f))
	}
}

func wgpuUsage(f TextureFormat) wgpu.TextureUsage {
	if f.IsDepth() {
		return wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding
	}
	usage := wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding |
		wgpu.TextureUsageCopySrc | wgpu.TextureUsageCopyDst
	switch f {
	case TextureFormatRGBA16F, TextureFormatRG16F, TextureFormatR32F:
		// Float formats double as storage images for compute passes.
		usage |= wgpu.TextureUsageStorageBinding
	}
	return usage
}

type wgpuTexture struct {
	backend *wgpuDeviceBackendImpl
	desc    TextureDesc
	texture *wgpu.Texture

	viewMu sync.Mutex
	views  map[[2]int]*wgpu.TextureView // keyed by mip, layer (-1 = all)

	releaseOnce sync.Once
}

func (t *wgpuTexture) Label() string         { return t.desc.Label }
func (t *wgpuTexture) Width() int            { return t.desc.Width }
func (t *wgpuTexture) Height() int           { return t.desc.Height }
func (t *wgpuTexture) Layers() int           { return t.desc.Layers }
func (t *wgpuTexture) MipCount() int         { return t.desc.MipCount }
func (t *wgpuTexture) Format() TextureFormat { return t.desc.Format }

// view returns a cached texture view restricted to the given mip and layer.
// Pass -1 to cover the full mip chain or all layers.
func (t *wgpuTexture) view(mip, layer int) (*wgpu.TextureView, error) {
	t.viewMu.Lock()
	defer t.viewMu.Unlock()

	key := [2]int{mip, layer}
	if v, ok := t.views[key]; ok {
		return v, nil
	}

	desc := &wgpu.TextureViewDescriptor{
		Label:     t.desc.Label,
		Format:    wgpuFormat(t.desc.Format),
		Dimension: wgpu.TextureViewDimension2D,
	}
	if mip >= 0 {
		desc.BaseMipLevel = uint32(mip)
		desc.MipLevelCount = 1
	} else {
		desc.MipLevelCount = uint32(t.desc.MipCount)
	}
	if layer >= 0 {
		desc.BaseArrayLayer = uint32(layer)
		desc.ArrayLayerCount = 1
	} else if t.desc.Layers > 1 {
		desc.Dimension = wgpu.TextureViewDimension2DArray
		desc.ArrayLayerCount = uint32(t.desc.Layers)
	} else {
		desc.ArrayLayerCount = 1
	}

	v, err := t.texture.CreateView(desc)
	if err != nil {
		return nil, fmt.Errorf("failed to create view for texture %q: %w", t.desc.Label, err)
	}
	if t.views == nil {
		t.views = make(map[[2]int]*wgpu.TextureView)
	}
	t.views[key] = v
	return v, nil
}

func (t *wgpuTexture) Release() {
	t.releaseOnce.Do(func() {
		t.viewMu.Lock()
		for _, v := range t.views {
			v.Release()
		}
		t.views = nil
		t.viewMu.Unlock()
		t.texture.Release()
	})
}

type wgpuFramebuffer struct {
	label         string
	width, height int
	attachments   []Attachment

	colorViews []*wgpu.TextureView
	depthView  *wgpu.TextureView

	releaseOnce sync.Once
}

func (f *wgpuFramebuffer) Label() string             { return f.label }
func (f *wgpuFramebuffer) Width() int                { return f.width }
func (f *wgpuFramebuffer) Height() int               { return f.height }
func (f *wgpuFramebuffer) Attachments() []Attachment { return f.attachments }

func (f *wgpuFramebuffer) Release() {
	// Views are owned by the attached textures and released with them.
	f.releaseOnce.Do(func() {
		f.colorViews = nil
		f.depthView = nil
	})
}

type wgpuBuffer struct {
	desc   BufferDesc
	buffer *wgpu.Buffer

	releaseOnce sync.Once
}

func (b *wgpuBuffer) Label() string { return b.desc.Label }
func (b *wgpuBuffer) Size() uint64  { return uint64(b.desc.ElementCount) * uint64(b.desc.Stride) }

func (b *wgpuBuffer) Release() {
	b.releaseOnce.Do(func() {
		b.buffer.Release()
	})
}

func (w *wgpuDeviceBackendImpl) CreateTexture(desc TextureDesc) (Texture, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	dimension := wgpu.TextureDimension2D
	depthOrLayers := uint32(desc.Layers)
	if desc.Depth > 1 {
		dimension = wgpu.TextureDimension3D
		depthOrLayers = uint32(desc.Depth)
	}

	tex, err := w.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: desc.Label,
		Size: wgpu.Extent3D{
			Width:              uint32(desc.Width),
			Height:             uint32(desc.Height),
			DepthOrArrayLayers: depthOrLayers,
		},
		MipLevelCount: uint32(desc.MipCount),
		SampleCount:   1,
		Dimension:     dimension,
		Format:        wgpuFormat(desc.Format),
		Usage:         wgpuUsage(desc.Format),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create texture %q: %w", desc.Label, err)
	}

	return &wgpuTexture{backend: w, desc: desc, texture: tex}, nil
}

func (w *wgpuDeviceBackendImpl) CreateFramebuffer(label string, attachments []Attachment) (Framebuffer, error) {
	if err := validateAttachments(label, attachments); err != nil {
		return nil, err
	}
	width, height := attachmentSize(attachments)

	fb := &wgpuFramebuffer{
		label:       label,
		width:       width,
		height:      height,
		attachments: append([]Attachment(nil), attachments...),
	}
	for _, att := range attachments {
		tex, ok := att.Texture.(*wgpuTexture)
		if !ok {
			return nil, fmt.Errorf("framebuffer %q: texture %q was not created by this backend", label, att.Texture.Label())
		}
		layer := att.Layer
		if tex.desc.Layers <= 1 {
			layer = -1
		}
		view, err := tex.view(att.MipLevel, layer)
		if err != nil {
			return nil, err
		}
		if att.Point == AttachmentDepth {
			fb.depthView = view
		} else {
			fb.colorViews = append(fb.colorViews, view)
		}
	}
	return fb, nil
}

func (w *wgpuDeviceBackendImpl) CreateBuffer(desc BufferDesc) (Buffer, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	usage := wgpu.BufferUsageCopyDst
	if desc.Usage&BufferUsageStorage != 0 {
		usage |= wgpu.BufferUsageStorage
	}
	if desc.Usage&BufferUsageUniform != 0 {
		usage |= wgpu.BufferUsageUniform
	}
	if desc.Usage&BufferUsageIndirect != 0 {
		usage |= wgpu.BufferUsageIndirect
	}

	buf, err := w.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            desc.Label,
		Size:             uint64(desc.ElementCount) * uint64(desc.Stride),
		Usage:            usage,
		MappedAtCreation: false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create buffer %q: %w", desc.Label, err)
	}
	return &wgpuBuffer{desc: desc, buffer: buf}, nil
}

func (w *wgpuDeviceBackendImpl) WriteBuffer(buf Buffer, offset uint64, data []byte) {
	w.mu.Lock()
	defer w.mu.Unlock()

	wb, ok := buf.(*wgpuBuffer)
	if !ok {
		return
	}
	w.queue.WriteBuffer(wb.buffer, offset, data)
}

func (w *wgpuDeviceBackendImpl) RegisterComputeProgram(key, source string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.computePipelines[key]; ok {
		return nil
	}

	module, err := w.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: key,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: source,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to compile compute program %q: %w", key, err)
	}
	defer module.Release()

	// Layout nil lets wgpu derive the bind group layout from the shader, so
	// dispatch bind groups can be assembled against GetBindGroupLayout(0).
	created, err := w.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  key + " Compute Pipeline",
		Layout: nil,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     module,
			EntryPoint: "main",
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create compute pipeline %q: %w", key, err)
	}

	w.computePipelines[key] = created
	return nil
}

func (w *wgpuDeviceBackendImpl) RegisterRenderProgram(key, vertexSource, fragmentSource string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.renderSources[key]; ok {
		return nil
	}
	w.renderSources[key] = [2]string{vertexSource, fragmentSource}
	return nil
}

// renderPipelineFor builds (or returns the cached) render pipeline for a
// program key and color target format. Caller must hold w.mu.
func (w *wgpuDeviceBackendImpl) renderPipelineFor(key string, format wgpu.TextureFormat) (*wgpu.RenderPipeline, error) {
	if byFormat, ok := w.renderPipelines[key]; ok {
		if p, ok := byFormat[format]; ok {
			return p, nil
		}
	}

	sources, ok := w.renderSources[key]
	if !ok {
		return nil, fmt.Errorf("unknown render program %q", key)
	}

	vs, err := w.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: key + " VS",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: sources[0],
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to compile vertex stage of %q: %w", key, err)
	}
	defer vs.Release()

	fs, err := w.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: key + " FS",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: sources[1],
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to compile fragment stage of %q: %w", key, err)
	}
	defer fs.Release()

	created, err := w.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  key + " Render Pipeline",
		Layout: nil,
		Vertex: wgpu.VertexState{
			Module:     vs,
			EntryPoint: "vs_main",
		},
		Fragment: &wgpu.FragmentState{
			Module:     fs,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{
				{
					Format:    format,
					Blend:     nil,
					WriteMask: wgpu.ColorWriteMaskAll,
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology: wgpu.PrimitiveTopologyTriangleList,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create render pipeline %q: %w", key, err)
	}

	if w.renderPipelines[key] == nil {
		w.renderPipelines[key] = make(map[wgpu.TextureFormat]*wgpu.RenderPipeline)
	}
	w.renderPipelines[key][format] = created
	return created, nil
}

// sampler returns the shared linear sampler, creating it on first use.
// Caller must hold w.mu.
func (w *wgpuDeviceBackendImpl) sampler() (*wgpu.Sampler, error) {
	if w.linearSampler != nil {
		return w.linearSampler, nil
	}
	s, err := w.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "Shared Linear Sampler",
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create shared sampler: %w", err)
	}
	w.linearSampler = s
	return s, nil
}

// bindGroupEntries lowers a binding list into wgpu bind group entries.
// Inline uniform data becomes a transient uniform buffer; the caller releases
// the returned buffers after the submission completes. Caller must hold w.mu.
func (w *wgpuDeviceBackendImpl) bindGroupEntries(bindings []Binding) ([]wgpu.BindGroupEntry, []*wgpu.Buffer, error) {
	entries := make([]wgpu.BindGroupEntry, 0, len(bindings))
	var transient []*wgpu.Buffer

	releaseTransient := func() {
		for _, buf := range transient {
			buf.Release()
		}
	}

	for _, binding := range bindings {
		switch {
		case binding.Sampled != nil:
			tex, ok := binding.Sampled.(*wgpuTexture)
			if !ok {
				releaseTransient()
				return nil, nil, fmt.Errorf("binding %d: sampled texture was not created by this backend", binding.Index)
			}
			// Programs sample texture_2d, so array textures bind one layer.
			layer := -1
			if tex.desc.Layers > 1 {
				layer = binding.SampledLayer
			}
			view, err := tex.view(binding.SampledMip, layer)
			if err != nil {
				releaseTransient()
				return nil, nil, err
			}
			entries = append(entries, wgpu.BindGroupEntry{
				Binding:     uint32(binding.Index),
				TextureView: view,
			})
		case binding.Image != nil:
			tex, ok := binding.Image.(*wgpuTexture)
			if !ok {
				releaseTransient()
				return nil, nil, fmt.Errorf("binding %d: storage image was not created by this backend", binding.Index)
			}
			view, err := tex.view(binding.ImageMip, -1)
			if err != nil {
				releaseTransient()
				return nil, nil, err
			}
			entries = append(entries, wgpu.BindGroupEntry{
				Binding:     uint32(binding.Index),
				TextureView: view,
			})
		case binding.Buffer != nil:
			buf, ok := binding.Buffer.(*wgpuBuffer)
			if !ok {
				releaseTransient()
				return nil, nil, fmt.Errorf("binding %d: buffer was not created by this backend", binding.Index)
			}
			entries = append(entries, wgpu.BindGroupEntry{
				Binding: uint32(binding.Index),
				Buffer:  buf.buffer,
				Size:    buf.Size(),
			})
		case binding.Sampler != SamplerNone:
			samp, err := w.sampler()
			if err != nil {
				releaseTransient()
				return nil, nil, err
			}
			entries = append(entries, wgpu.BindGroupEntry{
				Binding: uint32(binding.Index),
				Sampler: samp,
			})
		case binding.Uniform != nil:
			buf, err := w.device.CreateBuffer(&wgpu.BufferDescriptor{
				Label:            "Inline Uniform",
				Size:             uint64(len(binding.Uniform)),
				Usage:            wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
				MappedAtCreation: false,
			})
			if err != nil {
				releaseTransient()
				return nil, nil, fmt.Errorf("binding %d: failed to create inline uniform buffer: %w", binding.Index, err)
			}
			w.queue.WriteBuffer(buf, 0, binding.Uniform)
			transient = append(transient, buf)
			entries = append(entries, wgpu.BindGroupEntry{
				Binding: uint32(binding.Index),
				Buffer:  buf,
				Size:    uint64(len(binding.Uniform)),
			})
		default:
			releaseTransient()
			return nil, nil, fmt.Errorf("binding %d has no resource set", binding.Index)
		}
	}
	return entries, transient, nil
}

func (w *wgpuDeviceBackendImpl) DispatchCompute(programKey string, bindings []Binding, groups [3]uint32, barrier Barrier) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	computePipeline, ok := w.computePipelines[programKey]
	if !ok {
		return fmt.Errorf("unknown compute program %q", programKey)
	}

	entries, transient, err := w.bindGroupEntries(bindings)
	if err != nil {
		return err
	}
	releaseTransient := func() {
		for _, buf := range transient {
			buf.Release()
		}
	}

	bindGroup, err := w.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   programKey + " Bind Group",
		Layout:  computePipeline.GetBindGroupLayout(0),
		Entries: entries,
	})
	if err != nil {
		releaseTransient()
		return fmt.Errorf("failed to create bind group for %q: %w", programKey, err)
	}
	defer bindGroup.Release()

	encoder, err := w.device.CreateCommandEncoder(nil)
	if err != nil {
		releaseTransient()
		return err
	}
	defer encoder.Release()

	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(computePipeline)
	pass.SetBindGroup(0, bindGroup, nil)
	pass.DispatchWorkgroups(groups[0], groups[1], groups[2])
	pass.End()

	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		releaseTransient()
		return err
	}
	// The barrier mask is satisfied by wgpu's usage-scope tracking: a queue
	// submission boundary orders the dispatch's writes before any later pass
	// that declares the same resources, which covers every mask kind.
	w.queue.Submit(commandBuffer)
	commandBuffer.Release()
	releaseTransient()
	return nil
}

func (w *wgpuDeviceBackendImpl) DrawFullscreen(programKey string, target Framebuffer, bindings []Binding) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	fb, ok := target.(*wgpuFramebuffer)
	if !ok {
		return errors.New("target framebuffer was not created by this backend")
	}
	if len(fb.colorViews) == 0 {
		return fmt.Errorf("framebuffer %q has no color attachment to draw into", fb.label)
	}

	format := wgpuFormat(fb.attachments[0].Texture.Format())
	renderPipeline, err := w.renderPipelineFor(programKey, format)
	if err != nil {
		return err
	}

	entries, transient, err := w.bindGroupEntries(bindings)
	if err != nil {
		return err
	}
	releaseTransient := func() {
		for _, buf := range transient {
			buf.Release()
		}
	}

	var bindGroup *wgpu.BindGroup
	if len(entries) > 0 {
		bindGroup, err = w.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:   programKey + " Bind Group",
			Layout:  renderPipeline.GetBindGroupLayout(0),
			Entries: entries,
		})
		if err != nil {
			releaseTransient()
			return fmt.Errorf("failed to create bind group for %q: %w", programKey, err)
		}
		defer bindGroup.Release()
	}

	encoder, err := w.device.CreateCommandEncoder(nil)
	if err != nil {
		releaseTransient()
		return err
	}
	defer encoder.Release()

	colorAttachments := make([]wgpu.RenderPassColorAttachment, len(fb.colorViews))
	for i, view := range fb.colorViews {
		colorAttachments[i] = wgpu.RenderPassColorAttachment{
			View:    view,
			LoadOp:  wgpu.LoadOpLoad,
			StoreOp: wgpu.StoreOpStore,
		}
	}

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label:            fb.label,
		ColorAttachments: colorAttachments,
	})
	pass.SetPipeline(renderPipeline)
	if bindGroup != nil {
		pass.SetBindGroup(0, bindGroup, nil)
	}
	pass.Draw(3, 1, 0, 0)
	pass.End()

	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		releaseTransient()
		return err
	}
	w.queue.Submit(commandBuffer)
	commandBuffer.Release()
	releaseTransient()
	return nil
}

func (w *wgpuDeviceBackendImpl) Blit(src Texture, target Framebuffer) error {
	w.mu.Lock()
	if err := w.RegisterBlitProgramLocked(); err != nil {
		w.mu.Unlock()
		return err
	}

	tex, ok := src.(*wgpuTexture)
	if !ok {
		w.mu.Unlock()
		return errors.New("source texture was not created by this backend")
	}
	samp, err := w.sampler()
	if err != nil {
		w.mu.Unlock()
		return err
	}

	fb, ok := target.(*wgpuFramebuffer)
	if !ok {
		w.mu.Unlock()
		return errors.New("target framebuffer was not created by this backend")
	}
	if len(fb.colorViews) == 0 {
		w.mu.Unlock()
		return fmt.Errorf("framebuffer %q has no color attachment to blit into", fb.label)
	}

	// The blit program samples texture_2d. An array source binds the layer
	// matching the target attachment, so per-eye targets copy their own eye.
	srcLayer := -1
	if tex.desc.Layers > 1 {
		srcLayer = fb.attachments[0].Layer
	}
	view, err := tex.view(0, srcLayer)
	if err != nil {
		w.mu.Unlock()
		return err
	}

	format := wgpuFormat(fb.attachments[0].Texture.Format())
	renderPipeline, err := w.renderPipelineFor("internal/blit", format)
	if err != nil {
		w.mu.Unlock()
		return err
	}

	bindGroup, err := w.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Blit Bind Group",
		Layout: renderPipeline.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: view},
			{Binding: 1, Sampler: samp},
		},
	})
	if err != nil {
		w.mu.Unlock()
		return fmt.Errorf("failed to create blit bind group: %w", err)
	}
	defer bindGroup.Release()

	encoder, err := w.device.CreateCommandEncoder(nil)
	if err != nil {
		w.mu.Unlock()
		return err
	}
	defer encoder.Release()

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "Blit Pass",
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:    fb.colorViews[0],
				LoadOp:  wgpu.LoadOpClear,
				StoreOp: wgpu.StoreOpStore,
			},
		},
	})
	pass.SetPipeline(renderPipeline)
	pass.SetBindGroup(0, bindGroup, nil)
	pass.Draw(3, 1, 0, 0)
	pass.End()

	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		w.mu.Unlock()
		return err
	}
	w.queue.Submit(commandBuffer)
	commandBuffer.Release()
	w.mu.Unlock()
	return nil
}

// RegisterBlitProgramLocked registers the internal blit program sources.
// Caller must hold w.mu.
func (w *wgpuDeviceBackendImpl) RegisterBlitProgramLocked() error {
	if _, ok := w.renderSources["internal/blit"]; ok {
		return nil
	}
	w.renderSources["internal/blit"] = [2]string{fullscreenBlitWGSL, fullscreenBlitWGSL}
	return nil
}

func (w *wgpuDeviceBackendImpl) Upscale(src Texture, target Framebuffer) error {
	return errors.New("vendor upscale path is not available on the wgpu backend")
}

func (w *wgpuDeviceBackendImpl) Supports(feature Feature) bool {
	return false
}
