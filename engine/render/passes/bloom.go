package passes

import (
	"fmt"
	"time"

	"github.com/halcyon3d/halcyon-go/common"
	"github.com/halcyon3d/halcyon-go/engine/render/command"
	"github.com/halcyon3d/halcyon-go/engine/render/device"
	"github.com/halcyon3d/halcyon-go/engine/render/graph"
	"github.com/halcyon3d/halcyon-go/engine/render/state"
)

// DefaultBloomMips is the default depth of the bloom mip chain.
const DefaultBloomMips = 6

// bloomTileSize is the workgroup tile size of the downsample dispatches.
const bloomTileSize = 8

const (
	bloomDownsampleKey = "bloom/downsample"
	bloomCompositeKey  = "bloom/composite"
)

// bloomDownsampleWGSL box-filters one mip of the bloom chain into the next.
const bloomDownsampleWGSL = `
@group(0) @binding(0) var srcMip: texture_2d<f32>;
@group(0) @binding(1) var dstMip: texture_storage_2d<rgba16float, write>;

@compute @workgroup_size(8, 8, 1)
fn main(@builtin(global_invocation_id) id: vec3<u32>) {
    let dims = textureDimensions(dstMip);
    if (id.x >= dims.x || id.y >= dims.y) {
        return;
    }
    let base = vec2<i32>(id.xy * 2u);
    var sum = vec4<f32>(0.0);
    for (var dy = 0; dy < 2; dy++) {
        for (var dx = 0; dx < 2; dx++) {
            sum += textureLoad(srcMip, base + vec2<i32>(dx, dy), 0);
        }
    }
    textureStore(dstMip, vec2<i32>(id.xy), sum * 0.25);
}
`

// bloomCompositeWGSL adds the blurred chain back onto scene color.
const bloomCompositeWGSL = `
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

@group(0) @binding(0) var bloomChain: texture_2d<f32>;
@group(0) @binding(1) var linearSampler: sampler;
struct CompositeUniforms {
    intensity: f32,
    _pad: vec3<f32>,
};
@group(0) @binding(2) var<uniform> uniforms: CompositeUniforms;

@fragment
fn fs_main(in: VSOut) -> @location(0) vec4<f32> {
    let bloom = textureSampleLevel(bloomChain, linearSampler, in.uv, 2.0);
    return vec4<f32>(bloom.rgb * uniforms.intensity, 1.0);
}
`

// DownsampleSourceMip returns the mip a downsample dispatch samples when
// writing target mip M. Sampling the next-higher-resolution mip avoids a
// read/write hazard on the target mip within one dispatch.
//
// Parameters:
//   - targetMip: the mip being written
//
// Returns:
//   - int: max(0, targetMip-1)
func DownsampleSourceMip(targetMip int) int {
	if targetMip < 1 {
		return 0
	}
	return targetMip - 1
}

// bloomResources is the per-instance GPU resource record for the bloom pass.
type bloomResources struct {
	dirty bool

	lastWidth, lastHeight int
	mipCount              int

	chain   device.Texture
	mip0FBO device.Framebuffer

	compositeFBO    device.Framebuffer
	compositeSource device.Texture
}

// BloomCommand owns the bloom mip chain, downsamples scene color through it,
// and composites the blurred result back onto the geometry pass's SceneColor
// texture. Its composite framebuffer attaches another command's texture, so
// it staleness-checks that attachment by identity every frame in addition to
// relying on the geometry pass's one-hop invalidation.
type BloomCommand struct {
	mips      int
	intensity float32
	resources *state.Store[command.Instance, *bloomResources]
	warner    *command.WarnThrottle
}

var _ command.Command = &BloomCommand{}
var _ DebugSource = &BloomCommand{}

// BloomOption configures a BloomCommand.
type BloomOption func(b *BloomCommand)

// WithBloomMips overrides the mip chain depth. Values below 2 are ignored.
//
// Parameters:
//   - mips: the chain depth
//
// Returns:
//   - BloomOption: option function to apply
func WithBloomMips(mips int) BloomOption {
	return func(b *BloomCommand) {
		if mips >= 2 {
			b.mips = mips
		}
	}
}

// WithBloomIntensity sets the composite intensity. Defaults to 0.35.
//
// Parameters:
//   - intensity: the additive bloom strength
//
// Returns:
//   - BloomOption: option function to apply
func WithBloomIntensity(intensity float32) BloomOption {
	return func(b *BloomCommand) {
		b.intensity = intensity
	}
}

// NewBloom creates the bloom pass command.
//
// Parameters:
//   - options: variadic BloomOption functions
//
// Returns:
//   - *BloomCommand: the new command
func NewBloom(options ...BloomOption) *BloomCommand {
	b := &BloomCommand{
		mips:      DefaultBloomMips,
		intensity: 0.35,
		resources: state.NewStore(state.WithInit(func(command.Instance) *bloomResources {
			return &bloomResources{dirty: true}
		})),
		warner: command.NewWarnThrottle(5 * time.Second),
	}
	for _, opt := range options {
		opt(b)
	}
	return b
}

func (b *BloomCommand) Name() string {
	return "Bloom"
}

func (b *BloomCommand) AllocateContainerResources(instance command.Instance) {
	b.resources.Get(instance).dirty = true
}

func (b *BloomCommand) Execute(instance command.Instance) {
	reg := instance.Registry()
	src := reg.Texture(TextureSceneColor)
	if src == nil {
		b.warner.Warnf("bloom/no-input", "bloom: %q not in registry, skipping frame", TextureSceneColor)
		return
	}

	st := b.resources.Get(instance)
	width := instance.InternalWidth()
	height := instance.InternalHeight()
	if width < 1 || height < 1 {
		return
	}

	if st.dirty || st.chain == nil ||
		width != st.lastWidth || height != st.lastHeight ||
		reg.Texture(TextureBloomChain) != st.chain {
		if err := b.regenerate(instance, st, width, height); err != nil {
			b.warner.Warnf("bloom/regen", "bloom: resource regeneration failed: %v", err)
			return
		}
	}

	// The composite target attaches SceneColor by identity. If the geometry
	// pass recreated SceneColor (and removed our framebuffer one hop), rebuild
	// against the new texture.
	if st.compositeFBO == nil || st.compositeSource != src ||
		reg.Framebuffer(FramebufferBloomComposite) != st.compositeFBO {
		if err := b.rebuildComposite(instance, st, src); err != nil {
			b.warner.Warnf("bloom/composite-regen", "bloom: composite rebuild failed: %v", err)
			return
		}
	}

	dev := instance.Device()

	if err := dev.Blit(src, st.mip0FBO); err != nil {
		b.warner.Warnf("bloom/prefill", "bloom: chain prefill blit failed: %v", err)
		return
	}

	for mip := 1; mip < st.mipCount; mip++ {
		mipWidth := max(1, width>>mip)
		mipHeight := max(1, height>>mip)

		barrier := device.BarrierImageAccess
		if mip == st.mipCount-1 {
			// Last write: the composite samples the chain next.
			barrier |= device.BarrierTextureFetch
		}

		err := dev.DispatchCompute(bloomDownsampleKey, []device.Binding{
			{Index: 0, Sampled: st.chain, SampledMip: DownsampleSourceMip(mip)},
			{Index: 1, Image: st.chain, ImageMip: mip, ImageAccess: device.AccessWrite},
		}, [3]uint32{
			common.CeilDiv(mipWidth, bloomTileSize),
			common.CeilDiv(mipHeight, bloomTileSize),
			1,
		}, barrier)
		if err != nil {
			b.warner.Warnf("bloom/downsample", "bloom: downsample dispatch failed at mip %d: %v", mip, err)
			return
		}
	}

	uniforms := bloomCompositeUniforms{Intensity: b.intensity}
	err := dev.DrawFullscreen(bloomCompositeKey, st.compositeFBO, []device.Binding{
		{Index: 0, Sampled: st.chain, SampledMip: -1},
		{Index: 1, Sampler: device.SamplerLinear},
		{Index: 2, Uniform: common.StructToBytes(&uniforms)},
	})
	if err != nil {
		b.warner.Warnf("bloom/composite", "bloom: composite draw failed: %v", err)
	}
}

func (b *BloomCommand) regenerate(instance command.Instance, st *bloomResources, width, height int) error {
	b.releaseChain(instance, st)

	dev := instance.Device()
	reg := instance.Registry()

	mipCount := b.mips
	for mipCount > 1 && (width>>(mipCount-1) < 1 || height>>(mipCount-1) < 1) {
		mipCount--
	}

	chain, err := dev.CreateTexture(device.TextureDesc{
		Label:    TextureBloomChain,
		Width:    width,
		Height:   height,
		MipCount: mipCount,
		Format:   device.TextureFormatRGBA16F,
	})
	if err != nil {
		return err
	}
	mip0FBO, err := dev.CreateFramebuffer(fmt.Sprintf("%s Mip0", TextureBloomChain), device.Attachment{
		Point:   device.AttachmentColor0,
		Texture: chain,
	})
	if err != nil {
		chain.Release()
		return err
	}

	if err = dev.RegisterComputeProgram(bloomDownsampleKey, bloomDownsampleWGSL); err != nil {
		mip0FBO.Release()
		chain.Release()
		return err
	}
	if err = dev.RegisterRenderProgram(bloomCompositeKey, bloomCompositeWGSL, bloomCompositeWGSL); err != nil {
		mip0FBO.Release()
		chain.Release()
		return err
	}

	reg.SetTexture(TextureBloomChain, chain)

	st.chain = chain
	st.mip0FBO = mip0FBO
	st.mipCount = mipCount
	st.lastWidth = width
	st.lastHeight = height
	st.dirty = false
	return nil
}

func (b *BloomCommand) rebuildComposite(instance command.Instance, st *bloomResources, src device.Texture) error {
	reg := instance.Registry()
	if stale := reg.RemoveFramebuffer(FramebufferBloomComposite); stale != nil {
		stale.Release()
	}
	st.compositeFBO = nil
	st.compositeSource = nil

	fbo, err := instance.Device().CreateFramebuffer(FramebufferBloomComposite, device.Attachment{
		Point:   device.AttachmentColor0,
		Texture: src,
	})
	if err != nil {
		return err
	}
	reg.SetFramebuffer(FramebufferBloomComposite, fbo)
	st.compositeFBO = fbo
	st.compositeSource = src
	return nil
}

func (b *BloomCommand) releaseChain(instance command.Instance, st *bloomResources) {
	reg := instance.Registry()
	if fbo := reg.RemoveFramebuffer(FramebufferBloomComposite); fbo != nil {
		fbo.Release()
	}
	if st.mip0FBO != nil {
		st.mip0FBO.Release()
	}
	if tex := reg.RemoveTexture(TextureBloomChain); tex != nil {
		tex.Release()
	}
	st.chain = nil
	st.mip0FBO = nil
	st.compositeFBO = nil
	st.compositeSource = nil
}

func (b *BloomCommand) ReleaseContainerResources(instance command.Instance) {
	st, ok := b.resources.Peek(instance)
	if !ok {
		return
	}
	b.releaseChain(instance, st)
	b.resources.Remove(instance)
}

func (b *BloomCommand) DescribePass(instance command.Instance) []graph.Pass {
	if instance.Registry().Texture(TextureSceneColor) == nil {
		return nil
	}
	return []graph.Pass{
		{
			Name:      "BloomDownsample",
			Sampled:   []string{TextureSceneColor},
			ReadWrite: []string{TextureBloomChain},
		},
		{
			Name:    "BloomComposite",
			Sampled: []string{TextureBloomChain},
			Color: []graph.AttachmentUse{
				{Name: TextureSceneColor, Load: graph.LoadOpLoad, Store: graph.StoreOpStore},
			},
		},
	}
}

// DebugTexture exposes the bloom chain for the debug view pass.
//
// Parameters:
//   - instance: the pipeline instance to look up
//
// Returns:
//   - device.Texture: the chain texture, or nil before first execution
func (b *BloomCommand) DebugTexture(instance command.Instance) device.Texture {
	st, ok := b.resources.Peek(instance)
	if !ok {
		return nil
	}
	return st.chain
}

// bloomCompositeUniforms matches the WGSL CompositeUniforms layout (16 bytes).
type bloomCompositeUniforms struct {
	Intensity float32
	_pad      [3]float32
}
