package passes

import (
	"math/rand"
	"time"

	"github.com/chewxy/math32"
	"github.com/halcyon3d/halcyon-go/common"
	"github.com/halcyon3d/halcyon-go/engine/render/command"
	"github.com/halcyon3d/halcyon-go/engine/render/device"
	"github.com/halcyon3d/halcyon-go/engine/render/graph"
	"github.com/halcyon3d/halcyon-go/engine/render/state"
)

const (
	ssaoProgramKey      = "ssao/occlusion"
	ssaoNoiseProgramKey = "ssao/noise-upload"

	ssaoTileSize   = 16
	ssaoNoiseSize  = 4
	ssaoKernelSize = 16
)

// ssaoWGSL computes a hemisphere-kernel occlusion term per pixel from the
// scene depth and normal targets and stores it into the AO image.
const ssaoWGSL = `
struct SSAOUniforms {
    proj: mat4x4<f32>,
    invProj: mat4x4<f32>,
    kernel: array<vec4<f32>, 16>,
    radius: f32,
    bias: f32,
    width: f32,
    height: f32,
};

@group(0) @binding(0) var sceneDepth: texture_depth_2d;
@group(0) @binding(1) var sceneNormal: texture_2d<f32>;
@group(0) @binding(2) var rotationNoise: texture_2d<f32>;
@group(0) @binding(3) var aoOut: texture_storage_2d<r32float, write>;
@group(0) @binding(4) var<uniform> uniforms: SSAOUniforms;

fn viewPosition(coord: vec2<i32>) -> vec3<f32> {
    let depth = textureLoad(sceneDepth, coord, 0);
    let uv = (vec2<f32>(coord) + 0.5) / vec2<f32>(uniforms.width, uniforms.height);
    let ndc = vec4<f32>(uv.x * 2.0 - 1.0, 1.0 - uv.y * 2.0, depth, 1.0);
    let view = uniforms.invProj * ndc;
    return view.xyz / view.w;
}

@compute @workgroup_size(16, 16, 1)
fn main(@builtin(global_invocation_id) id: vec3<u32>) {
    if (f32(id.x) >= uniforms.width || f32(id.y) >= uniforms.height) {
        return;
    }
    let coord = vec2<i32>(id.xy);
    let origin = viewPosition(coord);
    let normal = normalize(textureLoad(sceneNormal, coord, 0).xyz * 2.0 - 1.0);
    let noise = textureLoad(rotationNoise, coord % 4, 0).xyz;

    let tangent = normalize(noise - normal * dot(noise, normal));
    let bitangent = cross(normal, tangent);
    let tbn = mat3x3<f32>(tangent, bitangent, normal);

    var occlusion = 0.0;
    for (var i = 0; i < 16; i++) {
        let samplePos = origin + (tbn * uniforms.kernel[i].xyz) * uniforms.radius;
        var offset = uniforms.proj * vec4<f32>(samplePos, 1.0);
        offset = offset / offset.w;
        let sampleUV = vec2<f32>(offset.x * 0.5 + 0.5, 0.5 - offset.y * 0.5);
        let sampleCoord = vec2<i32>(sampleUV * vec2<f32>(uniforms.width, uniforms.height));
        let sampleDepthView = viewPosition(sampleCoord).z;
        let rangeCheck = smoothstep(0.0, 1.0, uniforms.radius / abs(origin.z - sampleDepthView));
        if (sampleDepthView >= samplePos.z + uniforms.bias) {
            occlusion += rangeCheck;
        }
    }
    textureStore(aoOut, coord, vec4<f32>(1.0 - occlusion / 16.0, 0.0, 0.0, 1.0));
}
`

// ssaoNoiseWGSL writes the 4x4 CPU-generated rotation vectors into the noise
// texture. The backend has no direct texture upload path, so the values ride
// in through the inline uniform block.
const ssaoNoiseWGSL = `
struct NoiseUniforms {
    values: array<vec4<f32>, 16>,
};

@group(0) @binding(0) var noiseOut: texture_storage_2d<rgba16float, write>;
@group(0) @binding(1) var<uniform> uniforms: NoiseUniforms;

@compute @workgroup_size(4, 4, 1)
fn main(@builtin(global_invocation_id) id: vec3<u32>) {
    textureStore(noiseOut, vec2<i32>(id.xy), uniforms.values[id.y * 4u + id.x]);
}
`

// ssaoUniforms matches the WGSL SSAOUniforms layout.
type ssaoUniforms struct {
	Proj    [16]float32
	InvProj [16]float32
	Kernel  [ssaoKernelSize][4]float32
	Radius  float32
	Bias    float32
	Width   float32
	Height  float32
}

// ssaoNoiseUniforms matches the WGSL NoiseUniforms layout.
type ssaoNoiseUniforms struct {
	Values [ssaoNoiseSize * ssaoNoiseSize][4]float32
}

// ssaoResources is the per-instance GPU resource record for the SSAO pass.
type ssaoResources struct {
	dirty bool

	lastWidth, lastHeight int

	ao     device.Texture
	noise  device.Texture
	kernel [ssaoKernelSize][4]float32
}

// SSAOCommand computes a screen-space ambient occlusion mask from the
// geometry pass's depth and normal targets and registers it under
// AmbientOcclusion. When the inputs are missing it skips the frame with a
// throttled warning.
type SSAOCommand struct {
	rand      func() float32
	radius    float32
	bias      float32
	resources *state.Store[command.Instance, *ssaoResources]
	warner    *command.WarnThrottle
}

var _ command.Command = &SSAOCommand{}
var _ DebugSource = &SSAOCommand{}

// SSAOOption configures an SSAOCommand.
type SSAOOption func(s *SSAOCommand)

// WithNoiseSource replaces the pseudo-random source used to build the
// hemisphere kernel and rotation noise. The source must return values in
// [0, 1).
//
// Parameters:
//   - source: the random source
//
// Returns:
//   - SSAOOption: option function to apply
func WithNoiseSource(source func() float32) SSAOOption {
	return func(s *SSAOCommand) {
		s.rand = source
	}
}

// WithSSAORadius sets the view-space sampling radius. Defaults to 0.5.
//
// Parameters:
//   - radius: the hemisphere radius
//
// Returns:
//   - SSAOOption: option function to apply
func WithSSAORadius(radius float32) SSAOOption {
	return func(s *SSAOCommand) {
		s.radius = radius
	}
}

// NewSSAO creates the ambient occlusion pass command.
//
// Parameters:
//   - options: variadic SSAOOption functions
//
// Returns:
//   - *SSAOCommand: the new command
func NewSSAO(options ...SSAOOption) *SSAOCommand {
	s := &SSAOCommand{
		rand:   rand.Float32,
		radius: 0.5,
		bias:   0.025,
		resources: state.NewStore(state.WithInit(func(command.Instance) *ssaoResources {
			return &ssaoResources{dirty: true}
		})),
		warner: command.NewWarnThrottle(5 * time.Second),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *SSAOCommand) Name() string {
	return "SSAO"
}

func (s *SSAOCommand) AllocateContainerResources(instance command.Instance) {
	s.resources.Get(instance).dirty = true
}

func (s *SSAOCommand) Execute(instance command.Instance) {
	reg := instance.Registry()
	depth := reg.Texture(TextureSceneDepth)
	normal := reg.Texture(TextureSceneNormal)
	if depth == nil || normal == nil {
		s.warner.Warnf("ssao/no-input", "ssao: depth or normal target not in registry, skipping frame")
		return
	}

	st := s.resources.Get(instance)
	width := instance.InternalWidth()
	height := instance.InternalHeight()
	if width < 1 || height < 1 {
		return
	}

	if st.dirty || st.ao == nil ||
		width != st.lastWidth || height != st.lastHeight ||
		reg.Texture(TextureAmbientOcclusion) != st.ao {
		if err := s.regenerate(instance, st, width, height); err != nil {
			s.warner.Warnf("ssao/regen", "ssao: resource regeneration failed: %v", err)
			return
		}
	}

	cam := instance.Camera()
	uniforms := ssaoUniforms{
		Kernel: st.kernel,
		Radius: s.radius,
		Bias:   s.bias,
		Width:  float32(width),
		Height: float32(height),
	}
	if cam != nil {
		uniforms.Proj = cam.UnjitteredProjectionMatrix()
		uniforms.InvProj = cam.InverseProjectionMatrix()
	} else {
		common.Identity(uniforms.Proj[:])
		common.Identity(uniforms.InvProj[:])
	}

	err := instance.Device().DispatchCompute(ssaoProgramKey, []device.Binding{
		{Index: 0, Sampled: depth, SampledMip: 0},
		{Index: 1, Sampled: normal, SampledMip: 0},
		{Index: 2, Sampled: st.noise, SampledMip: 0},
		{Index: 3, Image: st.ao, ImageAccess: device.AccessWrite},
		{Index: 4, Uniform: common.StructToBytes(&uniforms)},
	}, [3]uint32{
		common.CeilDiv(width, ssaoTileSize),
		common.CeilDiv(height, ssaoTileSize),
		1,
	}, device.BarrierImageAccess|device.BarrierTextureFetch)
	if err != nil {
		s.warner.Warnf("ssao/dispatch", "ssao: occlusion dispatch failed: %v", err)
	}
}

func (s *SSAOCommand) regenerate(instance command.Instance, st *ssaoResources, width, height int) error {
	s.releaseResources(instance, st)

	dev := instance.Device()
	reg := instance.Registry()

	ao, err := dev.CreateTexture(device.TextureDesc{
		Label:  TextureAmbientOcclusion,
		Width:  width,
		Height: height,
		Format: device.TextureFormatR32F,
	})
	if err != nil {
		return err
	}
	noise, err := dev.CreateTexture(device.TextureDesc{
		Label:  "SSAONoise",
		Width:  ssaoNoiseSize,
		Height: ssaoNoiseSize,
		Format: device.TextureFormatRGBA16F,
	})
	if err != nil {
		ao.Release()
		return err
	}

	if err = dev.RegisterComputeProgram(ssaoProgramKey, ssaoWGSL); err != nil {
		ao.Release()
		noise.Release()
		return err
	}
	if err = dev.RegisterComputeProgram(ssaoNoiseProgramKey, ssaoNoiseWGSL); err != nil {
		ao.Release()
		noise.Release()
		return err
	}

	st.kernel = s.buildKernel()
	noiseData := s.buildNoise()
	err = dev.DispatchCompute(ssaoNoiseProgramKey, []device.Binding{
		{Index: 0, Image: noise, ImageAccess: device.AccessWrite},
		{Index: 1, Uniform: common.StructToBytes(&noiseData)},
	}, [3]uint32{1, 1, 1}, device.BarrierTextureFetch)
	if err != nil {
		ao.Release()
		noise.Release()
		return err
	}

	reg.SetTexture(TextureAmbientOcclusion, ao)

	st.ao = ao
	st.noise = noise
	st.lastWidth = width
	st.lastHeight = height
	st.dirty = false
	return nil
}

// buildKernel generates hemisphere sample vectors biased toward the origin.
func (s *SSAOCommand) buildKernel() [ssaoKernelSize][4]float32 {
	var kernel [ssaoKernelSize][4]float32
	for i := range kernel {
		x := s.rand()*2 - 1
		y := s.rand()*2 - 1
		z := s.rand()
		length := math32.Sqrt(x*x + y*y + z*z)
		if length < 1e-6 {
			length = 1
		}
		scale := float32(i) / float32(ssaoKernelSize)
		scale = 0.1 + scale*scale*0.9
		kernel[i] = [4]float32{x / length * scale, y / length * scale, z / length * scale, 0}
	}
	return kernel
}

// buildNoise generates tangent-space rotation vectors for the 4x4 noise tile.
func (s *SSAOCommand) buildNoise() ssaoNoiseUniforms {
	var noise ssaoNoiseUniforms
	for i := range noise.Values {
		noise.Values[i] = [4]float32{s.rand()*2 - 1, s.rand()*2 - 1, 0, 0}
	}
	return noise
}

func (s *SSAOCommand) releaseResources(instance command.Instance, st *ssaoResources) {
	if tex := instance.Registry().RemoveTexture(TextureAmbientOcclusion); tex != nil {
		tex.Release()
	}
	if st.noise != nil {
		st.noise.Release()
	}
	st.ao = nil
	st.noise = nil
}

func (s *SSAOCommand) ReleaseContainerResources(instance command.Instance) {
	st, ok := s.resources.Peek(instance)
	if !ok {
		return
	}
	s.releaseResources(instance, st)
	s.resources.Remove(instance)
}

func (s *SSAOCommand) DescribePass(instance command.Instance) []graph.Pass {
	reg := instance.Registry()
	if reg.Texture(TextureSceneDepth) == nil || reg.Texture(TextureSceneNormal) == nil {
		return nil
	}
	return []graph.Pass{
		{
			Name:      "SSAO",
			Sampled:   []string{TextureSceneDepth, TextureSceneNormal},
			ReadWrite: []string{TextureAmbientOcclusion},
		},
	}
}

// DebugTexture exposes the occlusion mask for the debug view pass.
//
// Parameters:
//   - instance: the pipeline instance to look up
//
// Returns:
//   - device.Texture: the AO texture, or nil before first execution
func (s *SSAOCommand) DebugTexture(instance command.Instance) device.Texture {
	st, ok := s.resources.Peek(instance)
	if !ok {
		return nil
	}
	return st.ao
}
