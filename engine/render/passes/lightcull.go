package passes

import (
	"time"

	"github.com/halcyon3d/halcyon-go/engine/light"
	"github.com/halcyon3d/halcyon-go/engine/render/command"
	"github.com/halcyon3d/halcyon-go/engine/render/device"
	"github.com/halcyon3d/halcyon-go/engine/render/graph"
	"github.com/halcyon3d/halcyon-go/engine/render/state"
)

// lightCullProgramKey is the cached tile-assignment compute program.
const lightCullProgramKey = "lightcull/assign"

// lightCullWGSL assigns visible lights to screen tiles. One workgroup per
// tile; each invocation tests a subset of the light list against the tile's
// view-space frustum and appends survivors to the tile's index list.
const lightCullWGSL = `
struct LightCullUniforms {
    inv_proj: mat4x4<f32>,
    view_matrix: mat4x4<f32>,
    tile_count_x: u32,
    tile_count_y: u32,
    screen_width: u32,
    screen_height: u32,
    light_count: u32,
    near: f32,
    far: f32,
    _pad: u32,
};

struct Light {
    position: vec3<f32>,
    light_type: u32,
    color: vec3<f32>,
    intensity: f32,
    direction: vec3<f32>,
    light_range: f32,
    inner_cone: f32,
    outer_cone: f32,
    casts_shadows: u32,
    _pad: u32,
};

struct LightBuffer {
    ambient: vec3<f32>,
    count: u32,
    lights: array<Light>,
};

@group(0) @binding(0) var<storage, read> light_buffer: LightBuffer;
@group(0) @binding(1) var<storage, read_write> tile_counts: array<atomic<u32>>;
@group(0) @binding(2) var<storage, read_write> tile_indices: array<u32>;
@group(0) @binding(3) var<uniform> uniforms: LightCullUniforms;

const MAX_LIGHTS_PER_TILE: u32 = 256u;
const TILE_SIZE: u32 = 16u;

@compute @workgroup_size(16, 16, 1)
fn main(@builtin(workgroup_id) tile: vec3<u32>,
        @builtin(local_invocation_index) local_index: u32) {
    if (tile.x >= uniforms.tile_count_x || tile.y >= uniforms.tile_count_y) {
        return;
    }
    let tile_index = tile.y * uniforms.tile_count_x + tile.x;
    if (local_index == 0u) {
        atomicStore(&tile_counts[tile_index], 0u);
    }
    workgroupBarrier();

    let threads = TILE_SIZE * TILE_SIZE;
    var i = local_index;
    loop {
        if (i >= uniforms.light_count) { break; }
        let l = light_buffer.lights[i];
        var visible = true;
        if (l.light_type != 0u) {
            let view_pos = uniforms.view_matrix * vec4<f32>(l.position, 1.0);
            visible = tileIntersectsSphere(tile.xy, view_pos.xyz, l.light_range);
        }
        if (visible) {
            let slot = atomicAdd(&tile_counts[tile_index], 1u);
            if (slot < MAX_LIGHTS_PER_TILE) {
                tile_indices[tile_index * MAX_LIGHTS_PER_TILE + slot] = i;
            }
        }
        i += threads;
    }
}

fn tileIntersectsSphere(tile: vec2<u32>, center: vec3<f32>, radius: f32) -> bool {
    let min_px = vec2<f32>(tile * TILE_SIZE);
    let max_px = min(min_px + vec2<f32>(f32(TILE_SIZE)),
                     vec2<f32>(f32(uniforms.screen_width), f32(uniforms.screen_height)));
    let min_ndc = min_px / vec2<f32>(f32(uniforms.screen_width), f32(uniforms.screen_height)) * 2.0 - 1.0;
    let max_ndc = max_px / vec2<f32>(f32(uniforms.screen_width), f32(uniforms.screen_height)) * 2.0 - 1.0;
    let corner_a = uniforms.inv_proj * vec4<f32>(min_ndc, 0.0, 1.0);
    let corner_b = uniforms.inv_proj * vec4<f32>(max_ndc, 0.0, 1.0);
    let lo = min(corner_a.xyz / corner_a.w, corner_b.xyz / corner_b.w);
    let hi = max(corner_a.xyz / corner_a.w, corner_b.xyz / corner_b.w);
    let clamped = clamp(center, vec3<f32>(lo.xy, -uniforms.far), vec3<f32>(hi.xy, -uniforms.near));
    let delta = center - clamped;
    return dot(delta, delta) <= radius * radius;
}
`

// LightSource provides the scene lights the culling pass consumes. The scene
// graph is an external collaborator; it plugs in here.
type LightSource interface {
	// Lights returns the candidate lights for this frame.
	//
	// Returns:
	//   - []light.Light: the candidate lights
	Lights() []light.Light

	// Ambient returns the scene ambient color.
	//
	// Returns:
	//   - [3]float32: ambient RGB
	Ambient() [3]float32
}

// LightCullOutput is the value the culling pass publishes into the
// SlotVisibleLights frame slot for the forward pass.
type LightCullOutput struct {
	// LightBuffer holds the header plus the visible GPULight records.
	LightBuffer device.Buffer
	// TileCounts holds one u32 per tile with that tile's surviving light count.
	TileCounts device.Buffer
	// TileIndices holds MaxLightsPerTile u32 indices per tile.
	TileIndices device.Buffer
	// TileCountX and TileCountY are the tile grid dimensions.
	TileCountX, TileCountY uint32
	// VisibleCount is the number of lights that survived the CPU pre-cull.
	VisibleCount int
}

// Bindings returns the storage-buffer bindings the forward pass attaches when
// shading with the culled light lists. Binding indices follow the lit
// fragment shader's layout.
//
// Returns:
//   - []device.Binding: the light buffer bindings
func (o *LightCullOutput) Bindings() []device.Binding {
	return []device.Binding{
		{Index: 4, Buffer: o.LightBuffer},
		{Index: 5, Buffer: o.TileCounts},
		{Index: 6, Buffer: o.TileIndices},
	}
}

// lightCullResources is the per-instance GPU resource record for the culling
// pass.
type lightCullResources struct {
	dirty bool

	lastWidth, lastHeight  int
	tileCountX, tileCountY uint32

	lightBuffer device.Buffer
	tileCounts  device.Buffer
	tileIndices device.Buffer
}

// LightCullCommand runs Forward+ tile light culling: CPU frustum pre-cull,
// light buffer upload, and the tile-assignment compute dispatch, followed by
// a shader-storage barrier so the forward pass can read the lists.
type LightCullCommand struct {
	source    LightSource
	resources *state.Store[command.Instance, *lightCullResources]
	warner    *command.WarnThrottle
}

var _ command.Command = &LightCullCommand{}

// NewLightCull creates the Forward+ light culling command.
//
// Parameters:
//   - source: provider of the scene's lights
//
// Returns:
//   - *LightCullCommand: the new command
func NewLightCull(source LightSource) *LightCullCommand {
	return &LightCullCommand{
		source: source,
		resources: state.NewStore(state.WithInit(func(command.Instance) *lightCullResources {
			return &lightCullResources{dirty: true}
		})),
		warner: command.NewWarnThrottle(5 * time.Second),
	}
}

func (l *LightCullCommand) Name() string {
	return "LightCull"
}

func (l *LightCullCommand) AllocateContainerResources(instance command.Instance) {
	l.resources.Get(instance).dirty = true
}

func (l *LightCullCommand) Execute(instance command.Instance) {
	cam := instance.Camera()
	if cam == nil {
		l.warner.Warnf("lightcull/no-camera", "light cull: no active camera, skipping frame")
		return
	}
	if l.source == nil {
		return
	}

	st := l.resources.Get(instance)
	width := instance.InternalWidth()
	height := instance.InternalHeight()
	if width < 1 || height < 1 {
		return
	}

	if st.dirty || st.lightBuffer == nil || width != st.lastWidth || height != st.lastHeight {
		if err := l.regenerate(instance, st, width, height); err != nil {
			l.warner.Warnf("lightcull/regen", "light cull: resource regeneration failed: %v", err)
			return
		}
	}

	dev := instance.Device()

	viewProj := cam.ViewProjectionMatrix()
	visible := light.PreCull(l.source.Lights(), viewProj[:])
	dev.WriteBuffer(st.lightBuffer, 0, light.MarshalLightBuffer(visible, l.source.Ambient()))

	uniforms := light.GPULightCullUniforms{
		InvProj:      cam.InverseProjectionMatrix(),
		ViewMatrix:   cam.ViewMatrix(),
		TileCountX:   st.tileCountX,
		TileCountY:   st.tileCountY,
		ScreenWidth:  uint32(width),
		ScreenHeight: uint32(height),
		LightCount:   uint32(len(visible)),
		Near:         cam.Near(),
		Far:          cam.Far(),
	}

	err := dev.DispatchCompute(lightCullProgramKey, []device.Binding{
		{Index: 0, Buffer: st.lightBuffer},
		{Index: 1, Buffer: st.tileCounts},
		{Index: 2, Buffer: st.tileIndices},
		{Index: 3, Uniform: uniforms.Marshal()},
	}, [3]uint32{st.tileCountX, st.tileCountY, 1}, device.BarrierShaderStorage)
	if err != nil {
		l.warner.Warnf("lightcull/dispatch", "light cull: dispatch failed: %v", err)
		return
	}

	instance.Frame().Publish(SlotVisibleLights, &LightCullOutput{
		LightBuffer:  st.lightBuffer,
		TileCounts:   st.tileCounts,
		TileIndices:  st.tileIndices,
		TileCountX:   st.tileCountX,
		TileCountY:   st.tileCountY,
		VisibleCount: len(visible),
	})
}

func (l *LightCullCommand) regenerate(instance command.Instance, st *lightCullResources, width, height int) error {
	l.releaseResources(st)

	dev := instance.Device()
	tileCountX, tileCountY := light.TileCounts(width, height)
	numTiles := int(tileCountX * tileCountY)

	lightBuffer, err := dev.CreateBuffer(device.BufferDesc{
		Label:        "Forward+ Light Buffer",
		ElementCount: 1 + light.MaxGPULights,
		Stride:       (&light.GPULight{}).Size(),
		Usage:        device.BufferUsageStorage,
	})
	if err != nil {
		return err
	}
	tileCounts, err := dev.CreateBuffer(device.BufferDesc{
		Label:        "Forward+ Tile Counts",
		ElementCount: numTiles,
		Stride:       4,
		Usage:        device.BufferUsageStorage,
	})
	if err != nil {
		lightBuffer.Release()
		return err
	}
	tileIndices, err := dev.CreateBuffer(device.BufferDesc{
		Label:        "Forward+ Tile Indices",
		ElementCount: numTiles * light.MaxLightsPerTile,
		Stride:       4,
		Usage:        device.BufferUsageStorage,
	})
	if err != nil {
		lightBuffer.Release()
		tileCounts.Release()
		return err
	}

	if err = dev.RegisterComputeProgram(lightCullProgramKey, lightCullWGSL); err != nil {
		lightBuffer.Release()
		tileCounts.Release()
		tileIndices.Release()
		return err
	}

	st.lightBuffer = lightBuffer
	st.tileCounts = tileCounts
	st.tileIndices = tileIndices
	st.tileCountX = tileCountX
	st.tileCountY = tileCountY
	st.lastWidth = width
	st.lastHeight = height
	st.dirty = false
	return nil
}

func (l *LightCullCommand) releaseResources(st *lightCullResources) {
	if st.lightBuffer != nil {
		st.lightBuffer.Release()
		st.lightBuffer = nil
	}
	if st.tileCounts != nil {
		st.tileCounts.Release()
		st.tileCounts = nil
	}
	if st.tileIndices != nil {
		st.tileIndices.Release()
		st.tileIndices = nil
	}
}

func (l *LightCullCommand) ReleaseContainerResources(instance command.Instance) {
	st, ok := l.resources.Peek(instance)
	if !ok {
		return
	}
	l.releaseResources(st)
	l.resources.Remove(instance)
}

func (l *LightCullCommand) DescribePass(instance command.Instance) []graph.Pass {
	if instance.Camera() == nil || l.source == nil {
		return nil
	}
	return []graph.Pass{
		{
			Name:      "LightCull",
			ReadWrite: []string{"Forward+ Light Buffer", "Forward+ Tile Counts", "Forward+ Tile Indices"},
		},
	}
}
