package passes

import (
	"time"

	"github.com/halcyon3d/halcyon-go/engine/render/command"
	"github.com/halcyon3d/halcyon-go/engine/render/device"
	"github.com/halcyon3d/halcyon-go/engine/render/graph"
	"github.com/halcyon3d/halcyon-go/engine/render/state"
)

// backgroundWGSL is the fallback scene program used when no SceneDrawer is
// attached: a vertical gradient, enough to light up the downstream chain.
const backgroundWGSL = `
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

@fragment
fn fs_main(in: VSOut) -> @location(0) vec4<f32> {
    return vec4<f32>(mix(vec3<f32>(0.05, 0.07, 0.12), vec3<f32>(0.4, 0.55, 0.8), in.uv.y), 1.0);
}
`

// geometryProgramKey is the cached fallback scene program.
const geometryProgramKey = "geometry/background"

// SceneDrawer renders scene content into the geometry pass's target. Mesh
// submission, materials, and animation live outside this pipeline; they plug
// in through this interface.
type SceneDrawer interface {
	// DrawScene renders the scene into target. The lights binding carries the
	// Forward+ visible-light buffer when light culling ran this frame.
	//
	// Parameters:
	//   - instance: the executing pipeline instance
	//   - target: the geometry render target
	//   - lights: storage-buffer bindings from the light culling pass, may be empty
	//
	// Returns:
	//   - error: an error if the draw fails
	DrawScene(instance command.Instance, target device.Framebuffer, lights []device.Binding) error
}

// geometryResources is the per-instance GPU resource record for the geometry
// pass.
type geometryResources struct {
	dirty bool

	lastWidth, lastHeight int
	stereo                bool

	color  device.Texture
	depth  device.Texture
	normal device.Texture
	fbo    device.Framebuffer
}

// GeometryCommand owns the scene color/depth/normal targets and renders the
// forward pass into them, consuming the Forward+ visible-light buffer from
// the frame slot published by the light culling pass.
type GeometryCommand struct {
	drawer    SceneDrawer
	resources *state.Store[command.Instance, *geometryResources]
	warner    *command.WarnThrottle
}

var _ command.Command = &GeometryCommand{}
var _ DebugSource = &GeometryCommand{}

// GeometryOption configures a GeometryCommand.
type GeometryOption func(g *GeometryCommand)

// WithSceneDrawer attaches the external scene renderer. Without one the pass
// draws a fallback background gradient.
//
// Parameters:
//   - drawer: the scene drawer to attach
//
// Returns:
//   - GeometryOption: option function to apply
func WithSceneDrawer(drawer SceneDrawer) GeometryOption {
	return func(g *GeometryCommand) {
		g.drawer = drawer
	}
}

// NewGeometry creates the geometry pass command.
//
// Parameters:
//   - options: variadic GeometryOption functions
//
// Returns:
//   - *GeometryCommand: the new command
func NewGeometry(options ...GeometryOption) *GeometryCommand {
	g := &GeometryCommand{
		resources: state.NewStore(state.WithInit(func(command.Instance) *geometryResources {
			return &geometryResources{dirty: true}
		})),
		warner: command.NewWarnThrottle(5 * time.Second),
	}
	for _, opt := range options {
		opt(g)
	}
	return g
}

func (g *GeometryCommand) Name() string {
	return "Geometry"
}

func (g *GeometryCommand) AllocateContainerResources(instance command.Instance) {
	g.resources.Get(instance).dirty = true
}

func (g *GeometryCommand) Execute(instance command.Instance) {
	st := g.resources.Get(instance)
	width := instance.InternalWidth()
	height := instance.InternalHeight()
	stereo := instance.Stereo()
	if width < 1 || height < 1 {
		return
	}

	if g.needsRegen(instance, st, width, height, stereo) {
		if err := g.regenerate(instance, st, width, height, stereo); err != nil {
			g.warner.Warnf("geometry/regen", "geometry: resource regeneration failed: %v", err)
			return
		}
	}

	var lights []device.Binding
	if value, ok := instance.Frame().Value(SlotVisibleLights); ok {
		if out, ok := value.(*LightCullOutput); ok {
			lights = out.Bindings()
		}
	}

	if g.drawer != nil {
		if err := g.drawer.DrawScene(instance, st.fbo, lights); err != nil {
			g.warner.Warnf("geometry/draw", "geometry: scene draw failed: %v", err)
		}
		return
	}
	if err := instance.Device().DrawFullscreen(geometryProgramKey, st.fbo, nil); err != nil {
		g.warner.Warnf("geometry/draw", "geometry: background draw failed: %v", err)
	}
}

func (g *GeometryCommand) needsRegen(instance command.Instance, st *geometryResources, width, height int, stereo bool) bool {
	if st.dirty || st.color == nil {
		return true
	}
	if width != st.lastWidth || height != st.lastHeight || stereo != st.stereo {
		return true
	}
	reg := instance.Registry()
	if reg.Texture(TextureSceneColor) != st.color {
		return true
	}
	if reg.Texture(TextureSceneDepth) != st.depth {
		return true
	}
	if reg.Texture(TextureSceneNormal) != st.normal {
		return true
	}
	return false
}

func (g *GeometryCommand) regenerate(instance command.Instance, st *geometryResources, width, height int, stereo bool) error {
	g.releaseResources(instance, st)

	dev := instance.Device()
	reg := instance.Registry()

	layers := 1
	if stereo {
		layers = 2
	}

	color, err := dev.CreateTexture(device.TextureDesc{
		Label:  TextureSceneColor,
		Width:  width,
		Height: height,
		Layers: layers,
		Format: device.TextureFormatRGBA16F,
	})
	if err != nil {
		return err
	}
	depth, err := dev.CreateTexture(device.TextureDesc{
		Label:  TextureSceneDepth,
		Width:  width,
		Height: height,
		Layers: layers,
		Format: device.TextureFormatDepth32F,
	})
	if err != nil {
		color.Release()
		return err
	}
	normal, err := dev.CreateTexture(device.TextureDesc{
		Label:  TextureSceneNormal,
		Width:  width,
		Height: height,
		Layers: layers,
		Format: device.TextureFormatRGBA16F,
	})
	if err != nil {
		color.Release()
		depth.Release()
		return err
	}
	fbo, err := dev.CreateFramebuffer(FramebufferScene,
		device.Attachment{Point: device.AttachmentColor0, Texture: color},
		device.Attachment{Point: device.AttachmentColor1, Texture: normal},
		device.Attachment{Point: device.AttachmentDepth, Texture: depth},
	)
	if err != nil {
		color.Release()
		depth.Release()
		normal.Release()
		return err
	}

	if err = dev.RegisterRenderProgram(geometryProgramKey, backgroundWGSL, backgroundWGSL); err != nil {
		fbo.Release()
		color.Release()
		depth.Release()
		normal.Release()
		return err
	}

	reg.SetTexture(TextureSceneColor, color)
	reg.SetTexture(TextureSceneDepth, depth)
	reg.SetTexture(TextureSceneNormal, normal)
	reg.SetFramebuffer(FramebufferScene, fbo)

	// The bloom composite framebuffer attaches the SceneColor texture that was
	// just replaced. Invalidation is one hop only: the bloom pass rebuilds it
	// against the new texture on its own next regeneration.
	if stale := reg.RemoveFramebuffer(FramebufferBloomComposite); stale != nil {
		stale.Release()
	}

	st.color = color
	st.depth = depth
	st.normal = normal
	st.fbo = fbo
	st.lastWidth = width
	st.lastHeight = height
	st.stereo = stereo
	st.dirty = false
	return nil
}

func (g *GeometryCommand) releaseResources(instance command.Instance, st *geometryResources) {
	reg := instance.Registry()
	if fbo := reg.RemoveFramebuffer(FramebufferScene); fbo != nil {
		fbo.Release()
	}
	for _, name := range []string{TextureSceneColor, TextureSceneDepth, TextureSceneNormal} {
		if tex := reg.RemoveTexture(name); tex != nil {
			tex.Release()
		}
	}
	st.color = nil
	st.depth = nil
	st.normal = nil
	st.fbo = nil
}

func (g *GeometryCommand) ReleaseContainerResources(instance command.Instance) {
	st, ok := g.resources.Peek(instance)
	if !ok {
		return
	}
	g.releaseResources(instance, st)
	g.resources.Remove(instance)
}

func (g *GeometryCommand) DescribePass(instance command.Instance) []graph.Pass {
	if instance.InternalWidth() < 1 || instance.InternalHeight() < 1 {
		return nil
	}
	pass := graph.Pass{
		Name: "Geometry",
		Color: []graph.AttachmentUse{
			{Name: TextureSceneColor, Load: graph.LoadOpClear, Store: graph.StoreOpStore},
			{Name: TextureSceneNormal, Load: graph.LoadOpClear, Store: graph.StoreOpStore},
		},
		Depth: &graph.AttachmentUse{Name: TextureSceneDepth, Load: graph.LoadOpClear, Store: graph.StoreOpStore},
	}
	return []graph.Pass{pass}
}

// DebugTexture exposes the normal target for the debug view pass.
//
// Parameters:
//   - instance: the pipeline instance to look up
//
// Returns:
//   - device.Texture: the normal texture, or nil before first execution
func (g *GeometryCommand) DebugTexture(instance command.Instance) device.Texture {
	st, ok := g.resources.Peek(instance)
	if !ok {
		return nil
	}
	return st.normal
}
