package temporal

import (
	"fmt"

	"github.com/halcyon3d/halcyon-go/common"
	"github.com/halcyon3d/halcyon-go/engine/render/command"
	"github.com/halcyon3d/halcyon-go/engine/render/device"
	"github.com/halcyon3d/halcyon-go/engine/render/graph"
	"github.com/halcyon3d/halcyon-go/engine/render/state"
)

// resolveWGSL is the TAA resolve program: blends the current frame into the
// accumulated history with a fixed feedback factor.
const resolveWGSL = `
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

@group(0) @binding(0) var currentColor: texture_2d<f32>;
@group(0) @binding(1) var historyColor: texture_2d<f32>;
@group(0) @binding(2) var linearSampler: sampler;
struct ResolveUniforms {
    jitter: vec2<f32>,
    feedback: f32,
    history_ready: f32,
};
@group(0) @binding(3) var<uniform> uniforms: ResolveUniforms;

@fragment
fn fs_main(in: VSOut) -> @location(0) vec4<f32> {
    let current = textureSample(currentColor, linearSampler, in.uv - uniforms.jitter);
    let history = textureSample(historyColor, linearSampler, in.uv);
    let blend = uniforms.feedback * uniforms.history_ready;
    return mix(current, history, blend);
}
`

// beginCommand is phase one of the temporal cycle: jitter generation,
// resolution-change detection, and matrix bookkeeping. It owns no GPU
// resources.
type beginCommand struct {
	coordinator *coordinatorImpl
}

var _ command.Command = &beginCommand{}

func (b *beginCommand) Name() string {
	return "TemporalBegin"
}

func (b *beginCommand) AllocateContainerResources(instance command.Instance) {
	// No GPU resources owned; nothing to mark dirty.
}

func (b *beginCommand) Execute(instance command.Instance) {
	cam := instance.Camera()
	if cam == nil {
		b.coordinator.warner.Warnf("temporal/begin/no-camera", "temporal begin: no active camera, skipping frame")
		return
	}
	st := b.coordinator.states.Get(cam)

	width := instance.InternalWidth()
	height := instance.InternalHeight()
	if width < 1 || height < 1 {
		return
	}

	// An internal-resolution change invalidates all accumulated history.
	if width != st.lastWidth || height != st.lastHeight {
		st.lastWidth = width
		st.lastHeight = height
		st.historyReady = false
		st.pendingHistoryReady = false
		st.haltonIndex = 0
	}

	st.pendingHistoryReady = false

	st.prevJitterX = st.jitterX
	st.prevJitterY = st.jitterY
	st.haltonIndex = (st.haltonIndex + 1) % common.HaltonCycle
	st.jitterX, st.jitterY = common.HaltonJitter(st.haltonIndex)

	// Reuse the previous frame's unjittered projection when the new one only
	// differs by floating-point noise, so motion vectors stay stable.
	proj := cam.UnjitteredProjectionMatrix()
	if common.ApproxEqual4(proj[:], st.prevUnjitteredProj[:], projectionEpsilon) {
		proj = st.prevUnjitteredProj
		st.stabilized = true
	} else {
		st.stabilized = false
	}
	st.unjitteredProj = proj

	view := cam.ViewMatrix()
	common.Mul4(st.unjitteredViewProj[:], proj[:], view[:])
	common.Invert4(st.invViewProj[:], st.unjitteredViewProj[:])

	// A leftover request means a previous frame never reached Commit; release
	// it so the camera does not reject this frame's request.
	if st.jitterRequest != nil {
		st.jitterRequest.Release()
	}
	st.jitterRequest = cam.RequestProjectionJitter(
		2*st.jitterX/float32(width),
		2*st.jitterY/float32(height),
	)

	st.viewProj = cam.ViewProjectionMatrix()
}

func (b *beginCommand) ReleaseContainerResources(instance command.Instance) {
	if cam := instance.Camera(); cam != nil {
		b.coordinator.Evict(cam)
	}
}

func (b *beginCommand) DescribePass(instance command.Instance) []graph.Pass {
	// CPU-only phase: no GPU resource usage to declare.
	return nil
}

// accumulateResources is the per-instance GPU resource record for the
// accumulate phase. Framebuffers are per eye: stereo targets are 2-layer
// array textures, and the resolve program samples texture_2d, so each eye
// gets its own single-layer attachment and draw. Eye 1 entries stay nil in
// mono mode.
type accumulateResources struct {
	dirty bool

	lastWidth, lastHeight int
	stereo                bool

	input   device.Texture
	capture device.Texture
	history [2]device.Texture

	inputFBO   [2]device.Framebuffer
	captureFBO [2]device.Framebuffer
	historyFBO [2][2]device.Framebuffer // ping-pong slot, then eye
}

// eyeCount returns how many per-eye draws the accumulate phase runs.
func eyeCount(stereo bool) int {
	if stereo {
		return 2
	}
	return 1
}

// accumulateCommand is phase two: copies scene color into the temporal input
// and history-capture targets every frame and renders the TAA resolve when
// the antialiasing mode requests it.
type accumulateCommand struct {
	coordinator *coordinatorImpl
	resources   *state.Store[command.Instance, *accumulateResources]
}

var _ command.Command = &accumulateCommand{}

func newAccumulateCommand(coordinator *coordinatorImpl) *accumulateCommand {
	return &accumulateCommand{
		coordinator: coordinator,
		resources: state.NewStore(state.WithInit(func(command.Instance) *accumulateResources {
			return &accumulateResources{dirty: true}
		})),
	}
}

func (a *accumulateCommand) Name() string {
	return "TemporalAccumulate"
}

func (a *accumulateCommand) AllocateContainerResources(instance command.Instance) {
	a.resources.Get(instance).dirty = true
}

func (a *accumulateCommand) Execute(instance command.Instance) {
	cam := instance.Camera()
	if cam == nil {
		return
	}
	reg := instance.Registry()
	src := reg.Texture(a.coordinator.sceneColorName)
	if src == nil {
		a.coordinator.warner.Warnf("temporal/accumulate/no-input",
			"temporal accumulate: %q not in registry, skipping frame", a.coordinator.sceneColorName)
		return
	}

	st := a.resources.Get(instance)
	width := instance.InternalWidth()
	height := instance.InternalHeight()
	stereo := instance.Stereo()

	if a.needsRegen(instance, st, width, height, stereo) {
		if err := a.regenerate(instance, st, width, height, stereo); err != nil {
			a.coordinator.warner.Warnf("temporal/accumulate/regen",
				"temporal accumulate: resource regeneration failed: %v", err)
			return
		}
	}

	dev := instance.Device()
	camSt := a.coordinator.states.Get(cam)

	eyes := eyeCount(stereo)

	// Temporal input updates unconditionally: velocity-style effects need a
	// fresh copy even when TAA is off.
	for eye := 0; eye < eyes; eye++ {
		if err := dev.Blit(src, st.inputFBO[eye]); err != nil {
			a.coordinator.warner.Warnf("temporal/accumulate/input-blit",
				"temporal accumulate: input blit failed: %v", err)
			return
		}
	}

	if a.coordinator.aaEnabled() {
		ping := camSt.historyPing
		historyReady := float32(0)
		if camSt.historyReady {
			historyReady = 1
		}
		uniforms := resolveUniforms{
			JitterX:      camSt.jitterX / float32(width),
			JitterY:      camSt.jitterY / float32(height),
			Feedback:     0.9,
			HistoryReady: historyReady,
		}
		resolved := true
		for eye := 0; eye < eyes; eye++ {
			err := dev.DrawFullscreen(resolveProgramKey, st.historyFBO[ping][eye], []device.Binding{
				{Index: 0, Sampled: src, SampledMip: -1, SampledLayer: eye},
				{Index: 1, Sampled: st.history[1-ping], SampledMip: -1, SampledLayer: eye},
				{Index: 2, Sampler: device.SamplerLinear},
				{Index: 3, Uniform: common.StructToBytes(&uniforms)},
			})
			if err != nil {
				a.coordinator.warner.Warnf("temporal/accumulate/resolve",
					"temporal accumulate: resolve draw failed: %v", err)
				resolved = false
				break
			}
		}
		if resolved {
			camSt.historyPing = 1 - ping
		}
	}

	for eye := 0; eye < eyes; eye++ {
		if err := dev.Blit(src, st.captureFBO[eye]); err != nil {
			a.coordinator.warner.Warnf("temporal/accumulate/capture-blit",
				"temporal accumulate: history capture blit failed: %v", err)
			return
		}
	}

	camSt.pendingHistoryReady = true
}

// needsRegen applies the standard regeneration triggers: explicit dirty flag,
// dimension change, stereo-mode change, or a published resource gone missing
// or replaced in the registry behind this command's back.
func (a *accumulateCommand) needsRegen(instance command.Instance, st *accumulateResources, width, height int, stereo bool) bool {
	if st.dirty || st.input == nil {
		return true
	}
	if width != st.lastWidth || height != st.lastHeight || stereo != st.stereo {
		return true
	}
	reg := instance.Registry()
	if reg.Texture(TextureTemporalInput) != st.input {
		return true
	}
	if reg.Texture(TextureHistoryCapture) != st.capture {
		return true
	}
	if reg.Texture(TextureHistory0) != st.history[0] || reg.Texture(TextureHistory1) != st.history[1] {
		return true
	}
	return false
}

func (a *accumulateCommand) regenerate(instance command.Instance, st *accumulateResources, width, height int, stereo bool) error {
	a.releaseResources(instance, st)

	dev := instance.Device()
	reg := instance.Registry()

	layers := eyeCount(stereo)

	makeTarget := func(texName, fboName string) (device.Texture, [2]device.Framebuffer, error) {
		var fbos [2]device.Framebuffer
		tex, err := dev.CreateTexture(device.TextureDesc{
			Label:  texName,
			Width:  width,
			Height: height,
			Layers: layers,
			Format: device.TextureFormatRGBA16F,
		})
		if err != nil {
			return nil, fbos, err
		}
		for eye := 0; eye < layers; eye++ {
			label := fboName
			if eye > 0 {
				label = fmt.Sprintf("%s Eye%d", fboName, eye)
			}
			fbo, err := dev.CreateFramebuffer(label, device.Attachment{
				Point:   device.AttachmentColor0,
				Texture: tex,
				Layer:   eye,
			})
			if err != nil {
				for _, prev := range fbos {
					if prev != nil {
						prev.Release()
					}
				}
				tex.Release()
				return nil, [2]device.Framebuffer{}, err
			}
			fbos[eye] = fbo
		}
		return tex, fbos, nil
	}

	var err error
	if st.input, st.inputFBO, err = makeTarget(TextureTemporalInput, FramebufferTemporalInput); err != nil {
		return err
	}
	if st.capture, st.captureFBO, err = makeTarget(TextureHistoryCapture, FramebufferHistoryCapture); err != nil {
		return err
	}
	if st.history[0], st.historyFBO[0], err = makeTarget(TextureHistory0, FramebufferHistory0); err != nil {
		return err
	}
	if st.history[1], st.historyFBO[1], err = makeTarget(TextureHistory1, FramebufferHistory1); err != nil {
		return err
	}

	if err = dev.RegisterRenderProgram(resolveProgramKey, resolveWGSL, resolveWGSL); err != nil {
		return err
	}

	reg.SetTexture(TextureTemporalInput, st.input)
	reg.SetTexture(TextureHistoryCapture, st.capture)
	reg.SetTexture(TextureHistory0, st.history[0])
	reg.SetTexture(TextureHistory1, st.history[1])
	// The registry carries the eye-0 framebuffers; eye-1 framebuffers are
	// internal per-eye attachments of the same textures.
	reg.SetFramebuffer(FramebufferTemporalInput, st.inputFBO[0])
	reg.SetFramebuffer(FramebufferHistoryCapture, st.captureFBO[0])
	reg.SetFramebuffer(FramebufferHistory0, st.historyFBO[0][0])
	reg.SetFramebuffer(FramebufferHistory1, st.historyFBO[1][0])

	st.lastWidth = width
	st.lastHeight = height
	st.stereo = stereo
	st.dirty = false
	return nil
}

// releaseResources removes this command's entries from the registry and
// releases them. Free-before-allocate keeps peak GPU memory bounded during
// regeneration.
func (a *accumulateCommand) releaseResources(instance command.Instance, st *accumulateResources) {
	reg := instance.Registry()
	for _, name := range []string{
		FramebufferTemporalInput, FramebufferHistoryCapture,
		FramebufferHistory0, FramebufferHistory1,
	} {
		if fbo := reg.RemoveFramebuffer(name); fbo != nil {
			fbo.Release()
		}
	}
	// Eye-1 framebuffers are not in the registry; release them directly.
	for _, fbo := range []device.Framebuffer{
		st.inputFBO[1], st.captureFBO[1],
		st.historyFBO[0][1], st.historyFBO[1][1],
	} {
		if fbo != nil {
			fbo.Release()
		}
	}
	for _, name := range []string{
		TextureTemporalInput, TextureHistoryCapture,
		TextureHistory0, TextureHistory1,
	} {
		if tex := reg.RemoveTexture(name); tex != nil {
			tex.Release()
		}
	}
	st.input = nil
	st.capture = nil
	st.history = [2]device.Texture{}
	st.inputFBO = [2]device.Framebuffer{}
	st.captureFBO = [2]device.Framebuffer{}
	st.historyFBO = [2][2]device.Framebuffer{}
}

func (a *accumulateCommand) ReleaseContainerResources(instance command.Instance) {
	st, ok := a.resources.Peek(instance)
	if !ok {
		return
	}
	a.releaseResources(instance, st)
	a.resources.Remove(instance)
}

func (a *accumulateCommand) DescribePass(instance command.Instance) []graph.Pass {
	cam := instance.Camera()
	if cam == nil {
		return nil
	}
	if instance.Registry().Texture(a.coordinator.sceneColorName) == nil {
		return nil
	}

	passes := []graph.Pass{
		{
			Name:    "TemporalInput",
			Sampled: []string{a.coordinator.sceneColorName},
			Color: []graph.AttachmentUse{
				{Name: TextureTemporalInput, Load: graph.LoadOpDontCare, Store: graph.StoreOpStore},
			},
		},
	}

	if a.coordinator.aaEnabled() {
		ping := 0
		if camSt, ok := a.coordinator.states.Peek(cam); ok {
			ping = camSt.historyPing
		}
		historyTargets := [2]string{TextureHistory0, TextureHistory1}
		passes = append(passes, graph.Pass{
			Name:    "TemporalResolve",
			Sampled: []string{a.coordinator.sceneColorName, historyTargets[1-ping]},
			Color: []graph.AttachmentUse{
				{Name: historyTargets[ping], Load: graph.LoadOpDontCare, Store: graph.StoreOpStore},
			},
		})
	}

	passes = append(passes, graph.Pass{
		Name:    "HistoryCapture",
		Sampled: []string{a.coordinator.sceneColorName},
		Color: []graph.AttachmentUse{
			{Name: TextureHistoryCapture, Load: graph.LoadOpDontCare, Store: graph.StoreOpStore},
		},
	})
	return passes
}

// resolveUniforms matches the WGSL ResolveUniforms layout (16 bytes).
type resolveUniforms struct {
	JitterX      float32
	JitterY      float32
	Feedback     float32
	HistoryReady float32
}

// commitCommand is phase three: releases the frame's jitter request and, when
// the accumulate phase captured history this frame, promotes current matrices
// and jitter into the previous-frame slots and marks history ready.
type commitCommand struct {
	coordinator *coordinatorImpl
}

var _ command.Command = &commitCommand{}

func (c *commitCommand) Name() string {
	return "TemporalCommit"
}

func (c *commitCommand) AllocateContainerResources(instance command.Instance) {
	// No GPU resources owned.
}

func (c *commitCommand) Execute(instance command.Instance) {
	cam := instance.Camera()
	if cam == nil {
		return
	}
	st, ok := c.coordinator.states.Peek(cam)
	if !ok {
		return
	}

	if st.jitterRequest != nil {
		st.jitterRequest.Release()
		st.jitterRequest = nil
	}

	if !st.pendingHistoryReady {
		return
	}

	st.prevViewProj = st.viewProj
	st.prevUnjitteredProj = st.unjitteredProj
	st.prevUnjitteredViewProj = st.unjitteredViewProj
	st.prevInvViewProj = st.invViewProj
	st.pendingHistoryReady = false
	st.historyReady = true
}

func (c *commitCommand) ReleaseContainerResources(instance command.Instance) {
	cam := instance.Camera()
	if cam == nil {
		return
	}
	if st, ok := c.coordinator.states.Peek(cam); ok && st.jitterRequest != nil {
		st.jitterRequest.Release()
		st.jitterRequest = nil
	}
}

func (c *commitCommand) DescribePass(instance command.Instance) []graph.Pass {
	return nil
}
