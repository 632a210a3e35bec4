package temporal

import (
	"testing"

	"github.com/halcyon3d/halcyon-go/engine/camera"
	"github.com/halcyon3d/halcyon-go/engine/render/command"
	"github.com/halcyon3d/halcyon-go/engine/render/device"
	"github.com/halcyon3d/halcyon-go/engine/render/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testInstance is a minimal pipeline instance backed by the null device.
type testInstance struct {
	reg           registry.Registry
	dev           device.Device
	cam           camera.Camera
	frame         *command.FrameState
	width, height int
	stereo        bool
}

func (i *testInstance) Registry() registry.Registry { return i.reg }
func (i *testInstance) Device() device.Device       { return i.dev }
func (i *testInstance) RenderWidth() int            { return i.width }
func (i *testInstance) RenderHeight() int           { return i.height }
func (i *testInstance) InternalWidth() int          { return i.width }
func (i *testInstance) InternalHeight() int         { return i.height }
func (i *testInstance) Stereo() bool                { return i.stereo }
func (i *testInstance) ShadowPass() bool            { return false }
func (i *testInstance) Camera() camera.Camera       { return i.cam }
func (i *testInstance) FrameIndex() uint64          { return 1 }
func (i *testInstance) Frame() *command.FrameState  { return i.frame }

type harness struct {
	instance *testInstance
	backend  *device.NullDeviceBackend

	coordinator Coordinator
	begin       command.Command
	accumulate  command.Command
	commit      command.Command
}

func newHarness(t *testing.T, options ...CoordinatorOption) *harness {
	t.Helper()
	backend := device.NewNullDeviceBackend()
	dev := device.NewDevice(device.BackendTypeNull, device.WithDeviceBackend(backend))

	instance := &testInstance{
		reg:    registry.NewRegistry(),
		dev:    dev,
		cam:    camera.NewCamera(),
		frame:  command.NewFrameState(),
		width:  1280,
		height: 720,
	}

	coordinator := NewCoordinator(options...)
	return &harness{
		instance:    instance,
		backend:     backend,
		coordinator: coordinator,
		begin:       coordinator.BeginCommand(),
		accumulate:  coordinator.AccumulateCommand(),
		commit:      coordinator.CommitCommand(),
	}
}

// publishSceneColor puts a scene color texture in the registry the way the
// geometry pass would, matching the instance's stereo mode.
func (h *harness) publishSceneColor(t *testing.T) {
	t.Helper()
	layers := 1
	if h.instance.stereo {
		layers = 2
	}
	tex, err := h.instance.dev.CreateTexture(device.TextureDesc{
		Label:  "SceneColor",
		Width:  h.instance.width,
		Height: h.instance.height,
		Layers: layers,
		Format: device.TextureFormatRGBA16F,
	})
	require.NoError(t, err)
	h.instance.reg.SetTexture("SceneColor", tex)
}

func (h *harness) cycle() {
	h.begin.Execute(h.instance)
	h.accumulate.Execute(h.instance)
	h.commit.Execute(h.instance)
}

func TestFullCycleSetsHistoryReady(t *testing.T) {
	h := newHarness(t)
	h.publishSceneColor(t)

	assert.False(t, h.coordinator.HistoryReady(h.instance.cam))
	h.cycle()
	assert.True(t, h.coordinator.HistoryReady(h.instance.cam))
}

func TestSkippedAccumulateLeavesHistoryNotReady(t *testing.T) {
	h := newHarness(t)
	h.publishSceneColor(t)

	h.begin.Execute(h.instance)
	h.commit.Execute(h.instance)

	assert.False(t, h.coordinator.HistoryReady(h.instance.cam))
}

func TestMissingSceneColorSkipsWithoutAllocating(t *testing.T) {
	h := newHarness(t)

	h.begin.Execute(h.instance)
	h.accumulate.Execute(h.instance)
	h.commit.Execute(h.instance)

	assert.False(t, h.coordinator.HistoryReady(h.instance.cam))
	assert.Equal(t, 0, h.backend.Stats().TexturesCreated)
	assert.Empty(t, h.backend.Draws())
}

func TestResolutionChangeResetsHistoryAndHaltonIndex(t *testing.T) {
	h := newHarness(t)
	h.publishSceneColor(t)

	h.cycle()
	h.cycle()
	require.True(t, h.coordinator.HistoryReady(h.instance.cam))
	require.Equal(t, uint32(2), h.coordinator.HaltonIndex(h.instance.cam))

	h.instance.width = 1920
	h.instance.height = 1080
	h.begin.Execute(h.instance)

	assert.False(t, h.coordinator.HistoryReady(h.instance.cam))
	assert.Equal(t, uint32(1), h.coordinator.HaltonIndex(h.instance.cam))
}

func TestHaltonIndexAdvancesPerBegin(t *testing.T) {
	h := newHarness(t)
	h.publishSceneColor(t)

	for want := uint32(1); want <= 4; want++ {
		h.cycle()
		assert.Equal(t, want, h.coordinator.HaltonIndex(h.instance.cam))
	}
}

func TestJitterStaysSubTexel(t *testing.T) {
	h := newHarness(t)
	h.publishSceneColor(t)

	for i := 0; i < 16; i++ {
		h.cycle()
		x, y := h.coordinator.Jitter(h.instance.cam)
		assert.GreaterOrEqual(t, x, float32(-0.5))
		assert.Less(t, x, float32(0.5))
		assert.GreaterOrEqual(t, y, float32(-0.5))
		assert.Less(t, y, float32(0.5))
	}
}

func TestInputBlitHappensEvenWithAADisabled(t *testing.T) {
	h := newHarness(t, WithAntiAliasing(func() bool { return false }))
	h.publishSceneColor(t)

	h.cycle()

	// Input copy and history capture both blit; the TAA resolve draw must not
	// run.
	assert.Equal(t, 2, h.backend.Stats().Blits)
	assert.Empty(t, h.backend.Draws())
	// History bookkeeping still runs so enabling AA later starts clean.
	assert.True(t, h.coordinator.HistoryReady(h.instance.cam))
}

func TestResolvePingPongsBetweenHistoryTargets(t *testing.T) {
	h := newHarness(t)
	h.publishSceneColor(t)

	h.cycle()
	h.cycle()

	draws := h.backend.Draws()
	require.Len(t, draws, 2)
	assert.Equal(t, FramebufferHistory0, draws[0].Target)
	assert.Equal(t, FramebufferHistory1, draws[1].Target)
}

// The resolve shader declares two sampled textures, a sampler, and a uniform
// block. The draw must bind all four; a missing sampler fails bind group
// creation on the real backend.
func TestResolveBindsSharedLinearSampler(t *testing.T) {
	h := newHarness(t)
	h.publishSceneColor(t)

	h.cycle()

	draws := h.backend.Draws()
	require.Len(t, draws, 1)

	indices := make(map[int]device.Binding, len(draws[0].Bindings))
	for _, b := range draws[0].Bindings {
		indices[b.Index] = b
	}
	require.Contains(t, indices, 0)
	require.Contains(t, indices, 1)
	require.Contains(t, indices, 2)
	require.Contains(t, indices, 3)

	assert.NotNil(t, indices[0].Sampled)
	assert.NotNil(t, indices[1].Sampled)
	assert.Equal(t, device.SamplerLinear, indices[2].Sampler)
	assert.Nil(t, indices[2].Sampled)
	assert.Len(t, indices[3].Uniform, 16)
}

// Stereo targets are 2-layer array textures while the resolve program samples
// texture_2d, so each eye must get its own single-layer draw and blits.
func TestStereoAccumulateResolvesEachEye(t *testing.T) {
	h := newHarness(t)
	h.instance.stereo = true
	h.publishSceneColor(t)

	h.cycle()

	draws := h.backend.Draws()
	require.Len(t, draws, 2)
	assert.Equal(t, FramebufferHistory0, draws[0].Target)
	assert.Equal(t, FramebufferHistory0+" Eye1", draws[1].Target)
	for eye, draw := range draws {
		for _, b := range draw.Bindings {
			if b.Sampled != nil {
				assert.Equal(t, eye, b.SampledLayer, "eye %d", eye)
				assert.Equal(t, 2, b.Sampled.Layers(), "eye %d", eye)
			}
		}
	}

	stats := h.backend.Stats()
	// Input copy and history capture run once per eye.
	assert.Equal(t, 4, stats.Blits)
	// 4 owned textures, each with one framebuffer per eye.
	assert.Equal(t, 1+4, stats.TexturesCreated)
	assert.Equal(t, 8, stats.FramebuffersCreated)

	assert.True(t, h.coordinator.HistoryReady(h.instance.cam))
}

func TestStereoToggleRegeneratesPerEyeTargets(t *testing.T) {
	h := newHarness(t)
	h.publishSceneColor(t)
	h.cycle()
	require.Equal(t, 4, h.backend.Stats().FramebuffersCreated)

	h.instance.stereo = true
	h.instance.reg.RemoveTexture("SceneColor")
	h.publishSceneColor(t)
	h.cycle()

	stats := h.backend.Stats()
	assert.Equal(t, 4+8, stats.FramebuffersCreated)
	assert.Equal(t, 4, stats.FramebuffersReleased)
	assert.Equal(t, 4, stats.TexturesReleased)
}

func TestAccumulateRegeneratesOnce(t *testing.T) {
	h := newHarness(t)
	h.publishSceneColor(t)

	h.cycle()
	created := h.backend.Stats().TexturesCreated
	h.cycle()
	assert.Equal(t, created, h.backend.Stats().TexturesCreated)
}

func TestAccumulateRegeneratesOnResize(t *testing.T) {
	h := newHarness(t)
	h.publishSceneColor(t)
	h.cycle()

	// 4 owned textures: input, capture, two history targets.
	require.Equal(t, 1+4, h.backend.Stats().TexturesCreated)

	h.instance.width = 640
	h.instance.height = 360
	h.cycle()

	stats := h.backend.Stats()
	assert.Equal(t, 1+8, stats.TexturesCreated)
	assert.Equal(t, 4, stats.TexturesReleased)
	assert.Equal(t, 4, stats.FramebuffersReleased)
}

func TestPerCameraStateIsolation(t *testing.T) {
	h := newHarness(t)
	h.publishSceneColor(t)

	camB := camera.NewCamera()
	h.cycle()

	assert.True(t, h.coordinator.HistoryReady(h.instance.cam))
	assert.False(t, h.coordinator.HistoryReady(camB))
	assert.Equal(t, uint32(0), h.coordinator.HaltonIndex(camB))
}

func TestEvictReleasesJitterRequest(t *testing.T) {
	h := newHarness(t)
	h.publishSceneColor(t)

	h.begin.Execute(h.instance)
	require.True(t, h.instance.cam.JitterActive())

	h.coordinator.Evict(h.instance.cam)
	assert.False(t, h.instance.cam.JitterActive())
}
