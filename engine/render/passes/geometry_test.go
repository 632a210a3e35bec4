package passes

import (
	"testing"

	"github.com/halcyon3d/halcyon-go/engine/render/command"
	"github.com/halcyon3d/halcyon-go/engine/render/device"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeometryAllocatesTargetsOnce(t *testing.T) {
	backend := device.NewNullDeviceBackend()
	instance := newTestInstance(t, backend)
	geometry := NewGeometry()

	geometry.AllocateContainerResources(instance)
	geometry.Execute(instance)

	stats := backend.Stats()
	// Color, depth, normal targets plus the scene framebuffer.
	assert.Equal(t, 3, stats.TexturesCreated)
	assert.Equal(t, 1, stats.FramebuffersCreated)
	assert.NotNil(t, instance.reg.Texture(TextureSceneColor))
	assert.NotNil(t, instance.reg.Texture(TextureSceneDepth))
	assert.NotNil(t, instance.reg.Texture(TextureSceneNormal))
	assert.NotNil(t, instance.reg.Framebuffer(FramebufferScene))

	// Unchanged dimensions: a second execute must not regenerate.
	geometry.Execute(instance)
	stats = backend.Stats()
	assert.Equal(t, 3, stats.TexturesCreated)
	assert.Equal(t, 0, stats.TexturesReleased)
}

func TestGeometryResizeRegeneratesExactlyOnce(t *testing.T) {
	backend := device.NewNullDeviceBackend()
	instance := newTestInstance(t, backend)
	geometry := NewGeometry()

	geometry.AllocateContainerResources(instance)
	geometry.Execute(instance)

	instance.internalWidth = 640
	instance.internalHeight = 360
	geometry.Execute(instance)

	stats := backend.Stats()
	assert.Equal(t, 6, stats.TexturesCreated)
	assert.Equal(t, 3, stats.TexturesReleased)
	assert.Equal(t, 1, stats.FramebuffersReleased)
	assert.Equal(t, 640, instance.reg.Texture(TextureSceneColor).Width())
	assert.Equal(t, 360, instance.reg.Texture(TextureSceneColor).Height())

	// Stable again at the new size.
	geometry.Execute(instance)
	assert.Equal(t, 6, backend.Stats().TexturesCreated)
}

func TestGeometryStereoAllocatesLayeredTargets(t *testing.T) {
	backend := device.NewNullDeviceBackend()
	instance := newTestInstance(t, backend)
	instance.stereo = true
	geometry := NewGeometry()

	geometry.AllocateContainerResources(instance)
	geometry.Execute(instance)

	assert.Equal(t, 2, instance.reg.Texture(TextureSceneColor).Layers())
	assert.Equal(t, 2, instance.reg.Texture(TextureSceneDepth).Layers())

	// Dropping back to mono is a regeneration trigger.
	instance.stereo = false
	geometry.Execute(instance)
	assert.Equal(t, 1, instance.reg.Texture(TextureSceneColor).Layers())
	assert.Equal(t, 3, backend.Stats().TexturesReleased)
}

func TestGeometryStateIsolationAcrossInstances(t *testing.T) {
	backend := device.NewNullDeviceBackend()
	a := newTestInstance(t, backend)
	b := newTestInstance(t, backend)
	geometry := NewGeometry()

	geometry.AllocateContainerResources(a)
	geometry.AllocateContainerResources(b)
	geometry.Execute(a)
	geometry.Execute(b)
	require.Equal(t, 6, backend.Stats().TexturesCreated)

	// Resizing B must not dirty A.
	b.internalWidth = 640
	b.internalHeight = 360
	geometry.Execute(b)
	geometry.Execute(a)

	stats := backend.Stats()
	assert.Equal(t, 9, stats.TexturesCreated)
	assert.Equal(t, 3, stats.TexturesReleased)
}

func TestGeometryRegenerationInvalidatesDependentCompositeFBO(t *testing.T) {
	backend := device.NewNullDeviceBackend()
	instance := newTestInstance(t, backend)
	geometry := NewGeometry()

	geometry.AllocateContainerResources(instance)
	geometry.Execute(instance)

	// Plant a composite framebuffer attaching the soon-to-be-replaced scene
	// color, the way the bloom pass does.
	composite, err := instance.dev.CreateFramebuffer(FramebufferBloomComposite, device.Attachment{
		Point:   device.AttachmentColor0,
		Texture: instance.reg.Texture(TextureSceneColor),
	})
	require.NoError(t, err)
	instance.reg.SetFramebuffer(FramebufferBloomComposite, composite)

	// An unrelated framebuffer two hops away must survive.
	other, err := instance.dev.CreateFramebuffer("UnrelatedFBO", device.Attachment{
		Point:   device.AttachmentColor0,
		Texture: instance.reg.Texture(TextureSceneNormal),
	})
	require.NoError(t, err)
	instance.reg.SetFramebuffer("UnrelatedFBO", other)

	released := backend.Stats().FramebuffersReleased
	instance.internalWidth = 640
	geometry.Execute(instance)

	assert.Nil(t, instance.reg.Framebuffer(FramebufferBloomComposite))
	assert.NotNil(t, instance.reg.Framebuffer("UnrelatedFBO"))
	// Scene FBO plus composite released; the unrelated one untouched.
	assert.Equal(t, released+2, backend.Stats().FramebuffersReleased)
}

// spyDrawer records the arguments of its last DrawScene call.
type spyDrawer struct {
	calls  int
	target device.Framebuffer
	lights []device.Binding
}

func (s *spyDrawer) DrawScene(_ command.Instance, target device.Framebuffer, lights []device.Binding) error {
	s.calls++
	s.target = target
	s.lights = lights
	return nil
}

func TestGeometryForwardsVisibleLightsToDrawer(t *testing.T) {
	backend := device.NewNullDeviceBackend()
	instance := newTestInstance(t, backend)

	drawer := &spyDrawer{}
	geometry := NewGeometry(WithSceneDrawer(drawer))
	cull := NewLightCull(&staticLights{})

	geometry.AllocateContainerResources(instance)
	cull.AllocateContainerResources(instance)
	cull.Execute(instance)
	geometry.Execute(instance)

	require.Equal(t, 1, drawer.calls)
	assert.Equal(t, instance.reg.Framebuffer(FramebufferScene), drawer.target)
	require.Len(t, drawer.lights, 3)
	// With a drawer attached the fallback background never runs.
	assert.Empty(t, backend.Draws())
}

func TestGeometryBackgroundFallbackWithoutDrawer(t *testing.T) {
	backend := device.NewNullDeviceBackend()
	instance := newTestInstance(t, backend)
	geometry := NewGeometry()

	geometry.AllocateContainerResources(instance)
	geometry.Execute(instance)

	draws := backend.Draws()
	require.Len(t, draws, 1)
	assert.Equal(t, "geometry/background", draws[0].ProgramKey)
	assert.Equal(t, FramebufferScene, draws[0].Target)
}

func TestGeometryReleaseContainerResources(t *testing.T) {
	backend := device.NewNullDeviceBackend()
	instance := newTestInstance(t, backend)
	geometry := NewGeometry()

	geometry.AllocateContainerResources(instance)
	geometry.Execute(instance)
	geometry.ReleaseContainerResources(instance)

	stats := backend.Stats()
	assert.Equal(t, 3, stats.TexturesReleased)
	assert.Equal(t, 1, stats.FramebuffersReleased)
	assert.Nil(t, instance.reg.Texture(TextureSceneColor))

	// Release is idempotent.
	geometry.ReleaseContainerResources(instance)
	assert.Equal(t, 3, backend.Stats().TexturesReleased)
}

func TestGeometryDescribeMirrorsTargets(t *testing.T) {
	backend := device.NewNullDeviceBackend()
	instance := newTestInstance(t, backend)
	geometry := NewGeometry()

	passes := geometry.DescribePass(instance)
	require.Len(t, passes, 1)
	assert.True(t, passes[0].Writes(TextureSceneColor))
	assert.True(t, passes[0].Writes(TextureSceneNormal))
	require.NotNil(t, passes[0].Depth)
	assert.Equal(t, TextureSceneDepth, passes[0].Depth.Name)
}
