package registry

import (
	"testing"

	"github.com/halcyon3d/halcyon-go/engine/render/device"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDevice(t *testing.T) (device.Device, *device.NullDeviceBackend) {
	t.Helper()
	backend := device.NewNullDeviceBackend()
	dev := device.NewDevice(device.BackendTypeNull, device.WithDeviceBackend(backend))
	return dev, backend
}

func makeTexture(t *testing.T, dev device.Device, label string) device.Texture {
	t.Helper()
	tex, err := dev.CreateTexture(device.TextureDesc{Label: label, Width: 4, Height: 4})
	require.NoError(t, err)
	return tex
}

func TestSetTextureReleasesPrior(t *testing.T) {
	dev, backend := newTestDevice(t)
	reg := NewRegistry()

	first := makeTexture(t, dev, "a")
	second := makeTexture(t, dev, "b")

	reg.SetTexture("SceneColor", first)
	assert.Equal(t, 0, backend.Stats().TexturesReleased)

	reg.SetTexture("SceneColor", second)
	assert.Equal(t, 1, backend.Stats().TexturesReleased)
	assert.Same(t, second, reg.Texture("SceneColor"))
}

func TestSetTextureSameObjectIsNotReleased(t *testing.T) {
	dev, backend := newTestDevice(t)
	reg := NewRegistry()

	tex := makeTexture(t, dev, "a")
	reg.SetTexture("SceneColor", tex)
	reg.SetTexture("SceneColor", tex)

	assert.Equal(t, 0, backend.Stats().TexturesReleased)
	assert.Same(t, tex, reg.Texture("SceneColor"))
}

func TestRemoveTextureTransfersOwnership(t *testing.T) {
	dev, backend := newTestDevice(t)
	reg := NewRegistry()

	tex := makeTexture(t, dev, "a")
	reg.SetTexture("SceneColor", tex)

	removed := reg.RemoveTexture("SceneColor")
	assert.Same(t, tex, removed)
	assert.Nil(t, reg.Texture("SceneColor"))
	assert.Equal(t, 0, backend.Stats().TexturesReleased)

	removed.Release()
	assert.Equal(t, 1, backend.Stats().TexturesReleased)
}

func TestRemoveAbsentReturnsNil(t *testing.T) {
	reg := NewRegistry()
	assert.Nil(t, reg.RemoveTexture("missing"))
	assert.Nil(t, reg.RemoveFramebuffer("missing"))
}

func TestFramebufferLifecycle(t *testing.T) {
	dev, backend := newTestDevice(t)
	reg := NewRegistry()

	tex := makeTexture(t, dev, "color")
	fbo, err := dev.CreateFramebuffer("SceneFBO", device.Attachment{
		Point:   device.AttachmentColor0,
		Texture: tex,
	})
	require.NoError(t, err)

	reg.SetFramebuffer("SceneFBO", fbo)
	assert.Same(t, fbo, reg.Framebuffer("SceneFBO"))

	second, err := dev.CreateFramebuffer("SceneFBO2", device.Attachment{
		Point:   device.AttachmentColor0,
		Texture: tex,
	})
	require.NoError(t, err)

	reg.SetFramebuffer("SceneFBO", second)
	assert.Equal(t, 1, backend.Stats().FramebuffersReleased)
}

func TestTextureNames(t *testing.T) {
	dev, _ := newTestDevice(t)
	reg := NewRegistry()

	reg.SetTexture("a", makeTexture(t, dev, "a"))
	reg.SetTexture("b", makeTexture(t, dev, "b"))

	assert.ElementsMatch(t, []string{"a", "b"}, reg.TextureNames())
}

func TestDestroyReleasesEverything(t *testing.T) {
	dev, backend := newTestDevice(t)
	reg := NewRegistry()

	tex := makeTexture(t, dev, "color")
	fbo, err := dev.CreateFramebuffer("fbo", device.Attachment{
		Point:   device.AttachmentColor0,
		Texture: tex,
	})
	require.NoError(t, err)

	reg.SetTexture("color", tex)
	reg.SetFramebuffer("fbo", fbo)
	reg.Destroy()

	stats := backend.Stats()
	assert.Equal(t, 1, stats.TexturesReleased)
	assert.Equal(t, 1, stats.FramebuffersReleased)
	assert.Nil(t, reg.Texture("color"))
	assert.Nil(t, reg.Framebuffer("fbo"))

	// Destroy leaves the registry usable.
	reg.SetTexture("color", makeTexture(t, dev, "again"))
	assert.NotNil(t, reg.Texture("color"))
}
