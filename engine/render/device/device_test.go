package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newNullDevice() (Device, *NullDeviceBackend) {
	backend := NewNullDeviceBackend()
	return NewDevice(BackendTypeNull, WithDeviceBackend(backend)), backend
}

func TestCreateTextureNormalizesDescriptor(t *testing.T) {
	dev, _ := newNullDevice()

	tex, err := dev.CreateTexture(TextureDesc{
		Label:  "Scratch",
		Width:  256,
		Height: 128,
		Format: TextureFormatRGBA8,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, tex.MipCount())
	assert.Equal(t, 1, tex.Layers())
}

func TestCreateFramebufferRejectsDepthAtColorPoint(t *testing.T) {
	dev, backend := newNullDevice()

	depth, err := dev.CreateTexture(TextureDesc{
		Label:  "Depth",
		Width:  64,
		Height: 64,
		Format: TextureFormatDepth32F,
	})
	require.NoError(t, err)

	_, err = dev.CreateFramebuffer("Bad", Attachment{
		Point:   AttachmentColor0,
		Texture: depth,
	})
	assert.Error(t, err)
	assert.Equal(t, 0, backend.Stats().FramebuffersCreated)
}

func TestCreateFramebufferRejectsColorAtDepthPoint(t *testing.T) {
	dev, _ := newNullDevice()

	color, err := dev.CreateTexture(TextureDesc{
		Label:  "Color",
		Width:  64,
		Height: 64,
		Format: TextureFormatRGBA16F,
	})
	require.NoError(t, err)

	_, err = dev.CreateFramebuffer("Bad", Attachment{
		Point:   AttachmentDepth,
		Texture: color,
	})
	assert.Error(t, err)
}

func TestCreateFramebufferRejectsOutOfRangeMip(t *testing.T) {
	dev, _ := newNullDevice()

	tex, err := dev.CreateTexture(TextureDesc{
		Label:    "Chain",
		Width:    64,
		Height:   64,
		MipCount: 3,
		Format:   TextureFormatRGBA16F,
	})
	require.NoError(t, err)

	_, err = dev.CreateFramebuffer("Bad", Attachment{
		Point:    AttachmentColor0,
		Texture:  tex,
		MipLevel: 3,
	})
	assert.Error(t, err)
}

func TestFramebufferSizeFollowsAttachedMip(t *testing.T) {
	dev, _ := newNullDevice()

	tex, err := dev.CreateTexture(TextureDesc{
		Label:    "Chain",
		Width:    256,
		Height:   128,
		MipCount: 6,
		Format:   TextureFormatRGBA16F,
	})
	require.NoError(t, err)

	fbo, err := dev.CreateFramebuffer("Mip2", Attachment{
		Point:    AttachmentColor0,
		Texture:  tex,
		MipLevel: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, 64, fbo.Width())
	assert.Equal(t, 32, fbo.Height())
}

func TestReleaseIsIdempotentPerObject(t *testing.T) {
	dev, backend := newNullDevice()

	tex, err := dev.CreateTexture(TextureDesc{
		Label:  "Scratch",
		Width:  8,
		Height: 8,
		Format: TextureFormatRGBA8,
	})
	require.NoError(t, err)

	tex.Release()
	tex.Release()
	assert.Equal(t, 1, backend.Stats().TexturesReleased)
}

func TestBufferSize(t *testing.T) {
	dev, _ := newNullDevice()

	buf, err := dev.CreateBuffer(BufferDesc{
		Label:        "Tiles",
		ElementCount: 100,
		Stride:       4,
		Usage:        BufferUsageStorage,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(400), buf.Size())
}

func TestUpscaleUnsupportedByDefault(t *testing.T) {
	dev, backend := newNullDevice()
	assert.False(t, dev.Supports(FeatureVendorUpscale))

	tex, err := dev.CreateTexture(TextureDesc{Label: "Src", Width: 8, Height: 8, Format: TextureFormatRGBA8})
	require.NoError(t, err)
	fbo, err := dev.CreateFramebuffer("Dst", Attachment{Point: AttachmentColor0, Texture: tex})
	require.NoError(t, err)

	assert.Error(t, dev.Upscale(tex, fbo))
	assert.Equal(t, 0, backend.Stats().Upscales)
}
