package passes

import (
	"testing"

	"github.com/halcyon3d/halcyon-go/engine/render/command"
	"github.com/halcyon3d/halcyon-go/engine/render/device"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// publishFinalTarget registers the final framebuffer the way the upscale pass
// would.
func publishFinalTarget(t *testing.T, instance *testInstance) {
	t.Helper()
	tex, err := instance.dev.CreateTexture(device.TextureDesc{
		Label:  TextureFinalColor,
		Width:  instance.renderWidth,
		Height: instance.renderHeight,
		Format: device.TextureFormatRGBA8,
	})
	require.NoError(t, err)
	instance.reg.SetTexture(TextureFinalColor, tex)

	fbo, err := instance.dev.CreateFramebuffer(FramebufferFinal, device.Attachment{
		Point:   device.AttachmentColor0,
		Texture: tex,
	})
	require.NoError(t, err)
	instance.reg.SetFramebuffer(FramebufferFinal, fbo)
}

func TestDebugViewBlitsNestedSourceTexture(t *testing.T) {
	backend := device.NewNullDeviceBackend()
	instance := newTestInstance(t, backend)
	publishSceneColor(t, instance)
	publishFinalTarget(t, instance)

	bloom := NewBloom()
	// Nest the source inside a not-taken branch; Find must still reach it.
	chain := command.NewList("Frame",
		command.NewIf("BloomEnabled", func(command.Instance) bool { return false }, bloom, nil),
	)

	bloom.AllocateContainerResources(instance)
	bloom.Execute(instance)
	blitsBefore := backend.Stats().Blits

	debug := NewDebugView(func() command.Command { return chain }, bloom.Name())
	debug.Execute(instance)

	assert.Equal(t, blitsBefore+1, backend.Stats().Blits)
	passes := debug.DescribePass(instance)
	require.Len(t, passes, 1)
	assert.True(t, passes[0].Writes(TextureFinalColor))
}

func TestDebugViewSkipsWithoutFinalTarget(t *testing.T) {
	backend := device.NewNullDeviceBackend()
	instance := newTestInstance(t, backend)

	bloom := NewBloom()
	debug := NewDebugView(func() command.Command { return bloom }, bloom.Name())

	assert.NotPanics(t, func() { debug.Execute(instance) })
	assert.Equal(t, 0, backend.Stats().Blits)
}

func TestDebugViewSkipsWhenSourceNotAllocated(t *testing.T) {
	backend := device.NewNullDeviceBackend()
	instance := newTestInstance(t, backend)
	publishFinalTarget(t, instance)

	ssao := NewSSAO()
	debug := NewDebugView(func() command.Command { return ssao }, ssao.Name())

	debug.Execute(instance)
	assert.Equal(t, 0, backend.Stats().Blits)
	assert.Nil(t, debug.DescribePass(instance))
}

func TestDebugViewSkipsWhenTargetIsNotADebugSource(t *testing.T) {
	backend := device.NewNullDeviceBackend()
	instance := newTestInstance(t, backend)
	publishFinalTarget(t, instance)

	upscale := NewUpscale()
	debug := NewDebugView(func() command.Command { return upscale }, upscale.Name())

	debug.Execute(instance)
	assert.Equal(t, 0, backend.Stats().Blits)
}

func TestDebugViewRequiresRootResolver(t *testing.T) {
	assert.Panics(t, func() {
		NewDebugView(nil, "Bloom")
	})
}
