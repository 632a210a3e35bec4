package passes

import (
	"testing"

	"github.com/halcyon3d/halcyon-go/common"
	"github.com/halcyon3d/halcyon-go/engine/render/device"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// publishSceneColor puts a scene color texture in the registry the way the
// geometry pass would.
func publishSceneColor(t *testing.T, instance *testInstance) device.Texture {
	t.Helper()
	tex, err := instance.dev.CreateTexture(device.TextureDesc{
		Label:  TextureSceneColor,
		Width:  instance.internalWidth,
		Height: instance.internalHeight,
		Format: device.TextureFormatRGBA16F,
	})
	require.NoError(t, err)
	instance.reg.SetTexture(TextureSceneColor, tex)
	return tex
}

func TestDownsampleSourceMip(t *testing.T) {
	assert.Equal(t, 0, DownsampleSourceMip(0))
	assert.Equal(t, 0, DownsampleSourceMip(1))
	assert.Equal(t, 1, DownsampleSourceMip(2))
	assert.Equal(t, 4, DownsampleSourceMip(5))
	assert.Equal(t, 0, DownsampleSourceMip(-3))
}

func TestBloomDownsampleChainDispatches(t *testing.T) {
	backend := device.NewNullDeviceBackend()
	instance := newTestInstance(t, backend)
	publishSceneColor(t, instance)

	bloom := NewBloom()
	bloom.AllocateContainerResources(instance)
	bloom.Execute(instance)

	// One blit fills mip 0, then one dispatch per remaining mip.
	assert.Equal(t, 1, backend.Stats().Blits)
	dispatches := backend.Dispatches()
	require.Len(t, dispatches, DefaultBloomMips-1)

	for i, d := range dispatches {
		mip := i + 1
		mipWidth := max(1, instance.internalWidth>>mip)
		mipHeight := max(1, instance.internalHeight>>mip)

		assert.Equal(t, "bloom/downsample", d.ProgramKey)
		assert.Equal(t, [3]uint32{
			common.CeilDiv(mipWidth, 8),
			common.CeilDiv(mipHeight, 8),
			1,
		}, d.Groups, "mip %d", mip)

		require.Len(t, d.Bindings, 2)
		assert.Equal(t, DownsampleSourceMip(mip), d.Bindings[0].SampledMip, "mip %d", mip)
		assert.Equal(t, mip, d.Bindings[1].ImageMip, "mip %d", mip)
		assert.Equal(t, device.AccessWrite, d.Bindings[1].ImageAccess)

		want := device.BarrierImageAccess
		if mip == DefaultBloomMips-1 {
			want |= device.BarrierTextureFetch
		}
		assert.Equal(t, want, d.Barrier, "mip %d", mip)
	}
}

func TestBloomCompositeDrawsOntoSceneColor(t *testing.T) {
	backend := device.NewNullDeviceBackend()
	instance := newTestInstance(t, backend)
	publishSceneColor(t, instance)

	bloom := NewBloom(WithBloomIntensity(0.5))
	bloom.AllocateContainerResources(instance)
	bloom.Execute(instance)

	draws := backend.Draws()
	require.Len(t, draws, 1)
	assert.Equal(t, "bloom/composite", draws[0].ProgramKey)
	assert.Equal(t, FramebufferBloomComposite, draws[0].Target)
	require.Len(t, draws[0].Bindings, 3)
	assert.Equal(t, -1, draws[0].Bindings[0].SampledMip)
	assert.Len(t, draws[0].Bindings[2].Uniform, 16)
}

// The composite shader declares a sampler binding; the draw must carry the
// shared linear sampler at that index or bind group creation fails on the
// real backend.
func TestBloomCompositeBindsLinearSampler(t *testing.T) {
	backend := device.NewNullDeviceBackend()
	instance := newTestInstance(t, backend)
	publishSceneColor(t, instance)

	bloom := NewBloom()
	bloom.AllocateContainerResources(instance)
	bloom.Execute(instance)

	draws := backend.Draws()
	require.Len(t, draws, 1)

	var sampler *device.Binding
	for i := range draws[0].Bindings {
		if draws[0].Bindings[i].Sampler != device.SamplerNone {
			sampler = &draws[0].Bindings[i]
		}
	}
	require.NotNil(t, sampler, "composite draw carries no sampler binding")
	assert.Equal(t, 1, sampler.Index)
	assert.Equal(t, device.SamplerLinear, sampler.Sampler)
	assert.Nil(t, sampler.Sampled)
}

func TestBloomExecuteIsIdempotent(t *testing.T) {
	backend := device.NewNullDeviceBackend()
	instance := newTestInstance(t, backend)
	publishSceneColor(t, instance)

	bloom := NewBloom()
	bloom.AllocateContainerResources(instance)
	bloom.Execute(instance)

	// Scene color plus the chain; mip 0 target plus composite target.
	require.Equal(t, 2, backend.Stats().TexturesCreated)
	require.Equal(t, 2, backend.Stats().FramebuffersCreated)

	bloom.Execute(instance)
	stats := backend.Stats()
	assert.Equal(t, 2, stats.TexturesCreated)
	assert.Equal(t, 2, stats.FramebuffersCreated)
	assert.Equal(t, 0, stats.TexturesReleased)
	assert.Equal(t, 2, stats.Blits)
	assert.Len(t, backend.Draws(), 2)
}

func TestBloomClampsChainToTargetSize(t *testing.T) {
	backend := device.NewNullDeviceBackend()
	instance := newTestInstance(t, backend)
	instance.internalWidth = 16
	instance.internalHeight = 16
	publishSceneColor(t, instance)

	bloom := NewBloom()
	bloom.AllocateContainerResources(instance)
	bloom.Execute(instance)

	// 16 texels only survive 5 mips; the sixth would be sub-texel.
	assert.Equal(t, 5, instance.reg.Texture(TextureBloomChain).MipCount())
	dispatches := backend.Dispatches()
	require.Len(t, dispatches, 4)
	assert.Equal(t, [3]uint32{1, 1, 1}, dispatches[len(dispatches)-1].Groups)
}

func TestBloomSkipsWithoutSceneColor(t *testing.T) {
	backend := device.NewNullDeviceBackend()
	instance := newTestInstance(t, backend)

	bloom := NewBloom()
	bloom.AllocateContainerResources(instance)

	assert.NotPanics(t, func() { bloom.Execute(instance) })

	stats := backend.Stats()
	assert.Equal(t, 0, stats.TexturesCreated)
	assert.Equal(t, 0, stats.FramebuffersCreated)
	assert.Empty(t, backend.Dispatches())
	assert.Empty(t, backend.Draws())
	assert.Nil(t, bloom.DescribePass(instance))
}

func TestBloomRebuildsCompositeWhenSceneColorReplaced(t *testing.T) {
	backend := device.NewNullDeviceBackend()
	instance := newTestInstance(t, backend)
	publishSceneColor(t, instance)

	bloom := NewBloom()
	bloom.AllocateContainerResources(instance)
	bloom.Execute(instance)
	createdFBOs := backend.Stats().FramebuffersCreated

	// Simulate the geometry pass regenerating SceneColor at the same size and
	// invalidating the composite target one hop.
	if stale := instance.reg.RemoveFramebuffer(FramebufferBloomComposite); stale != nil {
		stale.Release()
	}
	publishSceneColor(t, instance)

	bloom.Execute(instance)

	stats := backend.Stats()
	// Only the composite framebuffer is rebuilt; the chain survives.
	assert.Equal(t, createdFBOs+1, stats.FramebuffersCreated)
	// Only the replaced scene color was released, not the chain.
	assert.Equal(t, 1, stats.TexturesReleased)
	require.NotNil(t, instance.reg.Framebuffer(FramebufferBloomComposite))
	assert.Len(t, backend.Draws(), 2)
}

func TestBloomReleaseContainerResources(t *testing.T) {
	backend := device.NewNullDeviceBackend()
	instance := newTestInstance(t, backend)
	publishSceneColor(t, instance)

	bloom := NewBloom()
	bloom.AllocateContainerResources(instance)
	bloom.Execute(instance)
	bloom.ReleaseContainerResources(instance)

	stats := backend.Stats()
	assert.Equal(t, 2, stats.FramebuffersReleased)
	assert.Equal(t, 1, stats.TexturesReleased)
	assert.Nil(t, instance.reg.Texture(TextureBloomChain))
	assert.Nil(t, bloom.DebugTexture(instance))
}
