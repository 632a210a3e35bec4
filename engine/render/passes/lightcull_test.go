package passes

import (
	"testing"

	"github.com/halcyon3d/halcyon-go/engine/light"
	"github.com/halcyon3d/halcyon-go/engine/render/device"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func directionalLight() light.Light {
	return light.NewLight(light.LightTypeDirectional,
		light.WithDirection(0, -1, 0),
		light.WithIntensity(2),
	)
}

func TestLightCullDispatchesOneWorkgroupPerTile(t *testing.T) {
	cases := []struct {
		width, height    int
		groupsX, groupsY uint32
	}{
		{1000, 720, 63, 45},
		{1024, 720, 64, 45},
		{16, 16, 1, 1},
		{17, 16, 2, 1},
	}
	for _, tc := range cases {
		backend := device.NewNullDeviceBackend()
		instance := newTestInstance(t, backend)
		instance.internalWidth = tc.width
		instance.internalHeight = tc.height

		cull := NewLightCull(&staticLights{lights: []light.Light{directionalLight()}})
		cull.AllocateContainerResources(instance)
		cull.Execute(instance)

		dispatches := backend.Dispatches()
		require.Len(t, dispatches, 1, "width %d", tc.width)
		assert.Equal(t, [3]uint32{tc.groupsX, tc.groupsY, 1}, dispatches[0].Groups)
		assert.Equal(t, device.BarrierShaderStorage, dispatches[0].Barrier)
	}
}

func TestLightCullAllocatesBuffersOnce(t *testing.T) {
	backend := device.NewNullDeviceBackend()
	instance := newTestInstance(t, backend)
	cull := NewLightCull(&staticLights{lights: []light.Light{directionalLight()}})

	cull.AllocateContainerResources(instance)
	cull.Execute(instance)

	stats := backend.Stats()
	// Light buffer, tile counts, tile indices.
	assert.Equal(t, 3, stats.BuffersCreated)
	assert.Equal(t, 1, stats.BufferWrites)

	instance.frame.BeginFrame(2)
	cull.Execute(instance)
	stats = backend.Stats()
	assert.Equal(t, 3, stats.BuffersCreated)
	assert.Equal(t, 2, stats.BufferWrites)
}

func TestLightCullRegeneratesOnResize(t *testing.T) {
	backend := device.NewNullDeviceBackend()
	instance := newTestInstance(t, backend)
	cull := NewLightCull(&staticLights{lights: []light.Light{directionalLight()}})

	cull.AllocateContainerResources(instance)
	cull.Execute(instance)

	instance.internalWidth = 640
	instance.internalHeight = 360
	instance.frame.BeginFrame(2)
	cull.Execute(instance)

	stats := backend.Stats()
	assert.Equal(t, 6, stats.BuffersCreated)
	assert.Equal(t, 3, stats.BuffersReleased)

	dispatches := backend.Dispatches()
	require.Len(t, dispatches, 2)
	assert.Equal(t, [3]uint32{40, 23, 1}, dispatches[1].Groups)
}

func TestLightCullPublishesVisibleLights(t *testing.T) {
	backend := device.NewNullDeviceBackend()
	instance := newTestInstance(t, backend)

	lights := []light.Light{
		directionalLight(),
		light.NewLight(light.LightTypePoint,
			light.WithPosition(0, 0, -5),
			light.WithRange(10),
		),
	}
	cull := NewLightCull(&staticLights{lights: lights})

	cull.AllocateContainerResources(instance)
	cull.Execute(instance)

	value, ok := instance.frame.Value(SlotVisibleLights)
	require.True(t, ok)
	out, ok := value.(*LightCullOutput)
	require.True(t, ok)
	assert.Equal(t, 2, out.VisibleCount)
	assert.NotNil(t, out.LightBuffer)

	bindings := out.Bindings()
	require.Len(t, bindings, 3)
	assert.Equal(t, 4, bindings[0].Index)
	assert.Equal(t, 6, bindings[2].Index)
}

func TestLightCullSkipsWithoutCamera(t *testing.T) {
	backend := device.NewNullDeviceBackend()
	instance := newTestInstance(t, backend)
	instance.cam = nil
	cull := NewLightCull(&staticLights{lights: []light.Light{directionalLight()}})

	cull.AllocateContainerResources(instance)
	cull.Execute(instance)

	assert.Equal(t, 0, backend.Stats().BuffersCreated)
	assert.Empty(t, backend.Dispatches())
	_, ok := instance.frame.Value(SlotVisibleLights)
	assert.False(t, ok)
}

func TestLightCullReleaseContainerResources(t *testing.T) {
	backend := device.NewNullDeviceBackend()
	instance := newTestInstance(t, backend)
	cull := NewLightCull(&staticLights{lights: []light.Light{directionalLight()}})

	cull.AllocateContainerResources(instance)
	cull.Execute(instance)
	cull.ReleaseContainerResources(instance)

	assert.Equal(t, 3, backend.Stats().BuffersReleased)
}
