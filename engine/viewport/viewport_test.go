package viewport

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/halcyon3d/halcyon-go/engine/camera"
	"github.com/halcyon3d/halcyon-go/engine/config"
	"github.com/halcyon3d/halcyon-go/engine/render/command"
	"github.com/halcyon3d/halcyon-go/engine/render/device"
	"github.com/halcyon3d/halcyon-go/engine/render/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubCommand counts lifecycle calls and declares one named pass, optionally
// stalling describe to exercise the parallel describe phase.
type stubCommand struct {
	name string

	allocs, releases, executes atomic.Int32
	describeDelay              time.Duration
}

var _ command.Command = &stubCommand{}

func (s *stubCommand) Name() string { return s.name }

func (s *stubCommand) AllocateContainerResources(command.Instance) { s.allocs.Add(1) }
func (s *stubCommand) Execute(command.Instance)                    { s.executes.Add(1) }
func (s *stubCommand) ReleaseContainerResources(command.Instance)  { s.releases.Add(1) }

func (s *stubCommand) DescribePass(command.Instance) []graph.Pass {
	if s.describeDelay > 0 {
		time.Sleep(s.describeDelay)
	}
	return []graph.Pass{{Name: s.name}}
}

func newTestDevice() device.Device {
	return device.NewDevice(device.BackendTypeNull, device.WithDeviceBackend(device.NewNullDeviceBackend()))
}

func TestNewViewportRequiresDevice(t *testing.T) {
	assert.Panics(t, func() {
		NewViewport("main", nil)
	})
}

func TestSurfaceLifecycleDrivesChainResources(t *testing.T) {
	stub := &stubCommand{name: "Stub"}
	v := NewViewport("main", newTestDevice(), WithChain(stub))

	assert.Equal(t, int32(0), stub.allocs.Load())

	v.SurfaceCreated(1280, 720)
	assert.Equal(t, int32(1), stub.allocs.Load())
	assert.Equal(t, 1280, v.RenderWidth())
	assert.Equal(t, 720, v.RenderHeight())

	v.SurfaceReleased()
	assert.Equal(t, int32(1), stub.releases.Load())

	// A second release without a surface is a no-op.
	v.SurfaceReleased()
	assert.Equal(t, int32(1), stub.releases.Load())
}

func TestSetChainSwapsResourcesWhileLive(t *testing.T) {
	first := &stubCommand{name: "First"}
	second := &stubCommand{name: "Second"}
	v := NewViewport("main", newTestDevice(), WithChain(first))

	// No surface yet: swapping chains moves no resources.
	v.SetChain(second)
	assert.Equal(t, int32(0), first.releases.Load())
	assert.Equal(t, int32(0), second.allocs.Load())

	v.SurfaceCreated(1280, 720)
	require.Equal(t, int32(1), second.allocs.Load())

	v.SetChain(first)
	assert.Equal(t, int32(1), second.releases.Load())
	assert.Equal(t, int32(1), first.allocs.Load())
}

func TestRenderFrameRequiresLiveSurface(t *testing.T) {
	stub := &stubCommand{name: "Stub"}
	v := NewViewport("main", newTestDevice(), WithChain(stub))

	v.RenderFrame()
	assert.Equal(t, int32(0), stub.executes.Load())
	assert.Equal(t, uint64(0), v.FrameIndex())

	v.SurfaceCreated(1280, 720)
	v.RenderFrame()
	v.RenderFrame()
	assert.Equal(t, int32(2), stub.executes.Load())
	assert.Equal(t, uint64(2), v.FrameIndex())
}

func TestRenderFrameResetsFrameSlots(t *testing.T) {
	v := NewViewport("main", newTestDevice(), WithChain(&stubCommand{name: "Stub"}))
	v.SurfaceCreated(1280, 720)

	v.RenderFrame()
	v.Frame().Publish("scratch", 1)

	// The next frame frees the slot again.
	v.RenderFrame()
	_, ok := v.Frame().Value("scratch")
	assert.False(t, ok)
	assert.NotPanics(t, func() { v.Frame().Publish("scratch", 2) })
}

func TestInternalDimensionsFollowRenderScale(t *testing.T) {
	v := NewViewport("main", newTestDevice(), WithRenderScale(0.5))
	v.SurfaceCreated(1280, 720)

	assert.Equal(t, 640, v.InternalWidth())
	assert.Equal(t, 360, v.InternalHeight())

	// Out-of-range scales are ignored.
	v.SetRenderScale(3)
	assert.Equal(t, 640, v.InternalWidth())

	v.SetRenderScale(1)
	assert.Equal(t, 1280, v.InternalWidth())
}

func TestScaledKeepsLiveSurfaceAtOneTexel(t *testing.T) {
	assert.Equal(t, 1, scaled(3, 0.1))
	assert.Equal(t, 0, scaled(0, 0.5))
	assert.Equal(t, 960, scaled(1280, 0.75))
}

func TestDescribeFramePreservesChainOrder(t *testing.T) {
	// Later children finish first; gathering must stay positional.
	chain := command.NewList("Frame",
		&stubCommand{name: "A", describeDelay: 30 * time.Millisecond},
		&stubCommand{name: "B", describeDelay: 15 * time.Millisecond},
		&stubCommand{name: "C"},
	)
	v := NewViewport("main", newTestDevice(), WithChain(chain), WithDescribeWorkers(3))
	v.SurfaceCreated(1280, 720)

	for i := 0; i < 3; i++ {
		passes := v.DescribeFrame()
		require.Len(t, passes, 3)
		assert.Equal(t, "A", passes[0].Name)
		assert.Equal(t, "B", passes[1].Name)
		assert.Equal(t, "C", passes[2].Name)
	}
}

func TestDescribeFrameNonListChain(t *testing.T) {
	v := NewViewport("main", newTestDevice(), WithChain(&stubCommand{name: "Solo"}))
	v.SurfaceCreated(1280, 720)

	passes := v.DescribeFrame()
	require.Len(t, passes, 1)
	assert.Equal(t, "Solo", passes[0].Name)
}

func TestDestroyReleasesEverything(t *testing.T) {
	stub := &stubCommand{name: "Stub"}
	v := NewViewport("main", newTestDevice(), WithChain(stub), WithCamera(camera.NewCamera()))
	v.SurfaceCreated(1280, 720)

	v.Destroy()
	assert.Equal(t, int32(1), stub.releases.Load())
	assert.Nil(t, v.Chain())
	assert.Nil(t, v.Camera())
}

func TestDefaultChainAssembly(t *testing.T) {
	settings := config.Default()
	chain, coordinator := DefaultChain(settings)
	require.NotNil(t, chain)
	require.NotNil(t, coordinator)

	// Every pass is reachable through the chain root by name, including those
	// nested in conditional containers.
	for _, name := range []string{"LightCull", "Geometry", "SSAO", "Bloom", "Upscale"} {
		assert.NotNil(t, command.Find(chain, name), name)
	}
}

func TestDefaultChainRequiresSettings(t *testing.T) {
	assert.Panics(t, func() {
		DefaultChain(nil)
	})
}

func TestDefaultChainRunsHeadless(t *testing.T) {
	settings := config.Default()
	settings.RenderScale = 0.5

	backend := device.NewNullDeviceBackend()
	dev := device.NewDevice(device.BackendTypeNull, device.WithDeviceBackend(backend))

	chain, coordinator := DefaultChain(settings)
	v := NewViewport("main", dev,
		WithCamera(camera.NewCamera()),
		WithChain(chain),
		WithRenderScale(settings.RenderScale),
	)

	v.SurfaceCreated(1280, 720)
	v.RenderFrame()
	v.RenderFrame()

	// Geometry targets, bloom chain, SSAO outputs, temporal history, and the
	// final target all came up without a real GPU.
	assert.Greater(t, backend.Stats().TexturesCreated, 8)
	assert.True(t, coordinator.HistoryReady(v.Camera()))

	v.RenderFrame()
	created := backend.Stats().TexturesCreated

	// Steady state: nothing regenerates.
	v.RenderFrame()
	assert.Equal(t, created, backend.Stats().TexturesCreated)

	v.Destroy()
}
