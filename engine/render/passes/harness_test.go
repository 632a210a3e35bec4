package passes

import (
	"testing"

	"github.com/halcyon3d/halcyon-go/engine/camera"
	"github.com/halcyon3d/halcyon-go/engine/light"
	"github.com/halcyon3d/halcyon-go/engine/render/command"
	"github.com/halcyon3d/halcyon-go/engine/render/device"
	"github.com/halcyon3d/halcyon-go/engine/render/registry"
)

// testInstance is a minimal pipeline instance backed by the null device.
type testInstance struct {
	reg   registry.Registry
	dev   device.Device
	cam   camera.Camera
	frame *command.FrameState

	renderWidth, renderHeight     int
	internalWidth, internalHeight int
	stereo                        bool
}

func newTestInstance(t *testing.T, backend *device.NullDeviceBackend) *testInstance {
	t.Helper()
	instance := &testInstance{
		reg:            registry.NewRegistry(),
		dev:            device.NewDevice(device.BackendTypeNull, device.WithDeviceBackend(backend)),
		cam:            camera.NewCamera(),
		frame:          command.NewFrameState(),
		renderWidth:    1280,
		renderHeight:   720,
		internalWidth:  1280,
		internalHeight: 720,
	}
	instance.frame.BeginFrame(1)
	return instance
}

func (i *testInstance) Registry() registry.Registry { return i.reg }
func (i *testInstance) Device() device.Device       { return i.dev }
func (i *testInstance) RenderWidth() int            { return i.renderWidth }
func (i *testInstance) RenderHeight() int           { return i.renderHeight }
func (i *testInstance) InternalWidth() int          { return i.internalWidth }
func (i *testInstance) InternalHeight() int         { return i.internalHeight }
func (i *testInstance) Stereo() bool                { return i.stereo }
func (i *testInstance) ShadowPass() bool            { return false }
func (i *testInstance) Camera() camera.Camera       { return i.cam }
func (i *testInstance) FrameIndex() uint64          { return 1 }
func (i *testInstance) Frame() *command.FrameState  { return i.frame }

// staticLights is a fixed LightSource for culling tests.
type staticLights struct {
	lights []light.Light
}

func (s *staticLights) Lights() []light.Light { return s.lights }
func (s *staticLights) Ambient() [3]float32   { return [3]float32{0.1, 0.1, 0.1} }
