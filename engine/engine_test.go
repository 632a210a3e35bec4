package engine

import (
	"sync"
	"testing"

	"github.com/halcyon3d/halcyon-go/engine/render/device"
	"github.com/halcyon3d/halcyon-go/engine/viewport"
	"github.com/stretchr/testify/assert"
)

func newTestViewport(name string) viewport.Viewport {
	dev := device.NewDevice(device.BackendTypeNull,
		device.WithDeviceBackend(device.NewNullDeviceBackend()))
	return viewport.NewViewport(name, dev, viewport.WithDescribeWorkers(1))
}

func TestViewportRegistration(t *testing.T) {
	e := NewEngine()
	v := newTestViewport("main")

	e.AddViewport(0, v)
	assert.Equal(t, v, e.Viewport(0))
	assert.Len(t, e.Viewports(), 1)

	e.RemoveViewport(0)
	assert.Nil(t, e.Viewport(0))
	assert.Empty(t, e.Viewports())
}

func TestViewportsReturnsCopy(t *testing.T) {
	e := NewEngine()
	e.AddViewport(0, newTestViewport("main"))

	cp := e.Viewports()
	delete(cp, 0)
	assert.NotNil(t, e.Viewport(0))
}

// Viewports may be added and removed while the render goroutine walks the
// map, so registration and lookup must be safe under concurrent use.
func TestConcurrentViewportRegistration(t *testing.T) {
	e := NewEngine()

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(key int) {
			defer wg.Done()
			v := newTestViewport("worker")
			for i := 0; i < 200; i++ {
				e.AddViewport(key, v)
				_ = e.Viewport(key)
				for range e.Viewports() {
				}
				e.RemoveViewport(key)
			}
		}(g)
	}
	wg.Wait()

	assert.Empty(t, e.Viewports())
}
