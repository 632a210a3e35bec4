package engine

import (
	"log"
	"sort"
	"sync"
	"time"

	"github.com/halcyon3d/halcyon-go/engine/profiler"
	"github.com/halcyon3d/halcyon-go/engine/viewport"
	"github.com/halcyon3d/halcyon-go/engine/window"
)

// engine implements the Engine interface.
// Coordinates the tick, render, and window threads.
type engine struct {
	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	window window.Window

	profiler         *profiler.Profiler
	profilingEnabled bool

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	renderCallback func(deltaTime float32)

	// viewportsMu guards viewports: the render goroutine iterates the map
	// while Add/RemoveViewport may run on the caller's goroutine.
	viewportsMu sync.RWMutex
	viewports   map[int]viewport.Viewport

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
}

// Engine is the main entry point. It orchestrates the tick loop, the render
// loop driving each viewport's command chain, and window management.
type Engine interface {
	// Window returns the underlying window.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in frames per second.
	// The tick callback will be called at this rate for game logic updates.
	//
	// Parameters:
	//   - fps: target frames per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each engine tick.
	// Use this for game logic, physics, input processing, and camera updates.
	//
	// Parameters:
	//   - callback: function to call at the configured tick rate, receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function called after each render frame.
	//
	// Parameters:
	//   - callback: function to call each render frame, receiving the delta time in seconds
	SetRenderCallback(callback func(deltaTime float32))

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// AddViewport registers a viewport at the given z-index key.
	// Viewports render in ascending key order during the render loop. When the
	// window surface is already live the viewport's surface is created
	// immediately.
	//
	// Parameters:
	//   - key: the z-index determining render order (lower renders first)
	//   - v: the Viewport to register
	AddViewport(key int, v viewport.Viewport)

	// RemoveViewport removes and releases the viewport at the given key.
	//
	// Parameters:
	//   - key: the z-index of the viewport to remove
	RemoveViewport(key int)

	// Viewport retrieves the viewport registered at the given key.
	//
	// Parameters:
	//   - key: the z-index of the viewport to retrieve
	//
	// Returns:
	//   - viewport.Viewport: the viewport at the key, or nil if not found
	Viewport(key int) viewport.Viewport

	// Viewports returns a copy of all registered viewports keyed by z-index.
	//
	// Returns:
	//   - map[int]viewport.Viewport: a copy of the viewports map
	Viewports() map[int]viewport.Viewport

	// Run starts the main engine loop (blocks until window closes).
	Run()

	// Quit signals all engine goroutines to stop and shuts down the engine.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

// NewEngine creates a new Engine instance with the provided options.
// Window surface events are wired to every registered viewport: a resize
// propagates new dimensions and camera aspect, a close releases each
// viewport's GPU resources before the platform window is destroyed.
//
// Parameters:
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		tickRateChannel:  make(chan time.Duration, 1),
		quitChannel:      make(chan struct{}),
		viewports:        make(map[int]viewport.Viewport),
		running:          false,
		wg:               sync.WaitGroup{},
		profiler:         profiler.NewProfiler(),
		profilingEnabled: false,
		engineTickRate:   time.Second / 60,
	}

	for _, opt := range options {
		opt(e)
	}

	if e.window != nil {
		e.window.SetSurfaceResizedCallback(func(width, height int) {
			for _, v := range e.Viewports() {
				v.SurfaceResized(width, height)
				if c := v.Camera(); c != nil && height > 0 {
					c.SetAspect(float32(width) / float32(height))
				}
			}
		})
		e.window.SetSurfaceClosedCallback(func() {
			for _, v := range e.Viewports() {
				v.SurfaceReleased()
			}
		})
	}

	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Run() {
	if e.window != nil {
		width, height := e.window.Width(), e.window.Height()
		for _, v := range e.Viewports() {
			v.SurfaceCreated(width, height)
		}
	}
	e.running = true

	e.handle()
	e.window.ProcessMessages()
}

// Quit signals all engine goroutines to stop and shuts down the engine.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
// Uses sync.Once to ensure the channel is only closed once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		e.running = false
		close(e.quitChannel)
	})
}

// handle launches the engine, render, and quit goroutines.
// Each goroutine is tracked by the engine's WaitGroup.
func (e *engine) handle() {
	e.wg.Add(3)
	go e.handleEngine()
	go e.handleRender()
	go e.handleQuit()
}

// handleEngine runs the fixed-rate engine tick loop in its own goroutine.
// Fires the tick callback at the configured tick rate and listens for dynamic
// rate changes via tickRateChannel. Exits when the quit channel is closed.
func (e *engine) handleEngine() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			if e.tickCallback != nil {
				e.tickCallback(dt)
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.engineTickRate = newRate
		}
	}
}

// handleRender runs the uncapped (or frame-limited) render loop in its own
// goroutine. Each iteration updates cameras, runs every viewport's describe
// phase, and executes the command chains in ascending z-index order.
// Recovers from panics to avoid crashing the process and signals quit on
// recovery.
func (e *engine) handleRender() {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("render goroutine recovered from panic: %v", r)
			e.signalQuit()
		}
	}()

	lastRender := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		default:
			now := time.Now()
			dt := float32(now.Sub(lastRender).Seconds())
			lastRender = now

			// Snapshot under the lock; rendering itself runs unlocked so a
			// long frame never blocks AddViewport callers.
			ordered := e.Viewports()
			keys := make([]int, 0, len(ordered))
			for k := range ordered {
				keys = append(keys, k)
			}
			sort.Ints(keys)

			for _, k := range keys {
				v := ordered[k]
				if c := v.Camera(); c != nil {
					c.Update()
				}
				if e.profilingEnabled {
					e.profiler.AddPasses(len(v.DescribeFrame()))
				}
				v.RenderFrame()
			}

			if e.renderCallback != nil {
				e.renderCallback(dt)
			}

			if e.profilingEnabled && e.profiler != nil {
				e.profiler.Tick()
			}

			// Frame rate limiting
			if e.renderFrameLimit > 0 {
				elapsed := time.Since(lastRender)
				if remaining := e.renderFrameLimit - elapsed; remaining > 0 {
					time.Sleep(remaining)
				}
			}
		}
	}
}

// handleQuit blocks until the quit channel is closed, then decrements the WaitGroup.
func (e *engine) handleQuit() {
	defer e.wg.Done()
	<-e.quitChannel
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

// SetTickRate sets the engine tick rate in frames per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Second / time.Duration(fps)

	if e.running {
		// Non-blocking send - if channel is full, replace the pending value
		select {
		case e.tickRateChannel <- newRate:
		default:
			select {
			case <-e.tickRateChannel:
			default:
			}
			e.tickRateChannel <- newRate
		}
	} else {
		e.engineTickRate = newRate
	}
}

// SetTickCallback registers the function called each engine tick.
func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

// SetRenderCallback registers the function called each render frame.
func (e *engine) SetRenderCallback(callback func(deltaTime float32)) {
	e.renderCallback = callback
}

// SetRenderFrameLimit sets an optional render frame rate cap.
// Pass 0 to uncap the render loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = time.Second / time.Duration(fps)
}

func (e *engine) AddViewport(key int, v viewport.Viewport) {
	e.viewportsMu.Lock()
	e.viewports[key] = v
	e.viewportsMu.Unlock()

	if e.running && e.window != nil {
		v.SurfaceCreated(e.window.Width(), e.window.Height())
	}
}

func (e *engine) RemoveViewport(key int) {
	e.viewportsMu.Lock()
	v, ok := e.viewports[key]
	delete(e.viewports, key)
	e.viewportsMu.Unlock()

	if ok {
		v.SurfaceReleased()
	}
}

func (e *engine) Viewport(key int) viewport.Viewport {
	e.viewportsMu.RLock()
	defer e.viewportsMu.RUnlock()
	return e.viewports[key]
}

func (e *engine) Viewports() map[int]viewport.Viewport {
	e.viewportsMu.RLock()
	defer e.viewportsMu.RUnlock()
	cp := make(map[int]viewport.Viewport, len(e.viewports))
	for k, v := range e.viewports {
		cp[k] = v
	}
	return cp
}
