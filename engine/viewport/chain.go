package viewport

import (
	"github.com/halcyon3d/halcyon-go/engine/config"
	"github.com/halcyon3d/halcyon-go/engine/render/command"
	"github.com/halcyon3d/halcyon-go/engine/render/passes"
	"github.com/halcyon3d/halcyon-go/engine/render/temporal"
)

// ChainOption configures DefaultChain assembly.
type ChainOption func(c *chainConfig)

type chainConfig struct {
	lights passes.LightSource
	drawer passes.SceneDrawer
}

// WithLights attaches the scene's light provider to the culling pass.
//
// Parameters:
//   - lights: the light source
//
// Returns:
//   - ChainOption: option function to apply
func WithLights(lights passes.LightSource) ChainOption {
	return func(c *chainConfig) {
		c.lights = lights
	}
}

// WithSceneDrawer attaches the external scene renderer to the geometry pass.
//
// Parameters:
//   - drawer: the scene drawer
//
// Returns:
//   - ChainOption: option function to apply
func WithSceneDrawer(drawer passes.SceneDrawer) ChainOption {
	return func(c *chainConfig) {
		c.drawer = drawer
	}
}

// DefaultChain assembles the standard render chain from settings: temporal
// begin, light culling, geometry, conditional SSAO and bloom, temporal
// accumulate, upscale, debug view selection, temporal commit. The settings
// pointer is captured live, so toggling a flag between frames takes effect on
// the next frame without rebuilding the chain.
//
// Parameters:
//   - settings: the pipeline settings (must not be nil)
//   - options: variadic ChainOption functions
//
// Returns:
//   - *command.List: the chain root
//   - temporal.Coordinator: the chain's temporal coordinator
func DefaultChain(settings *config.Settings, options ...ChainOption) (*command.List, temporal.Coordinator) {
	if settings == nil {
		panic("viewport: DefaultChain requires non-nil settings")
	}

	cfg := &chainConfig{}
	for _, option := range options {
		option(cfg)
	}

	coordinator := temporal.NewCoordinator(
		temporal.WithAntiAliasing(func() bool {
			return settings.AntiAliasing == config.AAModeTAA
		}),
		temporal.WithSceneColorName(passes.TextureSceneColor),
	)

	var geometryOptions []passes.GeometryOption
	if cfg.drawer != nil {
		geometryOptions = append(geometryOptions, passes.WithSceneDrawer(cfg.drawer))
	}
	geometry := passes.NewGeometry(geometryOptions...)

	var bloomOptions []passes.BloomOption
	if settings.Bloom.Mips > 0 {
		bloomOptions = append(bloomOptions, passes.WithBloomMips(settings.Bloom.Mips))
	}
	if settings.Bloom.Intensity > 0 {
		bloomOptions = append(bloomOptions, passes.WithBloomIntensity(float32(settings.Bloom.Intensity)))
	}
	bloom := passes.NewBloom(bloomOptions...)

	var ssaoOptions []passes.SSAOOption
	if settings.SSAO.Radius > 0 {
		ssaoOptions = append(ssaoOptions, passes.WithSSAORadius(float32(settings.SSAO.Radius)))
	}
	ssao := passes.NewSSAO(ssaoOptions...)

	upscale := passes.NewUpscale(
		passes.WithForceBlit(settings.Upscale == config.UpscaleModeBlit),
	)

	// The debug view resolves its source through the chain root, which does
	// not exist yet while its cases are being built.
	var root *command.List
	rootRef := func() command.Command { return root }

	debugCases := make(map[string]command.Command)
	for _, name := range []string{geometry.Name(), bloom.Name(), ssao.Name()} {
		debugCases[name] = passes.NewDebugView(rootRef, name)
	}

	root = command.NewList("Frame",
		coordinator.BeginCommand(),
		passes.NewLightCull(cfg.lights),
		geometry,
		command.NewIf("SSAOEnabled", func(command.Instance) bool {
			return settings.SSAO.Enabled
		}, ssao, nil),
		command.NewIf("BloomEnabled", func(command.Instance) bool {
			return settings.Bloom.Enabled
		}, bloom, nil),
		coordinator.AccumulateCommand(),
		upscale,
		command.NewSwitch("DebugOutput", func(command.Instance) string {
			return settings.DebugView
		}, debugCases, nil),
		coordinator.CommitCommand(),
	)

	return root, coordinator
}
