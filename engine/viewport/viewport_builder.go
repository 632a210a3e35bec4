package viewport

import (
	"github.com/halcyon3d/halcyon-go/engine/camera"
	"github.com/halcyon3d/halcyon-go/engine/render/command"
)

// ViewportBuilderOption is a functional option for configuring a viewport on
// creation.
type ViewportBuilderOption func(v *viewportImpl)

// WithCamera sets the initial camera.
//
// Parameters:
//   - cam: the camera to attach
//
// Returns:
//   - ViewportBuilderOption: option function to apply
func WithCamera(cam camera.Camera) ViewportBuilderOption {
	return func(v *viewportImpl) {
		v.cam = cam
	}
}

// WithChain sets the initial command chain.
//
// Parameters:
//   - root: the chain root
//
// Returns:
//   - ViewportBuilderOption: option function to apply
func WithChain(root command.Command) ViewportBuilderOption {
	return func(v *viewportImpl) {
		v.chain = root
	}
}

// WithRenderScale sets the initial internal resolution scale. Values outside
// (0, 2] are ignored.
//
// Parameters:
//   - scale: the scale to apply
//
// Returns:
//   - ViewportBuilderOption: option function to apply
func WithRenderScale(scale float64) ViewportBuilderOption {
	return func(v *viewportImpl) {
		if scale > 0 && scale <= 2 {
			v.renderScale = scale
		}
	}
}

// WithStereo enables stereo rendering from the start.
//
// Parameters:
//   - stereo: true for 2-layer array targets
//
// Returns:
//   - ViewportBuilderOption: option function to apply
func WithStereo(stereo bool) ViewportBuilderOption {
	return func(v *viewportImpl) {
		v.stereo = stereo
	}
}

// WithDescribeWorkers overrides the describe pool's worker count. Values
// below 1 are ignored.
//
// Parameters:
//   - workers: the worker count
//
// Returns:
//   - ViewportBuilderOption: option function to apply
func WithDescribeWorkers(workers int) ViewportBuilderOption {
	return func(v *viewportImpl) {
		if workers >= 1 {
			v.describeWorkers = workers
		}
	}
}
