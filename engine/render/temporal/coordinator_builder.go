package temporal

// CoordinatorOption is a functional option for configuring a Coordinator.
// Use the With* functions to create options.
type CoordinatorOption func(c *coordinatorImpl)

// WithAntiAliasing supplies the predicate deciding whether the accumulate
// phase renders the TAA resolve. History capture happens regardless; only the
// resolve itself is gated. Defaults to always on.
//
// Parameters:
//   - enabled: evaluated each frame
//
// Returns:
//   - CoordinatorOption: option function to apply
func WithAntiAliasing(enabled func() bool) CoordinatorOption {
	return func(c *coordinatorImpl) {
		if enabled != nil {
			c.aaEnabled = enabled
		}
	}
}

// WithSceneColorName overrides the registry name the accumulate phase reads
// scene color from. Defaults to "SceneColor".
//
// Parameters:
//   - name: the registry texture name
//
// Returns:
//   - CoordinatorOption: option function to apply
func WithSceneColorName(name string) CoordinatorOption {
	return func(c *coordinatorImpl) {
		if name != "" {
			c.sceneColorName = name
		}
	}
}
