package device

// DeviceBuilderOption is a functional option for configuring a Device.
// Use the With* functions to create options.
type DeviceBuilderOption func(d *deviceImpl)

// WithSurface supplies the platform surface descriptor and initial size for
// the WGPU backend. Typically obtained from window.Window.SurfaceDescriptor().
//
// Parameters:
//   - surfaceDescriptor: the platform-specific surface descriptor
//   - width: initial surface width in pixels
//   - height: initial surface height in pixels
//
// Returns:
//   - DeviceBuilderOption: option function to apply
func WithSurface(surfaceDescriptor any, width, height int) DeviceBuilderOption {
	return func(d *deviceImpl) {
		d.surfaceDescriptor = surfaceDescriptor
		d.surfaceWidth = width
		d.surfaceHeight = height
	}
}

// WithDeviceBackend injects a prebuilt backend, bypassing backend construction
// from the backend type. Used by tests to share a NullDeviceBackend between
// the device under test and the assertions on its recorded operations.
//
// Parameters:
//   - backend: the backend to use
//
// Returns:
//   - DeviceBuilderOption: option function to apply
func WithDeviceBackend(backend DeviceBackend) DeviceBuilderOption {
	return func(d *deviceImpl) {
		d.pendingBackend = backend
	}
}
