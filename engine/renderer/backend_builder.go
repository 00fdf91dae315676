package renderer

// BackendBuilderOption is a functional option applied to a backend during construction via NewBackend.
type BackendBuilderOption func(*backend)

// WithPresentMode sets the surface present mode which controls how frames are delivered to the display.
//
// Parameters:
//   - mode: the PresentMode to use (VSync or Uncapped)
//
// Returns:
//   - BackendBuilderOption: a function that applies the present mode option to a backend
func WithPresentMode(mode PresentMode) BackendBuilderOption {
	return func(b *backend) {
		b.presentMode = mode
	}
}

// WithClearColor sets the colour the backbuffer is cleared to at the start of every frame.
//
// Parameters:
//   - rgba: linear red, green, blue and alpha
//
// Returns:
//   - BackendBuilderOption: a function that applies the clear colour option to a backend
func WithClearColor(rgba [4]float64) BackendBuilderOption {
	return func(b *backend) {
		b.clearColor = rgba
	}
}

// WithDebugMarkers logs a begin/end line around every pass.
func WithDebugMarkers(enabled bool) BackendBuilderOption {
	return func(b *backend) {
		b.debugMarkers = enabled
	}
}
