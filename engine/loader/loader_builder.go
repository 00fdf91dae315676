package loader

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithWorkers sets how many textures are decoded at once.
//
// Parameters:
//   - n: the worker count; values below one use one worker
//
// Returns:
//   - LoaderBuilderOption: a function that applies the worker count to a loader
func WithWorkers(n int) LoaderBuilderOption {
	return func(l *loader) {
		l.workers = n
	}
}

// WithMaxTextureDimension downscales decoded images so neither side exceeds limit.
// Zero keeps the source size.
func WithMaxTextureDimension(limit int) LoaderBuilderOption {
	return func(l *loader) {
		l.maxTextureDimension = limit
	}
}

// WithDefaultLight controls whether a level without lights gets an ambient light
// and a directional light along light.DefaultDirection. It is on by default.
func WithDefaultLight(enabled bool) LoaderBuilderOption {
	return func(l *loader) {
		l.defaultLight = enabled
	}
}
