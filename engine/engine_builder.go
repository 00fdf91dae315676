package engine

import (
	"github.com/theswiftfox/sparkle/engine/camera"
	"github.com/theswiftfox/sparkle/engine/loader"
	"github.com/theswiftfox/sparkle/engine/passes"
	"github.com/theswiftfox/sparkle/engine/profiler"
	"github.com/theswiftfox/sparkle/engine/renderer"
	"github.com/theswiftfox/sparkle/engine/window"
)

// EngineBuilderOption is a functional option for configuring the engine.
type EngineBuilderOption func(*engine)

// WithWindow sets the window the engine polls and takes input from.
//
// Parameters:
//   - w: the open window
//
// Returns:
//   - EngineBuilderOption: a function that applies the window option
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithBackend sets the initialized backend frames are rendered with.
func WithBackend(b renderer.Backend) EngineBuilderOption {
	return func(e *engine) {
		e.backend = b
	}
}

// WithPipeline sets the frame pipeline. It must have been created on the same backend.
func WithPipeline(p passes.Pipeline) EngineBuilderOption {
	return func(e *engine) {
		e.pipeline = p
	}
}

// WithCamera sets the camera. A default orbit camera is created otherwise.
func WithCamera(c camera.Camera) EngineBuilderOption {
	return func(e *engine) {
		e.camera = c
	}
}

// WithLoader sets the level loader used by LoadLevel.
func WithLoader(l loader.Loader) EngineBuilderOption {
	return func(e *engine) {
		e.loader = l
	}
}

// WithSSAOSource sets where the per-frame ambient-occlusion switch is read from.
// Without one ambient occlusion is always on.
func WithSSAOSource(src SSAOSource) EngineBuilderOption {
	return func(e *engine) {
		e.ssao = src
	}
}

// WithProfiling enables the profiler and applies its options.
//
// Parameters:
//   - enabled: whether statistics are reported
//   - opts: options for the profiler
//
// Returns:
//   - EngineBuilderOption: a function that applies the profiling option
func WithProfiling(enabled bool, opts ...profiler.ProfilerBuilderOption) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
		e.profiler = profiler.NewProfiler(opts...)
	}
}

// WithInputSteps sets how far one key press pans and zooms the camera.
// Orbit steps come from the camera controller.
func WithInputSteps(pan, zoom float32) EngineBuilderOption {
	return func(e *engine) {
		e.panStep, e.zoomStep = pan, zoom
	}
}
