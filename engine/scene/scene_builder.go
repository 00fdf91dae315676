package scene

import (
	"github.com/theswiftfox/sparkle/engine/light"
	"github.com/theswiftfox/sparkle/engine/renderer/material"
)

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithName sets the scene's identifier, usually the level it was loaded from.
//
// Parameters:
//   - name: the scene name
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithName(name string) SceneBuilderOption {
	return func(s *scene) {
		s.name = name
	}
}

// WithLights adds initial lights in order. The first light is expected to be the ambient light.
//
// Parameters:
//   - lights: the lights to add
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithLights(lights ...light.Light) SceneBuilderOption {
	return func(s *scene) {
		s.lights = append(s.lights, lights...)
	}
}

// WithFallbacks sets the textures bound to empty material slots. The scene takes ownership.
//
// Parameters:
//   - f: the fallback textures
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithFallbacks(f *material.Fallbacks) SceneBuilderOption {
	return func(s *scene) {
		s.fallbacks = f
	}
}
