package material

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/theswiftfox/sparkle/engine/renderer"
)

// MaterialBuilderOption configures a material in NewMaterial.
type MaterialBuilderOption func(*material)

// WithName labels the material and its parameter buffer.
func WithName(name string) MaterialBuilderOption {
	return func(m *material) {
		m.name = name
	}
}

// WithBaseColor sets the linear RGBA factor the albedo texture is multiplied by.
// Alpha below one only has a visible effect on transparent drawables.
func WithBaseColor(color [4]float32) MaterialBuilderOption {
	return func(m *material) {
		m.baseColor = color
	}
}

// WithMetallic sets the metallic factor, clamped to [0, 1]. It scales the blue
// channel of the metallic-roughness texture.
func WithMetallic(metallic float32) MaterialBuilderOption {
	return func(m *material) {
		m.metallic = mgl32.Clamp(metallic, 0, 1)
	}
}

// WithRoughness sets the roughness factor, clamped to [0, 1]. It scales the
// green channel of the metallic-roughness texture.
func WithRoughness(roughness float32) MaterialBuilderOption {
	return func(m *material) {
		m.roughness = mgl32.Clamp(roughness, 0, 1)
	}
}

// WithTexture places a texture in a slot, replacing and releasing any texture
// an earlier option put there. A nil texture leaves the slot on its fallback.
//
// The material takes over one reference: callers that keep using tex, such as
// the level loader's texture cache, pass tex.Retain().
//
// Parameters:
//   - slot: the texture slot
//   - tex: the texture, or nil
//
// Returns:
//   - MaterialBuilderOption: a function that applies the texture option to a material
func WithTexture(slot Slot, tex *renderer.Texture2D) MaterialBuilderOption {
	return func(m *material) {
		if tex == nil {
			return
		}
		if prev := m.textures[slot]; prev != nil {
			prev.Release()
		}
		m.textures[slot] = tex
	}
}
