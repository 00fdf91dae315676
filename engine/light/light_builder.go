package light

import "github.com/go-gl/mathgl/mgl32"

// LightBuilderOption configures a light in NewLight. Options given values that
// cannot describe a light (a negative intensity, an empty frustum) leave the
// class default in place.
type LightBuilderOption func(*lightImpl)

// WithPosition places an area light in world space. Directional and ambient
// lights ignore the position; a directional shadow frustum follows the camera.
func WithPosition(x, y, z float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.position = mgl32.Vec3{x, y, z}
	}
}

// WithDirection sets the direction the light travels in. A zero vector falls
// back to DefaultDirection.
//
// Parameters:
//   - x: the x direction component
//   - y: the y direction component
//   - z: the z direction component
//
// Returns:
//   - LightBuilderOption: a function that stores the normalised direction
func WithDirection(x, y, z float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.direction = normalize(mgl32.Vec3{x, y, z})
	}
}

// WithColor sets the linear RGB colour.
func WithColor(r, g, b float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.color = mgl32.Vec3{r, g, b}
	}
}

// WithIntensity scales the colour. Zero switches the light off without removing it.
func WithIntensity(intensity float32) LightBuilderOption {
	return func(l *lightImpl) {
		if intensity >= 0 {
			l.intensity = intensity
		}
	}
}

// WithRadius sets the distance at which an area light's contribution reaches zero.
func WithRadius(radius float32) LightBuilderOption {
	return func(l *lightImpl) {
		if radius > 0 {
			l.radius = radius
		}
	}
}

// WithCastsShadows toggles the shadow pass for the light. Ambient lights never
// get one regardless.
func WithCastsShadows(castsShadows bool) LightBuilderOption {
	return func(l *lightImpl) {
		l.castsShadows = castsShadows
	}
}

// WithShadowFrustum sets the box a directional light renders its shadow map
// from, centred on the viewer.
//
// Parameters:
//   - halfExtent: half the side of the box in world units
//   - near: near plane distance along the light direction
//   - far: far plane distance, greater than near
//
// Returns:
//   - LightBuilderOption: a function that applies the frustum, or nothing if it is empty
func WithShadowFrustum(halfExtent, near, far float32) LightBuilderOption {
	return func(l *lightImpl) {
		if halfExtent <= 0 || near < 0 || far <= near {
			return
		}
		l.shadowHalfExtent = halfExtent
		l.shadowNear = near
		l.shadowFar = far
	}
}
