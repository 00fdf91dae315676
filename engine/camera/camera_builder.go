package camera

import "github.com/go-gl/mathgl/mgl32"

// CameraBuilderOption configures a camera in NewCamera. Options that take a
// distance or angle ignore non-positive values and keep the default.
type CameraBuilderOption func(*cameraImpl)

// WithUp sets the world up vector used by the look-at view.
func WithUp(x, y, z float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.up = mgl32.Vec3{x, y, z}
	}
}

// WithFov sets the vertical field of view in radians.
func WithFov(fov float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		if fov > 0 {
			c.fov = fov
		}
	}
}

// WithFovDegrees sets the vertical field of view in degrees, the unit of the settings file.
func WithFovDegrees(degrees float32) CameraBuilderOption {
	return WithFov(mgl32.DegToRad(degrees))
}

// WithAspect sets the width over height ratio. It is replaced on the first resize.
func WithAspect(aspect float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		if aspect > 0 {
			c.aspect = aspect
		}
	}
}

// WithNear sets the near plane distance.
func WithNear(near float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		if near > 0 {
			c.near = near
		}
	}
}

// WithFar sets the far plane distance, the render distance.
func WithFar(far float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		if far > 0 {
			c.far = far
		}
	}
}

// WithController attaches the controller that places the eye and the target.
//
// Parameters:
//   - ctrl: the controller; nil keeps the default orbit controller
//
// Returns:
//   - CameraBuilderOption: a function that applies the controller
func WithController(ctrl CameraController) CameraBuilderOption {
	return func(c *cameraImpl) {
		if ctrl != nil {
			c.controller = ctrl
		}
	}
}
