package camera

import "github.com/go-gl/mathgl/mgl32"

// CameraControllerOption configures a controller in NewCameraController.
type CameraControllerOption func(*cameraControllerImpl)

// WithRadius sets the starting distance from the target. It is clamped to the
// radius bounds when the controller is built.
func WithRadius(radius float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.radius = radius
	}
}

// WithAzimuth sets the starting angle around +Y in radians.
func WithAzimuth(azimuth float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.azimuth = azimuth
	}
}

// WithElevation sets the starting angle above the horizontal plane in radians.
func WithElevation(elevation float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.elevation = elevation
	}
}

// WithTarget sets the pivot the eye orbits and looks at.
func WithTarget(target mgl32.Vec3) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.target = target
	}
}

// WithRadiusBounds limits zooming. The main program keeps the far bound inside
// the render distance so the target never falls behind the far plane.
//
// Parameters:
//   - minRadius: closest distance to the target
//   - maxRadius: farthest distance to the target
//
// Returns:
//   - CameraControllerOption: an option that sets both bounds
func WithRadiusBounds(minRadius, maxRadius float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		if minRadius > 0 && maxRadius >= minRadius {
			cc.minRadius, cc.maxRadius = minRadius, maxRadius
		}
	}
}

// WithElevationBounds limits the vertical orbit angle in radians.
func WithElevationBounds(minElevation, maxElevation float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		if maxElevation >= minElevation {
			cc.minElevation, cc.maxElevation = minElevation, maxElevation
		}
	}
}

// WithOrbitSpeed sets the angle of one orbit step in radians.
func WithOrbitSpeed(speed float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.orbitSpeed = speed
	}
}

func WithZoomSpeed(speed float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.zoomSpeed = speed
	}
}

func WithPanSpeed(speed float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.panSpeed = speed
	}
}
