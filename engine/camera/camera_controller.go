package camera

import "github.com/go-gl/mathgl/mgl32"

// CameraController places the eye on a sphere around a target: radius, azimuth
// around +Y (0 looks down -Z from +Z) and elevation above the horizontal plane.
// The engine drives it from the keyboard (arrows orbit, WASD pan), the scroll
// wheel (zoom) and middle-button drags (pan).
//
// Zoom and elevation stay inside the bounds given at construction. Panning moves
// the eye and the target together, so the orbit is preserved.
type CameraController interface {
	// Position returns the world-space eye position.
	Position() mgl32.Vec3

	// Target returns the look-at point.
	Target() mgl32.Vec3

	// SetTarget moves the pivot and the eye with it.
	//
	// Parameters:
	//   - target: world-space coordinates
	SetTarget(target mgl32.Vec3)

	// Zoom changes the radius by delta times the zoom speed. Positive delta moves closer.
	Zoom(delta float32)

	// OrbitLeft, OrbitRight, OrbitUp and OrbitDown rotate the eye one orbit step.
	OrbitLeft()
	OrbitRight()
	OrbitUp()
	OrbitDown()

	Radius() float32
	Azimuth() float32
	Elevation() float32

	// PanRight moves along the camera's right axis by delta times the pan speed.
	PanRight(delta float32)

	// PanForward moves along the camera's forward axis projected onto the ground plane.
	PanForward(delta float32)
}
