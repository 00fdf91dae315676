package camera_test

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/theswiftfox/sparkle/engine/camera"
)

// assertMatNear compares matrices component-wise with an absolute tolerance.
func assertMatNear(t *testing.T, want, got mgl32.Mat4) {
	t.Helper()
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-4, "component %d", i)
	}
}

func TestControllerOrbitsTarget(t *testing.T) {
	ctrl := camera.NewCameraController(
		camera.WithTarget(mgl32.Vec3{1, 2, 3}),
		camera.WithRadius(10),
		camera.WithElevation(0),
	)
	assert.True(t, ctrl.Position().ApproxEqual(mgl32.Vec3{1, 2, 13}))

	for range 20 {
		ctrl.OrbitRight()
		ctrl.OrbitUp()
	}
	assert.InDelta(t, 10, ctrl.Position().Sub(ctrl.Target()).Len(), 1e-4, "radius is preserved")
}

func TestControllerClamps(t *testing.T) {
	ctrl := camera.NewCameraController(
		camera.WithRadius(10),
		camera.WithRadiusBounds(5, 15),
		camera.WithElevationBounds(-0.5, 0.5),
		camera.WithOrbitSpeed(0.2),
	)
	ctrl.Zoom(100)
	assert.Equal(t, float32(5), ctrl.Radius())
	ctrl.Zoom(-100)
	assert.Equal(t, float32(15), ctrl.Radius())

	for range 10 {
		ctrl.OrbitUp()
	}
	assert.Equal(t, float32(0.5), ctrl.Elevation())
	for range 10 {
		ctrl.OrbitDown()
	}
	assert.Equal(t, float32(-0.5), ctrl.Elevation())
}

func TestControllerPanMovesTargetAndEye(t *testing.T) {
	ctrl := camera.NewCameraController(camera.WithRadius(10), camera.WithPanSpeed(1))
	eye := ctrl.Position()
	ctrl.PanForward(2)
	assert.True(t, ctrl.Target().ApproxEqual(mgl32.Vec3{0, 0, -2}))
	assert.True(t, ctrl.Position().ApproxEqual(eye.Add(mgl32.Vec3{0, 0, -2})))

	ctrl.PanRight(3)
	assert.True(t, ctrl.Target().ApproxEqual(mgl32.Vec3{3, 0, -2}))
}

func TestCameraProjectionDepthRange(t *testing.T) {
	cam := camera.NewCamera(camera.WithNear(1), camera.WithFar(100))
	require.Equal(t, float32(100), cam.Far())
	assert.InDelta(t, mgl32.DegToRad(70), cam.Fov(), 1e-6)

	depth := func(d float32) float32 {
		c := cam.ProjectionMatrix().Mul4x1(mgl32.Vec4{0, 0, -d, 1})
		return c.Z() / c.W()
	}
	assert.InDelta(t, 0, depth(1), 1e-5, "near maps to 0")
	assert.InDelta(t, 1, depth(100), 1e-5, "far maps to 1")

	id := cam.ProjectionMatrix().Mul4(cam.InverseProjectionMatrix())
	assertMatNear(t, mgl32.Ident4(), id)
}

func TestCameraViewFollowsController(t *testing.T) {
	ctrl := camera.NewCameraController(camera.WithRadius(10), camera.WithElevation(0))
	cam := camera.NewCamera(camera.WithController(ctrl))

	target := cam.ViewMatrix().Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	assert.InDelta(t, -10, target.Z(), 1e-4, "target straight ahead")

	ctrl.PanRight(4)
	cam.Update()
	assert.True(t, cam.Position().ApproxEqual(ctrl.Position()))
	target = cam.ViewMatrix().Mul4x1(ctrl.Target().Vec4(1))
	assert.InDelta(t, 0, target.X(), 1e-4)
}

func TestCameraResize(t *testing.T) {
	cam := camera.NewCamera()
	cam.Resize(1920, 1080)
	assert.InDelta(t, 1920.0/1080.0, cam.Aspect(), 1e-6)
	cam.Resize(0, 1080)
	assert.InDelta(t, 1920.0/1080.0, cam.Aspect(), 1e-6, "minimised window is ignored")
}

func TestGPUCameraUniform(t *testing.T) {
	cam := camera.NewCamera(camera.WithNear(0.5), camera.WithFar(250))
	u := camera.NewGPUCameraUniform(cam)
	assert.Equal(t, 160, u.Size())
	assert.Len(t, u.Marshal(), 160)
	assert.Equal(t, float32(0.5), u.Near)
	assert.Equal(t, float32(250), u.Far)
	assert.InDelta(t, 20, math32.Sqrt(u.Position[0]*u.Position[0]+u.Position[1]*u.Position[1]+u.Position[2]*u.Position[2]), 1e-4)
}

func TestCameraOptionsKeepDefaultsForInvalidValues(t *testing.T) {
	cam := camera.NewCamera(
		camera.WithFovDegrees(90),
		camera.WithAspect(-1),
		camera.WithNear(0),
		camera.WithFar(-5),
		camera.WithController(nil),
	)
	assert.InDelta(t, math32.Pi/2, cam.Fov(), 1e-6)
	assert.InDelta(t, 1024.0/768.0, cam.Aspect(), 1e-6)
	assert.InDelta(t, 0.1, cam.Near(), 1e-6)
	assert.InDelta(t, 1000, cam.Far(), 1e-6)
	require.NotNil(t, cam.Controller())
}
