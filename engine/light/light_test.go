package light_test

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/theswiftfox/sparkle/engine/light"
)

// project transforms p by m and returns normalised device coordinates.
func project(m mgl32.Mat4, p mgl32.Vec3) mgl32.Vec3 {
	c := m.Mul4x1(p.Vec4(1))
	return c.Vec3().Mul(1 / c.W())
}

func TestDefaults(t *testing.T) {
	ambient := light.NewLight(light.LightTypeAmbient, light.WithCastsShadows(true))
	assert.False(t, ambient.CastsShadow(), "ambient never casts shadows")

	sun := light.NewLight(light.LightTypeDirectional)
	assert.True(t, sun.CastsShadow())
	assert.InDelta(t, 1, sun.Direction().Len(), 1e-6)
	assert.Equal(t, mgl32.Vec3{-15, -50, -5}.Normalize(), sun.Direction())
}

func TestOptionsIgnoreInvalidValues(t *testing.T) {
	l := light.NewLight(light.LightTypeArea,
		light.WithIntensity(-1),
		light.WithRadius(0),
		light.WithDirection(0, 0, 0),
	)
	assert.Equal(t, float32(1), l.Intensity())
	assert.Equal(t, float32(10), l.Radius())
	assert.Equal(t, light.DefaultDirection, l.Direction())

	off := light.NewLight(light.LightTypeDirectional, light.WithIntensity(0))
	assert.Zero(t, off.Intensity())
}

func TestDirectionalShadowFollowsViewer(t *testing.T) {
	sun := light.NewLight(light.LightTypeDirectional, light.WithDirection(0, -1, 0.2))

	for _, viewer := range []mgl32.Vec3{{0, 0, 0}, {100, 5, -40}} {
		sun.UpdateShadow(viewer)
		ndc := project(sun.LightSpace(), viewer)
		assert.InDelta(t, 0, ndc.X(), 1e-4, "viewer at the frustum centre")
		assert.InDelta(t, 0, ndc.Y(), 1e-4)
		assert.Greater(t, ndc.Z(), float32(0))
		assert.Less(t, ndc.Z(), float32(1))

		// Points further along the light direction are deeper.
		below := project(sun.LightSpace(), viewer.Add(sun.Direction().Mul(5)))
		assert.Greater(t, below.Z(), ndc.Z())
	}
}

func TestDirectionalShadowStraightDown(t *testing.T) {
	sun := light.NewLight(light.LightTypeDirectional, light.WithDirection(0, -1, 0))
	sun.UpdateShadow(mgl32.Vec3{})
	m := sun.LightSpace()
	for _, v := range m {
		require.False(t, math.IsNaN(float64(v)), "up vector switched for vertical light")
	}
	ndc := project(m, mgl32.Vec3{})
	assert.InDelta(t, 0, ndc.X(), 1e-4)
}

func TestAreaLightProjectsFromPosition(t *testing.T) {
	lamp := light.NewLight(light.LightTypeArea,
		light.WithPosition(0, 10, 0),
		light.WithDirection(0, -1, 0),
		light.WithRadius(50),
	)
	lamp.UpdateShadow(mgl32.Vec3{100, 0, 0})
	ndc := project(lamp.LightSpace(), mgl32.Vec3{0, 0, 0})
	assert.InDelta(t, 0, ndc.X(), 1e-4, "independent of the viewer")
	assert.InDelta(t, 0, ndc.Y(), 1e-4)
	assert.Greater(t, ndc.Z(), float32(0))
	assert.Less(t, ndc.Z(), float32(1))
}

func TestAmbientLightSpaceUnchanged(t *testing.T) {
	ambient := light.NewLight(light.LightTypeAmbient)
	ambient.UpdateShadow(mgl32.Vec3{1, 2, 3})
	assert.Equal(t, mgl32.Ident4(), ambient.LightSpace())
}

func TestToGPULight(t *testing.T) {
	l := light.NewLight(light.LightTypeArea,
		light.WithPosition(1, 2, 3),
		light.WithColor(0.5, 0.25, 1),
		light.WithIntensity(2),
		light.WithRadius(7),
	)
	g := light.ToGPULight(l)
	assert.Equal(t, uint32(light.LightTypeArea), g.LightType)
	assert.Equal(t, uint32(1), g.CastsShadow)
	assert.Equal(t, 64, g.Size())

	buf := g.Marshal()
	require.Len(t, buf, 64)
	assert.Equal(t, float32(2), math.Float32frombits(binary.LittleEndian.Uint32(buf[4:8])))
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(buf[12:16]))
	assert.Equal(t, float32(7), math.Float32frombits(binary.LittleEndian.Uint32(buf[44:48])))
}
