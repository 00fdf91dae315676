package light

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/theswiftfox/sparkle/common"
)

// LightType identifies the kind of light source.
type LightType int

const (
	// LightTypeAmbient is a constant term added to every lit fragment. It has
	// no position or direction and never casts shadows.
	LightTypeAmbient LightType = iota

	// LightTypeDirectional represents a light with no position, only direction.
	// Used for large distant sources like the sun. Its shadow frustum follows the viewer.
	LightTypeDirectional

	// LightTypeArea represents a light emitting from a position along a direction,
	// attenuated with distance up to its radius.
	LightTypeArea
)

func (t LightType) String() string {
	switch t {
	case LightTypeAmbient:
		return "ambient"
	case LightTypeDirectional:
		return "directional"
	case LightTypeArea:
		return "area"
	}
	return fmt.Sprintf("LightType(%d)", int(t))
}

// DefaultDirection is the direction of the directional light added to levels that declare none.
var DefaultDirection = mgl32.Vec3{-15, -50, -5}.Normalize()

// lightImpl is the implementation of the Light interface.
type lightImpl struct {
	lightType    LightType
	position     mgl32.Vec3
	direction    mgl32.Vec3
	color        mgl32.Vec3
	intensity    float32
	radius       float32
	castsShadows bool

	shadowHalfExtent float32
	shadowNear       float32
	shadowFar        float32
	lightSpace       mgl32.Mat4
}

// Light defines the interface for a light source in the scene.
//
// Lights are added to the scene graph after a level is loaded and evaluated one
// at a time by the lighting passes. Shadow-casting lights carry a light-space
// matrix that UpdateShadow recomputes every frame.
type Light interface {
	// Type returns the kind of light source.
	//
	// Returns:
	//   - LightType: the light type (ambient, directional or area)
	Type() LightType

	// Position returns the world-space position of the light.
	// Meaningless for ambient and directional lights.
	//
	// Returns:
	//   - mgl32.Vec3: position
	Position() mgl32.Vec3

	// Direction returns the normalized direction the light travels in.
	//
	// Returns:
	//   - mgl32.Vec3: normalized direction
	Direction() mgl32.Vec3

	// Color returns the RGB color of the light.
	//
	// Returns:
	//   - mgl32.Vec3: color as (r, g, b)
	Color() mgl32.Vec3

	// Intensity returns the scalar intensity multiplier for the light.
	//
	// Returns:
	//   - float32: the intensity value
	Intensity() float32

	// Radius returns the distance beyond which an area light contributes nothing.
	//
	// Returns:
	//   - float32: the radius
	Radius() float32

	// CastsShadow reports whether a shadow map is rendered for the light. Always false for ambient lights.
	//
	// Returns:
	//   - bool: true if the light casts shadows
	CastsShadow() bool

	// LightSpace returns the view-projection matrix of the light computed by the last UpdateShadow.
	//
	// Returns:
	//   - mgl32.Mat4: the light-space matrix
	LightSpace() mgl32.Mat4

	// UpdateShadow recomputes the light-space matrix. Directional lights centre
	// their orthographic frustum on the viewer; area lights project from their position.
	//
	// Parameters:
	//   - viewer: the world-space camera position
	UpdateShadow(viewer mgl32.Vec3)

	// SetPosition sets the world-space position of the light.
	SetPosition(p mgl32.Vec3)

	// SetDirection sets the direction of the light and normalizes it.
	SetDirection(d mgl32.Vec3)

	// SetColor sets the RGB color of the light.
	SetColor(c mgl32.Vec3)

	// SetIntensity sets the scalar intensity multiplier.
	SetIntensity(intensity float32)

	// SetRadius sets the attenuation radius.
	SetRadius(radius float32)
}

var _ Light = &lightImpl{}

// NewLight creates a new Light of the specified type with sensible defaults and
// any provided options applied.
//
// Parameters:
//   - lightType: the kind of light to create
//   - opts: variadic list of LightBuilderOption functions to configure the light
//
// Returns:
//   - Light: a new Light instance
func NewLight(lightType LightType, opts ...LightBuilderOption) Light {
	l := &lightImpl{
		lightType:        lightType,
		direction:        DefaultDirection,
		color:            mgl32.Vec3{1, 1, 1},
		intensity:        1.0,
		radius:           10.0,
		castsShadows:     lightType != LightTypeAmbient,
		shadowHalfExtent: DefaultShadowHalfExtent,
		shadowNear:       DefaultShadowNear,
		shadowFar:        DefaultShadowFar,
		lightSpace:       mgl32.Ident4(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *lightImpl) Type() LightType {
	return l.lightType
}

func (l *lightImpl) Position() mgl32.Vec3 {
	return l.position
}

func (l *lightImpl) Direction() mgl32.Vec3 {
	return l.direction
}

func (l *lightImpl) Color() mgl32.Vec3 {
	return l.color
}

func (l *lightImpl) Intensity() float32 {
	return l.intensity
}

func (l *lightImpl) Radius() float32 {
	return l.radius
}

func (l *lightImpl) CastsShadow() bool {
	return l.castsShadows && l.lightType != LightTypeAmbient
}

func (l *lightImpl) LightSpace() mgl32.Mat4 {
	return l.lightSpace
}

func (l *lightImpl) UpdateShadow(viewer mgl32.Vec3) {
	switch l.lightType {
	case LightTypeDirectional:
		l.lightSpace = ComputeDirectionalLightVP(l.direction, viewer, l.shadowHalfExtent, l.shadowNear, l.shadowFar)
	case LightTypeArea:
		l.lightSpace = ComputeAreaLightVP(l.position, l.direction, l.shadowNear, max(l.radius, l.shadowNear*2))
	}
}

func (l *lightImpl) SetPosition(p mgl32.Vec3) {
	l.position = p
}

func (l *lightImpl) SetDirection(d mgl32.Vec3) {
	l.direction = normalize(d)
}

func (l *lightImpl) SetColor(c mgl32.Vec3) {
	l.color = c
}

func (l *lightImpl) SetIntensity(intensity float32) {
	l.intensity = intensity
}

func (l *lightImpl) SetRadius(radius float32) {
	l.radius = radius
}

// ComputeDirectionalLightVP builds an orthographic view-projection matrix for a
// directional light's shadow pass. The frustum is centered on center (the viewer)
// and looks along the light's direction from half the far distance behind it.
//
// Parameters:
//   - lightDir: normalized direction the light travels (from light toward scene)
//   - center: world-space center of the shadow frustum
//   - halfExtent: half-size of the orthographic frustum in world units
//   - near: near plane distance
//   - far: far plane distance
//
// Returns:
//   - mgl32.Mat4: projection * view
func ComputeDirectionalLightVP(lightDir, center mgl32.Vec3, halfExtent, near, far float32) mgl32.Mat4 {
	dir := normalize(lightDir)
	eye := center.Sub(dir.Mul(far * 0.5))
	view := mgl32.LookAtV(eye, center, common.StableUp(dir))
	proj := common.OrthoZO(-halfExtent, halfExtent, -halfExtent, halfExtent, near, far)
	return proj.Mul4(view)
}

// ComputeAreaLightVP builds a 90 degree perspective view-projection matrix
// looking from an area light's position along its direction.
func ComputeAreaLightVP(position, direction mgl32.Vec3, near, far float32) mgl32.Mat4 {
	dir := normalize(direction)
	view := mgl32.LookAtV(position, position.Add(dir), common.StableUp(dir))
	proj := common.PerspectiveZO(mgl32.DegToRad(90), 1, near, far)
	return proj.Mul4(view)
}

// normalize returns the unit vector of v, or the default direction for a zero vector.
func normalize(v mgl32.Vec3) mgl32.Vec3 {
	if v.Len() == 0 {
		return DefaultDirection
	}
	return v.Normalize()
}
