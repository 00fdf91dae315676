package light

// ShadowMapResolution is the default width and height in texels of the shadow
// depth texture. The pipeline uses it unless settings override it.
const ShadowMapResolution = 4096

// DefaultShadowHalfExtent is the default orthographic half-extent (in world units)
// used for the directional light shadow frustum. Controls how much of the scene
// around the camera is captured in the shadow map.
const DefaultShadowHalfExtent float32 = 40.0

// DefaultShadowNear is the default near plane of shadow projections.
const DefaultShadowNear float32 = 0.1

// DefaultShadowFar is the default far plane of shadow projections.
const DefaultShadowFar float32 = 200.0

// DefaultShadowBias is the constant depth bias applied to shadow comparisons
// to reduce shadow acne artifacts.
const DefaultShadowBias float32 = 0.001
