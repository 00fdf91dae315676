package passes

import "github.com/go-gl/mathgl/mgl32"

// PipelineBuilderOption is a functional option for configuring a Pipeline.
type PipelineBuilderOption func(*framePipeline)

// WithShadowMapSize sets the edge length of the square shadow map.
//
// Parameters:
//   - size: the size in texels; zero keeps the default
//
// Returns:
//   - PipelineBuilderOption: a function that applies the size
func WithShadowMapSize(size uint32) PipelineBuilderOption {
	return func(p *framePipeline) {
		if size > 0 {
			p.shadowSize = size
		}
	}
}

// WithShaderValidation runs every pass shader through the offline WGSL validator before use.
func WithShaderValidation(enabled bool) PipelineBuilderOption {
	return func(p *framePipeline) {
		p.validate = enabled
	}
}

// WithExposure sets the tone-mapping exposure of the composition pass.
func WithExposure(exposure float32) PipelineBuilderOption {
	return func(p *framePipeline) {
		p.exposure = exposure
	}
}

// WithGamma sets the gamma applied after tone mapping. Keep 1 for sRGB surfaces,
// which encode on write.
func WithGamma(gamma float32) PipelineBuilderOption {
	return func(p *framePipeline) {
		if gamma > 0 {
			p.gamma = gamma
		}
	}
}

// WithSkyColors sets the sky gradient.
//
// Parameters:
//   - horizon: the linear colour at the horizon
//   - zenith: the linear colour straight up
//
// Returns:
//   - PipelineBuilderOption: a function that applies the colours
func WithSkyColors(horizon, zenith mgl32.Vec3) PipelineBuilderOption {
	return func(p *framePipeline) {
		p.horizon, p.zenith = horizon, zenith
	}
}

// WithSeed seeds the ambient-occlusion kernel and noise.
func WithSeed(seed uint64) PipelineBuilderOption {
	return func(p *framePipeline) {
		p.seed = seed
	}
}

// WithSSAORadius sets the occlusion sample radius in view-space units.
func WithSSAORadius(radius float32) PipelineBuilderOption {
	return func(p *framePipeline) {
		if radius > 0 {
			p.ssaoRadius = radius
		}
	}
}
