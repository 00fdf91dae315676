package passes

import (
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/theswiftfox/sparkle/engine/renderer"
	"github.com/theswiftfox/sparkle/engine/renderer/pipeline"
)

const (
	defaultSSAORadius float32 = 0.5
	defaultSSAOBias   float32 = 0.025
)

// SSAOPass estimates ambient occlusion from the primary depth buffer.
type SSAOPass struct {
	program *renderer.ShaderProgram
	params  *renderer.UniformBuffer[GPUSSAOParams]
	noise   *renderer.Texture2D
	target  *renderer.Texture2D
	depth   renderer.Texture
}

// NewSSAOPass creates the pass. The kernel and noise are drawn from rng.
func NewSSAOPass(width, height uint32, radius float32, rng *rand.Rand, validate bool) (*SSAOPass, error) {
	program, err := newProgram("ssao", validate,
		pipeline.WithColorTarget(pipeline.FormatR8Unorm, pipeline.BlendNone),
		pipeline.WithCullMode(pipeline.CullNone),
	)
	if err != nil {
		return nil, err
	}
	params := GPUSSAOParams{
		Kernel: SSAOKernel(rng),
		Radius: radius,
		Bias:   defaultSSAOBias,
	}
	p := &SSAOPass{
		program: program,
		params:  renderer.NewUniformBuffer("ssao params", params),
		noise: renderer.NewTexture2D("ssao noise", SSAONoiseSize, SSAONoiseSize, pipeline.FormatRGBA8Unorm,
			renderer.TextureUsageSampled, renderer.WithPixels(SSAONoise(rng))),
		target: renderer.NewTexture2D("ssao", width, height, pipeline.FormatR8Unorm,
			renderer.TextureUsageRenderTarget|renderer.TextureUsageSampled),
	}
	p.Resize(width, height)
	return p, nil
}

// SetProj stages the projection and its inverse, used to reconstruct view positions from depth.
func (p *SSAOPass) SetProj(proj mgl32.Mat4) {
	v := p.params.Value()
	v.Proj = proj
	v.InvProj = proj.Inv()
	p.params.Set(v)
}

// SetDepth sets the depth texture read by the next draw. The backend recreates
// its depth target on resize and recovery, so this is set every frame.
func (p *SSAOPass) SetDepth(depth renderer.Texture) {
	p.depth = depth
}

// Occlusion returns the occlusion target: 1 is unoccluded.
func (p *SSAOPass) Occlusion() *renderer.Texture2D {
	return p.target
}

func (p *SSAOPass) Resize(width, height uint32) {
	p.target.Resize(width, height)
	v := p.params.Value()
	v.Resolution = [2]float32{float32(width), float32(height)}
	v.NoiseScale = [2]float32{float32(width) / SSAONoiseSize, float32(height) / SSAONoiseSize}
	if v != p.params.Value() {
		p.params.Set(v)
	}
}

func (p *SSAOPass) Update(b renderer.Backend) error {
	return syncAll(b, p.program, p.params, p.noise, p.target)
}

func (p *SSAOPass) descriptor() renderer.PassDescriptor {
	return renderer.PassDescriptor{
		Label: LabelSSAO,
		Color: []renderer.ColorAttachment{
			{Target: p.target.Texture(), Load: renderer.LoadOpClear, Clear: [4]float64{1, 1, 1, 1}},
		},
	}
}

func (p *SSAOPass) PrepareDraw(enc renderer.PassEncoder) {
	enc.SetProgram(p.program.Program())
	enc.SetBuffer(0, 0, p.params.Buffer())
	enc.SetTexture(0, 1, p.depth)
	enc.SetTexture(0, 2, p.noise.Texture())
}

func (p *SSAOPass) Release() {
	p.program.Release()
	p.params.Release()
	p.noise.Release()
	p.target.Release()
}
