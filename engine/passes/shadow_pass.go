package passes

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/theswiftfox/sparkle/engine/renderer"
	"github.com/theswiftfox/sparkle/engine/renderer/pipeline"
)

// Slope-scaled bias on top of the culled front faces.
const (
	shadowDepthBias      int32   = 2
	shadowDepthBiasSlope float32 = 2
)

// ShadowPass renders the depth of every drawable as seen from one light. The
// shadow map is shared by all lights and overwritten per light.
type ShadowPass struct {
	program *renderer.ShaderProgram
	shadow  *renderer.Texture2D
	slots   []*renderer.UniformBuffer[GPUShadowParams]
	cur     int
}

// NewShadowPass creates the pass with a square shadow map of the given size.
func NewShadowPass(size uint32, validate bool) (*ShadowPass, error) {
	program, err := newProgram("shadow", validate,
		pipeline.WithDepth(pipeline.FormatDepth32Float, true, true, pipeline.CompareLess),
		pipeline.WithDepthBias(shadowDepthBias, shadowDepthBiasSlope),
		pipeline.WithCullMode(pipeline.CullFront),
	)
	if err != nil {
		return nil, err
	}
	p := &ShadowPass{
		program: program,
		shadow: renderer.NewTexture2D("shadow map", size, size, pipeline.FormatDepth32Float,
			renderer.TextureUsageRenderTarget|renderer.TextureUsageSampled,
			renderer.WithSampler(renderer.SamplerDescriptor{
				Label:   "shadow comparison",
				Filter:  renderer.FilterLinear,
				Address: renderer.AddressClampToEdge,
				Compare: true,
			})),
	}
	p.Use(0)
	return p, nil
}

// Use selects the uniform slot of light index i.
func (p *ShadowPass) Use(i int) {
	for len(p.slots) <= i {
		label := fmt.Sprintf("shadow params %d", len(p.slots))
		p.slots = append(p.slots, renderer.NewUniformBuffer(label, GPUShadowParams{LightSpace: mgl32.Ident4()}))
	}
	p.cur = i
}

func (p *ShadowPass) SetLightSpace(m mgl32.Mat4) {
	u := p.slots[p.cur]
	if u.Value().LightSpace != m {
		u.Set(GPUShadowParams{LightSpace: m})
	}
}

// ShadowMap returns the depth target and its comparison sampler.
func (p *ShadowPass) ShadowMap() *renderer.Texture2D {
	return p.shadow
}

// TexelSize is one shadow-map texel in UV units.
func (p *ShadowPass) TexelSize() float32 {
	return 1 / float32(p.shadow.Width())
}

func (p *ShadowPass) Update(b renderer.Backend) error {
	return syncAll(b, p.program, p.shadow, p.slots[p.cur])
}

func (p *ShadowPass) descriptor() renderer.PassDescriptor {
	return renderer.PassDescriptor{
		Label: LabelShadow,
		Depth: &renderer.DepthAttachment{Target: p.shadow.Texture(), Load: renderer.LoadOpClear, Clear: 1},
	}
}

func (p *ShadowPass) PrepareDraw(enc renderer.PassEncoder) {
	enc.SetProgram(p.program.Program())
	enc.SetBuffer(0, 0, p.slots[p.cur].Buffer())
}

func (p *ShadowPass) Release() {
	p.program.Release()
	p.shadow.Release()
	for _, u := range p.slots {
		u.Release()
	}
}
