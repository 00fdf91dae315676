package passes

import (
	"github.com/theswiftfox/sparkle/engine/renderer"
	"github.com/theswiftfox/sparkle/engine/renderer/pipeline"
)

// ComposePass resolves the light and transparency accumulation targets into
// the backbuffer with exposure tone mapping.
type ComposePass struct {
	program *renderer.ShaderProgram
	params  *renderer.UniformBuffer[GPUComposeParams]
	lit     *renderer.Texture2D
	forward *renderer.Texture2D
}

func NewComposePass(lit, forward *renderer.Texture2D, exposure, gamma float32, validate bool) (*ComposePass, error) {
	program, err := newProgram("compose", validate,
		pipeline.WithColorTarget(pipeline.FormatBackbuffer, pipeline.BlendNone),
		pipeline.WithCullMode(pipeline.CullNone),
	)
	if err != nil {
		return nil, err
	}
	return &ComposePass{
		program: program,
		params:  renderer.NewUniformBuffer("compose params", GPUComposeParams{Exposure: exposure, Gamma: gamma}),
		lit:     lit,
		forward: forward,
	}, nil
}

// SetExposure changes the tone-mapping exposure.
func (p *ComposePass) SetExposure(exposure float32) {
	v := p.params.Value()
	if v.Exposure != exposure {
		v.Exposure = exposure
		p.params.Set(v)
	}
}

func (p *ComposePass) Update(b renderer.Backend) error {
	return syncAll(b, p.program, p.params)
}

func (p *ComposePass) descriptor(b renderer.Backend) renderer.PassDescriptor {
	return renderer.PassDescriptor{
		Label: LabelCompose,
		Color: []renderer.ColorAttachment{{Target: b.Backbuffer(), Load: renderer.LoadOpLoad}},
	}
}

func (p *ComposePass) PrepareDraw(enc renderer.PassEncoder) {
	enc.SetProgram(p.program.Program())
	enc.SetBuffer(0, 0, p.params.Buffer())
	enc.SetTexture(0, 1, p.lit.Texture())
	enc.SetTexture(0, 2, p.forward.Texture())
}

func (p *ComposePass) Release() {
	p.program.Release()
	p.params.Release()
}
