package passes

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/theswiftfox/sparkle/common"
	"github.com/theswiftfox/sparkle/engine/renderer"
	"github.com/theswiftfox/sparkle/engine/renderer/pipeline"
)

// Sky sphere tessellation.
const (
	skyLatitudes  = 24
	skyLongitudes = 48
)

// SkyPass draws a gradient sphere around the camera behind all lit geometry,
// into the light accumulation target.
type SkyPass struct {
	program *renderer.ShaderProgram
	params  *renderer.UniformBuffer[GPUSkyParams]
	target  *renderer.Texture2D
}

// NewSkyPass creates the pass drawing into target.
func NewSkyPass(target *renderer.Texture2D, horizon, zenith mgl32.Vec3, validate bool) (*SkyPass, error) {
	program, err := newProgram("sky", validate,
		pipeline.WithColorTarget(pipeline.FormatRGBA16Float, pipeline.BlendNone),
		pipeline.WithDepth(pipeline.FormatDepth32Float, true, false, pipeline.CompareLessEqual),
		pipeline.WithCullMode(pipeline.CullNone),
	)
	if err != nil {
		return nil, err
	}
	return &SkyPass{
		program: program,
		params: renderer.NewUniformBuffer("sky params", GPUSkyParams{
			View:    mgl32.Ident4(),
			Proj:    mgl32.Ident4(),
			Horizon: [4]float32{horizon[0], horizon[1], horizon[2], 1},
			Zenith:  [4]float32{zenith[0], zenith[1], zenith[2], 1},
		}),
		target: target,
	}, nil
}

// SetView stages the rotation of view. Its translation is dropped.
func (p *SkyPass) SetView(view mgl32.Mat4) {
	v := p.params.Value()
	v.View = common.RotationOnly(view)
	p.set(v)
}

func (p *SkyPass) SetProj(proj mgl32.Mat4) {
	v := p.params.Value()
	v.Proj = proj
	p.set(v)
}

func (p *SkyPass) set(v GPUSkyParams) {
	if v != p.params.Value() {
		p.params.Set(v)
	}
}

func (p *SkyPass) Update(b renderer.Backend) error {
	return syncAll(b, p.program, p.params)
}

func (p *SkyPass) descriptor(b renderer.Backend) renderer.PassDescriptor {
	return renderer.PassDescriptor{
		Label: LabelSky,
		Color: []renderer.ColorAttachment{{Target: p.target.Texture(), Load: renderer.LoadOpLoad}},
		Depth: &renderer.DepthAttachment{Target: b.Depth(), Load: renderer.LoadOpLoad, ReadOnly: true},
	}
}

func (p *SkyPass) PrepareDraw(enc renderer.PassEncoder) {
	enc.SetProgram(p.program.Program())
	enc.SetBuffer(0, 0, p.params.Buffer())
}

// Release frees the program and uniforms. The target belongs to the light pass.
func (p *SkyPass) Release() {
	p.program.Release()
	p.params.Release()
}
