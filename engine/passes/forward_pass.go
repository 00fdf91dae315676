package passes

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/theswiftfox/sparkle/engine/camera"
	"github.com/theswiftfox/sparkle/engine/light"
	"github.com/theswiftfox/sparkle/engine/renderer"
	"github.com/theswiftfox/sparkle/engine/renderer/material"
	"github.com/theswiftfox/sparkle/engine/renderer/pipeline"
	"github.com/theswiftfox/sparkle/engine/scene"
)

// shadowGroup holds the shadow map and its comparison sampler in the forward program.
const shadowGroup = 3

// ForwardPass shades transparent geometry directly, one light at a time, into
// its own accumulation target. It tests against the primary depth without writing it.
//
// The first light composites the surfaces and writes their coverage; every later
// light only adds its premultiplied colour, so the target holds a*(c0+c1+...)
// with coverage a however many lights there are.
type ForwardPass struct {
	program    *renderer.ShaderProgram
	accumulate *renderer.ShaderProgram
	additive   bool
	camera     *renderer.UniformBuffer[camera.GPUCameraUniform]
	slots      *lightSlots
	sampler    *renderer.SamplerState
	target     *renderer.Texture2D
	shadow     *renderer.Texture2D
}

// NewForwardPass creates the pass reading the given shadow map.
func NewForwardPass(width, height uint32, shadow *renderer.Texture2D, validate bool) (*ForwardPass, error) {
	program, err := newForwardProgram(pipeline.BlendPremultiplied, validate)
	if err != nil {
		return nil, err
	}
	accumulate, err := newForwardProgram(pipeline.BlendAdditiveColor, validate)
	if err != nil {
		program.Release()
		return nil, err
	}
	return &ForwardPass{
		program:    program,
		accumulate: accumulate,
		camera:     renderer.NewUniformBuffer("forward camera", camera.GPUCameraUniform{}),
		slots:      newLightSlots("forward light"),
		sampler:    renderer.NewSamplerState(materialSampler),
		target: renderer.NewTexture2D("forward accumulation", width, height, pipeline.FormatRGBA16Float,
			renderer.TextureUsageRenderTarget|renderer.TextureUsageSampled),
		shadow:     shadow,
	}, nil
}

func newForwardProgram(blend pipeline.BlendMode, validate bool) (*renderer.ShaderProgram, error) {
	return newProgram("forward", validate,
		pipeline.WithColorTarget(pipeline.FormatRGBA16Float, blend),
		pipeline.WithDepth(pipeline.FormatDepth32Float, true, false, pipeline.CompareLess),
		pipeline.WithCullMode(pipeline.CullNone),
	)
}

// Use selects the uniform slot of light i. Lights after the first add onto the target.
func (p *ForwardPass) Use(i int) {
	p.slots.use(i)
	p.additive = i > 0
}

func (p *ForwardPass) SetView(view mgl32.Mat4) {
	v := p.camera.Value()
	v.View = view
	p.setCamera(v)
}

func (p *ForwardPass) SetProj(proj mgl32.Mat4) {
	v := p.camera.Value()
	v.Proj = proj
	p.setCamera(v)
}

func (p *ForwardPass) SetNearFar(near, far float32) {
	v := p.camera.Value()
	v.Near, v.Far = near, far
	p.setCamera(v)
}

func (p *ForwardPass) SetCameraPos(pos mgl32.Vec3) {
	v := p.camera.Value()
	v.Position = [4]float32{pos[0], pos[1], pos[2], 1}
	p.setCamera(v)
	p.slots.cameraPos = pos
}

func (p *ForwardPass) setCamera(v camera.GPUCameraUniform) {
	if v != p.camera.Value() {
		p.camera.Set(v)
	}
}

func (p *ForwardPass) SetLight(l light.Light) {
	p.slots.setLight(l)
}

func (p *ForwardPass) SetLightSpace(m mgl32.Mat4) {
	p.slots.setLightSpace(m)
}

func (p *ForwardPass) SetShadowTexel(texel float32) {
	p.slots.shadowTexel = texel
}

// Accumulation returns the premultiplied transparency target; alpha is coverage.
func (p *ForwardPass) Accumulation() *renderer.Texture2D {
	return p.target
}

func (p *ForwardPass) Resize(width, height uint32) {
	p.target.Resize(width, height)
}

func (p *ForwardPass) Update(b renderer.Backend) error {
	if err := syncAll(b, p.program, p.accumulate, p.camera, p.sampler, p.target); err != nil {
		return err
	}
	return p.slots.sync(b)
}

func (p *ForwardPass) descriptor(b renderer.Backend, first bool) renderer.PassDescriptor {
	return renderer.PassDescriptor{
		Label: LabelForward,
		Color: []renderer.ColorAttachment{{Target: p.target.Texture(), Load: loadOp(first)}},
		Depth: &renderer.DepthAttachment{Target: b.Depth(), Load: renderer.LoadOpLoad, ReadOnly: true},
	}
}

func (p *ForwardPass) PrepareDraw(enc renderer.PassEncoder) {
	slot := p.slots.current()
	program := p.program
	if p.additive {
		program = p.accumulate
	}
	enc.SetProgram(program.Program())
	enc.SetBuffer(0, 0, p.camera.Buffer())
	enc.SetBuffer(0, 1, slot.frame.Buffer())
	enc.SetBuffer(0, 2, slot.entries.Buffer())
	enc.SetSampler(scene.MaterialGroup, material.BindingSampler, p.sampler.Sampler())
	enc.SetTexture(shadowGroup, 0, p.shadow.Texture())
	enc.SetSampler(shadowGroup, 1, p.shadow.Sampler())
}

func (p *ForwardPass) Release() {
	p.program.Release()
	p.accumulate.Release()
	p.camera.Release()
	p.slots.release()
	p.sampler.Release()
	p.target.Release()
}
