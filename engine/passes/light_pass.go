package passes

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/theswiftfox/sparkle/engine/light"
	"github.com/theswiftfox/sparkle/engine/renderer"
	"github.com/theswiftfox/sparkle/engine/renderer/pipeline"
)

// LightPass adds the contribution of one light, computed from the G-buffer,
// into the light accumulation target.
type LightPass struct {
	program *renderer.ShaderProgram
	slots   *lightSlots
	target  *renderer.Texture2D

	position  *renderer.Texture2D
	packed    *renderer.Texture2D
	occlusion *renderer.Texture2D
	shadow    *renderer.Texture2D
}

// NewLightPass creates the pass. The inputs are owned by the passes that write them.
//
// Parameters:
//   - width, height: the accumulation target size
//   - gbuffer: the geometry pass providing position and packed surface data
//   - occlusion: the ambient-occlusion target
//   - shadow: the shadow map with its comparison sampler
//   - validate: run the offline WGSL validator
func NewLightPass(width, height uint32, gbuffer *GBufferPass, occlusion, shadow *renderer.Texture2D, validate bool) (*LightPass, error) {
	program, err := newProgram("light", validate,
		pipeline.WithColorTarget(pipeline.FormatRGBA16Float, pipeline.BlendAdditive),
		pipeline.WithCullMode(pipeline.CullNone),
	)
	if err != nil {
		return nil, err
	}
	return &LightPass{
		program: program,
		slots:   newLightSlots("light"),
		target: renderer.NewTexture2D("light accumulation", width, height, pipeline.FormatRGBA16Float,
			renderer.TextureUsageRenderTarget|renderer.TextureUsageSampled),
		position:  gbuffer.Position(),
		packed:    gbuffer.Packed(),
		occlusion: occlusion,
		shadow:    shadow,
	}, nil
}

// Use selects the uniform slot of light index i.
func (p *LightPass) Use(i int) {
	p.slots.use(i)
}

func (p *LightPass) SetLight(l light.Light) {
	p.slots.setLight(l)
}

func (p *LightPass) SetLightSpace(m mgl32.Mat4) {
	p.slots.setLightSpace(m)
}

func (p *LightPass) SetCameraPos(pos mgl32.Vec3) {
	p.slots.cameraPos = pos
}

// SetSSAOEnabled tells the shader whether the occlusion target was written this frame.
func (p *LightPass) SetSSAOEnabled(enabled bool) {
	p.slots.ssaoEnabled = enabled
}

func (p *LightPass) SetShadowTexel(texel float32) {
	p.slots.shadowTexel = texel
}

// Accumulation returns the HDR light accumulation target.
func (p *LightPass) Accumulation() *renderer.Texture2D {
	return p.target
}

func (p *LightPass) Resize(width, height uint32) {
	p.target.Resize(width, height)
}

func (p *LightPass) Update(b renderer.Backend) error {
	if err := syncAll(b, p.program, p.target); err != nil {
		return err
	}
	return p.slots.sync(b)
}

// descriptor clears the accumulation target for the first light and adds onto it afterwards.
func (p *LightPass) descriptor(first bool) renderer.PassDescriptor {
	return renderer.PassDescriptor{
		Label: LabelLight,
		Color: []renderer.ColorAttachment{{Target: p.target.Texture(), Load: loadOp(first)}},
	}
}

func (p *LightPass) PrepareDraw(enc renderer.PassEncoder) {
	slot := p.slots.current()
	enc.SetProgram(p.program.Program())
	enc.SetBuffer(0, 0, slot.frame.Buffer())
	enc.SetBuffer(0, 1, slot.entries.Buffer())
	enc.SetTexture(1, 0, p.position.Texture())
	enc.SetTexture(1, 1, p.packed.Texture())
	enc.SetTexture(1, 2, p.occlusion.Texture())
	enc.SetTexture(1, 3, p.shadow.Texture())
	enc.SetSampler(1, 4, p.shadow.Sampler())
}

func (p *LightPass) Release() {
	p.program.Release()
	p.slots.release()
	p.target.Release()
}
