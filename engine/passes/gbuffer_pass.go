package passes

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/theswiftfox/sparkle/engine/camera"
	"github.com/theswiftfox/sparkle/engine/renderer"
	"github.com/theswiftfox/sparkle/engine/renderer/material"
	"github.com/theswiftfox/sparkle/engine/renderer/pipeline"
	"github.com/theswiftfox/sparkle/engine/scene"
)

// GBufferPass renders opaque geometry into the position and packed surface targets.
type GBufferPass struct {
	program  *renderer.ShaderProgram
	camera   *renderer.UniformBuffer[camera.GPUCameraUniform]
	sampler  *renderer.SamplerState
	position *renderer.Texture2D
	packed   *renderer.Texture2D
}

// NewGBufferPass creates the pass with targets of the given size.
func NewGBufferPass(width, height uint32, validate bool) (*GBufferPass, error) {
	program, err := newProgram("gbuffer", validate,
		pipeline.WithColorTarget(pipeline.FormatRGBA16Float, pipeline.BlendNone),
		pipeline.WithColorTarget(pipeline.FormatRGBA32Uint, pipeline.BlendNone),
		pipeline.WithDepth(pipeline.FormatDepth32Float, true, true, pipeline.CompareLess),
		pipeline.WithCullMode(pipeline.CullBack),
	)
	if err != nil {
		return nil, err
	}
	targetUsage := renderer.TextureUsageRenderTarget | renderer.TextureUsageSampled
	return &GBufferPass{
		program:  program,
		camera:   renderer.NewUniformBuffer("gbuffer camera", camera.GPUCameraUniform{}),
		sampler:  renderer.NewSamplerState(materialSampler),
		position: renderer.NewTexture2D("gbuffer position", width, height, pipeline.FormatRGBA16Float, targetUsage),
		packed:   renderer.NewTexture2D("gbuffer packed", width, height, pipeline.FormatRGBA32Uint, targetUsage),
	}, nil
}

func (p *GBufferPass) SetView(view mgl32.Mat4) {
	v := p.camera.Value()
	v.View = view
	p.setCamera(v)
}

func (p *GBufferPass) SetProj(proj mgl32.Mat4) {
	v := p.camera.Value()
	v.Proj = proj
	p.setCamera(v)
}

func (p *GBufferPass) SetCameraPos(pos mgl32.Vec3) {
	v := p.camera.Value()
	v.Position = [4]float32{pos[0], pos[1], pos[2], 1}
	p.setCamera(v)
}

func (p *GBufferPass) SetNearFar(near, far float32) {
	v := p.camera.Value()
	v.Near, v.Far = near, far
	p.setCamera(v)
}

func (p *GBufferPass) setCamera(v camera.GPUCameraUniform) {
	if v != p.camera.Value() {
		p.camera.Set(v)
	}
}

// Position returns the world-position target. Covered pixels have w = 1.
func (p *GBufferPass) Position() *renderer.Texture2D {
	return p.position
}

// Packed returns the target holding albedo, normal, metallic and roughness.
func (p *GBufferPass) Packed() *renderer.Texture2D {
	return p.packed
}

// Resize resizes both targets.
func (p *GBufferPass) Resize(width, height uint32) {
	p.position.Resize(width, height)
	p.packed.Resize(width, height)
}

// Update creates missing resources and uploads changed uniforms.
func (p *GBufferPass) Update(b renderer.Backend) error {
	return syncAll(b, p.program, p.camera, p.sampler, p.position, p.packed)
}

func (p *GBufferPass) descriptor(b renderer.Backend) renderer.PassDescriptor {
	return renderer.PassDescriptor{
		Label: LabelGBuffer,
		Color: []renderer.ColorAttachment{
			{Target: p.position.Texture(), Load: renderer.LoadOpClear},
			{Target: p.packed.Texture(), Load: renderer.LoadOpClear},
		},
		Depth: &renderer.DepthAttachment{Target: b.Depth(), Load: renderer.LoadOpLoad},
	}
}

// PrepareDraw selects the program and binds the camera and the material sampler.
func (p *GBufferPass) PrepareDraw(enc renderer.PassEncoder) {
	enc.SetProgram(p.program.Program())
	enc.SetBuffer(0, 0, p.camera.Buffer())
	enc.SetSampler(scene.MaterialGroup, material.BindingSampler, p.sampler.Sampler())
}

func (p *GBufferPass) Release() {
	p.program.Release()
	p.camera.Release()
	p.sampler.Release()
	p.position.Release()
	p.packed.Release()
}
