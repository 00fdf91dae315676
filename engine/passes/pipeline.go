package passes

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/theswiftfox/sparkle/engine/camera"
	"github.com/theswiftfox/sparkle/engine/light"
	"github.com/theswiftfox/sparkle/engine/renderer"
	"github.com/theswiftfox/sparkle/engine/scene"
)

// ErrNoCamera is returned by Render for a frame without a camera.
var ErrNoCamera = errors.New("passes: frame has no camera")

// Frame is everything one Render call reads.
type Frame struct {
	Camera camera.Camera
	// Scene may be nil; only the sky is drawn then.
	Scene scene.Scene
	// SSAO enables the ambient-occlusion pass for this frame.
	SSAO bool
}

// Stats describes the last presented frame.
type Stats struct {
	// Frame counts presented frames, starting at 1.
	Frame uint64
	// Lights is the number of lights evaluated.
	Lights int
	// Passes is the number of render passes recorded, without the backend clear.
	Passes int
	// Draws maps a pass label to its draw count, summed over lights.
	Draws map[string]int
}

// framePipeline is the implementation of the Pipeline interface.
type framePipeline struct {
	mu *sync.Mutex

	backend renderer.Backend
	width   int
	height  int
	frames  uint64
	stats   Stats

	shadowSize uint32
	validate   bool
	exposure   float32
	gamma      float32
	horizon    mgl32.Vec3
	zenith     mgl32.Vec3
	seed       uint64
	ssaoRadius float32

	gbuffer *GBufferPass
	ssao    *SSAOPass
	shadow  *ShadowPass
	light   *LightPass
	forward *ForwardPass
	sky     *SkyPass
	compose *ComposePass

	quad    *scene.Drawable
	skyMesh *scene.Drawable
}

// Pipeline renders frames through the fixed pass sequence:
// gbuffer, ssao, then shadow, light and forward for every light, sky, compose.
type Pipeline interface {
	// Render draws and presents one frame. When the backend reports a lost
	// device nothing is drawn and the frame is presented to trigger recovery.
	//
	// Parameters:
	//   - f: the camera, scene and per-frame switches
	//
	// Returns:
	//   - error: ErrNoCamera, or the first pass or backend failure
	Render(f Frame) error

	// Resize resizes every screen-sized target. Zero sizes are ignored.
	Resize(width, height int)

	// Stats returns the statistics of the last presented frame.
	Stats() Stats

	// Release frees every GPU resource of the pipeline.
	Release()
}

var _ Pipeline = &framePipeline{}

// NewPipeline creates every pass with targets sized to the backend's output.
// GPU resources are created on the first Render.
//
// Parameters:
//   - b: the backend to render with
//   - opts: a variadic list of PipelineBuilderOption functions
//
// Returns:
//   - Pipeline: the pipeline
//   - error: a shader compile or program error
func NewPipeline(b renderer.Backend, opts ...PipelineBuilderOption) (Pipeline, error) {
	p := &framePipeline{
		mu:         &sync.Mutex{},
		backend:    b,
		width:      b.Width(),
		height:     b.Height(),
		shadowSize: light.ShadowMapResolution,
		exposure:   1,
		gamma:      1,
		horizon:    mgl32.Vec3{0.75, 0.82, 0.9},
		zenith:     mgl32.Vec3{0.18, 0.36, 0.7},
		seed:       1,
		ssaoRadius: defaultSSAORadius,
	}
	for _, opt := range opts {
		opt(p)
	}
	if err := p.createPasses(); err != nil {
		p.Release()
		return nil, err
	}
	return p, nil
}

func (p *framePipeline) createPasses() error {
	w, h := p.targetSize()
	var err error
	if p.gbuffer, err = NewGBufferPass(w, h, p.validate); err != nil {
		return err
	}
	if p.ssao, err = NewSSAOPass(w, h, p.ssaoRadius, newRand(p.seed), p.validate); err != nil {
		return err
	}
	if p.shadow, err = NewShadowPass(p.shadowSize, p.validate); err != nil {
		return err
	}
	if p.light, err = NewLightPass(w, h, p.gbuffer, p.ssao.Occlusion(), p.shadow.ShadowMap(), p.validate); err != nil {
		return err
	}
	if p.forward, err = NewForwardPass(w, h, p.shadow.ShadowMap(), p.validate); err != nil {
		return err
	}
	if p.sky, err = NewSkyPass(p.light.Accumulation(), p.horizon, p.zenith, p.validate); err != nil {
		return err
	}
	if p.compose, err = NewComposePass(p.light.Accumulation(), p.forward.Accumulation(), p.exposure, p.gamma, p.validate); err != nil {
		return err
	}
	p.quad = scene.NewScreenQuad()
	p.skyMesh = scene.NewSky(skyLatitudes, skyLongitudes)
	return nil
}

func (p *framePipeline) targetSize() (uint32, uint32) {
	return uint32(max(p.width, 1)), uint32(max(p.height, 1))
}

func (p *framePipeline) Render(f Frame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if f.Camera == nil {
		return ErrNoCamera
	}

	ok, err := p.backend.BeginFrame()
	if err != nil {
		return err
	}
	if !ok {
		return p.backend.Present()
	}
	if p.width != p.backend.Width() || p.height != p.backend.Height() {
		p.resize(p.backend.Width(), p.backend.Height())
	}

	stats := Stats{Draws: make(map[string]int)}
	if err := p.renderPasses(f, &stats); err != nil {
		return errors.Join(err, p.backend.Present())
	}
	if err := p.backend.Present(); err != nil {
		return err
	}
	p.frames++
	stats.Frame = p.frames
	p.stats = stats
	return nil
}

func (p *framePipeline) renderPasses(f Frame, stats *Stats) error {
	b := p.backend
	cam := f.Camera
	view, proj, eye := cam.ViewMatrix(), cam.ProjectionMatrix(), cam.Position()

	var lights []light.Light
	if f.Scene != nil {
		if err := f.Scene.BuildMatrices(b); err != nil && !errors.Is(err, scene.ErrEmptyGraph) {
			return fmt.Errorf("passes: build matrices: %w", err)
		}
		lights = ambientFirst(f.Scene.Lights())
	}
	drawScene := func(class scene.ObjectClass) func(renderer.PassEncoder) int {
		return func(enc renderer.PassEncoder) int {
			if f.Scene == nil {
				return 0
			}
			return f.Scene.Draw(enc, class)
		}
	}
	drawQuad := drawOne(p.quad)

	// Everything the light and compose passes bind, whether or not its pass runs this frame.
	if err := syncAll(b, p.quad, p.skyMesh, p.shadow.ShadowMap(), p.ssao.Occlusion()); err != nil {
		return err
	}

	p.gbuffer.SetView(view)
	p.gbuffer.SetProj(proj)
	p.gbuffer.SetCameraPos(eye)
	p.gbuffer.SetNearFar(cam.Near(), cam.Far())
	if err := p.run(p.gbuffer, func() renderer.PassDescriptor { return p.gbuffer.descriptor(b) }, drawScene(scene.ClassOpaque), stats); err != nil {
		return err
	}

	if f.SSAO {
		p.ssao.SetProj(proj)
		p.ssao.SetDepth(b.Depth())
		if err := p.run(p.ssao, p.ssao.descriptor, drawQuad, stats); err != nil {
			return err
		}
	}

	texel := p.shadow.TexelSize()
	p.light.SetCameraPos(eye)
	p.light.SetSSAOEnabled(f.SSAO)
	p.light.SetShadowTexel(texel)
	p.forward.SetView(view)
	p.forward.SetProj(proj)
	p.forward.SetNearFar(cam.Near(), cam.Far())
	p.forward.SetCameraPos(eye)
	p.forward.SetShadowTexel(texel)

	if len(lights) == 0 {
		// Nothing to accumulate; the targets are still cleared for sky and compose.
		p.light.Use(0)
		p.forward.Use(0)
		if err := p.run(p.light, func() renderer.PassDescriptor { return p.light.descriptor(true) }, nil, stats); err != nil {
			return err
		}
		if err := p.run(p.forward, func() renderer.PassDescriptor { return p.forward.descriptor(b, true) }, nil, stats); err != nil {
			return err
		}
	}
	for i, l := range lights {
		first := i == 0
		l.UpdateShadow(eye)
		if l.Type() != light.LightTypeAmbient && l.CastsShadow() {
			p.shadow.Use(i)
			p.shadow.SetLightSpace(l.LightSpace())
			if err := p.run(p.shadow, p.shadow.descriptor, drawScene(scene.ClassAny), stats); err != nil {
				return err
			}
		}

		p.light.Use(i)
		p.light.SetLight(l)
		p.light.SetLightSpace(l.LightSpace())
		if err := p.run(p.light, func() renderer.PassDescriptor { return p.light.descriptor(first) }, drawQuad, stats); err != nil {
			return err
		}

		p.forward.Use(i)
		p.forward.SetLight(l)
		p.forward.SetLightSpace(l.LightSpace())
		if err := p.run(p.forward, func() renderer.PassDescriptor { return p.forward.descriptor(b, first) }, drawScene(scene.ClassTransparent), stats); err != nil {
			return err
		}
	}
	stats.Lights = len(lights)

	p.sky.SetView(view)
	p.sky.SetProj(proj)
	if err := p.run(p.sky, func() renderer.PassDescriptor { return p.sky.descriptor(b) }, drawOne(p.skyMesh), stats); err != nil {
		return err
	}
	return p.run(p.compose, func() renderer.PassDescriptor { return p.compose.descriptor(b) }, drawQuad, stats)
}

// run records one pass: upload, begin, bind, draw, end. The descriptor is built
// after Update so it sees the current targets.
func (p *framePipeline) run(pass Pass, desc func() renderer.PassDescriptor, draw func(renderer.PassEncoder) int, stats *Stats) error {
	if err := pass.Update(p.backend); err != nil {
		return err
	}
	d := desc()
	p.backend.BeginMarker(d.Label)
	defer p.backend.EndMarker(d.Label)

	enc, err := p.backend.Driver().BeginPass(d)
	if err != nil {
		return fmt.Errorf("passes: begin %s: %w", d.Label, err)
	}
	pass.PrepareDraw(enc)
	if draw != nil {
		stats.Draws[d.Label] += draw(enc)
	}
	stats.Passes++
	if err := enc.End(); err != nil {
		return fmt.Errorf("passes: %s: %w", d.Label, err)
	}
	return nil
}

// ambientFirst moves ambient lights to the front of the loop, keeping the
// order of the rest. The first light clears the accumulation targets.
func ambientFirst(lights []light.Light) []light.Light {
	slices.SortStableFunc(lights, func(a, b light.Light) int {
		aa, ba := a.Type() == light.LightTypeAmbient, b.Type() == light.LightTypeAmbient
		switch {
		case aa == ba:
			return 0
		case aa:
			return -1
		}
		return 1
	})
	return lights
}

func drawOne(d *scene.Drawable) func(renderer.PassEncoder) int {
	return func(enc renderer.PassEncoder) int {
		d.Draw(enc, false, nil)
		return 1
	}
}

func (p *framePipeline) Resize(width, height int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if width <= 0 || height <= 0 {
		return
	}
	p.resize(width, height)
}

func (p *framePipeline) resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	p.width, p.height = width, height
	w, h := p.targetSize()
	p.gbuffer.Resize(w, h)
	p.ssao.Resize(w, h)
	p.light.Resize(w, h)
	p.forward.Resize(w, h)
}

func (p *framePipeline) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.stats
	s.Draws = maps.Clone(p.stats.Draws)
	return s
}

func (p *framePipeline) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	var owned []Pass
	if p.gbuffer != nil {
		owned = append(owned, p.gbuffer)
	}
	if p.ssao != nil {
		owned = append(owned, p.ssao)
	}
	if p.shadow != nil {
		owned = append(owned, p.shadow)
	}
	if p.light != nil {
		owned = append(owned, p.light)
	}
	if p.forward != nil {
		owned = append(owned, p.forward)
	}
	if p.sky != nil {
		owned = append(owned, p.sky)
	}
	if p.compose != nil {
		owned = append(owned, p.compose)
	}
	for _, pass := range owned {
		pass.Release()
	}
	if p.quad != nil {
		p.quad.Release()
	}
	if p.skyMesh != nil {
		p.skyMesh.Release()
	}
	p.gbuffer, p.ssao, p.shadow, p.light, p.forward, p.sky, p.compose = nil, nil, nil, nil, nil, nil, nil
	p.quad, p.skyMesh = nil, nil
}
