// Package passes implements the fixed frame pipeline: geometry buffer, ambient
// occlusion, a shadow, lighting and transparency pass per light, sky and
// composition. Every pass owns its program, uniforms and off-screen targets.
package passes

import "github.com/theswiftfox/sparkle/engine/renderer"

// Pass labels, used for render passes and debug markers.
const (
	LabelGBuffer = "gbuffer"
	LabelSSAO    = "ssao"
	LabelShadow  = "shadow"
	LabelLight   = "light"
	LabelForward = "forward"
	LabelSky     = "sky"
	LabelCompose = "compose"
)

// Pass is the part every pass has in common.
type Pass interface {
	// Update creates missing GPU resources and uploads staged uniforms that changed.
	Update(b renderer.Backend) error
	// PrepareDraw selects the pass program and binds its resources.
	PrepareDraw(enc renderer.PassEncoder)
	// Release frees everything the pass owns.
	Release()
}

var (
	_ Pass = &GBufferPass{}
	_ Pass = &SSAOPass{}
	_ Pass = &ShadowPass{}
	_ Pass = &LightPass{}
	_ Pass = &ForwardPass{}
	_ Pass = &SkyPass{}
	_ Pass = &ComposePass{}
)

// materialSampler is shared by every material texture.
var materialSampler = renderer.SamplerDescriptor{
	Label:   "material",
	Filter:  renderer.FilterLinear,
	Address: renderer.AddressRepeat,
}

type syncer interface {
	Sync(b renderer.Backend) error
}

func syncAll(b renderer.Backend, resources ...syncer) error {
	for _, r := range resources {
		if err := r.Sync(b); err != nil {
			return err
		}
	}
	return nil
}

func loadOp(clear bool) renderer.LoadOp {
	if clear {
		return renderer.LoadOpClear
	}
	return renderer.LoadOpLoad
}
