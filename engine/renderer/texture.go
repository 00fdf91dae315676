package renderer

import (
	"fmt"
	"sync/atomic"

	"github.com/theswiftfox/sparkle/engine/renderer/pipeline"
)

var nextTextureID atomic.Uint64

// Texture2D is a 2D texture with an optional sampler. It is either a sampled
// asset (initial pixels, shared between materials and reference counted) or a
// render target (sized to the output and resized with it).
type Texture2D struct {
	id     uint64
	label  string
	width  uint32
	height uint32
	format pipeline.TextureFormat
	usage  TextureUsage
	pixels []byte

	samplerDesc *SamplerDescriptor

	tex     Texture
	sampler Sampler
	gen     uint64
	stale   bool
	refs    int
}

// NewTexture2D describes a texture. Nothing is allocated until Sync.
//
// Parameters:
//   - label: a debug label
//   - width, height: the size in pixels
//   - format: the texel format
//   - usage: how the texture is bound
//   - opts: optional pixels and sampler
//
// Returns:
//   - *Texture2D: the texture with a reference count of one
func NewTexture2D(label string, width, height uint32, format pipeline.TextureFormat, usage TextureUsage, opts ...TextureBuilderOption) *Texture2D {
	t := &Texture2D{
		id:     nextTextureID.Add(1),
		label:  label,
		width:  max(width, 1),
		height: max(height, 1),
		format: format,
		usage:  usage,
		refs:   1,
	}
	for _, opt := range opts {
		opt(t)
	}
	if len(t.pixels) > 0 {
		t.usage |= TextureUsageCopyDst
	}
	return t
}

// ID is a process-unique identity used to compare materials.
func (t *Texture2D) ID() uint64 {
	return t.id
}

func (t *Texture2D) Label() string {
	return t.label
}

func (t *Texture2D) Width() uint32 {
	return t.width
}

func (t *Texture2D) Height() uint32 {
	return t.height
}

func (t *Texture2D) Format() pipeline.TextureFormat {
	return t.format
}

// Resize changes the size of a render target. The driver texture is recreated on the next Sync.
//
// Returns:
//   - bool: true when the size changed
func (t *Texture2D) Resize(width, height uint32) bool {
	width, height = max(width, 1), max(height, 1)
	if width == t.width && height == t.height {
		return false
	}
	t.width, t.height = width, height
	t.stale = true
	return true
}

// Sync creates the driver texture, and sampler if one was requested, when they
// are missing, resized or from an older device generation.
func (t *Texture2D) Sync(b Backend) error {
	if err := requireInitialized(b); err != nil {
		return err
	}
	if t.refs <= 0 {
		return fmt.Errorf("%w: texture %s used after release", ErrResourceCreation, t.label)
	}
	if t.tex != nil && !t.stale && t.gen == b.Generation() {
		return nil
	}
	t.releaseGPU()

	d := b.Driver()
	tex, err := d.CreateTexture(TextureDescriptor{
		Label:  t.label,
		Width:  t.width,
		Height: t.height,
		Format: t.format,
		Usage:  t.usage,
	})
	if err != nil {
		return fmt.Errorf("%w: texture %s: %w", ErrResourceCreation, t.label, err)
	}
	if len(t.pixels) > 0 {
		if err := d.WriteTexture(tex, t.pixels); err != nil {
			tex.Release()
			return fmt.Errorf("%w: texture %s: %w", ErrResourceUpdate, t.label, err)
		}
	}
	if t.samplerDesc != nil {
		s, err := d.CreateSampler(*t.samplerDesc)
		if err != nil {
			tex.Release()
			return fmt.Errorf("%w: sampler %s: %w", ErrResourceCreation, t.samplerDesc.Label, err)
		}
		t.sampler = s
	}
	t.tex = tex
	t.gen = b.Generation()
	t.stale = false
	return nil
}

// Texture returns the driver texture, nil before the first Sync.
func (t *Texture2D) Texture() Texture {
	return t.tex
}

// Sampler returns the driver sampler, nil when none was requested.
func (t *Texture2D) Sampler() Sampler {
	return t.sampler
}

// Retain adds a reference for another owner and returns the texture.
func (t *Texture2D) Retain() *Texture2D {
	t.refs++
	return t
}

// RefCount returns the number of owners.
func (t *Texture2D) RefCount() int {
	return t.refs
}

// Release drops a reference. The driver objects are freed with the last one.
func (t *Texture2D) Release() {
	if t.refs <= 0 {
		return
	}
	t.refs--
	if t.refs == 0 {
		t.releaseGPU()
	}
}

func (t *Texture2D) releaseGPU() {
	if t.tex != nil {
		t.tex.Release()
		t.tex = nil
	}
	if t.sampler != nil {
		t.sampler.Release()
		t.sampler = nil
	}
}
