package material

import (
	"fmt"
	"sort"
	"strings"

	"github.com/theswiftfox/sparkle/common"
	"github.com/theswiftfox/sparkle/engine/renderer"
	"github.com/theswiftfox/sparkle/engine/renderer/pipeline"
)

// Slot is a texture slot of a material.
type Slot int

const (
	SlotAlbedo Slot = iota
	SlotMetallicRoughness
	SlotNormal
	slotCount
)

func (s Slot) String() string {
	switch s {
	case SlotAlbedo:
		return "albedo"
	case SlotMetallicRoughness:
		return "metallic_roughness"
	case SlotNormal:
		return "normal"
	}
	return fmt.Sprintf("Slot(%d)", int(s))
}

// Bindings of the material group. The sampler is shared by every material and bound by the pass.
const (
	BindingParams = iota
	BindingAlbedo
	BindingMetallicRoughness
	BindingNormal
	BindingSampler
)

// material is the implementation of the Material interface.
type material struct {
	name      string
	baseColor [4]float32
	metallic  float32
	roughness float32
	textures  map[Slot]*renderer.Texture2D
	params    *renderer.UniformBuffer[GPUMaterialParams]
	key       string
}

// Material is the set of textures, by slot, and factors a drawable is shaded with.
// Two materials are equal when they reference the same textures in the same slots
// with the same factors; equal materials are drawn without rebinding.
type Material interface {
	// Name retrieves the material identifier.
	//
	// Returns:
	//   - string: the name of the material
	Name() string

	// BaseColor retrieves the RGBA multiplier of the albedo texture.
	//
	// Returns:
	//   - [4]float32: the base color as RGBA values
	BaseColor() [4]float32

	// Metallic retrieves the metallic factor of the material.
	// A value of 0.0 represents a dielectric surface, 1.0 represents a fully metallic surface.
	//
	// Returns:
	//   - float32: the metallic factor
	Metallic() float32

	// Roughness retrieves the roughness factor of the material.
	// A value of 0.0 represents a perfectly smooth surface, 1.0 represents a fully rough surface.
	//
	// Returns:
	//   - float32: the roughness factor
	Roughness() float32

	// Texture retrieves the texture in a slot, or nil if the slot is empty.
	//
	// Parameters:
	//   - slot: the texture slot
	//
	// Returns:
	//   - *renderer.Texture2D: the texture, or nil
	Texture(slot Slot) *renderer.Texture2D

	// Equal reports whether both materials bind the same textures in the same slots with the same factors.
	//
	// Parameters:
	//   - other: the material to compare with
	//
	// Returns:
	//   - bool: true if drawing with other needs no rebinding after this material
	Equal(other Material) bool

	// SortKey retrieves a key that is identical for equal materials. Sorting by it groups equal materials.
	//
	// Returns:
	//   - string: the sort key
	SortKey() string

	// Sync creates the parameter uniform and every texture of the material.
	//
	// Parameters:
	//   - b: the backend owning the device
	//
	// Returns:
	//   - error: a wrapped renderer error if a resource could not be created
	Sync(b renderer.Backend) error

	// Bind binds the parameter uniform and the slot textures to the given group.
	// Empty slots are bound to the fallback textures.
	//
	// Parameters:
	//   - enc: the pass encoder
	//   - group: the bind group index of the material resources
	//   - fallbacks: textures used for empty slots
	Bind(enc renderer.PassEncoder, group int, fallbacks *Fallbacks)

	// Release drops this material's reference to each texture and frees the parameter uniform.
	Release()
}

var _ Material = &material{}

// NewMaterial creates a new Material instance configured with the provided options.
//
// Parameters:
//   - options: variadic list of MaterialBuilderOption functions to configure the material
//
// Returns:
//   - Material: a new Material instance
func NewMaterial(options ...MaterialBuilderOption) Material {
	m := &material{
		baseColor: [4]float32{1, 1, 1, 1},
		metallic:  0.0,
		roughness: 1.0,
		textures:  make(map[Slot]*renderer.Texture2D),
	}
	for _, opt := range options {
		opt(m)
	}
	m.params = renderer.NewUniformBuffer(m.name+" material", GPUMaterialParams{
		BaseColor: m.baseColor,
		Metallic:  m.metallic,
		Roughness: m.roughness,
	})
	m.key = m.buildKey()
	return m
}

func (m *material) buildKey() string {
	slots := make([]Slot, 0, len(m.textures))
	for s := range m.textures {
		slots = append(slots, s)
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i] < slots[j] })

	var sb strings.Builder
	for _, s := range slots {
		fmt.Fprintf(&sb, "%d:%d|", s, m.textures[s].ID())
	}
	fmt.Fprintf(&sb, "%g,%g,%g,%g|%g|%g", m.baseColor[0], m.baseColor[1], m.baseColor[2], m.baseColor[3], m.metallic, m.roughness)
	return sb.String()
}

func (m *material) Name() string {
	return m.name
}

func (m *material) BaseColor() [4]float32 {
	return m.baseColor
}

func (m *material) Metallic() float32 {
	return m.metallic
}

func (m *material) Roughness() float32 {
	return m.roughness
}

func (m *material) Texture(slot Slot) *renderer.Texture2D {
	return m.textures[slot]
}

func (m *material) Equal(other Material) bool {
	if other == nil {
		return false
	}
	return m.key == other.SortKey()
}

func (m *material) SortKey() string {
	return m.key
}

func (m *material) Sync(b renderer.Backend) error {
	if err := m.params.Sync(b); err != nil {
		return err
	}
	for _, t := range m.textures {
		if err := t.Sync(b); err != nil {
			return err
		}
	}
	return nil
}

func (m *material) Bind(enc renderer.PassEncoder, group int, fallbacks *Fallbacks) {
	enc.SetBuffer(group, BindingParams, m.params.Buffer())
	for s := SlotAlbedo; s < slotCount; s++ {
		t := m.textures[s]
		if t == nil {
			t = fallbacks.For(s)
		}
		enc.SetTexture(group, BindingAlbedo+int(s), t.Texture())
	}
}

func (m *material) Release() {
	for _, t := range m.textures {
		t.Release()
	}
	m.params.Release()
}

// Fallbacks holds the 1x1 textures bound to empty material slots: white albedo,
// white metallic-roughness (the factors pass through) and a flat normal.
type Fallbacks struct {
	textures [slotCount]*renderer.Texture2D
}

// NewFallbacks describes the fallback textures. Nothing is allocated until Sync.
func NewFallbacks() *Fallbacks {
	solid := func(name string, format pipeline.TextureFormat, px common.TextureStagingData) *renderer.Texture2D {
		return renderer.NewTexture2D(name, px.Width, px.Height, format, renderer.TextureUsageSampled, renderer.WithPixels(px.Pixels))
	}
	return &Fallbacks{textures: [slotCount]*renderer.Texture2D{
		SlotAlbedo:            solid("fallback albedo", pipeline.FormatRGBA8UnormSrgb, common.SolidTexture(255, 255, 255, 255)),
		SlotMetallicRoughness: solid("fallback metallic roughness", pipeline.FormatRGBA8Unorm, common.SolidTexture(255, 255, 255, 255)),
		SlotNormal:            solid("fallback normal", pipeline.FormatRGBA8Unorm, common.SolidTexture(128, 128, 255, 255)),
	}}
}

// For returns the fallback texture of a slot.
func (f *Fallbacks) For(slot Slot) *renderer.Texture2D {
	return f.textures[slot]
}

// Sync creates the fallback textures.
func (f *Fallbacks) Sync(b renderer.Backend) error {
	for _, t := range f.textures {
		if err := t.Sync(b); err != nil {
			return err
		}
	}
	return nil
}

// Release frees the fallback textures.
func (f *Fallbacks) Release() {
	for _, t := range f.textures {
		t.Release()
	}
}
