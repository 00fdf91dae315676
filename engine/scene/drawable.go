package scene

import (
	"fmt"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/theswiftfox/sparkle/engine/model"
	"github.com/theswiftfox/sparkle/engine/renderer"
	"github.com/theswiftfox/sparkle/engine/renderer/material"
)

// Bind groups shared by every program that draws scene geometry.
const (
	// MaterialGroup holds the material parameters, textures and sampler.
	MaterialGroup = 1
	// ModelGroup holds the per-drawable GPUModelData uniform.
	ModelGroup = 2
)

// ObjectClass tags a drawable for pass filtering.
type ObjectClass int

const (
	ClassOpaque ObjectClass = iota
	ClassTransparent
	// ClassAny matches every drawable. It is a query filter and never assigned to a drawable.
	ClassAny
)

func (c ObjectClass) String() string {
	switch c {
	case ClassOpaque:
		return "opaque"
	case ClassTransparent:
		return "transparent"
	case ClassAny:
		return "any"
	}
	return fmt.Sprintf("ObjectClass(%d)", int(c))
}

// Matches reports whether a drawable of class c passes the filter.
func (c ObjectClass) Matches(filter ObjectClass) bool {
	return filter == ClassAny || filter == c
}

// DrawableKind selects how a drawable is submitted.
type DrawableKind int

const (
	// KindMesh is scene geometry with a material and a world transform.
	KindMesh DrawableKind = iota
	// KindScreenQuad is the full-screen quad drawn by screen-space passes.
	KindScreenQuad
	// KindSky is the sky sphere, positioned by the view rotation alone.
	KindSky
)

func (k DrawableKind) String() string {
	switch k {
	case KindMesh:
		return "mesh"
	case KindScreenQuad:
		return "screen quad"
	case KindSky:
		return "sky"
	}
	return fmt.Sprintf("DrawableKind(%d)", int(k))
}

var nextDrawableID atomic.Uint64

// Drawable owns immutable geometry, and for meshes a material and a per-instance
// model uniform. It is destroyed with the node that owns it.
type Drawable struct {
	id       uint64
	kind     DrawableKind
	name     string
	class    ObjectClass
	mesh     *renderer.MeshBuffer
	material material.Material
	instance *renderer.UniformBuffer[model.GPUModelData]

	world    mgl32.Mat4
	hasWorld bool
}

// NewMesh creates a mesh drawable. The drawable takes ownership of mat; a nil
// material is replaced by a default one.
//
// Parameters:
//   - name: a debug name
//   - mesh: the geometry, validated before use
//   - mat: the material to shade with
//   - class: ClassOpaque or ClassTransparent
//
// Returns:
//   - *Drawable: the drawable
//   - error: ErrInvalidDrawable for bad geometry or a wildcard class
func NewMesh(name string, mesh *model.Mesh, mat material.Material, class ObjectClass) (*Drawable, error) {
	if class != ClassOpaque && class != ClassTransparent {
		return nil, fmt.Errorf("%w: %s has class %s", ErrInvalidDrawable, name, class)
	}
	if err := mesh.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDrawable, err)
	}
	if mat == nil {
		mat = material.NewMaterial(material.WithName(name))
	}
	return &Drawable{
		id:       nextDrawableID.Add(1),
		kind:     KindMesh,
		name:     name,
		class:    class,
		mesh:     renderer.NewMeshBuffer(name, mesh.VertexBytes(), mesh.Indices),
		material: mat,
		instance: renderer.NewUniformBuffer(name+" model", model.NewGPUModelData(mgl32.Ident4())),
		world:    mgl32.Ident4(),
	}, nil
}

// NewScreenQuad creates the quad covering the whole viewport.
func NewScreenQuad() *Drawable {
	quad := model.ScreenQuad()
	return &Drawable{
		id:    nextDrawableID.Add(1),
		kind:  KindScreenQuad,
		name:  quad.Name,
		class: ClassOpaque,
		mesh:  renderer.NewMeshBuffer(quad.Name, quad.VertexBytes(), quad.Indices),
		world: mgl32.Ident4(),
	}
}

// NewSky creates a unit UV sphere seen from inside.
//
// Parameters:
//   - lat, long: the number of latitude and longitude lines
func NewSky(lat, long int) *Drawable {
	sphere := model.UVSphere(lat, long, 1)
	return &Drawable{
		id:    nextDrawableID.Add(1),
		kind:  KindSky,
		name:  "sky",
		class: ClassOpaque,
		mesh:  renderer.NewMeshBuffer("sky", sphere.VertexBytes(), sphere.Indices),
		world: mgl32.Ident4(),
	}
}

// ID is process-unique.
func (d *Drawable) ID() uint64 {
	return d.id
}

func (d *Drawable) Kind() DrawableKind {
	return d.kind
}

func (d *Drawable) Name() string {
	return d.name
}

func (d *Drawable) Class() ObjectClass {
	return d.class
}

// Material returns the material, nil for screen quads and the sky.
func (d *Drawable) Material() material.Material {
	return d.material
}

// World returns the last world transform pushed by BuildMatrices.
func (d *Drawable) World() mgl32.Mat4 {
	return d.world
}

func (d *Drawable) IndexCount() uint32 {
	return d.mesh.IndexCount()
}

// SetWorld stages a new world transform. Unchanged transforms are not re-uploaded.
func (d *Drawable) SetWorld(world mgl32.Mat4) {
	if d.kind != KindMesh || (d.hasWorld && d.world == world) {
		return
	}
	d.world, d.hasWorld = world, true
	d.instance.Set(model.NewGPUModelData(world))
}

// Sync creates or refreshes every GPU resource of the drawable.
func (d *Drawable) Sync(b renderer.Backend) error {
	if err := d.mesh.Sync(b); err != nil {
		return err
	}
	if d.instance != nil {
		if err := d.instance.Sync(b); err != nil {
			return err
		}
	}
	if d.material != nil {
		return d.material.Sync(b)
	}
	return nil
}

// Draw issues one indexed draw. The material is bound only when bindMaterial is
// set; otherwise the bindings of the previous drawable stay in effect.
//
// Parameters:
//   - enc: the pass encoder, with the pass program already set
//   - bindMaterial: whether the material differs from the previous draw
//   - fallbacks: textures bound to empty material slots
func (d *Drawable) Draw(enc renderer.PassEncoder, bindMaterial bool, fallbacks *material.Fallbacks) {
	switch d.kind {
	case KindMesh:
		if bindMaterial {
			d.material.Bind(enc, MaterialGroup, fallbacks)
		}
		enc.SetBuffer(ModelGroup, 0, d.instance.Buffer())
	case KindScreenQuad, KindSky:
		// Positioned entirely by the pass uniforms.
	}
	d.mesh.Bind(enc)
	enc.DrawIndexed(d.mesh.IndexCount())
}

// Release frees the geometry, the model uniform and the material's texture references.
func (d *Drawable) Release() {
	d.mesh.Release()
	if d.instance != nil {
		d.instance.Release()
	}
	if d.material != nil {
		d.material.Release()
	}
}

// BatchPlan returns, for drawables already ordered by material, whether each
// draw must rebind its material: true at index 0 and wherever the material
// differs from the previous one.
//
// Parameters:
//   - materials: the material of each draw in submission order
//
// Returns:
//   - []bool: the rebind flag of each draw
func BatchPlan(materials []material.Material) []bool {
	plan := make([]bool, len(materials))
	for i, m := range materials {
		if i == 0 {
			plan[i] = true
			continue
		}
		prev := materials[i-1]
		switch {
		case m == nil || prev == nil:
			plan[i] = m != prev
		default:
			plan[i] = !m.Equal(prev)
		}
	}
	return plan
}
