package scene_test

import (
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/theswiftfox/sparkle/engine/light"
	"github.com/theswiftfox/sparkle/engine/model"
	"github.com/theswiftfox/sparkle/engine/renderer"
	"github.com/theswiftfox/sparkle/engine/renderer/material"
	"github.com/theswiftfox/sparkle/engine/renderer/renderertest"
	"github.com/theswiftfox/sparkle/engine/scene"
)

// drawRecorder is a PassEncoder that remembers which meshes were drawn and how
// often a material was bound.
type drawRecorder struct {
	vertex        string
	draws         []string
	materialBinds int
}

func (r *drawRecorder) SetProgram(renderer.Program) {}
func (r *drawRecorder) SetBuffer(group, binding int, _ renderer.Buffer) {
	if group == scene.MaterialGroup && binding == material.BindingParams {
		r.materialBinds++
	}
}
func (r *drawRecorder) SetTexture(int, int, renderer.Texture) {}
func (r *drawRecorder) SetSampler(int, int, renderer.Sampler) {}
func (r *drawRecorder) SetVertexBuffer(b renderer.Buffer) {
	r.vertex = strings.TrimSuffix(b.(*renderertest.Buffer).Label, " vertices")
}
func (r *drawRecorder) SetIndexBuffer(renderer.Buffer) {}
func (r *drawRecorder) DrawIndexed(uint32) {
	r.draws = append(r.draws, r.vertex)
}
func (r *drawRecorder) End() error { return nil }

func newBackend(t *testing.T) (renderer.Backend, *renderertest.Driver) {
	t.Helper()
	drv := renderertest.New()
	b := renderer.NewBackend(drv)
	require.NoError(t, b.Initialize("window", 640, 480))
	return b, drv
}

func cube(t *testing.T, name string, mat material.Material, class scene.ObjectClass) *scene.Drawable {
	t.Helper()
	d, err := scene.NewMesh(name, model.Cube(1), mat, class)
	require.NoError(t, err)
	return d
}

// assertMatNear compares matrices component-wise with an absolute tolerance.
func assertMatNear(t *testing.T, want, got mgl32.Mat4) {
	t.Helper()
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-4, "component %d", i)
	}
}

func TestTransformComposition(t *testing.T) {
	b, _ := newBackend(t)
	s := scene.NewScene()

	a := mgl32.Translate3D(1, 2, 3)
	bm := mgl32.HomogRotate3DY(0.7)
	c := mgl32.Scale3D(2, 2, 2).Mul4(mgl32.Translate3D(0, 1, 0))
	leaf := cube(t, "leaf", nil, scene.ClassOpaque)

	_, err := s.SetRoot(&scene.NodeRecord{
		Name:  "a",
		Local: a,
		Children: []*scene.NodeRecord{{
			Name:  "b",
			Local: bm,
			Children: []*scene.NodeRecord{{
				Name:      "c",
				Local:     c,
				Drawables: []*scene.Drawable{leaf},
			}},
		}},
	})
	require.NoError(t, err)
	require.NoError(t, s.BuildMatrices(b))

	want := a.Mul4(bm).Mul4(c)
	id, err := s.NodeNamed("c")
	require.NoError(t, err)
	world, err := s.World(id)
	require.NoError(t, err)
	assertMatNear(t, want, world)
	assertMatNear(t, want, leaf.World())

	// Moving an ancestor moves the leaf after the next rebuild.
	root, err := s.Root()
	require.NoError(t, err)
	require.NoError(t, s.Translate(root, mgl32.Vec3{0, 0, -5}))
	require.NoError(t, s.BuildMatrices(b))
	want = a.Mul4(mgl32.Translate3D(0, 0, -5)).Mul4(bm).Mul4(c)
	assertMatNear(t, want, leaf.World())
}

func TestBuildMatricesUploadsModelUniform(t *testing.T) {
	b, drv := newBackend(t)
	s := scene.NewScene()
	_, err := s.SetRoot(&scene.NodeRecord{
		Name:      "box",
		Local:     mgl32.Translate3D(4, 0, 0),
		Drawables: []*scene.Drawable{cube(t, "box", nil, scene.ClassOpaque)},
	})
	require.NoError(t, err)
	require.NoError(t, s.BuildMatrices(b))
	require.NoError(t, s.BuildMatrices(b))

	bufs := drv.BuffersLabelled("box model")
	require.Len(t, bufs, 1)
	assert.Equal(t, 1, bufs[0].Writes, "unchanged transforms are uploaded once")
	assert.Len(t, bufs[0].Data, model.GPUModelData{}.Size())
}

func TestDuplicateSiblingName(t *testing.T) {
	s := scene.NewScene()
	root, err := s.SetRoot(&scene.NodeRecord{Name: "root"})
	require.NoError(t, err)

	first, err := s.AddChild(root, &scene.NodeRecord{Name: "lamp", Local: mgl32.Translate3D(1, 0, 0)})
	require.NoError(t, err)

	_, err = s.AddChild(root, &scene.NodeRecord{Name: "lamp", Local: mgl32.Translate3D(9, 9, 9)})
	require.ErrorIs(t, err, scene.ErrDuplicateName)

	local, err := s.Local(first)
	require.NoError(t, err)
	assert.Equal(t, mgl32.Translate3D(1, 0, 0), local, "existing child untouched")
	children, err := s.Children(root)
	require.NoError(t, err)
	assert.Len(t, children, 1)

	// The same name below another parent is fine.
	_, err = s.AddChild(first, &scene.NodeRecord{Name: "lamp"})
	assert.NoError(t, err)

	// Anonymous siblings never clash.
	_, err = s.AddChild(root, &scene.NodeRecord{})
	require.NoError(t, err)
	_, err = s.AddChild(root, &scene.NodeRecord{})
	require.NoError(t, err)
	assert.Equal(t, 5, s.Len())
}

func TestSetRootRejectsDuplicatesAndKeepsTree(t *testing.T) {
	s := scene.NewScene()
	_, err := s.SetRoot(&scene.NodeRecord{Name: "level", Children: []*scene.NodeRecord{{Name: "floor"}}})
	require.NoError(t, err)

	_, err = s.SetRoot(&scene.NodeRecord{Name: "other", Children: []*scene.NodeRecord{{Name: "x"}, {Name: "x"}}})
	require.ErrorIs(t, err, scene.ErrDuplicateName)

	_, err = s.NodeNamed("floor")
	assert.NoError(t, err, "previous tree intact")
	assert.Equal(t, 2, s.Len())
}

func TestSetRootRejectsNilEntries(t *testing.T) {
	s := scene.NewScene()
	_, err := s.SetRoot(&scene.NodeRecord{Name: "level", Children: []*scene.NodeRecord{{Name: "floor"}}})
	require.NoError(t, err)

	_, err = s.SetRoot(&scene.NodeRecord{Name: "root", Children: []*scene.NodeRecord{nil}})
	assert.ErrorIs(t, err, scene.ErrInvalidRecord)
	_, err = s.SetRoot(&scene.NodeRecord{Name: "root", Children: []*scene.NodeRecord{{Name: "a", Drawables: []*scene.Drawable{nil}}}})
	assert.ErrorIs(t, err, scene.ErrInvalidDrawable)

	root, err := s.Root()
	require.NoError(t, err)
	_, err = s.AddChild(root, &scene.NodeRecord{Name: "b", Children: []*scene.NodeRecord{nil}})
	assert.ErrorIs(t, err, scene.ErrInvalidRecord)

	_, err = s.NodeNamed("floor")
	assert.NoError(t, err, "the previous tree is kept")
	assert.Equal(t, 2, s.Len())
}

func TestDrawClassFiltering(t *testing.T) {
	b, _ := newBackend(t)
	s := scene.NewScene()
	_, err := s.SetRoot(&scene.NodeRecord{
		Name:      "root",
		Drawables: []*scene.Drawable{cube(t, "wall", nil, scene.ClassOpaque)},
		Children: []*scene.NodeRecord{
			{Name: "glass", Drawables: []*scene.Drawable{cube(t, "glass", nil, scene.ClassTransparent)}},
			{Name: "floor", Drawables: []*scene.Drawable{cube(t, "floor", nil, scene.ClassOpaque)}},
		},
	})
	require.NoError(t, err)
	require.NoError(t, s.BuildMatrices(b))

	opaque := &drawRecorder{}
	assert.Equal(t, 2, s.Draw(opaque, scene.ClassOpaque))
	assert.ElementsMatch(t, []string{"wall", "floor"}, opaque.draws)
	assert.NotContains(t, opaque.draws, "glass")

	transparent := &drawRecorder{}
	assert.Equal(t, 1, s.Draw(transparent, scene.ClassTransparent))
	assert.Equal(t, []string{"glass"}, transparent.draws)

	all := &drawRecorder{}
	assert.Equal(t, 3, s.Draw(all, scene.ClassAny))
	assert.ElementsMatch(t, []string{"wall", "glass", "floor"}, all.draws)
}

func TestDrawBatchesByMaterial(t *testing.T) {
	b, _ := newBackend(t)
	s := scene.NewScene()
	red := func() material.Material {
		return material.NewMaterial(material.WithBaseColor([4]float32{1, 0, 0, 1}))
	}
	_, err := s.SetRoot(&scene.NodeRecord{
		Name: "root",
		Children: []*scene.NodeRecord{
			{Name: "a", Drawables: []*scene.Drawable{cube(t, "plain1", material.NewMaterial(), scene.ClassOpaque)}},
			{Name: "b", Drawables: []*scene.Drawable{cube(t, "red1", red(), scene.ClassOpaque)}},
			{Name: "c", Drawables: []*scene.Drawable{cube(t, "plain2", material.NewMaterial(), scene.ClassOpaque)}},
			{Name: "d", Drawables: []*scene.Drawable{cube(t, "red2", red(), scene.ClassOpaque)}},
		},
	})
	require.NoError(t, err)
	require.NoError(t, s.BuildMatrices(b))

	rec := &drawRecorder{}
	require.Equal(t, 4, s.Draw(rec, scene.ClassAny))
	assert.Equal(t, 2, rec.materialBinds, "one bind per distinct material")

	// Equal materials are adjacent and keep their traversal order.
	plain := strings.Join(rec.draws, ",")
	assert.True(t, strings.Contains(plain, "plain1,plain2") && strings.Contains(plain, "red1,red2"), plain)
}

func TestBatchPlan(t *testing.T) {
	a1 := material.NewMaterial()
	a2 := material.NewMaterial(material.WithName("same factors"))
	bm := material.NewMaterial(material.WithRoughness(0.2))

	assert.Equal(t, []bool{true, false, true, false, true}, scene.BatchPlan([]material.Material{a1, a2, bm, bm, a1}))
	assert.Equal(t, []bool{true}, scene.BatchPlan([]material.Material{bm}))
	assert.Empty(t, scene.BatchPlan(nil))
	assert.Equal(t, []bool{true, false, true}, scene.BatchPlan([]material.Material{nil, nil, a1}))
}

func TestClearReleasesEverything(t *testing.T) {
	b, drv := newBackend(t)
	s := scene.NewScene()
	root, err := s.SetRoot(&scene.NodeRecord{
		Name:      "root",
		Drawables: []*scene.Drawable{cube(t, "box", nil, scene.ClassOpaque)},
		Children:  []*scene.NodeRecord{{Name: "child"}},
	})
	require.NoError(t, err)
	require.NoError(t, s.BuildMatrices(b))

	s.Clear()

	for _, name := range []string{"root", "child"} {
		_, err := s.NodeNamed(name)
		assert.ErrorIs(t, err, scene.ErrNotFound, name)
	}
	_, err = s.Root()
	assert.ErrorIs(t, err, scene.ErrEmptyGraph)
	assert.ErrorIs(t, s.BuildMatrices(b), scene.ErrEmptyGraph)
	_, err = s.World(root)
	assert.ErrorIs(t, err, scene.ErrNotFound, "stale ID")
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 0, s.Draw(&drawRecorder{}, scene.ClassAny))

	for _, label := range []string{"box vertices", "box indices", "box model"} {
		bufs := drv.BuffersLabelled(label)
		require.Len(t, bufs, 1, label)
		assert.True(t, bufs[0].Released, label)
	}
}

func TestRemoveNode(t *testing.T) {
	s := scene.NewScene()
	root, err := s.SetRoot(&scene.NodeRecord{
		Name: "root",
		Children: []*scene.NodeRecord{
			{Name: "keep"},
			{Name: "drop", Children: []*scene.NodeRecord{{Name: "grandchild"}}},
		},
	})
	require.NoError(t, err)
	drop, err := s.NodeNamed("drop")
	require.NoError(t, err)

	require.NoError(t, s.RemoveNodeNamed("drop"))
	_, err = s.NodeNamed("grandchild")
	assert.ErrorIs(t, err, scene.ErrNotFound)
	assert.ErrorIs(t, s.RemoveNode(drop), scene.ErrNotFound)
	assert.ErrorIs(t, s.RemoveNodeNamed("drop"), scene.ErrNotFound)
	assert.Equal(t, 2, s.Len())

	// A reused slot does not revive the stale ID.
	fresh, err := s.AddChild(root, &scene.NodeRecord{Name: "fresh"})
	require.NoError(t, err)
	assert.NotEqual(t, drop, fresh)
	_, err = s.NodeName(drop)
	assert.ErrorIs(t, err, scene.ErrNotFound)

	require.NoError(t, s.RemoveNode(root))
	_, err = s.Root()
	assert.ErrorIs(t, err, scene.ErrEmptyGraph)
}

func TestTraverseAndDrawablesNamed(t *testing.T) {
	s := scene.NewScene()
	_, err := s.Traverse()
	require.ErrorIs(t, err, scene.ErrEmptyGraph)

	box := cube(t, "box", nil, scene.ClassOpaque)
	_, err = s.SetRoot(&scene.NodeRecord{
		Name: "root",
		Children: []*scene.NodeRecord{
			{Name: "a", Children: []*scene.NodeRecord{{Name: "a1", Drawables: []*scene.Drawable{box}}}},
			{Name: "b"},
		},
	})
	require.NoError(t, err)

	ids, err := s.Traverse()
	require.NoError(t, err)
	var names []string
	for _, id := range ids {
		n, err := s.NodeName(id)
		require.NoError(t, err)
		names = append(names, n)
	}
	assert.Equal(t, []string{"root", "a", "a1", "b"}, names)

	ds, err := s.DrawablesNamed("a1")
	require.NoError(t, err)
	assert.Equal(t, []*scene.Drawable{box}, ds)
	_, err = s.DrawablesNamed("missing")
	assert.ErrorIs(t, err, scene.ErrNotFound)
}

func TestNodeTransformHelpers(t *testing.T) {
	s := scene.NewScene()
	root, err := s.SetRoot(&scene.NodeRecord{Name: "root"})
	require.NoError(t, err)

	local, err := s.Local(root)
	require.NoError(t, err)
	assert.Equal(t, mgl32.Ident4(), local, "zero local means identity")

	require.NoError(t, s.Scale(root, 2))
	require.NoError(t, s.Translate(root, mgl32.Vec3{1, 0, 0}))
	local, err = s.Local(root)
	require.NoError(t, err)
	p := local.Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	assert.InDelta(t, 2, p.X(), 1e-6, "translation is scaled by the earlier scale")

	require.NoError(t, s.SetLocal(root, mgl32.Ident4()))
	require.NoError(t, s.Rotate(root, mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 1, 0})))
	local, err = s.Local(root)
	require.NoError(t, err)
	x := local.Mul4x1(mgl32.Vec4{1, 0, 0, 0})
	assert.InDelta(t, -1, x.Z(), 1e-6)
}

func TestLights(t *testing.T) {
	ambient := light.NewLight(light.LightTypeAmbient)
	s := scene.NewScene(scene.WithLights(ambient))
	sun := light.NewLight(light.LightTypeDirectional)
	s.AddLight(sun)
	assert.Equal(t, []light.Light{ambient, sun}, s.Lights())

	lamp := light.NewLight(light.LightTypeArea)
	require.NoError(t, s.UpdateLight(lamp, 1))
	assert.Equal(t, lamp, s.Lights()[1])
	assert.ErrorIs(t, s.UpdateLight(lamp, 2), scene.ErrNotFound)
	assert.ErrorIs(t, s.UpdateLight(lamp, -1), scene.ErrNotFound)
}

func TestDrawableVariants(t *testing.T) {
	_, err := scene.NewMesh("wild", model.Cube(1), nil, scene.ClassAny)
	assert.ErrorIs(t, err, scene.ErrInvalidDrawable)
	_, err = scene.NewMesh("empty", &model.Mesh{Name: "empty"}, nil, scene.ClassOpaque)
	assert.ErrorIs(t, err, scene.ErrInvalidDrawable)

	quad := scene.NewScreenQuad()
	assert.Equal(t, scene.KindScreenQuad, quad.Kind())
	assert.Equal(t, uint32(6), quad.IndexCount())
	assert.Nil(t, quad.Material())

	sky := scene.NewSky(24, 48)
	assert.Equal(t, scene.KindSky, sky.Kind())
	assert.NotEqual(t, quad.ID(), sky.ID())

	box := cube(t, "box", nil, scene.ClassOpaque)
	assert.Equal(t, scene.KindMesh, box.Kind())
	require.NotNil(t, box.Material(), "default material")

	b, _ := newBackend(t)
	require.NoError(t, sky.Sync(b))
	rec := &drawRecorder{}
	sky.Draw(rec, true, nil)
	assert.Equal(t, []string{"sky"}, rec.draws)
	assert.Zero(t, rec.materialBinds)
}
