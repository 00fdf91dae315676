package model_test

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/theswiftfox/sparkle/engine/model"
)

// assertOutwardWinding checks that every non-degenerate triangle is
// counter-clockwise when seen from outside the origin-centred mesh.
func assertOutwardWinding(t *testing.T, m *model.Mesh) {
	t.Helper()
	for i := 0; i < len(m.Indices); i += 3 {
		p0 := mgl32.Vec3(m.Vertices[m.Indices[i]].Position)
		p1 := mgl32.Vec3(m.Vertices[m.Indices[i+1]].Position)
		p2 := mgl32.Vec3(m.Vertices[m.Indices[i+2]].Position)
		n := p1.Sub(p0).Cross(p2.Sub(p0))
		if n.Len() < 1e-6 {
			continue
		}
		centre := p0.Add(p1).Add(p2).Mul(1.0 / 3)
		require.Greater(t, n.Dot(centre), float32(0), "triangle %d faces inward", i/3)
	}
}

func TestCube(t *testing.T) {
	c := model.Cube(2)
	require.NoError(t, c.Validate())
	assert.Len(t, c.Vertices, 24)
	assert.Len(t, c.Indices, 36)
	assert.InDelta(t, mgl32.Vec3{1, 1, 1}.Len(), c.BoundingRadius(), 1e-5)
	assertOutwardWinding(t, c)

	for _, v := range c.Vertices {
		p, n := mgl32.Vec3(v.Position), mgl32.Vec3(v.Normal)
		assert.InDelta(t, 1, p.Dot(n), 1e-5, "normal points away from the centre")
		assert.InDelta(t, 0, n.Dot(v.Tangent), 1e-5)
		assert.InDelta(t, 1, mgl32.Vec3(v.Tangent).Len(), 1e-5)
	}

	front := c.Vertices[16]
	require.Equal(t, [3]float32{0, 0, 1}, front.Normal)
	assert.InDeltaSlice(t, []float32{1, 0, 0}, front.Tangent[:], 1e-5)
	assert.InDeltaSlice(t, []float32{0, -1, 0}, front.Bitangent[:], 1e-5, "v runs down the face")
}

func TestUVSphere(t *testing.T) {
	s := model.UVSphere(24, 48, 1)
	require.NoError(t, s.Validate())
	assert.Len(t, s.Vertices, 25*49)
	assert.Len(t, s.Indices, 24*48*6)
	assert.InDelta(t, 1, s.BoundingRadius(), 1e-5)
	assertOutwardWinding(t, s)
}

func TestPlaneFacesUp(t *testing.T) {
	p := model.Plane(4)
	require.NoError(t, p.Validate())
	assert.Len(t, p.Vertices, 4)
	assert.InDelta(t, mgl32.Vec2{2, 2}.Len(), p.BoundingRadius(), 1e-5)
	for i := 0; i < len(p.Indices); i += 3 {
		p0 := mgl32.Vec3(p.Vertices[p.Indices[i]].Position)
		p1 := mgl32.Vec3(p.Vertices[p.Indices[i+1]].Position)
		p2 := mgl32.Vec3(p.Vertices[p.Indices[i+2]].Position)
		assert.Greater(t, p1.Sub(p0).Cross(p2.Sub(p0)).Y(), float32(0), "triangle %d", i/3)
	}
	for _, v := range p.Vertices {
		assert.InDelta(t, 1, mgl32.Vec3(v.Tangent).Len(), 1e-5)
	}
}

func TestScreenQuad(t *testing.T) {
	q := model.ScreenQuad()
	require.NoError(t, q.Validate())
	assert.Equal(t, []uint32{2, 1, 0, 1, 2, 3}, q.Indices)
	assert.Equal(t, [2]float32{0, 0}, q.Vertices[2].TexCoord, "top-left")
}

func TestValidate(t *testing.T) {
	assert.ErrorIs(t, (&model.Mesh{}).Validate(), model.ErrInvalidMesh)

	m := model.NewMesh(model.WithName("bad"), model.WithGeometry(make([]model.GPUVertex, 3), []uint32{0, 1, 3}))
	assert.ErrorIs(t, m.Validate(), model.ErrInvalidMesh)

	m = model.NewMesh(model.WithGeometry(make([]model.GPUVertex, 3), []uint32{0, 1}))
	assert.ErrorIs(t, m.Validate(), model.ErrInvalidMesh)
}

func TestNewMeshComputesTangents(t *testing.T) {
	vertices := []model.GPUVertex{
		{Position: [3]float32{0, 0, 0}, Normal: [3]float32{0, 0, 1}, TexCoord: [2]float32{0, 1}},
		{Position: [3]float32{1, 0, 0}, Normal: [3]float32{0, 0, 1}, TexCoord: [2]float32{1, 1}},
		{Position: [3]float32{0, 1, 0}, Normal: [3]float32{0, 0, 1}, TexCoord: [2]float32{0, 0}},
	}
	m := model.NewMesh(model.WithGeometry(vertices, []uint32{0, 1, 2}), model.WithComputedTangents())
	for _, v := range m.Vertices {
		assert.InDeltaSlice(t, []float32{1, 0, 0}, v.Tangent[:], 1e-5)
	}
}

func TestVertexLayout(t *testing.T) {
	v := model.GPUVertex{Position: [3]float32{1, 2, 3}, TexCoord: [2]float32{4, 5}}
	assert.Equal(t, model.VertexStride, v.Size())
	assert.Len(t, v.Marshal(), model.VertexStride)

	m := model.NewMesh(model.WithGeometry([]model.GPUVertex{v, v}, []uint32{0, 1, 0}))
	data := m.VertexBytes()
	require.Len(t, data, 2*model.VertexStride)
	assert.Equal(t, v.Marshal(), data[model.VertexStride:])
}

func TestGPUModelData(t *testing.T) {
	d := model.NewGPUModelData(mgl32.Ident4())
	assert.Equal(t, [16]float32(mgl32.Ident4()), d.Normal)
	assert.Equal(t, 128, d.Size())
	assert.Len(t, d.Marshal(), 128)

	scaled := model.NewGPUModelData(mgl32.Scale3D(2, 2, 2))
	assert.InDelta(t, 0.5, scaled.Normal[0], 1e-6)

	singular := model.NewGPUModelData(mgl32.Scale3D(0, 1, 1))
	assert.Equal(t, [16]float32(mgl32.Ident4()), singular.Normal)
}
