package model

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// ScreenQuadIndices is the index order of the full-screen quad.
var ScreenQuadIndices = []uint32{2, 1, 0, 1, 2, 3}

// NewMesh creates a Mesh configured with the provided options.
//
// Parameters:
//   - options: variadic list of MeshBuilderOption functions to configure the mesh
//
// Returns:
//   - *Mesh: the mesh
func NewMesh(options ...MeshBuilderOption) *Mesh {
	m := &Mesh{}
	cfg := meshConfig{}
	for _, opt := range options {
		opt(m, &cfg)
	}
	if cfg.computeTangents {
		ComputeTangents(m)
	}
	return m
}

// Cube returns an axis-aligned cube centred on the origin with outward facing,
// counter-clockwise triangles and one UV square per face.
//
// Parameters:
//   - size: the edge length
//
// Returns:
//   - *Mesh: 24 vertices and 36 indices
func Cube(size float32) *Mesh {
	h := size / 2
	faces := [6][3]mgl32.Vec3{
		{{1, 0, 0}, {0, 0, -1}, {0, 1, 0}},
		{{-1, 0, 0}, {0, 0, 1}, {0, 1, 0}},
		{{0, 1, 0}, {1, 0, 0}, {0, 0, -1}},
		{{0, -1, 0}, {1, 0, 0}, {0, 0, 1}},
		{{0, 0, 1}, {1, 0, 0}, {0, 1, 0}},
		{{0, 0, -1}, {-1, 0, 0}, {0, 1, 0}},
	}
	corners := [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}

	m := &Mesh{
		Name:     "cube",
		Vertices: make([]GPUVertex, 0, 24),
		Indices:  make([]uint32, 0, 36),
	}
	for _, f := range faces {
		n, u, v := f[0], f[1], f[2]
		base := uint32(len(m.Vertices))
		for _, c := range corners {
			p := n.Add(u.Mul(c[0])).Add(v.Mul(c[1])).Mul(h)
			m.Vertices = append(m.Vertices, GPUVertex{
				Position: p,
				Normal:   n,
				TexCoord: [2]float32{(c[0] + 1) / 2, (1 - c[1]) / 2},
			})
		}
		m.Indices = append(m.Indices, base, base+1, base+2, base, base+2, base+3)
	}
	ComputeTangents(m)
	return m
}

// Plane returns a square in the XZ plane centred on the origin, facing +Y.
func Plane(size float32) *Mesh {
	h := size / 2
	corners := [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}
	m := &Mesh{
		Name:     "plane",
		Vertices: make([]GPUVertex, 0, 4),
		Indices:  []uint32{0, 1, 2, 0, 2, 3},
	}
	for _, c := range corners {
		m.Vertices = append(m.Vertices, GPUVertex{
			Position: [3]float32{c[0] * h, 0, -c[1] * h},
			Normal:   [3]float32{0, 1, 0},
			TexCoord: [2]float32{(c[0] + 1) / 2, (1 - c[1]) / 2},
		})
	}
	ComputeTangents(m)
	return m
}

// UVSphere returns a sphere of latitude rings and longitude segments. The seam
// column is duplicated so texture coordinates wrap cleanly.
//
// Parameters:
//   - lat: number of latitude bands, at least 2
//   - long: number of longitude segments, at least 3
//   - radius: the sphere radius
//
// Returns:
//   - *Mesh: (lat+1)*(long+1) vertices and lat*long*6 indices
func UVSphere(lat, long int, radius float32) *Mesh {
	lat, long = max(lat, 2), max(long, 3)
	m := &Mesh{
		Name:     "sphere",
		Vertices: make([]GPUVertex, 0, (lat+1)*(long+1)),
		Indices:  make([]uint32, 0, lat*long*6),
	}
	for i := 0; i <= lat; i++ {
		theta := float32(i) * math32.Pi / float32(lat)
		sinT, cosT := math32.Sincos(theta)
		for j := 0; j <= long; j++ {
			phi := float32(j) * 2 * math32.Pi / float32(long)
			sinP, cosP := math32.Sincos(phi)
			n := mgl32.Vec3{sinT * cosP, cosT, sinT * sinP}
			m.Vertices = append(m.Vertices, GPUVertex{
				Position:  n.Mul(radius),
				Normal:    n,
				Tangent:   mgl32.Vec3{-sinP, 0, cosP},
				Bitangent: mgl32.Vec3{cosT * cosP, -sinT, cosT * sinP},
				TexCoord:  [2]float32{float32(j) / float32(long), float32(i) / float32(lat)},
			})
		}
	}
	row := uint32(long + 1)
	for i := 0; i < lat; i++ {
		for j := 0; j < long; j++ {
			a := uint32(i)*row + uint32(j)
			b := a + row
			m.Indices = append(m.Indices, a, a+1, b, a+1, b+1, b)
		}
	}
	return m
}

// ScreenQuad returns the full-screen quad in normalised device coordinates
// with texture coordinates addressing the output top-left first.
func ScreenQuad() *Mesh {
	return &Mesh{
		Name: "screen quad",
		Vertices: []GPUVertex{
			{Position: [3]float32{-1, -1, 0}, Normal: [3]float32{0, 0, 1}, TexCoord: [2]float32{0, 1}},
			{Position: [3]float32{1, -1, 0}, Normal: [3]float32{0, 0, 1}, TexCoord: [2]float32{1, 1}},
			{Position: [3]float32{-1, 1, 0}, Normal: [3]float32{0, 0, 1}, TexCoord: [2]float32{0, 0}},
			{Position: [3]float32{1, 1, 0}, Normal: [3]float32{0, 0, 1}, TexCoord: [2]float32{1, 0}},
		},
		Indices: append([]uint32(nil), ScreenQuadIndices...),
	}
}

// ComputeTangents fills tangents and bitangents from positions and texture
// coordinates, accumulated per triangle and orthogonalised against the normal.
// Triangles with degenerate UVs contribute nothing.
func ComputeTangents(m *Mesh) {
	tan := make([]mgl32.Vec3, len(m.Vertices))
	bit := make([]mgl32.Vec3, len(m.Vertices))
	for t := 0; t+2 < len(m.Indices); t += 3 {
		i0, i1, i2 := m.Indices[t], m.Indices[t+1], m.Indices[t+2]
		v0, v1, v2 := m.Vertices[i0], m.Vertices[i1], m.Vertices[i2]
		e1 := mgl32.Vec3(v1.Position).Sub(v0.Position)
		e2 := mgl32.Vec3(v2.Position).Sub(v0.Position)
		du1, dv1 := v1.TexCoord[0]-v0.TexCoord[0], v1.TexCoord[1]-v0.TexCoord[1]
		du2, dv2 := v2.TexCoord[0]-v0.TexCoord[0], v2.TexCoord[1]-v0.TexCoord[1]
		det := du1*dv2 - du2*dv1
		if math32.Abs(det) < 1e-8 {
			continue
		}
		r := 1 / det
		t3 := e1.Mul(dv2).Sub(e2.Mul(dv1)).Mul(r)
		b3 := e2.Mul(du1).Sub(e1.Mul(du2)).Mul(r)
		for _, i := range [3]uint32{i0, i1, i2} {
			tan[i] = tan[i].Add(t3)
			bit[i] = bit[i].Add(b3)
		}
	}
	for i := range m.Vertices {
		n := mgl32.Vec3(m.Vertices[i].Normal)
		t := tan[i].Sub(n.Mul(n.Dot(tan[i])))
		if t.Len() < 1e-8 {
			continue
		}
		t = t.Normalize()
		b := n.Cross(t)
		if b.Dot(bit[i]) < 0 {
			b = b.Mul(-1)
		}
		m.Vertices[i].Tangent = t
		m.Vertices[i].Bitangent = b
	}
}
