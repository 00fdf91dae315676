package model

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"
)

// ErrInvalidMesh is returned by Validate for meshes that cannot be uploaded.
var ErrInvalidMesh = errors.New("invalid mesh")

// Mesh is immutable triangle-list geometry with 32-bit indices.
type Mesh struct {
	// Name is the mesh identifier.
	Name string

	// Vertices are the mesh vertices.
	Vertices []GPUVertex

	// Indices are the triangle indices, three per triangle.
	Indices []uint32
}

// Validate checks that the mesh has triangles and every index is in range.
func (m *Mesh) Validate() error {
	if len(m.Vertices) == 0 || len(m.Indices) == 0 {
		return fmt.Errorf("%w: %s has no geometry", ErrInvalidMesh, m.Name)
	}
	if len(m.Indices)%3 != 0 {
		return fmt.Errorf("%w: %s has %d indices, not a multiple of 3", ErrInvalidMesh, m.Name, len(m.Indices))
	}
	for _, i := range m.Indices {
		if int(i) >= len(m.Vertices) {
			return fmt.Errorf("%w: %s index %d out of range (%d vertices)", ErrInvalidMesh, m.Name, i, len(m.Vertices))
		}
	}
	return nil
}

// VertexBytes returns the marshalled vertex data.
func (m *Mesh) VertexBytes() []byte {
	buf := make([]byte, len(m.Vertices)*VertexStride)
	for i, v := range m.Vertices {
		v.put(buf[i*VertexStride:])
	}
	return buf
}

// BoundingRadius returns the largest distance of a vertex from the origin.
func (m *Mesh) BoundingRadius() float32 {
	var maxDistSq float32
	for _, v := range m.Vertices {
		p := v.Position
		maxDistSq = max(maxDistSq, p[0]*p[0]+p[1]*p[1]+p[2]*p[2])
	}
	return math32.Sqrt(maxDistSq)
}
