package model

type meshConfig struct {
	computeTangents bool
}

// MeshBuilderOption is a function that configures a mesh during construction.
type MeshBuilderOption func(*Mesh, *meshConfig)

// WithName is an option builder that sets the mesh name.
//
// Parameters:
//   - name: the mesh identifier
//
// Returns:
//   - MeshBuilderOption: a function that applies the name option to a mesh
func WithName(name string) MeshBuilderOption {
	return func(m *Mesh, _ *meshConfig) {
		m.Name = name
	}
}

// WithGeometry is an option builder that sets the vertices and indices.
//
// Parameters:
//   - vertices: the mesh vertices
//   - indices: the triangle indices
//
// Returns:
//   - MeshBuilderOption: a function that applies the geometry option to a mesh
func WithGeometry(vertices []GPUVertex, indices []uint32) MeshBuilderOption {
	return func(m *Mesh, _ *meshConfig) {
		m.Vertices = vertices
		m.Indices = indices
	}
}

// WithComputedTangents is an option builder that derives tangents and bitangents
// from the texture coordinates once the geometry is set.
//
// Returns:
//   - MeshBuilderOption: a function that enables tangent generation
func WithComputedTangents() MeshBuilderOption {
	return func(_ *Mesh, cfg *meshConfig) {
		cfg.computeTangents = true
	}
}
