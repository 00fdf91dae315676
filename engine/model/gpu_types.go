package model

import (
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// GPUVertex is the GPU representation of a single mesh vertex.
// Matches the WGSL VertexInput struct of the geometry shaders.
// Size: 56 bytes (tightly packed vertex attributes).
type GPUVertex struct {
	Position  [3]float32 // offset  0: position in model space
	Normal    [3]float32 // offset 12
	Tangent   [3]float32 // offset 24
	Bitangent [3]float32 // offset 36
	TexCoord  [2]float32 // offset 48
}

// VertexStride is the byte distance between consecutive vertices.
const VertexStride = 56

// Size returns the size of the GPUVertex struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g GPUVertex) Size() int {
	return int(unsafe.Sizeof(g))
}

// Marshal serializes the GPUVertex struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 56-byte buffer ready for GPU upload.
func (g GPUVertex) Marshal() []byte {
	buf := make([]byte, VertexStride)
	g.put(buf)
	return buf
}

func (g GPUVertex) put(buf []byte) {
	fields := [...]float32{
		g.Position[0], g.Position[1], g.Position[2],
		g.Normal[0], g.Normal[1], g.Normal[2],
		g.Tangent[0], g.Tangent[1], g.Tangent[2],
		g.Bitangent[0], g.Bitangent[1], g.Bitangent[2],
		g.TexCoord[0], g.TexCoord[1],
	}
	for i, f := range fields {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
}

// GPUModelData is the per-instance uniform of a drawable.
// Matches the WGSL ModelData struct: the world matrix and the matrix transforming normals.
// Size: 128 bytes (two mat4x4<f32>).
type GPUModelData struct {
	Model  [16]float32 // offset  0: model-to-world transform
	Normal [16]float32 // offset 64: inverse transpose of Model
}

// NewGPUModelData builds the instance uniform of a world transform.
// A singular world matrix gets an identity normal matrix.
//
// Parameters:
//   - world: the model-to-world transform
//
// Returns:
//   - GPUModelData: the uniform value
func NewGPUModelData(world mgl32.Mat4) GPUModelData {
	normal := mgl32.Ident4()
	if det := world.Det(); det > 1e-12 || det < -1e-12 {
		normal = world.Inv().Transpose()
	}
	return GPUModelData{Model: world, Normal: normal}
}

// Size returns the size of the GPUModelData struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g GPUModelData) Size() int {
	return int(unsafe.Sizeof(g))
}

// Marshal serializes the GPUModelData struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 128-byte buffer ready for GPU upload.
func (g GPUModelData) Marshal() []byte {
	buf := make([]byte, 128)
	for i := 0; i < 16; i++ {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(g.Model[i]))
		binary.LittleEndian.PutUint32(buf[64+i*4:], math.Float32bits(g.Normal[i]))
	}
	return buf
}
