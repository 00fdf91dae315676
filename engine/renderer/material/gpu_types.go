package material

import (
	"encoding/binary"
	"math"
	"unsafe"
)

// GPUMaterialParams is the GPU-aligned uniform holding the material factors.
// Matches the WGSL MaterialParams struct declared by the gbuffer and forward shaders.
// Size: 32 bytes (two vec4<f32>).
type GPUMaterialParams struct {
	BaseColor [4]float32 // offset 0: RGBA multiplier applied to the albedo texture
	Metallic  float32    // offset 16
	Roughness float32    // offset 20
	_         [2]float32 // offset 24: padding to 32 bytes
}

// Size returns the size of the GPUMaterialParams struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g GPUMaterialParams) Size() int {
	return int(unsafe.Sizeof(g))
}

// Marshal serializes the GPUMaterialParams struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 32-byte buffer ready for GPU upload.
func (g GPUMaterialParams) Marshal() []byte {
	buf := make([]byte, 32)
	for i, c := range g.BaseColor {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(c))
	}
	binary.LittleEndian.PutUint32(buf[16:20], math.Float32bits(g.Metallic))
	binary.LittleEndian.PutUint32(buf[20:24], math.Float32bits(g.Roughness))
	return buf
}
