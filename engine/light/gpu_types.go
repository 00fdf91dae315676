package light

import (
	"encoding/binary"
	"math"
	"unsafe"
)

// GPULight is the GPU-aligned representation of a single light source.
// Matches the WGSL Light struct of the lighting shaders.
// Size: 64 bytes (four vec4-sized rows).
type GPULight struct {
	Position    [3]float32 // offset  0: world-space position (area lights)
	LightType   uint32     // offset 12: 0 = ambient, 1 = directional, 2 = area
	Color       [3]float32 // offset 16: RGB color
	Intensity   float32    // offset 28: scalar multiplier
	Direction   [3]float32 // offset 32: normalized direction the light travels
	Radius      float32    // offset 44: attenuation cutoff distance
	CastsShadow uint32     // offset 48: 1 = shadow map is valid for this light
	Bias        float32    // offset 52: depth comparison bias
	_           [2]uint32  // offset 56: padding to 64 bytes
}

// Size returns the size of the GPULight struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (64)
func (g GPULight) Size() int {
	return int(unsafe.Sizeof(g))
}

// Marshal serializes the GPULight struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 64-byte buffer ready for GPU upload
func (g GPULight) Marshal() []byte {
	buf := make([]byte, 64)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(g.Position[0]))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(g.Position[1]))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(g.Position[2]))
	binary.LittleEndian.PutUint32(buf[12:16], g.LightType)
	binary.LittleEndian.PutUint32(buf[16:20], math.Float32bits(g.Color[0]))
	binary.LittleEndian.PutUint32(buf[20:24], math.Float32bits(g.Color[1]))
	binary.LittleEndian.PutUint32(buf[24:28], math.Float32bits(g.Color[2]))
	binary.LittleEndian.PutUint32(buf[28:32], math.Float32bits(g.Intensity))
	binary.LittleEndian.PutUint32(buf[32:36], math.Float32bits(g.Direction[0]))
	binary.LittleEndian.PutUint32(buf[36:40], math.Float32bits(g.Direction[1]))
	binary.LittleEndian.PutUint32(buf[40:44], math.Float32bits(g.Direction[2]))
	binary.LittleEndian.PutUint32(buf[44:48], math.Float32bits(g.Radius))
	binary.LittleEndian.PutUint32(buf[48:52], g.CastsShadow)
	binary.LittleEndian.PutUint32(buf[52:56], math.Float32bits(g.Bias))
	return buf
}

// ToGPULight converts a Light interface value into the GPU-aligned GPULight struct
// suitable for writing into the light storage buffer.
//
// Parameters:
//   - l: the Light to convert
//
// Returns:
//   - GPULight: the GPU-aligned representation
func ToGPULight(l Light) GPULight {
	shadowVal := uint32(0)
	if l.CastsShadow() {
		shadowVal = 1
	}
	return GPULight{
		Position:    l.Position(),
		LightType:   uint32(l.Type()),
		Color:       l.Color(),
		Intensity:   l.Intensity(),
		Direction:   l.Direction(),
		Radius:      l.Radius(),
		CastsShadow: shadowVal,
		Bias:        DefaultShadowBias,
	}
}
