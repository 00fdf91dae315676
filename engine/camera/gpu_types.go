package camera

import (
	"unsafe"

	"github.com/theswiftfox/sparkle/common"
)

// GPUCameraUniform is the GPU-aligned camera block shared by the geometry and forward shaders.
// Matches the WGSL Camera struct layout.
// Size: 160 bytes.
type GPUCameraUniform struct {
	View     [16]float32 // offset   0: view matrix (mat4x4<f32>)
	Proj     [16]float32 // offset  64: projection matrix (mat4x4<f32>)
	Position [4]float32  // offset 128: world-space eye position, w unused
	Near     float32     // offset 144
	Far      float32     // offset 148
	_        [2]float32  // offset 152: padding to 160 bytes
}

// NewGPUCameraUniform captures the current matrices of a camera.
//
// Parameters:
//   - c: the camera to read
//
// Returns:
//   - GPUCameraUniform: the uniform block
func NewGPUCameraUniform(c Camera) GPUCameraUniform {
	pos := c.Position()
	return GPUCameraUniform{
		View:     c.ViewMatrix(),
		Proj:     c.ProjectionMatrix(),
		Position: [4]float32{pos[0], pos[1], pos[2], 1},
		Near:     c.Near(),
		Far:      c.Far(),
	}
}

// Size returns the size of the GPUCameraUniform struct in bytes.
func (g GPUCameraUniform) Size() int {
	return int(unsafe.Sizeof(g))
}

// Marshal serializes the uniform for GPU upload.
func (g GPUCameraUniform) Marshal() []byte {
	return common.StructToBytes(&g)
}
