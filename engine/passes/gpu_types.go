package passes

import (
	"unsafe"

	"github.com/theswiftfox/sparkle/common"
)

// SSAOKernelSize is the number of hemisphere samples taken per pixel.
const SSAOKernelSize = 16

// GPUSSAOParams is the uniform block of the ambient-occlusion pass.
// Matches the WGSL SSAOParams struct in assets/ssao.wgsl.
// Size: 416 bytes.
type GPUSSAOParams struct {
	Kernel     [SSAOKernelSize][4]float32 // offset   0: tangent-space samples, w unused
	Proj       [16]float32                // offset 256
	InvProj    [16]float32                // offset 320
	NoiseScale [2]float32                 // offset 384: output size divided by the noise size
	Resolution [2]float32                 // offset 392: output size in pixels
	Radius     float32                    // offset 400: sample hemisphere radius in view units
	Bias       float32                    // offset 404: depth bias against self-occlusion
	_          [2]float32                 // offset 408: padding to 416 bytes
}

// Size returns the size of the GPUSSAOParams struct in bytes.
func (g GPUSSAOParams) Size() int {
	return int(unsafe.Sizeof(g))
}

// Marshal serializes the block for GPU upload.
func (g GPUSSAOParams) Marshal() []byte {
	return common.StructToBytes(&g)
}

// GPUShadowParams holds the light-space matrix of the shadow pass.
// Size: 64 bytes.
type GPUShadowParams struct {
	LightSpace [16]float32
}

func (g GPUShadowParams) Size() int {
	return int(unsafe.Sizeof(g))
}

func (g GPUShadowParams) Marshal() []byte {
	return common.StructToBytes(&g)
}

// GPULightFrame is the per-light block shared by the lighting and forward passes.
// Matches the WGSL LightFrame struct in assets/include/light.wgsl.
// Size: 96 bytes.
type GPULightFrame struct {
	LightSpace  [16]float32 // offset  0: view-projection of the light
	CameraPos   [4]float32  // offset 64: world-space eye position, w unused
	SSAOEnabled uint32      // offset 80: non-zero when the occlusion target is valid
	ShadowTexel float32     // offset 84: one shadow-map texel in UV units
	_           [2]float32  // offset 88: padding to 96 bytes
}

// Size returns the size of the GPULightFrame struct in bytes.
func (g GPULightFrame) Size() int {
	return int(unsafe.Sizeof(g))
}

// Marshal serializes the block for GPU upload.
func (g GPULightFrame) Marshal() []byte {
	return common.StructToBytes(&g)
}

// GPUSkyParams is the uniform block of the sky pass.
// Size: 160 bytes.
type GPUSkyParams struct {
	View    [16]float32 // offset   0: rotation-only view matrix
	Proj    [16]float32 // offset  64
	Horizon [4]float32  // offset 128: colour at the horizon, alpha unused
	Zenith  [4]float32  // offset 144: colour straight up, alpha unused
}

func (g GPUSkyParams) Size() int {
	return int(unsafe.Sizeof(g))
}

func (g GPUSkyParams) Marshal() []byte {
	return common.StructToBytes(&g)
}

// GPUComposeParams is the tone-mapping block of the composition pass.
// Size: 16 bytes.
type GPUComposeParams struct {
	Exposure float32
	Gamma    float32
	_        [2]float32
}

func (g GPUComposeParams) Size() int {
	return int(unsafe.Sizeof(g))
}

func (g GPUComposeParams) Marshal() []byte {
	return common.StructToBytes(&g)
}
