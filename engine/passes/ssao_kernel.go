package passes

import (
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/theswiftfox/sparkle/common"
)

// SSAONoiseSize is the edge length of the tiled rotation texture.
const SSAONoiseSize = 4

// SSAOKernel returns the hemisphere sample offsets in tangent space (z up).
// Sample i has length lerp(0.1, 1, (i/n)²) so samples cluster near the origin.
//
// Parameters:
//   - rng: the random source
//
// Returns:
//   - [SSAOKernelSize][4]float32: samples inside the unit hemisphere, w = 0
func SSAOKernel(rng *rand.Rand) [SSAOKernelSize][4]float32 {
	var kernel [SSAOKernelSize][4]float32
	for i := range kernel {
		v := mgl32.Vec3{
			rng.Float32()*2 - 1,
			rng.Float32()*2 - 1,
			rng.Float32(),
		}
		if v.Len() < 1e-6 {
			v = mgl32.Vec3{0, 0, 1}
		}
		t := float32(i) / SSAOKernelSize
		v = v.Normalize().Mul(common.Lerp(0.1, 1, t*t))
		kernel[i] = [4]float32{v[0], v[1], v[2], 0}
	}
	return kernel
}

// SSAONoise returns the pixels of the SSAONoiseSize² rotation texture as RGBA8.
// Each texel is a random unit vector in the tangent plane (z = 0) encoded as v*0.5+0.5.
//
// Parameters:
//   - rng: the random source
//
// Returns:
//   - []byte: RGBA8 pixels, row major
func SSAONoise(rng *rand.Rand) []byte {
	pixels := make([]byte, 0, SSAONoiseSize*SSAONoiseSize*4)
	encode := func(v float32) byte {
		return byte((v*0.5 + 0.5) * 255)
	}
	for range SSAONoiseSize * SSAONoiseSize {
		v := mgl32.Vec2{rng.Float32()*2 - 1, rng.Float32()*2 - 1}
		if v.Len() < 1e-6 {
			v = mgl32.Vec2{1, 0}
		}
		v = v.Normalize()
		pixels = append(pixels, encode(v[0]), encode(v[1]), 128, 255)
	}
	return pixels
}

// newRand returns a deterministic generator for the given seed.
func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
