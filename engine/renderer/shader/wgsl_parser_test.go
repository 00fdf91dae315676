package shader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinLayout(t *testing.T) {
	tests := []struct {
		typeName    string
		size, align uint64
	}{
		{"f32", 4, 4},
		{"f16", 2, 2},
		{"vec2<f32>", 8, 8},
		{"vec3f", 12, 16},
		{"vec3<u32>", 12, 16},
		{"vec4i", 16, 16},
		{"vec3h", 6, 8},
		{"mat3x3<f32>", 48, 16},
		{"mat4x4f", 64, 16},
		{"mat3x2<f32>", 24, 8},
		{"mat2x3<f32>", 32, 16},
		{"atomic<u32>", 4, 4},
	}
	for _, tt := range tests {
		t.Run(tt.typeName, func(t *testing.T) {
			l, ok := builtinLayout(tt.typeName)
			require.True(t, ok)
			assert.Equal(t, typeLayout{tt.size, tt.align}, l)
		})
	}

	for _, bad := range []string{"vec5f", "mat1x4<f32>", "atomic<f32>", "Light", "texture_2d<f32>"} {
		_, ok := builtinLayout(bad)
		assert.False(t, ok, bad)
	}
}

func TestStructLayouts(t *testing.T) {
	src := stripComments(`
/* nested /* block */ comment */
struct Light {
    position: vec3<f32>, // packed with the next field
    radius: f32,
    color: vec3<f32>,
    kind: u32,
}
struct Frame {
    count: u32,
    lights: array<Light, 4>,
}
struct Lights {
    count: u32,
    entries: array<Light>,
}
struct Only {
    entries: array<vec4<f32>>,
}
`)
	layouts := structLayouts(parseStructBlocks(src))

	assert.Equal(t, typeLayout{32, 16}, layouts["Light"])
	assert.Equal(t, typeLayout{144, 16}, layouts["Frame"], "the array starts at the next 16-byte boundary")
	assert.Equal(t, typeLayout{16, 16}, layouts["Lights"], "a trailing runtime array only counts its offset")
	assert.Equal(t, typeLayout{16, 16}, layouts["Only"])

	l, ok := layoutOf("array<Light>", layouts)
	require.True(t, ok)
	assert.Equal(t, uint64(32), l.size)

	_, ok = layoutOf("array<Unknown, 2>", layouts)
	assert.False(t, ok)
}

func TestStripComments(t *testing.T) {
	got := stripComments("a // one\nb /* two\nthree */ c //")
	assert.Equal(t, "a \nb \n c ", got)
}

func TestClassifyResource(t *testing.T) {
	tests := []struct {
		space, typeName string
		want            BindingKind
	}{
		{"uniform", "Camera", BindingUniform},
		{"storage, read", "array<Light>", BindingStorage},
		{"storage, read_write", "array<u32>", BindingStorageReadWrite},
		{"", "texture_2d<f32>", BindingTexture},
		{"", "texture_2d<u32>", BindingUintTexture},
		{"", "texture_depth_2d", BindingDepthTexture},
		{"", "sampler_comparison", BindingComparisonSampler},
	}
	for _, tt := range tests {
		got, ok := classifyResource(tt.space, tt.typeName)
		require.True(t, ok, tt.typeName)
		assert.Equal(t, tt.want, got, tt.typeName)
	}

	_, ok := classifyResource("workgroup", "array<f32, 64>")
	assert.False(t, ok)
	_, ok = classifyResource("", "texture_cube<f32>")
	assert.False(t, ok)
}
