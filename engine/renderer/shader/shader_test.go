package shader

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const meshSource = `
// @sparkle:include camera

struct VertexInput {
    @location(0) position: vec3f,
    @location(1) normal: vec3f,
    @location(2) tangent: vec3f,
    @location(3) bitangent: vec3f,
    @location(4) uv: vec2f,
};

struct VertexOutput {
    @builtin(position) clip: vec4f,
    @location(0) uv: vec2f,
};

struct Model {
    world: mat4x4<f32>,
};

@group(0) @binding(0) var<uniform> camera: Camera;
@group(2) @binding(0) var<uniform> model: Model;
@group(1) @binding(1) var albedo_sampler: sampler;
@group(1) @binding(0) var albedo: texture_2d<f32>;

@vertex
fn vs_main(in: VertexInput) -> VertexOutput {
    var out: VertexOutput;
    out.clip = camera.proj * camera.view * model.world * vec4f(in.position, 1.0);
    out.uv = in.uv;
    return out;
}

@fragment
fn fs_main(in: VertexOutput) -> @location(0) vec4f {
    return textureSample(albedo, albedo_sampler, in.uv);
}
`

const cameraInclude = `struct Camera {
    view: mat4x4<f32>,
    proj: mat4x4<f32>,
    position: vec3f,
    near: f32,
};`

func TestNewShaderReflectsEntryPointsAndBindings(t *testing.T) {
	s, err := NewShader("mesh", meshSource, WithIncludes(map[string]string{"camera": cameraInclude}))
	require.NoError(t, err)

	assert.Equal(t, "vs_main", s.VertexEntryPoint())
	assert.Equal(t, "fs_main", s.FragmentEntryPoint())
	assert.Contains(t, s.Source(), "struct Camera")

	bindings := s.Bindings()
	require.Len(t, bindings, 4)
	assert.Equal(t, [2]int{0, 0}, [2]int{bindings[0].Group, bindings[0].Binding})
	assert.Equal(t, "albedo", bindings[1].Name)
	assert.Equal(t, BindingTexture, bindings[1].Kind)
	assert.Equal(t, BindingSampler, bindings[2].Kind)
	assert.Equal(t, "model", bindings[3].Name)

	cam, ok := s.Binding("camera")
	require.True(t, ok)
	assert.Equal(t, BindingUniform, cam.Kind)
	assert.Equal(t, uint64(144), cam.MinSize)
	assert.Equal(t, StageVertex|StageFragment, cam.Visibility)
}

func TestNewShaderVertexLayout(t *testing.T) {
	s, err := NewShader("mesh", meshSource, WithIncludes(map[string]string{"camera": cameraInclude}))
	require.NoError(t, err)

	layout, ok := s.VertexLayout()
	require.True(t, ok)
	assert.Equal(t, uint64(56), layout.Stride)
	require.Len(t, layout.Attributes, 5)
	assert.Equal(t, VertexFormatFloat32x2, layout.Attributes[4].Format)
	assert.Equal(t, uint64(48), layout.Attributes[4].Offset)
	assert.Equal(t, uint32(4), layout.Attributes[4].Location)
}

func TestNewShaderFullscreenHasNoVertexLayout(t *testing.T) {
	src := `
@group(0) @binding(0) var position_tex: texture_2d<f32>;
@group(0) @binding(1) var albedo_tex: texture_2d<u32>;
@group(0) @binding(2) var depth_tex: texture_depth_2d;
@group(0) @binding(3) var shadow_sampler: sampler_comparison;

@vertex
fn vs_main(@builtin(vertex_index) idx: u32) -> @builtin(position) vec4f {
    return vec4f(0.0, 0.0, 0.0, 1.0);
}

@fragment
fn fs_main() -> @location(0) vec4f {
    return vec4f(1.0);
}
`
	s, err := NewShader("fullscreen", src)
	require.NoError(t, err)

	_, ok := s.VertexLayout()
	assert.False(t, ok)

	kinds := make([]BindingKind, 0, 4)
	for _, b := range s.Bindings() {
		kinds = append(kinds, b.Kind)
	}
	assert.Equal(t, []BindingKind{BindingTexture, BindingUintTexture, BindingDepthTexture, BindingComparisonSampler}, kinds)
}

func TestNewShaderDepthOnly(t *testing.T) {
	src := `
struct VertexInput {
    @location(0) position: vec3f,
};
@group(0) @binding(0) var<uniform> light_space: mat4x4<f32>;

@vertex
fn vs_main(in: VertexInput) -> @builtin(position) vec4f {
    return light_space * vec4f(in.position, 1.0);
}
`
	s, err := NewShader("shadow", src)
	require.NoError(t, err)
	assert.Empty(t, s.FragmentEntryPoint())

	b, ok := s.Binding("light_space")
	require.True(t, ok)
	assert.Equal(t, StageVertex, b.Visibility)
	assert.Equal(t, uint64(64), b.MinSize)
}

func TestNewShaderErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		opts []Option
	}{
		{
			name: "missing vertex entry",
			src:  "@fragment fn fs_main() -> @location(0) vec4f { return vec4f(1.0); }",
		},
		{
			name: "unknown include",
			src:  "// @sparkle:include nowhere\n@vertex fn vs_main() -> @builtin(position) vec4f { return vec4f(0.0); }",
		},
		{
			name: "duplicate binding",
			src: `@group(0) @binding(0) var a: sampler;
@group(0) @binding(0) var b: sampler;
@vertex fn vs_main() -> @builtin(position) vec4f { return vec4f(0.0); }`,
		},
		{
			name: "include cycle",
			src:  "// @sparkle:include a\n@vertex fn vs_main() -> @builtin(position) vec4f { return vec4f(0.0); }",
			opts: []Option{WithIncludes(map[string]string{
				"a": "// @sparkle:include b",
				"b": "// @sparkle:include a",
			})},
		},
		{
			name: "validation failure",
			src:  "@vertex fn vs_main( -> {",
			opts: []Option{WithValidation(true)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewShader(tt.name, tt.src, tt.opts...)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrCompile)
		})
	}
}

func TestIncludeEmittedOnce(t *testing.T) {
	pp := NewPreProcessor(map[string]string{"common": "const PI: f32 = 3.14159;"})
	out, err := pp.Process("// @sparkle:include common\n// @sparkle:include common\nfn f() {}")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "const PI"))
}

func TestLoadShader(t *testing.T) {
	fsys := fstest.MapFS{
		"shaders/shadow.wgsl": {Data: []byte("@vertex fn vs_main() -> @builtin(position) vec4f { return vec4f(0.0); }")},
	}
	s, err := LoadShader(fsys, "shaders/shadow.wgsl")
	require.NoError(t, err)
	assert.Equal(t, "shaders/shadow.wgsl", s.Key())

	_, err = LoadShader(fsys, "shaders/missing.wgsl")
	assert.ErrorIs(t, err, ErrCompile)
}
