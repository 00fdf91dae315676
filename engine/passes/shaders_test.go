package passes_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/theswiftfox/sparkle/engine/camera"
	"github.com/theswiftfox/sparkle/engine/light"
	"github.com/theswiftfox/sparkle/engine/model"
	"github.com/theswiftfox/sparkle/engine/passes"
	"github.com/theswiftfox/sparkle/engine/renderer/material"
	"github.com/theswiftfox/sparkle/engine/renderer/shader"
)

var passNames = []string{"gbuffer", "ssao", "shadow", "light", "forward", "sky", "compose"}

func TestIncludesAreEmbedded(t *testing.T) {
	includes, err := passes.Includes()
	require.NoError(t, err)
	for _, name := range []string{"vertex", "camera", "model", "material", "light", "shading", "surface", "quad"} {
		assert.Contains(t, includes, name)
	}
}

func TestPassShadersReflect(t *testing.T) {
	for _, name := range passNames {
		t.Run(name, func(t *testing.T) {
			s, err := passes.LoadPassShader(name, false)
			require.NoError(t, err)
			assert.Equal(t, "vs_main", s.VertexEntryPoint())
			assert.NotContains(t, s.Source(), "@sparkle:include", "includes are expanded")

			layout, ok := s.VertexLayout()
			require.True(t, ok)
			assert.Equal(t, uint64(model.GPUVertex{}.Size()), layout.Stride)
			assert.Len(t, layout.Attributes, 5)

			if name == "shadow" {
				assert.Empty(t, s.FragmentEntryPoint(), "shadow rendering is depth only")
			} else {
				assert.Equal(t, "fs_main", s.FragmentEntryPoint())
			}
		})
	}
}

func TestUniformLayoutsMatchGoStructs(t *testing.T) {
	cases := []struct {
		pass    string
		binding string
		size    int
	}{
		{"gbuffer", "camera", camera.GPUCameraUniform{}.Size()},
		{"gbuffer", "mat_params", material.GPUMaterialParams{}.Size()},
		{"gbuffer", "model_data", model.GPUModelData{}.Size()},
		{"forward", "camera", camera.GPUCameraUniform{}.Size()},
		{"forward", "light_frame", passes.GPULightFrame{}.Size()},
		{"forward", "lights", light.GPULight{}.Size()},
		{"light", "light_frame", passes.GPULightFrame{}.Size()},
		{"light", "lights", light.GPULight{}.Size()},
		{"ssao", "params", passes.GPUSSAOParams{}.Size()},
		{"shadow", "shadow", passes.GPUShadowParams{}.Size()},
		{"shadow", "model_data", model.GPUModelData{}.Size()},
		{"sky", "sky", passes.GPUSkyParams{}.Size()},
		{"compose", "compose", passes.GPUComposeParams{}.Size()},
	}
	for _, tc := range cases {
		s, err := passes.LoadPassShader(tc.pass, false)
		require.NoError(t, err, tc.pass)
		b, ok := s.Binding(tc.binding)
		require.True(t, ok, "%s: %s", tc.pass, tc.binding)
		assert.Equal(t, uint64(tc.size), b.MinSize, "%s: %s", tc.pass, tc.binding)
	}
}

func TestLightPassReadsGeometryBuffer(t *testing.T) {
	s, err := passes.LoadPassShader("light", false)
	require.NoError(t, err)

	kinds := map[string]shader.BindingKind{
		"position_map":   shader.BindingTexture,
		"packed_map":     shader.BindingUintTexture,
		"ssao_map":       shader.BindingTexture,
		"shadow_map":     shader.BindingDepthTexture,
		"shadow_sampler": shader.BindingComparisonSampler,
		"lights":         shader.BindingStorage,
	}
	for name, kind := range kinds {
		b, ok := s.Binding(name)
		require.True(t, ok, name)
		assert.Equal(t, kind, b.Kind, name)
	}
}
