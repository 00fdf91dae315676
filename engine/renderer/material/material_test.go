package material_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/theswiftfox/sparkle/engine/renderer"
	"github.com/theswiftfox/sparkle/engine/renderer/material"
	"github.com/theswiftfox/sparkle/engine/renderer/pipeline"
	"github.com/theswiftfox/sparkle/engine/renderer/renderertest"
)

// bindRecorder is a PassEncoder that only remembers bindings.
type bindRecorder struct {
	buffers  map[[2]int]renderer.Buffer
	textures map[[2]int]renderer.Texture
}

func newBindRecorder() *bindRecorder {
	return &bindRecorder{buffers: map[[2]int]renderer.Buffer{}, textures: map[[2]int]renderer.Texture{}}
}

func (r *bindRecorder) SetProgram(renderer.Program) {}
func (r *bindRecorder) SetBuffer(g, b int, buf renderer.Buffer) {
	r.buffers[[2]int{g, b}] = buf
}
func (r *bindRecorder) SetTexture(g, b int, t renderer.Texture) {
	r.textures[[2]int{g, b}] = t
}
func (r *bindRecorder) SetSampler(int, int, renderer.Sampler) {}
func (r *bindRecorder) SetVertexBuffer(renderer.Buffer)       {}
func (r *bindRecorder) SetIndexBuffer(renderer.Buffer)        {}
func (r *bindRecorder) DrawIndexed(uint32)                    {}
func (r *bindRecorder) End() error                            { return nil }

func texture(label string) *renderer.Texture2D {
	return renderer.NewTexture2D(label, 1, 1, pipeline.FormatRGBA8Unorm, renderer.TextureUsageSampled,
		renderer.WithPixels([]byte{1, 2, 3, 4}))
}

func TestEqual(t *testing.T) {
	brick, moss := texture("brick"), texture("moss")

	a := material.NewMaterial(material.WithName("a"), material.WithTexture(material.SlotAlbedo, brick))
	b := material.NewMaterial(material.WithName("b"), material.WithTexture(material.SlotAlbedo, brick.Retain()))
	c := material.NewMaterial(material.WithTexture(material.SlotAlbedo, moss))
	d := material.NewMaterial(material.WithTexture(material.SlotNormal, brick.Retain()))
	e := material.NewMaterial(material.WithTexture(material.SlotAlbedo, brick.Retain()), material.WithBaseColor([4]float32{1, 0, 0, 1}))

	assert.True(t, a.Equal(b), "same texture in the same slot, names do not matter")
	assert.Equal(t, a.SortKey(), b.SortKey())
	assert.False(t, a.Equal(c), "different texture")
	assert.False(t, a.Equal(d), "same texture in another slot")
	assert.False(t, a.Equal(e), "different factors")
	assert.False(t, a.Equal(nil))
	assert.True(t, material.NewMaterial().Equal(material.NewMaterial()))
}

func TestReleaseDropsTextureReferences(t *testing.T) {
	brick := texture("brick")
	a := material.NewMaterial(material.WithTexture(material.SlotAlbedo, brick))
	b := material.NewMaterial(material.WithTexture(material.SlotAlbedo, brick.Retain()))
	require.Equal(t, 2, brick.RefCount())

	a.Release()
	assert.Equal(t, 1, brick.RefCount())
	b.Release()
	assert.Equal(t, 0, brick.RefCount())
}

func TestSyncAndBind(t *testing.T) {
	drv := renderertest.New()
	b := renderer.NewBackend(drv)
	require.NoError(t, b.Initialize("window", 64, 64))

	fallbacks := material.NewFallbacks()
	require.NoError(t, fallbacks.Sync(b))

	albedo := texture("albedo")
	m := material.NewMaterial(material.WithTexture(material.SlotAlbedo, albedo), material.WithRoughness(0.5))
	require.NoError(t, m.Sync(b))

	params := drv.BuffersLabelled(" material")
	require.Len(t, params, 1)
	assert.Equal(t, material.GPUMaterialParams{BaseColor: [4]float32{1, 1, 1, 1}, Roughness: 0.5}.Marshal(), params[0].Data)

	rec := newBindRecorder()
	m.Bind(rec, 1, fallbacks)
	assert.Same(t, params[0], rec.buffers[[2]int{1, material.BindingParams}])
	assert.Same(t, albedo.Texture(), rec.textures[[2]int{1, material.BindingAlbedo}])
	assert.Same(t, fallbacks.For(material.SlotNormal).Texture(), rec.textures[[2]int{1, material.BindingNormal}])
	assert.Same(t, fallbacks.For(material.SlotMetallicRoughness).Texture(), rec.textures[[2]int{1, material.BindingMetallicRoughness}])
}

func TestGPUMaterialParamsSize(t *testing.T) {
	p := material.GPUMaterialParams{}
	assert.Equal(t, 32, p.Size())
	assert.Len(t, p.Marshal(), 32)
}
