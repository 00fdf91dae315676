package loader_test

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/theswiftfox/sparkle/engine/light"
	"github.com/theswiftfox/sparkle/engine/loader"
	"github.com/theswiftfox/sparkle/engine/renderer"
	"github.com/theswiftfox/sparkle/engine/renderer/material"
	"github.com/theswiftfox/sparkle/engine/renderer/pipeline"
	"github.com/theswiftfox/sparkle/engine/renderer/renderertest"
	"github.com/theswiftfox/sparkle/engine/scene"
)

const demoLevel = `
name: demo
nodes:
  - name: floor
    mesh: plane
    size: 20
    translate: [0, -1, 0]
    textures:
      albedo: textures/checker.png
      normal: textures/flat.png
    children:
      - name: ball
        mesh: sphere
        class: transparent
        color: [1, 0, 0, 0.5]
        translate: [0, 2, 0]
        roughness: 0.2
  - name: props
    rotate: [0, 90, 0]
    children:
      - name: crate
        mesh: cube
        scale: [2, 2, 2]
        textures:
          albedo: textures/checker.png
lights:
  - type: ambient
    intensity: 0.1
  - type: area
    position: [0, 5, 0]
    direction: [0, -1, 0]
    radius: 12
    casts_shadows: false
`

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{uint8(x * 16), uint8(y * 16), 128, 255})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

// levelDir writes the demo manifest and its textures to a temporary directory.
func levelDir(t *testing.T, manifest string) string {
	t.Helper()
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "textures", "checker.png"), 16, 8)
	writePNG(t, filepath.Join(dir, "textures", "flat.png"), 2, 2)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "level.yaml"), []byte(manifest), 0o644))
	return dir
}

func newLoader(t *testing.T, opts ...loader.LoaderBuilderOption) loader.Loader {
	t.Helper()
	l := loader.NewLoader(append([]loader.LoaderBuilderOption{loader.WithWorkers(2)}, opts...)...)
	t.Cleanup(l.Release)
	return l
}

func TestLoadBuildsNodeTree(t *testing.T) {
	dir := levelDir(t, demoLevel)
	lv, err := newLoader(t).Load(filepath.Join(dir, "level.yaml"))
	require.NoError(t, err)
	defer lv.Release()

	assert.Equal(t, "demo", lv.Name)
	require.NotNil(t, lv.Root)
	assert.Equal(t, "demo", lv.Root.Name)
	require.Len(t, lv.Root.Children, 2)

	floor := lv.Root.Children[0]
	assert.Equal(t, "floor", floor.Name)
	assert.Equal(t, mgl32.Vec3{0, -1, 0}, floor.Local.Col(3).Vec3())
	require.Len(t, floor.Drawables, 1)
	assert.Equal(t, scene.ClassOpaque, floor.Drawables[0].Class())

	require.Len(t, floor.Children, 1)
	ball := floor.Children[0].Drawables[0]
	assert.Equal(t, scene.ClassTransparent, ball.Class())
	assert.Equal(t, [4]float32{1, 0, 0, 0.5}, ball.Material().BaseColor())
	assert.InDelta(t, 0.2, ball.Material().Roughness(), 1e-6)

	props := lv.Root.Children[1]
	assert.Empty(t, props.Drawables, "a node without a mesh only groups")
	xAxis := props.Local.Mul4x1(mgl32.Vec4{1, 0, 0, 0}).Vec3()
	for i, want := range []float32{0, 0, -1} {
		assert.InDelta(t, want, xAxis[i], 1e-5, "a 90 degree yaw turns +X into -Z")
	}
	crate := props.Children[0]
	wantScale := mgl32.Scale3D(2, 2, 2)
	for i := range wantScale {
		assert.InDelta(t, wantScale[i], crate.Local[i], 1e-5)
	}

	assert.Len(t, lv.Drawables(), 3)
	require.Len(t, lv.Lights, 2)
	assert.Equal(t, light.LightTypeAmbient, lv.Lights[0].Type())
	assert.InDelta(t, 0.1, lv.Lights[0].Intensity(), 1e-6)
	area := lv.Lights[1]
	assert.Equal(t, light.LightTypeArea, area.Type())
	assert.Equal(t, mgl32.Vec3{0, 5, 0}, area.Position())
	assert.InDelta(t, 12, area.Radius(), 1e-6)
	assert.False(t, area.CastsShadow())
}

func TestTexturesAreSharedByPath(t *testing.T) {
	dir := levelDir(t, demoLevel)
	l := newLoader(t)
	lv, err := l.Load(filepath.Join(dir, "level.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 2, l.CachedTextures(), "checker as albedo twice, flat as normal once")
	floor := lv.Root.Children[0].Drawables[0].Material()
	crate := lv.Root.Children[1].Children[0].Drawables[0].Material()
	checker := floor.Texture(material.SlotAlbedo)
	require.NotNil(t, checker)
	assert.Same(t, checker, crate.Texture(material.SlotAlbedo))
	assert.Equal(t, 3, checker.RefCount(), "the cache and two materials")
	assert.Equal(t, pipeline.FormatRGBA8UnormSrgb, checker.Format())
	assert.Equal(t, pipeline.FormatRGBA8Unorm, floor.Texture(material.SlotNormal).Format())
	assert.Equal(t, uint32(16), checker.Width())

	again, err := l.Load(filepath.Join(dir, "level.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 2, l.CachedTextures(), "a second load decodes nothing new")
	assert.Equal(t, 5, checker.RefCount())

	lv.Release()
	again.Release()
	assert.Equal(t, 1, checker.RefCount())
	assert.Equal(t, 2, l.Prune())
	assert.Zero(t, l.CachedTextures())
	assert.Zero(t, checker.RefCount())
}

func TestPruneKeepsTexturesInUse(t *testing.T) {
	dir := levelDir(t, demoLevel)
	l := newLoader(t)
	lv, err := l.Load(filepath.Join(dir, "level.yaml"))
	require.NoError(t, err)
	defer lv.Release()

	assert.Zero(t, l.Prune())
	assert.Equal(t, 2, l.CachedTextures())
}

func TestMaxTextureDimension(t *testing.T) {
	dir := levelDir(t, demoLevel)
	lv, err := newLoader(t, loader.WithMaxTextureDimension(4)).Load(filepath.Join(dir, "level.yaml"))
	require.NoError(t, err)
	defer lv.Release()

	checker := lv.Root.Children[0].Drawables[0].Material().Texture(material.SlotAlbedo)
	assert.Equal(t, uint32(4), checker.Width())
	assert.Equal(t, uint32(2), checker.Height())
}

func TestDefaultLight(t *testing.T) {
	manifest := "nodes:\n  - name: box\n    mesh: cube\n"
	lv, err := newLoader(t).LoadReader(strings.NewReader(manifest), ".yaml", "")
	require.NoError(t, err)
	defer lv.Release()
	require.Len(t, lv.Lights, 2)
	assert.Equal(t, light.LightTypeAmbient, lv.Lights[0].Type())
	assert.InDelta(t, loader.DefaultAmbientIntensity, lv.Lights[0].Intensity(), 1e-6)
	assert.Equal(t, light.LightTypeDirectional, lv.Lights[1].Type())
	assert.Equal(t, light.DefaultDirection, lv.Lights[1].Direction())

	bare, err := newLoader(t, loader.WithDefaultLight(false)).LoadReader(strings.NewReader(manifest), ".yml", "")
	require.NoError(t, err)
	defer bare.Release()
	assert.Empty(t, bare.Lights)
}

func TestLevelNameFallsBackToFileName(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "courtyard.yaml")
	require.NoError(t, os.WriteFile(path, []byte("nodes:\n  - mesh: cube\n"), 0o644))

	lv, err := newLoader(t).Load(path)
	require.NoError(t, err)
	defer lv.Release()
	assert.Equal(t, "courtyard", lv.Name)
	assert.Equal(t, "courtyard", lv.Root.Name)
}

func TestTOMLManifest(t *testing.T) {
	manifest := `
name = "toml"

[[nodes]]
name = "box"
mesh = "cube"
translate = [1.0, 2.0, 3.0]

[[lights]]
type = "directional"
direction = [0.0, -1.0, 0.0]
`
	lv, err := newLoader(t).LoadReader(strings.NewReader(manifest), ".toml", "")
	require.NoError(t, err)
	defer lv.Release()
	require.Len(t, lv.Root.Children, 1)
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, lv.Root.Children[0].Local.Col(3).Vec3())
	require.Len(t, lv.Lights, 1)
	assert.Equal(t, mgl32.Vec3{0, -1, 0}, lv.Lights[0].Direction())
}

func TestInvalidLevels(t *testing.T) {
	cases := map[string]string{
		"mesh":          "nodes:\n  - name: a\n    mesh: teapot\n",
		"class":         "nodes:\n  - name: a\n    mesh: cube\n    class: glassy\n",
		"slot":          "nodes:\n  - name: a\n    mesh: cube\n    textures:\n      specular: x.png\n",
		"light":         "lights:\n  - type: spot\n",
		"orphan colour": "nodes:\n  - name: a\n    color: [1, 1, 1, 1]\n",
		"negative size": "nodes:\n  - name: a\n    mesh: cube\n    size: -1\n",
	}
	for name, manifest := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := newLoader(t).LoadReader(strings.NewReader(manifest), ".yaml", "")
			assert.ErrorIs(t, err, loader.ErrInvalidLevel)
		})
	}

	_, err := newLoader(t).LoadReader(strings.NewReader("nodes:\n  - name: a\n  - name: a\n"), ".yaml", "")
	assert.ErrorIs(t, err, scene.ErrDuplicateName)

	_, err = newLoader(t).LoadReader(strings.NewReader("nodes:\n  - name: a\n    colour: red\n"), ".yaml", "")
	assert.Error(t, err, "unknown keys are rejected")

	_, err = newLoader(t).LoadReader(strings.NewReader("{}"), ".json", "")
	assert.ErrorContains(t, err, "unsupported level format")
}

func TestMissingTextureFails(t *testing.T) {
	manifest := "nodes:\n  - name: a\n    mesh: cube\n    textures:\n      albedo: missing.png\n"
	l := newLoader(t)
	_, err := l.LoadReader(strings.NewReader(manifest), ".yaml", t.TempDir())
	require.Error(t, err)
	assert.Zero(t, l.CachedTextures())
}

func TestLevelRendersInScene(t *testing.T) {
	dir := levelDir(t, demoLevel)
	lv, err := newLoader(t).Load(filepath.Join(dir, "level.yaml"))
	require.NoError(t, err)

	drv := renderertest.New()
	b := renderer.NewBackend(drv)
	require.NoError(t, b.Initialize("window", 64, 64))

	s := scene.NewScene(scene.WithName(lv.Name), scene.WithLights(lv.Lights...))
	defer s.Release()
	_, err = s.SetRoot(lv.Root)
	require.NoError(t, err)
	require.NoError(t, s.BuildMatrices(b))

	checker := drv.TexturesLabelled(filepath.Join(dir, "textures", "checker.png"))
	require.Len(t, checker, 1, "one upload for both materials")
	assert.Equal(t, pipeline.FormatRGBA8UnormSrgb, checker[0].Format())
	_, err = s.NodeNamed("crate")
	assert.NoError(t, err)
	assert.Len(t, s.Lights(), 2)
}
