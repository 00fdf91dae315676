package settings_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/theswiftfox/sparkle/engine/settings"
)

func writeFile(t *testing.T, path, text string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
}

func TestMissingFileGivesDefaults(t *testing.T) {
	s, err := settings.Load(filepath.Join(t.TempDir(), "settings.toml"))
	require.NoError(t, err)
	assert.Equal(t, settings.Default(), s)
	assert.Equal(t, 1024, s.Display.Width)
	assert.Equal(t, 768, s.Display.Height)
	assert.Equal(t, float32(70), s.Camera.FOV)
	assert.Equal(t, float32(1000), s.Camera.RenderDistance)
	assert.True(t, s.Engine.SSAO)
	assert.Equal(t, uint32(4096), s.Engine.ShadowMapSize)
}

func TestParseKeepsDefaultsForOmittedKeys(t *testing.T) {
	s, err := settings.Parse([]byte(`
[display]
width = 1920
height = 1080

[game]
level = "assets/levels/demo.yaml"

[engine]
ssao = false
`))
	require.NoError(t, err)
	assert.Equal(t, 1920, s.Display.Width)
	assert.True(t, s.Display.VSync, "omitted keys keep their default")
	assert.Equal(t, "assets/levels/demo.yaml", s.Game.Level)
	assert.False(t, s.Engine.SSAO)
	assert.Equal(t, float32(70), s.Camera.FOV)
}

func TestParseRejects(t *testing.T) {
	cases := map[string]string{
		"unknown key":      "[display]\ndepth = 3\n",
		"zero width":       "[display]\nwidth = 0\n",
		"negative height":  "[display]\nheight = -1\n",
		"flat fov":         "[camera]\nfov = 180.0\n",
		"no distance":      "[camera]\nrender_distance = 0.0\n",
		"empty shadow map": "[engine]\nshadow_map_size = 0\n",
		"syntax":           "[display\n",
	}
	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := settings.Parse([]byte(text))
			assert.Error(t, err)
		})
	}

	_, err := settings.Parse([]byte("[display]\nwidth = 0\n"))
	assert.ErrorIs(t, err, settings.ErrInvalid)
}

func TestSaveWritesLoadableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	want := settings.Default()
	want.Display.Width = 640
	want.Game.Level = "level.yaml"
	want.Engine.Validation = true
	require.NoError(t, want.Save(path))

	got, err := settings.Load(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestWatcherAppliesSSAOSwitch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	writeFile(t, path, "[engine]\nssao = true\n")
	initial, err := settings.Load(path)
	require.NoError(t, err)

	changes := make(chan settings.Settings, 8)
	w, err := settings.NewWatcher(path, initial, settings.WithOnChange(func(s settings.Settings) {
		changes <- s
	}))
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, w.Close()) })
	require.True(t, w.SSAOEnabled())

	writeFile(t, path, "[engine]\nssao = false\n")
	assert.Eventually(t, func() bool { return !w.SSAOEnabled() }, 5*time.Second, 10*time.Millisecond)
	select {
	case s := <-changes:
		assert.False(t, s.Engine.SSAO)
	case <-time.After(5 * time.Second):
		t.Fatal("no change callback")
	}
	assert.False(t, w.Settings().Engine.SSAO)
}

func TestWatcherKeepsSettingsOnBadWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	writeFile(t, path, "[engine]\nssao = false\n")
	initial, err := settings.Load(path)
	require.NoError(t, err)

	w, err := settings.NewWatcher(path, initial)
	require.NoError(t, err)
	defer w.Close()

	writeFile(t, path, "[engine\nssao = true\n")
	writeFile(t, filepath.Join(filepath.Dir(path), "other.toml"), "[engine]\nssao = true\n")
	time.Sleep(200 * time.Millisecond)
	assert.False(t, w.SSAOEnabled())
	assert.Equal(t, uint64(0), w.Reloads())
}

func TestWatcherCloseIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	w, err := settings.NewWatcher(path, settings.Default())
	require.NoError(t, err)
	require.NoError(t, w.Close())
	assert.NoError(t, w.Close())
}
