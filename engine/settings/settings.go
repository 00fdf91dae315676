// Package settings reads the engine settings file and watches it for the few
// values that may change while the engine runs.
package settings

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/theswiftfox/sparkle/engine/light"
)

// DefaultPath is where the engine looks for its settings when none is given.
const DefaultPath = "assets/settings.toml"

// ErrInvalid is returned for settings that parse but cannot be used.
var ErrInvalid = errors.New("settings: invalid value")

// Display configures the window and swap chain.
type Display struct {
	Width  int  `toml:"width"`
	Height int  `toml:"height"`
	VSync  bool `toml:"vsync"`
}

// Camera configures the projection.
type Camera struct {
	// FOV is the vertical field of view in degrees.
	FOV            float32 `toml:"fov"`
	RenderDistance float32 `toml:"render_distance"`
}

// Game selects what is loaded at start-up.
type Game struct {
	// Level is a level manifest path; empty starts with an empty scene.
	Level string `toml:"level,omitempty"`
}

// Engine holds renderer switches.
type Engine struct {
	Validation    bool   `toml:"validation"`
	SSAO          bool   `toml:"ssao"`
	ShadowMapSize uint32 `toml:"shadow_map_size"`
	DebugMarkers  bool   `toml:"debug_markers"`
	Profiling     bool   `toml:"profiling"`
}

// Settings is the whole settings file.
type Settings struct {
	Display Display `toml:"display"`
	Camera  Camera  `toml:"camera"`
	Game    Game    `toml:"game"`
	Engine  Engine  `toml:"engine"`
}

// Default returns the settings used for a missing file and for keys a file omits.
func Default() Settings {
	return Settings{
		Display: Display{Width: 1024, Height: 768, VSync: true},
		Camera:  Camera{FOV: 70, RenderDistance: 1000},
		Engine:  Engine{SSAO: true, ShadowMapSize: light.ShadowMapResolution},
	}
}

// Validate rejects values the renderer cannot work with.
func (s Settings) Validate() error {
	switch {
	case s.Display.Width <= 0 || s.Display.Height <= 0:
		return fmt.Errorf("%w: display size %dx%d", ErrInvalid, s.Display.Width, s.Display.Height)
	case s.Camera.FOV <= 0 || s.Camera.FOV >= 180:
		return fmt.Errorf("%w: fov %g", ErrInvalid, s.Camera.FOV)
	case s.Camera.RenderDistance <= 0:
		return fmt.Errorf("%w: render distance %g", ErrInvalid, s.Camera.RenderDistance)
	case s.Engine.ShadowMapSize == 0:
		return fmt.Errorf("%w: shadow map size 0", ErrInvalid)
	}
	return nil
}

// Parse decodes a settings file on top of the defaults. Unknown keys are an error.
//
// Parameters:
//   - data: TOML text
//
// Returns:
//   - Settings: the decoded settings
//   - error: a decode error or ErrInvalid
func Parse(data []byte) (Settings, error) {
	s := Default()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return Settings{}, fmt.Errorf("settings: %s", strict.String())
		}
		return Settings{}, fmt.Errorf("settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Load reads the settings file at path. A missing file yields the defaults.
func Load(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Printf("settings: %s not found, using defaults", path)
		return Default(), nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("settings: %w", err)
	}
	return Parse(data)
}

// Save writes s to path as TOML.
func (s Settings) Save(path string) error {
	data, err := toml.Marshal(s)
	if err != nil {
		return fmt.Errorf("settings: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("settings: %w", err)
	}
	return nil
}
