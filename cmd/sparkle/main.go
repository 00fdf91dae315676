// Command sparkle opens a window and renders the level named in the settings file.
package main

import (
	"log"

	"github.com/spf13/pflag"
	"github.com/theswiftfox/sparkle/engine"
	"github.com/theswiftfox/sparkle/engine/camera"
	"github.com/theswiftfox/sparkle/engine/loader"
	"github.com/theswiftfox/sparkle/engine/passes"
	"github.com/theswiftfox/sparkle/engine/renderer"
	"github.com/theswiftfox/sparkle/engine/settings"
	"github.com/theswiftfox/sparkle/engine/window"
)

func main() {
	settingsPath := pflag.StringP("settings", "s", settings.DefaultPath, "settings file")
	levelPath := pflag.StringP("level", "l", "", "level manifest, overrides the settings file")
	software := pflag.Bool("software", false, "use a software adapter")
	profile := pflag.Bool("profile", false, "log frame statistics every second")
	pflag.Parse()

	cfg, err := settings.Load(*settingsPath)
	if err != nil {
		log.Fatalf("sparkle: %v", err)
	}
	if *levelPath != "" {
		cfg.Game.Level = *levelPath
	}

	watcher, err := settings.NewWatcher(*settingsPath, cfg)
	if err != nil {
		log.Fatalf("sparkle: %v", err)
	}
	defer watcher.Close()

	// ── Window ──────────────────────────────────────────────────────────
	win, err := window.NewWindow(
		window.WithTitle("sparkle"),
		window.WithSize(cfg.Display.Width, cfg.Display.Height),
	)
	if err != nil {
		log.Fatalf("sparkle: %v", err)
	}
	width, height := win.Size()

	// ── Backend and pipeline ────────────────────────────────────────────
	presentMode := renderer.PresentModeVSync
	if !cfg.Display.VSync {
		presentMode = renderer.PresentModeUncapped
	}
	backend := renderer.NewBackend(renderer.NewWGPUDriver(*software),
		renderer.WithPresentMode(presentMode),
		renderer.WithDebugMarkers(cfg.Engine.DebugMarkers),
	)
	if err := backend.Initialize(win.SurfaceDescriptor(), width, height); err != nil {
		log.Fatalf("sparkle: %v", err)
	}
	log.Printf("sparkle: rendering %dx%d on %s (%s)", width, height, backend.Driver().Name(), backend.Driver().AdapterInfo())

	pipeline, err := passes.NewPipeline(backend,
		passes.WithShadowMapSize(cfg.Engine.ShadowMapSize),
		passes.WithShaderValidation(cfg.Engine.Validation),
	)
	if err != nil {
		log.Fatalf("sparkle: %v", err)
	}

	// ── Camera ──────────────────────────────────────────────────────────
	cam := camera.NewCamera(
		camera.WithFovDegrees(cfg.Camera.FOV),
		camera.WithFar(cfg.Camera.RenderDistance),
		camera.WithController(camera.NewCameraController(
			camera.WithRadius(25),
			camera.WithElevation(0.4),
			camera.WithRadiusBounds(2, cfg.Camera.RenderDistance/2),
		)),
	)

	eng, err := engine.NewEngine(
		engine.WithWindow(win),
		engine.WithBackend(backend),
		engine.WithPipeline(pipeline),
		engine.WithCamera(cam),
		engine.WithLoader(loader.NewLoader()),
		engine.WithSSAOSource(watcher),
		engine.WithProfiling(cfg.Engine.Profiling || *profile),
	)
	if err != nil {
		log.Fatalf("sparkle: %v", err)
	}
	defer eng.Release()

	if cfg.Game.Level != "" {
		if err := eng.LoadLevel(cfg.Game.Level); err != nil {
			log.Printf("sparkle: starting with an empty scene: %v", err)
		}
	}

	if err := eng.Run(); err != nil {
		log.Printf("sparkle: %v", err)
	}
}
