// Package engine drives the renderer: it owns the window, backend, pipeline,
// camera and current scene, and runs the single-threaded frame loop.
package engine

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/theswiftfox/sparkle/engine/camera"
	"github.com/theswiftfox/sparkle/engine/loader"
	"github.com/theswiftfox/sparkle/engine/passes"
	"github.com/theswiftfox/sparkle/engine/profiler"
	"github.com/theswiftfox/sparkle/engine/renderer"
	"github.com/theswiftfox/sparkle/engine/scene"
	"github.com/theswiftfox/sparkle/engine/window"
)

var (
	// ErrNotConfigured is returned when the engine lacks a backend or pipeline.
	ErrNotConfigured = errors.New("engine: backend and pipeline are required")
	// ErrNoLoader is returned by LoadLevel when no loader was configured.
	ErrNoLoader = errors.New("engine: no level loader")
)

// SSAOSource reports the ambient-occlusion switch once per frame.
// settings.Watcher satisfies it.
type SSAOSource interface {
	SSAOEnabled() bool
}

// engine implements the Engine interface.
type engine struct {
	mu *sync.Mutex

	window   window.Window
	backend  renderer.Backend
	pipeline passes.Pipeline
	camera   camera.Camera
	loader   loader.Loader
	ssao     SSAOSource

	scene     scene.Scene
	levelPath string

	profiler         *profiler.Profiler
	profilingEnabled bool

	frameCallback func(deltaTime float32)
	lastFrame     time.Time

	pendingResize *[2]int
	quit          bool
	released      bool

	panStep  float32
	zoomStep float32
}

// Engine is the main entry point. Every method must be called from the
// thread that created the window.
type Engine interface {
	// Run polls the window and renders frames until the window closes, Quit is
	// called or the backend cannot recover its device.
	//
	// Returns:
	//   - error: nil on a regular shutdown, otherwise the failure that ended the loop
	Run() error

	// Step renders a single frame: it applies a pending resize, reads the
	// ambient-occlusion switch, renders and ticks the profiler. Run calls it
	// after every window poll.
	//
	// Returns:
	//   - error: a frame failure; the loop keeps running unless the backend is uninitialized
	Step() error

	// Resize queues a framebuffer resize that is applied before the next frame.
	//
	// Parameters:
	//   - width: the new width in pixels
	//   - height: the new height in pixels
	Resize(width, height int)

	// LoadLevel loads a level file and replaces the current scene with it. On
	// failure the current scene stays.
	//
	// Parameters:
	//   - path: the level manifest
	//
	// Returns:
	//   - error: ErrNoLoader, or the loader or scene error
	LoadLevel(path string) error

	// ReloadLevel loads the last successfully loaded level again.
	ReloadLevel() error

	// SetScene replaces the current scene. The engine releases the previous one
	// and takes ownership of s.
	SetScene(s scene.Scene)

	// Scene returns the current scene, nil before a level was loaded.
	Scene() scene.Scene

	Camera() camera.Camera
	Pipeline() passes.Pipeline

	// SetFrameCallback registers a function called before every frame with the
	// seconds elapsed since the previous one.
	SetFrameCallback(callback func(deltaTime float32))

	EnableProfiler()
	DisableProfiler()

	// Quit makes Run return after the current frame.
	Quit()

	// Release frees the scene, the pipeline, the loader cache and the backend,
	// and closes the window.
	Release()
}

var _ Engine = &engine{}

// NewEngine creates an engine from its collaborators and wires the window's
// resize and input callbacks.
//
// Parameters:
//   - options: functional options supplying the backend, pipeline and the rest
//
// Returns:
//   - Engine: the engine
//   - error: ErrNotConfigured without a backend or pipeline
func NewEngine(options ...EngineBuilderOption) (Engine, error) {
	e := &engine{
		mu:       &sync.Mutex{},
		profiler: profiler.NewProfiler(),
		panStep:  0.5,
		zoomStep: 1,
	}
	for _, opt := range options {
		opt(e)
	}
	if e.backend == nil || e.pipeline == nil {
		return nil, ErrNotConfigured
	}
	if e.camera == nil {
		e.camera = camera.NewCamera()
	}
	if w, h := e.backend.Width(), e.backend.Height(); w > 0 && h > 0 {
		e.camera.Resize(w, h)
	}
	if e.window != nil {
		e.bindWindow()
	}
	return e, nil
}

func (e *engine) bindWindow() {
	e.window.SetResizeCallback(e.Resize)
	e.window.SetScrollCallback(func(delta float32) {
		e.camera.Controller().Zoom(delta * e.zoomStep)
		e.camera.Update()
	})
	e.window.SetKeyCallback(e.handleKey)
	e.window.SetDragCallback(func(dx, dy float32) {
		ctrl := e.camera.Controller()
		ctrl.PanRight(-dx * e.panStep * 0.05)
		ctrl.PanForward(dy * e.panStep * 0.05)
		e.camera.Update()
	})
}

func (e *engine) handleKey(key window.Key) {
	ctrl := e.camera.Controller()
	switch key {
	case window.KeyLeft:
		ctrl.OrbitLeft()
	case window.KeyRight:
		ctrl.OrbitRight()
	case window.KeyUp:
		ctrl.OrbitUp()
	case window.KeyDown:
		ctrl.OrbitDown()
	case window.KeyW:
		ctrl.PanForward(e.panStep)
	case window.KeyS:
		ctrl.PanForward(-e.panStep)
	case window.KeyA:
		ctrl.PanRight(-e.panStep)
	case window.KeyD:
		ctrl.PanRight(e.panStep)
	case window.KeyPageUp:
		ctrl.Zoom(e.zoomStep)
	case window.KeyPageDown:
		ctrl.Zoom(-e.zoomStep)
	case window.KeyR:
		if err := e.ReloadLevel(); err != nil {
			log.Printf("engine: reload failed: %v", err)
		}
		return
	default:
		return
	}
	e.camera.Update()
}

func (e *engine) Run() error {
	e.lastFrame = time.Now()
	for !e.quitRequested() {
		if e.window != nil && !e.window.PollEvents() {
			break
		}
		if err := e.Step(); err != nil {
			if e.backend.State() == renderer.StateUninitialized {
				return fmt.Errorf("engine: device could not be recovered: %w", err)
			}
			log.Printf("engine: frame failed: %v", err)
		}
	}
	return nil
}

func (e *engine) Step() error {
	if err := e.applyResize(); err != nil {
		return err
	}

	if e.frameCallback != nil {
		now := time.Now()
		if e.lastFrame.IsZero() {
			e.lastFrame = now
		}
		e.frameCallback(float32(now.Sub(e.lastFrame).Seconds()))
		e.lastFrame = now
	}

	ssao := true
	if e.ssao != nil {
		ssao = e.ssao.SSAOEnabled()
	}

	err := e.pipeline.Render(passes.Frame{Camera: e.camera, Scene: e.Scene(), SSAO: ssao})

	if e.profilingEnabled {
		e.profiler.Tick()
	}
	return err
}

// applyResize resizes the backend first so the pipeline sizes its targets
// against the reconfigured surface.
func (e *engine) applyResize() error {
	e.mu.Lock()
	pending := e.pendingResize
	e.pendingResize = nil
	e.mu.Unlock()
	if pending == nil {
		return nil
	}

	width, height := pending[0], pending[1]
	changed, err := e.backend.Resize(width, height)
	if err != nil {
		return fmt.Errorf("engine: resize to %dx%d: %w", width, height, err)
	}
	if !changed {
		return nil
	}
	e.pipeline.Resize(width, height)
	e.camera.Resize(width, height)
	log.Printf("engine: resized to %dx%d", width, height)
	return nil
}

func (e *engine) Resize(width, height int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pendingResize = &[2]int{width, height}
}

func (e *engine) LoadLevel(path string) error {
	if e.loader == nil {
		return ErrNoLoader
	}
	start := time.Now()
	lv, err := e.loader.Load(path)
	if err != nil {
		log.Printf("engine: keeping current scene, level %s failed: %v", path, err)
		return err
	}

	s := scene.NewScene(scene.WithName(lv.Name), scene.WithLights(lv.Lights...))
	if _, err := s.SetRoot(lv.Root); err != nil {
		lv.Release()
		s.Release()
		log.Printf("engine: keeping current scene, level %s failed: %v", path, err)
		return err
	}

	e.SetScene(s)
	e.mu.Lock()
	e.levelPath = path
	e.mu.Unlock()

	pruned := e.loader.Prune()
	log.Printf("engine: loaded level %q with %d nodes and %d lights in %s (%d textures pruned)",
		lv.Name, s.Len(), len(lv.Lights), time.Since(start).Round(time.Millisecond), pruned)
	return nil
}

func (e *engine) ReloadLevel() error {
	e.mu.Lock()
	path := e.levelPath
	e.mu.Unlock()
	if path == "" {
		return nil
	}
	return e.LoadLevel(path)
}

func (e *engine) SetScene(s scene.Scene) {
	e.mu.Lock()
	old := e.scene
	e.scene = s
	e.mu.Unlock()
	if old != nil && old != s {
		old.Release()
	}
}

func (e *engine) Scene() scene.Scene {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scene
}

func (e *engine) Camera() camera.Camera {
	return e.camera
}

func (e *engine) Pipeline() passes.Pipeline {
	return e.pipeline
}

func (e *engine) SetFrameCallback(callback func(deltaTime float32)) {
	e.frameCallback = callback
}

func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

func (e *engine) Quit() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.quit = true
}

func (e *engine) quitRequested() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.quit
}

func (e *engine) Release() {
	if e.released {
		return
	}
	e.released = true
	e.SetScene(nil)
	e.pipeline.Release()
	if e.loader != nil {
		e.loader.Release()
	}
	e.backend.Release()
	if e.window != nil {
		if err := e.window.Close(); err != nil && !errors.Is(err, window.ErrNotOpen) {
			log.Printf("engine: closing window: %v", err)
		}
	}
}
