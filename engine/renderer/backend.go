package renderer

import (
	"errors"
	"fmt"
	"log"

	"github.com/theswiftfox/sparkle/engine/renderer/pipeline"
)

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// State is a lifecycle state of the Backend.
type State int

const (
	StateUninitialized State = iota
	StateInitialized
	StateDeviceLost
	StateRecovering
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	case StateDeviceLost:
		return "device lost"
	case StateRecovering:
		return "recovering"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Viewport is the output rectangle passes render into.
type Viewport struct {
	X, Y, Width, Height float32
	MinDepth, MaxDepth  float32
}

// defaultClearColor is a dark linear grey.
var defaultClearColor = [4]float64{0.052860655, 0.052860655, 0.052860655, 1}

// backend is the implementation of the Backend interface.
type backend struct {
	driver Driver
	state  State

	// generation increases every time the device is (re)opened. Resources compare
	// it against the generation they were created under.
	generation uint64

	surface       any
	width, height int

	presentMode  PresentMode
	clearColor   [4]float64
	debugMarkers bool

	depth      Texture
	backbuffer Texture

	frameActive bool
	lostPending bool
}

// Backend owns the device, the presentation surface and the primary targets.
// It hides device loss from its callers: a lost device is detected while a frame
// is acquired or presented and recovered from inside Present.
//
// State machine: Uninitialized -> Initialized <-> (DeviceLost -> Recovering -> Initialized).
// A failed recovery returns to Uninitialized.
type Backend interface {
	// Initialize opens the device for the given native surface and creates the primary targets.
	//
	// Parameters:
	//   - surface: the native surface handle understood by the driver
	//   - width: the surface width in pixels
	//   - height: the surface height in pixels
	//
	// Returns:
	//   - error: wraps ErrDeviceCreation, ErrSurfaceCreation or ErrResourceCreation
	Initialize(surface any, width, height int) error

	// Resize reconfigures the surface and recreates the primary targets.
	//
	// Parameters:
	//   - width: the new width in pixels
	//   - height: the new height in pixels
	//
	// Returns:
	//   - bool: false when the size is unchanged or zero (minimised window), true when targets were recreated
	//   - error: ErrNotInitialized or a wrapped creation error
	Resize(width, height int) (bool, error)

	// BeginFrame acquires the backbuffer and clears the primary targets.
	//
	// Returns:
	//   - bool: false when no backbuffer could be acquired because the device was lost
	//     or the surface was briefly unavailable; the caller skips rendering and calls
	//     Present, which recovers when needed
	//   - error: any other failure. No frame is left open when an error is returned
	BeginFrame() (bool, error)

	// Present submits the frame. Device loss triggers recovery and is not returned;
	// any other failure wraps ErrPresent.
	Present() error

	// Release closes the driver and returns to Uninitialized.
	Release()

	// BeginMarker and EndMarker log pass boundaries when debug markers are enabled.
	BeginMarker(name string)
	EndMarker(name string)

	State() State
	Generation() uint64
	Driver() Driver

	// Backbuffer returns the colour target of the current frame, nil outside a frame.
	Backbuffer() Texture

	// Depth returns the primary depth target. It is sampleable.
	Depth() Texture

	Viewport() Viewport
	Width() int
	Height() int
	ClearColor() [4]float64
}

var _ Backend = &backend{}

// NewBackend creates an uninitialized Backend on top of the given driver.
//
// Parameters:
//   - driver: the device driver to use
//   - opts: a variadic list of BackendBuilderOption functions
//
// Returns:
//   - Backend: the new backend in StateUninitialized
func NewBackend(driver Driver, opts ...BackendBuilderOption) Backend {
	b := &backend{
		driver:      driver,
		presentMode: PresentModeVSync,
		clearColor:  defaultClearColor,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *backend) Initialize(surface any, width, height int) error {
	if b.state != StateUninitialized {
		return fmt.Errorf("backend already %s", b.state)
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: invalid surface size %dx%d", ErrSurfaceCreation, width, height)
	}
	b.surface = surface
	b.width, b.height = width, height

	if err := b.open(); err != nil {
		return err
	}
	b.state = StateInitialized
	log.Printf("backend: initialized %s on %s at %dx%d", b.driver.Name(), b.driver.AdapterInfo(), width, height)
	return nil
}

func (b *backend) open() error {
	if err := b.driver.Open(b.surface, uint32(b.width), uint32(b.height), b.presentMode); err != nil {
		return err
	}
	if err := b.createTargets(); err != nil {
		b.driver.Close()
		return err
	}
	b.generation++
	return nil
}

func (b *backend) createTargets() error {
	depth, err := b.newDepth(b.width, b.height)
	if err != nil {
		return err
	}
	b.depth = depth
	return nil
}

func (b *backend) newDepth(width, height int) (Texture, error) {
	depth, err := b.driver.CreateTexture(TextureDescriptor{
		Label:  "primary depth",
		Width:  uint32(width),
		Height: uint32(height),
		Format: pipeline.FormatDepth32Float,
		Usage:  TextureUsageRenderTarget | TextureUsageSampled,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: primary depth: %w", ErrResourceCreation, err)
	}
	return depth, nil
}

func (b *backend) releaseTargets() {
	if b.depth != nil {
		b.depth.Release()
		b.depth = nil
	}
	b.backbuffer = nil
}

// Resize commits the new size only once the surface and the new targets exist.
// On failure the previous size and targets stay in use.
func (b *backend) Resize(width, height int) (bool, error) {
	if b.state != StateInitialized {
		return false, ErrNotInitialized
	}
	if width <= 0 || height <= 0 || (width == b.width && height == b.height) {
		return false, nil
	}
	if err := b.driver.Configure(uint32(width), uint32(height)); err != nil {
		return false, fmt.Errorf("%w: configure surface: %w", ErrSurfaceCreation, err)
	}
	depth, err := b.newDepth(width, height)
	if err != nil {
		if restoreErr := b.driver.Configure(uint32(b.width), uint32(b.height)); restoreErr != nil {
			return false, errors.Join(err, restoreErr)
		}
		return false, err
	}
	b.releaseTargets()
	b.depth = depth
	b.width, b.height = width, height
	log.Printf("backend: resized to %dx%d", width, height)
	return true, nil
}

func (b *backend) BeginFrame() (bool, error) {
	if b.state != StateInitialized {
		return false, ErrNotInitialized
	}
	if b.frameActive {
		return false, errors.New("frame already begun")
	}

	tex, err := b.driver.BeginFrame()
	switch {
	case errors.Is(err, ErrDeviceLost):
		b.lostPending = true
		return false, nil
	case errors.Is(err, ErrFrameSkipped):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("%w: acquire backbuffer: %w", ErrPresent, err)
	}

	enc, err := b.driver.BeginPass(PassDescriptor{
		Label: "clear",
		Color: []ColorAttachment{{Target: tex, Load: LoadOpClear, Clear: b.clearColor}},
		Depth: &DepthAttachment{Target: b.depth, Load: LoadOpClear, Clear: 1},
	})
	if err == nil {
		err = enc.End()
	}
	if err != nil {
		b.driver.AbandonFrame()
		return false, fmt.Errorf("%w: clear: %w", ErrPresent, err)
	}
	b.backbuffer = tex
	b.frameActive = true
	return true, nil
}

func (b *backend) Present() error {
	if b.state != StateInitialized {
		return fmt.Errorf("%w: %w", ErrPresent, ErrNotInitialized)
	}

	lost := b.lostPending
	if b.frameActive {
		err := b.driver.Present()
		b.frameActive = false
		b.backbuffer = nil
		switch {
		case errors.Is(err, ErrDeviceLost):
			lost = true
		case err != nil:
			return fmt.Errorf("%w: %w", ErrPresent, err)
		}
	}
	if !lost {
		return nil
	}

	b.lostPending = false
	b.state = StateDeviceLost
	log.Printf("backend: device lost, recovering")
	if err := b.recover(); err != nil {
		log.Printf("backend: recovery failed: %v", err)
		return fmt.Errorf("%w: recovery: %w", ErrPresent, err)
	}
	return nil
}

// recover tears down every driver object owned by the backend and reopens the
// device with the stored surface and size. Other resources notice the new
// generation and recreate themselves on their next Sync.
func (b *backend) recover() error {
	b.state = StateRecovering
	b.releaseTargets()
	b.driver.Close()

	if err := b.open(); err != nil {
		b.state = StateUninitialized
		return err
	}
	b.state = StateInitialized
	log.Printf("backend: recovered, generation %d", b.generation)
	return nil
}

func (b *backend) Release() {
	b.releaseTargets()
	if b.state != StateUninitialized {
		b.driver.Close()
	}
	b.state = StateUninitialized
	b.frameActive = false
	b.lostPending = false
}

func (b *backend) BeginMarker(name string) {
	if b.debugMarkers {
		log.Printf("backend: begin %s", name)
	}
}

func (b *backend) EndMarker(name string) {
	if b.debugMarkers {
		log.Printf("backend: end %s", name)
	}
}

func (b *backend) State() State {
	return b.state
}

func (b *backend) Generation() uint64 {
	return b.generation
}

func (b *backend) Driver() Driver {
	return b.driver
}

func (b *backend) Backbuffer() Texture {
	return b.backbuffer
}

func (b *backend) Depth() Texture {
	return b.depth
}

func (b *backend) Viewport() Viewport {
	return Viewport{Width: float32(b.width), Height: float32(b.height), MaxDepth: 1}
}

func (b *backend) Width() int {
	return b.width
}

func (b *backend) Height() int {
	return b.height
}

func (b *backend) ClearColor() [4]float64 {
	return b.clearColor
}

// requireInitialized is the common precondition of every resource Sync.
func requireInitialized(b Backend) error {
	if b == nil || b.State() != StateInitialized {
		return ErrNotInitialized
	}
	return nil
}
