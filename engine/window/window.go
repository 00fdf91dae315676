// Package window opens the platform window the renderer presents into and
// forwards its input and resize events.
package window

import (
	"errors"

	"github.com/cogentcore/webgpu/wgpu"
)

// ErrNotOpen is returned by operations on a window that was closed or never opened.
var ErrNotOpen = errors.New("window: not open")

// Key identifies a keyboard key independently of the windowing library.
type Key uint32

const (
	KeyUnknown Key = iota
	KeyLeft
	KeyRight
	KeyUp
	KeyDown
	KeyW
	KeyA
	KeyS
	KeyD
	KeyR
	KeyPageUp
	KeyPageDown
)

// Window provides the presentation surface and the events the engine reacts to.
type Window interface {
	// SetResizeCallback sets the function called when the framebuffer size changes.
	//
	// Parameters:
	//   - callback: function receiving the new width and height in pixels
	SetResizeCallback(callback func(width, height int))

	// SetScrollCallback sets the callback for mouse wheel events.
	//
	// Parameters:
	//   - callback: function receiving the vertical scroll delta (positive = away from the user)
	SetScrollCallback(callback func(delta float32))

	// SetKeyCallback sets the callback for key presses and repeats.
	//
	// Parameters:
	//   - callback: function receiving the pressed key
	SetKeyCallback(callback func(key Key))

	// SetDragCallback sets the callback for cursor movement while the middle button is held.
	//
	// Parameters:
	//   - callback: function receiving the cursor delta in pixels since the previous event
	SetDragCallback(callback func(dx, dy float32))

	// SurfaceDescriptor returns the platform surface descriptor created by the wgpuglfw bridge.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the descriptor, or nil if the window is not open
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// PollEvents processes pending events without blocking and dispatches callbacks.
	//
	// Returns:
	//   - bool: false once the window was asked to close
	PollEvents() bool

	// IsRunning reports whether the window is still open.
	IsRunning() bool

	// Size returns the framebuffer size in pixels.
	Size() (width, height int)

	// Close destroys the window and releases the platform library.
	Close() error
}

type engineWindow struct {
	title string

	minWidth, minHeight int
	maxWidth, maxHeight int
	width, height       int

	internalWindow any

	onResize func(width, height int)
	onScroll func(delta float32)
	onKey    func(key Key)
	onDrag   func(dx, dy float32)
}

var _ Window = &engineWindow{}

// NewWindow opens a window with the specified options.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the open window, sized to its framebuffer
//   - error: if the platform library or the window could not be created
func NewWindow(options ...WindowBuilderOption) (Window, error) {
	w := &engineWindow{
		title:     "sparkle",
		minWidth:  320,
		minHeight: 240,
		width:     1024,
		height:    768,
	}
	for _, opt := range options {
		opt(w)
	}
	if err := newPlatformWindow(w); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *engineWindow) SetResizeCallback(callback func(width, height int)) {
	w.onResize = callback
}

func (w *engineWindow) SetScrollCallback(callback func(delta float32)) {
	w.onScroll = callback
}

func (w *engineWindow) SetKeyCallback(callback func(key Key)) {
	w.onKey = callback
}

func (w *engineWindow) SetDragCallback(callback func(dx, dy float32)) {
	w.onDrag = callback
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return platformGetSurfaceDescriptor(w)
}

func (w *engineWindow) PollEvents() bool {
	return platformProcessMessages(w)
}

func (w *engineWindow) IsRunning() bool {
	return platformIsRunningCheck(w)
}

func (w *engineWindow) Size() (int, int) {
	return w.width, w.height
}

func (w *engineWindow) Close() error {
	return platformCloseWindow(w)
}
