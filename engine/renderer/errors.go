package renderer

import (
	"errors"

	"github.com/theswiftfox/sparkle/engine/renderer/shader"
)

var (
	// ErrDeviceCreation is returned when no suitable adapter/device combination could be opened.
	ErrDeviceCreation = errors.New("renderer: device creation failed")

	// ErrSurfaceCreation is returned when the presentation surface cannot be bound to the window.
	ErrSurfaceCreation = errors.New("renderer: surface creation failed")

	// ErrResourceCreation is returned when a buffer, texture, sampler or view cannot be allocated.
	ErrResourceCreation = errors.New("renderer: resource creation failed")

	// ErrResourceUpdate is returned when uploading data into an existing resource fails.
	ErrResourceUpdate = errors.New("renderer: resource update failed")

	// ErrShaderCompile is returned when WGSL source cannot be processed.
	ErrShaderCompile = shader.ErrCompile

	// ErrShaderCreate is returned when the driver rejects a program.
	ErrShaderCreate = errors.New("renderer: shader program creation failed")

	// ErrPresent is returned by Backend.Present for any failure other than a recoverable device loss.
	ErrPresent = errors.New("renderer: present failed")

	// ErrDeviceLost is reported by drivers when the device was removed or reset.
	// Backend.Present consumes it and recovers; it never reaches the caller from there.
	ErrDeviceLost = errors.New("renderer: device lost")

	// ErrFrameSkipped is reported by drivers when the surface had no backbuffer to
	// give this frame (timeout, outdated configuration) but the device is fine.
	ErrFrameSkipped = errors.New("renderer: frame skipped")

	// ErrNotInitialized is returned when the backend is used before Initialize or after a failed recovery.
	ErrNotInitialized = errors.New("renderer: backend not initialized")
)
