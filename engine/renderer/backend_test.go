package renderer_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/theswiftfox/sparkle/engine/renderer"
	"github.com/theswiftfox/sparkle/engine/renderer/pipeline"
	"github.com/theswiftfox/sparkle/engine/renderer/renderertest"
)

func newInitialized(t *testing.T, opts ...renderer.BackendBuilderOption) (renderer.Backend, *renderertest.Driver) {
	t.Helper()
	drv := renderertest.New()
	b := renderer.NewBackend(drv, opts...)
	require.NoError(t, b.Initialize("window", 800, 600))
	return b, drv
}

func TestInitialize(t *testing.T) {
	b, drv := newInitialized(t, renderer.WithPresentMode(renderer.PresentModeUncapped))

	assert.Equal(t, renderer.StateInitialized, b.State())
	assert.Equal(t, uint64(1), b.Generation())
	assert.Equal(t, "window", drv.Surface)
	assert.Equal(t, renderer.PresentModeUncapped, drv.PresentMode)
	require.NotNil(t, b.Depth())
	assert.Equal(t, pipeline.FormatDepth32Float, b.Depth().Format())
	assert.Equal(t, renderer.Viewport{Width: 800, Height: 600, MaxDepth: 1}, b.Viewport())

	assert.Error(t, b.Initialize("window", 800, 600), "second Initialize")
}

func TestInitializeErrors(t *testing.T) {
	t.Run("device", func(t *testing.T) {
		drv := renderertest.New()
		drv.FailOpen(renderer.ErrDeviceCreation)
		b := renderer.NewBackend(drv)
		err := b.Initialize("window", 800, 600)
		assert.ErrorIs(t, err, renderer.ErrDeviceCreation)
		assert.Equal(t, renderer.StateUninitialized, b.State())
	})

	t.Run("zero size", func(t *testing.T) {
		b := renderer.NewBackend(renderertest.New())
		assert.ErrorIs(t, b.Initialize("window", 0, 600), renderer.ErrSurfaceCreation)
	})

	t.Run("targets", func(t *testing.T) {
		drv := renderertest.New()
		drv.FailCreates(errors.New("out of memory"))
		b := renderer.NewBackend(drv)
		assert.ErrorIs(t, b.Initialize("window", 800, 600), renderer.ErrResourceCreation)
		assert.False(t, drv.Opened, "driver closed after failed target creation")
	})
}

func TestResizeIdempotence(t *testing.T) {
	b, drv := newInitialized(t)
	depth := b.Depth()
	textures := len(drv.Textures)

	changed, err := b.Resize(800, 600)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, 0, drv.Configures)
	assert.Len(t, drv.Textures, textures, "no reallocation")
	assert.Same(t, depth, b.Depth())

	changed, err = b.Resize(1024, 768)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 1, drv.Configures)
	assert.Equal(t, 1024, b.Width())
	assert.Equal(t, uint32(768), b.Depth().Height())
	assert.True(t, depth.(*renderertest.Texture).Released)

	ok, err := b.BeginFrame()
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, b.Present())
	assert.Equal(t, 1, drv.Frames)
	assert.Empty(t, drv.Violations)
}

func TestFailedResizeKeepsPreviousTargets(t *testing.T) {
	b, drv := newInitialized(t)
	depth := b.Depth()

	drv.FailCreates(errors.New("out of memory"))
	changed, err := b.Resize(1024, 768)
	assert.ErrorIs(t, err, renderer.ErrResourceCreation)
	assert.False(t, changed)
	assert.Equal(t, 800, b.Width())
	assert.Equal(t, 600, b.Height())
	assert.Same(t, depth, b.Depth())
	assert.False(t, depth.(*renderertest.Texture).Released)
	assert.Equal(t, uint32(800), drv.Width, "the surface is configured back")

	ok, err := b.BeginFrame()
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, b.Present())

	drv.FailCreates(nil)
	changed, err = b.Resize(1024, 768)
	require.NoError(t, err)
	assert.True(t, changed, "the same size is retried after a failure")
	assert.Equal(t, uint32(1024), b.Depth().Width())
	assert.Empty(t, drv.Violations)
}

func TestFailedClearLeavesNoFrameOpen(t *testing.T) {
	b, drv := newInitialized(t)

	drv.FailPasses(errors.New("encoder rejected"))
	ok, err := b.BeginFrame()
	assert.ErrorIs(t, err, renderer.ErrPresent)
	assert.False(t, ok)
	assert.Nil(t, b.Backbuffer())
	assert.Equal(t, 1, drv.Abandoned)

	drv.FailPasses(nil)
	ok, err = b.BeginFrame()
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, b.Present())
	assert.Equal(t, 1, drv.Frames)
	assert.Empty(t, drv.Violations)
}

func TestSkippedFrameDoesNotRecover(t *testing.T) {
	b, drv := newInitialized(t)

	drv.SkipNextFrame()
	ok, err := b.BeginFrame()
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, b.Present())
	assert.Equal(t, uint64(1), b.Generation())
	assert.Equal(t, 1, drv.Opens)

	ok, err = b.BeginFrame()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestResizeMinimisedIsIgnored(t *testing.T) {
	b, drv := newInitialized(t)
	changed, err := b.Resize(0, 0)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, 0, drv.Configures)
}

func TestResizeBeforeInitialize(t *testing.T) {
	b := renderer.NewBackend(renderertest.New())
	_, err := b.Resize(10, 10)
	assert.ErrorIs(t, err, renderer.ErrNotInitialized)
}

func TestBeginFrameClearsPrimaryTargets(t *testing.T) {
	b, drv := newInitialized(t, renderer.WithClearColor([4]float64{1, 0, 0, 1}))

	ok, err := b.BeginFrame()
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, b.Backbuffer())

	require.Len(t, drv.Passes, 1)
	clear := drv.Passes[0]
	assert.Equal(t, "clear", clear.Label)
	assert.Equal(t, renderer.LoadOpClear, clear.Color[0].Load)
	assert.Equal(t, [4]float64{1, 0, 0, 1}, clear.Color[0].Clear)
	assert.Same(t, b.Depth(), clear.Depth.Target)
	assert.Equal(t, float32(1), clear.Depth.Clear)

	require.NoError(t, b.Present())
	assert.Nil(t, b.Backbuffer())
}

func TestDeviceLossOnPresentRecovers(t *testing.T) {
	b, drv := newInitialized(t)
	oldDepth := b.Depth()

	ok, err := b.BeginFrame()
	require.NoError(t, err)
	require.True(t, ok)

	drv.LoseDeviceOnPresent()
	require.NoError(t, b.Present(), "device loss is not surfaced")

	assert.Equal(t, renderer.StateInitialized, b.State())
	assert.Equal(t, uint64(2), b.Generation())
	assert.Equal(t, 2, drv.Opens)
	assert.Equal(t, 1, drv.Closes)
	assert.NotSame(t, oldDepth, b.Depth())
	assert.Equal(t, 2, b.Depth().(*renderertest.Texture).Gen)

	ok, err = b.BeginFrame()
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, b.Present())
	assert.Empty(t, drv.Violations)
}

func TestDeviceLossOnBeginFrameRecoversInPresent(t *testing.T) {
	b, drv := newInitialized(t)

	drv.LoseDeviceOnBeginFrame()
	ok, err := b.BeginFrame()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, renderer.StateInitialized, b.State(), "loss is only acted on in Present")

	require.NoError(t, b.Present())
	assert.Equal(t, uint64(2), b.Generation())

	ok, err = b.BeginFrame()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFailedRecovery(t *testing.T) {
	b, drv := newInitialized(t)

	_, err := b.BeginFrame()
	require.NoError(t, err)
	drv.LoseDeviceOnPresent()
	drv.FailOpen(renderer.ErrDeviceCreation)

	err = b.Present()
	assert.ErrorIs(t, err, renderer.ErrPresent)
	assert.ErrorIs(t, err, renderer.ErrDeviceCreation)
	assert.Equal(t, renderer.StateUninitialized, b.State())

	_, err = b.BeginFrame()
	assert.ErrorIs(t, err, renderer.ErrNotInitialized)

	require.NoError(t, b.Initialize("window", 800, 600), "a failed backend can be initialized again")
	assert.Equal(t, uint64(2), b.Generation())
}

func TestPresentError(t *testing.T) {
	b, drv := newInitialized(t)

	_, err := b.BeginFrame()
	require.NoError(t, err)
	drv.FailPresent(errors.New("swapchain timeout"))

	err = b.Present()
	assert.ErrorIs(t, err, renderer.ErrPresent)
	assert.NotErrorIs(t, err, renderer.ErrDeviceLost)
	assert.Equal(t, renderer.StateInitialized, b.State())
	assert.Equal(t, uint64(1), b.Generation())
}

func TestPresentBeforeInitialize(t *testing.T) {
	b := renderer.NewBackend(renderertest.New())
	err := b.Present()
	assert.ErrorIs(t, err, renderer.ErrPresent)
	assert.ErrorIs(t, err, renderer.ErrNotInitialized)
}

func TestRelease(t *testing.T) {
	b, drv := newInitialized(t)
	b.Release()
	assert.Equal(t, renderer.StateUninitialized, b.State())
	assert.False(t, drv.Opened)
	assert.Nil(t, b.Depth())
}
