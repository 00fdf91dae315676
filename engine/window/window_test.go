package window

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuilderOptions(t *testing.T) {
	w := &engineWindow{width: 1024, height: 768}
	for _, opt := range []WindowBuilderOption{
		WithTitle("demo"),
		WithSize(640, 0),
		WithMinSize(100, 50),
		WithMaxSize(1920, 1080),
	} {
		opt(w)
	}

	assert.Equal(t, "demo", w.title)
	width, height := w.Size()
	assert.Equal(t, 640, width)
	assert.Equal(t, 768, height, "non-positive height keeps the default")
	assert.Equal(t, 100, w.minWidth)
	assert.Equal(t, 1080, w.maxHeight)
}

func TestUnopenedWindow(t *testing.T) {
	w := &engineWindow{}

	assert.False(t, w.IsRunning())
	assert.False(t, w.PollEvents())
	assert.Nil(t, w.SurfaceDescriptor())
	assert.ErrorIs(t, w.Close(), ErrNotOpen)
}

func TestSizeLimit(t *testing.T) {
	assert.Equal(t, 200, limit(200))
	assert.Less(t, limit(0), 0)
}
