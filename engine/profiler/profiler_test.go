package profiler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func TestReportsOncePerInterval(t *testing.T) {
	clock := &fakeClock{t: time.Unix(100, 0)}
	p := NewProfiler(WithInterval(time.Second), WithClock(clock.now), WithQuiet(true))

	for range 59 {
		clock.t = clock.t.Add(10 * time.Millisecond)
		_, ok := p.Tick()
		require.False(t, ok)
	}

	clock.t = time.Unix(101, 0)
	stats, ok := p.Tick()
	require.True(t, ok)
	assert.InDelta(t, 60, stats.FPS, 0.001)
	assert.Greater(t, stats.HeapMB, 0.0)
	assert.Greater(t, stats.SysMB, 0.0)
	assert.GreaterOrEqual(t, stats.MaxPause, time.Duration(0))

	_, ok = p.Tick()
	assert.False(t, ok, "a new interval starts after a report")
}

func TestDefaults(t *testing.T) {
	p := NewProfiler(WithInterval(0), WithClock(nil))
	assert.Equal(t, time.Second, p.updateInterval)
	assert.NotNil(t, p.now)
}
