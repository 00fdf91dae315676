// Package profiler reports frame rate and memory statistics at a fixed interval.
package profiler

import (
	"log"
	"runtime"
	"time"
)

// Stats is one profiling report.
type Stats struct {
	FPS float64
	// HeapMB is live heap memory.
	HeapMB float64
	// AllocRateMB is heap allocation churn per second since the previous report.
	AllocRateMB float64
	GCCount     uint32
	// LastPause and MaxPause are GC pauses; MaxPause covers collections since the previous report.
	LastPause time.Duration
	MaxPause  time.Duration
	// SysMB is the memory obtained from the OS.
	SysMB float64
}

// Profiler tracks frame rate and memory statistics for performance monitoring.
type Profiler struct {
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	now            func() time.Time
	quiet          bool

	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
}

// NewProfiler creates a Profiler. The interval defaults to one second.
//
// Parameters:
//   - opts: a variadic list of ProfilerBuilderOption functions
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(opts ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		updateInterval: time.Second,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.lastTime = p.now()
	return p
}

// Tick is called once per frame. When the interval has elapsed it samples the
// runtime, logs a report and starts the next interval.
//
// Returns:
//   - Stats: the report, zero when none was produced
//   - bool: true if a report was produced this tick
func (p *Profiler) Tick() (Stats, bool) {
	p.frameCount++
	current := p.now()
	elapsed := current.Sub(p.lastTime)
	if elapsed < p.updateInterval || elapsed <= 0 {
		return Stats{}, false
	}

	runtime.ReadMemStats(&p.memStats)
	stats := Stats{
		FPS:         float64(p.frameCount) / elapsed.Seconds(),
		HeapMB:      float64(p.memStats.Alloc) / 1024 / 1024,
		AllocRateMB: float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / elapsed.Seconds(),
		GCCount:     p.memStats.NumGC,
		SysMB:       float64(p.memStats.Sys) / 1024 / 1024,
	}

	if n := stats.GCCount; n > 0 {
		// PauseNs is a ring of the last 256 pauses
		stats.LastPause = time.Duration(p.memStats.PauseNs[(n-1)%256])
		start := p.lastGCCount
		if n-start > 256 {
			start = n - 256
		}
		for i := start; i < n; i++ {
			if pause := time.Duration(p.memStats.PauseNs[i%256]); pause > stats.MaxPause {
				stats.MaxPause = pause
			}
		}
	}

	if !p.quiet {
		log.Printf("profiler: fps %.2f | heap %.2f MB | alloc %.2f MB/s | gc %d (last %s, max %s) | sys %.2f MB",
			stats.FPS, stats.HeapMB, stats.AllocRateMB, stats.GCCount, stats.LastPause, stats.MaxPause, stats.SysMB)
	}

	p.frameCount = 0
	p.lastTime = current
	p.lastGCCount = stats.GCCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return stats, true
}
