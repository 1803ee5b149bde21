package profiler

import (
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-skin/engine/core"
)

// Stats is one reporting window of frame and memory statistics.
type Stats struct {
	FPS          float64
	WorstFrame   time.Duration
	HeapMB       float64
	AllocRateMBs float64
	GCCount      uint32
	MaxPause     time.Duration
	SysMB        float64
}

// Profiler tracks frame rate and memory statistics and logs them at a fixed interval.
type Profiler struct {
	frameCount     int
	lastTime       time.Time
	lastFrame      time.Time
	worstFrame     time.Duration
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
	last           Stats

	now func() time.Time
}

// NewProfiler creates a Profiler that reports every interval.
// A non-positive interval defaults to one second.
//
// Parameters:
//   - interval: time between reports
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(interval time.Duration) *Profiler {
	if interval <= 0 {
		interval = time.Second
	}
	start := time.Now()
	return &Profiler{
		lastTime:       start,
		lastFrame:      start,
		updateInterval: interval,
		now:            time.Now,
	}
}

// Tick should be called once per frame.
// When the interval has elapsed it logs FPS, the slowest frame, heap usage, allocation rate and GC pauses.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.frameCount++
	currentTime := p.now()
	if ft := currentTime.Sub(p.lastFrame); ft > p.worstFrame {
		p.worstFrame = ft
	}
	p.lastFrame = currentTime

	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	runtime.ReadMemStats(&p.memStats)
	gcCount := p.memStats.NumGC
	var maxPause uint64
	// PauseNs is a ring of the last 256 pauses.
	start := p.lastGCCount
	if gcCount-start > 256 {
		start = gcCount - 256
	}
	for i := start; i < gcCount; i++ {
		maxPause = max(maxPause, p.memStats.PauseNs[i%256])
	}

	p.last = Stats{
		FPS:          float64(p.frameCount) / elapsed.Seconds(),
		WorstFrame:   p.worstFrame,
		HeapMB:       float64(p.memStats.Alloc) / 1024 / 1024,
		AllocRateMBs: float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / elapsed.Seconds(),
		GCCount:      gcCount,
		MaxPause:     time.Duration(maxPause),
		SysMB:        float64(p.memStats.Sys) / 1024 / 1024,
	}
	core.LogInfo("frame stats: %.1f fps, worst %v, heap %.1f MB, alloc %.2f MB/s, %d gc (max pause %v), sys %.1f MB",
		p.last.FPS, p.last.WorstFrame, p.last.HeapMB, p.last.AllocRateMBs,
		p.last.GCCount, p.last.MaxPause, p.last.SysMB)

	p.frameCount = 0
	p.worstFrame = 0
	p.lastTime = currentTime
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}

// Last returns the most recently reported statistics.
func (p *Profiler) Last() Stats {
	return p.last
}
