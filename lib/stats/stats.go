package stats

import (
	"time"

	"github.com/fosdem/rawpress/lib/utils"
)

// Stats tracks the encoding rate of one run.
type Stats struct {
	Frames uint64  `json:"frames"`
	FPS    uint64  `json:"fps"`
	Uptime float64 `json:"uptime"`

	frameCounter uint64
	window       utils.Window
	start        time.Time
}

func New() *Stats {
	s := &Stats{window: utils.Window{Period: time.Second}}
	s.start = time.Now()
	s.window.Reset(s.start)
	return s
}

// Update counts one encoded frame.
func (s *Stats) Update() {
	// one timestamp per frame so the window does not drift
	now := time.Now()
	s.Frames++
	s.frameCounter++
	if s.window.Tick(now) {
		s.FPS = s.frameCounter
		s.frameCounter = 0
	}

	s.Uptime = now.Sub(s.start).Seconds()
}

// AverageFPS is the rate over the whole run so far.
func (s *Stats) AverageFPS() float64 {
	elapsed := time.Since(s.start).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(s.Frames) / elapsed
}

func (s *Stats) Elapsed() time.Duration {
	return time.Since(s.start)
}
