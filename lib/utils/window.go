package utils

import "time"

// Window accumulates the time between successive ticks and fires once at
// least Period has gone by since it last fired.
type Window struct {
	Period time.Duration

	last    time.Time
	elapsed time.Duration
}

// Tick records an event at now and reports whether the window fired.
// The first tick only starts the clock.
func (w *Window) Tick(now time.Time) bool {
	if !w.last.IsZero() {
		w.elapsed += now.Sub(w.last)
	}
	w.last = now
	if w.elapsed < w.Period {
		return false
	}
	w.elapsed = 0
	return true
}

func (w *Window) Reset(now time.Time) {
	w.last = now
	w.elapsed = 0
}
