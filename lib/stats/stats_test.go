package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUpdateCountsFrames(t *testing.T) {
	s := New()
	for i := 0; i < 10; i++ {
		s.Update()
	}
	assert.Equal(t, uint64(10), s.Frames)
	assert.GreaterOrEqual(t, s.Uptime, 0.0)
	assert.Greater(t, s.AverageFPS(), 0.0)
}

func TestFPSWindow(t *testing.T) {
	s := New()
	s.window.Reset(time.Now().Add(-2 * time.Second))
	s.Update()
	assert.Equal(t, uint64(1), s.FPS)
}
