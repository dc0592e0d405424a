// Package pipeline drives frames from a source through normalisation and
// the keyframe scheduler into an encoder.
package pipeline

import (
	"errors"
	"fmt"
	"io"

	"github.com/fosdem/rawpress/lib/audio"
	"github.com/fosdem/rawpress/lib/encdec"
	"github.com/fosdem/rawpress/lib/keyframe"
	"github.com/fosdem/rawpress/lib/metrics"
	"github.com/fosdem/rawpress/lib/progress"
)

// FrameSource yields canonical frames until it returns io.EOF.
type FrameSource interface {
	Next() (*encdec.Frame, error)
}

// Submitter is what both encoder lifecycles have in common.
type Submitter interface {
	Submit(f *encdec.Frame, mode keyframe.Mode) error
}

// StreamSink is an encoder bound to its output from the start.
type StreamSink interface {
	Submitter
	Finish() error
	Abort() error
}

// BufferedSink is an encoder that holds everything until WriteTo.
type BufferedSink interface {
	Submitter
	AppendAudio(buf *audio.Buffer) error
	WriteTo(w io.Writer) (int64, error)
	Discard() error
}

type Driver struct {
	Encoder   Submitter
	Scheduler *keyframe.Scheduler
	Progress  progress.Reporter
	Metrics   *metrics.RunMetrics
}

func (d *Driver) submit(f *encdec.Frame) error {
	ordinal := d.Scheduler.Ordinal()
	mode := d.Scheduler.Next()
	if err := d.Encoder.Submit(f, mode); err != nil {
		return fmt.Errorf("could not encode frame %d: %w", ordinal, err)
	}
	if d.Metrics != nil {
		d.Metrics.Frame(mode)
	}
	if d.Progress != nil {
		d.Progress.Frame(ordinal + 1)
	}
	return nil
}

// DriveUntilEOF submits frames until the source reports io.EOF and
// returns how many were submitted. Any other error aborts the run.
func (d *Driver) DriveUntilEOF(src FrameSource) (int, error) {
	n := 0
	for {
		f, err := src.Next()
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, fmt.Errorf("error reading input: %w", err)
		}
		if err := d.submit(f); err != nil {
			return n, err
		}
		n++
	}
}

// DriveCount loads and submits exactly count frames.
func (d *Driver) DriveCount(count int, load func(i int) (*encdec.Frame, error)) (int, error) {
	for i := 0; i < count; i++ {
		f, err := load(i)
		if err != nil {
			return i, fmt.Errorf("error reading input: %w", err)
		}
		if err := d.submit(f); err != nil {
			return i, err
		}
	}
	return count, nil
}
