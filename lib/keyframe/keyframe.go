// Package keyframe decides per frame whether it is coded independently or
// predicted from the previous frame.
package keyframe

import (
	"errors"
	"fmt"
)

const DefaultInterval = 30

var ErrInvalidInterval = errors.New("keyframe interval must be a positive integer")

type Mode int

const (
	Independent Mode = iota
	Predicted
)

func (m Mode) String() string {
	switch m {
	case Independent:
		return "independent"
	case Predicted:
		return "predicted"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Scheduler hands out one decision per frame, strictly forward.
type Scheduler struct {
	interval int
	ordinal  int
}

func New(interval int) (*Scheduler, error) {
	if interval < 1 {
		return nil, fmt.Errorf("%w (got %d)", ErrInvalidInterval, interval)
	}
	return &Scheduler{interval: interval}, nil
}

// Next returns the mode for the current ordinal and advances it.
func (s *Scheduler) Next() Mode {
	m := Predicted
	if s.ordinal%s.interval == 0 {
		m = Independent
	}
	s.ordinal++
	return m
}

// Ordinal is the 0-based index of the next frame.
func (s *Scheduler) Ordinal() int {
	return s.ordinal
}

func (s *Scheduler) Interval() int {
	return s.interval
}
