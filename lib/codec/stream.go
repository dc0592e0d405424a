package codec

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/fosdem/rawpress/lib/encdec"
	"github.com/fosdem/rawpress/lib/keyframe"
)

// StreamEncoder writes every unit to its sink as soon as it is coded.
type StreamEncoder struct {
	enc      *unitEncoder
	sink     io.Writer
	w        *bufio.Writer
	finished bool
}

// NewStreamEncoder writes the stream header to w right away.
func NewStreamEncoder(w io.Writer, p Params) (*StreamEncoder, error) {
	enc, err := newUnitEncoder(p)
	if err != nil {
		return nil, err
	}
	s := &StreamEncoder{
		enc:  enc,
		sink: w,
		w:    bufio.NewWriterSize(w, 1<<20),
	}
	if _, err := s.w.Write(p.header(streamMagic)); err != nil {
		_ = enc.close()
		return nil, fmt.Errorf("could not write stream header: %w", err)
	}
	return s, nil
}

func (s *StreamEncoder) Submit(f *encdec.Frame, mode keyframe.Mode) error {
	if s.finished {
		return ErrFinished
	}
	unit, err := s.enc.encode(f, mode)
	if err != nil {
		return err
	}
	if _, err := s.w.Write(unit); err != nil {
		return fmt.Errorf("could not write frame %d: %w", s.enc.frames-1, err)
	}
	return nil
}

func (s *StreamEncoder) Frames() int {
	return s.enc.frames
}

// Finish writes the trailer, flushes and closes the sink if it can be
// closed. The encoder cannot be used afterwards.
func (s *StreamEncoder) Finish() error {
	if s.finished {
		return ErrFinished
	}
	s.finished = true

	trailer := binary.LittleEndian.AppendUint32([]byte{unitEnd}, uint32(s.enc.frames))
	_, err := s.w.Write(trailer)
	if err == nil {
		err = s.w.Flush()
	}
	if cerr := s.enc.close(); err == nil {
		err = cerr
	}
	if c, ok := s.sink.(io.Closer); ok {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}
	if err != nil {
		return fmt.Errorf("could not finish stream: %w", err)
	}
	return nil
}

// Abort flushes the units coded so far without a trailer and releases the
// encoder. The sink is left open for its owner.
func (s *StreamEncoder) Abort() error {
	if s.finished {
		return nil
	}
	s.finished = true
	err := s.w.Flush()
	if cerr := s.enc.close(); err == nil {
		err = cerr
	}
	return err
}
