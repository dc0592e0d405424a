// Package codec is a small lossless encoder for canonical frames. It
// compresses each plane with zstd; predicted frames store the per-sample
// difference to the previous frame.
//
// Two containers exist. A stream (.rpv) is written unit by unit while
// frames arrive and carries no audio. A buffered file (.rpva) is kept in
// memory and written in one go, with an optional PCM track at the end.
//
//	header:  magic[4] width u32 height u32 framerate u32 quality u8
//	unit:    kind u8 ('I' or 'P') then 3 × (size u32, zstd bytes)
//	stream:  header unit* 'E' frames u32
//	buffered: header frames u32 unit* audio
//	audio:   0 | 1 rate u32 channels u16 samples u64 size u32 zstd(s16le)
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"runtime"

	"github.com/fosdem/rawpress/lib/encdec"
	"github.com/fosdem/rawpress/lib/keyframe"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/sync/errgroup"
)

const (
	streamMagic   = "RPV1"
	bufferedMagic = "RPVA"

	unitIndependent = 'I'
	unitPredicted   = 'P'
	unitEnd         = 'E'

	headerSize = 4 + 4 + 4 + 4 + 1
)

var (
	ErrNoReference = errors.New("predicted frame without a previous frame")
	ErrFinished    = errors.New("encoder already finished")
)

// Params are handed through from the run configuration. Quality selects
// the zstd level, Threads the number of planes compressed at once (0 picks
// GOMAXPROCS).
type Params struct {
	Width     int
	Height    int
	Framerate int
	Quality   int
	Threads   int
}

func (p Params) level() zstd.EncoderLevel {
	switch {
	case p.Quality <= 2:
		return zstd.SpeedFastest
	case p.Quality <= 5:
		return zstd.SpeedDefault
	case p.Quality <= 8:
		return zstd.SpeedBetterCompression
	default:
		return zstd.SpeedBestCompression
	}
}

func (p Params) threads() int {
	if p.Threads < 1 {
		return runtime.GOMAXPROCS(0)
	}
	return p.Threads
}

func (p Params) header(magic string) []byte {
	b := make([]byte, 0, headerSize)
	b = append(b, magic...)
	b = binary.LittleEndian.AppendUint32(b, uint32(p.Width))
	b = binary.LittleEndian.AppendUint32(b, uint32(p.Height))
	b = binary.LittleEndian.AppendUint32(b, uint32(p.Framerate))
	return append(b, uint8(p.Quality))
}

// unitEncoder holds what both container flavours share: the zstd encoder,
// the worker limit and the reference frame.
type unitEncoder struct {
	params Params
	zenc   *zstd.Encoder
	prev   *encdec.Frame
	frames int
}

func newUnitEncoder(p Params) (*unitEncoder, error) {
	if p.Width < 1 || p.Height < 1 {
		return nil, fmt.Errorf("invalid frame size %dx%d", p.Width, p.Height)
	}
	if p.Framerate < 1 {
		return nil, fmt.Errorf("invalid framerate %d", p.Framerate)
	}
	zenc, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(p.level()),
		zstd.WithEncoderConcurrency(p.threads()),
	)
	if err != nil {
		return nil, fmt.Errorf("could not create zstd encoder: %w", err)
	}
	return &unitEncoder{params: p, zenc: zenc}, nil
}

func (e *unitEncoder) encode(f *encdec.Frame, mode keyframe.Mode) ([]byte, error) {
	if f.Width != e.params.Width || f.Height != e.params.Height {
		return nil, fmt.Errorf("expected frame of size %dx%d but got %dx%d", e.params.Width, e.params.Height, f.Width, f.Height)
	}

	kind := byte(unitIndependent)
	switch mode {
	case keyframe.Independent:
	case keyframe.Predicted:
		if e.prev == nil {
			return nil, ErrNoReference
		}
		kind = unitPredicted
	default:
		return nil, fmt.Errorf("unknown coding mode %s", mode)
	}

	var compressed [3][]byte
	planes := f.Planes()
	var g errgroup.Group
	g.SetLimit(e.params.threads())
	for i := range planes {
		i := i
		g.Go(func() error {
			data := planes[i].Data
			if kind == unitPredicted {
				data = residual(data, e.prev.Planes()[i].Data)
			}
			compressed[i] = e.zenc.EncodeAll(data, nil)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	size := 1
	for _, c := range compressed {
		size += 4 + len(c)
	}
	unit := make([]byte, 0, size)
	unit = append(unit, kind)
	for _, c := range compressed {
		unit = binary.LittleEndian.AppendUint32(unit, uint32(len(c)))
		unit = append(unit, c...)
	}

	e.prev = f
	e.frames++
	return unit, nil
}

func (e *unitEncoder) close() error {
	e.prev = nil
	return e.zenc.Close()
}

func residual(cur, prev []byte) []byte {
	out := make([]byte, len(cur))
	for i := range cur {
		out[i] = cur[i] - prev[i]
	}
	return out
}

func reconstruct(res, prev []byte) {
	for i := range res {
		res[i] += prev[i]
	}
}
