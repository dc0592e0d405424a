package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

var ErrUnsupportedFormat = errors.New("only 8-bit unsigned, 16-bit signed or 32-bit float audio supported")

type SampleFormat int

const (
	FormatUnknown SampleFormat = iota
	FormatU8
	FormatS16
	FormatF32
)

func (f SampleFormat) BytesPerSample() int {
	switch f {
	case FormatU8:
		return 1
	case FormatS16:
		return 2
	case FormatF32:
		return 4
	default:
		return 0
	}
}

func (f SampleFormat) String() string {
	switch f {
	case FormatU8:
		return "u8"
	case FormatS16:
		return "s16le"
	case FormatF32:
		return "f32le"
	default:
		return "unknown"
	}
}

type Header struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// Raw is an interleaved little-endian sample buffer as read from the source.
type Raw struct {
	Header
	Format SampleFormat
	Data   []byte
}

// NoAudio is the placeholder for runs without an audio source.
var NoAudio = &Raw{}

func (r *Raw) Empty() bool {
	return r == nil || len(r.Data) == 0
}

// Buffer holds canonical signed 16-bit samples, interleaved by channel.
type Buffer struct {
	SampleRate int
	Channels   int
	Samples    []int16
}

// Normalize converts a raw buffer to signed 16-bit PCM. Sample rate and
// channel layout pass through unchanged.
func Normalize(raw *Raw) (*Buffer, error) {
	size := raw.Format.BytesPerSample()
	if size == 0 {
		return nil, fmt.Errorf("%w (got %s, %d bits)", ErrUnsupportedFormat, raw.Format, raw.BitDepth)
	}
	if len(raw.Data)%size != 0 {
		return nil, fmt.Errorf("audio buffer of %d bytes is not a whole number of %s samples", len(raw.Data), raw.Format)
	}

	n := len(raw.Data) / size
	out := &Buffer{
		SampleRate: raw.SampleRate,
		Channels:   raw.Channels,
		Samples:    make([]int16, n),
	}

	switch raw.Format {
	case FormatU8:
		for i, x := range raw.Data {
			out.Samples[i] = roundToInt16((float64(x)/128.0 - 1.0) * 32768.0)
		}
	case FormatS16:
		for i := range out.Samples {
			out.Samples[i] = int16(binary.LittleEndian.Uint16(raw.Data[i*2:]))
		}
	case FormatF32:
		for i := range out.Samples {
			x := math.Float32frombits(binary.LittleEndian.Uint32(raw.Data[i*4:]))
			out.Samples[i] = roundToInt16(float64(x) * 32768.0)
		}
	}
	return out, nil
}

func roundToInt16(x float64) int16 {
	if math.IsNaN(x) {
		return 0
	}
	x = math.Round(x)
	if x > math.MaxInt16 {
		return math.MaxInt16
	}
	if x < math.MinInt16 {
		return math.MinInt16
	}
	return int16(x)
}
