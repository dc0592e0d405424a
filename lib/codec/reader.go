package codec

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/fosdem/rawpress/lib/audio"
	"github.com/fosdem/rawpress/lib/encdec"
	"github.com/fosdem/rawpress/lib/keyframe"
	"github.com/klauspost/compress/zstd"
)

// Unit is one decoded frame together with the mode it was coded in.
type Unit struct {
	Mode  keyframe.Mode
	Frame *encdec.Frame
}

// Reader decodes files written by StreamEncoder and BufferedEncoder.
type Reader struct {
	r        *bufio.Reader
	dec      *zstd.Decoder
	params   Params
	buffered bool

	remaining int
	frames    int
	prev      *encdec.Frame
	done      bool
	audio     *audio.Buffer
}

func NewReader(r io.Reader) (*Reader, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	rd := &Reader{r: bufio.NewReader(r), dec: dec}

	hdr := make([]byte, headerSize)
	if _, err := io.ReadFull(rd.r, hdr); err != nil {
		dec.Close()
		return nil, fmt.Errorf("could not read header: %w", err)
	}
	switch string(hdr[:4]) {
	case streamMagic:
	case bufferedMagic:
		rd.buffered = true
	default:
		dec.Close()
		return nil, fmt.Errorf("unknown magic %q", hdr[:4])
	}
	rd.params = Params{
		Width:     int(binary.LittleEndian.Uint32(hdr[4:])),
		Height:    int(binary.LittleEndian.Uint32(hdr[8:])),
		Framerate: int(binary.LittleEndian.Uint32(hdr[12:])),
		Quality:   int(hdr[16]),
	}

	if rd.buffered {
		n, err := rd.readUint32()
		if err != nil {
			dec.Close()
			return nil, fmt.Errorf("could not read frame count: %w", err)
		}
		rd.remaining = int(n)
	}
	return rd, nil
}

func (rd *Reader) Params() Params {
	return rd.params
}

func (rd *Reader) Buffered() bool {
	return rd.buffered
}

// Audio is only known once Next has returned io.EOF; nil means the file
// has no audio track.
func (rd *Reader) Audio() *audio.Buffer {
	return rd.audio
}

func (rd *Reader) Close() {
	rd.dec.Close()
}

func (rd *Reader) readUint32() (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(rd.r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

// Next decodes the next unit, or returns io.EOF after the last one.
func (rd *Reader) Next() (*Unit, error) {
	if rd.done {
		return nil, io.EOF
	}
	if rd.buffered && rd.remaining == 0 {
		rd.done = true
		if err := rd.readAudio(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}

	kind, err := rd.r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("could not read unit %d: %w", rd.frames, noEOF(err))
	}

	var mode keyframe.Mode
	switch kind {
	case unitIndependent:
		mode = keyframe.Independent
	case unitPredicted:
		if rd.prev == nil {
			return nil, ErrNoReference
		}
		mode = keyframe.Predicted
	case unitEnd:
		if rd.buffered {
			return nil, errors.New("end marker in buffered file")
		}
		n, err := rd.readUint32()
		if err != nil {
			return nil, fmt.Errorf("could not read trailer: %w", noEOF(err))
		}
		if int(n) != rd.frames {
			return nil, fmt.Errorf("trailer counts %d frames but %d were read", n, rd.frames)
		}
		rd.done = true
		return nil, io.EOF
	default:
		return nil, fmt.Errorf("unknown unit kind %q", kind)
	}

	var planes [3]*encdec.Plane
	for i := range planes {
		data, err := rd.readCompressed()
		if err != nil {
			return nil, fmt.Errorf("could not read unit %d plane %d: %w", rd.frames, i, err)
		}
		if len(data) != rd.params.Width*rd.params.Height {
			return nil, fmt.Errorf("unit %d plane %d has %d samples", rd.frames, i, len(data))
		}
		if mode == keyframe.Predicted {
			reconstruct(data, rd.prev.Planes()[i].Data)
		}
		planes[i] = &encdec.Plane{Width: rd.params.Width, Height: rd.params.Height, Data: data}
	}

	f := encdec.AssembleFrame(rd.params.Width, rd.params.Height, planes[0], planes[1], planes[2])
	rd.prev = f
	rd.frames++
	if rd.buffered {
		rd.remaining--
	}
	return &Unit{Mode: mode, Frame: f}, nil
}

func (rd *Reader) readCompressed() ([]byte, error) {
	n, err := rd.readUint32()
	if err != nil {
		return nil, noEOF(err)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(rd.r, buf); err != nil {
		return nil, noEOF(err)
	}
	return rd.dec.DecodeAll(buf, nil)
}

func (rd *Reader) readAudio() error {
	present, err := rd.r.ReadByte()
	if err != nil {
		return fmt.Errorf("could not read audio marker: %w", noEOF(err))
	}
	if present == 0 {
		return nil
	}

	var hdr [4 + 2 + 8]byte
	if _, err := io.ReadFull(rd.r, hdr[:]); err != nil {
		return fmt.Errorf("could not read audio header: %w", noEOF(err))
	}
	pcm, err := rd.readCompressed()
	if err != nil {
		return fmt.Errorf("could not read audio: %w", err)
	}
	count := binary.LittleEndian.Uint64(hdr[6:])
	if uint64(len(pcm)) != 2*count {
		return fmt.Errorf("audio track holds %d bytes for %d samples", len(pcm), count)
	}

	buf := &audio.Buffer{
		SampleRate: int(binary.LittleEndian.Uint32(hdr[0:])),
		Channels:   int(binary.LittleEndian.Uint16(hdr[4:])),
		Samples:    make([]int16, count),
	}
	for i := range buf.Samples {
		buf.Samples[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}
	rd.audio = buf
	return nil
}

func noEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}
