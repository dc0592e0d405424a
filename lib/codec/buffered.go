package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/fosdem/rawpress/lib/audio"
	"github.com/fosdem/rawpress/lib/encdec"
	"github.com/fosdem/rawpress/lib/keyframe"
)

var ErrAudioAlreadySet = errors.New("audio was already appended")

// BufferedEncoder keeps all coded units in memory until WriteTo.
type BufferedEncoder struct {
	enc      *unitEncoder
	units    [][]byte
	audio    *audio.Buffer
	finished bool
}

func NewBufferedEncoder(p Params) (*BufferedEncoder, error) {
	enc, err := newUnitEncoder(p)
	if err != nil {
		return nil, err
	}
	return &BufferedEncoder{enc: enc}, nil
}

func (b *BufferedEncoder) Submit(f *encdec.Frame, mode keyframe.Mode) error {
	if b.finished {
		return ErrFinished
	}
	unit, err := b.enc.encode(f, mode)
	if err != nil {
		return err
	}
	b.units = append(b.units, unit)
	return nil
}

func (b *BufferedEncoder) Frames() int {
	return b.enc.frames
}

func (b *BufferedEncoder) AppendAudio(buf *audio.Buffer) error {
	if b.finished {
		return ErrFinished
	}
	if b.audio != nil {
		return ErrAudioAlreadySet
	}
	b.audio = buf
	return nil
}

// WriteTo serialises everything accumulated so far. It is the terminal
// call; the encoder cannot be used afterwards.
func (b *BufferedEncoder) WriteTo(w io.Writer) (int64, error) {
	if b.finished {
		return 0, ErrFinished
	}
	b.finished = true
	defer b.enc.close()

	var out bytes.Buffer
	out.Write(b.enc.params.header(bufferedMagic))
	out.Write(binary.LittleEndian.AppendUint32(nil, uint32(len(b.units))))
	for _, u := range b.units {
		out.Write(u)
	}
	b.units = nil

	if b.audio == nil || len(b.audio.Samples) == 0 {
		out.WriteByte(0)
	} else {
		pcm := make([]byte, 0, 2*len(b.audio.Samples))
		for _, s := range b.audio.Samples {
			pcm = binary.LittleEndian.AppendUint16(pcm, uint16(s))
		}
		compressed := b.enc.zenc.EncodeAll(pcm, nil)

		hdr := []byte{1}
		hdr = binary.LittleEndian.AppendUint32(hdr, uint32(b.audio.SampleRate))
		hdr = binary.LittleEndian.AppendUint16(hdr, uint16(b.audio.Channels))
		hdr = binary.LittleEndian.AppendUint64(hdr, uint64(len(b.audio.Samples)))
		hdr = binary.LittleEndian.AppendUint32(hdr, uint32(len(compressed)))
		out.Write(hdr)
		out.Write(compressed)
	}

	n, err := out.WriteTo(w)
	if err != nil {
		return n, fmt.Errorf("could not write output: %w", err)
	}
	return n, nil
}

// Discard drops what was accumulated without writing it.
func (b *BufferedEncoder) Discard() error {
	if b.finished {
		return nil
	}
	b.finished = true
	b.units = nil
	return b.enc.close()
}
