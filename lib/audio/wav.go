package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

const (
	wavFormatPCM        = 0x0001
	wavFormatIEEEFloat  = 0x0003
	wavFormatExtensible = 0xfffe

	// streamed WAV files leave the data size unset
	wavUnknownSize = 0xffffffff
)

type wavFormat struct {
	AudioFormat   uint16
	Channels      uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
}

// ReadWAVFile reads a whole RIFF/WAVE file.
func ReadWAVFile(path string) (*Raw, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open %s: %w", path, err)
	}
	defer f.Close()

	raw, err := ReadWAV(f)
	if err != nil {
		return nil, fmt.Errorf("could not read %s: %w", path, err)
	}
	return raw, nil
}

// ReadWAV reads the format and data chunks of a RIFF/WAVE stream.
func ReadWAV(r io.Reader) (*Raw, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return nil, fmt.Errorf("could not read RIFF header: %w", err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return nil, errors.New("not a RIFF/WAVE stream")
	}

	var format *wavFormat
	var subFormat uint16
	for {
		var chunk [8]byte
		_, err := io.ReadFull(r, chunk[:])
		if errors.Is(err, io.EOF) {
			return nil, errors.New("no data chunk found")
		}
		if err != nil {
			return nil, fmt.Errorf("could not read chunk header: %w", err)
		}
		id := string(chunk[0:4])
		size := binary.LittleEndian.Uint32(chunk[4:8])

		switch id {
		case "fmt ":
			body := make([]byte, size)
			if _, err := io.ReadFull(r, body); err != nil {
				return nil, fmt.Errorf("could not read fmt chunk: %w", err)
			}
			format = &wavFormat{}
			if err := binary.Read(bytes.NewReader(body), binary.LittleEndian, format); err != nil {
				return nil, fmt.Errorf("fmt chunk too short: %w", err)
			}
			subFormat = format.AudioFormat
			if format.AudioFormat == wavFormatExtensible {
				// cbSize, valid bits, channel mask, then the sub-format GUID
				if len(body) < 26 {
					return nil, errors.New("extensible fmt chunk too short")
				}
				subFormat = binary.LittleEndian.Uint16(body[24:26])
			}
			if err := skipPad(r, size); err != nil {
				return nil, err
			}
		case "data":
			if format == nil {
				return nil, errors.New("data chunk before fmt chunk")
			}
			sampleFormat, err := sampleFormatOf(subFormat, format.BitsPerSample)
			if err != nil {
				return nil, err
			}
			var data []byte
			if size == wavUnknownSize {
				data, err = io.ReadAll(r)
			} else {
				data = make([]byte, size)
				_, err = io.ReadFull(r, data)
			}
			if err != nil {
				return nil, fmt.Errorf("could not read audio data: %w", err)
			}
			return &Raw{
				Header: Header{
					SampleRate: int(format.SampleRate),
					Channels:   int(format.Channels),
					BitDepth:   int(format.BitsPerSample),
				},
				Format: sampleFormat,
				Data:   data,
			}, nil
		default:
			if _, err := io.CopyN(io.Discard, r, int64(size)); err != nil {
				return nil, fmt.Errorf("could not skip %q chunk: %w", id, err)
			}
			if err := skipPad(r, size); err != nil {
				return nil, err
			}
		}
	}
}

func skipPad(r io.Reader, size uint32) error {
	if size%2 == 0 {
		return nil
	}
	var pad [1]byte
	_, err := io.ReadFull(r, pad[:])
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("could not skip chunk padding: %w", err)
	}
	return nil
}

func sampleFormatOf(tag uint16, bits uint16) (SampleFormat, error) {
	switch {
	case tag == wavFormatPCM && bits == 8:
		return FormatU8, nil
	case tag == wavFormatPCM && bits == 16:
		return FormatS16, nil
	case tag == wavFormatIEEEFloat && bits == 32:
		return FormatF32, nil
	default:
		return FormatUnknown, fmt.Errorf("%w (format tag %#04x, %d bits)", ErrUnsupportedFormat, tag, bits)
	}
}
