// Package y4msource decodes YUV4MPEG2 streams into raw planar frames.
package y4msource

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fosdem/rawpress/lib/encdec"
)

const (
	streamMagic = "YUV4MPEG2"
	frameMagic  = "FRAME"

	maxHeaderLen = 1024
)

var (
	ErrUnsupportedBitDepth = errors.New("only 8bpp input supported")
	ErrFractionalFramerate = errors.New("fractional framerates not supported")
)

type Rational struct {
	Num int
	Den int
}

// Integer returns the rate as a whole number of frames per second.
func (r Rational) Integer() (int, error) {
	if r.Den == 0 || r.Num%r.Den != 0 {
		return 0, fmt.Errorf("%w (got %s)", ErrFractionalFramerate, r)
	}
	return r.Num / r.Den, nil
}

func (r Rational) String() string {
	return fmt.Sprintf("%d:%d", r.Num, r.Den)
}

// RawFrame holds the three planes of one frame at their native sizes.
type RawFrame struct {
	Y []byte
	U []byte
	V []byte
}

type Decoder struct {
	r *bufio.Reader

	width       int
	height      int
	framerate   Rational
	colorspace  string
	subsampling encdec.Subsampling
	bitDepth    int

	chromaW int
	chromaH int
	frames  int
}

// NewDecoder reads the stream header from r.
func NewDecoder(r io.Reader) (*Decoder, error) {
	d := &Decoder{
		r:          bufio.NewReaderSize(r, 1<<16),
		colorspace: "420jpeg",
		framerate:  Rational{Num: 25, Den: 1},
	}
	line, err := d.readLine()
	if err != nil {
		return nil, fmt.Errorf("could not read stream header: %w", err)
	}
	if err := d.parseHeader(line); err != nil {
		return nil, err
	}
	d.subsampling, d.bitDepth = parseColorspace(d.colorspace)
	if cw, ch, err := d.subsampling.ChromaSize(d.width, d.height); err == nil {
		d.chromaW, d.chromaH = cw, ch
	}
	return d, nil
}

func (d *Decoder) readLine() (string, error) {
	var b strings.Builder
	for b.Len() <= maxHeaderLen {
		c, err := d.r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) && b.Len() > 0 {
				return "", io.ErrUnexpectedEOF
			}
			return "", err
		}
		if c == '\n' {
			return b.String(), nil
		}
		b.WriteByte(c)
	}
	return "", fmt.Errorf("header line longer than %d bytes", maxHeaderLen)
}

func (d *Decoder) parseHeader(line string) error {
	fields := strings.Split(line, " ")
	if fields[0] != streamMagic {
		return fmt.Errorf("not a YUV4MPEG2 stream")
	}
	for _, field := range fields[1:] {
		if field == "" {
			continue
		}
		tag, val := field[0], field[1:]
		var err error
		switch tag {
		case 'W':
			d.width, err = strconv.Atoi(val)
		case 'H':
			d.height, err = strconv.Atoi(val)
		case 'F':
			d.framerate, err = parseRatio(val)
		case 'C':
			d.colorspace = val
		case 'X':
			// XYSCSS duplicates C for older tools; a high bit depth hides here
			if v, ok := strings.CutPrefix(val, "YSCSS="); ok && d.colorspace == "420jpeg" {
				d.colorspace = strings.ToLower(v)
			}
		case 'I', 'A':
			// interlacing and aspect ratio do not matter to us
		}
		if err != nil {
			return fmt.Errorf("malformed header field %q: %w", field, err)
		}
	}
	if d.width < 1 || d.height < 1 {
		return fmt.Errorf("invalid frame size %dx%d", d.width, d.height)
	}
	return nil
}

func parseRatio(s string) (Rational, error) {
	num, den, ok := strings.Cut(s, ":")
	if !ok {
		return Rational{}, fmt.Errorf("expected num:den")
	}
	n, err := strconv.Atoi(num)
	if err != nil {
		return Rational{}, err
	}
	dd, err := strconv.Atoi(den)
	if err != nil {
		return Rational{}, err
	}
	if n < 1 || dd < 1 {
		return Rational{}, fmt.Errorf("framerate %d:%d is not positive", n, dd)
	}
	return Rational{Num: n, Den: dd}, nil
}

func parseColorspace(c string) (encdec.Subsampling, int) {
	depth := 8
	base := c
	if i := strings.IndexByte(c, 'p'); i > 0 && !strings.HasPrefix(c[i:], "pal") {
		if d, err := strconv.Atoi(c[i+1:]); err == nil {
			depth = d
			base = c[:i]
		}
	}
	if strings.HasPrefix(base, "mono") && len(base) > 4 {
		if d, err := strconv.Atoi(base[4:]); err == nil {
			depth = d
		}
		base = "mono"
	}

	switch base {
	case "420", "420jpeg", "420paldv", "420mpeg2":
		return encdec.Subsampling420, depth
	case "422":
		return encdec.Subsampling422, depth
	case "444":
		return encdec.Subsampling444, depth
	default:
		return encdec.SubsamplingUnsupported, depth
	}
}

// Validate rejects streams this tool cannot encode.
func (d *Decoder) Validate() error {
	if d.bitDepth != 8 {
		return fmt.Errorf("%w (got %d bits)", ErrUnsupportedBitDepth, d.bitDepth)
	}
	if _, _, err := d.subsampling.ChromaSize(d.width, d.height); err != nil {
		return fmt.Errorf("colorspace %s: %w", d.colorspace, err)
	}
	if _, err := d.framerate.Integer(); err != nil {
		return err
	}
	return nil
}

func (d *Decoder) Width() int                      { return d.width }
func (d *Decoder) Height() int                     { return d.height }
func (d *Decoder) Framerate() Rational             { return d.framerate }
func (d *Decoder) Colorspace() string              { return d.colorspace }
func (d *Decoder) Subsampling() encdec.Subsampling { return d.subsampling }
func (d *Decoder) BitDepth() int                   { return d.bitDepth }
func (d *Decoder) FramesRead() int                 { return d.frames }

func (d *Decoder) ChromaSize() (int, int) {
	return d.chromaW, d.chromaH
}

// Next reads one frame. It returns io.EOF at a clean end of stream; any
// other error means the stream is corrupt.
func (d *Decoder) Next() (*RawFrame, error) {
	if d.chromaW == 0 {
		return nil, d.Validate()
	}

	line, err := d.readLine()
	if errors.Is(err, io.EOF) {
		return nil, io.EOF
	}
	if err != nil {
		return nil, fmt.Errorf("could not read frame %d header: %w", d.frames, err)
	}
	if line != frameMagic && !strings.HasPrefix(line, frameMagic+" ") {
		return nil, fmt.Errorf("bad frame %d marker %q", d.frames, line)
	}

	lumaSize := d.width * d.height
	chromaSize := d.chromaW * d.chromaH
	buf := make([]byte, lumaSize+2*chromaSize)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		// a marker promises a body, so running out here is truncation
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("could not read frame %d: %w", d.frames, err)
	}
	d.frames++

	return &RawFrame{
		Y: buf[:lumaSize],
		U: buf[lumaSize : lumaSize+chromaSize],
		V: buf[lumaSize+chromaSize:],
	}, nil
}
