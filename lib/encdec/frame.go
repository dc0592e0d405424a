package encdec

import (
	"fmt"
)

// Plane is one row-major grid of 8-bit samples.
type Plane struct {
	Width  int
	Height int
	Data   []byte
}

// NewPlane copies data into a fresh plane of w×h samples.
func NewPlane(w int, h int, data []byte) (*Plane, error) {
	if w < 1 || h < 1 {
		return nil, fmt.Errorf("plane dimensions must be positive, got %dx%d", w, h)
	}
	if len(data) != w*h {
		return nil, fmt.Errorf("expected plane buffer of size %d but got %d", w*h, len(data))
	}
	p := &Plane{Width: w, Height: h, Data: make([]byte, len(data))}
	copy(p.Data, data)
	return p, nil
}

func newBlankPlane(w int, h int) *Plane {
	return &Plane{Width: w, Height: h, Data: make([]byte, w*h)}
}

func (p *Plane) matches(w int, h int) bool {
	return p != nil && p.Width == w && p.Height == h && len(p.Data) == w*h
}

// Frame is the canonical 4:4:4 frame handed to the encoder. All three
// planes share the frame's dimensions.
type Frame struct {
	Width  int
	Height int
	Y      *Plane
	U      *Plane
	V      *Plane
}

// AssembleFrame combines three full resolution planes into a frame. The
// producers guarantee matching sizes, so a mismatch is a programming error
// and panics.
func AssembleFrame(w int, h int, y, u, v *Plane) *Frame {
	for i, p := range [3]*Plane{y, u, v} {
		if !p.matches(w, h) {
			panic(fmt.Sprintf("plane %c does not match frame size %dx%d", "YUV"[i], w, h))
		}
	}
	return &Frame{Width: w, Height: h, Y: y, U: u, V: v}
}

// Planes returns Y, U and V in that order.
func (f *Frame) Planes() [3]*Plane {
	return [3]*Plane{f.Y, f.U, f.V}
}
