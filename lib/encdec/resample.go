package encdec

import (
	"fmt"
	"image"

	"github.com/nfnt/resize"
)

// ChromaResampler upsamples chroma planes to luma resolution with a
// Lanczos3 filter. One resampler is configured per run and reused for
// every U and V plane.
type ChromaResampler struct {
	srcW, srcH int
	dstW, dstH int
	interp     resize.InterpolationFunction
}

func NewChromaResampler(srcW, srcH, dstW, dstH int) (*ChromaResampler, error) {
	if srcW < 1 || srcH < 1 || dstW < 1 || dstH < 1 {
		return nil, fmt.Errorf("cannot resample %dx%d to %dx%d", srcW, srcH, dstW, dstH)
	}
	return &ChromaResampler{
		srcW:   srcW,
		srcH:   srcH,
		dstW:   dstW,
		dstH:   dstH,
		interp: resize.Lanczos3,
	}, nil
}

// NewChromaResamplerFor configures a resampler for the chroma layout of s
// over a luma plane of w×h.
func NewChromaResamplerFor(s Subsampling, w int, h int) (*ChromaResampler, error) {
	cw, ch, err := s.ChromaSize(w, h)
	if err != nil {
		return nil, err
	}
	return NewChromaResampler(cw, ch, w, h)
}

func (r *ChromaResampler) Passthrough() bool {
	return r.srcW == r.dstW && r.srcH == r.dstH
}

func (r *ChromaResampler) Resample(src *Plane) (*Plane, error) {
	if !src.matches(r.srcW, r.srcH) {
		return nil, fmt.Errorf("expected chroma plane of %dx%d but got %dx%d", r.srcW, r.srcH, src.Width, src.Height)
	}
	if r.Passthrough() {
		return NewPlane(r.dstW, r.dstH, src.Data)
	}

	gray := &image.Gray{
		Pix:    src.Data,
		Stride: src.Width,
		Rect:   image.Rect(0, 0, src.Width, src.Height),
	}
	// resize keeps *image.Gray inputs as *image.Gray
	scaled := resize.Resize(uint(r.dstW), uint(r.dstH), gray, r.interp).(*image.Gray)

	out := newBlankPlane(r.dstW, r.dstH)
	b := scaled.Bounds()
	for row := 0; row < r.dstH; row++ {
		off := scaled.PixOffset(b.Min.X, b.Min.Y+row)
		copy(out.Data[row*r.dstW:(row+1)*r.dstW], scaled.Pix[off:off+r.dstW])
	}
	return out, nil
}
