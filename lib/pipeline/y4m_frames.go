package pipeline

import (
	"github.com/fosdem/rawpress/lib/encdec"
	"github.com/fosdem/rawpress/lib/source/y4msource"
)

// Y4MFrames turns decoded YUV4MPEG2 frames into canonical frames by
// upsampling their chroma to luma resolution.
type Y4MFrames struct {
	dec       *y4msource.Decoder
	resampler *encdec.ChromaResampler
}

// NewY4MFrames rejects streams that are not 8-bit, not 4:2:0, 4:2:2 or
// 4:4:4, or do not run at a whole number of frames per second.
func NewY4MFrames(dec *y4msource.Decoder) (*Y4MFrames, error) {
	if err := dec.Validate(); err != nil {
		return nil, err
	}
	r, err := encdec.NewChromaResamplerFor(dec.Subsampling(), dec.Width(), dec.Height())
	if err != nil {
		return nil, err
	}
	return &Y4MFrames{dec: dec, resampler: r}, nil
}

func (y *Y4MFrames) Next() (*encdec.Frame, error) {
	raw, err := y.dec.Next()
	if err != nil {
		return nil, err
	}

	w, h := y.dec.Width(), y.dec.Height()
	cw, ch := y.dec.ChromaSize()

	u, err := y.resampler.Resample(&encdec.Plane{Width: cw, Height: ch, Data: raw.U})
	if err != nil {
		return nil, err
	}
	v, err := y.resampler.Resample(&encdec.Plane{Width: cw, Height: ch, Data: raw.V})
	if err != nil {
		return nil, err
	}

	// the decoder hands out a fresh buffer per frame, so Y can be kept as is
	luma := &encdec.Plane{Width: w, Height: h, Data: raw.Y}
	return encdec.AssembleFrame(w, h, luma, u, v), nil
}
