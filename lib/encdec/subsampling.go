package encdec

import (
	"errors"
	"fmt"
)

var ErrUnsupportedSubsampling = errors.New("only 4:2:0, 4:2:2 or 4:4:4 input supported")

type Subsampling int

const (
	SubsamplingUnsupported Subsampling = iota
	Subsampling420
	Subsampling422
	Subsampling444
)

// ChromaSize returns the native chroma grid for a luma plane of w×h.
// Odd luma sizes round the chroma size up.
func (s Subsampling) ChromaSize(w int, h int) (int, int, error) {
	switch s {
	case Subsampling420:
		return (w + 1) / 2, (h + 1) / 2, nil
	case Subsampling422:
		return (w + 1) / 2, h, nil
	case Subsampling444:
		return w, h, nil
	default:
		return 0, 0, fmt.Errorf("%w (got %s)", ErrUnsupportedSubsampling, s)
	}
}

func (s Subsampling) String() string {
	switch s {
	case Subsampling420:
		return "4:2:0"
	case Subsampling422:
		return "4:2:2"
	case Subsampling444:
		return "4:4:4"
	default:
		return "unsupported"
	}
}
