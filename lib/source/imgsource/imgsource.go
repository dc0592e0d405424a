// Package imgsource loads a numbered sequence of still images.
package imgsource

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"

	"github.com/fosdem/rawpress/lib/config"
	"github.com/fosdem/rawpress/lib/encdec"
	rlog "github.com/fosdem/rawpress/lib/log"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Sequence addresses frames by 0-based index through a printf pattern
// such as frames/%04d.png. The count comes from the caller; the files are
// not probed to find the end.
type Sequence struct {
	Pattern   string
	Count     int
	Framerate int

	width  int
	height int
	first  image.Image
	logger *slog.Logger
}

func New(name string, cfg *config.ImageSequenceCfg) *Sequence {
	return &Sequence{
		Pattern:   string(cfg.Pattern),
		Count:     cfg.Count,
		Framerate: cfg.Framerate,
		logger:    rlog.Module(name),
	}
}

func (s *Sequence) Path(i int) string {
	return fmt.Sprintf(s.Pattern, i)
}

// Load decodes image i. A missing file is an I/O error like any other.
func (s *Sequence) Load(i int) (image.Image, error) {
	path := s.Path(i)
	s.logger.Debug("Loading " + path)

	imgFile, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open %s: %w", path, err)
	}
	defer imgFile.Close()

	img, _, err := image.Decode(imgFile)
	if err != nil {
		return nil, fmt.Errorf("could not decode %s: %w", path, err)
	}
	return img, nil
}

// Dimensions learns the frame size from the first image, which is kept
// for the first LoadFrame(0).
func (s *Sequence) Dimensions() (int, int, error) {
	if s.width == 0 {
		img, err := s.Load(0)
		if err != nil {
			return 0, 0, err
		}
		s.first = img
		s.width = img.Bounds().Dx()
		s.height = img.Bounds().Dy()
		s.logger.Debug(fmt.Sprintf("Size: %dx%d", s.width, s.height))
	}
	return s.width, s.height, nil
}

// LoadFrame decodes image i and converts it to a canonical frame.
func (s *Sequence) LoadFrame(i int) (*encdec.Frame, error) {
	w, h, err := s.Dimensions()
	if err != nil {
		return nil, err
	}
	var img image.Image
	if i == 0 && s.first != nil {
		img, s.first = s.first, nil
	} else if img, err = s.Load(i); err != nil {
		return nil, err
	}
	if img.Bounds().Dx() != w || img.Bounds().Dy() != h {
		return nil, fmt.Errorf("expected image of size %dx%d but %s is %dx%d", w, h, s.Path(i), img.Bounds().Dx(), img.Bounds().Dy())
	}
	return encdec.FrameFromImage(img), nil
}
