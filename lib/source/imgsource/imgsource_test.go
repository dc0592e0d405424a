package imgsource

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/fosdem/rawpress/lib/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, path string, w, h int, c color.NRGBA) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.SetNRGBA(x, y, c)
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestLoadFrames(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "0000.png"), 2, 2, color.NRGBA{200, 200, 200, 255})
	writePNG(t, filepath.Join(dir, "0001.png"), 2, 2, color.NRGBA{0, 0, 0, 255})

	s := New("images", &config.ImageSequenceCfg{
		Pattern:   config.CfgPath(filepath.Join(dir, "%04d.png")),
		Count:     2,
		Framerate: 25,
	})
	assert.Equal(t, filepath.Join(dir, "0001.png"), s.Path(1))

	w, h, err := s.Dimensions()
	require.NoError(t, err)
	assert.Equal(t, 2, w)
	assert.Equal(t, 2, h)

	f, err := s.LoadFrame(0)
	require.NoError(t, err)
	assert.Equal(t, []byte{200, 200, 200, 200}, f.Y.Data)
	assert.Equal(t, []byte{128, 128, 128, 128}, f.U.Data)

	f, err = s.LoadFrame(1)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0}, f.Y.Data)
}

func TestFirstFrameDecodedOnce(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "0.png")
	writePNG(t, first, 2, 1, color.NRGBA{200, 200, 200, 255})

	s := New("images", &config.ImageSequenceCfg{Pattern: config.CfgPath(filepath.Join(dir, "%d.png")), Count: 1, Framerate: 1})
	_, _, err := s.Dimensions()
	require.NoError(t, err)

	// frame 0 now comes from the image decoded by Dimensions
	require.NoError(t, os.Remove(first))
	f, err := s.LoadFrame(0)
	require.NoError(t, err)
	assert.Equal(t, []byte{200, 200}, f.Y.Data)

	_, err = s.LoadFrame(0)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestMissingFrameIsAnError(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "0.png"), 1, 1, color.NRGBA{1, 2, 3, 255})

	s := New("images", &config.ImageSequenceCfg{Pattern: config.CfgPath(filepath.Join(dir, "%d.png")), Count: 2, Framerate: 1})
	_, err := s.LoadFrame(1)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSizeChangeIsAnError(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "0.png"), 2, 2, color.NRGBA{1, 2, 3, 255})
	writePNG(t, filepath.Join(dir, "1.png"), 3, 2, color.NRGBA{1, 2, 3, 255})

	s := New("images", &config.ImageSequenceCfg{Pattern: config.CfgPath(filepath.Join(dir, "%d.png")), Count: 2, Framerate: 1})
	_, err := s.LoadFrame(0)
	require.NoError(t, err)
	_, err = s.LoadFrame(1)
	assert.Error(t, err)
}

func TestUndecodableFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "0.png"), []byte("not an image"), 0o644))

	s := New("images", &config.ImageSequenceCfg{Pattern: config.CfgPath(filepath.Join(dir, "%d.png")), Count: 1, Framerate: 1})
	_, err := s.LoadFrame(0)
	assert.Error(t, err)
}
