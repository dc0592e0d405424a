package encdec

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRGBToYUVStaysInRange(t *testing.T) {
	// every output is a uint8 already; check the float results never wrapped
	for r := 0; r < 256; r += 15 {
		for g := 0; g < 256; g += 15 {
			for b := 0; b < 256; b += 15 {
				y, u, v := RGBToYUV(uint8(r), uint8(g), uint8(b))
				fy := 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
				fu := 128 - 0.168736*float64(r) - 0.331264*float64(g) + 0.5*float64(b)
				fv := 128 + 0.5*float64(r) - 0.418688*float64(g) - 0.081312*float64(b)
				assert.InDelta(t, fy, float64(y), 1)
				assert.InDelta(t, fu, float64(u), 1)
				assert.InDelta(t, fv, float64(v), 1)
			}
		}
	}
}

func TestRGBToYUVGray(t *testing.T) {
	for k := 0; k < 256; k++ {
		y, u, v := RGBToYUV(uint8(k), uint8(k), uint8(k))
		assert.InDelta(t, k, int(y), 1, "luma for %d", k)
		assert.LessOrEqual(t, int(y), k)
		assert.InDelta(t, 128, int(u), 1, "U for %d", k)
		assert.InDelta(t, 128, int(v), 1, "V for %d", k)
	}
}

func TestRGBToYUVTruncates(t *testing.T) {
	y, u, v := RGBToYUV(255, 0, 0)
	// 76.245, 84.97..., 255.5
	assert.Equal(t, uint8(76), y)
	assert.Equal(t, uint8(84), u)
	assert.Equal(t, uint8(255), v)

	y, u, v = RGBToYUV(0, 0, 255)
	// 29.07, 255.5, 107.26...
	assert.Equal(t, uint8(29), y)
	assert.Equal(t, uint8(255), u)
	assert.Equal(t, uint8(107), v)
}

func TestFrameFromImageConstantColour(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	for x := 0; x < 2; x++ {
		for y := 0; y < 2; y++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 200, G: 200, B: 200, A: 255})
		}
	}

	f := FrameFromImage(img)
	require.Equal(t, 2, f.Width)
	require.Equal(t, 2, f.Height)
	assert.Equal(t, []byte{200, 200, 200, 200}, f.Y.Data)
	assert.Equal(t, []byte{128, 128, 128, 128}, f.U.Data)
	assert.Equal(t, []byte{128, 128, 128, 128}, f.V.Data)
}

func TestFrameFromImageGenericPath(t *testing.T) {
	img := image.NewGray(image.Rect(3, 4, 6, 6))
	for i := range img.Pix {
		img.Pix[i] = 200
	}

	f := FrameFromImage(img)
	require.Equal(t, 3, f.Width)
	require.Equal(t, 2, f.Height)
	for i := range f.Y.Data {
		assert.Equal(t, uint8(200), f.Y.Data[i])
		assert.Equal(t, uint8(128), f.U.Data[i])
		assert.Equal(t, uint8(128), f.V.Data[i])
	}
}

func TestFrameFromImageTranslucentRGBA(t *testing.T) {
	c := color.NRGBA{R: 200, G: 100, B: 50, A: 128}
	straight := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	premultiplied := image.NewRGBA(image.Rect(0, 0, 2, 1))
	for x := 0; x < 2; x++ {
		straight.SetNRGBA(x, 0, c)
		premultiplied.Set(x, 0, c)
	}
	require.False(t, premultiplied.Opaque())

	want := FrameFromImage(straight)
	got := FrameFromImage(premultiplied)
	for i := range want.Y.Data {
		// premultiplying to 8 bits loses a little precision
		assert.InDelta(t, want.Y.Data[i], got.Y.Data[i], 2)
		assert.InDelta(t, want.U.Data[i], got.U.Data[i], 2)
		assert.InDelta(t, want.V.Data[i], got.V.Data[i], 2)
	}
}

func TestFrameFromImageOpaqueRGBA(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.SetRGBA(0, 0, color.RGBA{R: 255, G: 0, B: 0, A: 255})

	f := FrameFromImage(img)
	assert.Equal(t, []byte{76}, f.Y.Data)
	assert.Equal(t, []byte{84}, f.U.Data)
	assert.Equal(t, []byte{255}, f.V.Data)
}
