package encdec

import (
	"image"
	"image/color"
)

// RGBToYUV converts one full-range RGB triple to JPEG YCbCr. Results are
// truncated, not rounded.
func RGBToYUV(r, g, b uint8) (uint8, uint8, uint8) {
	rf := float64(r)
	gf := float64(g)
	bf := float64(b)

	y := 0.299*rf + 0.587*gf + 0.114*bf
	u := 128 - 0.168736*rf - 0.331264*gf + 0.5*bf
	v := 128 + 0.5*rf - 0.418688*gf - 0.081312*bf

	return uint8(y), uint8(u), uint8(v)
}

// FrameFromImage converts a decoded RGB image into a canonical frame.
// Alpha is ignored.
func FrameFromImage(img image.Image) *Frame {
	bounds := img.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()

	Y := newBlankPlane(w, h)
	U := newBlankPlane(w, h)
	V := newBlankPlane(w, h)

	nrgba, straight := img.(*image.NRGBA)
	rgba, premultiplied := img.(*image.RGBA)
	switch {
	case straight:
		convertPix(nrgba.Pix, nrgba.Stride, w, h, Y, U, V)
	case premultiplied && rgba.Opaque():
		// RGBA and NRGBA samples only agree when alpha is 255 everywhere
		convertPix(rgba.Pix, rgba.Stride, w, h, Y, U, V)
	default:
		for row := 0; row < h; row++ {
			for col := 0; col < w; col++ {
				c := color.NRGBAModel.Convert(img.At(bounds.Min.X+col, bounds.Min.Y+row)).(color.NRGBA)
				i := row*w + col
				Y.Data[i], U.Data[i], V.Data[i] = RGBToYUV(c.R, c.G, c.B)
			}
		}
	}

	return AssembleFrame(w, h, Y, U, V)
}

func convertPix(pix []uint8, stride int, w int, h int, Y, U, V *Plane) {
	for row := 0; row < h; row++ {
		line := pix[row*stride : row*stride+w*4]
		for col := 0; col < w; col++ {
			px := line[col*4 : col*4+3]
			i := row*w + col
			Y.Data[i], U.Data[i], V.Data[i] = RGBToYUV(px[0], px[1], px[2])
		}
	}
}
