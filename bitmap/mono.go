package bitmap

import (
	"image"

	"golang.org/x/image/draw"
)

// ToGray converts img to an 8-bit grayscale image using the standard
// luminance weights of image/color.
func ToGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return Copy(g).(*image.Gray)
	}
	b := img.Bounds()
	dst := image.NewGray(b)
	draw.Draw(dst, b, img, b.Min, draw.Src)
	return dst
}

// ToMono reduces img to a black and white image. With dither set the
// result is Floyd-Steinberg dithered; otherwise pixels are thresholded at
// mid gray.
func ToMono(img image.Image, dither bool) *image.Paletted {
	gray := img
	if _, ok := img.(*image.Gray); !ok {
		gray = ToGray(img)
	}
	b := gray.Bounds()
	dst := image.NewPaletted(b, MonoPalette)
	if dither {
		draw.FloydSteinberg.Draw(dst, b, gray, b.Min)
		return dst
	}
	g := gray.(*image.Gray)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if g.GrayAt(x, y).Y >= 128 {
				dst.SetColorIndex(x, y, 1)
			}
		}
	}
	return dst
}
