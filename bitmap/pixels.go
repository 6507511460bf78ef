package bitmap

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// MapFunc converts one pixel. in holds the source channels normalized to
// [0,1]; the function writes the destination channels into out.
type MapFunc func(in, out []float64) error

// Map builds a new image of mode out by applying fn to every pixel of img,
// read as mode in. Alpha is carried over when both modes have it; when only
// the destination has alpha the pixels are opaque.
func Map(img image.Image, in, out Mode, fn MapFunc) (image.Image, error) {
	if img == nil {
		return nil, errors.New("nil image")
	}
	if out == ModeMono {
		return nil, errors.New("mono output needs a dithering step; map to gray and call ToMono")
	}
	b := img.Bounds()
	if err := validateBounds(b.Dx(), b.Dy()); err != nil {
		return nil, err
	}
	if in == ModeMono {
		img = ToGray(img)
		in = ModeGray
	}
	dst := New(out, b)
	src := make([]float64, in.Channels())
	res := make([]float64, out.Channels())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			alpha := Values(img, in, x, y, src)
			if err := fn(src, res); err != nil {
				return nil, fmt.Errorf("pixel (%d,%d): %w", x, y, err)
			}
			if !in.HasAlpha() {
				alpha = 1
			}
			SetValues(dst, out, x, y, res, alpha)
		}
	}
	return dst, nil
}

// Values reads the color channels of the pixel at (x, y) into dst and
// returns the pixel's alpha. dst must hold mode.Channels() values.
func Values(img image.Image, mode Mode, x, y int, dst []float64) float64 {
	switch mode {
	case ModeMono, ModeGray:
		if g, ok := img.(*image.Gray); ok {
			dst[0] = float64(g.GrayAt(x, y).Y) / 255
			return 1
		}
		c := color.Gray16Model.Convert(img.At(x, y)).(color.Gray16)
		dst[0] = float64(c.Y) / 0xffff
		return 1
	case ModeCMYK:
		if cm, ok := img.(*image.CMYK); ok {
			c := cm.CMYKAt(x, y)
			dst[0] = float64(c.C) / 255
			dst[1] = float64(c.M) / 255
			dst[2] = float64(c.Y) / 255
			dst[3] = float64(c.K) / 255
			return 1
		}
		c := color.CMYKModel.Convert(img.At(x, y)).(color.CMYK)
		dst[0], dst[1], dst[2], dst[3] = float64(c.C)/255, float64(c.M)/255, float64(c.Y)/255, float64(c.K)/255
		return 1
	case ModeLab:
		var c LabColor
		if l, ok := img.(*Lab); ok {
			c = l.LabAt(x, y)
		} else {
			c = LabModel.Convert(img.At(x, y)).(LabColor)
		}
		dst[0], dst[1], dst[2] = float64(c.L)/255, float64(c.A)/255, float64(c.B)/255
		return 1
	}
	if n, ok := img.(*image.NRGBA); ok {
		c := n.NRGBAAt(x, y)
		dst[0], dst[1], dst[2] = float64(c.R)/255, float64(c.G)/255, float64(c.B)/255
		return float64(c.A) / 255
	}
	c := color.NRGBA64Model.Convert(img.At(x, y)).(color.NRGBA64)
	dst[0], dst[1], dst[2] = float64(c.R)/0xffff, float64(c.G)/0xffff, float64(c.B)/0xffff
	return float64(c.A) / 0xffff
}

// SetValues stores normalized channel values v (and alpha, where the mode
// has one) at (x, y). img must have been created by New for the same mode.
func SetValues(img image.Image, mode Mode, x, y int, v []float64, alpha float64) {
	switch im := img.(type) {
	case *image.Gray:
		im.SetGray(x, y, color.Gray{Y: clamp8(v[0] * 255)})
	case *image.CMYK:
		im.SetCMYK(x, y, color.CMYK{
			C: clamp8(v[0] * 255), M: clamp8(v[1] * 255),
			Y: clamp8(v[2] * 255), K: clamp8(v[3] * 255),
		})
	case *Lab:
		im.SetLab(x, y, LabColor{L: clamp8(v[0] * 255), A: clamp8(v[1] * 255), B: clamp8(v[2] * 255)})
	case *image.RGBA:
		im.SetRGBA(x, y, color.RGBA{R: clamp8(v[0] * 255), G: clamp8(v[1] * 255), B: clamp8(v[2] * 255), A: 255})
	case *image.NRGBA:
		im.SetNRGBA(x, y, color.NRGBA{
			R: clamp8(v[0] * 255), G: clamp8(v[1] * 255), B: clamp8(v[2] * 255),
			A: clamp8(alpha * 255),
		})
	case draw.Image:
		switch mode {
		case ModeGray, ModeMono:
			im.Set(x, y, color.Gray{Y: clamp8(v[0] * 255)})
		default:
			im.Set(x, y, color.NRGBA{R: clamp8(v[0] * 255), G: clamp8(v[1] * 255), B: clamp8(v[2] * 255), A: clamp8(alpha * 255)})
		}
	}
}

// Copy returns a deep copy of img in the same mode.
func Copy(img image.Image) image.Image {
	switch im := img.(type) {
	case *image.Gray:
		c := *im
		c.Pix = append([]uint8(nil), im.Pix...)
		return &c
	case *image.RGBA:
		c := *im
		c.Pix = append([]uint8(nil), im.Pix...)
		return &c
	case *image.NRGBA:
		c := *im
		c.Pix = append([]uint8(nil), im.Pix...)
		return &c
	case *image.CMYK:
		c := *im
		c.Pix = append([]uint8(nil), im.Pix...)
		return &c
	case *Lab:
		c := *im
		c.Pix = append([]uint8(nil), im.Pix...)
		return &c
	case *image.Paletted:
		c := *im
		c.Pix = append([]uint8(nil), im.Pix...)
		c.Palette = append(color.Palette(nil), im.Palette...)
		return &c
	}
	b := img.Bounds()
	dst := New(ModeOf(img), b)
	if d, ok := dst.(draw.Image); ok {
		draw.Draw(d, b, img, b.Min, draw.Src)
	}
	return dst
}
