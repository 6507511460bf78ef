// Package bitmap is the image backend used by the color engine. It knows how
// pixel data is laid out for each image mode and how to walk an image channel
// by channel; it does not know anything about color profiles.
package bitmap

import (
	"fmt"
	"image"
	"image/color"
	"strings"
)

// Mode identifies the pixel layout of an image.
type Mode int

const (
	ModeMono Mode = iota
	ModeGray
	ModeRGB
	ModeRGBA
	ModeCMYK
	ModeLab
)

var modeNames = [...]string{
	ModeMono: "1",
	ModeGray: "L",
	ModeRGB:  "RGB",
	ModeRGBA: "RGBA",
	ModeCMYK: "CMYK",
	ModeLab:  "LAB",
}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return modeNames[m]
}

// ParseMode accepts the short mode names ("1", "L", "RGB", ...) as well as
// "mono" and "gray".
func ParseMode(s string) (Mode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "1", "MONO":
		return ModeMono, nil
	case "L", "GRAY", "GREY":
		return ModeGray, nil
	case "RGB":
		return ModeRGB, nil
	case "RGBA":
		return ModeRGBA, nil
	case "CMYK":
		return ModeCMYK, nil
	case "LAB":
		return ModeLab, nil
	}
	return 0, fmt.Errorf("unknown image mode %q", s)
}

// Channels returns the number of color channels, not counting alpha.
func (m Mode) Channels() int {
	switch m {
	case ModeMono, ModeGray:
		return 1
	case ModeCMYK:
		return 4
	default:
		return 3
	}
}

// HasAlpha reports whether the mode carries an alpha channel.
func (m Mode) HasAlpha() bool { return m == ModeRGBA }

// MonoPalette is the two-entry palette used for ModeMono images.
var MonoPalette = color.Palette{color.Black, color.White}

// ModeOf reports the mode of img. Premultiplied RGB images are RGB when they
// are fully opaque and RGBA otherwise.
func ModeOf(img image.Image) Mode {
	switch im := img.(type) {
	case *image.Gray, *image.Gray16:
		return ModeGray
	case *image.CMYK:
		return ModeCMYK
	case *Lab:
		return ModeLab
	case *image.NRGBA, *image.NRGBA64:
		return ModeRGBA
	case *image.Paletted:
		if isMonoPalette(im.Palette) {
			return ModeMono
		}
		if im.Opaque() {
			return ModeRGB
		}
		return ModeRGBA
	case interface{ Opaque() bool }:
		if im.Opaque() {
			return ModeRGB
		}
		return ModeRGBA
	}
	return ModeRGBA
}

func isMonoPalette(p color.Palette) bool {
	if len(p) != 2 {
		return false
	}
	for _, c := range p {
		r, g, b, _ := c.RGBA()
		if r != g || g != b || (r != 0 && r != 0xffff) {
			return false
		}
	}
	return true
}

// New allocates an empty image of the given mode.
func New(mode Mode, r image.Rectangle) image.Image {
	switch mode {
	case ModeMono:
		return image.NewPaletted(r, MonoPalette)
	case ModeGray:
		return image.NewGray(r)
	case ModeRGB:
		return image.NewRGBA(r)
	case ModeRGBA:
		return image.NewNRGBA(r)
	case ModeCMYK:
		return image.NewCMYK(r)
	case ModeLab:
		return NewLab(r)
	}
	return image.NewNRGBA(r)
}
