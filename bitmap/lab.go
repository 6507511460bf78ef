package bitmap

import (
	"image"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

// LabColor is an 8-bit encoded CIE L*a*b* (D50) color. L is scaled from
// [0,100] to [0,255]; a and b are offset by 128.
type LabColor struct {
	L, A, B uint8
}

// RGBA converts through sRGB so that Lab images can be drawn and encoded
// like any other image.
func (c LabColor) RGBA() (r, g, b, a uint32) {
	l := float64(c.L) / 255
	la := (float64(c.A) - 128) / 100
	lb := (float64(c.B) - 128) / 100
	x, y, z := colorful.LabToXyzWhiteRef(l, la, lb, colorful.D50)
	x, y, z = adaptD50toD65(x, y, z)
	return colorful.Xyz(x, y, z).Clamped().RGBA()
}

// LabModel converts arbitrary colors to LabColor.
var LabModel = color.ModelFunc(labModel)

func labModel(c color.Color) color.Color {
	if lc, ok := c.(LabColor); ok {
		return lc
	}
	cf, _ := colorful.MakeColor(c)
	x, y, z := adaptD65toD50(cf.Xyz())
	l, a, b := colorful.XyzToLabWhiteRef(x, y, z, colorful.D50)
	return LabColor{
		L: clamp8(l * 255),
		A: clamp8(a*100 + 128),
		B: clamp8(b*100 + 128),
	}
}

// Lab is an in-memory image of LabColor pixels.
type Lab struct {
	Pix    []uint8
	Stride int
	Rect   image.Rectangle
}

// NewLab returns a Lab image with the given bounds.
func NewLab(r image.Rectangle) *Lab {
	w, h := r.Dx(), r.Dy()
	return &Lab{Pix: make([]uint8, 3*w*h), Stride: 3 * w, Rect: r}
}

func (p *Lab) ColorModel() color.Model { return LabModel }

func (p *Lab) Bounds() image.Rectangle { return p.Rect }

func (p *Lab) At(x, y int) color.Color { return p.LabAt(x, y) }

func (p *Lab) LabAt(x, y int) LabColor {
	if !(image.Point{x, y}.In(p.Rect)) {
		return LabColor{}
	}
	i := p.PixOffset(x, y)
	s := p.Pix[i : i+3 : i+3]
	return LabColor{s[0], s[1], s[2]}
}

// PixOffset returns the index of the first element of Pix that corresponds
// to the pixel at (x, y).
func (p *Lab) PixOffset(x, y int) int {
	return (y-p.Rect.Min.Y)*p.Stride + (x-p.Rect.Min.X)*3
}

func (p *Lab) Set(x, y int, c color.Color) {
	p.SetLab(x, y, LabModel.Convert(c).(LabColor))
}

func (p *Lab) SetLab(x, y int, c LabColor) {
	if !(image.Point{x, y}.In(p.Rect)) {
		return
	}
	i := p.PixOffset(x, y)
	s := p.Pix[i : i+3 : i+3]
	s[0], s[1], s[2] = c.L, c.A, c.B
}

// Opaque reports true; Lab images carry no alpha.
func (p *Lab) Opaque() bool { return true }

func clamp8(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	}
	return uint8(v + 0.5)
}

// Bradford chromatic adaptation between the D65 white of sRGB and the D50
// white of the ICC connection space.
func adaptD50toD65(x, y, z float64) (float64, float64, float64) {
	return 0.9555766*x - 0.0230393*y + 0.0631636*z,
		-0.0282895*x + 1.0099416*y + 0.0210077*z,
		0.0122982*x - 0.0204830*y + 1.3299098*z
}

func adaptD65toD50(x, y, z float64) (float64, float64, float64) {
	return 1.0478112*x + 0.0228866*y - 0.0501270*z,
		0.0295424*x + 0.9904844*y - 0.0170491*z,
		-0.0092345*x + 0.0150436*y + 0.7521316*z
}
