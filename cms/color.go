package cms

import (
	"fmt"

	"github.com/wudi/queconverter/cmm"
)

// Color is a color value. Values are normalized to [0,1]; Lab is stored as
// L/100, (a+128)/255, (b+128)/255. Spot colors leave Values empty and carry
// their representations in Spot.
type Color struct {
	Space  cmm.ColorSpace
	Values []float64
	Alpha  float64
	Name   string
	Spot   *SpotValues
}

// SpotValues holds the fixed representations of a named spot color. Either
// slice may be nil.
type SpotValues struct {
	RGB  []float64
	CMYK []float64
}

// NewColor returns an opaque color in space.
func NewColor(space cmm.ColorSpace, values ...float64) Color {
	return Color{Space: space, Values: append([]float64(nil), values...), Alpha: 1}
}

// RGBColor returns an opaque RGB color.
func RGBColor(r, g, b float64) Color { return NewColor(cmm.RGB, r, g, b) }

// CMYKColor returns an opaque CMYK color.
func CMYKColor(c, m, y, k float64) Color { return NewColor(cmm.CMYK, c, m, y, k) }

// LabColor returns an opaque Lab color from normalized components.
func LabColor(l, a, b float64) Color { return NewColor(cmm.Lab, l, a, b) }

// GrayColor returns an opaque gray color.
func GrayColor(g float64) Color { return NewColor(cmm.Gray, g) }

// SpotColor returns a named spot color with the given representations.
func SpotColor(name string, rgb, cmyk []float64) Color {
	sv := &SpotValues{}
	if rgb != nil {
		sv.RGB = append([]float64(nil), rgb...)
	}
	if cmyk != nil {
		sv.CMYK = append([]float64(nil), cmyk...)
	}
	return Color{Space: cmm.Spot, Alpha: 1, Name: name, Spot: sv}
}

// Clone returns a deep copy of c.
func (c Color) Clone() Color {
	out := c
	if c.Values != nil {
		out.Values = append([]float64(nil), c.Values...)
	}
	if c.Spot != nil {
		out.Spot = &SpotValues{}
		if c.Spot.RGB != nil {
			out.Spot.RGB = append([]float64(nil), c.Spot.RGB...)
		}
		if c.Spot.CMYK != nil {
			out.Spot.CMYK = append([]float64(nil), c.Spot.CMYK...)
		}
	}
	return out
}

// Validate checks the channel count of c against its space and that all
// values are within [0,1].
func (c Color) Validate() error {
	if !c.Space.Valid() || c.Space == cmm.Display {
		return fmt.Errorf("invalid color space %v", c.Space)
	}
	if c.Alpha < 0 || c.Alpha > 1 {
		return fmt.Errorf("alpha %v out of range", c.Alpha)
	}
	if c.Space == cmm.Spot {
		if c.Spot == nil {
			return nil
		}
		if err := checkValues(cmm.RGB, c.Spot.RGB, true); err != nil {
			return fmt.Errorf("spot %q: %w", c.Name, err)
		}
		if err := checkValues(cmm.CMYK, c.Spot.CMYK, true); err != nil {
			return fmt.Errorf("spot %q: %w", c.Name, err)
		}
		return nil
	}
	return checkValues(c.Space, c.Values, false)
}

func checkValues(space cmm.ColorSpace, v []float64, optional bool) error {
	if v == nil && optional {
		return nil
	}
	if len(v) != space.Channels() {
		return fmt.Errorf("%v color needs %d values, got %d", space, space.Channels(), len(v))
	}
	for i, x := range v {
		if x < 0 || x > 1 {
			return fmt.Errorf("%v value %d out of range: %v", space, i, x)
		}
	}
	return nil
}

// spotFallback resolves a spot color to one of its representations. When
// preferCMYK is set the CMYK representation wins if both exist.
func spotFallback(c Color, preferCMYK bool) (Color, error) {
	if c.Spot == nil || (c.Spot.RGB == nil && c.Spot.CMYK == nil) {
		return Color{}, fmt.Errorf("%w: %q", ErrNoSpotRepresentation, c.Name)
	}
	out := Color{Alpha: c.Alpha, Name: c.Name}
	switch {
	case preferCMYK && c.Spot.CMYK != nil, c.Spot.RGB == nil:
		out.Space, out.Values = cmm.CMYK, append([]float64(nil), c.Spot.CMYK...)
	default:
		out.Space, out.Values = cmm.RGB, append([]float64(nil), c.Spot.RGB...)
	}
	return out, nil
}

// ColorName returns the name carried by c.
func ColorName(c Color) string { return c.Name }
