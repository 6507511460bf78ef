package cms

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// RGBToHex formats normalized RGB components as #rrggbb. Components are
// clamped to [0,1].
func RGBToHex(rgb []float64) (string, error) {
	if len(rgb) != 3 {
		return "", fmt.Errorf("cms: hex color needs 3 RGB components, got %d", len(rgb))
	}
	return colorful.Color{R: rgb[0], G: rgb[1], B: rgb[2]}.Clamped().Hex(), nil
}

var hexColorRE = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// HexToRGB parses #rrggbb or #rgb (the leading # is optional) into
// normalized RGB components.
func HexToRGB(hex string) ([]float64, error) {
	s := strings.TrimSpace(hex)
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	if !hexColorRE.MatchString(s) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidHexColor, hex)
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidHexColor, hex)
	}
	return []float64{c.R, c.G, c.B}, nil
}

// Val255 scales normalized values to [0,255], rounding to nearest.
func Val255(values []float64) []uint8 {
	out := make([]uint8, len(values))
	for i, v := range values {
		out[i] = uint8(math.Round(math.Max(0, math.Min(1, v)) * 255))
	}
	return out
}

// Val255Floats is Val255 returning the values as floats.
func Val255Floats(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, b := range Val255(values) {
		out[i] = float64(b)
	}
	return out
}

// ValFrom255 scales 8-bit values to [0,1].
func ValFrom255(values []uint8) []float64 {
	out := make([]float64, len(values))
	for i, b := range values {
		out[i] = float64(b) / 255
	}
	return out
}
