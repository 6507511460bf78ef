package cms

import "github.com/wudi/queconverter/cmm"

// Mix interpolates linearly between c0 and c1: c0*(1-t) + c1*t, alpha
// included. Only two colors of the same space among RGB, CMYK and Gray can
// be mixed; ok is false otherwise. The name survives only when both colors
// carry the same one.
func Mix(c0, c1 Color, t float64) (Color, bool) {
	if c0.Space != c1.Space || len(c0.Values) != len(c1.Values) {
		return Color{}, false
	}
	switch c0.Space {
	case cmm.RGB, cmm.CMYK, cmm.Gray:
	default:
		return Color{}, false
	}
	out := Color{
		Space:  c0.Space,
		Values: MixValues(c0.Values, c1.Values, t),
		Alpha:  MixValue(c0.Alpha, c1.Alpha, t),
	}
	if c0.Name == c1.Name {
		out.Name = c0.Name
	}
	return out, true
}

// Mix is the package function Mix; it needs no manager state.
func (m *Manager) Mix(c0, c1 Color, t float64) (Color, bool) { return Mix(c0, c1, t) }

// MixValues interpolates a and b component-wise. The result has the length
// of the shorter slice.
func MixValues(a, b []float64, t float64) []float64 {
	n := min(len(a), len(b))
	out := make([]float64, n)
	for i := range out {
		out[i] = MixValue(a[i], b[i], t)
	}
	return out
}

// MixValue returns a*(1-t) + b*t. Equal inputs are returned unchanged.
func MixValue(a, b, t float64) float64 {
	if a == b {
		return a
	}
	return a*(1-t) + b*t
}
