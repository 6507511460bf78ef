package cmm

import (
	"errors"
	"fmt"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// D50 white point of the profile connection space.
const (
	D50X = 0.9642
	D50Y = 1.0000
	D50Z = 0.8249
)

// sRGB primaries adapted to D50 (Bradford).
var srgbToXYZD50 = [9]float64{
	0.4360747, 0.3850649, 0.1430804,
	0.2225045, 0.7168786, 0.0606169,
	0.0139322, 0.0971045, 0.7141733,
}

var xyzD50ToSRGB = mustInvert(srgbToXYZD50)

func mustInvert(m [9]float64) [9]float64 {
	inv, err := invertMatrix(m)
	if err != nil {
		panic(err)
	}
	return inv
}

// SimpleConvert converts normalized values between spaces without any
// profile, using the textbook formulas. It is the fallback when color
// management is switched off.
func SimpleConvert(values []float64, from, to ColorSpace) ([]float64, error) {
	from, to = from.Physical(), to.Physical()
	if from == Spot || to == Spot || !from.Valid() || !to.Valid() {
		return nil, fmt.Errorf("cannot convert %v to %v without a profile", from, to)
	}
	if len(values) != from.Channels() {
		return nil, fmt.Errorf("%v color needs %d values, got %d", from, from.Channels(), len(values))
	}
	if from == to {
		return clampAll(append([]float64(nil), values...)), nil
	}
	var rgb [3]float64
	switch from {
	case RGB:
		copy(rgb[:], values)
	case CMYK:
		rgb = cmykToRGB(values)
	case Gray:
		rgb = [3]float64{values[0], values[0], values[0]}
	case Lab:
		rgb = xyzToSRGB(labDecode(values))
	}
	for i := range rgb {
		rgb[i] = clamp01(rgb[i])
	}
	switch to {
	case RGB:
		return rgb[:], nil
	case CMYK:
		return rgbToCMYK(rgb), nil
	case Gray:
		return []float64{rgbToGray(rgb)}, nil
	case Lab:
		return clampAll(labEncode(srgbToXYZ(rgb))), nil
	}
	return nil, errors.New("unreachable color space")
}

func cmykToRGB(v []float64) [3]float64 {
	c, m, y, k := v[0], v[1], v[2], v[3]
	return [3]float64{(1 - c) * (1 - k), (1 - m) * (1 - k), (1 - y) * (1 - k)}
}

// rgbToCMYK leaves values outside [0,1] alone so that callers can detect
// colors the device cannot print.
func rgbToCMYK(rgb [3]float64) []float64 {
	r, g, b := rgb[0], rgb[1], rgb[2]
	k := 1 - math.Max(r, math.Max(g, b))
	out := []float64{0, 0, 0, k}
	if k < 1 {
		out[0] = (1 - r - k) / (1 - k)
		out[1] = (1 - g - k) / (1 - k)
		out[2] = (1 - b - k) / (1 - k)
	}
	return out
}

func rgbToGray(rgb [3]float64) float64 {
	return 0.299*rgb[0] + 0.587*rgb[1] + 0.114*rgb[2]
}

func srgbToXYZ(rgb [3]float64) [3]float64 {
	r, g, b := colorful.Color{R: rgb[0], G: rgb[1], B: rgb[2]}.LinearRgb()
	return mulMatrix(srgbToXYZD50, [3]float64{r, g, b})
}

// xyzToSRGB does not clamp; components outside [0,1] are out of gamut.
func xyzToSRGB(xyz [3]float64) [3]float64 {
	lin := mulMatrix(xyzD50ToSRGB, xyz)
	c := colorful.LinearRgb(lin[0], lin[1], lin[2])
	return [3]float64{c.R, c.G, c.B}
}

func mulMatrix(m [9]float64, v [3]float64) [3]float64 {
	return [3]float64{
		m[0]*v[0] + m[1]*v[1] + m[2]*v[2],
		m[3]*v[0] + m[4]*v[1] + m[5]*v[2],
		m[6]*v[0] + m[7]*v[1] + m[8]*v[2],
	}
}

// labEncode converts XYZ to Lab normalized as L/100, (a+128)/255, (b+128)/255.
func labEncode(xyz [3]float64) []float64 {
	lab := XYZToLab(xyz[:])
	return []float64{lab[0] / 100, (lab[1] + 128) / 255, (lab[2] + 128) / 255}
}

func labDecode(v []float64) [3]float64 {
	xyz := LabToXYZ([]float64{v[0] * 100, v[1]*255 - 128, v[2]*255 - 128})
	return [3]float64{xyz[0], xyz[1], xyz[2]}
}

func clampAll(v []float64) []float64 {
	for i := range v {
		v[i] = clamp01(v[i])
	}
	return v
}

// XYZToLab converts D50 XYZ to CIE L*a*b*.
func XYZToLab(xyz []float64) []float64 {
	if len(xyz) < 3 {
		return xyz
	}
	f := func(t float64) float64 {
		if t > 0.008856 {
			return math.Cbrt(t)
		}
		return 7.787*t + 16.0/116.0
	}
	fx := f(xyz[0] / D50X)
	fy := f(xyz[1] / D50Y)
	fz := f(xyz[2] / D50Z)
	return []float64{116*fy - 16, 500 * (fx - fy), 200 * (fy - fz)}
}

// LabToXYZ converts CIE L*a*b* to D50 XYZ.
func LabToXYZ(lab []float64) []float64 {
	if len(lab) < 3 {
		return lab
	}
	fy := (lab[0] + 16) / 116
	fx := lab[1]/500 + fy
	fz := fy - lab[2]/200
	fInv := func(t float64) float64 {
		if t > 0.206893 {
			return t * t * t
		}
		return (t - 16.0/116.0) / 7.787
	}
	return []float64{D50X * fInv(fx), D50Y * fInv(fy), D50Z * fInv(fz)}
}

func invertMatrix(m [9]float64) ([9]float64, error) {
	a, b, c := m[0], m[1], m[2]
	d, e, f := m[3], m[4], m[5]
	g, h, i := m[6], m[7], m[8]

	det := a*(e*i-f*h) - b*(d*i-f*g) + c*(d*h-e*g)
	if math.Abs(det) < 1e-10 {
		return [9]float64{}, errors.New("matrix is singular")
	}
	invDet := 1.0 / det

	return [9]float64{
		(e*i - f*h) * invDet, (c*h - b*i) * invDet, (b*f - c*e) * invDet,
		(f*g - d*i) * invDet, (a*i - c*g) * invDet, (c*d - a*f) * invDet,
		(d*h - e*g) * invDet, (g*b - a*h) * invDet, (a*e - b*d) * invDet,
	}, nil
}
