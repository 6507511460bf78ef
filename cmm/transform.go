package cmm

import (
	"fmt"
	"image"
	"sync/atomic"

	"github.com/wudi/queconverter/bitmap"
)

// toPCS maps device values to D50 XYZ; fromPCS maps back. fromPCS does not
// clamp, so values outside [0,1] mark colors outside the device gamut.
type (
	toPCS   func(dev []float64) [3]float64
	fromPCS func(xyz [3]float64) []float64
)

// gamutEpsilon absorbs rounding noise when testing proof values for range.
const gamutEpsilon = 1e-4

type pipelineTransform struct {
	in, out  ColorSpace
	convert  func(src []float64) (dst []float64, inGamut bool)
	alarm    AlarmCodes
	gamut    bool
	released atomic.Bool
}

func (t *pipelineTransform) Convert(src []float64) ([]float64, error) {
	if t.released.Load() {
		return nil, ErrReleased
	}
	if len(src) != t.in.Channels() {
		return nil, fmt.Errorf("input channels mismatch: expected %d, got %d", t.in.Channels(), len(src))
	}
	return t.apply(src), nil
}

func (t *pipelineTransform) apply(src []float64) []float64 {
	dst, ok := t.convert(src)
	if !ok && t.gamut && len(dst) == 3 {
		return []float64{t.alarm[0], t.alarm[1], t.alarm[2]}
	}
	return clampAll(dst)
}

func (t *pipelineTransform) ConvertImage(img image.Image, in, out bitmap.Mode) (image.Image, error) {
	if t.released.Load() {
		return nil, ErrReleased
	}
	if in.Channels() != t.in.Channels() || out.Channels() != t.out.Channels() {
		return nil, fmt.Errorf("transform %v->%v cannot convert %v image to %v", t.in, t.out, in, out)
	}
	return bitmap.Map(img, in, out, func(src, dst []float64) error {
		copy(dst, t.apply(src))
		return nil
	})
}

func (t *pipelineTransform) Release() { t.released.Store(true) }

// stageBuilder turns one profile into its PCS stages.
type stageBuilder struct {
	profile Profile
	space   ColorSpace
	intent  RenderingIntent
	precalc bool
}

func (b stageBuilder) check() error {
	if b.profile == nil {
		return fmt.Errorf("%v profile required", b.space)
	}
	if r, ok := b.profile.(interface{ isReleased() bool }); ok && r.isReleased() {
		return ErrReleased
	}
	if b.space == Spot || !b.space.Valid() {
		return fmt.Errorf("no transforms for %v colors", b.space)
	}
	if got := b.profile.ColorSpace(); got != b.space.Physical() {
		return fmt.Errorf("profile %q is %v, not %v", b.profile.Name(), got, b.space)
	}
	return nil
}

// lutIndex picks the AToB/BToA table for an intent. Absolute colorimetric
// shares the colorimetric table and rescales by the media white point.
func lutIndex(intent RenderingIntent) string {
	switch intent {
	case IntentRelativeColorimetric, IntentAbsoluteColorimetric:
		return "1"
	case IntentSaturation:
		return "2"
	}
	return "0"
}

func (b stageBuilder) findLUT(prefix string) *LUT {
	p, ok := b.profile.(*ICCProfile)
	if !ok {
		return nil
	}
	for _, sig := range []string{prefix + lutIndex(b.intent), prefix + "0"} {
		lut, err := p.ReadLUTTag(sig)
		if err != nil {
			continue
		}
		return lut
	}
	return nil
}

// mediaScale returns the per-component factor between the media white and
// D50 when the absolute colorimetric intent is requested.
func (b stageBuilder) mediaScale() ([3]float64, bool) {
	p, ok := b.profile.(*ICCProfile)
	if !ok || b.intent != IntentAbsoluteColorimetric {
		return [3]float64{}, false
	}
	w, err := p.ReadXYZTag("wtpt")
	if err != nil || w[1] == 0 {
		return [3]float64{}, false
	}
	return [3]float64{w[0] / D50X, w[1] / D50Y, w[2] / D50Z}, true
}

func (b stageBuilder) toPCS() (toPCS, error) {
	stage, err := b.rawToPCS()
	if err != nil {
		return nil, err
	}
	if s, ok := b.mediaScale(); ok {
		inner := stage
		stage = func(dev []float64) [3]float64 {
			xyz := inner(dev)
			return [3]float64{xyz[0] * s[0], xyz[1] * s[1], xyz[2] * s[2]}
		}
	}
	return stage, nil
}

func (b stageBuilder) fromPCS() (fromPCS, error) {
	stage, err := b.rawFromPCS()
	if err != nil {
		return nil, err
	}
	if s, ok := b.mediaScale(); ok {
		inner := stage
		stage = func(xyz [3]float64) []float64 {
			return inner([3]float64{xyz[0] / s[0], xyz[1] / s[1], xyz[2] / s[2]})
		}
	}
	return stage, nil
}

func (b stageBuilder) rawToPCS() (toPCS, error) {
	if lut := b.findLUT("A2B"); lut != nil && int(lut.InputChannels) == b.space.Channels() && lut.OutputChannels == 3 {
		pcs := b.profile.(*ICCProfile).PCS()
		return func(dev []float64) [3]float64 {
			v, _ := lut.Convert(dev, false)
			return decodePCS(pcs, v, lut.Bits)
		}, nil
	}
	if p, ok := b.profile.(*ICCProfile); ok {
		if m, err := readMatrixTRC(p); err == nil {
			return m.toPCS, nil
		}
		if k, err := p.ReadCurveTag("kTRC"); err == nil {
			return func(dev []float64) [3]float64 {
				y := k.Eval(dev[0])
				return [3]float64{D50X * y, D50Y * y, D50Z * y}
			}, nil
		}
	}
	return analyticToPCS(b.space.Physical())
}

func (b stageBuilder) rawFromPCS() (fromPCS, error) {
	if lut := b.findLUT("B2A"); lut != nil && lut.InputChannels == 3 && int(lut.OutputChannels) == b.space.Channels() {
		pcs := b.profile.(*ICCProfile).PCS()
		return func(xyz [3]float64) []float64 {
			v, _ := lut.Convert(encodePCS(pcs, xyz, lut.Bits), pcs == "XYZ ")
			return v
		}, nil
	}
	if p, ok := b.profile.(*ICCProfile); ok {
		if m, err := readMatrixTRC(p); err == nil {
			return m.inverse(b.precalc)
		}
		if k, err := p.ReadCurveTag("kTRC"); err == nil {
			inv := k.inverter(b.precalc)
			return func(xyz [3]float64) []float64 {
				return []float64{invertLinear(xyz[1]/D50Y, inv)}
			}, nil
		}
	}
	return analyticFromPCS(b.space.Physical())
}

func analyticToPCS(space ColorSpace) (toPCS, error) {
	switch space {
	case RGB:
		return func(dev []float64) [3]float64 {
			return srgbToXYZ([3]float64{dev[0], dev[1], dev[2]})
		}, nil
	case CMYK:
		return func(dev []float64) [3]float64 {
			return srgbToXYZ(cmykToRGB(dev))
		}, nil
	case Gray:
		return func(dev []float64) [3]float64 {
			return srgbToXYZ([3]float64{dev[0], dev[0], dev[0]})
		}, nil
	case Lab:
		return func(dev []float64) [3]float64 { return labDecode(dev) }, nil
	}
	return nil, fmt.Errorf("no conversion for %v", space)
}

func analyticFromPCS(space ColorSpace) (fromPCS, error) {
	switch space {
	case RGB:
		return func(xyz [3]float64) []float64 {
			rgb := xyzToSRGB(xyz)
			return rgb[:]
		}, nil
	case CMYK:
		return func(xyz [3]float64) []float64 {
			return rgbToCMYK(xyzToSRGB(xyz))
		}, nil
	case Gray:
		return func(xyz [3]float64) []float64 {
			return []float64{rgbToGray(xyzToSRGB(xyz))}
		}, nil
	case Lab:
		return labEncode, nil
	}
	return nil, fmt.Errorf("no conversion for %v", space)
}

// decodePCS converts LUT output in the profile's PCS encoding to XYZ.
func decodePCS(pcs string, v []float64, bits int) [3]float64 {
	if pcs == "Lab " {
		scale := 1.0
		if bits == 16 {
			scale = 65535.0 / 65280.0
		}
		xyz := LabToXYZ([]float64{v[0] * 100 * scale, v[1]*255*scale - 128, v[2]*255*scale - 128})
		return [3]float64{xyz[0], xyz[1], xyz[2]}
	}
	const xyzScale = 65535.0 / 32768.0
	return [3]float64{v[0] * xyzScale, v[1] * xyzScale, v[2] * xyzScale}
}

func encodePCS(pcs string, xyz [3]float64, bits int) []float64 {
	if pcs == "Lab " {
		scale := 1.0
		if bits == 16 {
			scale = 65280.0 / 65535.0
		}
		lab := XYZToLab(xyz[:])
		return []float64{lab[0] / 100 * scale, (lab[1] + 128) / 255 * scale, (lab[2] + 128) / 255 * scale}
	}
	const xyzScale = 32768.0 / 65535.0
	return []float64{xyz[0] * xyzScale, xyz[1] * xyzScale, xyz[2] * xyzScale}
}

type matrixTRC struct {
	curves [3]*Curve
	matrix [9]float64 // linear RGB to XYZ, row major
}

func readMatrixTRC(p *ICCProfile) (*matrixTRC, error) {
	m := &matrixTRC{}
	for i, c := range []string{"r", "g", "b"} {
		col, err := p.ReadXYZTag(c + "XYZ")
		if err != nil {
			return nil, err
		}
		m.matrix[i], m.matrix[3+i], m.matrix[6+i] = col[0], col[1], col[2]
		if m.curves[i], err = p.ReadCurveTag(c + "TRC"); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *matrixTRC) toPCS(dev []float64) [3]float64 {
	return mulMatrix(m.matrix, [3]float64{
		m.curves[0].Eval(dev[0]), m.curves[1].Eval(dev[1]), m.curves[2].Eval(dev[2]),
	})
}

func (m *matrixTRC) inverse(precalc bool) (fromPCS, error) {
	inv, err := invertMatrix(m.matrix)
	if err != nil {
		return nil, err
	}
	var curves [3]func(float64) float64
	for i, c := range m.curves {
		curves[i] = c.inverter(precalc)
	}
	return func(xyz [3]float64) []float64 {
		lin := mulMatrix(inv, xyz)
		return []float64{
			invertLinear(lin[0], curves[0]),
			invertLinear(lin[1], curves[1]),
			invertLinear(lin[2], curves[2]),
		}
	}, nil
}

// invertLinear applies a curve inverse inside [0,1] and passes values
// outside through unchanged so that out-of-gamut colors stay detectable.
func invertLinear(v float64, inv func(float64) float64) float64 {
	if v < -gamutEpsilon || v > 1+gamutEpsilon {
		return v
	}
	return inv(v)
}

// inverter returns the inverse of c. With precalc, sampled and parametric
// curves are inverted once into a table.
func (c *Curve) inverter(precalc bool) func(float64) float64 {
	if (len(c.Table) == 0 && len(c.Params) == 0) || !precalc {
		return c.Inverse
	}
	table := make([]float64, 4096)
	for i := range table {
		table[i] = c.Inverse(float64(i) / float64(len(table)-1))
	}
	return func(y float64) float64 { return interp1D(y, table) }
}

// blackPoint returns the device values of the darkest color in space.
func blackPoint(space ColorSpace) []float64 {
	switch space.Physical() {
	case CMYK:
		return []float64{1, 1, 1, 1}
	case Gray:
		return []float64{0}
	case Lab:
		return []float64{0, 128.0 / 255, 128.0 / 255}
	}
	return []float64{0, 0, 0}
}

// blackPointCompensation scales XYZ so that the source black lands on the
// destination black while D50 white stays fixed.
func blackPointCompensation(src, dst stageBuilder) (func([3]float64) [3]float64, error) {
	srcTo, err := src.toPCS()
	if err != nil {
		return nil, err
	}
	dstTo, err := dst.toPCS()
	if err != nil {
		return nil, err
	}
	bs := srcTo(blackPoint(src.space))
	bd := dstTo(blackPoint(dst.space))
	white := [3]float64{D50X, D50Y, D50Z}
	var scale, offset [3]float64
	for i := range white {
		if white[i]-bs[i] == 0 {
			return nil, nil
		}
		scale[i] = (white[i] - bd[i]) / (white[i] - bs[i])
		offset[i] = bd[i] - bs[i]*scale[i]
	}
	return func(xyz [3]float64) [3]float64 {
		return [3]float64{
			xyz[0]*scale[0] + offset[0],
			xyz[1]*scale[1] + offset[1],
			xyz[2]*scale[2] + offset[2],
		}
	}, nil
}

// link builds device-to-device conversion for one profile pair.
func link(src, dst stageBuilder, flags Flags) (func([]float64) []float64, error) {
	to, err := src.toPCS()
	if err != nil {
		return nil, fmt.Errorf("source profile: %w", err)
	}
	from, err := dst.fromPCS()
	if err != nil {
		return nil, fmt.Errorf("destination profile: %w", err)
	}
	var bpc func([3]float64) [3]float64
	if flags.Has(FlagBlackPointCompensation) && src.intent != IntentAbsoluteColorimetric {
		if bpc, err = blackPointCompensation(src, dst); err != nil {
			return nil, err
		}
	}
	preserveK := flags.Has(FlagPreserveBlack) && src.space.Physical() == CMYK && dst.space.Physical() == CMYK
	return func(dev []float64) []float64 {
		if preserveK && dev[0] == 0 && dev[1] == 0 && dev[2] == 0 {
			return []float64{0, 0, 0, dev[3]}
		}
		xyz := to(dev)
		if bpc != nil {
			xyz = bpc(xyz)
		}
		return from(xyz)
	}, nil
}

func inRange(v []float64) bool {
	for _, x := range v {
		if x < -gamutEpsilon || x > 1+gamutEpsilon {
			return false
		}
	}
	return true
}
