package cmm

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync/atomic"

	"golang.org/x/text/encoding/unicode"
	"seehuhn.de/go/icc"
)

// ICCProfile implements Profile for ICC data.
type ICCProfile struct {
	data     []byte
	space    ColorSpace
	tags     map[string][]byte
	name     string
	released atomic.Bool
}

// NewICCProfile creates a new ICCProfile from bytes.
func NewICCProfile(data []byte) (*ICCProfile, error) {
	if len(data) < 132 {
		return nil, errors.New("invalid ICC profile data")
	}
	// icc.Decode zeroes header fields while checking the profile ID.
	dec, err := icc.Decode(bytes.Clone(data))
	if err != nil {
		return nil, fmt.Errorf("decode ICC profile: %w", err)
	}
	space, err := spaceFromICC(dec)
	if err != nil {
		return nil, err
	}
	p := &ICCProfile{data: data, space: space}
	if err := p.readTagTable(); err != nil {
		return nil, err
	}
	p.name = p.readDescription()
	return p, nil
}

func spaceFromICC(p *icc.Profile) (ColorSpace, error) {
	switch p.ColorSpace {
	case icc.RGBSpace:
		return RGB, nil
	case icc.CMYKSpace:
		return CMYK, nil
	case icc.GraySpace:
		return Gray, nil
	case icc.CIELabSpace:
		return Lab, nil
	}
	return 0, fmt.Errorf("unsupported profile color space %v", p.ColorSpace)
}

func (p *ICCProfile) readTagTable() error {
	n := binary.BigEndian.Uint32(p.data[128:132])
	if int64(n)*12+132 > int64(len(p.data)) {
		return errors.New("ICC tag table truncated")
	}
	p.tags = make(map[string][]byte, n)
	for i := 0; i < int(n); i++ {
		entry := p.data[132+12*i : 144+12*i]
		offset := int64(binary.BigEndian.Uint32(entry[4:8]))
		size := int64(binary.BigEndian.Uint32(entry[8:12]))
		if offset+size > int64(len(p.data)) {
			return fmt.Errorf("ICC tag %q out of bounds", entry[0:4])
		}
		p.tags[string(entry[0:4])] = p.data[offset : offset+size]
	}
	return nil
}

// Name returns the profile description, or a generic name when the
// profile has none.
func (p *ICCProfile) Name() string {
	if p.name != "" {
		return p.name
	}
	return p.space.String() + " ICC Profile"
}

func (p *ICCProfile) ColorSpace() ColorSpace { return p.space }

func (p *ICCProfile) Class() string { return string(p.data[12:16]) }

// PCS returns the profile connection space signature ("XYZ " or "Lab ").
func (p *ICCProfile) PCS() string { return string(p.data[20:24]) }

func (p *ICCProfile) Data() []byte { return p.data }

func (p *ICCProfile) Release() { p.released.Store(true) }

func (p *ICCProfile) isReleased() bool { return p.released.Load() }

// GetTag returns the raw data of the tag with signature sig.
func (p *ICCProfile) GetTag(sig string) ([]byte, bool) {
	d, ok := p.tags[sig]
	return d, ok
}

func (p *ICCProfile) readDescription() string {
	data, ok := p.GetTag("desc")
	if !ok || len(data) < 12 {
		return ""
	}
	switch string(data[0:4]) {
	case "desc":
		n := int(binary.BigEndian.Uint32(data[8:12]))
		if n <= 0 || 12+n > len(data) {
			return ""
		}
		return strings.TrimRight(string(data[12:12+n]), "\x00")
	case "text":
		return strings.TrimRight(string(data[8:]), "\x00")
	case "mluc":
		if len(data) < 28 || binary.BigEndian.Uint32(data[8:12]) == 0 {
			return ""
		}
		length := int(binary.BigEndian.Uint32(data[20:24]))
		offset := int(binary.BigEndian.Uint32(data[24:28]))
		if offset+length > len(data) {
			return ""
		}
		dec := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder()
		s, err := dec.Bytes(data[offset : offset+length])
		if err != nil {
			return ""
		}
		return strings.TrimRight(string(s), "\x00")
	}
	return ""
}

// ReadXYZTag reads an XYZType tag such as "rXYZ" or "wtpt".
func (p *ICCProfile) ReadXYZTag(sig string) ([3]float64, error) {
	data, ok := p.GetTag(sig)
	if !ok {
		return [3]float64{}, fmt.Errorf("tag %q not found", sig)
	}
	if len(data) < 20 || string(data[0:4]) != "XYZ " {
		return [3]float64{}, fmt.Errorf("tag %q is not an XYZ tag", sig)
	}
	return [3]float64{
		s15Fixed16ToFloat(binary.BigEndian.Uint32(data[8:12])),
		s15Fixed16ToFloat(binary.BigEndian.Uint32(data[12:16])),
		s15Fixed16ToFloat(binary.BigEndian.Uint32(data[16:20])),
	}, nil
}

// ReadCurveTag reads a curveType or parametricCurveType tag.
func (p *ICCProfile) ReadCurveTag(sig string) (*Curve, error) {
	data, ok := p.GetTag(sig)
	if !ok {
		return nil, fmt.Errorf("tag %q not found", sig)
	}
	return parseCurve(data)
}

func s15Fixed16ToFloat(v uint32) float64 {
	return float64(int32(v)) / 65536.0
}

// Curve is a one-dimensional tone reproduction curve.
type Curve struct {
	Gamma  float64   // used when Table and Params are empty
	Table  []float64 // sampled curve, normalized
	Kind   int       // parametric function type, when Params is set
	Params []float64
}

func parseCurve(data []byte) (*Curve, error) {
	if len(data) < 12 {
		return nil, errors.New("curve tag too short")
	}
	switch string(data[0:4]) {
	case "curv":
		n := int(binary.BigEndian.Uint32(data[8:12]))
		switch {
		case n == 0:
			return &Curve{Gamma: 1}, nil
		case n == 1:
			if len(data) < 14 {
				return nil, errors.New("curve tag truncated")
			}
			return &Curve{Gamma: float64(binary.BigEndian.Uint16(data[12:14])) / 256}, nil
		}
		if 12+2*n > len(data) {
			return nil, errors.New("curve table truncated")
		}
		table := make([]float64, n)
		for i := range table {
			table[i] = float64(binary.BigEndian.Uint16(data[12+2*i:])) / 65535
		}
		return &Curve{Table: table}, nil
	case "para":
		kind := int(binary.BigEndian.Uint16(data[8:10]))
		counts := [...]int{1, 3, 4, 5, 7}
		if kind >= len(counts) {
			return nil, fmt.Errorf("unsupported parametric curve type %d", kind)
		}
		if 12+4*counts[kind] > len(data) {
			return nil, errors.New("parametric curve truncated")
		}
		params := make([]float64, counts[kind])
		for i := range params {
			params[i] = s15Fixed16ToFloat(binary.BigEndian.Uint32(data[12+4*i:]))
		}
		return &Curve{Kind: kind, Params: params}, nil
	}
	return nil, fmt.Errorf("unsupported curve type %q", data[0:4])
}

// Eval maps a device value to its linear value.
func (c *Curve) Eval(x float64) float64 {
	x = clamp01(x)
	switch {
	case len(c.Table) > 0:
		return interp1D(x, c.Table)
	case len(c.Params) > 0:
		return c.evalParametric(x)
	}
	return math.Pow(x, c.Gamma)
}

func (c *Curve) evalParametric(x float64) float64 {
	p := c.Params
	g := p[0]
	switch c.Kind {
	case 0:
		return math.Pow(x, g)
	case 1:
		if p[1] != 0 && x >= -p[2]/p[1] {
			return math.Pow(p[1]*x+p[2], g)
		}
		return 0
	case 2:
		if p[1] != 0 && x >= -p[2]/p[1] {
			return math.Pow(p[1]*x+p[2], g) + p[3]
		}
		return p[3]
	case 3:
		if x >= p[4] {
			return math.Pow(p[1]*x+p[2], g)
		}
		return p[3] * x
	default:
		if x >= p[4] {
			return math.Pow(p[1]*x+p[2], g) + p[5]
		}
		return p[3]*x + p[6]
	}
}

// Inverse maps a linear value back to a device value. Curves are assumed
// to be monotonically non-decreasing.
func (c *Curve) Inverse(y float64) float64 {
	y = clamp01(y)
	if len(c.Table) == 0 && len(c.Params) == 0 {
		if c.Gamma == 0 {
			return y
		}
		return math.Pow(y, 1/c.Gamma)
	}
	lo, hi := 0.0, 1.0
	for i := 0; i < 32; i++ {
		mid := (lo + hi) / 2
		if c.Eval(mid) < y {
			lo = mid
		} else {
			hi = mid
		}
	}
	return (lo + hi) / 2
}

func clamp01(v float64) float64 {
	switch {
	case v < 0 || math.IsNaN(v):
		return 0
	case v > 1:
		return 1
	}
	return v
}
