package cmm

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Names of the synthesized built-in profiles.
const (
	BuiltinRGBName  = "Built-in RGB (sRGB, D50)"
	BuiltinCMYKName = "Built-in CMYK (uncalibrated)"
	BuiltinGrayName = "Built-in Gray (sRGB tone curve)"
	BuiltinLabName  = "Built-in LAB (D50)"
)

// builtinProfileData returns the bytes of the default profile for space.
// RGB and Display use a matrix/TRC sRGB profile; the others carry no
// lookup tables and are evaluated analytically.
func builtinProfileData(space ColorSpace) ([]byte, error) {
	switch space {
	case RGB, Display:
		m := srgbToXYZD50
		w := newProfileWriter("mntr", "RGB ", "XYZ ")
		w.addTag("desc", textDescription(BuiltinRGBName))
		w.addTag("wtpt", xyzTag(D50X, D50Y, D50Z))
		w.addTag("rXYZ", xyzTag(m[0], m[3], m[6]))
		w.addTag("gXYZ", xyzTag(m[1], m[4], m[7]))
		w.addTag("bXYZ", xyzTag(m[2], m[5], m[8]))
		for _, sig := range []string{"rTRC", "gTRC", "bTRC"} {
			w.addTag(sig, srgbCurve())
		}
		return w.bytes(), nil
	case CMYK:
		w := newProfileWriter("prtr", "CMYK", "XYZ ")
		w.addTag("desc", textDescription(BuiltinCMYKName))
		w.addTag("wtpt", xyzTag(D50X, D50Y, D50Z))
		return w.bytes(), nil
	case Gray:
		w := newProfileWriter("mntr", "GRAY", "XYZ ")
		w.addTag("desc", textDescription(BuiltinGrayName))
		w.addTag("wtpt", xyzTag(D50X, D50Y, D50Z))
		w.addTag("kTRC", srgbCurve())
		return w.bytes(), nil
	case Lab:
		w := newProfileWriter("abst", "Lab ", "Lab ")
		w.addTag("desc", textDescription(BuiltinLabName))
		w.addTag("wtpt", xyzTag(D50X, D50Y, D50Z))
		return w.bytes(), nil
	}
	return nil, fmt.Errorf("no built-in profile for %v", space)
}

type profileWriter struct {
	class, space, pcs string
	sigs              []string
	tags              [][]byte
}

func newProfileWriter(class, space, pcs string) *profileWriter {
	return &profileWriter{class: class, space: space, pcs: pcs}
}

func (w *profileWriter) addTag(sig string, data []byte) {
	w.sigs = append(w.sigs, sig)
	w.tags = append(w.tags, data)
}

func (w *profileWriter) bytes() []byte {
	tableEnd := 132 + 12*len(w.tags)
	offsets := make([]int, len(w.tags))
	size := tableEnd
	for i, t := range w.tags {
		size = align4(size)
		offsets[i] = size
		size += len(t)
	}
	size = align4(size)

	buf := make([]byte, size)
	be := binary.BigEndian
	be.PutUint32(buf[0:], uint32(size))
	be.PutUint32(buf[8:], 0x02100000)
	copy(buf[12:16], w.class)
	copy(buf[16:20], w.space)
	copy(buf[20:24], w.pcs)
	// Creation date 2024-01-01 00:00:00.
	be.PutUint16(buf[24:], 2024)
	be.PutUint16(buf[26:], 1)
	be.PutUint16(buf[28:], 1)
	copy(buf[36:40], "acsp")
	be.PutUint32(buf[68:], floatToS15Fixed16(D50X))
	be.PutUint32(buf[72:], floatToS15Fixed16(D50Y))
	be.PutUint32(buf[76:], floatToS15Fixed16(D50Z))
	copy(buf[80:84], "qc3 ")

	be.PutUint32(buf[128:], uint32(len(w.tags)))
	for i, t := range w.tags {
		entry := buf[132+12*i:]
		copy(entry[0:4], w.sigs[i])
		be.PutUint32(entry[4:], uint32(offsets[i]))
		be.PutUint32(entry[8:], uint32(len(t)))
		copy(buf[offsets[i]:], t)
	}
	return buf
}

func align4(n int) int { return (n + 3) &^ 3 }

func floatToS15Fixed16(v float64) uint32 {
	return uint32(int32(math.Round(v * 65536)))
}

// textDescription encodes an ICC v2 textDescriptionType with an empty
// Unicode and ScriptCode part.
func textDescription(s string) []byte {
	buf := make([]byte, 12+len(s)+1+4+4+2+1+67)
	copy(buf[0:4], "desc")
	binary.BigEndian.PutUint32(buf[8:], uint32(len(s)+1))
	copy(buf[12:], s)
	return buf
}

func xyzTag(x, y, z float64) []byte {
	buf := make([]byte, 20)
	copy(buf[0:4], "XYZ ")
	binary.BigEndian.PutUint32(buf[8:], floatToS15Fixed16(x))
	binary.BigEndian.PutUint32(buf[12:], floatToS15Fixed16(y))
	binary.BigEndian.PutUint32(buf[16:], floatToS15Fixed16(z))
	return buf
}

// srgbCurve is the sRGB transfer function as a type 3 parametric curve.
func srgbCurve() []byte {
	params := []float64{2.4, 1 / 1.055, 0.055 / 1.055, 1 / 12.92, 0.04045}
	buf := make([]byte, 12+4*len(params))
	copy(buf[0:4], "para")
	binary.BigEndian.PutUint16(buf[8:], 3)
	for i, p := range params {
		binary.BigEndian.PutUint32(buf[12+4*i:], floatToS15Fixed16(p))
	}
	return buf
}
