package cmm

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// LUT is a lut8Type or lut16Type tag. All tables are normalized to [0,1].
type LUT struct {
	InputChannels  uint8
	OutputChannels uint8
	GridPoints     uint8
	Bits           int // 8 for mft1, 16 for mft2
	Matrix         [9]float64
	InputTables    [][]float64
	CLUT           []float64
	OutputTables   [][]float64
}

// ReadLUTTag reads an AToB or BToA tag.
func (p *ICCProfile) ReadLUTTag(sig string) (*LUT, error) {
	data, ok := p.GetTag(sig)
	if !ok {
		return nil, fmt.Errorf("tag %q not found", sig)
	}
	if len(data) < 8 {
		return nil, errors.New("tag too short")
	}
	switch string(data[0:4]) {
	case "mft1":
		return parseMFT(data, 8)
	case "mft2":
		return parseMFT(data, 16)
	}
	return nil, fmt.Errorf("unsupported LUT type %q", data[0:4])
}

func parseMFT(data []byte, bits int) (*LUT, error) {
	if len(data) < 52 {
		return nil, fmt.Errorf("lut%d tag too short", bits)
	}
	lut := &LUT{
		InputChannels:  data[8],
		OutputChannels: data[9],
		GridPoints:     data[10],
		Bits:           bits,
	}
	if lut.InputChannels == 0 || lut.OutputChannels == 0 || lut.GridPoints < 2 {
		return nil, fmt.Errorf("lut%d tag has invalid dimensions", bits)
	}
	for i := 0; i < 9; i++ {
		lut.Matrix[i] = s15Fixed16ToFloat(binary.BigEndian.Uint32(data[12+i*4 : 16+i*4]))
	}

	inputEntries, outputEntries := 256, 256
	offset := 48
	if bits == 16 {
		inputEntries = int(binary.BigEndian.Uint16(data[48:50]))
		outputEntries = int(binary.BigEndian.Uint16(data[50:52]))
		offset = 52
		if inputEntries < 2 || outputEntries < 2 {
			return nil, errors.New("lut16 tables need at least two entries")
		}
	}
	r := &tableReader{data: data, offset: offset, bits: bits}

	lut.InputTables = make([][]float64, lut.InputChannels)
	for c := range lut.InputTables {
		if lut.InputTables[c] = r.read(inputEntries); lut.InputTables[c] == nil {
			return nil, fmt.Errorf("lut%d input tables truncated", bits)
		}
	}

	numGridPoints := int(math.Pow(float64(lut.GridPoints), float64(lut.InputChannels)))
	if lut.CLUT = r.read(numGridPoints * int(lut.OutputChannels)); lut.CLUT == nil {
		return nil, fmt.Errorf("lut%d CLUT truncated", bits)
	}

	lut.OutputTables = make([][]float64, lut.OutputChannels)
	for c := range lut.OutputTables {
		if lut.OutputTables[c] = r.read(outputEntries); lut.OutputTables[c] == nil {
			return nil, fmt.Errorf("lut%d output tables truncated", bits)
		}
	}
	return lut, nil
}

type tableReader struct {
	data   []byte
	offset int
	bits   int
}

// read returns the next n normalized entries, or nil if the data ends first.
func (r *tableReader) read(n int) []float64 {
	size := n * r.bits / 8
	if r.offset+size > len(r.data) {
		return nil
	}
	out := make([]float64, n)
	for i := range out {
		if r.bits == 8 {
			out[i] = float64(r.data[r.offset+i]) / 255
		} else {
			out[i] = float64(binary.BigEndian.Uint16(r.data[r.offset+2*i:])) / 65535
		}
	}
	r.offset += size
	return out
}

// Convert executes the LUT on one color. The matrix is only applied when
// the input is XYZ, which callers signal with xyzInput.
func (lut *LUT) Convert(in []float64, xyzInput bool) ([]float64, error) {
	if len(in) != int(lut.InputChannels) {
		return nil, errors.New("input channels mismatch")
	}
	temp := make([]float64, len(in))
	copy(temp, in)

	if xyzInput && lut.InputChannels == 3 {
		m := lut.Matrix
		x := temp[0]*m[0] + temp[1]*m[1] + temp[2]*m[2]
		y := temp[0]*m[3] + temp[1]*m[4] + temp[2]*m[5]
		z := temp[0]*m[6] + temp[1]*m[7] + temp[2]*m[8]
		temp[0], temp[1], temp[2] = x, y, z
	}

	for c := range temp {
		temp[c] = interp1D(temp[c], lut.InputTables[c])
	}

	clutOut := interpCLUT(temp, lut.CLUT, int(lut.InputChannels), int(lut.OutputChannels), int(lut.GridPoints))

	out := make([]float64, lut.OutputChannels)
	for c := range out {
		out[c] = interp1D(clutOut[c], lut.OutputTables[c])
	}
	return out, nil
}

func interp1D(val float64, table []float64) float64 {
	if val <= 0 || math.IsNaN(val) {
		return table[0]
	}
	if val >= 1 {
		return table[len(table)-1]
	}
	f := val * float64(len(table)-1)
	idx := int(f)
	frac := f - float64(idx)
	return table[idx]*(1-frac) + table[idx+1]*frac
}

func interpCLUT(in []float64, clut []float64, inCh, outCh, gridPoints int) []float64 {
	if inCh == 3 {
		return interpCLUT3D(in, clut, outCh, gridPoints)
	}
	return interpCLUTN(in, clut, inCh, outCh, gridPoints)
}

// interpCLUTN interpolates multilinearly over 2^inCh grid corners. The first
// input dimension varies least rapidly in the table.
func interpCLUTN(in []float64, clut []float64, inCh, outCh, gridPoints int) []float64 {
	base := make([]int, inCh)
	frac := make([]float64, inCh)
	strides := make([]int, inCh)
	stride := outCh
	for i := inCh - 1; i >= 0; i-- {
		strides[i] = stride
		stride *= gridPoints
	}
	for i := 0; i < inCh; i++ {
		v := clamp01(in[i]) * float64(gridPoints-1)
		b := int(v)
		if b >= gridPoints-1 {
			b = gridPoints - 2
		}
		base[i] = b
		frac[i] = v - float64(b)
	}

	out := make([]float64, outCh)
	for corner := 0; corner < 1<<inCh; corner++ {
		w := 1.0
		idx := 0
		for i := 0; i < inCh; i++ {
			if corner&(1<<i) != 0 {
				w *= frac[i]
				idx += (base[i] + 1) * strides[i]
			} else {
				w *= 1 - frac[i]
				idx += base[i] * strides[i]
			}
		}
		if w == 0 {
			continue
		}
		for c := 0; c < outCh; c++ {
			out[c] += w * clut[idx+c]
		}
	}
	return out
}

func interpCLUT3D(in []float64, clut []float64, outCh, gridPoints int) []float64 {
	g := float64(gridPoints - 1)
	x := clamp01(in[0]) * g
	y := clamp01(in[1]) * g
	z := clamp01(in[2]) * g

	x0 := min(int(x), gridPoints-2)
	y0 := min(int(y), gridPoints-2)
	z0 := min(int(z), gridPoints-2)
	x1, y1, z1 := x0+1, y0+1, z0+1

	dx := x - float64(x0)
	dy := y - float64(y0)
	dz := z - float64(z0)

	at := func(ix, iy, iz, ch int) float64 {
		idx := ix*gridPoints*gridPoints + iy*gridPoints + iz
		return clut[idx*outCh+ch]
	}

	out := make([]float64, outCh)
	for c := 0; c < outCh; c++ {
		c00 := at(x0, y0, z0, c)*(1-dz) + at(x0, y0, z1, c)*dz
		c01 := at(x0, y1, z0, c)*(1-dz) + at(x0, y1, z1, c)*dz
		c10 := at(x1, y0, z0, c)*(1-dz) + at(x1, y0, z1, c)*dz
		c11 := at(x1, y1, z0, c)*(1-dz) + at(x1, y1, z1, c)*dz

		c0 := c00*(1-dy) + c01*dy
		c1 := c10*(1-dy) + c11*dy
		out[c] = c0*(1-dx) + c1*dx
	}
	return out
}
