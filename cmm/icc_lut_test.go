package cmm

import (
	"encoding/binary"
	"testing"
)

func TestInterpCLUT3D(t *testing.T) {
	// Create a simple 2x2x2 grid (8 points)
	gridPoints := 2

	// Table data (8 points * 1 output channel)
	// Index = ix * G^2 + iy * G + iz
	// We want output = x*10 + y*20 + z*40
	// x,y,z are 0 or 1 (indices)

	table := make([]float64, 8)
	for x := 0; x < 2; x++ {
		for y := 0; y < 2; y++ {
			for z := 0; z < 2; z++ {
				val := float64(x*10 + y*20 + z*40)
				idx := x*4 + y*2 + z
				table[idx] = val
			}
		}
	}

	// Test cases
	tests := []struct {
		in  []float64
		out float64
	}{
		{[]float64{0, 0, 0}, 0},
		{[]float64{1, 0, 0}, 10},
		{[]float64{0, 1, 0}, 20},
		{[]float64{0, 0, 1}, 40},
		{[]float64{1, 1, 1}, 70},
		{[]float64{0.5, 0, 0}, 5},
		{[]float64{0, 0.5, 0}, 10},
		{[]float64{0, 0, 0.5}, 20},
		{[]float64{0.5, 0.5, 0}, 15},   // 0.5*10 + 0.5*20 = 15
		{[]float64{0.5, 0.5, 0.5}, 35}, // 5 + 10 + 20 = 35
	}

	for _, tc := range tests {
		res := interpCLUT3D(tc.in, table, 1, gridPoints) // 1 output channel
		if len(res) != 1 {
			t.Errorf("Expected 1 output, got %d", len(res))
			continue
		}
		// Allow small error for float math
		diff := res[0] - tc.out
		if diff < -0.001 || diff > 0.001 {
			t.Errorf("Input %v: expected %v, got %v", tc.in, tc.out, res[0])
		}
	}
}

func TestInterpCLUTNMatches3D(t *testing.T) {
	table := make([]float64, 8)
	for i := range table {
		table[i] = float64(i * i)
	}
	in := []float64{0.3, 0.6, 0.9}
	a := interpCLUT3D(in, table, 1, 2)
	b := interpCLUTN(in, table, 3, 1, 2)
	if diff := a[0] - b[0]; diff < -1e-9 || diff > 1e-9 {
		t.Errorf("3D %v, N-linear %v", a, b)
	}
}

func TestInterpCLUT4D(t *testing.T) {
	// Output = sum of the corner coordinates.
	table := make([]float64, 16)
	for i := range table {
		table[i] = float64(i>>3&1 + i>>2&1 + i>>1&1 + i&1)
	}
	res := interpCLUTN([]float64{0.5, 0.5, 0.5, 0.5}, table, 4, 1, 2)
	if diff := res[0] - 2; diff < -0.001 || diff > 0.001 {
		t.Errorf("expected 2, got %v", res[0])
	}
	res = interpCLUTN([]float64{1, 0, 1, 0}, table, 4, 1, 2)
	if diff := res[0] - 2; diff < -0.001 || diff > 0.001 {
		t.Errorf("expected 2, got %v", res[0])
	}
}

func TestReadLUTTagMFT2(t *testing.T) {
	put := func(b []byte, v uint16) []byte { return binary.BigEndian.AppendUint16(b, v) }

	tag := make([]byte, 48)
	copy(tag[0:4], "mft2")
	tag[8], tag[9], tag[10] = 3, 3, 2
	for _, i := range []int{0, 4, 8} {
		binary.BigEndian.PutUint32(tag[12+4*i:], 0x00010000)
	}
	tag = put(tag, 2)
	tag = put(tag, 2)
	for c := 0; c < 3; c++ {
		tag = put(put(tag, 0), 0xffff)
	}
	for ix := 0; ix < 2; ix++ {
		for iy := 0; iy < 2; iy++ {
			for iz := 0; iz < 2; iz++ {
				tag = put(put(put(tag, uint16(ix*0xffff)), uint16(iy*0xffff)), uint16(iz*0xffff))
			}
		}
	}
	for c := 0; c < 3; c++ {
		tag = put(put(tag, 0), 0xffff)
	}

	w := newProfileWriter("scnr", "RGB ", "XYZ ")
	w.addTag("A2B0", tag)
	p, err := NewICCProfile(w.bytes())
	if err != nil {
		t.Fatalf("NewICCProfile failed: %v", err)
	}
	lut, err := p.ReadLUTTag("A2B0")
	if err != nil {
		t.Fatalf("ReadLUTTag failed: %v", err)
	}
	if lut.Bits != 16 || lut.GridPoints != 2 {
		t.Errorf("unexpected LUT header %+v", lut)
	}
	out, err := lut.Convert([]float64{0.2, 0.5, 0.8}, false)
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	for i, want := range []float64{0.2, 0.5, 0.8} {
		if diff := out[i] - want; diff < -0.001 || diff > 0.001 {
			t.Errorf("channel %d: expected %v, got %v", i, want, out[i])
		}
	}
	if _, err := p.ReadLUTTag("B2A0"); err == nil {
		t.Error("expected error for missing tag")
	}
}
