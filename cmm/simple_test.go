package cmm

import "testing"

func TestSimpleConvert(t *testing.T) {
	tests := []struct {
		name     string
		in       []float64
		from, to ColorSpace
		want     []float64
	}{
		{"red to cmyk", []float64{1, 0, 0}, RGB, CMYK, []float64{0, 1, 1, 0}},
		{"black cmyk to rgb", []float64{0, 0, 0, 1}, CMYK, RGB, []float64{0, 0, 0}},
		{"gray to rgb", []float64{0.5}, Gray, RGB, []float64{0.5, 0.5, 0.5}},
		{"rgb to gray", []float64{1, 1, 1}, RGB, Gray, []float64{1}},
		{"gray to cmyk", []float64{0.25}, Gray, CMYK, []float64{0, 0, 0, 0.75}},
		{"white to lab", []float64{1, 1, 1}, RGB, Lab, []float64{1, 128.0 / 255, 128.0 / 255}},
		{"lab white to display", []float64{1, 128.0 / 255, 128.0 / 255}, Lab, Display, []float64{1, 1, 1}},
		{"same space clamps", []float64{1.5, -1, 0.5}, RGB, RGB, []float64{1, 0, 0.5}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := SimpleConvert(tc.in, tc.from, tc.to)
			if err != nil {
				t.Fatalf("SimpleConvert failed: %v", err)
			}
			assertClose(t, got, tc.want, 0.005)
		})
	}
}

func TestSimpleConvertErrors(t *testing.T) {
	if _, err := SimpleConvert([]float64{1}, Spot, RGB); err == nil {
		t.Error("expected error for spot source")
	}
	if _, err := SimpleConvert([]float64{1, 0}, RGB, CMYK); err == nil {
		t.Error("expected error for wrong channel count")
	}
}

func TestLabRoundTrip(t *testing.T) {
	in := []float64{0.4, 0.6, 0.3}
	back := labEncode(labDecode(in))
	assertClose(t, back, in, 1e-9)
}

func TestParseColorSpace(t *testing.T) {
	for name, want := range map[string]ColorSpace{
		"rgb": RGB, "CMYK": CMYK, "lab": Lab, "grey": Gray, "Gray": Gray, "display": Display, "spot": Spot,
	} {
		got, err := ParseColorSpace(name)
		if err != nil || got != want {
			t.Errorf("ParseColorSpace(%q) = %v, %v", name, got, err)
		}
	}
	if _, err := ParseColorSpace("HSV"); err == nil {
		t.Error("expected error for HSV")
	}
	if Display.Physical() != RGB || CMYK.Channels() != 4 || Spot.Channels() != 0 {
		t.Error("unexpected space table")
	}
}
