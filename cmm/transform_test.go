package cmm

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/wudi/queconverter/bitmap"
)

func mustDefault(t *testing.T, f Factory, space ColorSpace) Profile {
	t.Helper()
	p, err := f.DefaultProfile(space)
	if err != nil {
		t.Fatalf("DefaultProfile(%v) failed: %v", space, err)
	}
	return p
}

func assertClose(t *testing.T, got, want []float64, tol float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d values, got %v", len(want), got)
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > tol {
			t.Errorf("channel %d: expected %f, got %f (all: %v)", i, want[i], got[i], got)
		}
	}
}

func TestFactoryIdentity(t *testing.T) {
	f := NewFactory()
	p1 := mustDefault(t, f, RGB)
	p2 := mustDefault(t, f, Display)

	tr, err := f.NewTransform(p1, RGB, p2, Display, IntentPerceptual, 0)
	if err != nil {
		t.Fatalf("NewTransform failed: %v", err)
	}
	in := []float64{0.1, 0.2, 0.3}
	out, err := tr.Convert(in)
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("expected %f, got %f", in[i], out[i])
		}
	}
}

func TestBuiltinRGBToCMYK(t *testing.T) {
	f := NewFactory()
	tr, err := f.NewTransform(mustDefault(t, f, RGB), RGB, mustDefault(t, f, CMYK), CMYK, IntentPerceptual, 0)
	if err != nil {
		t.Fatalf("NewTransform failed: %v", err)
	}

	out, err := tr.Convert([]float64{0, 0, 0})
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	if math.Abs(out[3]-1) > 0.01 {
		t.Errorf("expected K=1.0 for black, got %f", out[3])
	}

	out, _ = tr.Convert([]float64{1, 1, 1})
	if out[3] > 0.01 {
		t.Errorf("expected K=0.0 for white, got %f", out[3])
	}

	out, _ = tr.Convert([]float64{1, 0, 0})
	assertClose(t, out, []float64{0, 1, 1, 0}, 0.02)
}

func TestGrayBuiltinMatchesRGB(t *testing.T) {
	f := NewFactory()
	tr, err := f.NewTransform(mustDefault(t, f, Gray), Gray, mustDefault(t, f, RGB), RGB, IntentRelativeColorimetric, 0)
	if err != nil {
		t.Fatalf("NewTransform failed: %v", err)
	}
	out, err := tr.Convert([]float64{0.5})
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	assertClose(t, out, []float64{0.5, 0.5, 0.5}, 0.02)
}

func TestLabWhiteToRGB(t *testing.T) {
	f := NewFactory()
	tr, err := f.NewTransform(mustDefault(t, f, Lab), Lab, mustDefault(t, f, RGB), RGB, IntentPerceptual, FlagNoPrecalc)
	if err != nil {
		t.Fatalf("NewTransform failed: %v", err)
	}
	out, err := tr.Convert([]float64{1, 128.0 / 255, 128.0 / 255})
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	assertClose(t, out, []float64{1, 1, 1}, 0.02)
}

func TestMatrixTRCGamma(t *testing.T) {
	f := NewFactory()
	src, err := f.NewProfile(makeRGBProfile(1.0))
	if err != nil {
		t.Fatalf("NewProfile src failed: %v", err)
	}
	dst, err := f.NewProfile(makeRGBProfile(2.0))
	if err != nil {
		t.Fatalf("NewProfile dst failed: %v", err)
	}
	tr, err := f.NewTransform(src, RGB, dst, RGB, IntentPerceptual, 0)
	if err != nil {
		t.Fatalf("NewTransform failed: %v", err)
	}

	// Linear 0.25 encodes as 0.25^(1/2) on the gamma 2.0 side.
	out, err := tr.Convert([]float64{0.25, 0.25, 0.25})
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	assertClose(t, out, []float64{0.5, 0.5, 0.5}, 0.01)
}

func TestProofingGamutAlarm(t *testing.T) {
	f := NewFactory()
	alarm := AlarmCodes{0, 1, 0}
	newProof := func(flags Flags) Transform {
		tr, err := f.NewProofingTransform(
			mustDefault(t, f, Lab), Lab,
			mustDefault(t, f, RGB), RGB,
			mustDefault(t, f, CMYK),
			IntentPerceptual, IntentRelativeColorimetric, flags, alarm)
		if err != nil {
			t.Fatalf("NewProofingTransform failed: %v", err)
		}
		return tr
	}

	saturated := []float64{0.5, 1, 128.0 / 255}
	neutral := []float64{0.5, 128.0 / 255, 128.0 / 255}

	checked := newProof(FlagSoftProofing | FlagGamutCheck)
	out, err := checked.Convert(saturated)
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	assertClose(t, out, alarm[:], 0)

	out, _ = checked.Convert(neutral)
	if out[0] == 0 && out[1] == 1 && out[2] == 0 {
		t.Errorf("neutral gray flagged as out of gamut")
	}
	assertClose(t, out, []float64{out[0], out[0], out[0]}, 0.02)

	out, _ = newProof(FlagSoftProofing).Convert(saturated)
	if out[0] == 0 && out[1] == 1 && out[2] == 0 {
		t.Errorf("alarm color used without gamut check")
	}
}

func TestPreserveBlack(t *testing.T) {
	f := NewFactory()
	w := newProfileWriter("prtr", "CMYK", "XYZ ")
	w.addTag("desc", textDescription("Press"))
	press, err := f.NewProfile(w.bytes())
	if err != nil {
		t.Fatal(err)
	}
	tr, err := f.NewTransform(mustDefault(t, f, CMYK), CMYK, press, CMYK, IntentPerceptual, FlagPreserveBlack)
	if err != nil {
		t.Fatalf("NewTransform failed: %v", err)
	}
	out, err := tr.Convert([]float64{0, 0, 0, 0.7})
	if err != nil {
		t.Fatal(err)
	}
	assertClose(t, out, []float64{0, 0, 0, 0.7}, 0)
}

func TestTransformErrors(t *testing.T) {
	f := NewFactory()
	rgb := mustDefault(t, f, RGB)
	cmyk := mustDefault(t, f, CMYK)

	if _, err := f.NewTransform(rgb, CMYK, cmyk, CMYK, IntentPerceptual, 0); err == nil {
		t.Error("expected error for profile/space mismatch")
	}
	if _, err := f.NewTransform(rgb, RGB, cmyk, Spot, IntentPerceptual, 0); err == nil {
		t.Error("expected error for spot destination")
	}
	if _, err := f.NewTransform(rgb, RGB, cmyk, CMYK, RenderingIntent(9), 0); err == nil {
		t.Error("expected error for invalid intent")
	}

	tr, err := f.NewTransform(rgb, RGB, cmyk, CMYK, IntentPerceptual, 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tr.Convert([]float64{1, 0}); err == nil {
		t.Error("expected channel mismatch error")
	}
	tr.Release()
	if _, err := tr.Convert([]float64{1, 0, 0}); !errors.Is(err, ErrReleased) {
		t.Errorf("expected ErrReleased, got %v", err)
	}

	cmyk.Release()
	if _, err := f.NewTransform(rgb, RGB, cmyk, CMYK, IntentPerceptual, 0); !errors.Is(err, ErrReleased) {
		t.Errorf("expected ErrReleased for released profile, got %v", err)
	}
}

func TestConvertImage(t *testing.T) {
	f := NewFactory()
	tr, err := f.NewTransform(mustDefault(t, f, RGB), RGB, mustDefault(t, f, CMYK), CMYK, IntentPerceptual, 0)
	if err != nil {
		t.Fatal(err)
	}
	src := image.NewRGBA(image.Rect(0, 0, 2, 1))
	src.SetRGBA(0, 0, color.RGBA{R: 255, A: 255})
	src.SetRGBA(1, 0, color.RGBA{R: 255, G: 255, B: 255, A: 255})

	img, err := tr.ConvertImage(src, bitmap.ModeRGB, bitmap.ModeCMYK)
	if err != nil {
		t.Fatalf("ConvertImage failed: %v", err)
	}
	out, ok := img.(*image.CMYK)
	if !ok {
		t.Fatalf("expected *image.CMYK, got %T", img)
	}
	red := out.CMYKAt(0, 0)
	if red.C > 5 || red.M < 250 || red.Y < 250 || red.K > 5 {
		t.Errorf("unexpected red pixel %+v", red)
	}
	if white := out.CMYKAt(1, 0); white.K > 5 {
		t.Errorf("unexpected white pixel %+v", white)
	}

	if _, err := tr.ConvertImage(src, bitmap.ModeRGB, bitmap.ModeGray); err == nil {
		t.Error("expected error for mismatched output mode")
	}
}

func makeRGBProfile(gamma float64) []byte {
	w := newProfileWriter("mntr", "RGB ", "XYZ ")
	w.addTag("rXYZ", xyzTag(1, 0, 0))
	w.addTag("gXYZ", xyzTag(0, 1, 0))
	w.addTag("bXYZ", xyzTag(0, 0, 1))
	for _, sig := range []string{"rTRC", "gTRC", "bTRC"} {
		w.addTag(sig, makeGamma(gamma))
	}
	return w.bytes()
}

func makeGamma(g float64) []byte {
	b := make([]byte, 14)
	copy(b[0:4], "curv")
	binary.BigEndian.PutUint32(b[8:12], 1)
	binary.BigEndian.PutUint16(b[12:14], uint16(g*256.0))
	return b
}

func TestProfileWriterLayout(t *testing.T) {
	data := makeRGBProfile(2.2)
	if got := binary.BigEndian.Uint32(data[0:4]); int(got) != len(data) {
		t.Errorf("size field %d, len %d", got, len(data))
	}
	if len(data)%4 != 0 {
		t.Errorf("profile size %d not 4-byte aligned", len(data))
	}
	if !bytes.Equal(data[36:40], []byte("acsp")) {
		t.Error("missing acsp signature")
	}
}
