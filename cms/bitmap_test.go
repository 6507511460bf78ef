package cms

import (
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/queconverter/bitmap"
	"github.com/wudi/queconverter/cmm"
)

func within(t *testing.T, want, got uint8, tol int, msg string) {
	t.Helper()
	d := int(want) - int(got)
	if d < -tol || d > tol {
		t.Errorf("%s: got %d, want %d±%d", msg, got, want, tol)
	}
}

func TestTransformBitmapToCMYK(t *testing.T) {
	m, f := newTestManager(t)
	img := opaqueRGB(3, 2, color.RGBA{R: 255, A: 255})

	res, err := m.TransformBitmap(context.Background(), img, bitmap.ModeCMYK)
	require.NoError(t, err)
	cmykImg, ok := res.(*image.CMYK)
	require.True(t, ok, "got %T", res)
	assert.Equal(t, img.Bounds(), cmykImg.Bounds())

	want, err := m.CMYK255(RGBColor(1, 0, 0))
	require.NoError(t, err)
	px := cmykImg.CMYKAt(2, 1)
	within(t, want[0], px.C, 1, "C")
	within(t, want[1], px.M, 1, "M")
	within(t, want[2], px.Y, 1, "Y")
	within(t, want[3], px.K, 1, "K")
	assert.Equal(t, 1, f.count(cmm.RGB, cmm.CMYK), "bitmap and color share the cached transform")
}

func TestTransformBitmapSameModeCopies(t *testing.T) {
	m, f := newTestManager(t)
	img := opaqueRGB(2, 2, color.RGBA{R: 10, G: 20, B: 30, A: 255})

	res, err := m.TransformBitmap(context.Background(), img, bitmap.ModeRGB)
	require.NoError(t, err)
	out, ok := res.(*image.RGBA)
	require.True(t, ok)
	assert.Equal(t, img.Pix, out.Pix)
	out.Pix[0] = 99
	assert.Equal(t, uint8(10), img.Pix[0], "result must not alias the input")
	assert.Zero(t, f.total())
}

func TestTransformBitmapMono(t *testing.T) {
	m, _ := newTestManager(t)
	white := opaqueRGB(4, 4, color.RGBA{R: 255, G: 255, B: 255, A: 255})

	res, err := m.TransformBitmap(context.Background(), white, bitmap.ModeMono)
	require.NoError(t, err)
	mono, ok := res.(*image.Paletted)
	require.True(t, ok, "got %T", res)
	assert.Equal(t, bitmap.ModeMono, bitmap.ModeOf(mono))
	for _, idx := range mono.Pix {
		assert.Equal(t, uint8(1), idx)
	}

	// Mono input to gray needs no transform.
	gray, err := m.TransformBitmap(context.Background(), mono, bitmap.ModeGray)
	require.NoError(t, err)
	g, ok := gray.(*image.Gray)
	require.True(t, ok)
	assert.Equal(t, uint8(255), g.GrayAt(0, 0).Y)
}

func TestTransformBitmapWithoutCMS(t *testing.T) {
	p := DefaultPolicy()
	p.UseCMS = false
	m, f := newTestManager(t, WithPolicy(p))
	img := opaqueRGB(2, 1, color.RGBA{R: 255, A: 255})

	res, err := m.TransformBitmap(context.Background(), img, bitmap.ModeCMYK)
	require.NoError(t, err)
	assert.Equal(t, color.CMYK{C: 0, M: 255, Y: 255, K: 0}, res.(*image.CMYK).CMYKAt(0, 0))
	assert.Zero(t, f.total())

	// Lab images always go through the engine.
	lab := bitmap.NewLab(image.Rect(0, 0, 1, 1))
	lab.SetLab(0, 0, bitmap.LabColor{L: 255, A: 128, B: 128})
	_, err = m.TransformBitmap(context.Background(), lab, bitmap.ModeRGB)
	require.NoError(t, err)
	assert.Equal(t, 1, f.count(cmm.Lab, cmm.RGB))
}

func TestTransformBitmapSpace(t *testing.T) {
	m, f := newTestManager(t)
	img := opaqueRGB(1, 1, color.RGBA{R: 40, G: 80, B: 120, A: 255})

	res, err := m.TransformBitmapSpace(context.Background(), img, bitmap.ModeRGB, cmm.Display)
	require.NoError(t, err)
	assert.Equal(t, 1, f.count(cmm.RGB, cmm.Display))
	px := res.(*image.RGBA).RGBAAt(0, 0)
	within(t, 40, px.R, 1, "R")
	within(t, 120, px.B, 1, "B")

	_, err = m.TransformBitmapSpace(context.Background(), img, bitmap.ModeCMYK, cmm.RGB)
	assert.Error(t, err)
	_, err = m.TransformBitmapSpace(context.Background(), img, bitmap.ModeRGB, cmm.Spot)
	assert.ErrorIs(t, err, ErrUnsupportedTarget)
}

func TestDisplayImage(t *testing.T) {
	m, f := newTestManager(t)
	ctx := context.Background()
	rgb := opaqueRGB(2, 2, color.RGBA{R: 200, G: 100, B: 50, A: 255})

	res, err := m.DisplayImage(ctx, rgb)
	require.NoError(t, err)
	assert.Equal(t, rgb.Pix, res.(*image.RGBA).Pix)
	assert.Zero(t, f.total())

	require.NoError(t, m.SetProofing(true))
	_, err = m.DisplayImage(ctx, rgb)
	require.NoError(t, err)
	assert.Equal(t, 1, f.proofCount())

	cmyk := image.NewCMYK(image.Rect(0, 0, 2, 2))
	res, err = m.DisplayImage(ctx, cmyk)
	require.NoError(t, err)
	assert.Equal(t, bitmap.ModeRGB, bitmap.ModeOf(res))
	assert.Equal(t, 1, f.proofCount())
	assert.Equal(t, 1, f.count(cmm.CMYK, cmm.RGB))

	proofed, err := m.ProofBitmap(ctx, image.NewGray(image.Rect(0, 0, 1, 1)))
	require.NoError(t, err)
	assert.Equal(t, bitmap.ModeRGB, bitmap.ModeOf(proofed))
	assert.Equal(t, 2, f.proofCount())
}

func TestAdjustEmbeddedProfile(t *testing.T) {
	m, f := newTestManager(t)
	ctx := context.Background()
	img := opaqueRGB(2, 2, color.RGBA{R: 12, G: 34, B: 56, A: 255})

	srgb, err := cmm.NewFactory().DefaultProfile(cmm.RGB)
	require.NoError(t, err)
	res, err := m.AdjustEmbeddedProfile(ctx, img, srgb.Data())
	require.NoError(t, err)
	assert.Equal(t, img.Pix, res.(*image.RGBA).Pix)
	assert.Equal(t, 1, f.count(cmm.RGB, cmm.RGB))
	assert.Zero(t, m.Stats().Entries, "embedded profile transforms are not cached")

	cmykProfile, err := cmm.NewFactory().DefaultProfile(cmm.CMYK)
	require.NoError(t, err)
	_, err = m.AdjustEmbeddedProfile(ctx, img, cmykProfile.Data())
	assert.Error(t, err)

	_, err = m.AdjustEmbeddedProfile(ctx, img, []byte("garbage"))
	assert.ErrorIs(t, err, ErrEngineTransformFailure)
}
