package cms

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/queconverter/cmm"
)

func TestDisplayWithoutCMSEqualsToRGB(t *testing.T) {
	m, f := newTestManager(t)
	require.NoError(t, m.SetProfile(cmm.Display, variantProfile(t, cmm.RGB, 0x02)))

	for _, proofing := range []bool{false, true} {
		for _, useDisplay := range []bool{false, true} {
			for _, forSpot := range []bool{false, true} {
				require.NoError(t, m.Update(func(p *Policy) {
					p.UseCMS = false
					p.Proofing = proofing
					p.UseDisplayProfile = useDisplay
					p.ProofForSpot = forSpot
					p.GamutCheck = proofing
				}))
				for _, c := range sampleColors() {
					got, err := m.DisplayColor(c)
					require.NoError(t, err)
					rgb, err := m.ToRGB(c)
					require.NoError(t, err)
					if diff := cmp.Diff(rgb.Values, got); diff != "" {
						t.Errorf("proofing=%v display=%v spot=%v %v: (-to_rgb +display):\n%s",
							proofing, useDisplay, forSpot, c.Space, diff)
					}
				}
			}
		}
	}
	assert.Zero(t, f.total())
	assert.Zero(t, f.proofCount())
}

func TestDisplayWithoutProofing(t *testing.T) {
	m, f := newTestManager(t)

	got, err := m.DisplayColor(RGBColor(0.1, 0.2, 0.3))
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, got)
	assert.Zero(t, f.total(), "RGB is already the display space")

	cmyk := CMYKColor(0.1, 0.5, 0.2, 0)
	got, err = m.DisplayColor(cmyk)
	require.NoError(t, err)
	rgb, err := m.ToRGB(cmyk)
	require.NoError(t, err)
	assert.Equal(t, rgb.Values, got)
	assert.Equal(t, 1, f.count(cmm.CMYK, cmm.RGB))

	got255, err := m.DisplayColor255(RGBColor(1, 0, 0.5))
	require.NoError(t, err)
	assert.Equal(t, []uint8{255, 0, 128}, got255)
}

func TestDisplaySpotWithoutProofing(t *testing.T) {
	m, f := newTestManager(t)
	spot := SpotColor("Spot", []float64{0.2, 0.4, 0.6}, []float64{0, 1, 1, 0})

	got, err := m.DisplayColor(spot)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.2, 0.4, 0.6}, got)
	assert.Zero(t, f.total())

	require.NoError(t, m.Update(func(p *Policy) { p.ProofForSpot = true }))
	got, err = m.DisplayColor(spot)
	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.Equal(t, 1, f.count(cmm.CMYK, cmm.RGB))
}

func TestDisplayWithProofing(t *testing.T) {
	m, f := newTestManager(t)
	require.NoError(t, m.SetProofing(true))

	got, err := m.DisplayColor(RGBColor(0.9, 0.2, 0.1))
	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.Equal(t, 1, f.proofCount())
	assert.True(t, m.cache.HasProof(cmm.RGB))

	_, err = m.DisplayColor(RGBColor(0.1, 0.2, 0.3))
	require.NoError(t, err)
	assert.Equal(t, 1, f.proofCount(), "proof transform is cached per input space")

	_, err = m.DisplayColor(LabColor(0.5, 0.5, 0.5))
	require.NoError(t, err)
	assert.Equal(t, 2, f.proofCount())

	// CMYK colors are already proofed.
	_, err = m.DisplayColor(CMYKColor(0, 0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, 2, f.proofCount())
	assert.Equal(t, 1, f.count(cmm.CMYK, cmm.RGB))

	// Spot colors resolve to a representation and skip the proof.
	spot := SpotColor("Spot", []float64{0.2, 0.4, 0.6}, []float64{0, 1, 1, 0})
	got, err = m.DisplayColor(spot)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.2, 0.4, 0.6}, got)
	require.NoError(t, m.Update(func(p *Policy) { p.ProofForSpot = true }))
	_, err = m.DisplayColor(spot)
	require.NoError(t, err)
	assert.Equal(t, 2, f.proofCount())
}

func TestProofInvalidation(t *testing.T) {
	m, f := newTestManager(t)
	require.NoError(t, m.SetProofing(true))
	_, err := m.DisplayColor(GrayColor(0.5))
	require.NoError(t, err)
	require.True(t, m.cache.HasProof(cmm.Gray))

	require.NoError(t, m.SetGamutCheck(true))
	assert.False(t, m.cache.HasProof(cmm.Gray))
	_, err = m.DisplayColor(GrayColor(0.5))
	require.NoError(t, err)
	assert.Equal(t, 2, f.proofCount())

	require.NoError(t, m.SetProfile(cmm.CMYK, variantProfile(t, cmm.CMYK, 0x01)))
	assert.False(t, m.cache.HasProof(cmm.Gray))
}

func TestDisplayProfileKeyIsDistinct(t *testing.T) {
	m, f := newTestManager(t)
	require.NoError(t, m.SetProfile(cmm.Display, variantProfile(t, cmm.RGB, 0x02)))
	require.True(t, m.HasDisplayProfile())

	// Without use_display_profile the display space is RGB.
	got, err := m.DisplayColor(RGBColor(0.3, 0.5, 0.7))
	require.NoError(t, err)
	assert.Equal(t, []float64{0.3, 0.5, 0.7}, got)
	assert.Zero(t, f.total())

	require.NoError(t, m.SetUseDisplayProfile(true))
	got, err = m.DisplayColor(RGBColor(0.3, 0.5, 0.7))
	require.NoError(t, err)
	assert.Equal(t, 1, f.count(cmm.RGB, cmm.Display))
	if diff := cmp.Diff([]float64{0.3, 0.5, 0.7}, got, cmpopts.EquateApprox(0, 0.01)); diff != "" {
		t.Errorf("display profile with sRGB behavior changed the color:\n%s", diff)
	}

	ctx := context.Background()
	p := m.Policy()
	toDisplay, err := m.cache.Get(ctx, TransformKey{cmm.RGB, cmm.Display, p.RGBIntent, p.Flags})
	require.NoError(t, err)
	toRGB, err := m.cache.Get(ctx, TransformKey{cmm.RGB, cmm.RGB, p.RGBIntent, p.Flags})
	require.NoError(t, err)
	assert.NotSame(t, toDisplay, toRGB)
	assert.Equal(t, 1, f.count(cmm.RGB, cmm.Display))
	assert.Equal(t, 1, f.count(cmm.RGB, cmm.RGB))
}

func TestDisplayFallsBackToRGBProfile(t *testing.T) {
	m, f := newTestManager(t)
	ctx := context.Background()
	p := m.Policy()
	key := TransformKey{cmm.Gray, cmm.Display, p.RGBIntent, p.Flags}

	_, err := m.cache.Get(ctx, key)
	require.NoError(t, err, "Display uses the RGB profile when none is configured")

	// The borrowed RGB profile changes, so the display transform goes too.
	require.NoError(t, m.SetProfile(cmm.RGB, variantProfile(t, cmm.RGB, 0x01)))
	assert.False(t, m.cache.Contains(key))

	require.NoError(t, m.SetProfile(cmm.Display, variantProfile(t, cmm.RGB, 0x02)))
	_, err = m.cache.Get(ctx, key)
	require.NoError(t, err)
	require.NoError(t, m.ResetProfile(cmm.RGB))
	assert.True(t, m.cache.Contains(key), "a configured display profile does not depend on RGB")

	require.NoError(t, m.ResetProfile(cmm.Display))
	assert.False(t, m.HasDisplayProfile())
	assert.False(t, m.cache.Contains(key))
	assert.Equal(t, 2, f.count(cmm.Gray, cmm.Display))
}
