package cms

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/queconverter/cmm"
)

const testPalette = `<?xml version="1.0" encoding="UTF-8"?>
<CxF xmlns="http://colorexchangeformat.com/CxF3-core">
  <Resources>
    <ObjectCollection>
      <Object Name="Warm Red" Id="1" ObjectType="Standard">
        <ColorValues>
          <ColorSRGB><R>255</R><G>51</G><B>0</B></ColorSRGB>
          <ColorCMYK><Cyan>0</Cyan><Magenta>80</Magenta><Yellow>100</Yellow><Black>0</Black></ColorCMYK>
        </ColorValues>
      </Object>
      <Object Name="Process Blue" Id="2">
        <ColorValues>
          <ColorCMYK><Cyan>100</Cyan><Magenta>10</Magenta><Yellow>0</Yellow><Black>10</Black></ColorCMYK>
        </ColorValues>
      </Object>
      <Object Id="3">
        <ColorValues>
          <ColorCIELab><L>50</L><A>0</A><B>0</B></ColorCIELab>
        </ColorValues>
      </Object>
      <Object Name="Empty" Id="4">
        <ColorValues/>
      </Object>
    </ObjectCollection>
  </Resources>
</CxF>`

func TestParseSpotPalette(t *testing.T) {
	p, err := ParseSpotPalette([]byte(testPalette))
	require.NoError(t, err)
	require.Len(t, p.Colors, 3)

	red, ok := p.Lookup("Warm Red")
	require.True(t, ok)
	assert.Equal(t, cmm.Spot, red.Space)
	assertValues(t, []float64{1, 0.2, 0}, red.Spot.RGB)
	assertValues(t, []float64{0, 0.8, 1, 0}, red.Spot.CMYK)

	blue, ok := p.Lookup("Process Blue")
	require.True(t, ok)
	assert.Nil(t, blue.Spot.RGB)

	_, ok = p.Lookup("Empty")
	assert.False(t, ok, "objects without values are skipped")
	assert.Equal(t, []string{"3"}, p.Unresolved(), "unnamed objects use their id")

	_, err = ParseSpotPalette([]byte("<CxF><Resources>"))
	assert.Error(t, err)
}

func TestPaletteResolve(t *testing.T) {
	m, f := newTestManager(t)
	path := filepath.Join(t.TempDir(), "palette.cxf")
	require.NoError(t, os.WriteFile(path, []byte(testPalette), 0o644))
	p, err := LoadSpotPalette(path)
	require.NoError(t, err)

	gray, _ := p.Lookup("3")
	_, err = m.ToRGB(gray)
	assert.ErrorIs(t, err, ErrNoSpotRepresentation)

	require.NoError(t, p.Resolve(m))
	assert.Empty(t, p.Unresolved())
	assert.Equal(t, 1, f.count(cmm.Lab, cmm.RGB))

	gray, _ = p.Lookup("3")
	rgb, err := m.ToRGB(gray)
	require.NoError(t, err)
	assert.InDelta(t, rgb.Values[0], rgb.Values[1], 0.02, "neutral Lab gives a neutral RGB")
	assert.InDelta(t, rgb.Values[1], rgb.Values[2], 0.02)

	// Blue has only CMYK and converts through the cache for RGB.
	blue, _ := p.Lookup("Process Blue")
	_, err = m.ToRGB(blue)
	require.NoError(t, err)
	assert.Equal(t, 1, f.count(cmm.CMYK, cmm.RGB))
}

func TestPaletteResolveDuplicateNames(t *testing.T) {
	const doc = `<CxF>
  <Resources>
    <ObjectCollection>
      <Object Name="Tone" Id="1">
        <ColorValues><ColorCIELab><L>90</L><A>0</A><B>0</B></ColorCIELab></ColorValues>
      </Object>
      <Object Name="Tone" Id="2">
        <ColorValues><ColorCIELab><L>10</L><A>0</A><B>0</B></ColorCIELab></ColorValues>
      </Object>
    </ObjectCollection>
  </Resources>
</CxF>`
	p, err := ParseSpotPalette([]byte(doc))
	require.NoError(t, err)
	require.Len(t, p.Colors, 2)
	assert.Equal(t, []string{"Tone", "Tone"}, p.Unresolved())

	m, _ := newTestManager(t)
	require.NoError(t, p.Resolve(m))
	assert.Empty(t, p.Unresolved())

	light, err := m.ToRGB(p.Colors[0])
	require.NoError(t, err)
	dark, err := m.ToRGB(p.Colors[1])
	require.NoError(t, err)
	assert.Greater(t, light.Values[1], 0.7)
	assert.Less(t, dark.Values[1], 0.3)
}
