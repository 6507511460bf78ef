package cms

import (
	"fmt"
	"os"
	"sort"

	"github.com/wudi/queconverter/cmm"
)

// Palette is a set of named spot colors.
type Palette struct {
	Colors []Color
	// lab holds the Lab values of colors that came without device values,
	// keyed by index into Colors. Names need not be unique.
	lab map[int][]float64
}

// ParseSpotPalette reads a CxF document. Each object becomes a spot color
// whose RGB and CMYK representations come from its ColorSRGB and ColorCMYK
// values. Objects with only Lab values get their RGB representation from
// Resolve.
func ParseSpotPalette(data []byte) (*Palette, error) {
	doc, err := cmm.ParseCxF(data)
	if err != nil {
		return nil, fmt.Errorf("cms: %w", err)
	}
	p := &Palette{lab: make(map[int][]float64)}
	for i, obj := range doc.Resources.ObjectCollection.Objects {
		name := obj.Name
		if name == "" {
			name = obj.ID
		}
		if name == "" {
			name = fmt.Sprintf("Spot %d", i+1)
		}
		cv := obj.ColorValues
		var rgb, cmyk []float64
		if cv.ColorSRGB != nil {
			rgb = cv.ColorSRGB.Normalized()
		}
		if cv.ColorCMYK != nil {
			cmyk = cv.ColorCMYK.Normalized()
		}
		if rgb == nil && cmyk == nil {
			if cv.ColorCIELab == nil {
				continue
			}
			p.lab[len(p.Colors)] = cv.ColorCIELab.Normalized()
		}
		p.Colors = append(p.Colors, SpotColor(name, rgb, cmyk))
	}
	return p, nil
}

// LoadSpotPalette reads a CxF file.
func LoadSpotPalette(path string) (*Palette, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cms: read palette: %w", err)
	}
	return ParseSpotPalette(data)
}

// Unresolved returns the names of colors that still lack a device
// representation, sorted.
func (p *Palette) Unresolved() []string {
	names := make([]string, 0, len(p.lab))
	for i := range p.lab {
		names = append(names, p.Colors[i].Name)
	}
	sort.Strings(names)
	return names
}

// Resolve gives every Lab-only color an RGB representation computed by m.
func (p *Palette) Resolve(m *Manager) error {
	for i := range p.Colors {
		c := &p.Colors[i]
		lab, ok := p.lab[i]
		if !ok {
			continue
		}
		rgb, err := m.ToRGB(Color{Space: cmm.Lab, Values: lab, Alpha: 1, Name: c.Name})
		if err != nil {
			return fmt.Errorf("cms: resolve spot %q: %w", c.Name, err)
		}
		c.Spot.RGB = rgb.Values
		delete(p.lab, i)
	}
	return nil
}

// Lookup returns the first color called name.
func (p *Palette) Lookup(name string) (Color, bool) {
	for _, c := range p.Colors {
		if c.Name == name {
			return c.Clone(), true
		}
	}
	return Color{}, false
}
