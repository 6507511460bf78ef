package cmm

import (
	"encoding/xml"
	"fmt"
)

// CxF represents the root of a Color Exchange Format (ISO 17972) document.
type CxF struct {
	XMLName   xml.Name  `xml:"CxF"`
	Resources Resources `xml:"Resources"`
}

type Resources struct {
	ObjectCollection ObjectCollection `xml:"ObjectCollection"`
}

type ObjectCollection struct {
	Objects []Object `xml:"Object"`
}

type Object struct {
	Name        string      `xml:"Name,attr"`
	ID          string      `xml:"Id,attr"`
	ObjectType  string      `xml:"ObjectType,attr"`
	ColorValues ColorValues `xml:"ColorValues"`
}

// ColorValues holds the device and colorimetric values of one object.
// Spectral data is ignored.
type ColorValues struct {
	ColorCIELab *ColorCIELab `xml:"ColorCIELab"`
	ColorSRGB   *ColorSRGB   `xml:"ColorSRGB"`
	ColorCMYK   *ColorCMYK   `xml:"ColorCMYK"`
}

type ColorCIELab struct {
	L float64 `xml:"L"`
	A float64 `xml:"A"`
	B float64 `xml:"B"`
}

// ColorSRGB components range over [0,255].
type ColorSRGB struct {
	R float64 `xml:"R"`
	G float64 `xml:"G"`
	B float64 `xml:"B"`
}

// ColorCMYK components are percentages.
type ColorCMYK struct {
	Cyan    float64 `xml:"Cyan"`
	Magenta float64 `xml:"Magenta"`
	Yellow  float64 `xml:"Yellow"`
	Black   float64 `xml:"Black"`
}

// Normalized returns the values scaled to [0,1].
func (c ColorSRGB) Normalized() []float64 {
	return clampAll([]float64{c.R / 255, c.G / 255, c.B / 255})
}

// Normalized returns the values scaled to [0,1].
func (c ColorCMYK) Normalized() []float64 {
	return clampAll([]float64{c.Cyan / 100, c.Magenta / 100, c.Yellow / 100, c.Black / 100})
}

// Normalized returns L/100, (a+128)/255 and (b+128)/255.
func (c ColorCIELab) Normalized() []float64 {
	return clampAll([]float64{c.L / 100, (c.A + 128) / 255, (c.B + 128) / 255})
}

// ParseCxF parses CxF XML data.
func ParseCxF(data []byte) (*CxF, error) {
	var cxf CxF
	if err := xml.Unmarshal(data, &cxf); err != nil {
		return nil, fmt.Errorf("parse CxF: %w", err)
	}
	return &cxf, nil
}
