package cmm

import (
	"fmt"
	"strings"
)

// ColorSpace is the closed set of color spaces the converter works with.
// Spot and Display are pseudo-spaces: spot colors carry their own RGB/CMYK
// values and Display is the RGB space of the output device.
type ColorSpace int

const (
	RGB ColorSpace = iota
	CMYK
	Lab
	Gray
	Spot
	Display

	numSpaces
)

var spaceInfo = [numSpaces]struct {
	name     string
	channels int
	sig      string
}{
	RGB:     {"RGB", 3, "RGB "},
	CMYK:    {"CMYK", 4, "CMYK"},
	Lab:     {"LAB", 3, "Lab "},
	Gray:    {"Gray", 1, "GRAY"},
	Spot:    {"SPOT", 0, ""},
	Display: {"Display", 3, "RGB "},
}

func (s ColorSpace) String() string {
	if !s.Valid() {
		return fmt.Sprintf("ColorSpace(%d)", int(s))
	}
	return spaceInfo[s].name
}

// Valid reports whether s is a known color space.
func (s ColorSpace) Valid() bool { return s >= 0 && s < numSpaces }

// Channels returns the number of components of a color in s. Spot colors
// have no components of their own.
func (s ColorSpace) Channels() int {
	if !s.Valid() {
		return 0
	}
	return spaceInfo[s].channels
}

// Signature returns the ICC data color space signature for s.
func (s ColorSpace) Signature() string {
	if !s.Valid() {
		return ""
	}
	return spaceInfo[s].sig
}

// Physical maps Display to the RGB layout it is stored in.
func (s ColorSpace) Physical() ColorSpace {
	if s == Display {
		return RGB
	}
	return s
}

// ParseColorSpace accepts the names returned by String, case-insensitively.
func ParseColorSpace(name string) (ColorSpace, error) {
	n := strings.ToUpper(strings.TrimSpace(name))
	switch n {
	case "GREY", "GRAYSCALE":
		return Gray, nil
	}
	for s := ColorSpace(0); s < numSpaces; s++ {
		if strings.ToUpper(spaceInfo[s].name) == n {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown color space %q", name)
}

func spaceFromSignature(sig string) (ColorSpace, bool) {
	switch sig {
	case "RGB ":
		return RGB, true
	case "CMYK":
		return CMYK, true
	case "Lab ":
		return Lab, true
	case "GRAY":
		return Gray, true
	}
	return 0, false
}
