package cms

import (
	"fmt"

	"github.com/wudi/queconverter/bitmap"
	"github.com/wudi/queconverter/cmm"
)

// ProfileSpaces are the spaces that carry a profile, in the order profiles
// are listed and saved.
var ProfileSpaces = []cmm.ColorSpace{cmm.RGB, cmm.CMYK, cmm.Lab, cmm.Gray, cmm.Display}

// ConcreteSpaces are the spaces ToSpace can convert into.
var ConcreteSpaces = []cmm.ColorSpace{cmm.RGB, cmm.CMYK, cmm.Lab, cmm.Gray}

// HasBuiltin reports whether space has a guaranteed built-in profile.
// Display has none: its absence is a valid state.
func HasBuiltin(space cmm.ColorSpace) bool {
	switch space {
	case cmm.RGB, cmm.CMYK, cmm.Lab, cmm.Gray:
		return true
	}
	return false
}

var modeSpaces = [...]cmm.ColorSpace{
	bitmap.ModeMono: cmm.Gray,
	bitmap.ModeGray: cmm.Gray,
	bitmap.ModeRGB:  cmm.RGB,
	bitmap.ModeRGBA: cmm.RGB,
	bitmap.ModeCMYK: cmm.CMYK,
	bitmap.ModeLab:  cmm.Lab,
}

// ModeSpace returns the color space of pixels stored in mode.
func ModeSpace(mode bitmap.Mode) (cmm.ColorSpace, error) {
	if mode < 0 || int(mode) >= len(modeSpaces) {
		return 0, fmt.Errorf("unknown image mode %v", mode)
	}
	return modeSpaces[mode], nil
}

// SpaceMode returns the image mode used to store pixels of space.
func SpaceMode(space cmm.ColorSpace) (bitmap.Mode, error) {
	switch space.Physical() {
	case cmm.RGB:
		return bitmap.ModeRGB, nil
	case cmm.CMYK:
		return bitmap.ModeCMYK, nil
	case cmm.Lab:
		return bitmap.ModeLab, nil
	case cmm.Gray:
		return bitmap.ModeGray, nil
	}
	return 0, fmt.Errorf("%w: no image mode for %v", ErrUnsupportedTarget, space)
}

// BuiltinFileName is the file name SaveBuiltins uses for space.
func BuiltinFileName(space cmm.ColorSpace) string {
	return fmt.Sprintf("built-in_%s.icm", space)
}
