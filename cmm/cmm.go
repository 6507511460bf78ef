// Package cmm is the color management module: it loads and creates ICC
// profiles and builds transforms between them. Callers treat profiles and
// transforms as opaque handles; policy about which transform to use lives in
// package cms.
package cmm

import (
	"errors"
	"image"

	"github.com/wudi/queconverter/bitmap"
)

// Version identifies the engine in diagnostics.
const Version = "qc3-cmm 1.2"

// ErrReleased is returned when a released profile or transform is used.
var ErrReleased = errors.New("cmm: handle released")

// Profile represents a color profile (e.g., ICC).
type Profile interface {
	// Name returns the profile description or name.
	Name() string
	// ColorSpace returns the data color space of the profile.
	ColorSpace() ColorSpace
	// Class returns the profile class signature (e.g., "mntr", "prtr").
	Class() string
	// Data returns the raw profile bytes.
	Data() []byte
	// Release frees the handle. Transforms built from it stay valid.
	Release()
}

// Transform represents a color transformation between two profiles.
type Transform interface {
	// Convert transforms one color; values are normalized to [0,1].
	Convert(src []float64) ([]float64, error)
	// ConvertImage transforms every pixel of img, read as mode in, into a
	// new image of mode out.
	ConvertImage(img image.Image, in, out bitmap.Mode) (image.Image, error)
	// Release frees the handle; later calls fail with ErrReleased.
	Release()
}

// Factory creates profiles and transforms.
type Factory interface {
	// DefaultProfile returns the built-in profile for space.
	DefaultProfile(space ColorSpace) (Profile, error)
	NewProfile(data []byte) (Profile, error)
	SaveProfile(p Profile, path string) error
	NewTransform(src Profile, srcSpace ColorSpace, dst Profile, dstSpace ColorSpace,
		intent RenderingIntent, flags Flags) (Transform, error)
	// NewProofingTransform simulates rendering on proof before displaying
	// on dst. proofIntent applies to src→proof, dstIntent to proof→dst.
	NewProofingTransform(src Profile, srcSpace ColorSpace, dst Profile, dstSpace ColorSpace,
		proof Profile, proofIntent, dstIntent RenderingIntent, flags Flags, alarm AlarmCodes) (Transform, error)
	Version() string
}

// RenderingIntent specifies the rendering intent for color conversion.
type RenderingIntent int

const (
	IntentPerceptual RenderingIntent = iota
	IntentRelativeColorimetric
	IntentSaturation
	IntentAbsoluteColorimetric
)

var intentNames = [...]string{
	IntentPerceptual:           "perceptual",
	IntentRelativeColorimetric: "relative",
	IntentSaturation:           "saturation",
	IntentAbsoluteColorimetric: "absolute",
}

func (i RenderingIntent) String() string {
	if i < 0 || int(i) >= len(intentNames) {
		return "unknown"
	}
	return intentNames[i]
}

// Valid reports whether i is one of the four ICC intents.
func (i RenderingIntent) Valid() bool { return i >= 0 && int(i) < len(intentNames) }

// Flags tune transform creation.
type Flags uint32

const (
	// FlagNoPrecalc disables building a precalculated table for the transform.
	FlagNoPrecalc Flags = 0x0100
	// FlagGamutCheck marks out-of-gamut colors with the alarm codes in
	// proofing transforms.
	FlagGamutCheck Flags = 0x1000
	// FlagSoftProofing enables proof simulation.
	FlagSoftProofing Flags = 0x4000
	// FlagBlackPointCompensation maps the source black point to the
	// destination black point.
	FlagBlackPointCompensation Flags = 0x2000
	// FlagPreserveBlack keeps pure K in CMYK to CMYK transforms.
	FlagPreserveBlack Flags = 0x8000
)

// Has reports whether all bits of f2 are set in f.
func (f Flags) Has(f2 Flags) bool { return f&f2 == f2 }

// AlarmCodes is the RGB color used for out-of-gamut pixels.
type AlarmCodes [3]float64
