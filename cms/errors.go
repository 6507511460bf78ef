package cms

import (
	"errors"
	"fmt"

	"github.com/wudi/queconverter/cmm"
)

// Sentinel errors for color management operations.
var (
	// ErrProfileMissing is returned when a space has no configured profile
	// and no built-in default.
	ErrProfileMissing = errors.New("cms: profile missing")

	// ErrNoSpotRepresentation is returned when a spot color has neither an
	// RGB nor a CMYK representation.
	ErrNoSpotRepresentation = errors.New("cms: spot color has no representation")

	// ErrUnsupportedTarget is returned for conversions into Spot or Display.
	ErrUnsupportedTarget = errors.New("cms: unsupported target color space")

	// ErrInvalidHexColor is returned by HexToRGB for malformed input.
	ErrInvalidHexColor = errors.New("cms: invalid hex color")

	// ErrEngineTransformFailure matches every *EngineError.
	ErrEngineTransformFailure = errors.New("cms: engine transform failure")
)

// EngineError wraps a failure reported by the cmm engine while creating or
// applying a transform. Engine failures are never retried.
type EngineError struct {
	Op  string // "create", "proof", "apply" or "profile"
	In  cmm.ColorSpace
	Out cmm.ColorSpace
	Err error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("cms: %s transform %v->%v: %v", e.Op, e.In, e.Out, e.Err)
}

// Unwrap returns the engine's error.
func (e *EngineError) Unwrap() error { return e.Err }

// Is reports whether target is ErrEngineTransformFailure.
func (e *EngineError) Is(target error) bool { return target == ErrEngineTransformFailure }

func engineError(op string, in, out cmm.ColorSpace, err error) error {
	if err == nil {
		return nil
	}
	var ee *EngineError
	if errors.As(err, &ee) {
		return err
	}
	return &EngineError{Op: op, In: in, Out: out, Err: err}
}
