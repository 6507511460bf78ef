package cms

import (
	"fmt"

	"github.com/wudi/queconverter/cmm"
)

// Policy is the runtime configuration of a Manager.
type Policy struct {
	UseCMS            bool
	UseDisplayProfile bool
	Proofing          bool
	GamutCheck        bool
	ProofForSpot      bool
	RGBIntent         cmm.RenderingIntent
	CMYKIntent        cmm.RenderingIntent
	Flags             cmm.Flags
	AlarmCodes        cmm.AlarmCodes
}

// DefaultPolicy returns the settings a fresh installation starts with.
func DefaultPolicy() Policy {
	return Policy{
		UseCMS:     true,
		RGBIntent:  cmm.IntentRelativeColorimetric,
		CMYKIntent: cmm.IntentPerceptual,
		Flags:      cmm.FlagNoPrecalc,
		AlarmCodes: cmm.AlarmCodes{0, 1, 1},
	}
}

// Validate checks the intents and alarm codes.
func (p Policy) Validate() error {
	if !p.RGBIntent.Valid() {
		return fmt.Errorf("invalid RGB intent %d", int(p.RGBIntent))
	}
	if !p.CMYKIntent.Valid() {
		return fmt.Errorf("invalid CMYK intent %d", int(p.CMYKIntent))
	}
	for _, v := range p.AlarmCodes {
		if v < 0 || v > 1 {
			return fmt.Errorf("alarm code %v out of range", v)
		}
	}
	return nil
}

// intentFor returns the intent used for transforms into out.
func (p Policy) intentFor(out cmm.ColorSpace) cmm.RenderingIntent {
	if out == cmm.CMYK {
		return p.CMYKIntent
	}
	return p.RGBIntent
}

// proofFlags are the flags of the soft-proofing transform.
func (p Policy) proofFlags() cmm.Flags {
	f := p.Flags | cmm.FlagSoftProofing
	if p.GamutCheck {
		f |= cmm.FlagGamutCheck
	}
	return f
}

// invalidation describes which cached transforms a policy change affects.
type invalidation struct {
	all      bool
	toCMYK   bool // transforms whose output is CMYK
	toOther  bool // transforms whose output is not CMYK
	proofing bool
}

func (inv invalidation) empty() bool {
	return !inv.all && !inv.toCMYK && !inv.toOther && !inv.proofing
}

// diff returns the transforms invalidated by switching from p to next.
// UseCMS, Proofing and ProofForSpot select pipelines but are not part of
// any cached transform.
func (p Policy) diff(next Policy) invalidation {
	var inv invalidation
	if p.Flags != next.Flags {
		inv.all = true
	}
	if p.RGBIntent != next.RGBIntent {
		inv.toOther, inv.proofing = true, true
	}
	if p.CMYKIntent != next.CMYKIntent {
		inv.toCMYK, inv.proofing = true, true
	}
	if p.UseDisplayProfile != next.UseDisplayProfile || p.GamutCheck != next.GamutCheck || p.AlarmCodes != next.AlarmCodes {
		inv.proofing = true
	}
	return inv
}
