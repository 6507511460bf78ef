package cmm

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sync"
)

type factoryImpl struct {
	mu       sync.Mutex
	builtins map[ColorSpace][]byte
}

// NewFactory returns the default CMM factory.
func NewFactory() Factory {
	return &factoryImpl{builtins: make(map[ColorSpace][]byte)}
}

func (f *factoryImpl) Version() string { return Version }

func (f *factoryImpl) DefaultProfile(space ColorSpace) (Profile, error) {
	f.mu.Lock()
	data, ok := f.builtins[space]
	if !ok {
		var err error
		if data, err = builtinProfileData(space); err != nil {
			f.mu.Unlock()
			return nil, err
		}
		f.builtins[space] = data
	}
	f.mu.Unlock()
	return NewICCProfile(bytes.Clone(data))
}

func (f *factoryImpl) NewProfile(data []byte) (Profile, error) {
	return NewICCProfile(data)
}

func (f *factoryImpl) SaveProfile(p Profile, path string) error {
	if p == nil {
		return errors.New("nil profile")
	}
	if err := os.WriteFile(path, p.Data(), 0o644); err != nil {
		return fmt.Errorf("save profile %q: %w", p.Name(), err)
	}
	return nil
}

func (f *factoryImpl) NewTransform(src Profile, srcSpace ColorSpace, dst Profile, dstSpace ColorSpace,
	intent RenderingIntent, flags Flags) (Transform, error) {
	if !intent.Valid() {
		return nil, fmt.Errorf("invalid rendering intent %d", int(intent))
	}
	precalc := !flags.Has(FlagNoPrecalc)
	s := stageBuilder{profile: src, space: srcSpace, intent: intent, precalc: precalc}
	d := stageBuilder{profile: dst, space: dstSpace, intent: intent, precalc: precalc}
	if err := s.check(); err != nil {
		return nil, err
	}
	if err := d.check(); err != nil {
		return nil, err
	}

	t := &pipelineTransform{in: srcSpace, out: dstSpace}
	if srcSpace.Physical() == dstSpace.Physical() && bytes.Equal(src.Data(), dst.Data()) {
		t.convert = func(v []float64) ([]float64, bool) {
			return append([]float64(nil), v...), true
		}
		return t, nil
	}
	fn, err := link(s, d, flags)
	if err != nil {
		return nil, err
	}
	t.convert = func(v []float64) ([]float64, bool) { return fn(v), true }
	return t, nil
}

func (f *factoryImpl) NewProofingTransform(src Profile, srcSpace ColorSpace, dst Profile, dstSpace ColorSpace,
	proof Profile, proofIntent, dstIntent RenderingIntent, flags Flags, alarm AlarmCodes) (Transform, error) {
	if !proofIntent.Valid() || !dstIntent.Valid() {
		return nil, errors.New("invalid rendering intent")
	}
	if proof == nil {
		return nil, errors.New("proofing profile required")
	}
	precalc := !flags.Has(FlagNoPrecalc)
	proofSpace := proof.ColorSpace()
	s := stageBuilder{profile: src, space: srcSpace, intent: proofIntent, precalc: precalc}
	toProof := stageBuilder{profile: proof, space: proofSpace, intent: proofIntent, precalc: precalc}
	fromProof := stageBuilder{profile: proof, space: proofSpace, intent: dstIntent, precalc: precalc}
	d := stageBuilder{profile: dst, space: dstSpace, intent: dstIntent, precalc: precalc}
	for _, b := range []stageBuilder{s, toProof, d} {
		if err := b.check(); err != nil {
			return nil, err
		}
	}

	first, err := link(s, toProof, flags)
	if err != nil {
		return nil, fmt.Errorf("proof stage: %w", err)
	}
	second, err := link(fromProof, d, flags)
	if err != nil {
		return nil, fmt.Errorf("display stage: %w", err)
	}
	return &pipelineTransform{
		in:  srcSpace,
		out: dstSpace,
		convert: func(v []float64) ([]float64, bool) {
			p := first(v)
			ok := inRange(p)
			return second(clampAll(p)), ok
		},
		alarm: alarm,
		gamut: flags.Has(FlagGamutCheck),
	}, nil
}
