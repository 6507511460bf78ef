package cms

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/wudi/queconverter/cmm"
	"github.com/wudi/queconverter/observability"
)

// Manager converts colors and bitmaps between color spaces. Conversions may
// run concurrently; policy and profile changes are serialized and invalidate
// the cached transforms they affect.
type Manager struct {
	mu       sync.RWMutex
	policy   Policy
	factory  cmm.Factory
	profiles *ProfileStore
	cache    *TransformCache
	logger   observability.Logger
	tracer   observability.Tracer
	session  string
}

// New returns a Manager with built-in profiles for every concrete space.
func New(opts ...Option) (*Manager, error) {
	m := &Manager{policy: DefaultPolicy()}
	for _, opt := range opts {
		opt(m)
	}
	if err := m.policy.Validate(); err != nil {
		return nil, fmt.Errorf("cms: %w", err)
	}
	if m.factory == nil {
		m.factory = cmm.NewFactory()
	}
	if m.logger == nil {
		m.logger = observability.NopLogger{}
	}
	if m.tracer == nil {
		m.tracer = observability.NopTracer()
	}
	if m.session == "" {
		m.session = uuid.NewString()
	}
	m.logger = m.logger.With(observability.String("session", m.session))

	store, err := NewProfileStore(m.factory, m.logger)
	if err != nil {
		return nil, err
	}
	m.profiles = store
	m.cache = NewTransformCache(store, m.factory, m.logger, m.tracer)
	store.OnChange(m.cache.InvalidateSpace)

	m.logger.Debug("color manager ready",
		observability.String("engine", m.factory.Version()),
		observability.Bool("use_cms", m.policy.UseCMS))
	return m, nil
}

// Session returns the id attached to the manager's log lines.
func (m *Manager) Session() string { return m.session }

// EngineVersion returns the engine's version string.
func (m *Manager) EngineVersion() string { return m.factory.Version() }

// Policy returns a copy of the current policy.
func (m *Manager) Policy() Policy {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.policy
}

// SetPolicy replaces the policy and evicts the transforms that depend on
// the fields that changed.
func (m *Manager) SetPolicy(p Policy) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("cms: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	inv := m.policy.diff(p)
	m.policy = p
	m.invalidate(inv)
	return nil
}

// Update applies fn to a copy of the policy and installs the result.
func (m *Manager) Update(fn func(*Policy)) error {
	p := m.Policy()
	fn(&p)
	return m.SetPolicy(p)
}

// SetUseCMS switches color management on or off.
func (m *Manager) SetUseCMS(v bool) error {
	return m.Update(func(p *Policy) { p.UseCMS = v })
}

// SetProofing switches soft proofing of displayed colors.
func (m *Manager) SetProofing(v bool) error {
	return m.Update(func(p *Policy) { p.Proofing = v })
}

// SetGamutCheck switches gamut alarms in proof transforms.
func (m *Manager) SetGamutCheck(v bool) error {
	return m.Update(func(p *Policy) { p.GamutCheck = v })
}

// SetUseDisplayProfile selects the display profile as the screen target.
func (m *Manager) SetUseDisplayProfile(v bool) error {
	return m.Update(func(p *Policy) { p.UseDisplayProfile = v })
}

// SetRGBIntent sets the intent of transforms into non-CMYK spaces.
func (m *Manager) SetRGBIntent(i cmm.RenderingIntent) error {
	return m.Update(func(p *Policy) { p.RGBIntent = i })
}

// SetCMYKIntent sets the intent of transforms into CMYK.
func (m *Manager) SetCMYKIntent(i cmm.RenderingIntent) error {
	return m.Update(func(p *Policy) { p.CMYKIntent = i })
}

// SetFlags replaces the engine flags of every transform.
func (m *Manager) SetFlags(f cmm.Flags) error {
	return m.Update(func(p *Policy) { p.Flags = f })
}

func (m *Manager) invalidate(inv invalidation) {
	switch {
	case inv.empty():
		return
	case inv.all:
		m.cache.InvalidateAll()
	case inv.toCMYK || inv.toOther:
		m.cache.InvalidateWhere(func(k TransformKey) bool {
			if k.Out == cmm.CMYK {
				return inv.toCMYK
			}
			return inv.toOther
		}, inv.proofing)
	default:
		m.cache.InvalidateProof()
	}
}

// SetProfile installs the profile in data for space.
func (m *Manager) SetProfile(space cmm.ColorSpace, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, err := m.profiles.Set(space, data)
	return err
}

// SetProfileFile installs the profile stored at path for space.
func (m *Manager) SetProfileFile(space cmm.ColorSpace, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, err := m.profiles.SetFile(space, path)
	return err
}

// ResetProfile restores the built-in profile of space. For Display it
// removes the display profile.
func (m *Manager) ResetProfile(space cmm.ColorSpace) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.profiles.Reset(space)
}

// ProfileName returns the name of the profile used for space, or "" when
// space has none.
func (m *Manager) ProfileName(space cmm.ColorSpace) string {
	return m.profiles.Name(space)
}

// HasDisplayProfile reports whether a display profile is configured.
func (m *Manager) HasDisplayProfile() bool {
	return m.profiles.Has(cmm.Display)
}

// ProfileFingerprint returns the digest of the profile used for space.
func (m *Manager) ProfileFingerprint(space cmm.ColorSpace) (string, bool) {
	return m.profiles.Fingerprint(space)
}

// SaveBuiltinProfiles writes the built-in profiles to dir.
func (m *Manager) SaveBuiltinProfiles(dir string, overwrite bool) ([]string, error) {
	return m.profiles.SaveBuiltins(dir, overwrite)
}

// Stats reports the transform cache counters.
func (m *Manager) Stats() CacheStats { return m.cache.Stats() }

// Close releases all transforms and profiles.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache.InvalidateAll()
	m.profiles.Close()
}

// ToRGB converts c to RGB.
func (m *Manager) ToRGB(c Color) (Color, error) { return m.ToSpace(c, cmm.RGB) }

// ToCMYK converts c to CMYK.
func (m *Manager) ToCMYK(c Color) (Color, error) { return m.ToSpace(c, cmm.CMYK) }

// ToLab converts c to Lab.
func (m *Manager) ToLab(c Color) (Color, error) { return m.ToSpace(c, cmm.Lab) }

// ToGray converts c to Gray.
func (m *Manager) ToGray(c Color) (Color, error) { return m.ToSpace(c, cmm.Gray) }

// ToSpace converts c to target, which must be RGB, CMYK, Lab or Gray. The
// result keeps the alpha and name of c; c is not modified.
func (m *Manager) ToSpace(c Color, target cmm.ColorSpace) (Color, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.toSpace(c, target)
}

func (m *Manager) toSpace(c Color, target cmm.ColorSpace) (Color, error) {
	if !HasBuiltin(target) {
		return Color{}, fmt.Errorf("%w: %v", ErrUnsupportedTarget, target)
	}
	if c.Space == target {
		return c.Clone(), nil
	}
	if c.Space == cmm.Spot {
		fb, err := spotFallback(c, target == cmm.CMYK)
		if err != nil {
			return Color{}, err
		}
		if fb.Space == target {
			return fb, nil
		}
		c = fb
	}
	values, err := m.convert(c.Space, target, c.Values)
	if err != nil {
		return Color{}, err
	}
	return Color{Space: target, Values: values, Alpha: c.Alpha, Name: c.Name}, nil
}

// convert runs values from in to out through the cached transform, or
// through the analytic formulas when color management is off.
func (m *Manager) convert(in, out cmm.ColorSpace, values []float64) ([]float64, error) {
	if len(values) != in.Channels() {
		return nil, fmt.Errorf("cms: %v color needs %d values, got %d", in, in.Channels(), len(values))
	}
	if !m.policy.UseCMS {
		return cmm.SimpleConvert(values, in.Physical(), out.Physical())
	}
	key := TransformKey{In: in, Out: out, Intent: m.policy.intentFor(out), Flags: m.policy.Flags}
	t, err := m.cache.Get(context.Background(), key)
	if err != nil {
		return nil, m.engineFailure(err)
	}
	res, err := t.Convert(values)
	if err != nil {
		return nil, m.engineFailure(engineError("apply", in, out, err))
	}
	return res, nil
}

// proof runs values from in through the soft-proofing transform.
func (m *Manager) proof(in cmm.ColorSpace, values []float64) ([]float64, error) {
	if len(values) != in.Channels() {
		return nil, fmt.Errorf("cms: %v color needs %d values, got %d", in, in.Channels(), len(values))
	}
	t, err := m.cache.GetProof(context.Background(), in, m.proofParams())
	if err != nil {
		return nil, m.engineFailure(err)
	}
	res, err := t.Convert(values)
	if err != nil {
		return nil, m.engineFailure(engineError("apply", in, cmm.Display, err))
	}
	return res, nil
}

func (m *Manager) proofParams() ProofParams {
	return ProofParams{
		UseDisplayProfile: m.policy.UseDisplayProfile,
		ProofIntent:       m.policy.CMYKIntent,
		OutputIntent:      m.policy.RGBIntent,
		Flags:             m.policy.proofFlags(),
		Alarm:             m.policy.AlarmCodes,
	}
}

func (m *Manager) engineFailure(err error) error {
	var ee *EngineError
	if errors.As(err, &ee) {
		m.logger.Error("engine failure",
			observability.String("op", ee.Op),
			observability.String("in", ee.In.String()),
			observability.String("out", ee.Out.String()),
			observability.Error("err", ee.Err))
	}
	return err
}

// RGB255 returns the 8-bit RGB components of c.
func (m *Manager) RGB255(c Color) ([]uint8, error) {
	rgb, err := m.ToRGB(c)
	if err != nil {
		return nil, err
	}
	return Val255(rgb.Values), nil
}

// RGBA255 returns the 8-bit RGB components of c followed by its alpha.
func (m *Manager) RGBA255(c Color) ([]uint8, error) {
	rgb, err := m.ToRGB(c)
	if err != nil {
		return nil, err
	}
	return Val255(append(rgb.Values, rgb.Alpha)), nil
}

// CMYK255 returns the 8-bit CMYK components of c.
func (m *Manager) CMYK255(c Color) ([]uint8, error) {
	cmyk, err := m.ToCMYK(c)
	if err != nil {
		return nil, err
	}
	return Val255(cmyk.Values), nil
}
