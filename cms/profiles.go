package cms

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/blake2b"

	"github.com/wudi/queconverter/cmm"
	"github.com/wudi/queconverter/observability"
)

type profileEntry struct {
	profile cmm.Profile
	sum     [blake2b.Size256]byte
	path    string
	builtin bool
}

// ProfileStore owns one profile handle per color space. Handles are
// replaced, never mutated; a replaced handle is released.
type ProfileStore struct {
	mu       sync.RWMutex
	factory  cmm.Factory
	entries  map[cmm.ColorSpace]*profileEntry
	defaults map[cmm.ColorSpace]cmm.Profile
	onChange func(cmm.ColorSpace)
	logger   observability.Logger
}

// NewProfileStore loads the built-in profiles of RGB, CMYK, Lab and Gray.
// Display starts unset.
func NewProfileStore(f cmm.Factory, logger observability.Logger) (*ProfileStore, error) {
	if f == nil {
		return nil, errors.New("cms: nil engine factory")
	}
	if logger == nil {
		logger = observability.NopLogger{}
	}
	s := &ProfileStore{
		factory: f,
		entries:  make(map[cmm.ColorSpace]*profileEntry),
		defaults: make(map[cmm.ColorSpace]cmm.Profile),
		logger:   logger,
	}
	for _, space := range ConcreteSpaces {
		e, err := s.builtinEntry(space)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.entries[space] = e
	}
	return s, nil
}

// OnChange registers fn to be called after the profile of a space changed.
// fn runs without the store lock held.
func (s *ProfileStore) OnChange(fn func(cmm.ColorSpace)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

func (s *ProfileStore) builtinEntry(space cmm.ColorSpace) (*profileEntry, error) {
	p, err := s.factory.DefaultProfile(space)
	if err != nil {
		return nil, fmt.Errorf("%w: built-in %v profile: %v", ErrProfileMissing, space, err)
	}
	return &profileEntry{profile: p, sum: blake2b.Sum256(p.Data()), builtin: true}, nil
}

// Get returns the profile of space.
func (s *ProfileStore) Get(space cmm.ColorSpace) (cmm.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.entries[space]; ok {
		return e.profile, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrProfileMissing, space)
}

// Default returns the built-in profile of space. The handle is owned by the
// store and stays valid until Close. Display has no default.
func (s *ProfileStore) Default(space cmm.ColorSpace) (cmm.Profile, error) {
	if !HasBuiltin(space) {
		return nil, fmt.Errorf("%w: no built-in %v profile", ErrProfileMissing, space)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.defaults[space]; ok {
		return p, nil
	}
	p, err := s.factory.DefaultProfile(space)
	if err != nil {
		return nil, fmt.Errorf("%w: built-in %v profile: %v", ErrProfileMissing, space, err)
	}
	s.defaults[space] = p
	return p, nil
}

// Has reports whether space has a profile.
func (s *ProfileStore) Has(space cmm.ColorSpace) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[space]
	return ok
}

// Name returns the profile name of space, or "" when unset.
func (s *ProfileStore) Name(space cmm.ColorSpace) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.entries[space]; ok {
		return e.profile.Name()
	}
	return ""
}

// Path returns the file the profile of space was loaded from, if any.
func (s *ProfileStore) Path(space cmm.ColorSpace) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.entries[space]; ok {
		return e.path
	}
	return ""
}

// IsBuiltin reports whether space uses its built-in profile.
func (s *ProfileStore) IsBuiltin(space cmm.ColorSpace) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[space]
	return ok && e.builtin
}

// Fingerprint returns the hex BLAKE2b-256 digest of the profile of space.
func (s *ProfileStore) Fingerprint(space cmm.ColorSpace) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[space]
	if !ok {
		return "", false
	}
	return fmt.Sprintf("%x", e.sum), true
}

// Set replaces the profile of space with one built from data. Setting the
// bytes already in use is a no-op.
func (s *ProfileStore) Set(space cmm.ColorSpace, data []byte) (cmm.Profile, error) {
	return s.set(space, data, "")
}

// SetFile loads the profile of space from path.
func (s *ProfileStore) SetFile(space cmm.ColorSpace, path string) (cmm.Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cms: read %v profile: %w", space, err)
	}
	return s.set(space, data, path)
}

func (s *ProfileStore) set(space cmm.ColorSpace, data []byte, path string) (cmm.Profile, error) {
	if !space.Valid() || space == cmm.Spot {
		return nil, fmt.Errorf("%w: %v has no profile", ErrUnsupportedTarget, space)
	}
	sum := blake2b.Sum256(data)

	s.mu.Lock()
	if e, ok := s.entries[space]; ok && e.sum == sum {
		e.path = path
		s.mu.Unlock()
		return e.profile, nil
	}
	s.mu.Unlock()

	p, err := s.factory.NewProfile(data)
	if err != nil {
		return nil, fmt.Errorf("cms: load %v profile: %w", space, err)
	}
	if p.ColorSpace() != space.Physical() {
		p.Release()
		return nil, fmt.Errorf("cms: profile %q is %v, not %v", p.Name(), p.ColorSpace(), space)
	}
	s.replace(space, &profileEntry{profile: p, sum: sum, path: path})
	s.logger.Info("profile changed",
		observability.String("space", space.String()),
		observability.String("profile", p.Name()))
	return p, nil
}

// Reset restores the built-in profile of space, or unsets Display.
func (s *ProfileStore) Reset(space cmm.ColorSpace) error {
	if !HasBuiltin(space) {
		if space != cmm.Display {
			return fmt.Errorf("%w: %v has no profile", ErrUnsupportedTarget, space)
		}
		s.replace(space, nil)
		return nil
	}
	if s.IsBuiltin(space) {
		return nil
	}
	e, err := s.builtinEntry(space)
	if err != nil {
		return err
	}
	s.replace(space, e)
	return nil
}

// replace swaps the entry of space (nil removes it), releases the old
// handle and fires the change hook.
func (s *ProfileStore) replace(space cmm.ColorSpace, e *profileEntry) {
	s.mu.Lock()
	old, had := s.entries[space]
	if e == nil {
		delete(s.entries, space)
	} else {
		s.entries[space] = e
	}
	hook := s.onChange
	s.mu.Unlock()

	if !had && e == nil {
		return
	}
	if had {
		old.profile.Release()
	}
	if hook != nil {
		hook(space)
	}
}

// SaveBuiltins writes every built-in profile, Display included, to dir as
// built-in_<SPACE>.icm. Existing files are kept unless overwrite is set.
func (s *ProfileStore) SaveBuiltins(dir string, overwrite bool) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cms: create profile dir: %w", err)
	}
	var written []string
	for _, space := range ProfileSpaces {
		path := filepath.Join(dir, BuiltinFileName(space))
		if _, err := os.Stat(path); err == nil && !overwrite {
			continue
		}
		p, err := s.factory.DefaultProfile(space)
		if err != nil {
			return written, fmt.Errorf("%w: built-in %v profile: %v", ErrProfileMissing, space, err)
		}
		err = s.factory.SaveProfile(p, path)
		p.Release()
		if err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

// Close releases all profile handles.
func (s *ProfileStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for space, e := range s.entries {
		e.profile.Release()
		delete(s.entries, space)
	}
	for space, p := range s.defaults {
		p.Release()
		delete(s.defaults, space)
	}
}
