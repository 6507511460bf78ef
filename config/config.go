// Package config loads and stores the converter preferences. Preferences
// live in preferences.yaml inside the config directory; color profiles
// referenced by the preferences live in its profiles subdirectory.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/wudi/queconverter/cmm"
	"github.com/wudi/queconverter/cms"
)

const (
	fileName = "preferences"
	fileType = "yaml"
	fileExt  = "preferences.yaml"

	// ProfilesDirName is the subdirectory holding color profiles.
	ProfilesDirName = "profiles"
)

// Preference keys.
const (
	KeyLogLevel          = "log_level"
	KeyUseCMS            = "cms_use"
	KeyRGBProfile        = "cms_rgb_profile"
	KeyCMYKProfile       = "cms_cmyk_profile"
	KeyLabProfile        = "cms_lab_profile"
	KeyGrayProfile       = "cms_gray_profile"
	KeyDisplayProfile    = "cms_display_profile"
	KeyRGBProfiles       = "cms_rgb_profiles"
	KeyCMYKProfiles      = "cms_cmyk_profiles"
	KeyLabProfiles       = "cms_lab_profiles"
	KeyGrayProfiles      = "cms_gray_profiles"
	KeyDisplayProfiles   = "cms_display_profiles"
	KeyUseDisplayProfile = "cms_use_display_profile"
	KeyRGBIntent         = "cms_rgb_intent"
	KeyCMYKIntent        = "cms_cmyk_intent"
	KeyFlags             = "cms_flags"
	KeyProofing          = "cms_proofing"
	KeyGamutCheck        = "cms_gamutcheck"
	KeyAlarmCodes        = "cms_alarmcodes"
	KeyProofForSpot      = "cms_proof_for_spot"
	KeyBPC               = "cms_bpc_flag"
	KeyBPT               = "cms_bpt_flag"
)

// ErrUnknownKey is returned by Set for keys that are not preferences.
var ErrUnknownKey = errors.New("config: unknown key")

type kind int

const (
	kindString kind = iota
	kindBool
	kindInt
	kindIntent
	kindFloats
	kindMap
)

var keyKinds = map[string]kind{
	KeyLogLevel:          kindString,
	KeyUseCMS:            kindBool,
	KeyRGBProfile:        kindString,
	KeyCMYKProfile:       kindString,
	KeyLabProfile:        kindString,
	KeyGrayProfile:       kindString,
	KeyDisplayProfile:    kindString,
	KeyRGBProfiles:       kindMap,
	KeyCMYKProfiles:      kindMap,
	KeyLabProfiles:       kindMap,
	KeyGrayProfiles:      kindMap,
	KeyDisplayProfiles:   kindMap,
	KeyUseDisplayProfile: kindBool,
	KeyRGBIntent:         kindIntent,
	KeyCMYKIntent:        kindIntent,
	KeyFlags:             kindInt,
	KeyProofing:          kindBool,
	KeyGamutCheck:        kindBool,
	KeyAlarmCodes:        kindFloats,
	KeyProofForSpot:      kindBool,
	KeyBPC:               kindBool,
	KeyBPT:               kindBool,
}

// profileKeys maps each profiled space to its selected-profile key and the
// key of its name→path table.
var profileKeys = map[cmm.ColorSpace][2]string{
	cmm.RGB:     {KeyRGBProfile, KeyRGBProfiles},
	cmm.CMYK:    {KeyCMYKProfile, KeyCMYKProfiles},
	cmm.Lab:     {KeyLabProfile, KeyLabProfiles},
	cmm.Gray:    {KeyGrayProfile, KeyGrayProfiles},
	cmm.Display: {KeyDisplayProfile, KeyDisplayProfiles},
}

const defaultPreferencesYAML = `# qc3 preferences
log_level: INFO

# Color management
cms_use: true
cms_rgb_profile: ""
cms_cmyk_profile: ""
cms_lab_profile: ""
cms_gray_profile: ""
cms_display_profile: ""
cms_use_display_profile: false
# 0 perceptual, 1 relative colorimetric, 2 saturation, 3 absolute colorimetric
cms_rgb_intent: 1
cms_cmyk_intent: 0
cms_flags: 256
cms_proofing: false
cms_gamutcheck: false
cms_alarmcodes: [1.0, 0.0, 1.0]
cms_proof_for_spot: false
cms_bpc_flag: false
cms_bpt_flag: false
`

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyLogLevel, "INFO")
	v.SetDefault(KeyUseCMS, true)
	v.SetDefault(KeyUseDisplayProfile, false)
	v.SetDefault(KeyRGBIntent, int(cmm.IntentRelativeColorimetric))
	v.SetDefault(KeyCMYKIntent, int(cmm.IntentPerceptual))
	v.SetDefault(KeyFlags, int(cmm.FlagNoPrecalc))
	v.SetDefault(KeyProofing, false)
	v.SetDefault(KeyGamutCheck, false)
	v.SetDefault(KeyAlarmCodes, []float64{1, 0, 1})
	v.SetDefault(KeyProofForSpot, false)
	v.SetDefault(KeyBPC, false)
	v.SetDefault(KeyBPT, false)
	for _, keys := range profileKeys {
		v.SetDefault(keys[0], "")
		v.SetDefault(keys[1], map[string]string{})
	}
}

// Config holds the preferences of one config directory.
type Config struct {
	dir string
	v   *viper.Viper
}

// DefaultDir returns the per-user config directory, ~/.config/qc3 on Linux.
func DefaultDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config: locate user config dir: %w", err)
	}
	return filepath.Join(base, "qc3"), nil
}

// Load reads preferences.yaml from dir. The directory, its profiles
// subdirectory and a default preferences file are created on first run.
func Load(dir string) (*Config, error) {
	if err := os.MkdirAll(filepath.Join(dir, ProfilesDirName), 0o755); err != nil {
		return nil, fmt.Errorf("config: ensure config dir: %w", err)
	}
	if err := ensureDefaultFile(dir); err != nil {
		return nil, fmt.Errorf("config: ensure default preferences: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigName(fileName)
	v.SetConfigType(fileType)
	v.AddConfigPath(dir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read preferences: %w", err)
		}
	}
	return &Config{dir: dir, v: v}, nil
}

func ensureDefaultFile(dir string) error {
	path := filepath.Join(dir, fileExt)
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat preferences: %w", err)
	}
	return os.WriteFile(path, []byte(defaultPreferencesYAML), 0o644)
}

// Dir returns the config directory.
func (c *Config) Dir() string { return c.dir }

// Path returns the preferences file path.
func (c *Config) Path() string { return filepath.Join(c.dir, fileExt) }

// ProfilesDir returns the directory holding color profiles.
func (c *Config) ProfilesDir() string { return filepath.Join(c.dir, ProfilesDirName) }

// Save writes the preferences back to preferences.yaml.
func (c *Config) Save() error {
	if err := c.v.WriteConfigAs(c.Path()); err != nil {
		return fmt.Errorf("config: save preferences: %w", err)
	}
	return nil
}

// Keys returns the preference keys in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(keyKinds))
	for k := range keyKinds {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the value of key.
func (c *Config) Get(key string) interface{} { return c.v.Get(key) }

// Set applies comma-separated key=value assignments, for example
// "cms_use=yes,log_level=DEBUG". Values are checked against the type of
// each key; nothing is applied when any assignment is invalid.
func (c *Config) Set(assignments string) error {
	parsed := make(map[string]interface{})
	var order []string
	for _, item := range splitAssignments(assignments) {
		key, raw, ok := strings.Cut(item, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return fmt.Errorf("config: malformed assignment %q", item)
		}
		value, err := parseValue(key, strings.TrimSpace(raw))
		if err != nil {
			return err
		}
		if _, seen := parsed[key]; !seen {
			order = append(order, key)
		}
		parsed[key] = value
	}
	for _, key := range order {
		c.v.Set(key, parsed[key])
	}
	return nil
}

// splitAssignments splits s at commas that are not inside brackets, so
// list values such as cms_alarmcodes=[1,0,1] stay whole.
func splitAssignments(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i, r := range s {
		switch r {
		case '[':
			depth++
		case ']':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	out := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseValue(key, raw string) (interface{}, error) {
	k, ok := keyKinds[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	switch k {
	case kindBool:
		b, err := parseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("config: %s: %w", key, err)
		}
		return b, nil
	case kindInt:
		n, err := cast.ToIntE(raw)
		if err != nil {
			return nil, fmt.Errorf("config: %s: %w", key, err)
		}
		return n, nil
	case kindIntent:
		i, err := ParseIntent(raw)
		if err != nil {
			return nil, fmt.Errorf("config: %s: %w", key, err)
		}
		return int(i), nil
	case kindFloats:
		f, err := parseFloats(raw)
		if err != nil {
			return nil, fmt.Errorf("config: %s: %w", key, err)
		}
		return f, nil
	case kindMap:
		return nil, fmt.Errorf("config: %s cannot be set from the command line", key)
	}
	return raw, nil
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(raw) {
	case "yes", "y", "on":
		return true, nil
	case "no", "n", "off":
		return false, nil
	}
	return cast.ToBoolE(raw)
}

func parseFloats(raw string) ([]float64, error) {
	raw = strings.Trim(raw, "[]() ")
	fields := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ';' || r == ' ' })
	out := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := cast.ToFloat64E(f)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// toFloats reads a list value as stored by Set or decoded from YAML.
func toFloats(v interface{}) ([]float64, error) {
	switch x := v.(type) {
	case []float64:
		return x, nil
	case string:
		return parseFloats(x)
	case []interface{}:
		out := make([]float64, len(x))
		for i, e := range x {
			f, err := cast.ToFloat64E(e)
			if err != nil {
				return nil, err
			}
			out[i] = f
		}
		return out, nil
	}
	return nil, fmt.Errorf("not a list of numbers: %T", v)
}

var intentNames = map[string]cmm.RenderingIntent{
	"perceptual":            cmm.IntentPerceptual,
	"relative":              cmm.IntentRelativeColorimetric,
	"relative_colorimetric": cmm.IntentRelativeColorimetric,
	"saturation":            cmm.IntentSaturation,
	"absolute":              cmm.IntentAbsoluteColorimetric,
	"absolute_colorimetric": cmm.IntentAbsoluteColorimetric,
}

// ParseIntent accepts an intent number (0-3) or name.
func ParseIntent(s string) (cmm.RenderingIntent, error) {
	if i, ok := intentNames[strings.ToLower(strings.TrimSpace(s))]; ok {
		return i, nil
	}
	n, err := cast.ToIntE(strings.TrimSpace(s))
	if err != nil || !cmm.RenderingIntent(n).Valid() {
		return 0, fmt.Errorf("unknown rendering intent %q", s)
	}
	return cmm.RenderingIntent(n), nil
}

// LogLevel returns the configured log level in lower case.
func (c *Config) LogLevel() string { return strings.ToLower(c.v.GetString(KeyLogLevel)) }

// Policy builds the color management policy from the preferences.
func (c *Config) Policy() (cms.Policy, error) {
	p := cms.DefaultPolicy()
	p.UseCMS = c.v.GetBool(KeyUseCMS)
	p.UseDisplayProfile = c.v.GetBool(KeyUseDisplayProfile)
	p.Proofing = c.v.GetBool(KeyProofing)
	p.GamutCheck = c.v.GetBool(KeyGamutCheck)
	p.ProofForSpot = c.v.GetBool(KeyProofForSpot)
	p.RGBIntent = cmm.RenderingIntent(c.v.GetInt(KeyRGBIntent))
	p.CMYKIntent = cmm.RenderingIntent(c.v.GetInt(KeyCMYKIntent))
	p.Flags = cmm.Flags(c.v.GetInt(KeyFlags))
	if c.v.GetBool(KeyBPC) {
		p.Flags |= cmm.FlagBlackPointCompensation
	}
	if c.v.GetBool(KeyBPT) {
		p.Flags |= cmm.FlagPreserveBlack
	}

	codes, err := toFloats(c.v.Get(KeyAlarmCodes))
	if err != nil {
		return p, fmt.Errorf("config: %s: %w", KeyAlarmCodes, err)
	}
	if len(codes) != 3 {
		return p, fmt.Errorf("config: %s needs 3 values, got %d", KeyAlarmCodes, len(codes))
	}
	copy(p.AlarmCodes[:], codes)
	if err := p.Validate(); err != nil {
		return p, fmt.Errorf("config: %w", err)
	}
	return p, nil
}

// ProfilePath returns the file of the profile selected for space, or ""
// for the built-in profile. A selection is looked up in the space's
// name→path table first; relative paths are taken from ProfilesDir.
func (c *Config) ProfilePath(space cmm.ColorSpace) string {
	keys, ok := profileKeys[space]
	if !ok {
		return ""
	}
	sel := strings.TrimSpace(c.v.GetString(keys[0]))
	if sel == "" {
		return ""
	}
	if path, ok := c.v.GetStringMapString(keys[1])[strings.ToLower(sel)]; ok && path != "" {
		sel = path
	}
	if !filepath.IsAbs(sel) {
		sel = filepath.Join(c.ProfilesDir(), sel)
	}
	return sel
}

// Apply installs the policy and the selected profiles into m. Spaces
// without a selection get their built-in profile back.
func (c *Config) Apply(m *cms.Manager) error {
	p, err := c.Policy()
	if err != nil {
		return err
	}
	for _, space := range cms.ProfileSpaces {
		path := c.ProfilePath(space)
		if path == "" {
			if err := m.ResetProfile(space); err != nil {
				return err
			}
			continue
		}
		if err := m.SetProfileFile(space, path); err != nil {
			return fmt.Errorf("config: %s: %w", profileKeys[space][0], err)
		}
	}
	return m.SetPolicy(p)
}

// InstallBuiltinProfiles writes missing built-in profiles to ProfilesDir.
func (c *Config) InstallBuiltinProfiles(m *cms.Manager) ([]string, error) {
	return m.SaveBuiltinProfiles(c.ProfilesDir(), false)
}

// Show writes every preference as "key: value", sorted by key.
func (c *Config) Show(w io.Writer) error {
	for _, key := range Keys() {
		if _, err := fmt.Fprintf(w, "%s: %v\n", key, c.v.Get(key)); err != nil {
			return err
		}
	}
	return nil
}
