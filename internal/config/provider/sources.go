package provider

import (
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/smykla-labs/crashtrace/internal/config"
)

// envSectionSeparator separates nested keys in environment variable names,
// e.g. CRASHTRACE_EVENTS__MAX_RECORD_COUNT.
const envSectionSeparator = "__"

// DefaultsSource provides the built-in defaults.
type DefaultsSource struct{}

// NewDefaultsSource creates a new DefaultsSource.
func NewDefaultsSource() *DefaultsSource {
	return &DefaultsSource{}
}

// Name returns the source name.
func (*DefaultsSource) Name() string {
	return "defaults"
}

// Load merges the defaults into k.
func (*DefaultsSource) Load(k *koanf.Koanf) error {
	return k.Load(confmap.Provider(config.DefaultsMap(), "."), nil)
}

// IsAvailable always returns true.
func (*DefaultsSource) IsAvailable() bool {
	return true
}

// FileSource loads configuration from a TOML file.
type FileSource struct {
	name string
	path string
}

// NewFileSource creates a new FileSource.
func NewFileSource(name, path string) *FileSource {
	return &FileSource{name: name, path: path}
}

// Name returns the source name.
func (s *FileSource) Name() string {
	return s.name
}

// Path returns the file path.
func (s *FileSource) Path() string {
	return s.path
}

// Load merges the file into k.
func (s *FileSource) Load(k *koanf.Koanf) error {
	if !s.IsAvailable() {
		return ErrNoConfig
	}

	if err := k.Load(file.Provider(s.path), toml.Parser()); err != nil {
		return errors.Wrapf(err, "failed to parse %s", s.path)
	}

	return nil
}

// IsAvailable checks if the file exists.
func (s *FileSource) IsAvailable() bool {
	if s.path == "" {
		return false
	}

	info, err := os.Stat(s.path)

	return err == nil && !info.IsDir()
}

// EnvSource loads configuration from environment variables.
// Environment variables follow the pattern: CRASHTRACE_SECTION__FIELD
// Examples:
// - CRASHTRACE_WORKSPACE__FOLDER=Reports
// - CRASHTRACE_SIGNALS__ENABLED=false
// - CRASHTRACE_EVENTS__MAX_RECORD_COUNT=100
type EnvSource struct {
	prefix string
}

// NewEnvSource creates a new EnvSource.
func NewEnvSource(prefix string) *EnvSource {
	return &EnvSource{prefix: prefix}
}

// Name returns the source name.
func (*EnvSource) Name() string {
	return "environment variables"
}

// Load merges matching environment variables into k.
func (s *EnvSource) Load(k *koanf.Koanf) error {
	if !s.IsAvailable() {
		return ErrNoConfig
	}

	return k.Load(env.Provider(".", env.Opt{
		Prefix:        s.prefix,
		TransformFunc: s.transform,
	}), nil)
}

func (s *EnvSource) transform(key, value string) (string, any) {
	key = strings.ToLower(strings.TrimPrefix(key, s.prefix))
	key = strings.ReplaceAll(key, envSectionSeparator, ".")

	return key, value
}

// IsAvailable checks if any prefixed variables are set.
func (s *EnvSource) IsAvailable() bool {
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, s.prefix) {
			return true
		}
	}

	return false
}

// FlagSource loads configuration from CLI flags.
type FlagSource struct {
	flags map[string]any
}

// NewFlagSource creates a new FlagSource. Keys are dotted paths; nil values
// are ignored.
func NewFlagSource(flags map[string]any) *FlagSource {
	return &FlagSource{flags: flags}
}

// Name returns the source name.
func (*FlagSource) Name() string {
	return "CLI flags"
}

// Load merges the set flags into k.
func (s *FlagSource) Load(k *koanf.Koanf) error {
	set := make(map[string]any, len(s.flags))

	for key, value := range s.flags {
		if value != nil {
			set[key] = value
		}
	}

	if len(set) == 0 {
		return ErrNoConfig
	}

	return k.Load(confmap.Provider(set, "."), nil)
}

// IsAvailable checks if any flags are set.
func (s *FlagSource) IsAvailable() bool {
	for _, value := range s.flags {
		if value != nil {
			return true
		}
	}

	return false
}
