// Package provider provides multi-source configuration loading with precedence.
package provider

import (
	"github.com/cockroachdb/errors"
	"github.com/knadh/koanf/v2"

	"github.com/smykla-labs/crashtrace/internal/config"
	pkgconfig "github.com/smykla-labs/crashtrace/pkg/config"
)

// ErrNoConfig is returned when a source has nothing to contribute.
var ErrNoConfig = errors.New("no configuration available")

// Source is one configuration layer (file, env, flags).
type Source interface {
	// Name returns the source name for debugging/logging.
	Name() string

	// Load merges this source into k.
	// Returns ErrNoConfig if no configuration is available.
	Load(k *koanf.Koanf) error

	// IsAvailable checks if this source has configuration available.
	IsAvailable() bool
}

// Provider loads configuration from multiple sources with precedence.
// Precedence order (highest to lowest):
// 1. CLI Flags
// 2. Environment Variables
// 3. Project Config
// 4. Global Config
// 5. Defaults
type Provider struct {
	// sources is the list of configuration sources in precedence order.
	sources []Source

	validator *config.Validator
	cache     *Cache
}

// NewProvider creates a new Provider with the given sources.
// Sources should be provided in precedence order (highest priority first).
func NewProvider(sources ...Source) *Provider {
	return &Provider{
		sources:   sources,
		validator: config.NewValidator(),
		cache:     NewCache(),
	}
}

// Load loads and merges configuration from all sources.
// Returns a fully merged and validated configuration.
// Caches the result for subsequent calls.
func (p *Provider) Load() (*pkgconfig.Config, error) {
	if cfg := p.cache.Get(); cfg != nil {
		return cfg, nil
	}

	k := koanf.New(".")

	if err := NewDefaultsSource().Load(k); err != nil {
		return nil, errors.Wrap(err, "failed to load defaults")
	}

	// Lowest priority first so later loads override earlier ones.
	for i := len(p.sources) - 1; i >= 0; i-- {
		source := p.sources[i]

		if err := source.Load(k); err != nil {
			if errors.Is(err, ErrNoConfig) {
				continue
			}

			return nil, errors.Wrapf(err, "failed to load config from %s", source.Name())
		}
	}

	merged, err := config.Unmarshal(k)
	if err != nil {
		return nil, err
	}

	if err := p.validator.Validate(merged); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	p.cache.Set(merged)

	return merged, nil
}

// Reload clears the cache and loads configuration again.
func (p *Provider) Reload() (*pkgconfig.Config, error) {
	p.cache.Clear()

	return p.Load()
}

// Sources returns the list of sources in precedence order.
func (p *Provider) Sources() []Source {
	return p.sources
}

// NewDefaultProvider creates a Provider with the standard sources. Flags use
// dotted keys such as "workspace.folder". An empty workDir means the current
// directory.
func NewDefaultProvider(flags map[string]any, workDir string) *Provider {
	return NewProvider(
		NewFlagSource(flags),
		NewEnvSource(config.EnvPrefix),
		NewFileSource("project config file", config.ProjectConfigPath(workDir)),
		NewFileSource("global config file", config.GlobalConfigPath()),
	)
}
