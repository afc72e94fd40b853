// Package config provides configuration schema types for crashtrace.
package config

// DefaultGuardLimit is the default number of signal deliveries handled per process.
const DefaultGuardLimit = 20

// SignalsConfig configures fatal signal interception.
type SignalsConfig struct {
	// Enabled controls whether fatal signals are intercepted.
	// Panics are captured regardless.
	// Default: true
	Enabled *bool `json:"enabled,omitempty" koanf:"enabled" toml:"enabled"`

	// GuardLimit is the number of signal deliveries handled before further
	// deliveries are dropped.
	// Default: 20
	GuardLimit *int `json:"guard_limit,omitempty" koanf:"guard_limit" toml:"guard_limit"`
}

// IsEnabled returns whether signal interception is enabled.
func (s *SignalsConfig) IsEnabled() bool {
	if s == nil || s.Enabled == nil {
		return true
	}

	return *s.Enabled
}

// GetGuardLimit returns the guard limit with default fallback.
func (s *SignalsConfig) GetGuardLimit() int {
	if s == nil || s.GuardLimit == nil {
		return DefaultGuardLimit
	}

	return *s.GuardLimit
}
