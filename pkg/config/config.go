// Package config provides configuration schema types for crashtrace.
package config

// Config is the root configuration.
type Config struct {
	// Workspace configures where reports are stored.
	Workspace *WorkspaceConfig `json:"workspace,omitempty" koanf:"workspace" toml:"workspace"`

	// Events configures the trace event log.
	Events *EventsConfig `json:"events,omitempty" koanf:"events" toml:"events"`

	// Signals configures fatal signal interception.
	Signals *SignalsConfig `json:"signals,omitempty" koanf:"signals" toml:"signals"`

	// Report configures report contents and retention.
	Report *ReportConfig `json:"report,omitempty" koanf:"report" toml:"report"`
}

// GetWorkspace returns the workspace config, creating it if it doesn't exist.
func (c *Config) GetWorkspace() *WorkspaceConfig {
	if c.Workspace == nil {
		c.Workspace = &WorkspaceConfig{}
	}

	return c.Workspace
}

// GetEvents returns the events config, creating it if it doesn't exist.
func (c *Config) GetEvents() *EventsConfig {
	if c.Events == nil {
		c.Events = &EventsConfig{}
	}

	return c.Events
}

// GetSignals returns the signals config, creating it if it doesn't exist.
func (c *Config) GetSignals() *SignalsConfig {
	if c.Signals == nil {
		c.Signals = &SignalsConfig{}
	}

	return c.Signals
}

// GetReport returns the report config, creating it if it doesn't exist.
func (c *Config) GetReport() *ReportConfig {
	if c.Report == nil {
		c.Report = &ReportConfig{}
	}

	return c.Report
}
