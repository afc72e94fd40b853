// Package config provides configuration schema types for crashtrace.
package config

// DefaultMaxRecordCount is the default event log capacity.
const DefaultMaxRecordCount = 50

// EventsConfig configures the trace event log.
type EventsConfig struct {
	// MaxRecordCount is the number of records kept; older records are evicted.
	// Default: 50
	MaxRecordCount *int `json:"max_record_count,omitempty" koanf:"max_record_count" toml:"max_record_count"`
}

// GetMaxRecordCount returns the capacity with default fallback.
func (e *EventsConfig) GetMaxRecordCount() int {
	if e == nil || e.MaxRecordCount == nil {
		return DefaultMaxRecordCount
	}

	return *e.MaxRecordCount
}
