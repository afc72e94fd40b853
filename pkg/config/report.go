// Package config provides configuration schema types for crashtrace.
package config

// ReportConfig configures report contents and retention.
type ReportConfig struct {
	// RecordCrashDetail controls whether the crash info section is written.
	// Disable it when another crash reporter already records the details.
	// Default: true
	RecordCrashDetail *bool `json:"record_crash_detail,omitempty" koanf:"record_crash_detail" toml:"record_crash_detail"`

	// RuntimeHeaders controls whether runtime and host metadata are added to reports.
	// Default: true
	RuntimeHeaders *bool `json:"runtime_headers,omitempty" koanf:"runtime_headers" toml:"runtime_headers"`

	// MaxReports is the number of reports kept in the workspace. Older reports
	// are pruned on start.
	// Default: 0 (keep all)
	MaxReports *int `json:"max_reports,omitempty" koanf:"max_reports" toml:"max_reports"`

	// AppVersion is the semantic version of the host application, added to reports.
	// Default: "" (omitted)
	AppVersion string `json:"app_version,omitempty" koanf:"app_version" toml:"app_version"`
}

// IsRecordCrashDetailEnabled returns whether crash details are written.
func (r *ReportConfig) IsRecordCrashDetailEnabled() bool {
	if r == nil || r.RecordCrashDetail == nil {
		return true
	}

	return *r.RecordCrashDetail
}

// IsRuntimeHeadersEnabled returns whether runtime headers are written.
func (r *ReportConfig) IsRuntimeHeadersEnabled() bool {
	if r == nil || r.RuntimeHeaders == nil {
		return true
	}

	return *r.RuntimeHeaders
}

// GetMaxReports returns the retention count with default fallback.
func (r *ReportConfig) GetMaxReports() int {
	if r == nil || r.MaxReports == nil {
		return 0
	}

	return *r.MaxReports
}

// GetAppVersion returns the configured application version.
func (r *ReportConfig) GetAppVersion() string {
	if r == nil {
		return ""
	}

	return r.AppVersion
}
