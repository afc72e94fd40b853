// Package config loads, validates and writes crashtrace configuration.
package config

import (
	pkgconfig "github.com/smykla-labs/crashtrace/pkg/config"
)

// DefaultConfig returns the configuration used when no source sets a value.
func DefaultConfig() *pkgconfig.Config {
	signalsEnabled := true
	guardLimit := pkgconfig.DefaultGuardLimit
	maxRecords := pkgconfig.DefaultMaxRecordCount
	recordDetail := true
	runtimeHeaders := true
	maxReports := 0

	return &pkgconfig.Config{
		Workspace: &pkgconfig.WorkspaceConfig{
			Folder: pkgconfig.DefaultFolder,
		},
		Events: &pkgconfig.EventsConfig{
			MaxRecordCount: &maxRecords,
		},
		Signals: &pkgconfig.SignalsConfig{
			Enabled:    &signalsEnabled,
			GuardLimit: &guardLimit,
		},
		Report: &pkgconfig.ReportConfig{
			RecordCrashDetail: &recordDetail,
			RuntimeHeaders:    &runtimeHeaders,
			MaxReports:        &maxReports,
		},
	}
}

// DefaultsMap returns DefaultConfig as dotted koanf keys.
func DefaultsMap() map[string]any {
	return map[string]any{
		"workspace.folder":           pkgconfig.DefaultFolder,
		"events.max_record_count":    pkgconfig.DefaultMaxRecordCount,
		"signals.enabled":            true,
		"signals.guard_limit":        pkgconfig.DefaultGuardLimit,
		"report.record_crash_detail": true,
		"report.runtime_headers":     true,
		"report.max_reports":         0,
	}
}
