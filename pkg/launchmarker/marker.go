// Package launchmarker records that a traced process is running so the next
// launch can tell whether it ended without a clean stop or a crash report.
package launchmarker

import (
	"encoding/json"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/smykla-labs/crashtrace/pkg/clock"
	"github.com/smykla-labs/crashtrace/pkg/report"
)

// FileName is the marker file name inside the workspace. The leading dot keeps
// it out of report listings.
const FileName = ".launch"

// Marker describes one launch.
type Marker struct {
	LaunchedAt time.Time `json:"launched_at"`
	PID        int       `json:"pid"`
	AppVersion string    `json:"app_version,omitempty"`
}

// Manager handles the launch marker of one workspace.
type Manager struct {
	storage report.Storage
	clock   clock.Clock
	path    string
}

// NewManager creates a marker manager for workspace.
func NewManager(storage report.Storage, c clock.Clock, workspace string) *Manager {
	if c == nil {
		c = clock.System{}
	}

	return &Manager{
		storage: storage,
		clock:   c,
		path:    filepath.Join(workspace, FileName),
	}
}

// Path returns the marker file path.
func (m *Manager) Path() string {
	return m.path
}

// Set writes the marker for the current launch.
func (m *Manager) Set(pid int, appVersion string) error {
	marker := Marker{
		LaunchedAt: m.clock.Now(),
		PID:        pid,
		AppVersion: appVersion,
	}

	data, err := json.MarshalIndent(marker, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal launch marker")
	}

	if err := m.storage.WriteFile(m.path, data); err != nil {
		return errors.Wrap(err, "failed to write launch marker")
	}

	return nil
}

// Check returns the marker left by a previous launch, if any. An unreadable
// marker is cleared and reported as absent.
func (m *Manager) Check() (*Marker, bool) {
	data, err := m.storage.ReadFile(m.path)
	if err != nil {
		return nil, false
	}

	var marker Marker
	if err := json.Unmarshal(data, &marker); err != nil {
		_ = m.Clear() // best effort

		return nil, false
	}

	return &marker, true
}

// Clear removes the marker. A missing marker is not an error.
func (m *Manager) Clear() error {
	if err := m.storage.Remove(m.path); err != nil && !report.IsNotExist(err) {
		return errors.Wrap(err, "failed to remove launch marker")
	}

	return nil
}
