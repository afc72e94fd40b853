// Package crashdump captures runtime and host metadata for crash reports.
package crashdump

import (
	"os"
	"os/user"
	"runtime"

	"github.com/Masterminds/semver/v3"
	"github.com/dustin/go-humanize"

	"github.com/smykla-labs/crashtrace/pkg/crashinfo"
)

// RuntimeInfo contains Go runtime information at the time of crash.
type RuntimeInfo struct {
	// GOOS is the operating system (e.g., "darwin", "linux").
	GOOS string `json:"goos"`

	// GOARCH is the architecture (e.g., "amd64", "arm64").
	GOARCH string `json:"goarch"`

	// GoVersion is the Go version used to build the binary.
	GoVersion string `json:"go_version"`

	// NumGoroutine is the number of goroutines at crash time.
	NumGoroutine int `json:"num_goroutine"`

	// NumCPU is the number of CPUs available.
	NumCPU int `json:"num_cpu"`
}

// DumpMetadata describes the process and the host it runs on.
type DumpMetadata struct {
	// Version is the host application version, empty when unknown.
	Version string `json:"version,omitempty"`

	User       string `json:"user,omitempty"`
	Hostname   string `json:"hostname,omitempty"`
	WorkingDir string `json:"working_dir,omitempty"`
	PID        int    `json:"pid"`
}

// CaptureRuntime returns the current runtime information.
func CaptureRuntime() RuntimeInfo {
	return RuntimeInfo{
		GOOS:         runtime.GOOS,
		GOARCH:       runtime.GOARCH,
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		NumCPU:       runtime.NumCPU(),
	}
}

// CaptureMetadata returns host metadata. Lookups that fail leave their field empty.
func CaptureMetadata(version *semver.Version) DumpMetadata {
	md := DumpMetadata{PID: os.Getpid()}

	if version != nil {
		md.Version = version.String()
	}

	if u, err := user.Current(); err == nil {
		md.User = u.Username
	}

	if h, err := os.Hostname(); err == nil {
		md.Hostname = h
	}

	if wd, err := os.Getwd(); err == nil {
		md.WorkingDir = wd
	}

	return md
}

// Headers converts the runtime information into report headers.
func (r RuntimeInfo) Headers() map[string]crashinfo.Value {
	return map[string]crashinfo.Value{
		"goos":         crashinfo.String(r.GOOS),
		"goarch":       crashinfo.String(r.GOARCH),
		"goVersion":    crashinfo.String(r.GoVersion),
		"numGoroutine": crashinfo.Int(int64(r.NumGoroutine)),
		"numCPU":       crashinfo.Int(int64(r.NumCPU)),
	}
}

// Headers converts the metadata into report headers, skipping empty fields.
func (m DumpMetadata) Headers() map[string]crashinfo.Value {
	h := map[string]crashinfo.Value{
		"pid": crashinfo.Int(int64(m.PID)),
	}

	set := func(key, value string) {
		if value != "" {
			h[key] = crashinfo.String(value)
		}
	}

	set("appVersion", m.Version)
	set("user", m.User)
	set("hostname", m.Hostname)
	set("workingDir", m.WorkingDir)

	return h
}

// RuntimeHeaders is a report.HeaderProvider that captures runtime and host
// metadata when the report is written.
type RuntimeHeaders struct {
	Version *semver.Version
}

// NewRuntimeHeaders parses version and returns a provider. An empty version is
// allowed; an invalid one is an error.
func NewRuntimeHeaders(version string) (*RuntimeHeaders, error) {
	if version == "" {
		return &RuntimeHeaders{}, nil
	}

	v, err := semver.NewVersion(version)
	if err != nil {
		return nil, err
	}

	return &RuntimeHeaders{Version: v}, nil
}

// Headers implements report.HeaderProvider.
func (p *RuntimeHeaders) Headers() map[string]crashinfo.Value {
	h := CaptureRuntime().Headers()

	for k, v := range CaptureMetadata(p.Version).Headers() {
		h[k] = v
	}

	return h
}

// MemoryStatus is a report.HeaderProvider for the status section with a
// human readable view of the heap.
type MemoryStatus struct{}

// Headers implements report.HeaderProvider.
func (MemoryStatus) Headers() map[string]crashinfo.Value {
	var ms runtime.MemStats

	runtime.ReadMemStats(&ms)

	return map[string]crashinfo.Value{
		"heap in use":  crashinfo.String(humanize.IBytes(ms.HeapInuse)),
		"heap objects": crashinfo.String(humanize.Comma(int64(ms.HeapObjects))),
		"gc cycles":    crashinfo.Int(int64(ms.NumGC)),
		"goroutines":   crashinfo.Int(int64(runtime.NumGoroutine())),
	}
}
