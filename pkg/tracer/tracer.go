// Package tracer is the crash observability facade: it owns the event log,
// installs fault handlers and writes one report per process launch.
package tracer

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/smykla-labs/crashtrace/internal/crashdump"
	"github.com/smykla-labs/crashtrace/pkg/clock"
	"github.com/smykla-labs/crashtrace/pkg/config"
	"github.com/smykla-labs/crashtrace/pkg/crashinfo"
	"github.com/smykla-labs/crashtrace/pkg/eventlog"
	"github.com/smykla-labs/crashtrace/pkg/handler"
	"github.com/smykla-labs/crashtrace/pkg/launchmarker"
	"github.com/smykla-labs/crashtrace/pkg/logger"
	"github.com/smykla-labs/crashtrace/pkg/report"
)

// ErrAlreadyCrashed is returned by RecordCrash when a report was already
// written for this launch.
var ErrAlreadyCrashed = errors.New("crash already recorded")

// FaultFunc is notified after a fault has been persisted.
type FaultFunc func(info crashinfo.CrashInfo, artifacts report.Artifacts)

// Tracer records events and turns the first fault of a launch into a report.
type Tracer struct {
	cfg      *config.Config
	log      logger.Logger
	clock    clock.Clock
	storage  report.Storage
	registry *handler.Registry
	events   *eventlog.Log
	writer   *report.Writer
	headers  report.Headers
	runtime  *crashdump.RuntimeHeaders
	launch   time.Time

	crashed atomic.Bool
	marker  atomic.Pointer[launchmarker.Manager]

	// faultDone is closed once the winning fault has been persisted.
	faultMu   sync.Mutex
	faultDone chan struct{}

	mu       sync.Mutex
	started  bool
	previous *launchmarker.Marker

	listenersMu sync.RWMutex
	listeners   []FaultFunc
}

// New creates a Tracer. A nil cfg uses the defaults. Nothing is installed
// until Start.
func New(cfg *config.Config, opts ...Option) (*Tracer, error) {
	if cfg == nil {
		cfg = &config.Config{}
	}

	t := &Tracer{
		cfg:   cfg,
		log:   logger.NewNoOpLogger(),
		clock: clock.System{},
	}

	for _, opt := range opts {
		opt(t)
	}

	if t.storage == nil {
		t.storage = report.NewOSStorage()
	}

	if cfg.Report.IsRuntimeHeadersEnabled() {
		rt, err := crashdump.NewRuntimeHeaders(cfg.Report.GetAppVersion())
		if err != nil {
			return nil, errors.Wrap(err, "invalid application version")
		}

		t.runtime = rt
	}

	writer, err := report.NewWriter(
		t.storage,
		report.WithClock(t.clock),
		report.WithLogger(t.log),
		report.WithCrashDetail(cfg.Report.IsRecordCrashDetailEnabled()),
	)
	if err != nil {
		return nil, err
	}

	t.writer = writer
	t.events = eventlog.New(
		eventlog.WithClock(t.clock),
		eventlog.WithMaxCount(cfg.Events.GetMaxRecordCount()),
	)

	if t.registry == nil {
		t.registry = t.newRegistry()
	}

	t.launch = t.clock.Now()

	return t, nil
}

func (t *Tracer) newRegistry() *handler.Registry {
	opts := []handler.Option{
		handler.WithLogger(t.log),
		handler.WithGuardLimit(t.cfg.Signals.GetGuardLimit()),
	}

	if !t.cfg.Signals.IsEnabled() {
		opts = append(opts, handler.WithoutSignals())
	}

	return handler.NewRegistry(opts...)
}

// Start resolves and creates the workspace, configures report persistence and
// installs the fault handlers. A non-empty folder overrides the configured
// one; relative folders live under the cache root.
//
// Calling Start again does not reinstall anything; if the tracer has crashed
// it clears the crashed flag so the next fault is reported.
//
// A workspace that cannot be created is logged and returned, but handlers are
// still installed so faults keep their default outcome.
func (t *Tracer) Start(folder string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.started {
		if t.crashed.CompareAndSwap(true, false) {
			t.log.Info("crashed flag cleared by restart")
		}

		return nil
	}

	workspace := t.cfg.GetWorkspace().Path(folder)

	var startErr error

	if err := t.storage.MkdirAll(workspace); err != nil {
		t.log.Error("workspace not created, reports disabled", "workspace", workspace, "error", err)
		startErr = errors.Wrapf(err, "failed to create workspace %s", workspace)
	} else {
		t.writer.Configure(workspace, t.reportHeaders())
		t.applyRetention()
		t.markLaunch(workspace)
	}

	t.registry.OnException(t.handleFault)
	t.started = true

	t.log.Debug("tracer started", "workspace", workspace, "max_records", t.events.MaxCount())

	return startErr
}

// Stop removes the fault handlers. Signals get their default disposition back.
func (t *Tracer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.registry.Stop()
	t.started = false
	t.clearMarker()
}

// Started reports whether Start was called without a later Stop.
func (t *Tracer) Started() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.started
}

// Workspace returns the active workspace, or "" before a successful Start.
func (t *Tracer) Workspace() string {
	return t.writer.Workspace()
}

// PreviousLaunch returns the marker of an earlier launch that ended without a
// clean Stop or a crash report, as found by Start.
func (t *Tracer) PreviousLaunch() (launchmarker.Marker, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.previous == nil {
		return launchmarker.Marker{}, false
	}

	return *t.previous, true
}

// LaunchTime returns the time the tracer was created.
func (t *Tracer) LaunchTime() time.Time {
	return t.launch
}

// Recover must be deferred directly at the root of a goroutine:
//
//	defer tr.Recover()
//
// It reports the panic once per launch and panics again with the same value.
func (t *Tracer) Recover() {
	if v := recover(); v != nil {
		t.registry.HandlePanic(v)
	}
}

// Go runs fn on a new goroutine guarded by Recover.
func (t *Tracer) Go(fn func()) {
	go func() {
		defer t.Recover()

		fn()
	}()
}

// Record appends an event for the caller's call site.
func (t *Tracer) Record(session eventlog.Session, items ...any) {
	t.events.RecordDepth(1, session, items...)
}

// CustomRecord appends an event with a free-text label and code description.
func (t *Tracer) CustomRecord(label, code, message string) {
	t.events.CustomRecord(label, code, message)
}

// Events returns the retained events, oldest first.
func (t *Tracer) Events() []eventlog.Record {
	return t.events.Snapshot()
}

// SetMaxRecordCount changes how many events are retained.
func (t *Tracer) SetMaxRecordCount(n int) {
	t.events.SetMaxCount(n)
}

// RecordCrash persists a caller-built crash. Like any fault it is written at
// most once per launch.
func (t *Tracer) RecordCrash(info crashinfo.CrashInfo) (report.Artifacts, error) {
	won, done := t.claimFault()
	if !won {
		return report.Artifacts{}, ErrAlreadyCrashed
	}
	defer close(done)

	return t.persist(info)
}

// OnFault registers fn to run after every persisted fault.
func (t *Tracer) OnFault(fn FaultFunc) {
	if fn == nil {
		return
	}

	t.listenersMu.Lock()
	defer t.listenersMu.Unlock()

	t.listeners = append(t.listeners, fn)
}

// Crashed reports whether a fault was recorded in this launch.
func (t *Tracer) Crashed() bool {
	return t.crashed.Load()
}

// Reset clears the crashed flag.
func (t *Tracer) Reset() {
	t.crashed.Store(false)
}

// ExportLogFiles lists the report artifacts in the workspace.
func (t *Tracer) ExportLogFiles() ([]string, error) {
	return t.writer.ExportLogFiles()
}

// ExportLogObjects decodes every structured report in the workspace.
func (t *Tracer) ExportLogObjects() ([]report.Object, error) {
	return t.writer.ExportLogObjects()
}

// RemoveLog deletes one artifact. A missing file is not an error.
func (t *Tracer) RemoveLog(path string) error {
	return t.writer.RemoveLog(path)
}

// Reports summarizes the reports in the workspace, oldest first.
func (t *Tracer) Reports() ([]report.Summary, error) {
	return t.writer.List()
}

// claimFault sets the crashed flag. The winner gets a channel to close once
// its report is written; every other caller gets the winner's channel.
func (t *Tracer) claimFault() (bool, chan struct{}) {
	t.faultMu.Lock()
	defer t.faultMu.Unlock()

	if !t.crashed.CompareAndSwap(false, true) {
		return false, t.faultDone
	}

	t.faultDone = make(chan struct{})

	return true, t.faultDone
}

// handleFault returns only after the launch's report has been written.
func (t *Tracer) handleFault(info crashinfo.CrashInfo) {
	won, done := t.claimFault()
	if !won {
		t.log.Debug("fault ignored, already recorded", "name", info.Name())

		if done != nil {
			<-done
		}

		return
	}
	defer close(done)

	_, _ = t.persist(info)
}

func (t *Tracer) persist(info crashinfo.CrashInfo) (report.Artifacts, error) {
	art, err := t.writer.Persist(info, t.events.Snapshot(), t.launch)
	if err != nil {
		t.log.Error("crash report incomplete", "name", info.Name(), "error", err)
	}

	if art.JSONPath != "" || art.LogPath != "" {
		t.clearMarker()
	}

	t.listenersMu.RLock()
	listeners := append([]FaultFunc(nil), t.listeners...)
	t.listenersMu.RUnlock()

	for _, fn := range listeners {
		t.notify(fn, info, art)
	}

	return art, err
}

func (t *Tracer) notify(fn FaultFunc, info crashinfo.CrashInfo, art report.Artifacts) {
	defer func() {
		if rec := recover(); rec != nil {
			t.log.Error("fault listener panicked", "panic", fmt.Sprint(rec))
		}
	}()

	fn(info, art)
}

func (t *Tracer) markLaunch(workspace string) {
	marker := launchmarker.NewManager(t.storage, t.clock, workspace)

	if prev, ok := marker.Check(); ok {
		t.previous = prev
		t.log.Warn("previous launch ended without a report",
			"launched_at", prev.LaunchedAt, "pid", prev.PID)
	}

	if err := marker.Set(os.Getpid(), t.cfg.Report.GetAppVersion()); err != nil {
		t.log.Warn("launch marker not written", "error", err)
	}

	t.marker.Store(marker)
}

func (t *Tracer) clearMarker() {
	marker := t.marker.Load()
	if marker == nil {
		return
	}

	if err := marker.Clear(); err != nil {
		t.log.Warn("launch marker not removed", "error", err)
	}
}

func (t *Tracer) reportHeaders() report.Headers {
	h := report.Headers{
		JSON:   append([]report.HeaderProvider(nil), t.headers.JSON...),
		File:   append([]report.HeaderProvider(nil), t.headers.File...),
		Status: append([]report.HeaderProvider(nil), t.headers.Status...),
	}

	if t.runtime != nil {
		// Runtime headers go first so caller providers can override them.
		h.JSON = append([]report.HeaderProvider{t.runtime}, h.JSON...)
		h.File = append([]report.HeaderProvider{t.runtime}, h.File...)
		h.Status = append([]report.HeaderProvider{crashdump.MemoryStatus{}}, h.Status...)
	}

	return h
}

func (t *Tracer) applyRetention() {
	keep := t.cfg.Report.GetMaxReports()
	if keep <= 0 {
		return
	}

	removed, err := t.writer.Prune(keep)
	if err != nil {
		t.log.Warn("report retention failed", "error", err)

		return
	}

	if len(removed) > 0 {
		t.log.Info("old reports pruned", "count", len(removed))
	}
}
