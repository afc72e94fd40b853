// Package report renders crash occurrences into report artifact pairs and
// manages the reports stored in a workspace directory.
package report

import (
	"encoding/json"
	"maps"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/hako/durafmt"
	"github.com/mattn/go-runewidth"

	"github.com/smykla-labs/crashtrace/pkg/clock"
	"github.com/smykla-labs/crashtrace/pkg/crashinfo"
	"github.com/smykla-labs/crashtrace/pkg/eventlog"
	"github.com/smykla-labs/crashtrace/pkg/logger"
)

const (
	// JSONExt is the extension of the structured document.
	JSONExt = ".json"

	// LogExt is the extension of the text document.
	LogExt = ".log"

	// Section headings of the text document, in output order.
	SectionBaseInfo  = "-------- base info --------"
	SectionStatus    = "-------- status --------"
	SectionEvents    = "-------- events --------"
	SectionCrashInfo = "-------- crash info --------"

	sectionGap = "\n\n"
)

var (
	// ErrNoWorkspace is returned when no workspace directory was configured.
	ErrNoWorkspace = errors.New("report workspace is not configured")

	// ErrReportNotFound is returned when a report ID has no artifacts.
	ErrReportNotFound = errors.New("report not found")

	// ErrInvalidReportID is returned for IDs that are not plain file names.
	ErrInvalidReportID = errors.New("invalid report id")
)

// Artifacts names the files written for one crash. A path is empty when that
// artifact was not written.
type Artifacts struct {
	ID       string
	JSONPath string
	LogPath  string
}

// Option configures a Writer.
type Option func(*Writer)

// WithClock sets the clock used for crash timestamps.
func WithClock(c clock.Clock) Option {
	return func(w *Writer) {
		if c != nil {
			w.clock = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(w *Writer) {
		if log != nil {
			w.log = log
		}
	}
}

// WithCrashDetail controls whether the crash info section and the nested
// crashInfo object are written. Disable it when another tool already records
// crash details.
func WithCrashDetail(enabled bool) Option {
	return func(w *Writer) {
		w.recordDetail = enabled
	}
}

// Writer persists crash reports into a workspace directory.
type Writer struct {
	storage Storage
	clock   clock.Clock
	log     logger.Logger

	mu           sync.RWMutex
	workspace    string
	headers      Headers
	recordDetail bool
}

// NewWriter creates a Writer. Configure must be called before Persist.
func NewWriter(storage Storage, opts ...Option) (*Writer, error) {
	if storage == nil {
		return nil, errors.New("storage cannot be nil")
	}

	w := &Writer{
		storage:      storage,
		clock:        clock.System{},
		log:          logger.NewNoOpLogger(),
		recordDetail: true,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w, nil
}

// Configure sets the workspace directory and header providers.
func (w *Writer) Configure(workspace string, headers Headers) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.workspace = workspace
	w.headers = headers
}

// Workspace returns the configured workspace directory.
func (w *Writer) Workspace() string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return w.workspace
}

// Persist writes the report pair for one crash. The two artifacts are written
// independently: a failure of one is reported but never prevents the other.
func (w *Writer) Persist(
	info crashinfo.CrashInfo,
	events []eventlog.Record,
	launch time.Time,
) (Artifacts, error) {
	w.mu.RLock()
	workspace, headers, recordDetail := w.workspace, w.headers, w.recordDetail
	w.mu.RUnlock()

	if workspace == "" {
		return Artifacts{}, ErrNoWorkspace
	}

	if err := w.storage.MkdirAll(workspace); err != nil {
		return Artifacts{}, errors.Wrap(err, "failed to prepare workspace")
	}

	crashTime := w.clock.Now()
	id := clock.FileName(crashTime)
	art := Artifacts{
		ID:       id,
		JSONPath: filepath.Join(workspace, id+JSONExt),
		LogPath:  filepath.Join(workspace, id+LogExt),
	}

	stamps := stamps{
		launch: clock.Stamp(launch),
		crash:  clock.Stamp(crashTime),
		uptime: crashTime.Sub(launch),
	}

	var errs error

	data, err := renderJSON(stamps, collect(w.log, headers.JSON), info, recordDetail)
	if err == nil {
		err = w.storage.WriteFile(art.JSONPath, data)
	}

	if err != nil {
		w.log.Error("structured report not written", "path", art.JSONPath, "error", err)
		errs = errors.CombineErrors(errs, errors.Wrap(err, "structured report"))
		art.JSONPath = ""
	}

	text := renderText(
		stamps,
		collect(w.log, headers.File),
		collect(w.log, headers.Status),
		events,
		info,
		recordDetail,
	)

	if err := w.storage.WriteFile(art.LogPath, []byte(text)); err != nil {
		w.log.Error("text report not written", "path", art.LogPath, "error", err)
		errs = errors.CombineErrors(errs, errors.Wrap(err, "text report"))
		art.LogPath = ""
	}

	if errs == nil {
		w.log.Info("crash report written", "id", id, "workspace", workspace)
	}

	return art, errs
}

type stamps struct {
	launch string
	crash  string
	uptime time.Duration
}

func renderJSON(
	st stamps,
	headers map[string]crashinfo.Value,
	info crashinfo.CrashInfo,
	recordDetail bool,
) ([]byte, error) {
	doc := map[string]any{
		"launchTime": st.launch,
		"crashTime":  st.crash,
	}

	for k, v := range headers {
		doc[k] = v
	}

	if info.Name() != "" {
		doc["crashName"] = info.Name()
	}

	if info.Reason() != "" {
		doc["crashReason"] = info.Reason()
	}

	if recordDetail {
		doc["crashInfo"] = info
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "document is not representable as JSON")
	}

	return data, nil
}

func renderText(
	st stamps,
	fileHeaders map[string]crashinfo.Value,
	status map[string]crashinfo.Value,
	events []eventlog.Record,
	info crashinfo.CrashInfo,
	recordDetail bool,
) string {
	var sb strings.Builder

	base := []pair{
		{"launch time", st.launch},
		{"crash time", st.crash},
		{"uptime", formatUptime(st.uptime)},
	}
	base = append(base, sortedPairs(fileHeaders)...)

	sb.WriteString(SectionBaseInfo + "\n")
	writeAligned(&sb, base)
	sb.WriteString(sectionGap)

	if len(status) > 0 {
		sb.WriteString(SectionStatus + "\n")

		for _, p := range sortedPairs(status) {
			sb.WriteString(p.key + ": " + p.value + "\n")
		}

		sb.WriteString(sectionGap)
	}

	if len(events) > 0 {
		sb.WriteString(SectionEvents + "\n")

		for _, r := range events {
			sb.WriteString(r.Meta + "\n")

			if r.Message != "" {
				sb.WriteString(r.Message + "\n")
			}
		}

		sb.WriteString(sectionGap)
	}

	if recordDetail {
		sb.WriteString(SectionCrashInfo + "\n")
		sb.WriteString(info.Description())
	}

	return sb.String()
}

type pair struct {
	key   string
	value string
}

func sortedPairs(m map[string]crashinfo.Value) []pair {
	pairs := make([]pair, 0, len(m))

	for _, k := range slices.Sorted(maps.Keys(m)) {
		pairs = append(pairs, pair{key: k, value: m[k].String()})
	}

	return pairs
}

// writeAligned writes "key: value" lines with values starting in the same
// display column.
func writeAligned(sb *strings.Builder, pairs []pair) {
	width := 0

	for _, p := range pairs {
		width = max(width, runewidth.StringWidth(p.key+":"))
	}

	for _, p := range pairs {
		sb.WriteString(runewidth.FillRight(p.key+":", width))
		sb.WriteString(" ")
		sb.WriteString(p.value)
		sb.WriteString("\n")
	}
}

func formatUptime(d time.Duration) string {
	if d < time.Second {
		return d.Truncate(time.Millisecond).String()
	}

	return durafmt.Parse(d.Truncate(time.Second)).LimitFirstN(2).String()
}
