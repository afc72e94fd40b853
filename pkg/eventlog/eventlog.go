// Package eventlog provides the bounded trace log whose contents are merged into
// crash reports.
package eventlog

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/emirpasic/gods/queues/circularbuffer"

	"github.com/smykla-labs/crashtrace/pkg/clock"
)

// DefaultMaxCount is the number of records kept when no limit is configured.
const DefaultMaxCount = 50

// Session labels the subsystem a record comes from.
type Session string

const (
	SessionApp  Session = "app"
	SessionLive Session = "live"
)

// Record is a single trace entry.
type Record struct {
	// Meta holds the timestamp, session and call site.
	Meta string `json:"meta"`

	// Message holds the rendered items, empty when none were given.
	Message string `json:"message,omitempty"`
}

// CallSite identifies where a record was issued.
type CallSite struct {
	File     string
	Function string
	Line     int
}

// String renders the call site as "<file> <function> <line:N>".
func (c CallSite) String() string {
	return filepath.Base(c.File) + " " + c.Function + " <line:" + strconv.Itoa(c.Line) + ">"
}

// Caller captures the call site skip frames above the caller of Caller.
func Caller(skip int) CallSite {
	pc, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return CallSite{File: "unknown", Function: "unknown"}
	}

	fn := "unknown"
	if f := runtime.FuncForPC(pc); f != nil {
		fn = f.Name()
		if i := strings.LastIndexByte(fn, '/'); i >= 0 {
			fn = fn[i+1:]
		}
	}

	return CallSite{File: file, Function: fn, Line: line}
}

// CodeMeta renders a call site description for callers that only know the
// function name and line.
func CodeMeta(function string, line int) string {
	if function == "" {
		function = "unknown"
	}

	return function + " <line:" + strconv.Itoa(line) + ">"
}

// Option configures a Log.
type Option func(*Log)

// WithMaxCount sets the record limit.
func WithMaxCount(n int) Option {
	return func(l *Log) {
		l.maxCount = clampMax(n)
	}
}

// WithClock sets the clock used for record timestamps.
func WithClock(c clock.Clock) Option {
	return func(l *Log) {
		if c != nil {
			l.clock = c
		}
	}
}

// Log is a bounded FIFO of records. When full, appending evicts the oldest
// record. It is safe for concurrent use.
type Log struct {
	mu       sync.Mutex
	buf      *circularbuffer.Queue
	maxCount int
	clock    clock.Clock
}

// New creates a Log.
func New(opts ...Option) *Log {
	l := &Log{
		maxCount: DefaultMaxCount,
		clock:    clock.System{},
	}

	for _, opt := range opts {
		opt(l)
	}

	l.buf = circularbuffer.New(l.maxCount)

	return l
}

// Record appends a record for the caller's call site. Items are rendered with
// fmt.Sprint and joined with ", ".
func (l *Log) Record(session Session, items ...any) {
	l.RecordDepth(1, session, items...)
}

// RecordDepth is Record for wrappers: depth is the number of extra frames
// between the user call site and RecordDepth.
func (l *Log) RecordDepth(depth int, session Session, items ...any) {
	l.RecordAt(session, Caller(depth+1), items...)
}

// RecordAt appends a record for an explicit call site.
func (l *Log) RecordAt(session Session, site CallSite, items ...any) {
	l.append(Record{
		Meta:    l.meta(string(session), site.String()),
		Message: renderItems(items),
	})
}

// CustomRecord appends a record with a free-text session label and code
// description instead of a captured call site.
func (l *Log) CustomRecord(label, code, message string) {
	l.append(Record{
		Meta:    l.meta(label, code),
		Message: message,
	})
}

// Snapshot returns the records in insertion order without clearing the log.
func (l *Log) Snapshot() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()

	return toRecords(l.buf.Values())
}

// Len returns the number of records held.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.buf.Size()
}

// MaxCount returns the record limit.
func (l *Log) MaxCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.maxCount
}

// SetMaxCount changes the record limit. Values below 1 are treated as 1.
// Shrinking evicts the oldest records immediately.
func (l *Log) SetMaxCount(n int) {
	n = clampMax(n)

	l.mu.Lock()
	defer l.mu.Unlock()

	if n == l.maxCount {
		return
	}

	values := l.buf.Values()
	if len(values) > n {
		values = values[len(values)-n:]
	}

	buf := circularbuffer.New(n)
	for _, v := range values {
		buf.Enqueue(v)
	}

	l.buf = buf
	l.maxCount = n
}

// Reset drops every record.
func (l *Log) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.buf.Clear()
}

func (l *Log) append(r Record) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.buf.Full() {
		l.buf.Dequeue()
	}

	l.buf.Enqueue(r)
}

func (l *Log) meta(session, site string) string {
	return "[" + l.clock.Now().Format(clock.MetaLayout) + "][" + session + "] " + site
}

func renderItems(items []any) string {
	if len(items) == 0 {
		return ""
	}

	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = fmt.Sprint(item)
	}

	return "> " + strings.Join(parts, ", ")
}

func toRecords(values []any) []Record {
	records := make([]Record, 0, len(values))

	for _, v := range values {
		if r, ok := v.(Record); ok {
			records = append(records, r)
		}
	}

	return records
}

func clampMax(n int) int {
	if n < 1 {
		return 1
	}

	return n
}
