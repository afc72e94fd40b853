// Package clock provides the time source and timestamp layouts used by crash reports.
package clock

import (
	"strconv"
	"sync"
	"time"
)

const (
	// FileNameLayout names report artifacts (yyyy-MM-dd-HHmmssZ). Names sort chronologically.
	FileNameLayout = "2006-01-02-150405-0700"

	// TimestampLayout is the human readable layout used inside reports.
	TimestampLayout = "2006-01-02 15:04:05 -0700"

	// MetaLayout prefixes event log records.
	MetaLayout = "01-02 15:04:05"
)

// Clock is a source of the current time.
type Clock interface {
	Now() time.Time
}

// System is the wall clock.
type System struct{}

// Now returns time.Now.
func (System) Now() time.Time {
	return time.Now()
}

// Fixed is a manually driven clock for tests.
type Fixed struct {
	mu  sync.Mutex
	now time.Time
}

// NewFixed creates a Fixed clock set to t.
func NewFixed(t time.Time) *Fixed {
	return &Fixed{now: t}
}

// Now returns the current fixed time.
func (f *Fixed) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.now
}

// Set moves the clock to t.
func (f *Fixed) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.now = t
}

// Advance moves the clock forward by d.
func (f *Fixed) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.now = f.now.Add(d)
}

// Stamp renders t as "<TimestampLayout> (<unix seconds>)", e.g.
// "2026-10-19 14:03:07 +0200 (1792411387.512)".
func Stamp(t time.Time) string {
	secs := float64(t.UnixMilli()) / 1e3

	return t.Format(TimestampLayout) + " (" + strconv.FormatFloat(secs, 'f', 3, 64) + ")"
}

// FileName returns the artifact base name for t.
func FileName(t time.Time) string {
	return t.Format(FileNameLayout)
}

// ParseFileName is the inverse of FileName.
func ParseFileName(name string) (time.Time, error) {
	return time.Parse(FileNameLayout, name)
}
