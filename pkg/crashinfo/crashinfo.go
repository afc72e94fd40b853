// Package crashinfo provides the immutable snapshot of a captured fault.
package crashinfo

import (
	"encoding/json"
	"maps"
	"slices"
	"strings"
)

// CrashInfo describes a single fault: a panic reaching a recovery boundary or a
// fatal signal. It is built once by the handler and never modified afterwards.
type CrashInfo struct {
	name        string
	reason      string
	attributes  map[string]Value
	stackFrames []string
}

// New creates a CrashInfo. attributes and frames are copied.
func New(name, reason string, attributes map[string]Value, frames []string) CrashInfo {
	return CrashInfo{
		name:        name,
		reason:      reason,
		attributes:  maps.Clone(attributes),
		stackFrames: slices.Clone(frames),
	}
}

// Name returns the fault classifier (panic value type or signal mnemonic).
func (c CrashInfo) Name() string { return c.name }

// Reason returns the human readable cause, empty when unknown.
func (c CrashInfo) Reason() string { return c.reason }

// Attributes returns a copy of the structured context.
func (c CrashInfo) Attributes() map[string]Value { return maps.Clone(c.attributes) }

// Attribute returns a single attribute.
func (c CrashInfo) Attribute(key string) (Value, bool) {
	v, ok := c.attributes[key]

	return v, ok
}

// StackFrames returns a copy of the call stack, innermost frame first.
func (c CrashInfo) StackFrames() []string { return slices.Clone(c.stackFrames) }

// IsZero reports whether c was never populated.
func (c CrashInfo) IsZero() bool {
	return c.name == "" && c.reason == "" && len(c.attributes) == 0 && len(c.stackFrames) == 0
}

// Description renders the crash info section of the text report.
func (c CrashInfo) Description() string {
	var sb strings.Builder

	sb.WriteString("name: ")
	sb.WriteString(c.name)
	sb.WriteByte('\n')

	if c.reason != "" {
		sb.WriteString("reason: ")
		sb.WriteString(c.reason)
		sb.WriteByte('\n')
	}

	if len(c.attributes) > 0 {
		sb.WriteString("attributes: ")
		sb.WriteString(formatMap(c.attributes))
		sb.WriteByte('\n')
	}

	sb.WriteString("call stack symbols:\n")
	sb.WriteString(strings.Join(c.stackFrames, "\n"))
	sb.WriteByte('\n')

	return sb.String()
}

// String implements fmt.Stringer.
func (c CrashInfo) String() string {
	return c.Description()
}

type crashInfoJSON struct {
	Name        string           `json:"name"`
	Reason      string           `json:"reason,omitempty"`
	Attributes  map[string]Value `json:"attributes,omitempty"`
	StackFrames []string         `json:"stackFrames"`
}

// MarshalJSON implements json.Marshaler.
func (c CrashInfo) MarshalJSON() ([]byte, error) {
	frames := c.stackFrames
	if frames == nil {
		frames = []string{}
	}

	return json.Marshal(crashInfoJSON{
		Name:        c.name,
		Reason:      c.reason,
		Attributes:  c.attributes,
		StackFrames: frames,
	})
}
