package crashinfo

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// ValueKind identifies which field of a Value is populated.
//
//go:generate go tool enumer -type=ValueKind -trimprefix=Kind -transform=lower -text -output=valuekind_enumer.go
//go:generate go run ../../tools/enumerfix valuekind_enumer.go
type ValueKind int

const (
	KindString ValueKind = iota
	KindInt
	KindFloat
	KindBool
	KindMap
)

// Value is a JSON-representable attribute or header value. The zero Value is
// the empty string.
type Value struct {
	kind ValueKind
	s    string
	i    int64
	f    float64
	b    bool
	m    map[string]Value
}

// String creates a string Value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Int creates an integer Value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float creates a floating point Value. Non-finite floats cannot be encoded as JSON.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// Bool creates a boolean Value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Map creates a nested Value. The map is copied.
func Map(m map[string]Value) Value { return Value{kind: KindMap, m: maps.Clone(m)} }

// Of converts common Go values into a Value. Anything it does not recognize is
// rendered with fmt.Sprint.
//
//nolint:gocyclo // type switch
func Of(v any) Value {
	switch x := v.(type) {
	case nil:
		return String("")
	case Value:
		return x
	case string:
		return String(x)
	case bool:
		return Bool(x)
	case int:
		return Int(int64(x))
	case int8:
		return Int(int64(x))
	case int16:
		return Int(int64(x))
	case int32:
		return Int(int64(x))
	case int64:
		return Int(x)
	case uint:
		return Int(int64(x)) //nolint:gosec // attribute values are informational
	case uint8:
		return Int(int64(x))
	case uint16:
		return Int(int64(x))
	case uint32:
		return Int(int64(x))
	case uint64:
		return Int(int64(x)) //nolint:gosec // attribute values are informational
	case float32:
		return Float(float64(x))
	case float64:
		return Float(x)
	case map[string]Value:
		return Map(x)
	case map[string]any:
		m := make(map[string]Value, len(x))
		for k, item := range x {
			m[k] = Of(item)
		}

		return Value{kind: KindMap, m: m}
	case error:
		return String(x.Error())
	case fmt.Stringer:
		return String(x.String())
	default:
		return String(fmt.Sprint(x))
	}
}

// Kind returns the populated kind.
func (v Value) Kind() ValueKind { return v.kind }

// AsString returns the string payload and whether v is a string.
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

// AsInt returns the integer payload and whether v is an integer.
func (v Value) AsInt() (int64, bool) { return v.i, v.kind == KindInt }

// AsFloat returns the float payload and whether v is a float.
func (v Value) AsFloat() (float64, bool) { return v.f, v.kind == KindFloat }

// AsBool returns the boolean payload and whether v is a boolean.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsMap returns a copy of the nested map and whether v is a map.
func (v Value) AsMap() (map[string]Value, bool) {
	if v.kind != KindMap {
		return nil, false
	}

	return maps.Clone(v.m), true
}

// String renders v for the text report. Maps render as {k: v, ...} with sorted keys.
func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindMap:
		return formatMap(v.m)
	default:
		return v.s
	}
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindInt:
		return json.Marshal(v.i)
	case KindFloat:
		return json.Marshal(v.f)
	case KindBool:
		return json.Marshal(v.b)
	case KindMap:
		if v.m == nil {
			return []byte("{}"), nil
		}

		return json.Marshal(v.m)
	default:
		return json.Marshal(v.s)
	}
}

func formatMap(m map[string]Value) string {
	var sb strings.Builder

	sb.WriteByte('{')

	for i, k := range slices.Sorted(maps.Keys(m)) {
		if i > 0 {
			sb.WriteString(", ")
		}

		sb.WriteString(k)
		sb.WriteString(": ")
		sb.WriteString(m[k].String())
	}

	sb.WriteByte('}')

	return sb.String()
}
