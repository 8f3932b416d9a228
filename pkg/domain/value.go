package domain

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind identifies the variant held by a Value
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindStructured
)

// String returns the kind name
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindStructured:
		return "structured"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is a tagged variant for signal and config values.
// The zero Value is null.
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
	v    any
}

// Null returns the null value
func Null() Value { return Value{} }

// Bool returns a boolean value
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number returns a numeric value
func Number(n float64) Value { return Value{kind: KindNumber, n: n} }

// Int returns a numeric value from an integer
func Int(n int) Value { return Value{kind: KindNumber, n: float64(n)} }

// String returns a string value
func String(s string) Value { return Value{kind: KindString, s: s} }

// Structured wraps maps, slices and other composite payloads.
// A nil payload yields the null value.
func Structured(v any) Value {
	if v == nil {
		return Value{}
	}
	return Value{kind: KindStructured, v: v}
}

// ValueOf converts a native Go value into a Value
func ValueOf(x any) Value {
	switch t := x.(type) {
	case nil:
		return Value{}
	case Value:
		return t
	case *Value:
		if t == nil {
			return Value{}
		}
		return *t
	case bool:
		return Bool(t)
	case int:
		return Number(float64(t))
	case int8:
		return Number(float64(t))
	case int16:
		return Number(float64(t))
	case int32:
		return Number(float64(t))
	case int64:
		return Number(float64(t))
	case uint:
		return Number(float64(t))
	case uint8:
		return Number(float64(t))
	case uint16:
		return Number(float64(t))
	case uint32:
		return Number(float64(t))
	case uint64:
		return Number(float64(t))
	case float32:
		return Number(float64(t))
	case float64:
		return Number(t)
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return Number(f)
		}
		return String(t.String())
	case string:
		return String(t)
	default:
		return Structured(t)
	}
}

// Kind returns the variant held by v
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v holds no value
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsBlank reports whether v is null, a whitespace-only string, or an empty structured payload
func (v Value) IsBlank() bool {
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return strings.TrimSpace(v.s) == ""
	case KindStructured:
		return v.v == nil
	default:
		return false
	}
}

// AsBool coerces v to a bool.
// Numbers are true when non-zero; strings are parsed with strconv.ParseBool.
func (v Value) AsBool() (bool, bool) {
	switch v.kind {
	case KindBool:
		return v.b, true
	case KindNumber:
		return v.n != 0, true
	case KindString:
		b, err := strconv.ParseBool(strings.TrimSpace(v.s))
		if err != nil {
			return false, false
		}
		return b, true
	default:
		return false, false
	}
}

// AsNumber coerces v to a float64
func (v Value) AsNumber() (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.n, true
	case KindBool:
		if v.b {
			return 1, true
		}
		return 0, true
	case KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.s), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// AsInt coerces v to an int, truncating fractional numbers
func (v Value) AsInt() (int, bool) {
	f, ok := v.AsNumber()
	if !ok {
		return 0, false
	}
	return int(f), true
}

// AsString coerces v to a string.
// Structured payloads are not converted.
func (v Value) AsString() (string, bool) {
	switch v.kind {
	case KindString:
		return v.s, true
	case KindBool:
		return strconv.FormatBool(v.b), true
	case KindNumber:
		return strconv.FormatFloat(v.n, 'f', -1, 64), true
	default:
		return "", false
	}
}

// Interface returns the native Go representation of v
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.n
	case KindString:
		return v.s
	case KindStructured:
		return v.v
	default:
		return nil
	}
}

// Equal reports whether v and o hold the same kind and payload
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindNumber:
		return v.n == o.n
	case KindString:
		return v.s == o.s
	default:
		return reflect.DeepEqual(v.v, o.v)
	}
}

// String renders v for logs
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindStructured:
		data, err := json.Marshal(v.v)
		if err != nil {
			return fmt.Sprintf("%v", v.v)
		}
		return string(data)
	default:
		s, _ := v.AsString()
		return s
	}
}

// MarshalJSON encodes v as its natural JSON scalar
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// UnmarshalJSON decodes any JSON value into v
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to unmarshal value: %w", err)
	}
	*v = ValueOf(raw)
	return nil
}

// MarshalYAML encodes v as its natural YAML scalar
func (v Value) MarshalYAML() (interface{}, error) {
	return v.Interface(), nil
}

// UnmarshalYAML decodes any YAML node into v
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	var raw any
	if err := node.Decode(&raw); err != nil {
		return fmt.Errorf("failed to decode value: %w", err)
	}
	*v = ValueOf(raw)
	return nil
}
