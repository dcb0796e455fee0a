package state

import (
	"bytes"
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	// KindNull is the zero Value and the decoded form of JSON null.
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindMap
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindMap:
		return "map"
	case KindList:
		return "list"
	default:
		return "unknown"
	}
}

// Value is a JSON-shaped tagged union: string, number, bool, map, list or null.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
	m    Map
	list []Value
}

// Map is a mapping from keys to values. Accumulated proposal state is a Map.
type Map map[string]Value

// Null returns the null value.
func Null() Value { return Value{} }

// String wraps s.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Number wraps f.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Bool wraps b.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Object wraps m. A nil map becomes an empty one.
func Object(m Map) Value {
	if m == nil {
		m = Map{}
	}
	return Value{kind: KindMap, m: m}
}

// List wraps items.
func List(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: KindList, list: items}
}

// Kind reports which variant v holds.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsString returns the string variant.
func (v Value) AsString() (string, bool) { return v.str, v.kind == KindString }

// AsNumber returns the number variant.
func (v Value) AsNumber() (float64, bool) { return v.num, v.kind == KindNumber }

// AsBool returns the bool variant.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsMap returns the map variant. The returned map is shared with v.
func (v Value) AsMap() (Map, bool) { return v.m, v.kind == KindMap }

// AsList returns the list variant. The returned slice is shared with v.
func (v Value) AsList() ([]Value, bool) { return v.list, v.kind == KindList }

// FromAny converts the output of a generic JSON decode (or hand-built literals)
// into a Value. Unsupported Go types yield an error.
func FromAny(in any) (Value, error) {
	switch t := in.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case float64:
		return Number(t), nil
	case float32:
		return Number(float64(t)), nil
	case int:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("state: number %q: %w", t.String(), err)
		}
		return Number(f), nil
	case map[string]any:
		m := make(Map, len(t))
		for k, raw := range t {
			v, err := FromAny(raw)
			if err != nil {
				return Value{}, fmt.Errorf("%s: %w", k, err)
			}
			m[k] = v
		}
		return Object(m), nil
	case Map:
		return Object(t), nil
	case []any:
		items := make([]Value, 0, len(t))
		for i, raw := range t {
			v, err := FromAny(raw)
			if err != nil {
				return Value{}, fmt.Errorf("%d: %w", i, err)
			}
			items = append(items, v)
		}
		return List(items...), nil
	case []Value:
		return List(t...), nil
	default:
		return Value{}, fmt.Errorf("state: unsupported type %T", in)
	}
}

// Any converts v back into plain Go values (map[string]any, []any, float64, ...).
func (v Value) Any() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	case KindMap:
		return v.m.Any()
	case KindList:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			out[i] = item.Any()
		}
		return out
	default:
		return nil
	}
}

// Any converts m into a map[string]any.
func (m Map) Any() map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v.Any()
	}
	return out
}

// Clone returns a deep copy of m.
func (m Map) Clone() Map {
	if m == nil {
		return nil
	}
	out := make(Map, len(m))
	for k, v := range m {
		out[k] = v.Clone()
	}
	return out
}

// Clone returns a deep copy of v.
func (v Value) Clone() Value {
	switch v.kind {
	case KindMap:
		return Object(v.m.Clone())
	case KindList:
		items := make([]Value, len(v.list))
		for i, item := range v.list {
			items[i] = item.Clone()
		}
		return List(items...)
	default:
		return v
	}
}

// Equal reports deep equality between two values.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return v.str == other.str
	case KindNumber:
		return v.num == other.num
	case KindBool:
		return v.b == other.b
	case KindMap:
		return v.m.Equal(other.m)
	case KindList:
		if len(v.list) != len(other.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(other.list[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// Equal reports deep equality between two maps.
func (m Map) Equal(other Map) bool {
	if len(m) != len(other) {
		return false
	}
	for k, v := range m {
		ov, ok := other[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Any())
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	decoded, err := FromAny(raw)
	if err != nil {
		return err
	}
	*v = decoded
	return nil
}

// ErrNotObject is returned when a JSON document expected to be an object is not.
var ErrNotObject = errors.New("state: expected a JSON object")

// UnmarshalJSON implements json.Unmarshaler. JSON null decodes to an empty map.
func (m *Map) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*m = Map{}
		return nil
	}
	var v Value
	if err := v.UnmarshalJSON(data); err != nil {
		return err
	}
	decoded, ok := v.AsMap()
	if !ok {
		return ErrNotObject
	}
	*m = decoded
	return nil
}

// Decode parses a JSON object into a Map.
func Decode(data []byte) (Map, error) {
	var v Value
	if err := v.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	if v.IsNull() {
		return Map{}, nil
	}
	m, ok := v.AsMap()
	if !ok {
		return nil, ErrNotObject
	}
	return m, nil
}
