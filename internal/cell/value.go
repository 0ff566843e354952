package cell

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Value is a sealed interface representing a single cell value.
// Only Empty, Text, Int, Bool and Tags implement it.
type Value interface {
	cellValue() // Sealed - only these types implement it
}

// Empty represents a missing or null cell.
type Empty struct{}

func (Empty) cellValue() {}

// MarshalJSON implements json.Marshaler for Empty.
func (Empty) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// Text represents a string cell.
type Text string

func (Text) cellValue() {}

// Int represents an integer cell. Always int64, never float.
type Int int64

func (Int) cellValue() {}

// Bool represents a checkbox cell.
type Bool bool

func (Bool) cellValue() {}

// Tags represents a tag-list cell. Order is significant: the first tag is
// the primary tag used for sorting.
type Tags []string

func (Tags) cellValue() {}

// Primary returns the first tag, or "" for an empty list.
func (t Tags) Primary() string {
	if len(t) == 0 {
		return ""
	}
	return t[0]
}

// Kind names the variant of a Value.
type Kind string

const (
	KindEmpty Kind = "empty"
	KindText  Kind = "text"
	KindInt   Kind = "number"
	KindBool  Kind = "checkbox"
	KindTags  Kind = "tags"
)

// KindOf returns the kind of v. A nil Value is treated as Empty.
func KindOf(v Value) Kind {
	switch v.(type) {
	case Text:
		return KindText
	case Int:
		return KindInt
	case Bool:
		return KindBool
	case Tags:
		return KindTags
	default:
		return KindEmpty
	}
}

// String renders the display text of a value. This is the text that filters
// match against.
//
//	Empty -> ""
//	Text  -> the string itself
//	Int   -> base-10 digits
//	Bool  -> "true" / "false"
//	Tags  -> tags joined by ", "
func String(v Value) string {
	switch val := v.(type) {
	case Text:
		return string(val)
	case Int:
		return strconv.FormatInt(int64(val), 10)
	case Bool:
		return strconv.FormatBool(bool(val))
	case Tags:
		return strings.Join(val, ", ")
	default:
		return ""
	}
}

// IsEmpty reports whether v carries no value. An empty tag list and an
// empty string are both considered empty.
func IsEmpty(v Value) bool {
	switch val := v.(type) {
	case nil, Empty:
		return true
	case Text:
		return val == ""
	case Tags:
		return len(val) == 0
	default:
		return false
	}
}

// Equal reports whether two values are identical in kind and content.
func Equal(a, b Value) bool {
	if a == nil {
		a = Empty{}
	}
	if b == nil {
		b = Empty{}
	}
	switch av := a.(type) {
	case Empty:
		_, ok := b.(Empty)
		return ok
	case Text:
		bv, ok := b.(Text)
		return ok && av == bv
	case Int:
		bv, ok := b.(Int)
		return ok && av == bv
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Tags:
		bv, ok := b.(Tags)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if av[i] != bv[i] {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Clone returns a copy of v that shares no memory with it.
func Clone(v Value) Value {
	if t, ok := v.(Tags); ok {
		out := make(Tags, len(t))
		copy(out, t)
		return out
	}
	if v == nil {
		return Empty{}
	}
	return v
}

// FromAny converts a decoded Go value (from JSON, YAML or CUE) into a Value.
// Floats are rejected. Tag lists may be given as strings or as objects with a
// "name" field.
func FromAny(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Empty{}, nil
	case Value:
		return val, nil
	case string:
		return Text(val), nil
	case bool:
		return Bool(val), nil
	case int:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case uint64:
		if val > 1<<63-1 {
			return nil, fmt.Errorf("integer out of int64 range: %d", val)
		}
		return Int(val), nil
	case json.Number:
		return numberToInt(string(val))
	case float64:
		if val == float64(int64(val)) {
			return Int(int64(val)), nil
		}
		return nil, fmt.Errorf("floats are not allowed in cells: %v", val)
	case float32:
		return nil, fmt.Errorf("floats are not allowed in cells: %v", val)
	case []string:
		return Tags(append([]string(nil), val...)), nil
	case []any:
		tags := make(Tags, 0, len(val))
		for i, elem := range val {
			name, err := tagName(elem)
			if err != nil {
				return nil, fmt.Errorf("tags[%d]: %w", i, err)
			}
			tags = append(tags, name)
		}
		return tags, nil
	default:
		return nil, fmt.Errorf("unsupported cell type: %T", v)
	}
}

// tagName extracts a tag label from either a string or a {name: ...} object.
func tagName(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case map[string]any:
		name, ok := val["name"].(string)
		if !ok {
			return "", fmt.Errorf("tag object has no string name")
		}
		return name, nil
	default:
		return "", fmt.Errorf("unsupported tag type: %T", v)
	}
}

func numberToInt(s string) (Value, error) {
	if strings.ContainsAny(s, ".eE") {
		return nil, fmt.Errorf("floats are not allowed in cells: %s", s)
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("number out of int64 range: %s", s)
	}
	return Int(n), nil
}

// Decode parses a single JSON value into a Value.
// JSON null decodes to Empty.
func Decode(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if _, ok := raw.(map[string]any); ok {
		return nil, fmt.Errorf("objects are not allowed in cells")
	}
	return FromAny(raw)
}

// Encode marshals a Value to JSON bytes.
func Encode(v Value) ([]byte, error) {
	switch val := v.(type) {
	case nil, Empty:
		return []byte("null"), nil
	case Text:
		return json.Marshal(string(val))
	case Int:
		return json.Marshal(int64(val))
	case Bool:
		return json.Marshal(bool(val))
	case Tags:
		if val == nil {
			return []byte("[]"), nil
		}
		return json.Marshal([]string(val))
	default:
		return nil, fmt.Errorf("unknown cell type: %T", v)
	}
}

// Values maps column ids to cell values for one record.
type Values map[string]Value

// Keys returns the column ids in sorted order.
func (vs Values) Keys() []string {
	keys := make([]string, 0, len(vs))
	for k := range vs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the value for a column, or Empty when absent.
func (vs Values) Get(column string) Value {
	if v, ok := vs[column]; ok && v != nil {
		return v
	}
	return Empty{}
}

// Clone returns a deep copy of vs.
func (vs Values) Clone() Values {
	out := make(Values, len(vs))
	for k, v := range vs {
		out[k] = Clone(v)
	}
	return out
}

// MarshalJSON implements json.Marshaler with sorted keys.
func (vs Values) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range vs.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, fmt.Errorf("marshal key %q: %w", k, err)
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')

		valBytes, err := Encode(vs[k])
		if err != nil {
			return nil, fmt.Errorf("marshal value for key %q: %w", k, err)
		}
		buf.Write(valBytes)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler. Each value is decoded with the
// strict cell rules (no floats, no nested objects).
func (vs *Values) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*vs = make(Values, len(raw))
	for k, v := range raw {
		val, err := Decode(v)
		if err != nil {
			return fmt.Errorf("column %q: %w", k, err)
		}
		(*vs)[k] = val
	}
	return nil
}

// ValuesFromMap converts a generic map (e.g. decoded YAML) into Values.
func ValuesFromMap(m map[string]any) (Values, error) {
	out := make(Values, len(m))
	for k, raw := range m {
		v, err := FromAny(raw)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}
