// Package document provides the insertion-ordered object used for every rendered
// value, so declaration order survives JSON encoding.
package document

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Object is a string-keyed map that remembers insertion order.
// The zero value is ready to use.
type Object struct {
	keys   []string
	values map[string]any
}

// New creates an empty object with room for n keys
func New(n int) *Object {
	return &Object{
		keys:   make([]string, 0, n),
		values: make(map[string]any, n),
	}
}

// FromMap builds an object from a map, inserting keys in the given order.
// Keys of m not listed in order are appended in no particular order.
func FromMap(m map[string]any, order ...string) *Object {
	o := New(len(m))
	for _, k := range order {
		if v, ok := m[k]; ok {
			o.Set(k, v)
		}
	}
	for k, v := range m {
		if !o.Has(k) {
			o.Set(k, v)
		}
	}
	return o
}

// Set stores value under key. Existing keys keep their position.
func (o *Object) Set(key string, value any) {
	if o.values == nil {
		o.values = make(map[string]any)
	}
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = value
}

// Get returns the value stored under key
func (o *Object) Get(key string) (any, bool) {
	if o == nil || o.values == nil {
		return nil, false
	}
	v, ok := o.values[key]
	return v, ok
}

// Has reports whether key is present
func (o *Object) Has(key string) bool {
	_, ok := o.Get(key)
	return ok
}

// Delete removes key
func (o *Object) Delete(key string) {
	if o == nil || o.values == nil {
		return
	}
	if _, ok := o.values[key]; !ok {
		return
	}
	delete(o.values, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	keys := make([]string, len(o.keys))
	copy(keys, o.keys)
	return keys
}

// Len returns the number of keys
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

// Range calls fn for each key in order until fn returns false
func (o *Object) Range(fn func(key string, value any) bool) {
	if o == nil {
		return
	}
	for _, k := range o.keys {
		if !fn(k, o.values[k]) {
			return
		}
	}
}

// Clone returns a deep copy; nested objects and slices are copied too
func (o *Object) Clone() *Object {
	if o == nil {
		return nil
	}
	c := New(len(o.keys))
	for _, k := range o.keys {
		c.Set(k, cloneValue(o.values[k]))
	}
	return c
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case *Object:
		return t.Clone()
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = cloneValue(t[i])
		}
		return out
	default:
		return v
	}
}

// Merge deep-merges other into a copy of o. Values from other win on
// conflicts, except when both sides hold objects, which are merged recursively.
// Keys only present in other are appended after the keys of o.
func (o *Object) Merge(other *Object) *Object {
	result := o.Clone()
	if result == nil {
		result = New(other.Len())
	}
	other.Range(func(key string, value any) bool {
		if existing, ok := result.Get(key); ok {
			left, lok := existing.(*Object)
			right, rok := value.(*Object)
			if lok && rok {
				result.Set(key, left.Merge(right))
				return true
			}
		}
		result.Set(key, cloneValue(value))
		return true
	})
	return result
}

// Reorder moves the listed keys to the front in the given order.
// Unknown keys in order are ignored; unlisted keys keep their relative order.
func (o *Object) Reorder(order []string) {
	if o == nil {
		return
	}
	keys := make([]string, 0, len(o.keys))
	seen := make(map[string]bool, len(order))
	for _, k := range order {
		if _, ok := o.values[k]; ok && !seen[k] {
			keys = append(keys, k)
			seen[k] = true
		}
	}
	for _, k := range o.keys {
		if !seen[k] {
			keys = append(keys, k)
		}
	}
	o.keys = keys
}

// ToMap converts the object, and nested objects, into plain maps
func (o *Object) ToMap() map[string]any {
	if o == nil {
		return nil
	}
	m := make(map[string]any, len(o.keys))
	for _, k := range o.keys {
		m[k] = toPlain(o.values[k])
	}
	return m
}

func toPlain(v any) any {
	switch t := v.(type) {
	case *Object:
		return t.ToMap()
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = toPlain(t[i])
		}
		return out
	default:
		return v
	}
}

// MarshalJSON encodes the object with its keys in insertion order
func (o *Object) MarshalJSON() ([]byte, error) {
	if o == nil {
		return []byte("null"), nil
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		value, err := json.Marshal(o.values[k])
		if err != nil {
			return nil, fmt.Errorf("failed to encode %q: %w", k, err)
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object preserving key order.
// Nested objects decode to *Object and numbers to json.Number, so
// integers beyond float64 precision keep their digits.
func (o *Object) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("document: expected object, got %v", tok)
	}

	decoded, err := decodeObject(dec)
	if err != nil {
		return err
	}
	*o = *decoded
	return nil
}

func decodeObject(dec *json.Decoder) (*Object, error) {
	o := New(0)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("document: expected key, got %v", tok)
		}
		value, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		o.Set(key, value)
	}
	// closing brace
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return o, nil
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}
	switch delim {
	case '{':
		return decodeObject(dec)
	case '[':
		arr := make([]any, 0)
		for dec.More() {
			v, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return arr, nil
	default:
		return nil, fmt.Errorf("document: unexpected delimiter %v", delim)
	}
}
