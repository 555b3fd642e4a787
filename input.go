package conform

import (
	"fmt"
	"maps"
	"reflect"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Input is the source data of a Session.
//
// Values are looked up by field name. A name that is not a key of the top
// level map is treated as a dotted path into nested maps and slices, so
// "user.emails.0" finds the first email of the nested user object.
//
// Conformers may write into the input through their Context; writes are
// always made at the top level, under the exact key given.
type Input struct {
	data map[string]any
}

// NewInput creates an Input over a shallow copy of data.
func NewInput(data map[string]any) *Input {
	in := &Input{data: make(map[string]any, len(data))}
	maps.Copy(in.data, data)
	return in
}

// InputFromJSON creates an Input from a JSON object document.
func InputFromJSON(data []byte) (*Input, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: malformed JSON document", ErrInvalidInput)
	}
	result := gjson.ParseBytes(data)
	if !result.IsObject() {
		return nil, fmt.Errorf("%w: JSON document must be an object, got %s", ErrInvalidInput, result.Type)
	}

	obj, ok := result.Value().(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: JSON document must be an object", ErrInvalidInput)
	}
	return &Input{data: obj}, nil
}

// InputFromStrings creates an Input from flat string values, e.g. url.Values
// already reduced to their first value.
func InputFromStrings(data map[string]string) *Input {
	in := &Input{data: make(map[string]any, len(data))}
	for k, v := range data {
		in.data[k] = v
	}
	return in
}

// Get returns the value at path. The bool is false when nothing is found,
// which is distinct from a value that is present and nil.
func (in *Input) Get(path string) (any, bool) {
	if in == nil || in.data == nil {
		return nil, false
	}
	if value, ok := in.data[path]; ok {
		return value, true
	}
	if !strings.Contains(path, GroupPathDelimiter) {
		return nil, false
	}
	return valueAtPath(in.data, strings.Split(path, GroupPathDelimiter))
}

// Has reports whether a value exists at path.
func (in *Input) Has(path string) bool {
	_, ok := in.Get(path)
	return ok
}

// Set stores value under key.
func (in *Input) Set(key string, value any) {
	if in.data == nil {
		in.data = make(map[string]any)
	}
	in.data[key] = value
}

// Delete removes key.
func (in *Input) Delete(key string) {
	delete(in.data, key)
}

// Merge copies every key of data into the input, overwriting existing keys.
func (in *Input) Merge(data map[string]any) {
	if in.data == nil {
		in.data = make(map[string]any, len(data))
	}
	maps.Copy(in.data, data)
}

// Map returns the top level map. It is not a copy.
func (in *Input) Map() map[string]any {
	if in == nil {
		return nil
	}
	return in.data
}

// Len returns the number of top level keys.
func (in *Input) Len() int {
	if in == nil {
		return 0
	}
	return len(in.data)
}

///////////////////////////////////////////////////////////////////////////////
// Helpers
///////////////////////////////////////////////////////////////////////////////

// valueAtPath walks maps (string keyed), slices and arrays.
func valueAtPath(root any, segments []string) (any, bool) {
	cur := root
	for _, seg := range segments {
		switch node := cur.(type) {
		case map[string]any:
			next, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = next
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			cur = node[idx]
		default:
			next, ok := reflectAtSegment(cur, seg)
			if !ok {
				return nil, false
			}
			cur = next
		}
	}
	return cur, true
}

func reflectAtSegment(node any, seg string) (any, bool) {
	rv := reflect.ValueOf(node)
	if !rv.IsValid() {
		return nil, false
	}
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		mv := rv.MapIndex(reflect.ValueOf(seg).Convert(rv.Type().Key()))
		if !mv.IsValid() {
			return nil, false
		}
		return mv.Interface(), true
	case reflect.Slice, reflect.Array:
		idx, err := strconv.Atoi(seg)
		if err != nil || idx < 0 || idx >= rv.Len() {
			return nil, false
		}
		return rv.Index(idx).Interface(), true
	default:
		return nil, false
	}
}
