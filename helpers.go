package conform

import (
	"encoding"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
)

///////////////////////////////////////////////////////////////////////////////
// Value Coercion Helpers
///////////////////////////////////////////////////////////////////////////////

// Input values arrive as whatever the decoder produced: strings from forms
// and query strings, float64 and bool from JSON, typed values from Go
// callers. These helpers give conformers one way to look at them.

// ToString converts a value to its string form.
//
// Currently supports:
//   - nil (empty string)
//   - string, []byte
//   - integers, floats (shortest representation), bool
//   - encoding.TextMarshaler and fmt.Stringer
//   - slices, whose first element is converted
//
// Anything else is formatted with %v.
func ToString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case encoding.TextMarshaler:
		if text, err := val.MarshalText(); err == nil {
			return string(text)
		}
	case fmt.Stringer:
		return val.String()
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int8, reflect.Int16, reflect.Int32:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.Slice, reflect.Array:
		// Traverse down on first elements
		if rv.Len() == 0 {
			return ""
		}
		return ToString(rv.Index(0).Interface())
	case reflect.Pointer:
		if rv.IsNil() {
			return ""
		}
		return ToString(rv.Elem().Interface())
	}
	return fmt.Sprintf("%v", v)
}

func toString(v any) string { return ToString(v) }

// IsInt reports whether v is an integer, an integral float, or a string of
// decimal digits with an optional leading minus sign. Surrounding spaces
// are not accepted.
func IsInt(v any) bool {
	switch val := v.(type) {
	case nil, bool:
		return false
	case string:
		s := strings.TrimPrefix(val, "-")
		if s == "" {
			return false
		}
		for i := 0; i < len(s); i++ {
			if s[i] < '0' || s[i] > '9' {
				return false
			}
		}
		return true
	case float64:
		return val == math.Trunc(val) && !math.IsInf(val, 0)
	case float32:
		f := float64(val)
		return f == math.Trunc(f) && !math.IsInf(f, 0)
	}

	switch reflect.ValueOf(v).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

// ParseFloat strictly parses v as a number. Strings must be a complete
// float literal with no surrounding spaces.
func ParseFloat(v any) (float64, error) {
	switch val := v.(type) {
	case nil:
		return 0, fmt.Errorf("cannot convert nil to float")
	case bool:
		return 0, fmt.Errorf("cannot convert bool to float")
	case float64:
		return val, nil
	case float32:
		return float64(val), nil
	case string:
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, fmt.Errorf("error converting value to float: %w", err)
		}
		return f, nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	}
	return 0, fmt.Errorf("cannot convert %T to float", v)
}

// ToFloat leniently converts v to a float64. Strings are trimmed and read
// up to the first character that cannot be part of a number; anything that
// yields no number converts to 0.
func ToFloat(v any) float64 {
	if f, err := ParseFloat(v); err == nil {
		return f
	}
	switch val := v.(type) {
	case bool:
		if val {
			return 1
		}
		return 0
	case string:
		return leadingFloat(strings.TrimSpace(val))
	}
	return 0
}

// ToInt leniently converts v to an int64, truncating toward zero.
func ToInt(v any) int64 {
	f := ToFloat(v)
	switch {
	case math.IsNaN(f):
		return 0
	case f >= math.MaxInt64:
		return math.MaxInt64
	case f <= math.MinInt64:
		return math.MinInt64
	}
	return int64(f)
}

// leadingFloat reads the longest numeric prefix of s. "12abc" is 12 and
// "abc" is 0.
func leadingFloat(s string) float64 {
	end := 0
	seenDigit, seenDot, seenExp := false, false, false
scan:
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			seenDigit = true
		case (c == '-' || c == '+') && (i == 0 || s[i-1] == 'e' || s[i-1] == 'E'):
		case c == '.' && !seenDot && !seenExp:
			seenDot = true
		case (c == 'e' || c == 'E') && seenDigit && !seenExp:
			seenExp = true
		default:
			break scan
		}
		if seenDigit {
			end = i + 1
		}
	}
	for end > 0 {
		if f, err := strconv.ParseFloat(s[:end], 64); err == nil {
			return f
		}
		end--
	}
	return 0
}

// ParseBool parses the common boolean representations:
//   - "true", "1", "yes", "on" (case insensitive)
//   - "false", "0", "no", "off", "" (case insensitive)
//   - Standard boolean parsing using strconv.ParseBool
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "on":
		return true, nil
	case "false", "0", "no", "off", "":
		return false, nil
	default:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return false, fmt.Errorf("error converting value to bool: %w", err)
		}
		return b, nil
	}
}

// Truthy reports whether v is a non-zero value. Strings are truthy unless
// empty or "0"; collections are truthy when non-empty.
func Truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != "" && val != "0"
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0
	}
	return !rv.IsZero()
}

// IsEmpty reports whether v is nil or the empty string.
func IsEmpty(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

// Common time formats accepted by ParseTime, tried in order.
var timeFormats = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
	"01/02/2006",
	"15:04:05",
}

// ParseTime parses v as a time. time.Time values pass through, integers are
// read as Unix seconds, and strings are tried against the common formats,
// interpreting times without a zone in loc.
func ParseTime(v any, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	switch val := v.(type) {
	case time.Time:
		return val, nil
	case *time.Time:
		if val != nil {
			return *val, nil
		}
	case string:
		s := strings.TrimSpace(val)
		for _, format := range timeFormats {
			if t, err := time.ParseInLocation(format, s, loc); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("error converting %q to time.Time", val)
	}
	if IsInt(v) {
		return time.Unix(ToInt(v), 0).In(loc), nil
	}
	return time.Time{}, fmt.Errorf("cannot convert %T to time.Time", v)
}
