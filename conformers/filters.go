package conformers

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	conform "github.com/SimonDaKappa/go-conform"
)

var (
	nonDigitRegex     = regexp.MustCompile(`[^0-9]`)
	nonDigitRunRegex  = regexp.MustCompile(`[^0-9]+`)
	spaceRunRegex     = regexp.MustCompile(` +`)
	nonNameCharRegex  = regexp.MustCompile(`(?i)[^a-z ']`)
	nonCurrencyRegex  = regexp.MustCompile(`[^\-0-9.]`)
	angleEmailRegex   = regexp.MustCompile(`<([^>]+)>`)
	lastNameCommaForm = regexp.MustCompile(`, `)
	brTagRegex        = regexp.MustCompile(`(?i)<br */?>`)
	blockTagRegex     = regexp.MustCompile(`<div|<p|<table`)
)

const (
	dateLayout     = "2006-01-02"
	datetimeLayout = "2006-01-02 15:04:05"
)

// NewFilters returns the standard filter group.
func NewFilters(opts Opts) conform.Funcs {
	opts = opts.withDefaults()
	f := filters{opts: opts}

	return conform.Funcs{
		// conversions
		"string":  valueOnly(f.string),
		"int":     valueOnly(f.int),
		"float":   valueOnly(f.float),
		"decimal": valueOnly(f.float),
		"bool":    valueOnly(f.bool),
		"abs":     valueOnly(f.abs),
		"id":      valueOnly(f.id),

		// strings
		"trim":         valueOnly(f.trim),
		"digits":       valueOnly(f.digits),
		"regex":        fn(f.regex),
		"regex_remove": fn(f.regexRemove),
		"url":          valueOnly(f.url),
		"name":         valueOnly(f.name),
		"email":        valueOnly(f.email),
		"phone":        valueOnly(f.phone),
		"currency":     valueOnly(f.currency),
		"br_to_nl":     valueOnly(f.brToNl),

		"conditional_br_to_nl": valueOnly(f.conditionalBrToNl),

		// times
		"time":     valueOnly(f.time),
		"date":     valueOnly(f.date),
		"datetime": valueOnly(f.datetime),
		"age":      valueOnly(f.age),

		// replacement
		"to_default": fn(f.toDefault),
		"default":    fn(f.toDefault),
		"value":      fn(f.value),
		"null":       valueOnly(func(any) (any, error) { return nil, nil }),
		"blank":      valueOnly(func(any) (any, error) { return "", nil }),
		"callback":   fn(f.callback),

		// encodings
		"json_decode": valueOnly(f.jsonDecode),
		"json_encode": valueOnly(f.jsonEncode),
		"uuid":        valueOnly(f.uuid),

		// context reliant
		"copy":  fn(f.copy),
		"rekey": fn(f.rekey),
	}
}

type filters struct {
	opts Opts
}

func (filters) string(v any) (any, error) {
	return conform.ToString(v), nil
}

func (filters) int(v any) (any, error) {
	return int(conform.ToInt(v)), nil
}

func (filters) float(v any) (any, error) {
	return conform.ToFloat(v), nil
}

func (filters) bool(v any) (any, error) {
	return conform.Truthy(v), nil
}

// abs keeps integers integral.
func (filters) abs(v any) (any, error) {
	if conform.IsInt(v) {
		n := conform.ToInt(v)
		if n < 0 {
			n = -n
		}
		return int(n), nil
	}
	return math.Abs(conform.ToFloat(v)), nil
}

// id conforms a value to a non-negative integer.
func (filters) id(v any) (any, error) {
	n := conform.ToInt(v)
	if n < 0 {
		n = -n
	}
	return int(n), nil
}

func (filters) trim(v any) (any, error) {
	return strings.TrimSpace(conform.ToString(v)), nil
}

func (filters) digits(v any) (any, error) {
	return nonDigitRegex.ReplaceAllString(conform.ToString(v), ""), nil
}

// regex replaces pattern matches: "f.regex|<pattern>;<replacement>".
func (filters) regex(v any, params []any, _ *conform.Context) (any, error) {
	if err := needParams("f.regex", params, 2); err != nil {
		return v, err
	}
	re, err := compilePattern(params[0])
	if err != nil {
		return v, err
	}
	return re.ReplaceAllString(conform.ToString(v), conform.ToString(params[1])), nil
}

func (filters) regexRemove(v any, params []any, _ *conform.Context) (any, error) {
	if err := needParams("f.regex_remove", params, 1); err != nil {
		return v, err
	}
	re, err := compilePattern(params[0])
	if err != nil {
		return v, err
	}
	return re.ReplaceAllString(conform.ToString(v), ""), nil
}

// url trims and prefixes "http://" when no http scheme is present.
func (filters) url(v any) (any, error) {
	s := strings.TrimSpace(conform.ToString(v))
	if !strings.HasPrefix(s, "http") {
		return "http://" + s, nil
	}
	return s, nil
}

// name formats a personal name. "last, first" is reordered to
// "first last", then anything but letters, spaces and apostrophes is
// removed and the words are title cased.
func (filters) name(v any) (any, error) {
	s := strings.TrimSpace(conform.ToString(v))
	s = spaceRunRegex.ReplaceAllString(s, " ")

	parts := lastNameCommaForm.Split(s, -1)
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	s = strings.Join(parts, " ")
	s = nonNameCharRegex.ReplaceAllString(s, "")

	return cases.Title(language.English).String(strings.ToLower(s)), nil
}

// email extracts the address from "Name <address>".
func (filters) email(v any) (any, error) {
	s := conform.ToString(v)
	match := angleEmailRegex.FindStringSubmatch(s)
	if match == nil {
		return s, nil
	}
	return match[1], nil
}

// phone standardizes to digit groups separated by single spaces, keeping a
// leading "+".
func (filters) phone(v any) (any, error) {
	s := strings.TrimSpace(conform.ToString(v))
	groups := strings.TrimSpace(nonDigitRunRegex.ReplaceAllString(s, " "))
	if strings.HasPrefix(s, "+") {
		groups = "+" + groups
	}
	return groups, nil
}

// currency reads an amount from an arbitrary string and rounds it to cents.
func (filters) currency(v any) (any, error) {
	s := nonCurrencyRegex.ReplaceAllString(conform.ToString(v), "")
	return math.Round(conform.ToFloat(s)*100) / 100, nil
}

func (filters) brToNl(v any) (any, error) {
	return brTagRegex.ReplaceAllString(conform.ToString(v), "\n"), nil
}

// conditionalBrToNl leaves values that hold block level html untouched.
func (f filters) conditionalBrToNl(v any) (any, error) {
	if blockTagRegex.MatchString(conform.ToString(v)) {
		return v, nil
	}
	return f.brToNl(v)
}

func (f filters) time(v any) (any, error) {
	t, err := conform.ParseTime(v, f.opts.InputLocation)
	if err != nil {
		return v, &conform.Failure{Message: err.Error()}
	}
	return t.In(f.opts.TargetLocation), nil
}

func (f filters) date(v any) (any, error) {
	t, err := f.time(v)
	if err != nil {
		return v, err
	}
	return t.(time.Time).Format(dateLayout), nil
}

func (f filters) datetime(v any) (any, error) {
	t, err := f.time(v)
	if err != nil {
		return v, err
	}
	return t.(time.Time).Format(datetimeLayout), nil
}

// age is the number of whole years between the value and now.
func (f filters) age(v any) (any, error) {
	t, err := conform.ParseTime(v, f.opts.InputLocation)
	if err != nil {
		return v, &conform.Failure{Message: err.Error()}
	}
	return yearsBetween(t, f.opts.Now()), nil
}

func yearsBetween(from, to time.Time) int {
	to = to.In(from.Location())
	years := to.Year() - from.Year()
	if to.Month() < from.Month() || (to.Month() == from.Month() && to.Day() < from.Day()) {
		years--
	}
	return years
}

// toDefault replaces nil and "" with the first param.
func (filters) toDefault(v any, params []any, _ *conform.Context) (any, error) {
	if err := needParams("f.to_default", params, 1); err != nil {
		return v, err
	}
	if conform.IsEmpty(v) {
		return params[0], nil
	}
	return v, nil
}

func (filters) value(v any, params []any, _ *conform.Context) (any, error) {
	if err := needParams("f.value", params, 1); err != nil {
		return v, err
	}
	return params[0], nil
}

func (filters) callback(v any, params []any, _ *conform.Context) (any, error) {
	cb, err := callbackParam("f.callback", params)
	if err != nil {
		return v, err
	}
	return cb(v)
}

// jsonDecode decodes string values; other values pass through.
func (filters) jsonDecode(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return v, nil
	}
	var decoded any
	if err := json.Unmarshal([]byte(s), &decoded); err != nil {
		return v, &conform.Failure{Message: fmt.Sprintf("invalid JSON: %s", err)}
	}
	return decoded, nil
}

// jsonEncode encodes non string values; strings pass through.
func (filters) jsonEncode(v any) (any, error) {
	if _, ok := v.(string); ok {
		return v, nil
	}
	encoded, err := json.Marshal(v)
	if err != nil {
		return v, &conform.Failure{Message: fmt.Sprintf("cannot encode JSON: %s", err)}
	}
	return string(encoded), nil
}

func (filters) uuid(v any) (any, error) {
	if id, ok := v.(uuid.UUID); ok {
		return id, nil
	}
	id, err := uuid.Parse(strings.TrimSpace(conform.ToString(v)))
	if err != nil {
		return v, invalid
	}
	return id, nil
}

// copy writes the value into the input and output under the key param.
// Rules of the target field that run later see the copied value.
func (filters) copy(v any, params []any, c *conform.Context) (any, error) {
	if err := needParams("f.copy", params, 1); err != nil {
		return v, err
	}
	key := conform.ToString(params[0])
	c.Input().Set(key, v)
	c.Output()[key] = v
	return v, nil
}

// rekey moves the value to the key param, leaving nil behind.
func (f filters) rekey(v any, params []any, c *conform.Context) (any, error) {
	if _, err := f.copy(v, params, c); err != nil {
		return v, err
	}
	return nil, nil
}
