package conformers

import (
	"net"
	"net/mail"
	"net/url"
	"reflect"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	conform "github.com/SimonDaKappa/go-conform"
)

var (
	nameRegex      = regexp.MustCompile(`(?i)^[a-z ']{2,}$`)
	zipRegex       = regexp.MustCompile(`^([0-9]{5})(-[0-9]{4})?$`)
	emailLineRegex = regexp.MustCompile(`^[^<]*?<[^>]+>$`)
	titleRegex     = regexp.MustCompile(`(?i)[^a-z0-9_\- ']`)
)

// NewValidators returns the standard validator group.
func NewValidators(opts Opts) conform.Funcs {
	opts = opts.withDefaults()
	v := validators{opts: opts}

	return conform.Funcs{
		// presence
		"filled":    check(func(x any) bool { return !conform.IsEmpty(x) }),
		"blank":     check(func(x any) bool { return x == "" }),
		"not_blank": check(func(x any) bool { return x != "" }),
		"true":      check(conform.Truthy),
		"false":     check(func(x any) bool { return !conform.Truthy(x) }),

		// types
		"int":   check(conform.IsInt),
		"float": check(isFloat),
		"bool":  check(isBool),
		"json":  check(func(x any) bool { return gjson.Valid(conform.ToString(x)) }),
		"uuid":  check(isUUID),

		// comparison
		"value":       fn(v.value),
		"loose_value": fn(v.looseValue),
		"in":          fn(v.in),
		"regex":       fn(v.regex),
		"callback":    fn(v.callback),

		// numbers
		"min":   fn(v.min),
		"gte":   fn(v.min),
		"gt":    fn(v.gt),
		"max":   fn(v.max),
		"lte":   fn(v.max),
		"lt":    fn(v.lt),
		"range": fn(v.rangeOf),

		// lengths
		"length":       fn(v.length),
		"length_min":   fn(v.lengthMin),
		"length_gte":   fn(v.lengthMin),
		"length_gt":    fn(v.lengthGt),
		"length_max":   fn(v.lengthMax),
		"length_lte":   fn(v.lengthMax),
		"length_lt":    fn(v.lengthLt),
		"length_range": fn(v.lengthRange),

		// formats
		"email":               check(isEmail),
		"email_line":          check(isEmailLine),
		"url":                 check(isURL),
		"ip4":                 check(isIPv4),
		"ip6":                 check(isIPv6),
		"ip":                  check(func(x any) bool { return net.ParseIP(conform.ToString(x)) != nil }),
		"name":                check(func(x any) bool { return nameRegex.MatchString(conform.ToString(x)) }),
		"zip":                 check(func(x any) bool { return zipRegex.MatchString(conform.ToString(x)) }),
		"title":               check(isTitle),
		"password":            check(func(x any) bool { return inLength(x, 3, 50) }),
		"phone":               valueOnly(v.phone),
		"international_phone": valueOnly(v.internationalPhone),
		"mime":                fn(v.mime),
		"not_mime":            fn(v.notMime),

		// times
		"date":     check(isDate),
		"time":     valueOnly(v.time),
		"datetime": valueOnly(v.time),
		"timezone": valueOnly(v.timezone),
		"time_min": fn(v.timeMin),
		"time_max": fn(v.timeMax),
		"age_min":  fn(v.ageMin),
		"age_max":  fn(v.ageMax),
	}
}

type validators struct {
	opts Opts
}

///////////////////////////////////////////////////////////////////////////////
// Predicates
///////////////////////////////////////////////////////////////////////////////

func isFloat(x any) bool {
	_, err := conform.ParseFloat(x)
	return err == nil
}

func isBool(x any) bool {
	switch b := x.(type) {
	case bool:
		return true
	case string:
		_, err := conform.ParseBool(b)
		return err == nil && b != ""
	}
	if conform.IsInt(x) {
		n := conform.ToInt(x)
		return n == 0 || n == 1
	}
	return false
}

func isUUID(x any) bool {
	if _, ok := x.(uuid.UUID); ok {
		return true
	}
	return uuid.Validate(conform.ToString(x)) == nil
}

// isEmail accepts a bare address only; "Name <address>" is an email_line.
func isEmail(x any) bool {
	s := conform.ToString(x)
	if strings.TrimSpace(s) == "" {
		return false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return false
	}

	local, domain, found := strings.Cut(addr.Address, "@")
	if !found || local == "" {
		return false
	}
	// Domain must contain at least one dot and cannot start/end with dot
	if !strings.Contains(domain, ".") || strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return false
	}
	for part := range strings.SplitSeq(domain, ".") {
		if part == "" {
			return false
		}
	}
	return true
}

func isEmailLine(x any) bool {
	s := strings.TrimSpace(conform.ToString(x))
	if isEmail(s) {
		return true
	}
	if !emailLineRegex.MatchString(s) {
		return false
	}
	match := angleEmailRegex.FindStringSubmatch(s)
	return match != nil && isEmail(match[1])
}

// isURL requires a scheme and a host with at least one dot.
func isURL(x any) bool {
	s := conform.ToString(x)
	if strings.TrimSpace(s) == "" {
		return false
	}
	u, err := url.ParseRequestURI(s)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return false
	}
	return strings.Contains(u.Host, ".")
}

func isIPv4(x any) bool {
	s := conform.ToString(x)
	ip := net.ParseIP(s)
	return ip != nil && ip.To4() != nil && !strings.Contains(s, ":")
}

func isIPv6(x any) bool {
	s := conform.ToString(x)
	return net.ParseIP(s) != nil && strings.Contains(s, ":")
}

// isTitle requires at least two title characters.
func isTitle(x any) bool {
	s := titleRegex.ReplaceAllString(conform.ToString(x), "")
	return utf8.RuneCountInString(s) >= 2
}

// isDate validates a "YYYY-mm-dd" calendar date.
func isDate(x any) bool {
	_, err := time.Parse(dateLayout, conform.ToString(x))
	return err == nil
}

func inLength(x any, lo, hi int) bool {
	n := utf8.RuneCountInString(conform.ToString(x))
	return n >= lo && n <= hi
}

///////////////////////////////////////////////////////////////////////////////
// Parameterized Validators
///////////////////////////////////////////////////////////////////////////////

// value requires equality with the param, type included.
func (validators) value(x any, params []any, _ *conform.Context) (any, error) {
	if err := needParams("v.value", params, 1); err != nil {
		return x, err
	}
	if !reflect.DeepEqual(x, params[0]) {
		return x, invalid
	}
	return x, nil
}

// looseValue compares string forms, so "5" matches 5.
func (validators) looseValue(x any, params []any, _ *conform.Context) (any, error) {
	if err := needParams("v.loose_value", params, 1); err != nil {
		return x, err
	}
	if conform.ToString(x) != conform.ToString(params[0]) {
		return x, invalid
	}
	return x, nil
}

// in requires the value to be one of the params, compared by string form.
func (validators) in(x any, params []any, _ *conform.Context) (any, error) {
	s := conform.ToString(x)
	for _, option := range listParam(params) {
		if conform.ToString(option) == s {
			return x, nil
		}
	}
	return x, invalid
}

func (validators) regex(x any, params []any, _ *conform.Context) (any, error) {
	if err := needParams("v.regex", params, 1); err != nil {
		return x, err
	}
	re, err := compilePattern(params[0])
	if err != nil {
		return x, err
	}
	if !re.MatchString(conform.ToString(x)) {
		return x, invalid
	}
	return x, nil
}

func (validators) callback(x any, params []any, _ *conform.Context) (any, error) {
	cb, err := callbackParam("v.callback", params)
	if err != nil {
		return x, err
	}
	return cb(x)
}

func (validators) min(x any, params []any, _ *conform.Context) (any, error) {
	if err := needParams("v.min", params, 1); err != nil {
		return x, err
	}
	if conform.ToFloat(x) < conform.ToFloat(params[0]) {
		return x, invalid
	}
	return x, nil
}

func (validators) gt(x any, params []any, _ *conform.Context) (any, error) {
	if err := needParams("v.gt", params, 1); err != nil {
		return x, err
	}
	if conform.ToFloat(x) <= conform.ToFloat(params[0]) {
		return x, invalid
	}
	return x, nil
}

func (validators) max(x any, params []any, _ *conform.Context) (any, error) {
	if err := needParams("v.max", params, 1); err != nil {
		return x, err
	}
	if conform.ToFloat(x) > conform.ToFloat(params[0]) {
		return x, invalid
	}
	return x, nil
}

func (validators) lt(x any, params []any, _ *conform.Context) (any, error) {
	if err := needParams("v.lt", params, 1); err != nil {
		return x, err
	}
	if conform.ToFloat(x) >= conform.ToFloat(params[0]) {
		return x, invalid
	}
	return x, nil
}

// rangeOf is inclusive on both ends: "v.range|1;10".
func (validators) rangeOf(x any, params []any, _ *conform.Context) (any, error) {
	if err := needParams("v.range", params, 2); err != nil {
		return x, err
	}
	f := conform.ToFloat(x)
	if f < conform.ToFloat(params[0]) || f > conform.ToFloat(params[1]) {
		return x, invalid
	}
	return x, nil
}

// Lengths count characters, not bytes.

func (validators) length(x any, params []any, _ *conform.Context) (any, error) {
	if err := needParams("v.length", params, 1); err != nil {
		return x, err
	}
	n := int(conform.ToInt(params[0]))
	if !inLength(x, n, n) {
		return x, invalid
	}
	return x, nil
}

func (validators) lengthMin(x any, params []any, _ *conform.Context) (any, error) {
	if err := needParams("v.length_min", params, 1); err != nil {
		return x, err
	}
	if utf8.RuneCountInString(conform.ToString(x)) < int(conform.ToInt(params[0])) {
		return x, invalid
	}
	return x, nil
}

func (validators) lengthGt(x any, params []any, _ *conform.Context) (any, error) {
	if err := needParams("v.length_gt", params, 1); err != nil {
		return x, err
	}
	if utf8.RuneCountInString(conform.ToString(x)) <= int(conform.ToInt(params[0])) {
		return x, invalid
	}
	return x, nil
}

func (validators) lengthMax(x any, params []any, _ *conform.Context) (any, error) {
	if err := needParams("v.length_max", params, 1); err != nil {
		return x, err
	}
	if utf8.RuneCountInString(conform.ToString(x)) > int(conform.ToInt(params[0])) {
		return x, invalid
	}
	return x, nil
}

func (validators) lengthLt(x any, params []any, _ *conform.Context) (any, error) {
	if err := needParams("v.length_lt", params, 1); err != nil {
		return x, err
	}
	if utf8.RuneCountInString(conform.ToString(x)) >= int(conform.ToInt(params[0])) {
		return x, invalid
	}
	return x, nil
}

func (validators) lengthRange(x any, params []any, _ *conform.Context) (any, error) {
	if err := needParams("v.length_range", params, 2); err != nil {
		return x, err
	}
	if !inLength(x, int(conform.ToInt(params[0])), int(conform.ToInt(params[1]))) {
		return x, invalid
	}
	return x, nil
}

// phone validates a NANP number and returns its 10 digits. A 7 digit
// number fails with type "phone_area_code".
func (validators) phone(x any) (any, error) {
	digits := nonDigitRegex.ReplaceAllString(conform.ToString(x), "")
	if digits == "" {
		return x, invalid
	}
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	if len(digits) == 7 {
		return x, &conform.Failure{Type: "phone_area_code"}
	}
	if len(digits) != 10 {
		return x, invalid
	}
	return digits, nil
}

// internationalPhone returns the digits of an 11 to 14 digit number.
func (validators) internationalPhone(x any) (any, error) {
	digits := nonDigitRegex.ReplaceAllString(conform.ToString(x), "")
	if len(digits) < 11 || len(digits) > 14 {
		return x, invalid
	}
	return digits, nil
}

// mime matches whole mime types ("image/png") or their last part ("png").
func (validators) mime(x any, params []any, _ *conform.Context) (any, error) {
	s := conform.ToString(x)
	for _, m := range listParam(params) {
		if strings.HasSuffix(s, conform.ToString(m)) {
			return x, nil
		}
	}
	return x, invalid
}

func (v validators) notMime(x any, params []any, c *conform.Context) (any, error) {
	if _, err := v.mime(x, params, c); err == nil {
		return x, invalid
	}
	return x, nil
}

// time parses the value and returns it as a time.Time.
func (v validators) time(x any) (any, error) {
	t, err := conform.ParseTime(x, v.opts.InputLocation)
	if err != nil {
		return x, invalid
	}
	return t.In(v.opts.TargetLocation), nil
}

// timezone returns the *time.Location named by the value.
func (validators) timezone(x any) (any, error) {
	name := conform.ToString(x)
	if name == "" {
		return x, invalid
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return x, invalid
	}
	return loc, nil
}

func (v validators) timeBound(name string, x any, params []any, bad func(t, bound time.Time) bool) (any, error) {
	if err := needParams(name, params, 1); err != nil {
		return x, err
	}
	t, err := conform.ParseTime(x, v.opts.InputLocation)
	if err != nil {
		return x, invalid
	}
	bound, err := conform.ParseTime(params[0], v.opts.InputLocation)
	if err != nil {
		return x, &conform.Failure{Message: err.Error()}
	}
	if bad(t, bound) {
		return x, invalid
	}
	return x, nil
}

func (v validators) timeMin(x any, params []any, _ *conform.Context) (any, error) {
	return v.timeBound("v.time_min", x, params, func(t, bound time.Time) bool { return t.Before(bound) })
}

func (v validators) timeMax(x any, params []any, _ *conform.Context) (any, error) {
	return v.timeBound("v.time_max", x, params, func(t, bound time.Time) bool { return t.After(bound) })
}

func (v validators) ageBound(name string, x any, params []any, bad func(age, bound int) bool) (any, error) {
	if err := needParams(name, params, 1); err != nil {
		return x, err
	}
	t, err := conform.ParseTime(x, v.opts.InputLocation)
	if err != nil {
		return x, invalid
	}
	if bad(yearsBetween(t, v.opts.Now()), int(conform.ToInt(params[0]))) {
		return x, invalid
	}
	return x, nil
}

func (v validators) ageMin(x any, params []any, _ *conform.Context) (any, error) {
	return v.ageBound("v.age_min", x, params, func(age, bound int) bool { return age < bound })
}

func (v validators) ageMax(x any, params []any, _ *conform.Context) (any, error) {
	return v.ageBound("v.age_max", x, params, func(age, bound int) bool { return age > bound })
}
