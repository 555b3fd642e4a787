package conform

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

///////////////////////////////////////////////////////////////////////////////
// Errors
///////////////////////////////////////////////////////////////////////////////

var (
	ErrMalformedRule      = errors.New("malformed rule")
	ErrUnresolvedFunction = errors.New("fn_path is not a function path")
	ErrInvalidGroupName   = errors.New("invalid conformer name")
	ErrInvalidFieldMap    = errors.New("invalid field map")
	ErrInvalidInput       = errors.New("invalid input")
	ErrNilSession         = errors.New("nil session")
)

// Failure is returned by a Conformer to signal that a value does not
// conform. Every field is optional: an empty Type defaults to the rule's
// path and an empty Message defaults to the type.
//
// Fields lists additional fields the resulting error refers to. The field
// being conformed is always included.
type Failure struct {
	Message string
	Type    string
	Fields  []string
}

// Error implements the error interface
func (f *Failure) Error() string {
	switch {
	case f.Message != "":
		return f.Message
	case f.Type != "":
		return f.Type
	default:
		return "value does not conform"
	}
}

// Fail returns a Failure carrying message.
func Fail(message string) error {
	return &Failure{Message: message}
}

// Failf returns a Failure of the given type with a formatted message.
func Failf(typ, format string, args ...any) error {
	return &Failure{Type: typ, Message: fmt.Sprintf(format, args...)}
}

// fatalError marks a conformer error that must abort the run instead of
// being recorded as a validation error.
type fatalError struct {
	err error
}

func (fe fatalError) Error() string { return fe.err.Error() }
func (fe fatalError) Unwrap() error { return fe.err }

// Fatal wraps err so that returning it from a Conformer aborts the field map
// application and surfaces err to the caller of Apply. A nil err stays nil.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return fatalError{err: err}
}

// IsFatal reports whether err was produced by Fatal.
func IsFatal(err error) bool {
	var fe fatalError
	return errors.As(err, &fe)
}

// asFailure converts a conformer error into a Failure.
func asFailure(err error) *Failure {
	var f *Failure
	if errors.As(err, &f) && f != nil {
		return f
	}
	return &Failure{Message: err.Error()}
}

///////////////////////////////////////////////////////////////////////////////
// Validation Error Model
///////////////////////////////////////////////////////////////////////////////

// Error is one recorded validation error.
//
// One error can reference several fields. Errors keep the order in which
// they were generated, which is the order consumers should display them.
type Error struct {
	Message string   `json:"message"`
	Type    string   `json:"type,omitempty"`
	Fields  []string `json:"fields"`
	Rule    *Rule    `json:"-"`
	Params  []any    `json:"params,omitempty"`
}

// NewError builds an Error for the given fields. Duplicate fields are
// dropped, keeping first occurrence order.
func NewError(message, typ string, fields ...string) Error {
	return Error{Message: message, Type: typ, Fields: uniqueFields(fields)}
}

// HasField reports whether the error refers to field.
func (e Error) HasField(field string) bool {
	return slices.Contains(e.Fields, field)
}

// Standard returns a copy with Type and Message populated.
//
// Type defaults to the rule's path and gets a "~" prefix for negated
// rules. Message defaults to the type. Params are copied from the rule.
func (e Error) Standard() Error {
	std := e
	std.Fields = slices.Clone(e.Fields)

	if std.Type == "" && e.Rule != nil {
		std.Type = e.Rule.Type()
	}
	if e.Rule != nil && e.Rule.Flags.Negate {
		std.Type = NegatedTypePrefix + std.Type
	}
	if std.Message == "" {
		std.Message = std.Type
	}
	if e.Rule != nil {
		std.Params = slices.Clone(e.Rule.Params)
		if std.Params == nil {
			std.Params = []any{}
		}
	}

	return std
}

// Errors is an ordered collection of validation errors that implements error.
type Errors []Error

// Error summarizes the first few errors.
func (errs Errors) Error() string {
	if len(errs) == 0 {
		return "validation failed"
	}
	const maxShown = 3
	b := &strings.Builder{}
	b.WriteString("validation failed: ")
	lim := min(len(errs), maxShown)
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		std := errs[i].Standard()
		fmt.Fprintf(b, "%s: %s", strings.Join(std.Fields, ","), std.Message)
	}
	if len(errs) > lim {
		fmt.Fprintf(b, "; ... (total %d)", len(errs))
	}
	return b.String()
}

// Add appends err to the collection.
func (errs *Errors) Add(err Error) {
	*errs = append(*errs, err)
}

// IsEmpty reports whether there are no errors.
func (errs Errors) IsEmpty() bool {
	return len(errs) == 0
}

// Has reports whether any error refers to field.
func (errs Errors) Has(field string) bool {
	for _, err := range errs {
		if err.HasField(field) {
			return true
		}
	}
	return false
}

// ForField returns the errors that refer to field.
func (errs Errors) ForField(field string) Errors {
	return errs.ForFields(field)
}

// ForFields returns the errors that refer to any of fields.
func (errs Errors) ForFields(fields ...string) Errors {
	found := Errors{}
	for _, err := range errs {
		for _, field := range fields {
			if err.HasField(field) {
				found = append(found, err)
				break
			}
		}
	}
	return found
}

// Fields returns the distinct fields referenced, in first seen order.
func (errs Errors) Fields() []string {
	var fields []string
	for _, err := range errs {
		fields = append(fields, err.Fields...)
	}
	return uniqueFields(fields)
}

// Standard returns the standardized form of every error.
func (errs Errors) Standard() Errors {
	std := make(Errors, len(errs))
	for i, err := range errs {
		std[i] = err.Standard()
	}
	return std
}

// AsErrors extracts Errors from an error using errors.As.
func AsErrors(err error) (Errors, bool) {
	if err == nil {
		return nil, false
	}
	var errs Errors
	if errors.As(err, &errs) {
		return errs, true
	}
	return nil, false
}

func uniqueFields(fields []string) []string {
	out := make([]string, 0, len(fields))
	for _, field := range fields {
		if !slices.Contains(out, field) {
			out = append(out, field)
		}
	}
	return out
}
