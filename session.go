package conform

import (
	"context"
	"fmt"
	"log/slog"
)

// SessionOpts configures a Session. The zero value is usable.
type SessionOpts struct {
	// Registry resolves rule paths. Nil creates a private registry that
	// falls back to the global one.
	Registry *Registry
	// Cache memoizes compiled rule text. Nil uses the package cache.
	Cache *RuleCache
	// DisableCache compiles every rule set on every run.
	DisableCache bool
	// Logger receives debug records about aborted chains. Nil discards.
	Logger *slog.Logger
}

// Session conforms one input snapshot against field maps.
//
// A Session owns its input, its output map, and the ordered errors of the
// last run. Every Apply starts with an empty output and no errors. Sessions
// are meant to be short lived and request scoped; they are not safe for
// concurrent use.
type Session struct {
	input      *Input
	output     map[string]any
	errors     Errors
	conformers *Registry
	cache      *RuleCache
	logger     *slog.Logger
}

func NewSession(input *Input, opts SessionOpts) *Session {
	if input == nil {
		input = NewInput(nil)
	}

	s := &Session{
		input:      input,
		output:     make(map[string]any),
		errors:     Errors{},
		conformers: opts.Registry,
		cache:      opts.Cache,
		logger:     opts.Logger,
	}

	if s.conformers == nil {
		s.conformers = NewRegistry(RegistryOpts{})
	}
	if s.cache == nil && !opts.DisableCache {
		s.cache = _gRuleCache
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}

	return s
}

// AddConformer registers a Group or a standalone Conformer on the
// session's registry.
func (s *Session) AddConformer(name string, conformer any) error {
	switch c := conformer.(type) {
	case Group:
		return s.conformers.AddGroup(name, c)
	case map[string]Conformer:
		return s.conformers.AddGroup(name, Funcs(c))
	default:
		fn, ok := asConformer(conformer)
		if !ok {
			return fmt.Errorf("%w: %q is a %T, not a group or conformer", ErrInvalidGroupName, name, conformer)
		}
		return s.conformers.AddFunc(name, fn)
	}
}

// Conformers returns the session's registry.
func (s *Session) Conformers() *Registry { return s.conformers }

// Input returns the session's input.
func (s *Session) Input() *Input { return s.input }

// Output returns the output of the last run. It is not a copy.
func (s *Session) Output() map[string]any { return s.output }

// Errors returns the raw errors of the last run.
func (s *Session) Errors() Errors { return s.errors }

// StandardErrors returns the errors of the last run in standard form.
func (s *Session) StandardErrors() Errors { return s.errors.Standard() }

// FieldErrors returns the errors that refer to field.
func (s *Session) FieldErrors(field string) Errors {
	return s.errors.ForField(field)
}

// FieldsErrors returns the errors that refer to any of fields.
func (s *Session) FieldsErrors(fields ...string) Errors {
	return s.errors.ForFields(fields...)
}

// AddError records an error referring to fields.
func (s *Session) AddError(message, typ string, fields ...string) {
	s.errors.Add(NewError(message, typ, fields...))
}

// Error records a prebuilt error. Errors with neither a message nor a
// type are discarded.
func (s *Session) Error(err Error) {
	if err.Message == "" && err.Type == "" && err.Rule == nil {
		return
	}
	err.Fields = uniqueFields(err.Fields)
	s.errors.Add(err)
}

// RemoveErrors drops all recorded errors, keeping the output.
func (s *Session) RemoveErrors() {
	s.errors = Errors{}
}

// Clear drops the output and all errors.
func (s *Session) Clear() {
	s.errors = Errors{}
	s.output = make(map[string]any)
}

///////////////////////////////////////////////////////////////////////////////
// Field Map Application
///////////////////////////////////////////////////////////////////////////////

// Apply conforms the input against fm and returns the output.
//
// Output and errors are reset first. Fields are processed in order; a field
// is written to the output only if its chain completed and no error refers
// to it. A "!!" failure stops the run and returns the output gathered so
// far. Validation failures never produce an error return; only malformed
// rules, unresolved functions and Fatal conformer errors do.
func (s *Session) Apply(ctx context.Context, fm FieldMap) (map[string]any, error) {
	if s == nil {
		return nil, ErrNilSession
	}
	if ctx == nil {
		ctx = context.Background()
	}

	s.Clear()

	for _, fr := range fm {
		rules, err := s.compile(fr.Spec)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", fr.Field, err)
		}

		value, signal, err := s.applyRules(ctx, fr.Field, rules)
		if err != nil {
			return nil, err
		}

		switch signal {
		case SignalBreakAll:
			return s.output, nil
		case SignalBreak, SignalContinuity:
			continue
		}

		if fr.Field != "" && !s.errors.Has(fr.Field) {
			s.output[fr.Field] = value
		}
	}

	return s.output, nil
}

// OutputFrom is an alias of Apply.
func (s *Session) OutputFrom(ctx context.Context, fm FieldMap) (map[string]any, error) {
	return s.Apply(ctx, fm)
}

// Get applies fm and returns the output, or false if the run recorded any
// error on any field.
func (s *Session) Get(ctx context.Context, fm FieldMap) (map[string]any, bool, error) {
	output, err := s.Apply(ctx, fm)
	if err != nil {
		return nil, false, err
	}
	if len(s.errors) > 0 {
		return nil, false, nil
	}
	return output, true, nil
}

// Valid applies fm and reports whether no error was recorded.
func (s *Session) Valid(ctx context.Context, fm FieldMap) (bool, error) {
	_, ok, err := s.Get(ctx, fm)
	return ok, err
}

// ErrorsFrom applies fm and returns the standardized errors.
func (s *Session) ErrorsFrom(ctx context.Context, fm FieldMap) (Errors, error) {
	if _, err := s.Apply(ctx, fm); err != nil {
		return nil, err
	}
	return s.StandardErrors(), nil
}

// FieldRules applies a single rule spec to field and returns the resulting
// value. Unlike Apply it does not reset the session and does not write the
// output. Chains cut short by a flag return the value reached so far.
func (s *Session) FieldRules(ctx context.Context, field string, spec any) (any, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	rules, err := s.compile(spec)
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", field, err)
	}
	value, _, err := s.applyRules(ctx, field, rules)
	return value, err
}

func (s *Session) compile(spec any) ([]Rule, error) {
	if s.cache != nil {
		return s.cache.Compile(spec)
	}
	return CompileRuleSet(spec)
}
