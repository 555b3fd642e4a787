package conform

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
)

// Context is passed to every conformer call.
//
// It scopes the conformer's access to the session: a conformer may read and
// write the session's input and output and record extra errors. Writes are
// visible to every later rule of the same run, which is how a rule can copy
// a value into a new field for a later field's rules to validate.
type Context struct {
	Field   string // field being conformed
	Rule    Rule   // rule being applied
	Session *Session

	ctx context.Context
}

// Context returns the context.Context the run was started with.
func (c *Context) Context() context.Context {
	if c.ctx == nil {
		return context.Background()
	}
	return c.ctx
}

// Input returns the session's input.
func (c *Context) Input() *Input {
	return c.Session.input
}

// Output returns the session's output map.
func (c *Context) Output() map[string]any {
	return c.Session.output
}

// AddError records an error on the session, outside of the rule's own
// failure handling. With no fields, the error refers to the current field.
func (c *Context) AddError(message, typ string, fields ...string) {
	if len(fields) == 0 {
		fields = []string{c.Field}
	}
	c.Session.AddError(message, typ, fields...)
}

///////////////////////////////////////////////////////////////////////////////
// Rule Executor
///////////////////////////////////////////////////////////////////////////////

// applyRules runs a field's rule chain against the field's input value.
//
// The returned error is only ever a configuration or fatal conformer error;
// validation failures are recorded on the session. The Signal tells the
// caller whether, and how, the chain was cut short.
func (s *Session) applyRules(ctx context.Context, field string, rules []Rule) (any, Signal, error) {
	value, found := s.input.Get(field)
	if !found {
		value = nil
	}

	for _, rule := range rules {
		signal, err := s.doRule(ctx, field, rule, &value)
		if err != nil {
			return nil, SignalContinue, err
		}
		if signal.Aborted() {
			s.logger.DebugContext(ctx, "rule chain aborted",
				slog.String("field", field),
				slog.String("rule", rule.String()),
				slog.String("signal", signal.String()),
			)
			return value, signal, nil
		}
	}

	return value, SignalContinue, nil
}

// doRule applies one rule, updating value when the conformer succeeds.
func (s *Session) doRule(ctx context.Context, field string, rule Rule, value *any) (Signal, error) {
	// Continuity gates run before the conformer and never record errors
	if rule.Flags.Continuity && s.errors.Has(field) {
		return SignalContinuity, nil
	}
	if rule.Flags.FullContinuity && len(s.errors) > 0 {
		return SignalContinuity, nil
	}

	fn, err := s.conformers.resolveRule(rule)
	if err != nil {
		return SignalContinue, fmt.Errorf("field %q: %w", field, err)
	}

	c := &Context{Field: field, Rule: rule, Session: s, ctx: ctx}
	out, callErr := fn.Conform(*value, slices.Clone(rule.Params), c)

	if callErr != nil && IsFatal(callErr) {
		return SignalContinue, fmt.Errorf("field %q rule %s: %w", field, rule.Type(), callErr)
	}

	var failure *Failure
	switch {
	case callErr == nil && !rule.Flags.Negate:
		*value = out
		return SignalContinue, nil
	case callErr == nil:
		// A negated rule that passes is the failure case
		*value = out
		failure = &Failure{}
	case rule.Flags.Negate:
		// Expected failure, the value is left as it was before the call
		return SignalContinue, nil
	default:
		failure = asFailure(callErr)
	}

	if rule.Flags.Optional {
		s.logger.DebugContext(ctx, "optional rule failure suppressed",
			slog.String("field", field),
			slog.String("rule", rule.String()),
		)
	} else {
		s.recordFailure(field, rule, failure)
	}

	if rule.Flags.Break {
		return SignalBreak, nil
	}
	if rule.Flags.BreakAll {
		return SignalBreakAll, nil
	}
	return SignalContinue, nil
}

func (s *Session) recordFailure(field string, rule Rule, failure *Failure) {
	fields := append([]string{field}, failure.Fields...)
	err := NewError(failure.Message, failure.Type, fields...)
	rule = rule.clone()
	err.Rule = &rule
	s.errors.Add(err)
}
