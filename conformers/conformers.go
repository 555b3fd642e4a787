// Package conformers provides the standard filter ("f") and validator ("v")
// conformer groups.
//
// Filters transform a value and rarely fail. Validators check a value and
// return it unchanged, with a few documented exceptions that also normalize
// (v.phone returns the digits, v.time returns a time.Time).
//
//	reg := conform.NewRegistry(conform.RegistryOpts{})
//	if err := conformers.Register(reg, conformers.Opts{}); err != nil {
//		return err
//	}
//	s := conform.NewSession(input, conform.SessionOpts{Registry: reg})
//
// Parameters written in rule text are strings ("v.min|18" passes "18");
// numeric parameters are converted with conform.ToFloat.
package conformers

import (
	"fmt"
	"regexp"
	"sync"
	"time"

	conform "github.com/SimonDaKappa/go-conform"
)

// Opts configures the standard groups. The zero value uses UTC and the
// wall clock.
type Opts struct {
	// InputLocation is the zone of times parsed without an explicit zone.
	InputLocation *time.Location
	// TargetLocation is the zone time filters convert to.
	TargetLocation *time.Location
	// Now returns the current time, used by age based conformers.
	Now func() time.Time
}

func (o Opts) withDefaults() Opts {
	if o.InputLocation == nil {
		o.InputLocation = time.UTC
	}
	if o.TargetLocation == nil {
		o.TargetLocation = time.UTC
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Register adds the "f" and "v" groups to reg.
func Register(reg *conform.Registry, opts Opts) error {
	if err := reg.AddGroup(conform.FilterGroupName, NewFilters(opts)); err != nil {
		return err
	}
	return reg.AddGroup(conform.ValidatorGroupName, NewValidators(opts))
}

// NewRegistry returns a registry carrying the standard groups and falling
// back to the global registry.
func NewRegistry(opts Opts) *conform.Registry {
	return conform.NewRegistry(conform.RegistryOpts{
		Groups: map[string]conform.Group{
			conform.FilterGroupName:    NewFilters(opts),
			conform.ValidatorGroupName: NewValidators(opts),
		},
	})
}

// NewSession creates a Session that resolves the standard groups. A
// Registry set in opts is used as is.
func NewSession(input *conform.Input, opts conform.SessionOpts) *conform.Session {
	if opts.Registry == nil {
		opts.Registry = NewRegistry(Opts{})
	}
	return conform.NewSession(input, opts)
}

///////////////////////////////////////////////////////////////////////////////
// Helpers
///////////////////////////////////////////////////////////////////////////////

type fn = conform.ConformerFunc

// invalid is the generic failure of a conformer. The rule path supplies
// the error type.
var invalid = &conform.Failure{}

// needParams aborts the run when a rule is written without the params its
// conformer requires.
func needParams(name string, params []any, n int) error {
	if len(params) < n {
		return conform.Fatal(fmt.Errorf("%w: %s needs %d param(s), got %d",
			conform.ErrMalformedRule, name, n, len(params)))
	}
	return nil
}

// valueOnly adapts a conformer that needs neither params nor the Context.
func valueOnly(f func(v any) (any, error)) conform.Conformer {
	return fn(func(v any, _ []any, _ *conform.Context) (any, error) {
		return f(v)
	})
}

// check adapts a predicate into a validator returning the value unchanged.
func check(ok func(v any) bool) conform.Conformer {
	return valueOnly(func(v any) (any, error) {
		if !ok(v) {
			return v, invalid
		}
		return v, nil
	})
}

// regexCache holds compiled rule patterns, keyed by pattern text.
var regexCache sync.Map

// compilePattern compiles a pattern param. A bad pattern is a rule
// authoring mistake and aborts the run.
func compilePattern(param any) (*regexp.Regexp, error) {
	if re, ok := param.(*regexp.Regexp); ok {
		return re, nil
	}
	pattern := conform.ToString(param)
	if cached, ok := regexCache.Load(pattern); ok {
		return cached.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, conform.Fatal(fmt.Errorf("%w: bad pattern %q: %w", conform.ErrMalformedRule, pattern, err))
	}
	regexCache.Store(pattern, re)
	return re, nil
}

// callbackParam accepts the function forms a callback rule can carry.
func callbackParam(name string, params []any) (func(any) (any, error), error) {
	if err := needParams(name, params, 1); err != nil {
		return nil, err
	}
	switch cb := params[0].(type) {
	case func(any) (any, error):
		return cb, nil
	case func(any) any:
		return func(v any) (any, error) { return cb(v), nil }, nil
	case func(any) bool:
		return func(v any) (any, error) {
			if !cb(v) {
				return v, invalid
			}
			return v, nil
		}, nil
	default:
		return nil, conform.Fatal(fmt.Errorf("%w: %s param must be a function, got %T",
			conform.ErrMalformedRule, name, params[0]))
	}
}

// listParam flattens params so "v.in|a;b" and []any{"v.in", []string{"a", "b"}}
// mean the same thing.
func listParam(params []any) []any {
	if len(params) == 1 {
		switch list := params[0].(type) {
		case []any:
			return list
		case []string:
			out := make([]any, len(list))
			for i, s := range list {
				out[i] = s
			}
			return out
		}
	}
	return params
}
