package conform

import (
	"slices"
	"strings"
)

// FlagSet holds the modifiers parsed from a rule prefix.
//
// Example: "?!v.filled" -> FlagSet{Optional: true, Break: true}
type FlagSet struct {
	Optional       bool // "?" failures are not recorded
	Break          bool // "!" stop the field's chain on failure
	BreakAll       bool // "!!" stop the whole field map on failure
	Continuity     bool // "&" skip the rest of the chain if the field has errors
	FullContinuity bool // "&&" skip the rest of the chain if any field has errors
	Negate         bool // "~" the rule is expected to fail
}

// ParseFlags tokenizes a flag prefix into a FlagSet.
//
// Two character flags are matched first and every occurrence of them is
// removed from the prefix before the remaining characters are scanned one
// at a time: "!!" before "&&", then "?", "!", "&" and "~". Characters that
// are not flags are ignored.
//
// So "!!!" is BreakAll plus Break, and "&&&" is FullContinuity plus Continuity.
func ParseFlags(prefix string) FlagSet {
	var flags FlagSet
	if prefix == "" {
		return flags
	}

	if strings.Contains(prefix, FlagBreakAll) {
		flags.BreakAll = true
		prefix = strings.ReplaceAll(prefix, FlagBreakAll, "")
	}
	if strings.Contains(prefix, FlagFullContinuity) {
		flags.FullContinuity = true
		prefix = strings.ReplaceAll(prefix, FlagFullContinuity, "")
	}

	for i := 0; i < len(prefix); i++ {
		switch prefix[i] {
		case FlagOptional:
			flags.Optional = true
		case FlagBreak:
			flags.Break = true
		case FlagContinuity:
			flags.Continuity = true
		case FlagNegate:
			flags.Negate = true
		}
	}

	return flags
}

// String renders the flags back into a canonical prefix.
func (f FlagSet) String() string {
	var b strings.Builder
	if f.BreakAll {
		b.WriteString(FlagBreakAll)
	}
	if f.FullContinuity {
		b.WriteString(FlagFullContinuity)
	}
	if f.Optional {
		b.WriteByte(FlagOptional)
	}
	if f.Break {
		b.WriteByte(FlagBreak)
	}
	if f.Continuity {
		b.WriteByte(FlagContinuity)
	}
	if f.Negate {
		b.WriteByte(FlagNegate)
	}
	return b.String()
}

// Rule is one compiled unit of a field's rule chain.
//
// Path names the conformer in the registry ("v.int"). Fn is only set when the
// rule was compiled from a direct function reference, in which case it is
// called without consulting the registry.
type Rule struct {
	Flags  FlagSet
	Path   string
	Fn     Conformer
	Params []any
}

// clone copies the rule with its own Params backing array.
func (r Rule) clone() Rule {
	r.Params = slices.Clone(r.Params)
	return r
}

// cloneRules clones every rule of rules.
func cloneRules(rules []Rule) []Rule {
	out := make([]Rule, len(rules))
	for i, rule := range rules {
		out[i] = rule.clone()
	}
	return out
}

// Type is the error type a failure of this rule defaults to.
func (r Rule) Type() string {
	if r.Path != "" {
		return r.Path
	}
	return AnonymousRuleType
}

// String renders the rule in its text form. Parameters are printed with %v
// semantics and are not escaped.
func (r Rule) String() string {
	var b strings.Builder
	b.WriteString(r.Flags.String())
	b.WriteString(r.Type())
	for i, p := range r.Params {
		if i == 0 {
			b.WriteString(ParamListDelimiter)
		} else {
			b.WriteString(ParamDelimiter)
		}
		b.WriteString(toString(p))
	}
	return b.String()
}
