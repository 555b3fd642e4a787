package conform

import (
	"fmt"
	"strings"
)

// This file contains the rule compiler. It turns the rules of
// a field map into []Rule. It supports every form in the following
// grammar:
//
// Rule set grammar:
//     <rule_set>
// rule_set:
//     <rule_text_list> | [<rule_token>]^* | <rule_token>
// rule_text_list:
//     <rule_text> [<separator> <rule_text>]^* // separator is `[\s,]+`
// rule_token:
//     <rule_text> | <rule_array> | Rule | Conformer
//
// rule_text:
//     <prefix>? <fn_path> ['|' <param> [';' <param>]^*]?
// prefix:
//     [^_a-zA-Z]+ // flags, see ParseFlags
// fn_path:
//     [^|]+ // "<group>.<name>" or a registered name
//
// rule_array:
//     [<prefix>?<fn_path>, <param>...]     // params are literal values
//     [[<prefix>, <fn>], <param>...]       // fn is a Conformer or a fn_path
//
// Example: "!v.length_range|2;10 ?f.trim" and
//
//	[]any{[]any{"!v.length_range", "2", "10"}, "?f.trim"}
//
// compile to the same rules.

// ruleText is the decoded form of a rule_text before flags are tokenized.
type ruleText struct {
	Prefix    string
	Path      string
	Params    string
	HasParams bool
}

// CompileRuleSet compiles the rules of one field.
func CompileRuleSet(spec any) ([]Rule, error) {
	switch s := spec.(type) {
	case nil:
		return []Rule{}, nil
	case string:
		return compileRuleText(s)
	case []string:
		rules := make([]Rule, 0, len(s))
		for _, token := range s {
			rule, err := CompileRule(token)
			if err != nil {
				return nil, err
			}
			rules = append(rules, rule)
		}
		return rules, nil
	case []any:
		rules := make([]Rule, 0, len(s))
		for _, token := range s {
			rule, err := CompileRule(token)
			if err != nil {
				return nil, err
			}
			rules = append(rules, rule)
		}
		return rules, nil
	case []Rule:
		rules := make([]Rule, len(s))
		copy(rules, s)
		return rules, nil
	default:
		rule, err := CompileRule(spec)
		if err != nil {
			return nil, err
		}
		return []Rule{rule}, nil
	}
}

// compileRuleText compiles a whitespace/comma separated rule string.
// Empty tokens, e.g. from leading or trailing spaces, are dropped.
func compileRuleText(text string) ([]Rule, error) {
	tokens := ruleSetSplitPattern.Split(text, -1)
	rules := make([]Rule, 0, len(tokens))

	for _, token := range tokens {
		if token == "" {
			continue
		}
		rule, err := CompileRule(token)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}

	return rules, nil
}

// CompileRule compiles a single rule token.
func CompileRule(token any) (Rule, error) {
	switch t := token.(type) {
	case string:
		decoded, err := decodeRuleText(t)
		if err != nil {
			return Rule{}, err
		}
		return Rule{
			Flags:  ParseFlags(decoded.Prefix),
			Path:   decoded.Path,
			Params: decodeParams(decoded),
		}, nil

	case Rule:
		return t, nil

	case []any:
		return compileRuleArray(t)

	default:
		if fn, ok := asConformer(token); ok {
			return Rule{Fn: fn, Params: []any{}}, nil
		}
		return Rule{}, fmt.Errorf("%w: unsupported rule token %T", ErrMalformedRule, token)
	}
}

// compileRuleArray handles both array forms:
//
//	[]any{"!v.min", 1}
//	[]any{[]any{"!", fn}, 1}
func compileRuleArray(token []any) (Rule, error) {
	if len(token) == 0 {
		return Rule{}, fmt.Errorf("%w: empty rule array", ErrMalformedRule)
	}

	params := make([]any, len(token)-1)
	copy(params, token[1:])

	switch head := token[0].(type) {
	case string:
		decoded, err := decodeRuleText(head)
		if err != nil {
			return Rule{}, err
		}
		return Rule{
			Flags:  ParseFlags(decoded.Prefix),
			Path:   decoded.Path,
			Params: params,
		}, nil

	case []any:
		if len(head) != 2 {
			return Rule{}, fmt.Errorf(
				"%w: function reference must be a [flags, fn] pair, got %d elements",
				ErrMalformedRule, len(head),
			)
		}
		prefix, ok := head[0].(string)
		if !ok {
			return Rule{}, fmt.Errorf("%w: flags must be a string, got %T", ErrMalformedRule, head[0])
		}

		rule := Rule{Flags: ParseFlags(prefix), Params: params}
		switch fn := head[1].(type) {
		case string:
			if strings.TrimSpace(fn) == "" {
				return Rule{}, fmt.Errorf("%w: empty function path", ErrMalformedRule)
			}
			rule.Path = fn
		default:
			conformer, ok := asConformer(fn)
			if !ok {
				return Rule{}, fmt.Errorf("%w: %T is not a conformer", ErrMalformedRule, fn)
			}
			rule.Fn = conformer
		}
		return rule, nil

	default:
		return Rule{}, fmt.Errorf("%w: non conforming rule head %T", ErrMalformedRule, token[0])
	}
}

func decodeRuleText(text string) (ruleText, error) {
	match := ruleTextPattern.FindStringSubmatchIndex(text)
	if match == nil {
		return ruleText{}, fmt.Errorf("%w: rule text not conforming: %q", ErrMalformedRule, text)
	}

	group := func(i int) (string, bool) {
		start, end := match[2*i], match[2*i+1]
		if start < 0 {
			return "", false
		}
		return text[start:end], true
	}

	decoded := ruleText{}
	decoded.Prefix, _ = group(1)
	decoded.Path, _ = group(2)
	decoded.Params, decoded.HasParams = group(4)

	return decoded, nil
}

// decodeParams splits the param list on ";". A present but empty list
// yields one empty param, an absent list yields none.
func decodeParams(decoded ruleText) []any {
	if !decoded.HasParams {
		return []any{}
	}
	parts := strings.Split(decoded.Params, ParamDelimiter)
	params := make([]any, len(parts))
	for i, part := range parts {
		params[i] = part
	}
	return params
}
