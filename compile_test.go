package conform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		prefix string
		want   FlagSet
	}{
		{"", FlagSet{}},
		{"?", FlagSet{Optional: true}},
		{"!", FlagSet{Break: true}},
		{"&", FlagSet{Continuity: true}},
		{"~", FlagSet{Negate: true}},
		{"!!", FlagSet{BreakAll: true}},
		{"&&", FlagSet{FullContinuity: true}},
		{"?!", FlagSet{Optional: true, Break: true}},
		{"~!!", FlagSet{Negate: true, BreakAll: true}},
		{"!!!", FlagSet{BreakAll: true, Break: true}},
		{"&&&", FlagSet{FullContinuity: true, Continuity: true}},
		{"!!&&?~", FlagSet{BreakAll: true, FullContinuity: true, Optional: true, Negate: true}},
		{"#$", FlagSet{}},
	}

	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseFlags(tt.prefix))
		})
	}
}

func TestFlagSetString(t *testing.T) {
	assert.Equal(t, "", FlagSet{}.String())
	assert.Equal(t, "!!?", FlagSet{BreakAll: true, Optional: true}.String())
	assert.Equal(t, FlagSet{BreakAll: true, Optional: true}, ParseFlags(FlagSet{BreakAll: true, Optional: true}.String()))
}

func TestCompileRule(t *testing.T) {
	t.Run("PathOnly", func(t *testing.T) {
		rule, err := CompileRule("v.int")
		require.NoError(t, err)
		assert.Equal(t, Rule{Path: "v.int", Params: []any{}}, rule)
	})

	t.Run("PrefixAndParams", func(t *testing.T) {
		rule, err := CompileRule("?!v.length_range|2;10")
		require.NoError(t, err)
		assert.Equal(t, FlagSet{Optional: true, Break: true}, rule.Flags)
		assert.Equal(t, "v.length_range", rule.Path)
		assert.Equal(t, []any{"2", "10"}, rule.Params)
	})

	t.Run("EmptyParamList", func(t *testing.T) {
		rule, err := CompileRule("f.value|")
		require.NoError(t, err)
		assert.Equal(t, []any{""}, rule.Params)
	})

	t.Run("StandalonePath", func(t *testing.T) {
		rule, err := CompileRule("!!e")
		require.NoError(t, err)
		assert.True(t, rule.Flags.BreakAll)
		assert.Equal(t, "e", rule.Path)
	})

	t.Run("ArrayWithLiteralParams", func(t *testing.T) {
		rule, err := CompileRule([]any{"!v.min", 1})
		require.NoError(t, err)
		assert.Equal(t, Rule{Flags: FlagSet{Break: true}, Path: "v.min", Params: []any{1}}, rule)
	})

	t.Run("ArrayWithPathReference", func(t *testing.T) {
		rule, err := CompileRule([]any{[]any{"~", "v.int"}, "x"})
		require.NoError(t, err)
		assert.Equal(t, Rule{Flags: FlagSet{Negate: true}, Path: "v.int", Params: []any{"x"}}, rule)
	})

	t.Run("ArrayWithFunction", func(t *testing.T) {
		called := false
		fn := func(value any, params []any, c *Context) (any, error) {
			called = true
			return value, nil
		}
		rule, err := CompileRule([]any{[]any{"?", fn}, 3})
		require.NoError(t, err)
		assert.True(t, rule.Flags.Optional)
		assert.Empty(t, rule.Path)
		assert.Equal(t, AnonymousRuleType, rule.Type())
		assert.Equal(t, []any{3}, rule.Params)
		require.NotNil(t, rule.Fn)

		_, err = rule.Fn.Conform(nil, nil, nil)
		require.NoError(t, err)
		assert.True(t, called)
	})

	t.Run("BareConformer", func(t *testing.T) {
		rule, err := CompileRule(ConformerFunc(func(v any, _ []any, _ *Context) (any, error) { return v, nil }))
		require.NoError(t, err)
		assert.NotNil(t, rule.Fn)
		assert.Equal(t, []any{}, rule.Params)
	})

	t.Run("Malformed", func(t *testing.T) {
		tokens := []any{
			"",
			[]any{},
			[]any{42},
			[]any{[]any{"!"}},
			[]any{[]any{1, "v.int"}},
			[]any{[]any{"!", ""}},
			[]any{[]any{"!", 42}},
			[]any{[]any{"!", (func(any, []any, *Context) (any, error))(nil)}},
			[]any{[]any{"!", ConformerFunc(nil)}},
			ConformerFunc(nil),
			3.14,
		}
		for _, token := range tokens {
			_, err := CompileRule(token)
			assert.ErrorIs(t, err, ErrMalformedRule, "token %#v", token)
		}
	})
}

func TestCompileRuleSet(t *testing.T) {
	t.Run("StringAndArrayFormsAreEquivalent", func(t *testing.T) {
		fromText, err := CompileRuleSet("!v.length_range|2;10 ?f.trim, ~v.int")
		require.NoError(t, err)

		fromArray, err := CompileRuleSet([]any{
			[]any{"!v.length_range", "2", "10"},
			"?f.trim",
			[]any{[]any{"~", "v.int"}},
		})
		require.NoError(t, err)

		assert.Equal(t, fromText, fromArray)
	})

	t.Run("SeparatorsAndBlanks", func(t *testing.T) {
		rules, err := CompileRuleSet("  f.trim,,v.filled \n\t v.email ")
		require.NoError(t, err)
		require.Len(t, rules, 3)
		assert.Equal(t, "f.trim", rules[0].Path)
		assert.Equal(t, "v.filled", rules[1].Path)
		assert.Equal(t, "v.email", rules[2].Path)
	})

	t.Run("Empty", func(t *testing.T) {
		for _, spec := range []any{nil, "", "   ", []any{}, []string{}} {
			rules, err := CompileRuleSet(spec)
			require.NoError(t, err)
			assert.Empty(t, rules)
		}
	})

	t.Run("StringSlice", func(t *testing.T) {
		rules, err := CompileRuleSet([]string{"f.int", "v.min|3"})
		require.NoError(t, err)
		require.Len(t, rules, 2)
		assert.Equal(t, []any{"3"}, rules[1].Params)
	})

	t.Run("RulePassthrough", func(t *testing.T) {
		in := []Rule{{Path: "v.int", Params: []any{}}}
		rules, err := CompileRuleSet(in)
		require.NoError(t, err)
		assert.Equal(t, in, rules)
	})

	t.Run("MalformedTokenFailsSet", func(t *testing.T) {
		_, err := CompileRuleSet([]any{"v.int", []any{}})
		assert.ErrorIs(t, err, ErrMalformedRule)
	})
}

func TestRuleString(t *testing.T) {
	rule, err := CompileRule("?!v.length_range|2;10")
	require.NoError(t, err)
	assert.Equal(t, "?!v.length_range|2;10", rule.String())

	assert.Equal(t, "~func", Rule{Flags: FlagSet{Negate: true}}.String())
}
