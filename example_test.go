package conform_test

import (
	"context"
	"fmt"

	conform "github.com/SimonDaKappa/go-conform"
	"github.com/SimonDaKappa/go-conform/conformers"
)

func ExampleSession_Apply() {
	input := conform.NewInput(map[string]any{
		"name":  "  smith, john ",
		"email": "not an email",
		"age":   "42",
	})
	s := conformers.NewSession(input, conform.SessionOpts{})

	out, err := s.Apply(context.Background(), conform.MustFields(
		"name", "f.trim f.name !v.filled",
		"email", "f.trim !v.email",
		"age", "f.int v.range|18;130",
	))
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	fmt.Println(out["name"], out["age"])
	for _, e := range s.StandardErrors() {
		fmt.Println(e.Fields, e.Type)
	}
	// Output:
	// John Smith 42
	// [email] v.email
}

func ExampleSession_AddConformer() {
	s := conformers.NewSession(conform.NewInput(map[string]any{"code": "abc"}), conform.SessionOpts{})

	_ = s.AddConformer("upper", func(v any, _ []any, _ *conform.Context) (any, error) {
		if conform.ToString(v) != "ABC" {
			return v, conform.Failf("upper", "%q is not upper case", v)
		}
		return v, nil
	})

	ok, _ := s.Valid(context.Background(), conform.MustFields("code", "upper"))
	fmt.Println(ok, s.Errors()[0].Message)
	// Output:
	// false "abc" is not upper case
}

func ExampleCompileRule() {
	rule, err := conform.CompileRule("?!!v.length_range|2;64")
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(rule.Path, rule.Params, rule.Flags.Optional, rule.Flags.BreakAll)
	// Output:
	// v.length_range [2 64] true true
}
