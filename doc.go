// Package conform filters and validates loosely typed input against field
// maps written in a small rule language.
//
// A field map pairs each field with a rule set. Rules run left to right;
// each rule names a conformer and may carry flags and params:
//
//	fm := conform.MustFields(
//		"email", "f.trim !v.filled v.email",
//		"age",   "f.int v.range|18;130",
//		"",      "&&d.not_in_table|users;email",
//	)
//
// A conformer either returns the new value of the field or an error, in
// which case the failure is recorded as an Error referring to the field.
// When a field's chain completes without errors its final value is written
// to the output.
//
// The rule text grammar is:
//
//	PREFIX? FN_PATH ('|' PARAM (';' PARAM)*)?
//
// Rules of a rule set string are separated by whitespace or commas. Rule
// sets may also be given as arrays, which is the way to pass non-string
// params or functions:
//
//	[]any{"f.trim", []any{"v.in", []string{"a", "b"}}, []any{[]any{"!", fn}}}
//
// Prefix flags:
//   - `?`  optional: a failure is not recorded
//   - `!`  break: on failure stop the field's chain, the field is not output
//   - `!!` break all: on failure stop the whole field map
//   - `&`  continuity: skip the rest of the chain if the field has errors
//   - `&&` full continuity: skip the rest of the chain if any field has errors
//   - `~`  negate: the rule is expected to fail
//
// Function paths are resolved through a Registry, as "<group>.<name>" for
// grouped conformers or an exact name for standalone ones. The standard "f"
// (filters) and "v" (validators) groups live in the conformers package;
// database checks live in dbconform.
//
// Validation failures are data: Apply returns an error only for malformed
// rules, unresolvable function paths and conformer errors wrapped with
// Fatal. Use Errors or StandardErrors to read what failed.
package conform
