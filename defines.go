package conform

import (
	"regexp"
)

// constants for flag characters in a rule prefix
const (
	FlagOptional       = '?'
	FlagBreak          = '!'
	FlagContinuity     = '&'
	FlagNegate         = '~'
	FlagBreakAll       = "!!"
	FlagFullContinuity = "&&"
)

// constants for the rule text grammar
const (
	ParamListDelimiter = "|"
	ParamDelimiter     = ";"
	GroupPathDelimiter = "."
	NegatedTypePrefix  = "~"
	AnonymousRuleType  = "func"
)

// Names of the conventional conformer groups.
const (
	FilterGroupName    = "f"
	ValidatorGroupName = "v"
)

// Mime Type constants for content types and request input keys.
const (
	ContentTypeApplicationJSON string = "application/json"
	ContentTypeForm            string = "application/x-www-form-urlencoded"
	ContentTypeMultipartForm   string = "multipart/form-data"
	ContentTypeDelimiter              = ";"
	JSONQueryKey                      = "_json"
)

var (
	// ruleTextPattern matches `prefix? fn_path ('|' params)?`.
	ruleTextPattern = regexp.MustCompile(`(?i)^([^_a-z]+)?([^|]+)(\|(.*))?$`)
	// ruleSetSplitPattern separates rule tokens inside a rule set string.
	ruleSetSplitPattern = regexp.MustCompile(`[\s,]+`)
)
