package conform

//go:generate go tool stringer -type=Signal -trimprefix=Signal -output=signal_string.go

// Signal tells the session how a field's rule chain ended.
//
// Signals are flow control between the executor and the session. They are
// never returned to callers of Apply.
type Signal int

const (
	// SignalContinue means the chain ran to completion.
	SignalContinue Signal = iota
	// SignalContinuity means a "&" or "&&" rule found earlier errors and
	// the rest of the chain was skipped.
	SignalContinuity
	// SignalBreak means a "!" rule failed and the rest of the chain was skipped.
	SignalBreak
	// SignalBreakAll means a "!!" rule failed and no further field is processed.
	SignalBreakAll
)

// Aborted reports whether the chain stopped early.
func (s Signal) Aborted() bool {
	return s != SignalContinue
}
