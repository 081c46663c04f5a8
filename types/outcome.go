package types

// OutcomeKind discriminates the ToolOutcome tagged union.
type OutcomeKind string

const (
	// OutcomeSuccess carries the tool's textual result.
	OutcomeSuccess OutcomeKind = "success"
	// OutcomeRetry asks the engine to re-invoke the tool with feedback.
	OutcomeRetry OutcomeKind = "retry"
	// OutcomeFailure is a terminal failure for this call.
	OutcomeFailure OutcomeKind = "failure"
	// OutcomeDeferred means the tool cannot complete synchronously and
	// needs external resolution before the run can continue.
	OutcomeDeferred OutcomeKind = "deferred"
)

// ToolOutcome is the result of a single tool invocation attempt.
// Exactly one outcome is produced per call per attempt.
type ToolOutcome struct {
	Kind OutcomeKind
	// Content holds the result text for OutcomeSuccess.
	Content string
	// Feedback holds retry guidance for OutcomeRetry.
	Feedback string
	// Err holds the failure cause for OutcomeFailure.
	Err error
	// Deferred describes the pending resolution for OutcomeDeferred.
	Deferred *DeferredToolCall
}

// Success returns a successful outcome carrying the result text.
func Success(content string) ToolOutcome {
	return ToolOutcome{Kind: OutcomeSuccess, Content: content}
}

// Retry returns a retry outcome carrying feedback for the next attempt.
func Retry(feedback string) ToolOutcome {
	return ToolOutcome{Kind: OutcomeRetry, Feedback: feedback}
}

// Failure returns a terminal failure outcome.
func Failure(err error) ToolOutcome {
	return ToolOutcome{Kind: OutcomeFailure, Err: err}
}

// Defer returns a deferred outcome describing the required resolution.
func Defer(deferred DeferredToolCall) ToolOutcome {
	d := deferred
	return ToolOutcome{Kind: OutcomeDeferred, Deferred: &d}
}

// IsDeferred reports whether the outcome requires external resolution.
func (o ToolOutcome) IsDeferred() bool { return o.Kind == OutcomeDeferred }

// IsTerminal reports whether the outcome ends this call (success or failure).
func (o ToolOutcome) IsTerminal() bool {
	return o.Kind == OutcomeSuccess || o.Kind == OutcomeFailure
}

// ErrorText returns the failure text suitable for transcript content,
// or "" when the outcome is not a failure.
func (o ToolOutcome) ErrorText() string {
	if o.Kind != OutcomeFailure || o.Err == nil {
		return ""
	}
	return o.Err.Error()
}
