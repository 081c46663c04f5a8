package agent

import (
	"errors"
	"fmt"

	"github.com/BaSui01/agentrun/types"
)

// ErrModelNotSet 模型未设置
var ErrModelNotSet = errors.New("agent: model not set")

// IterationLimitError reports that the loop hit its iteration ceiling before
// producing an output. Distinct from usage-limit breaches.
type IterationLimitError struct {
	Iterations int
}

func (e *IterationLimitError) Error() string {
	return fmt.Sprintf("agent: iteration limit reached (%d)", e.Iterations)
}

// UsageLimitError reports an exceeded usage ceiling. The run aborts before
// any further model call once a ceiling is hit.
type UsageLimitError struct {
	Kind  types.LimitKind
	Used  int
	Limit int
}

func (e *UsageLimitError) Error() string {
	return fmt.Sprintf("agent: usage limit exceeded: %s used %d, limit %d", e.Kind, e.Used, e.Limit)
}

// RefusalError reports that the model declined to answer. Never retried.
type RefusalError struct {
	Reason string
}

func (e *RefusalError) Error() string {
	return fmt.Sprintf("agent: model refused: %s", e.Reason)
}

// TruncatedError reports a response cut off by a length limit or removed by
// a content filter. Fatal for the run.
type TruncatedError struct {
	Reason string
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("agent: response truncated or filtered: %s", e.Reason)
}

// UnexpectedModelBehaviorError reports a contract violation by the model
// layer, such as a normal completion carrying neither content nor tool calls.
type UnexpectedModelBehaviorError struct {
	Detail string
}

func (e *UnexpectedModelBehaviorError) Error() string {
	return fmt.Sprintf("agent: unexpected model behavior: %s", e.Detail)
}

// DeferredError is a control-flow signal, not a failure: one or more tool
// calls deferred and the run needs Resume once resolutions are available.
type DeferredError struct {
	Paused *PausedAgentRun
}

func (e *DeferredError) Error() string {
	return fmt.Sprintf("agent: run %s paused with %d deferred tool call(s)", e.Paused.RunID, len(e.Paused.Pending))
}

// AsDeferred unwraps a DeferredError from err, if present.
func AsDeferred(err error) (*DeferredError, bool) {
	var de *DeferredError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// InternalError 不应出现；存在是为了让缺陷大声暴露而不是悄悄污染输出。
type InternalError struct {
	Detail string
	Err    error
}

func (e *InternalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("agent: internal error: %s: %v", e.Detail, e.Err)
	}
	return fmt.Sprintf("agent: internal error: %s", e.Detail)
}

func (e *InternalError) Unwrap() error { return e.Err }

// ValidationRetryError is the non-fatal signal a validator returns to ask for
// another iteration. Feedback is fed back to the model as tool-error content
// and the loop continues.
type ValidationRetryError struct {
	Feedback string
}

func (e *ValidationRetryError) Error() string {
	return fmt.Sprintf("validation retry: %s", e.Feedback)
}

// RetryValidation builds a ValidationRetryError with the given feedback.
func RetryValidation(format string, args ...any) error {
	return &ValidationRetryError{Feedback: fmt.Sprintf(format, args...)}
}

// asValidationRetry unwraps the retry signal from a validator error.
func asValidationRetry(err error) (*ValidationRetryError, bool) {
	var vr *ValidationRetryError
	if errors.As(err, &vr) {
		return vr, true
	}
	return nil, false
}
