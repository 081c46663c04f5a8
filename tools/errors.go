package tools

import (
	"fmt"
	"time"
)

// NotFoundError reports a tool call naming an unregistered tool.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("tool not found: %s", e.Name)
}

// TimeoutError reports an invocation attempt losing its timeout race.
// It is distinguishable from a plain tool failure via errors.As.
type TimeoutError struct {
	Name    string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("tool %s timed out after %s", e.Name, e.Timeout)
}

// RetriesExhaustedError reports a tool that kept returning retry outcomes
// until its retry budget ran out. Attempts counts all invocations made.
type RetriesExhaustedError struct {
	Name     string
	Attempts int
	Feedback string
}

func (e *RetriesExhaustedError) Error() string {
	if e.Feedback != "" {
		return fmt.Sprintf("tool %s exhausted %d attempt(s), last feedback: %s", e.Name, e.Attempts, e.Feedback)
	}
	return fmt.Sprintf("tool %s exhausted %d attempt(s)", e.Name, e.Attempts)
}

// RateLimitedError reports a call rejected by the tool's rate limiter.
type RateLimitedError struct {
	Name string
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("tool %s rate limit exceeded", e.Name)
}
