package types

// LimitKind identifies which usage ceiling was exceeded.
type LimitKind string

const (
	LimitPromptTokens     LimitKind = "prompt_tokens"
	LimitCompletionTokens LimitKind = "completion_tokens"
	LimitTotalTokens      LimitKind = "total_tokens"
	LimitRequests         LimitKind = "requests"
	LimitToolCalls        LimitKind = "tool_calls"
)

// UsageLimits holds optional ceilings on a run's resource consumption.
// Nil fields mean "unlimited" — only non-nil ceilings are enforced,
// mirroring the pointer-override convention used for run configuration.
type UsageLimits struct {
	MaxPromptTokens     *int `json:"max_prompt_tokens,omitempty"`
	MaxCompletionTokens *int `json:"max_completion_tokens,omitempty"`
	MaxTotalTokens      *int `json:"max_total_tokens,omitempty"`
	MaxRequests         *int `json:"max_requests,omitempty"`
	MaxToolCalls        *int `json:"max_tool_calls,omitempty"`
}

// LimitBreach reports an exceeded ceiling.
type LimitBreach struct {
	Kind  LimitKind
	Used  int
	Limit int
}

// Check compares accumulated usage and counters against the configured
// ceilings and returns the first breach in a fixed order (requests first,
// so a request ceiling is reported before any further model call is made).
// A nil return means all ceilings hold.
func (l UsageLimits) Check(usage TokenUsage, requests, toolCalls int) *LimitBreach {
	if l.MaxRequests != nil && requests >= *l.MaxRequests {
		return &LimitBreach{Kind: LimitRequests, Used: requests, Limit: *l.MaxRequests}
	}
	if l.MaxToolCalls != nil && toolCalls > *l.MaxToolCalls {
		return &LimitBreach{Kind: LimitToolCalls, Used: toolCalls, Limit: *l.MaxToolCalls}
	}
	if l.MaxPromptTokens != nil && usage.PromptTokens > *l.MaxPromptTokens {
		return &LimitBreach{Kind: LimitPromptTokens, Used: usage.PromptTokens, Limit: *l.MaxPromptTokens}
	}
	if l.MaxCompletionTokens != nil && usage.CompletionTokens > *l.MaxCompletionTokens {
		return &LimitBreach{Kind: LimitCompletionTokens, Used: usage.CompletionTokens, Limit: *l.MaxCompletionTokens}
	}
	if l.MaxTotalTokens != nil && usage.TotalTokens > *l.MaxTotalTokens {
		return &LimitBreach{Kind: LimitTotalTokens, Used: usage.TotalTokens, Limit: *l.MaxTotalTokens}
	}
	return nil
}

// IntPtr returns a pointer to the given int. Convenience for building limits.
func IntPtr(v int) *int { return &v }
