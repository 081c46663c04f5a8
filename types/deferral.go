package types

// DeferralKind classifies why a tool call was deferred.
type DeferralKind string

const (
	// DeferralApproval requires human approval before execution.
	DeferralApproval DeferralKind = "approval"
	// DeferralExternal waits on an external system to complete the work.
	DeferralExternal DeferralKind = "external"
	// DeferralCustom is an application-defined deferral.
	DeferralCustom DeferralKind = "custom"
)

// DeferredToolCall describes a tool call awaiting external resolution.
type DeferredToolCall struct {
	ID     string       `json:"id"`
	Reason string       `json:"reason,omitempty"`
	Kind   DeferralKind `json:"kind"`
}

// PendingToolCall pairs a model-issued ToolCall with its deferral record.
type PendingToolCall struct {
	Call     ToolCall         `json:"call"`
	Deferred DeferredToolCall `json:"deferred"`
}
