package agent

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/BaSui01/agentrun/types"
)

// PausedAgentRun is the full snapshot of a run interrupted by deferred tool
// calls: the sole vehicle for crossing a human or external-system boundary.
// It serializes cleanly so callers can persist or transport it when the
// resolution happens out of process.
type PausedAgentRun struct {
	RunID     string                  `json:"run_id"`
	Messages  []types.Message         `json:"messages"`
	Usage     types.TokenUsage        `json:"usage"`
	Requests  int                     `json:"requests"`
	ToolCalls int                     `json:"tool_calls"`
	Step      int                     `json:"step"`
	Pending   []types.PendingToolCall `json:"pending"`
	CreatedAt time.Time               `json:"created_at"`
}

// Clone returns a deep copy. The snapshot itself is never mutated by Resume,
// but callers holding one across goroutines may want their own copy.
func (p *PausedAgentRun) Clone() *PausedAgentRun {
	if p == nil {
		return nil
	}
	clone := *p
	clone.Messages = types.CopyMessages(p.Messages)
	clone.Pending = append([]types.PendingToolCall(nil), p.Pending...)
	return &clone
}

// Marshal serializes the snapshot for persistence.
func (p *PausedAgentRun) Marshal() ([]byte, error) {
	return json.Marshal(p)
}

// UnmarshalPausedRun restores a snapshot produced by Marshal.
func UnmarshalPausedRun(data []byte) (*PausedAgentRun, error) {
	var p PausedAgentRun
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	if p.RunID == "" {
		return nil, errors.New("agent: paused run snapshot missing run_id")
	}
	return &p, nil
}

// ResolutionKind 外部对挂起工具调用的处置方式。
type ResolutionKind string

const (
	// ResolutionApproved executes the tool once, with no retry wrapping.
	ResolutionApproved ResolutionKind = "approved"
	// ResolutionDenied records an error result carrying the reason; the tool
	// is never invoked.
	ResolutionDenied ResolutionKind = "denied"
	// ResolutionCompleted injects the caller-supplied text as the tool's
	// output; the tool is never invoked.
	ResolutionCompleted ResolutionKind = "completed"
	// ResolutionFailed records the supplied error as the tool's result.
	ResolutionFailed ResolutionKind = "failed"
)

// Resolution is the external verdict for one deferred tool call.
type Resolution struct {
	Kind   ResolutionKind `json:"kind"`
	Reason string         `json:"reason,omitempty"`
	Result string         `json:"result,omitempty"`
	Err    error          `json:"-"`
}

// Approve 批准执行
func Approve() Resolution { return Resolution{Kind: ResolutionApproved} }

// Deny 拒绝执行并记录原因
func Deny(reason string) Resolution { return Resolution{Kind: ResolutionDenied, Reason: reason} }

// Complete supplies the tool's output directly.
func Complete(result string) Resolution {
	return Resolution{Kind: ResolutionCompleted, Result: result}
}

// Fail records an external failure as the tool's result.
func Fail(err error) Resolution { return Resolution{Kind: ResolutionFailed, Err: err} }
