package agent

import (
	"github.com/google/uuid"

	"github.com/BaSui01/agentrun/types"
)

// RunState is the per-run state record. It is exclusively owned by its run:
// only the owning loop iteration mutates it, so no locking is needed.
type RunState struct {
	// ID 本次运行的唯一标识
	ID string
	// Deps is the caller-supplied dependency value passed into every tool.
	Deps any
	// Messages is the transcript. Append-only; appended messages are never
	// mutated.
	Messages []types.Message
	// Usage 累计 token 消耗
	Usage types.TokenUsage
	// Requests counts model completion requests made so far.
	Requests int
	// ToolCalls counts tool invocations dispatched so far.
	ToolCalls int
	// Step is the current loop iteration, starting at 0.
	Step int
}

func newRunState(deps any, messages []types.Message) *RunState {
	return &RunState{
		ID:       uuid.NewString(),
		Deps:     deps,
		Messages: messages,
	}
}

// AgentResult is the terminal, immutable product of a successful run.
type AgentResult struct {
	// RunID identifies the run that produced this result.
	RunID string `json:"run_id"`
	// Output is the textual form of the final answer.
	Output string `json:"output"`
	// Value is the decoded structured value, nil for plain-text output.
	Value any `json:"value,omitempty"`
	// Usage 本次运行的总消耗
	Usage types.TokenUsage `json:"usage"`
	// Messages is the full transcript including the final turn.
	Messages []types.Message `json:"messages"`
	// Metadata carries caller- and agent-supplied annotations.
	Metadata map[string]string `json:"metadata,omitempty"`
}
