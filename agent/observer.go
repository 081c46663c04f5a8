package agent

import (
	"github.com/BaSui01/agentrun/llm"
	"github.com/BaSui01/agentrun/tools"
	"github.com/BaSui01/agentrun/types"
)

// LoopObserver receives lifecycle hooks from the run loop. Each execution
// mode supplies an observer that projects these hooks into its own event
// shape; the loop itself never distinguishes which mode is driving it.
//
// Hooks are invoked synchronously from the loop goroutine, so observers must
// not block indefinitely.
type LoopObserver interface {
	// LoopStart 运行开始
	LoopStart(state *RunState)
	// BeforeModelCall fires after the request is built, before the model is
	// invoked.
	BeforeModelCall(state *RunState, req *llm.ChatRequest)
	// AfterModelResponse fires once usage is accumulated and the assistant
	// message appended.
	AfterModelResponse(state *RunState, resp *llm.ChatResponse)
	// BeforeToolBatch fires before the regular calls of one turn execute.
	BeforeToolBatch(state *RunState, calls []types.ToolCall)
	// ToolDone fires once per settled tool call, in call order.
	ToolDone(state *RunState, exec tools.Execution)
	// AfterToolBatch fires once the batch settles or is interrupted by a
	// deferral.
	AfterToolBatch(state *RunState, execs []tools.Execution)
	// LoopEnd 运行结束，result 与 err 恰有一个非空
	LoopEnd(state *RunState, result *AgentResult, err error)
}

// NopObserver is the observer for the blocking mode: every hook is a no-op.
type NopObserver struct{}

func (NopObserver) LoopStart(*RunState)                            {}
func (NopObserver) BeforeModelCall(*RunState, *llm.ChatRequest)    {}
func (NopObserver) AfterModelResponse(*RunState, *llm.ChatResponse) {}
func (NopObserver) BeforeToolBatch(*RunState, []types.ToolCall)    {}
func (NopObserver) ToolDone(*RunState, tools.Execution)            {}
func (NopObserver) AfterToolBatch(*RunState, []tools.Execution)    {}
func (NopObserver) LoopEnd(*RunState, *AgentResult, error)         {}
