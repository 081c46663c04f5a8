package agent

import (
	"context"

	"github.com/BaSui01/agentrun/llm"
	"github.com/BaSui01/agentrun/tools"
	"github.com/BaSui01/agentrun/types"
)

// StepKind discriminates the items yielded by Iterate.
type StepKind string

const (
	// StepUserPrompt is the opening user message, yielded once.
	StepUserPrompt StepKind = "user_prompt"
	// StepModelRequest is the request about to be sent to the model.
	StepModelRequest StepKind = "model_request"
	// StepModelResponse is the model's reply for one turn.
	StepModelResponse StepKind = "model_response"
	// StepToolBatchStart announces the regular tool calls of one turn.
	StepToolBatchStart StepKind = "tool_batch_start"
	// StepToolBatchResults carries the settled batch.
	StepToolBatchResults StepKind = "tool_batch_results"
	// StepEnd is the terminal item carrying the result or error.
	StepEnd StepKind = "end"
)

// Step is one item of a step-wise run. Fields are populated according to
// Kind; unrelated fields are zero.
type Step struct {
	Kind       StepKind
	Message    *types.Message
	Request    *llm.ChatRequest
	Response   *llm.ChatResponse
	Calls      []types.ToolCall
	Executions []tools.Execution
	Result     *AgentResult
	Err        error
}

// RunIterator yields a run's steps one at a time. The loop runs in its own
// goroutine and blocks between steps until Next is called again.
type RunIterator struct {
	steps  chan Step
	cancel context.CancelFunc
	result *AgentResult
	err    error
}

// Iterate starts a step-wise run. Callers must drain the iterator with Next
// or release it with Close.
func (a *Agent) Iterate(ctx context.Context, prompt string, opts ...RunOption) *RunIterator {
	ctx, cancel := context.WithCancel(ctx)
	it := &RunIterator{steps: make(chan Step), cancel: cancel}
	state := a.newRun(prompt, opts...)

	go func() {
		defer close(it.steps)
		obs := &iterObserver{ctx: ctx, steps: it.steps}
		if n := len(state.Messages); n > 0 && state.Messages[n-1].Role == types.RoleUser {
			prompt := state.Messages[n-1]
			obs.send(Step{Kind: StepUserPrompt, Message: &prompt})
		}
		it.result, it.err = a.runLoop(ctx, state, a.completer.Completion, obs)
	}()
	return it
}

// Next blocks until the next step is available. ok is false once the run has
// ended and the terminal step was consumed.
func (it *RunIterator) Next() (Step, bool) {
	step, ok := <-it.steps
	return step, ok
}

// Result returns the terminal outcome. Valid only after Next returned false.
func (it *RunIterator) Result() (*AgentResult, error) {
	return it.result, it.err
}

// Close cancels the run and releases the loop goroutine. Safe to call at any
// point; pending steps are discarded.
func (it *RunIterator) Close() {
	it.cancel()
	for range it.steps {
	}
}

// iterObserver projects loop lifecycle hooks into steps.
type iterObserver struct {
	ctx   context.Context
	steps chan<- Step
}

func (o *iterObserver) send(step Step) {
	select {
	case o.steps <- step:
	case <-o.ctx.Done():
	}
}

func (o *iterObserver) LoopStart(*RunState) {}

func (o *iterObserver) BeforeModelCall(_ *RunState, req *llm.ChatRequest) {
	o.send(Step{Kind: StepModelRequest, Request: req})
}

func (o *iterObserver) AfterModelResponse(_ *RunState, resp *llm.ChatResponse) {
	o.send(Step{Kind: StepModelResponse, Response: resp})
}

func (o *iterObserver) BeforeToolBatch(_ *RunState, calls []types.ToolCall) {
	o.send(Step{Kind: StepToolBatchStart, Calls: calls})
}

func (o *iterObserver) ToolDone(*RunState, tools.Execution) {}

func (o *iterObserver) AfterToolBatch(_ *RunState, execs []tools.Execution) {
	o.send(Step{Kind: StepToolBatchResults, Executions: execs})
}

func (o *iterObserver) LoopEnd(_ *RunState, result *AgentResult, err error) {
	o.send(Step{Kind: StepEnd, Result: result, Err: err})
}
