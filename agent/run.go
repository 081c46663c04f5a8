package agent

import (
	"context"

	"github.com/BaSui01/agentrun/types"
)

// RunOption customizes one run.
type RunOption func(*runOptions)

type runOptions struct {
	deps    any
	history []types.Message
}

// WithDeps supplies the dependency value handed to every tool invocation.
func WithDeps(deps any) RunOption {
	return func(o *runOptions) { o.deps = deps }
}

// WithHistory seeds the transcript with prior messages.
func WithHistory(history []types.Message) RunOption {
	return func(o *runOptions) { o.history = history }
}

func (a *Agent) newRun(prompt string, opts ...RunOption) *RunState {
	var o runOptions
	for _, opt := range opts {
		opt(&o)
	}
	messages := types.CopyMessages(o.history)
	if prompt != "" {
		messages = append(messages, types.NewUserMessage(prompt))
	}
	return newRunState(o.deps, messages)
}

// Run executes the loop to completion and blocks until an AgentResult, a
// DeferredError, or a failure.
func (a *Agent) Run(ctx context.Context, prompt string, opts ...RunOption) (*AgentResult, error) {
	state := a.newRun(prompt, opts...)
	return a.runLoop(ctx, state, a.completer.Completion, NopObserver{})
}
