package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/agentrun/llm"
	"github.com/BaSui01/agentrun/tools"
	"github.com/BaSui01/agentrun/types"
)

// handleResponse resolves one model response into an action: return the
// final result (done=true), continue the loop (done=false), or fail.
func (a *Agent) handleResponse(ctx context.Context, state *RunState, resp *llm.ChatResponse, obs LoopObserver) (*AgentResult, bool, error) {
	// 拒答优先于任何停止原因
	if resp.Refusal != "" {
		return nil, false, &RefusalError{Reason: resp.Refusal}
	}
	switch resp.FinishReason {
	case llm.FinishLength:
		return nil, false, &TruncatedError{Reason: "length limit"}
	case llm.FinishContentFilter:
		return nil, false, &TruncatedError{Reason: "content filter"}
	}

	if len(resp.Message.ToolCalls) > 0 {
		return a.handleToolCalls(ctx, state, resp.Message.ToolCalls, obs)
	}
	return a.handleCompletion(state, resp)
}

// handleCompletion resolves a response that carries no tool calls.
func (a *Agent) handleCompletion(state *RunState, resp *llm.ChatResponse) (*AgentResult, bool, error) {
	content := resp.Message.Content
	if content == "" {
		return nil, false, &UnexpectedModelBehaviorError{Detail: "completion with neither content nor tool calls"}
	}

	if a.config.Output.isText() {
		if err := a.validate(content); err != nil {
			if vr, ok := asValidationRetry(err); ok {
				a.logger.Debug("output validation retry", zap.String("run_id", state.ID), zap.String("feedback", vr.Feedback))
				// 纯文本回合没有 tool_call_id，反馈只能走 user 消息；
				// 工具形态的输出走 resolveOutputCalls 的 tool 错误消息
				state.Messages = append(state.Messages, types.NewUserMessage(vr.Feedback))
				return nil, false, nil
			}
			return nil, false, err
		}
		return a.finish(state, content, nil), true, nil
	}

	// 期望结构化输出却得到纯文本：提醒模型调用输出工具后继续
	reminder := fmt.Sprintf("Respond by calling the %s tool with the final result.", a.config.Output.toolName())
	state.Messages = append(state.Messages, types.NewUserMessage(reminder))
	return nil, false, nil
}

// handleToolCalls partitions a turn's calls into output-producing and regular
// ones, resolves the output candidates, and dispatches the rest.
func (a *Agent) handleToolCalls(ctx context.Context, state *RunState, calls []types.ToolCall, obs LoopObserver) (*AgentResult, bool, error) {
	var outputCalls, regular []types.ToolCall
	structured := !a.config.Output.isText()
	outName := a.config.Output.toolName()
	for _, c := range calls {
		if structured && c.Name == outName {
			outputCalls = append(outputCalls, c)
		} else {
			regular = append(regular, c)
		}
	}

	value, found := a.resolveOutputCalls(state, outputCalls)
	if found {
		if a.config.EndStrategy == EndExhaustive && len(regular) > 0 {
			// 先跑完剩余调用的副作用，再返回已找到的输出
			if err := a.dispatchBatch(ctx, state, regular, obs, true); err != nil {
				return nil, false, err
			}
		}
		raw := outputCalls[0].Arguments
		return a.finish(state, string(raw), value), true, nil
	}

	if len(regular) == 0 {
		// 仅有输出调用且全部未通过校验，反馈已入账，继续循环
		return nil, false, nil
	}

	if err := a.dispatchBatch(ctx, state, regular, obs, false); err != nil {
		return nil, false, err
	}
	return nil, false, nil
}

// resolveOutputCalls decodes and validates the output pseudo-tool calls in
// original order. Each call gets a tool result message; the first valid one
// becomes the candidate. Invalid calls feed their validation feedback back to
// the model.
func (a *Agent) resolveOutputCalls(state *RunState, calls []types.ToolCall) (any, bool) {
	var value any
	found := false
	for _, c := range calls {
		if found {
			state.Messages = append(state.Messages, types.NewToolMessage(c.ID, c.Name,
				"Final result already recorded; this call was ignored."))
			continue
		}
		v, err := a.config.Output.decode(c.Arguments)
		if err == nil {
			err = a.validate(v)
		}
		if err != nil {
			feedback := err.Error()
			if vr, ok := asValidationRetry(err); ok {
				feedback = vr.Feedback
			}
			state.Messages = append(state.Messages, types.NewToolMessage(c.ID, c.Name, "Error: "+feedback))
			continue
		}
		found = true
		value = v
		state.Messages = append(state.Messages, types.NewToolMessage(c.ID, c.Name, "Final result processed."))
	}
	return value, found
}

// dispatchBatch executes one turn's regular tool calls and appends their
// results in original call order. When the batch is interrupted by a deferral
// the completed results stay in the transcript and a DeferredError carrying
// the snapshot is returned; afterOutput suppresses deferral because the run
// already holds its final result.
func (a *Agent) dispatchBatch(ctx context.Context, state *RunState, calls []types.ToolCall, obs LoopObserver, afterOutput bool) error {
	obs.BeforeToolBatch(state, calls)
	tc := a.toolContext(state)

	var execs []tools.Execution
	if a.config.MaxParallelTools > 1 {
		execs = a.engine.ExecuteAllParallel(ctx, tc, calls, a.config.MaxParallelTools)
	} else {
		execs = a.engine.ExecuteAll(ctx, tc, calls)
	}

	var timeoutErr *tools.TimeoutError
	for _, ex := range execs {
		state.ToolCalls++
		a.metrics.ToolInvoked(ex.Call.Name, ex.Outcome.Kind, ex.Duration)
		obs.ToolDone(state, ex)
		if ex.Outcome.IsDeferred() && !afterOutput {
			// 挂起的调用暂不写入结果消息，由 Resume 补上
			continue
		}
		state.Messages = append(state.Messages, ex.Message())
		if timeoutErr == nil {
			errors.As(ex.Outcome.Err, &timeoutErr)
		}
	}
	obs.AfterToolBatch(state, execs)

	if err := ctx.Err(); err != nil {
		return err
	}

	last := execs[len(execs)-1]
	if last.Outcome.IsDeferred() && !afterOutput {
		a.metrics.ToolDeferred(last.Outcome.Deferred.Kind)
		paused := &PausedAgentRun{
			RunID:     state.ID,
			Messages:  types.CopyMessages(state.Messages),
			Usage:     state.Usage,
			Requests:  state.Requests,
			ToolCalls: state.ToolCalls,
			Step:      state.Step,
			Pending: []types.PendingToolCall{
				{Call: last.Call, Deferred: *last.Outcome.Deferred},
			},
			CreatedAt: time.Now().UTC(),
		}
		return &DeferredError{Paused: paused}
	}

	// 工具超时是运行级错误，区别于普通工具失败
	if timeoutErr != nil {
		return timeoutErr
	}
	return nil
}

// validate runs the configured validators against a candidate output.
func (a *Agent) validate(value any) error {
	for _, v := range a.config.Validators {
		if err := v(value); err != nil {
			return err
		}
	}
	return nil
}

// finish builds the terminal result from the run's state.
func (a *Agent) finish(state *RunState, output string, value any) *AgentResult {
	var md map[string]string
	if len(a.config.Metadata) > 0 {
		md = make(map[string]string, len(a.config.Metadata))
		for k, v := range a.config.Metadata {
			md[k] = v
		}
	}
	return &AgentResult{
		RunID:    state.ID,
		Output:   output,
		Value:    value,
		Usage:    state.Usage,
		Messages: state.Messages,
		Metadata: md,
	}
}
