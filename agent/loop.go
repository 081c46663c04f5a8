package agent

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/BaSui01/agentrun/llm"
	"github.com/BaSui01/agentrun/tools"
	"github.com/BaSui01/agentrun/types"
)

// completionFunc is the loop's model-call seam. The blocking and step-wise
// modes plug in the retrying completer; the stream mode plugs in an adapter
// that assembles chunks while forwarding them as events.
type completionFunc func(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error)

// runLoop drives one run to an AgentResult, a DeferredError, or a failure,
// notifying the observer at every lifecycle point.
func (a *Agent) runLoop(ctx context.Context, state *RunState, complete completionFunc, obs LoopObserver) (*AgentResult, error) {
	ctx, span := a.tracer.Start(ctx, "agent.run")
	span.SetAttributes(attribute.String("run.id", state.ID))
	defer span.End()

	a.metrics.RunStarted()
	start := time.Now()
	obs.LoopStart(state)

	result, err := a.loop(ctx, state, complete, obs)

	status := "success"
	switch {
	case err == nil:
	case isDeferredErr(err):
		status = "deferred"
	default:
		status = "error"
		span.SetStatus(codes.Error, err.Error())
	}
	a.metrics.RunFinished(status, time.Since(start), state.Step)
	a.logger.Debug("run finished",
		zap.String("run_id", state.ID),
		zap.String("status", status),
		zap.Int("steps", state.Step),
		zap.Int("requests", state.Requests),
	)
	obs.LoopEnd(state, result, err)
	return result, err
}

func isDeferredErr(err error) bool {
	_, ok := AsDeferred(err)
	return ok
}

func (a *Agent) loop(ctx context.Context, state *RunState, complete completionFunc, obs LoopObserver) (*AgentResult, error) {
	maxIterations := GetRunConfig(ctx).EffectiveMaxIterations(a.config.MaxIterations)

	for {
		// 循环顶部的协作式取消检查
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if state.Step >= maxIterations {
			return nil, &IterationLimitError{Iterations: maxIterations}
		}
		if breach := a.config.Limits.Check(state.Usage, state.Requests, state.ToolCalls); breach != nil {
			return nil, &UsageLimitError{Kind: breach.Kind, Used: breach.Used, Limit: breach.Limit}
		}

		req := a.buildRequest(ctx, state)
		obs.BeforeModelCall(state, req)

		callStart := time.Now()
		resp, err := complete(ctx, req)
		state.Requests++
		if err != nil {
			a.metrics.ModelRequest(a.completer.Name(), "error", time.Since(callStart))
			return nil, err
		}
		a.metrics.ModelRequest(a.completer.Name(), "success", time.Since(callStart))

		usage := resp.Usage
		if usage.TotalTokens == 0 && a.config.Tokenizer != nil {
			// 提供方未上报用量时用本地计数器估算
			usage = types.TokenUsage{
				PromptTokens:     a.config.Tokenizer.CountMessages(req.Messages),
				CompletionTokens: a.config.Tokenizer.CountTokens(resp.Message.Content),
			}
			usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
		}
		state.Usage.Add(usage)
		a.metrics.TokensUsed(usage)

		state.Messages = append(state.Messages, resp.Message)
		state.Step++
		obs.AfterModelResponse(state, resp)

		result, done, err := a.handleResponse(ctx, state, resp, obs)
		if err != nil {
			return nil, err
		}
		if done {
			return result, nil
		}
	}
}

// buildRequest assembles the next completion request from the full history,
// the tool catalog, and the output pseudo-tool when the result is structured.
func (a *Agent) buildRequest(ctx context.Context, state *RunState) *llm.ChatRequest {
	messages := make([]types.Message, 0, len(state.Messages)+1)
	if a.config.SystemPrompt != "" {
		messages = append(messages, types.NewSystemMessage(a.config.SystemPrompt))
	}
	messages = append(messages, state.Messages...)

	req := &llm.ChatRequest{
		Model:       a.config.ModelName,
		Messages:    messages,
		Temperature: a.config.Temperature,
		MaxTokens:   a.config.MaxTokens,
		Tools:       a.registry.List(),
	}
	if !a.config.Output.isText() {
		req.Tools = append(req.Tools, a.config.Output.toolSchema())
	}
	GetRunConfig(ctx).ApplyToRequest(req)
	return req
}

// toolContext builds the per-call context handed into tool invocations.
func (a *Agent) toolContext(state *RunState) tools.Context {
	return tools.Context{
		Deps:    state.Deps,
		Model:   a.config.Model,
		Usage:   state.Usage,
		RunID:   state.ID,
		Step:    state.Step,
		History: state.Messages,
	}
}
