package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/agentrun/types"
)

// Execution pairs a tool call with its settled outcome and wall duration.
type Execution struct {
	Call     types.ToolCall
	Outcome  types.ToolOutcome
	Duration time.Duration
}

// Message converts the execution into its transcript message.
func (e Execution) Message() types.Message {
	content := e.Outcome.Content
	switch e.Outcome.Kind {
	case types.OutcomeFailure:
		content = "Error: " + e.Outcome.ErrorText()
	case types.OutcomeDeferred:
		content = "Deferred: awaiting external resolution"
	}
	return types.NewToolMessage(e.Call.ID, e.Call.Name, content)
}

// EngineConfig holds engine-wide defaults; per-tool Metadata overrides them.
type EngineConfig struct {
	// Timeout bounds one invocation attempt. Zero disables the default
	// timeout (tools may still set their own).
	Timeout time.Duration
	// MaxRetries is the default per-tool retry budget. Zero means a single
	// attempt with no engine-level retries.
	MaxRetries int
}

// Engine executes tool calls against a Registry. The engine itself holds no
// cross-call state and is safe to share across concurrent runs.
type Engine struct {
	registry *Registry
	config   EngineConfig
	logger   *zap.Logger
}

// NewEngine 创建工具执行引擎。
func NewEngine(registry *Registry, config EngineConfig, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	return &Engine{registry: registry, config: config, logger: logger}
}

// Registry returns the engine's tool catalog.
func (e *Engine) Registry() *Registry { return e.registry }

// Execute runs one call with per-call retry and timeout. On a retry outcome
// the tool is re-invoked with an incremented retry counter until the budget
// is exhausted, at which point the outstanding retry outcome is downgraded
// to a terminal failure.
func (e *Engine) Execute(ctx context.Context, base Context, call types.ToolCall) Execution {
	start := time.Now()

	tool, meta, err := e.registry.Get(call.Name)
	if err != nil {
		// 未知工具：立即失败，不重试
		e.logger.Warn("tool not found", zap.String("name", call.Name), zap.String("run_id", base.RunID))
		return Execution{Call: call, Outcome: types.Failure(err), Duration: time.Since(start)}
	}

	if !e.registry.allow(call.Name) {
		return Execution{
			Call:     call,
			Outcome:  types.Failure(&RateLimitedError{Name: call.Name}),
			Duration: time.Since(start),
		}
	}

	if len(call.Arguments) > 0 && !json.Valid(call.Arguments) {
		// 坏参数交还给模型改写，引擎侧重试无意义
		return Execution{
			Call:     call,
			Outcome:  types.Failure(fmt.Errorf("tool %s arguments are not valid JSON", call.Name)),
			Duration: time.Since(start),
		}
	}

	maxRetries := e.config.MaxRetries
	if meta.MaxRetries != nil {
		maxRetries = *meta.MaxRetries
	}

	var outcome types.ToolOutcome
	for attempt := 0; ; attempt++ {
		tc := base
		tc.CallID = call.ID
		tc.ToolName = call.Name
		tc.RetryCount = attempt

		outcome = e.invoke(ctx, tool, &tc, meta, call)
		if outcome.Kind != types.OutcomeRetry {
			break
		}
		if attempt >= maxRetries {
			outcome = types.Failure(&RetriesExhaustedError{
				Name:     call.Name,
				Attempts: attempt + 1,
				Feedback: outcome.Feedback,
			})
			break
		}
		e.logger.Debug("tool requested retry",
			zap.String("name", call.Name),
			zap.Int("attempt", attempt+1),
			zap.String("feedback", outcome.Feedback),
		)
	}

	duration := time.Since(start)
	e.logOutcome(call, outcome, duration, base.RunID)
	return Execution{Call: call, Outcome: outcome, Duration: duration}
}

// ExecuteApproved runs one call exactly once, without retry wrapping. It is
// used when resuming an approved deferred call, which is already past the
// retry phase.
func (e *Engine) ExecuteApproved(ctx context.Context, base Context, call types.ToolCall) Execution {
	start := time.Now()

	tool, meta, err := e.registry.Get(call.Name)
	if err != nil {
		return Execution{Call: call, Outcome: types.Failure(err), Duration: time.Since(start)}
	}

	tc := base
	tc.CallID = call.ID
	tc.ToolName = call.Name

	outcome := e.invoke(ctx, tool, &tc, meta, call)
	if outcome.Kind == types.OutcomeRetry {
		// 恢复阶段不再重试，降级为失败
		outcome = types.Failure(&RetriesExhaustedError{Name: call.Name, Attempts: 1, Feedback: outcome.Feedback})
	}

	duration := time.Since(start)
	e.logOutcome(call, outcome, duration, base.RunID)
	return Execution{Call: call, Outcome: outcome, Duration: duration}
}

// ExecuteAll runs a batch sequentially in call order, stopping at the first
// deferred outcome. Later calls in that batch are never attempted; earlier
// results remain valid and are returned.
func (e *Engine) ExecuteAll(ctx context.Context, base Context, calls []types.ToolCall) []Execution {
	results := make([]Execution, 0, len(calls))
	for _, call := range calls {
		if err := ctx.Err(); err != nil {
			results = append(results, Execution{Call: call, Outcome: types.Failure(err)})
			return results
		}
		exec := e.Execute(ctx, base, call)
		results = append(results, exec)
		if exec.Outcome.IsDeferred() {
			break
		}
	}
	return results
}

// invoke runs a single attempt, racing it against the effective timeout.
// The losing side is actively cancelled via the attempt context.
func (e *Engine) invoke(ctx context.Context, tool Tool, tc *Context, meta Metadata, call types.ToolCall) types.ToolOutcome {
	timeout := e.config.Timeout
	if meta.Timeout != 0 {
		timeout = meta.Timeout
	}
	if timeout <= 0 {
		return tool.Invoke(ctx, tc, call.Arguments)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// 带缓冲的 channel 防止 goroutine 泄漏：
	// 即使超时后没人接收，goroutine 也能正常退出
	doneCh := make(chan types.ToolOutcome, 1)
	go func() {
		doneCh <- tool.Invoke(attemptCtx, tc, call.Arguments)
	}()

	select {
	case outcome := <-doneCh:
		return outcome
	case <-attemptCtx.Done():
		if ctx.Err() != nil {
			// 外层取消优先于超时
			return types.Failure(ctx.Err())
		}
		return types.Failure(&TimeoutError{Name: call.Name, Timeout: timeout})
	}
}

func (e *Engine) logOutcome(call types.ToolCall, outcome types.ToolOutcome, duration time.Duration, runID string) {
	switch outcome.Kind {
	case types.OutcomeSuccess:
		e.logger.Info("tool executed",
			zap.String("name", call.Name),
			zap.String("run_id", runID),
			zap.Duration("duration", duration),
		)
	case types.OutcomeFailure:
		e.logger.Error("tool execution failed",
			zap.String("name", call.Name),
			zap.String("run_id", runID),
			zap.Error(outcome.Err),
			zap.Duration("duration", duration),
		)
	case types.OutcomeDeferred:
		e.logger.Info("tool deferred",
			zap.String("name", call.Name),
			zap.String("run_id", runID),
			zap.String("kind", string(outcome.Deferred.Kind)),
		)
	}
}
