package retry

import (
	"context"

	"go.uber.org/zap"

	"github.com/BaSui01/agentrun/llm"
)

// Completer wraps an llm.Model so every Completion call is retried according
// to a Policy. Stream calls pass through unretried: a broken stream cannot be
// resumed mid-flight, so the caller decides whether to reissue the request.
type Completer struct {
	model  llm.Model
	policy *Policy
	logger *zap.Logger
}

// NewCompleter 创建带退避重试的模型包装器。policy 为 nil 时使用默认策略。
func NewCompleter(model llm.Model, policy *Policy, logger *zap.Logger) *Completer {
	if policy == nil {
		policy = DefaultPolicy()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Completer{model: model, policy: policy, logger: logger}
}

// Completion 执行模型调用；瞬态失败按策略退避重试。
// 取消在每次尝试之前以及尝试间休眠期间都会被检查。
func (c *Completer) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	p := c.policy.normalized()

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if attempt > 1 {
			delay := c.policy.Delay(attempt - 1)
			c.logger.Debug("retrying model call",
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", p.MaxAttempts),
				zap.Duration("delay", delay),
				zap.Error(lastErr),
			)
			if err := sleep(ctx, delay); err != nil {
				return nil, err
			}
		}

		resp, err := c.model.Completion(ctx, req)
		if err == nil {
			if attempt > 1 {
				c.logger.Info("model call recovered", zap.Int("attempt", attempt))
			}
			return resp, nil
		}
		lastErr = err

		if !c.policy.Retryable(err) {
			c.logger.Debug("model error not retryable", zap.Error(err))
			return nil, err
		}
	}

	c.logger.Warn("model retries exhausted",
		zap.Int("attempts", p.MaxAttempts),
		zap.Error(lastErr),
	)
	return nil, &ExhaustedError{Attempts: p.MaxAttempts, LastErr: lastErr}
}

// Stream 直接透传到底层模型。
func (c *Completer) Stream(ctx context.Context, req *llm.ChatRequest) (<-chan llm.StreamChunk, error) {
	return c.model.Stream(ctx, req)
}

// Name returns the wrapped model's identifier.
func (c *Completer) Name() string { return c.model.Name() }
