// Package retry wraps a single model call with a classify-and-backoff policy.
package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/BaSui01/agentrun/llm"
)

// Policy 定义重试策略配置。
// 策略是不可变的，可在多个并发 run 之间安全只读共享。
type Policy struct {
	MaxAttempts    int             // 最大尝试次数（含首次，1 表示不重试）
	InitialDelay   time.Duration   // 初始延迟时间
	MaxDelay       time.Duration   // 最大延迟时间
	Multiplier     float64         // 延迟时间倍增因子（指数退避）
	JitterFraction float64         // 随机抖动比例（0 表示不抖动，0.25 表示 ±25%）
	RetryableCodes []llm.ErrorCode // 可重试的错误码（为空则使用默认瞬态错误集）
}

// DefaultPolicy 返回默认的重试策略，适用于大部分模型调用场景。
func DefaultPolicy() *Policy {
	return &Policy{
		MaxAttempts:    4,
		InitialDelay:   1 * time.Second,
		MaxDelay:       30 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.25,
	}
}

// NoRetry 返回单次尝试策略：任何失败立即以 ExhaustedError(attempts=1) 浮出。
func NoRetry() *Policy {
	return &Policy{MaxAttempts: 1}
}

// normalized returns a copy with invalid fields replaced by sane defaults.
func (p *Policy) normalized() Policy {
	out := *p
	if out.MaxAttempts < 1 {
		out.MaxAttempts = 1
	}
	if out.InitialDelay < 0 {
		out.InitialDelay = 0
	}
	if out.MaxDelay <= 0 {
		out.MaxDelay = 30 * time.Second
	}
	if out.Multiplier < 1.0 {
		out.Multiplier = 2.0
	}
	if out.JitterFraction < 0 {
		out.JitterFraction = 0
	}
	return out
}

// Delay 计算第 attempt 次尝试之后的退避延迟。
//
//	delay(attempt) = min(maxDelay, initialDelay × multiplier^(attempt-1)) ± jitter
//
// attempt ≤ 0 返回 0（首次尝试之前不延迟）。未加抖动时 Delay 关于 attempt
// 单调不减，并在 MaxDelay 处精确封顶。
func (p *Policy) Delay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	np := p.normalized()

	delay := float64(np.InitialDelay) * math.Pow(np.Multiplier, float64(attempt-1))
	if delay > float64(np.MaxDelay) {
		delay = float64(np.MaxDelay)
	}

	// 随机抖动：防止多个客户端同时重试导致的雪崩效应
	if np.JitterFraction > 0 {
		jitter := delay * np.JitterFraction
		delay += (rand.Float64()*2 - 1) * jitter
	}
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}

// defaultRetryableCodes 是未显式配置时的瞬态错误集。
var defaultRetryableCodes = []llm.ErrorCode{
	llm.ErrRateLimited,
	llm.ErrModelOverloaded,
	llm.ErrUpstreamTimeout,
	llm.ErrUpstreamError,
	llm.ErrNetwork,
}

// Retryable 判断错误是否属于策略的可重试集合。
// 非 *llm.Error 的错误一律视为不可重试。
func (p *Policy) Retryable(err error) bool {
	code := llm.CodeOf(err)
	if code == "" {
		return false
	}
	allowed := p.RetryableCodes
	if len(allowed) == 0 {
		allowed = defaultRetryableCodes
	}
	for _, c := range allowed {
		if c == code {
			return true
		}
	}
	return false
}

// ExhaustedError 表示重试次数耗尽后仍然失败。
// 它包装最后一次错误，绝不会返回过期或部分响应。
type ExhaustedError struct {
	Attempts int
	LastErr  error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("model call failed after %d attempt(s): %v", e.Attempts, e.LastErr)
}

func (e *ExhaustedError) Unwrap() error { return e.LastErr }

// sleep waits for d, honouring cancellation during the inter-attempt sleep.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
