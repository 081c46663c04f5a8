package config

import (
	"github.com/BaSui01/agentrun/agent"
	"github.com/BaSui01/agentrun/llm/retry"
	"github.com/BaSui01/agentrun/runstore"
	"github.com/BaSui01/agentrun/types"
)

// AgentConfig 把配置节转换为运行循环配置。Model、Registry、Output
// 等运行时对象由调用方补齐。
func (c *Config) AgentConfig() agent.Config {
	return agent.Config{
		ModelName:        c.Agent.Model,
		SystemPrompt:     c.Agent.SystemPrompt,
		Temperature:      float32(c.Agent.Temperature),
		MaxTokens:        c.Agent.MaxTokens,
		MaxIterations:    c.Agent.MaxIterations,
		ToolTimeout:      c.Agent.ToolTimeout,
		ToolMaxRetries:   c.Agent.ToolMaxRetries,
		MaxParallelTools: c.Agent.MaxParallelTools,
		EndStrategy:      agent.EndStrategy(c.Agent.EndStrategy),
		RetryPolicy:      c.RetryPolicy(),
		Limits:           c.UsageLimits(),
	}
}

// RetryPolicy 把重试配置节转换为退避策略。
func (c *Config) RetryPolicy() *retry.Policy {
	return &retry.Policy{
		MaxAttempts:    c.Retry.MaxAttempts,
		InitialDelay:   c.Retry.InitialDelay,
		MaxDelay:       c.Retry.MaxDelay,
		Multiplier:     c.Retry.Multiplier,
		JitterFraction: c.Retry.JitterFraction,
	}
}

// UsageLimits 把上限配置节转换为用量上限，0 视为未设置。
func (c *Config) UsageLimits() types.UsageLimits {
	var limits types.UsageLimits
	if v := c.Limits.MaxPromptTokens; v > 0 {
		limits.MaxPromptTokens = &v
	}
	if v := c.Limits.MaxCompletionTokens; v > 0 {
		limits.MaxCompletionTokens = &v
	}
	if v := c.Limits.MaxTotalTokens; v > 0 {
		limits.MaxTotalTokens = &v
	}
	if v := c.Limits.MaxRequests; v > 0 {
		limits.MaxRequests = &v
	}
	if v := c.Limits.MaxToolCalls; v > 0 {
		limits.MaxToolCalls = &v
	}
	return limits
}

// RedisStoreConfig 把 Redis 配置节转换为快照存储配置。
func (c *Config) RedisStoreConfig() runstore.RedisConfig {
	return runstore.RedisConfig{
		Addr:      c.Redis.Addr,
		Password:  c.Redis.Password,
		DB:        c.Redis.DB,
		PoolSize:  c.Redis.PoolSize,
		KeyPrefix: c.Redis.KeyPrefix,
		TTL:       c.Redis.TTL,
	}
}
