// Package agentrun provides a top-level convenience entry point for creating
// agents with minimal boilerplate.
//
// Usage:
//
//	import "github.com/BaSui01/agentrun"
//
//	a, err := agentrun.New(model)
//	a, err := agentrun.New(model, agentrun.WithSystemPrompt("be terse"))
//	a, err := agentrun.New(model, agentrun.FromConfig(cfg))
//
// This is a thin wrapper around [agent.New]; both produce identical results.
// Use this package when you prefer the shorter import path.
package agentrun

import (
	"go.uber.org/zap"

	"github.com/BaSui01/agentrun/agent"
	"github.com/BaSui01/agentrun/config"
	"github.com/BaSui01/agentrun/llm"
	"github.com/BaSui01/agentrun/types"
)

// Option configures the agent created by [New].
type Option func(*agent.Config)

// New creates an [agent.Agent] backed by the given model.
func New(model llm.Model, opts ...Option) (*agent.Agent, error) {
	cfg := agent.Config{Model: model}
	for _, opt := range opts {
		opt(&cfg)
	}
	return agent.New(cfg)
}

// FromConfig 以配置文件为起点，后续 Option 仍可覆盖单项设置。
func FromConfig(c *config.Config) Option {
	return func(cfg *agent.Config) {
		model := cfg.Model
		ac := c.AgentConfig()
		ac.Model = model
		ac.Registry = cfg.Registry
		ac.Output = cfg.Output
		*cfg = ac
	}
}

// WithModelName overrides the model identifier sent on each request.
func WithModelName(name string) Option {
	return func(cfg *agent.Config) { cfg.ModelName = name }
}

// WithSystemPrompt sets the system prompt.
func WithSystemPrompt(prompt string) Option {
	return func(cfg *agent.Config) { cfg.SystemPrompt = prompt }
}

// WithOutput declares the final result shape.
func WithOutput(spec *agent.OutputSpec) Option {
	return func(cfg *agent.Config) { cfg.Output = spec }
}

// WithLimits sets usage ceilings checked before every model call.
func WithLimits(limits types.UsageLimits) Option {
	return func(cfg *agent.Config) { cfg.Limits = limits }
}

// WithMaxIterations bounds the number of loop iterations.
func WithMaxIterations(n int) Option {
	return func(cfg *agent.Config) { cfg.MaxIterations = n }
}

// WithLogger sets a custom zap logger.
func WithLogger(logger *zap.Logger) Option {
	return func(cfg *agent.Config) { cfg.Logger = logger }
}
