package agent

import (
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/BaSui01/agentrun/internal/metrics"
	"github.com/BaSui01/agentrun/llm"
	"github.com/BaSui01/agentrun/llm/retry"
	"github.com/BaSui01/agentrun/tokenizer"
	"github.com/BaSui01/agentrun/tools"
	"github.com/BaSui01/agentrun/types"
)

// EndStrategy decides what happens to the rest of a tool batch once a valid
// final output is found in it.
type EndStrategy string

const (
	// EndEarly stops the batch at the first valid output.
	EndEarly EndStrategy = "early"
	// EndExhaustive still runs the remaining regular calls for their side
	// effects, then returns the first valid output found.
	EndExhaustive EndStrategy = "exhaustive"
)

// Config 定义 Agent 的静态配置。运行期可通过 RunConfig 覆盖请求参数。
type Config struct {
	// Model is the completion backend. Required.
	Model llm.Model
	// ModelName 请求中携带的模型标识，可为空由 Model 实现决定
	ModelName string
	// SystemPrompt is prepended to every request. Not stored in transcripts.
	SystemPrompt string
	// Temperature and MaxTokens are request defaults, zero means unset.
	Temperature float32
	MaxTokens   int

	// Registry is the tool catalog. A nil registry means no tools.
	Registry *tools.Registry
	// Output declares the final result shape. Nil means plain text.
	Output *OutputSpec
	// Validators run against every candidate output before it is accepted.
	Validators []Validator

	// RetryPolicy governs transient model-call failures. Nil means the
	// default policy.
	RetryPolicy *retry.Policy
	// Limits are optional usage ceilings, checked before every model call.
	Limits types.UsageLimits
	// MaxIterations bounds loop iterations (default 15).
	MaxIterations int

	// ToolTimeout bounds one tool invocation attempt. Zero disables.
	ToolTimeout time.Duration
	// ToolMaxRetries is the engine-level retry budget per tool call.
	// Zero means the default of 1; a negative value disables retries.
	ToolMaxRetries int
	// MaxParallelTools > 1 executes a tool batch concurrently with that
	// limit. Results still append in call order.
	MaxParallelTools int
	// EndStrategy 默认 EndEarly
	EndStrategy EndStrategy

	// Metadata is copied onto every AgentResult.
	Metadata map[string]string

	Logger    *zap.Logger
	Metrics   *metrics.Collector
	Tracer    trace.Tracer
	Tokenizer tokenizer.Counter
}

// Agent drives the run loop. One Agent value is safe for concurrent runs:
// all per-run state lives in RunState, and the configuration is read-only
// after New.
type Agent struct {
	config    Config
	completer *retry.Completer
	engine    *tools.Engine
	registry  *tools.Registry
	logger    *zap.Logger
	metrics   *metrics.Collector
	tracer    trace.Tracer
}

// New 创建 Agent 并应用默认值。
func New(config Config) (*Agent, error) {
	if config.Model == nil {
		return nil, ErrModelNotSet
	}
	if config.MaxIterations <= 0 {
		config.MaxIterations = 15
	}
	if config.EndStrategy == "" {
		config.EndStrategy = EndEarly
	}
	if config.ToolMaxRetries == 0 {
		config.ToolMaxRetries = 1
	}
	if config.Output == nil {
		config.Output = TextOutput()
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "agent"))

	registry := config.Registry
	if registry == nil {
		registry = tools.NewRegistry(logger)
	}
	tracer := config.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("agentrun")
	}

	return &Agent{
		config:    config,
		completer: retry.NewCompleter(config.Model, config.RetryPolicy, logger),
		engine: tools.NewEngine(registry, tools.EngineConfig{
			Timeout:    config.ToolTimeout,
			MaxRetries: config.ToolMaxRetries,
		}, logger),
		registry: registry,
		logger:   logger,
		metrics:  config.Metrics,
		tracer:   tracer,
	}, nil
}

// Registry exposes the tool catalog for registration after New.
func (a *Agent) Registry() *tools.Registry { return a.registry }
