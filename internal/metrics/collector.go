// Package metrics provides internal metrics collection for the run engine.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/BaSui01/agentrun/types"
)

// Collector 指标收集器
type Collector struct {
	// 运行指标
	runsStarted  prometheus.Counter
	runsFinished *prometheus.CounterVec
	runDuration  prometheus.Histogram
	runSteps     prometheus.Histogram

	// 模型指标
	modelRequestsTotal   *prometheus.CounterVec
	modelRequestDuration *prometheus.HistogramVec
	tokensUsed           *prometheus.CounterVec
	modelCost            prometheus.Counter

	// 工具指标
	toolInvocationsTotal *prometheus.CounterVec
	toolDuration         *prometheus.HistogramVec
	toolDeferralsTotal   *prometheus.CounterVec

	logger *zap.Logger
}

// NewCollector 创建指标收集器。reg 为 nil 时注册到默认 registry。
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	factory := promauto.With(reg)

	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.runsStarted = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "runs_started_total",
		Help:      "Total number of agent runs started",
	})

	c.runsFinished = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_finished_total",
			Help:      "Total number of agent runs finished, by status",
		},
		[]string{"status"},
	)

	c.runDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "run_duration_seconds",
		Help:      "End-to-end agent run duration in seconds",
		Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	})

	c.runSteps = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "run_steps",
		Help:      "Loop iterations per agent run",
		Buckets:   []float64{1, 2, 3, 5, 8, 13, 21, 34},
	})

	c.modelRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_requests_total",
			Help:      "Total number of model completion requests, by model and status",
		},
		[]string{"model", "status"},
	)

	c.modelRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "model_request_duration_seconds",
			Help:      "Model completion request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"model"},
	)

	c.tokensUsed = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_used_total",
			Help:      "Total tokens consumed, by direction",
		},
		[]string{"direction"},
	)

	c.modelCost = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "model_cost_total",
		Help:      "Accumulated model cost as reported by providers",
	})

	c.toolInvocationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_invocations_total",
			Help:      "Total tool invocations, by tool and outcome",
		},
		[]string{"tool", "outcome"},
	)

	c.toolDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tool_duration_seconds",
			Help:      "Tool invocation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"tool"},
	)

	c.toolDeferralsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_deferrals_total",
			Help:      "Tool calls deferred for external resolution, by kind",
		},
		[]string{"kind"},
	)

	c.logger.Debug("metrics collector initialized", zap.String("namespace", namespace))
	return c
}

// RunStarted 记录一次运行开始
func (c *Collector) RunStarted() {
	if c == nil {
		return
	}
	c.runsStarted.Inc()
}

// RunFinished 记录一次运行结束
func (c *Collector) RunFinished(status string, duration time.Duration, steps int) {
	if c == nil {
		return
	}
	c.runsFinished.WithLabelValues(status).Inc()
	c.runDuration.Observe(duration.Seconds())
	c.runSteps.Observe(float64(steps))
}

// ModelRequest 记录一次模型请求
func (c *Collector) ModelRequest(model, status string, duration time.Duration) {
	if c == nil {
		return
	}
	c.modelRequestsTotal.WithLabelValues(model, status).Inc()
	c.modelRequestDuration.WithLabelValues(model).Observe(duration.Seconds())
}

// TokensUsed 记录 token 消耗
func (c *Collector) TokensUsed(usage types.TokenUsage) {
	if c == nil {
		return
	}
	c.tokensUsed.WithLabelValues("prompt").Add(float64(usage.PromptTokens))
	c.tokensUsed.WithLabelValues("completion").Add(float64(usage.CompletionTokens))
	if usage.Cost > 0 {
		c.modelCost.Add(usage.Cost)
	}
}

// ToolInvoked 记录一次工具调用
func (c *Collector) ToolInvoked(tool string, outcome types.OutcomeKind, duration time.Duration) {
	if c == nil {
		return
	}
	c.toolInvocationsTotal.WithLabelValues(tool, string(outcome)).Inc()
	c.toolDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

// ToolDeferred 记录一次工具挂起
func (c *Collector) ToolDeferred(kind types.DeferralKind) {
	if c == nil {
		return
	}
	c.toolDeferralsTotal.WithLabelValues(string(kind)).Inc()
}
