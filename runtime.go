package agentrun

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/BaSui01/agentrun/agent"
	"github.com/BaSui01/agentrun/config"
	"github.com/BaSui01/agentrun/internal/metrics"
	"github.com/BaSui01/agentrun/internal/telemetry"
)

// Runtime bundles the process-wide companions built from a configuration
// file: the zap logger, the Prometheus collector, and the OTel providers.
// One Runtime serves any number of agents.
type Runtime struct {
	Logger    *zap.Logger
	Metrics   *metrics.Collector
	providers *telemetry.Providers
}

// NewRuntime 从配置构建日志、指标与遥测设施。
// reg 为 nil 时指标注册到 prometheus.DefaultRegisterer。
func NewRuntime(c *config.Config, reg prometheus.Registerer) (*Runtime, error) {
	logger, err := c.Log.BuildLogger()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	providers, err := telemetry.Init(c.Telemetry, logger)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	return &Runtime{
		Logger:    logger,
		Metrics:   metrics.NewCollector(c.Metrics.Namespace, reg, logger),
		providers: providers,
	}, nil
}

// Shutdown flushes telemetry exporters and the logger.
func (r *Runtime) Shutdown(ctx context.Context) error {
	if r == nil {
		return nil
	}
	err := r.providers.Shutdown(ctx)
	if r.Logger != nil {
		_ = r.Logger.Sync()
	}
	return err
}

// WithRuntime injects the runtime's logger, metrics, and tracer into the
// agent. Apply it after [FromConfig], which resets those fields.
func WithRuntime(rt *Runtime) Option {
	return func(cfg *agent.Config) {
		if rt == nil {
			return
		}
		cfg.Logger = rt.Logger
		cfg.Metrics = rt.Metrics
		cfg.Tracer = rt.providers.Tracer("agentrun")
	}
}
