package agentrun

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/agentrun/config"
	"github.com/BaSui01/agentrun/testutil"
	"github.com/BaSui01/agentrun/types"
)

func TestNew_Minimal(t *testing.T) {
	model := testutil.NewScriptedModel(
		testutil.TextTurn("hi", types.TokenUsage{TotalTokens: 2}),
	)

	a, err := New(model, WithSystemPrompt("be terse"))
	require.NoError(t, err)

	result, err := a.Run(testutil.TestContext(t), "hello")
	require.NoError(t, err)
	assert.Equal(t, "hi", result.Output)
}

func TestNew_NilModel(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

func TestNew_FromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Agent.SystemPrompt = "from config"
	cfg.Agent.MaxIterations = 3

	model := testutil.NewScriptedModel(
		testutil.TextTurn("ok", types.TokenUsage{TotalTokens: 2}),
	)

	a, err := New(model, FromConfig(cfg))
	require.NoError(t, err)

	result, err := a.Run(testutil.TestContext(t), "ping")
	require.NoError(t, err)
	assert.Equal(t, "ok", result.Output)
}

func TestNewRuntime_WiresAgentCompanions(t *testing.T) {
	cfg := config.DefaultConfig()

	rt, err := NewRuntime(cfg, prometheus.NewRegistry())
	require.NoError(t, err)
	require.NotNil(t, rt.Logger)
	require.NotNil(t, rt.Metrics)

	model := testutil.NewScriptedModel(
		testutil.TextTurn("with runtime", types.TokenUsage{TotalTokens: 2}),
	)

	a, err := New(model, FromConfig(cfg), WithRuntime(rt))
	require.NoError(t, err)

	result, err := a.Run(testutil.TestContext(t), "go")
	require.NoError(t, err)
	assert.Equal(t, "with runtime", result.Output)

	// 遥测默认关闭，Shutdown 为空操作
	assert.NoError(t, rt.Shutdown(testutil.TestContext(t)))
}

func TestNewRuntime_BadLogConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Log.Level = "verbose"

	_, err := NewRuntime(cfg, prometheus.NewRegistry())
	assert.Error(t, err)
}

func TestNew_OptionOverridesConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	model := testutil.NewScriptedModel(
		testutil.TextTurn("done", types.TokenUsage{TotalTokens: 2}),
	)

	// 后置 Option 覆盖配置文件中的值
	a, err := New(model, FromConfig(cfg), WithMaxIterations(1))
	require.NoError(t, err)

	result, err := a.Run(testutil.TestContext(t), "go")
	require.NoError(t, err)
	assert.Equal(t, "done", result.Output)
}
