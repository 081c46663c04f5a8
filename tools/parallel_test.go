package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/agentrun/types"
)

func TestExecuteAllParallelPreservesOrder(t *testing.T) {
	engine, reg := newTestEngine(t, EngineConfig{})

	// 慢的工具先注册，验证结果顺序与调用顺序一致而非完成顺序
	for i := 0; i < 5; i++ {
		name := fmt.Sprintf("tool%d", i)
		delay := time.Duration(5-i) * 10 * time.Millisecond
		reg.MustRegister(NewFunc(name, "", nil,
			func(_ context.Context, _ *Context, _ json.RawMessage) types.ToolOutcome {
				time.Sleep(delay)
				return types.Success(name)
			}), Metadata{})
	}

	calls := make([]types.ToolCall, 5)
	for i := range calls {
		calls[i] = call(fmt.Sprintf("c%d", i), fmt.Sprintf("tool%d", i), `{}`)
	}

	results := engine.ExecuteAllParallel(context.Background(), Context{}, calls, 5)
	require.Len(t, results, 5)
	for i, exec := range results {
		assert.Equal(t, fmt.Sprintf("c%d", i), exec.Call.ID)
		assert.Equal(t, fmt.Sprintf("tool%d", i), exec.Outcome.Content)
	}
}

func TestExecuteAllParallelHonorsConcurrencyLimit(t *testing.T) {
	engine, reg := newTestEngine(t, EngineConfig{})

	var current, peak int32
	reg.MustRegister(NewFunc("gauge", "", nil,
		func(_ context.Context, _ *Context, _ json.RawMessage) types.ToolOutcome {
			n := atomic.AddInt32(&current, 1)
			for {
				old := atomic.LoadInt32(&peak)
				if n <= old || atomic.CompareAndSwapInt32(&peak, old, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			atomic.AddInt32(&current, -1)
			return types.Success("ok")
		}), Metadata{})

	calls := make([]types.ToolCall, 6)
	for i := range calls {
		calls[i] = call(fmt.Sprintf("c%d", i), "gauge", `{}`)
	}

	results := engine.ExecuteAllParallel(context.Background(), Context{}, calls, 2)
	require.Len(t, results, 6)
	assert.LessOrEqual(t, peak, int32(2))
}

func TestExecuteAllParallelTruncatesAtFirstDeferral(t *testing.T) {
	engine, reg := newTestEngine(t, EngineConfig{})

	reg.MustRegister(NewFunc("ok", "", nil,
		func(_ context.Context, _ *Context, _ json.RawMessage) types.ToolOutcome {
			return types.Success("ok")
		}), Metadata{})
	reg.MustRegister(NewFunc("pause", "", nil,
		func(_ context.Context, _ *Context, _ json.RawMessage) types.ToolOutcome {
			return types.Defer(types.DeferredToolCall{ID: "d1", Reason: "approval", Kind: types.DeferralApproval})
		}), Metadata{})

	results := engine.ExecuteAllParallel(context.Background(), Context{}, []types.ToolCall{
		call("c0", "ok", `{}`),
		call("c1", "pause", `{}`),
		call("c2", "ok", `{}`),
		call("c3", "ok", `{}`),
	}, 4)

	// 按调用顺序截断到第一个挂起的结果
	require.Len(t, results, 2)
	assert.Equal(t, types.OutcomeSuccess, results[0].Outcome.Kind)
	assert.True(t, results[1].Outcome.IsDeferred())
}

func TestExecuteAllParallelSingleCallFallsBackToSequential(t *testing.T) {
	engine, reg := newTestEngine(t, EngineConfig{})
	reg.MustRegister(NewFunc("one", "", nil,
		func(_ context.Context, _ *Context, _ json.RawMessage) types.ToolOutcome {
			return types.Success("one")
		}), Metadata{})

	results := engine.ExecuteAllParallel(context.Background(), Context{}, []types.ToolCall{
		call("c0", "one", `{}`),
	}, 8)
	require.Len(t, results, 1)
	assert.Equal(t, "one", results[0].Outcome.Content)
}
