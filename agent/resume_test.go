package agent

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/agentrun/testutil"
	"github.com/BaSui01/agentrun/tools"
	"github.com/BaSui01/agentrun/types"
)

// guardedTool defers on its first invocation and succeeds afterwards,
// mimicking a tool that needs approval before doing its work.
type guardedTool struct {
	invocations int
	alwaysDefer bool
}

func (g *guardedTool) Definition() types.ToolSchema {
	return types.ToolSchema{Name: "guarded", Description: "needs approval"}
}

func (g *guardedTool) Invoke(_ context.Context, _ *tools.Context, _ json.RawMessage) types.ToolOutcome {
	g.invocations++
	if g.invocations == 1 || g.alwaysDefer {
		return types.Defer(types.DeferredToolCall{ID: "defer-1", Reason: "approval required", Kind: types.DeferralApproval})
	}
	return types.Success("guarded work done")
}

func pauseRun(t *testing.T, agent *Agent) *PausedAgentRun {
	t.Helper()
	_, err := agent.Run(testutil.TestContext(t), "do the work")
	deferred, ok := AsDeferred(err)
	require.True(t, ok)
	return deferred.Paused
}

func newGuardedAgent(t *testing.T, alwaysDefer bool, extraTurns ...testutil.Turn) (*Agent, *guardedTool, *testutil.ScriptedModel) {
	t.Helper()
	guarded := &guardedTool{alwaysDefer: alwaysDefer}
	registry := tools.NewRegistry(nil)
	registry.MustRegister(guarded, tools.Metadata{})

	turns := append([]testutil.Turn{
		testutil.ToolCallTurn(usageOf(5, 2), types.ToolCall{ID: "g1", Name: "guarded", Arguments: testutil.RawJSON(`{}`)}),
	}, extraTurns...)

	agent, model := newTextAgent(t, Config{Registry: registry}, turns...)
	return agent, guarded, model
}

func TestResumeApprovedInvokesExactlyOnce(t *testing.T) {
	agent, guarded, model := newGuardedAgent(t, false,
		testutil.TextTurn("finished", usageOf(5, 2)),
	)
	paused := pauseRun(t, agent)
	require.Equal(t, 1, guarded.invocations)

	result, err := agent.Resume(testutil.TestContext(t), paused,
		map[string]Resolution{"defer-1": Approve()}, nil)
	require.NoError(t, err)
	assert.Equal(t, "finished", result.Output)
	// 批准后恰好再执行一次，且回到主循环完成收尾请求
	assert.Equal(t, 2, guarded.invocations)
	assert.Equal(t, 2, model.Calls())
	assert.Equal(t, paused.RunID, result.RunID)

	var toolMsg *types.Message
	for i := range result.Messages {
		if result.Messages[i].Role == types.RoleTool {
			toolMsg = &result.Messages[i]
		}
	}
	require.NotNil(t, toolMsg)
	assert.Equal(t, "guarded work done", toolMsg.Content)
}

func TestResumeDeniedNeverInvokes(t *testing.T) {
	agent, guarded, _ := newGuardedAgent(t, false,
		testutil.TextTurn("understood, stopping", usageOf(5, 2)),
	)
	paused := pauseRun(t, agent)

	result, err := agent.Resume(testutil.TestContext(t), paused,
		map[string]Resolution{"defer-1": Deny("operator said no")}, nil)
	require.NoError(t, err)
	// 拒绝后不再执行工具
	assert.Equal(t, 1, guarded.invocations)

	found := false
	for _, m := range result.Messages {
		if m.Role == types.RoleTool && strings.Contains(m.Content, "operator said no") {
			found = true
		}
	}
	assert.True(t, found, "denial reason must be recorded in the transcript")
}

func TestResumeMissingResolutionIsImplicitDenial(t *testing.T) {
	agent, guarded, _ := newGuardedAgent(t, false,
		testutil.TextTurn("ok", usageOf(2, 1)),
	)
	paused := pauseRun(t, agent)

	result, err := agent.Resume(testutil.TestContext(t), paused, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, guarded.invocations)

	found := false
	for _, m := range result.Messages {
		if m.Role == types.RoleTool && strings.Contains(m.Content, "denied") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestResumeCompletedInjectsResult(t *testing.T) {
	agent, guarded, model := newGuardedAgent(t, false,
		testutil.TextTurn("thanks", usageOf(2, 1)),
	)
	paused := pauseRun(t, agent)

	result, err := agent.Resume(testutil.TestContext(t), paused,
		map[string]Resolution{"defer-1": Complete("externally computed value")}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, guarded.invocations)
	assert.Equal(t, "thanks", result.Output)

	// 注入的文本作为工具结果回灌到下一次请求
	reqs := model.Requests()
	last := reqs[len(reqs)-1].Messages
	found := false
	for _, m := range last {
		if m.Role == types.RoleTool && m.Content == "externally computed value" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestResumeFailedRecordsError(t *testing.T) {
	agent, _, _ := newGuardedAgent(t, false,
		testutil.TextTurn("noted", usageOf(2, 1)),
	)
	paused := pauseRun(t, agent)

	result, err := agent.Resume(testutil.TestContext(t), paused,
		map[string]Resolution{"defer-1": Fail(errors.New("upstream exploded"))}, nil)
	require.NoError(t, err)

	found := false
	for _, m := range result.Messages {
		if m.Role == types.RoleTool && strings.Contains(m.Content, "upstream exploded") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestResumeRedeferralScopedToOneCall(t *testing.T) {
	agent, guarded, _ := newGuardedAgent(t, true)
	paused := pauseRun(t, agent)

	_, err := agent.Resume(testutil.TestContext(t), paused,
		map[string]Resolution{"defer-1": Approve()}, nil)
	redeferred, ok := AsDeferred(err)
	require.True(t, ok)
	assert.Equal(t, 2, guarded.invocations)
	require.Len(t, redeferred.Paused.Pending, 1)
	assert.Equal(t, "g1", redeferred.Paused.Pending[0].Call.ID)
}

func TestResumeTwiceDoubleAppliesApprovedEffects(t *testing.T) {
	agent, guarded, _ := newGuardedAgent(t, false,
		testutil.TextTurn("first finish", usageOf(2, 1)),
		testutil.TextTurn("second finish", usageOf(2, 1)),
	)
	paused := pauseRun(t, agent)

	_, err := agent.Resume(testutil.TestContext(t), paused.Clone(),
		map[string]Resolution{"defer-1": Approve()}, nil)
	require.NoError(t, err)
	_, err = agent.Resume(testutil.TestContext(t), paused.Clone(),
		map[string]Resolution{"defer-1": Approve()}, nil)
	require.NoError(t, err)

	// Resume 不具幂等性：两次恢复重复执行已批准的工具
	assert.Equal(t, 3, guarded.invocations)
}

func TestResumeWithoutPendingFails(t *testing.T) {
	agent, _, _ := newGuardedAgent(t, false)
	_, err := agent.Resume(testutil.TestContext(t), &PausedAgentRun{RunID: "x"}, nil, nil)
	assert.ErrorIs(t, err, ErrNothingPending)
}

func TestPausedRunSerializationRoundTrip(t *testing.T) {
	agent, _, _ := newGuardedAgent(t, false,
		testutil.TextTurn("done", usageOf(2, 1)),
	)
	paused := pauseRun(t, agent)

	data, err := paused.Marshal()
	require.NoError(t, err)
	restored, err := UnmarshalPausedRun(data)
	require.NoError(t, err)

	assert.Equal(t, paused.RunID, restored.RunID)
	assert.Equal(t, paused.Pending, restored.Pending)
	assert.Equal(t, paused.Usage, restored.Usage)
	require.Len(t, restored.Messages, len(paused.Messages))

	// 反序列化后的快照可以直接恢复
	result, err := agent.Resume(testutil.TestContext(t), restored,
		map[string]Resolution{"defer-1": Approve()}, nil)
	require.NoError(t, err)
	assert.Equal(t, "done", result.Output)
}
