package runstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/agentrun/agent"
	"github.com/BaSui01/agentrun/types"
)

func samplePaused(runID string) *agent.PausedAgentRun {
	return &agent.PausedAgentRun{
		RunID: runID,
		Messages: []types.Message{
			types.NewUserMessage("do the work"),
			types.NewAssistantMessage("").WithToolCalls([]types.ToolCall{
				{ID: "c1", Name: "guarded", Arguments: []byte(`{}`)},
			}),
		},
		Usage:     types.TokenUsage{PromptTokens: 10, CompletionTokens: 4, TotalTokens: 14},
		Requests:  1,
		ToolCalls: 1,
		Step:      1,
		Pending: []types.PendingToolCall{{
			Call:     types.ToolCall{ID: "c1", Name: "guarded", Arguments: []byte(`{}`)},
			Deferred: types.DeferredToolCall{ID: "d1", Reason: "approval", Kind: types.DeferralApproval},
		}},
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
}

// 两种实现共用一套契约测试
func runStoreContract(t *testing.T, store Store) {
	ctx := context.Background()

	_, err := store.Load(ctx, "absent")
	assert.ErrorIs(t, err, ErrNotFound)

	paused := samplePaused("run-1")
	require.NoError(t, store.Save(ctx, paused))

	loaded, err := store.Load(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, paused.RunID, loaded.RunID)
	assert.Equal(t, paused.Usage, loaded.Usage)
	assert.Equal(t, paused.Pending, loaded.Pending)
	require.Len(t, loaded.Messages, 2)

	// 覆盖保存
	paused2 := samplePaused("run-1")
	paused2.Step = 5
	require.NoError(t, store.Save(ctx, paused2))
	loaded, err = store.Load(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, 5, loaded.Step)

	require.NoError(t, store.Save(ctx, samplePaused("run-2")))
	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"run-1", "run-2"}, ids)

	require.NoError(t, store.Delete(ctx, "run-1"))
	_, err = store.Load(ctx, "run-1")
	assert.ErrorIs(t, err, ErrNotFound)
	// 删除不存在的 id 不报错
	require.NoError(t, store.Delete(ctx, "run-1"))
}

func TestMemoryStoreContract(t *testing.T) {
	runStoreContract(t, NewMemoryStore())
}

func TestMemoryStoreIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	paused := samplePaused("run-1")
	require.NoError(t, store.Save(ctx, paused))

	// 修改调用方持有的快照不影响存储内容
	paused.Step = 99
	loaded, err := store.Load(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.Step)

	// 修改加载出来的快照不影响后续加载
	loaded.Pending = nil
	again, err := store.Load(ctx, "run-1")
	require.NoError(t, err)
	assert.Len(t, again.Pending, 1)
}

func setupRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	store, err := NewRedisStore(RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRedisStoreContract(t *testing.T) {
	runStoreContract(t, setupRedisStore(t))
}

func TestRedisStorePing(t *testing.T) {
	store := setupRedisStore(t)
	assert.NoError(t, store.Ping(context.Background()))
}
