package streaming

import (
	"context"
	"encoding/json"
	"net"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/agentrun/agent"
	"github.com/BaSui01/agentrun/config"
	"github.com/BaSui01/agentrun/testutil"
	"github.com/BaSui01/agentrun/tools"
	"github.com/BaSui01/agentrun/types"
)

// --- Helpers ---

func newStreamAgent(t *testing.T, turns ...testutil.Turn) *agent.Agent {
	t.Helper()
	model := testutil.NewScriptedModel(turns...)
	a, err := agent.New(agent.Config{Model: model})
	require.NoError(t, err)
	return a
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func collectFrames(t *testing.T, frames <-chan Frame) []Frame {
	t.Helper()
	var out []Frame
	deadline := time.After(5 * time.Second)
	for {
		select {
		case frame, ok := <-frames:
			if !ok {
				return out
			}
			out = append(out, frame)
		case <-deadline:
			t.Fatal("timed out waiting for frames")
		}
	}
}

// --- Tests ---

func TestServer_TextRunRoundTrip(t *testing.T) {
	a := newStreamAgent(t,
		testutil.TextTurn("the moon is far away", types.TokenUsage{PromptTokens: 8, CompletionTokens: 6, TotalTokens: 14}),
	)
	srv := httptest.NewServer(NewServer(a))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	frames, err := Dial(ctx, wsURL(srv), "how far is the moon?")
	require.NoError(t, err)

	got := collectFrames(t, frames)
	require.NotEmpty(t, got)

	// 内容增量应重新拼出完整回答
	var content strings.Builder
	for _, f := range got {
		if f.Type == agent.StreamContentDelta {
			content.WriteString(f.Content)
		}
	}
	assert.Equal(t, "the moon is far away", content.String())

	// 最后一帧是终止帧并携带最终输出
	last := got[len(got)-1]
	assert.Equal(t, agent.StreamFinalResult, last.Type)
	assert.Equal(t, "the moon is far away", last.Output)
	assert.NotEmpty(t, last.RunID)
}

func TestServer_ToolRunForwardsResults(t *testing.T) {
	a := newStreamAgent(t,
		testutil.ToolCallTurn(types.TokenUsage{TotalTokens: 5},
			types.ToolCall{ID: "c1", Name: "lookup", Arguments: testutil.RawJSON(`{"q":"tide"}`)},
		),
		testutil.TextTurn("high tide at noon", types.TokenUsage{TotalTokens: 5}),
	)
	a.Registry().MustRegister(tools.NewFunc("lookup", "looks things up", nil,
		func(_ context.Context, _ *tools.Context, _ json.RawMessage) types.ToolOutcome {
			return types.Success("noon")
		}), tools.Metadata{})

	srv := httptest.NewServer(NewServer(a))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	frames, err := Dial(ctx, wsURL(srv), "when is high tide?")
	require.NoError(t, err)
	got := collectFrames(t, frames)

	var toolResults []Frame
	for _, f := range got {
		if f.Type == agent.StreamToolResult {
			toolResults = append(toolResults, f)
		}
	}
	require.Len(t, toolResults, 1)
	assert.Equal(t, "c1", toolResults[0].ToolCallID)
	assert.Equal(t, "lookup", toolResults[0].ToolName)
	assert.Equal(t, string(types.OutcomeSuccess), toolResults[0].ToolOutcome)
	assert.Equal(t, "noon", toolResults[0].ToolResult)

	assert.Equal(t, agent.StreamFinalResult, got[len(got)-1].Type)
}

func TestServer_ErrorSurfacesAsFrame(t *testing.T) {
	a := newStreamAgent(t) // 没有任何回合，首次调用即失败
	srv := httptest.NewServer(NewServer(a))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	frames, err := Dial(ctx, wsURL(srv), "hello")
	require.NoError(t, err)
	got := collectFrames(t, frames)

	require.NotEmpty(t, got)
	last := got[len(got)-1]
	assert.Equal(t, agent.StreamError, last.Type)
	assert.NotEmpty(t, last.Error)
}

func TestServer_RejectsEmptyPrompt(t *testing.T) {
	a := newStreamAgent(t)
	srv := httptest.NewServer(NewServer(a))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsURL(srv), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })

	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(`{"prompt":""}`)))

	// 服务端应以策略违规关闭，不发送任何事件帧
	_, _, err = conn.Read(ctx)
	require.Error(t, err)
	assert.Equal(t, websocket.StatusPolicyViolation, websocket.CloseStatus(err))
}

func TestServer_RejectsMalformedRequest(t *testing.T) {
	a := newStreamAgent(t)
	srv := httptest.NewServer(NewServer(a))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsURL(srv), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })

	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte("not-json")))

	_, _, err = conn.Read(ctx)
	require.Error(t, err)
	assert.Equal(t, websocket.StatusPolicyViolation, websocket.CloseStatus(err))
}

func TestFrameOf_ErrorText(t *testing.T) {
	ev := agent.StreamEvent{Type: agent.StreamError, Err: assert.AnError}
	f := frameOf(ev)
	assert.Equal(t, agent.StreamError, f.Type)
	assert.Equal(t, assert.AnError.Error(), f.Error)
}

func TestServerFromConfig_ServesOnListener(t *testing.T) {
	a := newStreamAgent(t,
		testutil.TextTurn("configured", types.TokenUsage{TotalTokens: 2}),
	)

	cfg := config.DefaultConfig().Stream
	srv := NewServerFromConfig(a, cfg)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() { served <- srv.Serve(ctx, ln) }()

	dialCtx, dialCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer dialCancel()

	frames, err := Dial(dialCtx, "ws://"+ln.Addr().String(), "hello")
	require.NoError(t, err)

	got := collectFrames(t, frames)
	require.NotEmpty(t, got)
	assert.Equal(t, agent.StreamFinalResult, got[len(got)-1].Type)
	assert.Equal(t, "configured", got[len(got)-1].Output)

	// ctx 取消触发优雅关停
	cancel()
	select {
	case err := <-served:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestBuffered_PreservesOrderAndClose(t *testing.T) {
	in := make(chan agent.StreamEvent, 3)
	in <- agent.StreamEvent{Type: agent.StreamContentDelta, Content: "a"}
	in <- agent.StreamEvent{Type: agent.StreamContentDelta, Content: "b"}
	in <- agent.StreamEvent{Type: agent.StreamFinalResult}
	close(in)

	out := buffered(in, 8)
	var got []agent.StreamEvent
	for ev := range out {
		got = append(got, ev)
	}
	require.Len(t, got, 3)
	assert.Equal(t, "a", got[0].Content)
	assert.Equal(t, "b", got[1].Content)
	assert.Equal(t, agent.StreamFinalResult, got[2].Type)

	// 零缓冲原样透传
	passthrough := make(chan agent.StreamEvent)
	assert.Equal(t, (<-chan agent.StreamEvent)(passthrough), buffered(passthrough, 0))
}

func TestDial_InvalidURL(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	frames, err := Dial(ctx, "ws://localhost:1", "hello")
	assert.Error(t, err)
	assert.Nil(t, frames)
}
