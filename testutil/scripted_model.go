package testutil

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/BaSui01/agentrun/llm"
	"github.com/BaSui01/agentrun/types"
)

// Turn is one scripted model reply: either a canned response or an error.
type Turn struct {
	Response *llm.ChatResponse
	Err      error
}

// ScriptedModel replays a fixed sequence of turns, one per Completion or
// Stream call. It records every request it receives and is safe for
// concurrent use; concurrent callers consume turns in arrival order.
type ScriptedModel struct {
	mu       sync.Mutex
	turns    []Turn
	next     int
	requests []*llm.ChatRequest
}

// NewScriptedModel 创建按脚本回放的模型。
func NewScriptedModel(turns ...Turn) *ScriptedModel {
	return &ScriptedModel{turns: turns}
}

// TextTurn scripts a plain assistant answer.
func TextTurn(content string, usage types.TokenUsage) Turn {
	return Turn{Response: &llm.ChatResponse{
		Message:      types.NewAssistantMessage(content),
		FinishReason: llm.FinishStop,
		Usage:        usage,
	}}
}

// ToolCallTurn scripts a turn that requests the given tool calls.
func ToolCallTurn(usage types.TokenUsage, calls ...types.ToolCall) Turn {
	return Turn{Response: &llm.ChatResponse{
		Message:      types.NewAssistantMessage("").WithToolCalls(calls),
		FinishReason: llm.FinishToolCalls,
		Usage:        usage,
	}}
}

// OutputCallTurn scripts a call to the output pseudo-tool with the given
// arguments value.
func OutputCallTurn(toolName string, args any, usage types.TokenUsage) Turn {
	return ToolCallTurn(usage, types.ToolCall{
		ID:        "output-call",
		Name:      toolName,
		Arguments: MustJSON(args),
	})
}

// ErrTurn scripts a model-call failure.
func ErrTurn(err error) Turn { return Turn{Err: err} }

// Calls returns how many turns have been consumed.
func (m *ScriptedModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.next
}

// Requests returns the recorded requests in arrival order.
func (m *ScriptedModel) Requests() []*llm.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*llm.ChatRequest(nil), m.requests...)
}

func (m *ScriptedModel) take(req *llm.ChatRequest) (Turn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if m.next >= len(m.turns) {
		return Turn{}, llm.NewError(llm.ErrUpstreamError, "scripted model: no turns left")
	}
	turn := m.turns[m.next]
	m.next++
	return turn, nil
}

// Completion implements llm.Model.
func (m *ScriptedModel) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	turn, err := m.take(req)
	if err != nil {
		return nil, err
	}
	if turn.Err != nil {
		return nil, turn.Err
	}
	resp := *turn.Response
	return &resp, nil
}

// Stream implements llm.Model by decomposing the scripted turn into chunks:
// content deltas split per rune group, tool call start/delta/end triples, and
// a terminal completion chunk.
func (m *ScriptedModel) Stream(ctx context.Context, req *llm.ChatRequest) (<-chan llm.StreamChunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	turn, err := m.take(req)
	if err != nil {
		return nil, err
	}

	ch := make(chan llm.StreamChunk)
	go func() {
		defer close(ch)
		if turn.Err != nil {
			var lerr *llm.Error
			if e, ok := turn.Err.(*llm.Error); ok {
				lerr = e
			} else {
				lerr = llm.NewError(llm.ErrUpstreamError, turn.Err.Error())
			}
			ch <- llm.StreamChunk{Err: lerr}
			return
		}

		resp := turn.Response
		content := resp.Message.Content
		for i := 0; i < len(content); i += 4 {
			end := i + 4
			if end > len(content) {
				end = len(content)
			}
			ch <- llm.StreamChunk{Type: llm.ChunkContentDelta, Content: content[i:end]}
		}
		for _, tc := range resp.Message.ToolCalls {
			ch <- llm.StreamChunk{Type: llm.ChunkToolCallStart, ToolCallID: tc.ID, ToolName: tc.Name}
			if len(tc.Arguments) > 0 {
				ch <- llm.StreamChunk{Type: llm.ChunkToolCallDelta, ToolCallID: tc.ID, ArgumentDelta: string(tc.Arguments)}
			}
			ch <- llm.StreamChunk{Type: llm.ChunkToolCallEnd, ToolCallID: tc.ID}
		}
		full := *resp
		ch <- llm.StreamChunk{Type: llm.ChunkCompletion, Response: &full}
	}()
	return ch, nil
}

// Name implements llm.Model.
func (m *ScriptedModel) Name() string { return "scripted" }

// RawJSON wraps pre-encoded JSON for script construction.
func RawJSON(s string) json.RawMessage { return json.RawMessage(s) }
