package llm

import (
	"context"
	"time"

	"github.com/BaSui01/agentrun/types"
)

// FinishReason 表示模型停止生成的原因。
type FinishReason string

const (
	// FinishStop 正常完成或命中停止序列
	FinishStop FinishReason = "stop"
	// FinishLength 输出被长度上限截断
	FinishLength FinishReason = "length"
	// FinishToolCalls 模型请求调用工具
	FinishToolCalls FinishReason = "tool_calls"
	// FinishContentFilter 输出被内容安全过滤
	FinishContentFilter FinishReason = "content_filter"
)

// ChatRequest is a single completion request built from the full history.
type ChatRequest struct {
	Model       string             `json:"model,omitempty"`
	Messages    []types.Message    `json:"messages"`
	MaxTokens   int                `json:"max_tokens,omitempty"`
	Temperature float32            `json:"temperature,omitempty"`
	TopP        float32            `json:"top_p,omitempty"`
	Stop        []string           `json:"stop,omitempty"`
	Tools       []types.ToolSchema `json:"tools,omitempty"`
	ToolChoice  string             `json:"tool_choice,omitempty"` // auto/none/<tool name>
	Metadata    map[string]string  `json:"metadata,omitempty"`
}

// ChatResponse is a complete model response for one request.
type ChatResponse struct {
	ID           string           `json:"id,omitempty"`
	Provider     string           `json:"provider,omitempty"`
	Model        string           `json:"model,omitempty"`
	Message      types.Message    `json:"message"`
	FinishReason FinishReason     `json:"finish_reason,omitempty"`
	// Refusal is set when the model declined to answer. A non-empty refusal
	// is fatal for the run regardless of FinishReason.
	Refusal   string           `json:"refusal,omitempty"`
	Usage     types.TokenUsage `json:"usage,omitempty"`
	CreatedAt time.Time        `json:"created_at,omitempty"`
}

// ChunkType discriminates incremental stream events.
type ChunkType string

const (
	// ChunkContentDelta carries a fragment of assistant text.
	ChunkContentDelta ChunkType = "content_delta"
	// ChunkToolCallStart announces a tool call (id and name known).
	ChunkToolCallStart ChunkType = "tool_call_start"
	// ChunkToolCallDelta carries a fragment of a tool call's arguments.
	ChunkToolCallDelta ChunkType = "tool_call_delta"
	// ChunkToolCallEnd marks a tool call's arguments as complete.
	ChunkToolCallEnd ChunkType = "tool_call_end"
	// ChunkCompletion is the final event and carries the full response.
	ChunkCompletion ChunkType = "completion"
)

// StreamChunk is one incremental event from Model.Stream. The terminal chunk
// has Type == ChunkCompletion and a non-nil Response assembled by the Model;
// a stream that ends without one is a contract violation.
type StreamChunk struct {
	Type ChunkType `json:"type"`
	// Content is the text fragment for ChunkContentDelta.
	Content string `json:"content,omitempty"`
	// ToolCallID identifies the call for tool_call_* chunks. May be empty on
	// deltas for providers that only index by position.
	ToolCallID string `json:"tool_call_id,omitempty"`
	// ToolName is set on ChunkToolCallStart.
	ToolName string `json:"tool_name,omitempty"`
	// ArgumentDelta is the raw argument fragment for ChunkToolCallDelta.
	ArgumentDelta string `json:"argument_delta,omitempty"`
	// Response is set on ChunkCompletion.
	Response *ChatResponse `json:"response,omitempty"`
	// Usage may arrive on any chunk as the provider reports it.
	Usage *types.TokenUsage `json:"usage,omitempty"`
	// Err aborts the stream.
	Err *Error `json:"error,omitempty"`
}

// Model 定义了运行循环消费的统一模型接口。
// 工具通过 ChatRequest.Tools 传入，模型在响应中返回 ToolCalls，
// 具体的工具执行由独立的 tools.Engine 负责。
type Model interface {
	// Completion 发起同步请求，返回完整响应
	Completion(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// Stream 发起流式请求，返回增量事件通道。通道关闭前必须先发送
	// 一个 ChunkCompletion（或携带 Err 的块）。
	Stream(ctx context.Context, req *ChatRequest) (<-chan StreamChunk, error)

	// Name 返回模型实现的唯一标识
	Name() string
}
