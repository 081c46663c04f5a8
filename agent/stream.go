package agent

import (
	"context"

	"github.com/BaSui01/agentrun/llm"
	"github.com/BaSui01/agentrun/tools"
	"github.com/BaSui01/agentrun/types"
)

// StreamEventType discriminates live run events.
type StreamEventType string

const (
	// StreamContentDelta carries a fragment of assistant text.
	StreamContentDelta StreamEventType = "content_delta"
	// StreamToolCallStart announces a tool call the model began emitting.
	StreamToolCallStart StreamEventType = "tool_call_start"
	// StreamToolArgumentDelta carries a fragment of tool call arguments.
	StreamToolArgumentDelta StreamEventType = "tool_argument_delta"
	// StreamToolCallEnd marks a tool call's arguments as complete.
	StreamToolCallEnd StreamEventType = "tool_call_end"
	// StreamToolResult carries one settled tool execution.
	StreamToolResult StreamEventType = "tool_result"
	// StreamUsageUpdate carries accumulated usage after a model turn.
	StreamUsageUpdate StreamEventType = "usage_update"
	// StreamFinalResult is the terminal success event.
	StreamFinalResult StreamEventType = "final_result"
	// StreamError is the terminal failure event. A DeferredError here means
	// the run paused and needs Resume.
	StreamError StreamEventType = "error"
)

// StreamEvent is one live event from RunStream. Exactly one terminal event
// (final_result or error) closes every stream.
type StreamEvent struct {
	Type          StreamEventType  `json:"type"`
	Content       string           `json:"content,omitempty"`
	ToolCallID    string           `json:"tool_call_id,omitempty"`
	ToolName      string           `json:"tool_name,omitempty"`
	ArgumentDelta string           `json:"argument_delta,omitempty"`
	Execution     *tools.Execution `json:"execution,omitempty"`
	Usage         *types.TokenUsage `json:"usage,omitempty"`
	Result        *AgentResult     `json:"result,omitempty"`
	Err           error            `json:"-"`
}

// RunStream executes the loop while delivering live events, including the
// model's own incremental deltas. The channel closes after the terminal
// event. Cancelling ctx tears the run down and closes the channel.
func (a *Agent) RunStream(ctx context.Context, prompt string, opts ...RunOption) <-chan StreamEvent {
	state := a.newRun(prompt, opts...)
	events := make(chan StreamEvent)

	go func() {
		defer close(events)
		obs := &streamObserver{ctx: ctx, events: events}
		_, _ = a.runLoop(ctx, state, a.streamCompletion(ctx, events), obs)
	}()
	return events
}

// streamObserver projects loop lifecycle hooks into stream events. Content
// and argument deltas are forwarded by the completion adapter instead.
type streamObserver struct {
	ctx    context.Context
	events chan<- StreamEvent
}

func (s *streamObserver) send(ev StreamEvent) {
	select {
	case s.events <- ev:
	case <-s.ctx.Done():
	}
}

func (s *streamObserver) LoopStart(*RunState)                         {}
func (s *streamObserver) BeforeModelCall(*RunState, *llm.ChatRequest) {}

func (s *streamObserver) AfterModelResponse(state *RunState, _ *llm.ChatResponse) {
	usage := state.Usage
	s.send(StreamEvent{Type: StreamUsageUpdate, Usage: &usage})
}

func (s *streamObserver) BeforeToolBatch(*RunState, []types.ToolCall) {}

func (s *streamObserver) ToolDone(_ *RunState, exec tools.Execution) {
	e := exec
	s.send(StreamEvent{Type: StreamToolResult, ToolCallID: exec.Call.ID, ToolName: exec.Call.Name, Execution: &e})
}

func (s *streamObserver) AfterToolBatch(*RunState, []tools.Execution) {}

func (s *streamObserver) LoopEnd(_ *RunState, result *AgentResult, err error) {
	if err != nil {
		s.send(StreamEvent{Type: StreamError, Err: err})
		return
	}
	s.send(StreamEvent{Type: StreamFinalResult, Result: result})
}

// streamCompletion adapts Model.Stream into the loop's completion seam:
// chunks are forwarded as events while the terminal chunk's assembled
// response is handed back to the loop. Stream calls are not retried; a broken
// stream cannot be resumed mid-flight.
func (a *Agent) streamCompletion(runCtx context.Context, events chan<- StreamEvent) completionFunc {
	forward := func(ev StreamEvent) {
		select {
		case events <- ev:
		case <-runCtx.Done():
		}
	}

	return func(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
		ch, err := a.completer.Stream(ctx, req)
		if err != nil {
			return nil, err
		}

		var resp *llm.ChatResponse
		for chunk := range ch {
			if chunk.Err != nil {
				return nil, chunk.Err
			}
			switch chunk.Type {
			case llm.ChunkContentDelta:
				forward(StreamEvent{Type: StreamContentDelta, Content: chunk.Content})
			case llm.ChunkToolCallStart:
				forward(StreamEvent{Type: StreamToolCallStart, ToolCallID: chunk.ToolCallID, ToolName: chunk.ToolName})
			case llm.ChunkToolCallDelta:
				forward(StreamEvent{Type: StreamToolArgumentDelta, ToolCallID: chunk.ToolCallID, ArgumentDelta: chunk.ArgumentDelta})
			case llm.ChunkToolCallEnd:
				forward(StreamEvent{Type: StreamToolCallEnd, ToolCallID: chunk.ToolCallID})
			case llm.ChunkCompletion:
				resp = chunk.Response
			}
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if resp == nil {
			return nil, &UnexpectedModelBehaviorError{Detail: "stream ended without a completion chunk"}
		}
		return resp, nil
	}
}
