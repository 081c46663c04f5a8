package agent

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/agentrun/types"
)

// ErrNothingPending Resume 收到没有挂起调用的快照
var ErrNothingPending = errors.New("agent: paused run has no pending tool calls")

// Resume applies the supplied resolutions to a paused run's pending tool
// calls, in their original order, then rejoins the main loop under the same
// retry, usage, and iteration rules.
//
// A pending id with no resolution is treated as an implicit denial. Resume is
// not idempotent: calling it twice on the same snapshot re-executes approved
// tools, which is the caller's responsibility to avoid.
func (a *Agent) Resume(ctx context.Context, paused *PausedAgentRun, resolutions map[string]Resolution, deps any) (*AgentResult, error) {
	return a.resume(ctx, paused, resolutions, deps, NopObserver{}, a.completer.Completion)
}

func (a *Agent) resume(ctx context.Context, paused *PausedAgentRun, resolutions map[string]Resolution, deps any, obs LoopObserver, complete completionFunc) (*AgentResult, error) {
	if paused == nil || len(paused.Pending) == 0 {
		return nil, ErrNothingPending
	}

	state := &RunState{
		ID:        paused.RunID,
		Deps:      deps,
		Messages:  types.CopyMessages(paused.Messages),
		Usage:     paused.Usage,
		Requests:  paused.Requests,
		ToolCalls: paused.ToolCalls,
		Step:      paused.Step,
	}

	var redeferred []types.PendingToolCall
	for _, pending := range paused.Pending {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res, ok := resolutions[pending.Deferred.ID]
		if !ok {
			// 未给出处置视为隐式拒绝
			res = Deny("no resolution supplied")
		}

		call := pending.Call
		switch res.Kind {
		case ResolutionApproved:
			exec := a.engine.ExecuteApproved(ctx, a.toolContext(state), call)
			state.ToolCalls++
			a.metrics.ToolInvoked(call.Name, exec.Outcome.Kind, exec.Duration)
			obs.ToolDone(state, exec)
			if exec.Outcome.IsDeferred() {
				// 再次挂起：只携带这一个调用，已处置的结果保留在消息里
				a.metrics.ToolDeferred(exec.Outcome.Deferred.Kind)
				redeferred = append(redeferred, types.PendingToolCall{
					Call:     call,
					Deferred: *exec.Outcome.Deferred,
				})
				continue
			}
			state.Messages = append(state.Messages, exec.Message())

		case ResolutionDenied:
			reason := res.Reason
			if reason == "" {
				reason = "denied"
			}
			state.Messages = append(state.Messages,
				types.NewToolMessage(call.ID, call.Name, "Error: denied: "+reason))

		case ResolutionCompleted:
			state.Messages = append(state.Messages,
				types.NewToolMessage(call.ID, call.Name, res.Result))

		case ResolutionFailed:
			detail := "external failure"
			if res.Err != nil {
				detail = res.Err.Error()
			}
			state.Messages = append(state.Messages,
				types.NewToolMessage(call.ID, call.Name, "Error: "+detail))

		default:
			return nil, &InternalError{Detail: "unknown resolution kind " + string(res.Kind)}
		}
	}

	if len(redeferred) > 0 {
		a.logger.Debug("run re-deferred during resume",
			zap.String("run_id", state.ID),
			zap.Int("pending", len(redeferred)),
		)
		return nil, &DeferredError{Paused: &PausedAgentRun{
			RunID:     state.ID,
			Messages:  types.CopyMessages(state.Messages),
			Usage:     state.Usage,
			Requests:  state.Requests,
			ToolCalls: state.ToolCalls,
			Step:      state.Step,
			Pending:   redeferred,
			CreatedAt: time.Now().UTC(),
		}}
	}

	return a.runLoop(ctx, state, complete, obs)
}
