package tools

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/agentrun/types"
)

// ExecuteAllParallel runs a batch concurrently while preserving the
// sequential batch contract: results are returned in original call order,
// and everything after the first deferred outcome (in call order) is
// discarded as if it had never been attempted.
//
// Tools with internal mutable state must be safe for concurrent use before
// a batch is dispatched through this path. Side effects of calls that are
// discarded after a deferral have already happened; callers opting into
// parallel batches accept that trade-off.
func (e *Engine) ExecuteAllParallel(ctx context.Context, base Context, calls []types.ToolCall, maxConcurrent int) []Execution {
	if len(calls) <= 1 || maxConcurrent == 1 {
		return e.ExecuteAll(ctx, base, calls)
	}

	results := make([]Execution, len(calls))

	g, gctx := errgroup.WithContext(ctx)
	if maxConcurrent > 0 {
		g.SetLimit(maxConcurrent)
	}
	for i, call := range calls {
		g.Go(func() error {
			results[i] = e.Execute(gctx, base, call)
			return nil
		})
	}
	// 工作函数不返回错误，Wait 仅用于汇合
	_ = g.Wait()

	// 按调用顺序截断到第一个 deferred
	for i, exec := range results {
		if exec.Outcome.IsDeferred() {
			return results[:i+1]
		}
	}
	return results
}
