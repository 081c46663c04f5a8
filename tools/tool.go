package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/BaSui01/agentrun/llm"
	"github.com/BaSui01/agentrun/schema"
	"github.com/BaSui01/agentrun/types"
)

// Context carries per-call execution context into a tool invocation.
// History is read-only: tools must not mutate it.
type Context struct {
	// Deps is the caller-supplied dependency value for this run.
	Deps any
	// Model is the run's model handle, usable for nested completions.
	Model llm.Model
	// Usage is the run's accumulated token usage so far.
	Usage types.TokenUsage
	// RunID identifies the owning run.
	RunID string
	// Step is the loop iteration that produced this call.
	Step int
	// CallID is the model-assigned tool call id.
	CallID string
	// ToolName is the invoked tool's name.
	ToolName string
	// RetryCount is this attempt's retry counter (0 on the first attempt).
	RetryCount int
	// History is the transcript up to and including the assistant message
	// that issued this call.
	History []types.Message
}

// Tool is the invocable unit the engine dispatches to.
type Tool interface {
	// Definition returns the schema presented to the model.
	Definition() types.ToolSchema

	// Invoke executes the tool with raw JSON arguments and returns exactly
	// one outcome for this attempt.
	Invoke(ctx context.Context, tc *Context, args json.RawMessage) types.ToolOutcome
}

// Func adapts a plain function plus a schema into a Tool.
type Func struct {
	Schema types.ToolSchema
	Fn     func(ctx context.Context, tc *Context, args json.RawMessage) types.ToolOutcome
}

// NewFunc creates a Tool from a raw-arguments function.
func NewFunc(name, description string, parameters json.RawMessage, fn func(ctx context.Context, tc *Context, args json.RawMessage) types.ToolOutcome) *Func {
	return &Func{
		Schema: types.ToolSchema{Name: name, Description: description, Parameters: parameters},
		Fn:     fn,
	}
}

// Definition implements Tool.
func (f *Func) Definition() types.ToolSchema { return f.Schema }

// Invoke implements Tool.
func (f *Func) Invoke(ctx context.Context, tc *Context, args json.RawMessage) types.ToolOutcome {
	return f.Fn(ctx, tc, args)
}

// Typed builds an erased Tool from a function taking decoded arguments.
// The argument schema is derived from Args by reflection at registration
// time; each invocation decodes the raw JSON into Args before dispatch.
// A decode failure becomes a retry outcome so the model can correct its
// arguments.
func Typed[Args any](name, description string, fn func(ctx context.Context, tc *Context, args Args) types.ToolOutcome) (*Func, error) {
	s, err := schema.For[Args]()
	if err != nil {
		return nil, fmt.Errorf("derive schema for tool %s: %w", name, err)
	}
	raw, err := s.MarshalRaw()
	if err != nil {
		return nil, fmt.Errorf("marshal schema for tool %s: %w", name, err)
	}
	return NewFunc(name, description, raw, func(ctx context.Context, tc *Context, rawArgs json.RawMessage) types.ToolOutcome {
		var args Args
		if len(rawArgs) > 0 {
			if err := json.Unmarshal(rawArgs, &args); err != nil {
				return types.Retry(fmt.Sprintf("invalid arguments for %s: %v", name, err))
			}
		}
		return fn(ctx, tc, args)
	}), nil
}

// MustTyped is Typed that panics on schema derivation failure. Intended for
// package-level tool construction where the argument type is fixed.
func MustTyped[Args any](name, description string, fn func(ctx context.Context, tc *Context, args Args) types.ToolOutcome) *Func {
	t, err := Typed(name, description, fn)
	if err != nil {
		panic(err)
	}
	return t
}
