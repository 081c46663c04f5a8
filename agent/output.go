package agent

import (
	"encoding/json"
	"fmt"

	"github.com/BaSui01/agentrun/schema"
	"github.com/BaSui01/agentrun/types"
)

// DefaultOutputToolName is the synthetic tool name used to coerce a
// structured final answer from a tool-calling model.
const DefaultOutputToolName = "final_result"

// Validator inspects a candidate output value before it becomes the run's
// result. Returning a ValidationRetryError sends the feedback back to the
// model and continues the loop; any other error aborts the run.
type Validator func(value any) error

// OutputSpec declares the shape of a run's final answer. A nil spec or one
// with Text set means the answer is the assistant's plain text; otherwise the
// request carries one extra pseudo-tool whose schema is the result type's
// schema, and a call to that name is intercepted by the loop rather than
// dispatched to the tool engine.
type OutputSpec struct {
	// Text marks the output as plain assistant text with no pseudo-tool.
	Text bool
	// Name is the pseudo-tool name (DefaultOutputToolName when empty).
	Name string
	// Description is presented to the model on the pseudo-tool.
	Description string
	// Schema is the result type's JSON schema.
	Schema json.RawMessage
	// Decode turns the pseudo-tool call's raw arguments into the typed value.
	Decode func(raw json.RawMessage) (any, error)
}

// TextOutput declares a plain-text result.
func TextOutput() *OutputSpec {
	return &OutputSpec{Text: true}
}

// Output derives a structured output spec from T by reflection. 解码失败会
// 作为 validation retry 反馈给模型，而不是终止运行。
func Output[T any]() (*OutputSpec, error) {
	s, err := schema.For[T]()
	if err != nil {
		return nil, fmt.Errorf("agent: derive output schema: %w", err)
	}
	raw, err := s.MarshalRaw()
	if err != nil {
		return nil, fmt.Errorf("agent: marshal output schema: %w", err)
	}
	return &OutputSpec{
		Name:        DefaultOutputToolName,
		Description: "Record the final result of the task.",
		Schema:      raw,
		Decode: func(rawArgs json.RawMessage) (any, error) {
			var v T
			if err := json.Unmarshal(rawArgs, &v); err != nil {
				return nil, RetryValidation("invalid arguments for %s: %v", DefaultOutputToolName, err)
			}
			return v, nil
		},
	}, nil
}

// MustOutput is Output that panics on schema derivation failure.
func MustOutput[T any]() *OutputSpec {
	spec, err := Output[T]()
	if err != nil {
		panic(err)
	}
	return spec
}

// isText reports whether the spec declares a plain-text result.
func (s *OutputSpec) isText() bool { return s == nil || s.Text }

// toolName returns the effective pseudo-tool name.
func (s *OutputSpec) toolName() string {
	if s == nil || s.Name == "" {
		return DefaultOutputToolName
	}
	return s.Name
}

// toolSchema builds the pseudo-tool definition appended to the catalog.
func (s *OutputSpec) toolSchema() types.ToolSchema {
	desc := s.Description
	if desc == "" {
		desc = "Record the final result of the task."
	}
	return types.ToolSchema{Name: s.toolName(), Description: desc, Parameters: s.Schema}
}

// decode turns a pseudo-tool call's arguments into the typed value.
func (s *OutputSpec) decode(raw json.RawMessage) (any, error) {
	if s.Decode == nil {
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, RetryValidation("invalid arguments for %s: %v", s.toolName(), err)
		}
		return v, nil
	}
	return s.Decode(raw)
}
