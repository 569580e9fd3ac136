// In file: internal/tools/types.go

// Package tools defines the data structures for function calling (tool use)
// and the concrete tools the packing agent can invoke. These types provide a
// provider-agnostic representation of tools that each model client translates
// into the format its API expects (OpenAI, Gemini or Anthropic).
package tools

// ToolTypeFunction is the standard type for function-based tools.
const ToolTypeFunction = "function"

// Tool is what the model is shown: the name, purpose and argument schema of
// one callable function.
type Tool struct {
	Type     string   `json:"type"`
	Function Function `json:"function"`
}

// Function defines the name, description, and parameters of a callable tool.
type Function struct {
	Name string `json:"name"`
	// Description is what the model reads to decide when to use the tool.
	Description string `json:"description"`
	// Parameters must be an object schema.
	Parameters JSONSchema `json:"parameters"`
}

// JSONSchema is the subset of JSON Schema used for tool parameters. It is
// marshalled as-is into provider requests and compiled by the ToolManager to
// validate the arguments a model produces.
type JSONSchema struct {
	Type        string                 `json:"type"`
	Description string                 `json:"description,omitempty"`
	Properties  map[string]*JSONSchema `json:"properties,omitempty"`
	Required    []string               `json:"required,omitempty"`
	// Default documents the value used when the parameter is omitted.
	Default any `json:"default,omitempty"`
	// Format carries string formats such as "date".
	Format string `json:"format,omitempty"`
	// Minimum and Maximum bound numeric parameters.
	Minimum *float64 `json:"minimum,omitempty"`
	Maximum *float64 `json:"maximum,omitempty"`
}

// ToolCall is the model asking for a tool to be run. ID links the result
// message of the next turn back to this request.
type ToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function ToolCallFunction `json:"function"`
}

type ToolCallFunction struct {
	Name string `json:"name"`
	// Arguments is a JSON object encoded as a string, exactly as the model produced it.
	Arguments string `json:"arguments"`
}

// NewFunctionTool builds a Tool of type "function".
func NewFunctionTool(name, description string, parameters JSONSchema) Tool {
	return Tool{
		Type: ToolTypeFunction,
		Function: Function{
			Name:        name,
			Description: description,
			Parameters:  parameters,
		},
	}
}

// Float returns a pointer to f, for schema bounds.
func Float(f float64) *float64 { return &f }
