// In file: internal/llm/client.go
package llm

import (
	"context"

	"github.com/dileep-u-k/tempusvestis/internal/api"
	"github.com/dileep-u-k/tempusvestis/internal/tools"
)

// =================================================================================
// Core Data Structures
// =================================================================================

// Role represents the originator of a message in a conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message represents a single message in a conversation history.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	// ToolCallID and ToolName identify the call a RoleTool message answers.
	// Gemini matches responses by name, the other providers by ID.
	ToolCallID string            `json:"tool_call_id,omitempty"`
	ToolName   string            `json:"tool_name,omitempty"`
	ToolCalls  []*tools.ToolCall `json:"tool_calls,omitempty"`
}

// GenerationConfig holds all the parameters to control the LLM's generation behavior.
type GenerationConfig struct {
	// The specific model to use for the generation (e.g., "gpt-4o-mini", "claude-3-5-haiku-latest").
	Model string
	// Controls randomness. A pointer distinguishes 0.0 from unset.
	Temperature *float32
	// The maximum number of tokens to generate in the response.
	MaxTokens int
	// Nucleus sampling, an alternative to temperature.
	TopP *float32
}

// GenerationResult holds the complete output from an LLM call.
type GenerationResult struct {
	// The generated text content from the model.
	Content string
	// Tool calls requested by the model. Models may request several at once.
	ToolCalls []*tools.ToolCall
	// Token usage statistics for the generation request.
	Usage api.Usage
}

// =================================================================================
// LLM Client Interface
// =================================================================================

// LLMClient is the interface every model client (OpenAI, Gemini, Anthropic) implements.
type LLMClient interface {
	// Generate performs a blocking request to the LLM. It takes the full
	// conversation history and the tools the model may call, and returns a
	// single, complete result.
	Generate(
		ctx context.Context,
		messages []Message,
		config *GenerationConfig,
		availableTools []tools.Tool,
	) (*GenerationResult, error)
}

// Float32 returns a pointer to f for GenerationConfig fields.
func Float32(f float32) *float32 { return &f }

// splitSystem separates system messages, which some providers take as a
// dedicated field, from the conversational turns.
func splitSystem(messages []Message) (string, []Message) {
	var system string
	rest := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == RoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
			continue
		}
		rest = append(rest, m)
	}
	return system, rest
}
