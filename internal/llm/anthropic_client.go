// In file: internal/llm/anthropic_client.go
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/dileep-u-k/tempusvestis/internal/api"
	"github.com/dileep-u-k/tempusvestis/internal/tools"
)

// AnthropicMessagesClient is the subset of the Anthropic SDK used here. It is
// satisfied by the SDK's Messages service.
type AnthropicMessagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// AnthropicClient is the client for Claude models.
type AnthropicClient struct {
	msg AnthropicMessagesClient
}

var _ LLMClient = (*AnthropicClient)(nil)

func NewAnthropicClient(apiKey string) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, errors.New("anthropic API key cannot be empty")
	}
	ac := sdk.NewClient(option.WithAPIKey(apiKey), option.WithRequestTimeout(defaultTimeout))
	return &AnthropicClient{msg: &ac.Messages}, nil
}

// NewAnthropicClientWith wraps an existing messages client.
func NewAnthropicClientWith(msg AnthropicMessagesClient) *AnthropicClient {
	return &AnthropicClient{msg: msg}
}

func (c *AnthropicClient) Generate(ctx context.Context, messages []Message, config *GenerationConfig, availableTools []tools.Tool) (*GenerationResult, error) {
	params, err := buildAnthropicParams(messages, config, availableTools)
	if err != nil {
		return nil, fmt.Errorf("failed to build anthropic request: %w", err)
	}
	msg, err := c.msg.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic messages call failed: %w", err)
	}
	return parseAnthropicMessage(msg)
}

func buildAnthropicParams(messages []Message, config *GenerationConfig, availableTools []tools.Tool) (sdk.MessageNewParams, error) {
	system, turns := splitSystem(messages)

	maxTokens := defaultMaxTokens
	if config.MaxTokens > 0 {
		maxTokens = config.MaxTokens
	}
	params := sdk.MessageNewParams{
		Model:     sdk.Model(config.Model),
		MaxTokens: int64(maxTokens),
	}
	if system != "" {
		params.System = []sdk.TextBlockParam{{Text: system}}
	}
	if config.Temperature != nil {
		params.Temperature = sdk.Float(float64(*config.Temperature))
	}
	if config.TopP != nil {
		params.TopP = sdk.Float(float64(*config.TopP))
	}

	conv, err := toAnthropicMessages(turns)
	if err != nil {
		return params, err
	}
	params.Messages = conv

	for _, t := range availableTools {
		schema, err := toolInputSchema(t.Function.Parameters)
		if err != nil {
			return params, fmt.Errorf("encode schema for %s: %w", t.Function.Name, err)
		}
		u := sdk.ToolUnionParamOfTool(schema, t.Function.Name)
		if t.Function.Description != "" {
			u.OfTool.Description = sdk.String(t.Function.Description)
		}
		params.Tools = append(params.Tools, u)
	}
	return params, nil
}

// toAnthropicMessages converts the conversation. Consecutive tool results
// are merged into one user message, as the Messages API requires.
func toAnthropicMessages(messages []Message) ([]sdk.MessageParam, error) {
	out := make([]sdk.MessageParam, 0, len(messages))
	for i := 0; i < len(messages); i++ {
		msg := messages[i]
		switch msg.Role {
		case RoleAssistant:
			blocks := make([]sdk.ContentBlockParamUnion, 0, 1+len(msg.ToolCalls))
			if msg.Content != "" {
				blocks = append(blocks, sdk.NewTextBlock(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				input := json.RawMessage(tc.Function.Arguments)
				if strings.TrimSpace(tc.Function.Arguments) == "" {
					input = json.RawMessage("{}")
				}
				if !json.Valid(input) {
					return nil, fmt.Errorf("tool call %s has invalid JSON arguments", tc.ID)
				}
				blocks = append(blocks, sdk.NewToolUseBlock(tc.ID, input, tc.Function.Name))
			}
			out = append(out, sdk.NewAssistantMessage(blocks...))
		case RoleTool:
			var blocks []sdk.ContentBlockParamUnion
			for ; i < len(messages) && messages[i].Role == RoleTool; i++ {
				blocks = append(blocks, sdk.NewToolResultBlock(messages[i].ToolCallID, messages[i].Content, false))
			}
			i--
			out = append(out, sdk.NewUserMessage(blocks...))
		default:
			out = append(out, sdk.NewUserMessage(sdk.NewTextBlock(msg.Content)))
		}
	}
	return out, nil
}

func toolInputSchema(schema tools.JSONSchema) (sdk.ToolInputSchemaParam, error) {
	raw, err := json.Marshal(schema)
	if err != nil {
		return sdk.ToolInputSchemaParam{}, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return sdk.ToolInputSchemaParam{}, err
	}
	return sdk.ToolInputSchemaParam{ExtraFields: m}, nil
}

func parseAnthropicMessage(msg *sdk.Message) (*GenerationResult, error) {
	if msg == nil {
		return nil, errors.New("anthropic: response message is nil")
	}
	var content strings.Builder
	result := &GenerationResult{}
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			content.WriteString(block.Text)
		case "tool_use":
			args := string(block.Input)
			if args == "" {
				args = "{}"
			}
			result.ToolCalls = append(result.ToolCalls, &tools.ToolCall{
				ID:   block.ID,
				Type: tools.ToolTypeFunction,
				Function: tools.ToolCallFunction{
					Name:      block.Name,
					Arguments: args,
				},
			})
		}
	}
	result.Content = strings.TrimSpace(content.String())
	result.Usage = api.Usage{
		PromptTokens:     int(msg.Usage.InputTokens),
		CompletionTokens: int(msg.Usage.OutputTokens),
		TotalTokens:      int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
	}
	return result, nil
}
