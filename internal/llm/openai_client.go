// In file: internal/llm/openai_client.go
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	openai "github.com/sashabaranov/go-openai"

	"github.com/dileep-u-k/tempusvestis/internal/api"
	"github.com/dileep-u-k/tempusvestis/internal/tools"
)

// OpenAIChatClient is the subset of the go-openai client used for chat.
type OpenAIChatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIClient is the client for OpenAI chat models such as gpt-4o-mini.
type OpenAIClient struct {
	chat OpenAIChatClient
}

// Statically verify that OpenAIClient implements the LLMClient interface.
var _ LLMClient = (*OpenAIClient)(nil)

// NewOpenAIClient creates a client for the OpenAI API. baseURL may be empty
// to use the public endpoint.
func NewOpenAIClient(apiKey, baseURL string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, errors.New("OpenAI API key cannot be empty")
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIClient{chat: openai.NewClientWithConfig(cfg)}, nil
}

// NewOpenAIClientWith wraps an existing chat client.
func NewOpenAIClientWith(chat OpenAIChatClient) *OpenAIClient {
	return &OpenAIClient{chat: chat}
}

// Generate performs a standard, blocking request to the OpenAI API.
func (c *OpenAIClient) Generate(
	ctx context.Context,
	messages []Message,
	config *GenerationConfig,
	availableTools []tools.Tool,
) (*GenerationResult, error) {
	req, err := buildOpenAIRequest(messages, config, availableTools)
	if err != nil {
		return nil, fmt.Errorf("failed to build openai request: %w", err)
	}

	resp, err := c.chat.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("openai chat completion failed: %w", err)
	}
	return parseOpenAIResponse(resp)
}

func buildOpenAIRequest(messages []Message, config *GenerationConfig, availableTools []tools.Tool) (openai.ChatCompletionRequest, error) {
	req := openai.ChatCompletionRequest{
		Model:    config.Model,
		Messages: toOpenAIMessages(messages),
	}
	if config.MaxTokens > 0 {
		req.MaxTokens = config.MaxTokens
	}
	if config.Temperature != nil {
		req.Temperature = *config.Temperature
		// The request field is omitempty, so an explicit zero would fall back
		// to the server default of 1.0.
		if req.Temperature == 0 {
			req.Temperature = math.SmallestNonzeroFloat32
		}
	}
	if config.TopP != nil {
		req.TopP = *config.TopP
	}

	oaTools, err := toOpenAITools(availableTools)
	if err != nil {
		return req, err
	}
	if len(oaTools) > 0 {
		req.Tools = oaTools
		req.ToolChoice = "auto"
	}
	return req, nil
}

// toOpenAIMessages converts our internal message slice to the OpenAI API format.
func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		m := openai.ChatCompletionMessage{Role: string(msg.Role), Content: msg.Content}
		switch msg.Role {
		case RoleTool:
			m.ToolCallID = msg.ToolCallID
		case RoleAssistant:
			for _, tc := range msg.ToolCalls {
				m.ToolCalls = append(m.ToolCalls, openai.ToolCall{
					ID:   tc.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      tc.Function.Name,
						Arguments: tc.Function.Arguments,
					},
				})
			}
		}
		out = append(out, m)
	}
	return out
}

// toOpenAITools converts our internal tool slice to the OpenAI API format.
func toOpenAITools(availableTools []tools.Tool) ([]openai.Tool, error) {
	if len(availableTools) == 0 {
		return nil, nil
	}
	out := make([]openai.Tool, 0, len(availableTools))
	for _, tool := range availableTools {
		params, err := json.Marshal(tool.Function.Parameters)
		if err != nil {
			return nil, fmt.Errorf("encode parameters for %s: %w", tool.Function.Name, err)
		}
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tool.Function.Name,
				Description: tool.Function.Description,
				Parameters:  json.RawMessage(params),
			},
		})
	}
	return out, nil
}

// parseOpenAIResponse converts an OpenAI response to our internal GenerationResult.
func parseOpenAIResponse(resp openai.ChatCompletionResponse) (*GenerationResult, error) {
	if len(resp.Choices) == 0 {
		return nil, errors.New("no choices returned from OpenAI")
	}

	choice := resp.Choices[0].Message
	result := &GenerationResult{
		Content: choice.Content,
		Usage: api.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
	for _, tc := range choice.ToolCalls {
		result.ToolCalls = append(result.ToolCalls, &tools.ToolCall{
			ID:   tc.ID,
			Type: tools.ToolTypeFunction,
			Function: tools.ToolCallFunction{
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			},
		})
	}
	return result, nil
}
