// In file: internal/llm/gemini_client.go
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/dileep-u-k/tempusvestis/internal/tools"
)

// GeminiClient is the client for Google's Gemini models.
type GeminiClient struct {
	client *genai.Client
}

var _ LLMClient = (*GeminiClient)(nil)

func NewGeminiClient(ctx context.Context, apiKey string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, errors.New("gemini API key cannot be empty")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiClient{client: client}, nil
}

// Close releases the underlying gRPC connection.
func (c *GeminiClient) Close() error {
	return c.client.Close()
}

// Generate performs a standard, blocking request to the Gemini API. A fresh
// GenerativeModel is configured per call so concurrent requests do not share
// settings.
func (c *GeminiClient) Generate(
	ctx context.Context,
	messages []Message,
	config *GenerationConfig,
	availableTools []tools.Tool,
) (*GenerationResult, error) {
	if len(messages) == 0 {
		return nil, errors.New("gemini: no messages to send")
	}

	system, turns := splitSystem(messages)
	history, last, err := toGeminiContents(turns)
	if err != nil {
		return nil, err
	}

	model := c.client.GenerativeModel(config.Model)
	configureGeminiModel(model, config, availableTools)
	if system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}

	chat := model.StartChat()
	chat.History = history
	resp, err := chat.SendMessage(ctx, last...)
	if err != nil {
		return nil, fmt.Errorf("gemini API call failed: %w", err)
	}
	return parseGeminiResponse(ctx, model, resp)
}

// configureGeminiModel applies generation settings using the SDK's setters.
func configureGeminiModel(model *genai.GenerativeModel, config *GenerationConfig, availableTools []tools.Tool) {
	maxTokens := defaultMaxTokens
	if config != nil {
		if config.Temperature != nil {
			model.SetTemperature(*config.Temperature)
		}
		if config.TopP != nil {
			model.SetTopP(*config.TopP)
		}
		if config.MaxTokens > 0 {
			maxTokens = config.MaxTokens
		}
	}
	model.SetMaxOutputTokens(int32(maxTokens))

	if len(availableTools) > 0 {
		model.Tools = toGeminiTools(availableTools)
	}
}

// toGeminiTools converts our internal tool definitions to one Gemini tool
// holding every function declaration.
func toGeminiTools(toolsToConvert []tools.Tool) []*genai.Tool {
	decls := make([]*genai.FunctionDeclaration, 0, len(toolsToConvert))
	for _, t := range toolsToConvert {
		decl := &genai.FunctionDeclaration{
			Name:        t.Function.Name,
			Description: t.Function.Description,
		}
		// Gemini rejects object schemas without properties; a tool that takes
		// no arguments declares no parameters at all.
		if params := t.Function.Parameters; params.Type != "object" || len(params.Properties) > 0 {
			decl.Parameters = convertSchema(params)
		}
		decls = append(decls, decl)
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

// convertSchema converts our JSONSchema to the Gemini SDK's schema type.
func convertSchema(s tools.JSONSchema) *genai.Schema {
	genaiSchema := &genai.Schema{
		Description: s.Description,
		Required:    s.Required,
	}
	switch s.Type {
	case "object":
		genaiSchema.Type = genai.TypeObject
	case "string":
		genaiSchema.Type = genai.TypeString
	case "number":
		genaiSchema.Type = genai.TypeNumber
	case "integer":
		genaiSchema.Type = genai.TypeInteger
	case "boolean":
		genaiSchema.Type = genai.TypeBoolean
	}
	if len(s.Properties) > 0 {
		genaiSchema.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for k, v := range s.Properties {
			genaiSchema.Properties[k] = convertSchema(*v)
		}
	}
	return genaiSchema
}

// toGeminiContents splits the conversation into chat history and the parts
// of the message to send. Trailing tool results are sent together as
// function responses.
func toGeminiContents(messages []Message) ([]*genai.Content, []genai.Part, error) {
	if len(messages) == 0 {
		return nil, nil, errors.New("gemini: conversation has no user turn")
	}

	split := len(messages) - 1
	for split > 0 && messages[split].Role == RoleTool && messages[split-1].Role == RoleTool {
		split--
	}

	history := make([]*genai.Content, 0, split)
	for i := 0; i < split; i++ {
		content, err := toGeminiContent(messages[i])
		if err != nil {
			return nil, nil, err
		}
		// Consecutive function responses belong in one content block.
		if n := len(history); n > 0 && messages[i].Role == RoleTool && messages[i-1].Role == RoleTool {
			history[n-1].Parts = append(history[n-1].Parts, content.Parts...)
			continue
		}
		history = append(history, content)
	}

	var last []genai.Part
	for _, m := range messages[split:] {
		content, err := toGeminiContent(m)
		if err != nil {
			return nil, nil, err
		}
		last = append(last, content.Parts...)
	}
	return history, last, nil
}

func toGeminiContent(msg Message) (*genai.Content, error) {
	switch msg.Role {
	case RoleAssistant:
		parts := make([]genai.Part, 0, 1+len(msg.ToolCalls))
		if msg.Content != "" {
			parts = append(parts, genai.Text(msg.Content))
		}
		for _, tc := range msg.ToolCalls {
			args := map[string]any{}
			if strings.TrimSpace(tc.Function.Arguments) != "" {
				if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
					return nil, fmt.Errorf("gemini: decode arguments of %s: %w", tc.Function.Name, err)
				}
			}
			parts = append(parts, genai.FunctionCall{Name: tc.Function.Name, Args: args})
		}
		return &genai.Content{Role: "model", Parts: parts}, nil
	case RoleTool:
		return &genai.Content{
			Role: "user",
			Parts: []genai.Part{genai.FunctionResponse{
				Name:     msg.ToolName,
				Response: map[string]any{"result": msg.Content},
			}},
		}, nil
	default:
		return &genai.Content{Role: "user", Parts: []genai.Part{genai.Text(msg.Content)}}, nil
	}
}

// parseGeminiResponse converts a Gemini API response into our internal GenerationResult.
func parseGeminiResponse(
	ctx context.Context,
	model *genai.GenerativeModel,
	resp *genai.GenerateContentResponse,
) (*GenerationResult, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, errors.New("no content returned from Gemini")
	}

	result := parseGeminiCandidate(resp.Candidates[0])

	if resp.UsageMetadata != nil {
		result.Usage.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		result.Usage.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		result.Usage.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}

	// Some responses omit completion tokens; count them explicitly.
	if result.Usage.CompletionTokens == 0 && result.Content != "" && model != nil {
		countResp, err := model.CountTokens(ctx, genai.Text(result.Content))
		if err != nil {
			zap.S().Warnf("Failed to count Gemini completion tokens: %v", err)
		} else {
			result.Usage.CompletionTokens = int(countResp.TotalTokens)
			result.Usage.TotalTokens = result.Usage.PromptTokens + result.Usage.CompletionTokens
		}
	}
	return result, nil
}

func parseGeminiCandidate(candidate *genai.Candidate) *GenerationResult {
	var contentBuilder strings.Builder
	var toolCalls []*tools.ToolCall

	for _, part := range candidate.Content.Parts {
		switch v := part.(type) {
		case genai.Text:
			contentBuilder.WriteString(string(v))
		case genai.FunctionCall:
			args, err := json.Marshal(v.Args)
			if err != nil {
				zap.S().Warnf("Could not marshal Gemini tool call args: %v", err)
				continue
			}
			toolCalls = append(toolCalls, &tools.ToolCall{
				ID:   fmt.Sprintf("gemini-call-%d-%s", len(toolCalls), v.Name),
				Type: tools.ToolTypeFunction,
				Function: tools.ToolCallFunction{
					Name:      v.Name,
					Arguments: string(args),
				},
			})
		}
	}

	return &GenerationResult{
		Content:   strings.TrimSpace(contentBuilder.String()),
		ToolCalls: toolCalls,
	}
}
