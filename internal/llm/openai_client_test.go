package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dileep-u-k/tempusvestis/internal/tools"
)

type mockChatClient struct {
	captured openai.ChatCompletionRequest
	response openai.ChatCompletionResponse
	err      error
}

func (m *mockChatClient) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	m.captured = req
	return m.response, m.err
}

func weatherToolDef() tools.Tool {
	return tools.NewFunctionTool("get_weather_forecast", "forecast", tools.JSONSchema{
		Type: "object",
		Properties: map[string]*tools.JSONSchema{
			"latitude":  {Type: "number"},
			"longitude": {Type: "number"},
		},
		Required: []string{"latitude", "longitude"},
	})
}

func TestOpenAIClient_ToolCallRoundTrip(t *testing.T) {
	mock := &mockChatClient{
		response: openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{{
				Message: openai.ChatCompletionMessage{
					Role: openai.ChatMessageRoleAssistant,
					ToolCalls: []openai.ToolCall{{
						ID:   "call_1",
						Type: openai.ToolTypeFunction,
						Function: openai.FunctionCall{
							Name:      "get_weather_forecast",
							Arguments: `{"latitude":41.88,"longitude":-87.63}`,
						},
					}},
				},
			}},
			Usage: openai.Usage{PromptTokens: 50, CompletionTokens: 10, TotalTokens: 60},
		},
	}
	client := NewOpenAIClientWith(mock)

	messages := []Message{
		{Role: RoleSystem, Content: "You are TempusVestis."},
		{Role: RoleUser, Content: "Chicago next week?"},
		{Role: RoleAssistant, ToolCalls: []*tools.ToolCall{{
			ID: "call_0", Type: tools.ToolTypeFunction,
			Function: tools.ToolCallFunction{Name: "get_current_date", Arguments: "{}"},
		}}},
		{Role: RoleTool, ToolCallID: "call_0", ToolName: "get_current_date", Content: "2025-10-09"},
	}
	res, err := client.Generate(context.Background(), messages,
		&GenerationConfig{Model: "gpt-4o-mini", Temperature: Float32(0.7), MaxTokens: 256},
		[]tools.Tool{weatherToolDef()})
	require.NoError(t, err)

	require.Len(t, res.ToolCalls, 1)
	assert.Equal(t, "call_1", res.ToolCalls[0].ID)
	assert.Equal(t, "get_weather_forecast", res.ToolCalls[0].Function.Name)
	assert.Equal(t, 60, res.Usage.TotalTokens)

	req := mock.captured
	assert.Equal(t, "gpt-4o-mini", req.Model)
	assert.InDelta(t, 0.7, req.Temperature, 1e-6)
	assert.Equal(t, 256, req.MaxTokens)
	require.Len(t, req.Messages, 4)
	assert.Equal(t, "system", req.Messages[0].Role)
	require.Len(t, req.Messages[2].ToolCalls, 1)
	assert.Equal(t, "get_current_date", req.Messages[2].ToolCalls[0].Function.Name)
	assert.Equal(t, "call_0", req.Messages[3].ToolCallID)

	require.Len(t, req.Tools, 1)
	assert.Equal(t, openai.ToolTypeFunction, req.Tools[0].Type)
	assert.Equal(t, "get_weather_forecast", req.Tools[0].Function.Name)
	raw, ok := req.Tools[0].Function.Parameters.(json.RawMessage)
	require.True(t, ok)
	assert.JSONEq(t, `{"type":"object","properties":{"latitude":{"type":"number"},"longitude":{"type":"number"}},"required":["latitude","longitude"]}`, string(raw))
}

func TestOpenAIClient_NoToolsMeansNoToolChoice(t *testing.T) {
	mock := &mockChatClient{response: openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: "Pack layers."}}},
	}}
	res, err := NewOpenAIClientWith(mock).Generate(context.Background(),
		[]Message{{Role: RoleUser, Content: "hi"}}, &GenerationConfig{Model: "gpt-4o-mini"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Pack layers.", res.Content)
	assert.Empty(t, mock.captured.Tools)
	assert.Nil(t, mock.captured.ToolChoice)
}

func TestOpenAIClient_Errors(t *testing.T) {
	_, err := NewOpenAIClient("", "")
	assert.Error(t, err)

	mock := &mockChatClient{err: errors.New("boom")}
	_, err = NewOpenAIClientWith(mock).Generate(context.Background(),
		[]Message{{Role: RoleUser, Content: "hi"}}, &GenerationConfig{Model: "gpt-4o-mini"}, nil)
	assert.ErrorContains(t, err, "boom")

	empty := &mockChatClient{}
	_, err = NewOpenAIClientWith(empty).Generate(context.Background(),
		[]Message{{Role: RoleUser, Content: "hi"}}, &GenerationConfig{Model: "gpt-4o-mini"}, nil)
	assert.ErrorContains(t, err, "no choices")
}

func TestOpenAIClient_ZeroTemperatureIsSent(t *testing.T) {
	mock := &mockChatClient{response: openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: "ok"}}},
	}}
	client := NewOpenAIClientWith(mock)

	_, err := client.Generate(context.Background(), []Message{{Role: RoleUser, Content: "hi"}},
		&GenerationConfig{Model: "gpt-4o-mini", Temperature: Float32(0)}, nil)
	require.NoError(t, err)

	body, err := json.Marshal(mock.captured)
	require.NoError(t, err)
	var fields map[string]any
	require.NoError(t, json.Unmarshal(body, &fields))
	assert.Contains(t, fields, "temperature")
	assert.InDelta(t, 0, mock.captured.Temperature, 1e-6)

	_, err = client.Generate(context.Background(), []Message{{Role: RoleUser, Content: "hi"}},
		&GenerationConfig{Model: "gpt-4o-mini"}, nil)
	require.NoError(t, err)
	body, err = json.Marshal(mock.captured)
	require.NoError(t, err)
	fields = nil
	require.NoError(t, json.Unmarshal(body, &fields))
	assert.NotContains(t, fields, "temperature")
}
