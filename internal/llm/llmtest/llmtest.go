// In file: internal/llm/llmtest/llmtest.go

// Package llmtest provides a scripted llm.LLMClient for tests of code that
// drives a model.
package llmtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/dileep-u-k/tempusvestis/internal/api"
	"github.com/dileep-u-k/tempusvestis/internal/llm"
	"github.com/dileep-u-k/tempusvestis/internal/tools"
)

// StepUsage is the usage reported by every scripted reply.
var StepUsage = api.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}

// Reply is one scripted model answer.
type Reply struct {
	Result *llm.GenerationResult
	Err    error
}

// Text is a final answer without tool calls.
func Text(content string) Reply {
	return Reply{Result: &llm.GenerationResult{Content: content, Usage: StepUsage}}
}

// Tools is an answer requesting the given tool calls.
func Tools(calls ...*tools.ToolCall) Reply {
	return Reply{Result: &llm.GenerationResult{ToolCalls: calls, Usage: StepUsage}}
}

// Fail is an answer that errors.
func Fail(err error) Reply { return Reply{Err: err} }

// Call builds a function tool call.
func Call(id, name, arguments string) *tools.ToolCall {
	return &tools.ToolCall{
		ID:       id,
		Type:     tools.ToolTypeFunction,
		Function: tools.ToolCallFunction{Name: name, Arguments: arguments},
	}
}

// Request records what the client was asked.
type Request struct {
	Messages []llm.Message
	Config   llm.GenerationConfig
	Tools    []tools.Tool
}

// Client replays Replies in order and records every request. Once the
// script is exhausted it repeats Fallback, or fails when Fallback is nil.
type Client struct {
	mu       sync.Mutex
	Replies  []Reply
	Fallback *Reply
	Requests []Request
}

var _ llm.LLMClient = (*Client)(nil)

// NewClient returns a client scripted with replies.
func NewClient(replies ...Reply) *Client {
	return &Client{Replies: replies}
}

func (c *Client) Generate(_ context.Context, messages []llm.Message, cfg *llm.GenerationConfig, available []tools.Tool) (*llm.GenerationResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	req := Request{Messages: append([]llm.Message(nil), messages...), Tools: available}
	if cfg != nil {
		req.Config = *cfg
	}
	c.Requests = append(c.Requests, req)

	i := len(c.Requests) - 1
	var r Reply
	switch {
	case i < len(c.Replies):
		r = c.Replies[i]
	case c.Fallback != nil:
		r = *c.Fallback
	default:
		return nil, fmt.Errorf("llmtest: no scripted reply for call %d", i+1)
	}
	if r.Err != nil {
		return nil, r.Err
	}
	cp := *r.Result
	return &cp, nil
}

// Calls returns how many requests were made.
func (c *Client) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Requests)
}
