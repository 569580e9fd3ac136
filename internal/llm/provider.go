// In file: internal/llm/provider.go
package llm

import (
	"context"
	"fmt"
	"strings"
)

// Provider names a model vendor.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderGemini    Provider = "gemini"
	ProviderAnthropic Provider = "anthropic"
)

// Keys holds the API credentials for each provider.
type Keys struct {
	OpenAI        string
	OpenAIBaseURL string
	Gemini        string
	Anthropic     string
}

// ProviderFor picks the vendor from the model identifier's prefix.
func ProviderFor(modelID string) (Provider, error) {
	id := strings.ToLower(strings.TrimSpace(modelID))
	switch {
	case strings.HasPrefix(id, "gpt"), strings.HasPrefix(id, "chatgpt"),
		strings.HasPrefix(id, "o1"), strings.HasPrefix(id, "o3"), strings.HasPrefix(id, "o4"):
		return ProviderOpenAI, nil
	case strings.HasPrefix(id, "gemini"):
		return ProviderGemini, nil
	case strings.HasPrefix(id, "claude"):
		return ProviderAnthropic, nil
	default:
		return "", fmt.Errorf("unsupported model %q: expected a gpt-*, o*, gemini-* or claude-* identifier", modelID)
	}
}

// NewClient builds the chat client that serves modelID.
func NewClient(ctx context.Context, modelID string, keys Keys) (LLMClient, error) {
	provider, err := ProviderFor(modelID)
	if err != nil {
		return nil, err
	}
	switch provider {
	case ProviderGemini:
		return NewGeminiClient(ctx, keys.Gemini)
	case ProviderAnthropic:
		return NewAnthropicClient(keys.Anthropic)
	default:
		return NewOpenAIClient(keys.OpenAI, keys.OpenAIBaseURL)
	}
}
