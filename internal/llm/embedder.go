// In file: internal/llm/embedder.go
package llm

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/dileep-u-k/tempusvestis/internal/cache"
)

// Embedder turns texts into vectors. The returned slice has one embedding
// per input, in order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// OpenAIEmbeddingClient is the subset of the go-openai client used for embeddings.
type OpenAIEmbeddingClient interface {
	CreateEmbeddings(ctx context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// OpenAIEmbedder calls the OpenAI embeddings endpoint. Embeddings are cached
// per text so re-indexing and repeated queries skip the API.
type OpenAIEmbedder struct {
	client OpenAIEmbeddingClient
	model  string
	cache  *cache.Cache
}

var _ Embedder = (*OpenAIEmbedder)(nil)

// NewOpenAIEmbedder creates an embedder for model. c may be nil.
func NewOpenAIEmbedder(apiKey, baseURL, model string, c *cache.Cache) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		return nil, errors.New("OpenAI API key cannot be empty")
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return NewOpenAIEmbedderWith(openai.NewClientWithConfig(cfg), model, c), nil
}

// NewOpenAIEmbedderWith wraps an existing embeddings client.
func NewOpenAIEmbedderWith(client OpenAIEmbeddingClient, model string, c *cache.Cache) *OpenAIEmbedder {
	if model == "" {
		model = DefaultEmbeddingModel
	}
	return &OpenAIEmbedder{client: client, model: model, cache: c}
}

// Model returns the embedding model name.
func (e *OpenAIEmbedder) Model() string { return e.model }

// Embed returns embeddings for texts, reading cached vectors first and
// requesting only the misses in one batch.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int

	for i, text := range texts {
		var cached []float32
		if e.cache.GetJSON(ctx, e.cacheKey(text), &cached) && len(cached) > 0 {
			out[i] = cached
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}
	if len(missing) == 0 {
		zap.S().Debugf("Embedding cache HIT for %d text(s)", len(texts))
		return out, nil
	}
	zap.S().Debugf("Embedding cache MISS for %d of %d text(s)", len(missing), len(texts))

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: missing,
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI embedding request failed: %w", err)
	}
	if len(resp.Data) != len(missing) {
		return nil, fmt.Errorf("mismatch between inputs (%d) and embeddings (%d)", len(missing), len(resp.Data))
	}

	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(missing) {
			return nil, fmt.Errorf("embedding index %d out of range", d.Index)
		}
		i := missingIdx[d.Index]
		out[i] = d.Embedding
		e.cache.SetJSON(ctx, e.cacheKey(texts[i]), d.Embedding, embeddingCacheTTL)
	}
	return out, nil
}

func (e *OpenAIEmbedder) cacheKey(text string) string {
	return embeddingCachePrefix + e.model + ":" + GenerateCacheKey(text)
}
