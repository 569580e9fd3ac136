package llm

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dileep-u-k/tempusvestis/internal/cache"
)

type fakeEmbeddingClient struct {
	calls  int
	inputs [][]string
}

func (f *fakeEmbeddingClient) CreateEmbeddings(_ context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error) {
	req := conv.Convert()
	input := req.Input.([]string)
	f.calls++
	f.inputs = append(f.inputs, input)

	resp := openai.EmbeddingResponse{}
	for i, text := range input {
		resp.Data = append(resp.Data, openai.Embedding{Index: i, Embedding: []float32{float32(len(text)), 1}})
	}
	return resp, nil
}

func newTestCache(t *testing.T) *cache.Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return cache.New(rdb, "test:")
}

func TestOpenAIEmbedder_BatchesAndCaches(t *testing.T) {
	fake := &fakeEmbeddingClient{}
	e := NewOpenAIEmbedderWith(fake, "", newTestCache(t))
	assert.Equal(t, DefaultEmbeddingModel, e.Model())

	ctx := context.Background()
	vecs, err := e.Embed(ctx, []string{"rain", "snowfall"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{4, 1}, {8, 1}}, vecs)
	assert.Equal(t, 1, fake.calls)

	// Only the new text is requested; cached vectors keep their positions.
	vecs, err = e.Embed(ctx, []string{"snowfall", "heat", "rain"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{8, 1}, {4, 1}, {4, 1}}, vecs)
	assert.Equal(t, 2, fake.calls)
	assert.Equal(t, []string{"heat"}, fake.inputs[1])

	_, err = e.Embed(ctx, []string{"rain", "heat"})
	require.NoError(t, err)
	assert.Equal(t, 2, fake.calls, "fully cached batch must not call the API")
}

func TestOpenAIEmbedder_WithoutCache(t *testing.T) {
	fake := &fakeEmbeddingClient{}
	e := NewOpenAIEmbedderWith(fake, "text-embedding-3-large", nil)

	for i := 0; i < 2; i++ {
		_, err := e.Embed(context.Background(), []string{"wind"})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, fake.calls)
}
