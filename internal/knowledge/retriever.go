// In file: internal/knowledge/retriever.go
package knowledge

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/dileep-u-k/tempusvestis/internal/llm"
)

// DefaultK is how many guidelines are retrieved when the caller asks for k <= 0.
const DefaultK = 4

// ErrEmptyIndex is returned by Search when the store holds no documents.
var ErrEmptyIndex = errors.New("knowledge index is empty; run the ingestor first")

var tracer = otel.Tracer("github.com/dileep-u-k/tempusvestis/internal/knowledge")

// Retriever finds the wardrobe guidelines most similar to a query.
type Retriever struct {
	embedder llm.Embedder
	store    Store
}

func NewRetriever(embedder llm.Embedder, store Store) *Retriever {
	return &Retriever{embedder: embedder, store: store}
}

// Search embeds query and returns up to k matches, best first.
func (r *Retriever) Search(ctx context.Context, query string, k int) ([]Match, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("search query must not be empty")
	}
	if k <= 0 {
		k = DefaultK
	}
	ctx, span := tracer.Start(ctx, "knowledge.search")
	defer span.End()
	span.SetAttributes(attribute.Int("knowledge.k", k))

	embeddings, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "embed query failed")
		return nil, fmt.Errorf("failed to get embedding for query: %w", err)
	}
	if len(embeddings) != 1 {
		return nil, fmt.Errorf("expected 1 query embedding, got %d", len(embeddings))
	}

	matches, err := r.store.Query(ctx, embeddings[0], k)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "vector query failed")
		return nil, err
	}
	if len(matches) == 0 {
		return nil, ErrEmptyIndex
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > k {
		matches = matches[:k]
	}
	span.SetAttributes(attribute.Int("knowledge.matches", len(matches)))
	return matches, nil
}

// FormatContext joins the matched guidelines with blank lines, the shape the
// RAG prompt expects.
func FormatContext(matches []Match) string {
	parts := make([]string, len(matches))
	for i, m := range matches {
		parts[i] = m.Document.Content
	}
	return strings.Join(parts, "\n\n")
}
