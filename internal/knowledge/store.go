// In file: internal/knowledge/store.go
package knowledge

import (
	"context"
	"fmt"
	"strings"

	"github.com/dileep-u-k/tempusvestis/internal/llm"
)

// Vector is an embedded document ready to be upserted.
type Vector struct {
	ID       string
	Values   []float32
	Document Document
}

// Match is a retrieved document with its cosine similarity to the query.
type Match struct {
	Document Document `json:"document"`
	Score    float64  `json:"score"`
}

// Store is a vector engine holding the embedded corpus. Similarity ranking
// is entirely the engine's job.
type Store interface {
	Upsert(ctx context.Context, vectors []Vector) error
	// Query returns up to k matches ordered best first.
	Query(ctx context.Context, embedding []float32, k int) ([]Match, error)
	Count(ctx context.Context) (int, error)
	// Version returns the corpus version recorded by SetVersion, or "".
	Version(ctx context.Context) (string, error)
	SetVersion(ctx context.Context, version string) error
	// Reset removes every stored vector and the recorded version.
	Reset(ctx context.Context) error
	Close() error
}

// Replacer is implemented by stores that can swap their whole content and
// version in one step, so a failed rebuild leaves the previous index intact.
type Replacer interface {
	Replace(ctx context.Context, vectors []Vector, version string) error
}

// Store kinds accepted by OpenStore.
const (
	StoreSQLite   = "sqlite"
	StorePinecone = "pinecone"
)

// StoreConfig selects and configures a vector store.
type StoreConfig struct {
	Kind         string
	SQLitePath   string
	PineconeKey  string
	PineconeHost string
}

// OpenStore opens the store named by cfg.Kind.
func OpenStore(ctx context.Context, cfg StoreConfig) (Store, error) {
	switch strings.ToLower(cfg.Kind) {
	case "", StoreSQLite:
		return OpenSQLiteStore(ctx, cfg.SQLitePath)
	case StorePinecone:
		return NewPineconeStore(cfg.PineconeHost, cfg.PineconeKey, nil)
	default:
		return nil, fmt.Errorf("unknown vector store %q (want %s or %s)", cfg.Kind, StoreSQLite, StorePinecone)
	}
}

// Embed pairs documents with their embeddings.
func Embed(ctx context.Context, e llm.Embedder, docs []Document) ([]Vector, error) {
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = embeddingText(d)
	}
	embeddings, err := e.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(embeddings) != len(docs) {
		return nil, fmt.Errorf("mismatch between documents (%d) and embeddings (%d)", len(docs), len(embeddings))
	}
	vectors := make([]Vector, len(docs))
	for i, d := range docs {
		vectors[i] = Vector{ID: d.ID, Values: embeddings[i], Document: d}
	}
	return vectors, nil
}

// The section title is embedded along with the body.
func embeddingText(d Document) string {
	if d.Section == "" {
		return d.Content
	}
	return d.Section + "\n\n" + d.Content
}
