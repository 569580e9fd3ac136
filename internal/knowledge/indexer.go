// In file: internal/knowledge/indexer.go
package knowledge

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dileep-u-k/tempusvestis/internal/llm"
)

const (
	defaultEmbedBatchSize   = 64
	defaultEmbedConcurrency = 4
)

// Indexer embeds corpus documents and writes them to a Store.
type Indexer struct {
	embedder    llm.Embedder
	store       Store
	BatchSize   int
	Concurrency int
}

func NewIndexer(embedder llm.Embedder, store Store) *Indexer {
	return &Indexer{
		embedder:    embedder,
		store:       store,
		BatchSize:   defaultEmbedBatchSize,
		Concurrency: defaultEmbedConcurrency,
	}
}

// EnsureIndexed rebuilds the index only when the store is empty or holds a
// different corpus version. It reports whether a rebuild happened.
func (ix *Indexer) EnsureIndexed(ctx context.Context, docs []Document, version string) (bool, error) {
	count, err := ix.store.Count(ctx)
	if err != nil {
		return false, err
	}
	current, err := ix.store.Version(ctx)
	if err != nil {
		return false, err
	}
	if count > 0 && current == version {
		zap.S().Debugf("✅ Knowledge index up to date (%d vectors, version %s)", count, version)
		return false, nil
	}
	if count > 0 {
		zap.S().Infof("🔄 Knowledge index is at version %q, rebuilding for %q", current, version)
	}
	return true, ix.Index(ctx, docs, version)
}

// Index replaces the store's content with docs and records version. Every
// document is embedded before the store is touched; an embedding failure
// leaves the existing index and version in place.
func (ix *Indexer) Index(ctx context.Context, docs []Document, version string) error {
	zap.S().Infof("📚 Indexing %d wardrobe documents...", len(docs))
	vectors, err := ix.embedAll(ctx, docs)
	if err != nil {
		return err
	}
	if err := ix.replace(ctx, vectors, version); err != nil {
		return err
	}
	zap.S().Infof("✅ Knowledge index built: %d vectors, version %s", len(vectors), version)
	return nil
}

func (ix *Indexer) replace(ctx context.Context, vectors []Vector, version string) error {
	if r, ok := ix.store.(Replacer); ok {
		return r.Replace(ctx, vectors, version)
	}
	if err := ix.store.Reset(ctx); err != nil {
		return err
	}
	if err := ix.store.Upsert(ctx, vectors); err != nil {
		return fmt.Errorf("failed to upsert vectors: %w", err)
	}
	return ix.store.SetVersion(ctx, version)
}

// embedAll embeds docs in concurrent batches, keeping their order.
func (ix *Indexer) embedAll(ctx context.Context, docs []Document) ([]Vector, error) {
	batchSize := ix.BatchSize
	if batchSize <= 0 {
		batchSize = defaultEmbedBatchSize
	}
	totalBatches := (len(docs) + batchSize - 1) / batchSize
	results := make([][]Vector, totalBatches)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(ix.Concurrency, 1))
	for b := 0; b < totalBatches; b++ {
		start := b * batchSize
		end := min(start+batchSize, len(docs))
		g.Go(func() error {
			zap.S().Debugf("  -> Embedding batch %d of %d", b+1, totalBatches)
			vectors, err := Embed(gctx, ix.embedder, docs[start:end])
			if err != nil {
				return fmt.Errorf("failed to generate embeddings for batch %d: %w", b+1, err)
			}
			results[b] = vectors
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	vectors := make([]Vector, 0, len(docs))
	for _, r := range results {
		vectors = append(vectors, r...)
	}
	return vectors, nil
}
