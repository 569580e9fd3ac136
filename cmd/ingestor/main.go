// In file: cmd/ingestor/main.go

// Package main implements the offline ingestion command for TempusVestis. It
// parses the wardrobe rules, embeds every section and loads the vectors into
// the configured store (SQLite with sqlite-vec, or Pinecone), recording the
// corpus version so the assistant can tell whether the index is current.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dileep-u-k/tempusvestis/internal/config"
	"github.com/dileep-u-k/tempusvestis/internal/knowledge"
	"github.com/dileep-u-k/tempusvestis/internal/llm"
	"github.com/dileep-u-k/tempusvestis/internal/logging"
)

type options struct {
	configPath string
	file       string
	force      bool
	dryRun     bool
	verbose    bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Ingestion process failed: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:           "ingestor",
		Short:         "Index the wardrobe knowledge base",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "path to config.yaml")
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "wardrobe rules file (default: KNOWLEDGE_FILE or the built-in corpus)")
	cmd.Flags().BoolVar(&opts.force, "force", false, "rebuild the index even when it is current")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "parse the corpus and list its sections without embedding")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	return cmd
}

func run(ctx context.Context, out io.Writer, opts options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	level := cfg.Log.Level
	if opts.verbose {
		level = "debug"
	}
	undo, err := logging.Setup(level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer undo()

	if opts.file != "" {
		cfg.Retrieval.KnowledgeFile = opts.file
	}
	content, err := knowledge.LoadCorpus(cfg.Retrieval.KnowledgeFile)
	if err != nil {
		return err
	}
	docs, err := knowledge.Parse(content)
	if err != nil {
		return fmt.Errorf("failed to parse wardrobe knowledge: %w", err)
	}
	corpusVersion := knowledge.CorpusVersion(content)
	zap.S().Infof("📚 Parsed %d sections (corpus version %s)", len(docs), corpusVersion)

	if opts.dryRun {
		return listSections(out, docs)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	embedder, err := llm.NewOpenAIEmbedder(cfg.OpenAIKey, cfg.Model.OpenAIBaseURL, cfg.Model.Embedding, nil)
	if err != nil {
		return err
	}
	store, err := knowledge.OpenStore(ctx, cfg.StoreConfig())
	if err != nil {
		return fmt.Errorf("failed to open vector store: %w", err)
	}
	defer store.Close()

	return ingest(ctx, out, knowledge.NewIndexer(embedder, store), docs, corpusVersion, opts.force)
}

// ingest indexes docs, skipping the work when the store already holds this
// corpus version unless force is set.
func ingest(ctx context.Context, out io.Writer, ix *knowledge.Indexer, docs []knowledge.Document, corpusVersion string, force bool) error {
	if force {
		if err := ix.Index(ctx, docs, corpusVersion); err != nil {
			return err
		}
		fmt.Fprintf(out, "✅ Rebuilt index with %d sections (version %s)\n", len(docs), corpusVersion)
		return nil
	}
	built, err := ix.EnsureIndexed(ctx, docs, corpusVersion)
	if err != nil {
		return err
	}
	if built {
		fmt.Fprintf(out, "✅ Indexed %d sections (version %s)\n", len(docs), corpusVersion)
	} else {
		fmt.Fprintf(out, "✅ Index already current (version %s); use --force to rebuild\n", corpusVersion)
	}
	return nil
}

func listSections(out io.Writer, docs []knowledge.Document) error {
	for i, d := range docs {
		if _, err := fmt.Fprintf(out, "%2d. %-45s %5d chars  %s\n", i+1, d.Section, len([]rune(d.Content)), d.ID); err != nil {
			return err
		}
	}
	return nil
}
