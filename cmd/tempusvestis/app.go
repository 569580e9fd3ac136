// In file: cmd/tempusvestis/app.go
package main

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/dileep-u-k/tempusvestis/internal/agent"
	"github.com/dileep-u-k/tempusvestis/internal/cache"
	"github.com/dileep-u-k/tempusvestis/internal/config"
	"github.com/dileep-u-k/tempusvestis/internal/consultant"
	"github.com/dileep-u-k/tempusvestis/internal/knowledge"
	"github.com/dileep-u-k/tempusvestis/internal/llm"
	"github.com/dileep-u-k/tempusvestis/internal/tools"
	"github.com/dileep-u-k/tempusvestis/internal/version"
	"github.com/dileep-u-k/tempusvestis/internal/weather"
)

const cachePrefix = "tempusvestis:"

// app holds the services shared by every command, wired from a validated config.
type app struct {
	cfg        *config.Config
	cache      *cache.Cache
	tracker    *llm.UsageTracker
	agent      *agent.Agent
	consultant *consultant.Consultant
	closers    []io.Closer
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	info := version.GetBuildInfo()
	zap.S().Infof("🚀 Starting TempusVestis | Version: %s | Commit: %s", info.Version, info.GitCommit)
	a := &app{cfg: cfg}

	// 1. CACHE (optional)
	c, err := cache.Connect(ctx, cfg.RedisAddr, cachePrefix)
	if err != nil {
		zap.S().Warnf("⚠️ %v; continuing without cache or usage tracking", err)
	} else if c != nil {
		a.cache = c
		a.closers = append(a.closers, c)
		zap.S().Infof("✅ Connected to Redis at %s", cfg.RedisAddr)
	}

	// 2. MODELS
	chat, err := llm.NewClient(ctx, cfg.Model.Chat, cfg.Keys())
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create client for %s: %w", cfg.Model.Chat, err)
	}
	if closer, ok := chat.(io.Closer); ok {
		a.closers = append(a.closers, closer)
	}
	a.tracker = llm.NewUsageTracker(a.cache.Client(), cfg.TokenCosts())
	chat = llm.WithUsageTracking(chat, a.tracker)

	embedder, err := llm.NewOpenAIEmbedder(cfg.OpenAIKey, cfg.Model.OpenAIBaseURL, cfg.Model.Embedding, a.cache)
	if err != nil {
		a.Close()
		return nil, err
	}

	// 3. KNOWLEDGE BASE
	store, err := knowledge.OpenStore(ctx, cfg.StoreConfig())
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to open vector store: %w", err)
	}
	a.closers = append(a.closers, store)

	docs, corpusVersion, err := loadCorpus(cfg.Retrieval.KnowledgeFile)
	if err != nil {
		a.Close()
		return nil, err
	}
	if _, err := knowledge.NewIndexer(embedder, store).EnsureIndexed(ctx, docs, corpusVersion); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to index wardrobe knowledge: %w", err)
	}
	retriever := knowledge.NewRetriever(embedder, store)

	// 4. TOOLS
	clock := tools.SystemClock{}
	toolManager := tools.NewToolManager()
	toolManager.MustRegister(tools.NewCurrentDateTool(clock))
	toolManager.MustRegister(tools.NewFutureDateTool(clock))
	toolManager.MustRegister(tools.NewWeatherTool(weather.NewClient(cfg.WeatherClientConfig(), a.cache)))
	zap.S().Infof("✅ Tool Manager initialized with %d tools.", toolManager.ToolCount())

	// 5. CHAIN
	temperature := llm.Float32(cfg.Model.Temperature)
	a.agent = agent.New(chat, toolManager, agent.Config{
		Model:         cfg.Model.Chat,
		Temperature:   temperature,
		MaxTokens:     cfg.Model.MaxTokens,
		MaxIterations: cfg.Model.MaxIterations,
	})
	a.consultant = consultant.New(a.agent, chat, retriever, a.cache, clock, consultant.Config{
		Model:            cfg.Model.Chat,
		Temperature:      temperature,
		MaxTokens:        cfg.Model.MaxTokens,
		K:                cfg.Retrieval.K,
		KnowledgeVersion: corpusVersion,
	})
	zap.S().Info("✅ All services initialized.")
	return a, nil
}

// loadCorpus reads and parses the wardrobe rules. An empty path uses the
// built-in corpus.
func loadCorpus(path string) ([]knowledge.Document, string, error) {
	content, err := knowledge.LoadCorpus(path)
	if err != nil {
		return nil, "", err
	}
	docs, err := knowledge.Parse(content)
	if err != nil {
		return nil, "", fmt.Errorf("failed to parse wardrobe knowledge: %w", err)
	}
	return docs, knowledge.CorpusVersion(content), nil
}

// Close releases the app's resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			zap.S().Warnf("⚠️ close failed: %v", err)
		}
	}
	a.closers = nil
}
