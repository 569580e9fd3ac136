// In file: internal/consultant/consultant.go

// Package consultant chains the two stages of a packing recommendation: the
// tool-calling agent resolves dates and fetches the forecast, then the
// forecast and the retrieved wardrobe guidelines ground the final answer.
package consultant

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/dileep-u-k/tempusvestis/internal/agent"
	"github.com/dileep-u-k/tempusvestis/internal/api"
	"github.com/dileep-u-k/tempusvestis/internal/cache"
	"github.com/dileep-u-k/tempusvestis/internal/knowledge"
	"github.com/dileep-u-k/tempusvestis/internal/llm"
	"github.com/dileep-u-k/tempusvestis/internal/prompts"
	"github.com/dileep-u-k/tempusvestis/internal/tools"
	"github.com/dileep-u-k/tempusvestis/internal/version"
	"github.com/dileep-u-k/tempusvestis/internal/weather"
)

// Where a recommendation's content came from.
const (
	SourceRAG        = "rag"
	SourceAgent      = "agent"
	SourceAgentError = "agent_error"
)

const (
	weatherToolName = "get_weather_forecast"
	cachePrefix     = "recommendation"
	cacheTTL        = 24 * time.Hour

	// FallbackMessage is returned when the agent finished without any text.
	FallbackMessage = "I couldn't process that request."
)

// ErrEmptyQuery is returned for blank queries.
var ErrEmptyQuery = errors.New("query must not be empty")

var tracer = otel.Tracer("github.com/dileep-u-k/tempusvestis/internal/consultant")

// Runner is the agent stage.
type Runner interface {
	Respond(ctx context.Context, query string) *agent.Result
}

// Retriever is the knowledge lookup.
type Retriever interface {
	Search(ctx context.Context, query string, k int) ([]knowledge.Match, error)
}

// ProgressFunc receives short status lines while a recommendation is built.
type ProgressFunc func(message string)

// Config controls the grounded generation step.
type Config struct {
	Model       string
	Temperature *float32
	MaxTokens   int
	// K is the number of guidelines retrieved; <= 0 uses knowledge.DefaultK.
	K int
	// KnowledgeVersion is folded into cache keys.
	KnowledgeVersion string
}

// Recommendation is the outcome of one query.
type Recommendation struct {
	Query       string            `json:"query"`
	Content     string            `json:"content"`
	Source      string            `json:"source"`
	ErrorKind   agent.ErrorKind   `json:"error_kind,omitempty"`
	WeatherInfo string            `json:"weather_info,omitempty"`
	Guidelines  []knowledge.Match `json:"guidelines,omitempty"`
	Steps       []api.Step        `json:"steps,omitempty"`
	Usage       api.Usage         `json:"usage"`
	Model       string            `json:"model"`
	CacheStatus string            `json:"-"`
	Latency     time.Duration     `json:"-"`
}

type Consultant struct {
	runner    Runner
	client    llm.LLMClient
	retriever Retriever
	cache     *cache.Cache
	clock     tools.Clock
	cfg       Config

	// Progress, when set, is called as each stage starts.
	Progress ProgressFunc
}

// New wires the chain. c and clock may be nil.
func New(runner Runner, client llm.LLMClient, retriever Retriever, c *cache.Cache, clock tools.Clock, cfg Config) *Consultant {
	if clock == nil {
		clock = tools.SystemClock{}
	}
	if cfg.K <= 0 {
		cfg.K = knowledge.DefaultK
	}
	return &Consultant{runner: runner, client: client, retriever: retriever, cache: c, clock: clock, cfg: cfg}
}

// Recommend answers a packing query.
func (c *Consultant) Recommend(ctx context.Context, query string) (*Recommendation, error) {
	start := time.Now()
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	ctx, span := tracer.Start(ctx, "consultant.recommend")
	defer span.End()

	// Relative dates in the query make the answer valid for one day only.
	cacheKey := version.GenerateVersionedCacheKey(cachePrefix, c.cfg.KnowledgeVersion,
		strings.ToLower(query), c.clock.Now().Format(tools.DateLayout), c.cfg.Model, strconv.Itoa(c.cfg.K))
	var cached Recommendation
	if c.cache.GetJSON(ctx, cacheKey, &cached) {
		zap.S().Infof("✅ Cache HIT for %q", query)
		cached.CacheStatus = "HIT"
		cached.Latency = time.Since(start)
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return &cached, nil
	}

	c.progress("🔍 Analyzing your request...")
	res := c.runner.Respond(ctx, query)

	rec := &Recommendation{
		Query:       query,
		Model:       c.cfg.Model,
		Usage:       res.Usage,
		CacheStatus: "MISS",
	}
	for _, s := range res.Steps {
		rec.Steps = append(rec.Steps, s.API())
	}

	switch observation, ok := res.Observation(weatherToolName); {
	case res.Err != nil:
		rec.Source = SourceAgentError
		rec.ErrorKind = res.Kind
		rec.Content = res.Output
	case ok && strings.TrimSpace(observation) != "":
		c.progress("🌤️  Weather data retrieved successfully")
		c.progress("📚 Consulting wardrobe knowledge base...")
		if err := c.ground(ctx, rec, observation); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "grounded generation failed")
			return nil, err
		}
	default:
		rec.Source = SourceAgent
		rec.Content = res.Output
		if rec.Content == "" {
			rec.Content = FallbackMessage
		}
	}

	span.SetAttributes(attribute.String("recommendation.source", rec.Source))
	if rec.Source != SourceAgentError {
		c.cache.SetJSON(ctx, cacheKey, rec, cacheTTL)
	}
	rec.Latency = time.Since(start)
	return rec, nil
}

// ground runs the retrieval-augmented stage.
func (c *Consultant) ground(ctx context.Context, rec *Recommendation, observation string) error {
	ctx, span := tracer.Start(ctx, "consultant.rag")
	defer span.End()

	rec.WeatherInfo = weather.FormatObservation(observation)
	matches, err := c.retriever.Search(ctx, rec.Query, c.cfg.K)
	if err != nil {
		return fmt.Errorf("failed to retrieve wardrobe guidelines: %w", err)
	}
	rec.Guidelines = matches

	prompt, err := prompts.RenderRAG(prompts.RAGData{
		WeatherInfo: rec.WeatherInfo,
		Context:     knowledge.FormatContext(matches),
		Question:    rec.Query,
	})
	if err != nil {
		return fmt.Errorf("failed to render RAG prompt: %w", err)
	}

	result, err := c.client.Generate(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, &llm.GenerationConfig{
		Model:       c.cfg.Model,
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	}, nil)
	if err != nil {
		return fmt.Errorf("LLM generation failed for model %s: %w", c.cfg.Model, err)
	}
	rec.Usage.Add(result.Usage)
	rec.Content = strings.TrimSpace(result.Content)
	rec.Source = SourceRAG
	return nil
}

// SearchKnowledge exposes the guideline retrieval on its own.
func (c *Consultant) SearchKnowledge(ctx context.Context, query string, k int) ([]knowledge.Match, error) {
	return c.retriever.Search(ctx, query, k)
}

// ErrorMessage is the reply shown when Recommend fails unexpectedly.
func ErrorMessage(err error) string {
	return fmt.Sprintf("An error occurred: %v\n\nPlease try rephrasing your request with specific location and dates.", err)
}

func (c *Consultant) progress(msg string) {
	if c.Progress != nil {
		c.Progress(msg)
	}
}
