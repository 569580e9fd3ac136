// In file: cmd/tempusvestis/handler.go
package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dileep-u-k/tempusvestis/internal/api"
	"github.com/dileep-u-k/tempusvestis/internal/consultant"
	"github.com/dileep-u-k/tempusvestis/internal/knowledge"
	"github.com/dileep-u-k/tempusvestis/internal/llm"
	"github.com/dileep-u-k/tempusvestis/internal/version"
)

const requestIDHeader = "X-Request-ID"

// Recommender is the part of the consultant the HTTP surface needs.
type Recommender interface {
	Recommend(ctx context.Context, query string) (*consultant.Recommendation, error)
	SearchKnowledge(ctx context.Context, query string, k int) ([]knowledge.Match, error)
}

// UsageReader reports per-model statistics.
type UsageReader interface {
	Stats(ctx context.Context, modelID string) (*llm.ModelStats, error)
}

type Handler struct {
	recommender Recommender
	usage       UsageReader
}

func NewHandler(r Recommender, usage UsageReader) *Handler {
	return &Handler{recommender: r, usage: usage}
}

// Routes builds the gin engine with every endpoint registered.
func (h *Handler) Routes() *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery(), requestID(), requestLogger())

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, version.GetBuildInfo())
	})

	v1 := engine.Group("/api/v1")
	{
		v1.POST("/recommendations", h.HandleRecommendation)
		v1.GET("/knowledge/search", h.HandleKnowledgeSearch)
		v1.GET("/usage/:model", h.HandleUsage)
	}
	return engine
}

func (h *Handler) HandleRecommendation(c *gin.Context) {
	var req api.RecommendationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	zap.S().Infof("--- New Request (ID: %s, Query: '%.40s') ---", c.GetString(requestIDHeader), req.Query)
	rec, err := h.recommender.Recommend(c.Request.Context(), req.Query)
	switch {
	case errors.Is(err, consultant.ErrEmptyQuery):
		abort(c, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		zap.S().Errorf("❌ Recommendation failed: %v", err)
		abort(c, http.StatusInternalServerError, consultant.ErrorMessage(err))
		return
	}

	resp := api.RecommendationResponse{
		RequestID:   c.GetString(requestIDHeader),
		Query:       rec.Query,
		Content:     rec.Content,
		Source:      rec.Source,
		ErrorKind:   string(rec.ErrorKind),
		WeatherInfo: rec.WeatherInfo,
		Usage:       rec.Usage,
		ModelUsed:   rec.Model,
		CacheStatus: rec.CacheStatus,
		LatencyMS:   rec.Latency.Milliseconds(),
	}
	for _, g := range rec.Guidelines {
		resp.Guidelines = append(resp.Guidelines, g.Document.Section)
	}
	if req.IncludeSteps {
		resp.Steps = rec.Steps
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) HandleKnowledgeSearch(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		abort(c, http.StatusBadRequest, "query parameter q is required")
		return
	}
	k := 0
	if raw := c.Query("k"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			abort(c, http.StatusBadRequest, "k must be a positive integer")
			return
		}
		k = n
	}

	matches, err := h.recommender.SearchKnowledge(c.Request.Context(), query, k)
	switch {
	case errors.Is(err, knowledge.ErrEmptyIndex):
		abort(c, http.StatusServiceUnavailable, err.Error())
		return
	case err != nil:
		abort(c, http.StatusInternalServerError, err.Error())
		return
	}

	resp := api.KnowledgeSearchResponse{Query: query, Matches: make([]api.KnowledgeMatch, 0, len(matches))}
	for _, m := range matches {
		resp.Matches = append(resp.Matches, api.KnowledgeMatch{
			ID:      m.Document.ID,
			Section: m.Document.Section,
			Content: m.Document.Content,
			Score:   m.Score,
		})
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) HandleUsage(c *gin.Context) {
	stats, err := h.usage.Stats(c.Request.Context(), c.Param("model"))
	switch {
	case errors.Is(err, llm.ErrUsageUnavailable):
		abort(c, http.StatusServiceUnavailable, err.Error())
		return
	case err != nil:
		abort(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, stats)
}

func abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, api.ErrorResponse{Error: msg, RequestID: c.GetString(requestIDHeader)})
}

// requestID reuses the caller's X-Request-ID or assigns a new one, and echoes
// it on the response.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDHeader, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		zap.S().Infow("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"request_id", c.GetString(requestIDHeader),
		)
	}
}
