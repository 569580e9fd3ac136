// In file: internal/api/types.go

// Package api defines the public request and response types of the HTTP
// surface, plus the token accounting shared by every model client.
package api

// Usage tracks token consumption for one or more model calls.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add accumulates other into u.
func (u *Usage) Add(other Usage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
}

// RecommendationRequest is the body of POST /api/v1/recommendations.
type RecommendationRequest struct {
	Query string `json:"query" binding:"required"`
	// IncludeSteps returns the agent's tool calls alongside the answer.
	IncludeSteps bool `json:"include_steps,omitempty"`
}

// Step is one tool invocation made by the agent.
type Step struct {
	Tool   string `json:"tool"`
	Input  string `json:"input"`
	Output string `json:"output"`
	Error  string `json:"error,omitempty"`
}

// RecommendationResponse is returned for a packing query.
type RecommendationResponse struct {
	RequestID   string   `json:"request_id"`
	Query       string   `json:"query"`
	Content     string   `json:"content"`
	Source      string   `json:"source"`
	ErrorKind   string   `json:"error_kind,omitempty"`
	WeatherInfo string   `json:"weather_info,omitempty"`
	Guidelines  []string `json:"guidelines,omitempty"`
	Steps       []Step   `json:"steps,omitempty"`
	Usage       Usage    `json:"usage"`
	ModelUsed   string   `json:"model_used"`
	CacheStatus string   `json:"cache_status"`
	LatencyMS   int64    `json:"latency_ms"`
}

// KnowledgeMatch is one retrieved wardrobe guideline.
type KnowledgeMatch struct {
	ID      string  `json:"id"`
	Section string  `json:"section"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// KnowledgeSearchResponse is returned by GET /api/v1/knowledge/search.
type KnowledgeSearchResponse struct {
	Query   string           `json:"query"`
	Matches []KnowledgeMatch `json:"matches"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}
