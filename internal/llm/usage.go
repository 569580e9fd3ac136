// In file: internal/llm/usage.go
package llm

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dileep-u-k/tempusvestis/internal/api"
	"github.com/dileep-u-k/tempusvestis/internal/tools"
)

// ErrUsageUnavailable is returned by Stats when no Redis is configured.
var ErrUsageUnavailable = errors.New("usage tracking is disabled (no Redis configured)")

// ModelStats tracks reliability, latency and token spend for one model.
type ModelStats struct {
	ModelID           string    `json:"model_id"`
	Status            string    `json:"status"`
	AvgLatencyMS      int64     `json:"avg_latency_ms"`
	ErrorRate         float64   `json:"error_rate"`
	TotalSuccesses    int64     `json:"total_successes"`
	TotalFailures     int64     `json:"total_failures"`
	TotalInputTokens  int64     `json:"total_input_tokens"`
	TotalOutputTokens int64     `json:"total_output_tokens"`
	CostSpentMonthly  float64   `json:"cost_spent_monthly"`
	LastCall          time.Time `json:"last_call"`
}

// TokenCost is the price per token for a model.
type TokenCost struct {
	Input  float64 `yaml:"input"`
	Output float64 `yaml:"output"`
}

// UsageTracker records per-model statistics in Redis hashes. A tracker with
// a nil client records nothing.
type UsageTracker struct {
	rdb   redis.UniversalClient
	costs map[string]TokenCost
	now   func() time.Time
}

func NewUsageTracker(rdb redis.UniversalClient, costs map[string]TokenCost) *UsageTracker {
	return &UsageTracker{rdb: rdb, costs: costs, now: time.Now}
}

func (u *UsageTracker) statsKey(modelID string) string {
	return fmt.Sprintf("usage:%s", modelID)
}

func (u *UsageTracker) costKey(modelID string) string {
	return fmt.Sprintf("cost:%s:%s", modelID, u.now().Format("2006-01"))
}

// RecordSuccess folds one successful call into the model's statistics. The
// average latency is an exponentially weighted moving average.
func (u *UsageTracker) RecordSuccess(ctx context.Context, modelID string, latency time.Duration, usage api.Usage) {
	if u == nil || u.rdb == nil {
		return
	}
	key := u.statsKey(modelID)
	const alpha = 0.1

	err := u.rdb.Watch(ctx, func(tx *redis.Tx) error {
		currentStr, err := tx.HGet(ctx, key, "avg_latency_ms").Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		newLatency := latency.Milliseconds()
		if currentStr != "" {
			current, _ := strconv.ParseInt(currentStr, 10, 64)
			newLatency = int64(alpha*float64(latency.Milliseconds()) + (1.0-alpha)*float64(current))
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, "avg_latency_ms", newLatency)
			return nil
		})
		return err
	}, key)
	if err != nil {
		zap.S().Warnf("Error updating latency for %s: %v", modelID, err)
	}

	pipe := u.rdb.Pipeline()
	successes := pipe.HIncrBy(ctx, key, "total_successes", 1)
	failures := pipe.HGet(ctx, key, "total_failures")
	pipe.HIncrBy(ctx, key, "total_input_tokens", int64(usage.PromptTokens))
	pipe.HIncrBy(ctx, key, "total_output_tokens", int64(usage.CompletionTokens))
	pipe.HSet(ctx, key, "status", "online", "last_call", u.now().Format(time.RFC3339Nano))

	cost := u.costs[modelID]
	if callCost := float64(usage.PromptTokens)*cost.Input + float64(usage.CompletionTokens)*cost.Output; callCost > 0 {
		costKey := u.costKey(modelID)
		pipe.IncrByFloat(ctx, costKey, callCost)
		pipe.Expire(ctx, costKey, 35*24*time.Hour)
	}

	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		zap.S().Warnf("Error in success update pipeline for %s: %v", modelID, err)
		return
	}
	totalFailures, _ := strconv.ParseInt(failures.Val(), 10, 64)
	u.updateErrorRate(ctx, key, successes.Val(), totalFailures)
}

// RecordFailure counts a failed call and marks the model degraded.
func (u *UsageTracker) RecordFailure(ctx context.Context, modelID string) {
	if u == nil || u.rdb == nil {
		return
	}
	key := u.statsKey(modelID)
	pipe := u.rdb.Pipeline()
	failures := pipe.HIncrBy(ctx, key, "total_failures", 1)
	successes := pipe.HGet(ctx, key, "total_successes")
	pipe.HSet(ctx, key, "status", "degraded", "last_call", u.now().Format(time.RFC3339Nano))

	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		zap.S().Warnf("Error in failure update pipeline for %s: %v", modelID, err)
		return
	}
	totalSuccesses, _ := strconv.ParseInt(successes.Val(), 10, 64)
	u.updateErrorRate(ctx, key, totalSuccesses, failures.Val())
}

func (u *UsageTracker) updateErrorRate(ctx context.Context, key string, successes, failures int64) {
	if total := successes + failures; total > 0 {
		u.rdb.HSet(ctx, key, "error_rate", float64(failures)/float64(total))
	}
}

// Stats returns the recorded statistics for modelID. A model never seen
// returns zero counters and status "unknown".
func (u *UsageTracker) Stats(ctx context.Context, modelID string) (*ModelStats, error) {
	if u == nil || u.rdb == nil {
		return nil, ErrUsageUnavailable
	}
	data, err := u.rdb.HGetAll(ctx, u.statsKey(modelID)).Result()
	if err != nil {
		return nil, fmt.Errorf("read usage for %s: %w", modelID, err)
	}

	stats := &ModelStats{ModelID: modelID, Status: "unknown"}
	if len(data) == 0 {
		return stats, nil
	}
	stats.Status = data["status"]
	stats.AvgLatencyMS, _ = strconv.ParseInt(data["avg_latency_ms"], 10, 64)
	stats.ErrorRate, _ = strconv.ParseFloat(data["error_rate"], 64)
	stats.TotalSuccesses, _ = strconv.ParseInt(data["total_successes"], 10, 64)
	stats.TotalFailures, _ = strconv.ParseInt(data["total_failures"], 10, 64)
	stats.TotalInputTokens, _ = strconv.ParseInt(data["total_input_tokens"], 10, 64)
	stats.TotalOutputTokens, _ = strconv.ParseInt(data["total_output_tokens"], 10, 64)
	stats.LastCall, _ = time.Parse(time.RFC3339Nano, data["last_call"])
	stats.CostSpentMonthly, _ = u.rdb.Get(ctx, u.costKey(modelID)).Float64()
	return stats, nil
}

// TrackedClient decorates an LLMClient so every call is recorded.
type TrackedClient struct {
	next    LLMClient
	tracker *UsageTracker
}

var _ LLMClient = (*TrackedClient)(nil)

// WithUsageTracking wraps client. A nil tracker returns client unchanged.
func WithUsageTracking(client LLMClient, tracker *UsageTracker) LLMClient {
	if tracker == nil || tracker.rdb == nil {
		return client
	}
	return &TrackedClient{next: client, tracker: tracker}
}

func (t *TrackedClient) Generate(ctx context.Context, messages []Message, config *GenerationConfig, availableTools []tools.Tool) (*GenerationResult, error) {
	start := time.Now()
	res, err := t.next.Generate(ctx, messages, config, availableTools)
	if err != nil {
		t.tracker.RecordFailure(ctx, config.Model)
		return nil, err
	}
	t.tracker.RecordSuccess(ctx, config.Model, time.Since(start), res.Usage)
	return res, nil
}
