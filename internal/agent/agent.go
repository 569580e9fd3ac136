// In file: internal/agent/agent.go

// Package agent runs the tool-calling loop: the model is offered the date and
// weather tools and decides which to call until it can answer on its own.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/dileep-u-k/tempusvestis/internal/api"
	"github.com/dileep-u-k/tempusvestis/internal/llm"
	"github.com/dileep-u-k/tempusvestis/internal/prompts"
	"github.com/dileep-u-k/tempusvestis/internal/tools"
)

// DefaultMaxIterations bounds the number of model calls per query.
const DefaultMaxIterations = 10

// ErrMaxIterations is returned when the model keeps requesting tools past the
// iteration limit.
var ErrMaxIterations = errors.New("agent stopped due to iteration limit")

var tracer = otel.Tracer("github.com/dileep-u-k/tempusvestis/internal/agent")

// ToolRunner is the part of tools.ToolManager the agent needs.
type ToolRunner interface {
	GetDefinitions() []tools.Tool
	Execute(ctx context.Context, name, arguments string) (string, error)
}

// Config controls the model calls made by the agent.
type Config struct {
	Model         string
	Temperature   *float32
	MaxTokens     int
	MaxIterations int
	// SystemPrompt defaults to the wardrobe consultant persona.
	SystemPrompt string
}

// Agent is safe for concurrent use when its client and tools are.
type Agent struct {
	client llm.LLMClient
	tools  ToolRunner
	cfg    Config
}

func New(client llm.LLMClient, runner ToolRunner, cfg Config) *Agent {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = prompts.WardrobeConsultantSystem
	}
	return &Agent{client: client, tools: runner, cfg: cfg}
}

// Step is one tool invocation and what it produced.
type Step struct {
	Tool   string
	CallID string
	Input  string
	Output string
	Err    error
}

// Observation is the text reported back to the model for this step.
func (s Step) Observation() string {
	if s.Err != nil {
		return fmt.Sprintf("Error executing tool %s: %v", s.Tool, s.Err)
	}
	return s.Output
}

// API converts the step to its wire form.
func (s Step) API() api.Step {
	out := api.Step{Tool: s.Tool, Input: s.Input, Output: s.Observation()}
	if s.Err != nil {
		out.Error = s.Err.Error()
	}
	return out
}

// Result is the outcome of one agent run.
type Result struct {
	Output     string
	Steps      []Step
	Usage      api.Usage
	Iterations int
	// Err and Kind are set by Respond when the run failed.
	Err  error
	Kind ErrorKind
}

// Observation returns the output of the first successful call to tool.
func (r *Result) Observation(tool string) (string, bool) {
	for _, s := range r.Steps {
		if s.Tool == tool && s.Err == nil {
			return s.Output, true
		}
	}
	return "", false
}

// HasToolErrors reports whether any observation looks like a failure.
func (r *Result) HasToolErrors() bool {
	for _, s := range r.Steps {
		obs := strings.ToLower(s.Observation())
		if s.Err != nil || strings.Contains(obs, "error") || strings.Contains(obs, "exception") {
			return true
		}
	}
	return false
}

func (r *Result) lastToolError() error {
	for i := len(r.Steps) - 1; i >= 0; i-- {
		if r.Steps[i].Err != nil {
			return r.Steps[i].Err
		}
	}
	return nil
}

// Run answers query. Tool failures never abort the run; they are returned to
// the model as observations. The returned Result is non-nil even on error
// and carries the steps taken so far.
func (a *Agent) Run(ctx context.Context, query string) (*Result, error) {
	ctx, span := tracer.Start(ctx, "agent.run")
	defer span.End()

	res := &Result{}
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: a.cfg.SystemPrompt},
		{Role: llm.RoleUser, Content: query},
	}
	genCfg := &llm.GenerationConfig{
		Model:       a.cfg.Model,
		Temperature: a.cfg.Temperature,
		MaxTokens:   a.cfg.MaxTokens,
	}
	definitions := a.tools.GetDefinitions()

	for i := 0; i < a.cfg.MaxIterations; i++ {
		res.Iterations = i + 1
		result, err := a.client.Generate(ctx, messages, genCfg, definitions)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "generation failed")
			return res, fmt.Errorf("LLM generation failed during tool loop: %w", err)
		}
		res.Usage.Add(result.Usage)

		if len(result.ToolCalls) == 0 {
			zap.S().Debugf("LLM provided final answer after %d iteration(s).", res.Iterations)
			res.Output = strings.TrimSpace(result.Content)
			span.SetAttributes(attribute.Int("agent.iterations", res.Iterations), attribute.Int("agent.steps", len(res.Steps)))
			return res, nil
		}

		messages = append(messages, llm.Message{Role: llm.RoleAssistant, Content: result.Content, ToolCalls: result.ToolCalls})
		for _, call := range result.ToolCalls {
			step := a.execute(ctx, call)
			res.Steps = append(res.Steps, step)
			messages = append(messages, llm.Message{
				Role:       llm.RoleTool,
				ToolCallID: call.ID,
				ToolName:   call.Function.Name,
				Content:    step.Observation(),
			})
		}
	}

	span.SetStatus(codes.Error, ErrMaxIterations.Error())
	return res, ErrMaxIterations
}

func (a *Agent) execute(ctx context.Context, call *tools.ToolCall) Step {
	ctx, span := tracer.Start(ctx, "agent.tool",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("tool.name", call.Function.Name)))
	defer span.End()

	zap.S().Infof("🛠️ Executing tool: %s (ID: %s) with args: %s", call.Function.Name, call.ID, call.Function.Arguments)
	step := Step{Tool: call.Function.Name, CallID: call.ID, Input: call.Function.Arguments}
	step.Output, step.Err = a.tools.Execute(ctx, call.Function.Name, call.Function.Arguments)
	if step.Err != nil {
		zap.S().Warnf("⚠️ Tool %s failed: %v", call.Function.Name, step.Err)
		span.RecordError(step.Err)
		span.SetStatus(codes.Error, "tool failed")
	}
	return step
}

// Respond is Run for user-facing callers: a failed run is turned into a
// helpful message instead of an error.
func (a *Agent) Respond(ctx context.Context, query string) *Result {
	res, err := a.Run(ctx, query)
	if err == nil {
		if res.HasToolErrors() {
			zap.S().Warnw("⚠️ Agent answered after tool errors", "steps", len(res.Steps), "last_error", res.lastToolError())
		}
		return res
	}
	cause := err
	if errors.Is(err, ErrMaxIterations) {
		if toolErr := res.lastToolError(); toolErr != nil {
			cause = fmt.Errorf("%w: last tool error: %w", err, toolErr)
		}
	}
	res.Err = cause
	res.Kind = Classify(cause)
	res.Output = Message(res.Kind, cause)
	zap.S().Warnf("⚠️ Agent run failed (%s): %v", res.Kind, cause)
	return res
}
