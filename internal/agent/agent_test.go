package agent

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/dileep-u-k/tempusvestis/internal/llm"
	"github.com/dileep-u-k/tempusvestis/internal/llm/llmtest"
	"github.com/dileep-u-k/tempusvestis/internal/prompts"
	"github.com/dileep-u-k/tempusvestis/internal/tools"
	"github.com/dileep-u-k/tempusvestis/internal/weather"
)

type stubForecasts struct {
	err error
}

func (s stubForecasts) Forecast(context.Context, float64, float64) (*weather.Forecast, error) {
	if s.err != nil {
		return nil, s.err
	}
	tz := time.FixedZone("CDT", -5*3600)
	return &weather.Forecast{Location: "Chicago, IL", Periods: []weather.Period{{
		Name: "Thursday", StartTime: time.Date(2025, 10, 16, 6, 0, 0, 0, tz), EndTime: time.Date(2025, 10, 16, 18, 0, 0, 0, tz),
		Temperature: 52, TemperatureUnit: "F", ShortForecast: "Rain", WindSpeed: "20 mph",
	}}}, nil
}

func (s stubForecasts) ForecastRaw(context.Context, float64, float64) (*weather.Point, []byte, error) {
	return nil, nil, errors.New("not used")
}

func newToolManager(t *testing.T, forecastErr error) *tools.ToolManager {
	t.Helper()
	clock := tools.FixedClock(time.Date(2025, 10, 9, 10, 0, 0, 0, time.UTC))
	tm := tools.NewToolManager()
	require.NoError(t, tm.Register(tools.NewCurrentDateTool(clock)))
	require.NoError(t, tm.Register(tools.NewFutureDateTool(clock)))
	require.NoError(t, tm.Register(tools.NewWeatherTool(stubForecasts{err: forecastErr})))
	return tm
}

const chicagoArgs = `{"latitude":41.8781,"longitude":-87.6298,"start_date":"2025-10-16"}`

func TestRun_ToolLoop(t *testing.T) {
	client := llmtest.NewClient(
		llmtest.Tools(llmtest.Call("c1", "get_current_date", "")),
		llmtest.Tools(
			llmtest.Call("c2", "calculate_future_date", `{"days":7}`),
			llmtest.Call("c3", "get_weather_forecast", chicagoArgs),
		),
		llmtest.Text("  Pack a rain jacket.  "),
	)
	a := New(client, newToolManager(t, nil), Config{Model: "gpt-4o-mini", Temperature: llm.Float32(0.7)})

	res, err := a.Run(context.Background(), "What should I pack for Chicago in 7 days?")
	require.NoError(t, err)

	assert.Equal(t, "Pack a rain jacket.", res.Output)
	assert.Equal(t, 3, res.Iterations)
	assert.Equal(t, 45, res.Usage.TotalTokens)
	require.Len(t, res.Steps, 3)
	assert.Equal(t, "2025-10-09", res.Steps[0].Output)
	assert.Equal(t, "2025-10-16", res.Steps[1].Output)
	assert.False(t, res.HasToolErrors())

	obs, ok := res.Observation("get_weather_forecast")
	require.True(t, ok)
	assert.Contains(t, obs, "Location: Chicago, IL")
	assert.Contains(t, obs, "Temperature: 52°F")

	first := client.Requests[0]
	require.Len(t, first.Messages, 2)
	assert.Equal(t, llm.RoleSystem, first.Messages[0].Role)
	assert.Equal(t, prompts.WardrobeConsultantSystem, first.Messages[0].Content)
	assert.Equal(t, "gpt-4o-mini", first.Config.Model)
	require.Len(t, first.Tools, 3)
	assert.Equal(t, "calculate_future_date", first.Tools[0].Function.Name)

	// system, user, assistant(c1), tool(c1), assistant(c2,c3), tool(c2), tool(c3)
	last := client.Requests[2].Messages
	require.Len(t, last, 7)
	assert.Equal(t, llm.RoleAssistant, last[4].Role)
	assert.Len(t, last[4].ToolCalls, 2)
	assert.Equal(t, llm.Message{Role: llm.RoleTool, ToolCallID: "c2", ToolName: "calculate_future_date", Content: "2025-10-16"}, last[5])
}

func TestRun_ToolErrorsBecomeObservations(t *testing.T) {
	client := llmtest.NewClient(
		llmtest.Tools(
			llmtest.Call("c1", "get_weather_forecast", `{"latitude":48.8566,"longitude":2.3522}`),
			llmtest.Call("c2", "calculate_future_date", `{"days":"seven"}`),
			llmtest.Call("c3", "get_packing_list", `{}`),
		),
		llmtest.Text("I can only help with US destinations."),
	)
	a := New(client, newToolManager(t, weather.ErrOutsideCoverage), Config{})

	res, err := a.Run(context.Background(), "Paris next week")
	require.NoError(t, err)
	assert.Equal(t, "I can only help with US destinations.", res.Output)
	assert.True(t, res.HasToolErrors())

	require.Len(t, res.Steps, 3)
	assert.ErrorIs(t, res.Steps[0].Err, weather.ErrOutsideCoverage)
	assert.ErrorIs(t, res.Steps[1].Err, tools.ErrInvalidArguments)
	assert.ErrorIs(t, res.Steps[2].Err, tools.ErrToolNotFound)

	_, ok := res.Observation("get_weather_forecast")
	assert.False(t, ok)

	toolMsg := client.Requests[1].Messages[3]
	assert.Equal(t, llm.RoleTool, toolMsg.Role)
	assert.True(t, strings.HasPrefix(toolMsg.Content, "Error executing tool get_weather_forecast: "), toolMsg.Content)

	wire := res.Steps[0].API()
	assert.Equal(t, "get_weather_forecast", wire.Tool)
	assert.NotEmpty(t, wire.Error)
	assert.Equal(t, res.Steps[0].Observation(), wire.Output)
}

func TestRun_MaxIterations(t *testing.T) {
	loop := llmtest.Tools(llmtest.Call("c", "get_current_date", "{}"))
	client := &llmtest.Client{Fallback: &loop}
	a := New(client, newToolManager(t, nil), Config{MaxIterations: 2})

	res, err := a.Run(context.Background(), "pack?")
	assert.ErrorIs(t, err, ErrMaxIterations)
	require.NotNil(t, res)
	assert.Len(t, res.Steps, 2)
	assert.Equal(t, 2, client.Calls())
}

func TestRespond_ClassifiesFailures(t *testing.T) {
	t.Run("general", func(t *testing.T) {
		a := New(llmtest.NewClient(llmtest.Fail(errors.New("upstream 500"))), newToolManager(t, nil), Config{})
		res := a.Respond(context.Background(), "Boston")
		assert.Equal(t, KindGeneral, res.Kind)
		assert.True(t, strings.HasPrefix(res.Output, "I encountered an error while processing your request."))
		assert.Contains(t, res.Output, "Error: LLM generation failed during tool loop: upstream 500")
	})

	t.Run("weather after max iterations", func(t *testing.T) {
		loop := llmtest.Tools(llmtest.Call("c", "get_weather_forecast", `{"latitude":51.5,"longitude":-0.12}`))
		a := New(&llmtest.Client{Fallback: &loop}, newToolManager(t, weather.ErrOutsideCoverage), Config{MaxIterations: 3})
		res := a.Respond(context.Background(), "London")
		assert.Equal(t, KindWeatherAPI, res.Kind)
		assert.ErrorIs(t, res.Err, ErrMaxIterations)
		assert.ErrorIs(t, res.Err, weather.ErrOutsideCoverage)
		assert.True(t, strings.HasPrefix(res.Output, prompts.WeatherError))
		assert.Len(t, res.Steps, 3)
	})

	t.Run("success untouched", func(t *testing.T) {
		a := New(llmtest.NewClient(llmtest.Text("Pack shorts.")), newToolManager(t, nil), Config{})
		res := a.Respond(context.Background(), "Miami")
		assert.Equal(t, KindNone, res.Kind)
		assert.NoError(t, res.Err)
		assert.Equal(t, "Pack shorts.", res.Output)
	})
}

func TestRespond_WarnsOnToolErrors(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	defer zap.ReplaceGlobals(zap.New(core))()

	client := llmtest.NewClient(
		llmtest.Tools(llmtest.Call("c1", "get_weather_forecast", `{"latitude":48.8566,"longitude":2.3522}`)),
		llmtest.Text("I can only help with US destinations."),
	)
	a := New(client, newToolManager(t, weather.ErrOutsideCoverage), Config{})
	res := a.Respond(context.Background(), "Paris")
	require.NoError(t, res.Err)
	assert.Equal(t, "I can only help with US destinations.", res.Output)

	warned := logs.FilterMessageSnippet("tool errors").All()
	require.Len(t, warned, 1)
	assert.EqualValues(t, 1, warned[0].ContextMap()["steps"])

	logs.TakeAll()
	a = New(llmtest.NewClient(llmtest.Text("Pack shorts.")), newToolManager(t, nil), Config{})
	a.Respond(context.Background(), "Miami")
	assert.Zero(t, logs.Len())
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorKind
	}{
		{nil, KindNone},
		{fmt.Errorf("tool: %w", weather.ErrOutsideCoverage), KindWeatherAPI},
		{weather.ErrNotFound, KindWeatherAPI},
		{errors.New("missing key 'properties'"), KindWeatherAPI},
		{weather.ErrInvalidCoordinates, KindLocation},
		{errors.New("could not resolve Location"), KindLocation},
		{fmt.Errorf("%w for 'x'", tools.ErrInvalidArguments), KindClarification},
		{errors.New("unparseable date"), KindDate},
		{context.DeadlineExceeded, KindGeneral},
		{errors.New("boom"), KindGeneral},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.err), "%v", tt.err)
	}
}

func TestMessage(t *testing.T) {
	err := errors.New("x")
	assert.Equal(t, prompts.WeatherError, Message(KindLocation, err))
	assert.Contains(t, Message(KindWeatherAPI, err), "Error details: x")
	assert.Contains(t, Message(KindDate, err), "specific date or number of days from now")
	assert.Contains(t, Message(KindClarification, err), "destination and travel dates")
	assert.True(t, strings.HasPrefix(Message(KindClarification, err), prompts.Clarification))
}

func TestExplain(t *testing.T) {
	var buf bytes.Buffer
	Explain(&buf, "Denver this weekend", &Result{
		Output: "Bring a fleece.",
		Steps: []Step{
			{Tool: "get_current_date", Input: "{}", Output: "2025-10-09"},
			{Tool: "get_weather_forecast", Input: "{}", Err: errors.New("timeout")},
		},
	})
	out := buf.String()
	assert.Contains(t, out, "QUERY: Denver this weekend")
	assert.Contains(t, out, "REASONING STEPS:")
	assert.Contains(t, out, "Step 1:\n  Tool: get_current_date\n  Input: {}\n  Output: 2025-10-09")
	assert.Contains(t, out, "Output: Error executing tool get_weather_forecast: timeout")
	assert.Contains(t, out, "FINAL RESPONSE:\n"+strings.Repeat("=", 80)+"\nBring a fleece.")

	buf.Reset()
	Explain(&buf, "q", &Result{})
	assert.NotContains(t, buf.String(), "REASONING STEPS:")
	assert.Contains(t, buf.String(), "No response generated.")
}
