// In file: internal/tools/weather_tool.go
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dileep-u-k/tempusvestis/internal/weather"
)

// --- Weather Tool Implementation ---

// ForecastSource is the slice of the NWS client the weather tool needs.
type ForecastSource interface {
	Forecast(ctx context.Context, lat, lon float64) (*weather.Forecast, error)
	ForecastRaw(ctx context.Context, lat, lon float64) (*weather.Point, []byte, error)
}

// WeatherTool fetches a National Weather Service forecast for a coordinate
// pair. The model is expected to geocode the destination itself.
type WeatherTool struct {
	source ForecastSource
}

var _ ToolExecutor = (*WeatherTool)(nil)

func NewWeatherTool(source ForecastSource) *WeatherTool {
	return &WeatherTool{source: source}
}

// Definition describes the tool to the LLM.
func (wt *WeatherTool) Definition() Tool {
	return NewFunctionTool(
		"get_weather_forecast",
		"Get the National Weather Service forecast for a latitude/longitude in the United States. "+
			"Returns roughly a week of half-day forecast periods. Use the coordinates of the destination city.",
		JSONSchema{
			Type: "object",
			Properties: map[string]*JSONSchema{
				"latitude": {
					Type:        "number",
					Description: "Latitude of the destination, e.g. 41.8781 for Chicago.",
					Minimum:     Float(-90),
					Maximum:     Float(90),
				},
				"longitude": {
					Type:        "number",
					Description: "Longitude of the destination, e.g. -87.6298 for Chicago.",
					Minimum:     Float(-180),
					Maximum:     Float(180),
				},
				"summarize": {
					Type:        "boolean",
					Description: "Return a readable summary (true) or the raw forecast JSON (false).",
					Default:     true,
				},
				"start_date": {
					Type:        "string",
					Format:      "date",
					Description: "Optional travel start date (YYYY-MM-DD). Periods before it are omitted.",
				},
			},
			Required: []string{"latitude", "longitude"},
		},
	)
}

// Execute fetches the forecast. Errors from the NWS are returned to the
// agent, which reports them to the model as the observation.
func (wt *WeatherTool) Execute(ctx context.Context, arguments string) (string, error) {
	var args struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		Summarize *bool   `json:"summarize"`
		StartDate string  `json:"start_date"`
	}
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return "", fmt.Errorf("invalid arguments for weather tool: %w", err)
	}

	summarize := args.Summarize == nil || *args.Summarize
	if !summarize && args.StartDate == "" {
		_, raw, err := wt.source.ForecastRaw(ctx, args.Latitude, args.Longitude)
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}

	forecast, err := wt.source.Forecast(ctx, args.Latitude, args.Longitude)
	if err != nil {
		return "", err
	}

	if args.StartDate != "" {
		start, err := time.Parse(DateLayout, args.StartDate)
		if err != nil {
			return "", fmt.Errorf("start_date must be YYYY-MM-DD: %w", err)
		}
		filtered := forecast.From(start)
		if len(filtered.Periods) == 0 {
			latest := forecast.Latest(weather.DefaultPeriods)
			return fmt.Sprintf(
				"The forecast only extends to %s; %s is beyond the forecast horizon. "+
					"Use the latest available periods below as an indication.\n\n%s",
				forecast.Horizon().Format(DateLayout), args.StartDate,
				weather.FormatForecast(&latest, weather.DefaultPeriods)), nil
		}
		forecast = &filtered
	}

	if !summarize {
		raw, err := json.Marshal(forecast)
		if err != nil {
			return "", fmt.Errorf("failed to encode forecast: %w", err)
		}
		return string(raw), nil
	}
	return weather.FormatForecast(forecast, weather.DefaultPeriods), nil
}
