package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dileep-u-k/tempusvestis/internal/weather"
)

type fakeForecasts struct {
	forecast *weather.Forecast
	raw      []byte
	err      error
	lat, lon float64
}

func (f *fakeForecasts) Forecast(_ context.Context, lat, lon float64) (*weather.Forecast, error) {
	f.lat, f.lon = lat, lon
	if f.err != nil {
		return nil, f.err
	}
	cp := *f.forecast
	return &cp, nil
}

func (f *fakeForecasts) ForecastRaw(_ context.Context, lat, lon float64) (*weather.Point, []byte, error) {
	f.lat, f.lon = lat, lon
	if f.err != nil {
		return nil, nil, f.err
	}
	return &weather.Point{Latitude: lat, Longitude: lon}, f.raw, nil
}

func sampleForecast() *weather.Forecast {
	tz := time.FixedZone("CDT", -5*3600)
	return &weather.Forecast{
		Location: "Chicago, IL",
		Periods: []weather.Period{
			{Name: "Today", StartTime: time.Date(2025, 10, 9, 6, 0, 0, 0, tz), EndTime: time.Date(2025, 10, 9, 18, 0, 0, 0, tz),
				Temperature: 64, TemperatureUnit: "F", ShortForecast: "Rain Showers", WindSpeed: "15 mph"},
			{Name: "Friday", StartTime: time.Date(2025, 10, 10, 6, 0, 0, 0, tz), EndTime: time.Date(2025, 10, 10, 18, 0, 0, 0, tz),
				Temperature: 58, TemperatureUnit: "F", ShortForecast: "Cloudy", WindSpeed: "10 mph"},
		},
	}
}

func TestWeatherTool_SummarizesByDefault(t *testing.T) {
	src := &fakeForecasts{forecast: sampleForecast()}
	out, err := NewWeatherTool(src).Execute(context.Background(), `{"latitude": 41.8781, "longitude": -87.6298}`)
	require.NoError(t, err)

	assert.Equal(t, 41.8781, src.lat)
	assert.Equal(t, -87.6298, src.lon)
	assert.Contains(t, out, "Weather Forecast:\n")
	assert.Contains(t, out, "Today:\n  Temperature: 64°F\n  Conditions: Rain Showers\n  Wind: 15 mph\n")
}

func TestWeatherTool_RawWhenNotSummarized(t *testing.T) {
	raw := []byte(`{"properties":{"periods":[]}}`)
	src := &fakeForecasts{raw: raw}
	out, err := NewWeatherTool(src).Execute(context.Background(), `{"latitude": 1, "longitude": 2, "summarize": false}`)
	require.NoError(t, err)
	assert.JSONEq(t, string(raw), out)
}

func TestWeatherTool_StartDateFiltersPeriods(t *testing.T) {
	src := &fakeForecasts{forecast: sampleForecast()}
	out, err := NewWeatherTool(src).Execute(context.Background(),
		`{"latitude": 41.88, "longitude": -87.63, "start_date": "2025-10-10"}`)
	require.NoError(t, err)
	assert.NotContains(t, out, "Today:")
	assert.Contains(t, out, "Friday:")
}

func TestWeatherTool_StartDateBeyondHorizon(t *testing.T) {
	src := &fakeForecasts{forecast: sampleForecast()}
	out, err := NewWeatherTool(src).Execute(context.Background(),
		`{"latitude": 41.88, "longitude": -87.63, "start_date": "2025-11-20"}`)
	require.NoError(t, err)
	assert.Contains(t, out, "beyond the forecast horizon")
	assert.Contains(t, out, "2025-10-10")
	assert.Contains(t, out, "Friday:")
}

func TestWeatherTool_BeyondHorizonShowsLatestPeriods(t *testing.T) {
	tz := time.FixedZone("CDT", -5*3600)
	f := &weather.Forecast{Location: "Chicago, IL"}
	for i := range 10 {
		start := time.Date(2025, 10, 9+i, 6, 0, 0, 0, tz)
		f.Periods = append(f.Periods, weather.Period{
			Name: fmt.Sprintf("Day %d", i), StartTime: start, EndTime: start.Add(12 * time.Hour),
			Temperature: 60 + i, TemperatureUnit: "F", ShortForecast: "Cloudy",
		})
	}
	src := &fakeForecasts{forecast: f}
	out, err := NewWeatherTool(src).Execute(context.Background(),
		`{"latitude": 41.88, "longitude": -87.63, "start_date": "2025-12-01"}`)
	require.NoError(t, err)

	assert.Contains(t, out, "2025-10-18")
	assert.NotContains(t, out, "Day 0:")
	assert.NotContains(t, out, "Day 2:")
	assert.Contains(t, out, "Day 3:")
	assert.Contains(t, out, "Day 9:")
}

func TestWeatherTool_StartDateRawJSONFormatsAsObservation(t *testing.T) {
	src := &fakeForecasts{forecast: sampleForecast()}
	out, err := NewWeatherTool(src).Execute(context.Background(),
		`{"latitude": 41.88, "longitude": -87.63, "summarize": false, "start_date": "2025-10-10"}`)
	require.NoError(t, err)

	text := weather.FormatObservation(out)
	assert.NotContains(t, text, "{")
	assert.Contains(t, text, "Friday:\n  Temperature: 58°F\n  Conditions: Cloudy\n")
}

func TestWeatherTool_StartDateRawJSON(t *testing.T) {
	src := &fakeForecasts{forecast: sampleForecast()}
	out, err := NewWeatherTool(src).Execute(context.Background(),
		`{"latitude": 41.88, "longitude": -87.63, "summarize": false, "start_date": "2025-10-10"}`)
	require.NoError(t, err)

	var f weather.Forecast
	require.NoError(t, json.Unmarshal([]byte(out), &f))
	require.Len(t, f.Periods, 1)
	assert.Equal(t, "Friday", f.Periods[0].Name)
}

func TestWeatherTool_PropagatesCoverageError(t *testing.T) {
	src := &fakeForecasts{err: weather.ErrOutsideCoverage}
	_, err := NewWeatherTool(src).Execute(context.Background(), `{"latitude": 48.85, "longitude": 2.35}`)
	assert.True(t, errors.Is(err, weather.ErrOutsideCoverage))
}

func TestWeatherTool_BadStartDate(t *testing.T) {
	src := &fakeForecasts{forecast: sampleForecast()}
	_, err := NewWeatherTool(src).Execute(context.Background(), `{"latitude": 1, "longitude": 2, "start_date": "next week"}`)
	assert.Error(t, err)
}
