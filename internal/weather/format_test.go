package weather

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatForecast(t *testing.T) {
	f, err := ParseForecast([]byte(forecastJSON))
	require.NoError(t, err)

	got := FormatForecast(f, 2)
	want := "Weather Forecast:\n" +
		"\nToday:\n  Temperature: 75°F\n  Conditions: Sunny\n  Wind: 10 mph\n  Chance of precipitation: 10%\n" +
		"\nTonight:\n  Temperature: 55°F\n  Conditions: Clear\n  Wind: 5 mph\n"
	assert.Equal(t, want, got)
}

func TestFormatForecast_CapsAtSevenPeriods(t *testing.T) {
	f := &Forecast{}
	for i := 1; i <= 14; i++ {
		f.Periods = append(f.Periods, Period{Number: i, Name: fmt.Sprintf("P%d", i), Temperature: 60})
	}
	out := FormatForecast(f, 0)
	assert.Equal(t, 7, strings.Count(out, "Temperature:"))
	assert.Contains(t, out, "P7:")
	assert.NotContains(t, out, "P8:")
}

func TestFormatForecast_Defaults(t *testing.T) {
	out := FormatForecast(&Forecast{Location: "Miami, FL", Periods: []Period{{Temperature: 88}}}, 7)
	assert.Contains(t, out, "Location: Miami, FL")
	assert.Contains(t, out, "\nUnknown:\n  Temperature: 88°F\n  Conditions: N/A\n  Wind: N/A\n")
}

func TestFormatObservation(t *testing.T) {
	t.Run("plain text is passed through", func(t *testing.T) {
		assert.Equal(t, "Weather Forecast:\nalready formatted", FormatObservation("Weather Forecast:\nalready formatted"))
	})
	t.Run("raw forecast JSON is summarized", func(t *testing.T) {
		out := FormatObservation(forecastJSON)
		assert.True(t, strings.HasPrefix(out, "Weather Forecast:\n"))
		assert.Contains(t, out, "Friday:\n  Temperature: 78°F")
	})
	t.Run("encoded forecast is summarized", func(t *testing.T) {
		out := FormatObservation(`{"location":"Boston, MA","updated":"0001-01-01T00:00:00Z",` +
			`"periods":[{"name":"Tonight","temperature":48,"temperatureUnit":"F","shortForecast":"Clear","windSpeed":"5 mph"}]}`)
		assert.True(t, strings.HasPrefix(out, "Weather Forecast:\nLocation: Boston, MA\n"))
		assert.Contains(t, out, "Tonight:\n  Temperature: 48°F\n  Conditions: Clear\n  Wind: 5 mph\n")
	})
	t.Run("other JSON is labelled", func(t *testing.T) {
		assert.Equal(t, "Weather Forecast:\n{\"x\":1}", FormatObservation(`{"x":1}`))
	})
}
