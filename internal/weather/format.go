// In file: internal/weather/format.go
package weather

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DefaultPeriods is how many periods a summary shows, roughly one week.
const DefaultPeriods = 7

// FormatForecast renders the first maxPeriods periods as readable text. A
// maxPeriods of zero or less uses DefaultPeriods.
func FormatForecast(f *Forecast, maxPeriods int) string {
	if maxPeriods <= 0 {
		maxPeriods = DefaultPeriods
	}

	var b strings.Builder
	b.WriteString("Weather Forecast:\n")
	if f == nil {
		return b.String()
	}
	if f.Location != "" {
		fmt.Fprintf(&b, "Location: %s\n", f.Location)
	}

	periods := f.Periods
	if len(periods) > maxPeriods {
		periods = periods[:maxPeriods]
	}
	for _, p := range periods {
		name := orDefault(p.Name, "Unknown")
		unit := orDefault(p.TemperatureUnit, "F")
		fmt.Fprintf(&b, "\n%s:\n", name)
		fmt.Fprintf(&b, "  Temperature: %d°%s\n", p.Temperature, unit)
		fmt.Fprintf(&b, "  Conditions: %s\n", orDefault(p.ShortForecast, "N/A"))
		fmt.Fprintf(&b, "  Wind: %s\n", orDefault(p.WindSpeed, "N/A"))
		if p.PrecipitationChance != nil {
			fmt.Fprintf(&b, "  Chance of precipitation: %d%%\n", *p.PrecipitationChance)
		}
	}
	return b.String()
}

// FormatObservation turns a weather tool observation into prompt text. Raw
// NWS forecast JSON and encoded Forecast values are summarized; anything
// else is already text and is returned unchanged.
func FormatObservation(observation string) string {
	trimmed := strings.TrimSpace(observation)
	if !strings.HasPrefix(trimmed, "{") {
		return observation
	}

	var envelope struct {
		Properties *json.RawMessage `json:"properties"`
	}
	if err := json.Unmarshal([]byte(trimmed), &envelope); err != nil {
		return "Weather Forecast:\n" + observation
	}
	if envelope.Properties == nil {
		// A date-filtered forecast is encoded as Forecast itself.
		var filtered Forecast
		if err := json.Unmarshal([]byte(trimmed), &filtered); err == nil && len(filtered.Periods) > 0 {
			return FormatForecast(&filtered, DefaultPeriods)
		}
		return "Weather Forecast:\n" + observation
	}
	f, err := ParseForecast([]byte(trimmed))
	if err != nil {
		return "Weather Forecast:\n" + observation
	}
	return FormatForecast(f, DefaultPeriods)
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
