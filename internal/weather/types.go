// In file: internal/weather/types.go
package weather

import (
	"errors"
	"time"
)

var (
	// ErrOutsideCoverage means the NWS has no grid for the point. The NWS
	// only covers the United States and its territories.
	ErrOutsideCoverage = errors.New("location is outside National Weather Service coverage (US locations only)")
	// ErrNotFound means the forecast document for a known grid is missing.
	ErrNotFound = errors.New("forecast not found")
	// ErrInvalidCoordinates is returned for latitudes or longitudes out of range.
	ErrInvalidCoordinates = errors.New("invalid coordinates")
)

// Point is the NWS metadata for a coordinate pair.
type Point struct {
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	ForecastURL string  `json:"forecast_url"`
	City        string  `json:"city,omitempty"`
	State       string  `json:"state,omitempty"`
}

// Location renders "City, ST" when the NWS provided a relative location.
func (p Point) Location() string {
	switch {
	case p.City != "" && p.State != "":
		return p.City + ", " + p.State
	case p.City != "":
		return p.City
	default:
		return p.State
	}
}

// Period is one forecast window, usually a half day.
type Period struct {
	Number              int       `json:"number"`
	Name                string    `json:"name"`
	StartTime           time.Time `json:"startTime"`
	EndTime             time.Time `json:"endTime"`
	IsDaytime           bool      `json:"isDaytime"`
	Temperature         int       `json:"temperature"`
	TemperatureUnit     string    `json:"temperatureUnit"`
	WindSpeed           string    `json:"windSpeed"`
	WindDirection       string    `json:"windDirection"`
	ShortForecast       string    `json:"shortForecast"`
	DetailedForecast    string    `json:"detailedForecast"`
	PrecipitationChance *int      `json:"precipitationChance,omitempty"`
}

// Forecast is a parsed NWS forecast for one location.
type Forecast struct {
	Location string    `json:"location,omitempty"`
	Updated  time.Time `json:"updated"`
	Periods  []Period  `json:"periods"`
}

// From returns a copy of f without the periods that end on or before the
// start of date (in the period's own time zone).
func (f Forecast) From(date time.Time) Forecast {
	out := Forecast{Location: f.Location, Updated: f.Updated}
	y, m, d := date.Date()
	for _, p := range f.Periods {
		dayStart := time.Date(y, m, d, 0, 0, 0, 0, p.EndTime.Location())
		if p.EndTime.After(dayStart) {
			out.Periods = append(out.Periods, p)
		}
	}
	return out
}

// Latest keeps the last n periods.
func (f Forecast) Latest(n int) Forecast {
	out := Forecast{Location: f.Location, Updated: f.Updated}
	out.Periods = f.Periods[max(0, len(f.Periods)-n):]
	return out
}

// Horizon is the end of the last forecast period.
func (f Forecast) Horizon() time.Time {
	if len(f.Periods) == 0 {
		return time.Time{}
	}
	return f.Periods[len(f.Periods)-1].EndTime
}

// --- NWS wire types ---

type pointsResponse struct {
	Properties struct {
		Forecast         string `json:"forecast"`
		RelativeLocation struct {
			Properties struct {
				City  string `json:"city"`
				State string `json:"state"`
			} `json:"properties"`
		} `json:"relativeLocation"`
	} `json:"properties"`
}

type forecastResponse struct {
	Properties struct {
		Updated time.Time      `json:"updated"`
		Periods []periodRecord `json:"periods"`
	} `json:"properties"`
}

type periodRecord struct {
	Number                     int       `json:"number"`
	Name                       string    `json:"name"`
	StartTime                  time.Time `json:"startTime"`
	EndTime                    time.Time `json:"endTime"`
	IsDaytime                  bool      `json:"isDaytime"`
	Temperature                int       `json:"temperature"`
	TemperatureUnit            string    `json:"temperatureUnit"`
	WindSpeed                  string    `json:"windSpeed"`
	WindDirection              string    `json:"windDirection"`
	ShortForecast              string    `json:"shortForecast"`
	DetailedForecast           string    `json:"detailedForecast"`
	ProbabilityOfPrecipitation struct {
		Value *int `json:"value"`
	} `json:"probabilityOfPrecipitation"`
}

func (r periodRecord) toPeriod() Period {
	return Period{
		Number:              r.Number,
		Name:                r.Name,
		StartTime:           r.StartTime,
		EndTime:             r.EndTime,
		IsDaytime:           r.IsDaytime,
		Temperature:         r.Temperature,
		TemperatureUnit:     r.TemperatureUnit,
		WindSpeed:           r.WindSpeed,
		WindDirection:       r.WindDirection,
		ShortForecast:       r.ShortForecast,
		DetailedForecast:    r.DetailedForecast,
		PrecipitationChance: r.ProbabilityOfPrecipitation.Value,
	}
}
