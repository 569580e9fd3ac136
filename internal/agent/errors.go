// In file: internal/agent/errors.go
package agent

import (
	"context"
	"errors"
	"strings"

	"github.com/dileep-u-k/tempusvestis/internal/prompts"
	"github.com/dileep-u-k/tempusvestis/internal/tools"
	"github.com/dileep-u-k/tempusvestis/internal/weather"
)

// ErrorKind classifies a failed run for the user-facing message.
type ErrorKind string

const (
	KindNone          ErrorKind = ""
	KindWeatherAPI    ErrorKind = "weather_api"
	KindLocation      ErrorKind = "location"
	KindDate          ErrorKind = "date"
	KindClarification ErrorKind = "clarification"
	KindGeneral       ErrorKind = "general"
)

// Classify maps err to an ErrorKind. Sentinel errors are checked first; the
// message keywords catch errors that arrive as plain text from providers.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindGeneral
	case errors.Is(err, weather.ErrOutsideCoverage), errors.Is(err, weather.ErrNotFound):
		return KindWeatherAPI
	case errors.Is(err, weather.ErrInvalidCoordinates):
		return KindLocation
	case errors.Is(err, tools.ErrInvalidArguments):
		return KindClarification
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "properties"), strings.Contains(msg, "forecast"):
		return KindWeatherAPI
	case strings.Contains(msg, "location"), strings.Contains(msg, "coordinates"):
		return KindLocation
	case strings.Contains(msg, "date"), strings.Contains(msg, "time"):
		return KindDate
	default:
		return KindGeneral
	}
}

// Message renders the reply shown to the user for a failure of kind.
func Message(kind ErrorKind, err error) string {
	switch kind {
	case KindWeatherAPI:
		return prompts.WeatherError + "\n\nError details: " + err.Error()
	case KindLocation:
		return prompts.WeatherError
	case KindClarification:
		return prompts.Clarification + "\n\nI need more specific information to help you. " +
			"Could you provide more details about your destination and travel dates?"
	case KindDate:
		return prompts.Clarification + "\n\nI'm not sure about the dates you mentioned. " +
			"Could you provide a specific date or number of days from now?"
	default:
		return "I encountered an error while processing your request. Please try rephrasing with more " +
			"specific details about your destination and travel dates.\n\nError: " + err.Error()
	}
}
