// In file: internal/tools/date_tools.go
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout is the YYYY-MM-DD format every date tool returns.
const DateLayout = "2006-01-02"

// Clock abstracts the current time so the date tools can be tested with a
// fixed instant.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in local time.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns the same instant.
type FixedClock time.Time

func (c FixedClock) Now() time.Time { return time.Time(c) }

// --- get_current_date ---

// CurrentDateTool returns today's date.
type CurrentDateTool struct {
	clock Clock
}

var _ ToolExecutor = (*CurrentDateTool)(nil)

func NewCurrentDateTool(clock Clock) *CurrentDateTool {
	if clock == nil {
		clock = SystemClock{}
	}
	return &CurrentDateTool{clock: clock}
}

func (t *CurrentDateTool) Definition() Tool {
	return NewFunctionTool(
		"get_current_date",
		"Get the current date in YYYY-MM-DD format. Use this before reasoning about relative travel dates such as 'next week' or 'in 5 days'.",
		JSONSchema{
			Type:       "object",
			Properties: map[string]*JSONSchema{},
		},
	)
}

func (t *CurrentDateTool) Execute(_ context.Context, _ string) (string, error) {
	return t.clock.Now().Format(DateLayout), nil
}

// --- calculate_future_date ---

// FutureDateTool adds a number of days to today's date. Negative values
// produce past dates.
type FutureDateTool struct {
	clock Clock
}

var _ ToolExecutor = (*FutureDateTool)(nil)

func NewFutureDateTool(clock Clock) *FutureDateTool {
	if clock == nil {
		clock = SystemClock{}
	}
	return &FutureDateTool{clock: clock}
}

func (t *FutureDateTool) Definition() Tool {
	return NewFunctionTool(
		"calculate_future_date",
		"Calculate the date a number of days from today. Returns the date in YYYY-MM-DD format.",
		JSONSchema{
			Type: "object",
			Properties: map[string]*JSONSchema{
				"days": {
					Type:        "integer",
					Description: "The number of days to add to the current date. Defaults to 0.",
					Default:     0,
				},
			},
		},
	)
}

func (t *FutureDateTool) Execute(_ context.Context, arguments string) (string, error) {
	var args struct {
		Days int `json:"days"`
	}
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return "", fmt.Errorf("invalid arguments for calculate_future_date: %w", err)
	}
	return AddDays(t.clock.Now(), args.Days).Format(DateLayout), nil
}

// AddDays moves t by whole calendar days. AddDate normalizes month and year
// overflow, so Jan 31 + 1 is Feb 1 and Dec 31 + 1 is Jan 1.
func AddDays(t time.Time, days int) time.Time {
	return t.AddDate(0, 0, days)
}
