// In file: internal/prompts/prompts.go

// Package prompts holds the persona and instruction texts sent to the model.
package prompts

import (
	"bytes"
	_ "embed"
	"strings"
	"text/template"
)

//go:embed system.md
var systemPrompt string

//go:embed rag.tmpl
var ragTemplateContent string

// WardrobeConsultantSystem is the system prompt for the tool-calling agent.
var WardrobeConsultantSystem = strings.TrimSpace(systemPrompt)

const Clarification = `The information provided is ambiguous or unclear.

Please ask the user a specific clarifying question to help you provide accurate recommendations.

Be polite and specific about what information you need.`

const WeatherError = `There was an issue retrieving weather data. This could be because:
- The location is outside the United States (NWS API only covers US locations)
- The coordinates provided are invalid
- The API is temporarily unavailable

Please inform the user of the issue and ask if they'd like to:
1. Try a different US location
2. Provide more specific location details`

// RAGTemplate renders the grounded recommendation prompt.
var RAGTemplate = template.Must(template.New("rag").Option("missingkey=error").Parse(ragTemplateContent))

// RAGData is the input to RAGTemplate.
type RAGData struct {
	WeatherInfo string
	Context     string
	Question    string
}

// RenderRAG executes RAGTemplate with data.
func RenderRAG(data RAGData) (string, error) {
	var buf bytes.Buffer
	if err := RAGTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
