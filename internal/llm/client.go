// Package llm contains the model clients used by the classification stages.
package llm

import (
	"context"
	"strings"
)

// Client is the interface every model backend implements.
type Client interface {
	// Name returns the backend name (e.g. "gemini").
	Name() string

	// Available returns true if the client is configured and ready.
	Available() bool

	// Generate sends a prompt and returns the completion with token usage.
	Generate(ctx context.Context, req Request) (Response, error)
}

// Request is one prompt request.
type Request struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float64
	MaxTokens    int
}

// Usage is the token accounting reported by the backend for one call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Response is a completed generation.
type Response struct {
	Content string
	Model   string
	Usage   Usage
	Cost    float64
}

// Pricing converts token usage to cost in the billing currency.
type Pricing struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

// Cost returns the price of the given usage.
func (p Pricing) Cost(u Usage) float64 {
	return float64(u.PromptTokens)/1e6*p.InputPerMillion +
		float64(u.CompletionTokens)/1e6*p.OutputPerMillion
}

// ParseFields parses a labeled completion of the form
//
//	field_name: value
//	other_field: value that may
//	continue on following lines
//
// into a map keyed by field name. Only names in want are treated as labels;
// anything else is folded into the value of the preceding field. Values keep
// surrounding quotes stripped. Markdown list prefixes ("1.", "-", "*") before
// a label are tolerated.
func ParseFields(content string, want ...string) map[string]string {
	known := make(map[string]bool, len(want))
	for _, w := range want {
		known[w] = true
	}

	fields := make(map[string]string)
	current := ""
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		trimmed = trimListPrefix(trimmed)

		name, value, found := strings.Cut(trimmed, ":")
		name = strings.TrimSpace(strings.Trim(strings.TrimSpace(name), "*`"))
		if found && known[name] {
			current = name
			fields[current] = strings.TrimSpace(value)
			continue
		}
		if current != "" && trimmed != "" {
			fields[current] += "\n" + trimmed
		}
	}

	for k, v := range fields {
		fields[k] = strings.Trim(strings.TrimSpace(v), `"`)
	}
	return fields
}

// ParseBool interprets the boolean spellings models actually produce.
func ParseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(strings.Trim(s, "`*.\"'"))) {
	case "true", "yes", "sim", "verdadeiro", "1":
		return true
	}
	return false
}

// trimListPrefix strips a leading "1.", "-" or "*" marker.
func trimListPrefix(s string) string {
	rest := s
	for len(rest) > 0 && rest[0] >= '0' && rest[0] <= '9' {
		rest = rest[1:]
	}
	if len(rest) < len(s) && strings.HasPrefix(rest, ".") {
		return strings.TrimSpace(rest[1:])
	}
	if strings.HasPrefix(s, "- ") || strings.HasPrefix(s, "* ") {
		return strings.TrimSpace(s[2:])
	}
	return s
}
