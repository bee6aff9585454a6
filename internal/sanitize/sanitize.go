// Package sanitize cleans raw LLM responses down to bare docstring
// content. Models wrap answers in structured JSON, markdown fences, or
// whole function definitions; each step strips one layer and passes
// unrecognized input through untouched.
package sanitize

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// ErrEmptyDocstring is returned when nothing usable survives the
// pipeline.
var ErrEmptyDocstring = errors.New("sanitized docstring is empty")

var (
	fenceRe       = regexp.MustCompile("(?m)^```(?:\\w+)?\\s*\\n|\\n```(?:\\w+)?\\s*$")
	funcDefRe     = regexp.MustCompile(`(?m)^def\s+\w+\([^)]*\):`)
	doubleQuoteRe = regexp.MustCompile(`(?s)"""(.*?)"""`)
	singleQuoteRe = regexp.MustCompile(`(?s)'''(.*?)'''`)
)

// Sanitize runs the full cleanup pipeline over an LLM response.
func Sanitize(response string) (string, error) {
	s := strings.TrimSpace(response)
	s = DecodeStructuredResponse(s)
	s = RemoveMarkdownFences(s)
	s = RemoveFunctionDefinition(s)
	s = ExtractDocstringContent(s)
	s = strings.TrimSpace(s)

	if s == "" {
		return "", ErrEmptyDocstring
	}
	return s, nil
}

// DecodeStructuredResponse unwraps the structured docstring payload
// ({"responses": [{"content": ...}]}). Anything that is not that JSON
// shape passes through unchanged.
func DecodeStructuredResponse(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "{") {
		return s
	}

	var payload struct {
		Responses []struct {
			Content string `json:"content"`
		} `json:"responses"`
	}
	if err := json.Unmarshal([]byte(trimmed), &payload); err != nil {
		return s
	}
	if len(payload.Responses) == 0 || payload.Responses[0].Content == "" {
		return s
	}
	return payload.Responses[0].Content
}

// RemoveMarkdownFences strips opening and closing code fences.
func RemoveMarkdownFences(s string) string {
	return fenceRe.ReplaceAllString(s, "")
}

// RemoveFunctionDefinition drops the first function signature a model
// echoed back into its answer.
func RemoveFunctionDefinition(s string) string {
	loc := funcDefRe.FindStringIndex(s)
	if loc == nil {
		return s
	}
	return s[:loc[0]] + s[loc[1]:]
}

// ExtractDocstringContent pulls the text between the first pair of
// triple quotes, either style. Input without triple quotes passes
// through unchanged.
func ExtractDocstringContent(s string) string {
	double := doubleQuoteRe.FindStringSubmatchIndex(s)
	single := singleQuoteRe.FindStringSubmatchIndex(s)

	switch {
	case double == nil && single == nil:
		return s
	case single == nil || (double != nil && double[0] < single[0]):
		return s[double[2]:double[3]]
	default:
		return s[single[2]:single[3]]
	}
}
