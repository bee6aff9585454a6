// Package llm provides the LLM clients used for docstring generation:
// an OpenAI-compatible chat completions client covering the ollama,
// openai, deepseek, and gemini presets, and a native Gemini SDK client.
package llm

import "context"

// Client is the interface all LLM backends implement.
type Client interface {
	// Complete sends a prompt and returns the completion.
	Complete(ctx context.Context, prompt string) (string, error)
	// CompleteWithSystem sends a prompt with a system message.
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// UsageRecorder receives token counts for each completed request.
// Implemented by usage.Tracker; a nil recorder disables accounting.
type UsageRecorder interface {
	Record(provider, model string, promptTokens, completionTokens int)
}

// EstimateTokens approximates the token count of a text. Roughly four
// bytes per token holds for English prose and code across the supported
// backends; the reserve in the generation budget absorbs the error.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	n := len(text) / 4
	if n == 0 {
		n = 1
	}
	return n
}
