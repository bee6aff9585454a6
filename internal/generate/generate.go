// Package generate builds docstring prompts and turns LLM completions
// into clean docstring text.
package generate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"docauto/internal/config"
	"docauto/internal/llm"
	"docauto/internal/sanitize"
)

// minResponseContext is the token reserve kept for the model's answer
// when checking the prompt against the context window.
const minResponseContext = 5000

// ErrPromptTooLong is returned when the prompt cannot fit in the
// configured context window alongside the response reserve.
var ErrPromptTooLong = errors.New("prompt exceeds max_context limit")

// ErrEmptySource is returned for units with no source text.
var ErrEmptySource = errors.New("source cannot be empty")

const systemPromptHeader = `You are a professional documentation writer.

You will be provided with function or class source code to document.
When the user provides a format, stick to it.

Respond only within the constraints below.

System constraints:
1. Keep it short, precise and accurate.
2. Do not ask questions.
3. Do not make assumptions; use only the facts you are given.
4. Do not include the docstring quotes in the response.
5. Respond in Sphinx docstring format when no other format is given.

User constraints:
`

// Generator produces docstring text for documentable units.
type Generator struct {
	client llm.Client
	cfg    config.GenerationConfig
	logger *zap.Logger
}

// New creates a Generator.
func New(client llm.Client, cfg config.GenerationConfig, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		client: client,
		cfg:    cfg,
		logger: logger.Named("generate"),
	}
}

// Generate produces a sanitized docstring for the given source. The
// additional context, when present, names the enclosing class.
func (g *Generator) Generate(ctx context.Context, source, additionalContext string) (string, error) {
	if strings.TrimSpace(source) == "" {
		return "", ErrEmptySource
	}

	prompt := g.buildPrompt(source, additionalContext)
	systemPrompt := g.systemPrompt()

	if g.cfg.MaxContext > 0 {
		tokens := llm.EstimateTokens(systemPrompt + "\n" + prompt + "\n")
		if tokens > g.cfg.MaxContext-minResponseContext {
			return "", ErrPromptTooLong
		}
	}

	response, err := g.client.CompleteWithSystem(ctx, systemPrompt, prompt)
	if err != nil {
		return "", fmt.Errorf("generation failed: %w", err)
	}

	docstring, err := sanitize.Sanitize(response)
	if err != nil {
		return "", fmt.Errorf("generation failed: %w", err)
	}
	return docstring, nil
}

// buildPrompt constructs the compact user prompt and trims it to the
// configured length limit.
func (g *Generator) buildPrompt(source, additionalContext string) string {
	lines := []string{"```python", strings.TrimSpace(source), "```"}
	if additionalContext != "" {
		lines = append(lines, "Additional context: "+additionalContext)
	}
	prompt := strings.Join(lines, "\n")

	limit := g.cfg.PromptLengthLimit
	if limit <= 0 {
		limit = config.DefaultPromptLengthLimit
	}
	runes := []rune(prompt)
	if len(runes) <= limit {
		return prompt
	}

	trimmed := string(runes[:limit])
	g.logger.Warn("prompt trimmed to fit context window",
		zap.Int("from_chars", len(runes)),
		zap.Int("to_chars", limit))
	return trimmed
}

func (g *Generator) systemPrompt() string {
	return systemPromptHeader + strings.Join(g.cfg.Constraints, "\n")
}
