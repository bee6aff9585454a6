package llm

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// GeminiConfig configures the native Gemini SDK client.
type GeminiConfig struct {
	APIKey      string
	Model       string
	MaxContext  int
	Temperature float64

	Usage  UsageRecorder
	Logger *zap.Logger
}

// GeminiClient implements Client over the Gemini SDK. The gemini preset
// uses the OpenAI-compatibility endpoint; this client is selected only by
// an explicit gemini-native provider setting.
type GeminiClient struct {
	client      *genai.Client
	model       string
	maxContext  int
	temperature float32
	usage       UsageRecorder
	logger      *zap.Logger
}

// NewGeminiClient creates a native Gemini client.
func NewGeminiClient(ctx context.Context, config GeminiConfig) (*GeminiClient, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("API key not configured")
	}

	model := strings.TrimSpace(config.Model)
	if model == "" {
		model = "gemini-2.0-flash-exp"
	}

	temperature := config.Temperature
	if temperature == 0 {
		temperature = 0.3
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: config.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{
		client:      client,
		model:       model,
		maxContext:  config.MaxContext,
		temperature: float32(temperature),
		usage:       config.Usage,
		logger:      logger.Named("llm"),
	}, nil
}

// Complete sends a prompt and returns the completion.
func (c *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	return c.CompleteWithSystem(ctx, "", prompt)
}

// CompleteWithSystem sends a prompt with a system instruction.
func (c *GeminiClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(userPrompt, genai.RoleUser),
	}

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(c.temperature),
	}
	if strings.TrimSpace(systemPrompt) != "" {
		cfg.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}
	if c.maxContext > 0 {
		remaining := c.maxContext - EstimateTokens(systemPrompt+"\n"+userPrompt+"\n")
		if remaining > 0 {
			cfg.MaxOutputTokens = int32(remaining)
		}
	}

	result, err := c.client.Models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("Gemini generation failed: %w", err)
	}

	text := result.Text()
	if text == "" {
		return "", fmt.Errorf("no completion returned")
	}

	if c.usage != nil {
		if result.UsageMetadata != nil {
			c.usage.Record("gemini-native", c.model,
				int(result.UsageMetadata.PromptTokenCount),
				int(result.UsageMetadata.CandidatesTokenCount))
		} else {
			c.usage.Record("gemini-native", c.model,
				EstimateTokens(systemPrompt+userPrompt), EstimateTokens(text))
		}
	}

	return strings.TrimSpace(text), nil
}

// SetModel changes the model used for completions.
func (c *GeminiClient) SetModel(model string) {
	c.model = model
}

// GetModel returns the current model.
func (c *GeminiClient) GetModel() string {
	return c.model
}
