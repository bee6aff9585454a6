package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// OpenAIConfig configures the OpenAI-compatible client.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxContext  int
	Temperature float64
	Timeout     time.Duration

	// MinRequestInterval spaces out consecutive requests.
	MinRequestInterval time.Duration

	// Provider labels usage records; detected from the base URL when empty.
	Provider string

	Usage  UsageRecorder
	Logger *zap.Logger
}

// DefaultOpenAIConfig returns sensible defaults for the OpenAI API.
func DefaultOpenAIConfig(apiKey string) OpenAIConfig {
	return OpenAIConfig{
		APIKey:             apiKey,
		BaseURL:            "https://api.openai.com/v1",
		Model:              "gpt-4o-mini",
		MaxContext:         16384,
		Temperature:        0.3,
		Timeout:            120 * time.Second,
		MinRequestInterval: 100 * time.Millisecond,
	}
}

// OpenAIClient implements Client for any OpenAI-compatible chat
// completions endpoint (OpenAI, Ollama, DeepSeek, Gemini's
// compatibility layer).
type OpenAIClient struct {
	apiKey      string
	baseURL     string
	model       string
	maxContext  int
	temperature float64
	minInterval time.Duration
	provider    string
	usage       UsageRecorder
	logger      *zap.Logger
	httpClient  *http.Client
	backoffBase time.Duration
	mu          sync.Mutex
	lastRequest time.Time
}

// NewOpenAIClient creates a client with default settings.
func NewOpenAIClient(apiKey string) *OpenAIClient {
	return NewOpenAIClientWithConfig(DefaultOpenAIConfig(apiKey))
}

// NewOpenAIClientWithConfig creates a client with custom settings.
func NewOpenAIClientWithConfig(config OpenAIConfig) *OpenAIClient {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	temperature := config.Temperature
	if temperature == 0 {
		temperature = 0.3
	}
	minInterval := config.MinRequestInterval
	if minInterval <= 0 {
		minInterval = 100 * time.Millisecond
	}
	provider := config.Provider
	if provider == "" {
		provider = detectProviderFromURL(config.BaseURL)
	}

	return &OpenAIClient{
		apiKey:      config.APIKey,
		baseURL:     strings.TrimRight(config.BaseURL, "/"),
		model:       config.Model,
		maxContext:  config.MaxContext,
		temperature: temperature,
		minInterval: minInterval,
		provider:    provider,
		usage:       config.Usage,
		logger:      logger.Named("llm"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		backoffBase: time.Second,
	}
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model          string          `json:"model"`
	Messages       []openAIMessage `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat json.RawMessage `json:"response_format,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error"`
}

// docstringResponseFormat asks the backend for the structured docstring
// payload. Backends that reject the parameter get a plain retry; the
// sanitizer accepts both shapes.
var docstringResponseFormat = json.RawMessage(`{
  "type": "json_schema",
  "json_schema": {
    "name": "docstring_response",
    "schema": {
      "type": "object",
      "properties": {
        "responses": {
          "type": "array",
          "items": {
            "type": "object",
            "properties": {
              "content": {"type": "string"},
              "format": {"type": "string"}
            },
            "required": ["content"]
          }
        }
      },
      "required": ["responses"]
    }
  }
}`)

// Complete sends a prompt and returns the completion.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	return c.CompleteWithSystem(ctx, "", prompt)
}

// CompleteWithSystem sends a prompt with a system message.
func (c *OpenAIClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	// Auto-apply timeout if the context has no deadline.
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.httpClient.Timeout)
		defer cancel()
	}

	if c.apiKey == "" {
		return "", fmt.Errorf("API key not configured")
	}

	startTime := time.Now()
	c.logger.Debug("chat completion request",
		zap.String("model", c.model),
		zap.Int("system_len", len(systemPrompt)),
		zap.Int("user_len", len(userPrompt)))

	// Rate limiting
	c.mu.Lock()
	elapsed := time.Since(c.lastRequest)
	if elapsed < c.minInterval {
		time.Sleep(c.minInterval - elapsed)
	}
	c.lastRequest = time.Now()
	c.mu.Unlock()

	var messages []openAIMessage
	if strings.TrimSpace(systemPrompt) != "" {
		messages = append(messages, openAIMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, openAIMessage{Role: "user", Content: userPrompt})

	reqBody := openAIRequest{
		Model:          c.model,
		Messages:       messages,
		Temperature:    c.temperature,
		ResponseFormat: docstringResponseFormat,
	}
	if c.maxContext > 0 {
		remaining := c.maxContext - EstimateTokens(systemPrompt+"\n"+userPrompt+"\n")
		if remaining > 0 {
			reqBody.MaxTokens = remaining
		}
	}

	// Retry loop for rate limits and transient server errors.
	const maxRetries = 3
	var lastErr error

	for i := 0; i <= maxRetries; i++ {
		if i > 0 {
			select {
			case <-time.After(time.Duration(1<<uint(i-1)) * c.backoffBase):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			return "", fmt.Errorf("failed to marshal request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewReader(jsonData))
		if err != nil {
			return "", fmt.Errorf("failed to create request: %w", err)
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limit exceeded (429)")
			c.logger.Warn("rate limited, backing off", zap.Int("attempt", i+1))
			continue
		}

		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("server error (%d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
			continue
		}

		if resp.StatusCode != http.StatusOK {
			// Some providers/models reject response_format; retry once without it.
			if reqBody.ResponseFormat != nil && resp.StatusCode == http.StatusBadRequest {
				bodyStr := string(body)
				if strings.Contains(bodyStr, "response_format") || strings.Contains(bodyStr, "json_schema") {
					reqBody.ResponseFormat = nil
					lastErr = fmt.Errorf("backend rejected structured output: %s", bodyStr)
					c.logger.Debug("retrying without response_format")
					continue
				}
			}
			return "", fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
		}

		var parsed openAIResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return "", fmt.Errorf("failed to parse response: %w", err)
		}

		if parsed.Error != nil {
			return "", fmt.Errorf("API error: %s", parsed.Error.Message)
		}

		if len(parsed.Choices) == 0 {
			return "", fmt.Errorf("no completion returned")
		}

		if c.usage != nil {
			if parsed.Usage != nil {
				c.usage.Record(c.provider, c.model, parsed.Usage.PromptTokens, parsed.Usage.CompletionTokens)
			} else {
				content := parsed.Choices[0].Message.Content
				c.usage.Record(c.provider, c.model, EstimateTokens(systemPrompt+userPrompt), EstimateTokens(content))
			}
		}

		response := strings.TrimSpace(parsed.Choices[0].Message.Content)
		c.logger.Debug("chat completion done",
			zap.Duration("elapsed", time.Since(startTime)),
			zap.Int("response_len", len(response)))
		return response, nil
	}

	return "", fmt.Errorf("max retries exceeded: %w", lastErr)
}

// SetModel changes the model used for completions.
func (c *OpenAIClient) SetModel(model string) {
	c.model = model
}

// GetModel returns the current model.
func (c *OpenAIClient) GetModel() string {
	return c.model
}
