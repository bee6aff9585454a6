package llm

import (
	"context"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"docauto/internal/config"
)

// Provider labels identify which API family a client talks to. They are
// used for usage attribution and for selecting the native Gemini SDK.
const (
	ProviderOllama       = "ollama"
	ProviderOpenAI       = "openai"
	ProviderGemini       = "gemini"
	ProviderDeepSeek     = "deepseek"
	ProviderGeminiNative = "gemini-native"
	ProviderCustom       = "custom"
)

// Options carries cross-cutting wiring for client construction.
type Options struct {
	Usage  UsageRecorder
	Logger *zap.Logger
}

// DetectProvider resolves the provider for a configuration. An explicit
// provider setting wins; otherwise the base URL host decides.
func DetectProvider(cfg config.Config) string {
	if p := strings.ToLower(strings.TrimSpace(cfg.API.Provider)); p != "" {
		return p
	}
	return detectProviderFromURL(cfg.API.BaseURL)
}

func detectProviderFromURL(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil {
		return ProviderCustom
	}
	host := strings.ToLower(u.Hostname())
	switch {
	case host == "localhost" || host == "127.0.0.1":
		return ProviderOllama
	case host == "api.openai.com":
		return ProviderOpenAI
	case host == "api.deepseek.com":
		return ProviderDeepSeek
	case host == "generativelanguage.googleapis.com":
		return ProviderGemini
	default:
		return ProviderCustom
	}
}

// NewClient builds the right client for a resolved configuration. Every
// provider except gemini-native speaks the OpenAI-compatible chat API.
func NewClient(ctx context.Context, cfg config.Config, opts Options) (Client, error) {
	provider := DetectProvider(cfg)

	if provider == ProviderGeminiNative {
		return NewGeminiClient(ctx, GeminiConfig{
			APIKey:      cfg.API.APIKey,
			Model:       cfg.Generation.Model,
			MaxContext:  cfg.Generation.MaxContext,
			Temperature: 0.3,
			Usage:       opts.Usage,
			Logger:      opts.Logger,
		})
	}

	clientCfg := DefaultOpenAIConfig(cfg.API.APIKey)
	clientCfg.BaseURL = cfg.API.BaseURL
	clientCfg.Model = cfg.Generation.Model
	clientCfg.MaxContext = cfg.Generation.MaxContext
	clientCfg.Provider = provider
	clientCfg.Usage = opts.Usage
	clientCfg.Logger = opts.Logger
	return NewOpenAIClientWithConfig(clientCfg), nil
}
