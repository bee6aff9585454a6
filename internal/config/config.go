// Package config holds docauto configuration: API endpoint settings,
// generation settings, preset bundles, and the YAML config file loader.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// DefaultPromptLengthLimit caps the user prompt passed to the LLM, in characters.
const DefaultPromptLengthLimit = 10_000

// Config holds all docauto configuration.
type Config struct {
	API        APIConfig        `yaml:"api"`
	Generation GenerationConfig `yaml:"generation"`
}

// APIConfig configures the LLM endpoint.
type APIConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`

	// Provider forces a specific client implementation. Empty means
	// detect from the base URL. "gemini-native" selects the Gemini SDK
	// client instead of the OpenAI-compatibility endpoint.
	Provider string `yaml:"provider,omitempty"`
}

// GenerationConfig configures docstring generation.
type GenerationConfig struct {
	Model             string   `yaml:"model"`
	MaxContext        int      `yaml:"max_context"`
	Constraints       []string `yaml:"constraints,omitempty"`
	IgnorePatterns    []string `yaml:"ignore_patterns,omitempty"`
	PromptLengthLimit int      `yaml:"prompt_length_limit,omitempty"`
}

// DefaultConfig returns the provider-neutral defaults. API settings stay
// empty; a preset, config file, environment, or flags must fill them in.
func DefaultConfig() *Config {
	return &Config{
		Generation: GenerationConfig{
			MaxContext:        16384,
			Constraints:       DefaultConstraints(),
			IgnorePatterns:    DefaultIgnorePatterns(),
			PromptLengthLimit: DefaultPromptLengthLimit,
		},
	}
}

// ConfigFileNames lists the default config files, in search order.
var ConfigFileNames = []string{
	".docauto.yml",
	".docauto.yaml",
	"docauto.yml",
	"docauto.yaml",
}

// FindConfigFile locates the config file to use. An explicit path wins;
// otherwise the default names are searched in dir and each parent up to
// the filesystem root. Returns "" when nothing is found.
func FindConfigFile(explicit, dir string) string {
	if explicit != "" {
		return explicit
	}

	current, err := filepath.Abs(dir)
	if err != nil {
		current = dir
	}
	for {
		for _, name := range ConfigFileNames {
			candidate := filepath.Join(current, name)
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate
			}
		}
		parent := filepath.Dir(current)
		if parent == current {
			return ""
		}
		current = parent
	}
}

// Load reads configuration from a YAML file on top of the defaults.
// A missing file is not an error: presets and flags may fully configure
// a run. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("configuration file not found: %s", path)
			}
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("invalid YAML configuration: %w", err)
		}
	}

	cfg.ApplyEnv()

	return cfg, nil
}

// LoadFile reads a YAML configuration file into an otherwise empty
// Config. Unlike Load it layers nothing else on top, which makes the
// result safe to Merge into a defaults, preset, file, flags chain.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file not found: %s", path)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid YAML configuration: %w", err)
	}
	return cfg, nil
}

// Merge overlays non-zero fields of other onto c. Later sources win, so
// callers apply preset, then file, then flags.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}
	if other.API.BaseURL != "" {
		c.API.BaseURL = other.API.BaseURL
	}
	if other.API.APIKey != "" {
		c.API.APIKey = other.API.APIKey
	}
	if other.API.Provider != "" {
		c.API.Provider = other.API.Provider
	}
	if other.Generation.Model != "" {
		c.Generation.Model = other.Generation.Model
	}
	if other.Generation.MaxContext != 0 {
		c.Generation.MaxContext = other.Generation.MaxContext
	}
	if len(other.Generation.Constraints) > 0 {
		c.Generation.Constraints = other.Generation.Constraints
	}
	if len(other.Generation.IgnorePatterns) > 0 {
		c.Generation.IgnorePatterns = other.Generation.IgnorePatterns
	}
	if other.Generation.PromptLengthLimit != 0 {
		c.Generation.PromptLengthLimit = other.Generation.PromptLengthLimit
	}
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// ApplyEnv applies DOCAUTO_* environment variable overrides.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("DOCAUTO_BASE_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("DOCAUTO_API_KEY"); v != "" {
		c.API.APIKey = v
	}
	if v := os.Getenv("DOCAUTO_PROVIDER"); v != "" {
		c.API.Provider = v
	}
	if v := os.Getenv("DOCAUTO_MODEL"); v != "" {
		c.Generation.Model = v
	}
	if v := os.Getenv("DOCAUTO_MAX_CONTEXT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Generation.MaxContext = n
		}
	}
}

// ApplyProviderKeyFallback fills in the API key from the detected
// provider's conventional environment variable when nothing else
// supplied one.
func (c *Config) ApplyProviderKeyFallback(provider string) {
	if c.API.APIKey != "" {
		return
	}
	var env string
	switch provider {
	case "openai":
		env = "OPENAI_API_KEY"
	case "gemini", "gemini-native":
		env = "GEMINI_API_KEY"
	case "deepseek":
		env = "DEEPSEEK_API_KEY"
	default:
		return
	}
	if key := os.Getenv(env); key != "" {
		c.API.APIKey = key
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("base URL is required")
	}

	parsed, err := url.Parse(c.API.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("invalid base URL format: %s", c.API.BaseURL)
	}

	if c.API.APIKey == "" {
		return fmt.Errorf("API key required")
	}

	if c.Generation.Model == "" {
		return fmt.Errorf("AI model is required")
	}

	if len(c.Generation.Constraints) == 0 {
		return fmt.Errorf("at least one constraint is required")
	}

	if c.Generation.MaxContext < 1 {
		return fmt.Errorf("max_context must be positive")
	}

	return nil
}
