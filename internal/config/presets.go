package config

import "fmt"

// PresetNames lists the built-in presets, in CLI flag order.
var PresetNames = []string{"ollama", "openai", "gemini", "deepseek"}

// presets maps a preset name to its provider defaults. The gemini preset
// deliberately targets the OpenAI-compatibility endpoint so the same chat
// completions client serves all four providers.
var presets = map[string]Config{
	"ollama": {
		API: APIConfig{
			BaseURL: "http://localhost:11434/v1",
			APIKey:  "ollama",
		},
		Generation: GenerationConfig{
			Model:      "phi4",
			MaxContext: 16384,
		},
	},
	"openai": {
		API: APIConfig{
			BaseURL: "https://api.openai.com/v1",
		},
		Generation: GenerationConfig{
			Model:      "gpt-4o-mini",
			MaxContext: 16384,
		},
	},
	"gemini": {
		API: APIConfig{
			BaseURL: "https://generativelanguage.googleapis.com/v1beta/openai/",
		},
		Generation: GenerationConfig{
			// Free tier model with a large context window.
			Model:      "gemini-2.0-flash-exp",
			MaxContext: 131_072,
		},
	},
	"deepseek": {
		API: APIConfig{
			BaseURL: "https://api.deepseek.com/v1",
		},
		Generation: GenerationConfig{
			Model:      "deepseek-chat",
			MaxContext: 65_536,
		},
	},
}

// Preset returns the configuration bundle for a named preset.
func Preset(name string) (*Config, error) {
	p, ok := presets[name]
	if !ok {
		return nil, fmt.Errorf("unknown preset: %s", name)
	}
	cfg := p
	cfg.Generation.Constraints = append([]string(nil), p.Generation.Constraints...)
	return &cfg, nil
}
