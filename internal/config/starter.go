package config

import (
	"fmt"
	"os"
)

// starterConfig is the commented template written by `docauto init`.
const starterConfig = `# docauto configuration.
# Values here are overridden by DOCAUTO_* environment variables and
# command-line flags. Delete the sections you don't need; presets
# (--ollama, --openai, --gemini, --deepseek) fill in the rest.

api:
  base_url: http://localhost:11434/v1
  api_key: ollama
  # provider: gemini-native   # force the Gemini SDK client

generation:
  model: phi4
  max_context: 16384
  # constraints:
  #   - "Respond in Google docstring format"
  # ignore_patterns:
  #   - "__init__"
`

// WriteStarter writes a starter config file. It refuses to overwrite an
// existing file.
func WriteStarter(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	return os.WriteFile(path, []byte(starterConfig), 0644)
}
