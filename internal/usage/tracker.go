package usage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const saveDebounce = 5 * time.Second

// Tracker manages token usage recording and persistence.
type Tracker struct {
	mu       sync.Mutex
	data     Data
	filePath string
	dirty    bool
}

// NewTracker creates a usage tracker persisting to .docauto/usage.json under
// the given workspace root. Existing counters are loaded when present; a
// corrupt file starts the counters fresh.
func NewTracker(workspacePath string) (*Tracker, error) {
	stateDir := filepath.Join(workspacePath, ".docauto")
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create .docauto dir: %w", err)
	}

	t := &Tracker{
		filePath: filepath.Join(stateDir, "usage.json"),
		data:     freshData(),
	}

	if err := t.Load(); err != nil {
		t.data = freshData()
	}

	return t, nil
}

func freshData() Data {
	return Data{
		Version: "1.0",
		Aggregate: AggregatedStats{
			ByProvider: make(map[string]TokenCounts),
			ByModel:    make(map[string]TokenCounts),
		},
	}
}

// Load reads the usage data from disk.
func (t *Tracker) Load() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	raw, err := os.ReadFile(t.filePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := json.Unmarshal(raw, &t.data); err != nil {
		return err
	}

	// Ensure maps are initialized if file was empty/partial
	if t.data.Aggregate.ByProvider == nil {
		t.data.Aggregate.ByProvider = make(map[string]TokenCounts)
	}
	if t.data.Aggregate.ByModel == nil {
		t.data.Aggregate.ByModel = make(map[string]TokenCounts)
	}

	return nil
}

// Save writes the usage data to disk.
func (t *Tracker) Save() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.saveLocked()
}

func (t *Tracker) saveLocked() error {
	data, err := json.MarshalIndent(t.data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(t.filePath, data, 0644)
}

// Record adds a single request's token counts under the provider and model
// keys. Writes are debounced to disk; call Save before exit to flush.
func (t *Tracker) Record(provider, model string, promptTokens, completionTokens int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.data.Aggregate.Total.Add(promptTokens, completionTokens)
	addToMap(t.data.Aggregate.ByProvider, provider, promptTokens, completionTokens)
	addToMap(t.data.Aggregate.ByModel, model, promptTokens, completionTokens)

	// Debounced auto-save
	if !t.dirty {
		t.dirty = true
		time.AfterFunc(saveDebounce, func() {
			t.Save()
			t.mu.Lock()
			t.dirty = false
			t.mu.Unlock()
		})
	}
}

// Stats returns a copy of the aggregated stats.
func (t *Tracker) Stats() AggregatedStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	stats := t.data.Aggregate
	stats.ByProvider = copyTokenCountsMap(stats.ByProvider)
	stats.ByModel = copyTokenCountsMap(stats.ByModel)
	return stats
}

func copyTokenCountsMap(src map[string]TokenCounts) map[string]TokenCounts {
	if src == nil {
		return nil
	}
	dst := make(map[string]TokenCounts, len(src))
	for key, counts := range src {
		dst[key] = counts
	}
	return dst
}

func addToMap(m map[string]TokenCounts, key string, prompt, completion int) {
	entry := m[key]
	entry.Add(prompt, completion)
	m[key] = entry
}
