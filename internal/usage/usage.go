// Package usage aggregates token consumption across documentation runs and
// persists the counters under the workspace .docauto directory.
package usage

// Data is the root structure stored in persistence.
type Data struct {
	Version   string          `json:"version"`
	Aggregate AggregatedStats `json:"aggregate"`
}

// AggregatedStats holds counters broken down by provider and model.
type AggregatedStats struct {
	Total      TokenCounts            `json:"total"`
	ByProvider map[string]TokenCounts `json:"by_provider"`
	ByModel    map[string]TokenCounts `json:"by_model"`
}

// TokenCounts holds prompt/completion sums for one breakdown key.
type TokenCounts struct {
	Prompt     int64 `json:"prompt"`
	Completion int64 `json:"completion"`
	Total      int64 `json:"total"`
	Requests   int64 `json:"requests"`
}

// Add accumulates a single request's token counts.
func (tc *TokenCounts) Add(prompt, completion int) {
	tc.Prompt += int64(prompt)
	tc.Completion += int64(completion)
	tc.Total += int64(prompt + completion)
	tc.Requests++
}
