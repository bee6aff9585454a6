package runner

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"docauto/internal/config"
	"docauto/internal/progress"
)

type fakeClient struct {
	mu       sync.Mutex
	calls    int
	prompts  []string
	response string
	failOn   string
}

func (c *fakeClient) Complete(ctx context.Context, prompt string) (string, error) {
	return c.CompleteWithSystem(ctx, "", prompt)
}

func (c *fakeClient) CompleteWithSystem(_ context.Context, _, user string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.prompts = append(c.prompts, user)
	if c.failOn != "" && strings.Contains(user, c.failOn) {
		return "", errors.New("model unavailable")
	}
	return c.response, nil
}

func (c *fakeClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func writeSample(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	preset, err := config.Preset("ollama")
	if err != nil {
		t.Fatalf("Preset: %v", err)
	}
	return *preset
}

func openTestStore(t *testing.T) *progress.Store {
	t.Helper()
	store, err := progress.Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRunner_WritesDocstrings(t *testing.T) {
	dir := t.TempDir()
	path := writeSample(t, dir, "sample.py",
		"def alpha():\n    return 1\n\n\ndef beta():\n    \"\"\"Existing.\"\"\"\n    return 2\n")

	store := openTestStore(t)
	client := &fakeClient{response: "Generated summary."}
	r := New(Options{
		Config: testConfig(t),
		Client: client,
		Store:  store,
	})

	summary, err := r.Run(context.Background(), []string{dir})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if summary.FilesTotal != 1 || summary.FilesUpdated != 1 || summary.FilesFailed != 0 {
		t.Fatalf("summary = %+v, want 1 total 1 updated 0 failed", summary)
	}
	if summary.UnitsDocumented != 1 || summary.UnitsFailed != 0 {
		t.Fatalf("summary units = %+v, want 1 documented 0 failed", summary)
	}
	if got := client.callCount(); got != 1 {
		t.Fatalf("client calls = %d, want 1 (documented unit must not regenerate)", got)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	want := "def alpha():\n    \"\"\"Generated summary.\"\"\"\n    return 1\n\n\ndef beta():\n    \"\"\"Existing.\"\"\"\n    return 2\n"
	if diff := cmp.Diff(want, string(got)); diff != "" {
		t.Errorf("file content mismatch (-want +got):\n%s", diff)
	}

	run, err := store.GetRun(context.Background(), summary.RunID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Status != progress.RunStatusCompleted {
		t.Errorf("run status = %s, want completed", run.Status)
	}
	if run.FilesTotal != 1 || run.FilesUpdated != 1 || run.FilesFailed != 0 {
		t.Errorf("run counters = %+v, want 1/1/0", run)
	}
	if run.Provider != "ollama" || run.Model != "phi4" {
		t.Errorf("run attribution = %s/%s, want ollama/phi4", run.Provider, run.Model)
	}

	results, err := store.ListFileResults(context.Background(), summary.RunID)
	if err != nil {
		t.Fatalf("ListFileResults: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("file results = %d, want 1", len(results))
	}
	if results[0].Status != progress.FileStatusProcessed {
		t.Errorf("file status = %s, want processed", results[0].Status)
	}
	if results[0].UnitsTotal != 2 || results[0].UnitsDocumented != 1 {
		t.Errorf("file units = %d/%d, want 2/1", results[0].UnitsTotal, results[0].UnitsDocumented)
	}
}

func TestRunner_DryRunLeavesFileUntouched(t *testing.T) {
	dir := t.TempDir()
	original := "def alpha():\n    return 1\n"
	path := writeSample(t, dir, "sample.py", original)

	var buf bytes.Buffer
	client := &fakeClient{response: "Generated summary."}
	r := New(Options{
		Config: testConfig(t),
		Client: client,
		DryRun: true,
		Stdout: &buf,
	})

	summary, err := r.Run(context.Background(), []string{path})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !summary.DryRun || summary.FilesUpdated != 1 {
		t.Fatalf("summary = %+v, want dry-run with 1 updated", summary)
	}
	if got := summary.String(); got != "processed 1 files (1 updated) [dry-run]" {
		t.Errorf("summary string = %q", got)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(got) != original {
		t.Errorf("dry run modified the file:\n%s", got)
	}

	out := buf.String()
	if !strings.Contains(out, "@@ -1,2 +1,3 @@") {
		t.Errorf("diff output missing hunk header:\n%s", out)
	}
	if !strings.Contains(out, `+     """Generated summary."""`) {
		t.Errorf("diff output missing added line:\n%s", out)
	}
}

func TestRunner_UnitFailureMarksFileFailed(t *testing.T) {
	dir := t.TempDir()
	path := writeSample(t, dir, "sample.py",
		"def alpha():\n    return 1\n\n\ndef gamma():\n    return 2\n")

	store := openTestStore(t)
	client := &fakeClient{response: "Generated summary.", failOn: "gamma"}
	r := New(Options{
		Config: testConfig(t),
		Client: client,
		Store:  store,
	})

	summary, err := r.Run(context.Background(), []string{dir})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if summary.FilesFailed != 1 || summary.FilesUpdated != 1 {
		t.Fatalf("summary = %+v, want 1 failed 1 updated", summary)
	}
	if summary.UnitsDocumented != 1 || summary.UnitsFailed != 1 {
		t.Fatalf("summary units = %+v, want 1 documented 1 failed", summary)
	}

	// Successful units are still written.
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	want := "def alpha():\n    \"\"\"Generated summary.\"\"\"\n    return 1\n\n\ndef gamma():\n    return 2\n"
	if diff := cmp.Diff(want, string(got)); diff != "" {
		t.Errorf("file content mismatch (-want +got):\n%s", diff)
	}

	run, err := store.GetRun(context.Background(), summary.RunID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Status != progress.RunStatusFailed {
		t.Errorf("run status = %s, want failed", run.Status)
	}

	results, err := store.ListFileResults(context.Background(), summary.RunID)
	if err != nil {
		t.Fatalf("ListFileResults: %v", err)
	}
	if len(results) != 1 || results[0].Status != progress.FileStatusFailed {
		t.Fatalf("file results = %+v, want one failed", results)
	}
	if !strings.Contains(results[0].Error, "gamma") || !strings.Contains(results[0].Error, "model unavailable") {
		t.Errorf("file error = %q, want unit name and cause", results[0].Error)
	}
}

func TestRunner_IgnoredAndDocumentedUnitsSkipped(t *testing.T) {
	dir := t.TempDir()
	original := "def alpha():\n    return 1\n\n\ndef beta():\n    \"\"\"Existing.\"\"\"\n    return 2\n"
	path := writeSample(t, dir, "sample.py", original)

	cfg := testConfig(t)
	cfg.Generation.IgnorePatterns = []string{"alpha"}

	client := &fakeClient{response: "Generated summary."}
	r := New(Options{Config: cfg, Client: client})

	summary, err := r.Run(context.Background(), []string{dir})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := client.callCount(); got != 0 {
		t.Fatalf("client calls = %d, want 0", got)
	}
	if summary.FilesUpdated != 0 || summary.FilesFailed != 0 {
		t.Fatalf("summary = %+v, want nothing updated", summary)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(got) != original {
		t.Errorf("file modified despite no candidates:\n%s", got)
	}
}

func TestRunner_MethodContextNamesClass(t *testing.T) {
	dir := t.TempDir()
	path := writeSample(t, dir, "calc.py",
		"class Calc:\n    \"\"\"Docs.\"\"\"\n\n    def add(self, x):\n        return x\n")

	client := &fakeClient{response: "Generated summary."}
	r := New(Options{Config: testConfig(t), Client: client})

	if _, err := r.Run(context.Background(), []string{dir}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := client.callCount(); got != 1 {
		t.Fatalf("client calls = %d, want 1", got)
	}
	if !strings.Contains(client.prompts[0], "Additional context: Class: Calc") {
		t.Errorf("prompt missing class context:\n%s", client.prompts[0])
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	want := "class Calc:\n    \"\"\"Docs.\"\"\"\n\n    def add(self, x):\n        \"\"\"Generated summary.\"\"\"\n        return x\n"
	if diff := cmp.Diff(want, string(got)); diff != "" {
		t.Errorf("file content mismatch (-want +got):\n%s", diff)
	}
}

func TestRunner_CancelledBeforeStart(t *testing.T) {
	dir := t.TempDir()
	writeSample(t, dir, "a.py", "def fa():\n    return 1\n")
	writeSample(t, dir, "b.py", "def fb():\n    return 2\n")

	store := openTestStore(t)
	client := &fakeClient{response: "Generated summary."}

	var mu sync.Mutex
	var events []Event
	r := New(Options{
		Config: testConfig(t),
		Client: client,
		Store:  store,
		OnEvent: func(e Event) {
			mu.Lock()
			events = append(events, e)
			mu.Unlock()
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := r.Run(ctx, []string{dir})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if summary.FilesSkipped != 2 || summary.FilesUpdated != 0 {
		t.Fatalf("summary = %+v, want 2 skipped", summary)
	}
	if got := client.callCount(); got != 0 {
		t.Fatalf("client calls = %d, want 0", got)
	}

	run, err := store.GetRun(context.Background(), summary.RunID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Status != progress.RunStatusCancelled {
		t.Errorf("run status = %s, want cancelled", run.Status)
	}

	mu.Lock()
	defer mu.Unlock()
	for _, e := range events {
		if e.Type == EventFileStarted {
			t.Errorf("file started after cancellation: %s", e.Path)
		}
	}
	if len(events) == 0 || events[0].Type != EventRunStarted || events[0].Summary.FilesTotal != 2 {
		t.Errorf("missing run started event with totals, got %+v", events)
	}
	if events[len(events)-1].Type != EventRunFinished {
		t.Errorf("missing run finished event, got %d events", len(events))
	}
}

func TestRunner_ConcurrentFiles(t *testing.T) {
	dir := t.TempDir()
	names := []string{"a.py", "b.py", "c.py"}
	for _, name := range names {
		fn := strings.TrimSuffix(name, ".py")
		writeSample(t, dir, name, "def f"+fn+"():\n    pass\n")
	}

	store := openTestStore(t)
	client := &fakeClient{response: "Generated summary."}
	r := New(Options{
		Config:      testConfig(t),
		Client:      client,
		Store:       store,
		Concurrency: 3,
	})

	summary, err := r.Run(context.Background(), []string{dir})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if summary.FilesTotal != 3 || summary.FilesUpdated != 3 || summary.FilesFailed != 0 {
		t.Fatalf("summary = %+v, want 3/3/0", summary)
	}

	for _, name := range names {
		fn := strings.TrimSuffix(name, ".py")
		got, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("read back %s: %v", name, err)
		}
		want := "def f" + fn + "():\n    \"\"\"Generated summary.\"\"\"\n    pass\n"
		if diff := cmp.Diff(want, string(got)); diff != "" {
			t.Errorf("%s content mismatch (-want +got):\n%s", name, diff)
		}
	}

	results, err := store.ListFileResults(context.Background(), summary.RunID)
	if err != nil {
		t.Fatalf("ListFileResults: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("file results = %d, want 3", len(results))
	}
}

func TestRunner_InvalidPath(t *testing.T) {
	client := &fakeClient{response: "Generated summary."}
	r := New(Options{Config: testConfig(t), Client: client})

	_, err := r.Run(context.Background(), []string{filepath.Join(t.TempDir(), "missing.py")})
	if err == nil || !strings.Contains(err.Error(), "invalid path provided") {
		t.Fatalf("error = %v, want invalid path", err)
	}
}

func TestSummary_String(t *testing.T) {
	s := Summary{FilesTotal: 3, FilesUpdated: 2}
	if got := s.String(); got != "processed 3 files (2 updated)" {
		t.Errorf("String() = %q", got)
	}
	s.DryRun = true
	if got := s.String(); got != "processed 3 files (2 updated) [dry-run]" {
		t.Errorf("String() = %q", got)
	}
}
