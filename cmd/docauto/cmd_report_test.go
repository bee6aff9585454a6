package main

import (
	"context"
	"strings"
	"testing"

	"docauto/internal/progress"
)

func TestBuildReport(t *testing.T) {
	ctx := context.Background()
	store, err := progress.Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	run, err := store.CreateRun(ctx, false, "ollama", "phi4")
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if err := store.RecordFile(ctx, progress.FileResult{
		RunID:           run.ID,
		Path:            "src/app.py",
		Status:          progress.FileStatusProcessed,
		UnitsTotal:      3,
		UnitsDocumented: 2,
	}); err != nil {
		t.Fatalf("RecordFile: %v", err)
	}
	if err := store.RecordFile(ctx, progress.FileResult{
		RunID:  run.ID,
		Path:   "src/broken.py",
		Status: progress.FileStatusFailed,
		Error:  "syntax error",
	}); err != nil {
		t.Fatalf("RecordFile: %v", err)
	}
	if err := store.CompleteRun(ctx, run.ID, progress.RunStatusFailed, 2, 1, 1, ""); err != nil {
		t.Fatalf("CompleteRun: %v", err)
	}

	runs, err := store.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}

	md := buildReport(ctx, store, runs)

	for _, want := range []string{
		"# docauto run history",
		"| started | status |",
		"ollama",
		"phi4",
		"## Run " + shortID(run.ID),
		"`src/app.py` processed, 2/3 units",
		"`src/broken.py` failed, 0/0 units (syntax error)",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("report missing %q:\n%s", want, md)
		}
	}
}

func TestShortID(t *testing.T) {
	if got := shortID("0123456789abcdef"); got != "01234567" {
		t.Errorf("shortID = %q", got)
	}
	if got := shortID("abc"); got != "abc" {
		t.Errorf("shortID = %q", got)
	}
}
