package diffview

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDiff_InsertedLine(t *testing.T) {
	oldContent := "def add(a, b):\n    return a + b\n"
	newContent := "def add(a, b):\n    \"\"\"Return the sum.\"\"\"\n    return a + b\n"

	got := Diff(oldContent, newContent)

	want := []Hunk{{
		OldStart: 1, OldCount: 2, NewStart: 1, NewCount: 3,
		Lines: []Line{
			{LineNum: 1, Content: "def add(a, b):", Type: LineContext},
			{LineNum: 2, Content: `    """Return the sum."""`, Type: LineAdded},
			{LineNum: 2, Content: "    return a + b", Type: LineContext},
		},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Diff mismatch (-want +got):\n%s", diff)
	}
}

func TestDiff_ReplacedLine(t *testing.T) {
	oldContent := "def f():\n    \"\"\"Old.\"\"\"\n    return 1\n"
	newContent := "def f():\n    \"\"\"New text.\"\"\"\n    return 1\n"

	got := Diff(oldContent, newContent)

	want := []Hunk{{
		OldStart: 1, OldCount: 3, NewStart: 1, NewCount: 3,
		Lines: []Line{
			{LineNum: 1, Content: "def f():", Type: LineContext},
			{LineNum: 2, Content: `    """Old."""`, Type: LineRemoved},
			{LineNum: 2, Content: `    """New text."""`, Type: LineAdded},
			{LineNum: 3, Content: "    return 1", Type: LineContext},
		},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Diff mismatch (-want +got):\n%s", diff)
	}
}

func TestDiff_IdenticalContent(t *testing.T) {
	content := "def f():\n    return 1\n"
	if hunks := Diff(content, content); len(hunks) != 0 {
		t.Fatalf("expected no hunks for identical content, got %d", len(hunks))
	}
}

func TestDiff_SeparatedChangesSplitIntoHunks(t *testing.T) {
	oldContent := "def a():\n    return 1\n\n\nx = 1\ny = 2\nz = 3\nw = 4\nq = 5\n\n\ndef b():\n    return 2\n"
	newContent := "def a():\n    \"\"\"First.\"\"\"\n    return 1\n\n\nx = 1\ny = 2\nz = 3\nw = 4\nq = 5\n\n\ndef b():\n    \"\"\"Second.\"\"\"\n    return 2\n"

	got := Diff(oldContent, newContent)

	want := []Hunk{
		{
			OldStart: 1, OldCount: 4, NewStart: 1, NewCount: 5,
			Lines: []Line{
				{LineNum: 1, Content: "def a():", Type: LineContext},
				{LineNum: 2, Content: `    """First."""`, Type: LineAdded},
				{LineNum: 2, Content: "    return 1", Type: LineContext},
				{LineNum: 3, Content: "", Type: LineContext},
				{LineNum: 4, Content: "", Type: LineContext},
			},
		},
		{
			OldStart: 10, OldCount: 4, NewStart: 11, NewCount: 5,
			Lines: []Line{
				{LineNum: 10, Content: "", Type: LineContext},
				{LineNum: 11, Content: "", Type: LineContext},
				{LineNum: 12, Content: "def b():", Type: LineContext},
				{LineNum: 14, Content: `    """Second."""`, Type: LineAdded},
				{LineNum: 13, Content: "    return 2", Type: LineContext},
			},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Diff mismatch (-want +got):\n%s", diff)
	}
}

func TestStats(t *testing.T) {
	hunks := Diff(
		"def f():\n    \"\"\"Old.\"\"\"\n    return 1\n",
		"def f():\n    \"\"\"New text.\"\"\"\n    return 1\n",
	)
	added, removed := Stats(hunks)
	if added != 1 || removed != 1 {
		t.Fatalf("Stats = (%d, %d), want (1, 1)", added, removed)
	}
}
