package scan

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("def f():\n    pass\n"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func setupTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.py"))
	writeFile(t, filepath.Join(root, "pkg", "b.py"))
	writeFile(t, filepath.Join(root, "pkg", "__pycache__", "b.cpython-312.py"))
	writeFile(t, filepath.Join(root, "venv", "lib.py"))
	writeFile(t, filepath.Join(root, ".hidden", "c.py"))
	writeFile(t, filepath.Join(root, "notes.txt"))
	return root
}

func TestResolve_Directory(t *testing.T) {
	root := setupTree(t)
	s := NewScanner([]string{".py", ".pyw"})

	files, err := s.Resolve([]string{root})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	want := []string{
		filepath.Join(root, "a.py"),
		filepath.Join(root, "pkg", "b.py"),
	}
	if len(files) != len(want) {
		t.Fatalf("Expected %v, got %v", want, files)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("File %d: expected %s, got %s", i, want[i], files[i])
		}
	}
}

func TestResolve_ExplicitFile(t *testing.T) {
	root := setupTree(t)
	s := NewScanner([]string{".py"})

	files, err := s.Resolve([]string{filepath.Join(root, "a.py")})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("Expected 1 file, got %d", len(files))
	}
}

func TestResolve_UnsupportedExplicitFile(t *testing.T) {
	root := setupTree(t)
	s := NewScanner([]string{".py"})

	_, err := s.Resolve([]string{filepath.Join(root, "notes.txt")})
	if err == nil || !strings.Contains(err.Error(), "unsupported file type") {
		t.Errorf("Expected unsupported file error, got %v", err)
	}
}

func TestResolve_MissingPath(t *testing.T) {
	s := NewScanner([]string{".py"})
	_, err := s.Resolve([]string{"/does/not/exist.py"})
	if err == nil || !strings.Contains(err.Error(), "invalid path provided") {
		t.Errorf("Expected invalid path error, got %v", err)
	}
}

func TestResolve_Deduplicates(t *testing.T) {
	root := setupTree(t)
	s := NewScanner([]string{".py"})

	files, err := s.Resolve([]string{filepath.Join(root, "a.py"), root})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	count := 0
	for _, f := range files {
		if f == filepath.Join(root, "a.py") {
			count++
		}
	}
	if count != 1 {
		t.Errorf("Expected a.py once, got %d times", count)
	}
}

func TestResolve_HiddenRootAllowed(t *testing.T) {
	root := setupTree(t)
	hidden := filepath.Join(root, ".hidden")
	s := NewScanner([]string{".py"})

	files, err := s.Resolve([]string{hidden})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(files) != 1 {
		t.Errorf("Explicitly named hidden dir should be walked, got %v", files)
	}
}
