// Package scan resolves CLI path arguments into the concrete list of
// source files to process.
package scan

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DefaultIgnoreDirs are directory names never descended into.
var DefaultIgnoreDirs = []string{
	"__pycache__",
	"venv",
	".venv",
	"node_modules",
	".git",
	"build",
	"dist",
	".docauto",
}

// Scanner collects files matching a set of extensions.
type Scanner struct {
	Extensions []string
	IgnoreDirs []string
}

// NewScanner creates a Scanner with the default ignore list.
func NewScanner(extensions []string) *Scanner {
	return &Scanner{
		Extensions: extensions,
		IgnoreDirs: DefaultIgnoreDirs,
	}
}

// Resolve expands files and directories into a deduplicated file list.
// Directory walks are lexical, so results are deterministic. A path
// that does not exist is an error.
func (s *Scanner) Resolve(paths []string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)

	add := func(path string) {
		key := filepath.Clean(path)
		if !seen[key] {
			seen[key] = true
			files = append(files, key)
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("invalid path provided: %s", path)
		}

		if !info.IsDir() {
			if !s.MatchesExtension(path) {
				return nil, fmt.Errorf("unsupported file type: %s", path)
			}
			add(path)
			continue
		}

		root := path
		err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if p != root && s.SkipDir(d.Name()) {
					return filepath.SkipDir
				}
				return nil
			}
			if s.MatchesExtension(p) {
				add(p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", path, err)
		}
	}

	return files, nil
}

// MatchesExtension reports whether path carries one of the scanner's
// extensions.
func (s *Scanner) MatchesExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range s.Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// SkipDir reports whether a directory name is excluded from walks. Hidden
// directories are always skipped.
func (s *Scanner) SkipDir(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	for _, d := range s.IgnoreDirs {
		if name == d {
			return true
		}
	}
	return false
}
