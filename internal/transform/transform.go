// Package transform splices generated docstrings into source files.
// All edits are line-based and leave surrounding code byte-identical.
package transform

import (
	"fmt"
	"sort"
	"strings"

	"docauto/internal/parser"
)

// Edit pairs a documentable unit with its generated docstring.
type Edit struct {
	Unit      parser.Unit
	Docstring string
}

// NeedsDocstring reports whether a unit should receive a docstring:
// always when it has none, and only with overwrite when it has one.
func NeedsDocstring(u parser.Unit, overwrite bool) bool {
	if !u.HasDocstring() {
		return true
	}
	return overwrite
}

// Ignored reports whether the unit's name matches an ignore pattern.
// Matching is by exact name, which covers the dunder defaults.
func Ignored(u parser.Unit, patterns []string) bool {
	for _, p := range patterns {
		if u.Name == p {
			return true
		}
	}
	return false
}

// FormatDocstring renders docstring content as source lines. The first
// content line follows the opening quotes; continuation lines are
// indented four spaces past the body indent; the closing quotes sit at
// body indent. Single-line content collapses onto one line.
func FormatDocstring(text, bodyIndent, quote string) []string {
	lines := strings.Split(text, "\n")
	if len(lines) == 1 {
		return []string{bodyIndent + quote + text + quote}
	}

	out := make([]string, 0, len(lines)+1)
	out = append(out, bodyIndent+quote+lines[0])
	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			out = append(out, "")
			continue
		}
		out = append(out, bodyIndent+"    "+line)
	}
	out = append(out, bodyIndent+quote)
	return out
}

// InsertDocstring splices a docstring into the file's lines for one
// unit: replacing the existing docstring when overwriting, otherwise
// inserting as the first body statement. One-liner defs are rewritten
// into block form.
func InsertDocstring(lines []string, u parser.Unit, text string, overwrite bool) ([]string, error) {
	if u.HasDocstring() && !overwrite {
		return lines, nil
	}

	quote := `"""`
	if overwrite && u.HasDocstring() {
		quote = u.QuoteStyle
	}
	formatted := FormatDocstring(text, u.BodyIndent, quote)

	if u.HasDocstring() {
		start, end := u.DocstringStart-1, u.DocstringEnd
		if start < 0 || end > len(lines) || start >= end {
			return nil, fmt.Errorf("docstring span %d-%d out of range for %s", u.DocstringStart, u.DocstringEnd, u.QualifiedName)
		}
		return spliceLines(lines, start, end, formatted), nil
	}

	if u.DefEndLine < 1 || u.DefEndLine > len(lines) {
		return nil, fmt.Errorf("definition line %d out of range for %s", u.DefEndLine, u.QualifiedName)
	}

	if u.BodyStartLine == u.DefEndLine && u.BodyStartCol > 0 {
		// One-liner like "def f(): pass": split the header from the
		// inline body and indent both the docstring and the body.
		idx := u.DefEndLine - 1
		line := lines[idx]
		if u.BodyStartCol > len(line) {
			return nil, fmt.Errorf("body column %d out of range for %s", u.BodyStartCol, u.QualifiedName)
		}
		header := strings.TrimRight(line[:u.BodyStartCol], " \t")
		rest := line[u.BodyStartCol:]

		repl := make([]string, 0, len(formatted)+2)
		repl = append(repl, header)
		repl = append(repl, formatted...)
		repl = append(repl, u.BodyIndent+rest)
		return spliceLines(lines, idx, idx+1, repl), nil
	}

	return spliceLines(lines, u.DefEndLine, u.DefEndLine, formatted), nil
}

// Apply splices all edits into the content, bottom-up so line numbers
// recorded at parse time stay valid. It returns the new content and
// whether anything changed.
func Apply(content string, edits []Edit, overwrite bool) (string, bool) {
	if len(edits) == 0 {
		return content, false
	}

	sorted := make([]Edit, len(edits))
	copy(sorted, edits)
	sort.SliceStable(sorted, func(i, j int) bool {
		return anchorLine(sorted[i].Unit, overwrite) > anchorLine(sorted[j].Unit, overwrite)
	})

	lines := strings.Split(content, "\n")
	for _, e := range sorted {
		updated, err := InsertDocstring(lines, e.Unit, e.Docstring, overwrite)
		if err != nil {
			continue
		}
		lines = updated
	}

	result := strings.Join(lines, "\n")
	return result, result != content
}

func anchorLine(u parser.Unit, overwrite bool) int {
	if u.HasDocstring() && overwrite {
		return u.DocstringStart
	}
	return u.DefEndLine
}

func spliceLines(lines []string, start, end int, repl []string) []string {
	out := make([]string, 0, len(lines)-(end-start)+len(repl))
	out = append(out, lines[:start]...)
	out = append(out, repl...)
	out = append(out, lines[end:]...)
	return out
}
