// Package diffview computes line diffs between file revisions and renders
// them as unified-style hunks for dry-run previews.
package diffview

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// LineType classifies a single diff line.
type LineType int

const (
	LineContext LineType = iota // Unchanged context line
	LineAdded                   // Added line
	LineRemoved                 // Removed line
)

// Line is a single line within a hunk.
type Line struct {
	LineNum int
	Content string
	Type    LineType
}

// Hunk is a group of changed lines with surrounding context.
type Hunk struct {
	OldStart int
	OldCount int
	NewStart int
	NewCount int
	Lines    []Line
}

const contextLines = 3

// Diff computes the line-level difference between two revisions of a file,
// grouped into hunks with three lines of context. Identical revisions
// produce no hunks.
func Diff(oldContent, newContent string) []Hunk {
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0

	// Line-level reduction avoids newline boundary artifacts when
	// converting character diffs back to line ops.
	a, b, lineArray := dmp.DiffLinesToChars(oldContent, newContent)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCleanupSemantic(diffs)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	return groupIntoHunks(diffsToOperations(diffs), contextLines)
}

// Stats counts added and removed lines across hunks.
func Stats(hunks []Hunk) (added, removed int) {
	for _, hunk := range hunks {
		for _, line := range hunk.Lines {
			switch line.Type {
			case LineAdded:
				added++
			case LineRemoved:
				removed++
			}
		}
	}
	return added, removed
}

// operation represents a single line operation.
type operation struct {
	typ     LineType
	oldLine int
	newLine int
	content string
}

func diffsToOperations(diffs []diffmatchpatch.Diff) []operation {
	operations := make([]operation, 0)
	oldLine := 0
	newLine := 0

	for _, diff := range diffs {
		lines := strings.Split(diff.Text, "\n")

		if len(lines) == 1 && lines[0] == "" && diff.Type != diffmatchpatch.DiffEqual {
			continue
		}

		// Remove trailing empty line from split
		if len(lines) > 0 && lines[len(lines)-1] == "" {
			lines = lines[:len(lines)-1]
		}

		for _, line := range lines {
			switch diff.Type {
			case diffmatchpatch.DiffEqual:
				operations = append(operations, operation{
					typ:     LineContext,
					oldLine: oldLine,
					newLine: newLine,
					content: line,
				})
				oldLine++
				newLine++

			case diffmatchpatch.DiffDelete:
				operations = append(operations, operation{
					typ:     LineRemoved,
					oldLine: oldLine,
					newLine: -1,
					content: line,
				})
				oldLine++

			case diffmatchpatch.DiffInsert:
				operations = append(operations, operation{
					typ:     LineAdded,
					oldLine: -1,
					newLine: newLine,
					content: line,
				})
				newLine++
			}
		}
	}

	return operations
}

func groupIntoHunks(ops []operation, contextLines int) []Hunk {
	if len(ops) == 0 {
		return nil
	}

	hunks := make([]Hunk, 0)
	var currentHunk *Hunk
	lastChangeIdx := -1

	for i, op := range ops {
		isChange := op.typ != LineContext

		if isChange {
			if currentHunk == nil {
				currentHunk = &Hunk{
					Lines: make([]Line, 0),
				}

				// Leading context
				start := i - contextLines
				if start < 0 {
					start = 0
				}

				for j := start; j < i; j++ {
					if ops[j].typ == LineContext {
						currentHunk.Lines = append(currentHunk.Lines, Line{
							LineNum: ops[j].oldLine + 1,
							Content: ops[j].content,
							Type:    LineContext,
						})
					}
				}

				currentHunk.OldStart = ops[start].oldLine + 1
				currentHunk.NewStart = ops[start].newLine + 1
				if ops[start].oldLine < 0 {
					currentHunk.OldStart = 0
				}
				if ops[start].newLine < 0 {
					currentHunk.NewStart = 0
				}
			}
			lastChangeIdx = i
		}

		if currentHunk != nil {
			lineNum := op.oldLine + 1
			if op.typ == LineAdded {
				lineNum = op.newLine + 1
			}
			currentHunk.Lines = append(currentHunk.Lines, Line{
				LineNum: lineNum,
				Content: op.content,
				Type:    op.typ,
			})

			// Close the hunk once enough trailing context has accumulated.
			if op.typ == LineContext && i-lastChangeIdx > contextLines {
				trimTo := len(currentHunk.Lines) - (i - lastChangeIdx - contextLines)
				if trimTo > 0 && trimTo < len(currentHunk.Lines) {
					currentHunk.Lines = currentHunk.Lines[:trimTo]
				}

				computeHunkCounts(currentHunk)
				hunks = append(hunks, *currentHunk)
				currentHunk = nil
			}
		}
	}

	if currentHunk != nil && len(currentHunk.Lines) > 0 {
		computeHunkCounts(currentHunk)
		hunks = append(hunks, *currentHunk)
	}

	return hunks
}

func computeHunkCounts(hunk *Hunk) {
	for _, line := range hunk.Lines {
		if line.Type == LineRemoved || line.Type == LineContext {
			hunk.OldCount++
		}
		if line.Type == LineAdded || line.Type == LineContext {
			hunk.NewCount++
		}
	}
}
