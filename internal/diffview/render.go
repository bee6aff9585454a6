package diffview

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// MaxRenderLines caps full hunk rendering; larger diffs collapse to a
// one-line summary.
const MaxRenderLines = 10000

var (
	addedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#22c55e")).
			Background(lipgloss.Color("#052e16"))
	removedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ef4444")).
			Background(lipgloss.Color("#2d0a0a"))
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))
)

// Renderer formats hunks as a unified-style diff. Color selects lipgloss
// styling for terminals; plain text is emitted otherwise.
type Renderer struct {
	Color bool
}

// Render produces the diff text for a single file.
func (r Renderer) Render(path string, hunks []Hunk) string {
	var sb strings.Builder

	sb.WriteString(r.styled(headerStyle, fmt.Sprintf("--- a/%s", path)))
	sb.WriteString("\n")
	sb.WriteString(r.styled(headerStyle, fmt.Sprintf("+++ b/%s", path)))
	sb.WriteString("\n")

	total := 0
	for _, hunk := range hunks {
		total += len(hunk.Lines)
	}
	if total > MaxRenderLines {
		added, removed := Stats(hunks)
		sb.WriteString(fmt.Sprintf("diff too large to display: %d insertions(+), %d deletions(-)\n", added, removed))
		return sb.String()
	}

	for _, hunk := range hunks {
		header := fmt.Sprintf("@@ -%d,%d +%d,%d @@",
			hunk.OldStart, hunk.OldCount,
			hunk.NewStart, hunk.NewCount)
		sb.WriteString(r.styled(headerStyle, header))
		sb.WriteString("\n")

		for _, line := range hunk.Lines {
			sb.WriteString(r.renderLine(line))
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

func (r Renderer) renderLine(line Line) string {
	switch line.Type {
	case LineAdded:
		return r.styled(addedStyle, "+ "+line.Content)
	case LineRemoved:
		return r.styled(removedStyle, "- "+line.Content)
	default:
		return "  " + line.Content
	}
}

func (r Renderer) styled(style lipgloss.Style, s string) string {
	if !r.Color {
		return s
	}
	return style.Render(s)
}
