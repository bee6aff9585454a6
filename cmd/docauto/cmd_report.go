package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"docauto/internal/progress"
)

var reportLimit int

// reportCmd renders recent run history from the progress store
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show recent documentation runs",
	Long: `Renders the most recent documentation runs recorded in
.docauto/progress.db, including per-file results. Output is styled
markdown on a terminal and raw markdown when piped.`,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().IntVarP(&reportLimit, "limit", "n", 10, "Number of runs to show")
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	store, err := progress.Open(progress.DefaultPath)
	if err != nil {
		return fmt.Errorf("failed to open run history: %w", err)
	}
	defer store.Close()

	runs, err := store.ListRuns(ctx, reportLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs recorded yet")
		return nil
	}

	md := buildReport(ctx, store, runs)

	if stdoutIsTerminal() {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(100),
		)
		if err == nil {
			if out, rerr := renderer.Render(md); rerr == nil {
				fmt.Print(out)
				return nil
			}
		}
	}
	fmt.Print(md)
	return nil
}

// buildReport renders the run history as a markdown document.
func buildReport(ctx context.Context, store *progress.Store, runs []*progress.Run) string {
	var sb strings.Builder
	sb.WriteString("# docauto run history\n\n")
	sb.WriteString("| started | status | files | updated | failed | provider | model |\n")
	sb.WriteString("|---------|--------|-------|---------|--------|----------|-------|\n")
	for _, run := range runs {
		sb.WriteString(fmt.Sprintf("| %s | %s | %d | %d | %d | %s | %s |\n",
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			run.Status,
			run.FilesTotal,
			run.FilesUpdated,
			run.FilesFailed,
			orDash(run.Provider),
			orDash(run.Model)))
	}

	for _, run := range runs {
		sb.WriteString(fmt.Sprintf("\n## Run %s\n\n", shortID(run.ID)))

		line := fmt.Sprintf("Started %s, status **%s**",
			run.StartedAt.Local().Format("2006-01-02 15:04:05"), run.Status)
		if run.CompletedAt != nil {
			line += fmt.Sprintf(", took %s", run.CompletedAt.Sub(run.StartedAt).Round(time.Millisecond))
		}
		if run.DryRun {
			line += " (dry-run)"
		}
		sb.WriteString(line + ".\n")
		if run.Error != "" {
			sb.WriteString(fmt.Sprintf("Error: %s\n", run.Error))
		}

		results, err := store.ListFileResults(ctx, run.ID)
		if err != nil || len(results) == 0 {
			continue
		}
		sb.WriteString("\n")
		for _, fr := range results {
			entry := fmt.Sprintf("- `%s` %s, %d/%d units", fr.Path, fr.Status, fr.UnitsDocumented, fr.UnitsTotal)
			if fr.Error != "" {
				entry += fmt.Sprintf(" (%s)", fr.Error)
			}
			sb.WriteString(entry + "\n")
		}
	}
	return sb.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
