package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"docauto/internal/runner"
	"docauto/internal/watch"
)

// watchCmd re-documents files as they change on disk
var watchCmd = &cobra.Command{
	Use:   "watch [flags] PATHS...",
	Short: "Watch paths and document files as they change",
	Long: `Watches the given files and directories and re-runs the documentation
pipeline for every Python file that changes. Rapid saves are debounced
into a single run, and writes made by docauto itself are ignored.

Example:
  docauto watch --ollama src/`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer trapSignals(cancel)()

	pl, err := newPipeline(ctx)
	if err != nil {
		return err
	}
	defer pl.close()

	// The runner marks its own writes so the watcher does not loop on
	// files docauto just documented.
	var w *watch.Watcher
	r := runner.New(runner.Options{
		Config:    *pl.cfg,
		Client:    pl.client,
		Store:     pl.store,
		Usage:     pl.tracker,
		Logger:    logger,
		DryRun:    dryRun,
		Overwrite: overwrite,
		Color:     stdoutIsTerminal(),
		OnWrite: func(path string) {
			if w != nil {
				w.MarkSelfWrite(path)
			}
		},
	})

	w, err = watch.New(watch.Options{
		Logger: logger,
		Process: func(ctx context.Context, path string) {
			summary, err := r.Run(ctx, []string{path})
			if err != nil {
				logger.Warn("Watch run failed", zap.String("path", path), zap.Error(err))
				return
			}
			logger.Info(summary.String(), zap.String("path", path))
		},
	})
	if err != nil {
		return err
	}

	if err := w.Start(ctx, args); err != nil {
		return err
	}
	logger.Info("Watching for changes", zap.Strings("paths", args))

	<-ctx.Done()
	w.Stop()

	stats := w.GetStats()
	logger.Info("Watch stopped",
		zap.Int("runs_triggered", stats.RunsTriggered),
		zap.Int("self_writes_skipped", stats.SelfWritesSkipped))
	return nil
}
