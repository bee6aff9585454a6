// Package runner drives the documentation pipeline: discovered files are
// parsed, undocumented units get generated docstrings, and the results are
// spliced back into the source or previewed as diffs.
package runner

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"docauto/internal/config"
	"docauto/internal/diffview"
	"docauto/internal/generate"
	"docauto/internal/llm"
	"docauto/internal/parser"
	"docauto/internal/progress"
	"docauto/internal/scan"
	"docauto/internal/transform"
	"docauto/internal/usage"
)

// EventType identifies a runner lifecycle event.
type EventType int

const (
	EventRunStarted EventType = iota
	EventFileStarted
	EventFileFinished
	EventRunFinished
)

// Event reports run lifecycle for live progress displays. The OnEvent
// callback may be invoked from multiple goroutines.
type Event struct {
	Type    EventType
	Path    string
	Status  progress.FileStatus
	Err     error
	Summary Summary
}

// Summary aggregates one run's outcome.
type Summary struct {
	RunID           string
	FilesTotal      int
	FilesUpdated    int
	FilesFailed     int
	FilesSkipped    int
	UnitsDocumented int
	UnitsFailed     int
	Tokens          usage.TokenCounts
	DryRun          bool
	Duration        time.Duration
}

// String renders the one-line run summary.
func (s Summary) String() string {
	line := fmt.Sprintf("processed %d files (%d updated)", s.FilesTotal, s.FilesUpdated)
	if s.DryRun {
		line += " [dry-run]"
	}
	return line
}

// Options configures a Runner.
type Options struct {
	Config      config.Config
	Client      llm.Client
	Store       *progress.Store
	Usage       *usage.Tracker
	Logger      *zap.Logger
	Parser      parser.CodeParser
	DryRun      bool
	Overwrite   bool
	Concurrency int
	Color       bool
	Stdout      io.Writer
	OnEvent     func(Event)
	OnWrite     func(path string)
}

// Runner wires scanner, parser, generator, transformer and progress store
// into one documentation pass.
type Runner struct {
	cfg         config.Config
	generator   *generate.Generator
	scanner     *scan.Scanner
	parser      parser.CodeParser
	store       *progress.Store
	usage       *usage.Tracker
	logger      *zap.Logger
	renderer    diffview.Renderer
	dryRun      bool
	overwrite   bool
	concurrency int
	stdout      io.Writer
	onEvent     func(Event)
	onWrite     func(string)

	printMu sync.Mutex
}

// New builds a Runner. Concurrency below 1 processes files sequentially.
func New(opts Options) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	codeParser := opts.Parser
	if codeParser == nil {
		codeParser = parser.NewPythonParser()
	}
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	return &Runner{
		cfg:         opts.Config,
		generator:   generate.New(opts.Client, opts.Config.Generation, logger),
		scanner:     scan.NewScanner(codeParser.SupportedExtensions()),
		parser:      codeParser,
		store:       opts.Store,
		usage:       opts.Usage,
		logger:      logger.Named("runner"),
		renderer:    diffview.Renderer{Color: opts.Color},
		dryRun:      opts.DryRun,
		overwrite:   opts.Overwrite,
		concurrency: concurrency,
		stdout:      stdout,
		onEvent:     opts.OnEvent,
		onWrite:     opts.OnWrite,
	}
}

// Run documents every matching file under paths and returns the summary.
// Cancelling the context stops new files from starting; files not yet
// started are recorded as skipped and the run completes as cancelled.
func (r *Runner) Run(ctx context.Context, paths []string) (Summary, error) {
	start := time.Now()

	files, err := r.scanner.Resolve(paths)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{
		FilesTotal: len(files),
		DryRun:     r.dryRun,
	}

	var tokensBefore usage.TokenCounts
	if r.usage != nil {
		tokensBefore = r.usage.Stats().Total
	}

	runID := r.createRun(ctx)
	summary.RunID = runID
	r.emit(Event{Type: EventRunStarted, Summary: summary})

	var mu sync.Mutex
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(r.concurrency)

	for _, path := range files {
		eg.Go(func() error {
			if egCtx.Err() != nil {
				r.recordFile(runID, path, fileResult{status: progress.FileStatusSkipped})
				mu.Lock()
				summary.FilesSkipped++
				mu.Unlock()
				r.emit(Event{Type: EventFileFinished, Path: path, Status: progress.FileStatusSkipped})
				return nil
			}

			r.emit(Event{Type: EventFileStarted, Path: path})
			res := r.processFile(egCtx, path)

			mu.Lock()
			if res.changed {
				summary.FilesUpdated++
			}
			if res.status == progress.FileStatusFailed {
				summary.FilesFailed++
			}
			summary.UnitsDocumented += res.unitsDocumented
			summary.UnitsFailed += res.unitsFailed
			mu.Unlock()

			r.recordFile(runID, path, res)
			r.emit(Event{Type: EventFileFinished, Path: path, Status: res.status, Err: res.err})
			return nil
		})
	}

	_ = eg.Wait()

	if r.usage != nil {
		after := r.usage.Stats().Total
		summary.Tokens = usage.TokenCounts{
			Prompt:     after.Prompt - tokensBefore.Prompt,
			Completion: after.Completion - tokensBefore.Completion,
			Total:      after.Total - tokensBefore.Total,
			Requests:   after.Requests - tokensBefore.Requests,
		}
		r.logger.Debug("Token usage for run",
			zap.Int64("prompt", summary.Tokens.Prompt),
			zap.Int64("completion", summary.Tokens.Completion),
			zap.Int64("requests", summary.Tokens.Requests))
	}
	summary.Duration = time.Since(start)

	status := progress.RunStatusCompleted
	switch {
	case ctx.Err() != nil:
		status = progress.RunStatusCancelled
	case summary.FilesFailed > 0:
		status = progress.RunStatusFailed
	}
	r.completeRun(runID, status, summary)

	r.emit(Event{Type: EventRunFinished, Summary: summary})
	return summary, nil
}

// fileResult is the outcome of processing a single file.
type fileResult struct {
	status          progress.FileStatus
	unitsTotal      int
	unitsDocumented int
	unitsFailed     int
	changed         bool
	err             error
}

func (r *Runner) processFile(ctx context.Context, path string) fileResult {
	content, err := os.ReadFile(path)
	if err != nil {
		r.logger.Warn("failed to read file", zap.String("path", path), zap.Error(err))
		return fileResult{status: progress.FileStatusFailed, err: err}
	}

	units, err := r.parser.Parse(path, content)
	if err != nil {
		r.logger.Warn("failed to parse file", zap.String("path", path), zap.Error(err))
		return fileResult{status: progress.FileStatusFailed, err: err}
	}

	res := fileResult{unitsTotal: len(units)}

	var edits []transform.Edit
	for _, unit := range units {
		if !transform.NeedsDocstring(unit, r.overwrite) {
			continue
		}
		if transform.Ignored(unit, r.cfg.Generation.IgnorePatterns) {
			continue
		}

		text, genErr := r.generator.Generate(ctx, unit.Source, methodContext(unit))
		if genErr != nil {
			r.logger.Warn("docstring generation failed",
				zap.String("path", path),
				zap.String("unit", unit.QualifiedName),
				zap.Error(genErr))
			res.unitsFailed++
			if res.err == nil {
				res.err = fmt.Errorf("%s: %w", unit.QualifiedName, genErr)
			}
			// Remaining units would fail the same way once cancelled.
			if ctx.Err() != nil {
				break
			}
			continue
		}

		edits = append(edits, transform.Edit{Unit: unit, Docstring: text})
		res.unitsDocumented++
	}

	if len(edits) > 0 {
		updated, changed := transform.Apply(string(content), edits, r.overwrite)
		res.changed = changed

		if changed {
			if r.dryRun {
				r.printDiff(path, string(content), updated)
			} else if writeErr := r.writeFile(path, updated); writeErr != nil {
				r.logger.Warn("failed to write file", zap.String("path", path), zap.Error(writeErr))
				res.status = progress.FileStatusFailed
				res.err = writeErr
				return res
			}
		}
	}

	if res.unitsFailed > 0 {
		res.status = progress.FileStatusFailed
	} else {
		res.status = progress.FileStatusProcessed
	}
	return res
}

// methodContext names the enclosing class so generated method docstrings
// can reference it.
func methodContext(unit parser.Unit) string {
	if unit.Kind != parser.KindMethod {
		return ""
	}
	idx := strings.LastIndex(unit.QualifiedName, ".")
	if idx < 0 {
		return ""
	}
	return "Class: " + unit.QualifiedName[:idx]
}

func (r *Runner) writeFile(path, content string) error {
	perm := fs.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}
	if r.onWrite != nil {
		r.onWrite(path)
	}
	return os.WriteFile(path, []byte(content), perm)
}

func (r *Runner) printDiff(path, oldContent, newContent string) {
	hunks := diffview.Diff(oldContent, newContent)
	r.printMu.Lock()
	defer r.printMu.Unlock()
	fmt.Fprint(r.stdout, r.renderer.Render(path, hunks))
	fmt.Fprintln(r.stdout)
}

func (r *Runner) createRun(ctx context.Context) string {
	if r.store == nil {
		return ""
	}
	run, err := r.store.CreateRun(ctx, r.dryRun, llm.DetectProvider(r.cfg), r.cfg.Generation.Model)
	if err != nil {
		r.logger.Warn("failed to create run record", zap.Error(err))
		return ""
	}
	return run.ID
}

// recordFile and completeRun use a background context so run history
// survives cancellation.
func (r *Runner) recordFile(runID, path string, res fileResult) {
	if r.store == nil || runID == "" {
		return
	}
	errMsg := ""
	if res.err != nil {
		errMsg = res.err.Error()
	}
	record := progress.FileResult{
		RunID:           runID,
		Path:            path,
		Status:          res.status,
		UnitsTotal:      res.unitsTotal,
		UnitsDocumented: res.unitsDocumented,
		Error:           errMsg,
	}
	if err := r.store.RecordFile(context.Background(), record); err != nil {
		r.logger.Warn("failed to record file result", zap.String("path", path), zap.Error(err))
	}
}

func (r *Runner) completeRun(runID string, status progress.RunStatus, summary Summary) {
	if r.store == nil || runID == "" {
		return
	}
	err := r.store.CompleteRun(context.Background(), runID, status,
		summary.FilesTotal, summary.FilesUpdated, summary.FilesFailed, "")
	if err != nil {
		r.logger.Warn("failed to complete run record", zap.Error(err))
	}
}

func (r *Runner) emit(event Event) {
	if r.onEvent != nil {
		r.onEvent(event)
	}
}
