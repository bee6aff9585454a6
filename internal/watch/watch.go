// Package watch re-documents source files as they change on disk. Filesystem
// events are debounced so editors that write in bursts trigger a single run,
// and writes made by the tool itself are suppressed.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"docauto/internal/scan"
)

const (
	defaultDebounce     = 500 * time.Millisecond
	defaultSweepEvery   = 100 * time.Millisecond
	defaultSelfWriteTTL = 2 * time.Second
)

// Stats tracks watcher activity.
type Stats struct {
	FilesCreated      int
	FilesModified     int
	FilesDeleted      int
	RunsTriggered     int
	SelfWritesSkipped int
	Errors            int
	LastEventPath     string
	LastEventTime     time.Time
}

// Options configures a Watcher.
type Options struct {
	Scanner *scan.Scanner
	Logger  *zap.Logger

	// Process is invoked for every settled file, one path at a time.
	Process func(ctx context.Context, path string)

	// Debounce is the settle window after the last event for a path.
	Debounce time.Duration
	// SweepEvery is how often settled paths are collected.
	SweepEvery time.Duration
	// SelfWriteTTL is how long a MarkSelfWrite registration suppresses
	// events for a path.
	SelfWriteTTL time.Duration
}

// Watcher monitors directories and funnels settled file changes into the
// configured Process callback.
type Watcher struct {
	mu           sync.Mutex
	watcher      *fsnotify.Watcher
	scanner      *scan.Scanner
	logger       *zap.Logger
	process      func(ctx context.Context, path string)
	debounceMap  map[string]time.Time
	selfWrites   map[string]time.Time
	debounceDur  time.Duration
	sweepEvery   time.Duration
	selfWriteTTL time.Duration
	stopCh       chan struct{}
	doneCh       chan struct{}
	running      bool

	stats Stats
}

// New creates a Watcher. Process must be set.
func New(opts Options) (*Watcher, error) {
	if opts.Process == nil {
		return nil, fmt.Errorf("watch: Process callback is required")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	scanner := opts.Scanner
	if scanner == nil {
		scanner = scan.NewScanner([]string{".py"})
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	sweepEvery := opts.SweepEvery
	if sweepEvery <= 0 {
		sweepEvery = defaultSweepEvery
	}
	selfWriteTTL := opts.SelfWriteTTL
	if selfWriteTTL <= 0 {
		selfWriteTTL = defaultSelfWriteTTL
	}

	return &Watcher{
		watcher:      fsw,
		scanner:      scanner,
		logger:       logger.Named("watch"),
		process:      opts.Process,
		debounceMap:  make(map[string]time.Time),
		selfWrites:   make(map[string]time.Time),
		debounceDur:  debounce,
		sweepEvery:   sweepEvery,
		selfWriteTTL: selfWriteTTL,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}, nil
}

// Start watches the given paths and begins dispatching events. Directories
// are watched recursively; a file argument watches its parent directory.
// Non-blocking; the event loop runs until Stop or context cancellation.
func (w *Watcher) Start(ctx context.Context, paths []string) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.addPaths(paths); err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return err
	}

	go w.run(ctx)
	return nil
}

func (w *Watcher) addPaths(paths []string) error {
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("invalid path provided: %s", path)
		}

		if !info.IsDir() {
			if err := w.watcher.Add(filepath.Dir(path)); err != nil {
				return err
			}
			continue
		}

		root := path
		err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				return nil
			}
			if p != root && w.scanner.SkipDir(d.Name()) {
				return filepath.SkipDir
			}
			return w.watcher.Add(p)
		})
		if err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
	}
	return nil
}

// Stop stops the watcher and waits for the event loop to drain.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		w.logger.Warn("failed to close watcher", zap.Error(err))
	}
}

// MarkSelfWrite suppresses upcoming events for a path the tool itself is
// about to write. Wire it to the runner's OnWrite hook.
func (w *Watcher) MarkSelfWrite(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.selfWrites[normPath(path)] = time.Now()
}

// GetStats returns a copy of the current watcher statistics.
func (w *Watcher) GetStats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

// IsWatching reports whether the event loop is running.
func (w *Watcher) IsWatching() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	sweepTicker := time.NewTicker(w.sweepEvery)
	defer sweepTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", zap.Error(err))
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()

		case <-sweepTicker.C:
			w.sweep(ctx)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	// New directories join the watch set immediately.
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !w.scanner.SkipDir(filepath.Base(event.Name)) {
				if err := w.watcher.Add(event.Name); err != nil {
					w.logger.Warn("failed to watch new directory",
						zap.String("path", event.Name), zap.Error(err))
				}
			}
			return
		}
	}

	if !w.scanner.MatchesExtension(event.Name) {
		return
	}

	path := normPath(event.Name)

	w.mu.Lock()
	defer w.mu.Unlock()

	w.stats.LastEventTime = time.Now()
	w.stats.LastEventPath = path

	switch {
	case event.Op&fsnotify.Remove != 0, event.Op&fsnotify.Rename != 0:
		w.stats.FilesDeleted++
		// Nothing left to process once the file is gone.
		delete(w.debounceMap, path)
		return

	case event.Op&fsnotify.Create != 0:
		w.stats.FilesCreated++

	case event.Op&fsnotify.Write != 0:
		w.stats.FilesModified++

	default:
		return // chmod etc.
	}

	if marked, ok := w.selfWrites[path]; ok && time.Since(marked) < w.selfWriteTTL {
		w.stats.SelfWritesSkipped++
		return
	}

	w.debounceMap[path] = time.Now()
}

// sweep collects paths whose events have settled past the debounce window
// and runs them through the Process callback.
func (w *Watcher) sweep(ctx context.Context) {
	w.mu.Lock()
	now := time.Now()
	toProcess := make([]string, 0)

	for path, eventTime := range w.debounceMap {
		if now.Sub(eventTime) >= w.debounceDur {
			toProcess = append(toProcess, path)
			delete(w.debounceMap, path)
		}
	}
	for path, marked := range w.selfWrites {
		if now.Sub(marked) >= w.selfWriteTTL {
			delete(w.selfWrites, path)
		}
	}
	w.mu.Unlock()

	sort.Strings(toProcess)
	for _, path := range toProcess {
		if ctx.Err() != nil {
			return
		}
		if _, err := os.Stat(path); err != nil {
			continue // deleted after the event settled
		}

		w.mu.Lock()
		w.stats.RunsTriggered++
		w.mu.Unlock()

		w.process(ctx, path)
	}
}

func normPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}
