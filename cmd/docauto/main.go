package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"docauto/cmd/docauto/ui"
	"docauto/internal/config"
	"docauto/internal/llm"
	"docauto/internal/progress"
	"docauto/internal/runner"
	"docauto/internal/usage"
)

// version is stamped at build time via -ldflags.
var version = "dev"

var (
	// Provider presets
	useOllama   bool
	useOpenAI   bool
	useGemini   bool
	useDeepSeek bool

	// Generation overrides
	baseURL     string
	apiKey      string
	model       string
	maxContext  int
	constraints []string

	// Run behavior
	dryRun         bool
	overwrite      bool
	verbose        bool
	configPath     string
	concurrency    int
	showProgress   bool
	ignorePatterns []string

	// Logger
	logger *zap.Logger
)

// rootCmd runs the documentation pipeline over the given paths
var rootCmd = &cobra.Command{
	Use:   "docauto [flags] PATHS...",
	Short: "docauto - automatic docstring generation for Python code",
	Long: `docauto documents Python code with LLM-generated docstrings.

Each file is parsed with tree-sitter to find functions, methods and
classes without documentation. The configured model writes a Sphinx-style
docstring for every candidate and docauto splices it back in without
touching the surrounding code.

Examples:
  docauto --ollama src/
  docauto --openai -k $OPENAI_API_KEY --dry-run app.py
  docauto --gemini --overwrite --concurrency 4 src/
  docauto watch --ollama src/`,
	Args: cobra.MinimumNArgs(1),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize logger
		zapCfg := zap.NewProductionConfig()
		zapCfg.Encoding = "console"
		zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		zapCfg.OutputPaths = []string{"stderr"}
		zapCfg.ErrorOutputPaths = []string{"stderr"}
		if verbose {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		if showProgress {
			// The live display owns the terminal, so logs go to a file.
			logDir := filepath.Join(".docauto", "logs")
			if err := os.MkdirAll(logDir, 0755); err != nil {
				return fmt.Errorf("failed to create log directory: %w", err)
			}
			zapCfg.OutputPaths = []string{filepath.Join(logDir, "docauto.log")}
			zapCfg.ErrorOutputPaths = zapCfg.OutputPaths
		}
		var err error
		logger, err = zapCfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runPipeline,
}

// initCmd writes a starter configuration file
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter .docauto.yaml into the current directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		const path = ".docauto.yaml"
		if err := config.WriteStarter(path); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", path)
		return nil
	},
}

// versionCmd prints the build version
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the docauto version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("docauto %s\n", version)
	},
}

func init() {
	// Provider presets
	rootCmd.PersistentFlags().BoolVar(&useOllama, "ollama", false, "Use the local Ollama preset")
	rootCmd.PersistentFlags().BoolVar(&useOpenAI, "openai", false, "Use the OpenAI preset")
	rootCmd.PersistentFlags().BoolVar(&useGemini, "gemini", false, "Use the Gemini preset")
	rootCmd.PersistentFlags().BoolVar(&useDeepSeek, "deepseek", false, "Use the DeepSeek preset")

	// Generation overrides
	rootCmd.PersistentFlags().StringVarP(&baseURL, "base-url", "b", "", "Custom API base URL")
	rootCmd.PersistentFlags().StringVarP(&apiKey, "api-key", "k", "", "API authentication key")
	rootCmd.PersistentFlags().StringVarP(&model, "model", "m", "", "Model used for generation")
	rootCmd.PersistentFlags().IntVar(&maxContext, "max-context", 0, "Maximum context window size in tokens")
	rootCmd.PersistentFlags().StringArrayVarP(&constraints, "constraint", "c", nil, "Documentation constraint (repeatable, replaces the defaults)")
	rootCmd.PersistentFlags().StringSliceVar(&ignorePatterns, "ignore", nil, "Extra unit names to skip (repeatable)")

	// Run behavior
	rootCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "d", false, "Preview changes as diffs without writing files")
	rootCmd.PersistentFlags().BoolVarP(&overwrite, "overwrite", "o", false, "Overwrite existing docstrings")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Explicit config file path")
	rootCmd.PersistentFlags().IntVar(&concurrency, "concurrency", 1, "Number of files processed in parallel")
	rootCmd.Flags().BoolVar(&showProgress, "progress", false, "Show a live progress display")

	// Add commands to root
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runPipeline executes one documentation pass over the given paths
func runPipeline(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer trapSignals(cancel)()

	pl, err := newPipeline(ctx)
	if err != nil {
		return err
	}
	defer pl.close()

	var summary runner.Summary
	if showProgress {
		summary, err = runWithProgress(ctx, cancel, pl, args)
	} else {
		r := runner.New(runner.Options{
			Config:      *pl.cfg,
			Client:      pl.client,
			Store:       pl.store,
			Usage:       pl.tracker,
			Logger:      logger,
			DryRun:      dryRun,
			Overwrite:   overwrite,
			Concurrency: concurrency,
			Color:       stdoutIsTerminal(),
		})
		summary, err = r.Run(ctx, args)
	}
	if err != nil {
		return err
	}

	logger.Info(summary.String(),
		zap.Int("units_documented", summary.UnitsDocumented),
		zap.Int("units_failed", summary.UnitsFailed),
		zap.Int64("tokens", summary.Tokens.Total),
		zap.Duration("duration", summary.Duration))

	if summary.FilesFailed > 0 {
		return fmt.Errorf("%d of %d files failed", summary.FilesFailed, summary.FilesTotal)
	}
	return nil
}

// runWithProgress runs the pipeline behind the live terminal display.
// Dry-run diffs are buffered and flushed once the display has exited.
func runWithProgress(ctx context.Context, cancel context.CancelFunc, pl *pipeline, paths []string) (runner.Summary, error) {
	prog := ui.NewProgram(cancel)

	var diffBuf bytes.Buffer
	r := runner.New(runner.Options{
		Config:      *pl.cfg,
		Client:      pl.client,
		Store:       pl.store,
		Usage:       pl.tracker,
		Logger:      logger,
		DryRun:      dryRun,
		Overwrite:   overwrite,
		Concurrency: concurrency,
		Color:       true,
		Stdout:      &diffBuf,
		OnEvent: func(ev runner.Event) {
			prog.Send(ui.EventMsg{Event: ev})
		},
	})

	done := make(chan struct{})
	var summary runner.Summary
	var runErr error
	go func() {
		defer close(done)
		summary, runErr = r.Run(ctx, paths)
	}()

	if _, err := prog.Run(); err != nil {
		cancel()
		<-done
		return summary, fmt.Errorf("progress display failed: %w", err)
	}
	<-done

	if diffBuf.Len() > 0 {
		fmt.Print(diffBuf.String())
	}
	return summary, runErr
}

// pipeline bundles the long-lived components a documentation run needs.
type pipeline struct {
	cfg     *config.Config
	tracker *usage.Tracker
	store   *progress.Store
	client  llm.Client
}

func newPipeline(ctx context.Context) (*pipeline, error) {
	cfg, err := resolveConfig()
	if err != nil {
		return nil, err
	}

	tracker, err := usage.NewTracker(".")
	if err != nil {
		logger.Warn("Token usage tracking disabled", zap.Error(err))
		tracker = nil
	}

	store, err := progress.Open(progress.DefaultPath)
	if err != nil {
		logger.Warn("Run history disabled", zap.Error(err))
		store = nil
	}

	opts := llm.Options{Logger: logger}
	if tracker != nil {
		opts.Usage = tracker
	}
	client, err := llm.NewClient(ctx, *cfg, opts)
	if err != nil {
		if store != nil {
			_ = store.Close()
		}
		return nil, err
	}

	return &pipeline{cfg: cfg, tracker: tracker, store: store, client: client}, nil
}

func (p *pipeline) close() {
	if p.tracker != nil {
		if err := p.tracker.Save(); err != nil {
			logger.Warn("Failed to save usage counters", zap.Error(err))
		}
	}
	if p.store != nil {
		_ = p.store.Close()
	}
}

// resolveConfig layers defaults, preset, config file, environment and
// flags, then validates. Later layers win per field.
func resolveConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()

	var presetName string
	presetCount := 0
	for _, p := range []struct {
		name string
		on   bool
	}{
		{"ollama", useOllama},
		{"openai", useOpenAI},
		{"gemini", useGemini},
		{"deepseek", useDeepSeek},
	} {
		if p.on {
			presetName = p.name
			presetCount++
		}
	}
	if presetCount > 1 {
		return nil, fmt.Errorf("provider presets are mutually exclusive")
	}
	if presetName != "" {
		preset, err := config.Preset(presetName)
		if err != nil {
			return nil, err
		}
		cfg.Merge(preset)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve working directory: %w", err)
	}
	if path := config.FindConfigFile(configPath, cwd); path != "" {
		fileCfg, err := config.LoadFile(path)
		if err != nil {
			return nil, err
		}
		cfg.Merge(fileCfg)
	}

	cfg.ApplyEnv()

	flagCfg := &config.Config{}
	flagCfg.API.BaseURL = baseURL
	flagCfg.API.APIKey = apiKey
	flagCfg.Generation.Model = model
	flagCfg.Generation.MaxContext = maxContext
	flagCfg.Generation.Constraints = constraints
	cfg.Merge(flagCfg)

	// --ignore extends the dunder defaults instead of replacing them.
	if len(ignorePatterns) > 0 {
		cfg.Generation.IgnorePatterns = append(cfg.Generation.IgnorePatterns, ignorePatterns...)
	}

	cfg.ApplyProviderKeyFallback(llm.DetectProvider(*cfg))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// trapSignals cancels the context on the first SIGINT or SIGTERM and
// force-exits on the second. The returned func releases the handler.
func trapSignals(cancel context.CancelFunc) func() {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("Received shutdown signal, finishing in-flight files")
		cancel()
		<-sigCh
		logger.Warn("Received second signal, exiting")
		_ = logger.Sync()
		os.Exit(1)
	}()
	return func() { signal.Stop(sigCh) }
}

// stdoutIsTerminal reports whether stdout is attached to a terminal.
func stdoutIsTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
