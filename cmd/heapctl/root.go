package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/heapkit/alloc"
	"github.com/joshuapare/heapkit/heap"
	"github.com/joshuapare/heapkit/internal/logger"
)

var (
	// Global flags
	verbose bool
	quiet   bool
	jsonOut bool
	logDir  string

	// Allocator flags
	indexName    string
	strategyName string
	reserve      int64
	heapFile     string
	quickSize    int64
	growExact    bool
	noGuard      bool
)

var rootCmd = &cobra.Command{
	Use:   "heapctl",
	Short: "Drive and inspect heapkit allocators",
	Long: `heapctl runs the heapkit block allocators through the classic
sliding-window fragmentation traces, concurrent stress loops and randomized
invariant checks, and reports timing, fragmentation and allocator counters.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		_, err := logger.Init(logger.Options{
			Enabled: verbose || logDir != "",
			LogDir:  logDir,
			Level:   level,
			Stderr:  cmd.ErrOrStderr(),
		})
		return err
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output and debug logging")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "", "Write JSON logs to daily files in this directory")

	// Allocator flags
	rootCmd.PersistentFlags().StringVar(&indexName, "index", "tree", "Free index: tree or list")
	rootCmd.PersistentFlags().StringVarP(&strategyName, "strategy", "s", "bf", "Placement strategy: ff or bf")
	rootCmd.PersistentFlags().Int64Var(&reserve, "reserve", 1<<30, "Bytes of address space to reserve for the heap")
	rootCmd.PersistentFlags().StringVar(&heapFile, "file", "", "Back the heap with a memory-mapped file instead of anonymous memory")
	rootCmd.PersistentFlags().Int64Var(&quickSize, "quick", 128, "Quick list payload size, 0 disables")
	rootCmd.PersistentFlags().BoolVar(&growExact, "grow-exact", false, "Grow by exactly each request instead of whole pages")
	rootCmd.PersistentFlags().BoolVar(&noGuard, "no-guard", false, "Skip the header guard check on free")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// heapConfig builds the allocator config from the global flags.
func heapConfig() (*alloc.Config, alloc.Strategy, error) {
	idx, err := alloc.ParseIndexKind(indexName)
	if err != nil {
		return nil, 0, err
	}
	s, err := alloc.ParseStrategy(strategyName)
	if err != nil {
		return nil, 0, err
	}
	cfg := alloc.DefaultConfig
	cfg.Index = idx
	cfg.QuickSize = quickSize
	cfg.GrowExact = growExact
	cfg.Guard = !noGuard
	cfg.Logger = logger.L
	return &cfg, s, nil
}

// openSource reserves the heap's address space, backed by --file when set.
func openSource() (heap.Source, error) {
	if heapFile != "" {
		src, err := heap.NewFile(heapFile, reserve)
		if err != nil {
			return nil, fmt.Errorf("failed to map %s: %w", heapFile, err)
		}
		return src, nil
	}
	src, err := heap.NewReserved(reserve)
	if err != nil {
		return nil, fmt.Errorf("failed to reserve %d bytes: %w", reserve, err)
	}
	return src, nil
}

// syncSource flushes file-backed heaps to disk.
func syncSource(src heap.Source) error {
	if f, ok := src.(*heap.File); ok {
		if err := f.Sync(); err != nil {
			return err
		}
		logger.Debug("heap file synced", "path", heapFile, "bytes", f.Size())
	}
	return nil
}

// printInfo prints an info message if not in quiet mode
func printInfo(w io.Writer, format string, args ...any) {
	if !quiet {
		printer.Fprintf(w, format, args...)
	}
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(w io.Writer, format string, args ...any) {
	if verbose && !quiet {
		printer.Fprintf(w, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
