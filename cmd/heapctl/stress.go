package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/joshuapare/heapkit/alloc"
	"github.com/joshuapare/heapkit/alloc/arena"
	"github.com/joshuapare/heapkit/internal/logger"
	"github.com/joshuapare/heapkit/workload"
)

var (
	stressDesign     string
	stressGoroutines int
	stressArenas     int
	stressIters      int
	stressSize       int
	stressLive       int
)

func init() {
	cmd := newStressCmd()
	cmd.Flags().StringVar(&stressDesign, "design", "arena", "Concurrency design: locked or arena")
	cmd.Flags().IntVarP(&stressGoroutines, "goroutines", "g", runtime.GOMAXPROCS(0), "Concurrent workers")
	cmd.Flags().IntVar(&stressArenas, "arenas", 0, "Arena count for the arena design (0 uses GOMAXPROCS)")
	cmd.Flags().IntVar(&stressIters, "iters", 100000, "Allocations per worker")
	cmd.Flags().IntVar(&stressSize, "size", 128, "Request size")
	cmd.Flags().IntVar(&stressLive, "live", 16, "Blocks each worker holds before releasing them")
	rootCmd.AddCommand(cmd)
}

func newStressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stress",
		Short: "Churn an allocator from many goroutines",
		Long: `The stress command runs concurrent workers that allocate, fill, verify
and release fixed-size blocks, then checks that no bytes were lost or
counted twice.

Example:
  heapctl stress --design locked -g 8
  heapctl stress --design arena --arenas 4 --iters 1000000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStress(cmd)
		},
	}
}

// stressTarget is an allocator that can also audit itself.
type stressTarget interface {
	workload.Target
	Check() error
}

func runStress(cmd *cobra.Command) error {
	cfg, strategy, err := heapConfig()
	if err != nil {
		return err
	}
	src, err := openSource()
	if err != nil {
		return err
	}
	defer src.Close()

	var target stressTarget
	switch stressDesign {
	case "locked":
		target, err = arena.NewLocked(src, cfg)
	case "arena":
		target, err = arena.NewPool(src, stressArenas, cfg)
	default:
		return fmt.Errorf("unknown design %q (want locked or arena)", stressDesign)
	}
	if err != nil {
		return err
	}

	spec := workload.StressSpec{
		Goroutines: stressGoroutines,
		Iterations: stressIters,
		Size:       stressSize,
		Live:       stressLive,
		Strategy:   strategy,
	}
	logger.Info("stress starting", "design", stressDesign, "goroutines", spec.Goroutines, "iters", spec.Iterations)
	res, err := workload.Stress(cmd.Context(), target, spec)
	if err != nil {
		return fmt.Errorf("stress failed: %w", err)
	}
	if err := target.Check(); err != nil {
		return fmt.Errorf("heap inconsistent after stress: %w", err)
	}
	if err := syncSource(src); err != nil {
		return err
	}
	if res.TotalBytes != res.FreeBytes {
		return fmt.Errorf("%d of %d bytes unaccounted for", res.TotalBytes-res.FreeBytes, res.TotalBytes)
	}
	logger.Info("stress finished", "elapsed", res.Elapsed, "total", res.TotalBytes)

	out := cmd.OutOrStdout()
	if jsonOut {
		return printJSON(out, struct {
			workload.StressResult
			Design string `json:"design"`
		}{res, stressDesign})
	}

	ops := res.Allocs + res.Frees
	printInfo(out, "Design:         %s\n", stressDesign)
	printInfo(out, "Goroutines:     %d\n", res.Goroutines)
	printInfo(out, "Operations:     %d allocs, %d frees\n", res.Allocs, res.Frees)
	printInfo(out, "Execution Time = %f seconds\n", res.Elapsed.Seconds())
	if secs := res.Elapsed.Seconds(); secs > 0 {
		printInfo(out, "Throughput:     %.0f ops/s\n", float64(ops)/secs)
	}
	printInfo(out, "Heap size:      %d bytes\n", res.TotalBytes)
	if p, ok := target.(*arena.Pool); ok {
		for _, s := range p.Stats() {
			printVerbose(out, "  heap %d: %d bytes, %d allocs, %d frees\n", s.ID, s.TotalBytes, s.AllocCalls, s.FreeCalls)
		}
	} else if l, ok := target.(*arena.Locked); ok {
		s := l.Stats()
		printVerbose(out, "  heap: %d allocs (%d quick), %d frees\n", s.AllocCalls, s.QuickHits, s.FreeCalls)
	}
	return nil
}

var (
	_ stressTarget    = (*arena.Pool)(nil)
	_ stressTarget    = (*arena.Locked)(nil)
	_ alloc.Allocator = (*arena.Handle)(nil)
)
