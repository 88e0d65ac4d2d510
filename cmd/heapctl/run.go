package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshuapare/heapkit/alloc"
	"github.com/joshuapare/heapkit/internal/logger"
	"github.com/joshuapare/heapkit/workload"
)

var (
	runItems  int
	runWindow int
	runIters  int
	runSize   int
	runMin    int
	runMax    int
)

func init() {
	cmd := newRunCmd()
	cmd.Flags().IntVar(&runItems, "items", 0, "Blocks per pass (0 uses the trace default)")
	cmd.Flags().IntVar(&runWindow, "window", 0, "Live blocks trailing the cursor (0 uses the trace default)")
	cmd.Flags().IntVar(&runIters, "iters", 0, "Iterations (0 uses the trace default)")
	cmd.Flags().IntVar(&runSize, "size", 0, "Request size for the equal trace")
	cmd.Flags().IntVar(&runMin, "min", 0, "Smallest request for range traces")
	cmd.Flags().IntVar(&runMax, "max", 0, "Largest request for range traces")
	rootCmd.AddCommand(cmd)
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <equal|small|large>",
		Short: "Run a fragmentation trace on a single heap",
		Long: `The run command replays one of the sliding-window traces against a
single-threaded heap and reports execution time and the fragmentation
(free bytes over total bytes) sampled at the steady state.

Example:
  heapctl run equal
  heapctl run small --strategy ff --index list
  heapctl run large --iters 5 --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(cmd, args)
		},
	}
	return cmd
}

func runTrace(cmd *cobra.Command, args []string) error {
	kind, err := workload.ParseKind(args[0])
	if err != nil {
		return err
	}
	cfg, strategy, err := heapConfig()
	if err != nil {
		return err
	}

	spec := workload.DefaultSpec(kind)
	spec.Strategy = strategy
	overrideInt(&spec.Items, runItems)
	overrideInt(&spec.Window, runWindow)
	overrideInt(&spec.Iterations, runIters)
	overrideInt(&spec.Size, runSize)
	overrideInt(&spec.MinSize, runMin)
	overrideInt(&spec.MaxSize, runMax)

	src, err := openSource()
	if err != nil {
		return err
	}
	defer src.Close()

	h, err := alloc.New(src, cfg)
	if err != nil {
		return err
	}

	logger.Info("trace starting", "kind", kind, "strategy", strategy, "index", cfg.Index, "items", spec.Items)
	res, err := workload.Run(cmd.Context(), h, spec)
	if err != nil {
		return fmt.Errorf("%s trace failed: %w", kind, err)
	}
	if err := h.Check(); err != nil {
		return fmt.Errorf("heap inconsistent after trace: %w", err)
	}
	if err := syncSource(src); err != nil {
		return err
	}
	logger.Info("trace finished", "elapsed", res.Elapsed, "fragmentation", res.Fragmentation)

	out := cmd.OutOrStdout()
	if jsonOut {
		return printJSON(out, struct {
			workload.Result
			Heap alloc.Stats `json:"heap"`
		}{res, h.Stats()})
	}

	printInfo(out, "Trace:          %s (%s, %s index)\n", res.Kind, res.Strategy, cfg.Index)
	printInfo(out, "Operations:     %d allocs, %d frees\n", res.Allocs, res.Frees)
	printInfo(out, "Execution Time = %f seconds\n", res.Elapsed.Seconds())
	printInfo(out, "Fragmentation  = %f\n", res.Fragmentation)
	printInfo(out, "Heap size:      %d bytes\n", h.TotalBytes())
	if verbose && !quiet {
		h.PrintStats(cmd.ErrOrStderr())
	}
	return nil
}

func overrideInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}
