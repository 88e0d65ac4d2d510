package main

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/spf13/cobra"

	"github.com/joshuapare/heapkit/alloc"
	"github.com/joshuapare/heapkit/internal/logger"
)

var (
	checkOps  int
	checkSeed int64
	checkMax  int
	checkStep int
)

func init() {
	cmd := newCheckCmd()
	cmd.Flags().IntVar(&checkOps, "ops", 20000, "Random operations to perform")
	cmd.Flags().Int64Var(&checkSeed, "seed", 42, "Random seed")
	cmd.Flags().IntVar(&checkMax, "max", 4096, "Largest request")
	cmd.Flags().IntVar(&checkStep, "every", 500, "Run the invariant walk every N operations")
	rootCmd.AddCommand(cmd)
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify allocator invariants under random churn",
		Long: `The check command performs a seeded random mix of allocations and
releases on one heap, walking the physical chain and free index
periodically, and finally verifies that releasing everything returns every
byte to the free pool.

Example:
  heapctl check --ops 100000 --seed 7
  heapctl check --index list --strategy ff`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd)
		},
	}
}

type checkReport struct {
	Ops        int         `json:"ops"`
	Seed       int64       `json:"seed"`
	Walks      int         `json:"walks"`
	PeakLive   int         `json:"peak_live"`
	TotalBytes int64       `json:"total_bytes"`
	Stats      alloc.Stats `json:"stats"`
}

func runCheck(cmd *cobra.Command) error {
	if checkOps <= 0 || checkMax <= 0 {
		return errors.New("ops and max must be positive")
	}
	cfg, strategy, err := heapConfig()
	if err != nil {
		return err
	}
	src, err := openSource()
	if err != nil {
		return err
	}
	defer src.Close()

	h, err := alloc.New(src, cfg)
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(checkSeed))
	report := checkReport{Ops: checkOps, Seed: checkSeed}
	var live []alloc.Ptr

	walk := func(op int) error {
		report.Walks++
		if err := h.Check(); err != nil {
			return fmt.Errorf("after op %d: %w", op, err)
		}
		return nil
	}

	for op := 0; op < checkOps; op++ {
		if len(live) == 0 || rng.Intn(2) == 0 {
			p, err := h.Alloc(1+rng.Intn(checkMax), strategy)
			if err != nil {
				return fmt.Errorf("op %d: %w", op, err)
			}
			live = append(live, p)
			report.PeakLive = max(report.PeakLive, len(live))
		} else {
			i := rng.Intn(len(live))
			if err := h.Free(live[i]); err != nil {
				return fmt.Errorf("op %d: %w", op, err)
			}
			live[i] = live[len(live)-1]
			live = live[:len(live)-1]
		}
		if checkStep > 0 && op%checkStep == 0 {
			if err := walk(op); err != nil {
				return err
			}
		}
	}

	for _, p := range live {
		if err := h.Free(p); err != nil {
			return err
		}
	}
	if err := walk(checkOps); err != nil {
		return err
	}
	if h.FreeBytes() != h.TotalBytes() {
		return fmt.Errorf("%d bytes still marked in use after releasing everything", h.TotalBytes()-h.FreeBytes())
	}
	if err := syncSource(src); err != nil {
		return err
	}
	logger.Info("check passed", "ops", checkOps, "walks", report.Walks)

	report.TotalBytes = h.TotalBytes()
	report.Stats = h.Stats()

	out := cmd.OutOrStdout()
	if jsonOut {
		return printJSON(out, report)
	}
	printInfo(out, "OK: %d operations, %d invariant walks, peak %d live blocks\n", report.Ops, report.Walks, report.PeakLive)
	printInfo(out, "Heap size: %d bytes\n", report.TotalBytes)
	if verbose && !quiet {
		h.PrintStats(cmd.ErrOrStderr())
	}
	return nil
}
