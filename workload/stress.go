package workload

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bytedance/gopkg/lang/mcache"
	"github.com/bytedance/gopkg/util/gopool"
	"github.com/bytedance/gopkg/util/xxhash3"

	"github.com/joshuapare/heapkit/alloc"
)

// ErrCorrupt reports a payload that changed while its goroutine owned it.
var ErrCorrupt = errors.New("workload: payload corrupted")

// Target is an allocator that hands each goroutine its own worker.
type Target interface {
	Worker() alloc.Allocator
	TotalBytes() int64
	FreeBytes() int64
}

// payloader exposes payload bytes for integrity checks.
type payloader interface {
	Bytes(p alloc.Ptr) []byte
}

// StressSpec describes a concurrent churn run.
type StressSpec struct {
	Goroutines int
	Iterations int // allocations per goroutine
	Size       int
	Live       int // blocks each goroutine holds before releasing them
	Strategy   alloc.Strategy
}

// StressResult is the outcome of Stress.
type StressResult struct {
	Goroutines int           `json:"goroutines"`
	Allocs     int64         `json:"allocs"`
	Frees      int64         `json:"frees"`
	Elapsed    time.Duration `json:"elapsed_ns"`
	TotalBytes int64         `json:"total_bytes"`
	FreeBytes  int64         `json:"free_bytes"`
}

// Stress runs spec.Goroutines workers that each allocate and release
// spec.Iterations blocks. When the target exposes payloads, every block is
// filled with a per-goroutine pattern and hashed again before release.
func Stress(ctx context.Context, t Target, spec StressSpec) (StressResult, error) {
	if spec.Goroutines <= 0 || spec.Iterations <= 0 || spec.Size <= 0 {
		return StressResult{}, errors.New("workload: goroutines, iterations and size must be positive")
	}
	if spec.Live <= 0 {
		spec.Live = 1
	}

	var (
		allocs, frees atomic.Int64
		mu            sync.Mutex
		errs          []error
		wg            sync.WaitGroup
	)
	fail := func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}

	pool := gopool.NewPool("heapkit-stress", int32(spec.Goroutines), gopool.NewConfig())
	pool.SetPanicHandler(func(_ context.Context, r any) {
		fail(fmt.Errorf("workload: worker panic: %v", r))
	})

	start := time.Now()
	for g := 0; g < spec.Goroutines; g++ {
		g := g
		wg.Add(1)
		pool.CtxGo(ctx, func() {
			defer wg.Done()
			if err := churn(ctx, t.Worker(), spec, byte(g+1), &allocs, &frees); err != nil {
				fail(fmt.Errorf("goroutine %d: %w", g, err))
			}
		})
	}
	wg.Wait()

	res := StressResult{
		Goroutines: spec.Goroutines,
		Allocs:     allocs.Load(),
		Frees:      frees.Load(),
		Elapsed:    time.Since(start),
		TotalBytes: t.TotalBytes(),
		FreeBytes:  t.FreeBytes(),
	}
	return res, errors.Join(errs...)
}

func churn(ctx context.Context, w alloc.Allocator, spec StressSpec, tag byte, allocs, frees *atomic.Int64) error {
	pb, _ := w.(payloader)

	pattern := mcache.Malloc(spec.Size)
	defer mcache.Free(pattern)
	for i := range pattern {
		pattern[i] = tag
	}
	want := xxhash3.Hash(pattern)

	live := make([]alloc.Ptr, 0, spec.Live)
	drain := func() error {
		for _, p := range live {
			if pb != nil {
				if buf := pb.Bytes(p); len(buf) < spec.Size || xxhash3.Hash(buf[:spec.Size]) != want {
					return fmt.Errorf("%w: block %#x", ErrCorrupt, uint64(p))
				}
			}
			if err := w.Free(p); err != nil {
				return err
			}
			frees.Add(1)
		}
		live = live[:0]
		return nil
	}

	for i := 0; i < spec.Iterations; i++ {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return errors.Join(err, drain())
			}
		}
		p, err := w.Alloc(spec.Size, spec.Strategy)
		if err != nil {
			return errors.Join(err, drain())
		}
		allocs.Add(1)
		if pb != nil {
			copy(pb.Bytes(p), pattern)
		}
		live = append(live, p)
		if len(live) == spec.Live {
			if err := drain(); err != nil {
				return err
			}
		}
	}
	return drain()
}
