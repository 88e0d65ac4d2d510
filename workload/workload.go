// Package workload drives allocators with the sliding-window traces used to
// compare placement strategies, and with a concurrent stress loop.
//
// Every trace first allocates Items blocks interleaved with Items spacer
// blocks and frees the first set, leaving a heap of holes. Each iteration
// then allocates a window of blocks, slides it across the item array by
// allocating one block and freeing the one Window slots behind, and finally
// drains the window. Fragmentation is sampled halfway through the middle
// iteration to approximate the steady state, or at the first slide when the
// window already spans more than half the items.
package workload

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/gopkg/lang/fastrand"

	"github.com/joshuapare/heapkit/alloc"
)

// Kind selects the request size distribution.
type Kind uint8

const (
	// EqualSize requests Spec.Size bytes every time.
	EqualSize Kind = iota
	// SmallRange draws sizes uniformly from a narrow small range.
	SmallRange
	// LargeRange draws sizes uniformly from a wide range.
	LargeRange
)

func (k Kind) String() string {
	switch k {
	case EqualSize:
		return "equal"
	case SmallRange:
		return "small"
	case LargeRange:
		return "large"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// ParseKind accepts "equal", "small" and "large".
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "equal", "equal-size":
		return EqualSize, nil
	case "small", "small-range":
		return SmallRange, nil
	case "large", "large-range":
		return LargeRange, nil
	}
	return 0, fmt.Errorf("workload: unknown kind %q", s)
}

// Spec describes one trace run.
type Spec struct {
	Kind       Kind
	Strategy   alloc.Strategy
	Items      int // blocks per pass and spacer blocks
	Window     int // live blocks trailing the cursor
	Iterations int

	Size    int // EqualSize request
	MinSize int // range kinds, inclusive
	MaxSize int
}

// DefaultSpec returns the classic parameters for k.
func DefaultSpec(k Kind) Spec {
	s := Spec{
		Kind:       k,
		Strategy:   alloc.BestFit,
		Items:      10000,
		Window:     1000,
		Iterations: 100,
		Size:       128,
	}
	switch k {
	case SmallRange:
		s.MinSize, s.MaxSize = 128, 512
		s.Iterations = 50
	case LargeRange:
		s.MinSize, s.MaxSize = 32, 64*1024
		s.Items, s.Window = 2000, 200
		s.Iterations = 10
	}
	return s
}

// Validate reports the first inconsistent field.
func (s Spec) Validate() error {
	switch {
	case s.Window <= 0:
		return errors.New("workload: window must be positive")
	case s.Items <= s.Window:
		return fmt.Errorf("workload: items (%d) must exceed window (%d)", s.Items, s.Window)
	case s.Iterations <= 0:
		return errors.New("workload: iterations must be positive")
	case s.Kind == EqualSize && s.Size <= 0:
		return errors.New("workload: size must be positive")
	case s.Kind != EqualSize && (s.MinSize <= 0 || s.MaxSize < s.MinSize):
		return fmt.Errorf("workload: bad size range [%d, %d]", s.MinSize, s.MaxSize)
	}
	return nil
}

func (s Spec) sizer() func() int {
	if s.Kind == EqualSize {
		return func() int { return s.Size }
	}
	span := s.MaxSize - s.MinSize + 1
	return func() int { return s.MinSize + fastrand.Intn(span) }
}

// Result is the outcome of Run.
type Result struct {
	Kind          string        `json:"kind"`
	Strategy      string        `json:"strategy"`
	Allocs        int           `json:"allocs"`
	Frees         int           `json:"frees"`
	Elapsed       time.Duration `json:"elapsed_ns"`
	TotalBytes    int64         `json:"total_bytes"`
	FreeBytes     int64         `json:"free_bytes"`
	Fragmentation float64       `json:"fragmentation"`
}

// Run executes the trace against a. The timed section excludes the initial
// hole-punching pass. The spacer blocks are released before returning.
func Run(ctx context.Context, a alloc.Allocator, spec Spec) (Result, error) {
	if err := spec.Validate(); err != nil {
		return Result{}, err
	}
	res := Result{Kind: spec.Kind.String(), Strategy: spec.Strategy.String()}
	next := spec.sizer()

	allocate := func() (alloc.Ptr, error) {
		p, err := a.Alloc(next(), spec.Strategy)
		if err != nil {
			return alloc.Nil, fmt.Errorf("alloc %d: %w", res.Allocs, err)
		}
		res.Allocs++
		return p, nil
	}
	release := func(p alloc.Ptr) error {
		if err := a.Free(p); err != nil {
			return fmt.Errorf("free %d: %w", res.Frees, err)
		}
		res.Frees++
		return nil
	}

	items := make([]alloc.Ptr, spec.Items)
	spacers := make([]alloc.Ptr, spec.Items)
	for i := 0; i < spec.Items; i++ {
		var err error
		if items[i], err = allocate(); err != nil {
			return res, err
		}
		if spacers[i], err = allocate(); err != nil {
			return res, err
		}
	}
	for _, p := range items {
		if err := release(p); err != nil {
			return res, err
		}
	}

	mid := spec.Iterations / 2
	sampleAt := max(spec.Window, spec.Items/2)
	start := time.Now()
	for it := 0; it < spec.Iterations; it++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		for j := 0; j < spec.Window; j++ {
			p, err := allocate()
			if err != nil {
				return res, err
			}
			items[j] = p
		}
		for j := spec.Window; j < spec.Items; j++ {
			p, err := allocate()
			if err != nil {
				return res, err
			}
			items[j] = p
			if err := release(items[j-spec.Window]); err != nil {
				return res, err
			}
			if it == mid && j == sampleAt {
				res.TotalBytes, res.FreeBytes = a.TotalBytes(), a.FreeBytes()
			}
		}
		for j := spec.Items - spec.Window; j < spec.Items; j++ {
			if err := release(items[j]); err != nil {
				return res, err
			}
		}
	}
	res.Elapsed = time.Since(start)

	if res.TotalBytes > 0 {
		res.Fragmentation = float64(res.FreeBytes) / float64(res.TotalBytes)
	}
	for _, p := range spacers {
		if err := release(p); err != nil {
			return res, err
		}
	}
	return res, nil
}
