package workload

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/heapkit/alloc"
	"github.com/joshuapare/heapkit/alloc/arena"
	"github.com/joshuapare/heapkit/heap"
)

func smallSpec(k Kind, s alloc.Strategy) Spec {
	spec := DefaultSpec(k)
	spec.Strategy = s
	spec.Items, spec.Window, spec.Iterations = 200, 20, 4
	if k == LargeRange {
		spec.MaxSize = 8 * 1024
	}
	return spec
}

func TestRunTraces(t *testing.T) {
	for _, k := range []Kind{EqualSize, SmallRange, LargeRange} {
		for _, s := range []alloc.Strategy{alloc.FirstFit, alloc.BestFit} {
			t.Run(k.String()+"/"+s.String(), func(t *testing.T) {
				h, err := alloc.New(heap.NewMemory(32<<20), nil)
				require.NoError(t, err)

				spec := smallSpec(k, s)
				res, err := Run(testContext(t), h, spec)
				require.NoError(t, err)

				wantOps := 2*spec.Items + spec.Iterations*spec.Items
				assert.Equal(t, wantOps, res.Allocs)
				assert.Equal(t, wantOps, res.Frees)
				assert.Positive(t, res.TotalBytes)
				assert.GreaterOrEqual(t, res.Fragmentation, 0.0)
				assert.LessOrEqual(t, res.Fragmentation, 1.0)
				assert.Equal(t, k.String(), res.Kind)

				require.NoError(t, h.Check())
				assert.Equal(t, h.TotalBytes(), h.FreeBytes(), "trace releases everything it allocates")
			})
		}
	}
}

func TestRunSamplesWideWindow(t *testing.T) {
	h, err := alloc.New(heap.NewMemory(32<<20), nil)
	require.NoError(t, err)

	spec := smallSpec(EqualSize, alloc.BestFit)
	spec.Items, spec.Window = 100, 60
	require.NoError(t, spec.Validate())

	res, err := Run(testContext(t), h, spec)
	require.NoError(t, err)
	assert.Positive(t, res.TotalBytes, "window past the midpoint must still be sampled")
	assert.Positive(t, res.FreeBytes)
	assert.Positive(t, res.Fragmentation)
}

func TestRunEqualSizeNeverGrowsAfterWarmup(t *testing.T) {
	h, err := alloc.New(heap.NewMemory(32<<20), nil)
	require.NoError(t, err)

	spec := smallSpec(EqualSize, alloc.FirstFit)
	spec.Iterations = 1
	_, err = Run(testContext(t), h, spec)
	require.NoError(t, err)
	total := h.TotalBytes()

	spec.Iterations = 5
	_, err = Run(testContext(t), h, spec)
	require.NoError(t, err)
	assert.Equal(t, total, h.TotalBytes(), "equal-size trace fits in the space it already has")
}

func TestRunValidation(t *testing.T) {
	h, err := alloc.New(heap.NewMemory(1<<20), nil)
	require.NoError(t, err)

	bad := []Spec{
		{Kind: EqualSize, Items: 10, Window: 0, Iterations: 1, Size: 8},
		{Kind: EqualSize, Items: 10, Window: 10, Iterations: 1, Size: 8},
		{Kind: EqualSize, Items: 10, Window: 2, Iterations: 0, Size: 8},
		{Kind: EqualSize, Items: 10, Window: 2, Iterations: 1},
		{Kind: SmallRange, Items: 10, Window: 2, Iterations: 1, MinSize: 64, MaxSize: 8},
	}
	for i, spec := range bad {
		_, err := Run(testContext(t), h, spec)
		assert.Error(t, err, "spec %d", i)
	}
	assert.Equal(t, int64(0), h.TotalBytes())
}

func TestRunCancelled(t *testing.T) {
	h, err := alloc.New(heap.NewMemory(8<<20), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(testContext(t))
	cancel()
	_, err = Run(ctx, h, smallSpec(EqualSize, alloc.BestFit))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunOutOfMemory(t *testing.T) {
	h, err := alloc.New(heap.NewMemory(16<<10), nil)
	require.NoError(t, err)

	_, err = Run(testContext(t), h, smallSpec(EqualSize, alloc.BestFit))
	assert.ErrorIs(t, err, alloc.ErrNoSpace)
}

func TestParseKind(t *testing.T) {
	for _, k := range []Kind{EqualSize, SmallRange, LargeRange} {
		got, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	_, err := ParseKind("huge")
	assert.Error(t, err)
}

func TestStressLocked(t *testing.T) {
	l, err := arena.NewLocked(heap.NewMemory(8<<20), nil)
	require.NoError(t, err)

	res, err := Stress(testContext(t), l, StressSpec{Goroutines: 8, Iterations: 1000, Size: 64, Live: 16})
	require.NoError(t, err)
	assert.Equal(t, int64(8000), res.Allocs)
	assert.Equal(t, res.Allocs, res.Frees)
	assert.Equal(t, res.TotalBytes, res.FreeBytes)
	require.NoError(t, l.Check())
}

func TestStressPool(t *testing.T) {
	p, err := arena.NewPool(heap.NewMemory(32<<20), 4, nil)
	require.NoError(t, err)

	res, err := Stress(testContext(t), p, StressSpec{Goroutines: 8, Iterations: 1000, Size: 128, Live: 8})
	require.NoError(t, err)
	assert.Equal(t, int64(8000), res.Frees)
	assert.Equal(t, res.TotalBytes, res.FreeBytes)
	require.NoError(t, p.Check())
}

// scribbler hands out payload views that never match what was written.
type scribbler struct{ *arena.Locked }

func (s scribbler) Worker() alloc.Allocator { return s }

func (s scribbler) Bytes(alloc.Ptr) []byte { return make([]byte, 64) }

func TestStressDetectsCorruption(t *testing.T) {
	l, err := arena.NewLocked(heap.NewMemory(1<<20), nil)
	require.NoError(t, err)

	_, err = Stress(testContext(t), scribbler{l}, StressSpec{Goroutines: 2, Iterations: 10, Size: 64, Live: 4})
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestStressValidation(t *testing.T) {
	l, err := arena.NewLocked(heap.NewMemory(1<<20), nil)
	require.NoError(t, err)
	_, err = Stress(testContext(t), l, StressSpec{Goroutines: 0, Iterations: 1, Size: 8})
	assert.Error(t, err)
}

// testContext returns a context that is cancelled when t's cleanup runs,
// matching testing.T.Context on newer toolchains.
func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}
