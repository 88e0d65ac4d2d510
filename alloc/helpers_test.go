package alloc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/heapkit/heap"
	"github.com/joshuapare/heapkit/internal/layout"
)

// newTestHeap creates a heap over a slice-backed source of limit bytes.
// mutate, if non-nil, adjusts a copy of DefaultConfig first.
func newTestHeap(t testing.TB, limit int64, mutate func(*Config)) *Heap {
	t.Helper()

	cfg := DefaultConfig
	if mutate != nil {
		mutate(&cfg)
	}
	h, err := New(heap.NewMemory(limit), &cfg)
	require.NoError(t, err)
	return h
}

// exact configures a heap that grows by exactly what each request needs and
// has no quick list, so block layout is fully predictable.
func exact(c *Config) {
	c.GrowExact = true
	c.QuickSize = 0
}

// mustAlloc allocates and fails the test on error.
func mustAlloc(t testing.TB, h *Heap, size int, s Strategy) Ptr {
	t.Helper()
	p, err := h.Alloc(size, s)
	require.NoError(t, err, "Alloc(%d, %s)", size, s)
	require.NotEqual(t, Nil, p)
	return p
}

// assertInvariants runs Check and the accounting bounds.
func assertInvariants(t testing.TB, h *Heap) {
	t.Helper()
	require.NoError(t, h.Check())
	require.GreaterOrEqual(t, h.FreeBytes(), int64(0))
	require.LessOrEqual(t, h.FreeBytes(), h.TotalBytes())
}

// headerOf returns the block header behind p.
func headerOf(t testing.TB, h *Heap, p Ptr) layout.Block {
	t.Helper()
	off, err := layout.HeaderOf(p, h.end)
	require.NoError(t, err)
	return layout.At(h.mem, off)
}

func pageSize() int64 { return int64(heap.PageSize()) }
