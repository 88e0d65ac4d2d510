package arena

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/heapkit/alloc"
	"github.com/joshuapare/heapkit/heap"
)

// hammer runs goroutines that each allocate and release iters blocks of size
// bytes through their own worker, checking payload ownership as they go.
func hammer(t *testing.T, workerFor func() alloc.Allocator, bytesOf func(alloc.Ptr) []byte, goroutines, iters, size int) {
	t.Helper()

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		g := g
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := workerFor()
			tag := byte(g + 1)
			live := make([]alloc.Ptr, 0, 8)

			for i := 0; i < iters; i++ {
				p, err := w.Alloc(size, alloc.BestFit)
				if !assert.NoError(t, err) {
					return
				}
				buf := bytesOf(p)
				if !assert.Len(t, buf, size) {
					return
				}
				for j := range buf {
					buf[j] = tag
				}
				live = append(live, p)

				if len(live) == cap(live) || i == iters-1 {
					for _, q := range live {
						for _, c := range bytesOf(q) {
							if c != tag {
								assert.Failf(t, "payload overwritten", "goroutine %d block %#x", g, q)
								return
							}
						}
						if !assert.NoError(t, w.Free(q)) {
							return
						}
					}
					live = live[:0]
				}
			}
		}()
	}
	wg.Wait()
}

func TestLockedConcurrentChurn(t *testing.T) {
	l, err := NewLocked(heap.NewMemory(8<<20), nil)
	require.NoError(t, err)

	hammer(t, l.Worker, l.Bytes, 8, 1000, 96)

	require.NoError(t, l.Check())
	assert.Equal(t, l.TotalBytes(), l.FreeBytes(), "no bytes lost or double counted")
	s := l.Stats()
	assert.Equal(t, 8*1000, s.AllocCalls)
	assert.Equal(t, 8*1000, s.FreeCalls)
}

func TestPoolConcurrentChurn(t *testing.T) {
	p, err := NewPool(heap.NewMemory(32<<20), 4, nil)
	require.NoError(t, err)
	require.Equal(t, 4, p.Len())

	hammer(t, p.Worker, p.Bytes, 8, 1000, 96)

	require.NoError(t, p.Check())
	assert.Equal(t, p.TotalBytes(), p.FreeBytes(), "no bytes lost or double counted")
	assert.Equal(t, p.Source().Break(), p.TotalBytes(), "every byte of the source belongs to one heap")

	var allocs int
	for _, s := range p.Stats() {
		allocs += s.AllocCalls
	}
	assert.Equal(t, 8*1000, allocs)
}

func TestPoolQuickSizeChurn(t *testing.T) {
	p, err := NewPool(heap.NewMemory(32<<20), 0, nil)
	require.NoError(t, err)

	hammer(t, p.Worker, p.Bytes, 6, 1000, 128)

	require.NoError(t, p.Check())
	assert.Equal(t, p.TotalBytes(), p.FreeBytes())
}

func TestPoolCrossArenaFree(t *testing.T) {
	p, err := NewPool(heap.NewMemory(4<<20), 2, nil)
	require.NoError(t, err)

	a, b := p.Acquire(), p.Acquire()
	require.NotEqual(t, a.ID(), b.ID())

	ptrs := make(chan alloc.Ptr, 64)
	go func() {
		defer close(ptrs)
		for i := 0; i < 64; i++ {
			q, err := a.Alloc(200, alloc.FirstFit)
			if !assert.NoError(t, err) {
				return
			}
			ptrs <- q
		}
	}()

	for q := range ptrs {
		owner, err := alloc.OwnerOf(p.Source(), q)
		require.NoError(t, err)
		assert.Equal(t, a.ID(), owner)
		require.NoError(t, b.Free(q), "release through another arena's handle")
	}

	require.NoError(t, p.Check())
	assert.Equal(t, a.TotalBytes(), a.FreeBytes(), "blocks return to the arena that created them")
	assert.Equal(t, int64(0), b.TotalBytes())
}

func TestPoolSharedHeap(t *testing.T) {
	p, err := NewPool(heap.NewMemory(1<<20), 1, nil)
	require.NoError(t, err)

	q, err := p.Alloc(64, alloc.BestFit)
	require.NoError(t, err)
	owner, err := alloc.OwnerOf(p.Source(), q)
	require.NoError(t, err)
	assert.Equal(t, uint16(SharedID), owner)

	h := p.Acquire()
	require.NoError(t, h.Free(q))
	assert.Equal(t, p.TotalBytes(), p.FreeBytes())
	require.NoError(t, p.Check())
}

func TestPoolRejectsBadPointers(t *testing.T) {
	p, err := NewPool(heap.NewMemory(1<<20), 2, nil)
	require.NoError(t, err)

	require.NoError(t, p.Free(alloc.Nil))
	assert.ErrorIs(t, p.Free(alloc.Ptr(1<<30)), alloc.ErrBadRef)
	assert.Nil(t, p.Bytes(alloc.Ptr(1<<30)))
	assert.NotPanics(t, func() {
		assert.ErrorIs(t, p.Free(alloc.Ptr(1<<63|0x40)), alloc.ErrBadRef)
	})
	assert.Nil(t, p.Bytes(alloc.Ptr(1<<63|0x40)))

	// Forge an owner id beyond the pool.
	h := p.Acquire()
	q, err := h.Alloc(64, alloc.BestFit)
	require.NoError(t, err)
	mem := p.Source().Mem()
	hdr := int64(q) - 32
	mem[hdr+0x0A] = 0xFF
	assert.ErrorIs(t, p.Free(q), alloc.ErrBadRef)

	mem[hdr+0x0A] = byte(h.ID())
	require.NoError(t, p.Free(q))
	require.NoError(t, p.Check())
}

func TestNewPoolValidation(t *testing.T) {
	_, err := NewPool(nil, 1, nil)
	assert.Error(t, err)

	_, err = NewPool(heap.NewMemory(64), 1<<16, nil)
	assert.Error(t, err)

	_, err = NewPool(heap.NewMemory(64), 1, &alloc.Config{Index: alloc.IndexKind(7)})
	assert.Error(t, err)
}

func TestPoolExhaustion(t *testing.T) {
	p, err := NewPool(heap.NewMemory(8192), 2, nil)
	require.NoError(t, err)

	h := p.Acquire()
	_, err = h.Alloc(10000, alloc.BestFit)
	require.ErrorIs(t, err, alloc.ErrNoSpace)
	assert.Equal(t, int64(0), p.TotalBytes())
	require.NoError(t, p.Check())
}
