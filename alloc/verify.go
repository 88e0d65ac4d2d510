package alloc

import (
	"errors"
	"fmt"

	"github.com/joshuapare/heapkit/internal/layout"
)

// maxViolations caps how many problems Check collects before stopping.
const maxViolations = 32

// Check walks the physical chain and the free structures and reports every
// broken invariant it finds, each wrapping ErrCorrupt. It returns nil for a
// consistent heap. Check is read-only.
func (h *Heap) Check() error {
	var errs []error
	fail := func(format string, args ...any) bool {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrCorrupt}, args...)...))
		return len(errs) < maxViolations
	}

	indexed := make(map[int64]int64, h.index.len())
	h.index.each(func(off, size int64) bool {
		if _, dup := indexed[off]; dup {
			return fail("block %#x indexed twice", off)
		}
		indexed[off] = size
		return true
	})
	quick := make(map[int64]bool, h.quick.len())
	if h.quick != nil {
		for _, off := range h.quick.stack {
			if quick[off] {
				fail("block %#x on quick list twice", off)
			}
			quick[off] = true
		}
	}

	var (
		spans, free int64
		freeBlocks  int
		quickBlocks int
		prevFreeAdj bool
		steps       int64
		end         int64
	)
	prev, last := layout.NoBlock, layout.NoBlock
	maxSteps := h.total/layout.MinBlockSize + 1
	for off := h.head; off != layout.NoBlock; off = layout.At(h.mem, off).Next() {
		if steps++; steps > maxSteps {
			fail("physical chain longer than %d blocks; cycle?", maxSteps)
			break
		}
		if off < end || off+layout.MinBlockSize > h.end || !layout.IsAligned(off) {
			fail("block %#x out of order or out of range (prev end %#x, heap end %#x)", off, end, h.end)
			break
		}

		b := layout.At(h.mem, off)
		more := true
		if b.Prev() != prev {
			more = fail("block %#x prev link %#x, want %#x", off, b.Prev(), prev)
		}
		if size := b.Size(); size < layout.MinPayload || !layout.IsAligned(size) || b.End() > h.end {
			fail("block %#x has bad size %d", off, size)
			break
		}
		if b.Owner() != h.cfg.ID {
			more = fail("block %#x owned by %d, want %d", off, b.Owner(), h.cfg.ID)
		}

		st := b.State()
		switch st {
		case layout.StateAllocated:
			if h.cfg.Guard && b.Guard() != layout.GuardMagic {
				more = fail("allocated block %#x has guard %#x", off, b.Guard())
			}
			if _, in := indexed[off]; in {
				more = fail("allocated block %#x is in the free index", off)
			}
			if quick[off] {
				more = fail("allocated block %#x is on the quick list", off)
			}
		case layout.StateFree:
			freeBlocks++
			free += b.Span()
			if size, in := indexed[off]; !in {
				more = fail("free block %#x missing from the free index", off)
			} else if size != b.Size() {
				more = fail("free block %#x indexed with size %d, header says %d", off, size, b.Size())
			}
			if prevFreeAdj {
				more = fail("free block %#x follows a contiguous free block", off)
			}
		case layout.StateQuick:
			quickBlocks++
			free += b.Span()
			if !quick[off] {
				more = fail("quick block %#x missing from the quick list", off)
			}
			if h.quick == nil || b.Size() != h.quick.size {
				more = fail("quick block %#x has size %d", off, b.Size())
			}
		default:
			more = fail("block %#x has invalid state %d", off, uint8(st))
		}
		if !more {
			break
		}

		prevFreeAdj = st == layout.StateFree && b.Adjacent(b.Next())
		spans += b.Span()
		prev, last, end = off, off, b.End()
	}

	if len(errs) < maxViolations {
		if last != h.tail {
			fail("tail is %#x, chain ends at %#x", h.tail, last)
		}
		if spans != h.total {
			fail("blocks span %d bytes, heap obtained %d", spans, h.total)
		}
		if free != h.free {
			fail("free blocks span %d bytes, counter says %d", free, h.free)
		}
		if h.free < 0 || h.free > h.total {
			fail("free bytes %d outside [0, %d]", h.free, h.total)
		}
		if freeBlocks != h.index.len() {
			fail("%d free blocks in chain, %d in index", freeBlocks, h.index.len())
		}
		if quickBlocks != h.quick.len() {
			fail("%d quick blocks in chain, %d on list", quickBlocks, h.quick.len())
		}
	}
	return errors.Join(errs...)
}
