package alloc

import "github.com/joshuapare/heapkit/internal/layout"

// take removes the free block at off from the index, marks it allocated and
// splits off any usable remainder.
func (h *Heap) take(off, need int64) layout.Block {
	b := layout.At(h.mem, off)
	if !h.index.remove(off, b.Size()) {
		h.log.Error("free block missing from index", "off", off, "size", b.Size())
	}
	h.free -= b.Span()
	b.SetState(layout.StateAllocated)
	h.split(b, need)
	return b
}

// split shrinks b to need bytes when the remainder can hold a header plus the
// minimum payload. The remainder becomes a free block directly after b and is
// indexed. Otherwise b keeps the slack as internal fragmentation.
func (h *Heap) split(b layout.Block, need int64) {
	rem := b.Size() - need - layout.HeaderSize
	if rem < layout.MinPayload {
		if b.Size() > need {
			h.stats.AbsorbCount++
		}
		return
	}

	off := b.Off + layout.HeaderSize + need
	next := b.Next()
	r := layout.At(h.mem, off)
	r.Init(rem, layout.StateFree, h.cfg.ID, b.Off, next)
	if next != layout.NoBlock {
		layout.At(h.mem, next).SetPrev(off)
	} else {
		h.tail = off
	}
	b.SetNext(off)
	b.SetSize(need)

	h.index.insert(off, rem)
	h.free += r.Span()
	h.stats.SplitCount++
}

// coalesce merges b with its physical successor and predecessor when they are
// free and contiguous. b must already be in StateFree and not yet indexed.
// It returns the surviving block.
func (h *Heap) coalesce(b layout.Block) layout.Block {
	if next := b.Next(); b.Adjacent(next) {
		n := layout.At(h.mem, next)
		if n.State() == layout.StateFree {
			h.index.remove(n.Off, n.Size())
			h.absorb(b, n)
			h.stats.CoalesceForward++
		}
	}
	if prev := b.Prev(); prev != layout.NoBlock {
		p := layout.At(h.mem, prev)
		if p.State() == layout.StateFree && p.Adjacent(b.Off) {
			h.index.remove(p.Off, p.Size())
			h.absorb(p, b)
			h.stats.CoalesceBackward++
			return p
		}
	}
	return b
}

// absorb folds n, the physical successor of b, into b. Both spans were
// already counted free, so free bytes are unchanged.
func (h *Heap) absorb(b, n layout.Block) {
	b.SetSize(b.Size() + n.Span())
	next := n.Next()
	b.SetNext(next)
	if next != layout.NoBlock {
		layout.At(h.mem, next).SetPrev(b.Off)
	} else {
		h.tail = b.Off
	}
}

// consolidate drains the quick list into the general index, coalescing each
// block with any free neighbours.
func (h *Heap) consolidate() {
	n := 0
	for off, ok := h.quick.pop(); ok; off, ok = h.quick.pop() {
		b := layout.At(h.mem, off)
		b.SetState(layout.StateFree)
		b = h.coalesce(b)
		h.index.insert(b.Off, b.Size())
		n++
	}
	h.stats.Consolidations++
	h.log.Debug("quick list consolidated", "blocks", n, "indexed", h.index.len())
}

// link appends the block at off to the physical chain.
func (h *Heap) link(off int64) {
	if h.tail != layout.NoBlock {
		layout.At(h.mem, h.tail).SetNext(off)
	} else {
		h.head = off
	}
	h.tail = off
}
