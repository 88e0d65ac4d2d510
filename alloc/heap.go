package alloc

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/joshuapare/heapkit/heap"
	"github.com/joshuapare/heapkit/internal/layout"
)

// Heap is a single allocator instance. It owns every block it creates in its
// source, even when other heaps grow into the same source.
type Heap struct {
	src heap.Source
	mem []byte
	cfg Config
	log *slog.Logger

	// General free index plus the optional exact-size quick list
	index freeIndex
	quick *quickList

	// Physical chain ends, layout.NoBlock while empty
	head, tail int64

	// end is the end offset of the last chunk obtained from the source
	end int64

	// Accounting, headers included
	total int64
	free  int64

	pageSize  int64
	sizeTable *sizeClassTable

	// Statistics for testing and instrumentation
	stats allocatorStats

	// Test hook: called before each growth with the requested byte count
	onGrow func(int64)
}

// New creates an empty heap over src. Nothing is requested from the source
// until the first allocation.
func New(src heap.Source, cfg *Config) (*Heap, error) {
	if src == nil {
		return nil, errors.New("alloc: nil source")
	}
	if cfg == nil {
		cfg = &DefaultConfig
	}
	if cfg.Index != IndexTree && cfg.Index != IndexList {
		return nil, fmt.Errorf("alloc: unknown index kind %d", cfg.Index)
	}

	page := int64(heap.PageSize())
	c := cfg.normalize(page)
	h := &Heap{
		src:       src,
		mem:       src.Mem(),
		cfg:       c,
		log:       c.logger().With("heap", c.ID),
		index:     newIndex(c.Index),
		quick:     newQuickList(c.QuickSize),
		head:      layout.NoBlock,
		tail:      layout.NoBlock,
		pageSize:  page,
		sizeTable: newSizeClassTable(c.Classes),
	}
	return h, nil
}

// ID returns the owner id written into this heap's headers.
func (h *Heap) ID() uint16 { return h.cfg.ID }

// TotalBytes returns the bytes this heap has obtained from its source.
func (h *Heap) TotalBytes() int64 { return h.total }

// FreeBytes returns the bytes held by free and quick-listed blocks,
// headers included.
func (h *Heap) FreeBytes() int64 { return h.free }

// Alloc returns a pointer to at least size usable bytes.
func (h *Heap) Alloc(size int, s Strategy) (Ptr, error) {
	h.stats.AllocCalls++
	if size <= 0 {
		h.stats.ZeroSize++
		return Nil, ErrZeroSize
	}
	if int64(size) > MaxAlloc {
		return Nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, size)
	}
	need := layout.Align8(int64(size))

	// Fast path: exact-size quick list
	if h.quick != nil && need == h.quick.size {
		if off, ok := h.quick.pop(); ok {
			b := layout.At(h.mem, off)
			b.SetState(layout.StateAllocated)
			h.free -= b.Span()
			h.stats.QuickHits++
			h.stats.BytesAllocated += b.Span()
			return b.Payload(), nil
		}
	}

	off, ok := h.find(need, s)
	if !ok && h.quick.len() > 0 {
		h.consolidate()
		off, ok = h.find(need, s)
	}
	if ok {
		h.stats.AllocFastPath++
		b := h.take(off, need)
		h.stats.BytesAllocated += b.Span()
		return b.Payload(), nil
	}

	b, err := h.grow(need)
	if err != nil {
		return Nil, err
	}
	h.stats.AllocSlowPath++
	h.stats.BytesAllocated += b.Span()
	return b.Payload(), nil
}

// Free releases a block obtained from Alloc. Freeing Nil and freeing an
// already free block are no-ops. A pointer that fails validation returns
// ErrBadRef and leaves the heap untouched.
func (h *Heap) Free(p Ptr) error {
	h.stats.FreeCalls++
	if p == Nil {
		return nil
	}
	b, err := h.lookup(p)
	if err != nil {
		h.stats.BadRefs++
		h.log.Warn("rejected free", "ptr", uint64(p), "err", err)
		return err
	}
	if b.State().IsFree() {
		h.stats.DoubleFrees++
		h.log.Debug("double free ignored", "ptr", uint64(p), "state", b.State())
		return nil
	}

	span := b.Span()
	h.free += span
	h.stats.BytesFreed += span

	if h.quick != nil && b.Size() == h.quick.size {
		b.SetState(layout.StateQuick)
		h.quick.push(b.Off)
		return nil
	}

	b.SetState(layout.StateFree)
	b = h.coalesce(b)
	h.index.insert(b.Off, b.Size())
	return nil
}

// lookup validates p and returns its header. Free blocks pass so the caller
// can treat them as a double free.
func (h *Heap) lookup(p Ptr) (layout.Block, error) {
	off, err := layout.HeaderOf(p, h.end)
	if err != nil {
		return layout.Block{}, fmt.Errorf("%w: %w", ErrBadRef, err)
	}
	b := layout.At(h.mem, off)
	switch st := b.State(); st {
	case layout.StateAllocated:
		if h.cfg.Guard && b.Guard() != layout.GuardMagic {
			return layout.Block{}, fmt.Errorf("%w: guard mismatch at %#x", ErrBadRef, off)
		}
	case layout.StateFree, layout.StateQuick:
	default:
		return layout.Block{}, fmt.Errorf("%w: invalid state %d at %#x", ErrBadRef, uint8(st), off)
	}
	if h.cfg.Guard && b.Owner() != h.cfg.ID {
		return layout.Block{}, fmt.Errorf("%w: owned by heap %d", ErrBadRef, b.Owner())
	}
	if b.Size() < layout.MinPayload || b.End() > h.end {
		return layout.Block{}, fmt.Errorf("%w: size %d out of range at %#x", ErrBadRef, b.Size(), off)
	}
	return b, nil
}

// Owns reports whether p is a live allocation of this heap.
func (h *Heap) Owns(p Ptr) bool {
	if p == Nil {
		return false
	}
	b, err := h.lookup(p)
	return err == nil && b.State() == layout.StateAllocated && b.Owner() == h.cfg.ID
}

// Bytes returns the usable payload of a live allocation, or nil if p is not one.
func (h *Heap) Bytes(p Ptr) []byte {
	b, err := h.lookup(p)
	if err != nil || b.State() != layout.StateAllocated {
		return nil
	}
	return b.Bytes()
}

// UsableSize returns the payload size of a live allocation, or 0.
func (h *Heap) UsableSize(p Ptr) int {
	return len(h.Bytes(p))
}

func (h *Heap) find(need int64, s Strategy) (int64, bool) {
	var (
		off int64
		ok  bool
	)
	if s == FirstFit {
		off, _, ok = h.index.firstFit(need)
	} else {
		off, _, ok = h.index.bestFit(need)
	}
	return off, ok
}

// OwnerOf reads the owner id of the block behind p without taking any heap
// lock. p is bounds-checked against the source's current break only.
func OwnerOf(src heap.Source, p Ptr) (uint16, error) {
	off, err := layout.HeaderOf(p, src.Break())
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrBadRef, err)
	}
	return layout.At(src.Mem(), off).Owner(), nil
}

// Payload returns the payload of the live block behind p without taking any
// heap lock. The block must stay allocated while the slice is in use.
func Payload(src heap.Source, p Ptr) ([]byte, error) {
	off, err := layout.HeaderOf(p, src.Break())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadRef, err)
	}
	b := layout.At(src.Mem(), off)
	if b.State() != layout.StateAllocated || b.End() > src.Break() {
		return nil, fmt.Errorf("%w: no live block at %#x", ErrBadRef, off)
	}
	return b.Bytes(), nil
}
