// Package alloc implements a general-purpose block allocator over a heap.Source.
//
// # Overview
//
// A Heap carves variable-sized blocks out of a region that only grows at its
// end. Every block starts with a fixed 32-byte header followed by its payload.
// Blocks form a physical chain in ascending address order. Free blocks are
// additionally tracked by a free index that answers first-fit and best-fit
// queries.
//
// # Free Index
//
// Two general index implementations are available:
//
//   - IndexTree: an AVL tree keyed on (size, offset). Best fit and first fit
//     are both a single root-to-leaf descent.
//   - IndexList: an address-ordered doubly linked list. Insert walks the list,
//     first fit returns the lowest-addressed fit.
//
// A quick list holds released blocks of exactly Config.QuickSize bytes. They
// are served LIFO without splitting or coalescing. Before the heap grows, the
// quick list is drained back into the general index and coalesced so growth
// never happens while reusable space exists.
//
// # Usage Example
//
//	src := heap.NewMemory(1 << 20)
//	h, err := alloc.New(src, nil)
//	if err != nil {
//	    return err
//	}
//
//	p, err := h.Alloc(200, alloc.BestFit)
//	if err != nil {
//	    return err
//	}
//	copy(h.Bytes(p), data)
//
//	// Later
//	err = h.Free(p)
//
// # Pointers
//
// A Ptr is the payload's byte offset within the source. The zero value is Nil
// and never refers to a payload, because the first payload sits after the
// first header.
//
// # Thread Safety
//
// A Heap is not safe for concurrent use. The arena package provides a
// global-lock wrapper and a pool of per-goroutine arenas.
//
// # Debugging
//
// Setting HEAPKIT_LOG_ALLOC in the environment routes the allocator's debug
// logging to stderr when no Logger is configured.
package alloc
