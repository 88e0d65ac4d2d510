package alloc

import (
	"fmt"
	"io"

	"github.com/joshuapare/heapkit/internal/layout"
)

// allocatorStats holds internal allocator counters.
type allocatorStats struct {
	GrowCalls        int   // Successful source extensions
	GrowBytes        int64 // Bytes added by growth
	GrowFailures     int   // Extensions the source refused
	AllocCalls       int   // Total Alloc() calls
	AllocFastPath    int   // Served from the free index
	AllocSlowPath    int   // Required growth
	QuickHits        int   // Served from the quick list
	FreeCalls        int   // Total Free() calls
	DoubleFrees      int   // Frees of already free blocks
	BadRefs          int   // Frees rejected by validation
	ZeroSize         int   // Zero-size requests
	BytesAllocated   int64 // Spans handed out, headers included
	BytesFreed       int64 // Spans released, headers included
	SplitCount       int   // Block splits
	AbsorbCount      int   // Remainders too small to split
	CoalesceForward  int   // Merges with the physical successor
	CoalesceBackward int   // Merges with the physical predecessor
	Consolidations   int   // Quick list drains
}

// Stats is a point-in-time snapshot of a heap.
type Stats struct {
	ID         uint16 `json:"id"`
	Index      string `json:"index"`
	TotalBytes int64  `json:"total_bytes"`
	FreeBytes  int64  `json:"free_bytes"`

	FreeBlocks  int   `json:"free_blocks"`
	QuickBlocks int   `json:"quick_blocks"`
	LargestFree int64 `json:"largest_free"`

	GrowCalls        int   `json:"grow_calls"`
	GrowBytes        int64 `json:"grow_bytes"`
	GrowFailures     int   `json:"grow_failures"`
	AllocCalls       int   `json:"alloc_calls"`
	AllocFastPath    int   `json:"alloc_fast_path"`
	AllocSlowPath    int   `json:"alloc_slow_path"`
	QuickHits        int   `json:"quick_hits"`
	FreeCalls        int   `json:"free_calls"`
	DoubleFrees      int   `json:"double_frees"`
	BadRefs          int   `json:"bad_refs"`
	ZeroSize         int   `json:"zero_size"`
	BytesAllocated   int64 `json:"bytes_allocated"`
	BytesFreed       int64 `json:"bytes_freed"`
	SplitCount       int   `json:"splits"`
	AbsorbCount      int   `json:"absorbed"`
	CoalesceForward  int   `json:"coalesce_forward"`
	CoalesceBackward int   `json:"coalesce_backward"`
	Consolidations   int   `json:"consolidations"`
}

// Fragmentation returns free bytes as a fraction of total bytes.
func (s Stats) Fragmentation() float64 {
	if s.TotalBytes == 0 {
		return 0
	}
	return float64(s.FreeBytes) / float64(s.TotalBytes)
}

// Merge adds o's counters into s. ID and Index are kept from s.
func (s Stats) Merge(o Stats) Stats {
	s.TotalBytes += o.TotalBytes
	s.FreeBytes += o.FreeBytes
	s.FreeBlocks += o.FreeBlocks
	s.QuickBlocks += o.QuickBlocks
	s.LargestFree = max(s.LargestFree, o.LargestFree)
	s.GrowCalls += o.GrowCalls
	s.GrowBytes += o.GrowBytes
	s.GrowFailures += o.GrowFailures
	s.AllocCalls += o.AllocCalls
	s.AllocFastPath += o.AllocFastPath
	s.AllocSlowPath += o.AllocSlowPath
	s.QuickHits += o.QuickHits
	s.FreeCalls += o.FreeCalls
	s.DoubleFrees += o.DoubleFrees
	s.BadRefs += o.BadRefs
	s.ZeroSize += o.ZeroSize
	s.BytesAllocated += o.BytesAllocated
	s.BytesFreed += o.BytesFreed
	s.SplitCount += o.SplitCount
	s.AbsorbCount += o.AbsorbCount
	s.CoalesceForward += o.CoalesceForward
	s.CoalesceBackward += o.CoalesceBackward
	s.Consolidations += o.Consolidations
	return s
}

// Stats returns a snapshot of the heap's counters.
func (h *Heap) Stats() Stats {
	c := h.stats
	s := Stats{
		ID:               h.cfg.ID,
		Index:            h.cfg.Index.String(),
		TotalBytes:       h.total,
		FreeBytes:        h.free,
		FreeBlocks:       h.index.len(),
		QuickBlocks:      h.quick.len(),
		GrowCalls:        c.GrowCalls,
		GrowBytes:        c.GrowBytes,
		GrowFailures:     c.GrowFailures,
		AllocCalls:       c.AllocCalls,
		AllocFastPath:    c.AllocFastPath,
		AllocSlowPath:    c.AllocSlowPath,
		QuickHits:        c.QuickHits,
		FreeCalls:        c.FreeCalls,
		DoubleFrees:      c.DoubleFrees,
		BadRefs:          c.BadRefs,
		ZeroSize:         c.ZeroSize,
		BytesAllocated:   c.BytesAllocated,
		BytesFreed:       c.BytesFreed,
		SplitCount:       c.SplitCount,
		AbsorbCount:      c.AbsorbCount,
		CoalesceForward:  c.CoalesceForward,
		CoalesceBackward: c.CoalesceBackward,
		Consolidations:   c.Consolidations,
	}
	h.index.each(func(_, size int64) bool {
		s.LargestFree = max(s.LargestFree, size)
		return true
	})
	if s.QuickBlocks > 0 {
		s.LargestFree = max(s.LargestFree, h.quick.size)
	}
	return s
}

// ClassCount is one bucket of FreeHistogram.
type ClassCount struct {
	// Upper is the inclusive payload bound, -1 for the overflow bucket.
	Upper  int64 `json:"upper"`
	Blocks int   `json:"blocks"`
	Bytes  int64 `json:"bytes"`
}

// FreeHistogram buckets the free and quick-listed blocks by payload size
// using Config.Classes. Empty buckets are omitted.
func (h *Heap) FreeHistogram() []ClassCount {
	counts := make([]ClassCount, h.sizeTable.numClasses()+1)
	add := func(size int64) {
		c := &counts[h.sizeTable.class(size)]
		c.Blocks++
		c.Bytes += layout.HeaderSize + size
	}
	h.index.each(func(_, size int64) bool {
		add(size)
		return true
	})
	for i, n := 0, h.quick.len(); i < n; i++ {
		add(h.quick.size)
	}

	out := counts[:0]
	for i, c := range counts {
		if c.Blocks == 0 {
			continue
		}
		c.Upper = h.sizeTable.upper(i)
		out = append(out, c)
	}
	return out
}

// PrintStats writes a human-readable report to w.
func (h *Heap) PrintStats(w io.Writer) {
	s := h.Stats()
	fmt.Fprintf(w, "\n=== HEAP %d STATISTICS ===\n", s.ID)
	fmt.Fprintf(w, "Index:              %s\n", s.Index)
	fmt.Fprintf(
		w,
		"Grow calls:         %d (%d KB added, %d failed)\n",
		s.GrowCalls,
		s.GrowBytes/1024,
		s.GrowFailures,
	)
	fmt.Fprintf(
		w,
		"Alloc calls:        %d (quick: %d, fast: %d, slow: %d)\n",
		s.AllocCalls,
		s.QuickHits,
		s.AllocFastPath,
		s.AllocSlowPath,
	)
	fmt.Fprintf(w, "Free calls:         %d (double: %d, rejected: %d)\n", s.FreeCalls, s.DoubleFrees, s.BadRefs)
	fmt.Fprintf(w, "Bytes allocated:    %d KB\n", s.BytesAllocated/1024)
	fmt.Fprintf(w, "Bytes freed:        %d KB\n", s.BytesFreed/1024)
	fmt.Fprintf(w, "Block splits:       %d (absorbed: %d)\n", s.SplitCount, s.AbsorbCount)
	fmt.Fprintf(w, "Coalesce fwd:       %d\n", s.CoalesceForward)
	fmt.Fprintf(w, "Coalesce back:      %d\n", s.CoalesceBackward)
	fmt.Fprintf(w, "Consolidations:     %d\n", s.Consolidations)

	fmt.Fprintf(w, "\nFragmentation:\n")
	fmt.Fprintf(w, "  Total bytes:      %d\n", s.TotalBytes)
	fmt.Fprintf(w, "  Free bytes:       %d\n", s.FreeBytes)
	fmt.Fprintf(w, "  Free blocks:      %d (+%d quick)\n", s.FreeBlocks, s.QuickBlocks)
	fmt.Fprintf(w, "  Largest free:     %d bytes\n", s.LargestFree)
	fmt.Fprintf(w, "  Free ratio:       %.1f%%\n", 100*s.Fragmentation())

	if hist := h.FreeHistogram(); len(hist) > 0 {
		fmt.Fprintf(w, "\nFree blocks by size (%s):\n", h.sizeTable)
		for _, c := range hist {
			if c.Upper < 0 {
				fmt.Fprintf(w, "  larger:           %4d blocks, %d bytes\n", c.Blocks, c.Bytes)
				continue
			}
			fmt.Fprintf(w, "  <= %-6d        %4d blocks, %d bytes\n", c.Upper, c.Blocks, c.Bytes)
		}
	}
	fmt.Fprintf(w, "============================\n\n")
}
