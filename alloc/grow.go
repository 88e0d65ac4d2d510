package alloc

import (
	"fmt"

	"github.com/joshuapare/heapkit/internal/layout"
)

// growSize returns how many bytes to request for a payload of need bytes.
func (h *Heap) growSize(need int64) int64 {
	want := layout.HeaderSize + need
	if h.cfg.GrowExact {
		return want
	}
	return max(h.cfg.GrowUnit, layout.AlignUp(want, h.pageSize))
}

// grow extends the source and returns a new allocated block of need bytes
// at the start of the new chunk. A surplus large enough for a block of its
// own is split off and indexed, otherwise it is absorbed into the block.
// On failure nothing is written and accounting is unchanged.
func (h *Heap) grow(need int64) (layout.Block, error) {
	want := layout.HeaderSize + need
	req := h.growSize(need)

	if h.onGrow != nil {
		h.onGrow(req)
	}

	off, err := h.src.Extend(req)
	if err != nil && req > want {
		// The rounded request may not fit where the exact one still does.
		h.log.Debug("rounded growth failed, retrying exact", "req", req, "want", want, "err", err)
		req = want
		off, err = h.src.Extend(req)
	}
	if err != nil {
		h.stats.GrowFailures++
		h.log.Warn("heap exhausted", "need", need, "total", h.total, "err", err)
		return layout.Block{}, fmt.Errorf("%w: %w", ErrNoSpace, err)
	}

	h.total += req
	h.end = off + req
	h.stats.GrowCalls++
	h.stats.GrowBytes += req

	b := layout.At(h.mem, off)
	b.Init(req-layout.HeaderSize, layout.StateAllocated, h.cfg.ID, h.tail, layout.NoBlock)
	h.link(off)
	h.split(b, need)

	h.log.Debug("grew heap",
		"off", off,
		"bytes", req,
		"need", need,
		"surplus", req-want,
		"total", h.total,
	)
	return b, nil
}
