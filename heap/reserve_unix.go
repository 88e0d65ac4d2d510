//go:build linux || darwin

package heap

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// Reserved is a Source backed by an anonymous mapping. The whole limit is
// reserved up front as PROT_NONE and pages are made readable and writable with
// mprotect as the break advances, which mirrors how sbrk commits memory while
// keeping the base address fixed.
type Reserved struct {
	mem       []byte
	brk       int64
	committed int64
	page      int64
}

// NewReserved reserves limit bytes (rounded up to whole pages) of address space.
func NewReserved(limit int64) (*Reserved, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("heap: reserve limit must be positive, got %d", limit)
	}
	page := int64(unix.Getpagesize())
	size := (limit + page - 1) &^ (page - 1)
	if size > int64(^uint(0)>>1) {
		return nil, fmt.Errorf("heap: reservation too large (%d bytes)", size)
	}

	mem, err := unix.Mmap(-1, 0, int(size), unix.PROT_NONE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("heap: reserve %d bytes: %w", size, err)
	}
	return &Reserved{mem: mem, page: page}, nil
}

// Extend implements Source.
func (r *Reserved) Extend(n int64) (int64, error) {
	if r.mem == nil {
		return 0, ErrClosed
	}
	old := r.brk
	if n <= 0 {
		return old, nil
	}
	if n > int64(len(r.mem))-old {
		return 0, fmt.Errorf("%w: extend by %d at break %d (reserved %d)",
			ErrExhausted, n, old, len(r.mem))
	}

	newBrk := old + n
	if newBrk > r.committed {
		end := (newBrk + r.page - 1) &^ (r.page - 1)
		if end > int64(len(r.mem)) {
			end = int64(len(r.mem))
		}
		if err := unix.Mprotect(r.mem[r.committed:end], unix.PROT_READ|unix.PROT_WRITE); err != nil {
			return 0, fmt.Errorf("%w: commit [%d, %d): %w", ErrExhausted, r.committed, end, err)
		}
		r.committed = end
	}
	r.brk = newBrk
	return old, nil
}

// Break implements Source.
func (r *Reserved) Break() int64 { return r.brk }

// Mem implements Source.
func (r *Reserved) Mem() []byte { return r.mem }

// Committed returns how many bytes are currently mapped read/write.
func (r *Reserved) Committed() int64 { return r.committed }

// Close unmaps the reservation. Closing twice is a no-op.
func (r *Reserved) Close() error {
	if r.mem == nil {
		return nil
	}
	err := unix.Munmap(r.mem)
	r.mem = nil
	if errors.Is(err, unix.EINVAL) {
		return nil
	}
	return err
}
