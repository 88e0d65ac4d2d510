// Package heap provides the heap sources an allocator grows into.
//
// A Source models the process break: a contiguous region that only ever grows
// at its end. Extend moves the break forward and returns where it used to be.
// The region's base never moves, so slices handed out over already-extended
// bytes stay valid for the lifetime of the source.
//
// Sources are not safe for concurrent use. Wrap one with Locked before sharing
// it between heap instances.
package heap

import (
	"errors"
	"sync"
	"sync/atomic"
)

var (
	// ErrExhausted indicates the source cannot extend any further.
	ErrExhausted = errors.New("heap: source exhausted")

	// ErrClosed indicates the source was used after Close.
	ErrClosed = errors.New("heap: source closed")
)

// Source is the growth primitive beneath an allocator.
type Source interface {
	// Extend grows the region by n bytes and returns the previous break.
	// On failure the break is unchanged. n <= 0 returns the current break.
	Extend(n int64) (oldBreak int64, err error)

	// Break returns the current end of the usable region.
	Break() int64

	// Mem returns a slice over the whole reservation. Only bytes below
	// Break() may be touched.
	Mem() []byte

	// Close releases the reservation. Slices obtained from Mem become invalid.
	Close() error
}

// lockedSource serialises Extend behind a dedicated mutex and publishes the
// break atomically so readers never contend with growth.
type lockedSource struct {
	mu  sync.Mutex
	src Source
	brk atomic.Int64
}

// Locked wraps src so that growth is serialised. It is idempotent.
func Locked(src Source) Source {
	if ls, ok := src.(*lockedSource); ok {
		return ls
	}
	ls := &lockedSource{src: src}
	ls.brk.Store(src.Break())
	return ls
}

func (l *lockedSource) Extend(n int64) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	old, err := l.src.Extend(n)
	if err == nil {
		l.brk.Store(l.src.Break())
	}
	return old, err
}

func (l *lockedSource) Break() int64 { return l.brk.Load() }

func (l *lockedSource) Mem() []byte { return l.src.Mem() }

func (l *lockedSource) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.Close()
}
