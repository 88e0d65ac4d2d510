package arena

import (
	"sync"

	"github.com/joshuapare/heapkit/alloc"
	"github.com/joshuapare/heapkit/heap"
)

// Locked serialises every operation on a single heap behind one mutex.
type Locked struct {
	mu sync.Mutex
	h  *alloc.Heap
}

// NewLocked creates a global-lock allocator over src.
func NewLocked(src heap.Source, cfg *alloc.Config) (*Locked, error) {
	h, err := alloc.New(src, cfg)
	if err != nil {
		return nil, err
	}
	return &Locked{h: h}, nil
}

func (l *Locked) Alloc(size int, s alloc.Strategy) (alloc.Ptr, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.h.Alloc(size, s)
}

func (l *Locked) Free(p alloc.Ptr) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.h.Free(p)
}

// Bytes returns the payload of a live allocation, or nil.
func (l *Locked) Bytes(p alloc.Ptr) []byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.h.Bytes(p)
}

func (l *Locked) TotalBytes() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.h.TotalBytes()
}

func (l *Locked) FreeBytes() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.h.FreeBytes()
}

// Check runs the heap's invariant walk under the lock.
func (l *Locked) Check() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.h.Check()
}

// Stats returns a snapshot of the heap's counters.
func (l *Locked) Stats() alloc.Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.h.Stats()
}

// Worker returns l itself; every goroutine shares the one heap.
func (l *Locked) Worker() alloc.Allocator { return l }
