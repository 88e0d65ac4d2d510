package arena

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/joshuapare/heapkit/alloc"
	"github.com/joshuapare/heapkit/heap"
)

// SharedID is the owner id of the pool's shared heap. Arenas use 1..n.
const SharedID = 0

// instance is one heap and the lock that guards it.
type instance struct {
	mu sync.Mutex
	h  *alloc.Heap
}

// Pool is a set of arena heaps over one source.
type Pool struct {
	src    heap.Source
	shared *instance
	arenas []*instance // arenas[i] has id i+1

	next atomic.Uint32
}

// NewPool creates n arenas plus the shared heap over src. n <= 0 uses
// GOMAXPROCS. src is wrapped with heap.Locked. cfg.ID is ignored.
func NewPool(src heap.Source, n int, cfg *alloc.Config) (*Pool, error) {
	if src == nil {
		return nil, errors.New("arena: nil source")
	}
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	if n >= math.MaxUint16 {
		return nil, fmt.Errorf("arena: %d arenas exceeds the owner id space", n)
	}
	if cfg == nil {
		cfg = &alloc.DefaultConfig
	}

	p := &Pool{src: heap.Locked(src)}
	for id, end := 0, n+1; id < end; id++ {
		c := *cfg
		c.ID = uint16(id)
		h, err := alloc.New(p.src, &c)
		if err != nil {
			return nil, fmt.Errorf("arena %d: %w", id, err)
		}
		inst := &instance{h: h}
		if id == SharedID {
			p.shared = inst
		} else {
			p.arenas = append(p.arenas, inst)
		}
	}
	return p, nil
}

// Len returns the number of arenas, excluding the shared heap.
func (p *Pool) Len() int { return len(p.arenas) }

// Source returns the locked source every heap of the pool grows into.
func (p *Pool) Source() heap.Source { return p.src }

// Acquire binds a handle to the next arena, round-robin. A handle is meant
// to stay with one goroutine.
func (p *Pool) Acquire() *Handle {
	i := int(p.next.Add(1)-1) % len(p.arenas)
	return &Handle{pool: p, arena: p.arenas[i]}
}

// Worker returns a freshly acquired handle.
func (p *Pool) Worker() alloc.Allocator { return p.Acquire() }

// Alloc allocates from the shared heap.
func (p *Pool) Alloc(size int, s alloc.Strategy) (alloc.Ptr, error) {
	return p.shared.alloc(size, s)
}

// Free releases p on whichever heap created it, under that heap's lock.
func (p *Pool) Free(ptr alloc.Ptr) error {
	if ptr == alloc.Nil {
		return nil
	}
	inst, err := p.owner(ptr)
	if err != nil {
		return err
	}
	return inst.free(ptr)
}

// Bytes returns the payload of a live allocation from any heap of the pool.
func (p *Pool) Bytes(ptr alloc.Ptr) []byte {
	buf, err := alloc.Payload(p.src, ptr)
	if err != nil {
		return nil
	}
	return buf
}

func (p *Pool) owner(ptr alloc.Ptr) (*instance, error) {
	id, err := alloc.OwnerOf(p.src, ptr)
	if err != nil {
		return nil, err
	}
	if id == SharedID {
		return p.shared, nil
	}
	if int(id) > len(p.arenas) {
		return nil, fmt.Errorf("%w: unknown owner %d", alloc.ErrBadRef, id)
	}
	return p.arenas[id-1], nil
}

// TotalBytes sums the bytes every heap has obtained from the source.
func (p *Pool) TotalBytes() int64 {
	var n int64
	p.each(func(inst *instance) { n += inst.h.TotalBytes() })
	return n
}

// FreeBytes sums the free bytes of every heap.
func (p *Pool) FreeBytes() int64 {
	var n int64
	p.each(func(inst *instance) { n += inst.h.FreeBytes() })
	return n
}

// Stats returns one snapshot per heap, shared heap first.
func (p *Pool) Stats() []alloc.Stats {
	out := make([]alloc.Stats, 0, len(p.arenas)+1)
	p.each(func(inst *instance) { out = append(out, inst.h.Stats()) })
	return out
}

// Check runs every heap's invariant walk and joins the failures.
func (p *Pool) Check() error {
	var errs []error
	p.each(func(inst *instance) {
		if err := inst.h.Check(); err != nil {
			errs = append(errs, fmt.Errorf("heap %d: %w", inst.h.ID(), err))
		}
	})
	return errors.Join(errs...)
}

// each visits the shared heap then every arena, each under its own lock.
func (p *Pool) each(fn func(*instance)) {
	for _, inst := range append([]*instance{p.shared}, p.arenas...) {
		inst.mu.Lock()
		fn(inst)
		inst.mu.Unlock()
	}
}

func (i *instance) alloc(size int, s alloc.Strategy) (alloc.Ptr, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.h.Alloc(size, s)
}

func (i *instance) free(p alloc.Ptr) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.h.Free(p)
}

// Handle allocates from one arena of a pool.
type Handle struct {
	pool  *Pool
	arena *instance
}

// ID returns the owner id of the handle's arena.
func (h *Handle) ID() uint16 { return h.arena.h.ID() }

func (h *Handle) Alloc(size int, s alloc.Strategy) (alloc.Ptr, error) {
	return h.arena.alloc(size, s)
}

// Free releases p on its owning arena, which need not be this handle's.
func (h *Handle) Free(p alloc.Ptr) error { return h.pool.Free(p) }

// Bytes returns the payload of a live allocation.
func (h *Handle) Bytes(p alloc.Ptr) []byte { return h.pool.Bytes(p) }

// TotalBytes reports the handle's arena only.
func (h *Handle) TotalBytes() int64 {
	h.arena.mu.Lock()
	defer h.arena.mu.Unlock()
	return h.arena.h.TotalBytes()
}

// FreeBytes reports the handle's arena only.
func (h *Handle) FreeBytes() int64 {
	h.arena.mu.Lock()
	defer h.arena.mu.Unlock()
	return h.arena.h.FreeBytes()
}
