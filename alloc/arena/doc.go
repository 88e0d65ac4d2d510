// Package arena makes alloc heaps usable from many goroutines.
//
// Locked is the simple design: one heap behind one mutex.
//
// Pool is the arena design: a shared heap plus n arena heaps, all growing
// into one source whose growth is serialised by heap.Locked. A goroutine
// acquires a Handle and allocates from that handle's arena, so goroutines on
// different arenas never contend. Every header records the id of the heap
// that created it, and Pool.Free routes a pointer back to its owning arena
// under that arena's lock, so a block allocated on one goroutine may be
// released on any other.
//
// Blocks only ever merge with physically contiguous neighbours of the same
// heap. Chunks of different arenas interleave in the source, so an arena's
// physical chain may skip over memory that belongs to another arena.
package arena
