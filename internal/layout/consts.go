// Package layout houses the on-heap block header codec. Every block in a heap
// region starts with a fixed-size header followed by its payload; this package
// is the only place that converts between header and payload offsets or reads
// header fields, so the rest of the module never does raw offset arithmetic.
package layout

const (
	// HeaderSize is the size of the block header in bytes.
	//
	// Header layout (little-endian):
	//
	//	Offset  Size  Description
	//	0x00    8     Payload size in bytes (multiple of Alignment, excludes header)
	//	0x08    1     State (StateAllocated, StateFree, StateQuick)
	//	0x09    1     Reserved, always zero
	//	0x0A    2     Owning heap id
	//	0x0C    4     Guard magic (GuardMagic while allocated, 0 otherwise)
	//	0x10    8     Offset of the previous block in the physical chain (NoBlock if none)
	//	0x18    8     Offset of the next block in the physical chain (NoBlock if none)
	//	0x20    ...   Payload
	HeaderSize = 0x20

	// Alignment is the payload alignment. Every payload size is a multiple of it,
	// and because the header is too, every payload offset is aligned as well.
	Alignment     = 8
	AlignmentMask = Alignment - 1

	// MinPayload is the smallest payload a block may carry. A split that would
	// leave a remainder smaller than HeaderSize+MinPayload is not performed.
	MinPayload = 8

	// MinBlockSize is the smallest total block size (header + MinPayload).
	MinBlockSize = HeaderSize + MinPayload

	// GuardMagic is written into allocated headers so release can reject
	// pointers that do not refer to a live block.
	GuardMagic uint32 = 0xBADF00D

	// NoBlock terminates the physical chain.
	NoBlock int64 = -1
)

// Field offsets within the header.
const (
	sizeOffset  = 0x00
	stateOffset = 0x08
	ownerOffset = 0x0A
	guardOffset = 0x0C
	prevOffset  = 0x10
	nextOffset  = 0x18
)

// State is the allocation state stored in a block header.
type State uint8

const (
	// StateAllocated marks a block handed out to a caller.
	StateAllocated State = 0
	// StateFree marks a block held by the general free index.
	StateFree State = 1
	// StateQuick marks a free block parked in the exact-size quick list.
	// Quick blocks count as free but are never coalesced while parked.
	StateQuick State = 2
)

// IsFree reports whether the state is one of the free states.
func (s State) IsFree() bool { return s == StateFree || s == StateQuick }

func (s State) String() string {
	switch s {
	case StateAllocated:
		return "allocated"
	case StateFree:
		return "free"
	case StateQuick:
		return "quick"
	default:
		return "invalid"
	}
}
