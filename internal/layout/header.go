package layout

import (
	"errors"
	"fmt"
)

var (
	// ErrNilPtr indicates the nil payload pointer.
	ErrNilPtr = errors.New("layout: nil pointer")
	// ErrOutOfBounds indicates a pointer whose header or payload lies outside the region.
	ErrOutOfBounds = errors.New("layout: pointer out of bounds")
	// ErrMisaligned indicates a pointer that is not a multiple of Alignment.
	ErrMisaligned = errors.New("layout: misaligned pointer")
)

// Ptr is a payload address expressed as a byte offset into the heap region.
// Payloads always start after a header, so the zero value never refers to a
// live block and serves as the nil pointer.
type Ptr uint64

// Nil is the failure / absent pointer.
const Nil Ptr = 0

// PayloadOf returns the payload pointer of the block whose header is at off.
func PayloadOf(off int64) Ptr {
	return Ptr(off + HeaderSize)
}

// HeaderOf converts a payload pointer back to its header offset, checking that
// the header and at least MinPayload bytes of payload lie below brk.
func HeaderOf(p Ptr, brk int64) (int64, error) {
	if p == Nil {
		return 0, ErrNilPtr
	}
	if p&AlignmentMask != 0 {
		return 0, fmt.Errorf("%w: 0x%X", ErrMisaligned, uint64(p))
	}
	if p < HeaderSize || brk < HeaderSize+MinPayload || uint64(p) > uint64(brk-MinPayload) {
		return 0, fmt.Errorf("%w: 0x%X (break 0x%X)", ErrOutOfBounds, uint64(p), brk)
	}
	return int64(p) - HeaderSize, nil
}

// Block is a view over the header at Off inside mem. It holds no state of its
// own; every accessor reads or writes mem directly.
type Block struct {
	mem []byte
	Off int64
}

// At returns the block view for the header at off.
func At(mem []byte, off int64) Block {
	return Block{mem: mem, Off: off}
}

// Init writes a complete header. The guard is set for allocated blocks and
// cleared otherwise.
func (b Block) Init(size int64, st State, owner uint16, prev, next int64) {
	putU64(b.mem, b.Off+sizeOffset, uint64(size))
	b.mem[b.Off+stateOffset+1] = 0
	putU16(b.mem, b.Off+ownerOffset, owner)
	b.SetState(st)
	putI64(b.mem, b.Off+prevOffset, prev)
	putI64(b.mem, b.Off+nextOffset, next)
}

// Size returns the payload size.
func (b Block) Size() int64 { return int64(readU64(b.mem, b.Off+sizeOffset)) }

// SetSize sets the payload size.
func (b Block) SetSize(n int64) { putU64(b.mem, b.Off+sizeOffset, uint64(n)) }

// State returns the allocation state.
func (b Block) State() State { return State(b.mem[b.Off+stateOffset]) }

// SetState sets the allocation state and keeps the guard consistent with it.
func (b Block) SetState(st State) {
	b.mem[b.Off+stateOffset] = byte(st)
	if st == StateAllocated {
		putU32(b.mem, b.Off+guardOffset, GuardMagic)
	} else {
		putU32(b.mem, b.Off+guardOffset, 0)
	}
}

// Owner returns the id of the heap instance the block belongs to.
func (b Block) Owner() uint16 { return readU16(b.mem, b.Off+ownerOffset) }

// Guard returns the raw guard word.
func (b Block) Guard() uint32 { return readU32(b.mem, b.Off+guardOffset) }

// Prev returns the previous block in the physical chain, or NoBlock.
func (b Block) Prev() int64 { return readI64(b.mem, b.Off+prevOffset) }

// SetPrev sets the previous-block link.
func (b Block) SetPrev(off int64) { putI64(b.mem, b.Off+prevOffset, off) }

// Next returns the next block in the physical chain, or NoBlock.
func (b Block) Next() int64 { return readI64(b.mem, b.Off+nextOffset) }

// SetNext sets the next-block link.
func (b Block) SetNext(off int64) { putI64(b.mem, b.Off+nextOffset, off) }

// Span returns header plus payload size.
func (b Block) Span() int64 { return HeaderSize + b.Size() }

// End returns the offset one past the last payload byte.
func (b Block) End() int64 { return b.Off + b.Span() }

// Payload returns the payload pointer.
func (b Block) Payload() Ptr { return PayloadOf(b.Off) }

// Bytes returns the payload as a slice with len == cap == Size().
func (b Block) Bytes() []byte {
	start := b.Off + HeaderSize
	end := start + b.Size()
	return b.mem[start:end:end]
}

// Adjacent reports whether next starts exactly where b ends.
func (b Block) Adjacent(next int64) bool {
	return next != NoBlock && b.End() == next
}
