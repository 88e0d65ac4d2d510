package alloc

import "errors"

var (
	// ErrZeroSize indicates a request for zero (or negative) bytes.
	ErrZeroSize = errors.New("alloc: zero-size request")

	// ErrTooLarge indicates a request above MaxAlloc.
	ErrTooLarge = errors.New("alloc: request exceeds maximum block size")

	// ErrNoSpace indicates that no free block was large enough and growth failed.
	ErrNoSpace = errors.New("alloc: out of memory")

	// ErrBadRef indicates a pointer that does not refer to a live block of this heap.
	ErrBadRef = errors.New("alloc: bad block reference")

	// ErrCorrupt is wrapped by every violation Check reports.
	ErrCorrupt = errors.New("alloc: heap corrupt")
)
