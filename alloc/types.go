package alloc

import (
	"fmt"
	"strings"

	"github.com/joshuapare/heapkit/internal/layout"
)

// Ptr is a payload offset within the heap source.
type Ptr = layout.Ptr

// Nil is the pointer that never refers to a payload.
const Nil = layout.Nil

// MaxAlloc is the largest payload a single request may ask for.
const MaxAlloc = 1 << 48

// Strategy selects how a free block is chosen for a request.
type Strategy uint8

const (
	// FirstFit takes the first qualifying block the index reaches.
	FirstFit Strategy = iota
	// BestFit takes the smallest qualifying block.
	BestFit
)

func (s Strategy) String() string {
	switch s {
	case FirstFit:
		return "first-fit"
	case BestFit:
		return "best-fit"
	default:
		return fmt.Sprintf("Strategy(%d)", uint8(s))
	}
}

// ParseStrategy accepts "ff", "first", "first-fit", "bf", "best" and "best-fit".
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ff", "first", "first-fit", "firstfit":
		return FirstFit, nil
	case "bf", "best", "best-fit", "bestfit":
		return BestFit, nil
	}
	return 0, fmt.Errorf("alloc: unknown strategy %q", s)
}

// IndexKind selects the general free index of a heap.
type IndexKind uint8

const (
	// IndexTree is the AVL tree index.
	IndexTree IndexKind = iota
	// IndexList is the address-ordered list index.
	IndexList
)

func (k IndexKind) String() string {
	switch k {
	case IndexTree:
		return "tree"
	case IndexList:
		return "list"
	default:
		return fmt.Sprintf("IndexKind(%d)", uint8(k))
	}
}

// ParseIndexKind accepts "tree"/"avl" and "list"/"addr".
func ParseIndexKind(s string) (IndexKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tree", "avl":
		return IndexTree, nil
	case "list", "addr", "address":
		return IndexList, nil
	}
	return 0, fmt.Errorf("alloc: unknown index %q", s)
}

// Allocator is the surface shared by a Heap and its concurrent wrappers.
type Allocator interface {
	Alloc(size int, s Strategy) (Ptr, error)
	Free(p Ptr) error
	TotalBytes() int64
	FreeBytes() int64
}
