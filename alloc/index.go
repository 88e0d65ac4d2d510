package alloc

// freeIndex tracks the free blocks of a heap by header offset and payload size.
// An entry is present exactly while its block is in StateFree.
type freeIndex interface {
	insert(off, size int64)
	// remove reports whether the entry was present.
	remove(off, size int64) bool
	firstFit(need int64) (off, size int64, ok bool)
	bestFit(need int64) (off, size int64, ok bool)
	len() int
	// each visits entries until fn returns false.
	each(fn func(off, size int64) bool)
}

func newIndex(kind IndexKind) freeIndex {
	if kind == IndexList {
		return newAddrList()
	}
	return newAVLTree()
}
