package alloc

// listNode is one free block in address order.
type listNode struct {
	off, size  int64
	prev, next *listNode
}

// addrList keeps free blocks sorted by ascending header offset. byOff gives
// O(1) removal; insert walks to the insertion point.
type addrList struct {
	head, tail *listNode
	byOff      map[int64]*listNode
}

func newAddrList() *addrList {
	return &addrList{byOff: make(map[int64]*listNode)}
}

func (l *addrList) len() int { return len(l.byOff) }

func (l *addrList) insert(off, size int64) {
	node := &listNode{off: off, size: size}
	l.byOff[off] = node

	// Growth appends at the top of the heap, so check the tail first.
	if l.tail == nil || l.tail.off < off {
		node.prev = l.tail
		if l.tail != nil {
			l.tail.next = node
		} else {
			l.head = node
		}
		l.tail = node
		return
	}

	at := l.head
	for at.off < off {
		at = at.next
	}
	node.next = at
	node.prev = at.prev
	if at.prev != nil {
		at.prev.next = node
	} else {
		l.head = node
	}
	at.prev = node
}

func (l *addrList) remove(off, size int64) bool {
	node, ok := l.byOff[off]
	if !ok || node.size != size {
		return false
	}
	delete(l.byOff, off)
	if node.prev != nil {
		node.prev.next = node.next
	} else {
		l.head = node.next
	}
	if node.next != nil {
		node.next.prev = node.prev
	} else {
		l.tail = node.prev
	}
	return true
}

// firstFit returns the lowest-addressed block with size >= need.
func (l *addrList) firstFit(need int64) (int64, int64, bool) {
	for n := l.head; n != nil; n = n.next {
		if n.size >= need {
			return n.off, n.size, true
		}
	}
	return 0, 0, false
}

// bestFit scans the whole list for the smallest fit, stopping early on an
// exact match. Ties go to the lowest address.
func (l *addrList) bestFit(need int64) (int64, int64, bool) {
	var best *listNode
	for n := l.head; n != nil; n = n.next {
		if n.size < need {
			continue
		}
		if n.size == need {
			return n.off, n.size, true
		}
		if best == nil || n.size < best.size {
			best = n
		}
	}
	if best == nil {
		return 0, 0, false
	}
	return best.off, best.size, true
}

// each visits entries in ascending address order.
func (l *addrList) each(fn func(off, size int64) bool) {
	for n := l.head; n != nil; n = n.next {
		if !fn(n.off, n.size) {
			return
		}
	}
}
