package alloc

import "sync"

// avlNode is one free block in the tree. Nodes order by size, then offset, so
// equal sizes are placed deterministically and removal finds the exact block.
type avlNode struct {
	off, size   int64
	height      int8
	left, right *avlNode
}

// avlTree is a height-balanced tree of free blocks.
type avlTree struct {
	root *avlNode
	n    int

	// Pool for reusing nodes across insert/remove churn
	pool sync.Pool
}

func newAVLTree() *avlTree {
	return &avlTree{pool: sync.Pool{New: func() any { return new(avlNode) }}}
}

func keyLess(size, off int64, n *avlNode) bool {
	if size != n.size {
		return size < n.size
	}
	return off < n.off
}

func (t *avlTree) len() int { return t.n }

func (t *avlTree) insert(off, size int64) {
	t.root = t.insertAt(t.root, off, size)
	t.n++
}

func (t *avlTree) insertAt(n *avlNode, off, size int64) *avlNode {
	if n == nil {
		node := t.pool.Get().(*avlNode)
		*node = avlNode{off: off, size: size, height: 1}
		return node
	}
	if keyLess(size, off, n) {
		n.left = t.insertAt(n.left, off, size)
	} else {
		n.right = t.insertAt(n.right, off, size)
	}
	return rebalance(n)
}

func (t *avlTree) remove(off, size int64) bool {
	var found bool
	t.root, found = t.removeAt(t.root, off, size)
	if found {
		t.n--
	}
	return found
}

func (t *avlTree) removeAt(n *avlNode, off, size int64) (*avlNode, bool) {
	if n == nil {
		return nil, false
	}

	var found bool
	switch {
	case n.off == off && n.size == size:
		if n.left == nil || n.right == nil {
			child := n.left
			if child == nil {
				child = n.right
			}
			*n = avlNode{}
			t.pool.Put(n)
			return child, true
		}
		// Two children: take over the in-order successor's entry.
		succ := n.right
		for succ.left != nil {
			succ = succ.left
		}
		n.off, n.size = succ.off, succ.size
		n.right, _ = t.removeAt(n.right, succ.off, succ.size)
		found = true
	case keyLess(size, off, n):
		n.left, found = t.removeAt(n.left, off, size)
	default:
		n.right, found = t.removeAt(n.right, off, size)
	}

	if !found {
		return n, false
	}
	return rebalance(n), true
}

// bestFit returns the smallest block with size >= need. An exact size match
// ends the descent immediately.
func (t *avlTree) bestFit(need int64) (int64, int64, bool) {
	var best *avlNode
	for n := t.root; n != nil; {
		switch {
		case n.size == need:
			return n.off, n.size, true
		case n.size > need:
			best = n
			n = n.left
		default:
			n = n.right
		}
	}
	if best == nil {
		return 0, 0, false
	}
	return best.off, best.size, true
}

// firstFit returns the first node on the right spine that fits. If any block
// fits, the largest one lies on that spine, so the descent never misses.
func (t *avlTree) firstFit(need int64) (int64, int64, bool) {
	for n := t.root; n != nil; n = n.right {
		if n.size >= need {
			return n.off, n.size, true
		}
	}
	return 0, 0, false
}

// each visits entries in ascending (size, offset) order.
func (t *avlTree) each(fn func(off, size int64) bool) {
	walkInOrder(t.root, fn)
}

func walkInOrder(n *avlNode, fn func(off, size int64) bool) bool {
	if n == nil {
		return true
	}
	return walkInOrder(n.left, fn) && fn(n.off, n.size) && walkInOrder(n.right, fn)
}

func height(n *avlNode) int8 {
	if n == nil {
		return 0
	}
	return n.height
}

func balanceOf(n *avlNode) int {
	return int(height(n.left)) - int(height(n.right))
}

func fixHeight(n *avlNode) {
	n.height = 1 + max(height(n.left), height(n.right))
}

func rotateRight(y *avlNode) *avlNode {
	x := y.left
	y.left = x.right
	x.right = y
	fixHeight(y)
	fixHeight(x)
	return x
}

func rotateLeft(x *avlNode) *avlNode {
	y := x.right
	x.right = y.left
	y.left = x
	fixHeight(x)
	fixHeight(y)
	return y
}

func rebalance(n *avlNode) *avlNode {
	fixHeight(n)
	switch b := balanceOf(n); {
	case b > 1:
		if balanceOf(n.left) < 0 {
			n.left = rotateLeft(n.left)
		}
		return rotateRight(n)
	case b < -1:
		if balanceOf(n.right) > 0 {
			n.right = rotateRight(n.right)
		}
		return rotateLeft(n)
	}
	return n
}
