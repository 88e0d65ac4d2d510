package alloc

// quickList is a LIFO stack of released blocks that all share one payload
// size. Blocks on it are in StateQuick and are neither split nor coalesced.
type quickList struct {
	size  int64
	stack []int64
}

func newQuickList(size int64) *quickList {
	if size <= 0 {
		return nil
	}
	return &quickList{size: size}
}

func (q *quickList) push(off int64) { q.stack = append(q.stack, off) }

func (q *quickList) pop() (int64, bool) {
	n := len(q.stack)
	if n == 0 {
		return 0, false
	}
	off := q.stack[n-1]
	q.stack = q.stack[:n-1]
	return off, true
}

func (q *quickList) len() int {
	if q == nil {
		return 0
	}
	return len(q.stack)
}
