package heap

import "fmt"

// Memory is a Source backed by a Go byte slice of fixed capacity. The limit
// plays the role of the address-space ceiling: Extend fails once it is reached.
type Memory struct {
	buf    []byte
	brk    int64
	closed bool
}

// NewMemory creates a Memory source that can grow up to limit bytes.
func NewMemory(limit int64) *Memory {
	if limit < 0 {
		limit = 0
	}
	return &Memory{buf: make([]byte, limit)}
}

// Extend implements Source.
func (m *Memory) Extend(n int64) (int64, error) {
	if m.closed {
		return 0, ErrClosed
	}
	old := m.brk
	if n <= 0 {
		return old, nil
	}
	if n > int64(len(m.buf))-old {
		return 0, fmt.Errorf("%w: extend by %d at break %d (limit %d)",
			ErrExhausted, n, old, len(m.buf))
	}
	m.brk = old + n
	return old, nil
}

// Break implements Source.
func (m *Memory) Break() int64 { return m.brk }

// Mem implements Source.
func (m *Memory) Mem() []byte { return m.buf }

// Limit returns the capacity the source was created with.
func (m *Memory) Limit() int64 { return int64(len(m.buf)) }

// Close implements Source. Closing twice is a no-op.
func (m *Memory) Close() error {
	m.closed = true
	m.buf = nil
	return nil
}
