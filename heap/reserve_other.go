//go:build !linux && !darwin

package heap

import "fmt"

// Reserved falls back to a slice-backed source where anonymous mappings with
// mprotect are not available.
type Reserved struct {
	*Memory
}

// NewReserved creates a slice-backed source of limit bytes.
func NewReserved(limit int64) (*Reserved, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("heap: reserve limit must be positive, got %d", limit)
	}
	return &Reserved{Memory: NewMemory(limit)}, nil
}

// Committed returns the limit; the fallback commits everything up front.
func (r *Reserved) Committed() int64 { return r.Limit() }
