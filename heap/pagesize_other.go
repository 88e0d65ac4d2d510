//go:build !linux && !darwin

package heap

// PageSize returns the conventional 4 KiB page size.
func PageSize() int { return 4096 }
