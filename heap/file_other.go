//go:build !linux && !darwin

package heap

import "errors"

// File is not available on this platform.
type File struct {
	*Memory
}

// NewFile reports that file-backed heaps need mmap.
func NewFile(path string, limit int64) (*File, error) {
	return nil, errors.New("heap: file-backed sources need linux or darwin")
}

// Size always returns 0.
func (f *File) Size() int64 { return 0 }

// Sync is a no-op.
func (f *File) Sync() error { return nil }
