//go:build linux || darwin

package heap

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// File is a Source backed by a shared mapping of a file. The mapping covers
// the whole limit from the start so its base never moves; the file itself is
// truncated up to whole pages as the break advances, so only bytes below the
// break are ever backed.
type File struct {
	fd   *os.File
	mem  []byte
	brk  int64
	size int64 // current file length
	page int64
}

// NewFile creates (or truncates) the file at path and maps limit bytes of it.
func NewFile(path string, limit int64) (*File, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("heap: file limit must be positive, got %d", limit)
	}
	page := int64(unix.Getpagesize())
	limit = (limit + page - 1) &^ (page - 1)
	if limit > int64(^uint(0)>>1) {
		return nil, fmt.Errorf("heap: file mapping too large (%d bytes)", limit)
	}

	fd, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	mem, err := unix.Mmap(int(fd.Fd()), 0, int(limit), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		fd.Close()
		return nil, fmt.Errorf("heap: map %s: %w", path, err)
	}
	return &File{fd: fd, mem: mem, page: page}, nil
}

// Extend implements Source.
func (f *File) Extend(n int64) (int64, error) {
	if f.mem == nil {
		return 0, ErrClosed
	}
	old := f.brk
	if n <= 0 {
		return old, nil
	}
	if n > int64(len(f.mem))-old {
		return 0, fmt.Errorf("%w: extend by %d at break %d (mapped %d)",
			ErrExhausted, n, old, len(f.mem))
	}

	newBrk := old + n
	if newBrk > f.size {
		size := min((newBrk+f.page-1)&^(f.page-1), int64(len(f.mem)))
		if err := f.fd.Truncate(size); err != nil {
			return 0, fmt.Errorf("%w: grow file to %d: %w", ErrExhausted, size, err)
		}
		f.size = size
	}
	f.brk = newBrk
	return old, nil
}

// Break implements Source.
func (f *File) Break() int64 { return f.brk }

// Mem implements Source.
func (f *File) Mem() []byte { return f.mem }

// Size returns the current file length.
func (f *File) Size() int64 { return f.size }

// Sync flushes every byte below the break to the file and the file to disk.
func (f *File) Sync() error {
	if f.mem == nil {
		return ErrClosed
	}
	if f.brk > 0 {
		if err := unix.Msync(f.mem[:f.brk], unix.MS_SYNC); err != nil {
			return fmt.Errorf("heap: msync: %w", err)
		}
	}
	return fdatasync(int(f.fd.Fd()))
}

// Close unmaps the file and closes it. Closing twice is a no-op.
func (f *File) Close() error {
	if f.mem == nil {
		return nil
	}
	err := unix.Munmap(f.mem)
	f.mem = nil
	if errors.Is(err, unix.EINVAL) {
		err = nil
	}
	return errors.Join(err, f.fd.Close())
}
