package heap

import "golang.org/x/sys/unix"

// fdatasync performs file descriptor sync.
func fdatasync(fd int) error {
	return unix.Fdatasync(fd)
}
