//go:build linux || darwin

package heap

import "golang.org/x/sys/unix"

// PageSize returns the system memory page size.
func PageSize() int { return unix.Getpagesize() }
