//go:build !windows

package lock

import (
	"errors"

	"golang.org/x/sys/unix"
)

// processExists reports whether pid is a running process.
// Signal 0 performs the permission and existence checks without signalling.
func processExists(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	// EPERM means the process exists but belongs to someone else
	return err == nil || errors.Is(err, unix.EPERM)
}
