//go:build !windows

package lock

import (
	"errors"

	"golang.org/x/sys/unix"
)

// processExists reports whether pid names a live process. EPERM from the
// null signal still means it exists, owned by another user.
func processExists(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}
