//go:build unix

package app

import (
	"errors"

	"golang.org/x/sys/unix"
)

// isPIDAlive sends signal 0. EPERM still means the process exists.
func isPIDAlive(pid int) bool {
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}
