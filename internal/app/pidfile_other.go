//go:build !unix

package app

import "os"

// isPIDAlive reports whether the process can be opened. On Windows a handle
// to an exited process can still be opened briefly; quit then touches the
// signal file anyway, which is harmless.
func isPIDAlive(pid int) bool {
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	p.Release()
	return true
}
