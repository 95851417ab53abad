//go:build linux

package supervisor

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// reapMatching walks /proc and sends SIGTERM to every process whose command
// line matches one of patterns.
func reapMatching(patterns []string, self int, logger *log.Logger) int {
	res := compilePatterns(patterns)
	if len(res) == 0 {
		return 0
	}
	entries, err := os.ReadDir("/proc")
	if err != nil {
		logger.Printf("Reaper: read /proc: %v", err)
		return 0
	}

	n := 0
	for _, e := range entries {
		pid, err := strconv.Atoi(e.Name())
		if err != nil || pid == self {
			continue
		}
		cmdline, ok := procCmdline(pid)
		if !ok || !matchesAny(res, cmdline) {
			continue
		}
		if err := unix.Kill(pid, unix.SIGTERM); err != nil {
			continue
		}
		logger.Printf("Reaper: SIGTERM pid=%d (%s)", pid, cmdline)
		n++
	}
	return n
}

// procCmdline returns the NUL-separated argv of pid joined with spaces.
// Kernel threads have an empty cmdline and are reported as not found.
func procCmdline(pid int) (string, bool) {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/cmdline", pid))
	if err != nil || len(data) == 0 {
		return "", false
	}
	return strings.TrimSpace(strings.ReplaceAll(string(data), "\x00", " ")), true
}
