//go:build unix && !linux

package supervisor

import (
	"log"
	"os/exec"
)

// reapMatching runs `pkill -f` once per pattern. pkill exits 0 only when it
// signalled something, so the count is per pattern rather than per process.
// pkill never signals itself, so the caller pid is unused.
func reapMatching(patterns []string, _ int, logger *log.Logger) int {
	n := 0
	for _, p := range patterns {
		if p == "" {
			continue
		}
		if err := exec.Command("pkill", "-f", p).Run(); err == nil {
			logger.Printf("Reaper: pkill -f %q matched", p)
			n++
		}
	}
	return n
}
