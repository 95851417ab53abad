//go:build windows

package supervisor

import (
	"log"
	"os/exec"
	"syscall"
)

// reapMatching force-kills processes by image name with taskkill. Patterns are
// image names (e.g. talus-tally-backend.exe), not command-line regexps.
func reapMatching(patterns []string, _ int, logger *log.Logger) int {
	n := 0
	for _, image := range patterns {
		if image == "" {
			continue
		}
		cmd := exec.Command("taskkill", "/F", "/IM", image)
		cmd.SysProcAttr = &syscall.SysProcAttr{HideWindow: true}
		if err := cmd.Run(); err == nil {
			logger.Printf("Reaper: taskkill /IM %s matched", image)
			n++
		}
	}
	return n
}
