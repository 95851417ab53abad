package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// WritePIDFile records this process as the running shell.
func WritePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create pid dir: %w", err)
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0644)
}

// RemovePIDFile removes path if it still names this process.
func RemovePIDFile(path string) {
	if pid, err := ReadPIDFile(path); err == nil && pid != os.Getpid() {
		return
	}
	os.Remove(path)
}

// ReadPIDFile returns the pid stored at path.
func ReadPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

// RunningShellPID returns the pid from path if that process is alive.
func RunningShellPID(path string) (int, bool) {
	pid, err := ReadPIDFile(path)
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, isPIDAlive(pid)
}
