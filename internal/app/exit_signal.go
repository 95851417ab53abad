package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// TouchExitSignal writes a new revision (timestamp) to the exit signal file.
// A running shell watching the file treats each new revision as an exit
// request. Creates parent dir and file if needed.
func TouchExitSignal(signalPath string) error {
	if signalPath == "" {
		return nil
	}
	dir := filepath.Dir(signalPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create signal file dir: %w", err)
	}
	rev := strconv.FormatInt(time.Now().UnixNano(), 10)
	return os.WriteFile(signalPath, []byte(rev), 0644)
}

func readSignalRevision(signalPath string) string {
	data, err := os.ReadFile(signalPath)
	if err != nil {
		return ""
	}
	return string(data)
}
