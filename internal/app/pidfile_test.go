package app

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

func TestPIDFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "shell.pid")
	if err := WritePIDFile(path); err != nil {
		t.Fatalf("WritePIDFile: %v", err)
	}
	pid, err := ReadPIDFile(path)
	if err != nil || pid != os.Getpid() {
		t.Fatalf("ReadPIDFile = %d, %v; want %d", pid, err, os.Getpid())
	}
	if got, ok := RunningShellPID(path); !ok || got != os.Getpid() {
		t.Errorf("RunningShellPID = %d, %v; want own pid alive", got, ok)
	}

	RemovePIDFile(path)
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("pid file still present: %v", err)
	}
	if _, ok := RunningShellPID(path); ok {
		t.Error("RunningShellPID reports a shell with no pid file")
	}
}

func TestRemovePIDFile_KeepsOtherShell(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shell.pid")
	other := os.Getpid() + 1
	if err := os.WriteFile(path, []byte(strconv.Itoa(other)), 0644); err != nil {
		t.Fatal(err)
	}
	RemovePIDFile(path)
	if _, err := os.Stat(path); err != nil {
		t.Errorf("pid file of another shell removed: %v", err)
	}
}

func TestRunningShellPID_Garbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shell.pid")
	if err := os.WriteFile(path, []byte("not-a-pid"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, ok := RunningShellPID(path); ok {
		t.Error("RunningShellPID accepted a malformed pid file")
	}
}
