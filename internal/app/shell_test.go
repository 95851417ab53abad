package app

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/PipeManMusic/Talus-Tally/internal/domain"
	"github.com/PipeManMusic/Talus-Tally/internal/policy"
	"github.com/PipeManMusic/Talus-Tally/internal/shutdown"
)

type memLaunchRepo struct {
	mu        sync.Mutex
	launches  []domain.Launch
	abandoned int
	closed    bool
}

func (r *memLaunchRepo) RecordLaunch(l domain.Launch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.launches = append(r.launches, l)
	return nil
}

func (r *memLaunchRepo) RecordExit(id string, endedAt time.Time, reason string, exitCode int) error {
	return nil
}

func (r *memLaunchRepo) Recent(limit int) ([]domain.Launch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Launch(nil), r.launches...), nil
}

func (r *memLaunchRepo) MarkAbandoned(at time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.abandoned++
	return 0, nil
}

func (r *memLaunchRepo) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

type recordingHost struct {
	mu     sync.Mutex
	events []string
	quits  int
	quitCh chan struct{}
}

func newRecordingHost() *recordingHost {
	return &recordingHost{quitCh: make(chan struct{}, 4)}
}

func (h *recordingHost) Minimise()         {}
func (h *recordingHost) Maximise()         {}
func (h *recordingHost) Unmaximise()       {}
func (h *recordingHost) IsMaximised() bool { return false }
func (h *recordingHost) Close()            {}

func (h *recordingHost) Emit(event string) {
	h.mu.Lock()
	h.events = append(h.events, event)
	h.mu.Unlock()
}

func (h *recordingHost) Quit() {
	h.mu.Lock()
	h.quits++
	h.mu.Unlock()
	h.quitCh <- struct{}{}
}

// unusedPort returns a loopback port nothing listens on.
func unusedPort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()
	return port
}

// testShellPolicy points every candidate at paths that do not exist, so
// Start fails fast without touching real processes.
func testShellPolicy(t *testing.T) *policy.Policy {
	t.Helper()
	t.Setenv("TALUS_STATE_DIR", t.TempDir())
	cfg := policy.DefaultConfig()
	cfg.Backend = policy.BackendConfig{
		Host:              "127.0.0.1",
		Port:              unusedPort(t),
		ProbeTimeoutMs:    200,
		SystemInterpreter: filepath.Join(t.TempDir(), "no-python"),
		ModuleArgs:        []string{"-m", "backend.app"},
		SettleMs:          -1,
		LogFile:           "none",
	}
	return policy.New(cfg)
}

func TestShell_BootWithMissingBackend(t *testing.T) {
	pol := testShellPolicy(t)
	repo := &memLaunchRepo{}
	shell := NewShell(pol, repo, testLogger())
	host := newRecordingHost()
	surface := shell.Attach(host)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	shell.Boot(ctx)

	select {
	case <-shell.Booted():
	case <-time.After(5 * time.Second):
		t.Fatal("boot never finished")
	}

	if repo.abandoned != 1 {
		t.Errorf("MarkAbandoned called %d times, want 1", repo.abandoned)
	}
	if surface.Status() {
		t.Error("Status() = true with no backend")
	}
	info := shell.BackendInfo()
	if info.Running || info.Reachable || info.PID != 0 {
		t.Errorf("BackendInfo() = %+v, want nothing running", info)
	}
	if info.Addr != pol.BackendAddr() || info.State != shutdown.Running.String() {
		t.Errorf("BackendInfo() = %+v", info)
	}
	if pid, err := ReadPIDFile(pol.PIDFile()); err != nil || pid != os.Getpid() {
		t.Errorf("pid file = %d, %v", pid, err)
	}

	shell.Close()
	if !repo.closed {
		t.Error("repository not closed")
	}
	if _, err := os.Stat(pol.PIDFile()); !os.IsNotExist(err) {
		t.Errorf("pid file left behind: %v", err)
	}
}

func TestShell_CloseRequestRoutesToHost(t *testing.T) {
	shell := NewShell(testShellPolicy(t), nil, testLogger())
	host := newRecordingHost()
	shell.Attach(host)

	if !shell.Coordinator.OnCloseRequested() {
		t.Fatal("close not prevented")
	}
	host.mu.Lock()
	events := append([]string(nil), host.events...)
	host.mu.Unlock()
	if len(events) != 1 || events[0] != shutdown.EventCloseRequested {
		t.Errorf("events = %v", events)
	}
}

func TestShell_ExitSignalQuits(t *testing.T) {
	pol := testShellPolicy(t)
	shell := NewShell(pol, nil, testLogger())
	host := newRecordingHost()
	shell.Attach(host)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	shell.Boot(ctx)
	<-shell.Booted()

	if err := TouchExitSignal(pol.ExitSignalPath()); err != nil {
		t.Fatal(err)
	}
	select {
	case <-host.quitCh:
	case <-time.After(10 * time.Second):
		t.Fatal("exit signal did not quit the host")
	}
	if shell.Coordinator.State() != shutdown.Terminated {
		t.Errorf("State() = %v, want terminated", shell.Coordinator.State())
	}
	shell.Close()
}

func TestShell_RecentWithoutRepo(t *testing.T) {
	shell := NewShell(testShellPolicy(t), nil, testLogger())
	got, err := shell.Recent(5)
	if err != nil || got != nil {
		t.Errorf("Recent() = %v, %v; want nil, nil", got, err)
	}
}
