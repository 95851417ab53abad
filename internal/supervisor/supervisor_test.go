package supervisor

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PipeManMusic/Talus-Tally/internal/domain"
)

// TestHelperBackend is not a real test. The supervisor tests start the test
// binary itself as the backend, selecting this function with -test.run.
func TestHelperBackend(t *testing.T) {
	if os.Getenv("TALUS_HELPER_BACKEND") != "1" {
		return
	}
	if code := os.Getenv("TALUS_HELPER_EXIT"); code != "" {
		n, _ := strconv.Atoi(code)
		os.Exit(n)
	}
	if os.Getenv("TALUS_DAEMON") != "1" {
		os.Exit(3)
	}
	ln, err := net.Listen("tcp", os.Getenv("TALUS_HELPER_ADDR"))
	if err != nil {
		os.Exit(4)
	}
	fmt.Println("helper backend up")
	for {
		c, err := ln.Accept()
		if err != nil {
			os.Exit(0)
		}
		c.Close()
	}
}

type staticResolver struct {
	c     Candidate
	order *[]string
}

func (r staticResolver) Resolve() Candidate {
	if r.order != nil {
		*r.order = append(*r.order, "resolve")
	}
	return r.c
}

type countingReaper struct {
	calls int
	order *[]string
}

func (r *countingReaper) Reap() int {
	r.calls++
	if r.order != nil {
		*r.order = append(*r.order, "reap")
	}
	return 0
}

type exitRecord struct {
	id     string
	reason string
	code   int
}

type memRecorder struct {
	mu       sync.Mutex
	launches []domain.Launch
	exits    []exitRecord
}

func (r *memRecorder) RecordLaunch(l domain.Launch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.launches = append(r.launches, l)
	return nil
}

func (r *memRecorder) RecordExit(id string, _ time.Time, reason string, code int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exits = append(r.exits, exitRecord{id: id, reason: reason, code: code})
	return nil
}

func (r *memRecorder) snapshot() ([]domain.Launch, []exitRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Launch(nil), r.launches...), append([]exitRecord(nil), r.exits...)
}

func helperCandidate(t *testing.T) Candidate {
	t.Helper()
	exe, err := os.Executable()
	if err != nil {
		t.Fatal(err)
	}
	return Candidate{
		Kind: domain.KindPackaged,
		Path: exe,
		Args: []string{"-test.run=^TestHelperBackend$"},
		Root: t.TempDir(),
	}
}

func helperEnv(addr string, extra ...string) Option {
	env := []string{"TALUS_HELPER_BACKEND=1", "TALUS_HELPER_ADDR=" + addr, "TALUS_DAEMON=1"}
	return WithEnv(append(env, extra...)...)
}

func waitFor(t *testing.T, d time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return cond()
}

func currentProc(s *Supervisor) *backendProcess {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.proc
}

func waitDone(t *testing.T, p *backendProcess) {
	t.Helper()
	select {
	case <-p.done:
	case <-time.After(5 * time.Second):
		t.Fatalf("backend pid=%d did not exit", p.launch.PID)
	}
}

func TestSupervisor_StartAndTerminate(t *testing.T) {
	addr := freeAddr(t)
	prober := NewProber(addr, 200*time.Millisecond)
	rec := &memRecorder{}
	s := New(&countingReaper{}, staticResolver{c: helperCandidate(t)}, discardLogger(),
		helperEnv(addr), WithRecorder(rec))

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !waitFor(t, 10*time.Second, prober.IsHealthy) {
		t.Fatal("backend never became healthy")
	}
	if !s.IsRunning() || s.PID() == 0 {
		t.Fatalf("IsRunning=%v PID=%d after start", s.IsRunning(), s.PID())
	}
	l, ok := s.Current()
	if !ok || l.Kind != domain.KindPackaged || l.ID == "" {
		t.Errorf("Current() = %+v, %v", l, ok)
	}

	p := currentProc(s)
	if !s.Terminate() {
		t.Fatal("Terminate() = false with a running backend")
	}
	if s.IsRunning() {
		t.Error("handle not cleared by Terminate")
	}
	waitDone(t, p)
	if !waitFor(t, 5*time.Second, func() bool { return !prober.IsHealthy() }) {
		t.Error("backend still reachable after Terminate")
	}
	if s.Terminate() {
		t.Error("second Terminate() = true")
	}

	launches, exits := rec.snapshot()
	if len(launches) != 1 || len(exits) != 1 {
		t.Fatalf("launches=%d exits=%d, want 1 and 1", len(launches), len(exits))
	}
	if exits[0].id != launches[0].ID || exits[0].reason != domain.EndTerminated {
		t.Errorf("exit = %+v, want terminated for %s", exits[0], launches[0].ID)
	}
}

func TestSupervisor_TerminateWithoutStart(t *testing.T) {
	s := New(&countingReaper{}, staticResolver{}, discardLogger())
	if s.Terminate() {
		t.Error("Terminate() = true with nothing started")
	}
	if s.IsRunning() || s.PID() != 0 {
		t.Error("supervisor reports a backend that was never started")
	}
}

func TestSupervisor_SpawnFailure(t *testing.T) {
	rec := &memRecorder{}
	c := Candidate{Kind: domain.KindSystem, Path: filepath.Join(t.TempDir(), "missing-python"), Root: t.TempDir()}
	s := New(&countingReaper{}, staticResolver{c: c}, discardLogger(), WithRecorder(rec))

	if err := s.Start(); err == nil {
		t.Fatal("Start() succeeded for a missing interpreter")
	}
	if s.IsRunning() {
		t.Error("handle set after spawn failure")
	}
	if launches, _ := rec.snapshot(); len(launches) != 0 {
		t.Errorf("recorded %d launches for a failed spawn", len(launches))
	}
	if s.Terminate() {
		t.Error("Terminate() = true after spawn failure")
	}
}

func TestSupervisor_ReapsBeforeResolve(t *testing.T) {
	var order []string
	reaper := &countingReaper{order: &order}
	c := Candidate{Path: filepath.Join(t.TempDir(), "missing"), Root: t.TempDir()}
	s := New(reaper, staticResolver{c: c, order: &order}, discardLogger())

	_ = s.Start()
	if strings.Join(order, ",") != "reap,resolve" {
		t.Errorf("order = %v, want [reap resolve]", order)
	}
}

func TestSupervisor_BackendExitsOnItsOwn(t *testing.T) {
	addr := freeAddr(t)
	rec := &memRecorder{}
	s := New(&countingReaper{}, staticResolver{c: helperCandidate(t)}, discardLogger(),
		helperEnv(addr, "TALUS_HELPER_EXIT=7"), WithRecorder(rec))

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !waitFor(t, 10*time.Second, func() bool { _, exits := rec.snapshot(); return len(exits) == 1 }) {
		t.Fatal("exit never recorded")
	}
	_, exits := rec.snapshot()
	if exits[0].reason != domain.EndExited || exits[0].code != 7 {
		t.Errorf("exit = %+v, want exited with code 7", exits[0])
	}
	if s.IsRunning() {
		t.Error("handle kept after the backend exited")
	}
}

func TestSupervisor_StartReplacesPrevious(t *testing.T) {
	rec := &memRecorder{}
	// Both instances are briefly alive together, so each takes its own port.
	s := New(&countingReaper{}, staticResolver{c: helperCandidate(t)}, discardLogger(),
		helperEnv("127.0.0.1:0"), WithRecorder(rec))
	t.Cleanup(func() { s.Terminate() })

	if err := s.Start(); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	first := currentProc(s)
	if err := s.Start(); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	waitDone(t, first)

	second := currentProc(s)
	if second == nil || second == first {
		t.Fatal("second start did not replace the handle")
	}
	_, exits := rec.snapshot()
	if len(exits) != 1 || exits[0].id != first.launch.ID || exits[0].reason != domain.EndTerminated {
		t.Errorf("exits = %+v, want first launch terminated", exits)
	}
}

func TestSupervisor_CloseRefusesStart(t *testing.T) {
	reaper := &countingReaper{}
	s := New(reaper, staticResolver{c: helperCandidate(t)}, discardLogger())
	if s.Close() {
		t.Error("Close() = true with nothing started")
	}
	if err := s.Start(); !errors.Is(err, ErrClosed) {
		t.Errorf("Start after Close = %v, want ErrClosed", err)
	}
	if reaper.calls != 0 {
		t.Error("reaper ran after Close")
	}
}

func TestSupervisor_OutputFile(t *testing.T) {
	addr := freeAddr(t)
	logPath := filepath.Join(t.TempDir(), "logs", "backend.log")
	s := New(&countingReaper{}, staticResolver{c: helperCandidate(t)}, discardLogger(),
		helperEnv(addr), WithOutputFile(logPath))

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	p := currentProc(s)
	ok := waitFor(t, 10*time.Second, func() bool {
		data, _ := os.ReadFile(logPath)
		return strings.Contains(string(data), "helper backend up")
	})
	s.Terminate()
	waitDone(t, p)
	if !ok {
		t.Fatal("backend output never reached the log file")
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "=== Backend [packaged] at ") {
		t.Errorf("log missing launch header:\n%s", data)
	}
}

func TestSupervisor_TerminateSkipsWhenHandleBusy(t *testing.T) {
	s := New(&countingReaper{}, staticResolver{}, discardLogger(), WithLockWait(50*time.Millisecond))
	fake := &backendProcess{done: make(chan struct{})}
	s.proc = fake

	s.mu.Lock()
	start := time.Now()
	got := s.Terminate()
	elapsed := time.Since(start)
	s.mu.Unlock()

	if got {
		t.Error("Terminate() = true while the handle lock was held")
	}
	if elapsed > time.Second {
		t.Errorf("Terminate blocked for %v", elapsed)
	}
	if currentProc(s) != fake {
		t.Error("handle changed by a skipped Terminate")
	}
}

func TestSupervisor_CloseSkipsWhenHandleBusy(t *testing.T) {
	s := New(&countingReaper{}, staticResolver{}, discardLogger(), WithLockWait(50*time.Millisecond))
	s.proc = &backendProcess{done: make(chan struct{})}

	s.mu.Lock()
	defer s.mu.Unlock()

	done := make(chan bool, 1)
	go func() { done <- s.Close() }()

	select {
	case got := <-done:
		if got {
			t.Error("Close() = true while the handle lock was held")
		}
	case <-time.After(time.Second):
		t.Fatal("Close blocked on a busy handle lock")
	}
	if !s.isClosed() {
		t.Error("Close did not mark the supervisor closed")
	}
}
