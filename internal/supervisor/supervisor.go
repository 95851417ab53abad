// Package supervisor owns the backend process: it clears stale instances,
// picks the artifact to run, spawns it and kills it on request.
package supervisor

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/PipeManMusic/Talus-Tally/internal/domain"
)

// ErrClosed is returned by Start after Close.
var ErrClosed = errors.New("supervisor closed")

const defaultLockWait = 2 * time.Second

// StaleReaper clears leftover backend processes before a start.
type StaleReaper interface {
	Reap() int
}

// CandidateResolver picks the backend artifact to run.
type CandidateResolver interface {
	Resolve() Candidate
}

// LaunchRecorder persists launch history. Errors are logged, never fatal.
type LaunchRecorder interface {
	RecordLaunch(l domain.Launch) error
	RecordExit(id string, endedAt time.Time, reason string, exitCode int) error
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithRecorder records every launch and its end.
func WithRecorder(r LaunchRecorder) Option {
	return func(s *Supervisor) { s.recorder = r }
}

// WithOutputFile appends backend stdout/stderr to path. Empty means inherit stderr.
func WithOutputFile(path string) Option {
	return func(s *Supervisor) { s.outputPath = path }
}

// WithEnv adds KEY=VALUE entries to the backend environment.
func WithEnv(env ...string) Option {
	return func(s *Supervisor) { s.env = append(s.env, env...) }
}

// WithLockWait bounds how long Terminate waits for the handle lock.
func WithLockWait(d time.Duration) Option {
	return func(s *Supervisor) { s.lockWait = d }
}

// Supervisor holds at most one backend process handle.
type Supervisor struct {
	reaper     StaleReaper
	resolver   CandidateResolver
	recorder   LaunchRecorder
	env        []string
	outputPath string
	lockWait   time.Duration
	logger     *log.Logger

	mu      sync.Mutex
	proc    *backendProcess
	closed  atomic.Bool
	waiters sync.WaitGroup
}

type backendProcess struct {
	cmd    *exec.Cmd
	launch domain.Launch
	output io.Closer
	killed atomic.Bool
	done   chan struct{}
}

// New returns a supervisor. Nothing runs until Start.
func New(reaper StaleReaper, resolver CandidateResolver, logger *log.Logger, opts ...Option) *Supervisor {
	s := &Supervisor{
		reaper:   reaper,
		resolver: resolver,
		lockWait: defaultLockWait,
		logger:   logger,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Start reaps stale instances, resolves a candidate and spawns it. A spawn
// failure is returned and logged; the handle stays empty. A handle left from
// an earlier Start is killed and replaced.
func (s *Supervisor) Start() error {
	if s.isClosed() {
		return ErrClosed
	}

	s.logger.Printf("Supervisor: clearing stale backend instances")
	s.reaper.Reap()

	c := s.resolver.Resolve()
	s.logger.Printf("Supervisor: starting %s backend: %s (dir=%s)", c.Kind, strings.Join(c.Command(), " "), c.Root)

	if s.isClosed() {
		return ErrClosed
	}
	p, err := s.spawn(c)
	if err != nil {
		s.logger.Printf("Supervisor: failed to start backend: %v", err)
		s.logger.Printf("Supervisor: project root was %s; check that the backend binary or Python environment exists", c.Root)
		return fmt.Errorf("start backend %s: %w", c.Path, err)
	}

	s.mu.Lock()
	if s.closed.Load() {
		s.mu.Unlock()
		s.logger.Printf("Supervisor: closed during start, killing pid=%d", p.launch.PID)
		s.kill(p)
		s.watch(p)
		return ErrClosed
	}
	prev := s.proc
	s.proc = p
	s.mu.Unlock()

	if prev != nil {
		s.logger.Printf("Supervisor: replacing backend pid=%d", prev.launch.PID)
		s.kill(prev)
	}

	s.watch(p)
	s.logger.Printf("Supervisor: backend started (pid=%d)", p.launch.PID)
	return nil
}

// Terminate kills the owned backend and clears the handle. It reports whether
// there was a process to kill. If the handle lock cannot be taken within the
// configured wait, the kill is skipped and logged.
func (s *Supervisor) Terminate() bool {
	if !s.lockWithin(s.lockWait) {
		s.logger.Printf("Warning: Supervisor: handle busy for %s, terminate skipped", s.lockWait)
		return false
	}
	p := s.proc
	s.proc = nil
	s.mu.Unlock()

	if p == nil {
		return false
	}
	s.logger.Printf("Supervisor: terminating backend (pid=%d)", p.launch.PID)
	s.kill(p)
	return true
}

// Close terminates the backend and refuses further starts. A Start already
// past its spawn kills its child instead of keeping it.
func (s *Supervisor) Close() bool {
	s.closed.Store(true)
	return s.Terminate()
}

// IsRunning reports whether a backend handle is held.
func (s *Supervisor) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.proc != nil
}

// Current returns the launch behind the held handle.
func (s *Supervisor) Current() (domain.Launch, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.proc == nil {
		return domain.Launch{}, false
	}
	return s.proc.launch, true
}

// PID returns the pid of the held backend, or 0.
func (s *Supervisor) PID() int {
	l, ok := s.Current()
	if !ok {
		return 0
	}
	return l.PID
}

func (s *Supervisor) isClosed() bool {
	return s.closed.Load()
}

func (s *Supervisor) lockWithin(d time.Duration) bool {
	deadline := time.Now().Add(d)
	for {
		if s.mu.TryLock() {
			return true
		}
		if !time.Now().Before(deadline) {
			return false
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func (s *Supervisor) spawn(c Candidate) (*backendProcess, error) {
	if c.Path == "" {
		return nil, fmt.Errorf("empty backend command")
	}
	cmd := exec.Command(c.Path, c.Args...)
	cmd.Dir = c.Root
	cmd.Env = append(os.Environ(), s.env...)
	cmd.SysProcAttr = sysProcAttr()

	out, closer := s.openOutput(c)
	cmd.Stdout = out
	cmd.Stderr = out

	if err := cmd.Start(); err != nil {
		if closer != nil {
			closer.Close()
		}
		return nil, err
	}

	p := &backendProcess{
		cmd:    cmd,
		output: closer,
		done:   make(chan struct{}),
		launch: domain.Launch{
			ID:        uuid.NewString(),
			PID:       cmd.Process.Pid,
			Kind:      c.Kind,
			Path:      c.Path,
			Args:      append([]string(nil), c.Args...),
			Root:      c.Root,
			StartedAt: time.Now(),
		},
	}
	if s.recorder != nil {
		if err := s.recorder.RecordLaunch(p.launch); err != nil {
			s.logger.Printf("Warning: Supervisor: record launch: %v", err)
		}
	}
	return p, nil
}

// openOutput returns where the child's output goes. The file is handed to the
// child directly, so no copy goroutine outlives the process.
func (s *Supervisor) openOutput(c Candidate) (io.Writer, io.Closer) {
	if s.outputPath == "" {
		return os.Stderr, nil
	}
	if err := os.MkdirAll(filepath.Dir(s.outputPath), 0755); err != nil {
		s.logger.Printf("Warning: Supervisor: backend log dir: %v", err)
		return os.Stderr, nil
	}
	f, err := os.OpenFile(s.outputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		s.logger.Printf("Warning: Supervisor: backend log: %v", err)
		return os.Stderr, nil
	}
	fmt.Fprintf(f, "\n=== Backend [%s] at %s (dir=%s) ===\n", c.Kind, time.Now().Format(time.RFC3339), c.Root)
	fmt.Fprintf(f, "Command: %v\n", c.Command())
	return f, f
}

func (s *Supervisor) kill(p *backendProcess) {
	p.killed.Store(true)
	if err := killProcess(p.cmd.Process); err != nil && !errors.Is(err, os.ErrProcessDone) {
		s.logger.Printf("Warning: Supervisor: kill pid=%d: %v", p.launch.PID, err)
	}
}

// Wait blocks until every started backend has been reaped and its exit
// recorded, or until d passes. It reports whether all exits were seen.
func (s *Supervisor) Wait(d time.Duration) bool {
	done := make(chan struct{})
	go func() {
		s.waiters.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(d):
		return false
	}
}

func (s *Supervisor) watch(p *backendProcess) {
	s.waiters.Add(1)
	go func() {
		defer s.waiters.Done()
		s.wait(p)
	}()
}

// wait reaps the child, clears the handle if it still points at p and
// records how the launch ended.
func (s *Supervisor) wait(p *backendProcess) {
	defer close(p.done)
	err := p.cmd.Wait()
	if p.output != nil {
		p.output.Close()
	}

	code := -1
	if p.cmd.ProcessState != nil {
		code = p.cmd.ProcessState.ExitCode()
	}
	reason := domain.EndExited
	if p.killed.Load() {
		reason = domain.EndTerminated
	}

	s.mu.Lock()
	if s.proc == p {
		s.proc = nil
	}
	s.mu.Unlock()

	if reason == domain.EndExited {
		s.logger.Printf("Supervisor: backend exited on its own (pid=%d, code=%d): %v", p.launch.PID, code, err)
	}
	if s.recorder != nil {
		if rerr := s.recorder.RecordExit(p.launch.ID, time.Now(), reason, code); rerr != nil {
			s.logger.Printf("Warning: Supervisor: record exit: %v", rerr)
		}
	}
}
