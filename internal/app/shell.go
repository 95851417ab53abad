package app

import (
	"context"
	"log"
	"time"

	"github.com/PipeManMusic/Talus-Tally/internal/commands"
	"github.com/PipeManMusic/Talus-Tally/internal/domain"
	"github.com/PipeManMusic/Talus-Tally/internal/policy"
	"github.com/PipeManMusic/Talus-Tally/internal/shutdown"
	"github.com/PipeManMusic/Talus-Tally/internal/supervisor"
)

// exitRecordWait bounds how long Close waits for backend exits to be recorded.
const exitRecordWait = 3 * time.Second

// Host is what a GUI (or headless) runtime provides to the shell.
type Host interface {
	commands.Window
	shutdown.Host
}

// Shell wires the supervisor, prober, coordinator and command surface for one
// application run.
type Shell struct {
	Policy      *policy.Policy
	Prober      *supervisor.Prober
	Resolver    *supervisor.Resolver
	Supervisor  *supervisor.Supervisor
	Coordinator *shutdown.Coordinator

	repo    LaunchRepository
	logger  *log.Logger
	surface *commands.Surface
	booted  chan struct{}
}

// NewShell builds the shell from pol. repo may be nil (no launch history).
func NewShell(pol *policy.Policy, repo LaunchRepository, logger *log.Logger) *Shell {
	b := pol.Backend()
	resolver := supervisor.NewResolver(b)
	reaper := supervisor.NewReaper(b.ReapPatterns, pol.SettleDelay(), logger)

	opts := []supervisor.Option{
		supervisor.WithEnv(pol.DaemonEnv()),
		supervisor.WithOutputFile(pol.BackendLogFile()),
	}
	if repo != nil {
		opts = append(opts, supervisor.WithRecorder(repo))
	}
	sup := supervisor.New(reaper, resolver, logger, opts...)

	return &Shell{
		Policy:      pol,
		Prober:      supervisor.NewProber(pol.BackendAddr(), pol.ProbeTimeout()),
		Resolver:    resolver,
		Supervisor:  sup,
		Coordinator: shutdown.New(sup, logger),
		repo:        repo,
		logger:      logger,
		booted:      make(chan struct{}),
	}
}

// Attach connects the host runtime and returns the command surface bound to
// it. Call once, before the host starts dispatching UI calls.
func (s *Shell) Attach(h Host) *commands.Surface {
	s.Coordinator.Attach(h)
	s.surface = commands.NewSurface(h, s.Coordinator, s.Prober, s, s.logger)
	return s.surface
}

// Surface returns the surface built by Attach, or nil.
func (s *Shell) Surface() *commands.Surface {
	return s.surface
}

// Boot closes launches a previous shell left open, records this shell's PID,
// starts watching the exit signal and starts the backend on its own
// goroutine. It does not wait for the backend.
func (s *Shell) Boot(ctx context.Context) {
	if s.repo != nil {
		if n, err := s.repo.MarkAbandoned(time.Now()); err != nil {
			s.logger.Printf("Warning: Shell: close abandoned launches: %v", err)
		} else if n > 0 {
			s.logger.Printf("Shell: closed %d launch(es) left open by a previous run", n)
		}
	}

	if err := WritePIDFile(s.Policy.PIDFile()); err != nil {
		s.logger.Printf("Warning: Shell: pid file: %v", err)
	}
	w := NewExitWatcher(s.Policy.ExitSignalPath(), s.Coordinator.ExitApp, s.logger)
	go w.Start(ctx)

	go func() {
		defer close(s.booted)
		// Start logs its own failures; the UI then sees Status() == false.
		_ = s.Supervisor.Start()
	}()
}

// Booted is closed once the Start attempt made by Boot has finished.
func (s *Shell) Booted() <-chan struct{} {
	return s.booted
}

// BackendInfo returns a snapshot of the backend, probing it once.
func (s *Shell) BackendInfo() domain.BackendInfo {
	info := domain.BackendInfo{
		Addr:      s.Prober.Addr(),
		Reachable: s.Prober.IsHealthy(),
		State:     s.Coordinator.State().String(),
	}
	if l, ok := s.Supervisor.Current(); ok {
		info.Running = true
		info.PID = l.PID
		info.Launch = &l
	}
	return info
}

// Recent returns recent launches, newest first.
func (s *Shell) Recent(limit int) ([]domain.Launch, error) {
	if s.repo == nil {
		return nil, nil
	}
	return s.repo.Recent(limit)
}

// Close runs the coordinator's teardown, waits briefly for the backend exit
// to be recorded and releases the shell's files.
func (s *Shell) Close() {
	s.Coordinator.Shutdown()
	if !s.Supervisor.Wait(exitRecordWait) {
		s.logger.Printf("Warning: Shell: backend exit not recorded within %s", exitRecordWait)
	}
	RemovePIDFile(s.Policy.PIDFile())
	if s.repo != nil {
		if err := s.repo.Close(); err != nil {
			s.logger.Printf("Warning: Shell: close launch history: %v", err)
		}
	}
}
