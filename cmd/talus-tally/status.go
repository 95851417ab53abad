package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/PipeManMusic/Talus-Tally/internal/app"
	"github.com/PipeManMusic/Talus-Tally/internal/domain"
	"github.com/PipeManMusic/Talus-Tally/internal/policy"
	"github.com/PipeManMusic/Talus-Tally/internal/repository"
	"github.com/PipeManMusic/Talus-Tally/internal/statusview"
	"github.com/PipeManMusic/Talus-Tally/internal/supervisor"
)

const statusLaunchLimit = 5

// statusProbe gathers a snapshot from outside the running shell: the port,
// the shell PID file and the launch history.
type statusProbe struct {
	pol    *policy.Policy
	prober *supervisor.Prober
	repo   app.LaunchRepository // nil when history cannot be opened
	err    error
}

func newStatusProbe() *statusProbe {
	cfg := loadConfig(log.New(io.Discard, "", 0))
	pol := policy.New(cfg)
	p := &statusProbe{
		pol:    pol,
		prober: supervisor.NewProber(pol.BackendAddr(), pol.ProbeTimeout()),
	}
	repo, err := repository.NewLaunchRepository(pol.StateFile())
	if err != nil {
		p.err = err
	} else {
		p.repo = repo
	}
	return p
}

func (p *statusProbe) snapshot() statusview.Snapshot {
	snap := statusview.Snapshot{
		Info: domain.BackendInfo{
			Addr:      p.prober.Addr(),
			Reachable: p.prober.IsHealthy(),
		},
		Err: p.err,
		Now: time.Now(),
	}
	if pid, ok := app.RunningShellPID(p.pol.PIDFile()); ok {
		snap.ShellPID = pid
	}
	if p.repo != nil {
		launches, err := p.repo.Recent(statusLaunchLimit)
		if err != nil {
			snap.Err = err
		}
		snap.Launches = launches
		// An open launch only counts as running while its shell is alive.
		if len(launches) > 0 && launches[0].Open() && snap.ShellPID > 0 {
			l := launches[0]
			snap.Info.Running = true
			snap.Info.PID = l.PID
			snap.Info.Launch = &l
		}
	}
	return snap
}

func (p *statusProbe) close() {
	if p.repo != nil {
		_ = p.repo.Close()
	}
}

func runStatusCommand() {
	p := newStatusProbe()
	defer p.close()
	fmt.Print(statusview.Render(p.snapshot()))
}

func runWatchCommand() {
	p := newStatusProbe()
	defer p.close()

	m := statusview.NewModel(p.snapshot, statusview.DefaultInterval)
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runQuitCommand() {
	pol := policy.New(loadConfig(log.New(os.Stderr, "", 0)))
	pid, ok := app.RunningShellPID(pol.PIDFile())
	if !ok {
		fmt.Fprintln(os.Stderr, "no running shell")
		os.Exit(1)
	}
	if err := app.TouchExitSignal(pol.ExitSignalPath()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("exit requested (shell pid %d)\n", pid)
}
