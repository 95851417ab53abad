// Package commands is the operation set the UI layer may invoke. Every method
// returns nothing or a bool: backend problems never surface as errors here.
package commands

import (
	"log"

	"github.com/PipeManMusic/Talus-Tally/internal/domain"
)

// Window is the host window boundary.
type Window interface {
	Minimise()
	Maximise()
	Unmaximise()
	IsMaximised() bool
	// Close asks the host to close the window. Hosts route it through the
	// close interception, so it does not end the app by itself.
	Close()
}

// Exiter is the shutdown coordinator.
type Exiter interface {
	ExitApp()
	ForceExit()
}

// HealthChecker is the backend health probe.
type HealthChecker interface {
	IsHealthy() bool
}

// InfoSource provides backend snapshots.
type InfoSource interface {
	BackendInfo() domain.BackendInfo
}

// Surface is bound to the UI layer.
type Surface struct {
	window Window
	exiter Exiter
	health HealthChecker
	info   InfoSource
	logger *log.Logger
}

// NewSurface returns a surface. window and info may be nil.
func NewSurface(window Window, exiter Exiter, health HealthChecker, info InfoSource, logger *log.Logger) *Surface {
	return &Surface{window: window, exiter: exiter, health: health, info: info, logger: logger}
}

func (s *Surface) currentWindow() Window {
	return s.window
}

// Status reports whether the backend endpoint accepts connections.
func (s *Surface) Status() bool {
	return s.health.IsHealthy()
}

// MinimizeWindow minimises the window.
func (s *Surface) MinimizeWindow() {
	if w := s.currentWindow(); w != nil {
		w.Minimise()
	}
}

// MaximizeWindow toggles between maximised and restored.
func (s *Surface) MaximizeWindow() {
	w := s.currentWindow()
	if w == nil {
		return
	}
	if w.IsMaximised() {
		w.Unmaximise()
	} else {
		w.Maximise()
	}
}

// CloseWindow requests a window close, subject to close interception.
func (s *Surface) CloseWindow() {
	if w := s.currentWindow(); w != nil {
		w.Close()
	}
}

// ExitApp kills the backend and quits through the host.
func (s *Surface) ExitApp() {
	s.logger.Printf("Commands: exit_app")
	s.exiter.ExitApp()
}

// ForceCloseWindow kills the backend and ends the process immediately.
func (s *Surface) ForceCloseWindow() {
	s.logger.Printf("Commands: force_close_window")
	s.exiter.ForceExit()
}

// BackendInfo returns a snapshot of the backend, probing it once.
func (s *Surface) BackendInfo() domain.BackendInfo {
	if s.info == nil {
		return domain.BackendInfo{Reachable: s.Status()}
	}
	return s.info.BackendInfo()
}
