// Package domain holds the backend launch entities shared by the supervisor,
// the launch history store and the status views.
// It has no dependencies on other packages.
package domain

import "time"

// CandidateKind says which kind of backend artifact was started.
type CandidateKind string

const (
	KindPackaged CandidateKind = "packaged" // standalone backend binary
	KindVenv     CandidateKind = "venv"     // virtualenv interpreter running the backend module
	KindSystem   CandidateKind = "system"   // system interpreter fallback
)

// End reasons recorded for a launch.
const (
	EndTerminated = "terminated" // killed by the shell
	EndExited     = "exited"     // exited on its own
	EndAbandoned  = "abandoned"  // still open when a later shell started
)

// Launch is one spawn of the backend process.
type Launch struct {
	ID        string        `json:"id"`
	PID       int           `json:"pid"`
	Kind      CandidateKind `json:"kind"`
	Path      string        `json:"path"`
	Args      []string      `json:"args,omitempty"`
	Root      string        `json:"root"`
	StartedAt time.Time     `json:"started_at"`
	EndedAt   time.Time     `json:"ended_at,omitempty"`
	EndReason string        `json:"end_reason,omitempty"`
	ExitCode  int           `json:"exit_code"`
}

// Open reports whether the launch has no recorded end.
func (l Launch) Open() bool {
	return l.EndedAt.IsZero()
}

// Uptime returns how long the launch ran, or has been running as of now.
func (l Launch) Uptime(now time.Time) time.Duration {
	if l.StartedAt.IsZero() {
		return 0
	}
	end := l.EndedAt
	if end.IsZero() {
		end = now
	}
	return end.Sub(l.StartedAt)
}
