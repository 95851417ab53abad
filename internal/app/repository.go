// Package app composes the shell and defines its ports (repository interfaces).
package app

import (
	"time"

	"github.com/PipeManMusic/Talus-Tally/internal/domain"
)

// LaunchRepository stores the history of backend launches.
// Implementation: internal/repository/sqlite.
type LaunchRepository interface {
	RecordLaunch(l domain.Launch) error
	// RecordExit closes an open launch. The first recorded end wins.
	RecordExit(id string, endedAt time.Time, reason string, exitCode int) error
	// Recent returns up to limit launches, newest first.
	Recent(limit int) ([]domain.Launch, error)
	// MarkAbandoned closes every open launch with domain.EndAbandoned and
	// returns how many it closed.
	MarkAbandoned(at time.Time) (int, error)
	Close() error
}
