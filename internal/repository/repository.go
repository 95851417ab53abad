package repository

import (
	"github.com/PipeManMusic/Talus-Tally/internal/app"
	"github.com/PipeManMusic/Talus-Tally/internal/repository/sqlite"
)

// NewLaunchRepository returns a LaunchRepository backed by SQLite at the given path.
// The path is typically from policy.StateFile() (default ~/.config/talus-tally/launches.sqlite).
func NewLaunchRepository(path string) (app.LaunchRepository, error) {
	return sqlite.New(path)
}
