// Talus Tally desktop shell.
// Supervises the local backend and hosts the UI window; headless mode runs
// the same supervisor behind the control listener only.
package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/PipeManMusic/Talus-Tally/internal/app"
	"github.com/PipeManMusic/Talus-Tally/internal/policy"
	"github.com/PipeManMusic/Talus-Tally/internal/repository"
)

// Version is set by -ldflags at build time.
var Version = "dev"

const usage = `usage: talus-tally [command]

commands:
  run       start the desktop shell (default)
  headless  supervise the backend without a window; control on the control listener
  status    probe the backend and list recent launches
  watch     live status view
  quit      ask the running shell to exit
  version   print the version
`

func main() {
	cmd := "run"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "run":
		runDesktop()
	case "headless":
		runHeadless()
	case "status":
		runStatusCommand()
	case "watch":
		runWatchCommand()
	case "quit":
		runQuitCommand()
	case "--version", "-v", "version":
		fmt.Println("talus-tally " + Version)
	case "--help", "-h", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}
}

// openShell loads config, sets up logging and launch history and builds the
// shell. Launch history is optional: a store that cannot be opened is logged
// and the shell runs without it.
func openShell(mode string) (*app.Shell, *log.Logger) {
	tmpLogger := log.New(os.Stderr, "[talus-tally] ", log.LstdFlags|log.Lshortfile)
	cfg := loadConfig(tmpLogger)
	pol := policy.New(cfg)

	logger := setupLogger(pol.LogFile())
	logger.Printf("Starting Talus Tally %s (%s mode)", Version, mode)
	logger.Printf("Log file: %s", pol.LogFile())
	logger.Printf("State dir: %s", policy.GlobalStateDir())

	var repo app.LaunchRepository
	if r, err := repository.NewLaunchRepository(pol.StateFile()); err != nil {
		logger.Printf("Warning: launch history disabled: %v", err)
	} else {
		repo = r
	}

	if pid, ok := app.RunningShellPID(pol.PIDFile()); ok && pid != os.Getpid() {
		logger.Printf("Warning: another shell appears to be running (pid=%d); its backend will be replaced", pid)
	}
	return app.NewShell(pol, repo, logger), logger
}

// setupLogger creates a logger that writes to a log file and optionally stderr.
// When stderr is a terminal, logs go to both stderr and the file. When stderr
// is redirected, logs go only to the file.
func setupLogger(logFilePath string) *log.Logger {
	var writers []io.Writer

	stderrIsTerminal := false
	if info, err := os.Stderr.Stat(); err == nil {
		stderrIsTerminal = (info.Mode() & os.ModeCharDevice) != 0
	}

	hasLogFile := false
	lower := strings.ToLower(logFilePath)
	if lower != "none" && lower != "off" && logFilePath != "" {
		if err := os.MkdirAll(filepath.Dir(logFilePath), 0o755); err == nil {
			f, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err == nil {
				writers = append(writers, f)
				hasLogFile = true
			} else {
				fmt.Fprintf(os.Stderr, "[talus-tally] Warning: cannot open log file %s: %v\n", logFilePath, err)
			}
		} else {
			fmt.Fprintf(os.Stderr, "[talus-tally] Warning: cannot create log dir %s: %v\n", filepath.Dir(logFilePath), err)
		}
	}

	// Always keep at least one output.
	if stderrIsTerminal || !hasLogFile {
		writers = append(writers, os.Stderr)
	}

	return log.New(io.MultiWriter(writers...), "[talus-tally] ", log.LstdFlags|log.Lshortfile)
}

// loadConfig loads policy configuration from TALUS_CONFIG or defaults.
func loadConfig(logger *log.Logger) *policy.Config {
	cfg := policy.DefaultConfig()
	if configPath := os.Getenv("TALUS_CONFIG"); configPath != "" {
		var err error
		cfg, err = policy.LoadConfig(configPath)
		if err != nil {
			logger.Printf("Warning: failed to load config %s: %v, using defaults", configPath, err)
			cfg = policy.DefaultConfig()
		}
	}
	return cfg
}
