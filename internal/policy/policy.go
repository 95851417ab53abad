// Package policy holds the shell configuration and the defaults applied to it.
package policy

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// GlobalStateDir returns the state directory (~/.config/talus-tally).
// TALUS_STATE_DIR overrides it.
func GlobalStateDir() string {
	if dir := os.Getenv("TALUS_STATE_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	return filepath.Join(home, ".config", "talus-tally")
}

// BackendConfig describes where the backend lives, how to start it and how to find
// leftovers from earlier runs.
type BackendConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	ProbeTimeoutMs int    `yaml:"probe_timeout_ms"`

	InstalledRoot     string   `yaml:"installed_root"`     // fixed install location, e.g. /opt/talus-tally
	SourceMarker      string   `yaml:"source_marker"`      // directory that marks a source checkout root
	PackagedBinary    string   `yaml:"packaged_binary"`    // relative to the project root
	VenvInterpreter   string   `yaml:"venv_interpreter"`   // relative to the project root
	SystemInterpreter string   `yaml:"system_interpreter"` // looked up on PATH at spawn time
	ModuleArgs        []string `yaml:"module_args"`        // interpreter arguments, e.g. ["-m", "backend.app"]

	// DaemonEnv is the variable set to "1" in the backend environment so it
	// runs without its interactive reloader.
	DaemonEnv string `yaml:"daemon_env"`

	// ReapPatterns match command lines (unix) or image names (windows) of
	// backend processes left over from previous runs.
	ReapPatterns []string `yaml:"reap_patterns"`
	SettleMs     int      `yaml:"settle_ms"`

	// LogFile receives the backend's stdout and stderr. Defaults to backend.log
	// in the state dir; "none" or "off" inherits the shell's stderr.
	LogFile string `yaml:"log_file"`
}

// WindowConfig configures the desktop window.
type WindowConfig struct {
	Title       string `yaml:"title"`
	Width       int    `yaml:"width"`
	Height      int    `yaml:"height"`
	Frameless   bool   `yaml:"frameless"`
	FrontendDir string `yaml:"frontend_dir"` // serve UI assets from disk instead of the embedded bundle
}

// ControlConfig configures the local control listener (MCP + JSON API).
type ControlConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Config holds the shell configuration.
type Config struct {
	StateFile string `yaml:"state_file"`
	LogFile   string `yaml:"log_file"`

	Backend BackendConfig  `yaml:"backend"`
	Window  WindowConfig   `yaml:"window"`
	Control *ControlConfig `yaml:"control"`
}

// DefaultConfig returns the defaults for the current platform.
func DefaultConfig() *Config {
	return &Config{
		Backend: DefaultBackend(runtime.GOOS),
		Window: WindowConfig{
			Title:     "Talus Tally",
			Width:     1280,
			Height:    800,
			Frameless: true,
		},
	}
}

// DefaultBackend returns backend defaults for goos.
func DefaultBackend(goos string) BackendConfig {
	b := BackendConfig{
		Host:              "127.0.0.1",
		Port:              5000,
		ProbeTimeoutMs:    500,
		InstalledRoot:     "/opt/talus-tally",
		SourceMarker:      "backend",
		PackagedBinary:    "talus-tally-backend",
		VenvInterpreter:   filepath.Join(".venv", "bin", "python3"),
		SystemInterpreter: "python3",
		ModuleArgs:        []string{"-m", "backend.app"},
		DaemonEnv:         "TALUS_DAEMON",
		ReapPatterns:      []string{`python.*backend.app`, `talus-tally-backend`},
		SettleMs:          1000,
	}
	if goos == "windows" {
		b.PackagedBinary = "talus-tally-backend.exe"
		b.VenvInterpreter = filepath.Join(".venv", "Scripts", "python.exe")
		b.SystemInterpreter = "python"
		b.ReapPatterns = []string{"python.exe", "talus-tally-backend.exe"}
	}
	return b
}

// LoadConfig loads configuration from a YAML file on top of DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Policy exposes the configuration with defaults resolved.
type Policy struct {
	config *Config
}

// New wraps cfg.
func New(cfg *Config) *Policy {
	return &Policy{config: cfg}
}

// Config returns the underlying configuration.
func (p *Policy) Config() *Config { return p.config }

// Backend returns the backend section.
func (p *Policy) Backend() BackendConfig { return p.config.Backend }

// Window returns the window section.
func (p *Policy) Window() WindowConfig { return p.config.Window }

// BackendAddr returns host:port of the backend's well-known endpoint.
func (p *Policy) BackendAddr() string {
	host := p.config.Backend.Host
	if host == "" {
		host = "127.0.0.1"
	}
	port := p.config.Backend.Port
	if port <= 0 {
		port = 5000
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// ProbeTimeout returns the health probe dial timeout.
func (p *Policy) ProbeTimeout() time.Duration {
	if p.config.Backend.ProbeTimeoutMs > 0 {
		return time.Duration(p.config.Backend.ProbeTimeoutMs) * time.Millisecond
	}
	return 500 * time.Millisecond
}

// SettleDelay returns the pause after reaping. Zero is allowed only when
// settle_ms is explicitly negative, which tests use.
func (p *Policy) SettleDelay() time.Duration {
	ms := p.config.Backend.SettleMs
	switch {
	case ms < 0:
		return 0
	case ms == 0:
		return time.Second
	}
	return time.Duration(ms) * time.Millisecond
}

// DaemonEnv returns the KEY=1 marker passed to the backend.
func (p *Policy) DaemonEnv() string {
	key := p.config.Backend.DaemonEnv
	if key == "" {
		key = "TALUS_DAEMON"
	}
	return key + "=1"
}

// StateFile returns the launch history database path.
// Relative paths are resolved against the state dir.
func (p *Policy) StateFile() string {
	sf := p.config.StateFile
	if sf == "" {
		return filepath.Join(GlobalStateDir(), "launches.sqlite")
	}
	if filepath.IsAbs(sf) {
		return sf
	}
	return filepath.Join(GlobalStateDir(), sf)
}

// LogFile returns the shell log path. "none" or "off" disables file logging.
func (p *Policy) LogFile() string {
	if p.config.LogFile == "" {
		return filepath.Join(GlobalStateDir(), "talus-tally.log")
	}
	return p.config.LogFile
}

// BackendLogFile returns where backend output goes. Empty means inherit stderr.
func (p *Policy) BackendLogFile() string {
	lf := p.config.Backend.LogFile
	switch lf {
	case "":
		return filepath.Join(GlobalStateDir(), "backend.log")
	case "none", "off":
		return ""
	}
	return lf
}

// ExitSignalPath returns the file that `talus-tally quit` touches.
func (p *Policy) ExitSignalPath() string {
	return filepath.Join(GlobalStateDir(), ".talus-exit")
}

// PIDFile returns the running shell's PID file.
func (p *Policy) PIDFile() string {
	return filepath.Join(GlobalStateDir(), "shell.pid")
}

// ControlEnabled reports whether the control listener should run in desktop mode.
func (p *Policy) ControlEnabled() bool {
	return p.config.Control != nil && p.config.Control.Enabled
}

// ControlAddr returns the control listener address.
func (p *Policy) ControlAddr() string {
	if p.config.Control != nil && p.config.Control.Addr != "" {
		return p.config.Control.Addr
	}
	return "127.0.0.1:5010"
}
