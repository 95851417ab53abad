package supervisor

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/PipeManMusic/Talus-Tally/internal/domain"
	"github.com/PipeManMusic/Talus-Tally/internal/policy"
)

// Candidate is the backend artifact chosen for a start attempt.
type Candidate struct {
	Kind domain.CandidateKind `json:"kind"`
	Path string               `json:"path"`
	Args []string             `json:"args,omitempty"`
	Root string               `json:"root"` // working directory for the spawn
}

// Command returns the candidate as a single argv slice.
func (c Candidate) Command() []string {
	return append([]string{c.Path}, c.Args...)
}

// Resolver picks the project root and backend candidate from the location of
// the running executable and what exists on disk.
type Resolver struct {
	cfg        policy.BackendConfig
	executable func() (string, error)
	getwd      func() (string, error)
}

// NewResolver returns a resolver using os.Executable and os.Getwd.
func NewResolver(cfg policy.BackendConfig) *Resolver {
	return &Resolver{cfg: cfg, executable: os.Executable, getwd: os.Getwd}
}

// ProjectRoot returns, in order: the installed root when the executable lives
// under it, the nearest ancestor of the executable's directory that contains
// the source marker directory, or the working directory.
func (r *Resolver) ProjectRoot() string {
	if exe, err := r.executable(); err == nil && exe != "" {
		exeDir := filepath.Dir(exe)

		if r.cfg.InstalledRoot != "" && isWithin(exeDir, r.cfg.InstalledRoot) {
			return filepath.Clean(r.cfg.InstalledRoot)
		}

		if r.cfg.SourceMarker != "" {
			for dir := exeDir; ; {
				if isDir(filepath.Join(dir, r.cfg.SourceMarker)) {
					return dir
				}
				parent := filepath.Dir(dir)
				if parent == dir {
					break
				}
				dir = parent
			}
		}
	}

	if wd, err := r.getwd(); err == nil && wd != "" {
		return wd
	}
	return "."
}

// Resolve returns the candidate for the current filesystem state. It never
// fails: the system interpreter is always a structurally valid fallback.
func (r *Resolver) Resolve() Candidate {
	root := r.ProjectRoot()

	if path, ok := r.packagedBinary(root); ok {
		return Candidate{Kind: domain.KindPackaged, Path: path, Root: root}
	}

	args := append([]string(nil), r.cfg.ModuleArgs...)
	if r.cfg.VenvInterpreter != "" {
		venv := filepath.Join(root, r.cfg.VenvInterpreter)
		if isFile(venv) {
			return Candidate{Kind: domain.KindVenv, Path: venv, Args: args, Root: root}
		}
	}

	return Candidate{Kind: domain.KindSystem, Path: r.cfg.SystemInterpreter, Args: args, Root: root}
}

// packagedBinary accepts either the binary itself at <root>/<name> or a
// bundle directory of that name holding the binary (<root>/<name>/<name>).
func (r *Resolver) packagedBinary(root string) (string, bool) {
	if r.cfg.PackagedBinary == "" {
		return "", false
	}
	path := filepath.Join(root, r.cfg.PackagedBinary)
	info, err := os.Stat(path)
	if err != nil {
		return "", false
	}
	if !info.IsDir() {
		return path, true
	}
	nested := filepath.Join(path, filepath.Base(r.cfg.PackagedBinary))
	if isFile(nested) {
		return nested, true
	}
	return "", false
}

// isWithin reports whether path equals root or lies below it, comparing whole
// path components.
func isWithin(path, root string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
