// Package dashboard provides a web dashboard and JSON API for monitoring
// the supervised backend and its launch history.
package dashboard

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PipeManMusic/Talus-Tally/internal/domain"
)

const defaultLaunchLimit = 20

// StatusSnapshot is the JSON response from /api/status.
type StatusSnapshot struct {
	Timestamp string `json:"timestamp"`
	Running   bool   `json:"running"`
	Reachable bool   `json:"reachable"`
	Addr      string `json:"addr"`
	PID       int    `json:"pid,omitempty"`
	Kind      string `json:"kind,omitempty"`
	Command   string `json:"command,omitempty"`
	Root      string `json:"root,omitempty"`
	Started   string `json:"started,omitempty"`
	Uptime    string `json:"uptime,omitempty"`
	State     string `json:"state"`
}

// LaunchSnapshot is a per-launch summary.
type LaunchSnapshot struct {
	ID        string `json:"id"`
	PID       int    `json:"pid"`
	Kind      string `json:"kind"`
	Command   string `json:"command"`
	Root      string `json:"root,omitempty"`
	Started   string `json:"started"`
	Duration  string `json:"duration"`
	Open      bool   `json:"open"`
	EndReason string `json:"end_reason,omitempty"`
	ExitCode  int    `json:"exit_code"`
}

// StatusSource is implemented by app.Shell.
type StatusSource interface {
	BackendInfo() domain.BackendInfo
}

// LaunchSource is implemented by app.Shell.
type LaunchSource interface {
	Recent(limit int) ([]domain.Launch, error)
}

// Exiter lets the dashboard ask the shell to exit gracefully.
type Exiter interface {
	ExitApp()
}

// Handler holds dependencies for dashboard HTTP handlers.
type Handler struct {
	status   StatusSource
	launches LaunchSource
	exiter   Exiter // optional; nil disables /api/exit
	now      func() time.Time
}

// NewHandler creates a dashboard handler.
func NewHandler(status StatusSource, launches LaunchSource, opts ...HandlerOption) *Handler {
	h := &Handler{status: status, launches: launches, now: time.Now}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HandlerOption configures optional dependencies for the dashboard handler.
type HandlerOption func(*Handler)

// WithExiter enables the exit endpoint.
func WithExiter(e Exiter) HandlerOption {
	return func(h *Handler) { h.exiter = e }
}

// RegisterRoutes adds dashboard routes to the given mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/status", h.handleAPIStatus)
	mux.HandleFunc("/api/launches", h.handleAPILaunches)
	mux.HandleFunc("/api/exit", h.handleAPIExit)
	mux.HandleFunc("/dashboard", h.handleDashboard)
	mux.HandleFunc("/dashboard/", h.handleDashboard)
}

// Status builds the snapshot served by /api/status.
func (h *Handler) Status() StatusSnapshot {
	now := h.now()
	info := h.status.BackendInfo()
	snap := StatusSnapshot{
		Timestamp: now.Format(time.RFC3339),
		Running:   info.Running,
		Reachable: info.Reachable,
		Addr:      info.Addr,
		PID:       info.PID,
		State:     info.State,
	}
	if l := info.Launch; l != nil {
		snap.Kind = string(l.Kind)
		snap.Command = commandLine(*l)
		snap.Root = l.Root
		snap.Started = relTime(l.StartedAt, now)
		snap.Uptime = l.Uptime(now).Round(time.Second).String()
	}
	return snap
}

func (h *Handler) handleAPIStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Cache-Control", "no-cache")

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(h.Status())
}

func (h *Handler) handleAPILaunches(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Cache-Control", "no-cache")

	limit := defaultLaunchLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"limit must be a positive integer"}`))
			return
		}
		limit = n
	}

	launches, err := h.launches.Recent(limit)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}

	now := h.now()
	out := make([]LaunchSnapshot, 0, len(launches))
	for _, l := range launches {
		out = append(out, LaunchSnapshot{
			ID:        l.ID,
			PID:       l.PID,
			Kind:      string(l.Kind),
			Command:   commandLine(l),
			Root:      l.Root,
			Started:   relTime(l.StartedAt, now),
			Duration:  l.Uptime(now).Round(time.Second).String(),
			Open:      l.Open(),
			EndReason: l.EndReason,
			ExitCode:  l.ExitCode,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(out)
}

func (h *Handler) handleAPIExit(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	if r.Method == http.MethodOptions {
		w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		w.Write([]byte(`{"error":"POST required"}`))
		return
	}
	if h.exiter == nil {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"exit is not enabled on this listener"}`))
		return
	}

	w.Write([]byte(`{"status":"ok","message":"exit requested"}`))
	// Respond before the host starts tearing down.
	go h.exiter.ExitApp()
}

func commandLine(l domain.Launch) string {
	return strings.Join(append([]string{l.Path}, l.Args...), " ")
}

func relTime(t time.Time, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	d := now.Sub(t)
	switch {
	case d < time.Second:
		return "just now"
	case d < time.Minute:
		return formatDuration(d, "s")
	case d < time.Hour:
		return formatDuration(d, "m")
	case d < 24*time.Hour:
		return formatDuration(d, "h")
	default:
		return t.Format("Jan 2 15:04")
	}
}

func formatDuration(d time.Duration, unit string) string {
	switch unit {
	case "s":
		return strconv.Itoa(int(d.Seconds())) + "s ago"
	case "m":
		return strconv.Itoa(int(d.Minutes())) + "m ago"
	case "h":
		return strconv.Itoa(int(d.Hours())) + "h ago"
	default:
		return d.String()
	}
}
