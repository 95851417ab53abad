// Package statusview renders backend status for the terminal: a one-shot
// report and a live bubbletea view.
package statusview

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/PipeManMusic/Talus-Tally/internal/domain"
)

// Snapshot is everything one render needs.
type Snapshot struct {
	Info     domain.BackendInfo
	ShellPID int // 0 when no shell is running
	Launches []domain.Launch
	Err      error // launch history read failure
	Now      time.Time
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#58A6FF"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8B949E")).Width(10)
	upStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#3FB950"))
	downStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F85149"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8B949E"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#D29922"))
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#30363D")).
			Padding(0, 1)
)

// Render draws snap as a bordered status panel followed by the launch list.
func Render(snap Snapshot) string {
	var rows []string
	rows = append(rows, titleStyle.Render("Talus Tally backend"))

	health := downStyle.Render("unreachable")
	if snap.Info.Reachable {
		health = upStyle.Render("reachable")
	}
	rows = append(rows, row("Endpoint", snap.Info.Addr+"  "+health))

	shell := dimStyle.Render("not running")
	if snap.ShellPID > 0 {
		shell = fmt.Sprintf("pid %d", snap.ShellPID)
		if snap.Info.State != "" {
			shell += " (" + snap.Info.State + ")"
		}
	}
	rows = append(rows, row("Shell", shell))

	if l := snap.Info.Launch; l != nil {
		rows = append(rows,
			row("Backend", fmt.Sprintf("pid %d, %s", l.PID, l.Kind)),
			row("Command", commandLine(*l)),
			row("Uptime", l.Uptime(snap.Now).Round(time.Second).String()),
		)
	}

	out := boxStyle.Render(strings.Join(rows, "\n"))
	return out + "\n" + renderLaunches(snap)
}

func renderLaunches(snap Snapshot) string {
	if snap.Err != nil {
		return warnStyle.Render("Launch history unavailable: "+snap.Err.Error()) + "\n"
	}
	if len(snap.Launches) == 0 {
		return dimStyle.Render("No launches recorded.") + "\n"
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Recent launches") + "\n")
	for _, l := range snap.Launches {
		end := upStyle.Render("running")
		switch {
		case l.Open():
		case l.EndReason == domain.EndExited:
			end = warnStyle.Render(fmt.Sprintf("exited (%d)", l.ExitCode))
		case l.EndReason == domain.EndAbandoned:
			end = downStyle.Render(l.EndReason)
		default:
			end = dimStyle.Render(l.EndReason)
		}
		fmt.Fprintf(&sb, "  %s  pid %-7d %-8s %-10s %s\n",
			l.StartedAt.Local().Format("2006-01-02 15:04:05"),
			l.PID, l.Kind, l.Uptime(snap.Now).Round(time.Second), end)
	}
	return sb.String()
}

func row(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), value)
}

func commandLine(l domain.Launch) string {
	return strings.Join(append([]string{l.Path}, l.Args...), " ")
}
