// Package control exposes the command surface over MCP so headless runs and
// automation can drive the shell the same way the UI does.
package control

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/PipeManMusic/Talus-Tally/internal/domain"
)

// Commands is the UI-facing surface. commands.Surface implements it.
type Commands interface {
	Status() bool
	MinimizeWindow()
	MaximizeWindow()
	CloseWindow()
	ExitApp()
	ForceCloseWindow()
	BackendInfo() domain.BackendInfo
}

// History lists recorded launches, newest first.
type History interface {
	Recent(limit int) ([]domain.Launch, error)
}

const (
	defaultHistoryLimit = 10
	maxHistoryLimit     = 100
)

// Register adds the shell tools to s.
func Register(s *server.MCPServer, cmds Commands, history History, logger *log.Logger) {
	registerStatus(s, cmds)
	registerWindowTools(s, cmds, logger)
	registerExitTools(s, cmds, logger)
	registerBackendInfo(s, cmds)
	registerLaunchHistory(s, history)
}

func registerStatus(s *server.MCPServer, cmds Commands) {
	s.AddTool(
		mcp.NewTool("status",
			mcp.WithDescription("Report whether the backend accepts connections on its port."),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			if cmds.Status() {
				return mcp.NewToolResultText("backend: reachable"), nil
			}
			return mcp.NewToolResultText("backend: unreachable"), nil
		},
	)
}

func registerWindowTools(s *server.MCPServer, cmds Commands, logger *log.Logger) {
	s.AddTool(
		mcp.NewTool("minimize_window",
			mcp.WithDescription("Minimise the application window."),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			cmds.MinimizeWindow()
			return mcp.NewToolResultText("window minimised"), nil
		},
	)

	s.AddTool(
		mcp.NewTool("maximize_window",
			mcp.WithDescription("Toggle the application window between maximised and restored."),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			cmds.MaximizeWindow()
			return mcp.NewToolResultText("window maximise toggled"), nil
		},
	)

	s.AddTool(
		mcp.NewTool("close_window",
			mcp.WithDescription("Ask the window to close. The shell intercepts this and sends a close-requested notification instead of closing."),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			logger.Printf("Control: close_window")
			cmds.CloseWindow()
			return mcp.NewToolResultText("close requested"), nil
		},
	)
}

func registerExitTools(s *server.MCPServer, cmds Commands, logger *log.Logger) {
	s.AddTool(
		mcp.NewTool("exit_app",
			mcp.WithDescription("Stop the backend and exit the application gracefully."),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			logger.Printf("Control: exit_app")
			// The reply goes out before teardown starts.
			go cmds.ExitApp()
			return mcp.NewToolResultText("exit requested"), nil
		},
	)

	s.AddTool(
		mcp.NewTool("force_close_window",
			mcp.WithDescription("Stop the backend and terminate the application immediately."),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			logger.Printf("Control: force_close_window")
			go func() {
				// Give the transport a moment to flush the reply.
				time.Sleep(100 * time.Millisecond)
				cmds.ForceCloseWindow()
			}()
			return mcp.NewToolResultText("force close requested"), nil
		},
	)
}

func registerBackendInfo(s *server.MCPServer, cmds Commands) {
	s.AddTool(
		mcp.NewTool("backend_info",
			mcp.WithDescription("Return a JSON snapshot of the supervised backend: running, pid, reachable, address, launch and shell state."),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			b, err := json.MarshalIndent(cmds.BackendInfo(), "", "  ")
			if err != nil {
				return nil, fmt.Errorf("encode backend info: %w", err)
			}
			return mcp.NewToolResultText(string(b)), nil
		},
	)
}

func registerLaunchHistory(s *server.MCPServer, history History) {
	s.AddTool(
		mcp.NewTool("launch_history",
			mcp.WithDescription("List recent backend launches, newest first."),
			mcp.WithNumber("limit", mcp.Description("Maximum number of launches to return (default: 10, max: 100)")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			if history == nil {
				return mcp.NewToolResultText("Launch history is disabled."), nil
			}
			args := req.GetArguments()
			limit := defaultHistoryLimit
			if v, ok := args["limit"].(float64); ok {
				limit = int(v)
				if limit < 1 {
					limit = 1
				}
				if limit > maxHistoryLimit {
					limit = maxHistoryLimit
				}
			}

			launches, err := history.Recent(limit)
			if err != nil {
				return nil, fmt.Errorf("read launch history: %w", err)
			}
			if len(launches) == 0 {
				return mcp.NewToolResultText("No launches recorded."), nil
			}

			var sb strings.Builder
			fmt.Fprintf(&sb, "%d launch(es):\n", len(launches))
			for _, l := range launches {
				fmt.Fprintf(&sb, "\n- %s pid=%d %s: %s", l.StartedAt.Local().Format("2006-01-02 15:04:05"), l.PID, l.Kind, strings.Join(append([]string{l.Path}, l.Args...), " "))
				if l.Open() {
					sb.WriteString(" [running]")
				} else if l.EndReason == domain.EndExited {
					fmt.Fprintf(&sb, " [exited code=%d after %s]", l.ExitCode, l.Uptime(l.EndedAt).Round(time.Second))
				} else {
					fmt.Fprintf(&sb, " [%s after %s]", l.EndReason, l.Uptime(l.EndedAt).Round(time.Second))
				}
			}
			return mcp.NewToolResultText(sb.String()), nil
		},
	)
}
