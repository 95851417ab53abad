package main

import (
	"log"

	"github.com/mark3labs/mcp-go/server"

	"github.com/PipeManMusic/Talus-Tally/internal/app"
	"github.com/PipeManMusic/Talus-Tally/internal/control"
	"github.com/PipeManMusic/Talus-Tally/internal/dashboard"
)

// newControlServer builds the control listener for shell: MCP, /health and
// the dashboard, with the dashboard's exit button wired to the graceful path.
func newControlServer(shell *app.Shell, mcpServer *server.MCPServer, logger *log.Logger) *control.Server {
	dash := dashboard.NewHandler(shell, shell, dashboard.WithExiter(shell.Coordinator))
	return control.NewServer(shell.Policy.ControlAddr(), mcpServer, dash, logger)
}
