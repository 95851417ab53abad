package control

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/PipeManMusic/Talus-Tally/internal/dashboard"
)

// NotificationPrefix is prepended to host event names pushed to MCP sessions.
const NotificationPrefix = "notifications/"

// NewMCPServer builds the MCP server with the shell tools registered.
func NewMCPServer(version string, cmds Commands, history History, logger *log.Logger) *server.MCPServer {
	hooks := &server.Hooks{}
	hooks.AddAfterCallTool(func(ctx context.Context, id any, message *mcp.CallToolRequest, result *mcp.CallToolResult) {
		if message != nil {
			logger.Printf("Control: tool call %s", message.Params.Name)
		}
	})
	hooks.AddBeforeInitialize(func(ctx context.Context, id any, message *mcp.InitializeRequest) {
		if message != nil {
			ci := message.Params.ClientInfo
			logger.Printf("Control: client %s %s, protocol %s", ci.Name, ci.Version, message.Params.ProtocolVersion)
		}
	})

	s := server.NewMCPServer(
		"talus-tally",
		version,
		server.WithInstructions("Controls the Talus Tally desktop shell: window operations, backend status and application exit."),
		server.WithHooks(hooks),
	)
	Register(s, cmds, history, logger)
	return s
}

// Broadcaster forwards host events to every connected MCP session.
type Broadcaster struct {
	server *server.MCPServer
	logger *log.Logger
}

// NewBroadcaster returns a broadcaster pushing through s.
func NewBroadcaster(s *server.MCPServer, logger *log.Logger) *Broadcaster {
	return &Broadcaster{server: s, logger: logger}
}

// Emit sends event as notification "notifications/<event>" with no payload.
func (b *Broadcaster) Emit(event string) {
	b.logger.Printf("Control: broadcasting %s", event)
	b.server.SendNotificationToAllClients(NotificationPrefix+event, nil)
}

// Server is the control HTTP listener: MCP over streamable HTTP, /health and
// the dashboard.
type Server struct {
	addr    string
	mcp     *server.MCPServer
	dash    *dashboard.Handler
	logger  *log.Logger
	httpSrv *http.Server
}

// NewServer returns an unstarted server for addr.
func NewServer(addr string, mcpServer *server.MCPServer, dash *dashboard.Handler, logger *log.Logger) *Server {
	return &Server{addr: addr, mcp: mcpServer, dash: dash, logger: logger}
}

// Handler returns the routed mux. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/mcp", server.NewStreamableHTTPServer(s.mcp))
	mux.HandleFunc("/health", s.handleHealth)
	if s.dash != nil {
		s.dash.RegisterRoutes(mux)
	}
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	resp := map[string]any{"status": "ok"}
	if s.dash != nil {
		snap := s.dash.Status()
		resp["backend_running"] = snap.Running
		resp["backend_reachable"] = snap.Reachable
		resp["state"] = snap.State
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// Start listens on the configured address and serves in the background. It
// returns the bound address, which differs from the configured one for port 0.
func (s *Server) Start() (string, error) {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return "", fmt.Errorf("control listen %s: %w", s.addr, err)
	}
	s.httpSrv = &http.Server{Handler: s.Handler()}

	bound := ln.Addr().String()
	s.logger.Printf("Control server on %s", bound)
	s.logger.Printf("  MCP:       http://%s/mcp", bound)
	s.logger.Printf("  Dashboard: http://%s/dashboard", bound)

	go func() {
		if err := s.httpSrv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Printf("Warning: Control server: %v", err)
		}
	}()
	return bound, nil
}

// Shutdown stops the listener, waiting up to 5s for in-flight requests.
func (s *Server) Shutdown() {
	if s.httpSrv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpSrv.Shutdown(ctx); err != nil {
		// Streaming sessions keep connections busy; drop them.
		s.logger.Printf("Warning: Control server shutdown: %v", err)
		s.httpSrv.Close()
	}
}
