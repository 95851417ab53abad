package control

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/PipeManMusic/Talus-Tally/internal/dashboard"
	"github.com/PipeManMusic/Talus-Tally/internal/domain"
)

type fakeSession struct {
	id string
	ch chan mcp.JSONRPCNotification
}

func (s *fakeSession) SessionID() string                                   { return s.id }
func (s *fakeSession) NotificationChannel() chan<- mcp.JSONRPCNotification { return s.ch }
func (s *fakeSession) Initialize()                                         {}
func (s *fakeSession) Initialized() bool                                   { return true }

func TestBroadcasterEmit(t *testing.T) {
	s := testServer(newFakeCommands(), nil)
	sess := &fakeSession{id: "ui-1", ch: make(chan mcp.JSONRPCNotification, 1)}
	if err := s.RegisterSession(context.Background(), sess); err != nil {
		t.Fatalf("register session: %v", err)
	}

	NewBroadcaster(s, testLogger()).Emit("close-requested")

	select {
	case n := <-sess.ch:
		if n.Method != "notifications/close-requested" {
			t.Errorf("method = %q, want notifications/close-requested", n.Method)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("notification not delivered")
	}
}

type fakeInfo domain.BackendInfo

func (f fakeInfo) BackendInfo() domain.BackendInfo { return domain.BackendInfo(f) }

type noLaunches struct{}

func (noLaunches) Recent(int) ([]domain.Launch, error) { return nil, nil }

func TestHealth(t *testing.T) {
	dash := dashboard.NewHandler(fakeInfo{Running: true, Addr: "127.0.0.1:5000", State: "running"}, noLaunches{})
	srv := NewServer("127.0.0.1:0", testServer(newFakeCommands(), nil), dash, testLogger())

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var got map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["status"] != "ok" || got["backend_running"] != true || got["backend_reachable"] != false || got["state"] != "running" {
		t.Errorf("health = %v", got)
	}
}

func TestServerServesDashboardRoutes(t *testing.T) {
	dash := dashboard.NewHandler(fakeInfo{Addr: "127.0.0.1:5000"}, noLaunches{})
	srv := NewServer("127.0.0.1:0", testServer(newFakeCommands(), nil), dash, testLogger())

	addr, err := srv.Start()
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer srv.Shutdown()

	resp, err := http.Get("http://" + addr + "/api/status")
	if err != nil {
		t.Fatalf("GET /api/status: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var snap dashboard.StatusSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.Addr != "127.0.0.1:5000" {
		t.Errorf("addr = %q", snap.Addr)
	}
}

func TestServerStartListenError(t *testing.T) {
	first := NewServer("127.0.0.1:0", testServer(newFakeCommands(), nil), nil, testLogger())
	addr, err := first.Start()
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer first.Shutdown()

	second := NewServer(addr, testServer(newFakeCommands(), nil), nil, testLogger())
	if _, err := second.Start(); err == nil {
		second.Shutdown()
		t.Fatal("expected listen error on a busy address")
	}
}
