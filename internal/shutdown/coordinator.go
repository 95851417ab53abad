// Package shutdown decides what happens when the window is asked to close
// and makes sure the backend is killed on every exit path.
package shutdown

import (
	"log"
	"os"
	"sync"
	"sync/atomic"
)

// EventCloseRequested is emitted to the UI layer when the user tries to close
// the window. It carries no payload.
const EventCloseRequested = "close-requested"

// State of the coordinator.
type State int32

const (
	Running State = iota
	CloseRequested
	Terminated
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case CloseRequested:
		return "close_requested"
	case Terminated:
		return "terminated"
	}
	return "unknown"
}

// Backend is the supervised process. Close kills it and refuses later starts.
type Backend interface {
	Close() bool
}

// Host is the GUI runtime boundary.
type Host interface {
	Emit(event string)
	Quit()
}

// Coordinator serializes the close and exit paths.
type Coordinator struct {
	backend Backend
	logger  *log.Logger
	exit    func(code int)

	state    atomic.Int32
	requests atomic.Int64

	mu   sync.Mutex
	host Host
}

// New returns a coordinator in the Running state.
func New(backend Backend, logger *log.Logger) *Coordinator {
	return &Coordinator{backend: backend, logger: logger, exit: os.Exit}
}

// SetExitFunc replaces os.Exit on the forced path.
func (c *Coordinator) SetExitFunc(fn func(code int)) {
	c.exit = fn
}

// Attach sets the host. Hosts attach once their runtime is up.
func (c *Coordinator) Attach(h Host) {
	c.mu.Lock()
	c.host = h
	c.mu.Unlock()
}

func (c *Coordinator) currentHost() Host {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.host
}

// State returns the current state.
func (c *Coordinator) State() State {
	return State(c.state.Load())
}

// CloseRequests returns how many close attempts were intercepted.
func (c *Coordinator) CloseRequests() int64 {
	return c.requests.Load()
}

// OnCloseRequested is called by the host before the window closes. While the
// app is not terminating it prevents the close and emits EventCloseRequested
// once; the UI layer decides whether to call ExitApp. After ExitApp or
// ForceExit it returns false so the host's own quit goes through.
func (c *Coordinator) OnCloseRequested() (prevent bool) {
	if c.State() == Terminated {
		return false
	}
	c.state.CompareAndSwap(int32(Running), int32(CloseRequested))
	defer c.state.CompareAndSwap(int32(CloseRequested), int32(Running))

	c.requests.Add(1)
	if h := c.currentHost(); h != nil {
		h.Emit(EventCloseRequested)
	} else {
		c.logger.Printf("Warning: Coordinator: close requested before host attached")
	}
	return true
}

// ExitApp is the graceful path: kill the backend, then ask the host to quit.
func (c *Coordinator) ExitApp() {
	if !c.enterTerminated() {
		c.logger.Printf("Coordinator: exit already in progress")
		return
	}
	c.logger.Printf("Coordinator: exit requested")
	c.backend.Close()

	h := c.currentHost()
	if h == nil {
		c.logger.Printf("Warning: Coordinator: no host attached, exiting directly")
		c.exit(0)
		return
	}
	h.Quit()
}

// ForceExit kills the backend and ends the process without host teardown.
func (c *Coordinator) ForceExit() {
	c.enterTerminated()
	c.logger.Printf("Coordinator: force exit")
	c.backend.Close()
	c.exit(0)
}

// Shutdown is the host's teardown hook. Exit paths the host starts on its own
// (OS session end, runtime quit) still reach the backend through here.
func (c *Coordinator) Shutdown() {
	c.enterTerminated()
	if c.backend.Close() {
		c.logger.Printf("Coordinator: backend terminated during host shutdown")
	}
}

// enterTerminated reports whether this call made the transition.
func (c *Coordinator) enterTerminated() bool {
	return State(c.state.Swap(int32(Terminated))) != Terminated
}
