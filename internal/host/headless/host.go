// Package headless provides a window-less host: window state lives in memory,
// events go to an Emitter and Quit cancels the run context.
package headless

import (
	"context"
	"log"
	"sync"
)

// Emitter receives host events. control.Broadcaster implements it.
type Emitter interface {
	Emit(event string)
}

// CloseInterceptor is consulted on Close. shutdown.Coordinator implements it.
type CloseInterceptor interface {
	OnCloseRequested() bool
}

// Host is an in-memory window.
type Host struct {
	emitter     Emitter
	interceptor CloseInterceptor
	cancel      context.CancelFunc
	logger      *log.Logger

	mu        sync.Mutex
	minimised bool
	maximised bool
	closed    bool
}

// New returns a host and the context it cancels on Quit or on an
// uncontested Close.
func New(parent context.Context, emitter Emitter, logger *log.Logger) (*Host, context.Context) {
	ctx, cancel := context.WithCancel(parent)
	return &Host{emitter: emitter, cancel: cancel, logger: logger}, ctx
}

// SetEmitter sets where events go. Call before the host is in use.
func (h *Host) SetEmitter(e Emitter) {
	h.emitter = e
}

// SetInterceptor routes Close through i.
func (h *Host) SetInterceptor(i CloseInterceptor) {
	h.interceptor = i
}

func (h *Host) Minimise() {
	h.mu.Lock()
	h.minimised = true
	h.mu.Unlock()
}

func (h *Host) Maximise() {
	h.mu.Lock()
	h.maximised = true
	h.minimised = false
	h.mu.Unlock()
}

func (h *Host) Unmaximise() {
	h.mu.Lock()
	h.maximised = false
	h.mu.Unlock()
}

func (h *Host) IsMaximised() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.maximised
}

// IsMinimised reports the last minimise state.
func (h *Host) IsMinimised() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.minimised
}

// Close behaves like a window close: the interceptor may keep it open.
func (h *Host) Close() {
	if h.interceptor != nil && h.interceptor.OnCloseRequested() {
		return
	}
	h.Quit()
}

func (h *Host) Emit(event string) {
	if h.emitter == nil {
		h.logger.Printf("Host: %s (no listeners)", event)
		return
	}
	h.emitter.Emit(event)
}

// Quit ends the run.
func (h *Host) Quit() {
	h.mu.Lock()
	already := h.closed
	h.closed = true
	h.mu.Unlock()
	if !already {
		h.logger.Printf("Host: quitting")
	}
	h.cancel()
}
