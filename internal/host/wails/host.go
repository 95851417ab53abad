// Package wailshost adapts the Wails v2 runtime to the shell's host boundary.
package wailshost

import (
	"context"
	"log"
	"sync"

	"github.com/wailsapp/wails/v2/pkg/runtime"
)

// CloseInterceptor is consulted when the user closes the window.
// shutdown.Coordinator implements it.
type CloseInterceptor interface {
	OnCloseRequested() bool
	Shutdown()
}

// Host implements commands.Window and shutdown.Host on top of the Wails
// runtime. Calls made before Startup are dropped with a warning.
type Host struct {
	interceptor CloseInterceptor
	logger      *log.Logger

	mu  sync.RWMutex
	ctx context.Context

	// Replaced in tests.
	rt wailsRuntime
}

// wailsRuntime is the slice of the Wails runtime the host uses.
type wailsRuntime interface {
	WindowMinimise(ctx context.Context)
	WindowMaximise(ctx context.Context)
	WindowUnmaximise(ctx context.Context)
	WindowIsMaximised(ctx context.Context) bool
	EventsEmit(ctx context.Context, event string)
	Quit(ctx context.Context)
}

type liveRuntime struct{}

func (liveRuntime) WindowMinimise(ctx context.Context)         { runtime.WindowMinimise(ctx) }
func (liveRuntime) WindowMaximise(ctx context.Context)         { runtime.WindowMaximise(ctx) }
func (liveRuntime) WindowUnmaximise(ctx context.Context)       { runtime.WindowUnmaximise(ctx) }
func (liveRuntime) WindowIsMaximised(ctx context.Context) bool { return runtime.WindowIsMaximised(ctx) }
func (liveRuntime) EventsEmit(ctx context.Context, event string) {
	runtime.EventsEmit(ctx, event)
}
func (liveRuntime) Quit(ctx context.Context) { runtime.Quit(ctx) }

// New returns a host that routes window close attempts through interceptor.
// The interceptor may be attached later with SetInterceptor.
func New(interceptor CloseInterceptor, logger *log.Logger) *Host {
	return &Host{interceptor: interceptor, logger: logger, rt: liveRuntime{}}
}

// SetInterceptor sets the close interceptor. Call before wails.Run.
func (h *Host) SetInterceptor(i CloseInterceptor) {
	h.interceptor = i
}

// Startup is the Wails OnStartup hook.
func (h *Host) Startup(ctx context.Context) {
	h.mu.Lock()
	h.ctx = ctx
	h.mu.Unlock()
	h.logger.Printf("Host: window runtime ready")
}

// BeforeClose is the Wails OnBeforeClose hook. Returning true keeps the
// window open.
func (h *Host) BeforeClose(ctx context.Context) bool {
	if h.interceptor == nil {
		return false
	}
	return h.interceptor.OnCloseRequested()
}

// Shutdown is the Wails OnShutdown hook. It runs on every way out of the
// runtime loop.
func (h *Host) Shutdown(ctx context.Context) {
	h.logger.Printf("Host: window runtime shutting down")
	if h.interceptor != nil {
		h.interceptor.Shutdown()
	}
}

func (h *Host) context() (context.Context, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.ctx == nil {
		h.logger.Printf("Warning: Host: window runtime not started")
		return nil, false
	}
	return h.ctx, true
}

func (h *Host) Minimise() {
	if ctx, ok := h.context(); ok {
		h.rt.WindowMinimise(ctx)
	}
}

func (h *Host) Maximise() {
	if ctx, ok := h.context(); ok {
		h.rt.WindowMaximise(ctx)
	}
}

func (h *Host) Unmaximise() {
	if ctx, ok := h.context(); ok {
		h.rt.WindowUnmaximise(ctx)
	}
}

func (h *Host) IsMaximised() bool {
	ctx, ok := h.context()
	if !ok {
		return false
	}
	return h.rt.WindowIsMaximised(ctx)
}

// Close asks the runtime to quit. Wails runs BeforeClose first, so the
// request is intercepted like a title-bar close.
func (h *Host) Close() {
	if ctx, ok := h.context(); ok {
		h.rt.Quit(ctx)
	}
}

// Emit sends event to the frontend with no payload.
func (h *Host) Emit(event string) {
	if ctx, ok := h.context(); ok {
		h.rt.EventsEmit(ctx, event)
	}
}

// Quit ends the runtime loop. Once the coordinator is terminated BeforeClose
// lets it through.
func (h *Host) Quit() {
	if ctx, ok := h.context(); ok {
		h.rt.Quit(ctx)
	}
}
