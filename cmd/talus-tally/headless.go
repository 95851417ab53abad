package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/PipeManMusic/Talus-Tally/internal/control"
	"github.com/PipeManMusic/Talus-Tally/internal/host/headless"
)

// runHeadless supervises the backend with no window. The control listener is
// the only UI; SIGINT and SIGTERM take the graceful exit path.
func runHeadless() {
	shell, logger := openShell("headless")

	host, runCtx := headless.New(context.Background(), nil, logger)
	host.SetInterceptor(shell.Coordinator)
	surface := shell.Attach(host)

	mcpServer := control.NewMCPServer(Version, surface, shell, logger)
	host.SetEmitter(control.NewBroadcaster(mcpServer, logger))

	ctrl := newControlServer(shell, mcpServer, logger)
	if _, err := ctrl.Start(); err != nil {
		logger.Fatalf("Control server: %v", err)
	}

	signal.Ignore(syscall.SIGHUP)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, exiting...", sig)
		shell.Coordinator.ExitApp()
	}()

	shell.Boot(runCtx)
	<-runCtx.Done()

	signal.Stop(sigCh)
	ctrl.Shutdown()
	shell.Close()
	logger.Println("Shell stopped")
}
