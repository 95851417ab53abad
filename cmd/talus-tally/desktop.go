package main

import (
	"context"
	"embed"
	"io/fs"
	"os"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"

	"github.com/PipeManMusic/Talus-Tally/internal/control"
	wailshost "github.com/PipeManMusic/Talus-Tally/internal/host/wails"
)

//go:embed all:frontend/dist
var embeddedAssets embed.FS

// runDesktop opens the window and supervises the backend until the window
// runtime exits.
func runDesktop() {
	shell, logger := openShell("desktop")
	win := shell.Policy.Window()

	host := wailshost.New(shell.Coordinator, logger)
	surface := shell.Attach(host)

	var ctrl *control.Server
	if shell.Policy.ControlEnabled() {
		mcpServer := control.NewMCPServer(Version, surface, shell, logger)
		ctrl = newControlServer(shell, mcpServer, logger)
		if _, err := ctrl.Start(); err != nil {
			logger.Printf("Warning: control server disabled: %v", err)
			ctrl = nil
		}
	}

	assets, err := frontendAssets(win.FrontendDir)
	if err != nil {
		logger.Fatalf("Frontend assets: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	// Window creation does not wait for the backend.
	shell.Boot(ctx)

	err = wails.Run(&options.App{
		Title:     win.Title,
		Width:     win.Width,
		Height:    win.Height,
		Frameless: win.Frameless,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		OnStartup:     host.Startup,
		OnBeforeClose: host.BeforeClose,
		OnShutdown:    host.Shutdown,
		Bind: []interface{}{
			surface,
		},
	})
	if err != nil {
		logger.Printf("Window runtime error: %v", err)
	}

	cancel()
	if ctrl != nil {
		ctrl.Shutdown()
	}
	shell.Close()
	logger.Println("Shell stopped")
}

// frontendAssets returns the UI bundle: dir when set, otherwise the embedded
// build output.
func frontendAssets(dir string) (fs.FS, error) {
	if dir != "" {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
		return os.DirFS(dir), nil
	}
	return fs.Sub(embeddedAssets, "frontend/dist")
}
