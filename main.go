package main

import (
	"context"
	"embed"
	"errors"
	"log/slog"
	"time"

	"floatrans/internal/ipc"
	"floatrans/internal/singleinstance"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
)

//go:embed all:frontend/dist
var assets embed.FS

const activationTimeout = 3 * time.Second

func main() {
	// Single-instance check BEFORE any Wails/WebView2 initialization.
	mutexLock, err := singleinstance.TryLock(singleinstance.DefaultMutexName())
	if errors.Is(err, singleinstance.ErrAlreadyRunning) {
		slog.Info("[INFO-SINGLE] another instance is already running, signaling activation")
		ctx, cancel := context.WithTimeout(context.Background(), activationTimeout)
		defer cancel()
		if sendErr := ipc.Show(ctx, ""); sendErr != nil {
			slog.Warn("[WARN-SINGLE] failed to signal existing instance", "error", sendErr)
		}
		return
	}
	if err != nil {
		slog.Warn("[WARN-SINGLE] lock creation failed, proceeding without single-instance guard", "error", err)
	}
	if mutexLock != nil {
		defer func() {
			if releaseErr := mutexLock.Release(); releaseErr != nil {
				slog.Warn("[WARN-SINGLE] lock release failed", "error", releaseErr)
			}
		}()
	}

	app := NewApp()
	app.installErrorLogCapture()

	err = wails.Run(&options.App{
		Title:         "floatrans",
		Width:         420,
		Height:        560,
		MinWidth:      360,
		MinHeight:     320,
		Frameless:     true,
		DisableResize: false,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		BackgroundColour: &options.RGBA{R: 10, G: 16, B: 22, A: 1},
		OnStartup:        app.startup,
		OnShutdown:       app.shutdown,
		Bind: []any{
			app,
		},
	})

	if err != nil {
		slog.Error("[ERROR-SINGLE] wails run failed", "error", err)
	}
}
